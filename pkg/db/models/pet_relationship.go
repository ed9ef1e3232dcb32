package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/pawfinderz-backend/pkg/enums"
)

// PetRelationship grants a user a role on a pet. EndAt nil marks it active.
type PetRelationship struct {
	ID               uuid.UUID              `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	PetID            uuid.UUID              `gorm:"column:pet_id;type:uuid;not null;index"`
	UserID           uuid.UUID              `gorm:"column:user_id;type:uuid;not null"`
	RelationshipType enums.RelationshipType `gorm:"column:relationship_type;type:pet_relationship_type;not null"`
	StartAt          time.Time              `gorm:"column:start_at;not null"`
	EndAt            *time.Time             `gorm:"column:end_at"`
	CreatedByUserID  *uuid.UUID             `gorm:"column:created_by_user_id;type:uuid"`
	CreatedAt        time.Time              `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time              `gorm:"column:updated_at;autoUpdateTime"`
}

func (p *PetRelationship) BeforeCreate(*gorm.DB) error {
	ensureID(&p.ID)
	return nil
}

// IsActive reports whether the relationship is open-ended.
func (p PetRelationship) IsActive() bool {
	return p.EndAt == nil
}

// RelationshipInvitation lets an owner grant editor or viewer access. The
// secret half of the invitation code is stored only as an argon2id hash.
type RelationshipInvitation struct {
	ID               uuid.UUID              `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	PetID            uuid.UUID              `gorm:"column:pet_id;type:uuid;not null;index"`
	InviterUserID    uuid.UUID              `gorm:"column:inviter_user_id;type:uuid;not null"`
	InviteeEmail     *string                `gorm:"column:invitee_email;type:text"`
	RelationshipType enums.RelationshipType `gorm:"column:relationship_type;type:pet_relationship_type;not null"`
	SecretHash       string                 `gorm:"column:secret_hash;type:text;not null"`
	Status           enums.InvitationStatus `gorm:"type:invitation_status;not null;default:pending"`
	ExpiresAt        time.Time              `gorm:"column:expires_at;not null"`
	RespondedAt      *time.Time             `gorm:"column:responded_at"`
	AcceptedByUserID *uuid.UUID             `gorm:"column:accepted_by_user_id;type:uuid"`
	CreatedAt        time.Time              `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time              `gorm:"column:updated_at;autoUpdateTime"`
}

func (r *RelationshipInvitation) BeforeCreate(*gorm.DB) error {
	ensureID(&r.ID)
	return nil
}
