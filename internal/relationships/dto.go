package relationships

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/pawfinderz-backend/pkg/db/models"
	"github.com/angelmondragon/pawfinderz-backend/pkg/enums"
)

// RelationshipDTO is the API view of a pet relationship.
type RelationshipDTO struct {
	ID               uuid.UUID              `json:"id"`
	PetID            uuid.UUID              `json:"pet_id"`
	UserID           uuid.UUID              `json:"user_id"`
	RelationshipType enums.RelationshipType `json:"relationship_type"`
	StartAt          time.Time              `json:"start_at"`
	EndAt            *time.Time             `json:"end_at,omitempty"`
	Active           bool                   `json:"active"`
}

// InvitationDTO omits the secret hash.
type InvitationDTO struct {
	ID               uuid.UUID              `json:"id"`
	PetID            uuid.UUID              `json:"pet_id"`
	InviterUserID    uuid.UUID              `json:"inviter_user_id"`
	InviteeEmail     *string                `json:"invitee_email,omitempty"`
	RelationshipType enums.RelationshipType `json:"relationship_type"`
	Status           enums.InvitationStatus `json:"status"`
	ExpiresAt        time.Time              `json:"expires_at"`
	RespondedAt      *time.Time             `json:"responded_at,omitempty"`
}

func ToRelationshipDTO(rel models.PetRelationship) RelationshipDTO {
	return RelationshipDTO{
		ID:               rel.ID,
		PetID:            rel.PetID,
		UserID:           rel.UserID,
		RelationshipType: rel.RelationshipType,
		StartAt:          rel.StartAt,
		EndAt:            rel.EndAt,
		Active:           rel.IsActive(),
	}
}

func ToInvitationDTO(inv models.RelationshipInvitation) InvitationDTO {
	return InvitationDTO{
		ID:               inv.ID,
		PetID:            inv.PetID,
		InviterUserID:    inv.InviterUserID,
		InviteeEmail:     inv.InviteeEmail,
		RelationshipType: inv.RelationshipType,
		Status:           inv.Status,
		ExpiresAt:        inv.ExpiresAt,
		RespondedAt:      inv.RespondedAt,
	}
}
