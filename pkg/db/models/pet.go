package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/pawfinderz-backend/pkg/enums"
)

// PetType is a species entry; its slug keys the capability matrix.
type PetType struct {
	ID        uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	Slug      string    `gorm:"type:text;not null;uniqueIndex"`
	Name      string    `gorm:"type:text;not null"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (p *PetType) BeforeCreate(*gorm.DB) error {
	ensureID(&p.ID)
	return nil
}

// Pet.UserID always points at the current holder. Only handover completion
// changes it.
type Pet struct {
	ID          uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	UserID      uuid.UUID       `gorm:"column:user_id;type:uuid;not null;index"`
	PetTypeID   uuid.UUID       `gorm:"column:pet_type_id;type:uuid;not null"`
	PetType     *PetType        `gorm:"foreignKey:PetTypeID"`
	Name        string          `gorm:"type:text;not null"`
	Sex         *string         `gorm:"type:text"`
	BirthDate   *time.Time      `gorm:"column:birth_date;type:date"`
	Description *string         `gorm:"type:text"`
	Status      enums.PetStatus `gorm:"type:pet_status;not null;default:active"`
	CreatedAt   time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

func (p *Pet) BeforeCreate(*gorm.DB) error {
	ensureID(&p.ID)
	return nil
}

// TypeSlug returns the preloaded pet type slug or an empty string.
func (p *Pet) TypeSlug() string {
	if p == nil || p.PetType == nil {
		return ""
	}
	return p.PetType.Slug
}
