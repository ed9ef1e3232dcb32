package pets

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/pawfinderz-backend/pkg/db/models"
	"github.com/angelmondragon/pawfinderz-backend/pkg/enums"
)

// CreatePetInput is the owner-supplied pet profile.
type CreatePetInput struct {
	PetTypeSlug string     `json:"pet_type" validate:"required"`
	Name        string     `json:"name" validate:"required,max=120"`
	Sex         *string    `json:"sex,omitempty" validate:"omitempty,oneof=male female unknown"`
	BirthDate   *time.Time `json:"birth_date,omitempty"`
	Description *string    `json:"description,omitempty" validate:"omitempty,max=4000"`
}

// UpdateStatusInput moves a pet between lifecycle statuses.
type UpdateStatusInput struct {
	Status string `json:"status" validate:"required"`
}

// PetDTO is the API view of a pet.
type PetDTO struct {
	ID           uuid.UUID       `json:"id"`
	HolderUserID uuid.UUID       `json:"holder_user_id"`
	PetType      string          `json:"pet_type"`
	Name         string          `json:"name"`
	Sex          *string         `json:"sex,omitempty"`
	BirthDate    *time.Time      `json:"birth_date,omitempty"`
	Description  *string         `json:"description,omitempty"`
	Status       enums.PetStatus `json:"status"`
	Capabilities []string        `json:"capabilities"`
	CreatedAt    time.Time       `json:"created_at"`
}

// OwnershipPeriodDTO is one row of a pet's holding history.
type OwnershipPeriodDTO struct {
	UserID uuid.UUID  `json:"user_id"`
	FromTS time.Time  `json:"from"`
	ToTS   *time.Time `json:"to,omitempty"`
	Open   bool       `json:"open"`
}

func toPetDTO(pet models.Pet, caps []string) PetDTO {
	if caps == nil {
		caps = []string{}
	}
	return PetDTO{
		ID:           pet.ID,
		HolderUserID: pet.UserID,
		PetType:      pet.TypeSlug(),
		Name:         pet.Name,
		Sex:          pet.Sex,
		BirthDate:    pet.BirthDate,
		Description:  pet.Description,
		Status:       pet.Status,
		Capabilities: caps,
		CreatedAt:    pet.CreatedAt,
	}
}

func toOwnershipPeriodDTO(row models.OwnershipHistory) OwnershipPeriodDTO {
	return OwnershipPeriodDTO{
		UserID: row.UserID,
		FromTS: row.FromTS,
		ToTS:   row.ToTS,
		Open:   row.IsOpen(),
	}
}

// PetTypeDTO describes a species and what it supports.
type PetTypeDTO struct {
	Slug         string   `json:"slug"`
	Name         string   `json:"name"`
	Capabilities []string `json:"capabilities"`
}
