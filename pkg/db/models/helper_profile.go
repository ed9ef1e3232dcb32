package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	dbtypes "github.com/angelmondragon/pawfinderz-backend/pkg/db/types"
)

// HelperProfile is the public face a user responds to placement requests with.
type HelperProfile struct {
	ID        uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	UserID    uuid.UUID `gorm:"column:user_id;type:uuid;not null;uniqueIndex"`
	Bio       *string   `gorm:"type:text"`
	City      *string   `gorm:"type:text"`
	CanFoster bool      `gorm:"column:can_foster;not null;default:false"`
	CanAdopt  bool      `gorm:"column:can_adopt;not null;default:false"`
	CanPetSit bool      `gorm:"column:can_pet_sit;not null;default:false"`

	// PetTypeIDs narrows the pet types the helper takes on; empty means any.
	PetTypeIDs dbtypes.UUIDArray `gorm:"type:uuid[];column:pet_type_ids;not null"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (h *HelperProfile) BeforeCreate(*gorm.DB) error {
	ensureID(&h.ID)
	return nil
}
