package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/pawfinderz-backend/pkg/enums"
)

// EmailConfiguration is a delivery provider setup. At most one row is active.
// The API exposes status as a boolean is_active; see emailconfig.ToDTO.
type EmailConfiguration struct {
	ID          uuid.UUID               `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	Provider    enums.EmailProvider     `gorm:"type:text;not null"`
	Status      enums.EmailConfigStatus `gorm:"type:text;not null;default:inactive"`
	FromAddress string                  `gorm:"column:from_address;type:text;not null"`
	FromName    *string                 `gorm:"column:from_name;type:text"`
	Config      json.RawMessage         `gorm:"type:jsonb"`
	CreatedAt   time.Time               `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time               `gorm:"column:updated_at;autoUpdateTime"`
}

func (e *EmailConfiguration) BeforeCreate(*gorm.DB) error {
	ensureID(&e.ID)
	return nil
}
