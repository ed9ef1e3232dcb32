package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// OwnershipHistory records a holding period. ToTS is nil while the period is open.
type OwnershipHistory struct {
	ID        uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	PetID     uuid.UUID  `gorm:"column:pet_id;type:uuid;not null;index"`
	UserID    uuid.UUID  `gorm:"column:user_id;type:uuid;not null"`
	FromTS    time.Time  `gorm:"column:from_ts;not null"`
	ToTS      *time.Time `gorm:"column:to_ts"`
	CreatedAt time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

func (OwnershipHistory) TableName() string {
	return "ownership_history"
}

func (o *OwnershipHistory) BeforeCreate(*gorm.DB) error {
	ensureID(&o.ID)
	return nil
}

// IsOpen reports whether the period has not been closed.
func (o OwnershipHistory) IsOpen() bool {
	return o.ToTS == nil
}
