package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/pawfinderz-backend/pkg/enums"
)

// PlacementRequest is an owner's call for help with a pet.
type PlacementRequest struct {
	ID          uuid.UUID                    `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	PetID       uuid.UUID                    `gorm:"column:pet_id;type:uuid;not null;index"`
	UserID      uuid.UUID                    `gorm:"column:user_id;type:uuid;not null"`
	RequestType enums.PlacementRequestType   `gorm:"column:request_type;type:placement_request_type;not null"`
	Status      enums.PlacementRequestStatus `gorm:"type:placement_request_status;not null;default:open"`
	Notes       *string                      `gorm:"type:text"`
	StartDate   *time.Time                   `gorm:"column:start_date;type:date"`
	EndDate     *time.Time                   `gorm:"column:end_date;type:date"`
	FulfilledAt *time.Time                   `gorm:"column:fulfilled_at"`
	CancelledAt *time.Time                   `gorm:"column:cancelled_at"`
	CreatedAt   time.Time                    `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time                    `gorm:"column:updated_at;autoUpdateTime"`
}

func (p *PlacementRequest) BeforeCreate(*gorm.DB) error {
	ensureID(&p.ID)
	return nil
}

// PlacementRequestResponse is a helper's expression of interest. UserID is the
// helper profile's user, stored to avoid a join on every authorization check.
type PlacementRequestResponse struct {
	ID                 uuid.UUID                     `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	PlacementRequestID uuid.UUID                     `gorm:"column:placement_request_id;type:uuid;not null;index"`
	HelperProfileID    uuid.UUID                     `gorm:"column:helper_profile_id;type:uuid;not null"`
	UserID             uuid.UUID                     `gorm:"column:user_id;type:uuid;not null"`
	Message            *string                       `gorm:"type:text"`
	Status             enums.PlacementResponseStatus `gorm:"type:placement_response_status;not null;default:responded"`
	RespondedAt        time.Time                     `gorm:"column:responded_at;not null"`
	AcceptedAt         *time.Time                    `gorm:"column:accepted_at"`
	RejectedAt         *time.Time                    `gorm:"column:rejected_at"`
	CancelledAt        *time.Time                    `gorm:"column:cancelled_at"`
	CreatedAt          time.Time                     `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time                     `gorm:"column:updated_at;autoUpdateTime"`
}

func (p *PlacementRequestResponse) BeforeCreate(*gorm.DB) error {
	ensureID(&p.ID)
	return nil
}
