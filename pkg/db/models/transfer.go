package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/pawfinderz-backend/pkg/enums"
)

// TransferRequest is spawned when a fostering or permanent response is accepted.
type TransferRequest struct {
	ID                         uuid.UUID                   `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	PetID                      uuid.UUID                   `gorm:"column:pet_id;type:uuid;not null"`
	PlacementRequestID         uuid.UUID                   `gorm:"column:placement_request_id;type:uuid;not null;index"`
	PlacementRequestResponseID uuid.UUID                   `gorm:"column:placement_request_response_id;type:uuid;not null"`
	FromUserID                 uuid.UUID                   `gorm:"column:from_user_id;type:uuid;not null"`
	ToUserID                   uuid.UUID                   `gorm:"column:to_user_id;type:uuid;not null"`
	Status                     enums.TransferRequestStatus `gorm:"type:transfer_request_status;not null;default:pending"`
	AcceptedAt                 *time.Time                  `gorm:"column:accepted_at"`
	RejectedAt                 *time.Time                  `gorm:"column:rejected_at"`
	CanceledAt                 *time.Time                  `gorm:"column:canceled_at"`
	CreatedAt                  time.Time                   `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt                  time.Time                   `gorm:"column:updated_at;autoUpdateTime"`
}

func (t *TransferRequest) BeforeCreate(*gorm.DB) error {
	ensureID(&t.ID)
	return nil
}

// TransferHandover is the physical handoff scheduled after a transfer is accepted.
type TransferHandover struct {
	ID                 uuid.UUID            `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	TransferRequestID  uuid.UUID            `gorm:"column:transfer_request_id;type:uuid;not null;index"`
	OwnerUserID        uuid.UUID            `gorm:"column:owner_user_id;type:uuid;not null"`
	HelperUserID       uuid.UUID            `gorm:"column:helper_user_id;type:uuid;not null"`
	Status             enums.HandoverStatus `gorm:"type:handover_status;not null;default:pending"`
	ScheduledAt        *time.Time           `gorm:"column:scheduled_at"`
	Location           *string              `gorm:"type:text"`
	ConditionConfirmed bool                 `gorm:"column:condition_confirmed;not null;default:false"`
	ConditionNotes     *string              `gorm:"column:condition_notes;type:text"`
	InitiatedAt        time.Time            `gorm:"column:initiated_at;not null"`
	ConfirmedAt        *time.Time           `gorm:"column:confirmed_at"`
	CompletedAt        *time.Time           `gorm:"column:completed_at"`
	CanceledAt         *time.Time           `gorm:"column:canceled_at"`
	DisputedAt         *time.Time           `gorm:"column:disputed_at"`
	CreatedAt          time.Time            `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time            `gorm:"column:updated_at;autoUpdateTime"`
}

func (h *TransferHandover) BeforeCreate(*gorm.DB) error {
	ensureID(&h.ID)
	return nil
}

// IsParty reports whether userID is the owner or the helper on the handover.
func (h *TransferHandover) IsParty(userID uuid.UUID) bool {
	return userID == h.OwnerUserID || userID == h.HelperUserID
}

// FosterAssignment tracks a pet living with a foster after a fostering handover.
type FosterAssignment struct {
	ID                 uuid.UUID                    `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	PetID              uuid.UUID                    `gorm:"column:pet_id;type:uuid;not null;index"`
	OwnerUserID        uuid.UUID                    `gorm:"column:owner_user_id;type:uuid;not null"`
	FosterUserID       uuid.UUID                    `gorm:"column:foster_user_id;type:uuid;not null"`
	TransferRequestID  uuid.UUID                    `gorm:"column:transfer_request_id;type:uuid;not null"`
	PlacementRequestID uuid.UUID                    `gorm:"column:placement_request_id;type:uuid;not null"`
	Status             enums.FosterAssignmentStatus `gorm:"type:foster_assignment_status;not null;default:active"`
	StartedAt          time.Time                    `gorm:"column:started_at;not null"`
	ExpectedEndAt      *time.Time                   `gorm:"column:expected_end_at"`
	CompletedAt        *time.Time                   `gorm:"column:completed_at"`
	CreatedAt          time.Time                    `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time                    `gorm:"column:updated_at;autoUpdateTime"`
}

func (f *FosterAssignment) BeforeCreate(*gorm.DB) error {
	ensureID(&f.ID)
	return nil
}

// FosterReturnHandover hands a fostered pet back to its owner.
type FosterReturnHandover struct {
	ID                 uuid.UUID            `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	FosterAssignmentID uuid.UUID            `gorm:"column:foster_assignment_id;type:uuid;not null;index"`
	OwnerUserID        uuid.UUID            `gorm:"column:owner_user_id;type:uuid;not null"`
	HelperUserID       uuid.UUID            `gorm:"column:helper_user_id;type:uuid;not null"`
	Status             enums.HandoverStatus `gorm:"type:handover_status;not null;default:pending"`
	ScheduledAt        *time.Time           `gorm:"column:scheduled_at"`
	Location           *string              `gorm:"type:text"`
	ConditionConfirmed bool                 `gorm:"column:condition_confirmed;not null;default:false"`
	ConditionNotes     *string              `gorm:"column:condition_notes;type:text"`
	InitiatedAt        time.Time            `gorm:"column:initiated_at;not null"`
	ConfirmedAt        *time.Time           `gorm:"column:confirmed_at"`
	CompletedAt        *time.Time           `gorm:"column:completed_at"`
	CanceledAt         *time.Time           `gorm:"column:canceled_at"`
	CreatedAt          time.Time            `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time            `gorm:"column:updated_at;autoUpdateTime"`
}

func (h *FosterReturnHandover) BeforeCreate(*gorm.DB) error {
	ensureID(&h.ID)
	return nil
}

// IsParty reports whether userID is the owner or the foster on the handover.
func (h *FosterReturnHandover) IsParty(userID uuid.UUID) bool {
	return userID == h.OwnerUserID || userID == h.HelperUserID
}
