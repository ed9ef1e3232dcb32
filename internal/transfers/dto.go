package transfers

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/pawfinderz-backend/pkg/db/models"
	"github.com/angelmondragon/pawfinderz-backend/pkg/enums"
)

// ScheduleInput optionally pins down when and where a handover happens.
type ScheduleInput struct {
	ScheduledAt *time.Time `json:"scheduled_at,omitempty"`
	Location    *string    `json:"location,omitempty" validate:"omitempty,max=500"`
}

// ConfirmInput is the receiving party acknowledging the pet's condition.
type ConfirmInput struct {
	ConditionConfirmed bool    `json:"condition_confirmed"`
	ConditionNotes     *string `json:"condition_notes,omitempty" validate:"omitempty,max=4000"`
}

// TransferDTO is the API view of a transfer request.
type TransferDTO struct {
	ID                 uuid.UUID                   `json:"id"`
	PetID              uuid.UUID                   `json:"pet_id"`
	PlacementRequestID uuid.UUID                   `json:"placement_request_id"`
	ResponseID         uuid.UUID                   `json:"placement_request_response_id"`
	FromUserID         uuid.UUID                   `json:"from_user_id"`
	ToUserID           uuid.UUID                   `json:"to_user_id"`
	Status             enums.TransferRequestStatus `json:"status"`
	AcceptedAt         *time.Time                  `json:"accepted_at,omitempty"`
	RejectedAt         *time.Time                  `json:"rejected_at,omitempty"`
	CanceledAt         *time.Time                  `json:"canceled_at,omitempty"`
}

// HandoverDTO covers both transfer and foster return handovers.
type HandoverDTO struct {
	ID                 uuid.UUID            `json:"id"`
	TransferRequestID  *uuid.UUID           `json:"transfer_request_id,omitempty"`
	FosterAssignmentID *uuid.UUID           `json:"foster_assignment_id,omitempty"`
	OwnerUserID        uuid.UUID            `json:"owner_user_id"`
	HelperUserID       uuid.UUID            `json:"helper_user_id"`
	Status             enums.HandoverStatus `json:"status"`
	ScheduledAt        *time.Time           `json:"scheduled_at,omitempty"`
	Location           *string              `json:"location,omitempty"`
	ConditionConfirmed bool                 `json:"condition_confirmed"`
	ConditionNotes     *string              `json:"condition_notes,omitempty"`
	InitiatedAt        time.Time            `json:"initiated_at"`
	ConfirmedAt        *time.Time           `json:"confirmed_at,omitempty"`
	CompletedAt        *time.Time           `json:"completed_at,omitempty"`
	CanceledAt         *time.Time           `json:"canceled_at,omitempty"`
	DisputedAt         *time.Time           `json:"disputed_at,omitempty"`
}

// AssignmentDTO is the API view of a foster assignment.
type AssignmentDTO struct {
	ID            uuid.UUID                    `json:"id"`
	PetID         uuid.UUID                    `json:"pet_id"`
	OwnerUserID   uuid.UUID                    `json:"owner_user_id"`
	FosterUserID  uuid.UUID                    `json:"foster_user_id"`
	Status        enums.FosterAssignmentStatus `json:"status"`
	StartedAt     time.Time                    `json:"started_at"`
	ExpectedEndAt *time.Time                   `json:"expected_end_at,omitempty"`
	CompletedAt   *time.Time                   `json:"completed_at,omitempty"`
}

// CompletionDTO reports what a completed handover changed.
type CompletionDTO struct {
	Handover     HandoverDTO    `json:"handover"`
	NewHolderID  uuid.UUID      `json:"new_holder_id"`
	Assignment   *AssignmentDTO `json:"foster_assignment,omitempty"`
	OwnershipGap string         `json:"ownership_backfill,omitempty"`
}

func toTransferDTO(t models.TransferRequest) TransferDTO {
	return TransferDTO{
		ID:                 t.ID,
		PetID:              t.PetID,
		PlacementRequestID: t.PlacementRequestID,
		ResponseID:         t.PlacementRequestResponseID,
		FromUserID:         t.FromUserID,
		ToUserID:           t.ToUserID,
		Status:             t.Status,
		AcceptedAt:         t.AcceptedAt,
		RejectedAt:         t.RejectedAt,
		CanceledAt:         t.CanceledAt,
	}
}

func toHandoverDTO(h models.TransferHandover) HandoverDTO {
	transferID := h.TransferRequestID
	return HandoverDTO{
		ID:                 h.ID,
		TransferRequestID:  &transferID,
		OwnerUserID:        h.OwnerUserID,
		HelperUserID:       h.HelperUserID,
		Status:             h.Status,
		ScheduledAt:        h.ScheduledAt,
		Location:           h.Location,
		ConditionConfirmed: h.ConditionConfirmed,
		ConditionNotes:     h.ConditionNotes,
		InitiatedAt:        h.InitiatedAt,
		ConfirmedAt:        h.ConfirmedAt,
		CompletedAt:        h.CompletedAt,
		CanceledAt:         h.CanceledAt,
		DisputedAt:         h.DisputedAt,
	}
}

func toReturnHandoverDTO(h models.FosterReturnHandover) HandoverDTO {
	assignmentID := h.FosterAssignmentID
	return HandoverDTO{
		ID:                 h.ID,
		FosterAssignmentID: &assignmentID,
		OwnerUserID:        h.OwnerUserID,
		HelperUserID:       h.HelperUserID,
		Status:             h.Status,
		ScheduledAt:        h.ScheduledAt,
		Location:           h.Location,
		ConditionConfirmed: h.ConditionConfirmed,
		ConditionNotes:     h.ConditionNotes,
		InitiatedAt:        h.InitiatedAt,
		ConfirmedAt:        h.ConfirmedAt,
		CompletedAt:        h.CompletedAt,
		CanceledAt:         h.CanceledAt,
	}
}

func toAssignmentDTO(a models.FosterAssignment) AssignmentDTO {
	return AssignmentDTO{
		ID:            a.ID,
		PetID:         a.PetID,
		OwnerUserID:   a.OwnerUserID,
		FosterUserID:  a.FosterUserID,
		Status:        a.Status,
		StartedAt:     a.StartedAt,
		ExpectedEndAt: a.ExpectedEndAt,
		CompletedAt:   a.CompletedAt,
	}
}
