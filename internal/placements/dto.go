package placements

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/pawfinderz-backend/pkg/db/models"
	"github.com/angelmondragon/pawfinderz-backend/pkg/enums"
)

// CreateRequestInput is an owner's call for help.
type CreateRequestInput struct {
	PetID       uuid.UUID  `json:"pet_id" validate:"required"`
	RequestType string     `json:"request_type" validate:"required,oneof=fostering permanent pet_sitting"`
	Notes       *string    `json:"notes,omitempty" validate:"omitempty,max=4000"`
	StartDate   *time.Time `json:"start_date,omitempty"`
	EndDate     *time.Time `json:"end_date,omitempty"`
}

// RespondInput carries a helper's optional message.
type RespondInput struct {
	Message *string `json:"message,omitempty" validate:"omitempty,max=4000"`
}

// RequestDTO is the API view of a placement request.
type RequestDTO struct {
	ID          uuid.UUID                    `json:"id"`
	PetID       uuid.UUID                    `json:"pet_id"`
	OwnerUserID uuid.UUID                    `json:"owner_user_id"`
	RequestType enums.PlacementRequestType   `json:"request_type"`
	Status      enums.PlacementRequestStatus `json:"status"`
	Notes       *string                      `json:"notes,omitempty"`
	StartDate   *time.Time                   `json:"start_date,omitempty"`
	EndDate     *time.Time                   `json:"end_date,omitempty"`
	FulfilledAt *time.Time                   `json:"fulfilled_at,omitempty"`
	CancelledAt *time.Time                   `json:"cancelled_at,omitempty"`
	CreatedAt   time.Time                    `json:"created_at"`
}

// ResponseDTO is the API view of a helper response. TransferRequestID is set
// when accepting the response spawned a transfer.
type ResponseDTO struct {
	ID                 uuid.UUID                     `json:"id"`
	PlacementRequestID uuid.UUID                     `json:"placement_request_id"`
	HelperProfileID    uuid.UUID                     `json:"helper_profile_id"`
	HelperUserID       uuid.UUID                     `json:"helper_user_id"`
	Message            *string                       `json:"message,omitempty"`
	Status             enums.PlacementResponseStatus `json:"status"`
	RespondedAt        time.Time                     `json:"responded_at"`
	AcceptedAt         *time.Time                    `json:"accepted_at,omitempty"`
	RejectedAt         *time.Time                    `json:"rejected_at,omitempty"`
	CancelledAt        *time.Time                    `json:"cancelled_at,omitempty"`
	TransferRequestID  *uuid.UUID                    `json:"transfer_request_id,omitempty"`
}

func ToRequestDTO(req models.PlacementRequest) RequestDTO {
	return RequestDTO{
		ID:          req.ID,
		PetID:       req.PetID,
		OwnerUserID: req.UserID,
		RequestType: req.RequestType,
		Status:      req.Status,
		Notes:       req.Notes,
		StartDate:   req.StartDate,
		EndDate:     req.EndDate,
		FulfilledAt: req.FulfilledAt,
		CancelledAt: req.CancelledAt,
		CreatedAt:   req.CreatedAt,
	}
}

func ToResponseDTO(resp models.PlacementRequestResponse) ResponseDTO {
	return ResponseDTO{
		ID:                 resp.ID,
		PlacementRequestID: resp.PlacementRequestID,
		HelperProfileID:    resp.HelperProfileID,
		HelperUserID:       resp.UserID,
		Message:            resp.Message,
		Status:             resp.Status,
		RespondedAt:        resp.RespondedAt,
		AcceptedAt:         resp.AcceptedAt,
		RejectedAt:         resp.RejectedAt,
		CancelledAt:        resp.CancelledAt,
	}
}
