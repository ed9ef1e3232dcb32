package controllers

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/angelmondragon/pawfinderz-backend/internal/transfers"
	"github.com/angelmondragon/pawfinderz-backend/pkg/logger"
)

type TransfersService interface {
	GetTransfer(ctx context.Context, userID, transferID uuid.UUID) (*transfers.TransferDTO, error)
	AcceptTransfer(ctx context.Context, userID, transferID uuid.UUID, input transfers.ScheduleInput) (*transfers.HandoverDTO, error)
	RejectTransfer(ctx context.Context, userID, transferID uuid.UUID) (*transfers.TransferDTO, error)
	CancelTransfer(ctx context.Context, userID, transferID uuid.UUID) (*transfers.TransferDTO, error)

	GetHandover(ctx context.Context, userID, handoverID uuid.UUID) (*transfers.HandoverDTO, error)
	ConfirmHandover(ctx context.Context, userID, handoverID uuid.UUID, input transfers.ConfirmInput) (*transfers.HandoverDTO, error)
	CompleteHandover(ctx context.Context, userID, handoverID uuid.UUID) (*transfers.CompletionDTO, error)
	CancelHandover(ctx context.Context, userID, handoverID uuid.UUID) (*transfers.HandoverDTO, error)
	DisputeHandover(ctx context.Context, userID, handoverID uuid.UUID) (*transfers.HandoverDTO, error)

	GetAssignment(ctx context.Context, userID, assignmentID uuid.UUID) (*transfers.AssignmentDTO, error)
	InitiateReturn(ctx context.Context, userID, assignmentID uuid.UUID, input transfers.ScheduleInput) (*transfers.HandoverDTO, error)
	GetReturnHandover(ctx context.Context, userID, handoverID uuid.UUID) (*transfers.HandoverDTO, error)
	ConfirmReturn(ctx context.Context, userID, handoverID uuid.UUID, input transfers.ConfirmInput) (*transfers.HandoverDTO, error)
	CompleteReturn(ctx context.Context, userID, handoverID uuid.UUID) (*transfers.CompletionDTO, error)
	CancelReturn(ctx context.Context, userID, handoverID uuid.UUID) (*transfers.HandoverDTO, error)
}

// TransferControllers binds the transfer, handover and foster return
// endpoints to one service.
type TransferControllers struct {
	svc  TransfersService
	logg *logger.Logger
}

func NewTransferControllers(svc TransfersService, logg *logger.Logger) TransferControllers {
	return TransferControllers{svc: svc, logg: logg}
}

func (c TransferControllers) guard(build func() http.HandlerFunc) http.HandlerFunc {
	if c.svc == nil {
		return serviceUnavailable("transfers", c.logg)
	}
	return build()
}

func (c TransferControllers) GetTransfer() http.HandlerFunc {
	return c.guard(func() http.HandlerFunc { return userResourceAction("transferId", c.svc.GetTransfer, c.logg) })
}

// AcceptTransfer is the receiving user's confirmation. It opens the handover.
func (c TransferControllers) AcceptTransfer() http.HandlerFunc {
	return c.guard(func() http.HandlerFunc {
		return userResourceBodyAction("transferId", c.svc.AcceptTransfer, http.StatusCreated, c.logg)
	})
}

func (c TransferControllers) RejectTransfer() http.HandlerFunc {
	return c.guard(func() http.HandlerFunc { return userResourceAction("transferId", c.svc.RejectTransfer, c.logg) })
}

func (c TransferControllers) CancelTransfer() http.HandlerFunc {
	return c.guard(func() http.HandlerFunc { return userResourceAction("transferId", c.svc.CancelTransfer, c.logg) })
}

func (c TransferControllers) GetHandover() http.HandlerFunc {
	return c.guard(func() http.HandlerFunc { return userResourceAction("handoverId", c.svc.GetHandover, c.logg) })
}

func (c TransferControllers) ConfirmHandover() http.HandlerFunc {
	return c.guard(func() http.HandlerFunc {
		return userResourceBodyAction("handoverId", c.svc.ConfirmHandover, http.StatusOK, c.logg)
	})
}

// CompleteHandover moves the pet to the helper.
func (c TransferControllers) CompleteHandover() http.HandlerFunc {
	return c.guard(func() http.HandlerFunc { return userResourceAction("handoverId", c.svc.CompleteHandover, c.logg) })
}

func (c TransferControllers) CancelHandover() http.HandlerFunc {
	return c.guard(func() http.HandlerFunc { return userResourceAction("handoverId", c.svc.CancelHandover, c.logg) })
}

func (c TransferControllers) DisputeHandover() http.HandlerFunc {
	return c.guard(func() http.HandlerFunc { return userResourceAction("handoverId", c.svc.DisputeHandover, c.logg) })
}

func (c TransferControllers) GetAssignment() http.HandlerFunc {
	return c.guard(func() http.HandlerFunc { return userResourceAction("assignmentId", c.svc.GetAssignment, c.logg) })
}

func (c TransferControllers) InitiateReturn() http.HandlerFunc {
	return c.guard(func() http.HandlerFunc {
		return userResourceBodyAction("assignmentId", c.svc.InitiateReturn, http.StatusCreated, c.logg)
	})
}

func (c TransferControllers) GetReturnHandover() http.HandlerFunc {
	return c.guard(func() http.HandlerFunc { return userResourceAction("handoverId", c.svc.GetReturnHandover, c.logg) })
}

func (c TransferControllers) ConfirmReturn() http.HandlerFunc {
	return c.guard(func() http.HandlerFunc {
		return userResourceBodyAction("handoverId", c.svc.ConfirmReturn, http.StatusOK, c.logg)
	})
}

// CompleteReturn hands the pet back to its owner.
func (c TransferControllers) CompleteReturn() http.HandlerFunc {
	return c.guard(func() http.HandlerFunc { return userResourceAction("handoverId", c.svc.CompleteReturn, c.logg) })
}

func (c TransferControllers) CancelReturn() http.HandlerFunc {
	return c.guard(func() http.HandlerFunc { return userResourceAction("handoverId", c.svc.CancelReturn, c.logg) })
}
