package transfers

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/pawfinderz-backend/internal/ownership"
	"github.com/angelmondragon/pawfinderz-backend/pkg/db"
	"github.com/angelmondragon/pawfinderz-backend/pkg/db/models"
	"github.com/angelmondragon/pawfinderz-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/pawfinderz-backend/pkg/errors"
	"github.com/angelmondragon/pawfinderz-backend/pkg/logger"
	"github.com/angelmondragon/pawfinderz-backend/pkg/outbox"
	"github.com/angelmondragon/pawfinderz-backend/pkg/outbox/payloads"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// placementWorkflow is the slice of the placement service that transfers drive.
type placementWorkflow interface {
	LoadRequest(ctx context.Context, tx *gorm.DB, requestID uuid.UUID, forUpdate bool) (*models.PlacementRequest, error)
	MarkFulfilled(ctx context.Context, tx *gorm.DB, req *models.PlacementRequest) error
	MarkActive(ctx context.Context, tx *gorm.DB, req *models.PlacementRequest) error
	RollbackAcceptedResponse(ctx context.Context, tx *gorm.DB, responseID, actorID uuid.UUID, to enums.PlacementResponseStatus) (*models.PlacementRequestResponse, error)
}

type holderTransferer interface {
	Transfer(ctx context.Context, tx *gorm.DB, petID, fromUserID, toUserID uuid.UUID, at time.Time) (*ownership.TransferResult, error)
}

type relationshipStore interface {
	Grant(ctx context.Context, tx *gorm.DB, petID, userID uuid.UUID, relType enums.RelationshipType, createdBy *uuid.UUID) (*models.PetRelationship, error)
	EndOpen(ctx context.Context, tx *gorm.DB, petID, userID uuid.UUID, relType enums.RelationshipType) error
}

type transitionRecorder interface {
	IncTransition(entity, to string)
}

// ServiceParams groups the transfer workflow dependencies.
type ServiceParams struct {
	Repo          Repository
	TxRunner      txRunner
	Outbox        outbox.Emitter
	Placements    placementWorkflow
	Ownership     holderTransferer
	Relationships relationshipStore
	Metrics       transitionRecorder
	Logger        *logger.Logger
	Now           func() time.Time
}

// Service moves pets between people once a placement response is accepted:
// transfer decisions, handovers and foster returns.
type Service struct {
	repo          Repository
	tx            txRunner
	outbox        outbox.Emitter
	placements    placementWorkflow
	ownership     holderTransferer
	relationships relationshipStore
	metrics       transitionRecorder
	logg          *logger.Logger
	now           func() time.Time
}

// NewService validates dependencies and builds the transfer service.
func NewService(params ServiceParams) (*Service, error) {
	switch {
	case params.Repo == nil:
		return nil, errors.New("transfers repository required")
	case params.TxRunner == nil:
		return nil, errors.New("transaction runner required")
	case params.Outbox == nil:
		return nil, errors.New("outbox emitter required")
	case params.Placements == nil:
		return nil, errors.New("placement workflow required")
	case params.Ownership == nil:
		return nil, errors.New("ownership service required")
	case params.Relationships == nil:
		return nil, errors.New("relationship store required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &Service{
		repo:          params.Repo,
		tx:            params.TxRunner,
		outbox:        params.Outbox,
		placements:    params.Placements,
		ownership:     params.Ownership,
		relationships: params.Relationships,
		metrics:       params.Metrics,
		logg:          params.Logger,
		now:           func() time.Time { return now().UTC() },
	}, nil
}

// GetTransfer returns a transfer request to one of its parties.
func (s *Service) GetTransfer(ctx context.Context, userID, transferID uuid.UUID) (*TransferDTO, error) {
	transfer, err := s.loadTransfer(ctx, nil, transferID, false)
	if err != nil {
		return nil, err
	}
	if userID != transfer.FromUserID && userID != transfer.ToUserID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "not a party to this transfer")
	}
	dto := toTransferDTO(*transfer)
	return &dto, nil
}

// AcceptTransfer is the helper agreeing to take the pet. A pending handover is
// opened between owner and helper.
func (s *Service) AcceptTransfer(ctx context.Context, userID, transferID uuid.UUID, input ScheduleInput) (*HandoverDTO, error) {
	var handover *models.TransferHandover
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		transfer, err := s.loadTransfer(ctx, tx, transferID, false)
		if err != nil {
			return err
		}
		if transfer.ToUserID != userID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "only the receiving user can accept this transfer")
		}
		// Lock order is placement request, then transfer, then handover.
		req, err := s.placements.LoadRequest(ctx, tx, transfer.PlacementRequestID, true)
		if err != nil {
			return err
		}
		if transfer, err = s.loadTransfer(ctx, tx, transferID, true); err != nil {
			return err
		}
		if transfer.Status != enums.TransferStatusPending {
			return transferStateConflict(transfer.Status, enums.TransferStatusAccepted)
		}
		if req.Status != enums.PlacementStatusPendingTransfer {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "placement request is not awaiting a transfer").
				WithDetails(map[string]any{"from": req.Status, "to": enums.PlacementStatusPendingTransfer})
		}

		now := s.now()
		repo := s.repo.WithTx(tx)
		rows, err := repo.UpdateTransfer(ctx, transfer.ID, enums.TransferStatusPending, map[string]any{
			"status":      enums.TransferStatusAccepted,
			"accepted_at": now,
			"updated_at":  now,
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "accept transfer")
		}
		if rows == 0 {
			return transferStateConflict(transfer.Status, enums.TransferStatusAccepted)
		}
		transfer.Status = enums.TransferStatusAccepted

		handover = &models.TransferHandover{
			TransferRequestID: transfer.ID,
			OwnerUserID:       transfer.FromUserID,
			HelperUserID:      transfer.ToUserID,
			Status:            enums.HandoverStatusPending,
			ScheduledAt:       input.ScheduledAt,
			Location:          input.Location,
			InitiatedAt:       now,
		}
		if err := repo.CreateHandover(ctx, handover); err != nil {
			if db.IsUniqueViolation(err, "ux_transfer_handovers_one_open") {
				return pkgerrors.New(pkgerrors.CodeConflict, "transfer already has an open handover")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create handover")
		}
		s.recordTransition("transfer_request", string(enums.TransferStatusAccepted))
		s.recordTransition("transfer_handover", string(enums.HandoverStatusPending))

		return s.emitTransferEvent(ctx, tx, enums.EventTransferAccepted, transfer, userID, &handover.ID)
	})
	if err != nil {
		return nil, err
	}
	dto := toHandoverDTO(*handover)
	return &dto, nil
}

// RejectTransfer is the helper turning the transfer down. Their response is
// rejected and the placement request reopens.
func (s *Service) RejectTransfer(ctx context.Context, userID, transferID uuid.UUID) (*TransferDTO, error) {
	return s.closeTransfer(ctx, userID, transferID, enums.TransferStatusRejected)
}

// CancelTransfer is the owner withdrawing before the helper answered. The
// response is cancelled, so the helper may respond again.
func (s *Service) CancelTransfer(ctx context.Context, userID, transferID uuid.UUID) (*TransferDTO, error) {
	return s.closeTransfer(ctx, userID, transferID, enums.TransferStatusCanceled)
}

func (s *Service) closeTransfer(ctx context.Context, userID, transferID uuid.UUID, to enums.TransferRequestStatus) (*TransferDTO, error) {
	var result *models.TransferRequest
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		transfer, err := s.loadTransfer(ctx, tx, transferID, false)
		if err != nil {
			return err
		}
		responseTo := enums.ResponseStatusCancelled
		eventType := enums.EventTransferCanceled
		if to == enums.TransferStatusRejected {
			if transfer.ToUserID != userID {
				return pkgerrors.New(pkgerrors.CodeForbidden, "only the receiving user can reject this transfer")
			}
			responseTo = enums.ResponseStatusRejected
			eventType = enums.EventTransferRejected
		} else if transfer.FromUserID != userID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "only the sending user can cancel this transfer")
		}
		if transfer.Status != enums.TransferStatusPending {
			return transferStateConflict(transfer.Status, to)
		}

		if _, err := s.placements.RollbackAcceptedResponse(ctx, tx, transfer.PlacementRequestResponseID, userID, responseTo); err != nil {
			return err
		}
		result, err = s.loadTransfer(ctx, tx, transferID, false)
		if err != nil {
			return err
		}
		return s.emitTransferEvent(ctx, tx, eventType, result, userID, nil)
	})
	if err != nil {
		return nil, err
	}
	dto := toTransferDTO(*result)
	return &dto, nil
}

func (s *Service) loadTransfer(ctx context.Context, tx *gorm.DB, id uuid.UUID, forUpdate bool) (*models.TransferRequest, error) {
	transfer, err := s.repo.WithTx(tx).FindTransfer(ctx, id, forUpdate)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "transfer request not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load transfer request")
	}
	return transfer, nil
}

func (s *Service) emitTransferEvent(ctx context.Context, tx *gorm.DB, eventType enums.OutboxEventType, transfer *models.TransferRequest, actor uuid.UUID, handoverID *uuid.UUID) error {
	return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     eventType,
		AggregateType: enums.AggregateTransferRequest,
		AggregateID:   transfer.ID,
		Actor:         &outbox.ActorRef{UserID: actor},
		Data: payloads.TransferEvent{
			TransferRequestID:  transfer.ID,
			PlacementRequestID: transfer.PlacementRequestID,
			PetID:              transfer.PetID,
			FromUserID:         transfer.FromUserID,
			ToUserID:           transfer.ToUserID,
			Status:             transfer.Status,
			HandoverID:         handoverID,
		},
	})
}

func (s *Service) recordTransition(entity, to string) {
	if s.metrics != nil {
		s.metrics.IncTransition(entity, to)
	}
}

func transferStateConflict(from, to enums.TransferRequestStatus) error {
	return pkgerrors.New(pkgerrors.CodeStateConflict, "transfer request transition not allowed").
		WithDetails(map[string]any{"from": from, "to": to})
}

func handoverStateConflict(from, to enums.HandoverStatus) error {
	return pkgerrors.New(pkgerrors.CodeStateConflict, "handover transition not allowed").
		WithDetails(map[string]any{"from": from, "to": to})
}
