package transfers

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/pawfinderz-backend/pkg/db"
	"github.com/angelmondragon/pawfinderz-backend/pkg/db/models"
	"github.com/angelmondragon/pawfinderz-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/pawfinderz-backend/pkg/errors"
	"github.com/angelmondragon/pawfinderz-backend/pkg/outbox"
	"github.com/angelmondragon/pawfinderz-backend/pkg/outbox/payloads"
)

// GetHandover returns a transfer handover to its owner or helper.
func (s *Service) GetHandover(ctx context.Context, userID, handoverID uuid.UUID) (*HandoverDTO, error) {
	handover, err := s.loadHandover(ctx, nil, handoverID, false)
	if err != nil {
		return nil, err
	}
	if !handover.IsParty(userID) {
		return nil, notHandoverParty()
	}
	dto := toHandoverDTO(*handover)
	return &dto, nil
}

// ConfirmHandover records the helper checking the pet's condition.
func (s *Service) ConfirmHandover(ctx context.Context, userID, handoverID uuid.UUID, input ConfirmInput) (*HandoverDTO, error) {
	if !input.ConditionConfirmed {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "condition must be confirmed").
			WithDetails(map[string]any{"field": "condition_confirmed"})
	}
	var handover *models.TransferHandover
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		handover, err = s.loadHandover(ctx, tx, handoverID, true)
		if err != nil {
			return err
		}
		if handover.HelperUserID != userID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "only the receiving helper can confirm the handover")
		}
		now := s.now()
		if err := s.moveHandover(ctx, tx, handover, enums.HandoverStatusConfirmed, map[string]any{
			"condition_confirmed": true,
			"condition_notes":     input.ConditionNotes,
			"confirmed_at":        now,
		}); err != nil {
			return err
		}
		handover.ConditionConfirmed = true
		handover.ConditionNotes = input.ConditionNotes
		handover.ConfirmedAt = &now
		transfer, err := s.loadTransfer(ctx, tx, handover.TransferRequestID, false)
		if err != nil {
			return err
		}
		return s.emitHandoverEvent(ctx, tx, enums.EventHandoverConfirmed, enums.AggregateTransferHandover, transferHandoverEvent(handover, transfer.PetID, userID))
	})
	if err != nil {
		return nil, err
	}
	dto := toHandoverDTO(*handover)
	return &dto, nil
}

// CompleteHandover hands the pet over. Holding history, the pet's holder, the
// handover and the placement request all change in the same transaction.
func (s *Service) CompleteHandover(ctx context.Context, userID, handoverID uuid.UUID) (*CompletionDTO, error) {
	var out *CompletionDTO
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		handover, err := s.loadHandover(ctx, tx, handoverID, false)
		if err != nil {
			return err
		}
		if !handover.IsParty(userID) {
			return notHandoverParty()
		}
		transfer, err := s.loadTransfer(ctx, tx, handover.TransferRequestID, false)
		if err != nil {
			return err
		}
		// Same lock order as AcceptTransfer and the placement cancel paths.
		req, err := s.placements.LoadRequest(ctx, tx, transfer.PlacementRequestID, true)
		if err != nil {
			return err
		}
		if transfer, err = s.loadTransfer(ctx, tx, transfer.ID, true); err != nil {
			return err
		}
		if handover, err = s.loadHandover(ctx, tx, handoverID, true); err != nil {
			return err
		}
		if handover.Status != enums.HandoverStatusConfirmed {
			return handoverStateConflict(handover.Status, enums.HandoverStatusCompleted)
		}
		if transfer.Status != enums.TransferStatusAccepted {
			return transferStateConflict(transfer.Status, enums.TransferStatusAccepted)
		}

		now := s.now()
		result, err := s.ownership.Transfer(ctx, tx, transfer.PetID, transfer.FromUserID, transfer.ToUserID, now)
		if err != nil {
			return err
		}
		if err := s.moveHandover(ctx, tx, handover, enums.HandoverStatusCompleted, map[string]any{"completed_at": now}); err != nil {
			return err
		}
		handover.CompletedAt = &now

		out = &CompletionDTO{NewHolderID: transfer.ToUserID, OwnershipGap: result.Backfill}
		switch req.RequestType {
		case enums.PlacementTypePermanent:
			if err := s.placements.MarkFulfilled(ctx, tx, req); err != nil {
				return err
			}
			if err := s.relationships.EndOpen(ctx, tx, transfer.PetID, transfer.FromUserID, enums.RelationshipOwner); err != nil {
				return err
			}
			if _, err := s.relationships.Grant(ctx, tx, transfer.PetID, transfer.ToUserID, enums.RelationshipOwner, &transfer.FromUserID); err != nil {
				return err
			}
		case enums.PlacementTypeFostering:
			assignment, err := s.startAssignment(ctx, tx, transfer, req, now)
			if err != nil {
				return err
			}
			if err := s.placements.MarkActive(ctx, tx, req); err != nil {
				return err
			}
			if _, err := s.relationships.Grant(ctx, tx, transfer.PetID, transfer.ToUserID, enums.RelationshipFoster, &transfer.FromUserID); err != nil {
				return err
			}
			dto := toAssignmentDTO(*assignment)
			out.Assignment = &dto
		default:
			return pkgerrors.New(pkgerrors.CodeStateConflict, "placement request type does not transfer the pet").
				WithDetails(map[string]any{"request_type": req.RequestType})
		}
		out.Handover = toHandoverDTO(*handover)

		if s.logg != nil {
			logCtx := s.logg.WithFields(ctx, map[string]any{
				"pet_id":      transfer.PetID,
				"handover_id": handover.ID,
				"new_holder":  transfer.ToUserID,
			})
			s.logg.Info(logCtx, "handover completed")
		}
		event := transferHandoverEvent(handover, transfer.PetID, userID)
		newHolder := transfer.ToUserID
		event.NewHolderID = &newHolder
		return s.emitHandoverEvent(ctx, tx, enums.EventHandoverCompleted, enums.AggregateTransferHandover, event)
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// CancelHandover calls the handover off. The accepted response is cancelled,
// which closes the transfer and reopens the placement request.
func (s *Service) CancelHandover(ctx context.Context, userID, handoverID uuid.UUID) (*HandoverDTO, error) {
	var handover *models.TransferHandover
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		handover, err = s.loadHandover(ctx, tx, handoverID, false)
		if err != nil {
			return err
		}
		if !handover.IsParty(userID) {
			return notHandoverParty()
		}
		if !handover.Status.CanTransitionTo(enums.HandoverStatusCanceled) {
			return handoverStateConflict(handover.Status, enums.HandoverStatusCanceled)
		}
		transfer, err := s.loadTransfer(ctx, tx, handover.TransferRequestID, false)
		if err != nil {
			return err
		}
		if _, err := s.placements.RollbackAcceptedResponse(ctx, tx, transfer.PlacementRequestResponseID, userID, enums.ResponseStatusCancelled); err != nil {
			return err
		}
		s.recordTransition("transfer_handover", string(enums.HandoverStatusCanceled))

		if handover, err = s.loadHandover(ctx, tx, handoverID, false); err != nil {
			return err
		}
		if transfer, err = s.loadTransfer(ctx, tx, transfer.ID, false); err != nil {
			return err
		}
		return s.emitTransferEvent(ctx, tx, enums.EventTransferCanceled, transfer, userID, &handover.ID)
	})
	if err != nil {
		return nil, err
	}
	dto := toHandoverDTO(*handover)
	return &dto, nil
}

// DisputeHandover flags a problem. A disputed handover can only be cancelled.
func (s *Service) DisputeHandover(ctx context.Context, userID, handoverID uuid.UUID) (*HandoverDTO, error) {
	var handover *models.TransferHandover
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		handover, err = s.loadHandover(ctx, tx, handoverID, true)
		if err != nil {
			return err
		}
		if !handover.IsParty(userID) {
			return notHandoverParty()
		}
		now := s.now()
		if err := s.moveHandover(ctx, tx, handover, enums.HandoverStatusDisputed, map[string]any{"disputed_at": now}); err != nil {
			return err
		}
		handover.DisputedAt = &now
		transfer, err := s.loadTransfer(ctx, tx, handover.TransferRequestID, false)
		if err != nil {
			return err
		}
		return s.emitHandoverEvent(ctx, tx, enums.EventHandoverDisputed, enums.AggregateTransferHandover, transferHandoverEvent(handover, transfer.PetID, userID))
	})
	if err != nil {
		return nil, err
	}
	dto := toHandoverDTO(*handover)
	return &dto, nil
}

func (s *Service) startAssignment(ctx context.Context, tx *gorm.DB, transfer *models.TransferRequest, req *models.PlacementRequest, now time.Time) (*models.FosterAssignment, error) {
	assignment := &models.FosterAssignment{
		PetID:              transfer.PetID,
		OwnerUserID:        transfer.FromUserID,
		FosterUserID:       transfer.ToUserID,
		TransferRequestID:  transfer.ID,
		PlacementRequestID: req.ID,
		Status:             enums.FosterAssignmentActive,
		StartedAt:          now,
		ExpectedEndAt:      req.EndDate,
	}
	if err := s.repo.WithTx(tx).CreateAssignment(ctx, assignment); err != nil {
		if db.IsUniqueViolation(err, "ux_foster_assignments_one_active_per_pet") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "pet already has an active foster assignment")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create foster assignment")
	}
	s.recordTransition("foster_assignment", string(enums.FosterAssignmentActive))
	return assignment, nil
}

func (s *Service) moveHandover(ctx context.Context, tx *gorm.DB, handover *models.TransferHandover, to enums.HandoverStatus, updates map[string]any) error {
	if !handover.Status.CanTransitionTo(to) {
		return handoverStateConflict(handover.Status, to)
	}
	updates["status"] = to
	updates["updated_at"] = s.now()
	rows, err := s.repo.WithTx(tx).UpdateHandover(ctx, handover.ID, handover.Status, updates)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update handover")
	}
	if rows == 0 {
		return handoverStateConflict(handover.Status, to)
	}
	handover.Status = to
	s.recordTransition("transfer_handover", string(to))
	return nil
}

func (s *Service) loadHandover(ctx context.Context, tx *gorm.DB, id uuid.UUID, forUpdate bool) (*models.TransferHandover, error) {
	handover, err := s.repo.WithTx(tx).FindHandover(ctx, id, forUpdate)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "handover not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load handover")
	}
	return handover, nil
}

func (s *Service) emitHandoverEvent(ctx context.Context, tx *gorm.DB, eventType enums.OutboxEventType, aggregate enums.OutboxAggregateType, event payloads.HandoverEvent) error {
	event.OccurredAt = s.now()
	return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     eventType,
		AggregateType: aggregate,
		AggregateID:   event.HandoverID,
		Actor:         &outbox.ActorRef{UserID: event.ActorUserID},
		Data:          event,
	})
}

func transferHandoverEvent(h *models.TransferHandover, petID, actor uuid.UUID) payloads.HandoverEvent {
	return payloads.HandoverEvent{
		HandoverID:   h.ID,
		PetID:        petID,
		OwnerUserID:  h.OwnerUserID,
		HelperUserID: h.HelperUserID,
		ActorUserID:  actor,
		Status:       h.Status,
	}
}

func notHandoverParty() error {
	return pkgerrors.New(pkgerrors.CodeForbidden, "not a party to this handover")
}
