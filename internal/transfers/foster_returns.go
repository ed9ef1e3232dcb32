package transfers

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/pawfinderz-backend/pkg/db"
	"github.com/angelmondragon/pawfinderz-backend/pkg/db/models"
	"github.com/angelmondragon/pawfinderz-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/pawfinderz-backend/pkg/errors"
	"github.com/angelmondragon/pawfinderz-backend/pkg/outbox/payloads"
)

// GetAssignment returns a foster assignment to its owner or foster.
func (s *Service) GetAssignment(ctx context.Context, userID, assignmentID uuid.UUID) (*AssignmentDTO, error) {
	assignment, err := s.loadAssignment(ctx, nil, assignmentID, false)
	if err != nil {
		return nil, err
	}
	if userID != assignment.OwnerUserID && userID != assignment.FosterUserID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "not a party to this foster assignment")
	}
	dto := toAssignmentDTO(*assignment)
	return &dto, nil
}

// InitiateReturn opens the handover that brings a fostered pet home. Either
// the owner or the foster may start it.
func (s *Service) InitiateReturn(ctx context.Context, userID, assignmentID uuid.UUID, input ScheduleInput) (*HandoverDTO, error) {
	var handover *models.FosterReturnHandover
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		assignment, err := s.loadAssignment(ctx, tx, assignmentID, true)
		if err != nil {
			return err
		}
		if userID != assignment.OwnerUserID && userID != assignment.FosterUserID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "not a party to this foster assignment")
		}
		if assignment.Status != enums.FosterAssignmentActive {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "foster assignment is not active").
				WithDetails(map[string]any{"status": assignment.Status})
		}

		handover = &models.FosterReturnHandover{
			FosterAssignmentID: assignment.ID,
			OwnerUserID:        assignment.OwnerUserID,
			HelperUserID:       assignment.FosterUserID,
			Status:             enums.HandoverStatusPending,
			ScheduledAt:        input.ScheduledAt,
			Location:           input.Location,
			InitiatedAt:        s.now(),
		}
		if err := s.repo.WithTx(tx).CreateReturnHandover(ctx, handover); err != nil {
			if db.IsUniqueViolation(err, "ux_foster_return_handovers_one_open") {
				return pkgerrors.New(pkgerrors.CodeConflict, "a return handover is already in progress")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create return handover")
		}
		s.recordTransition("foster_return_handover", string(enums.HandoverStatusPending))
		return s.emitHandoverEvent(ctx, tx, enums.EventFosterReturnInitiated, enums.AggregateFosterReturnHandover,
			returnHandoverEvent(handover, assignment.PetID, userID))
	})
	if err != nil {
		return nil, err
	}
	dto := toReturnHandoverDTO(*handover)
	return &dto, nil
}

// GetReturnHandover returns a foster return handover to one of its parties.
func (s *Service) GetReturnHandover(ctx context.Context, userID, handoverID uuid.UUID) (*HandoverDTO, error) {
	handover, err := s.loadReturnHandover(ctx, nil, handoverID, false)
	if err != nil {
		return nil, err
	}
	if !handover.IsParty(userID) {
		return nil, notHandoverParty()
	}
	dto := toReturnHandoverDTO(*handover)
	return &dto, nil
}

// ConfirmReturn is the owner checking the pet on its way back.
func (s *Service) ConfirmReturn(ctx context.Context, userID, handoverID uuid.UUID, input ConfirmInput) (*HandoverDTO, error) {
	if !input.ConditionConfirmed {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "condition must be confirmed").
			WithDetails(map[string]any{"field": "condition_confirmed"})
	}
	var handover *models.FosterReturnHandover
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		handover, err = s.loadReturnHandover(ctx, tx, handoverID, true)
		if err != nil {
			return err
		}
		if handover.OwnerUserID != userID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "only the owner can confirm a return")
		}
		now := s.now()
		if err := s.moveReturnHandover(ctx, tx, handover, enums.HandoverStatusConfirmed, map[string]any{
			"condition_confirmed": true,
			"condition_notes":     input.ConditionNotes,
			"confirmed_at":        now,
		}); err != nil {
			return err
		}
		handover.ConditionConfirmed = true
		handover.ConditionNotes = input.ConditionNotes
		handover.ConfirmedAt = &now
		return nil
	})
	if err != nil {
		return nil, err
	}
	dto := toReturnHandoverDTO(*handover)
	return &dto, nil
}

// CompleteReturn gives the pet back to its owner and closes out the fostering
// placement.
func (s *Service) CompleteReturn(ctx context.Context, userID, handoverID uuid.UUID) (*CompletionDTO, error) {
	var out *CompletionDTO
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		handover, err := s.loadReturnHandover(ctx, tx, handoverID, false)
		if err != nil {
			return err
		}
		if !handover.IsParty(userID) {
			return notHandoverParty()
		}
		assignment, err := s.loadAssignment(ctx, tx, handover.FosterAssignmentID, false)
		if err != nil {
			return err
		}
		req, err := s.placements.LoadRequest(ctx, tx, assignment.PlacementRequestID, true)
		if err != nil {
			return err
		}
		if assignment, err = s.loadAssignment(ctx, tx, assignment.ID, true); err != nil {
			return err
		}
		if handover, err = s.loadReturnHandover(ctx, tx, handoverID, true); err != nil {
			return err
		}
		if handover.Status != enums.HandoverStatusConfirmed {
			return handoverStateConflict(handover.Status, enums.HandoverStatusCompleted)
		}
		if assignment.Status != enums.FosterAssignmentActive {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "foster assignment is not active").
				WithDetails(map[string]any{"status": assignment.Status})
		}

		now := s.now()
		result, err := s.ownership.Transfer(ctx, tx, assignment.PetID, assignment.FosterUserID, assignment.OwnerUserID, now)
		if err != nil {
			return err
		}
		if err := s.moveReturnHandover(ctx, tx, handover, enums.HandoverStatusCompleted, map[string]any{"completed_at": now}); err != nil {
			return err
		}
		handover.CompletedAt = &now

		rows, err := s.repo.WithTx(tx).UpdateAssignment(ctx, assignment.ID, enums.FosterAssignmentActive, map[string]any{
			"status":       enums.FosterAssignmentCompleted,
			"completed_at": now,
			"updated_at":   now,
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "complete foster assignment")
		}
		if rows == 0 {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "foster assignment is not active")
		}
		assignment.Status = enums.FosterAssignmentCompleted
		assignment.CompletedAt = &now
		s.recordTransition("foster_assignment", string(enums.FosterAssignmentCompleted))

		if err := s.placements.MarkFulfilled(ctx, tx, req); err != nil {
			return err
		}
		if err := s.relationships.EndOpen(ctx, tx, assignment.PetID, assignment.FosterUserID, enums.RelationshipFoster); err != nil {
			return err
		}

		assignmentDTO := toAssignmentDTO(*assignment)
		out = &CompletionDTO{
			Handover:     toReturnHandoverDTO(*handover),
			NewHolderID:  assignment.OwnerUserID,
			Assignment:   &assignmentDTO,
			OwnershipGap: result.Backfill,
		}
		event := returnHandoverEvent(handover, assignment.PetID, userID)
		event.NewHolderID = &assignment.OwnerUserID
		return s.emitHandoverEvent(ctx, tx, enums.EventFosterReturnCompleted, enums.AggregateFosterReturnHandover, event)
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// CancelReturn abandons a return in progress. The assignment stays active.
func (s *Service) CancelReturn(ctx context.Context, userID, handoverID uuid.UUID) (*HandoverDTO, error) {
	var handover *models.FosterReturnHandover
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		handover, err = s.loadReturnHandover(ctx, tx, handoverID, true)
		if err != nil {
			return err
		}
		if !handover.IsParty(userID) {
			return notHandoverParty()
		}
		now := s.now()
		if err := s.moveReturnHandover(ctx, tx, handover, enums.HandoverStatusCanceled, map[string]any{"canceled_at": now}); err != nil {
			return err
		}
		handover.CanceledAt = &now
		return nil
	})
	if err != nil {
		return nil, err
	}
	dto := toReturnHandoverDTO(*handover)
	return &dto, nil
}

func (s *Service) moveReturnHandover(ctx context.Context, tx *gorm.DB, handover *models.FosterReturnHandover, to enums.HandoverStatus, updates map[string]any) error {
	// Return handovers cannot be disputed.
	if to == enums.HandoverStatusDisputed || !handover.Status.CanTransitionTo(to) {
		return handoverStateConflict(handover.Status, to)
	}
	updates["status"] = to
	updates["updated_at"] = s.now()
	rows, err := s.repo.WithTx(tx).UpdateReturnHandover(ctx, handover.ID, handover.Status, updates)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update return handover")
	}
	if rows == 0 {
		return handoverStateConflict(handover.Status, to)
	}
	handover.Status = to
	s.recordTransition("foster_return_handover", string(to))
	return nil
}

func (s *Service) loadAssignment(ctx context.Context, tx *gorm.DB, id uuid.UUID, forUpdate bool) (*models.FosterAssignment, error) {
	assignment, err := s.repo.WithTx(tx).FindAssignment(ctx, id, forUpdate)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "foster assignment not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load foster assignment")
	}
	return assignment, nil
}

func (s *Service) loadReturnHandover(ctx context.Context, tx *gorm.DB, id uuid.UUID, forUpdate bool) (*models.FosterReturnHandover, error) {
	handover, err := s.repo.WithTx(tx).FindReturnHandover(ctx, id, forUpdate)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "return handover not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load return handover")
	}
	return handover, nil
}

func returnHandoverEvent(h *models.FosterReturnHandover, petID, actor uuid.UUID) payloads.HandoverEvent {
	return payloads.HandoverEvent{
		HandoverID:   h.ID,
		PetID:        petID,
		OwnerUserID:  h.OwnerUserID,
		HelperUserID: h.HelperUserID,
		ActorUserID:  actor,
		Status:       h.Status,
	}
}
