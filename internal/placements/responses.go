package placements

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

// Respond records a helper's interest in an open request. A previously
// cancelled response is reopened; a rejected one blocks the helper.
func (s *Service) Respond(ctx context.Context, userID, requestID uuid.UUID, input RespondInput) (*ResponseDTO, error) {
	var result *models.PlacementRequestResponse
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		profile, err := s.helpers.FindByUserID(ctx, tx, userID)
		if err != nil {
			if pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
				return pkgerrors.New(pkgerrors.CodeValidation, "a helper profile is required to respond")
			}
			return err
		}
		req, err := s.loadRequest(ctx, tx, requestID, true)
		if err != nil {
			return err
		}
		if req.UserID == userID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "cannot respond to your own placement request")
		}
		if req.Status != enums.PlacementStatusOpen {
			return notOpen(req)
		}

		repo := s.repo.WithTx(tx)
		now := s.now()
		existing, err := repo.FindResponseByHelper(ctx, req.ID, profile.ID)
		switch {
		case err == nil:
			switch {
			case existing.Status == enums.ResponseStatusRejected:
				return pkgerrors.New(pkgerrors.CodeReResponseNotAllowed, "a rejected helper cannot respond again")
			case !existing.Status.AllowsReResponse():
				return pkgerrors.New(pkgerrors.CodeConflict, "you already responded to this request")
			}
			rows, err := repo.UpdateResponse(ctx, existing.ID, existing.Status, map[string]any{
				"status":       enums.ResponseStatusResponded,
				"message":      input.Message,
				"responded_at": now,
				"accepted_at":  nil,
				"rejected_at":  nil,
				"cancelled_at": nil,
				"updated_at":   now,
			})
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reopen response")
			}
			if rows == 0 {
				return pkgerrors.New(pkgerrors.CodeConflict, "response changed concurrently")
			}
			existing.Status = enums.ResponseStatusResponded
			existing.Message = input.Message
			existing.RespondedAt = now
			existing.AcceptedAt, existing.RejectedAt, existing.CancelledAt = nil, nil, nil
			result = existing
		case errors.Is(err, gorm.ErrRecordNotFound):
			resp := &models.PlacementRequestResponse{
				PlacementRequestID: req.ID,
				HelperProfileID:    profile.ID,
				UserID:             userID,
				Message:            input.Message,
				Status:             enums.ResponseStatusResponded,
				RespondedAt:        now,
			}
			if err := repo.CreateResponse(ctx, resp); err != nil {
				if db.IsUniqueViolation(err, helperResponseIndex) {
					return pkgerrors.New(pkgerrors.CodeConflict, "you already responded to this request")
				}
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create response")
			}
			result = resp
		default:
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load existing response")
		}

		return s.emitResponseEvent(ctx, tx, enums.EventPlacementResponseCreated, req, result, userID, nil)
	})
	if err != nil {
		return nil, err
	}
	s.recordTransition("placement_response", string(enums.ResponseStatusResponded))
	dto := ToResponseDTO(*result)
	return &dto, nil
}

// Accept is the owner's choice of helper. Pet sitting becomes active at once
// and the other responses are rejected; fostering and permanent placements
// spawn a pending transfer request.
func (s *Service) Accept(ctx context.Context, userID, responseID uuid.UUID) (*ResponseDTO, error) {
	var (
		result     *models.PlacementRequestResponse
		transferID *uuid.UUID
	)
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		resp, req, err := s.loadResponseAndRequest(ctx, tx, responseID)
		if err != nil {
			return err
		}
		if req.UserID != userID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "only the owner can accept responses")
		}
		if !resp.Status.CanTransitionTo(enums.ResponseStatusAccepted) {
			return responseStateConflict(resp.Status, enums.ResponseStatusAccepted)
		}
		if req.Status != enums.PlacementStatusOpen {
			return notOpen(req)
		}

		repo := s.repo.WithTx(tx)
		if other, err := repo.FindAcceptedResponse(ctx, req.ID); err == nil {
			return acceptedExists(other.ID)
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check accepted response")
		}

		now := s.now()
		rows, err := repo.UpdateResponse(ctx, resp.ID, resp.Status, map[string]any{
			"status":      enums.ResponseStatusAccepted,
			"accepted_at": now,
			"updated_at":  now,
		})
		if err != nil {
			if db.IsUniqueViolation(err, acceptedResponseIndex) {
				return acceptedExists(uuid.Nil)
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "accept response")
		}
		if rows == 0 {
			return responseStateConflict(resp.Status, enums.ResponseStatusAccepted)
		}
		resp.Status = enums.ResponseStatusAccepted
		resp.AcceptedAt = &now
		result = resp

		if req.RequestType.RequiresTransfer() {
			transfer := &models.TransferRequest{
				PetID:                      req.PetID,
				PlacementRequestID:         req.ID,
				PlacementRequestResponseID: resp.ID,
				FromUserID:                 req.UserID,
				ToUserID:                   resp.UserID,
				Status:                     enums.TransferStatusPending,
			}
			if err := repo.CreateTransfer(ctx, transfer); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create transfer request")
			}
			transferID = &transfer.ID
			if err := repo.UpdateRequest(ctx, req.ID, map[string]any{
				"status":     enums.PlacementStatusPendingTransfer,
				"updated_at": now,
			}); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update placement request")
			}
			req.Status = enums.PlacementStatusPendingTransfer
			s.recordTransition("transfer_request", string(enums.TransferStatusPending))
		} else {
			if err := repo.UpdateRequest(ctx, req.ID, map[string]any{
				"status":     enums.PlacementStatusActive,
				"updated_at": now,
			}); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "activate placement request")
			}
			req.Status = enums.PlacementStatusActive
			if _, err := s.relationships.UpsertSitter(ctx, tx, req.PetID, resp.UserID); err != nil {
				return err
			}
			if err := s.rejectSiblings(ctx, tx, req, resp.ID, userID, now); err != nil {
				return err
			}
		}
		s.recordTransition("placement_request", string(req.Status))

		return s.emitResponseEvent(ctx, tx, enums.EventPlacementResponseAccepted, req, resp, userID, transferID)
	})
	if err != nil {
		return nil, err
	}
	s.recordTransition("placement_response", string(enums.ResponseStatusAccepted))
	dto := ToResponseDTO(*result)
	dto.TransferRequestID = transferID
	return &dto, nil
}

// Reject is the owner declining a helper. Rejecting an accepted response
// rolls the request back to open.
func (s *Service) Reject(ctx context.Context, userID, responseID uuid.UUID) (*ResponseDTO, error) {
	return s.close(ctx, userID, responseID, enums.ResponseStatusRejected)
}

// Cancel is the helper withdrawing. The helper may respond again later.
func (s *Service) Cancel(ctx context.Context, userID, responseID uuid.UUID) (*ResponseDTO, error) {
	return s.close(ctx, userID, responseID, enums.ResponseStatusCancelled)
}

// RollbackAcceptedResponse moves an accepted response to to and undoes what
// accepting it did. It runs on the caller's transaction so transfer and
// handover changes commit together with it.
func (s *Service) RollbackAcceptedResponse(ctx context.Context, tx *gorm.DB, responseID, actorID uuid.UUID, to enums.PlacementResponseStatus) (*models.PlacementRequestResponse, error) {
	resp, req, err := s.loadResponseAndRequest(ctx, tx, responseID)
	if err != nil {
		return nil, err
	}
	if resp.Status != enums.ResponseStatusAccepted {
		return nil, responseStateConflict(resp.Status, to)
	}
	if err := s.rollback(ctx, tx, req, resp, to); err != nil {
		return nil, err
	}
	if err := s.emitResponseEvent(ctx, tx, responseEventType(to), req, resp, actorID, nil); err != nil {
		return nil, err
	}
	return resp, nil
}

// ListResponses shows the owner every response and a helper only their own.
func (s *Service) ListResponses(ctx context.Context, userID, requestID uuid.UUID) ([]ResponseDTO, error) {
	req, err := s.loadRequest(ctx, nil, requestID, false)
	if err != nil {
		return nil, err
	}
	var filter *uuid.UUID
	if req.UserID != userID {
		filter = &userID
	}
	rows, err := s.repo.ListResponses(ctx, req.ID, filter)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list responses")
	}
	out := make([]ResponseDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, ToResponseDTO(row))
	}
	return out, nil
}

func (s *Service) close(ctx context.Context, userID, responseID uuid.UUID, to enums.PlacementResponseStatus) (*ResponseDTO, error) {
	var result *models.PlacementRequestResponse
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		resp, req, err := s.loadResponseAndRequest(ctx, tx, responseID)
		if err != nil {
			return err
		}
		switch to {
		case enums.ResponseStatusRejected:
			if req.UserID != userID {
				return pkgerrors.New(pkgerrors.CodeForbidden, "only the owner can reject responses")
			}
		case enums.ResponseStatusCancelled:
			if resp.UserID != userID {
				return pkgerrors.New(pkgerrors.CodeForbidden, "only the helper can cancel their response")
			}
		}
		if !resp.Status.CanTransitionTo(to) {
			return responseStateConflict(resp.Status, to)
		}

		if resp.Status == enums.ResponseStatusAccepted {
			if err := s.rollback(ctx, tx, req, resp, to); err != nil {
				return err
			}
		} else if err := s.setResponseStatus(ctx, tx, resp, to, s.now()); err != nil {
			return err
		}
		result = resp
		return s.emitResponseEvent(ctx, tx, responseEventType(to), req, resp, userID, nil)
	})
	if err != nil {
		return nil, err
	}
	dto := ToResponseDTO(*result)
	return &dto, nil
}

// rollback undoes an accepted response: live transfers and handovers are
// closed, a sitter relationship is ended and the request reopens.
func (s *Service) rollback(ctx context.Context, tx *gorm.DB, req *models.PlacementRequest, resp *models.PlacementRequestResponse, to enums.PlacementResponseStatus) error {
	if req.Status.IsTerminal() {
		return requestStateConflict(req.Status, enums.PlacementStatusOpen)
	}
	if req.RequestType == enums.PlacementTypeFostering && req.Status == enums.PlacementStatusActive {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "the pet is with the foster; start a foster return instead").
			WithDetails(map[string]any{"from": req.Status, "to": enums.PlacementStatusOpen})
	}

	now := s.now()
	pendingTo := enums.TransferStatusCanceled
	if to == enums.ResponseStatusRejected {
		pendingTo = enums.TransferStatusRejected
	}
	if err := s.cancelTransfers(ctx, tx, req.ID, &resp.ID, pendingTo, now); err != nil {
		return err
	}
	if req.RequestType == enums.PlacementTypePetSitting {
		if err := s.relationships.EndOpen(ctx, tx, req.PetID, resp.UserID, enums.RelationshipSitter); err != nil {
			return err
		}
	}
	if req.Status.Resettable() {
		if err := s.repo.WithTx(tx).UpdateRequest(ctx, req.ID, map[string]any{
			"status":     enums.PlacementStatusOpen,
			"updated_at": now,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reopen placement request")
		}
		req.Status = enums.PlacementStatusOpen
		s.recordTransition("placement_request", string(enums.PlacementStatusOpen))
	}
	return s.setResponseStatus(ctx, tx, resp, to, now)
}

func (s *Service) rejectSiblings(ctx context.Context, tx *gorm.DB, req *models.PlacementRequest, acceptedID, actorID uuid.UUID, now time.Time) error {
	siblings, err := s.repo.WithTx(tx).ListResponsesByStatus(ctx, req.ID, enums.ResponseStatusResponded)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list sibling responses")
	}
	for i := range siblings {
		sibling := &siblings[i]
		if sibling.ID == acceptedID {
			continue
		}
		if err := s.setResponseStatus(ctx, tx, sibling, enums.ResponseStatusRejected, now); err != nil {
			return err
		}
		if err := s.emitResponseEvent(ctx, tx, enums.EventPlacementResponseRejected, req, sibling, actorID, nil); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) setResponseStatus(ctx context.Context, tx *gorm.DB, resp *models.PlacementRequestResponse, to enums.PlacementResponseStatus, now time.Time) error {
	updates := map[string]any{"status": to, "updated_at": now}
	switch to {
	case enums.ResponseStatusRejected:
		updates["rejected_at"] = now
		resp.RejectedAt = &now
	case enums.ResponseStatusCancelled:
		updates["cancelled_at"] = now
		resp.CancelledAt = &now
	}
	rows, err := s.repo.WithTx(tx).UpdateResponse(ctx, resp.ID, resp.Status, updates)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update response")
	}
	if rows == 0 {
		return responseStateConflict(resp.Status, to)
	}
	resp.Status = to
	s.recordTransition("placement_response", string(to))
	return nil
}

func (s *Service) loadResponseAndRequest(ctx context.Context, tx *gorm.DB, responseID uuid.UUID) (*models.PlacementRequestResponse, *models.PlacementRequest, error) {
	resp, err := s.repo.WithTx(tx).FindResponse(ctx, responseID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, pkgerrors.New(pkgerrors.CodeNotFound, "placement response not found")
		}
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load placement response")
	}
	req, err := s.loadRequest(ctx, tx, resp.PlacementRequestID, true)
	if err != nil {
		return nil, nil, err
	}
	resp, err = s.repo.WithTx(tx).FindResponseForUpdate(ctx, responseID)
	if err != nil {
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock placement response")
	}
	return resp, req, nil
}

func (s *Service) emitResponseEvent(ctx context.Context, tx *gorm.DB, eventType enums.OutboxEventType, req *models.PlacementRequest, resp *models.PlacementRequestResponse, actor uuid.UUID, transferID *uuid.UUID) error {
	data := payloads.PlacementResponseEvent{
		ResponseID:         resp.ID,
		PlacementRequestID: req.ID,
		PetID:              req.PetID,
		OwnerUserID:        req.UserID,
		HelperUserID:       resp.UserID,
		RequestType:        req.RequestType,
		Status:             resp.Status,
		TransferRequestID:  transferID,
	}
	if pet, err := s.pets.FindByID(ctx, tx, req.PetID); err == nil {
		data.PetName = pet.Name
	}
	return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     eventType,
		AggregateType: enums.AggregatePlacementResponse,
		AggregateID:   resp.ID,
		Actor:         &outbox.ActorRef{UserID: actor},
		Data:          data,
	})
}

func responseEventType(status enums.PlacementResponseStatus) enums.OutboxEventType {
	switch status {
	case enums.ResponseStatusAccepted:
		return enums.EventPlacementResponseAccepted
	case enums.ResponseStatusRejected:
		return enums.EventPlacementResponseRejected
	case enums.ResponseStatusCancelled:
		return enums.EventPlacementResponseCancelled
	default:
		return enums.EventPlacementResponseCreated
	}
}

func notOpen(req *models.PlacementRequest) error {
	return pkgerrors.New(pkgerrors.CodePlacementNotOpen, "placement request is not open").
		WithDetails(map[string]any{"status": req.Status})
}

func acceptedExists(responseID uuid.UUID) error {
	err := pkgerrors.New(pkgerrors.CodeAcceptedResponseExists, "another response has already been accepted")
	if responseID != uuid.Nil {
		err = err.WithDetails(map[string]any{"accepted_response_id": responseID})
	}
	return err
}

func responseStateConflict(from, to enums.PlacementResponseStatus) error {
	return pkgerrors.New(pkgerrors.CodeStateConflict, "placement response transition not allowed").
		WithDetails(map[string]any{"from": from, "to": to})
}
