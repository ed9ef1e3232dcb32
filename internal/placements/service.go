package placements

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/pawfinderz-backend/internal/capabilities"
	"github.com/angelmondragon/pawfinderz-backend/pkg/db"
	"github.com/angelmondragon/pawfinderz-backend/pkg/db/models"
	"github.com/angelmondragon/pawfinderz-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/pawfinderz-backend/pkg/errors"
	"github.com/angelmondragon/pawfinderz-backend/pkg/logger"
	"github.com/angelmondragon/pawfinderz-backend/pkg/outbox"
	"github.com/angelmondragon/pawfinderz-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/pawfinderz-backend/pkg/pagination"
)

const (
	liveRequestIndex      = "ux_placement_requests_one_live_per_type"
	helperResponseIndex   = "ux_placement_responses_helper"
	acceptedResponseIndex = "ux_placement_responses_one_accepted"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type petLookup interface {
	FindByID(ctx context.Context, tx *gorm.DB, petID uuid.UUID) (*models.Pet, error)
}

type helperLookup interface {
	FindByUserID(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (*models.HelperProfile, error)
}

type relationshipStore interface {
	UpsertSitter(ctx context.Context, tx *gorm.DB, petID, userID uuid.UUID) (*models.PetRelationship, error)
	EndOpen(ctx context.Context, tx *gorm.DB, petID, userID uuid.UUID, relType enums.RelationshipType) error
	HasActive(ctx context.Context, tx *gorm.DB, petID, userID uuid.UUID, relType enums.RelationshipType) (bool, error)
}

type transitionRecorder interface {
	IncTransition(entity, to string)
}

// ServiceParams groups the placement workflow dependencies.
type ServiceParams struct {
	Repo          Repository
	TxRunner      txRunner
	Outbox        outbox.Emitter
	Capabilities  *capabilities.Service
	Pets          petLookup
	Helpers       helperLookup
	Relationships relationshipStore
	Metrics       transitionRecorder
	Logger        *logger.Logger
	Now           func() time.Time
}

// Service drives placement requests and helper responses. Every transition
// runs in one transaction with the request row locked.
type Service struct {
	repo          Repository
	tx            txRunner
	outbox        outbox.Emitter
	caps          *capabilities.Service
	pets          petLookup
	helpers       helperLookup
	relationships relationshipStore
	metrics       transitionRecorder
	logg          *logger.Logger
	now           func() time.Time
}

// NewService validates dependencies and builds the placement service.
func NewService(params ServiceParams) (*Service, error) {
	switch {
	case params.Repo == nil:
		return nil, errors.New("placements repository required")
	case params.TxRunner == nil:
		return nil, errors.New("transaction runner required")
	case params.Outbox == nil:
		return nil, errors.New("outbox emitter required")
	case params.Capabilities == nil:
		return nil, errors.New("capabilities service required")
	case params.Pets == nil:
		return nil, errors.New("pet lookup required")
	case params.Helpers == nil:
		return nil, errors.New("helper lookup required")
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
		caps:          params.Capabilities,
		pets:          params.Pets,
		helpers:       params.Helpers,
		relationships: params.Relationships,
		metrics:       params.Metrics,
		logg:          params.Logger,
		now:           func() time.Time { return now().UTC() },
	}, nil
}

// CreateRequest opens a placement request for a pet the caller owns.
func (s *Service) CreateRequest(ctx context.Context, userID uuid.UUID, input CreateRequestInput) (*RequestDTO, error) {
	requestType, err := enums.ParsePlacementRequestType(input.RequestType)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid request type")
	}
	if input.StartDate != nil && input.EndDate != nil && input.EndDate.Before(*input.StartDate) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "end date must not be before start date")
	}

	var created *models.PlacementRequest
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		pet, err := s.pets.FindByID(ctx, tx, input.PetID)
		if err != nil {
			return err
		}
		if err := s.requireOwner(ctx, tx, pet.ID, userID); err != nil {
			return err
		}
		if pet.Status != enums.PetStatusActive {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "pet is not active").
				WithDetails(map[string]any{"pet_status": pet.Status})
		}
		for _, capability := range requiredCapabilities(requestType) {
			if err := s.caps.EnsurePet(pet, capability); err != nil {
				return err
			}
		}

		repo := s.repo.WithTx(tx)
		if _, err := repo.FindLiveRequest(ctx, pet.ID, requestType); err == nil {
			return liveRequestConflict(requestType)
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check live placement request")
		}

		req := &models.PlacementRequest{
			PetID:       pet.ID,
			UserID:      userID,
			RequestType: requestType,
			Status:      enums.PlacementStatusOpen,
			Notes:       input.Notes,
			StartDate:   input.StartDate,
			EndDate:     input.EndDate,
		}
		if err := repo.CreateRequest(ctx, req); err != nil {
			if db.IsUniqueViolation(err, liveRequestIndex) {
				return liveRequestConflict(requestType)
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create placement request")
		}
		created = req
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.recordTransition("placement_request", string(enums.PlacementStatusOpen))
	dto := ToRequestDTO(*created)
	return &dto, nil
}

// GetRequest returns a placement request by id.
func (s *Service) GetRequest(ctx context.Context, requestID uuid.UUID) (*RequestDTO, error) {
	req, err := s.loadRequest(ctx, nil, requestID, false)
	if err != nil {
		return nil, err
	}
	dto := ToRequestDTO(*req)
	return &dto, nil
}

// ListOpenRequests pages through open requests, newest first.
func (s *Service) ListOpenRequests(ctx context.Context, requestType string, params pagination.Params) (*pagination.Page[RequestDTO], error) {
	var filter *enums.PlacementRequestType
	if requestType != "" {
		parsed, err := enums.ParsePlacementRequestType(requestType)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid request type")
		}
		filter = &parsed
	}
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	rows, err := s.repo.ListOpenRequests(ctx, filter, cursor, params.Limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list placement requests")
	}
	page := pagination.BuildPage(rows, params.Limit, func(r models.PlacementRequest) pagination.Cursor {
		return pagination.Cursor{CreatedAt: r.CreatedAt, ID: r.ID}
	})
	out := &pagination.Page[RequestDTO]{Items: make([]RequestDTO, 0, len(page.Items)), NextCursor: page.NextCursor}
	for _, row := range page.Items {
		out.Items = append(out.Items, ToRequestDTO(row))
	}
	return out, nil
}

// CancelRequest withdraws a request. Pending transfers and open handovers are
// canceled, outstanding responses rejected and a sitter relationship ended.
// A fostering request whose pet is already with the foster must be closed
// through a foster return instead.
func (s *Service) CancelRequest(ctx context.Context, userID, requestID uuid.UUID) (*RequestDTO, error) {
	var result *models.PlacementRequest
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		req, err := s.loadRequest(ctx, tx, requestID, true)
		if err != nil {
			return err
		}
		if req.UserID != userID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "only the owner can cancel this request")
		}
		if !cancellable(req) {
			return requestStateConflict(req.Status, enums.PlacementStatusCancelled)
		}

		now := s.now()
		repo := s.repo.WithTx(tx)
		if err := s.cancelTransfers(ctx, tx, req.ID, nil, enums.TransferStatusCanceled, now); err != nil {
			return err
		}

		affected := make([]uuid.UUID, 0)
		responses, err := repo.ListResponsesByStatus(ctx, req.ID, enums.ResponseStatusResponded, enums.ResponseStatusAccepted)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list responses")
		}
		for _, resp := range responses {
			next := enums.ResponseStatusRejected
			if resp.Status == enums.ResponseStatusAccepted {
				next = enums.ResponseStatusCancelled
				if req.RequestType == enums.PlacementTypePetSitting {
					if err := s.relationships.EndOpen(ctx, tx, req.PetID, resp.UserID, enums.RelationshipSitter); err != nil {
						return err
					}
				}
			}
			if err := s.setResponseStatus(ctx, tx, &resp, next, now); err != nil {
				return err
			}
			affected = append(affected, resp.UserID)
		}

		if err := repo.UpdateRequest(ctx, req.ID, map[string]any{
			"status":       enums.PlacementStatusCancelled,
			"cancelled_at": now,
			"updated_at":   now,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "cancel placement request")
		}
		req.Status = enums.PlacementStatusCancelled
		req.CancelledAt = &now
		result = req

		return s.emitRequestEvent(ctx, tx, enums.EventPlacementRequestCancelled, req, userID, affected)
	})
	if err != nil {
		return nil, err
	}
	s.recordTransition("placement_request", string(enums.PlacementStatusCancelled))
	dto := ToRequestDTO(*result)
	return &dto, nil
}

// FinalizeRequest closes an active pet sitting request and ends the sitter
// relationship.
func (s *Service) FinalizeRequest(ctx context.Context, userID, requestID uuid.UUID) (*RequestDTO, error) {
	var result *models.PlacementRequest
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		req, err := s.loadRequest(ctx, tx, requestID, true)
		if err != nil {
			return err
		}
		if req.UserID != userID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "only the owner can finalize this request")
		}
		if req.RequestType != enums.PlacementTypePetSitting || req.Status != enums.PlacementStatusActive {
			return requestStateConflict(req.Status, enums.PlacementStatusFulfilled)
		}

		accepted, err := s.repo.WithTx(tx).FindAcceptedResponse(ctx, req.ID)
		switch {
		case err == nil:
			if err := s.relationships.EndOpen(ctx, tx, req.PetID, accepted.UserID, enums.RelationshipSitter); err != nil {
				return err
			}
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load accepted response")
		}

		if err := s.MarkFulfilled(ctx, tx, req); err != nil {
			return err
		}
		result = req
		return s.emitRequestEvent(ctx, tx, enums.EventPlacementRequestFulfilled, req, userID, nil)
	})
	if err != nil {
		return nil, err
	}
	dto := ToRequestDTO(*result)
	return &dto, nil
}

// MarkFulfilled closes the request on tx. Handover completion uses it once the
// pet has moved for good.
func (s *Service) MarkFulfilled(ctx context.Context, tx *gorm.DB, req *models.PlacementRequest) error {
	if req.Status.IsTerminal() {
		return requestStateConflict(req.Status, enums.PlacementStatusFulfilled)
	}
	now := s.now()
	if err := s.repo.WithTx(tx).UpdateRequest(ctx, req.ID, map[string]any{
		"status":       enums.PlacementStatusFulfilled,
		"fulfilled_at": now,
		"updated_at":   now,
	}); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "fulfil placement request")
	}
	req.Status = enums.PlacementStatusFulfilled
	req.FulfilledAt = &now
	s.recordTransition("placement_request", string(enums.PlacementStatusFulfilled))
	return nil
}

// MarkActive moves a fostering request to active once the foster holds the pet.
func (s *Service) MarkActive(ctx context.Context, tx *gorm.DB, req *models.PlacementRequest) error {
	if req.Status != enums.PlacementStatusPendingTransfer {
		return requestStateConflict(req.Status, enums.PlacementStatusActive)
	}
	if err := s.repo.WithTx(tx).UpdateRequest(ctx, req.ID, map[string]any{
		"status":     enums.PlacementStatusActive,
		"updated_at": s.now(),
	}); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "activate placement request")
	}
	req.Status = enums.PlacementStatusActive
	s.recordTransition("placement_request", string(enums.PlacementStatusActive))
	return nil
}

// LoadRequest loads a placement request on tx, locking it when forUpdate is set.
func (s *Service) LoadRequest(ctx context.Context, tx *gorm.DB, requestID uuid.UUID, forUpdate bool) (*models.PlacementRequest, error) {
	return s.loadRequest(ctx, tx, requestID, forUpdate)
}

func (s *Service) loadRequest(ctx context.Context, tx *gorm.DB, requestID uuid.UUID, forUpdate bool) (*models.PlacementRequest, error) {
	repo := s.repo.WithTx(tx)
	var (
		req *models.PlacementRequest
		err error
	)
	if forUpdate {
		req, err = repo.FindRequestForUpdate(ctx, requestID)
	} else {
		req, err = repo.FindRequest(ctx, requestID)
	}
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "placement request not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load placement request")
	}
	return req, nil
}

func (s *Service) requireOwner(ctx context.Context, tx *gorm.DB, petID, userID uuid.UUID) error {
	owner, err := s.relationships.HasActive(ctx, tx, petID, userID, enums.RelationshipOwner)
	if err != nil {
		return err
	}
	if !owner {
		return pkgerrors.New(pkgerrors.CodeForbidden, "only the pet owner can do this")
	}
	return nil
}

// cancelTransfers closes live transfers for the request, optionally limited to
// one response. Pending transfers move to pendingTo; accepted transfers whose
// handover is still open are canceled along with the handover.
func (s *Service) cancelTransfers(ctx context.Context, tx *gorm.DB, requestID uuid.UUID, responseID *uuid.UUID, pendingTo enums.TransferRequestStatus, now time.Time) error {
	repo := s.repo.WithTx(tx)
	transfers, err := repo.ListTransfers(ctx, requestID, responseID, enums.TransferStatusPending, enums.TransferStatusAccepted)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list transfer requests")
	}
	for _, transfer := range transfers {
		to := enums.TransferStatusCanceled
		if transfer.Status == enums.TransferStatusPending {
			to = pendingTo
		} else if _, err := repo.CancelOpenHandovers(ctx, transfer.ID, now); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "cancel handovers")
		}
		updates := map[string]any{"status": to, "updated_at": now}
		if to == enums.TransferStatusRejected {
			updates["rejected_at"] = now
		} else {
			updates["canceled_at"] = now
		}
		if _, err := repo.UpdateTransfer(ctx, transfer.ID, transfer.Status, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "close transfer request")
		}
		s.recordTransition("transfer_request", string(to))
	}
	return nil
}

func (s *Service) emitRequestEvent(ctx context.Context, tx *gorm.DB, eventType enums.OutboxEventType, req *models.PlacementRequest, actor uuid.UUID, affected []uuid.UUID) error {
	return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     eventType,
		AggregateType: enums.AggregatePlacementRequest,
		AggregateID:   req.ID,
		Actor:         &outbox.ActorRef{UserID: actor},
		Data: payloads.PlacementRequestEvent{
			PlacementRequestID: req.ID,
			PetID:              req.PetID,
			OwnerUserID:        req.UserID,
			RequestType:        req.RequestType,
			Status:             req.Status,
			AffectedUserIDs:    affected,
		},
	})
}

func (s *Service) recordTransition(entity, to string) {
	if s.metrics != nil {
		s.metrics.IncTransition(entity, to)
	}
}

func requiredCapabilities(requestType enums.PlacementRequestType) []capabilities.Capability {
	switch requestType {
	case enums.PlacementTypeFostering:
		return []capabilities.Capability{capabilities.Placement, capabilities.Fostering}
	case enums.PlacementTypePermanent:
		return []capabilities.Capability{capabilities.Placement, capabilities.Ownership}
	default:
		return []capabilities.Capability{capabilities.Placement}
	}
}

func cancellable(req *models.PlacementRequest) bool {
	switch req.Status {
	case enums.PlacementStatusOpen, enums.PlacementStatusPendingTransfer:
		return true
	case enums.PlacementStatusActive:
		return req.RequestType == enums.PlacementTypePetSitting
	default:
		return false
	}
}

func liveRequestConflict(requestType enums.PlacementRequestType) error {
	return pkgerrors.New(pkgerrors.CodeConflict, "pet already has a live placement request of this type").
		WithDetails(map[string]any{"request_type": requestType})
}

func requestStateConflict(from, to enums.PlacementRequestStatus) error {
	return pkgerrors.New(pkgerrors.CodeStateConflict, "placement request transition not allowed").
		WithDetails(map[string]any{"from": from, "to": to})
}
