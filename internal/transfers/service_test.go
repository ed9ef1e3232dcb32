package transfers

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/pawfinderz-backend/internal/capabilities"
	"github.com/angelmondragon/pawfinderz-backend/internal/helpers"
	"github.com/angelmondragon/pawfinderz-backend/internal/ownership"
	"github.com/angelmondragon/pawfinderz-backend/internal/pets"
	"github.com/angelmondragon/pawfinderz-backend/internal/placements"
	"github.com/angelmondragon/pawfinderz-backend/internal/relationships"
	"github.com/angelmondragon/pawfinderz-backend/pkg/db"
	"github.com/angelmondragon/pawfinderz-backend/pkg/db/dbtest"
	"github.com/angelmondragon/pawfinderz-backend/pkg/db/models"
	"github.com/angelmondragon/pawfinderz-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/pawfinderz-backend/pkg/errors"
	"github.com/angelmondragon/pawfinderz-backend/pkg/outbox"
)

const testMatrix = `
default: [photos]
pet_types:
  dog: [photos, placement, fostering, ownership]
`

type harness struct {
	conn       *gorm.DB
	transfers  *Service
	placements *placements.Service
	owner      models.User
	helper     models.User
	pet        models.Pet
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	conn := dbtest.OpenSchema(t)
	runner := db.NewFromGorm(conn)
	emitter := outbox.NewService(outbox.NewRepository(conn), nil)

	matrix, err := capabilities.ParseMatrix([]byte(testMatrix))
	require.NoError(t, err)
	caps := capabilities.NewService(matrix)
	owners, err := ownership.NewService(ownership.NewRepository(conn), nil, nil)
	require.NoError(t, err)
	rels, err := relationships.NewService(relationships.ServiceParams{
		Repo:     relationships.NewRepository(conn),
		TxRunner: runner,
		Outbox:   emitter,
	})
	require.NoError(t, err)
	petSvc, err := pets.NewService(pets.ServiceParams{
		Repo:          pets.NewRepository(conn),
		TxRunner:      runner,
		Capabilities:  caps,
		Ownership:     owners,
		Relationships: rels,
	})
	require.NoError(t, err)
	helperSvc, err := helpers.NewService(helpers.NewRepository(conn))
	require.NoError(t, err)
	placementSvc, err := placements.NewService(placements.ServiceParams{
		Repo:          placements.NewRepository(conn),
		TxRunner:      runner,
		Outbox:        emitter,
		Capabilities:  caps,
		Pets:          petSvc,
		Helpers:       helperSvc,
		Relationships: rels,
	})
	require.NoError(t, err)
	svc, err := NewService(ServiceParams{
		Repo:          NewRepository(conn),
		TxRunner:      runner,
		Outbox:        emitter,
		Placements:    placementSvc,
		Ownership:     owners,
		Relationships: rels,
	})
	require.NoError(t, err)

	owner := dbtest.SeedUser(t, conn, "owner")
	helper := dbtest.SeedUser(t, conn, "helper")
	dbtest.SeedHelperProfile(t, conn, helper.ID)
	return &harness{
		conn:       conn,
		transfers:  svc,
		placements: placementSvc,
		owner:      owner,
		helper:     helper,
		pet:        dbtest.SeedPet(t, conn, owner.ID, "dog"),
	}
}

// acceptedTransfer walks a request of requestType up to a pending transfer.
func (h *harness) acceptedTransfer(t *testing.T, requestType enums.PlacementRequestType) (uuid.UUID, uuid.UUID) {
	t.Helper()
	ctx := context.Background()
	input := placements.CreateRequestInput{PetID: h.pet.ID, RequestType: string(requestType)}
	if requestType == enums.PlacementTypeFostering {
		end := time.Now().UTC().Add(30 * 24 * time.Hour).Truncate(24 * time.Hour)
		input.EndDate = &end
	}
	req, err := h.placements.CreateRequest(ctx, h.owner.ID, input)
	require.NoError(t, err)
	resp, err := h.placements.Respond(ctx, h.helper.ID, req.ID, placements.RespondInput{})
	require.NoError(t, err)
	accepted, err := h.placements.Accept(ctx, h.owner.ID, resp.ID)
	require.NoError(t, err)
	require.NotNil(t, accepted.TransferRequestID)
	return req.ID, *accepted.TransferRequestID
}

func (h *harness) confirmedHandover(t *testing.T, requestType enums.PlacementRequestType) (uuid.UUID, uuid.UUID) {
	t.Helper()
	ctx := context.Background()
	requestID, transferID := h.acceptedTransfer(t, requestType)
	handover, err := h.transfers.AcceptTransfer(ctx, h.helper.ID, transferID, ScheduleInput{})
	require.NoError(t, err)
	_, err = h.transfers.ConfirmHandover(ctx, h.helper.ID, handover.ID, ConfirmInput{ConditionConfirmed: true})
	require.NoError(t, err)
	return requestID, handover.ID
}

func (h *harness) requestStatus(t *testing.T, requestID uuid.UUID) enums.PlacementRequestStatus {
	t.Helper()
	req, err := h.placements.GetRequest(context.Background(), requestID)
	require.NoError(t, err)
	return req.Status
}

func (h *harness) activeRelationship(t *testing.T, userID uuid.UUID, relType enums.RelationshipType) bool {
	t.Helper()
	var count int64
	require.NoError(t, h.conn.Model(&models.PetRelationship{}).
		Where("pet_id = ? AND user_id = ? AND relationship_type = ? AND end_at IS NULL", h.pet.ID, userID, relType).
		Count(&count).Error)
	return count > 0
}

func TestPermanentHandoverMovesPetToHelper(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	requestID, handoverID := h.confirmedHandover(t, enums.PlacementTypePermanent)

	completed, err := h.transfers.CompleteHandover(ctx, h.owner.ID, handoverID)
	require.NoError(t, err)
	require.Equal(t, h.helper.ID, completed.NewHolderID)
	require.Equal(t, enums.HandoverStatusCompleted, completed.Handover.Status)
	require.Nil(t, completed.Assignment)
	require.Empty(t, completed.OwnershipGap)

	var pet models.Pet
	require.NoError(t, h.conn.First(&pet, "id = ?", h.pet.ID).Error)
	require.Equal(t, h.helper.ID, pet.UserID)

	var history []models.OwnershipHistory
	require.NoError(t, h.conn.Where("pet_id = ?", h.pet.ID).Order("from_ts ASC").Find(&history).Error)
	require.Len(t, history, 2)
	require.Equal(t, h.owner.ID, history[0].UserID)
	require.NotNil(t, history[0].ToTS)
	require.Equal(t, h.helper.ID, history[1].UserID)
	require.Nil(t, history[1].ToTS)

	require.Equal(t, enums.PlacementStatusFulfilled, h.requestStatus(t, requestID))
	require.False(t, h.activeRelationship(t, h.owner.ID, enums.RelationshipOwner))
	require.True(t, h.activeRelationship(t, h.helper.ID, enums.RelationshipOwner))
	require.EqualValues(t, 1, dbtest.CountEvents(t, h.conn, enums.EventHandoverCompleted))
}

func TestFosteringHandoverAndReturn(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	requestID, handoverID := h.confirmedHandover(t, enums.PlacementTypeFostering)

	completed, err := h.transfers.CompleteHandover(ctx, h.helper.ID, handoverID)
	require.NoError(t, err)
	require.NotNil(t, completed.Assignment)
	require.Equal(t, enums.FosterAssignmentActive, completed.Assignment.Status)
	require.NotNil(t, completed.Assignment.ExpectedEndAt)
	require.Equal(t, enums.PlacementStatusActive, h.requestStatus(t, requestID))
	require.True(t, h.activeRelationship(t, h.helper.ID, enums.RelationshipFoster))
	require.True(t, h.activeRelationship(t, h.owner.ID, enums.RelationshipOwner))

	assignmentID := completed.Assignment.ID
	ret, err := h.transfers.InitiateReturn(ctx, h.helper.ID, assignmentID, ScheduleInput{})
	require.NoError(t, err)
	require.Equal(t, enums.HandoverStatusPending, ret.Status)

	_, err = h.transfers.InitiateReturn(ctx, h.owner.ID, assignmentID, ScheduleInput{})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict), "got %v", err)

	_, err = h.transfers.ConfirmReturn(ctx, h.helper.ID, ret.ID, ConfirmInput{ConditionConfirmed: true})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))
	_, err = h.transfers.ConfirmReturn(ctx, h.owner.ID, ret.ID, ConfirmInput{ConditionConfirmed: true})
	require.NoError(t, err)

	back, err := h.transfers.CompleteReturn(ctx, h.helper.ID, ret.ID)
	require.NoError(t, err)
	require.Equal(t, h.owner.ID, back.NewHolderID)
	require.Equal(t, enums.FosterAssignmentCompleted, back.Assignment.Status)

	var pet models.Pet
	require.NoError(t, h.conn.First(&pet, "id = ?", h.pet.ID).Error)
	require.Equal(t, h.owner.ID, pet.UserID)

	var open []models.OwnershipHistory
	require.NoError(t, h.conn.Where("pet_id = ? AND to_ts IS NULL", h.pet.ID).Find(&open).Error)
	require.Len(t, open, 1)
	require.Equal(t, h.owner.ID, open[0].UserID)

	require.Equal(t, enums.PlacementStatusFulfilled, h.requestStatus(t, requestID))
	require.False(t, h.activeRelationship(t, h.helper.ID, enums.RelationshipFoster))
	require.EqualValues(t, 1, dbtest.CountEvents(t, h.conn, enums.EventFosterReturnCompleted))
}

func TestCancelHandoverReopensRequest(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	requestID, transferID := h.acceptedTransfer(t, enums.PlacementTypePermanent)
	handover, err := h.transfers.AcceptTransfer(ctx, h.helper.ID, transferID, ScheduleInput{})
	require.NoError(t, err)

	canceled, err := h.transfers.CancelHandover(ctx, h.owner.ID, handover.ID)
	require.NoError(t, err)
	require.Equal(t, enums.HandoverStatusCanceled, canceled.Status)
	require.Equal(t, enums.PlacementStatusOpen, h.requestStatus(t, requestID))

	transfer, err := h.transfers.GetTransfer(ctx, h.owner.ID, transferID)
	require.NoError(t, err)
	require.Equal(t, enums.TransferStatusCanceled, transfer.Status)

	var pet models.Pet
	require.NoError(t, h.conn.First(&pet, "id = ?", h.pet.ID).Error)
	require.Equal(t, h.owner.ID, pet.UserID)
}

func TestRejectTransferRejectsResponse(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	requestID, transferID := h.acceptedTransfer(t, enums.PlacementTypePermanent)

	_, err := h.transfers.RejectTransfer(ctx, h.owner.ID, transferID)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))

	rejected, err := h.transfers.RejectTransfer(ctx, h.helper.ID, transferID)
	require.NoError(t, err)
	require.Equal(t, enums.TransferStatusRejected, rejected.Status)
	require.Equal(t, enums.PlacementStatusOpen, h.requestStatus(t, requestID))

	_, err = h.placements.Respond(ctx, h.helper.ID, requestID, placements.RespondInput{})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeReResponseNotAllowed), "got %v", err)
}

func TestCancelTransferAllowsNewResponse(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	requestID, transferID := h.acceptedTransfer(t, enums.PlacementTypePermanent)

	canceled, err := h.transfers.CancelTransfer(ctx, h.owner.ID, transferID)
	require.NoError(t, err)
	require.Equal(t, enums.TransferStatusCanceled, canceled.Status)

	_, err = h.transfers.AcceptTransfer(ctx, h.helper.ID, transferID, ScheduleInput{})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))

	again, err := h.placements.Respond(ctx, h.helper.ID, requestID, placements.RespondInput{})
	require.NoError(t, err)
	require.Equal(t, enums.ResponseStatusResponded, again.Status)
}

func TestHandoverRequiresConfirmationBeforeCompletion(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	_, transferID := h.acceptedTransfer(t, enums.PlacementTypePermanent)
	handover, err := h.transfers.AcceptTransfer(ctx, h.helper.ID, transferID, ScheduleInput{})
	require.NoError(t, err)

	_, err = h.transfers.CompleteHandover(ctx, h.owner.ID, handover.ID)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))

	_, err = h.transfers.ConfirmHandover(ctx, h.helper.ID, handover.ID, ConfirmInput{})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = h.transfers.ConfirmHandover(ctx, h.owner.ID, handover.ID, ConfirmInput{ConditionConfirmed: true})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))
}

func TestHandoverPartiesOnly(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	_, handoverID := h.confirmedHandover(t, enums.PlacementTypePermanent)
	stranger := dbtest.SeedUser(t, h.conn, "stranger")

	_, err := h.transfers.GetHandover(ctx, stranger.ID, handoverID)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))
	_, err = h.transfers.CompleteHandover(ctx, stranger.ID, handoverID)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))

	got, err := h.transfers.GetHandover(ctx, h.owner.ID, handoverID)
	require.NoError(t, err)
	require.True(t, got.ConditionConfirmed)
}

func TestDisputedHandoverCanOnlyBeCanceled(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	requestID, handoverID := h.confirmedHandover(t, enums.PlacementTypePermanent)

	disputed, err := h.transfers.DisputeHandover(ctx, h.helper.ID, handoverID)
	require.NoError(t, err)
	require.Equal(t, enums.HandoverStatusDisputed, disputed.Status)

	_, err = h.transfers.CompleteHandover(ctx, h.owner.ID, handoverID)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))

	_, err = h.transfers.CancelHandover(ctx, h.owner.ID, handoverID)
	require.NoError(t, err)
	require.Equal(t, enums.PlacementStatusOpen, h.requestStatus(t, requestID))
}

type lockLog struct{ rows []string }

func (l *lockLog) take() []string {
	rows := l.rows
	l.rows = nil
	return rows
}

type lockingRepo struct {
	Repository
	log *lockLog
}

func (r *lockingRepo) WithTx(tx *gorm.DB) Repository {
	return &lockingRepo{Repository: r.Repository.WithTx(tx), log: r.log}
}

func (r *lockingRepo) FindTransfer(ctx context.Context, id uuid.UUID, forUpdate bool) (*models.TransferRequest, error) {
	if forUpdate {
		r.log.rows = append(r.log.rows, "transfer")
	}
	return r.Repository.FindTransfer(ctx, id, forUpdate)
}

func (r *lockingRepo) FindHandover(ctx context.Context, id uuid.UUID, forUpdate bool) (*models.TransferHandover, error) {
	if forUpdate {
		r.log.rows = append(r.log.rows, "handover")
	}
	return r.Repository.FindHandover(ctx, id, forUpdate)
}

func (r *lockingRepo) FindAssignment(ctx context.Context, id uuid.UUID, forUpdate bool) (*models.FosterAssignment, error) {
	if forUpdate {
		r.log.rows = append(r.log.rows, "assignment")
	}
	return r.Repository.FindAssignment(ctx, id, forUpdate)
}

func (r *lockingRepo) FindReturnHandover(ctx context.Context, id uuid.UUID, forUpdate bool) (*models.FosterReturnHandover, error) {
	if forUpdate {
		r.log.rows = append(r.log.rows, "return_handover")
	}
	return r.Repository.FindReturnHandover(ctx, id, forUpdate)
}

type lockingPlacements struct {
	placementWorkflow
	log *lockLog
}

func (p *lockingPlacements) LoadRequest(ctx context.Context, tx *gorm.DB, requestID uuid.UUID, forUpdate bool) (*models.PlacementRequest, error) {
	if forUpdate {
		p.log.rows = append(p.log.rows, "request")
	}
	return p.placementWorkflow.LoadRequest(ctx, tx, requestID, forUpdate)
}

// lockRecordingService shares the harness database but records every row lock
// taken through the transfer repository and the placement workflow.
func (h *harness) lockRecordingService(t *testing.T) (*Service, *lockLog) {
	t.Helper()
	log := &lockLog{}
	svc, err := NewService(ServiceParams{
		Repo:          &lockingRepo{Repository: NewRepository(h.conn), log: log},
		TxRunner:      db.NewFromGorm(h.conn),
		Outbox:        h.transfers.outbox,
		Placements:    &lockingPlacements{placementWorkflow: h.placements, log: log},
		Ownership:     h.transfers.ownership,
		Relationships: h.transfers.relationships,
	})
	require.NoError(t, err)
	return svc, log
}

func TestTransferWritesLockPlacementRequestFirst(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	_, transferID := h.acceptedTransfer(t, enums.PlacementTypePermanent)
	svc, locks := h.lockRecordingService(t)

	handover, err := svc.AcceptTransfer(ctx, h.helper.ID, transferID, ScheduleInput{})
	require.NoError(t, err)
	require.Equal(t, []string{"request", "transfer"}, locks.take())

	_, err = svc.ConfirmHandover(ctx, h.helper.ID, handover.ID, ConfirmInput{ConditionConfirmed: true})
	require.NoError(t, err)
	locks.take()

	_, err = svc.CompleteHandover(ctx, h.helper.ID, handover.ID)
	require.NoError(t, err)
	require.Equal(t, []string{"request", "transfer", "handover"}, locks.take())
}

func TestCompleteReturnLocksPlacementRequestFirst(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	_, handoverID := h.confirmedHandover(t, enums.PlacementTypeFostering)
	completed, err := h.transfers.CompleteHandover(ctx, h.helper.ID, handoverID)
	require.NoError(t, err)
	ret, err := h.transfers.InitiateReturn(ctx, h.helper.ID, completed.Assignment.ID, ScheduleInput{})
	require.NoError(t, err)
	_, err = h.transfers.ConfirmReturn(ctx, h.owner.ID, ret.ID, ConfirmInput{ConditionConfirmed: true})
	require.NoError(t, err)

	svc, locks := h.lockRecordingService(t)
	_, err = svc.CompleteReturn(ctx, h.owner.ID, ret.ID)
	require.NoError(t, err)
	require.Equal(t, []string{"request", "assignment", "return_handover"}, locks.take())
}

func TestAcceptTransferAfterRequestCanceledConflicts(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	requestID, transferID := h.acceptedTransfer(t, enums.PlacementTypePermanent)

	_, err := h.placements.CancelRequest(ctx, h.owner.ID, requestID)
	require.NoError(t, err)

	_, err = h.transfers.AcceptTransfer(ctx, h.helper.ID, transferID, ScheduleInput{})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict), "got %v", err)
}
