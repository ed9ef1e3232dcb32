package placements

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/pawfinderz-backend/internal/capabilities"
	"github.com/angelmondragon/pawfinderz-backend/internal/helpers"
	"github.com/angelmondragon/pawfinderz-backend/internal/ownership"
	"github.com/angelmondragon/pawfinderz-backend/internal/pets"
	"github.com/angelmondragon/pawfinderz-backend/internal/relationships"
	"github.com/angelmondragon/pawfinderz-backend/pkg/db"
	"github.com/angelmondragon/pawfinderz-backend/pkg/db/dbtest"
	"github.com/angelmondragon/pawfinderz-backend/pkg/db/models"
	"github.com/angelmondragon/pawfinderz-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/pawfinderz-backend/pkg/errors"
	"github.com/angelmondragon/pawfinderz-backend/pkg/outbox"
	"github.com/angelmondragon/pawfinderz-backend/pkg/pagination"
)

const testMatrix = `
default: [photos]
pet_types:
  dog: [photos, placement, fostering, ownership]
  bird: [photos, placement]
`

type recordingMetrics struct {
	transitions map[string]int
}

func (m *recordingMetrics) IncTransition(entity, to string) {
	m.transitions[entity+":"+to]++
}

type fixture struct {
	svc     *Service
	conn    *gorm.DB
	metrics *recordingMetrics
	owner   models.User
	pet     models.Pet
}

func newFixture(t *testing.T) *fixture {
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

	metrics := &recordingMetrics{transitions: map[string]int{}}
	svc, err := NewService(ServiceParams{
		Repo:          NewRepository(conn),
		TxRunner:      runner,
		Outbox:        emitter,
		Capabilities:  caps,
		Pets:          petSvc,
		Helpers:       helperSvc,
		Relationships: rels,
		Metrics:       metrics,
	})
	require.NoError(t, err)

	owner := dbtest.SeedUser(t, conn, "owner")
	return &fixture{
		svc:     svc,
		conn:    conn,
		metrics: metrics,
		owner:   owner,
		pet:     dbtest.SeedPet(t, conn, owner.ID, "dog"),
	}
}

func (f *fixture) newHelper(t *testing.T, name string) models.User {
	t.Helper()
	user := dbtest.SeedUser(t, f.conn, name)
	dbtest.SeedHelperProfile(t, f.conn, user.ID)
	return user
}

func (f *fixture) openRequest(t *testing.T, requestType enums.PlacementRequestType) *RequestDTO {
	t.Helper()
	req, err := f.svc.CreateRequest(context.Background(), f.owner.ID, CreateRequestInput{
		PetID:       f.pet.ID,
		RequestType: string(requestType),
	})
	require.NoError(t, err)
	require.Equal(t, enums.PlacementStatusOpen, req.Status)
	return req
}

func (f *fixture) requestStatus(t *testing.T, id uuid.UUID) enums.PlacementRequestStatus {
	t.Helper()
	req, err := f.svc.GetRequest(context.Background(), id)
	require.NoError(t, err)
	return req.Status
}

func (f *fixture) transfers(t *testing.T, requestID uuid.UUID) []models.TransferRequest {
	t.Helper()
	var rows []models.TransferRequest
	require.NoError(t, f.conn.Where("placement_request_id = ?", requestID).Order("created_at ASC").Find(&rows).Error)
	return rows
}

func (f *fixture) sitterActive(t *testing.T, userID uuid.UUID) bool {
	t.Helper()
	var count int64
	require.NoError(t, f.conn.Model(&models.PetRelationship{}).
		Where("pet_id = ? AND user_id = ? AND relationship_type = ? AND end_at IS NULL", f.pet.ID, userID, enums.RelationshipSitter).
		Count(&count).Error)
	return count > 0
}

func TestCreateRequestChecksOwnershipAndCapabilities(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	stranger := dbtest.SeedUser(t, f.conn, "stranger")

	_, err := f.svc.CreateRequest(ctx, stranger.ID, CreateRequestInput{PetID: f.pet.ID, RequestType: "permanent"})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden), "got %v", err)

	bird := dbtest.SeedPet(t, f.conn, f.owner.ID, "bird")
	_, err = f.svc.CreateRequest(ctx, f.owner.ID, CreateRequestInput{PetID: bird.ID, RequestType: "fostering"})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeFeatureUnavailable), "got %v", err)

	sitting, err := f.svc.CreateRequest(ctx, f.owner.ID, CreateRequestInput{PetID: bird.ID, RequestType: "pet_sitting"})
	require.NoError(t, err)
	require.Equal(t, enums.PlacementTypePetSitting, sitting.RequestType)

	_, err = f.svc.CreateRequest(ctx, f.owner.ID, CreateRequestInput{PetID: f.pet.ID, RequestType: "walking"})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestCreateRequestRejectsSecondLiveRequestOfSameType(t *testing.T) {
	f := newFixture(t)
	f.openRequest(t, enums.PlacementTypePermanent)

	_, err := f.svc.CreateRequest(context.Background(), f.owner.ID, CreateRequestInput{PetID: f.pet.ID, RequestType: "permanent"})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict), "got %v", err)

	f.openRequest(t, enums.PlacementTypeFostering)
}

func TestAcceptPermanentResponseCreatesPendingTransfer(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	req := f.openRequest(t, enums.PlacementTypePermanent)
	helper := f.newHelper(t, "helper")

	resp, err := f.svc.Respond(ctx, helper.ID, req.ID, RespondInput{})
	require.NoError(t, err)
	require.Equal(t, enums.ResponseStatusResponded, resp.Status)

	accepted, err := f.svc.Accept(ctx, f.owner.ID, resp.ID)
	require.NoError(t, err)
	require.Equal(t, enums.ResponseStatusAccepted, accepted.Status)
	require.NotNil(t, accepted.TransferRequestID)
	require.Equal(t, enums.PlacementStatusPendingTransfer, f.requestStatus(t, req.ID))

	transfers := f.transfers(t, req.ID)
	require.Len(t, transfers, 1)
	require.Equal(t, enums.TransferStatusPending, transfers[0].Status)
	require.Equal(t, f.owner.ID, transfers[0].FromUserID)
	require.Equal(t, helper.ID, transfers[0].ToUserID)

	// The pet does not move until a handover completes.
	var pet models.Pet
	require.NoError(t, f.conn.First(&pet, "id = ?", f.pet.ID).Error)
	require.Equal(t, f.owner.ID, pet.UserID)
	require.EqualValues(t, 1, dbtest.CountEvents(t, f.conn, enums.EventPlacementResponseAccepted))
}

func TestAcceptPetSittingActivatesAndRejectsSiblings(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	req := f.openRequest(t, enums.PlacementTypePetSitting)
	first := f.newHelper(t, "first")
	second := f.newHelper(t, "second")

	chosen, err := f.svc.Respond(ctx, first.ID, req.ID, RespondInput{})
	require.NoError(t, err)
	other, err := f.svc.Respond(ctx, second.ID, req.ID, RespondInput{})
	require.NoError(t, err)

	accepted, err := f.svc.Accept(ctx, f.owner.ID, chosen.ID)
	require.NoError(t, err)
	require.Nil(t, accepted.TransferRequestID)
	require.Equal(t, enums.PlacementStatusActive, f.requestStatus(t, req.ID))
	require.True(t, f.sitterActive(t, first.ID))
	require.Empty(t, f.transfers(t, req.ID))

	responses, err := f.svc.ListResponses(ctx, f.owner.ID, req.ID)
	require.NoError(t, err)
	statuses := map[uuid.UUID]enums.PlacementResponseStatus{}
	for _, r := range responses {
		statuses[r.ID] = r.Status
	}
	require.Equal(t, enums.ResponseStatusRejected, statuses[other.ID])
	require.EqualValues(t, 1, dbtest.CountEvents(t, f.conn, enums.EventPlacementResponseRejected))

	finalized, err := f.svc.FinalizeRequest(ctx, f.owner.ID, req.ID)
	require.NoError(t, err)
	require.Equal(t, enums.PlacementStatusFulfilled, finalized.Status)
	require.False(t, f.sitterActive(t, first.ID))
}

func TestSecondAcceptIsRefused(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	req := f.openRequest(t, enums.PlacementTypePermanent)
	first, err := f.svc.Respond(ctx, f.newHelper(t, "first").ID, req.ID, RespondInput{})
	require.NoError(t, err)
	second, err := f.svc.Respond(ctx, f.newHelper(t, "second").ID, req.ID, RespondInput{})
	require.NoError(t, err)

	_, err = f.svc.Accept(ctx, f.owner.ID, first.ID)
	require.NoError(t, err)
	_, err = f.svc.Accept(ctx, f.owner.ID, second.ID)
	require.Error(t, err)
	require.True(t,
		pkgerrors.IsCode(err, pkgerrors.CodeAcceptedResponseExists) || pkgerrors.IsCode(err, pkgerrors.CodePlacementNotOpen),
		"got %v", err)
	require.Len(t, f.transfers(t, req.ID), 1)
}

func TestRejectAcceptedResponseReopensRequest(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	req := f.openRequest(t, enums.PlacementTypePermanent)
	helper := f.newHelper(t, "helper")
	resp, err := f.svc.Respond(ctx, helper.ID, req.ID, RespondInput{})
	require.NoError(t, err)
	_, err = f.svc.Accept(ctx, f.owner.ID, resp.ID)
	require.NoError(t, err)

	rejected, err := f.svc.Reject(ctx, f.owner.ID, resp.ID)
	require.NoError(t, err)
	require.Equal(t, enums.ResponseStatusRejected, rejected.Status)
	require.Equal(t, enums.PlacementStatusOpen, f.requestStatus(t, req.ID))

	transfers := f.transfers(t, req.ID)
	require.Len(t, transfers, 1)
	require.Equal(t, enums.TransferStatusRejected, transfers[0].Status)

	_, err = f.svc.Respond(ctx, helper.ID, req.ID, RespondInput{})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeReResponseNotAllowed), "got %v", err)
}

func TestCancelledResponseMayRespondAgain(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	req := f.openRequest(t, enums.PlacementTypeFostering)
	helper := f.newHelper(t, "helper")
	resp, err := f.svc.Respond(ctx, helper.ID, req.ID, RespondInput{})
	require.NoError(t, err)

	_, err = f.svc.Cancel(ctx, f.owner.ID, resp.ID)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))

	cancelled, err := f.svc.Cancel(ctx, helper.ID, resp.ID)
	require.NoError(t, err)
	require.Equal(t, enums.ResponseStatusCancelled, cancelled.Status)

	again, err := f.svc.Respond(ctx, helper.ID, req.ID, RespondInput{})
	require.NoError(t, err)
	require.Equal(t, resp.ID, again.ID)
	require.Equal(t, enums.ResponseStatusResponded, again.Status)

	_, err = f.svc.Respond(ctx, helper.ID, req.ID, RespondInput{})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict), "got %v", err)
}

func TestHelperCancelOfAcceptedPermanentResponseRollsBack(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	req := f.openRequest(t, enums.PlacementTypePermanent)
	helper := f.newHelper(t, "helper")
	resp, err := f.svc.Respond(ctx, helper.ID, req.ID, RespondInput{})
	require.NoError(t, err)
	_, err = f.svc.Accept(ctx, f.owner.ID, resp.ID)
	require.NoError(t, err)
	require.Equal(t, enums.PlacementStatusPendingTransfer, f.requestStatus(t, req.ID))

	cancelled, err := f.svc.Cancel(ctx, helper.ID, resp.ID)
	require.NoError(t, err)
	require.Equal(t, enums.ResponseStatusCancelled, cancelled.Status)
	require.Equal(t, enums.PlacementStatusOpen, f.requestStatus(t, req.ID))

	transfers := f.transfers(t, req.ID)
	require.Len(t, transfers, 1)
	require.Equal(t, enums.TransferStatusCanceled, transfers[0].Status)
	require.EqualValues(t, 1, dbtest.CountEvents(t, f.conn, enums.EventPlacementResponseCancelled))

	again, err := f.svc.Respond(ctx, helper.ID, req.ID, RespondInput{})
	require.NoError(t, err)
	require.Equal(t, resp.ID, again.ID)
	require.Equal(t, enums.ResponseStatusResponded, again.Status)

	// The reopened response can be accepted again with a fresh transfer.
	_, err = f.svc.Accept(ctx, f.owner.ID, again.ID)
	require.NoError(t, err)
	transfers = f.transfers(t, req.ID)
	require.Len(t, transfers, 2)
	require.Equal(t, enums.TransferStatusPending, transfers[1].Status)
}

func TestHelperCancelOfAcceptedSittingEndsSitter(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	req := f.openRequest(t, enums.PlacementTypePetSitting)
	helper := f.newHelper(t, "sitter")
	resp, err := f.svc.Respond(ctx, helper.ID, req.ID, RespondInput{})
	require.NoError(t, err)
	_, err = f.svc.Accept(ctx, f.owner.ID, resp.ID)
	require.NoError(t, err)
	require.True(t, f.sitterActive(t, helper.ID))

	_, err = f.svc.Cancel(ctx, helper.ID, resp.ID)
	require.NoError(t, err)
	require.False(t, f.sitterActive(t, helper.ID))
	require.Equal(t, enums.PlacementStatusOpen, f.requestStatus(t, req.ID))

	var sitter models.PetRelationship
	require.NoError(t, f.conn.Where("pet_id = ? AND user_id = ? AND relationship_type = ?", f.pet.ID, helper.ID, enums.RelationshipSitter).
		First(&sitter).Error)
	require.NotNil(t, sitter.EndAt)

	_, err = f.svc.Respond(ctx, helper.ID, req.ID, RespondInput{})
	require.NoError(t, err)
}

func TestOwnerRejectOfAcceptedSittingEndsSitter(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	req := f.openRequest(t, enums.PlacementTypePetSitting)
	helper := f.newHelper(t, "sitter")
	resp, err := f.svc.Respond(ctx, helper.ID, req.ID, RespondInput{})
	require.NoError(t, err)
	_, err = f.svc.Accept(ctx, f.owner.ID, resp.ID)
	require.NoError(t, err)

	rejected, err := f.svc.Reject(ctx, f.owner.ID, resp.ID)
	require.NoError(t, err)
	require.Equal(t, enums.ResponseStatusRejected, rejected.Status)
	require.False(t, f.sitterActive(t, helper.ID))
	require.Equal(t, enums.PlacementStatusOpen, f.requestStatus(t, req.ID))

	_, err = f.svc.Respond(ctx, helper.ID, req.ID, RespondInput{})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeReResponseNotAllowed), "got %v", err)
}

func TestRespondGuards(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	req := f.openRequest(t, enums.PlacementTypePermanent)

	noProfile := dbtest.SeedUser(t, f.conn, "no-profile")
	_, err := f.svc.Respond(ctx, noProfile.ID, req.ID, RespondInput{})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), "got %v", err)

	dbtest.SeedHelperProfile(t, f.conn, f.owner.ID)
	_, err = f.svc.Respond(ctx, f.owner.ID, req.ID, RespondInput{})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden), "got %v", err)

	_, err = f.svc.CancelRequest(ctx, f.owner.ID, req.ID)
	require.NoError(t, err)
	_, err = f.svc.Respond(ctx, f.newHelper(t, "late").ID, req.ID, RespondInput{})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodePlacementNotOpen), "got %v", err)
}

func TestCancelRequestClosesTransfersAndResponses(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	req := f.openRequest(t, enums.PlacementTypePermanent)
	chosen := f.newHelper(t, "chosen")
	waiting := f.newHelper(t, "waiting")
	resp, err := f.svc.Respond(ctx, chosen.ID, req.ID, RespondInput{})
	require.NoError(t, err)
	_, err = f.svc.Respond(ctx, waiting.ID, req.ID, RespondInput{})
	require.NoError(t, err)
	_, err = f.svc.Accept(ctx, f.owner.ID, resp.ID)
	require.NoError(t, err)

	_, err = f.svc.CancelRequest(ctx, chosen.ID, req.ID)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))

	cancelled, err := f.svc.CancelRequest(ctx, f.owner.ID, req.ID)
	require.NoError(t, err)
	require.Equal(t, enums.PlacementStatusCancelled, cancelled.Status)
	require.NotNil(t, cancelled.CancelledAt)

	transfers := f.transfers(t, req.ID)
	require.Len(t, transfers, 1)
	require.Equal(t, enums.TransferStatusCanceled, transfers[0].Status)

	var responses []models.PlacementRequestResponse
	require.NoError(t, f.conn.Where("placement_request_id = ?", req.ID).Find(&responses).Error)
	for _, r := range responses {
		require.True(t, r.Status.IsTerminal() || r.Status == enums.ResponseStatusCancelled, "response left in %s", r.Status)
	}
	require.EqualValues(t, 1, dbtest.CountEvents(t, f.conn, enums.EventPlacementRequestCancelled))

	_, err = f.svc.CancelRequest(ctx, f.owner.ID, req.ID)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))
	require.Equal(t, 1, f.metrics.transitions["placement_request:cancelled"])
}

func TestFinalizeOnlyForActiveSitting(t *testing.T) {
	f := newFixture(t)
	req := f.openRequest(t, enums.PlacementTypePermanent)

	_, err := f.svc.FinalizeRequest(context.Background(), f.owner.ID, req.ID)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))
}

func TestListOpenRequestsFiltersByType(t *testing.T) {
	f := newFixture(t)
	f.openRequest(t, enums.PlacementTypePermanent)
	f.openRequest(t, enums.PlacementTypeFostering)

	page, err := f.svc.ListOpenRequests(context.Background(), "fostering", pagination.Params{Limit: 10})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	require.Equal(t, enums.PlacementTypeFostering, page.Items[0].RequestType)

	all, err := f.svc.ListOpenRequests(context.Background(), "", pagination.Params{Limit: 10})
	require.NoError(t, err)
	require.Len(t, all.Items, 2)
}
