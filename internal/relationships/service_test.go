package relationships

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/pawfinderz-backend/pkg/config"
	"github.com/angelmondragon/pawfinderz-backend/pkg/db"
	"github.com/angelmondragon/pawfinderz-backend/pkg/db/dbtest"
	"github.com/angelmondragon/pawfinderz-backend/pkg/db/models"
	"github.com/angelmondragon/pawfinderz-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/pawfinderz-backend/pkg/errors"
	"github.com/angelmondragon/pawfinderz-backend/pkg/outbox"
)

var fastArgon = config.PasswordConfig{
	ArgonMemoryKB:    64,
	ArgonTime:        1,
	ArgonParallelism: 1,
	ArgonSaltLen:     16,
	ArgonKeyLen:      32,
}

type clock struct {
	now time.Time
}

func (c *clock) Now() time.Time { return c.now }

func newTestService(t *testing.T) (*Service, *gorm.DB, *clock) {
	t.Helper()
	conn := dbtest.OpenSchema(t)
	clk := &clock{now: time.Now().UTC()}
	svc, err := NewService(ServiceParams{
		Repo:      NewRepository(conn),
		TxRunner:  db.NewFromGorm(conn),
		Outbox:    outbox.NewService(outbox.NewRepository(conn), nil),
		Passwords: fastArgon,
		Now:       clk.Now,
	})
	require.NoError(t, err)
	return svc, conn, clk
}

func TestGrantIsIdempotent(t *testing.T) {
	svc, conn, _ := newTestService(t)
	ctx := context.Background()
	owner := dbtest.SeedUser(t, conn, "owner")
	sitter := dbtest.SeedUser(t, conn, "sitter")
	pet := dbtest.SeedPet(t, conn, owner.ID, "dog")

	first, err := svc.UpsertSitter(ctx, nil, pet.ID, sitter.ID)
	require.NoError(t, err)
	second, err := svc.UpsertSitter(ctx, nil, pet.ID, sitter.ID)
	require.NoError(t, err)
	require.Equal(t, first.ID, second.ID)

	active, err := svc.HasActive(ctx, nil, pet.ID, sitter.ID, enums.RelationshipSitter)
	require.NoError(t, err)
	require.True(t, active)

	require.NoError(t, svc.EndOpen(ctx, nil, pet.ID, sitter.ID, enums.RelationshipSitter))
	active, err = svc.HasActive(ctx, nil, pet.ID, sitter.ID, enums.RelationshipSitter)
	require.NoError(t, err)
	require.False(t, active)

	rels, err := svc.ListForPet(ctx, pet.ID, true)
	require.NoError(t, err)
	require.Len(t, rels, 1)
	require.Equal(t, enums.RelationshipOwner, rels[0].RelationshipType)
}

func TestInvitationAcceptGrantsRelationship(t *testing.T) {
	svc, conn, _ := newTestService(t)
	ctx := context.Background()
	owner := dbtest.SeedUser(t, conn, "owner")
	friend := dbtest.SeedUser(t, conn, "friend")
	pet := dbtest.SeedPet(t, conn, owner.ID, "cat")

	created, err := svc.CreateInvitation(ctx, CreateInvitationInput{
		PetID:            pet.ID,
		InviterUserID:    owner.ID,
		RelationshipType: enums.RelationshipEditor,
	})
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(created.Code, created.Invitation.ID.String()+"."))

	var stored models.RelationshipInvitation
	require.NoError(t, conn.First(&stored, "id = ?", created.Invitation.ID).Error)
	require.NotContains(t, stored.SecretHash, strings.SplitN(created.Code, ".", 2)[1])

	rel, err := svc.AcceptInvitation(ctx, created.Code, friend.ID)
	require.NoError(t, err)
	require.Equal(t, enums.RelationshipEditor, rel.RelationshipType)
	require.Equal(t, int64(1), dbtest.CountEvents(t, conn, enums.EventInvitationAccepted))

	_, err = svc.AcceptInvitation(ctx, created.Code, friend.ID)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))
}

func TestInvitationRejectsNonOwnerAndOwnerRoles(t *testing.T) {
	svc, conn, _ := newTestService(t)
	ctx := context.Background()
	owner := dbtest.SeedUser(t, conn, "owner")
	stranger := dbtest.SeedUser(t, conn, "stranger")
	pet := dbtest.SeedPet(t, conn, owner.ID, "cat")

	_, err := svc.CreateInvitation(ctx, CreateInvitationInput{
		PetID:            pet.ID,
		InviterUserID:    stranger.ID,
		RelationshipType: enums.RelationshipViewer,
	})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))

	_, err = svc.CreateInvitation(ctx, CreateInvitationInput{
		PetID:            pet.ID,
		InviterUserID:    owner.ID,
		RelationshipType: enums.RelationshipOwner,
	})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestInvitationLazyExpiry(t *testing.T) {
	svc, conn, clk := newTestService(t)
	ctx := context.Background()
	owner := dbtest.SeedUser(t, conn, "owner")
	friend := dbtest.SeedUser(t, conn, "friend")
	pet := dbtest.SeedPet(t, conn, owner.ID, "cat")

	created, err := svc.CreateInvitation(ctx, CreateInvitationInput{
		PetID:            pet.ID,
		InviterUserID:    owner.ID,
		RelationshipType: enums.RelationshipViewer,
		TTL:              time.Hour,
	})
	require.NoError(t, err)

	clk.now = clk.now.Add(2 * time.Hour)
	_, err = svc.AcceptInvitation(ctx, created.Code, friend.ID)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInvitationExpired))

	var stored models.RelationshipInvitation
	require.NoError(t, conn.First(&stored, "id = ?", created.Invitation.ID).Error)
	require.Equal(t, enums.InvitationExpired, stored.Status)

	active, err := svc.HasActive(ctx, nil, pet.ID, friend.ID, enums.RelationshipViewer)
	require.NoError(t, err)
	require.False(t, active)
}

func TestInvitationWrongSecretIsNotFound(t *testing.T) {
	svc, conn, _ := newTestService(t)
	ctx := context.Background()
	owner := dbtest.SeedUser(t, conn, "owner")
	pet := dbtest.SeedPet(t, conn, owner.ID, "cat")

	created, err := svc.CreateInvitation(ctx, CreateInvitationInput{
		PetID:            pet.ID,
		InviterUserID:    owner.ID,
		RelationshipType: enums.RelationshipViewer,
	})
	require.NoError(t, err)

	_, err = svc.GetInvitation(ctx, created.Invitation.ID.String()+".not-the-secret")
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	_, err = svc.GetInvitation(ctx, "garbage")
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestRevokeAndDecline(t *testing.T) {
	svc, conn, _ := newTestService(t)
	ctx := context.Background()
	owner := dbtest.SeedUser(t, conn, "owner")
	other := dbtest.SeedUser(t, conn, "other")
	pet := dbtest.SeedPet(t, conn, owner.ID, "dog")

	first, err := svc.CreateInvitation(ctx, CreateInvitationInput{PetID: pet.ID, InviterUserID: owner.ID, RelationshipType: enums.RelationshipViewer})
	require.NoError(t, err)
	require.True(t, pkgerrors.IsCode(svc.RevokeInvitation(ctx, first.Invitation.ID, other.ID), pkgerrors.CodeForbidden))
	require.NoError(t, svc.RevokeInvitation(ctx, first.Invitation.ID, owner.ID))
	_, err = svc.AcceptInvitation(ctx, first.Code, other.ID)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))

	second, err := svc.CreateInvitation(ctx, CreateInvitationInput{PetID: pet.ID, InviterUserID: owner.ID, RelationshipType: enums.RelationshipEditor})
	require.NoError(t, err)
	require.NoError(t, svc.DeclineInvitation(ctx, second.Code))
	require.True(t, pkgerrors.IsCode(svc.DeclineInvitation(ctx, second.Code), pkgerrors.CodeStateConflict))
}

func TestExpireStale(t *testing.T) {
	svc, conn, clk := newTestService(t)
	ctx := context.Background()
	owner := dbtest.SeedUser(t, conn, "owner")
	pet := dbtest.SeedPet(t, conn, owner.ID, "dog")

	_, err := svc.CreateInvitation(ctx, CreateInvitationInput{PetID: pet.ID, InviterUserID: owner.ID, RelationshipType: enums.RelationshipViewer, TTL: time.Minute})
	require.NoError(t, err)
	_, err = svc.CreateInvitation(ctx, CreateInvitationInput{PetID: pet.ID, InviterUserID: owner.ID, RelationshipType: enums.RelationshipViewer, TTL: 48 * time.Hour})
	require.NoError(t, err)

	count, err := svc.ExpireStale(ctx, clk.now.Add(time.Hour))
	require.NoError(t, err)
	require.Equal(t, int64(1), count)
}
