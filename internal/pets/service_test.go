package pets

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/pawfinderz-backend/internal/capabilities"
	"github.com/angelmondragon/pawfinderz-backend/internal/ownership"
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
  dog: [photos, placement, status_update]
  fish: [photos]
`

func newTestService(t *testing.T) (*Service, *gorm.DB) {
	t.Helper()
	conn := dbtest.OpenSchema(t)
	runner := db.NewFromGorm(conn)

	matrix, err := capabilities.ParseMatrix([]byte(testMatrix))
	require.NoError(t, err)
	owners, err := ownership.NewService(ownership.NewRepository(conn), nil, nil)
	require.NoError(t, err)
	rels, err := relationships.NewService(relationships.ServiceParams{
		Repo:     relationships.NewRepository(conn),
		TxRunner: runner,
		Outbox:   outbox.NewService(outbox.NewRepository(conn), nil),
	})
	require.NoError(t, err)

	svc, err := NewService(ServiceParams{
		Repo:          NewRepository(conn),
		TxRunner:      runner,
		Capabilities:  capabilities.NewService(matrix),
		Ownership:     owners,
		Relationships: rels,
	})
	require.NoError(t, err)
	return svc, conn
}

func TestCreateOpensOwnershipAndOwnerRelationship(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()
	user := dbtest.SeedUser(t, conn, "owner")
	dbtest.SeedPetType(t, conn, "dog")

	pet, err := svc.Create(ctx, user.ID, CreatePetInput{PetTypeSlug: "Dog", Name: " Rex "})
	require.NoError(t, err)
	require.Equal(t, "Rex", pet.Name)
	require.Equal(t, "dog", pet.PetType)
	require.Equal(t, user.ID, pet.HolderUserID)
	require.ElementsMatch(t, []string{"photos", "placement", "status_update"}, pet.Capabilities)

	history, err := svc.OwnershipHistory(ctx, user.ID, pet.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	require.True(t, history[0].Open)

	rels, err := svc.Relationships(ctx, user.ID, pet.ID)
	require.NoError(t, err)
	require.Len(t, rels, 1)
	require.Equal(t, enums.RelationshipOwner, rels[0].RelationshipType)
}

func TestCreateRejectsUnknownType(t *testing.T) {
	svc, conn := newTestService(t)
	user := dbtest.SeedUser(t, conn, "owner")

	_, err := svc.Create(context.Background(), user.ID, CreatePetInput{PetTypeSlug: "dragon", Name: "Smaug"})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	var count int64
	require.NoError(t, conn.Model(&models.Pet{}).Count(&count).Error)
	require.Zero(t, count)
}

func TestUpdateStatus(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()
	owner := dbtest.SeedUser(t, conn, "owner")
	other := dbtest.SeedUser(t, conn, "other")
	pet := dbtest.SeedPet(t, conn, owner.ID, "dog")

	_, err := svc.UpdateStatus(ctx, other.ID, pet.ID, enums.PetStatusLost)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))

	updated, err := svc.UpdateStatus(ctx, owner.ID, pet.ID, enums.PetStatusLost)
	require.NoError(t, err)
	require.Equal(t, enums.PetStatusLost, updated.Status)

	_, err = svc.UpdateStatus(ctx, owner.ID, pet.ID, enums.PetStatusDeleted)
	require.NoError(t, err)

	_, err = svc.UpdateStatus(ctx, owner.ID, pet.ID, enums.PetStatusActive)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))
	typed := pkgerrors.As(err)
	require.Equal(t, map[string]any{"from": enums.PetStatusDeleted, "to": enums.PetStatusActive}, typed.Details())
}

func TestUpdateStatusRequiresCapability(t *testing.T) {
	svc, conn := newTestService(t)
	owner := dbtest.SeedUser(t, conn, "owner")
	pet := dbtest.SeedPet(t, conn, owner.ID, "fish")

	_, err := svc.UpdateStatus(context.Background(), owner.ID, pet.ID, enums.PetStatusLost)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeFeatureUnavailable))
}

func TestListMinePaginates(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()
	owner := dbtest.SeedUser(t, conn, "owner")
	base := time.Now().UTC().Add(-time.Hour)
	for i := 0; i < 3; i++ {
		pet := dbtest.SeedPet(t, conn, owner.ID, "dog")
		require.NoError(t, conn.Model(&models.Pet{}).Where("id = ?", pet.ID).
			Update("created_at", base.Add(time.Duration(i)*time.Minute)).Error)
	}

	first, err := svc.ListMine(ctx, owner.ID, pagination.Params{Limit: 2})
	require.NoError(t, err)
	require.Len(t, first.Items, 2)
	require.NotEmpty(t, first.NextCursor)

	second, err := svc.ListMine(ctx, owner.ID, pagination.Params{Limit: 2, Cursor: first.NextCursor})
	require.NoError(t, err)
	require.Len(t, second.Items, 1)
	require.Empty(t, second.NextCursor)
	require.True(t, second.Items[0].CreatedAt.Before(first.Items[1].CreatedAt))
}

func TestOwnershipHistoryRequiresRelationship(t *testing.T) {
	svc, conn := newTestService(t)
	owner := dbtest.SeedUser(t, conn, "owner")
	stranger := dbtest.SeedUser(t, conn, "stranger")
	pet := dbtest.SeedPet(t, conn, owner.ID, "dog")

	_, err := svc.OwnershipHistory(context.Background(), stranger.ID, pet.ID)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))
}
