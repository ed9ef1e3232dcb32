package settings

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/pawfinderz-backend/pkg/db/dbtest"
	"github.com/angelmondragon/pawfinderz-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/pawfinderz-backend/pkg/errors"
)

type countingRepo struct {
	Repository
	finds int
}

func (r *countingRepo) Find(ctx context.Context, key string) (*models.Setting, error) {
	r.finds++
	return r.Repository.Find(ctx, key)
}

func TestGetReadsThroughCache(t *testing.T) {
	repo := &countingRepo{Repository: NewRepository(dbtest.OpenSchema(t))}
	svc, err := NewService(repo, NewMemoryCache(), time.Minute, nil)
	require.NoError(t, err)
	ctx := context.Background()

	_, err = svc.Set(ctx, "Invitations.Enabled", SetInput{Value: "true"})
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		val, err := svc.Get(ctx, "invitations.enabled")
		require.NoError(t, err)
		require.Equal(t, "true", val)
	}
	require.Equal(t, 1, repo.finds)

	_, err = svc.Set(ctx, "invitations.enabled", SetInput{Value: "false"})
	require.NoError(t, err)
	require.False(t, svc.Bool(ctx, "invitations.enabled", true))
	require.Equal(t, 2, repo.finds)
}

func TestTypedHelpersFallBack(t *testing.T) {
	svc, err := NewService(NewRepository(dbtest.OpenSchema(t)), nil, 0, nil)
	require.NoError(t, err)
	ctx := context.Background()

	require.Equal(t, 7, svc.Int(ctx, "missing", 7))
	_, err = svc.Set(ctx, "max_pets", SetInput{Value: "twelve"})
	require.NoError(t, err)
	require.Equal(t, 3, svc.Int(ctx, "max_pets", 3))
	_, err = svc.Set(ctx, "max_pets", SetInput{Value: " 12 "})
	require.NoError(t, err)
	require.Equal(t, 12, svc.Int(ctx, "max_pets", 3))
}

func TestGetPublicHidesPrivateKeys(t *testing.T) {
	svc, err := NewService(NewRepository(dbtest.OpenSchema(t)), nil, 0, nil)
	require.NoError(t, err)
	ctx := context.Background()

	_, err = svc.Set(ctx, "support_email", SetInput{Value: "help@example.com", IsPublic: true})
	require.NoError(t, err)
	_, err = svc.Set(ctx, "smtp_password", SetInput{Value: "secret"})
	require.NoError(t, err)

	pub, err := svc.GetPublic(ctx, "support_email")
	require.NoError(t, err)
	require.Equal(t, "help@example.com", pub.Value)

	_, err = svc.GetPublic(ctx, "smtp_password")
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	all, err := svc.All(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	require.Equal(t, "smtp_password", all[0].Key)
}

func TestMemoryCacheExpires(t *testing.T) {
	cache := NewMemoryCache()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	cache.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "k", "v", time.Second))
	val, err := cache.Get(ctx, "k")
	require.NoError(t, err)
	require.Equal(t, "v", val)

	now = now.Add(2 * time.Second)
	_, err = cache.Get(ctx, "k")
	require.True(t, errors.Is(err, ErrCacheMiss))
}
