package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/bucketpanel/internal/domain/model"
)

func TestSessionRepo_CreateAndGet(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSessionRepo(db)
	ctx := context.Background()
	now := time.Now().UTC()

	s := model.Session{
		Token:     "tok-abc",
		LoginTime: now,
		ExpiresAt: now.Add(24 * time.Hour),
	}
	require.NoError(t, repo.Create(ctx, s))

	got, err := repo.Get(ctx, "tok-abc")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, s.Token, got.Token)
	assert.Equal(t, s.LoginTime.UnixMilli(), got.LoginTime.UnixMilli())
	assert.Equal(t, s.ExpiresAt.UnixMilli(), got.ExpiresAt.UnixMilli())
}

func TestSessionRepo_GetMissing(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSessionRepo(db)

	got, err := repo.Get(context.Background(), "no-such-token")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSessionRepo_Delete(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSessionRepo(db)
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, repo.Create(ctx, model.Session{Token: "tok", LoginTime: now, ExpiresAt: now.Add(time.Hour)}))
	require.NoError(t, repo.Delete(ctx, "tok"))

	got, err := repo.Get(ctx, "tok")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSessionRepo_DeleteMissingIsNoError(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSessionRepo(db)

	assert.NoError(t, repo.Delete(context.Background(), "no-such-token"))
}

func TestSessionRepo_PurgeExpired(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSessionRepo(db)
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, repo.Create(ctx, model.Session{Token: "live", LoginTime: now, ExpiresAt: now.Add(time.Hour)}))
	require.NoError(t, repo.Create(ctx, model.Session{Token: "dead", LoginTime: now.Add(-48 * time.Hour), ExpiresAt: now.Add(-24 * time.Hour)}))

	purged, err := repo.PurgeExpired(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), purged)

	got, err := repo.Get(ctx, "live")
	require.NoError(t, err)
	assert.NotNil(t, got)

	got, err = repo.Get(ctx, "dead")
	require.NoError(t, err)
	assert.Nil(t, got)
}
