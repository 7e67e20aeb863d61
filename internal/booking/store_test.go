package booking

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisStore(client, 30*time.Minute), mr
}

func TestRedisStoreRoundTrip(t *testing.T) {
	store, _ := newRedisStore(t)
	ctx := context.Background()

	sess := &Session{
		ID:          "sess-1",
		RequesterID: "acct-1",
		Path:        PathClinic,
		Step:        StepSelectScheduleOrLocation,
		PetID:       "pet-1",
		Reason:      "Annual checkup",
		Date:        "2026-09-10",
	}
	require.NoError(t, store.Save(ctx, sess))

	got, err := store.Get(ctx, "sess-1")
	require.NoError(t, err)
	assert.Equal(t, sess.Step, got.Step)
	assert.Equal(t, "pet-1", got.PetID)
	assert.Equal(t, "2026-09-10", got.Date)
}

func TestRedisStoreMissingSession(t *testing.T) {
	store, _ := newRedisStore(t)
	_, err := store.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestRedisStoreExpiry(t *testing.T) {
	store, mr := newRedisStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, &Session{ID: "sess-1", Path: PathClinic, Step: StepSelectPetAndService}))

	mr.FastForward(31 * time.Minute)

	_, err := store.Get(ctx, "sess-1")
	assert.ErrorIs(t, err, ErrSessionNotFound, "abandoned wizard state should expire")
}

func TestRedisStoreDelete(t *testing.T) {
	store, _ := newRedisStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, &Session{ID: "sess-1", Path: PathMobile, Step: StepReview}))
	require.NoError(t, store.Delete(ctx, "sess-1"))

	_, err := store.Get(ctx, "sess-1")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}
