package store

import (
	"context"
	"testing"
	"time"

	"github.com/eduka/notification-service/internal/config"
	"github.com/eduka/notification-service/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func setup(t *testing.T) (*StatusStore, *miniredis.Miniredis) {
	t.Helper()
	s, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(s.Close)

	rdb := redis.NewClient(&redis.Options{Addr: s.Addr()})
	return NewStatusStore(rdb, config.RedisConfig{
		StatusTTL:      time.Hour,
		IdempotencyTTL: time.Hour,
	}), s
}

func TestMarkQueuedAndGet(t *testing.T) {
	store, _ := setup(t)
	ctx := context.Background()

	require.NoError(t, store.MarkQueued(ctx, "n1", models.CategoryOrder))

	record, err := store.Get(ctx, "n1")
	require.NoError(t, err)
	assert.Equal(t, "n1", record.ID)
	assert.Equal(t, models.CategoryOrder, record.Category)
	assert.Equal(t, "queued", record.Status)
}

func TestGetUnknown(t *testing.T) {
	store, _ := setup(t)
	_, err := store.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrStatusNotFound)
}

func TestCheckIdempotency(t *testing.T) {
	store, _ := setup(t)
	ctx := context.Background()

	duplicate, err := store.CheckIdempotency(ctx, "key-1")
	require.NoError(t, err)
	assert.False(t, duplicate, "first sighting claims the key")

	duplicate, err = store.CheckIdempotency(ctx, "key-1")
	require.NoError(t, err)
	assert.True(t, duplicate)
}

func TestIdempotencyKeyExpires(t *testing.T) {
	store, mr := setup(t)
	ctx := context.Background()

	_, err := store.CheckIdempotency(ctx, "key-2")
	require.NoError(t, err)

	mr.FastForward(2 * time.Hour)

	duplicate, err := store.CheckIdempotency(ctx, "key-2")
	require.NoError(t, err)
	assert.False(t, duplicate, "expired keys can be claimed again")
}
