package redis_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/espalier-io/espalier/pkg/adapters/redis"
	"github.com/espalier-io/espalier/pkg/domain"
	"github.com/espalier-io/espalier/pkg/ports"
)

func newTestClient(t *testing.T) *backend.Client {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	return backend.NewClient(&backend.Options{Addr: mr.Addr()})
}

func TestRedisStore_Contract(t *testing.T) {
	store := redis.NewFromClient(newTestClient(t))
	ports.RunSubmissionStoreContract(t, store)
}

func TestRedisStore_TTL_Expiration(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	client := backend.NewClient(&backend.Options{Addr: mr.Addr()})
	store := redis.NewFromClient(client, redis.WithTTL(1*time.Second))
	ctx := context.Background()

	sub := &domain.Submission{
		ID:        "sub-ttl",
		SessionID: "sess-ttl",
		FormID:    "f",
		Status:    domain.StatusInProgress,
	}
	require.NoError(t, store.Save(ctx, sub))

	ids, err := store.List(ctx)
	require.NoError(t, err)
	assert.Contains(t, ids, "sub-ttl")

	mr.FastForward(2 * time.Second)

	_, err = store.Load(ctx, "sub-ttl")
	assert.ErrorIs(t, err, domain.ErrSubmissionNotFound)
	_, err = store.FindBySession(ctx, "sess-ttl")
	assert.ErrorIs(t, err, domain.ErrSubmissionNotFound)

	// Lazy index pruning keys off time.Now(), which miniredis cannot fast
	// forward, so wait out the real TTL before asserting the empty list.
	time.Sleep(1200 * time.Millisecond)

	ids, err = store.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestRedisLocker(t *testing.T) {
	client := newTestClient(t)
	locker := redis.NewLocker(client, "espalier:submission:")
	ctx := context.Background()

	unlock, err := locker.Lock(ctx, "sess-1", time.Minute)
	require.NoError(t, err)

	// Second acquisition blocks until released or context times out.
	shortCtx, cancel := context.WithTimeout(ctx, 300*time.Millisecond)
	defer cancel()
	_, err = locker.Lock(shortCtx, "sess-1", time.Minute)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	require.NoError(t, unlock(ctx))

	unlock2, err := locker.Lock(ctx, "sess-1", time.Minute)
	require.NoError(t, err)
	require.NoError(t, unlock2(ctx))
}
