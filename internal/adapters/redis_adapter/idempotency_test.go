package redis_a_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	redis_a "github.com/ammerola/pharmacy-pos/internal/adapters/redis_adapter"
	"github.com/ammerola/pharmacy-pos/internal/core/domain"
	"github.com/ammerola/pharmacy-pos/test/helpers"
)

func newIdempotencyStore(t *testing.T) (*redis_a.IdempotencyStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return redis_a.NewIdempotencyStore(client, helpers.TestLogger()), mr
}

func TestIdempotencyStore_Lifecycle(t *testing.T) {
	ctx := context.Background()
	store, mr := newIdempotencyStore(t)

	saleID, claimed, err := store.Claim(ctx, "k-1", time.Hour)
	require.NoError(t, err)
	assert.True(t, claimed)
	assert.Zero(t, saleID)

	_, claimed, err = store.Claim(ctx, "k-1", time.Hour)
	assert.ErrorIs(t, err, domain.ErrDuplicateRequest)
	assert.False(t, claimed)

	require.NoError(t, store.Complete(ctx, "k-1", 77, time.Hour))
	assert.Equal(t, "sale:77", mustGet(t, mr, "idem:sale:k-1"))

	saleID, claimed, err = store.Claim(ctx, "k-1", time.Hour)
	require.NoError(t, err)
	assert.False(t, claimed)
	assert.Equal(t, int64(77), saleID)
}

func TestIdempotencyStore_ReleaseKeepsCompletedKeys(t *testing.T) {
	ctx := context.Background()
	store, mr := newIdempotencyStore(t)

	_, _, err := store.Claim(ctx, "done", time.Hour)
	require.NoError(t, err)
	require.NoError(t, store.Complete(ctx, "done", 5, time.Hour))
	require.NoError(t, store.Release(ctx, "done"))
	assert.True(t, mr.Exists("idem:sale:done"))

	_, _, err = store.Claim(ctx, "failed", time.Hour)
	require.NoError(t, err)
	require.NoError(t, store.Release(ctx, "failed"))
	assert.False(t, mr.Exists("idem:sale:failed"))

	_, claimed, err := store.Claim(ctx, "failed", time.Hour)
	require.NoError(t, err)
	assert.True(t, claimed, "a released key can be claimed again")
}

func TestIdempotencyStore_PendingKeyExpires(t *testing.T) {
	ctx := context.Background()
	store, mr := newIdempotencyStore(t)

	_, _, err := store.Claim(ctx, "slow", time.Minute)
	require.NoError(t, err)

	mr.FastForward(2 * time.Minute)

	_, claimed, err := store.Claim(ctx, "slow", time.Minute)
	require.NoError(t, err)
	assert.True(t, claimed)
}

func TestIdempotencyStore_ConcurrentClaims(t *testing.T) {
	ctx := context.Background()
	store, _ := newIdempotencyStore(t)

	var winners atomic.Int32
	var wg sync.WaitGroup
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, claimed, err := store.Claim(ctx, "race", time.Hour); err == nil && claimed {
				winners.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), winners.Load())
}

func TestIdempotencyStore_RedisDown(t *testing.T) {
	store, mr := newIdempotencyStore(t)
	mr.Close()

	_, _, err := store.Claim(context.Background(), "k", time.Hour)
	assert.ErrorIs(t, err, domain.ErrStorageUnavailable)
}

func mustGet(t *testing.T, mr *miniredis.Miniredis, key string) string {
	t.Helper()
	v, err := mr.Get(key)
	require.NoError(t, err)
	return v
}
