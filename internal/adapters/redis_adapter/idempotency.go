// internal/adapters/redis_adapter/idempotency.go
package redis_a

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ammerola/pharmacy-pos/internal/core/domain"
	"github.com/ammerola/pharmacy-pos/internal/core/ports"
)

const (
	pendingMarker = "pending"
	salePrefix    = "sale:"
)

// completeScript binds a sale id to a key that is still pending
var completeScript = redis.NewScript(`
if redis.call('GET', KEYS[1]) == ARGV[1] then
	redis.call('SET', KEYS[1], ARGV[2], 'PX', ARGV[3])
	return 1
end
return 0
`)

// releaseScript frees a key only while it is still pending
var releaseScript = redis.NewScript(`
if redis.call('GET', KEYS[1]) == ARGV[1] then
	return redis.call('DEL', KEYS[1])
end
return 0
`)

// IdempotencyStore records sale submission keys in Redis
type IdempotencyStore struct {
	client *redis.Client
	logger *slog.Logger
}

var _ ports.IdempotencyStore = (*IdempotencyStore)(nil)

// NewIdempotencyStore creates a new idempotency store
func NewIdempotencyStore(client *redis.Client, logger *slog.Logger) *IdempotencyStore {
	return &IdempotencyStore{
		client: client,
		logger: logger.With(slog.String("component", "idempotency")),
	}
}

func idempotencyKey(key string) string {
	return BuildKey(PrefixIdempotency, "sale", key)
}

// Claim reserves key for a new submission
func (s *IdempotencyStore) Claim(ctx context.Context, key string, ttl time.Duration) (int64, bool, error) {
	redisKey := idempotencyKey(key)

	ok, err := s.client.SetNX(ctx, redisKey, pendingMarker, ttl).Result()
	if err != nil {
		return 0, false, domain.StorageUnavailable("claim idempotency key", err)
	}
	if ok {
		return 0, true, nil
	}

	value, err := s.client.Get(ctx, redisKey).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			// released between SETNX and GET; the other submission failed
			return 0, false, fmt.Errorf("%w: key %s was released concurrently", domain.ErrDuplicateRequest, key)
		}
		return 0, false, domain.StorageUnavailable("read idempotency key", err)
	}

	saleID, bound := parseSaleValue(value)
	if !bound {
		return 0, false, fmt.Errorf("%w: key %s", domain.ErrDuplicateRequest, key)
	}
	return saleID, false, nil
}

// Complete binds the committed sale id to key
func (s *IdempotencyStore) Complete(ctx context.Context, key string, saleID int64, ttl time.Duration) error {
	value := salePrefix + strconv.FormatInt(saleID, 10)
	n, err := completeScript.Run(ctx, s.client,
		[]string{idempotencyKey(key)},
		pendingMarker, value, ttl.Milliseconds()).Int()
	if err != nil {
		return domain.StorageUnavailable("complete idempotency key", err)
	}
	if n == 0 {
		s.logger.WarnContext(ctx, "idempotency key was not pending at completion",
			slog.Int64("sale_id", saleID))
	}
	return nil
}

// Release frees a pending key so the client may retry
func (s *IdempotencyStore) Release(ctx context.Context, key string) error {
	if err := releaseScript.Run(ctx, s.client, []string{idempotencyKey(key)}, pendingMarker).Err(); err != nil {
		return domain.StorageUnavailable("release idempotency key", err)
	}
	return nil
}

func parseSaleValue(value string) (int64, bool) {
	raw, ok := strings.CutPrefix(value, salePrefix)
	if !ok {
		return 0, false
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}
