package booking

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// IdempotencyCache replays booking responses for repeated requests
// carrying the same caller-supplied idempotency key.  It is a
// transport-layer convenience, entirely separate from the slot gate:
// the gate protects correctness, the cache only protects clients that
// retry.  Best effort throughout: with no Redis client every lookup
// is a miss and every store is a no-op.
type IdempotencyCache struct {
	rdb    *redis.Client
	prefix string
	ttl    time.Duration
}

// NewIdempotencyCache returns a cache over the given client, which may
// be nil.
func NewIdempotencyCache(rdb *redis.Client) *IdempotencyCache {
	return &IdempotencyCache{rdb: rdb, prefix: "idem", ttl: 24 * time.Hour}
}

// Get returns the stored response body for (userID, key), if any.
func (c *IdempotencyCache) Get(ctx context.Context, userID uint64, key string) ([]byte, bool) {
	if c == nil || c.rdb == nil || key == "" {
		return nil, false
	}
	body, err := c.rdb.Get(ctx, c.key(userID, key)).Bytes()
	if err != nil {
		return nil, false
	}
	return body, true
}

// Put stores a response body for (userID, key).  Errors are dropped.
func (c *IdempotencyCache) Put(ctx context.Context, userID uint64, key string, body []byte) {
	if c == nil || c.rdb == nil || key == "" {
		return
	}
	_ = c.rdb.Set(ctx, c.key(userID, key), body, c.ttl).Err()
}

func (c *IdempotencyCache) key(userID uint64, key string) string {
	return c.prefix + ":" + strconv.FormatUint(userID, 10) + ":" + key
}
