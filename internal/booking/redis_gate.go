package booking

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"time"

	"github.com/redis/go-redis/v9"
)

// releaseScript deletes the lease only when it is still owned by the
// caller, so a lease that expired and was re-acquired by another
// instance is never released by the original holder.
var releaseScript = redis.NewScript(`
	if redis.call('GET', KEYS[1]) == ARGV[1] then
		return redis.call('DEL', KEYS[1])
	end
	return 0
`)

// RedisGate implements Gate as a distributed lease: SET NX with a TTL,
// polled until the wait bound.  The TTL guards against a holder that
// crashes without releasing; it must comfortably exceed the longest
// conflict-check-and-write a booking attempt performs.
type RedisGate struct {
	rdb    *redis.Client
	prefix string
	ttl    time.Duration
	retry  time.Duration
}

// NewRedisGate returns a gate backed by the given Redis client.
func NewRedisGate(rdb *redis.Client) *RedisGate {
	return &RedisGate{
		rdb:    rdb,
		prefix: "slotgate",
		ttl:    30 * time.Second,
		retry:  25 * time.Millisecond,
	}
}

func (g *RedisGate) Acquire(ctx context.Context, key string, wait time.Duration) (ReleaseFunc, error) {
	token, err := randomToken()
	if err != nil {
		return nil, err
	}
	full := g.prefix + ":" + key
	deadline := time.Now().Add(wait)

	for {
		ok, err := g.rdb.SetNX(ctx, full, token, g.ttl).Result()
		if err != nil {
			return nil, err
		}
		if ok {
			return func() {
				// Release on a fresh context: the request context may
				// already be cancelled by the time we get here.
				rctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
				defer cancel()
				_ = releaseScript.Run(rctx, g.rdb, []string{full}, token).Err()
			}, nil
		}
		if time.Now().After(deadline) {
			return nil, ErrGateTimeout
		}
		select {
		case <-time.After(g.retry):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

func randomToken() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
