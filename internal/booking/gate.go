package booking

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrGateTimeout is returned when a gate could not be acquired within
// the caller's wait bound.  The controller maps it to a lock_timeout
// rejection so callers can retry instead of deadlocking.
var ErrGateTimeout = errors.New("slot gate acquisition timed out")

// ReleaseFunc releases a held gate.  It is safe to call exactly once.
type ReleaseFunc func()

// Gate is the mutual-exclusion primitive that serializes booking
// attempts for the same slot fingerprint.  Acquire blocks until the
// gate is held, the wait bound elapses (ErrGateTimeout), or ctx is
// cancelled.  Implementations: KeyedMutex for a single process,
// RedisGate for multi-instance deployments.
type Gate interface {
	Acquire(ctx context.Context, key string, wait time.Duration) (ReleaseFunc, error)
}

// KeyedMutex is an in-process gate: one channel-backed mutex per live
// key, reference counted so idle keys do not accumulate.
type KeyedMutex struct {
	mu    sync.Mutex
	slots map[string]*slotLock
}

type slotLock struct {
	ch   chan struct{} // capacity 1; holding the token = holding the gate
	refs int
}

// NewKeyedMutex returns an empty in-process gate.
func NewKeyedMutex() *KeyedMutex {
	return &KeyedMutex{slots: make(map[string]*slotLock)}
}

func (m *KeyedMutex) Acquire(ctx context.Context, key string, wait time.Duration) (ReleaseFunc, error) {
	m.mu.Lock()
	s, ok := m.slots[key]
	if !ok {
		s = &slotLock{ch: make(chan struct{}, 1)}
		m.slots[key] = s
	}
	s.refs++
	m.mu.Unlock()

	timer := time.NewTimer(wait)
	defer timer.Stop()

	select {
	case s.ch <- struct{}{}:
		return func() {
			<-s.ch
			m.unref(key, s)
		}, nil
	case <-timer.C:
		m.unref(key, s)
		return nil, ErrGateTimeout
	case <-ctx.Done():
		m.unref(key, s)
		return nil, ctx.Err()
	}
}

func (m *KeyedMutex) unref(key string, s *slotLock) {
	m.mu.Lock()
	s.refs--
	if s.refs == 0 {
		delete(m.slots, key)
	}
	m.mu.Unlock()
}
