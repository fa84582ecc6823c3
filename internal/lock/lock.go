// Package lock provides the per-server mutual exclusion used by the queue
// controller. Local serializes within one process; Redis serializes across
// replicas sharing a Redis instance.
package lock

import (
	"context"
	"sync"
)

// Locker acquires an exclusive lock on key, waiting until ctx is done.
// The returned unlock func is safe to call more than once.
type Locker interface {
	Lock(ctx context.Context, key string) (unlock func(), err error)
}

type slot struct {
	ch   chan struct{}
	refs int
}

// Local is an in-process keyed mutex. Slots are created on demand and
// dropped once nobody holds or waits for them.
type Local struct {
	mu    sync.Mutex
	slots map[string]*slot
}

func NewLocal() *Local {
	return &Local{slots: make(map[string]*slot)}
}

func (l *Local) Lock(ctx context.Context, key string) (func(), error) {
	l.mu.Lock()
	s, ok := l.slots[key]
	if !ok {
		s = &slot{ch: make(chan struct{}, 1)}
		l.slots[key] = s
	}
	s.refs++
	l.mu.Unlock()

	select {
	case s.ch <- struct{}{}:
	case <-ctx.Done():
		l.release(key, s)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-s.ch
			l.release(key, s)
		})
	}, nil
}

func (l *Local) release(key string, s *slot) {
	l.mu.Lock()
	defer l.mu.Unlock()
	s.refs--
	if s.refs == 0 {
		delete(l.slots, key)
	}
}
