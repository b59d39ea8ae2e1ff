// Package lock serializes work on one key at a time, with a bounded wait.
//
// Local locks a key within the process. Redis locks it across processes that
// share a Redis instance; use it when several engine replicas write to the same
// database.
package lock

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrBusy is returned when a lock was not acquired within the timeout.
var ErrBusy = errors.New("busy: lock not acquired in time")

// Locker acquires exclusive per-key locks.
type Locker interface {
	// Acquire blocks until key is held, timeout elapses (ErrBusy) or ctx is done.
	// The returned release func is idempotent.
	Acquire(ctx context.Context, key string, timeout time.Duration) (release func(), err error)
}

// =============================================================================
// LOCAL
// =============================================================================

// Local is an in-process keyed lock. Idle keys are dropped.
type Local struct {
	mu    sync.Mutex
	locks map[string]*entry
}

type entry struct {
	sem  chan struct{}
	refs int
}

// NewLocal returns an empty Local.
func NewLocal() *Local {
	return &Local{locks: make(map[string]*entry)}
}

func (l *Local) Acquire(ctx context.Context, key string, timeout time.Duration) (func(), error) {
	e := l.ref(key)

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case e.sem <- struct{}{}:
		var once sync.Once
		return func() {
			once.Do(func() {
				<-e.sem
				l.unref(key, e)
			})
		}, nil
	case <-timer.C:
		l.unref(key, e)
		return nil, ErrBusy
	case <-ctx.Done():
		l.unref(key, e)
		return nil, ctx.Err()
	}
}

func (l *Local) ref(key string) *entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	e, ok := l.locks[key]
	if !ok {
		e = &entry{sem: make(chan struct{}, 1)}
		l.locks[key] = e
	}
	e.refs++
	return e
}

func (l *Local) unref(key string, e *entry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	e.refs--
	if e.refs == 0 {
		delete(l.locks, key)
	}
}

// held reports the number of keys with a holder or waiter.
func (l *Local) held() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
