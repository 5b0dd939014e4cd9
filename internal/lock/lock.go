// Package lock provides per-entity mutual exclusion around multi-step
// workflow operations. Row locks in the store cover a single transaction;
// these locks cover sequences of transactions plus uploads.
package lock

import (
	"context"
	"errors"
	"sync"
	"time"
)

var ErrBusy = errors.New("another request is modifying this record, try again")

type Locker interface {
	// Acquire blocks until key is free, ctx is done, or the locker gives up
	// (ErrBusy). The returned release func is safe to call once.
	Acquire(ctx context.Context, key string) (release func(), err error)
}

// Local is an in-process Locker.
type Local struct {
	mu    sync.Mutex
	slots map[string]chan struct{}
	wait  time.Duration
}

// NewLocal: wait bounds how long Acquire blocks before returning ErrBusy.
// wait <= 0 waits for as long as ctx allows.
func NewLocal(wait time.Duration) *Local {
	return &Local{slots: map[string]chan struct{}{}, wait: wait}
}

func (l *Local) slot(key string) chan struct{} {
	l.mu.Lock()
	defer l.mu.Unlock()
	ch, ok := l.slots[key]
	if !ok {
		ch = make(chan struct{}, 1)
		l.slots[key] = ch
	}
	return ch
}

func (l *Local) Acquire(ctx context.Context, key string) (func(), error) {
	ch := l.slot(key)
	var timeout <-chan time.Time
	if l.wait > 0 {
		t := time.NewTimer(l.wait)
		defer t.Stop()
		timeout = t.C
	}
	select {
	case ch <- struct{}{}:
		var once sync.Once
		return func() { once.Do(func() { <-ch }) }, nil
	case <-timeout:
		return nil, ErrBusy
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func WorkKey(id string) string { return "lock:work:" + id }
