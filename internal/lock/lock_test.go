package lock

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestLocalSerializesSameKey(t *testing.T) {
	l := NewLocal(0)
	ctx := context.Background()

	var (
		mu      sync.Mutex
		inside  int
		maxSeen int
		wg      sync.WaitGroup
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release, err := l.Acquire(ctx, WorkKey("w1"))
			if err != nil {
				t.Errorf("acquire: %v", err)
				return
			}
			defer release()
			mu.Lock()
			inside++
			if inside > maxSeen {
				maxSeen = inside
			}
			mu.Unlock()
			time.Sleep(time.Millisecond)
			mu.Lock()
			inside--
			mu.Unlock()
		}()
	}
	wg.Wait()
	if maxSeen != 1 {
		t.Fatalf("%d holders at once", maxSeen)
	}
}

func TestLocalKeysAreIndependent(t *testing.T) {
	l := NewLocal(0)
	ctx := context.Background()
	r1, err := l.Acquire(ctx, WorkKey("a"))
	if err != nil {
		t.Fatalf("acquire a: %v", err)
	}
	defer r1()
	r2, err := l.Acquire(ctx, WorkKey("b"))
	if err != nil {
		t.Fatalf("acquire b: %v", err)
	}
	r2()
}

func TestLocalAcquireHonoursContext(t *testing.T) {
	l := NewLocal(0)
	release, err := l.Acquire(context.Background(), WorkKey("x"))
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := l.Acquire(ctx, WorkKey("x")); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("second acquire = %v", err)
	}

	release()
	release() // a second release must not free someone else's hold
	r2, err := l.Acquire(context.Background(), WorkKey("x"))
	if err != nil {
		t.Fatalf("reacquire: %v", err)
	}
	ctx2, cancel2 := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel2()
	if _, err := l.Acquire(ctx2, WorkKey("x")); err == nil {
		t.Fatalf("double release freed the lock")
	}
	r2()
}

func TestLocalWaitBound(t *testing.T) {
	cases := []struct {
		name string
		wait time.Duration
		ctx  time.Duration
		want error
	}{
		{"wait expires first", 20 * time.Millisecond, time.Second, ErrBusy},
		{"context expires first", time.Second, 20 * time.Millisecond, context.DeadlineExceeded},
		{"unbounded wait", 0, 20 * time.Millisecond, context.DeadlineExceeded},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			l := NewLocal(tc.wait)
			release, err := l.Acquire(context.Background(), WorkKey("held"))
			if err != nil {
				t.Fatalf("acquire: %v", err)
			}
			defer release()

			ctx, cancel := context.WithTimeout(context.Background(), tc.ctx)
			defer cancel()
			start := time.Now()
			if _, err := l.Acquire(ctx, WorkKey("held")); !errors.Is(err, tc.want) {
				t.Fatalf("acquire = %v, want %v", err, tc.want)
			}
			if waited := time.Since(start); waited > 500*time.Millisecond {
				t.Fatalf("waited %v", waited)
			}
		})
	}
}
