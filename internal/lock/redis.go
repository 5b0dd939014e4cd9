package lock

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// release only deletes the key when we still own it.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// renew extends the key's TTL, again only for the owner.
var renewScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0
`)

type Redis struct {
	rdb   *redis.Client
	ttl   time.Duration
	wait  time.Duration
	retry time.Duration
	log   *zap.Logger
}

// NewRedis: ttl bounds how long a crashed holder can block a key, wait bounds
// how long Acquire polls before returning ErrBusy. A live holder renews the
// key every ttl/3, so long uploads never outlive their lock.
func NewRedis(rdb *redis.Client, ttl, wait time.Duration, log *zap.Logger) *Redis {
	return &Redis{rdb: rdb, ttl: ttl, wait: wait, retry: 50 * time.Millisecond, log: log}
}

func (r *Redis) Acquire(ctx context.Context, key string) (func(), error) {
	token := uuid.NewString()
	deadline := time.Now().Add(r.wait)

	for {
		ok, err := r.rdb.SetNX(ctx, key, token, r.ttl).Result()
		if err != nil {
			return nil, err
		}
		if ok {
			break
		}
		if time.Now().After(deadline) {
			return nil, ErrBusy
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(r.retry):
		}
	}

	stop := make(chan struct{})
	done := make(chan struct{})
	go r.keepAlive(key, token, stop, done)

	var once sync.Once
	return func() {
		once.Do(func() {
			close(stop)
			<-done
			// Release must run even when the request context is already done.
			if err := releaseScript.Run(context.Background(), r.rdb, []string{key}, token).Err(); err != nil {
				r.log.Warn("lock release failed", zap.String("key", key), zap.Error(err))
			}
		})
	}, nil
}

func (r *Redis) keepAlive(key, token string, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	interval := r.ttl / 3
	if interval <= 0 {
		return
	}
	tick := time.NewTicker(interval)
	defer tick.Stop()

	for {
		select {
		case <-stop:
			return
		case <-tick.C:
			n, err := renewScript.Run(context.Background(), r.rdb, []string{key}, token, r.ttl.Milliseconds()).Int()
			if err != nil {
				r.log.Warn("lock renew failed", zap.String("key", key), zap.Error(err))
				continue
			}
			if n == 0 {
				r.log.Warn("lock lost before release", zap.String("key", key))
				return
			}
		}
	}
}
