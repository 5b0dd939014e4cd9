package realtime

import (
	"github.com/redis/go-redis/v9"
)

// NewRedis creates the shared Redis client used for entity locks and
// cross-instance notifications.
func NewRedis(addr, password string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
}
