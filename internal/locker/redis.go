package locker

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/gisquick/tilecache/internal/ctxerr"
)

// Redis is the distributed locker backend of spec §4.8 (the "memcache-add"
// example generalized to redis SETNX), grounded on the same *redis.Client
// usage the teacher's RedisNotificationStore shows
// (internal/infrastructure/project/notifications.go).
type Redis struct {
	rdb          *redis.Client
	Prefix       string
	TTL          time.Duration
	PollInterval time.Duration
}

func NewRedis(rdb *redis.Client, prefix string, ttl, pollInterval time.Duration) *Redis {
	if pollInterval <= 0 {
		pollInterval = 50 * time.Millisecond
	}
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &Redis{rdb: rdb, Prefix: prefix, TTL: ttl, PollInterval: pollInterval}
}

func (r *Redis) key(name string) string       { return r.Prefix + "lock:" + name }
func (r *Redis) statusKey(name string) string { return r.Prefix + "status:" + name }

func (r *Redis) Do(ctx context.Context, name string, fn func(ctx context.Context) error) (bool, error) {
	r.rdb.Del(ctx, r.statusKey(name))
	ok, err := r.rdb.SetNX(ctx, r.key(name), 1, r.TTL).Result()
	if err != nil {
		return false, err
	}
	if !ok {
		return false, r.wait(ctx, name)
	}

	renderErr := fn(ctx)
	status := "ok"
	if renderErr != nil {
		status = "failed"
	}
	r.rdb.Set(ctx, r.statusKey(name), status, r.TTL)
	if err := r.rdb.Del(ctx, r.key(name)).Err(); err != nil && renderErr == nil {
		return true, err
	}
	return true, renderErr
}

func (r *Redis) wait(ctx context.Context, name string) error {
	ticker := time.NewTicker(r.PollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			n, err := r.rdb.Exists(ctx, r.key(name)).Result()
			if err != nil {
				return err
			}
			if n == 0 {
				status, err := r.rdb.Get(ctx, r.statusKey(name)).Result()
				if err == nil && status == "failed" {
					return ctxerr.UpstreamFailure("render of %q failed", name)
				}
				return nil
			}
		}
	}
}
