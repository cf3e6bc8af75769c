package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/gisquick/tilecache/internal/tile"
)

// Redis implements spec §4.3's "redis" backend: a flat keyspace, SET/GET/DEL
// per tile, optional key TTL for Expires. Grounded on the teacher's
// RedisNotificationStore (internal/infrastructure/project/notifications.go),
// which uses go-redis/v8 the same way: one *redis.Client shared across
// operations, context-aware calls, fmt-wrapped errors.
type Redis struct {
	Prefix      string
	UseSentinel bool
	TileSX      int
	TileSY      int
	log         *zap.SugaredLogger
	rdb         *redis.Client
	readOnly    bool
}

func NewRedis(log *zap.SugaredLogger, rdb *redis.Client, prefix string, tileSX, tileSY int) *Redis {
	return &Redis{
		Prefix:      prefix,
		UseSentinel: true,
		TileSX:      tileSX,
		TileSY:      tileSY,
		log:         log,
		rdb:         rdb,
	}
}

func (r *Redis) key(t *tile.Tile) string {
	return r.Prefix + t.CacheKey()
}

func (r *Redis) Exists(ctx context.Context, t *tile.Tile) (bool, error) {
	n, err := r.rdb.Exists(ctx, r.key(t)).Result()
	if err != nil {
		return false, fmt.Errorf("redis exists: %w", err)
	}
	return n > 0, nil
}

func (r *Redis) Get(ctx context.Context, t *tile.Tile) (bool, error) {
	raw, err := r.rdb.Get(ctx, r.key(t)).Bytes()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("redis get: %w", err)
	}
	data, err := decodeFromStore(raw, r.TileSX, r.TileSY)
	if err != nil {
		return false, fmt.Errorf("expanding sentinel: %w", err)
	}
	t.EncodedData = data
	t.MTime = time.Now()
	return true, nil
}

func (r *Redis) ttl(t *tile.Tile) time.Duration {
	if t.Expires <= 0 {
		return 0
	}
	return time.Duration(t.Expires) * time.Second
}

func (r *Redis) Set(ctx context.Context, t *tile.Tile) error {
	if r.readOnly {
		return nil
	}
	data, err := encodeForStore(t, r.TileSX, r.TileSY, r.UseSentinel)
	if err != nil {
		return err
	}
	if data == nil {
		return nil
	}
	if err := r.rdb.Set(ctx, r.key(t), data, r.ttl(t)).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func (r *Redis) MultiSet(ctx context.Context, tiles []*tile.Tile) error {
	if r.readOnly {
		return nil
	}
	pipe := r.rdb.Pipeline()
	for _, t := range tiles {
		data, err := encodeForStore(t, r.TileSX, r.TileSY, r.UseSentinel)
		if err != nil {
			return err
		}
		if data == nil {
			continue
		}
		pipe.Set(ctx, r.key(t), data, r.ttl(t))
	}
	_, err := pipe.Exec(ctx)
	if err != nil {
		return fmt.Errorf("redis multi_set: %w", err)
	}
	return nil
}

func (r *Redis) Delete(ctx context.Context, t *tile.Tile) error {
	if r.readOnly {
		return nil
	}
	if err := r.rdb.Del(ctx, r.key(t)).Err(); err != nil {
		return fmt.Errorf("redis delete: %w", err)
	}
	return nil
}

func (r *Redis) SetReadOnly(ro bool) {
	r.readOnly = ro
}
