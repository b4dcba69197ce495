package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	// ItemCacheTTL bounds how long a snapshot may outlive a missed invalidation.
	ItemCacheTTL = 10 * time.Minute

	itemCacheKeyPrefix = "lostfound:item"

	// versions outlive every snapshot filled under them
	versionTTL = 2 * ItemCacheTTL
)

// fillScript stores ARGV[2] under KEYS[1] only while KEYS[2] still holds the
// version ARGV[1]. A missing version key counts as version 0.
var fillScript = redis.NewScript(`
local current = redis.call('GET', KEYS[2]) or '0'
if current ~= ARGV[1] then
	return 0
end
redis.call('SET', KEYS[1], ARGV[2], 'PX', ARGV[3])
return 1
`)

// ErrCacheMiss is returned when the key is absent, expired, or the cache is
// disabled.
var ErrCacheMiss = errors.New("cache miss")

// ItemCache stores JSON snapshots of item aggregates under
// "lostfound:item:{itemID}". Snapshots are unprojected; callers apply
// per-viewer visibility after reading. A nil *ItemCache is a disabled cache.
//
// Every Delete bumps the item's version counter. Readers take the version
// before loading from the database and Fill only stores the snapshot if the
// version is unchanged, so a load that raced a mutation never writes the
// stale row back.
type ItemCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewItemCache returns a cache backed by r, or nil when r is nil.
func NewItemCache(r *RedisClient) *ItemCache {
	if r == nil || r.Client() == nil {
		return nil
	}
	return &ItemCache{client: r.Client(), ttl: ItemCacheTTL}
}

// Get decodes the snapshot for itemID into dst.
func (c *ItemCache) Get(ctx context.Context, itemID uuid.UUID, dst any) error {
	if c == nil {
		return ErrCacheMiss
	}
	data, err := c.client.Get(ctx, Key(itemID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return ErrCacheMiss
	}
	if err != nil {
		return fmt.Errorf("cache get: %w", err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("cache decode: %w", err)
	}
	return nil
}

// Version returns the item's current invalidation counter. Take it before
// reading the row that will be passed to Fill.
func (c *ItemCache) Version(ctx context.Context, itemID uuid.UUID) (int64, error) {
	if c == nil {
		return 0, nil
	}
	v, err := c.client.Get(ctx, versionKey(itemID)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("cache version: %w", err)
	}
	return v, nil
}

// Fill stores v as the snapshot for itemID if the item's version still
// equals version. A lost race is not an error; the snapshot is just skipped.
func (c *ItemCache) Fill(ctx context.Context, itemID uuid.UUID, version int64, v any) error {
	if c == nil {
		return nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("cache encode: %w", err)
	}
	keys := []string{Key(itemID), versionKey(itemID)}
	if err := fillScript.Run(ctx, c.client, keys, strconv.FormatInt(version, 10), data, c.ttl.Milliseconds()).Err(); err != nil {
		return fmt.Errorf("cache fill: %w", err)
	}
	return nil
}

// Delete drops the snapshots for the given items and bumps their versions
// so in-flight fills for them are discarded.
func (c *ItemCache) Delete(ctx context.Context, itemIDs ...uuid.UUID) error {
	if c == nil || len(itemIDs) == 0 {
		return nil
	}
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, id := range itemIDs {
			pipe.Incr(ctx, versionKey(id))
			pipe.PExpire(ctx, versionKey(id), versionTTL)
			pipe.Del(ctx, Key(id))
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("cache delete: %w", err)
	}
	return nil
}

// Key builds the Redis key for an item snapshot.
func Key(itemID uuid.UUID) string {
	return fmt.Sprintf("%s:%s", itemCacheKeyPrefix, itemID)
}

func versionKey(itemID uuid.UUID) string {
	return Key(itemID) + ":version"
}
