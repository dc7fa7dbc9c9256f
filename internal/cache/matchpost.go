package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/matchpost/matchpost/internal/model"
)

// Key layout per post id:
//
//	matchpost:<id>      hash {data: JSON, ver: updated_at in µs}
//	matchpost:<id>:neg  id looked up and not found
//	matchpost:<id>:del  id deleted; blocks refills
const (
	matchPostKeyPrefix = "matchpost:"
	negCacheKeySuffix  = ":neg"
	deletedKeySuffix   = ":del"

	// DefaultMatchPostTTL is the TTL for cached match posts.
	DefaultMatchPostTTL = 10 * time.Minute

	// NegativeCacheTTL is the TTL for negative cache entries.
	NegativeCacheTTL = time.Minute

	// DeletedTTL outlives any read that started before the delete.
	DeletedTTL = 5 * time.Minute
)

// Common cache errors.
var (
	ErrCacheMiss = errors.New("cache miss")
)

func matchPostKey(id int64) string {
	return matchPostKeyPrefix + strconv.FormatInt(id, 10)
}

// setMatchPostScript stores a post unless the id is deleted or a newer
// version is already cached. updated_at strictly increases per post, so it
// orders versions. Returns 1 when stored.
var setMatchPostScript = redis.NewScript(`
	local key, neg, del = KEYS[1], KEYS[2], KEYS[3]
	local version = tonumber(ARGV[2])

	if redis.call('EXISTS', del) == 1 then
		return 0
	end
	local current = tonumber(redis.call('HGET', key, 'ver'))
	if current and current > version then
		return 0
	end

	redis.call('HSET', key, 'data', ARGV[1], 'ver', ARGV[2])
	redis.call('PEXPIRE', key, ARGV[3])
	redis.call('DEL', neg)
	return 1
`)

// setNegativeScript records an absent id unless a post got cached meanwhile.
var setNegativeScript = redis.NewScript(`
	if redis.call('EXISTS', KEYS[1]) == 1 then
		return 0
	end
	redis.call('SET', KEYS[2], '', 'PX', ARGV[1])
	return 1
`)

// GetMatchPost retrieves a match post from cache.
// Returns ErrCacheMiss if not found or if the entry cannot be decoded.
func (c *Cache) GetMatchPost(ctx context.Context, id int64) (*model.MatchPost, error) {
	key := matchPostKey(id)

	data, err := c.client.HGet(ctx, key, "data").Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrCacheMiss
		}
		return nil, fmt.Errorf("redis get failed: %w", err)
	}

	var post model.MatchPost
	if err := json.Unmarshal(data, &post); err != nil {
		// Corrupted entry: drop it and report a miss.
		c.client.Del(ctx, key)
		return nil, ErrCacheMiss
	}

	return &post, nil
}

// SetMatchPost caches post and clears any negative entry for its id. The
// write is skipped, without error, when the cache already holds a newer
// version or the id was deleted. A non-positive ttl falls back to
// DefaultMatchPostTTL.
func (c *Cache) SetMatchPost(ctx context.Context, post *model.MatchPost, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = DefaultMatchPostTTL
	}

	data, err := json.Marshal(post)
	if err != nil {
		return fmt.Errorf("marshal match post: %w", err)
	}

	key := matchPostKey(post.ID)
	keys := []string{key, key + negCacheKeySuffix, key + deletedKeySuffix}

	err = setMatchPostScript.Run(ctx, c.client, keys,
		data, post.UpdatedAt.UnixMicro(), ttl.Milliseconds()).Err()
	if err != nil {
		return fmt.Errorf("failed to cache match post: %w", err)
	}

	return nil
}

// EvictMatchPost drops the cached copy and negative entry for id.
func (c *Cache) EvictMatchPost(ctx context.Context, id int64) error {
	key := matchPostKey(id)

	if err := c.client.Del(ctx, key, key+negCacheKeySuffix).Err(); err != nil {
		return fmt.Errorf("failed to evict match post from cache: %w", err)
	}

	return nil
}

// MarkMatchPostDeleted drops the cached copy of id and records the delete,
// so reads that started earlier cannot cache the post again.
func (c *Cache) MarkMatchPostDeleted(ctx context.Context, id int64) error {
	key := matchPostKey(id)

	pipe := c.client.TxPipeline()
	pipe.Del(ctx, key, key+negCacheKeySuffix)
	pipe.Set(ctx, key+deletedKeySuffix, "", DeletedTTL)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to mark match post deleted: %w", err)
	}

	return nil
}

// IsNegativelyCached checks if a match post ID is known to be absent.
func (c *Cache) IsNegativelyCached(ctx context.Context, id int64) (bool, error) {
	key := matchPostKey(id)

	exists, err := c.client.Exists(ctx, key+negCacheKeySuffix, key+deletedKeySuffix).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check negative cache: %w", err)
	}

	return exists > 0, nil
}

// SetNegativeCache marks a match post ID as not found. It is a no-op when
// the post was cached after the lookup that missed.
func (c *Cache) SetNegativeCache(ctx context.Context, id int64) error {
	key := matchPostKey(id)

	err := setNegativeScript.Run(ctx, c.client, []string{key, key + negCacheKeySuffix},
		NegativeCacheTTL.Milliseconds()).Err()
	if err != nil {
		return fmt.Errorf("failed to set negative cache: %w", err)
	}

	return nil
}
