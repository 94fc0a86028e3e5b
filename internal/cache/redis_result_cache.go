package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/OthmaneWahbi/gab-flow-insights/internal/config"
	"github.com/OthmaneWahbi/gab-flow-insights/internal/domain"
)

const (
	uploadKeyPrefix = "replenishment:upload:"
	ownerKeyPrefix  = "replenishment:owner:"
	deleteBatchSize = 100
)

// redisResultCache shares entries between instances. Each instance records
// the keys it wrote in its own owner set so Close removes only those.
type redisResultCache struct {
	client   *redis.Client
	ttl      time.Duration
	instance string
}

// NewRedisResultCache connects to redis and returns a cache storing JSON
// entries under replenishment:upload:<id>.
func NewRedisResultCache(cfg config.CacheConfig) (ResultCache, error) {
	client, ttl, err := newRedisClient(cfg)
	if err != nil {
		return nil, err
	}
	return &redisResultCache{client: client, ttl: ttl, instance: uuid.NewString()}, nil
}

func uploadKey(id domain.UploadID) string {
	return uploadKeyPrefix + id.String()
}

func ownerKey(instance string) string {
	return ownerKeyPrefix + instance
}

func (c *redisResultCache) Put(ctx context.Context, id domain.UploadID, entry *domain.CacheEntry) error {
	if entry == nil {
		return fmt.Errorf("nil cache entry for upload %s", id)
	}
	payload, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encode cache entry: %w", err)
	}

	key := uploadKey(id)
	_, err = c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, key, payload, c.ttl)
		pipe.SAdd(ctx, ownerKey(c.instance), key)
		if c.ttl > 0 {
			pipe.Expire(ctx, ownerKey(c.instance), c.ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (c *redisResultCache) Get(ctx context.Context, id domain.UploadID) (*domain.CacheEntry, bool, error) {
	payload, err := c.client.Get(ctx, uploadKey(id)).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get failed: %w", err)
	}

	var entry domain.CacheEntry
	if err := json.Unmarshal(payload, &entry); err != nil {
		return nil, false, fmt.Errorf("decode cache entry: %w", err)
	}
	return &entry, true, nil
}

// Close deletes the entries this instance wrote, then its owner set, and
// closes the client. Entries written by other instances are left alone.
func (c *redisResultCache) Close(ctx context.Context) error {
	delErr := deleteSetMembers(ctx, c.client, ownerKey(c.instance), deleteBatchSize)
	if err := c.client.Close(); err != nil && delErr == nil {
		return fmt.Errorf("redis close failed: %w", err)
	}
	return delErr
}
