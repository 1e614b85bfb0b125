package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/amirphl/storefront-campaigns/app/dto"
	"github.com/amirphl/storefront-campaigns/config"
	"github.com/amirphl/storefront-campaigns/utils"
	gocache "github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"
)

// AudienceCache stores audience previews per campaign so repeated previews skip segment resolution
type AudienceCache interface {
	// Get returns nil without error on a miss
	Get(ctx context.Context, campaignUUID string) (*dto.AudiencePreviewResponse, error)
	Set(ctx context.Context, campaignUUID string, preview *dto.AudiencePreviewResponse) error
	Invalidate(ctx context.Context, campaignUUID string) error
}

// NewAudienceCache returns a redis-backed cache when a client is available and a process-local one otherwise
func NewAudienceCache(cfg config.CacheConfig, rc *redis.Client) AudienceCache {
	if rc != nil {
		return NewRedisAudienceCache(rc, cfg.RedisPrefix, cfg.DefaultTTL)
	}
	return NewMemoryAudienceCache(cfg.DefaultTTL, cfg.CleanupInterval)
}

// redisKey joins the configured prefix with the key parts
func redisKey(prefix string, parts ...string) string {
	return prefix + strings.Join(parts, ":")
}

// RedisAudienceCache keeps previews in redis as JSON
type RedisAudienceCache struct {
	rc     *redis.Client
	prefix string
	ttl    time.Duration
}

func NewRedisAudienceCache(rc *redis.Client, prefix string, ttl time.Duration) *RedisAudienceCache {
	return &RedisAudienceCache{rc: rc, prefix: prefix, ttl: ttl}
}

func (c *RedisAudienceCache) key(campaignUUID string) string {
	return redisKey(c.prefix, utils.AudiencePreviewCacheKey, campaignUUID)
}

func (c *RedisAudienceCache) Get(ctx context.Context, campaignUUID string) (*dto.AudiencePreviewResponse, error) {
	bs, err := c.rc.Get(ctx, c.key(campaignUUID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read audience preview from redis: %w", err)
	}
	var out dto.AudiencePreviewResponse
	if err := json.Unmarshal(bs, &out); err != nil {
		// corrupt entry, treat as a miss
		_ = c.rc.Del(ctx, c.key(campaignUUID)).Err()
		return nil, nil
	}
	return &out, nil
}

func (c *RedisAudienceCache) Set(ctx context.Context, campaignUUID string, preview *dto.AudiencePreviewResponse) error {
	bs, err := json.Marshal(preview)
	if err != nil {
		return fmt.Errorf("failed to marshal audience preview: %w", err)
	}
	if err := c.rc.Set(ctx, c.key(campaignUUID), bs, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache audience preview: %w", err)
	}
	return nil
}

func (c *RedisAudienceCache) Invalidate(ctx context.Context, campaignUUID string) error {
	if err := c.rc.Del(ctx, c.key(campaignUUID)).Err(); err != nil {
		return fmt.Errorf("failed to invalidate audience preview: %w", err)
	}
	return nil
}

// MemoryAudienceCache keeps previews in process memory
type MemoryAudienceCache struct {
	store *gocache.Cache
}

func NewMemoryAudienceCache(ttl, cleanupInterval time.Duration) *MemoryAudienceCache {
	return &MemoryAudienceCache{store: gocache.New(ttl, cleanupInterval)}
}

func (c *MemoryAudienceCache) Get(ctx context.Context, campaignUUID string) (*dto.AudiencePreviewResponse, error) {
	v, ok := c.store.Get(campaignUUID)
	if !ok {
		return nil, nil
	}
	preview, ok := v.(dto.AudiencePreviewResponse)
	if !ok {
		return nil, nil
	}
	return &preview, nil
}

func (c *MemoryAudienceCache) Set(ctx context.Context, campaignUUID string, preview *dto.AudiencePreviewResponse) error {
	// store a copy so callers can't mutate the cached value
	c.store.SetDefault(campaignUUID, *preview)
	return nil
}

func (c *MemoryAudienceCache) Invalidate(ctx context.Context, campaignUUID string) error {
	c.store.Delete(campaignUUID)
	return nil
}
