package redis

import (
	"context"
	"errors"
	"time"

	"github.com/Ramsey-B/fern/pkg/models"
)

// PoolCache keeps bulk match samples for a short time so repeated searches
// with the same filters skip the distinct-name scan. Redis failures are
// logged and treated as misses.
type PoolCache struct {
	client *Client
	ttl    time.Duration
	prefix string
}

func NewPoolCache(client *Client, ttl time.Duration) *PoolCache {
	return &PoolCache{
		client: client,
		ttl:    ttl,
		prefix: "fern:pool:",
	}
}

func (c *PoolCache) Get(ctx context.Context, key string) ([]models.PoolEntry, bool) {
	var entries []models.PoolEntry
	err := c.client.GetJSON(ctx, c.prefix+key, &entries)
	if errors.Is(err, ErrCacheMiss) {
		return nil, false
	}
	if err != nil {
		c.client.logger.WithContext(ctx).WithError(err).Warn("failed to read pool cache")
		return nil, false
	}
	return entries, true
}

func (c *PoolCache) Set(ctx context.Context, key string, entries []models.PoolEntry) {
	if err := c.client.SetJSON(ctx, c.prefix+key, entries, c.ttl); err != nil {
		c.client.logger.WithContext(ctx).WithError(err).Warn("failed to write pool cache")
	}
}
