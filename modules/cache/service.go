// Package cache keeps bug reads in Redis behind a mono plugin.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-monolith/mono/pkg/storage"
	"github.com/go-monolith/mono/pkg/types"
)

// CacheService is the JSON cache the bug service reads through. Get reports a
// miss as (false, nil).
type CacheService interface {
	Get(ctx context.Context, key string, dest any) (bool, error)
	Set(ctx context.Context, key string, value any) error
	SetWithTTL(ctx context.Context, key string, value any, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	Close() error
}

type cacheService struct {
	storage storage.Storage
	prefix  string
	ttl     time.Duration
	logger  types.Logger
}

// NewCacheService namespaces every key of s under prefix.
func NewCacheService(s storage.Storage, prefix string, ttl time.Duration, logger types.Logger) CacheService {
	return &cacheService{
		storage: s,
		prefix:  prefix,
		ttl:     ttl,
		logger:  logger,
	}
}

func (c *cacheService) key(k string) string {
	return c.prefix + k
}

func (c *cacheService) Get(ctx context.Context, key string, dest any) (bool, error) {
	data, err := c.storage.GetWithContext(ctx, c.key(key))
	switch {
	case err != nil:
		return false, fmt.Errorf("read %q: %w", key, err)
	case len(data) == 0:
		c.logger.Debug("Cache miss", "key", key)
		return false, nil
	}

	if err := json.Unmarshal(data, dest); err != nil {
		return false, fmt.Errorf("decode %q: %w", key, err)
	}
	c.logger.Debug("Cache hit", "key", key)
	return true, nil
}

func (c *cacheService) Set(ctx context.Context, key string, value any) error {
	return c.SetWithTTL(ctx, key, value, c.ttl)
}

func (c *cacheService) SetWithTTL(ctx context.Context, key string, value any, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %q: %w", key, err)
	}
	if err := c.storage.SetWithContext(ctx, c.key(key), data, ttl); err != nil {
		return fmt.Errorf("write %q: %w", key, err)
	}
	return nil
}

// Delete attempts every key and returns the joined failures.
func (c *cacheService) Delete(ctx context.Context, keys ...string) error {
	var errs []error
	for _, key := range keys {
		if err := c.storage.DeleteWithContext(ctx, c.key(key)); err != nil {
			errs = append(errs, fmt.Errorf("delete %q: %w", key, err))
		}
	}
	return errors.Join(errs...)
}

func (c *cacheService) Close() error {
	return c.storage.Close()
}
