// internal/cache/cache.go
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// ErrNotFound is returned by a Store when no value exists for a key.
var ErrNotFound = errors.New("cache: key not found")

// Store is a raw key-value medium. Implementations must be safe for concurrent use;
// concurrent writes to the same key are last-writer-wins.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

// entry is the persisted envelope: {"timestamp": <unix ms>, "data": <payload>}.
type entry struct {
	Timestamp int64           `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
}

// Cache stores JSON payloads in a Store with a write timestamp and serves them
// only while they are younger than the caller's maxAge.
type Cache struct {
	store  Store
	logger *slog.Logger
	now    func() time.Time
}

// Option configures a Cache.
type Option func(*Cache)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) {
		c.now = now
	}
}

// New creates a Cache backed by store.
func New(store Store, logger *slog.Logger, opts ...Option) *Cache {
	c := &Cache{
		store:  store,
		logger: logger,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Key builds the "{namespace}_{subject}" key used for every entry.
func Key(namespace, subject string) string {
	return namespace + "_" + subject
}

// Get decodes the payload stored under key into dst. It returns false when the
// key is absent, the entry cannot be parsed, or the entry is at least maxAge old.
// Unparsable entries are removed; expired ones are left for the next Set to
// overwrite.
func (c *Cache) Get(ctx context.Context, key string, maxAge time.Duration, dst any) bool {
	raw, err := c.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			c.logger.Warn("Cache read failed, treating as miss", "key", key, "error", err)
		}
		return false
	}

	var e entry
	if err := json.Unmarshal(raw, &e); err != nil || len(e.Data) == 0 || string(e.Data) == "null" {
		// A Set landing between the read and this delete is lost; the next
		// miss rewrites it.
		c.logger.Warn("Discarding corrupt cache entry", "key", key)
		c.evict(ctx, key)
		return false
	}

	age := c.now().Sub(time.UnixMilli(e.Timestamp))
	if age >= maxAge {
		c.logger.Debug("Cache entry expired", "key", key, "age", age.String())
		return false
	}

	if err := json.Unmarshal(e.Data, dst); err != nil {
		c.logger.Warn("Discarding undecodable cache payload", "key", key, "error", err)
		c.evict(ctx, key)
		return false
	}
	return true
}

// Set stores value under key, stamped with the current time.
func (c *Cache) Set(ctx context.Context, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encoding cache payload for %s: %w", key, err)
	}
	raw, err := json.Marshal(entry{Timestamp: c.now().UnixMilli(), Data: data})
	if err != nil {
		return fmt.Errorf("encoding cache entry for %s: %w", key, err)
	}
	return c.store.Set(ctx, key, raw)
}

func (c *Cache) evict(ctx context.Context, key string) {
	if err := c.store.Delete(ctx, key); err != nil && !errors.Is(err, ErrNotFound) {
		c.logger.Warn("Failed to evict cache entry", "key", key, "error", err)
	}
}
