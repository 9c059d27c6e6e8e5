package taxonomy

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/kkotium-dot/kkotium-garden-sub001/internal/metrics"
	"github.com/kkotium-dot/kkotium-garden-sub001/internal/sourcing"
)

// DefaultRefreshInterval bounds how stale a served snapshot may get.
const DefaultRefreshInterval = 10 * time.Minute

// CacheConfig controls snapshot reloads.
type CacheConfig struct {
	RefreshInterval time.Duration
	DefaultOrigin   sourcing.OriginRegion
}

// Cache serves the current Snapshot and reloads it from the store on a coarse
// interval. Concurrent reloads collapse into one store read.
type Cache struct {
	store  sourcing.TaxonomyStore
	cfg    CacheConfig
	clock  sourcing.Clock
	logger *zap.Logger

	mu      sync.RWMutex
	current *Snapshot
	flight  singleflight.Group
}

// NewCache builds a Cache. Nothing is loaded until the first Snapshot call.
func NewCache(store sourcing.TaxonomyStore, cfg CacheConfig, clock sourcing.Clock, logger *zap.Logger) *Cache {
	if cfg.RefreshInterval <= 0 {
		cfg.RefreshInterval = DefaultRefreshInterval
	}
	if cfg.DefaultOrigin.Code == "" {
		cfg.DefaultOrigin = sourcing.OriginRegion{Code: DefaultOriginCode, Name: DefaultOriginRegion}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Cache{store: store, cfg: cfg, clock: clock, logger: logger}
}

// Snapshot returns a snapshot no older than the refresh interval when the
// store is reachable. A failed reload keeps serving the previous snapshot;
// only a failed first load is an error.
func (c *Cache) Snapshot(ctx context.Context) (*Snapshot, error) {
	c.mu.RLock()
	current := c.current
	c.mu.RUnlock()

	if current != nil && c.now().Sub(current.LoadedAt()) < c.cfg.RefreshInterval {
		return current, nil
	}
	snap, err := c.reload(ctx, false)
	if err != nil {
		if current != nil {
			c.logger.Warn("taxonomy reload failed; serving stale snapshot",
				zap.Time("loaded_at", current.LoadedAt()),
				zap.Error(err),
			)
			return current, nil
		}
		return nil, err
	}
	return snap, nil
}

// Refresh forces a reload regardless of snapshot age.
func (c *Cache) Refresh(ctx context.Context) error {
	_, err := c.reload(ctx, true)
	return err
}

func (c *Cache) reload(ctx context.Context, force bool) (*Snapshot, error) {
	v, err, _ := c.flight.Do("taxonomy", func() (any, error) {
		if !force {
			c.mu.RLock()
			current := c.current
			c.mu.RUnlock()
			if current != nil && c.now().Sub(current.LoadedAt()) < c.cfg.RefreshInterval {
				return current, nil
			}
		}
		categories, err := c.store.LoadCategories(ctx)
		if err != nil {
			return nil, fmt.Errorf("load categories: %w", err)
		}
		origins, err := c.store.LoadOrigins(ctx)
		if err != nil {
			return nil, fmt.Errorf("load origins: %w", err)
		}
		snap := NewSnapshot(categories, origins, c.now()).WithDefaultOrigin(c.cfg.DefaultOrigin)

		c.mu.Lock()
		c.current = snap
		c.mu.Unlock()

		c.logger.Info("taxonomy snapshot loaded",
			zap.Int("categories", len(categories)),
			zap.Int("origins", len(origins)),
		)
		return snap, nil
	})
	metrics.ObserveTaxonomyReload(err)
	if err != nil {
		return nil, fmt.Errorf("reload taxonomy: %w", err)
	}
	return v.(*Snapshot), nil
}

func (c *Cache) now() time.Time {
	if c.clock == nil {
		return time.Now().UTC()
	}
	return c.clock.Now()
}
