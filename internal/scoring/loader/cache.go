// internal/scoring/loader/cache.go
package loader

import (
	"context"
	"sync"
	"time"

	"assessment-workers/internal/common/metrics"
	"assessment-workers/internal/scoring"
)

// CachedLoader wraps a Loader with a short-TTL in-memory cache. A
// refresh in flight is de-duplicated so at most one reload is
// outstanding; concurrent readers observe either the previous or the
// newly-loaded config, never a partially-built one. A failed refresh
// keeps serving the last-known-good config.
type CachedLoader struct {
	loader *Loader
	ttl    time.Duration

	mu       sync.Mutex
	cached   *scoring.Config
	loadedAt time.Time
	inflight chan struct{}
	loadErr  error

	now func() time.Time
}

func NewCached(loader *Loader, ttl time.Duration) *CachedLoader {
	return &CachedLoader{
		loader: loader,
		ttl:    ttl,
		now:    time.Now,
	}
}

// Load returns the cached config when fresh, otherwise triggers (or
// joins) a refresh.
func (c *CachedLoader) Load(ctx context.Context) (*scoring.Config, error) {
	c.mu.Lock()

	if c.cached != nil && c.now().Sub(c.loadedAt) < c.ttl {
		cfg := c.cached
		c.mu.Unlock()
		return cfg, nil
	}

	if c.inflight != nil {
		done := c.inflight
		c.mu.Unlock()

		select {
		case <-done:
		case <-ctx.Done():
			return nil, ctx.Err()
		}

		c.mu.Lock()
		cfg, err := c.cached, c.loadErr
		c.mu.Unlock()
		if cfg != nil {
			return cfg, nil
		}
		return nil, err
	}

	done := make(chan struct{})
	c.inflight = done
	stale := c.cached
	c.mu.Unlock()

	cfg, err := c.loader.LoadFresh(ctx)

	c.mu.Lock()
	defer func() {
		c.inflight = nil
		close(done)
		c.mu.Unlock()
	}()

	if err != nil {
		c.loadErr = err
		metrics.ScoringConfigReloads.WithLabelValues("failed").Inc()
		if stale != nil {
			// Serve last-known-good rather than propagate to live requests.
			c.loader.logger.Warn("scoring config refresh failed, serving last-known-good", map[string]interface{}{
				"error":     err.Error(),
				"loaded_at": c.loadedAt.UTC().Format(time.RFC3339),
			})
			return stale, nil
		}
		return nil, err
	}

	c.cached = cfg
	c.loadedAt = c.now()
	c.loadErr = nil
	metrics.ScoringConfigReloads.WithLabelValues("ok").Inc()
	return cfg, nil
}

// Invalidate clears the cache, forcing a fresh load on the next call.
func (c *CachedLoader) Invalidate() {
	c.mu.Lock()
	c.cached = nil
	c.loadedAt = time.Time{}
	c.mu.Unlock()
}
