// Package cache provides in-memory caching decorators for slow-changing
// lookups.
package cache

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/couchcryptid/crop-risk-service/internal/domain"
	"github.com/couchcryptid/crop-risk-service/internal/observability"
)

// DefinitionSource is the backing store for crop definitions.
type DefinitionSource interface {
	GetDefinition(ctx context.Context, code string) (*domain.CropDefinition, error)
	ListDefinitions(ctx context.Context, activeOnly bool) ([]domain.CropDefinition, error)
}

// Definitions wraps a DefinitionSource with an expiring LRU keyed by crop code.
// Lookups that fail are not cached.
type Definitions struct {
	inner   DefinitionSource
	lru     *expirable.LRU[string, *domain.CropDefinition]
	metrics *observability.Metrics
}

// NewDefinitions creates a cache holding at most size definitions for ttl.
func NewDefinitions(inner DefinitionSource, size int, ttl time.Duration, metrics *observability.Metrics) *Definitions {
	return &Definitions{
		inner:   inner,
		lru:     expirable.NewLRU[string, *domain.CropDefinition](size, nil, ttl),
		metrics: metrics,
	}
}

// GetDefinition returns the cached definition or loads it from the source.
// Callers must treat the result as read-only.
func (d *Definitions) GetDefinition(ctx context.Context, code string) (*domain.CropDefinition, error) {
	if def, ok := d.lru.Get(code); ok {
		d.metrics.DefinitionCache.WithLabelValues("hit").Inc()
		return def, nil
	}
	d.metrics.DefinitionCache.WithLabelValues("miss").Inc()

	def, err := d.inner.GetDefinition(ctx, code)
	if err != nil {
		return nil, err
	}
	d.lru.Add(code, def)
	return def, nil
}

// ListDefinitions reads through to the source and refreshes the cache with
// the returned definitions.
func (d *Definitions) ListDefinitions(ctx context.Context, activeOnly bool) ([]domain.CropDefinition, error) {
	defs, err := d.inner.ListDefinitions(ctx, activeOnly)
	if err != nil {
		return nil, err
	}
	for i := range defs {
		def := defs[i]
		d.lru.Add(def.Code, &def)
	}
	return defs, nil
}

// Invalidate drops a single definition, or everything when code is empty.
func (d *Definitions) Invalidate(code string) {
	if code == "" {
		d.lru.Purge()
		return
	}
	d.lru.Remove(code)
}
