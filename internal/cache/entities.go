package cache

import (
	"context"
	"time"

	"github.com/d-saikrishna/assam-tenders/internal/model"
)

// EntitySource loads the persisted canonical entities
type EntitySource interface {
	Entities(ctx context.Context) ([]model.Entity, error)
}

// EntityCache serves the entity list across files of a batch run.
// Callers must Invalidate after appending entities.
type EntityCache struct {
	source EntitySource
	cache  Cache
	ttl    time.Duration
	key    string
}

// NewEntityCache wraps source with c; a nil cache disables caching
func NewEntityCache(source EntitySource, c Cache, ttl time.Duration) *EntityCache {
	return &EntityCache{
		source: source,
		cache:  c,
		ttl:    ttl,
		key:    Key("entities"),
	}
}

// Entities returns the cached entity list, loading it on a miss
func (e *EntityCache) Entities(ctx context.Context) ([]model.Entity, error) {
	if e.cache != nil {
		if v, ok := e.cache.Get(e.key); ok {
			return v.([]model.Entity), nil
		}
	}

	entities, err := e.source.Entities(ctx)
	if err != nil {
		return nil, err
	}

	if e.cache != nil {
		e.cache.Set(e.key, entities, e.ttl)
	}
	return entities, nil
}

// Invalidate drops the cached entity list
func (e *EntityCache) Invalidate() {
	if e.cache != nil {
		e.cache.Delete(e.key)
	}
}
