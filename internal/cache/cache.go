package cache

import (
	"strings"
	"time"
)

// Cache defines the interface for reference-data caching
type Cache interface {
	Get(key string) (any, bool)
	Set(key string, value any, ttl time.Duration)
	Delete(key string)
	Clear()
}

// Key builds a namespaced cache key from its parts
func Key(parts ...string) string {
	return "tenders:v1:" + strings.Join(parts, ":")
}
