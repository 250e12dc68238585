package app

import (
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/gatehouse-dev/gatehouse/internal/cache"
)

// Cache backend names accepted in configuration.
const (
	CacheBackendMemory   = "memory"
	CacheBackendDatabase = "database"
)

// NewStore builds the cache backend selected by the configuration. The
// database backend keeps counters and sweep markers across restarts at the
// cost of a table round trip per hit.
func (c CacheConfig) NewStore(db *gorm.DB) (cache.Store, error) {
	switch strings.ToLower(strings.TrimSpace(c.Backend)) {
	case "", CacheBackendMemory:
		return cache.NewMemoryStore(), nil
	case CacheBackendDatabase:
		if db == nil {
			return nil, fmt.Errorf("cache backend %q requires an open database", c.Backend)
		}
		return cache.NewDatabaseStore(db), nil
	default:
		return nil, fmt.Errorf("unknown cache backend %q", c.Backend)
	}
}
