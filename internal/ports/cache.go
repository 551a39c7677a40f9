package ports

import (
	"context"
	"time"

	"github.com/devbush/poser/internal/domain"
)

// CachedResult is a completed analysis kept on disk.
type CachedResult struct {
	Result    *domain.AnalysisResult
	Files     map[string]string // artifact key -> downloaded file path
	CreatedAt time.Time         // when this item was cached
	ExpiresAt time.Time         // when this item should be considered stale
}

// ResultCache handles persistent caching of finished analyses.
type ResultCache interface {
	// Get retrieves a cached result by analysis ID.
	// Returns domain.ErrCacheMiss or domain.ErrCacheExpired when unusable.
	Get(ctx context.Context, id string) (*CachedResult, error)

	// Set stores a result in the cache.
	Set(ctx context.Context, id string, item *CachedResult) error

	// Delete removes a specific result from the cache.
	Delete(ctx context.Context, id string) error

	// CleanExpired removes all expired items and returns the count removed.
	CleanExpired(ctx context.Context) (int, error)

	// Clear removes all cached items.
	Clear(ctx context.Context) error

	// GetCacheDir returns the cache directory path for a given analysis ID.
	GetCacheDir(id string) string

	// Stats returns cache statistics: item count and total size in bytes.
	Stats(ctx context.Context) (itemCount int, totalSize int64, err error)
}
