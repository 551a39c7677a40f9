package application

import (
	"context"

	"github.com/devbush/poser/internal/ports"
)

// CacheStats holds cache statistics
type CacheStats struct {
	ItemCount int
	TotalSize int64
}

// CacheService manages the local cache of finished analyses
type CacheService struct {
	cache ports.ResultCache
}

// NewCacheService creates a new cache service
func NewCacheService(cache ports.ResultCache) *CacheService {
	return &CacheService{cache: cache}
}

// Stats returns cache statistics
func (s *CacheService) Stats(ctx context.Context) (*CacheStats, error) {
	count, size, err := s.cache.Stats(ctx)
	if err != nil {
		return nil, err
	}
	return &CacheStats{ItemCount: count, TotalSize: size}, nil
}

// CleanExpired removes results past their TTL
func (s *CacheService) CleanExpired(ctx context.Context) (int, error) {
	return s.cache.CleanExpired(ctx)
}

// Forget drops one analysis from the cache
func (s *CacheService) Forget(ctx context.Context, id string) error {
	return s.cache.Delete(ctx, id)
}

// Clear removes all cache entries
func (s *CacheService) Clear(ctx context.Context) error {
	return s.cache.Clear(ctx)
}
