package application

import (
	"context"
	"errors"
	"testing"

	"github.com/devbush/poser/internal/ports"
)

func TestCacheService_Stats(t *testing.T) {
	cache := &mockResultCache{
		itemCount: 5,
		totalSize: 1024 * 1024 * 10, // 10MB
	}
	svc := NewCacheService(cache)

	stats, err := svc.Stats(context.Background())
	if err != nil {
		t.Fatalf("Stats() error = %v", err)
	}
	if stats.ItemCount != 5 {
		t.Errorf("ItemCount = %d, want 5", stats.ItemCount)
	}
	if stats.TotalSize != 1024*1024*10 {
		t.Errorf("TotalSize = %d, want %d", stats.TotalSize, 1024*1024*10)
	}
}

func TestCacheService_Errors(t *testing.T) {
	expectedErr := errors.New("disk unavailable")

	tests := []struct {
		name  string
		cache *mockResultCache
		call  func(*CacheService) error
	}{
		{"stats", &mockResultCache{statsErr: expectedErr}, func(s *CacheService) error {
			_, err := s.Stats(context.Background())
			return err
		}},
		{"clean", &mockResultCache{cleanErr: expectedErr}, func(s *CacheService) error {
			_, err := s.CleanExpired(context.Background())
			return err
		}},
		{"clear", &mockResultCache{clearErr: expectedErr}, func(s *CacheService) error {
			return s.Clear(context.Background())
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.call(NewCacheService(tt.cache)); err != expectedErr {
				t.Errorf("error = %v, want %v", err, expectedErr)
			}
		})
	}
}

func TestCacheService_CleanExpired(t *testing.T) {
	svc := NewCacheService(&mockResultCache{cleanedCount: 3})

	count, err := svc.CleanExpired(context.Background())
	if err != nil {
		t.Fatalf("CleanExpired() error = %v", err)
	}
	if count != 3 {
		t.Errorf("CleanExpired() = %d, want 3", count)
	}
}

func TestCacheService_Forget(t *testing.T) {
	cache := &mockResultCache{items: map[string]*ports.CachedResult{"a1": {}}}
	svc := NewCacheService(cache)

	if err := svc.Forget(context.Background(), "a1"); err != nil {
		t.Fatalf("Forget() error = %v", err)
	}
	if len(cache.items) != 0 {
		t.Error("Forget() left the entry in place")
	}
}
