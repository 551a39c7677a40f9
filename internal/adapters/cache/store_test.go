package cache

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/devbush/poser/internal/domain"
	"github.com/devbush/poser/internal/ports"
)

func completeResult(id string) *domain.AnalysisResult {
	return &domain.AnalysisResult{
		ID:     id,
		Status: domain.StatusComplete,
		Results: &domain.AnalysisOutput{
			Outputs: map[string]string{"video": "/outputs/" + id + "/annotated.mp4"},
			Metrics: &domain.Metrics{TotalFrames: 240},
		},
	}
}

func TestFileCache_SetGet(t *testing.T) {
	tmpDir := t.TempDir()
	cache := NewFileCache(tmpDir)

	ctx := context.Background()
	item := &ports.CachedResult{
		Result:    completeResult("a1"),
		Files:     map[string]string{"video": "/tmp/annotated.mp4"},
		CreatedAt: time.Now(),
		ExpiresAt: time.Now().Add(24 * time.Hour),
	}

	err := cache.Set(ctx, "a1", item)
	if err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	got, err := cache.Get(ctx, "a1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}

	if got.Result.ID != "a1" {
		t.Errorf("Get() result ID = %s, want a1", got.Result.ID)
	}
	if got.Result.Status != domain.StatusComplete {
		t.Errorf("Get() status = %s, want complete", got.Result.Status)
	}
	if got.Result.Results.Metrics.TotalFrames != 240 {
		t.Errorf("Get() total frames = %d, want 240", got.Result.Results.Metrics.TotalFrames)
	}
	if got.Files["video"] != "/tmp/annotated.mp4" {
		t.Errorf("Get() files = %v", got.Files)
	}

	if _, err := os.Stat(cache.metaPath("a1") + ".tmp"); !os.IsNotExist(err) {
		t.Error("temporary file should not remain after Set()")
	}
}

func TestFileCache_GetMiss(t *testing.T) {
	tmpDir := t.TempDir()
	cache := NewFileCache(tmpDir)

	ctx := context.Background()
	_, err := cache.Get(ctx, "nonexistent")

	if !errors.Is(err, domain.ErrCacheMiss) {
		t.Errorf("Get() error = %v, want ErrCacheMiss", err)
	}
}

func TestFileCache_GetExpired(t *testing.T) {
	tmpDir := t.TempDir()
	cache := NewFileCache(tmpDir)

	ctx := context.Background()
	item := &ports.CachedResult{
		Result:    completeResult("expired123"),
		CreatedAt: time.Now().Add(-48 * time.Hour),
		ExpiresAt: time.Now().Add(-24 * time.Hour),
	}

	_ = cache.Set(ctx, "expired123", item)

	_, err := cache.Get(ctx, "expired123")
	if !errors.Is(err, domain.ErrCacheExpired) {
		t.Errorf("Get() error = %v, want ErrCacheExpired", err)
	}
}

func TestFileCache_InvalidIDs(t *testing.T) {
	cache := NewFileCache(t.TempDir())
	ctx := context.Background()
	item := &ports.CachedResult{Result: completeResult("x"), ExpiresAt: time.Now().Add(time.Hour)}

	for _, id := range []string{"", ".", "..", "../escape", `a\b`} {
		if err := cache.Set(ctx, id, item); err == nil {
			t.Errorf("Set(%q) should fail", id)
		}
		if _, err := cache.Get(ctx, id); !errors.Is(err, domain.ErrCacheMiss) {
			t.Errorf("Get(%q) error = %v, want ErrCacheMiss", id, err)
		}
	}
}

func TestFileCache_CleanExpired(t *testing.T) {
	tmpDir := t.TempDir()
	cache := NewFileCache(tmpDir)

	ctx := context.Background()

	_ = cache.Set(ctx, "willexpire", &ports.CachedResult{
		Result:    completeResult("willexpire"),
		CreatedAt: time.Now().Add(-1 * time.Hour),
		ExpiresAt: time.Now().Add(-1 * time.Minute),
	})
	_ = cache.Set(ctx, "fresh", &ports.CachedResult{
		Result:    completeResult("fresh"),
		CreatedAt: time.Now(),
		ExpiresAt: time.Now().Add(time.Hour),
	})

	cleaned, err := cache.CleanExpired(ctx)
	if err != nil {
		t.Fatalf("CleanExpired() error = %v", err)
	}

	if cleaned != 1 {
		t.Errorf("CleanExpired() = %d, want 1", cleaned)
	}
	if _, err := cache.Get(ctx, "fresh"); err != nil {
		t.Errorf("fresh entry should survive: %v", err)
	}
}

func TestFileCache_StatsAndClear(t *testing.T) {
	cache := NewFileCache(t.TempDir())
	ctx := context.Background()

	for _, id := range []string{"a", "b"} {
		_ = cache.Set(ctx, id, &ports.CachedResult{Result: completeResult(id), ExpiresAt: time.Now().Add(time.Hour)})
	}

	count, size, err := cache.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats() error = %v", err)
	}
	if count != 2 || size == 0 {
		t.Errorf("Stats() = %d items, %d bytes", count, size)
	}

	if err := cache.Clear(ctx); err != nil {
		t.Fatalf("Clear() error = %v", err)
	}
	if count, _, _ := cache.Stats(ctx); count != 0 {
		t.Errorf("Stats() after Clear = %d items, want 0", count)
	}
}

func TestFileCache_MissingBaseDir(t *testing.T) {
	cache := NewFileCache(t.TempDir() + "/none")
	ctx := context.Background()

	if n, err := cache.CleanExpired(ctx); n != 0 || err != nil {
		t.Errorf("CleanExpired() = %d, %v", n, err)
	}
	if err := cache.Clear(ctx); err != nil {
		t.Errorf("Clear() error = %v", err)
	}
}
