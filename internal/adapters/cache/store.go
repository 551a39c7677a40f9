package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/devbush/poser/internal/domain"
	"github.com/devbush/poser/internal/ports"
)

// FileCache stores one directory per analysis ID holding a meta.json file
type FileCache struct {
	baseDir string
	now     func() time.Time
}

func NewFileCache(baseDir string) *FileCache {
	return &FileCache{
		baseDir: baseDir,
		now:     time.Now,
	}
}

type metaFile struct {
	Result    *domain.AnalysisResult `json:"result"`
	Files     map[string]string      `json:"files,omitempty"`
	CreatedAt time.Time              `json:"created_at"`
	ExpiresAt time.Time              `json:"expires_at"`
}

// validID rejects IDs that would escape the cache directory
func validID(id string) error {
	if id == "" || id == "." || id == ".." || strings.ContainsAny(id, `/\`) {
		return fmt.Errorf("invalid analysis id %q", id)
	}
	return nil
}

func (c *FileCache) GetCacheDir(id string) string {
	return filepath.Join(c.baseDir, id)
}

func (c *FileCache) metaPath(id string) string {
	return filepath.Join(c.GetCacheDir(id), "meta.json")
}

func (c *FileCache) Get(ctx context.Context, id string) (*ports.CachedResult, error) {
	if err := validID(id); err != nil {
		return nil, domain.ErrCacheMiss
	}

	data, err := os.ReadFile(c.metaPath(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, domain.ErrCacheMiss
		}
		return nil, err
	}

	var meta metaFile
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}

	if c.now().After(meta.ExpiresAt) {
		return nil, domain.ErrCacheExpired
	}

	return &ports.CachedResult{
		Result:    meta.Result,
		Files:     meta.Files,
		CreatedAt: meta.CreatedAt,
		ExpiresAt: meta.ExpiresAt,
	}, nil
}

func (c *FileCache) Set(ctx context.Context, id string, item *ports.CachedResult) error {
	if err := validID(id); err != nil {
		return err
	}

	cacheDir := c.GetCacheDir(id)
	if err := os.MkdirAll(cacheDir, 0755); err != nil {
		return err
	}

	meta := metaFile{
		Result:    item.Result,
		Files:     item.Files,
		CreatedAt: item.CreatedAt,
		ExpiresAt: item.ExpiresAt,
	}

	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return err
	}

	// Write then rename so a crash never leaves a truncated meta.json
	tmp := c.metaPath(id) + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return err
	}
	return os.Rename(tmp, c.metaPath(id))
}

func (c *FileCache) Delete(ctx context.Context, id string) error {
	if err := validID(id); err != nil {
		return err
	}
	return os.RemoveAll(c.GetCacheDir(id))
}

func (c *FileCache) CleanExpired(ctx context.Context) (int, error) {
	entries, err := os.ReadDir(c.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, err
	}

	cleaned := 0
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		id := entry.Name()
		_, err := c.Get(ctx, id)
		if errors.Is(err, domain.ErrCacheExpired) {
			if err := c.Delete(ctx, id); err == nil {
				cleaned++
			}
		}
	}

	return cleaned, nil
}

func (c *FileCache) Clear(ctx context.Context) error {
	entries, err := os.ReadDir(c.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	for _, entry := range entries {
		if entry.IsDir() {
			_ = os.RemoveAll(filepath.Join(c.baseDir, entry.Name()))
		}
	}

	return nil
}

func (c *FileCache) Stats(ctx context.Context) (itemCount int, totalSize int64, err error) {
	entries, err := os.ReadDir(c.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, 0, nil
		}
		return 0, 0, err
	}

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		itemCount++

		dirPath := filepath.Join(c.baseDir, entry.Name())
		_ = filepath.Walk(dirPath, func(path string, info os.FileInfo, err error) error {
			if err == nil && !info.IsDir() {
				totalSize += info.Size()
			}
			return nil
		})
	}

	return itemCount, totalSize, nil
}

var _ ports.ResultCache = (*FileCache)(nil)
