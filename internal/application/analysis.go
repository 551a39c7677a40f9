package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/devbush/poser/internal/domain"
	"github.com/devbush/poser/internal/ports"
)

// DefaultDownloadConcurrency limits parallel artifact downloads
const DefaultDownloadConcurrency = 4

// AnalysisView is one analysis together with the user's history
type AnalysisView struct {
	Result    *domain.AnalysisResult
	History   []domain.AnalysisSummary
	FromCache bool
}

// DownloadedFile is the outcome of one artifact download
type DownloadedFile struct {
	Artifact domain.Artifact
	Path     string
	Size     int64
	Duration time.Duration
	Err      error
}

// AnalysisService reads, downloads and deletes past analyses
type AnalysisService struct {
	api         ports.PoserAPI
	cache       ports.ResultCache
	cacheTTL    time.Duration
	concurrency int
	logger      *slog.Logger
	now         func() time.Time
}

// NewAnalysisService creates a new analysis service
func NewAnalysisService(
	api ports.PoserAPI,
	cache ports.ResultCache,
	cacheTTL time.Duration,
	logger *slog.Logger,
) *AnalysisService {
	if logger == nil {
		logger = slog.Default()
	}
	return &AnalysisService{
		api:         api,
		cache:       cache,
		cacheTTL:    cacheTTL,
		concurrency: DefaultDownloadConcurrency,
		logger:      logger,
		now:         time.Now,
	}
}

// SetConcurrency sets the number of parallel downloads (1..16)
func (s *AnalysisService) SetConcurrency(n int) {
	if n < 1 {
		n = 1
	}
	if n > 16 {
		n = 16
	}
	s.concurrency = n
}

// Get returns an analysis, preferring the cache for finished ones
func (s *AnalysisService) Get(ctx context.Context, id string, noCache bool) (*domain.AnalysisResult, bool, error) {
	if !noCache && s.cache != nil {
		cached, err := s.cache.Get(ctx, id)
		if err == nil && cached.Result != nil {
			return cached.Result, true, nil
		}
	}

	result, err := s.api.GetAnalysis(ctx, id)
	if err != nil {
		return nil, false, fmt.Errorf("get analysis %s: %w", id, err)
	}

	if result.Status.IsTerminal() && s.cache != nil {
		now := s.now()
		item := &ports.CachedResult{
			Result:    result,
			CreatedAt: now,
			ExpiresAt: now.Add(s.cacheTTL),
		}
		// Cache failures are non-fatal
		if err := s.cache.Set(ctx, id, item); err != nil {
			s.logger.Warn("failed to cache analysis", "analysis_id", id, "error", err)
		}
	}
	return result, false, nil
}

// Load fetches one analysis and the history list concurrently. A failing
// history request leaves History empty.
func (s *AnalysisService) Load(ctx context.Context, id string, noCache bool) (*AnalysisView, error) {
	view := &AnalysisView{}
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		result, fromCache, err := s.Get(gctx, id, noCache)
		if err != nil {
			return err
		}
		view.Result = result
		view.FromCache = fromCache
		return nil
	})

	g.Go(func() error {
		history, err := s.List(gctx)
		if err != nil {
			s.logger.Warn("failed to load history", "error", err)
			return nil
		}
		view.History = history
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return view, nil
}

// List returns past analyses, newest first
func (s *AnalysisService) List(ctx context.Context) ([]domain.AnalysisSummary, error) {
	list, err := s.api.ListAnalyses(ctx)
	if err != nil {
		return nil, fmt.Errorf("list analyses: %w", err)
	}
	sort.SliceStable(list, func(i, j int) bool {
		return list[i].CreatedAt.After(list[j].CreatedAt)
	})
	return list, nil
}

// Delete removes an analysis on the backend and from the cache
func (s *AnalysisService) Delete(ctx context.Context, id string) error {
	if err := s.api.DeleteAnalysis(ctx, id); err != nil {
		return fmt.Errorf("delete analysis %s: %w", id, err)
	}
	if s.cache != nil {
		if err := s.cache.Delete(ctx, id); err != nil {
			s.logger.Warn("failed to drop cached analysis", "analysis_id", id, "error", err)
		}
	}
	return nil
}

// ArtifactURL returns the direct URL of an artifact
func (s *AnalysisService) ArtifactURL(id string, a domain.Artifact) string {
	return s.api.ArtifactURL(id, a)
}

// Download fetches artifacts into destDir with bounded concurrency.
// onDone is called after each file, from the downloading goroutine.
// Every artifact is attempted; the returned error reports the failures.
func (s *AnalysisService) Download(
	ctx context.Context,
	id string,
	artifacts []domain.Artifact,
	destDir string,
	onDone func(DownloadedFile),
) ([]DownloadedFile, error) {
	if err := os.MkdirAll(destDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	results := make([]DownloadedFile, len(artifacts))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)

	for i, a := range artifacts {
		g.Go(func() error {
			res := s.downloadOne(gctx, id, a, destDir)

			mu.Lock()
			results[i] = res
			mu.Unlock()

			if onDone != nil {
				onDone(res)
			}
			return nil
		})
	}
	_ = g.Wait()

	var errs []error
	files := make(map[string]string)
	for _, r := range results {
		if r.Err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", r.Artifact.Filename, r.Err))
			continue
		}
		files[r.Artifact.Key] = r.Path
	}

	s.rememberFiles(ctx, id, files)
	return results, errors.Join(errs...)
}

func (s *AnalysisService) downloadOne(ctx context.Context, id string, a domain.Artifact, destDir string) DownloadedFile {
	start := s.now()
	if !domain.SafeFilename(a.Filename) {
		return DownloadedFile{Artifact: a, Err: fmt.Errorf("unsafe artifact file name %q", a.Filename)}
	}
	res := DownloadedFile{Artifact: a, Path: filepath.Join(destDir, a.Filename)}

	f, err := os.Create(res.Path)
	if err != nil {
		res.Err = err
		return res
	}

	n, err := s.api.DownloadArtifact(ctx, id, a, f)
	closeErr := f.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(res.Path)
		res.Err = err
	} else {
		res.Size = n
	}
	res.Duration = s.now().Sub(start)

	s.logger.Debug("artifact downloaded", "analysis_id", id, "file", a.Filename, "size", n, "error", err)
	return res
}

// rememberFiles records downloaded paths on the cached entry, if any
func (s *AnalysisService) rememberFiles(ctx context.Context, id string, files map[string]string) {
	if s.cache == nil || len(files) == 0 {
		return
	}
	cached, err := s.cache.Get(ctx, id)
	if err != nil {
		return
	}
	if cached.Files == nil {
		cached.Files = make(map[string]string)
	}
	for k, v := range files {
		cached.Files[k] = v
	}
	if err := s.cache.Set(ctx, id, cached); err != nil {
		s.logger.Warn("failed to update cached files", "analysis_id", id, "error", err)
	}
}

// SelectArtifacts filters the analysis artifacts by key. An empty key list
// selects all of them.
func SelectArtifacts(result *domain.AnalysisResult, keys []string) ([]domain.Artifact, error) {
	all := result.Artifacts()
	if len(keys) == 0 {
		return all, nil
	}

	byKey := make(map[string]domain.Artifact, len(all))
	for _, a := range all {
		byKey[a.Key] = a
	}

	selected := make([]domain.Artifact, 0, len(keys))
	for _, k := range keys {
		a, ok := byKey[k]
		if !ok {
			return nil, fmt.Errorf("analysis has no output named %q", k)
		}
		selected = append(selected, a)
	}
	return selected, nil
}

// Confirm redeems an email confirmation token
func (s *AnalysisService) Confirm(ctx context.Context, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return domain.ErrNoConfirmationToken
	}
	if err := s.api.ConfirmEmail(ctx, token); err != nil {
		return fmt.Errorf("confirm email: %w", err)
	}
	return nil
}
