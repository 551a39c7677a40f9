package application

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/devbush/poser/internal/domain"
	"github.com/devbush/poser/internal/ports"
)

func sampleResult() *domain.AnalysisResult {
	return &domain.AnalysisResult{
		ID:     "a1",
		Status: domain.StatusComplete,
		Results: &domain.AnalysisOutput{Outputs: map[string]string{
			"joint_angles": "out/a1/angles.csv",
			"pose_video":   "out/a1/pose.mp4",
			"skeleton":     "out/a1/model.glb",
		}},
	}
}

func TestAnalysisService_GetCachesFinished(t *testing.T) {
	api := &mockAPI{analysis: sampleResult()}
	cache := &mockResultCache{}
	svc := NewAnalysisService(api, cache, time.Hour, nil)
	ctx := context.Background()

	_, fromCache, err := svc.Get(ctx, "a1", false)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if fromCache {
		t.Error("first Get() should not come from cache")
	}

	_, fromCache, err = svc.Get(ctx, "a1", false)
	if err != nil || !fromCache {
		t.Errorf("second Get() fromCache = %v, err = %v; want cached", fromCache, err)
	}
	if api.analysisCalls != 1 {
		t.Errorf("API calls = %d, want 1", api.analysisCalls)
	}

	_, fromCache, _ = svc.Get(ctx, "a1", true)
	if fromCache || api.analysisCalls != 2 {
		t.Error("noCache should bypass the cache")
	}
}

func TestAnalysisService_GetDoesNotCacheRunning(t *testing.T) {
	api := &mockAPI{analysis: &domain.AnalysisResult{ID: "a1", Status: domain.StatusProcessing}}
	cache := &mockResultCache{}
	svc := NewAnalysisService(api, cache, time.Hour, nil)

	_, _, _ = svc.Get(context.Background(), "a1", false)
	if len(cache.items) != 0 {
		t.Error("running analysis was cached")
	}
}

func TestAnalysisService_Load(t *testing.T) {
	older := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	newer := older.Add(24 * time.Hour)

	tests := []struct {
		name        string
		api         *mockAPI
		wantErr     bool
		wantHistory int
	}{
		{
			name: "both succeed",
			api: &mockAPI{analysis: sampleResult(), analyses: []domain.AnalysisSummary{
				{ID: "old", CreatedAt: older}, {ID: "new", CreatedAt: newer},
			}},
			wantHistory: 2,
		},
		{
			name:        "history failure is tolerated",
			api:         &mockAPI{analysis: sampleResult(), listErr: errors.New("boom")},
			wantHistory: 0,
		},
		{
			name:    "analysis failure fails",
			api:     &mockAPI{analysisErr: &domain.APIError{StatusCode: 404, Detail: "Analysis not found"}},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewAnalysisService(tt.api, nil, time.Hour, nil)
			view, err := svc.Load(context.Background(), "a1", false)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Load() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				return
			}
			if view.Result == nil {
				t.Error("Result is nil")
			}
			if len(view.History) != tt.wantHistory {
				t.Errorf("History = %d entries, want %d", len(view.History), tt.wantHistory)
			}
			if tt.wantHistory == 2 && view.History[0].ID != "new" {
				t.Errorf("History not sorted newest first: %v", view.History)
			}
		})
	}
}

func TestAnalysisService_Delete(t *testing.T) {
	api := &mockAPI{}
	cache := &mockResultCache{items: map[string]*ports.CachedResult{"a1": {Result: sampleResult()}}}
	svc := NewAnalysisService(api, cache, time.Hour, nil)

	if err := svc.Delete(context.Background(), "a1"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if len(api.deleteCalls) != 1 {
		t.Errorf("delete calls = %v", api.deleteCalls)
	}
	if _, ok := cache.items["a1"]; ok {
		t.Error("cached entry not removed")
	}

	api.deleteErr = &domain.APIError{StatusCode: 403, Detail: "Forbidden"}
	err := svc.Delete(context.Background(), "a2")
	var apiErr *domain.APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != 403 {
		t.Errorf("Delete() = %v, want wrapped APIError", err)
	}
}

func TestAnalysisService_Download(t *testing.T) {
	result := sampleResult()
	api := &mockAPI{
		artifactBody: map[string]string{
			"joint_angles": "frame,angle\n1,12.5\n",
			"skeleton":     "glTF",
		},
		artifactErr: map[string]error{"pose_video": &domain.APIError{StatusCode: 404}},
	}
	cache := &mockResultCache{items: map[string]*ports.CachedResult{"a1": {Result: result}}}
	svc := NewAnalysisService(api, cache, time.Hour, nil)
	svc.SetConcurrency(2)
	dir := t.TempDir()

	var done atomic.Int32
	files, err := svc.Download(context.Background(), "a1", result.Artifacts(), dir, func(DownloadedFile) { done.Add(1) })

	if err == nil {
		t.Fatal("Download() expected error for missing artifact")
	}
	if done.Load() != 3 || len(files) != 3 {
		t.Errorf("callbacks = %d, files = %d; want 3 each", done.Load(), len(files))
	}

	data, readErr := os.ReadFile(filepath.Join(dir, "angles.csv"))
	if readErr != nil || string(data) != "frame,angle\n1,12.5\n" {
		t.Errorf("angles.csv = %q, %v", data, readErr)
	}
	if _, statErr := os.Stat(filepath.Join(dir, "pose.mp4")); !os.IsNotExist(statErr) {
		t.Error("failed download left a partial file")
	}

	cached := cache.items["a1"]
	if cached.Files["joint_angles"] != filepath.Join(dir, "angles.csv") {
		t.Errorf("cached files = %v", cached.Files)
	}
	if _, ok := cached.Files["pose_video"]; ok {
		t.Error("failed artifact recorded in cache")
	}
}

func TestAnalysisService_DownloadRejectsEscapingNames(t *testing.T) {
	api := &mockAPI{artifactBody: map[string]string{"evil": "x"}}
	svc := NewAnalysisService(api, &mockResultCache{items: map[string]*ports.CachedResult{}}, time.Hour, nil)
	root := t.TempDir()
	dest := filepath.Join(root, "downloads")

	tests := []struct {
		name     string
		filename string
	}{
		{"parent", ".."},
		{"nested parent", "../escape.txt"},
		{"absolute", "/tmp/escape.txt"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := domain.Artifact{Key: "evil", Path: "out/evil", Filename: tt.filename}
			files, err := svc.Download(context.Background(), "a1", []domain.Artifact{a}, dest, nil)
			if err == nil {
				t.Fatal("Download() expected error for unsafe file name")
			}
			if len(files) != 1 || files[0].Err == nil || files[0].Path != "" {
				t.Errorf("files = %+v, want one failed entry without a path", files)
			}
			if _, statErr := os.Stat(filepath.Join(root, "escape.txt")); !os.IsNotExist(statErr) {
				t.Error("file written outside the download directory")
			}
		})
	}
}

func TestSelectArtifacts(t *testing.T) {
	result := sampleResult()

	all, err := SelectArtifacts(result, nil)
	if err != nil || len(all) != 3 {
		t.Errorf("SelectArtifacts(nil) = %d, %v; want all 3", len(all), err)
	}

	some, err := SelectArtifacts(result, []string{"skeleton"})
	if err != nil || len(some) != 1 || some[0].Filename != "model.glb" {
		t.Errorf("SelectArtifacts(skeleton) = %+v, %v", some, err)
	}

	if _, err := SelectArtifacts(result, []string{"heatmap"}); err == nil {
		t.Error("SelectArtifacts(unknown) expected error")
	}
}

func TestAnalysisService_SetConcurrencyBounds(t *testing.T) {
	svc := NewAnalysisService(&mockAPI{}, nil, time.Hour, nil)

	svc.SetConcurrency(0)
	if svc.concurrency != 1 {
		t.Errorf("concurrency = %d, want 1", svc.concurrency)
	}
	svc.SetConcurrency(100)
	if svc.concurrency != 16 {
		t.Errorf("concurrency = %d, want 16", svc.concurrency)
	}
}

func TestAnalysisService_Confirm(t *testing.T) {
	api := &mockAPI{}
	svc := NewAnalysisService(api, nil, time.Hour, nil)

	if err := svc.Confirm(context.Background(), "  "); !errors.Is(err, domain.ErrNoConfirmationToken) {
		t.Errorf("Confirm(empty) = %v, want ErrNoConfirmationToken", err)
	}
	if err := svc.Confirm(context.Background(), " tok-1 "); err != nil {
		t.Fatalf("Confirm() error = %v", err)
	}
	if len(api.confirmCalls) != 1 || api.confirmCalls[0] != "tok-1" {
		t.Errorf("confirm calls = %v", api.confirmCalls)
	}

	api.confirmErr = &domain.APIError{StatusCode: 400, Detail: "Token is invalid or has expired."}
	err := svc.Confirm(context.Background(), "fail-1")
	if got := domain.UserMessage(err, "x"); got != "Token is invalid or has expired." {
		t.Errorf("UserMessage() = %q", got)
	}
}
