package application

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/devbush/poser/internal/domain"
	"github.com/devbush/poser/internal/ports"
)

// mockAPI implements ports.PoserAPI for service testing
type mockAPI struct {
	mu sync.Mutex

	requestCodeErr error
	verifyErr      error
	token          *ports.TokenResponse
	uploadID       string
	uploadErr      error
	analysis       *domain.AnalysisResult
	analysisErr    error
	analyses       []domain.AnalysisSummary
	listErr        error
	deleteErr      error
	contactErr     error
	confirmErr     error
	artifactBody   map[string]string
	artifactErr    map[string]error

	// progress returns the snapshot for the n-th progress request (0-based)
	progress func(n int) (*domain.Progress, error)

	requestCodeCalls []string
	verifyCalls      [][2]string
	uploads          []ports.UploadRequest
	progressCalls    int
	analysisCalls    int
	deleteCalls      []string
	contacts         []*domain.ContactMessage
	confirmCalls     []string

	// block, when set, holds RequestCode/VerifyCode until closed
	block chan struct{}
}

func (m *mockAPI) wait(ctx context.Context) {
	if m.block == nil {
		return
	}
	select {
	case <-m.block:
	case <-ctx.Done():
	}
}

func (m *mockAPI) RequestCode(ctx context.Context, email string) error {
	m.mu.Lock()
	m.requestCodeCalls = append(m.requestCodeCalls, email)
	m.mu.Unlock()
	m.wait(ctx)
	return m.requestCodeErr
}

func (m *mockAPI) VerifyCode(ctx context.Context, email, code string) (*ports.TokenResponse, error) {
	m.mu.Lock()
	m.verifyCalls = append(m.verifyCalls, [2]string{email, code})
	m.mu.Unlock()
	m.wait(ctx)
	if m.verifyErr != nil {
		return nil, m.verifyErr
	}
	if m.token != nil {
		return m.token, nil
	}
	return &ports.TokenResponse{AccessToken: "tok-" + code, TokenType: "bearer"}, nil
}

func (m *mockAPI) UploadVideo(ctx context.Context, req ports.UploadRequest) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.uploads = append(m.uploads, req)
	if m.uploadErr != nil {
		return "", m.uploadErr
	}
	if m.uploadID == "" {
		return "analysis-1", nil
	}
	return m.uploadID, nil
}

func (m *mockAPI) GetProgress(ctx context.Context, id string) (*domain.Progress, error) {
	m.mu.Lock()
	n := m.progressCalls
	m.progressCalls++
	fn := m.progress
	m.mu.Unlock()
	if fn == nil {
		return nil, errors.New("no progress configured")
	}
	return fn(n)
}

func (m *mockAPI) GetAnalysis(ctx context.Context, id string) (*domain.AnalysisResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.analysisCalls++
	if m.analysisErr != nil {
		return nil, m.analysisErr
	}
	if m.analysis == nil {
		return &domain.AnalysisResult{ID: id, Status: domain.StatusComplete}, nil
	}
	a := *m.analysis
	return &a, nil
}

func (m *mockAPI) ListAnalyses(ctx context.Context) ([]domain.AnalysisSummary, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	return append([]domain.AnalysisSummary(nil), m.analyses...), nil
}

func (m *mockAPI) DeleteAnalysis(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleteCalls = append(m.deleteCalls, id)
	return m.deleteErr
}

func (m *mockAPI) ConfirmEmail(ctx context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.confirmCalls = append(m.confirmCalls, token)
	return m.confirmErr
}

func (m *mockAPI) ArtifactURL(id string, a domain.Artifact) string {
	return "http://api.test/api/analysis/" + id + "/files/" + a.Filename
}

func (m *mockAPI) DownloadArtifact(ctx context.Context, id string, a domain.Artifact, w io.Writer) (int64, error) {
	if err := m.artifactErr[a.Key]; err != nil {
		return 0, err
	}
	n, err := io.Copy(w, strings.NewReader(m.artifactBody[a.Key]))
	return n, err
}

func (m *mockAPI) SubmitContact(ctx context.Context, msg *domain.ContactMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.contacts = append(m.contacts, msg)
	return m.contactErr
}

func (m *mockAPI) progressRequests() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.progressCalls
}

func (m *mockAPI) analysisRequests() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.analysisCalls
}

func (m *mockAPI) setAnalysis(a *domain.AnalysisResult, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.analysis = a
	m.analysisErr = err
}

// memSessionStore implements ports.SessionStore in memory
type memSessionStore struct {
	stored  *ports.StoredSession
	saveErr error
	loadErr error
	cleared bool
}

func (m *memSessionStore) Load() (*ports.StoredSession, error) {
	return m.stored, m.loadErr
}

func (m *memSessionStore) Save(s *ports.StoredSession) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.stored = s
	return nil
}

func (m *memSessionStore) Clear() error {
	m.stored = nil
	m.cleared = true
	return nil
}

// mockInspector implements ports.MediaInspector from a fixed table
type mockInspector struct {
	files map[string]*ports.MediaInfo
}

func (m *mockInspector) Inspect(ctx context.Context, path string) (*ports.MediaInfo, error) {
	info, ok := m.files[path]
	if !ok {
		return nil, errors.New("no such file")
	}
	return info, nil
}

// mockPreviewer records created and revoked preview handles
type mockPreviewer struct {
	mu      sync.Mutex
	next    int
	created []string
	revoked map[string]int
}

func (m *mockPreviewer) Create(path string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.next++
	ref := fmt.Sprintf("%s#%d", path, m.next)
	m.created = append(m.created, ref)
	return ref, nil
}

func (m *mockPreviewer) Revoke(ref string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.revoked == nil {
		m.revoked = make(map[string]int)
	}
	m.revoked[ref]++
	return nil
}

func (m *mockPreviewer) revokeCount(ref string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.revoked[ref]
}

// mockPlayer records seeks and playback state
type mockPlayer struct {
	seeks   []float64
	playing bool
}

func (m *mockPlayer) Seek(ref string, seconds float64) error {
	m.seeks = append(m.seeks, seconds)
	return nil
}

func (m *mockPlayer) Play(ref string) error {
	m.playing = true
	return nil
}

func (m *mockPlayer) Pause(ref string) error {
	m.playing = false
	return nil
}

// mockTrimmer returns a fixed clip path
type mockTrimmer struct {
	available bool
	trimmed   []domain.TrimRange
}

func (m *mockTrimmer) Available() bool { return m.available }

func (m *mockTrimmer) Trim(ctx context.Context, path string, r domain.TrimRange, duration float64) (string, error) {
	m.trimmed = append(m.trimmed, r)
	return path + ".clip.mp4", nil
}

// mockResultCache implements ports.ResultCache in memory
type mockResultCache struct {
	mu           sync.Mutex
	items        map[string]*ports.CachedResult
	itemCount    int
	totalSize    int64
	cleanedCount int
	statsErr     error
	cleanErr     error
	clearErr     error
}

func (m *mockResultCache) Get(ctx context.Context, id string) (*ports.CachedResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	item, ok := m.items[id]
	if !ok {
		return nil, domain.ErrCacheMiss
	}
	return item, nil
}

func (m *mockResultCache) Set(ctx context.Context, id string, item *ports.CachedResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.items == nil {
		m.items = make(map[string]*ports.CachedResult)
	}
	m.items[id] = item
	return nil
}

func (m *mockResultCache) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.items, id)
	return nil
}

func (m *mockResultCache) CleanExpired(ctx context.Context) (int, error) {
	if m.cleanErr != nil {
		return 0, m.cleanErr
	}
	return m.cleanedCount, nil
}

func (m *mockResultCache) Clear(ctx context.Context) error {
	return m.clearErr
}

func (m *mockResultCache) GetCacheDir(id string) string {
	return "/tmp/cache/" + id
}

func (m *mockResultCache) Stats(ctx context.Context) (int, int64, error) {
	if m.statsErr != nil {
		return 0, 0, m.statsErr
	}
	return m.itemCount, m.totalSize, nil
}

// waitFor polls cond until it holds or the timeout expires
func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatal("condition not met before timeout")
}
