package devserver

import (
	"errors"
	"fmt"
	"hash/fnv"
	"math"
	"math/rand/v2"
	"mime"
	"net/http"
	"path"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"

	"github.com/devbush/poser/internal/domain"
)

const (
	maxUploadMemory = 32 << 20
	// multipartOverhead covers the form fields and part headers around the file
	multipartOverhead = 1 << 20
	uploadTooLarge    = "File too large. Maximum size is 500MB."

	maxClipSeconds   = domain.MaxTrimSeconds + 0.001
	framesPerSecond  = 30
	failedStageIndex = 1
	failureLog       = "decode error"
)

// outputFiles are the artifacts of every completed analysis, by output key
var outputFiles = map[string]string{
	"annotated_video": "annotated.mp4",
	"metrics_csv":     "metrics.csv",
	"pose_overlay":    "overlay.png",
	"skeleton":        "skeleton.glb",
	"viewer":          "viewer.html",
}

type analysis struct {
	ID        string
	Email     string
	Filename  string
	Size      int64
	TrimStart *float64
	TrimEnd   *float64
	fail      bool

	createdAt   time.Time
	confirmedAt time.Time // zero while awaiting confirmation
}

// snapshot is the state of an analysis at one instant
type snapshot struct {
	status    domain.AnalysisStatus
	stage     int // index into domain.StageNames
	progress  float64
	remaining time.Duration
}

func (a *analysis) clipSeconds() float64 {
	if a.TrimStart == nil || a.TrimEnd == nil {
		return 0
	}
	return *a.TrimEnd - *a.TrimStart
}

func (s *Server) snapshotOf(a *analysis, now time.Time) snapshot {
	if a.confirmedAt.IsZero() {
		return snapshot{status: domain.StatusAwaitingConfirmation}
	}

	stages := len(domain.StageNames)
	total := time.Duration(stages) * s.stageDuration
	elapsed := now.Sub(a.confirmedAt)
	if elapsed < 0 {
		elapsed = 0
	}

	if a.fail && elapsed >= s.stageDuration*3/2 {
		return snapshot{
			status:   domain.StatusFailed,
			stage:    failedStageIndex,
			progress: 30,
		}
	}
	if elapsed >= total {
		return snapshot{status: domain.StatusComplete, stage: stages - 1, progress: 100}
	}

	return snapshot{
		status:    domain.StatusProcessing,
		stage:     int(elapsed / s.stageDuration),
		progress:  math.Round(float64(elapsed)/float64(total)*1000) / 10,
		remaining: total - elapsed,
	}
}

func (snap snapshot) toProgress() domain.Progress {
	p := domain.Progress{
		Status:         snap.status,
		Progress:       snap.progress,
		TotalSteps:     append([]string(nil), domain.StageNames...),
		StepsCompleted: []string{},
	}

	switch snap.status {
	case domain.StatusAwaitingConfirmation:
		p.CurrentStep = "Waiting for email confirmation"
		p.EstimatedTimeRemaining = "Calculating..."
	case domain.StatusComplete:
		p.CurrentStep = "Analysis complete"
		p.EstimatedTimeRemaining = "0s"
		p.StepsCompleted = append(p.StepsCompleted, domain.StageNames...)
	case domain.StatusFailed:
		p.CurrentStep = domain.StageNames[snap.stage]
		p.StepsCompleted = append(p.StepsCompleted, domain.StageNames[:snap.stage]...)
		p.Error = failureLog
	default:
		p.CurrentStep = domain.StageNames[snap.stage] + "..."
		p.StepsCompleted = append(p.StepsCompleted, domain.StageNames[:snap.stage]...)
		p.EstimatedTimeRemaining = fmt.Sprintf("%ds", int(math.Ceil(snap.remaining.Seconds())))
	}
	return p
}

// metricsFor derives stable metrics from the analysis id
func metricsFor(a *analysis) *domain.Metrics {
	h := fnv.New64a()
	_, _ = h.Write([]byte(a.ID))
	seed := h.Sum64()
	rng := rand.New(rand.NewPCG(seed, seed>>1))

	frames := int(a.clipSeconds() * framesPerSecond)
	if frames <= 0 {
		frames = 10 * framesPerSecond
	}

	mean := 0.70 + rng.Float64()*0.25
	std := 0.02 + rng.Float64()*0.08
	return &domain.Metrics{
		TotalFrames: frames,
		EdgeSimilarity: &domain.EdgeSimilarity{
			Mean:  mean,
			Std:   std,
			Min:   math.Max(0, mean-3*std),
			Max:   math.Min(0.99, mean+2*std),
			Count: frames,
		},
	}
}

func outputsFor(id string) map[string]string {
	out := make(map[string]string, len(outputFiles))
	for key, name := range outputFiles {
		out[key] = path.Join("/outputs", id, name)
	}
	return out
}

func (s *Server) resultOf(a *analysis, now time.Time) *domain.AnalysisResult {
	snap := s.snapshotOf(a, now)
	created := a.createdAt
	updated := now

	res := &domain.AnalysisResult{
		ID:        a.ID,
		Status:    snap.status,
		UserID:    a.Email,
		CreatedAt: &created,
		UpdatedAt: &updated,
	}

	switch snap.status {
	case domain.StatusComplete:
		res.Results = &domain.AnalysisOutput{
			Status:  "success",
			Message: "Pose analysis completed",
			Outputs: outputsFor(a.ID),
			Metrics: metricsFor(a),
		}
	case domain.StatusFailed:
		res.ErrorLog = failureLog
	}
	return res
}

func (s *Server) summaryOf(a *analysis, now time.Time) domain.AnalysisSummary {
	snap := s.snapshotOf(a, now)
	sum := domain.AnalysisSummary{
		ID:        a.ID,
		Title:     strings.TrimSuffix(a.Filename, filepath.Ext(a.Filename)),
		CreatedAt: a.createdAt,
		Duration:  int(math.Round(a.clipSeconds())),
		Status:    snap.status,
	}
	if snap.status == domain.StatusComplete {
		acc := math.Round(metricsFor(a).EdgeSimilarity.Mean*1000) / 10
		sum.Accuracy = &acc
	}
	return sum
}

// lookup returns the analysis if it belongs to email
func (s *Server) lookup(id, email string) (*analysis, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.analyses[id]
	if !ok || a.Email != email {
		return nil, false
	}
	return a, true
}

func parseTrim(r *http.Request) (start, end *float64, err error) {
	rawStart := strings.TrimSpace(r.FormValue("trim_start"))
	rawEnd := strings.TrimSpace(r.FormValue("trim_end"))
	if rawStart == "" && rawEnd == "" {
		return nil, nil, nil
	}
	if rawStart == "" || rawEnd == "" {
		return nil, nil, fmt.Errorf("trim_start and trim_end must be sent together")
	}

	st, err := strconv.ParseFloat(rawStart, 64)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid trim_start")
	}
	en, err := strconv.ParseFloat(rawEnd, 64)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid trim_end")
	}
	if st < 0 || en <= st {
		return nil, nil, fmt.Errorf("trim_start must be before trim_end")
	}
	if en-st > maxClipSeconds {
		return nil, nil, fmt.Errorf("trimmed clip must be at most %g seconds", domain.MaxTrimSeconds)
	}
	return &st, &en, nil
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request, email string) {
	if r.ContentLength > s.maxUpload {
		s.writeError(w, uploadTooLarge, http.StatusRequestEntityTooLarge)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload)

	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.writeError(w, uploadTooLarge, http.StatusRequestEntityTooLarge)
			return
		}
		s.writeError(w, "Invalid multipart form", http.StatusBadRequest)
		return
	}
	defer func() {
		_ = r.MultipartForm.RemoveAll()
	}()

	file, hdr, err := r.FormFile("file")
	if err != nil {
		s.writeValidation(w, "file", "field required")
		return
	}
	defer file.Close()

	if hdr.Size > domain.MaxVideoSize {
		s.writeError(w, uploadTooLarge, http.StatusRequestEntityTooLarge)
		return
	}

	mtype, err := mimetype.DetectReader(file)
	if err != nil || !strings.HasPrefix(mtype.String(), "video/") {
		s.writeError(w, "Unsupported file type. Please upload a video file.", http.StatusBadRequest)
		return
	}

	trimStart, trimEnd, err := parseTrim(r)
	if err != nil {
		s.writeValidation(w, "trim", err.Error())
		return
	}

	now := s.now()
	a := &analysis{
		ID:        uuid.NewString(),
		Email:     email,
		Filename:  filepath.Base(hdr.Filename),
		Size:      hdr.Size,
		TrimStart: trimStart,
		TrimEnd:   trimEnd,
		fail:      strings.Contains(strings.ToLower(hdr.Filename), "fail"),
		createdAt: now,
	}

	var confirmToken string
	s.mu.Lock()
	if s.awaitConfirmation {
		confirmToken = s.issueConfirmationLocked(email)
	} else {
		a.confirmedAt = now
	}
	s.analyses[a.ID] = a
	s.mu.Unlock()

	s.logger.Info("Video uploaded",
		"analysis_id", a.ID,
		"email", email,
		"filename", a.Filename,
		"size", a.Size,
		"mime", mtype.String(),
		"clip_seconds", a.clipSeconds(),
	)
	if confirmToken != "" {
		s.logger.Info("Confirmation email (not sent)", "email", email, "token", confirmToken)
	}

	s.writeJSON(w, http.StatusOK, map[string]string{"id": a.ID})
}

func (s *Server) handleProgress(w http.ResponseWriter, r *http.Request, email string) {
	a, ok := s.lookup(r.PathValue("id"), email)
	if !ok {
		s.writeError(w, "Analysis not found", http.StatusNotFound)
		return
	}
	s.writeJSON(w, http.StatusOK, s.snapshotOf(a, s.now()).toProgress())
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request, email string) {
	a, ok := s.lookup(r.PathValue("id"), email)
	if !ok {
		s.writeError(w, "Analysis not found", http.StatusNotFound)
		return
	}
	s.writeJSON(w, http.StatusOK, s.resultOf(a, s.now()))
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request, email string) {
	now := s.now()

	s.mu.Lock()
	list := make([]domain.AnalysisSummary, 0)
	for _, a := range s.analyses {
		if a.Email == email {
			list = append(list, s.summaryOf(a, now))
		}
	}
	s.mu.Unlock()

	sort.Slice(list, func(i, j int) bool {
		return list[i].CreatedAt.After(list[j].CreatedAt)
	})
	s.writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request, email string) {
	id := r.PathValue("id")

	s.mu.Lock()
	a, ok := s.analyses[id]
	if ok && a.Email == email {
		delete(s.analyses, id)
	}
	s.mu.Unlock()

	if !ok || a.Email != email {
		s.writeError(w, "Analysis not found", http.StatusNotFound)
		return
	}
	s.logger.Info("Analysis deleted", "analysis_id", id, "email", email)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleFile(w http.ResponseWriter, r *http.Request, email string) {
	a, ok := s.lookup(r.PathValue("id"), email)
	if !ok {
		s.writeError(w, "Analysis not found", http.StatusNotFound)
		return
	}

	name := r.PathValue("filename")
	res := s.resultOf(a, s.now())
	if res.Status != domain.StatusComplete {
		s.writeError(w, "Analysis is not complete", http.StatusConflict)
		return
	}

	known := false
	for _, art := range res.Artifacts() {
		if art.Filename == name {
			known = true
			break
		}
	}
	if !known {
		s.writeError(w, "File not found", http.StatusNotFound)
		return
	}

	body := artifactContent(name, res.Results.Metrics)
	ctype := mime.TypeByExtension(filepath.Ext(name))
	if ctype == "" {
		ctype = "application/octet-stream"
	}
	w.Header().Set("Content-Type", ctype)
	w.Header().Set("Content-Length", strconv.Itoa(len(body)))
	if _, err := w.Write(body); err != nil {
		s.logger.Error("Unable to write artifact", "file", name, "err", err)
	}
}

// artifactContent renders placeholder file bodies; the CSV carries one
// row per frame.
func artifactContent(name string, m *domain.Metrics) []byte {
	if strings.ToLower(filepath.Ext(name)) != ".csv" {
		return []byte("poser dev artifact: " + name + "\n")
	}

	var b strings.Builder
	b.WriteString("frame,edge_similarity\n")
	es := m.EdgeSimilarity
	for i := 0; i < m.TotalFrames; i++ {
		v := es.Mean + es.Std*math.Sin(float64(i)/7)
		fmt.Fprintf(&b, "%d,%.4f\n", i, math.Max(es.Min, math.Min(es.Max, v)))
	}
	return []byte(b.String())
}
