// Package devserver is an in-memory Poser backend for local development.
// Nothing is persisted; verification codes and confirmation tokens are
// written to the log instead of being emailed.
package devserver

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/devbush/poser/internal/domain"
)

// DevCode is always accepted as a verification code
const DevCode = "123456"

// DefaultStageDuration is how long each processing stage takes
const DefaultStageDuration = 3 * time.Second

// Options configures the dev server
type Options struct {
	StageDuration     time.Duration
	AwaitConfirmation bool
	Logger            *slog.Logger
}

// Server holds all backend state in memory
type Server struct {
	stageDuration     time.Duration
	awaitConfirmation bool
	maxUpload         int64 // request body limit of an upload
	logger            *slog.Logger
	now               func() time.Time
	newCode           func() string

	mu       sync.Mutex
	codes    map[string]string // email -> last issued code
	tokens   map[string]string // access token -> email
	confirms map[string]string // confirmation token -> email
	analyses map[string]*analysis
	contacts []contactRecord
}

type contactRecord struct {
	Email   string
	Subject string
	Message string
}

// New creates an empty dev server
func New(opts Options) *Server {
	if opts.StageDuration <= 0 {
		opts.StageDuration = DefaultStageDuration
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Server{
		stageDuration:     opts.StageDuration,
		awaitConfirmation: opts.AwaitConfirmation,
		maxUpload:         domain.MaxVideoSize + multipartOverhead,
		logger:            opts.Logger,
		now:               time.Now,
		newCode:           randomCode,
		codes:             make(map[string]string),
		tokens:            make(map[string]string),
		confirms:          make(map[string]string),
		analyses:          make(map[string]*analysis),
	}
}

// Handler returns the HTTP routes of the API
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/auth/request-code", s.handleRequestCode)
	mux.HandleFunc("POST /api/auth/verify-code", s.handleVerifyCode)
	mux.HandleFunc("POST /api/confirm-email", s.handleConfirmEmail)
	mux.HandleFunc("POST /api/upload", s.authenticated(s.handleUpload))
	mux.HandleFunc("GET /api/analyses", s.authenticated(s.handleList))
	mux.HandleFunc("GET /api/analysis/{id}", s.authenticated(s.handleGet))
	mux.HandleFunc("DELETE /api/analysis/{id}", s.authenticated(s.handleDelete))
	mux.HandleFunc("GET /api/analysis/{id}/progress", s.authenticated(s.handleProgress))
	mux.HandleFunc("GET /api/analysis/{id}/files/{filename}", s.authenticated(s.handleFile))
	mux.HandleFunc("POST /api/contact", s.handleContact)
	mux.HandleFunc("GET /healthcheck", func(w http.ResponseWriter, r *http.Request) {
		if _, err := w.Write([]byte("OK")); err != nil {
			s.logger.Error("Unable to write healthcheck", "err", err)
		}
	})
	return s.logRequests(mux)
}

// authenticated rejects requests without a known bearer token
func (s *Server) authenticated(next func(http.ResponseWriter, *http.Request, string)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		email, ok := s.userFor(r)
		if !ok {
			s.writeError(w, "Not authenticated", http.StatusUnauthorized)
			return
		}
		next(w, r, email)
	}
}

func (s *Server) userFor(r *http.Request) (string, bool) {
	auth := r.Header.Get("Authorization")
	token, found := strings.CutPrefix(auth, "Bearer ")
	if !found || token == "" {
		return "", false
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	email, ok := s.tokens[token]
	return email, ok
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start),
		)
	})
}

// Response helpers
func (s *Server) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Error("Unable to encode JSON response", "err", err)
	}
}

type detailResponse struct {
	Detail any `json:"detail"`
}

type validationItem struct {
	Loc []string `json:"loc"`
	Msg string   `json:"msg"`
}

func (s *Server) writeError(w http.ResponseWriter, message string, code int) {
	s.logger.Warn("request rejected", "status", code, "detail", message)
	s.writeJSON(w, code, detailResponse{Detail: message})
}

// writeValidation mimics the list-shaped detail of field validation errors
func (s *Server) writeValidation(w http.ResponseWriter, field, message string) {
	s.logger.Warn("validation failed", "field", field, "detail", message)
	s.writeJSON(w, http.StatusUnprocessableEntity, detailResponse{
		Detail: []validationItem{{Loc: []string{"body", field}, Msg: message}},
	})
}
