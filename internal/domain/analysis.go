package domain

import (
	"fmt"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// AnalysisStatus is the processing state of an analysis on the backend
type AnalysisStatus string

const (
	StatusAwaitingConfirmation AnalysisStatus = "awaiting_confirmation"
	StatusProcessing           AnalysisStatus = "processing"
	StatusComplete             AnalysisStatus = "complete"
	StatusFailed               AnalysisStatus = "failed"
)

// ParseAnalysisStatus normalizes the status spellings used across the API
func ParseAnalysisStatus(s string) AnalysisStatus {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "complete", "completed", "done":
		return StatusComplete
	case "failed", "error":
		return StatusFailed
	case "awaiting_confirmation", "pending_confirmation":
		return StatusAwaitingConfirmation
	default:
		return StatusProcessing
	}
}

// UnmarshalText normalizes the status when decoding JSON or YAML
func (s *AnalysisStatus) UnmarshalText(text []byte) error {
	*s = ParseAnalysisStatus(string(text))
	return nil
}

// IsTerminal reports whether polling should stop at this status
func (s AnalysisStatus) IsTerminal() bool {
	return s == StatusComplete || s == StatusFailed
}

// EdgeSimilarity summarizes the per-frame edge similarity metric
type EdgeSimilarity struct {
	Mean  float64 `json:"mean" yaml:"mean"`
	Std   float64 `json:"std" yaml:"std"`
	Min   float64 `json:"min" yaml:"min"`
	Max   float64 `json:"max" yaml:"max"`
	Count int     `json:"count" yaml:"count"`
}

// Metrics holds the numeric outcome of an analysis
type Metrics struct {
	EdgeSimilarity *EdgeSimilarity `json:"edge_similarity,omitempty" yaml:"edge_similarity,omitempty"`
	TotalFrames    int             `json:"total_frames,omitempty" yaml:"total_frames,omitempty"`
}

// AnalysisOutput is the payload attached to a finished analysis
type AnalysisOutput struct {
	Status  string            `json:"status,omitempty" yaml:"status,omitempty"`
	Message string            `json:"message,omitempty" yaml:"message,omitempty"`
	Outputs map[string]string `json:"outputs,omitempty" yaml:"outputs,omitempty"`
	Metrics *Metrics          `json:"metrics,omitempty" yaml:"metrics,omitempty"`
}

// AnalysisResult is the backend record for one submitted video
type AnalysisResult struct {
	ID        string          `json:"id" yaml:"id"`
	Status    AnalysisStatus  `json:"status" yaml:"status"`
	UserID    string          `json:"user_id" yaml:"user_id"`
	CreatedAt *time.Time      `json:"created_at,omitempty" yaml:"created_at,omitempty"`
	UpdatedAt *time.Time      `json:"updated_at,omitempty" yaml:"updated_at,omitempty"`
	Results   *AnalysisOutput `json:"analysis_results,omitempty" yaml:"analysis_results,omitempty"`
	ErrorLog  string          `json:"error_log,omitempty" yaml:"error_log,omitempty"`
}

const defaultFailureMessage = "An error occurred during analysis. Please try again."

// FailureMessage returns the server-supplied error or a default message
func (a *AnalysisResult) FailureMessage() string {
	if a != nil && strings.TrimSpace(a.ErrorLog) != "" {
		return a.ErrorLog
	}
	return defaultFailureMessage
}

// Artifacts lists the downloadable outputs, ordered by output name.
// Outputs whose file name would escape a download directory are left out.
func (a *AnalysisResult) Artifacts() []Artifact {
	if a == nil || a.Results == nil || len(a.Results.Outputs) == 0 {
		return nil
	}

	keys := make([]string, 0, len(a.Results.Outputs))
	for k := range a.Results.Outputs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	artifacts := make([]Artifact, 0, len(keys))
	for _, k := range keys {
		p := a.Results.Outputs[k]
		filename := path.Base(strings.ReplaceAll(p, `\`, "/"))
		if filename == "." || filename == "/" {
			filename = k
		}
		if !SafeFilename(filename) {
			continue
		}
		artifacts = append(artifacts, Artifact{
			Key:      k,
			Label:    strings.ReplaceAll(k, "_", " "),
			Path:     p,
			Filename: filename,
			Kind:     ArtifactKind(filename),
		})
	}
	return artifacts
}

// SafeFilename reports whether name can be joined onto a directory without
// leaving it
func SafeFilename(name string) bool {
	return filepath.IsLocal(name) && !strings.ContainsAny(name, `/\`)
}

// Artifact is one downloadable output file
type Artifact struct {
	Key      string
	Label    string
	Path     string
	Filename string
	Kind     string
}

// ArtifactKind labels a file by its extension
func ArtifactKind(filename string) string {
	switch strings.ToLower(path.Ext(filename)) {
	case ".csv":
		return "CSV Data"
	case ".png", ".jpg", ".jpeg":
		return "Image"
	case ".mp4", ".mov":
		return "Video"
	case ".glb":
		return "3D Model"
	case ".html":
		return "Web View"
	default:
		return "File"
	}
}

// AnalysisSummary is the lightweight listing entry for a past analysis
type AnalysisSummary struct {
	ID        string         `json:"id" yaml:"id"`
	Title     string         `json:"title,omitempty" yaml:"title,omitempty"`
	CreatedAt time.Time      `json:"created_at" yaml:"created_at"`
	Duration  int            `json:"duration,omitempty" yaml:"duration,omitempty"`
	Status    AnalysisStatus `json:"status" yaml:"status"`
	Accuracy  *float64       `json:"accuracy,omitempty" yaml:"accuracy,omitempty"`
}

// DisplayTitle returns the title or a date-based fallback
func (s *AnalysisSummary) DisplayTitle() string {
	if strings.TrimSpace(s.Title) != "" {
		return s.Title
	}
	if s.CreatedAt.IsZero() {
		return "Skiing Session"
	}
	return "Skiing Session - " + s.CreatedAt.Format("01/02/2006")
}

// StatusLabel returns the accuracy for complete analyses, the status otherwise
func (s *AnalysisSummary) StatusLabel() string {
	if s.Status == StatusComplete {
		acc := 0.0
		if s.Accuracy != nil {
			acc = *s.Accuracy
		}
		return fmt.Sprintf("%g%%", acc)
	}
	return string(s.Status)
}

// FormatDuration renders seconds as m:ss
func FormatDuration(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%d:%02d", seconds/60, seconds%60)
}
