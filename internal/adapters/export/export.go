// Package export writes analyses to JSON, YAML or Parquet.
package export

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/parquet-go/parquet-go"
	"gopkg.in/yaml.v3"

	"github.com/devbush/poser/internal/domain"
)

// Format is an export file format
type Format string

const (
	FormatJSON    Format = "json"
	FormatYAML    Format = "yaml"
	FormatParquet Format = "parquet"
)

// Formats lists the supported formats
var Formats = []Format{FormatJSON, FormatYAML, FormatParquet}

// ParseFormat accepts a format name or a file extension
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimPrefix(strings.TrimSpace(s), ".")) {
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	case "parquet", "pq":
		return FormatParquet, nil
	default:
		return "", fmt.Errorf("unsupported export format: %s (supported: json, yaml, parquet)", s)
	}
}

// Extension returns the file extension for the format, with leading dot
func (f Format) Extension() string {
	return "." + string(f)
}

// SummaryRow is the flat Parquet row of one listed analysis
type SummaryRow struct {
	ID              string   `parquet:"id"`
	Title           string   `parquet:"title"`
	CreatedAt       string   `parquet:"created_at"`
	DurationSeconds int32    `parquet:"duration_seconds"`
	Status          string   `parquet:"status"`
	Accuracy        *float64 `parquet:"accuracy,optional"`
}

// ResultRow is the flat Parquet row of one analysis result
type ResultRow struct {
	ID          string  `parquet:"id"`
	Status      string  `parquet:"status"`
	CreatedAt   string  `parquet:"created_at"`
	TotalFrames int32   `parquet:"total_frames"`
	EdgeMean    float64 `parquet:"edge_similarity_mean"`
	EdgeStd     float64 `parquet:"edge_similarity_std"`
	EdgeMin     float64 `parquet:"edge_similarity_min"`
	EdgeMax     float64 `parquet:"edge_similarity_max"`
	EdgeCount   int32   `parquet:"edge_similarity_count"`
	Outputs     string  `parquet:"outputs"`
	ErrorLog    string  `parquet:"error_log"`
}

// WriteSummaries writes the analysis history in the given format
func WriteSummaries(w io.Writer, f Format, list []domain.AnalysisSummary) error {
	switch f {
	case FormatJSON:
		return writeJSON(w, list)
	case FormatYAML:
		return writeYAML(w, list)
	case FormatParquet:
		rows := make([]SummaryRow, len(list))
		for i, s := range list {
			rows[i] = summaryRow(s)
		}
		return writeParquet(w, rows)
	default:
		return fmt.Errorf("unsupported export format: %s", f)
	}
}

// WriteResults writes full analysis results in the given format
func WriteResults(w io.Writer, f Format, results []*domain.AnalysisResult) error {
	switch f {
	case FormatJSON:
		return writeJSON(w, results)
	case FormatYAML:
		return writeYAML(w, results)
	case FormatParquet:
		rows := make([]ResultRow, 0, len(results))
		for _, r := range results {
			if r != nil {
				rows = append(rows, resultRow(r))
			}
		}
		return writeParquet(w, rows)
	default:
		return fmt.Errorf("unsupported export format: %s", f)
	}
}

func summaryRow(s domain.AnalysisSummary) SummaryRow {
	return SummaryRow{
		ID:              s.ID,
		Title:           s.DisplayTitle(),
		CreatedAt:       formatTime(&s.CreatedAt),
		DurationSeconds: int32(s.Duration),
		Status:          string(s.Status),
		Accuracy:        s.Accuracy,
	}
}

func resultRow(r *domain.AnalysisResult) ResultRow {
	row := ResultRow{
		ID:        r.ID,
		Status:    string(r.Status),
		CreatedAt: formatTime(r.CreatedAt),
		ErrorLog:  r.ErrorLog,
	}

	if r.Results != nil && r.Results.Metrics != nil {
		m := r.Results.Metrics
		row.TotalFrames = int32(m.TotalFrames)
		if es := m.EdgeSimilarity; es != nil {
			row.EdgeMean = es.Mean
			row.EdgeStd = es.Std
			row.EdgeMin = es.Min
			row.EdgeMax = es.Max
			row.EdgeCount = int32(es.Count)
		}
	}

	keys := make([]string, 0)
	for _, a := range r.Artifacts() {
		keys = append(keys, a.Key+"="+a.Filename)
	}
	row.Outputs = strings.Join(keys, ";")
	return row
}

func formatTime(t *time.Time) string {
	if t == nil || t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeYAML(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}

func writeParquet[T any](w io.Writer, rows []T) error {
	writer := parquet.NewGenericWriter[T](w)
	if _, err := writer.Write(rows); err != nil {
		_ = writer.Close()
		return fmt.Errorf("failed to write parquet rows: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to finish parquet file: %w", err)
	}
	return nil
}
