package export

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/parquet-go/parquet-go"
	"gopkg.in/yaml.v3"

	"github.com/devbush/poser/internal/domain"
)

func sampleSummaries() []domain.AnalysisSummary {
	acc := 92.5
	return []domain.AnalysisSummary{
		{
			ID:        "a1",
			Title:     "Morning run",
			CreatedAt: time.Date(2026, 1, 10, 9, 0, 0, 0, time.UTC),
			Duration:  18,
			Status:    domain.StatusComplete,
			Accuracy:  &acc,
		},
		{
			ID:        "a2",
			CreatedAt: time.Date(2026, 1, 11, 9, 0, 0, 0, time.UTC),
			Status:    domain.StatusProcessing,
		},
	}
}

func sampleResult() *domain.AnalysisResult {
	created := time.Date(2026, 1, 10, 9, 0, 0, 0, time.UTC)
	return &domain.AnalysisResult{
		ID:        "a1",
		Status:    domain.StatusComplete,
		CreatedAt: &created,
		Results: &domain.AnalysisOutput{
			Outputs: map[string]string{
				"video":       "/out/a1/annotated.mp4",
				"metrics_csv": "/out/a1/metrics.csv",
			},
			Metrics: &domain.Metrics{
				TotalFrames:    240,
				EdgeSimilarity: &domain.EdgeSimilarity{Mean: 0.8, Std: 0.1, Min: 0.5, Max: 0.95, Count: 240},
			},
		},
	}
}

func readParquet[T any](t *testing.T, data []byte) []T {
	t.Helper()
	pf, err := parquet.OpenFile(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("failed to open parquet: %v", err)
	}

	reader := parquet.NewGenericReader[T](pf)
	defer reader.Close()

	rows := make([]T, pf.NumRows())
	n, err := reader.Read(rows)
	if err != nil && !errors.Is(err, io.EOF) {
		t.Fatalf("failed to read rows: %v", err)
	}
	return rows[:n]
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"json", FormatJSON, false},
		{".JSON", FormatJSON, false},
		{"yml", FormatYAML, false},
		{"yaml", FormatYAML, false},
		{"parquet", FormatParquet, false},
		{"pq", FormatParquet, false},
		{"csv", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFormat(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseFormat(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseFormat(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestFormat_Extension(t *testing.T) {
	if got := FormatParquet.Extension(); got != ".parquet" {
		t.Errorf("Extension() = %q", got)
	}
}

func TestWriteSummaries_JSON(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteSummaries(&buf, FormatJSON, sampleSummaries()); err != nil {
		t.Fatalf("WriteSummaries() error = %v", err)
	}

	var got []domain.AnalysisSummary
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if len(got) != 2 || got[0].ID != "a1" || got[1].Status != domain.StatusProcessing {
		t.Errorf("decoded = %+v", got)
	}
}

func TestWriteSummaries_YAML(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteSummaries(&buf, FormatYAML, sampleSummaries()); err != nil {
		t.Fatalf("WriteSummaries() error = %v", err)
	}

	var got []map[string]any
	if err := yaml.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("invalid YAML: %v", err)
	}
	if len(got) != 2 || got[0]["title"] != "Morning run" {
		t.Errorf("decoded = %v", got)
	}
	if strings.Contains(buf.String(), "\t") {
		t.Error("YAML output should be indented with spaces")
	}
}

func TestWriteSummaries_Parquet(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteSummaries(&buf, FormatParquet, sampleSummaries()); err != nil {
		t.Fatalf("WriteSummaries() error = %v", err)
	}

	rows := readParquet[SummaryRow](t, buf.Bytes())
	if len(rows) != 2 {
		t.Fatalf("rows = %d, want 2", len(rows))
	}
	if rows[0].ID != "a1" || rows[0].Accuracy == nil || *rows[0].Accuracy != 92.5 {
		t.Errorf("row 0 = %+v", rows[0])
	}
	if rows[0].CreatedAt != "2026-01-10T09:00:00Z" {
		t.Errorf("created_at = %q", rows[0].CreatedAt)
	}
	if rows[1].Accuracy != nil {
		t.Errorf("row 1 accuracy should be null, got %v", *rows[1].Accuracy)
	}
	if rows[1].Title != "Skiing Session - 01/11/2026" {
		t.Errorf("row 1 title = %q", rows[1].Title)
	}
}

func TestWriteResults_Parquet(t *testing.T) {
	var buf bytes.Buffer
	results := []*domain.AnalysisResult{sampleResult(), nil, {ID: "a3", Status: domain.StatusFailed, ErrorLog: "decode error"}}
	if err := WriteResults(&buf, FormatParquet, results); err != nil {
		t.Fatalf("WriteResults() error = %v", err)
	}

	rows := readParquet[ResultRow](t, buf.Bytes())
	if len(rows) != 2 {
		t.Fatalf("rows = %d, want 2", len(rows))
	}
	r := rows[0]
	if r.TotalFrames != 240 || r.EdgeMean != 0.8 || r.EdgeCount != 240 {
		t.Errorf("metrics row = %+v", r)
	}
	if r.Outputs != "metrics_csv=metrics.csv;video=annotated.mp4" {
		t.Errorf("outputs = %q", r.Outputs)
	}
	if rows[1].ErrorLog != "decode error" || rows[1].Status != "failed" {
		t.Errorf("failed row = %+v", rows[1])
	}
}

func TestWriteResults_JSON(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteResults(&buf, FormatJSON, []*domain.AnalysisResult{sampleResult()}); err != nil {
		t.Fatalf("WriteResults() error = %v", err)
	}
	if !strings.Contains(buf.String(), `"edge_similarity"`) {
		t.Errorf("JSON output missing metrics: %s", buf.String())
	}
}

func TestWrite_UnsupportedFormat(t *testing.T) {
	if err := WriteSummaries(io.Discard, Format("csv"), nil); err == nil {
		t.Error("expected error for unsupported format")
	}
	if err := WriteResults(io.Discard, Format("csv"), nil); err == nil {
		t.Error("expected error for unsupported format")
	}
}
