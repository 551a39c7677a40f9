package tui

import (
	"bytes"
	"strings"
	"testing"
	"time"
)

func TestRenderProgressBar(t *testing.T) {
	tests := []struct {
		current, total int
		width          int
		want           string
	}{
		{0, 10, 10, "[          ]"},
		{5, 10, 10, "[=====>    ]"},
		{10, 10, 10, "[==========]"},
		{3, 10, 10, "[==>       ]"},
		{1, 0, 4, "[    ]"},
		{1, 100, 10, "[>         ]"},
		{9, 10, 10, "[=========>]"},
	}

	for _, tt := range tests {
		got := renderProgressBar(tt.current, tt.total, tt.width)
		if got != tt.want {
			t.Errorf("renderProgressBar(%d, %d, %d) = %q, want %q",
				tt.current, tt.total, tt.width, got, tt.want)
		}
	}
}

func TestBatchProgress(t *testing.T) {
	var buf bytes.Buffer
	bp := newBatchProgress(&buf, "Downloading", 2, false)

	bp.AddResult(BatchResult{Name: "metrics.csv", Success: true, Size: 2048, Duration: 1500 * time.Millisecond})
	bp.AddResult(BatchResult{Name: "annotated.mp4", ErrMsg: "network error"})
	bp.Complete()

	if ok, failed := bp.Counts(); ok != 1 || failed != 1 {
		t.Errorf("Counts() = %d, %d, want 1, 1", ok, failed)
	}

	out := buf.String()
	for _, want := range []string{"Downloading 2/2", "✓ metrics.csv (2.0 KB, 1.5s)", "✗ annotated.mp4: network error", "Done: 1/2 succeeded, 2.0 KB saved"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}
