package tui

import (
	"fmt"
	"io"
	"math"
	"os"
	"strings"
	"sync"
	"time"
)

// renderProgressBar draws a fixed-width text bar. The head is drawn as '>'
// until the bar is full:
//
//	current=3, total=10, width=10 -> [==>       ]
//	current=5, total=10, width=10 -> [=====>    ]
func renderProgressBar(current, total, width int) string {
	switch {
	case total <= 0 || current <= 0:
		return "[" + strings.Repeat(" ", width) + "]"
	case current >= total:
		return "[" + strings.Repeat("=", width) + "]"
	}

	ratio := float64(current) / float64(total)
	filled := int(math.Round(ratio * float64(width)))
	if ratio < 0.5 {
		filled--
	}
	filled = max(0, min(filled, width-1))

	return "[" + strings.Repeat("=", filled) + ">" + strings.Repeat(" ", width-filled-1) + "]"
}

// BatchResult is the outcome of one analysis or file in a batch download
type BatchResult struct {
	Name     string
	Success  bool
	ErrMsg   string
	Duration time.Duration
	Size     int64
}

// BatchProgress shows the progress of a set of concurrent downloads
type BatchProgress struct {
	out       io.Writer
	label     string
	total     int
	completed int
	results   []BatchResult
	failures  []BatchResult
	quiet     bool
	mu        sync.Mutex
	rendered  bool
}

// NewBatchProgress creates a new batch progress display on stdout
func NewBatchProgress(label string, total int, quiet bool) *BatchProgress {
	return newBatchProgress(os.Stdout, label, total, quiet)
}

func newBatchProgress(out io.Writer, label string, total int, quiet bool) *BatchProgress {
	if total < 0 {
		total = 0
	}
	return &BatchProgress{
		out:      out,
		label:    label,
		total:    total,
		results:  make([]BatchResult, 0),
		failures: make([]BatchResult, 0),
		quiet:    quiet,
	}
}

// AddResult adds a result and updates the display. Safe for concurrent use.
func (bp *BatchProgress) AddResult(r BatchResult) {
	bp.mu.Lock()
	defer bp.mu.Unlock()

	bp.results = append(bp.results, r)
	bp.completed++

	if !r.Success {
		bp.failures = append(bp.failures, r)
	}

	bp.render()
}

func (bp *BatchProgress) render() {
	if bp.quiet {
		return
	}

	// Calculate how many lines to clear (progress line + up to 10 results)
	if bp.rendered {
		linesToClear := 1 + min(len(bp.results)-1, 10)
		fmt.Fprintf(bp.out, "\033[%dA", linesToClear)
		fmt.Fprint(bp.out, "\033[J")
	}

	// Render progress line
	percent := 0
	if bp.total > 0 {
		percent = (bp.completed * 100) / bp.total
	}
	progressBar := renderProgressBar(bp.completed, bp.total, 20)
	fmt.Fprintf(bp.out, "%s %d/%d %s %d%%\n", bp.label, bp.completed, bp.total, progressBar, percent)

	// Render last 10 results
	startIdx := 0
	if len(bp.results) > 10 {
		startIdx = len(bp.results) - 10
	}

	for i := startIdx; i < len(bp.results); i++ {
		result := bp.results[i]
		if result.Success {
			fmt.Fprintf(bp.out, "✓ %s (%s, %.1fs)\n", result.Name, FormatSize(result.Size), result.Duration.Seconds())
		} else {
			fmt.Fprintf(bp.out, "✗ %s: %s\n", result.Name, result.ErrMsg)
		}
	}

	bp.rendered = true
}

// Complete prints the final summary
func (bp *BatchProgress) Complete() {
	if bp.quiet {
		return
	}

	bp.mu.Lock()
	completed := bp.completed
	total := bp.total
	failures := make([]BatchResult, len(bp.failures))
	copy(failures, bp.failures)

	var size int64
	for _, r := range bp.results {
		size += r.Size
	}
	bp.mu.Unlock()

	succeeded := completed - len(failures)

	fmt.Fprintln(bp.out)
	fmt.Fprintf(bp.out, "Done: %d/%d succeeded, %s saved\n", succeeded, total, FormatSize(size))

	if len(failures) > 0 {
		fmt.Fprintln(bp.out, "\nFailures:")
		for _, f := range failures {
			fmt.Fprintf(bp.out, "  ✗ %s: %s\n", f.Name, f.ErrMsg)
		}
	}
}

// Counts returns the number of succeeded and failed results so far
func (bp *BatchProgress) Counts() (succeeded, failed int) {
	bp.mu.Lock()
	defer bp.mu.Unlock()
	return bp.completed - len(bp.failures), len(bp.failures)
}
