package cli

import (
	"github.com/devbush/poser/internal/adapters/cli/tui"
)

// BatchSummary aggregates results from a batch download
type BatchSummary struct {
	Total   int
	Results []tui.BatchResult
}

// Succeeded returns the number of successful results
func (s *BatchSummary) Succeeded() int {
	n := 0
	for _, r := range s.Results {
		if r.Success {
			n++
		}
	}
	return n
}

// FailedResults returns only the failed results
func (s *BatchSummary) FailedResults() []tui.BatchResult {
	var failed []tui.BatchResult
	for _, r := range s.Results {
		if !r.Success {
			failed = append(failed, r)
		}
	}
	return failed
}
