package tui

import (
	"strings"
	"testing"
	"time"

	"github.com/devbush/poser/internal/domain"
)

func sampleList() []domain.AnalysisSummary {
	return []domain.AnalysisSummary{
		{ID: "a1", Title: "Morning run", CreatedAt: time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC), Status: domain.StatusComplete},
		{ID: "a2", Title: "Afternoon run", Status: domain.StatusProcessing},
	}
}

func TestAnalysisListModel(t *testing.T) {
	tests := []struct {
		name       string
		keys       []string
		wantAction ListAction
		wantID     string
	}{
		{"open first", []string{"enter"}, ActionOpen, "a1"},
		{"open second", []string{"down", "enter"}, ActionOpen, "a2"},
		{"delete second", []string{"j", "d"}, ActionDelete, "a2"},
		{"download complete", []string{"s"}, ActionDownload, "a1"},
		{"download ignored while processing", []string{"down", "s", "q"}, ActionCancel, "a2"},
		{"new via menu row", []string{"down", "down", "down", "enter"}, ActionNew, ""},
		{"new via key", []string{"n"}, ActionNew, "a1"},
		{"cancel", []string{"esc"}, ActionCancel, "a1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := sendKeys(NewAnalysisListModel(sampleList()), tt.keys...).(AnalysisListModel)
			if m.Action() != tt.wantAction {
				t.Errorf("Action() = %q, want %q", m.Action(), tt.wantAction)
			}
			cur, _ := m.Current()
			if cur.ID != tt.wantID {
				t.Errorf("Current().ID = %q, want %q", cur.ID, tt.wantID)
			}
		})
	}
}

func TestAnalysisListModel_View(t *testing.T) {
	view := NewAnalysisListModel(sampleList()).View()
	for _, want := range []string{"Past analyses", "Morning run", "Afternoon run", "[New analysis]"} {
		if !strings.Contains(view, want) {
			t.Errorf("View() missing %q", want)
		}
	}

	empty := NewAnalysisListModel(nil).View()
	if !strings.Contains(empty, "No analyses yet") {
		t.Errorf("empty View() = %q", empty)
	}
}
