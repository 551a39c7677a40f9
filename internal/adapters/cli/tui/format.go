package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/devbush/poser/internal/domain"
)

// FormatSize formats a byte count with a binary unit suffix
// Examples: 512 -> "512 B", 1536 -> "1.5 KB", 5242880 -> "5.0 MB"
func FormatSize(b int64) string {
	const unit = 1024
	if b < unit {
		return fmt.Sprintf("%d B", b)
	}
	div, exp := int64(unit), 0
	for n := b / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(b)/float64(div), "KMGTPE"[exp])
}

// FormatDate formats a date as "Jan 15" style
func FormatDate(t time.Time) string {
	if t.IsZero() {
		return "---"
	}
	return t.Format("Jan 2")
}

// FormatSeconds renders a float duration as m:ss.s
func FormatSeconds(s float64) string {
	if s < 0 {
		s = 0
	}
	m := int(s) / 60
	return fmt.Sprintf("%d:%04.1f", m, s-float64(m*60))
}

// FormatPercent renders a 0..1 ratio as a percentage with one decimal
func FormatPercent(ratio float64) string {
	return fmt.Sprintf("%.1f%%", ratio*100)
}

// StatusMarker returns a one-character marker for an analysis status
func StatusMarker(s domain.AnalysisStatus) string {
	switch s {
	case domain.StatusComplete:
		return "✓"
	case domain.StatusFailed:
		return "✗"
	case domain.StatusAwaitingConfirmation:
		return "…"
	default:
		return "•"
	}
}

// Truncate shortens s to max runes, ending with "..."
func Truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	if max <= 3 {
		return string(r[:max])
	}
	return string(r[:max-3]) + "..."
}

// FormatAnalysisLine formats a past analysis as a single line for display
// Example: "✓ Morning run                   Jan 15  0:18  92.5%"
func FormatAnalysisLine(s *domain.AnalysisSummary, maxTitleLen int) string {
	title := Truncate(s.DisplayTitle(), maxTitleLen)

	// Pad title to fixed width
	titleFmt := fmt.Sprintf("%%-%ds", maxTitleLen)
	paddedTitle := fmt.Sprintf(titleFmt, title)

	return fmt.Sprintf("%s %s  %6s  %5s  %s",
		StatusMarker(s.Status),
		paddedTitle,
		FormatDate(s.CreatedAt),
		domain.FormatDuration(s.Duration),
		s.StatusLabel())
}

// RenderStages draws one badge per processing stage
func RenderStages(p domain.Progress) string {
	var sb strings.Builder
	for _, st := range p.Stages() {
		switch st.State {
		case domain.StageCompleted:
			sb.WriteString(badgeCompleted.Render("✓ " + st.Name))
		case domain.StageCurrent:
			sb.WriteString(badgeCurrent.Render("▸ " + st.Name))
		default:
			sb.WriteString(badgePending.Render("○ " + st.Name))
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

// RenderResult renders the metrics and artifacts of a finished analysis
func RenderResult(r *domain.AnalysisResult, artifactURL func(domain.Artifact) string) string {
	var sb strings.Builder

	sb.WriteString(titleStyle.Render("Analysis " + r.ID))
	sb.WriteString("\n")
	if r.CreatedAt != nil {
		sb.WriteString(mutedStyle.Render("Submitted " + r.CreatedAt.Local().Format("Jan 2, 2006 15:04")))
		sb.WriteString("\n")
	}
	sb.WriteString("\n")

	if r.Status == domain.StatusFailed {
		sb.WriteString(errorStyle.Render("✗ " + r.FailureMessage()))
		sb.WriteString("\n")
		return sb.String()
	}
	if r.Status != domain.StatusComplete {
		sb.WriteString(mutedStyle.Render("Status: " + string(r.Status)))
		sb.WriteString("\n")
		return sb.String()
	}

	if out := r.Results; out != nil {
		if out.Message != "" {
			sb.WriteString(successStyle.Render("✓ " + out.Message))
			sb.WriteString("\n\n")
		}
		if m := out.Metrics; m != nil {
			sb.WriteString(titleStyle.Render("Metrics"))
			sb.WriteString("\n")
			fmt.Fprintf(&sb, "  Total frames:     %d\n", m.TotalFrames)
			if es := m.EdgeSimilarity; es != nil {
				fmt.Fprintf(&sb, "  Edge similarity:  %s (±%s)\n", FormatPercent(es.Mean), FormatPercent(es.Std))
				fmt.Fprintf(&sb, "  Range:            %s – %s\n", FormatPercent(es.Min), FormatPercent(es.Max))
				fmt.Fprintf(&sb, "  Poses analyzed:   %d\n", es.Count)
			}
			sb.WriteString("\n")
		}
	}

	artifacts := r.Artifacts()
	if len(artifacts) > 0 {
		sb.WriteString(titleStyle.Render("Outputs"))
		sb.WriteString("\n")
		for _, a := range artifacts {
			fmt.Fprintf(&sb, "  %-10s %-20s", a.Kind, a.Filename)
			if artifactURL != nil {
				sb.WriteString(" ")
				sb.WriteString(mutedStyle.Render(artifactURL(a)))
			}
			sb.WriteString("\n")
		}
	}
	return sb.String()
}
