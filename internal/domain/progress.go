package domain

import (
	"fmt"
	"math"
	"strings"
)

// StageNames is the fixed, ordered list of processing stages
var StageNames = []string{
	"Video loading",
	"Pose detection",
	"Temporal smoothing",
	"Metrics calculation",
	"Output preparation",
}

// Bounds of one locally estimated progress increment, in percent
const (
	MinSynthesizedStep = 0.5
	MaxSynthesizedStep = 15.0
)

const (
	initialStepLabel   = "Initializing analysis..."
	synthesizedLabel   = "Processing video frames..."
	finalizingLabel    = "Finalizing analysis..."
	initialETALabel    = "Calculating..."
	secondsPerPercent  = 2
	maxProgressPercent = 100.0
)

// Progress is a snapshot of a running analysis
type Progress struct {
	Status                 AnalysisStatus `json:"status"`
	CurrentStep            string         `json:"currentStep"`
	Progress               float64        `json:"progress"`
	EstimatedTimeRemaining string         `json:"estimatedTimeRemaining"`
	StepsCompleted         []string       `json:"stepsCompleted"`
	TotalSteps             []string       `json:"totalSteps"`
	Error                  string         `json:"error,omitempty"`

	// Synthetic is set when the snapshot was estimated locally after a
	// failed poll instead of being reported by the backend.
	Synthetic bool `json:"-"`
}

// InitialProgress is the snapshot shown before the first poll returns
func InitialProgress() Progress {
	return Progress{
		Status:                 StatusProcessing,
		CurrentStep:            initialStepLabel,
		EstimatedTimeRemaining: initialETALabel,
		TotalSteps:             append([]string(nil), StageNames...),
	}
}

// Normalize canonicalizes the status, fills defaults the backend may omit
// and clamps the percentage
func (p Progress) Normalize() Progress {
	p.Status = ParseAnalysisStatus(string(p.Status))
	if len(p.TotalSteps) == 0 {
		p.TotalSteps = append([]string(nil), StageNames...)
	}
	p.Progress = math.Max(0, math.Min(p.Progress, maxProgressPercent))
	return p
}

// Synthesize estimates the next snapshot when a poll fails. Progress grows
// by step (clamped to [MinSynthesizedStep, MaxSynthesizedStep]) and never
// exceeds 100. An estimate is never terminal: at 100% it holds at
// "Finalizing analysis..." until the backend answers again.
func Synthesize(prev Progress, step float64) Progress {
	step = math.Max(MinSynthesizedStep, math.Min(step, MaxSynthesizedStep))

	next := prev.Normalize()
	next.Synthetic = true
	next.StepsCompleted = append([]string(nil), prev.StepsCompleted...)
	next.Progress = math.Min(prev.Progress+step, maxProgressPercent)
	if next.Status.IsTerminal() {
		next.Status = StatusProcessing
	}

	if prev.Progress < maxProgressPercent {
		next.CurrentStep = synthesizedLabel
		next.EstimatedTimeRemaining = formatETA(prev.Progress)
	} else {
		next.CurrentStep = finalizingLabel
		next.EstimatedTimeRemaining = "0s"
	}
	return next
}

func formatETA(progress float64) string {
	return fmt.Sprintf("%ds", int(math.Ceil((maxProgressPercent-progress)*secondsPerPercent)))
}

// StageState is the display state of one stage badge
type StageState int

const (
	StagePending StageState = iota
	StageCurrent
	StageCompleted
)

func (s StageState) String() string {
	switch s {
	case StageCurrent:
		return "current"
	case StageCompleted:
		return "completed"
	default:
		return "pending"
	}
}

// Stage is a named stage with its display state
type Stage struct {
	Name  string
	State StageState
}

// Stages classifies every stage of the snapshot. A stage is completed when
// listed in StepsCompleted, current when its name is contained in the
// current step label (case-insensitive), pending otherwise.
func (p Progress) Stages() []Stage {
	names := p.TotalSteps
	if len(names) == 0 {
		names = StageNames
	}

	completed := make(map[string]bool, len(p.StepsCompleted))
	for _, s := range p.StepsCompleted {
		completed[s] = true
	}
	current := strings.ToLower(p.CurrentStep)

	stages := make([]Stage, len(names))
	for i, name := range names {
		state := StagePending
		switch {
		case completed[name]:
			state = StageCompleted
		case strings.Contains(current, strings.ToLower(name)):
			state = StageCurrent
		}
		stages[i] = Stage{Name: name, State: state}
	}
	return stages
}
