package tui

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/devbush/poser/internal/domain"
)

// StepStatus represents the state of a progress step
type StepStatus int

const (
	StepPending StepStatus = iota
	StepRunning
	StepComplete
	StepError
)

// ProgressStep represents a single step in the progress
type ProgressStep struct {
	Name   string
	Status StepStatus
	Error  string
}

// ProgressDisplay manages multi-step progress output for the non-interactive
// analyze command. The first steps are local (upload); the rest mirror the
// backend processing stages.
type ProgressDisplay struct {
	out         io.Writer
	steps       []ProgressStep
	spinnerIdx  int
	quiet       bool
	percent     float64
	eta         string
	label       string
	mu          sync.Mutex
	renderedLen int
}

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// NewProgressDisplay creates a new progress display writing to stdout
func NewProgressDisplay(steps []string, quiet bool) *ProgressDisplay {
	return newProgressDisplay(os.Stdout, steps, quiet)
}

func newProgressDisplay(out io.Writer, steps []string, quiet bool) *ProgressDisplay {
	pd := &ProgressDisplay{
		out:   out,
		steps: make([]ProgressStep, len(steps)),
		quiet: quiet,
	}
	for i, name := range steps {
		pd.steps[i] = ProgressStep{Name: name, Status: StepPending}
	}
	return pd
}

// StartStep marks a step as running
func (p *ProgressDisplay) StartStep(index int) {
	p.setStatus(index, StepRunning, "")
}

// CompleteStep marks a step as complete
func (p *ProgressDisplay) CompleteStep(index int) {
	p.setStatus(index, StepComplete, "")
}

// FailStep marks a step as failed
func (p *ProgressDisplay) FailStep(index int, err string) {
	p.setStatus(index, StepError, err)
}

func (p *ProgressDisplay) setStatus(index int, status StepStatus, err string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if index >= 0 && index < len(p.steps) {
		p.steps[index].Status = status
		p.steps[index].Error = err
		p.render()
	}
}

// Apply maps a backend progress snapshot onto the steps starting at offset
func (p *ProgressDisplay) Apply(offset int, snap domain.Progress) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for i, st := range snap.Stages() {
		idx := offset + i
		if idx >= len(p.steps) {
			break
		}
		switch st.State {
		case domain.StageCompleted:
			p.steps[idx].Status = StepComplete
		case domain.StageCurrent:
			p.steps[idx].Status = StepRunning
		default:
			p.steps[idx].Status = StepPending
		}
	}

	p.percent = snap.Progress
	p.eta = snap.EstimatedTimeRemaining
	p.label = snap.CurrentStep
	if snap.Status == domain.StatusAwaitingConfirmation {
		p.label = "Waiting for email confirmation"
	}
	p.render()
}

// Tick advances the spinner animation
func (p *ProgressDisplay) Tick() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.spinnerIdx = (p.spinnerIdx + 1) % len(spinnerFrames)
	p.render()
}

func (p *ProgressDisplay) render() {
	if p.quiet {
		return
	}

	// Move cursor up over the previous frame and clear it
	if p.renderedLen > 0 {
		fmt.Fprintf(p.out, "\033[%dA", p.renderedLen)
		fmt.Fprint(p.out, "\033[J")
	}

	lines := 0
	total := len(p.steps)
	for i, step := range p.steps {
		stepNum := fmt.Sprintf("[%d/%d]", i+1, total)

		var status string
		switch step.Status {
		case StepPending:
			status = " "
		case StepRunning:
			status = spinnerFrames[p.spinnerIdx]
		case StepComplete:
			status = "✓"
		case StepError:
			status = "✗ " + step.Error
		}

		fmt.Fprintf(p.out, "%s %s... %s\n", stepNum, step.Name, status)
		lines++
	}

	if p.label != "" {
		eta := ""
		if p.eta != "" {
			eta = " · ETA " + p.eta
		}
		fmt.Fprintf(p.out, "%s %.0f%%%s  %s\n", renderProgressBar(int(p.percent), 100, 20), p.percent, eta, p.label)
		lines++
	}

	p.renderedLen = lines
}

// Complete prints the final success message
func (p *ProgressDisplay) Complete(lines map[string]string) {
	if p.quiet {
		return
	}

	fmt.Fprintln(p.out)
	fmt.Fprintln(p.out, "✓ Complete!")
	for label, value := range lines {
		fmt.Fprintf(p.out, "  %s: %s\n", label, value)
	}
}

// StartSpinner starts a goroutine that ticks the spinner
func (p *ProgressDisplay) StartSpinner() chan struct{} {
	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(100 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				p.Tick()
			}
		}
	}()
	return done
}
