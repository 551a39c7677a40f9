package tui

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/devbush/poser/internal/application"
	"github.com/devbush/poser/internal/domain"
)

// WizardDriver is the state machine behind the wizard screen
type WizardDriver interface {
	Changes() <-chan struct{}
	Snapshot() application.WizardSnapshot

	SelectVideo(ctx context.Context, path string) error
	RemoveVideo() error
	SelectHandle(h domain.TrimHandle)
	NudgeTrim(delta float64) error
	TogglePlayback() error
	ConfirmTrim() error

	SetEmail(email string)
	SetCode(code string) string
	RequestCode(ctx context.Context) error
	ResendCode(ctx context.Context) error
	EditEmail()
	VerifyCode(ctx context.Context) error
	Submit(ctx context.Context) error

	StartNew() error
	Delete(ctx context.Context) error
}

const (
	trackWidth     = 50
	nudgeStep      = 1.0
	nudgeStepLarge = 5.0
)

var wizardSteps = []struct {
	label string
	steps []domain.Step
}{
	{"Upload", []domain.Step{domain.StepUpload}},
	{"Trim", []domain.Step{domain.StepTrim}},
	{"Verify", []domain.Step{domain.StepVerify}},
	{"Analyze", []domain.Step{domain.StepAwaitingConfirmation, domain.StepProcessing}},
	{"Results", []domain.Step{domain.StepResults, domain.StepFailed}},
}

// changedMsg is sent when the driver announced a state change
type changedMsg struct{}

// opDoneMsg is sent when a driver call started from a key press returns
type opDoneMsg struct {
	err error
}

// WizardModel is the bubbletea model of the analysis wizard
type WizardModel struct {
	ctx         context.Context
	driver      WizardDriver
	artifactURL func(domain.Artifact) string
	trimEnabled bool

	snap application.WizardSnapshot

	pathInput  textinput.Model
	emailInput textinput.Model
	codeInput  textinput.Model
	spinner    spinner.Model
	bar        progress.Model

	notice   string
	quitting bool
}

// NewWizardModel creates the wizard screen for driver
func NewWizardModel(ctx context.Context, driver WizardDriver, trimEnabled bool, artifactURL func(domain.Artifact) string) WizardModel {
	path := textinput.New()
	path.Placeholder = "~/Videos/run.mp4"
	path.CharLimit = 1024
	path.Width = 60

	email := textinput.New()
	email.Placeholder = "you@example.com"
	email.CharLimit = 254
	email.Width = 40

	code := textinput.New()
	code.Placeholder = "123456"
	// SetCode trims to the code length after separators are dropped
	code.CharLimit = 64
	code.Width = domain.CodeLength + 1

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = accentStyle

	bar := progress.New(
		progress.WithDefaultGradient(),
		progress.WithWidth(trackWidth),
	)

	m := WizardModel{
		ctx:         ctx,
		driver:      driver,
		artifactURL: artifactURL,
		trimEnabled: trimEnabled,
		snap:        driver.Snapshot(),
		pathInput:   path,
		emailInput:  email,
		codeInput:   code,
		spinner:     sp,
		bar:         bar,
	}
	m.focus(m.snap.Step)
	return m
}

func (m WizardModel) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.spinner.Tick, m.waitForChange())
}

func (m WizardModel) waitForChange() tea.Cmd {
	changes := m.driver.Changes()
	ctx := m.ctx
	return func() tea.Msg {
		select {
		case <-changes:
			return changedMsg{}
		case <-ctx.Done():
			return nil
		}
	}
}

// run calls fn off the UI goroutine and reports its error
func (m WizardModel) run(fn func(ctx context.Context) error) tea.Cmd {
	ctx := m.ctx
	return func() tea.Msg {
		return opDoneMsg{err: fn(ctx)}
	}
}

func (m WizardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.bar.Width = min(max(msg.Width-4, 10), trackWidth)
		return m, nil

	case changedMsg:
		m.refresh()
		return m, m.waitForChange()

	case opDoneMsg:
		m.refresh()
		if msg.err != nil && m.snap.Error == "" && m.snap.Verification.Error == "" {
			m.notice = msg.err.Error()
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			m.quitting = true
			return m, tea.Quit
		}
		m.notice = ""
		return m.handleKey(msg)
	}
	return m, nil
}

// refresh takes a new snapshot and moves focus when the step changed
func (m *WizardModel) refresh() {
	prev := m.snap
	m.snap = m.driver.Snapshot()

	if m.snap.Step == prev.Step && m.snap.Verification.Step == prev.Verification.Step {
		return
	}
	if m.snap.Step == domain.StepUpload && prev.Step != domain.StepUpload {
		m.pathInput.SetValue("")
	}
	m.focus(m.snap.Step)
}

// focus gives keyboard focus to the input of the given step
func (m *WizardModel) focus(step domain.Step) {
	m.pathInput.Blur()
	m.emailInput.Blur()
	m.codeInput.Blur()

	switch step {
	case domain.StepUpload:
		m.pathInput.Focus()
	case domain.StepVerify:
		if m.snap.Verification.Step == domain.VerifyCode {
			m.codeInput.SetValue(m.snap.Verification.Code)
			m.codeInput.Focus()
		} else {
			m.emailInput.SetValue(m.snap.Verification.Email)
			m.emailInput.Focus()
		}
	}
}

func (m WizardModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch m.snap.Step {
	case domain.StepUpload:
		return m.handleUpload(msg)
	case domain.StepTrim:
		return m.handleTrim(msg)
	case domain.StepVerify:
		return m.handleVerify(msg)
	case domain.StepAwaitingConfirmation, domain.StepProcessing:
		switch msg.String() {
		case "q", "esc":
			m.quitting = true
			return m, tea.Quit
		}
	case domain.StepResults, domain.StepFailed:
		return m.handleFinished(msg)
	}
	return m, nil
}

func (m WizardModel) handleUpload(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.quitting = true
		return m, tea.Quit
	case "enter":
		path := CleanPath(m.pathInput.Value())
		if path == "" || m.snap.Busy {
			return m, nil
		}
		return m, m.run(func(ctx context.Context) error {
			return m.driver.SelectVideo(ctx, path)
		})
	}

	var cmd tea.Cmd
	m.pathInput, cmd = m.pathInput.Update(msg)
	return m, cmd
}

func (m WizardModel) handleTrim(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	d := m.driver
	switch msg.String() {
	case "tab", "shift+tab":
		next := domain.HandleEnd
		if m.snap.ActiveHandle == domain.HandleEnd {
			next = domain.HandleStart
		}
		d.SelectHandle(next)
	case "left", "h":
		return m, m.nudge(-nudgeStep)
	case "right", "l":
		return m, m.nudge(nudgeStep)
	case "shift+left", "H":
		return m, m.nudge(-nudgeStepLarge)
	case "shift+right", "L":
		return m, m.nudge(nudgeStepLarge)
	case " ", "p":
		return m, m.run(func(context.Context) error { return d.TogglePlayback() })
	case "enter":
		return m, m.run(func(context.Context) error { return d.ConfirmTrim() })
	case "backspace", "delete", "x":
		return m, m.run(func(context.Context) error { return d.RemoveVideo() })
	case "q", "esc":
		m.quitting = true
		return m, tea.Quit
	}
	return m, nil
}

func (m WizardModel) nudge(delta float64) tea.Cmd {
	d := m.driver
	return m.run(func(context.Context) error { return d.NudgeTrim(delta) })
}

func (m WizardModel) handleVerify(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	d := m.driver

	if m.snap.LoggedInAs != "" {
		switch msg.String() {
		case "enter":
			if !m.snap.Busy {
				return m, m.run(d.Submit)
			}
		case "esc":
			return m, m.back()
		case "q":
			m.quitting = true
			return m, tea.Quit
		}
		return m, nil
	}

	if m.snap.Verification.Step == domain.VerifyCode {
		switch msg.String() {
		case "enter":
			if !m.snap.Busy {
				return m, m.run(d.VerifyCode)
			}
			return m, nil
		case "ctrl+r":
			if !m.snap.Busy {
				return m, m.run(d.ResendCode)
			}
			return m, nil
		case "esc":
			d.EditEmail()
			return m, nil
		}
		var cmd tea.Cmd
		m.codeInput, cmd = m.codeInput.Update(msg)
		m.codeInput.SetValue(d.SetCode(m.codeInput.Value()))
		return m, cmd
	}

	switch msg.String() {
	case "enter":
		if m.snap.Busy {
			return m, nil
		}
		d.SetEmail(strings.TrimSpace(m.emailInput.Value()))
		return m, m.run(d.RequestCode)
	case "esc":
		return m, m.back()
	}
	var cmd tea.Cmd
	m.emailInput, cmd = m.emailInput.Update(msg)
	d.SetEmail(m.emailInput.Value())
	return m, cmd
}

// back drops the selection and returns to the upload step
func (m WizardModel) back() tea.Cmd {
	d := m.driver
	return m.run(func(context.Context) error { return d.RemoveVideo() })
}

func (m WizardModel) handleFinished(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	d := m.driver
	switch msg.String() {
	case "n":
		return m, m.run(func(context.Context) error { return d.StartNew() })
	case "d":
		if m.snap.Step == domain.StepResults && !m.snap.Busy {
			return m, m.run(d.Delete)
		}
	case "q", "esc", "enter":
		m.quitting = true
		return m, tea.Quit
	}
	return m, nil
}

func (m WizardModel) View() string {
	if m.quitting {
		return ""
	}

	var sb strings.Builder
	sb.WriteString(titleStyle.Render("Poser"))
	sb.WriteString("  ")
	sb.WriteString(m.renderBreadcrumb())
	sb.WriteString("\n\n")

	switch m.snap.Step {
	case domain.StepUpload:
		sb.WriteString(m.viewUpload())
	case domain.StepTrim:
		sb.WriteString(m.viewTrim())
	case domain.StepVerify:
		sb.WriteString(m.viewVerify())
	case domain.StepAwaitingConfirmation:
		sb.WriteString(m.viewAwaiting())
	case domain.StepProcessing:
		sb.WriteString(m.viewProcessing())
	case domain.StepResults:
		sb.WriteString(m.viewResults())
	case domain.StepFailed:
		sb.WriteString(m.viewFailed())
	}

	if m.snap.Error != "" && m.snap.Step != domain.StepFailed {
		sb.WriteString("\n")
		sb.WriteString(errorStyle.Render("✗ " + m.snap.Error))
		sb.WriteString("\n")
	}
	if m.notice != "" {
		sb.WriteString("\n")
		sb.WriteString(mutedStyle.Render(m.notice))
		sb.WriteString("\n")
	}
	return sb.String()
}

func (m WizardModel) renderBreadcrumb() string {
	parts := make([]string, 0, len(wizardSteps))
	for _, s := range wizardSteps {
		if s.label == "Trim" && !m.trimEnabled {
			continue
		}
		style := mutedStyle
		for _, st := range s.steps {
			if st == m.snap.Step {
				style = accentStyle
			}
		}
		parts = append(parts, style.Render(s.label))
	}
	return strings.Join(parts, mutedStyle.Render(" › "))
}

func (m WizardModel) viewUpload() string {
	var sb strings.Builder
	sb.WriteString("Select a video to analyze (MP4, MOV or AVI, up to 500MB)\n\n")
	sb.WriteString(m.pathInput.View())
	sb.WriteString("\n")
	if m.snap.Busy {
		sb.WriteString("\n" + m.spinner.View() + " Checking file...\n")
	}
	sb.WriteString(mutedStyle.Render("\n(enter=select, esc=quit)"))
	sb.WriteString("\n")
	return sb.String()
}

func (m WizardModel) viewTrim() string {
	v := m.snap.Video
	if v == nil {
		return ""
	}
	r := m.snap.Trim
	var sb strings.Builder

	fmt.Fprintf(&sb, "%s  %s  %s\n\n", titleStyle.Render(v.Name), mutedStyle.Render(FormatSize(v.Size)), mutedStyle.Render(FormatSeconds(v.DurationSeconds)))
	sb.WriteString(RenderTrimTrack(r, m.snap.ActiveHandle, trackWidth))
	sb.WriteString("\n")

	start := r.OffsetSeconds(domain.HandleStart, v.DurationSeconds)
	end := r.OffsetSeconds(domain.HandleEnd, v.DurationSeconds)
	fmt.Fprintf(&sb, "start %s   end %s   length %.1fs (max %gs)\n",
		FormatSeconds(start), FormatSeconds(end), r.Seconds(v.DurationSeconds), domain.MaxTrimSeconds)

	state := "paused"
	if m.snap.Playing {
		state = "playing"
	}
	fmt.Fprintf(&sb, "%s handle: %s   preview: %s\n", accentStyle.Render("▸"), m.snap.ActiveHandle, state)

	sb.WriteString(mutedStyle.Render("\n(tab=switch handle, ←/→=move, shift+←/→=move 5%, space=play/pause, enter=continue, backspace=remove, q=quit)"))
	sb.WriteString("\n")
	return sb.String()
}

// RenderTrimTrack draws the trim range as a track of width cells. The
// selected cells are thick, the active handle is a diamond.
func RenderTrimTrack(r domain.TrimRange, active domain.TrimHandle, width int) string {
	if width < 2 {
		width = 2
	}
	startCell := int(math.Round(r.Start / 100 * float64(width)))
	endCell := int(math.Round(r.End / 100 * float64(width)))
	startCell = min(max(startCell, 0), width)
	endCell = min(max(endCell, startCell), width)

	startMark, endMark := "|", "|"
	if active == domain.HandleEnd {
		endMark = "◆"
	} else {
		startMark = "◆"
	}

	var sb strings.Builder
	sb.WriteString(strings.Repeat("─", startCell))
	sb.WriteString(startMark)
	sb.WriteString(strings.Repeat("━", endCell-startCell))
	sb.WriteString(endMark)
	sb.WriteString(strings.Repeat("─", width-endCell))
	return sb.String()
}

func (m WizardModel) viewVerify() string {
	var sb strings.Builder
	if v := m.snap.Video; v != nil {
		fmt.Fprintf(&sb, "%s  %s\n\n", titleStyle.Render(v.Name), mutedStyle.Render(FormatSize(v.Size)))
	}

	if m.snap.LoggedInAs != "" {
		fmt.Fprintf(&sb, "Signed in as %s\n", accentStyle.Render(m.snap.LoggedInAs))
		if m.snap.Busy {
			sb.WriteString("\n" + m.spinner.View() + " Uploading...\n")
		}
		sb.WriteString(mutedStyle.Render("\n(enter=analyze, esc=change video, q=quit)"))
		sb.WriteString("\n")
		return sb.String()
	}

	vs := m.snap.Verification
	if vs.Step == domain.VerifyCode {
		fmt.Fprintf(&sb, "Enter the %d-digit code sent to %s\n\n", domain.CodeLength, accentStyle.Render(vs.Email))
		sb.WriteString(m.codeInput.View())
		sb.WriteString("\n")
		if vs.ResendMessage != "" {
			sb.WriteString(successStyle.Render(vs.ResendMessage))
			sb.WriteString("\n")
		}
	} else {
		sb.WriteString("Verify your email to receive the results\n\n")
		sb.WriteString(m.emailInput.View())
		sb.WriteString("\n")
	}

	if vs.Error != "" {
		sb.WriteString(errorStyle.Render("✗ " + vs.Error))
		sb.WriteString("\n")
	}
	if m.snap.Busy {
		sb.WriteString("\n" + m.spinner.View() + " Please wait...\n")
	}

	if vs.Step == domain.VerifyCode {
		sb.WriteString(mutedStyle.Render("\n(enter=verify, ctrl+r=resend code, esc=change email)"))
	} else {
		sb.WriteString(mutedStyle.Render("\n(enter=send code, esc=change video)"))
	}
	sb.WriteString("\n")
	return sb.String()
}

func (m WizardModel) viewAwaiting() string {
	var sb strings.Builder
	sb.WriteString(m.spinner.View())
	sb.WriteString(" Check your inbox and confirm your email to start the analysis.\n")
	sb.WriteString(mutedStyle.Render("Analysis " + m.snap.AnalysisID))
	sb.WriteString("\n")
	sb.WriteString(mutedStyle.Render("\n(q=quit, the analysis keeps running)"))
	sb.WriteString("\n")
	return sb.String()
}

func (m WizardModel) viewProcessing() string {
	p := m.snap.Progress
	var sb strings.Builder

	fmt.Fprintf(&sb, "%s %s\n\n", m.spinner.View(), p.CurrentStep)
	sb.WriteString(m.bar.ViewAs(p.Progress / 100))
	sb.WriteString("\n")
	eta := "ETA " + p.EstimatedTimeRemaining
	if p.Synthetic {
		eta += " (estimated, waiting for the server)"
	}
	sb.WriteString(mutedStyle.Render(eta))
	sb.WriteString("\n\n")
	sb.WriteString(RenderStages(p))
	sb.WriteString(mutedStyle.Render("\n(q=quit, the analysis keeps running)"))
	sb.WriteString("\n")
	return sb.String()
}

func (m WizardModel) viewResults() string {
	var sb strings.Builder
	if m.snap.Result != nil {
		sb.WriteString(RenderResult(m.snap.Result, m.artifactURL))
	}
	if m.snap.Busy {
		sb.WriteString("\n" + m.spinner.View() + " Deleting...\n")
	}
	sb.WriteString(mutedStyle.Render("\n(n=new analysis, d=delete, q=quit)"))
	sb.WriteString("\n")
	return sb.String()
}

func (m WizardModel) viewFailed() string {
	var sb strings.Builder
	sb.WriteString(errorStyle.Render("✗ Analysis failed"))
	sb.WriteString("\n\n")
	sb.WriteString(m.snap.Error)
	sb.WriteString("\n")
	sb.WriteString(mutedStyle.Render("\n(n=try again, q=quit)"))
	sb.WriteString("\n")
	return sb.String()
}

// Snapshot returns the last state seen by the screen
func (m WizardModel) Snapshot() application.WizardSnapshot {
	return m.snap
}

// CleanPath trims whitespace and the quotes terminals add around dropped files
func CleanPath(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 2 && (s[0] == '\'' || s[0] == '"') && s[len(s)-1] == s[0] {
		s = s[1 : len(s)-1]
	}
	return strings.TrimSpace(s)
}

// RunWizard runs the wizard screen until the user quits and returns the
// last state
func RunWizard(ctx context.Context, driver WizardDriver, trimEnabled bool, artifactURL func(domain.Artifact) string) (application.WizardSnapshot, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	model := NewWizardModel(ctx, driver, trimEnabled, artifactURL)
	p := tea.NewProgram(model, tea.WithContext(ctx))

	finalModel, err := p.Run()
	if err != nil {
		return driver.Snapshot(), err
	}
	return finalModel.(WizardModel).Snapshot(), nil
}
