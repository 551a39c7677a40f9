package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/devbush/poser/internal/domain"
	"github.com/devbush/poser/internal/ports"
)

const (
	uploadFailed       = "Upload failed. Please try again."
	deleteFailed       = "Failed to delete analysis. Please try again."
	resultsUnavailable = "Analysis finished but results could not be loaded. Please try again."
)

// WizardOptions configures the analysis wizard
type WizardOptions struct {
	TrimEnabled       bool
	AwaitConfirmation bool
	MaxTrimSeconds    float64
}

// WizardDeps are the collaborators of the wizard. Trimmer and Player may be nil.
type WizardDeps struct {
	API       ports.PoserAPI
	Session   *Session
	Inspector ports.MediaInspector
	Previewer ports.Previewer
	Player    ports.Player
	Trimmer   ports.Trimmer
	Poller    *Poller
	Logger    *slog.Logger
}

// WizardSnapshot is a consistent copy of the wizard state for rendering
type WizardSnapshot struct {
	Step         domain.Step
	Video        *domain.SelectedVideo
	Trim         domain.TrimRange
	ActiveHandle domain.TrimHandle
	Playing      bool
	Verification domain.VerificationSession
	LoggedInAs   string
	AnalysisID   string
	Progress     domain.Progress
	Result       *domain.AnalysisResult
	Error        string
	Busy         bool
}

// Wizard walks one video from selection to results:
// upload -> trim -> verify -> (awaiting confirmation) -> processing -> results | failed.
// All methods are safe for concurrent use. Changes are announced on Changes().
type Wizard struct {
	deps     WizardDeps
	opts     WizardOptions
	verifier *Verifier
	logger   *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu         sync.Mutex
	step       domain.Step
	video      *domain.SelectedVideo
	trim       domain.TrimRange
	handle     domain.TrimHandle
	playing    bool
	analysisID string
	progress   domain.Progress
	result     *domain.AnalysisResult
	errMsg     string
	busy       bool
	closed     bool

	poll    *PollHandle
	pollGen int

	changes chan struct{}
}

// NewWizard creates a wizard in the upload step
func NewWizard(deps WizardDeps, opts WizardOptions) *Wizard {
	if opts.MaxTrimSeconds <= 0 {
		opts.MaxTrimSeconds = domain.MaxTrimSeconds
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	ctx, cancel := context.WithCancel(context.Background())
	w := &Wizard{
		deps:     deps,
		opts:     opts,
		logger:   logger,
		ctx:      ctx,
		cancel:   cancel,
		step:     domain.StepUpload,
		progress: domain.InitialProgress(),
		changes:  make(chan struct{}, 1),
	}
	w.verifier = NewVerifier(deps.API, ModeEmailCode, w.onVerified)
	return w
}

// Changes delivers a notification whenever the state changed. Notifications
// are coalesced, so readers should take a fresh Snapshot on each one.
func (w *Wizard) Changes() <-chan struct{} {
	return w.changes
}

func (w *Wizard) notify() {
	select {
	case w.changes <- struct{}{}:
	default:
	}
}

// Snapshot returns a copy of the current state
func (w *Wizard) Snapshot() WizardSnapshot {
	w.mu.Lock()
	defer w.mu.Unlock()

	s := WizardSnapshot{
		Step:         w.step,
		Trim:         w.trim,
		ActiveHandle: w.handle,
		Playing:      w.playing,
		Verification: w.verifier.State(),
		AnalysisID:   w.analysisID,
		Progress:     w.progress,
		Result:       w.result,
		Error:        w.errMsg,
		Busy:         w.busy || w.verifier.Busy(),
	}
	if w.video != nil {
		v := *w.video
		s.Video = &v
	}
	if w.deps.Session != nil {
		s.LoggedInAs = w.deps.Session.Email()
	}
	return s
}

// Step returns the active step
func (w *Wizard) Step() domain.Step {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.step
}

// Verifier exposes the email verification flow of the verify step
func (w *Wizard) Verifier() *Verifier {
	return w.verifier
}

// SelectVideo inspects and validates the file. A rejected file leaves the
// step unchanged. An accepted file replaces the previous selection and its
// preview is revoked.
func (w *Wizard) SelectVideo(ctx context.Context, path string) error {
	w.mu.Lock()
	if err := w.checkStep(domain.StepUpload, domain.StepTrim, domain.StepVerify); err != nil {
		w.mu.Unlock()
		return err
	}
	w.mu.Unlock()

	info, err := w.deps.Inspector.Inspect(ctx, path)
	if err == nil {
		err = domain.ValidateVideo(info.MIMEType, info.Size)
	}
	if err != nil {
		w.setError(domain.UserMessage(err, domain.ErrNotAVideo.Error()))
		return fmt.Errorf("select video: %w", err)
	}

	ref, err := w.deps.Previewer.Create(path)
	if err != nil {
		w.setError("Could not open the video preview.")
		return fmt.Errorf("create preview: %w", err)
	}

	video := domain.NewSelectedVideo(path, info.MIMEType, info.Size, info.DurationSeconds)
	video.PreviewRef = ref

	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		w.revoke(ref)
		return domain.ErrWrongStep
	}
	old := w.takePreviewLocked()
	w.video = video
	w.trim = domain.NewTrimRange(video.DurationSeconds, w.opts.MaxTrimSeconds)
	w.handle = domain.HandleStart
	w.playing = false
	w.errMsg = ""
	if w.opts.TrimEnabled {
		w.step = domain.StepTrim
	} else {
		w.step = domain.StepVerify
	}
	w.mu.Unlock()

	w.revoke(old)
	w.logger.Info("video selected", "path", path, "size", info.Size, "duration", info.DurationSeconds)
	w.notify()
	return nil
}

// RemoveVideo drops the selection and returns to the upload step
func (w *Wizard) RemoveVideo() error {
	w.mu.Lock()
	if err := w.checkStep(domain.StepTrim, domain.StepVerify); err != nil {
		w.mu.Unlock()
		return err
	}
	if w.busy {
		w.mu.Unlock()
		return domain.ErrRequestInFlight
	}
	old := w.takePreviewLocked()
	w.video = nil
	w.trim = domain.TrimRange{}
	w.playing = false
	w.errMsg = ""
	w.step = domain.StepUpload
	w.mu.Unlock()

	w.revoke(old)
	w.notify()
	return nil
}

// SelectHandle picks the handle moved by AdjustTrim and NudgeTrim
func (w *Wizard) SelectHandle(h domain.TrimHandle) {
	w.mu.Lock()
	w.handle = h
	w.mu.Unlock()
	w.notify()
}

// AdjustTrim moves a handle to value (percent) and seeks the preview to it
func (w *Wizard) AdjustTrim(h domain.TrimHandle, value float64) error {
	w.mu.Lock()
	if err := w.checkStep(domain.StepTrim); err != nil {
		w.mu.Unlock()
		return err
	}
	duration := w.video.DurationSeconds
	w.handle = h
	w.trim = w.trim.Adjust(h, value, duration, w.opts.MaxTrimSeconds)
	offset := w.trim.OffsetSeconds(h, duration)
	ref := w.video.PreviewRef
	w.mu.Unlock()

	if w.deps.Player != nil {
		if err := w.deps.Player.Seek(ref, offset); err != nil {
			w.logger.Warn("seek failed", "error", err, "offset", offset)
		}
	}
	w.notify()
	return nil
}

// NudgeTrim moves the active handle by delta percent
func (w *Wizard) NudgeTrim(delta float64) error {
	w.mu.Lock()
	h := w.handle
	var value float64
	if h == domain.HandleEnd {
		value = w.trim.End + delta
	} else {
		value = w.trim.Start + delta
	}
	w.mu.Unlock()
	return w.AdjustTrim(h, value)
}

// TogglePlayback plays or pauses the preview. It does not touch the trim range.
func (w *Wizard) TogglePlayback() error {
	w.mu.Lock()
	if err := w.checkStep(domain.StepTrim); err != nil {
		w.mu.Unlock()
		return err
	}
	ref := w.video.PreviewRef
	playing := !w.playing
	w.playing = playing
	w.mu.Unlock()

	if w.deps.Player != nil {
		var err error
		if playing {
			err = w.deps.Player.Play(ref)
		} else {
			err = w.deps.Player.Pause(ref)
		}
		if err != nil {
			w.logger.Warn("playback toggle failed", "error", err)
		}
	}
	w.notify()
	return nil
}

// ConfirmTrim accepts the range and moves on to verification
func (w *Wizard) ConfirmTrim() error {
	w.mu.Lock()
	if err := w.checkStep(domain.StepTrim); err != nil {
		w.mu.Unlock()
		return err
	}
	if !w.trim.Valid(w.video.DurationSeconds, w.opts.MaxTrimSeconds) {
		w.mu.Unlock()
		return fmt.Errorf("invalid trim range %+v", w.trim)
	}
	ref := w.video.PreviewRef
	wasPlaying := w.playing
	w.playing = false
	w.step = domain.StepVerify
	w.errMsg = ""
	w.mu.Unlock()

	if wasPlaying && w.deps.Player != nil {
		_ = w.deps.Player.Pause(ref)
	}
	w.notify()
	return nil
}

// RequestCode sends a verification code to the entered email
func (w *Wizard) RequestCode(ctx context.Context) error {
	if err := w.requireStep(domain.StepVerify); err != nil {
		return err
	}
	w.notify()
	err := w.verifier.RequestCode(ctx)
	w.notify()
	return err
}

// VerifyCode verifies the entered code and, on success, submits the video
func (w *Wizard) VerifyCode(ctx context.Context) error {
	if err := w.requireStep(domain.StepVerify); err != nil {
		return err
	}
	w.notify()
	err := w.verifier.VerifyCode(ctx)
	w.notify()
	if err != nil {
		return err
	}
	return w.Submit(ctx)
}

// SetEmail updates the email field of the verify step
func (w *Wizard) SetEmail(email string) {
	w.verifier.SetEmail(email)
	w.notify()
}

// SetCode updates the code field and returns the sanitized value
func (w *Wizard) SetCode(code string) string {
	c := w.verifier.SetCode(code)
	w.notify()
	return c
}

// ResendCode requests a new code for the entered email
func (w *Wizard) ResendCode(ctx context.Context) error {
	if err := w.requireStep(domain.StepVerify); err != nil {
		return err
	}
	w.notify()
	err := w.verifier.Resend(ctx)
	w.notify()
	return err
}

// EditEmail returns from code entry to email entry
func (w *Wizard) EditEmail() {
	w.verifier.Back()
	w.notify()
}

func (w *Wizard) onVerified(email string, tok *ports.TokenResponse) {
	if w.deps.Session == nil {
		return
	}
	if err := w.deps.Session.Login(email, tok); err != nil {
		w.logger.Error("failed to store session", "error", err)
	}
}

// Submit uploads the selected video and starts polling. It requires a
// verified email or an existing session.
func (w *Wizard) Submit(ctx context.Context) error {
	w.mu.Lock()
	if err := w.checkStep(domain.StepVerify); err != nil {
		w.mu.Unlock()
		return err
	}
	if w.busy {
		w.mu.Unlock()
		return domain.ErrRequestInFlight
	}
	if w.deps.Session != nil && !w.deps.Session.IsLoggedIn() {
		w.mu.Unlock()
		return domain.ErrNotVerified
	}
	w.busy = true
	w.errMsg = ""
	video := *w.video
	trim := w.trim
	w.mu.Unlock()
	w.notify()

	id, err := w.upload(ctx, &video, trim)

	w.mu.Lock()
	w.busy = false
	if err != nil {
		w.errMsg = domain.UserMessage(err, uploadFailed)
		w.mu.Unlock()
		w.notify()
		return fmt.Errorf("upload: %w", err)
	}
	if w.closed || w.step != domain.StepVerify {
		w.mu.Unlock()
		return domain.ErrWrongStep
	}

	w.analysisID = id
	w.progress = domain.InitialProgress()
	if w.opts.AwaitConfirmation {
		w.step = domain.StepAwaitingConfirmation
		w.progress.Status = domain.StatusAwaitingConfirmation
	} else {
		w.step = domain.StepProcessing
	}
	prev := w.startPollingLocked(id)
	w.mu.Unlock()

	if prev != nil {
		prev.Stop()
	}
	w.logger.Info("analysis submitted", "analysis_id", id, "step", w.Step())
	w.notify()
	return nil
}

func (w *Wizard) upload(ctx context.Context, video *domain.SelectedVideo, trim domain.TrimRange) (string, error) {
	req := ports.UploadRequest{Path: video.Path, Filename: video.Name, DurationSeconds: video.DurationSeconds}

	if w.opts.TrimEnabled && !trim.IsFull() {
		if w.deps.Trimmer != nil && w.deps.Trimmer.Available() && video.DurationSeconds > 0 {
			clip, err := w.deps.Trimmer.Trim(ctx, video.Path, trim, video.DurationSeconds)
			if err != nil {
				return "", fmt.Errorf("trim: %w", err)
			}
			defer os.Remove(clip)
			req.Path = clip
		} else {
			t := trim
			req.Trim = &t
		}
	}

	return w.deps.API.UploadVideo(ctx, req)
}

// startPollingLocked starts a new poll loop and returns the previous handle,
// which the caller must stop after releasing the lock.
func (w *Wizard) startPollingLocked(id string) *PollHandle {
	prev := w.poll
	w.pollGen++
	gen := w.pollGen
	w.poll = w.deps.Poller.Start(w.ctx, id, w.progress, func(p domain.Progress) {
		w.onProgress(gen, id, p)
	})
	return prev
}

// resumePollingLocked restarts polling after one interval. The loop that
// delivered the last snapshot has already exited.
func (w *Wizard) resumePollingLocked(id string) {
	w.pollGen++
	gen := w.pollGen
	w.poll = w.deps.Poller.Resume(w.ctx, id, w.progress, func(p domain.Progress) {
		w.onProgress(gen, id, p)
	})
}

func (w *Wizard) onProgress(gen int, id string, p domain.Progress) {
	w.mu.Lock()
	if gen != w.pollGen || !w.step.IsPolling() {
		w.mu.Unlock()
		return
	}
	w.progress = p
	if w.step == domain.StepAwaitingConfirmation && !p.Synthetic &&
		(p.Status != domain.StatusAwaitingConfirmation || p.Progress > 0) {
		w.step = domain.StepProcessing
	}
	w.mu.Unlock()

	if p.Status.IsTerminal() {
		go w.finish(gen, id, p)
	}
	w.notify()
}

// finish loads the full record once polling reached a terminal status.
// A record that is still running sends the wizard back to polling.
func (w *Wizard) finish(gen int, id string, p domain.Progress) {
	result, err := w.deps.API.GetAnalysis(w.ctx, id)
	if err == nil && result == nil {
		err = errors.New("empty analysis response")
	}
	if err != nil {
		w.logger.Warn("failed to load analysis", "analysis_id", id, "error", err)
	}

	w.mu.Lock()
	if gen != w.pollGen || !w.step.IsPolling() {
		w.mu.Unlock()
		return
	}

	switch {
	case p.Status == domain.StatusFailed:
		w.step = domain.StepFailed
		switch {
		case err == nil && result.ErrorLog != "":
			w.errMsg = result.ErrorLog
		case p.Error != "":
			w.errMsg = p.Error
		default:
			w.errMsg = result.FailureMessage()
		}
		w.result = result
	case err != nil:
		w.step = domain.StepFailed
		w.errMsg = resultsUnavailable
	case result.Status == domain.StatusFailed:
		w.step = domain.StepFailed
		w.errMsg = result.FailureMessage()
		w.result = result
	case !result.Status.IsTerminal():
		w.progress.Status = domain.StatusProcessing
		w.resumePollingLocked(id)
		w.mu.Unlock()

		w.logger.Info("analysis not finished yet, polling again", "analysis_id", id, "status", result.Status)
		w.notify()
		return
	default:
		w.step = domain.StepResults
		w.errMsg = ""
		w.result = result
	}
	step := w.step
	w.mu.Unlock()

	w.logger.Info("analysis finished", "analysis_id", id, "step", step)
	w.notify()
}

// StartNew stops any polling, releases the preview and returns to upload
func (w *Wizard) StartNew() error {
	w.mu.Lock()
	if w.busy {
		w.mu.Unlock()
		return domain.ErrRequestInFlight
	}
	poll, old := w.resetLocked()
	w.mu.Unlock()

	if poll != nil {
		poll.Stop()
	}
	w.revoke(old)
	w.verifier.Reset()
	w.notify()
	return nil
}

// Delete removes the shown analysis and leaves the results view
func (w *Wizard) Delete(ctx context.Context) error {
	w.mu.Lock()
	if err := w.checkStep(domain.StepResults, domain.StepFailed); err != nil {
		w.mu.Unlock()
		return err
	}
	if w.busy {
		w.mu.Unlock()
		return domain.ErrRequestInFlight
	}
	id := w.analysisID
	w.busy = true
	w.mu.Unlock()
	w.notify()

	err := w.deps.API.DeleteAnalysis(ctx, id)

	w.mu.Lock()
	w.busy = false
	if err != nil {
		w.errMsg = domain.UserMessage(err, deleteFailed)
		w.mu.Unlock()
		w.notify()
		return fmt.Errorf("delete analysis: %w", err)
	}
	poll, old := w.resetLocked()
	w.mu.Unlock()

	if poll != nil {
		poll.Stop()
	}
	w.revoke(old)
	w.verifier.Reset()
	w.logger.Info("analysis deleted", "analysis_id", id)
	w.notify()
	return nil
}

// Close stops polling and releases the preview. Further operations fail
// with domain.ErrWrongStep. Close is idempotent.
func (w *Wizard) Close() {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return
	}
	w.closed = true
	poll := w.poll
	w.poll = nil
	w.pollGen++
	old := w.takePreviewLocked()
	w.mu.Unlock()

	w.cancel()
	if poll != nil {
		poll.Stop()
	}
	w.revoke(old)
}

// resetLocked returns the wizard to the upload step. The returned poll
// handle and preview ref must be released by the caller.
func (w *Wizard) resetLocked() (*PollHandle, string) {
	poll := w.poll
	w.poll = nil
	w.pollGen++
	old := w.takePreviewLocked()

	w.step = domain.StepUpload
	w.video = nil
	w.trim = domain.TrimRange{}
	w.handle = domain.HandleStart
	w.playing = false
	w.analysisID = ""
	w.progress = domain.InitialProgress()
	w.result = nil
	w.errMsg = ""
	return poll, old
}

// takePreviewLocked detaches the current preview ref so that it is revoked once
func (w *Wizard) takePreviewLocked() string {
	if w.video == nil {
		return ""
	}
	ref := w.video.PreviewRef
	w.video.PreviewRef = ""
	return ref
}

func (w *Wizard) revoke(ref string) {
	if ref == "" {
		return
	}
	if err := w.deps.Previewer.Revoke(ref); err != nil {
		w.logger.Warn("failed to revoke preview", "ref", ref, "error", err)
	}
}

func (w *Wizard) setError(msg string) {
	w.mu.Lock()
	w.errMsg = msg
	w.mu.Unlock()
	w.notify()
}

func (w *Wizard) requireStep(steps ...domain.Step) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.checkStep(steps...)
}

func (w *Wizard) checkStep(steps ...domain.Step) error {
	if w.closed {
		return domain.ErrWrongStep
	}
	for _, s := range steps {
		if w.step == s {
			return nil
		}
	}
	return fmt.Errorf("%w: %s", domain.ErrWrongStep, w.step)
}

// IsFinished reports whether the wizard reached results or failure
func (w *Wizard) IsFinished() bool {
	s := w.Step()
	return s == domain.StepResults || s == domain.StepFailed
}
