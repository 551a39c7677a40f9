package cli

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/devbush/poser/internal/adapters/cli/tui"
	"github.com/devbush/poser/internal/application"
	"github.com/devbush/poser/internal/domain"
)

var (
	startFlag    float64
	endFlag      float64
	noTrimFlag   bool
	plainFlag    bool
	downloadFlag bool
)

// NewAnalyzeCmd creates the analyze command
func NewAnalyzeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze [video]",
		Short: "Upload a video and follow its analysis",
		Long: `Upload a video, optionally trim it to at most 20 seconds, and follow the
analysis until the results are ready.

Without --plain the interactive wizard opens. With --plain the analysis runs
without prompts and needs an existing session (see 'poser login').`,
		Example: `  poser analyze run.mp4
  poser analyze run.mp4 --plain --start 12 --end 30
  poser analyze run.mp4 --plain --download`,
		Args: cobra.MaximumNArgs(1),
		RunE: runAnalyze,
	}

	cmd.Flags().Float64Var(&startFlag, "start", 0, "Trim start in seconds (plain mode)")
	cmd.Flags().Float64Var(&endFlag, "end", 0, "Trim end in seconds (plain mode)")
	cmd.Flags().BoolVar(&noTrimFlag, "no-trim", false, "Skip the trim step")
	cmd.Flags().BoolVar(&plainFlag, "plain", false, "Run without the interactive wizard")
	cmd.Flags().BoolVar(&downloadFlag, "download", false, "Download all outputs when the analysis completes (plain mode)")

	return cmd
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	app, err := GetApp()
	if err != nil {
		return err
	}

	path := ""
	if len(args) == 1 {
		path = args[0]
	}

	if plainFlag {
		return runAnalyzePlain(cmd.Context(), app, path)
	}
	return runWizard(cmd.Context(), app, path)
}

// runWizard opens the interactive wizard, optionally with a preselected video
func runWizard(ctx context.Context, app *App, path string) error {
	trim := app.Config.Defaults.TrimEnabled && !noTrimFlag
	w := app.NewWizard(trim)
	defer w.Close()

	if path != "" {
		// A rejected file stays on the upload screen with its message
		if err := w.SelectVideo(ctx, path); err != nil {
			app.Logger.Warn("preselected video rejected", "path", path, "error", err)
		}
	}

	artifactURL := func(a domain.Artifact) string {
		return app.AnalysisSvc.ArtifactURL(w.Snapshot().AnalysisID, a)
	}

	snap, err := tui.RunWizard(ctx, w, trim, artifactURL)
	if err != nil {
		return err
	}

	switch {
	case snap.Step.IsPolling():
		fmt.Printf("Analysis %s keeps running. Check it later with: poser results %s\n", snap.AnalysisID, snap.AnalysisID)
	case snap.Step == domain.StepResults:
		fmt.Printf("Download the outputs with: poser results download %s\n", snap.AnalysisID)
	}
	return nil
}

// runAnalyzePlain drives the wizard without a TUI and prints progress lines
func runAnalyzePlain(ctx context.Context, app *App, path string) error {
	if path == "" {
		return errors.New("a video path is required with --plain")
	}
	if err := app.Session.RequireLogin(); err != nil {
		return err
	}

	trimRequested := !noTrimFlag && (startFlag > 0 || endFlag > 0)
	w := app.NewWizard(trimRequested)
	defer w.Close()

	if err := w.SelectVideo(ctx, path); err != nil {
		return userError(w.Snapshot().Error, err)
	}

	if trimRequested {
		r, err := applyTrim(w, startFlag, endFlag)
		if err != nil {
			return err
		}
		if !quietFlag {
			fmt.Printf("Trimming %s to %s – %s\n", filepath.Base(path), tui.FormatSeconds(r[0]), tui.FormatSeconds(r[1]))
		}
	}

	steps := append([]string{"Uploading video"}, domain.StageNames...)
	progress := tui.NewProgressDisplay(steps, quietFlag)

	progress.StartStep(0)
	if err := w.Submit(ctx); err != nil {
		progress.FailStep(0, w.Snapshot().Error)
		return userError(w.Snapshot().Error, err)
	}
	progress.CompleteStep(0)

	spinnerDone := progress.StartSpinner()
	snap, err := followAnalysis(ctx, w, func(s application.WizardSnapshot) {
		progress.Apply(1, s.Progress)
	})
	close(spinnerDone)
	if err != nil {
		return err
	}

	if snap.Step == domain.StepFailed {
		progress.FailStep(1+currentStage(snap.Progress), snap.Error)
		return errors.New(snap.Error)
	}

	outputs := map[string]string{"Analysis": snap.AnalysisID}
	if downloadFlag {
		dir := filepath.Join(app.Config.Defaults.DownloadDir, snap.AnalysisID)
		if _, err := app.AnalysisSvc.Download(ctx, snap.AnalysisID, snap.Result.Artifacts(), dir, nil); err != nil {
			return fmt.Errorf("download outputs: %w", err)
		}
		outputs["Outputs"] = dir
	}
	progress.Complete(outputs)

	if !quietFlag {
		fmt.Println()
		fmt.Print(tui.RenderResult(snap.Result, func(a domain.Artifact) string {
			return app.AnalysisSvc.ArtifactURL(snap.AnalysisID, a)
		}))
	}
	return nil
}

// applyTrim moves the handles to the requested seconds and confirms the
// range. It returns the effective range in seconds.
func applyTrim(w *application.Wizard, start, end float64) ([2]float64, error) {
	snap := w.Snapshot()
	duration := snap.Video.DurationSeconds
	if duration <= 0 {
		return [2]float64{}, errors.New("video duration is unknown, install ffprobe to trim (see 'poser deps')")
	}
	if end <= 0 || end > duration {
		end = duration
	}

	// End first so that the start handle is not pulled back by the ceiling
	if err := w.AdjustTrim(domain.HandleEnd, end/duration*100); err != nil {
		return [2]float64{}, err
	}
	if err := w.AdjustTrim(domain.HandleStart, start/duration*100); err != nil {
		return [2]float64{}, err
	}
	if err := w.ConfirmTrim(); err != nil {
		return [2]float64{}, err
	}

	r := w.Snapshot().Trim
	return [2]float64{
		r.OffsetSeconds(domain.HandleStart, duration),
		r.OffsetSeconds(domain.HandleEnd, duration),
	}, nil
}

// followAnalysis waits until the wizard reaches results or failure
func followAnalysis(ctx context.Context, w *application.Wizard, onChange func(application.WizardSnapshot)) (application.WizardSnapshot, error) {
	for {
		select {
		case <-ctx.Done():
			return w.Snapshot(), ctx.Err()
		case <-w.Changes():
			snap := w.Snapshot()
			onChange(snap)
			if snap.Step == domain.StepResults || snap.Step == domain.StepFailed {
				return snap, nil
			}
		}
	}
}

// currentStage returns the index of the first stage that is not completed
func currentStage(p domain.Progress) int {
	for i, st := range p.Stages() {
		if st.State != domain.StageCompleted {
			return i
		}
	}
	return 0
}

// userError prefers the message already shown to the user
func userError(msg string, err error) error {
	if msg != "" {
		return errors.New(msg)
	}
	return err
}
