package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/devbush/poser/internal/adapters/cli/tui"
	"github.com/devbush/poser/internal/adapters/export"
	"github.com/devbush/poser/internal/application"
	"github.com/devbush/poser/internal/domain"
)

var (
	formatFlag    string
	outputFlag    string
	fullFlag      bool
	yesFlag       bool
	resultsLimit  int
	exportWorkers = 4
)

// NewResultsCmd creates the results command tree
func NewResultsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "results [id|url]",
		Short: "Show past analyses",
		Long: `Show one analysis with its metrics and outputs, or browse past analyses
interactively when no ID is given.`,
		Args: cobra.MaximumNArgs(1),
		RunE: runResults,
	}
	cmd.Flags().StringVar(&formatFlag, "format", "", "Print the analysis as json, yaml or parquet instead of text")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List past analyses, newest first",
		Args:  cobra.NoArgs,
		RunE:  runResultsList,
	}
	listCmd.Flags().StringVar(&formatFlag, "format", "", "Print as json, yaml or parquet instead of text")
	listCmd.Flags().IntVarP(&resultsLimit, "limit", "n", 0, "Show at most n analyses")

	deleteCmd := &cobra.Command{
		Use:   "delete <id|url>...",
		Short: "Delete analyses",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runResultsDelete,
	}
	deleteCmd.Flags().BoolVarP(&yesFlag, "yes", "y", false, "Do not ask for confirmation")

	exportCmd := &cobra.Command{
		Use:   "export",
		Short: "Export past analyses to a file",
		Example: `  poser results export --format parquet -o analyses.parquet
  poser results export --full --format yaml`,
		Args: cobra.NoArgs,
		RunE: runResultsExport,
	}
	exportCmd.Flags().StringVar(&formatFlag, "format", "", "Export format: json, yaml, parquet (default: config export_format)")
	exportCmd.Flags().StringVarP(&outputFlag, "output", "o", "", "Output file (default: stdout, or analyses.<ext> for parquet)")
	exportCmd.Flags().BoolVar(&fullFlag, "full", false, "Export full results with metrics instead of the summary list")

	cmd.AddCommand(listCmd, deleteCmd, NewDownloadCmd(), exportCmd)
	return cmd
}

func runResults(cmd *cobra.Command, args []string) error {
	app, err := GetApp()
	if err != nil {
		return err
	}
	if err := app.Session.RequireLogin(); err != nil {
		return err
	}

	if len(args) == 0 {
		return runBrowse(cmd.Context(), app)
	}

	id, err := domain.ParseAnalysisRef(args[0])
	if err != nil {
		return err
	}

	if formatFlag != "" {
		f, err := export.ParseFormat(formatFlag)
		if err != nil {
			return err
		}
		result, _, err := app.AnalysisSvc.Get(cmd.Context(), id, noCacheFlag)
		if err != nil {
			return err
		}
		return export.WriteResults(os.Stdout, f, []*domain.AnalysisResult{result})
	}

	return showAnalysis(cmd.Context(), app, id)
}

// showAnalysis prints one analysis and a short line about the history
func showAnalysis(ctx context.Context, app *App, id string) error {
	view, err := app.AnalysisSvc.Load(ctx, id, noCacheFlag)
	if err != nil {
		return errors.New(domain.UserMessage(err, "Failed to load analysis. Please try again."))
	}

	fmt.Println()
	fmt.Print(tui.RenderResult(view.Result, func(a domain.Artifact) string {
		return app.AnalysisSvc.ArtifactURL(id, a)
	}))
	if view.FromCache {
		fmt.Println("(from cache, use --no-cache to refresh)")
	}
	if len(view.History) > 1 {
		fmt.Printf("\n%d analyses in your history. See 'poser results list'.\n", len(view.History))
	}
	return nil
}

// runBrowse shows the history list until the user leaves it
func runBrowse(ctx context.Context, app *App) error {
	if err := app.Session.RequireLogin(); err != nil {
		return err
	}

	for {
		list, err := app.AnalysisSvc.List(ctx)
		if err != nil {
			return errors.New(domain.UserMessage(err, "Failed to load your analyses. Please try again."))
		}

		action, item, err := tui.RunAnalysisList(list)
		if err != nil {
			return err
		}

		switch action {
		case tui.ActionOpen:
			err = showAnalysis(ctx, app, item.ID)
			prompt("\nPress enter to go back ")
		case tui.ActionDownload:
			err = downloadInteractive(ctx, app, item.ID)
		case tui.ActionDelete:
			if confirm(fmt.Sprintf("Delete %q?", item.DisplayTitle())) {
				err = app.AnalysisSvc.Delete(ctx, item.ID)
			}
		case tui.ActionNew:
			return runWizard(ctx, app, "")
		default:
			return nil
		}
		if err != nil {
			fmt.Fprintln(os.Stderr, "✗", err)
		}
	}
}

// downloadInteractive lets the user pick outputs and downloads them
func downloadInteractive(ctx context.Context, app *App, id string) error {
	result, _, err := app.AnalysisSvc.Get(ctx, id, noCacheFlag)
	if err != nil {
		return err
	}
	keys, err := tui.RunArtifactSelector(result.Artifacts())
	if err != nil || keys == nil {
		return err
	}
	artifacts, err := application.SelectArtifacts(result, keys)
	if err != nil {
		return err
	}

	dir := filepath.Join(app.Config.Defaults.DownloadDir, id)
	progress := tui.NewBatchProgress("Downloading", len(artifacts), quietFlag)
	_, err = app.AnalysisSvc.Download(ctx, id, artifacts, dir, func(f application.DownloadedFile) {
		r := tui.BatchResult{Name: f.Artifact.Filename, Success: f.Err == nil, Duration: f.Duration, Size: f.Size}
		if f.Err != nil {
			r.ErrMsg = f.Err.Error()
		}
		progress.AddResult(r)
	})
	progress.Complete()
	if err == nil && !quietFlag {
		fmt.Printf("Saved to %s\n", dir)
	}
	return err
}

func runResultsList(cmd *cobra.Command, args []string) error {
	app, err := GetApp()
	if err != nil {
		return err
	}
	if err := app.Session.RequireLogin(); err != nil {
		return err
	}

	list, err := app.AnalysisSvc.List(cmd.Context())
	if err != nil {
		return errors.New(domain.UserMessage(err, "Failed to load your analyses. Please try again."))
	}
	if resultsLimit > 0 && len(list) > resultsLimit {
		list = list[:resultsLimit]
	}

	if formatFlag != "" {
		f, err := export.ParseFormat(formatFlag)
		if err != nil {
			return err
		}
		return export.WriteSummaries(os.Stdout, f, list)
	}

	printSummaries(os.Stdout, list)
	return nil
}

func printSummaries(w io.Writer, list []domain.AnalysisSummary) {
	if len(list) == 0 {
		fmt.Fprintln(w, "No analyses yet. Start one with 'poser analyze <video>'.")
		return
	}
	for i := range list {
		fmt.Fprintf(w, "%s  %s\n", FormatID(list[i].ID), tui.FormatAnalysisLine(&list[i], 32))
	}
}

// FormatID shortens an analysis ID for listings
func FormatID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return fmt.Sprintf("%-8s", id)
}

func runResultsDelete(cmd *cobra.Command, args []string) error {
	app, err := GetApp()
	if err != nil {
		return err
	}
	if err := app.Session.RequireLogin(); err != nil {
		return err
	}

	ids, err := CollectInputs(args, "")
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		return errors.New("no valid analysis IDs or results URLs provided")
	}

	if !yesFlag && !confirm(fmt.Sprintf("Delete %d analyses?", len(ids))) {
		fmt.Println("Cancelled")
		return nil
	}

	var errs []error
	for _, id := range ids {
		if err := app.AnalysisSvc.Delete(cmd.Context(), id); err != nil {
			errs = append(errs, errors.New(domain.UserMessage(err, "Failed to delete analysis "+id)))
			continue
		}
		fmt.Printf("Deleted %s\n", id)
	}
	return errors.Join(errs...)
}

func runResultsExport(cmd *cobra.Command, args []string) error {
	app, err := GetApp()
	if err != nil {
		return err
	}
	if err := app.Session.RequireLogin(); err != nil {
		return err
	}

	name := formatFlag
	if name == "" {
		name = app.Config.Defaults.ExportFormat
	}
	f, err := export.ParseFormat(name)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	list, err := app.AnalysisSvc.List(ctx)
	if err != nil {
		return errors.New(domain.UserMessage(err, "Failed to load your analyses. Please try again."))
	}

	path := outputFlag
	if path == "" && f == export.FormatParquet {
		path = "analyses" + f.Extension()
	}

	var out io.Writer = os.Stdout
	if path != "" {
		file, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("failed to create %s: %w", path, err)
		}
		defer file.Close()
		out = file
	}

	if !fullFlag {
		err = export.WriteSummaries(out, f, list)
	} else {
		var results []*domain.AnalysisResult
		results, err = fetchResults(ctx, app.AnalysisSvc, list)
		if err == nil {
			err = export.WriteResults(out, f, results)
		}
	}
	if err != nil {
		return err
	}

	if path != "" && !quietFlag {
		fmt.Fprintf(os.Stderr, "Exported %d analyses to %s\n", len(list), path)
	}
	return nil
}

// fetchResults loads the full record of every listed analysis, keeping
// the list order
func fetchResults(ctx context.Context, svc *application.AnalysisService, list []domain.AnalysisSummary) ([]*domain.AnalysisResult, error) {
	results := make([]*domain.AnalysisResult, len(list))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(exportWorkers)
	for i, s := range list {
		g.Go(func() error {
			r, _, err := svc.Get(gctx, s.ID, noCacheFlag)
			if err != nil {
				return err
			}
			results[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
