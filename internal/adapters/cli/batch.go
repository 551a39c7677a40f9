package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/devbush/poser/internal/adapters/cli/tui"
	"github.com/devbush/poser/internal/application"
	"github.com/devbush/poser/internal/domain"
)

var (
	batchFileFlag    string
	batchOnlyFlag    []string
	batchDirFlag     string
	batchConcurrency int
	batchPickFlag    bool
)

// NewDownloadCmd creates the results download command
func NewDownloadCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "download [ids/urls...]",
		Short: "Download the outputs of one or more analyses",
		Long: `Download the output files of finished analyses.

Provide analysis IDs or results URLs as arguments and/or via a file with --file.
Each analysis is saved to its own directory under --dir.

Example:
  poser results download 5b0e6c1a
  poser results download --file ids.txt --only metrics_csv
  poser results download a1 a2 a3 --concurrency 2`,
		RunE: runDownload,
	}

	cmd.Flags().StringVarP(&batchFileFlag, "file", "f", "", "File with IDs/URLs (one per line)")
	cmd.Flags().StringSliceVar(&batchOnlyFlag, "only", nil, "Output keys to download (default: all)")
	cmd.Flags().StringVarP(&batchDirFlag, "dir", "d", "", "Destination directory (default: config download_dir)")
	cmd.Flags().IntVarP(&batchConcurrency, "concurrency", "c", 3, "Analyses downloaded in parallel (max 10)")
	cmd.Flags().BoolVar(&batchPickFlag, "pick", false, "Choose the outputs interactively (single analysis)")

	return cmd
}

func runDownload(cmd *cobra.Command, args []string) error {
	if batchConcurrency < 1 {
		batchConcurrency = 1
	}
	if batchConcurrency > 10 {
		batchConcurrency = 10
	}

	ids, err := CollectInputs(args, batchFileFlag)
	if err != nil {
		return fmt.Errorf("failed to collect inputs: %w", err)
	}
	if len(ids) == 0 {
		return errors.New("no valid analysis IDs or results URLs provided")
	}

	app, err := GetApp()
	if err != nil {
		return err
	}
	if err := app.Session.RequireLogin(); err != nil {
		return err
	}

	outputDir := batchDirFlag
	if outputDir == "" {
		outputDir = app.Config.Defaults.DownloadDir
	}

	ctx := cmd.Context()
	keys := batchOnlyFlag

	if batchPickFlag {
		if len(ids) != 1 {
			return errors.New("--pick works with a single analysis")
		}
		result, _, err := app.AnalysisSvc.Get(ctx, ids[0], noCacheFlag)
		if err != nil {
			return err
		}
		keys, err = tui.RunArtifactSelector(result.Artifacts())
		if err != nil {
			return err
		}
		if keys == nil {
			fmt.Println("Cancelled")
			return nil
		}
	}

	summary := downloadBatch(ctx, app.AnalysisSvc, ids, keys, outputDir, tui.NewBatchProgress("Downloading", len(ids), quietFlag))
	if failed := summary.FailedResults(); len(failed) > 0 {
		return fmt.Errorf("%d of %d analyses failed", len(failed), summary.Total)
	}
	return nil
}

// downloadBatch downloads every analysis into outputDir/<id> using a
// bounded worker pool
func downloadBatch(
	ctx context.Context,
	svc *application.AnalysisService,
	ids []string,
	keys []string,
	outputDir string,
	progress *tui.BatchProgress,
) *BatchSummary {
	summary := &BatchSummary{Total: len(ids)}
	var mu sync.Mutex

	sem := make(chan struct{}, batchConcurrency)
	var wg sync.WaitGroup

	for _, id := range ids {
		wg.Add(1)
		sem <- struct{}{}

		go func(id string) {
			defer wg.Done()
			defer func() { <-sem }()

			result := downloadOne(ctx, svc, id, keys, filepath.Join(outputDir, id))

			mu.Lock()
			summary.Results = append(summary.Results, result)
			mu.Unlock()

			progress.AddResult(result)
		}(id)
	}

	wg.Wait()
	progress.Complete()
	return summary
}

func downloadOne(ctx context.Context, svc *application.AnalysisService, id string, keys []string, dir string) tui.BatchResult {
	start := time.Now()
	res := tui.BatchResult{Name: id}

	finish := func(err error) tui.BatchResult {
		res.Duration = time.Since(start)
		if err != nil {
			res.ErrMsg = err.Error()
			return res
		}
		res.Success = true
		return res
	}

	result, _, err := svc.Get(ctx, id, noCacheFlag)
	if err != nil {
		return finish(err)
	}
	if result.Status != domain.StatusComplete {
		return finish(fmt.Errorf("analysis is %s", result.Status))
	}

	artifacts, err := application.SelectArtifacts(result, keys)
	if err != nil {
		return finish(err)
	}
	if len(artifacts) == 0 {
		return finish(errors.New("analysis has no outputs"))
	}

	files, err := svc.Download(ctx, id, artifacts, dir, nil)
	for _, f := range files {
		res.Size += f.Size
	}
	if err != nil {
		// keep the directory only when something was saved
		if res.Size == 0 {
			_ = os.Remove(dir)
		}
		return finish(fmt.Errorf("%s", strings.ReplaceAll(err.Error(), "\n", "; ")))
	}
	return finish(nil)
}
