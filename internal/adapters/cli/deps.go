package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/devbush/poser/internal/adapters/media"
	"github.com/devbush/poser/internal/config"
)

// NewDepsCmd creates the deps subcommand
func NewDepsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "deps",
		Short: "Show the status of ffmpeg, ffprobe and ffplay",
		Long: `Poser uses ffprobe to read video durations, ffmpeg to trim clips before
upload and ffplay to preview the trimmed range. All three are optional:
without them the duration is unknown, trimming happens on the server and
preview playback only tracks the position.

Binaries are looked up in the paths section of the config, then in
~/.poser/bin, then on PATH.`,
		Args: cobra.NoArgs,
		RunE: runDepsStatus,
	}

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show dependency status",
		Args:  cobra.NoArgs,
		RunE:  runDepsStatus,
	}

	cmd.AddCommand(statusCmd)
	return cmd
}

func runDepsStatus(cmd *cobra.Command, args []string) error {
	app, err := GetApp()
	if err != nil {
		return err
	}

	fmt.Println()
	fmt.Println("Dependency Status:")
	fmt.Println()

	tools := []struct {
		name, path, use string
	}{
		{"ffprobe", app.Tools.FFprobe, "video duration"},
		{"ffmpeg", app.Tools.FFmpeg, "local trimming"},
		{"ffplay", app.Tools.FFplay, "preview playback"},
	}

	missing := 0
	for _, t := range tools {
		if t.path != "" {
			fmt.Printf("  %-8s installed (%s)\n", t.name+":", t.path)
		} else {
			fmt.Printf("  %-8s not found, no %s\n", t.name+":", t.use)
			missing++
		}
	}
	fmt.Println()

	if missing > 0 {
		fmt.Println(media.Instructions())
		fmt.Printf("\nOr set paths.ffmpeg, paths.ffprobe and paths.ffplay in %s\n\n", config.ConfigPath())
	}

	return nil
}
