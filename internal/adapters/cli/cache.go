package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/devbush/poser/internal/adapters/cli/tui"
	"github.com/devbush/poser/internal/config"
	"github.com/devbush/poser/internal/domain"
)

var clearAllFlag bool

// NewCacheCmd creates the cache subcommand
func NewCacheCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage cached analysis results",
		Args:  cobra.NoArgs,
		RunE:  runCacheStatus,
	}

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Clear cache entries",
		Args:  cobra.NoArgs,
		RunE:  runCacheClear,
	}
	clearCmd.Flags().BoolVar(&clearAllFlag, "all", false, "Clear all cache entries")

	forgetCmd := &cobra.Command{
		Use:   "forget <id|url>",
		Short: "Remove one analysis from the cache",
		Args:  cobra.ExactArgs(1),
		RunE:  runCacheForget,
	}

	cmd.AddCommand(clearCmd, forgetCmd)

	return cmd
}

func runCacheStatus(cmd *cobra.Command, args []string) error {
	app, err := GetApp()
	if err != nil {
		return err
	}

	stats, err := app.CacheSvc.Stats(cmd.Context())
	if err != nil {
		return err
	}

	fmt.Println()
	fmt.Println("Cache Statistics:")
	fmt.Printf("  Items: %d\n", stats.ItemCount)
	fmt.Printf("  Size:  %s\n", tui.FormatSize(stats.TotalSize))
	fmt.Printf("  TTL:   %s\n", app.Config.Defaults.CacheTTL)
	fmt.Printf("  Path:  %s\n", config.CacheDir())
	fmt.Println()

	return nil
}

func runCacheClear(cmd *cobra.Command, args []string) error {
	app, err := GetApp()
	if err != nil {
		return err
	}

	ctx := cmd.Context()

	if clearAllFlag {
		if err := app.CacheSvc.Clear(ctx); err != nil {
			return err
		}
		fmt.Println("All cache entries cleared")
	} else {
		cleaned, err := app.CacheSvc.CleanExpired(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("Removed %d expired entries\n", cleaned)
	}

	return nil
}

func runCacheForget(cmd *cobra.Command, args []string) error {
	app, err := GetApp()
	if err != nil {
		return err
	}

	id, err := domain.ParseAnalysisRef(args[0])
	if err != nil {
		return err
	}
	if err := app.CacheSvc.Forget(cmd.Context(), id); err != nil {
		return err
	}
	fmt.Printf("Removed %s from the cache\n", id)
	return nil
}
