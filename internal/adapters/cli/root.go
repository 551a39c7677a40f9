package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/devbush/poser/internal/adapters/cli/tui"
)

var (
	// Global flags
	verboseFlag bool
	apiURLFlag  string
	quietFlag   bool
	noCacheFlag bool

	closeLog func()
)

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "poser [video]",
		Short: "Analyze ski videos with Poser",
		Long: `poser uploads a short ski video to the Poser analysis service,
follows the processing and shows the pose metrics and output files.

Provide a video path to start the analysis wizard with it, or run without
arguments for an interactive menu.`,
		Args: cobra.MaximumNArgs(1),
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Load .env file if present (ignore errors)
			_ = godotenv.Load()

			closer, err := setupLogging(verboseFlag)
			if err != nil {
				return err
			}
			closeLog = closer
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if closeLog != nil {
				closeLog()
			}
		},
		RunE: runRoot,
	}

	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "Write debug messages to the log file")
	rootCmd.PersistentFlags().StringVar(&apiURLFlag, "api-url", "", "Poser API base URL (overrides config and POSER_API_URL)")
	rootCmd.PersistentFlags().BoolVarP(&quietFlag, "quiet", "q", false, "Suppress progress output")
	rootCmd.PersistentFlags().BoolVar(&noCacheFlag, "no-cache", false, "Skip the local results cache")

	rootCmd.AddCommand(NewAnalyzeCmd())
	rootCmd.AddCommand(NewLoginCmd(), NewLogoutCmd(), NewWhoamiCmd(), NewConfirmCmd())
	rootCmd.AddCommand(NewResultsCmd())
	rootCmd.AddCommand(NewContactCmd())
	rootCmd.AddCommand(NewSettingsCmd())
	rootCmd.AddCommand(NewCacheCmd())
	rootCmd.AddCommand(NewDepsCmd())
	rootCmd.AddCommand(NewDevServerCmd())

	return rootCmd
}

func runRoot(cmd *cobra.Command, args []string) error {
	app, err := GetApp()
	if err != nil {
		return err
	}

	if len(args) == 1 {
		return runWizard(cmd.Context(), app, args[0])
	}
	return runInteractiveMenu(cmd.Context(), app)
}

func runInteractiveMenu(ctx context.Context, app *App) error {
	for {
		header := "Not signed in"
		account := tui.MenuOption{Label: "Log in", Value: "login"}
		if email := app.Session.Email(); email != "" {
			header = "Signed in as " + email
			account = tui.MenuOption{Label: "Log out", Value: "logout"}
		}

		options := []tui.MenuOption{
			{Label: "Analyze a video", Value: "analyze", Hint: "upload, trim and follow the analysis"},
			{Label: "Browse past analyses", Value: "browse", Hint: "open, download or delete results"},
			account,
			{Label: "Contact support", Value: "contact"},
			{Label: "Settings", Value: "settings", Hint: "poser settings --help to change them"},
			{Label: "Quit", Value: "quit"},
		}

		selected, err := tui.RunMenu("Poser", header, options)
		if err != nil {
			return err
		}

		switch selected {
		case "analyze":
			err = runWizard(ctx, app, "")
		case "browse":
			err = runBrowse(ctx, app)
		case "login":
			err = runLogin(ctx, app, "", "")
		case "logout":
			err = runLogout(app)
		case "contact":
			err = runContactInteractive(ctx, app)
		case "settings":
			err = printSettings(app)
		default:
			return nil
		}

		if err != nil {
			fmt.Fprintln(os.Stderr, "✗", err)
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
}
