package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/devbush/poser/internal/adapters/export"
	"github.com/devbush/poser/internal/config"
)

var (
	profileNameFlag     string
	profileUsernameFlag string
	profileBioFlag      string
	profileEmailFlag    string
)

// NewSettingsCmd creates the settings command tree
func NewSettingsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Show and change settings and the local profile",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := GetApp()
			if err != nil {
				return err
			}
			return printSettings(app)
		},
	}

	profileCmd := &cobra.Command{
		Use:   "profile",
		Short: "Edit the local profile",
		Example: `  poser settings profile --name "Anna Berg" --username anna.b
  poser settings profile --bio ""`,
		Args: cobra.NoArgs,
		RunE: runSettingsProfile,
	}
	profileCmd.Flags().StringVar(&profileNameFlag, "name", "", "Full name")
	profileCmd.Flags().StringVar(&profileUsernameFlag, "username", "", "Username (letters, digits, _ and .)")
	profileCmd.Flags().StringVar(&profileBioFlag, "bio", "", "Short bio")
	profileCmd.Flags().StringVar(&profileEmailFlag, "email", "", "Contact email")

	avatarCmd := &cobra.Command{
		Use:   "avatar <image>",
		Short: "Set the profile picture (image, at most 5 MB)",
		Args:  cobra.ExactArgs(1),
		RunE:  runSettingsAvatar,
	}

	setCmd := &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Change a config value",
		Long: `Change a value in ~/.poser/config.yaml.

Keys:
  api.base_url, api.timeout
  defaults.poll_interval, defaults.cache_ttl, defaults.trim_enabled,
  defaults.await_confirmation, defaults.download_dir, defaults.concurrency,
  defaults.export_format
  paths.ffmpeg, paths.ffprobe, paths.ffplay`,
		Example: `  poser settings set api.base_url https://api.poser.example
  poser settings set defaults.cache_ttl 30d`,
		Args: cobra.ExactArgs(2),
		RunE: runSettingsSet,
	}

	cmd.AddCommand(profileCmd, avatarCmd, setCmd)
	return cmd
}

// printSettings shows the effective configuration and the profile
func printSettings(app *App) error {
	cfg := app.Config
	profile, err := app.ProfileSvc.Get()
	if err != nil {
		return err
	}

	fmt.Println()
	fmt.Println("Settings:")
	fmt.Printf("  API:            %s (timeout %s)\n", cfg.API.BaseURL, cfg.API.Timeout)
	fmt.Printf("  Poll interval:  %s\n", cfg.Defaults.PollInterval)
	fmt.Printf("  Cache TTL:      %s\n", cfg.Defaults.CacheTTL)
	fmt.Printf("  Trim step:      %s\n", onOff(cfg.Defaults.TrimEnabled))
	fmt.Printf("  Confirm email:  %s\n", onOff(cfg.Defaults.AwaitConfirmation))
	fmt.Printf("  Download dir:   %s\n", cfg.Defaults.DownloadDir)
	fmt.Printf("  Concurrency:    %d\n", cfg.Defaults.Concurrency)
	fmt.Printf("  Export format:  %s\n", cfg.Defaults.ExportFormat)
	fmt.Printf("  Config file:    %s\n", config.ConfigPath())

	fmt.Println()
	fmt.Println("Profile:")
	if initials := profile.Initials(); initials != "" {
		fmt.Printf("  [%s]\n", initials)
	}
	fmt.Printf("  Name:      %s\n", orDash(profile.FullName))
	fmt.Printf("  Username:  %s\n", orDash(profile.Username))
	fmt.Printf("  Email:     %s\n", orDash(profile.Email))
	fmt.Printf("  Bio:       %s\n", orDash(profile.Bio))
	fmt.Printf("  Avatar:    %s\n", orDash(profile.AvatarPath))
	fmt.Println()

	return nil
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func runSettingsProfile(cmd *cobra.Command, args []string) error {
	app, err := GetApp()
	if err != nil {
		return err
	}

	p, err := app.ProfileSvc.Get()
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if !flags.Changed("name") && !flags.Changed("username") && !flags.Changed("bio") && !flags.Changed("email") {
		return printSettings(app)
	}
	if flags.Changed("name") {
		p.FullName = profileNameFlag
	}
	if flags.Changed("username") {
		p.Username = profileUsernameFlag
	}
	if flags.Changed("bio") {
		p.Bio = profileBioFlag
	}
	if flags.Changed("email") {
		p.Email = profileEmailFlag
	}

	if err := app.ProfileSvc.Update(p); err != nil {
		return err
	}
	fmt.Println("✓ Profile saved")
	return nil
}

func runSettingsAvatar(cmd *cobra.Command, args []string) error {
	app, err := GetApp()
	if err != nil {
		return err
	}

	previous, err := app.ProfileSvc.Get()
	if err != nil {
		return err
	}

	dst, err := importFile(args[0], config.AppDir(), "avatar")
	if err != nil {
		return fmt.Errorf("failed to copy avatar: %w", err)
	}
	if err := app.ProfileSvc.SetAvatar(cmd.Context(), dst); err != nil {
		if dst != previous.AvatarPath {
			_ = os.Remove(dst)
		}
		return err
	}

	// An avatar with another extension is left behind otherwise
	if old := previous.AvatarPath; old != "" && old != dst && filepath.Dir(old) == config.AppDir() {
		_ = os.Remove(old)
	}

	fmt.Printf("✓ Avatar set (%s)\n", dst)
	return nil
}

func runSettingsSet(cmd *cobra.Command, args []string) error {
	// Edit the file contents, not the effective config with flag and
	// environment overrides applied
	cfg, err := config.Load(config.ConfigPath())
	if err != nil {
		return err
	}
	if err := setConfigValue(cfg, args[0], args[1]); err != nil {
		return err
	}
	if err := cfg.SaveDefault(); err != nil {
		return err
	}
	fmt.Printf("%s = %s\n", args[0], args[1])
	return nil
}

// setConfigValue validates value and assigns it to the setting named key
func setConfigValue(cfg *config.Config, key, value string) error {
	value = strings.TrimSpace(value)

	switch strings.ToLower(key) {
	case "api.base_url":
		if !strings.HasPrefix(value, "http://") && !strings.HasPrefix(value, "https://") {
			return fmt.Errorf("invalid base url: %s (must start with http:// or https://)", value)
		}
		cfg.API.BaseURL = strings.TrimRight(value, "/")
	case "api.timeout":
		prev := cfg.API.Timeout
		cfg.API.Timeout = value
		if _, err := cfg.GetTimeout(); err != nil {
			cfg.API.Timeout = prev
			return err
		}
	case "defaults.poll_interval":
		prev := cfg.Defaults.PollInterval
		cfg.Defaults.PollInterval = value
		if _, err := cfg.GetPollInterval(); err != nil {
			cfg.Defaults.PollInterval = prev
			return err
		}
	case "defaults.cache_ttl":
		if _, err := config.ParseDuration(value); err != nil {
			return err
		}
		cfg.Defaults.CacheTTL = value
	case "defaults.trim_enabled":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid value for %s: %s (use true or false)", key, value)
		}
		cfg.Defaults.TrimEnabled = b
	case "defaults.await_confirmation":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid value for %s: %s (use true or false)", key, value)
		}
		cfg.Defaults.AwaitConfirmation = b
	case "defaults.download_dir":
		if value == "" {
			return errors.New("download dir cannot be empty")
		}
		cfg.Defaults.DownloadDir = value
	case "defaults.concurrency":
		n, err := strconv.Atoi(value)
		if err != nil || n < 1 || n > 10 {
			return fmt.Errorf("invalid concurrency: %s (use 1-10)", value)
		}
		cfg.Defaults.Concurrency = n
	case "defaults.export_format":
		f, err := export.ParseFormat(value)
		if err != nil {
			return err
		}
		cfg.Defaults.ExportFormat = string(f)
	case "paths.ffmpeg":
		cfg.Paths.FFmpeg = value
	case "paths.ffprobe":
		cfg.Paths.FFprobe = value
	case "paths.ffplay":
		cfg.Paths.FFplay = value
	default:
		return fmt.Errorf("unknown setting: %s (see 'poser settings set --help')", key)
	}
	return nil
}
