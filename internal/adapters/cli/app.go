package cli

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/devbush/poser/internal/adapters/cache"
	"github.com/devbush/poser/internal/adapters/httpapi"
	"github.com/devbush/poser/internal/adapters/media"
	"github.com/devbush/poser/internal/adapters/sessionstore"
	"github.com/devbush/poser/internal/application"
	"github.com/devbush/poser/internal/config"
)

// App holds all application dependencies
type App struct {
	Config  *config.Config
	Logger  *slog.Logger
	Session *application.Session
	API     *httpapi.Client
	Cache   *cache.FileCache

	Tools     media.Tools
	Inspector *media.Inspector
	Previews  *media.PreviewStore
	Player    *media.Player
	Trimmer   *media.Trimmer
	Poller    *application.Poller

	AnalysisSvc *application.AnalysisService
	ContactSvc  *application.ContactService
	ProfileSvc  *application.ProfileService
	CacheSvc    *application.CacheService
}

// NewApp creates and wires up all dependencies
func NewApp() (*App, error) {
	if err := config.EnsureDirs(); err != nil {
		return nil, err
	}

	cfg, err := config.LoadDefault()
	if err != nil {
		return nil, err
	}
	if apiURLFlag != "" {
		cfg.API.BaseURL = apiURLFlag
	}

	logger := slog.Default()

	ttl, err := cfg.GetCacheTTL()
	if err != nil {
		logger.Warn("invalid cache ttl, using default", "value", cfg.Defaults.CacheTTL, "error", err)
		ttl = 7 * 24 * time.Hour
	}
	interval, err := cfg.GetPollInterval()
	if err != nil {
		logger.Warn("invalid poll interval, using default", "value", cfg.Defaults.PollInterval, "error", err)
		interval = application.DefaultPollInterval
	}
	timeout, err := cfg.GetTimeout()
	if err != nil {
		logger.Warn("invalid api timeout, using default", "value", cfg.API.Timeout, "error", err)
		timeout = 30 * time.Second
	}

	session, err := application.NewSession(sessionstore.NewFileStore(config.SessionPath()))
	if err != nil {
		return nil, err
	}
	api := httpapi.NewClient(cfg.API.BaseURL, session, timeout, logger)
	resultCache := cache.NewFileCache(config.CacheDir())

	tools := media.FindTools(config.BinDir(), media.Overrides{
		FFmpeg:  cfg.Paths.FFmpeg,
		FFprobe: cfg.Paths.FFprobe,
		FFplay:  cfg.Paths.FFplay,
	})
	inspector := media.NewInspector(tools.FFprobe)
	previews := media.NewPreviewStore(config.PreviewDir())
	if n, err := previews.Sweep(); err != nil {
		logger.Warn("failed to sweep previews", "error", err)
	} else if n > 0 {
		logger.Debug("removed stale previews", "count", n)
	}
	player := media.NewPlayer(previews, tools.FFplay)
	previews.OnRevoke(player.Forget)

	analysisSvc := application.NewAnalysisService(api, resultCache, ttl, logger)
	analysisSvc.SetConcurrency(cfg.Defaults.Concurrency)

	return &App{
		Config:      cfg,
		Logger:      logger,
		Session:     session,
		API:         api,
		Cache:       resultCache,
		Tools:       tools,
		Inspector:   inspector,
		Previews:    previews,
		Player:      player,
		Trimmer:     media.NewTrimmer(tools.FFmpeg, config.PreviewDir()),
		Poller:      application.NewPoller(api, interval, logger),
		AnalysisSvc: analysisSvc,
		ContactSvc:  application.NewContactService(api),
		ProfileSvc:  application.NewProfileService(config.NewProfileStore(config.ConfigPath()), inspector, session),
		CacheSvc:    application.NewCacheService(resultCache),
	}, nil
}

// NewWizard creates a wizard over the app's adapters
func (a *App) NewWizard(trimEnabled bool) *application.Wizard {
	return application.NewWizard(application.WizardDeps{
		API:       a.API,
		Session:   a.Session,
		Inspector: a.Inspector,
		Previewer: a.Previews,
		Player:    a.Player,
		Trimmer:   a.Trimmer,
		Poller:    a.Poller,
		Logger:    a.Logger,
	}, application.WizardOptions{
		TrimEnabled:       trimEnabled,
		AwaitConfirmation: a.Config.Defaults.AwaitConfirmation,
	})
}

var globalApp *App

// GetApp returns the global app instance, creating it if needed
func GetApp() (*App, error) {
	if globalApp == nil {
		app, err := NewApp()
		if err != nil {
			return nil, fmt.Errorf("failed to initialize: %w", err)
		}
		globalApp = app
	}
	return globalApp, nil
}

// setupLogging sends slog output to the log file. The terminal belongs to
// the TUI, so nothing is logged to stdout.
func setupLogging(verbose bool) (func(), error) {
	if err := os.MkdirAll(config.AppDir(), 0755); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(config.LogPath(), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}

	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(f, &slog.HandlerOptions{Level: level})))
	return func() { _ = f.Close() }, nil
}
