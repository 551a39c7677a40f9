package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/devbush/poser/internal/domain"
	"github.com/devbush/poser/internal/ports"
)

// Environment overrides
const (
	EnvAPIURL       = "POSER_API_URL"
	EnvPollInterval = "POSER_POLL_INTERVAL"
)

// Config represents the application configuration
type Config struct {
	API      APIConfig      `yaml:"api"`
	Defaults DefaultsConfig `yaml:"defaults"`
	Paths    PathsConfig    `yaml:"paths"`
	Profile  domain.Profile `yaml:"profile"`
}

// APIConfig locates the analysis backend
type APIConfig struct {
	BaseURL string `yaml:"base_url"`
	Timeout string `yaml:"timeout"`
}

// DefaultsConfig holds default values
type DefaultsConfig struct {
	PollInterval      string `yaml:"poll_interval"`
	CacheTTL          string `yaml:"cache_ttl"`
	TrimEnabled       bool   `yaml:"trim_enabled"`
	AwaitConfirmation bool   `yaml:"await_confirmation"`
	DownloadDir       string `yaml:"download_dir"`
	Concurrency       int    `yaml:"concurrency"`
	ExportFormat      string `yaml:"export_format"`
}

// PathsConfig holds custom path overrides
type PathsConfig struct {
	FFmpeg  string `yaml:"ffmpeg"`
	FFprobe string `yaml:"ffprobe"`
	FFplay  string `yaml:"ffplay"`
}

// DefaultConfig returns configuration with default values
func DefaultConfig() *Config {
	return &Config{
		API: APIConfig{
			BaseURL: "http://localhost:8000",
			Timeout: "30s",
		},
		Defaults: DefaultsConfig{
			PollInterval: "2s",
			CacheTTL:     "7d",
			TrimEnabled:  true,
			DownloadDir:  ".",
			Concurrency:  4,
			ExportFormat: "json",
		},
	}
}

// AppDir returns the application directory (~/.poser)
func AppDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".poser"
	}
	return filepath.Join(home, ".poser")
}

// CacheDir returns the cache directory
func CacheDir() string {
	return filepath.Join(AppDir(), "cache")
}

// BinDir returns the bin directory searched for ffmpeg and ffprobe
func BinDir() string {
	return filepath.Join(AppDir(), "bin")
}

// PreviewDir returns the directory holding video previews
func PreviewDir() string {
	return filepath.Join(AppDir(), "previews")
}

// ConfigPath returns the config file path
func ConfigPath() string {
	return filepath.Join(AppDir(), "config.yaml")
}

// SessionPath returns the session file path
func SessionPath() string {
	return filepath.Join(AppDir(), "session.json")
}

// LogPath returns the log file path
func LogPath() string {
	return filepath.Join(AppDir(), "poser.log")
}

// EnsureDirs creates all required directories
func EnsureDirs() error {
	dirs := []string{AppDir(), CacheDir(), BinDir(), PreviewDir()}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}

// Load reads config from file, returns default if not exists
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return nil, err
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return cfg, nil
}

// LoadDefault loads config from default path and applies the environment
func LoadDefault() (*Config, error) {
	cfg, err := Load(ConfigPath())
	if err != nil {
		return nil, err
	}
	cfg.ApplyEnv(os.Getenv)
	return cfg, nil
}

// ApplyEnv overrides settings from environment variables
func (c *Config) ApplyEnv(getenv func(string) string) {
	if v := strings.TrimSpace(getenv(EnvAPIURL)); v != "" {
		c.API.BaseURL = v
	}
	if v := strings.TrimSpace(getenv(EnvPollInterval)); v != "" {
		c.Defaults.PollInterval = v
	}
}

// Save writes config to file
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// SaveDefault saves config to default path
func (c *Config) SaveDefault() error {
	return c.Save(ConfigPath())
}

// GetCacheTTL returns the cache TTL as a duration
func (c *Config) GetCacheTTL() (time.Duration, error) {
	return ParseDuration(c.Defaults.CacheTTL)
}

// GetPollInterval returns the polling interval
func (c *Config) GetPollInterval() (time.Duration, error) {
	d, err := time.ParseDuration(c.Defaults.PollInterval)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid poll interval: %s (use format like 2s, 1500ms)", c.Defaults.PollInterval)
	}
	return d, nil
}

// GetTimeout returns the API request timeout
func (c *Config) GetTimeout() (time.Duration, error) {
	d, err := time.ParseDuration(c.API.Timeout)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid API timeout: %s (use format like 30s, 1m)", c.API.Timeout)
	}
	return d, nil
}

var durationPattern = regexp.MustCompile(`^(\d+)(h|d)$`)

// ParseDuration parses duration strings like "24h", "7d", "30d"
func ParseDuration(s string) (time.Duration, error) {
	matches := durationPattern.FindStringSubmatch(s)
	if len(matches) != 3 {
		return 0, fmt.Errorf("invalid duration format: %s (use format like 24h, 7d)", s)
	}

	value, _ := strconv.Atoi(matches[1])
	unit := matches[2]

	switch unit {
	case "h":
		return time.Duration(value) * time.Hour, nil
	case "d":
		return time.Duration(value) * 24 * time.Hour, nil
	default:
		return 0, fmt.Errorf("unknown duration unit: %s", unit)
	}
}

// ProfileStore keeps the user profile inside the config file
type ProfileStore struct {
	path string
}

// NewProfileStore creates a profile store backed by the config file at path
func NewProfileStore(path string) *ProfileStore {
	return &ProfileStore{path: path}
}

func (s *ProfileStore) LoadProfile() (domain.Profile, error) {
	cfg, err := Load(s.path)
	if err != nil {
		return domain.Profile{}, err
	}
	return cfg.Profile, nil
}

func (s *ProfileStore) SaveProfile(p domain.Profile) error {
	cfg, err := Load(s.path)
	if err != nil {
		return err
	}
	cfg.Profile = p
	return cfg.Save(s.path)
}

var _ ports.ProfileStore = (*ProfileStore)(nil)
