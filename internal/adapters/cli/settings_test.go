package cli

import (
	"testing"

	"github.com/devbush/poser/internal/config"
)

func TestSetConfigValue(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		value   string
		wantErr bool
		check   func(*config.Config) bool
	}{
		{"base url", "api.base_url", "https://api.poser.example/", false,
			func(c *config.Config) bool { return c.API.BaseURL == "https://api.poser.example" }},
		{"base url without scheme", "api.base_url", "api.poser.example", true, nil},
		{"timeout", "api.timeout", "45s", false,
			func(c *config.Config) bool { return c.API.Timeout == "45s" }},
		{"bad timeout keeps previous", "api.timeout", "soon", true,
			func(c *config.Config) bool { return c.API.Timeout == "30s" }},
		{"poll interval", "defaults.poll_interval", "1500ms", false,
			func(c *config.Config) bool { return c.Defaults.PollInterval == "1500ms" }},
		{"zero poll interval", "defaults.poll_interval", "0s", true,
			func(c *config.Config) bool { return c.Defaults.PollInterval == "2s" }},
		{"cache ttl", "defaults.cache_ttl", "30d", false,
			func(c *config.Config) bool { return c.Defaults.CacheTTL == "30d" }},
		{"bad cache ttl", "defaults.cache_ttl", "1w", true, nil},
		{"trim off", "defaults.trim_enabled", "false", false,
			func(c *config.Config) bool { return !c.Defaults.TrimEnabled }},
		{"await confirmation", "Defaults.Await_Confirmation", "true", false,
			func(c *config.Config) bool { return c.Defaults.AwaitConfirmation }},
		{"bad bool", "defaults.trim_enabled", "maybe", true, nil},
		{"concurrency", "defaults.concurrency", "8", false,
			func(c *config.Config) bool { return c.Defaults.Concurrency == 8 }},
		{"concurrency too high", "defaults.concurrency", "11", true, nil},
		{"export format alias", "defaults.export_format", "yml", false,
			func(c *config.Config) bool { return c.Defaults.ExportFormat == "yaml" }},
		{"unknown export format", "defaults.export_format", "csv", true, nil},
		{"empty download dir", "defaults.download_dir", " ", true, nil},
		{"ffmpeg path", "paths.ffmpeg", "/opt/ffmpeg/bin/ffmpeg", false,
			func(c *config.Config) bool { return c.Paths.FFmpeg == "/opt/ffmpeg/bin/ffmpeg" }},
		{"unknown key", "defaults.color", "blue", true, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.DefaultConfig()
			err := setConfigValue(cfg, tt.key, tt.value)
			if (err != nil) != tt.wantErr {
				t.Fatalf("setConfigValue(%q, %q) error = %v, wantErr %v", tt.key, tt.value, err, tt.wantErr)
			}
			if tt.check != nil && !tt.check(cfg) {
				t.Errorf("setConfigValue(%q, %q) did not apply as expected: %+v", tt.key, tt.value, cfg)
			}
		})
	}
}

func TestFormatID(t *testing.T) {
	if got := FormatID("0123456789abcdef"); got != "01234567" {
		t.Errorf("FormatID() = %q, want %q", got, "01234567")
	}
	if got := FormatID("abc"); got != "abc     " {
		t.Errorf("FormatID() = %q, want padded", got)
	}
}
