package media

import (
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
)

// Tools holds the resolved paths of the ffmpeg suite. Empty means not found.
type Tools struct {
	FFmpeg  string
	FFprobe string
	FFplay  string
}

// Overrides are user-configured binary paths, checked before anything else
type Overrides struct {
	FFmpeg  string
	FFprobe string
	FFplay  string
}

func binaryName(base string) string {
	if runtime.GOOS == "windows" {
		return base + ".exe"
	}
	return base
}

// FindTools looks for ffmpeg, ffprobe and ffplay in the overrides, then in
// binDir, then on PATH.
func FindTools(binDir string, o Overrides) Tools {
	return Tools{
		FFmpeg:  findBinary(binDir, "ffmpeg", o.FFmpeg),
		FFprobe: findBinary(binDir, "ffprobe", o.FFprobe),
		FFplay:  findBinary(binDir, "ffplay", o.FFplay),
	}
}

func findBinary(binDir, base, override string) string {
	if override != "" {
		if _, err := os.Stat(override); err == nil {
			return override
		}
	}

	// Check bundled location first
	if binDir != "" {
		bundled := filepath.Join(binDir, binaryName(base))
		if _, err := os.Stat(bundled); err == nil {
			return bundled
		}
	}

	// Check system PATH
	if path, err := exec.LookPath(binaryName(base)); err == nil {
		return path
	}

	return ""
}

// Instructions returns platform-specific ffmpeg installation instructions
func Instructions() string {
	switch runtime.GOOS {
	case "darwin":
		return "Install ffmpeg with Homebrew:\n  brew install ffmpeg"
	case "windows":
		return "Install ffmpeg with winget:\n  winget install Gyan.FFmpeg\nor place ffmpeg.exe and ffprobe.exe in ~/.poser/bin"
	default:
		return "Install ffmpeg with your package manager, for example:\n  sudo apt install ffmpeg\n  sudo dnf install ffmpeg"
	}
}
