package media

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/devbush/poser/internal/domain"
	"github.com/devbush/poser/internal/ports"
)

// Trimmer cuts clips with ffmpeg using stream copy
type Trimmer struct {
	ffmpeg string
	outDir string
}

// NewTrimmer creates a trimmer writing clips to outDir
func NewTrimmer(ffmpeg, outDir string) *Trimmer {
	return &Trimmer{ffmpeg: ffmpeg, outDir: outDir}
}

// Available reports whether ffmpeg was found
func (t *Trimmer) Available() bool {
	return t.ffmpeg != ""
}

// Trim writes the selected range to a new file
func (t *Trimmer) Trim(ctx context.Context, path string, r domain.TrimRange, duration float64) (string, error) {
	if !t.Available() {
		return "", errors.New("ffmpeg not found")
	}
	if duration <= 0 {
		return "", errors.New("video duration unknown")
	}

	if err := os.MkdirAll(t.outDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create clip directory: %w", err)
	}

	ext := strings.ToLower(filepath.Ext(path))
	if ext == "" {
		ext = ".mp4"
	}
	out := filepath.Join(t.outDir, "clip-"+uuid.NewString()+ext)

	start := r.OffsetSeconds(domain.HandleStart, duration)
	length := r.Seconds(duration)

	cmd := exec.CommandContext(ctx, t.ffmpeg, trimArgs(path, out, start, length)...)
	if output, err := cmd.CombinedOutput(); err != nil {
		_ = os.Remove(out)
		return "", fmt.Errorf("ffmpeg failed: %w\n%s", err, lastLines(string(output), 5))
	}
	return out, nil
}

func trimArgs(in, out string, start, length float64) []string {
	return []string{
		"-y",
		"-loglevel", "error",
		"-ss", seconds(start),
		"-i", in,
		"-t", seconds(length),
		"-c", "copy",
		"-avoid_negative_ts", "make_zero",
		out,
	}
}

func seconds(v float64) string {
	return strconv.FormatFloat(v, 'f', 3, 64)
}

func lastLines(s string, n int) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, "\n")
}

var _ ports.Trimmer = (*Trimmer)(nil)
