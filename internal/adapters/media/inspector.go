package media

import (
	"context"
	"encoding/json"
	"fmt"
	"mime"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"github.com/devbush/poser/internal/ports"
)

// Inspector identifies files by content and probes video duration with ffprobe
type Inspector struct {
	ffprobe string
}

// NewInspector creates an inspector. An empty ffprobe path disables duration probing.
func NewInspector(ffprobe string) *Inspector {
	return &Inspector{ffprobe: ffprobe}
}

// Inspect returns the MIME type, size and, for videos, the duration
func (i *Inspector) Inspect(ctx context.Context, path string) (*ports.MediaInfo, error) {
	st, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if st.IsDir() {
		return nil, fmt.Errorf("%s is a directory", path)
	}

	info := &ports.MediaInfo{
		MIMEType: detectMIME(path),
		Size:     st.Size(),
	}

	if strings.HasPrefix(info.MIMEType, "video/") && i.ffprobe != "" {
		d, err := i.probeDuration(ctx, path)
		if err == nil {
			info.DurationSeconds = d
		}
	}
	return info, nil
}

// detectMIME sniffs the content and falls back to the file extension when
// the content is not recognized.
func detectMIME(path string) string {
	mtype, err := mimetype.DetectFile(path)
	if err == nil && !mtype.Is("application/octet-stream") {
		return mediaType(mtype.String())
	}
	if byExt := mime.TypeByExtension(strings.ToLower(filepath.Ext(path))); byExt != "" {
		return mediaType(byExt)
	}
	return "application/octet-stream"
}

// mediaType drops parameters such as "; charset=utf-8"
func mediaType(s string) string {
	if i := strings.IndexByte(s, ';'); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}

type probeOutput struct {
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
}

func (i *Inspector) probeDuration(ctx context.Context, path string) (float64, error) {
	cmd := exec.CommandContext(ctx, i.ffprobe,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "json",
		path,
	)
	out, err := cmd.Output()
	if err != nil {
		return 0, fmt.Errorf("ffprobe failed: %w", err)
	}
	return parseProbeDuration(out)
}

func parseProbeDuration(out []byte) (float64, error) {
	var probe probeOutput
	if err := json.Unmarshal(out, &probe); err != nil {
		return 0, fmt.Errorf("failed to parse ffprobe output: %w", err)
	}
	d, err := strconv.ParseFloat(probe.Format.Duration, 64)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("ffprobe reported no duration")
	}
	return d, nil
}

var _ ports.MediaInspector = (*Inspector)(nil)
