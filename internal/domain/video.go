package domain

import (
	"path/filepath"
	"strings"
)

// MaxVideoSize is the largest upload accepted (500 MiB)
const MaxVideoSize = 500 * 1024 * 1024

// SelectedVideo is the video chosen in the upload step
type SelectedVideo struct {
	Path            string
	Name            string
	MIMEType        string
	Size            int64
	DurationSeconds float64 // zero when the duration could not be probed
	PreviewRef      string  // revocable preview handle owned by the wizard
}

// NewSelectedVideo builds a SelectedVideo for a file on disk
func NewSelectedVideo(path, mimeType string, size int64, duration float64) *SelectedVideo {
	return &SelectedVideo{
		Path:            path,
		Name:            filepath.Base(path),
		MIMEType:        mimeType,
		Size:            size,
		DurationSeconds: duration,
	}
}

// ValidateVideo checks the upload constraints: a video/* MIME type and at
// most MaxVideoSize bytes.
func ValidateVideo(mimeType string, size int64) error {
	if !strings.HasPrefix(strings.ToLower(mimeType), "video/") {
		return ErrNotAVideo
	}
	if size > MaxVideoSize {
		return ErrVideoTooLarge
	}
	return nil
}
