package ports

import (
	"context"

	"github.com/devbush/poser/internal/domain"
)

// MediaInfo describes a local media file
type MediaInfo struct {
	MIMEType        string
	Size            int64
	DurationSeconds float64 // zero when unknown
}

// MediaInspector reads file type, size and duration
type MediaInspector interface {
	Inspect(ctx context.Context, path string) (*MediaInfo, error)
}

// Previewer manages revocable preview handles for selected videos
type Previewer interface {
	// Create makes a preview of the video and returns its handle.
	Create(path string) (string, error)

	// Revoke releases a preview handle. Revoking an unknown handle is a no-op.
	Revoke(ref string) error
}

// Player controls playback of a preview
type Player interface {
	Seek(ref string, seconds float64) error
	Play(ref string) error
	Pause(ref string) error
}

// Trimmer cuts the selected range out of a video before upload
type Trimmer interface {
	// Available reports whether trimming can run locally.
	Available() bool

	// Trim writes the selected range to a new file and returns its path.
	Trim(ctx context.Context, path string, r domain.TrimRange, duration float64) (string, error)
}
