package media

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/devbush/poser/internal/ports"
)

const (
	sessionPrefix = "session-"

	// staleAfter is how long an entry under the root must sit untouched
	// before Sweep treats it as left behind
	staleAfter = 24 * time.Hour
)

// PreviewStore keeps working copies of selected videos. Each handle refers
// to one file in a directory owned by this store and is released by Revoke.
// Stores in other processes share root but never each other's directory.
type PreviewStore struct {
	root string
	dir  string
	now  func() time.Time

	mu       sync.Mutex
	refs     map[string]string // ref -> file path
	onRevoke func(ref string)
}

// NewPreviewStore creates a store under root
func NewPreviewStore(root string) *PreviewStore {
	return &PreviewStore{
		root: root,
		dir:  filepath.Join(root, sessionPrefix+uuid.NewString()),
		now:  time.Now,
		refs: make(map[string]string),
	}
}

// OnRevoke registers fn to run after a handle is revoked
func (s *PreviewStore) OnRevoke(fn func(ref string)) {
	s.mu.Lock()
	s.onRevoke = fn
	s.mu.Unlock()
}

// Create links (or copies) the video into the preview directory
func (s *PreviewStore) Create(path string) (string, error) {
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create preview directory: %w", err)
	}

	ref := uuid.NewString()
	dst := filepath.Join(s.dir, ref+strings.ToLower(filepath.Ext(path)))

	if err := os.Link(path, dst); err != nil {
		if err := copyFile(path, dst); err != nil {
			_ = os.Remove(dst)
			return "", fmt.Errorf("failed to create preview: %w", err)
		}
	}

	s.mu.Lock()
	s.refs[ref] = dst
	s.mu.Unlock()
	return ref, nil
}

// Path returns the file behind a handle
func (s *PreviewStore) Path(ref string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.refs[ref]
	return p, ok
}

// Revoke deletes the preview file. Unknown handles are ignored.
func (s *PreviewStore) Revoke(ref string) error {
	s.mu.Lock()
	p, ok := s.refs[ref]
	delete(s.refs, ref)
	last := len(s.refs) == 0
	hook := s.onRevoke
	s.mu.Unlock()

	if !ok {
		return nil
	}
	if hook != nil {
		hook(ref)
	}
	if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
		return err
	}
	if last {
		_ = os.Remove(s.dir)
	}
	return nil
}

// Active returns the number of unrevoked handles
func (s *PreviewStore) Active() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.refs)
}

// Sweep removes previews and clips left behind by runs that did not exit
// cleanly. Only entries untouched for staleAfter are removed, so files of
// other running processes survive. It returns the number of entries removed.
func (s *PreviewStore) Sweep() (int, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, err
	}

	cutoff := s.now().Add(-staleAfter)
	removed := 0
	for _, e := range entries {
		p := filepath.Join(s.root, e.Name())
		if p == s.dir {
			continue
		}
		if e.IsDir() && !strings.HasPrefix(e.Name(), sessionPrefix) {
			continue
		}
		info, err := e.Info()
		if err != nil || info.ModTime().After(cutoff) {
			continue
		}

		if e.IsDir() {
			err = os.RemoveAll(p)
		} else {
			err = os.Remove(p)
		}
		if err == nil {
			removed++
		}
	}
	return removed, nil
}

// copyFile copies a file from src to dst
func copyFile(src, dst string) error {
	if src == dst {
		return nil
	}

	sourceFile, err := os.Open(src)
	if err != nil {
		return err
	}
	defer sourceFile.Close()

	destFile, err := os.Create(dst)
	if err != nil {
		return err
	}

	_, err = io.Copy(destFile, sourceFile)
	if closeErr := destFile.Close(); err == nil {
		err = closeErr
	}
	return err
}

var _ ports.Previewer = (*PreviewStore)(nil)
