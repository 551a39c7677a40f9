package media

import (
	"errors"
	"testing"
)

type mapResolver map[string]string

func (m mapResolver) Path(ref string) (string, bool) {
	p, ok := m[ref]
	return p, ok
}

type fakePlayback struct {
	stopped bool
}

func (f *fakePlayback) Stop() error {
	f.stopped = true
	return nil
}

type launchRecorder struct {
	calls []float64
	last  *fakePlayback
	err   error
}

func (l *launchRecorder) launch(path string, from float64) (playback, error) {
	if l.err != nil {
		return nil, l.err
	}
	l.calls = append(l.calls, from)
	l.last = &fakePlayback{}
	return l.last, nil
}

func newTestPlayer(rec *launchRecorder) *Player {
	p := NewPlayer(mapResolver{"a": "/tmp/a.mp4"}, "")
	p.launch = rec.launch
	return p
}

func TestPlayer_PlayPause(t *testing.T) {
	rec := &launchRecorder{}
	p := newTestPlayer(rec)

	if err := p.Play("a"); err != nil {
		t.Fatalf("Play() error = %v", err)
	}
	if !p.Playing("a") {
		t.Error("Playing() should be true")
	}

	// Play while playing does not relaunch
	_ = p.Play("a")
	if len(rec.calls) != 1 {
		t.Errorf("launches = %d, want 1", len(rec.calls))
	}

	first := rec.last
	if err := p.Pause("a"); err != nil {
		t.Fatalf("Pause() error = %v", err)
	}
	if !first.stopped {
		t.Error("Pause() should stop the playback")
	}
	if p.Playing("a") {
		t.Error("Playing() should be false after pause")
	}

	if err := p.Pause("a"); err != nil {
		t.Errorf("Pause() on stopped preview error = %v", err)
	}
}

func TestPlayer_SeekRestartsPlayback(t *testing.T) {
	rec := &launchRecorder{}
	p := newTestPlayer(rec)

	if err := p.Seek("a", 12.5); err != nil {
		t.Fatalf("Seek() error = %v", err)
	}
	if len(rec.calls) != 0 {
		t.Error("Seek() while paused should not launch")
	}
	if p.Position("a") != 12.5 {
		t.Errorf("Position() = %v, want 12.5", p.Position("a"))
	}

	_ = p.Play("a")
	_ = p.Seek("a", 30)

	if len(rec.calls) != 2 || rec.calls[0] != 12.5 || rec.calls[1] != 30 {
		t.Errorf("launch positions = %v, want [12.5 30]", rec.calls)
	}
	if !p.Playing("a") {
		t.Error("playback should continue after seek")
	}

	_ = p.Seek("a", -3)
	if p.Position("a") != 0 {
		t.Errorf("negative seek should clamp to 0, got %v", p.Position("a"))
	}
}

func TestPlayer_Errors(t *testing.T) {
	rec := &launchRecorder{err: errors.New("no display")}
	p := newTestPlayer(rec)

	if err := p.Play("missing"); err == nil {
		t.Error("expected error for unknown preview")
	}
	if err := p.Play("a"); err == nil {
		t.Error("expected launch error")
	}
	if p.Playing("a") {
		t.Error("failed launch must not mark the preview as playing")
	}
}

func TestPlayer_WithoutFFplay(t *testing.T) {
	p := NewPlayer(mapResolver{"a": "/tmp/a.mp4"}, "")

	if err := p.Play("a"); err != nil {
		t.Fatalf("Play() error = %v", err)
	}
	if !p.Playing("a") {
		t.Error("position-only player should still track play state")
	}

	p.Forget("a")
	if p.Playing("a") || p.Position("a") != 0 {
		t.Error("Forget() should drop state")
	}
}

func TestFFplayArgs(t *testing.T) {
	args := ffplayArgs("/tmp/a.mp4", 4.25)
	want := map[string]string{"-ss": "4.250", "-loglevel": "quiet"}
	for i := 0; i < len(args)-1; i++ {
		if v, ok := want[args[i]]; ok && args[i+1] != v {
			t.Errorf("%s = %q, want %q", args[i], args[i+1], v)
		}
	}
	if args[len(args)-1] != "/tmp/a.mp4" {
		t.Errorf("last arg = %q, want input path", args[len(args)-1])
	}
}
