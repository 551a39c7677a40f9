package media

import (
	"fmt"
	"os/exec"
	"strconv"
	"sync"

	"github.com/devbush/poser/internal/ports"
)

// PathResolver maps a preview handle to its file
type PathResolver interface {
	Path(ref string) (string, bool)
}

// playback is one running playback that can be stopped
type playback interface {
	Stop() error
}

type launchFunc func(path string, from float64) (playback, error)

type playerState struct {
	position float64
	playing  playback
}

// Player tracks the playhead of each preview and, when ffplay is
// available, plays it in a separate window.
type Player struct {
	previews PathResolver
	launch   launchFunc

	mu     sync.Mutex
	states map[string]*playerState
}

// NewPlayer creates a player. An empty ffplay path makes playback
// position-only.
func NewPlayer(previews PathResolver, ffplay string) *Player {
	p := &Player{previews: previews, states: make(map[string]*playerState)}
	if ffplay != "" {
		p.launch = ffplayLauncher(ffplay)
	}
	return p
}

// Seek moves the playhead. A running playback restarts at the new position.
func (p *Player) Seek(ref string, seconds float64) error {
	if seconds < 0 {
		seconds = 0
	}

	p.mu.Lock()
	st := p.stateLocked(ref)
	st.position = seconds
	wasPlaying := st.playing != nil
	p.mu.Unlock()

	if !wasPlaying {
		return nil
	}
	if err := p.Pause(ref); err != nil {
		return err
	}
	return p.Play(ref)
}

// Play starts playback from the current position
func (p *Player) Play(ref string) error {
	path, ok := p.previews.Path(ref)
	if !ok {
		return fmt.Errorf("unknown preview %q", ref)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	st := p.stateLocked(ref)
	if st.playing != nil {
		return nil
	}

	var pb playback = noopPlayback{}
	if p.launch != nil {
		var err error
		pb, err = p.launch(path, st.position)
		if err != nil {
			return fmt.Errorf("failed to start playback: %w", err)
		}
	}
	st.playing = pb
	return nil
}

// Pause stops playback. Pausing a stopped preview is a no-op.
func (p *Player) Pause(ref string) error {
	p.mu.Lock()
	st, ok := p.states[ref]
	if !ok || st.playing == nil {
		p.mu.Unlock()
		return nil
	}
	pb := st.playing
	st.playing = nil
	p.mu.Unlock()

	return pb.Stop()
}

// Position returns the playhead of a preview in seconds
func (p *Player) Position(ref string) float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	if st, ok := p.states[ref]; ok {
		return st.position
	}
	return 0
}

// Playing reports whether a preview is playing
func (p *Player) Playing(ref string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	st, ok := p.states[ref]
	return ok && st.playing != nil
}

// Forget stops and drops the state of a preview
func (p *Player) Forget(ref string) {
	_ = p.Pause(ref)
	p.mu.Lock()
	delete(p.states, ref)
	p.mu.Unlock()
}

func (p *Player) stateLocked(ref string) *playerState {
	st, ok := p.states[ref]
	if !ok {
		st = &playerState{}
		p.states[ref] = st
	}
	return st
}

type noopPlayback struct{}

func (noopPlayback) Stop() error { return nil }

type processPlayback struct {
	cmd  *exec.Cmd
	done chan struct{}
}

func (pb *processPlayback) Stop() error {
	select {
	case <-pb.done:
		return nil
	default:
	}
	if err := pb.cmd.Process.Kill(); err != nil {
		return err
	}
	<-pb.done
	return nil
}

func ffplayLauncher(ffplay string) launchFunc {
	return func(path string, from float64) (playback, error) {
		cmd := exec.Command(ffplay, ffplayArgs(path, from)...)
		if err := cmd.Start(); err != nil {
			return nil, err
		}
		pb := &processPlayback{cmd: cmd, done: make(chan struct{})}
		go func() {
			_ = cmd.Wait()
			close(pb.done)
		}()
		return pb, nil
	}
}

func ffplayArgs(path string, from float64) []string {
	return []string{
		"-loglevel", "quiet",
		"-autoexit",
		"-ss", strconv.FormatFloat(from, 'f', 3, 64),
		"-window_title", "Poser preview",
		path,
	}
}

var _ ports.Player = (*Player)(nil)
