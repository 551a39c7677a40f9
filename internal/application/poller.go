package application

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/devbush/poser/internal/domain"
	"github.com/devbush/poser/internal/ports"
)

// DefaultPollInterval is the time between two progress requests
const DefaultPollInterval = 2 * time.Second

// Poller fetches analysis progress at a fixed interval. When a request
// fails it reports a locally estimated snapshot instead, so progress keeps
// moving during short outages.
type Poller struct {
	api      ports.PoserAPI
	interval time.Duration
	logger   *slog.Logger

	// step returns the increment used for estimated snapshots
	step func() float64
}

// NewPoller creates a poller. A non-positive interval uses DefaultPollInterval.
func NewPoller(api ports.PoserAPI, interval time.Duration, logger *slog.Logger) *Poller {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Poller{
		api:      api,
		interval: interval,
		logger:   logger,
		step:     randomStep,
	}
}

func randomStep() float64 {
	return domain.MinSynthesizedStep + rand.Float64()*(domain.MaxSynthesizedStep-domain.MinSynthesizedStep)
}

// Interval returns the time between requests
func (p *Poller) Interval() time.Duration {
	return p.interval
}

// PollHandle controls one running poll loop
type PollHandle struct {
	id     string
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

// ID returns the analysis being polled
func (h *PollHandle) ID() string {
	return h.id
}

// Stop cancels the loop and waits for it to exit. No request is issued and
// no update is delivered after Stop returns. Stop is safe to call more than
// once and after the loop finished on its own, but must not be called from
// inside the update callback.
func (h *PollHandle) Stop() {
	h.once.Do(h.cancel)
	<-h.done
}

// Done is closed when the loop has exited
func (h *PollHandle) Done() <-chan struct{} {
	return h.done
}

// Start polls the analysis until ctx is cancelled, the handle is stopped,
// or a complete or failed snapshot has been delivered. The first request
// is made immediately. initial seeds the estimate used when requests fail.
func (p *Poller) Start(ctx context.Context, id string, initial domain.Progress, onUpdate func(domain.Progress)) *PollHandle {
	return p.start(ctx, id, initial, true, onUpdate)
}

// Resume is Start with the first request delayed by one interval
func (p *Poller) Resume(ctx context.Context, id string, initial domain.Progress, onUpdate func(domain.Progress)) *PollHandle {
	return p.start(ctx, id, initial, false, onUpdate)
}

func (p *Poller) start(ctx context.Context, id string, initial domain.Progress, immediate bool, onUpdate func(domain.Progress)) *PollHandle {
	ctx, cancel := context.WithCancel(ctx)
	h := &PollHandle{id: id, cancel: cancel, done: make(chan struct{})}

	go func() {
		defer close(h.done)
		defer cancel()

		prev := initial.Normalize()
		tick := func() bool {
			snap, err := p.api.GetProgress(ctx, id)
			if ctx.Err() != nil {
				return true
			}

			var next domain.Progress
			if err != nil {
				next = domain.Synthesize(prev, p.step())
				p.logger.Debug("progress request failed, estimating",
					"analysis_id", id, "error", err, "progress", next.Progress)
			} else {
				next = snap.Normalize()
			}
			prev = next

			onUpdate(next)
			if next.Status.IsTerminal() {
				p.logger.Info("polling finished", "analysis_id", id, "status", next.Status)
				return true
			}
			return false
		}

		if immediate && tick() {
			return
		}

		ticker := time.NewTicker(p.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if tick() {
					return
				}
			}
		}
	}()

	return h
}
