package perf

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// ProcessInfo is external process memory reported by the host-supplied
// callback. A nil result means "nothing to report".
type ProcessInfo struct {
	PID       int    `json:"pid,omitempty"`
	RSSBytes  uint64 `json:"rss_bytes"`
	HeapBytes uint64 `json:"heap_bytes,omitempty"`
}

// ProcessInfoFunc fetches external process memory. Supplied by the host;
// may block, so each tick invokes it in its own goroutine.
type ProcessInfoFunc func(ctx context.Context) (*ProcessInfo, error)

// ProcessPoller invokes the callback on a fixed 2-second period. Failures
// are caught and logged, leaving the last-known value in place until the
// next tick. Ticks are fire-and-forget with no overlap guard: a slow
// response may overlap the next tick, and only the latest resolved value is
// kept.
type ProcessPoller struct {
	fetch    ProcessInfoFunc
	interval time.Duration
	logger   *slog.Logger

	mu     sync.Mutex
	last   *ProcessInfo
	cancel context.CancelFunc
	done   chan struct{}
}

// PollerOption configures a ProcessPoller.
type PollerOption func(*ProcessPoller)

// WithPollInterval overrides the 2-second default, mainly for tests.
func WithPollInterval(d time.Duration) PollerOption {
	return func(p *ProcessPoller) { p.interval = d }
}

// WithPollLogger sets the poller logger.
func WithPollLogger(logger *slog.Logger) PollerOption {
	return func(p *ProcessPoller) { p.logger = logger }
}

// NewProcessPoller creates a poller for the given callback (may be nil, in
// which case Start is a no-op).
func NewProcessPoller(fetch ProcessInfoFunc, opts ...PollerOption) *ProcessPoller {
	p := &ProcessPoller{
		fetch:    fetch,
		interval: 2 * time.Second,
		logger:   slog.Default(),
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Start begins ticking. The poller owns its timer handle and releases it on
// Stop or when ctx is done.
func (p *ProcessPoller) Start(ctx context.Context) {
	if p.fetch == nil {
		return
	}
	p.mu.Lock()
	if p.cancel != nil {
		p.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	done := make(chan struct{})
	p.done = done
	p.mu.Unlock()

	go func() {
		defer close(done)
		ticker := time.NewTicker(p.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				go p.tick(ctx)
			}
		}
	}()
}

// Stop cancels the ticker. Safe to call more than once.
func (p *ProcessPoller) Stop() {
	p.mu.Lock()
	cancel := p.cancel
	done := p.done
	p.cancel = nil
	p.done = nil
	p.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
}

// Last returns the last-known process info, or nil before the first
// successful fetch.
func (p *ProcessPoller) Last() *ProcessInfo {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.last
}

func (p *ProcessPoller) tick(ctx context.Context) {
	info, err := p.fetch(ctx)
	if err != nil {
		p.logger.Warn("perf: process info fetch failed", "error", err)
		return
	}
	if info == nil {
		return
	}
	p.mu.Lock()
	p.last = info
	p.mu.Unlock()
}
