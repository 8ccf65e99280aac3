// Package perf samples frame-rate and memory statistics for the overlay
// panel. Nothing here is persisted; stats are instantaneous and recomputed
// once per elapsed second from a rolling frame counter.
package perf

import (
	"sync"
	"time"
)

// HeapInfo is an optional heap-memory snapshot reported by the page.
type HeapInfo struct {
	Used  uint64 `json:"used"`
	Total uint64 `json:"total"`
	Limit uint64 `json:"limit"`
}

// Stats is one emitted sample.
type Stats struct {
	FPS         int       `json:"fps"`
	FrameTimeMS float64   `json:"frame_time_ms"`
	Heap        *HeapInfo `json:"heap,omitempty"`
}

// Sampler accumulates frame signals and emits Stats once per elapsed
// second. Frame signals come from the page agent's refresh callback; tests
// feed FrameAt directly.
type Sampler struct {
	mu          sync.Mutex
	windowStart time.Time
	frames      int
	heap        *HeapInfo
	last        Stats
	onStats     func(Stats)
}

// NewSampler creates a Sampler delivering samples to onStats (may be nil).
func NewSampler(onStats func(Stats)) *Sampler {
	return &Sampler{onStats: onStats}
}

// Frame records one display-refresh signal at the current time.
func (s *Sampler) Frame() {
	s.FrameAt(time.Now())
}

// FrameAt records one frame signal at an explicit instant. When a full
// second has elapsed since the window started, stats are recomputed and the
// counter resets.
func (s *Sampler) FrameAt(now time.Time) {
	s.FramesAt(1, now)
}

// FramesAt records n frame signals at once; the page agent batches its
// refresh callbacks to keep bridge traffic low.
func (s *Sampler) FramesAt(n int, now time.Time) {
	if n <= 0 {
		return
	}
	s.mu.Lock()
	if s.windowStart.IsZero() {
		s.windowStart = now
	}
	s.frames += n

	elapsed := now.Sub(s.windowStart)
	if elapsed < time.Second {
		s.mu.Unlock()
		return
	}

	fps := int(float64(s.frames) / elapsed.Seconds())
	stats := Stats{FPS: fps, Heap: s.heap}
	if fps > 0 {
		stats.FrameTimeMS = 1000.0 / float64(fps)
	}
	s.last = stats
	s.frames = 0
	s.windowStart = now
	onStats := s.onStats
	s.mu.Unlock()

	if onStats != nil {
		onStats(stats)
	}
}

// SetHeap updates the heap snapshot attached to subsequent samples.
func (s *Sampler) SetHeap(h *HeapInfo) {
	s.mu.Lock()
	s.heap = h
	s.mu.Unlock()
}

// Last returns the most recently computed sample.
func (s *Sampler) Last() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}
