package perf

import (
	"sync"
	"time"
)

const (
	holdTick = 200 * time.Millisecond
	holdStep = 10 // percent per tick
)

// HoldTimer drives a hold-to-confirm progress indicator for a destructive
// action: progress advances 10% per 200ms while pressed; releasing before
// completion cancels the timer and resets progress to zero. Completion
// fires the callback exactly once per press.
type HoldTimer struct {
	mu         sync.Mutex
	progress   int
	pressed    bool
	stopTick   chan struct{}
	onComplete func()
	onProgress func(percent int)
	tick       time.Duration
}

// HoldOption configures a HoldTimer.
type HoldOption func(*HoldTimer)

// WithHoldTick overrides the 200ms tick, mainly for tests.
func WithHoldTick(d time.Duration) HoldOption {
	return func(h *HoldTimer) { h.tick = d }
}

// WithHoldProgress registers a per-tick progress observer.
func WithHoldProgress(fn func(percent int)) HoldOption {
	return func(h *HoldTimer) { h.onProgress = fn }
}

// NewHoldTimer creates a timer firing onComplete when a press is held to
// 100%.
func NewHoldTimer(onComplete func(), opts ...HoldOption) *HoldTimer {
	h := &HoldTimer{onComplete: onComplete, tick: holdTick}
	for _, o := range opts {
		o(h)
	}
	return h
}

// Press starts the hold. Ignored if already pressed.
func (h *HoldTimer) Press() {
	h.mu.Lock()
	if h.pressed {
		h.mu.Unlock()
		return
	}
	h.pressed = true
	h.progress = 0
	stop := make(chan struct{})
	h.stopTick = stop
	h.mu.Unlock()

	go h.run(stop)
}

// Release cancels an in-flight hold and resets progress to zero. This is
// the explicit cancellation path; a completed hold is not affected.
func (h *HoldTimer) Release() {
	h.mu.Lock()
	if !h.pressed {
		h.mu.Unlock()
		return
	}
	h.pressed = false
	h.progress = 0
	close(h.stopTick)
	h.stopTick = nil
	h.mu.Unlock()
}

// Progress returns the current percentage, 0-100.
func (h *HoldTimer) Progress() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.progress
}

// Stop releases the timer handle; part of the owning component's teardown.
func (h *HoldTimer) Stop() {
	h.Release()
}

func (h *HoldTimer) run(stop chan struct{}) {
	ticker := time.NewTicker(h.tick)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			h.mu.Lock()
			if !h.pressed {
				h.mu.Unlock()
				return
			}
			h.progress += holdStep
			progress := h.progress
			complete := progress >= 100
			if complete {
				h.pressed = false
				h.stopTick = nil
			}
			onProgress := h.onProgress
			onComplete := h.onComplete
			h.mu.Unlock()

			if onProgress != nil {
				onProgress(progress)
			}
			if complete {
				if onComplete != nil {
					onComplete()
				}
				return
			}
		}
	}
}
