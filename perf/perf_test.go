package perf

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestSampler_OneSecondWindow(t *testing.T) {
	var got []Stats
	s := NewSampler(func(st Stats) { got = append(got, st) })

	start := time.Unix(0, 0)
	// 60 frames spread across exactly one second, then one more to close
	// the window.
	for i := 0; i <= 60; i++ {
		s.FrameAt(start.Add(time.Duration(i) * time.Second / 60))
	}

	if len(got) != 1 {
		t.Fatalf("samples: got %d, want 1", len(got))
	}
	if got[0].FPS != 60 && got[0].FPS != 61 {
		t.Errorf("FPS: got %d, want ~60", got[0].FPS)
	}
	if got[0].FrameTimeMS <= 0 {
		t.Errorf("FrameTimeMS: got %v, want > 0", got[0].FrameTimeMS)
	}
}

func TestSampler_NoEmitBeforeWindowCloses(t *testing.T) {
	emitted := 0
	s := NewSampler(func(Stats) { emitted++ })

	start := time.Unix(0, 0)
	for i := 0; i < 30; i++ {
		s.FrameAt(start.Add(time.Duration(i) * 10 * time.Millisecond))
	}
	if emitted != 0 {
		t.Errorf("emitted %d samples inside a 300ms window, want 0", emitted)
	}
}

func TestSampler_HeapAttached(t *testing.T) {
	var got Stats
	s := NewSampler(func(st Stats) { got = st })
	s.SetHeap(&HeapInfo{Used: 10, Total: 20, Limit: 40})

	start := time.Unix(0, 0)
	s.FrameAt(start)
	s.FrameAt(start.Add(1100 * time.Millisecond))

	if got.Heap == nil || got.Heap.Used != 10 {
		t.Errorf("Heap: got %+v, want used=10", got.Heap)
	}
	if last := s.Last(); last.Heap == nil {
		t.Error("Last: heap missing")
	}
}

func TestProcessPoller_KeepsLastValueOnFailure(t *testing.T) {
	var calls atomic.Int64
	fetch := func(ctx context.Context) (*ProcessInfo, error) {
		n := calls.Add(1)
		if n == 1 {
			return &ProcessInfo{RSSBytes: 111}, nil
		}
		return nil, errors.New("agent busy")
	}

	p := NewProcessPoller(fetch, WithPollInterval(10*time.Millisecond))
	p.Start(context.Background())
	defer p.Stop()

	deadline := time.After(2 * time.Second)
	for calls.Load() < 3 {
		select {
		case <-deadline:
			t.Fatal("poller did not tick")
		case <-time.After(5 * time.Millisecond):
		}
	}

	if last := p.Last(); last == nil || last.RSSBytes != 111 {
		t.Errorf("Last: got %+v, want first successful value retained", last)
	}
}

func TestProcessPoller_StopReleasesTimer(t *testing.T) {
	var calls atomic.Int64
	p := NewProcessPoller(func(ctx context.Context) (*ProcessInfo, error) {
		calls.Add(1)
		return nil, nil
	}, WithPollInterval(5*time.Millisecond))

	p.Start(context.Background())
	time.Sleep(30 * time.Millisecond)
	p.Stop()
	n := calls.Load()
	time.Sleep(30 * time.Millisecond)
	// A few in-flight ticks may still land; the ticker itself must be dead.
	if calls.Load() > n+1 {
		t.Errorf("poller still ticking after Stop: %d -> %d", n, calls.Load())
	}
	p.Stop() // idempotent
}

func TestProcessPoller_NilFetchIsNoOp(t *testing.T) {
	p := NewProcessPoller(nil)
	p.Start(context.Background())
	p.Stop()
}

func TestHoldTimer_CompletesAfterTenTicks(t *testing.T) {
	var mu sync.Mutex
	var progress []int
	done := make(chan struct{})

	h := NewHoldTimer(func() { close(done) },
		WithHoldTick(time.Millisecond),
		WithHoldProgress(func(p int) {
			mu.Lock()
			progress = append(progress, p)
			mu.Unlock()
		}))
	h.Press()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("hold never completed")
	}

	mu.Lock()
	defer mu.Unlock()
	if len(progress) != 10 {
		t.Fatalf("ticks: got %d, want 10", len(progress))
	}
	for i, p := range progress {
		if p != (i+1)*10 {
			t.Errorf("tick %d: got %d%%, want %d%%", i, p, (i+1)*10)
		}
	}
}

func TestHoldTimer_ReleaseCancelsAndResets(t *testing.T) {
	completed := make(chan struct{}, 1)
	h := NewHoldTimer(func() { completed <- struct{}{} }, WithHoldTick(5*time.Millisecond))

	h.Press()
	time.Sleep(12 * time.Millisecond)
	h.Release()

	if p := h.Progress(); p != 0 {
		t.Errorf("Progress after release: got %d, want 0", p)
	}
	select {
	case <-completed:
		t.Error("completed after early release")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestHoldTimer_PressWhilePressedIgnored(t *testing.T) {
	var completions atomic.Int64
	h := NewHoldTimer(func() { completions.Add(1) }, WithHoldTick(time.Millisecond))

	h.Press()
	h.Press()
	time.Sleep(50 * time.Millisecond)

	if n := completions.Load(); n != 1 {
		t.Errorf("completions: got %d, want 1", n)
	}
	h.Stop()
}
