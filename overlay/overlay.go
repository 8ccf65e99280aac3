// Package overlay orchestrates the devlens session: it owns the inspector
// tracker, the performance sampler, the annotation store wiring, and the
// keyboard surface, and pairs every listener with its lifecycle. Features
// attach when enabled and detach on disable or teardown.
package overlay

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/hazyhaar/devlens/annotation"
	"github.com/hazyhaar/devlens/dom"
	"github.com/hazyhaar/devlens/inspect"
	"github.com/hazyhaar/devlens/perf"
)

// Bridge is the page-side agent handle the overlay drives. The browser
// implementation injects JS; tests substitute a fake.
type Bridge interface {
	SetArmed(armed bool) error
	SetVisible(visible bool) error
	Highlight(x, y, w, h int) error
	Reload() error
	Close() error
}

// Options is the host boundary contract: every callback is optional.
type Options struct {
	// ProcessInfo fetches external process memory for the stats panel.
	ProcessInfo perf.ProcessInfoFunc
	// OnSelect is invoked when the inspector registers a selection.
	OnSelect func(el *dom.Element, d *inspect.Descriptor)
	// OnAnnotationCount is invoked whenever the annotation count changes.
	OnAnnotationCount func(count int)
	// Toast delivers transient user-facing notifications.
	Toast func(message, description string)
	// OnStats receives performance samples.
	OnStats func(perf.Stats)
	// Resolver maps elements to owning-component names; nil leaves the
	// field empty.
	Resolver inspect.ComponentNameResolver
	// Snippet fetches the outer HTML for a selector so annotations carry
	// surrounding context. Failures are logged and the annotation is saved
	// without a snippet.
	Snippet func(sel string) (string, error)

	Logger *slog.Logger
}

// Overlay is one devlens session over a single page.
type Overlay struct {
	mu      sync.Mutex
	bridge  Bridge
	store   *annotation.Store
	tracker *inspect.Tracker
	sampler *perf.Sampler
	poller  *perf.ProcessPoller
	hold    *perf.HoldTimer
	opts    Options
	logger  *slog.Logger

	visible   bool
	started   bool
	selected  *inspect.Descriptor
	selectedE *dom.Element
	unsubs    []func()
}

// New wires an Overlay over a bridge and an annotation store.
func New(bridge Bridge, store *annotation.Store, opts Options) *Overlay {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	o := &Overlay{
		bridge: bridge,
		store:  store,
		opts:   opts,
		logger: logger,
	}

	o.tracker = inspect.NewTracker(inspect.TrackerConfig{
		Resolver: opts.Resolver,
		Logger:   logger,
		Sink: &inspect.Callback{
			OnHover:  o.onHover,
			OnSelect: o.onSelect,
			OnDisarm: func() { o.DisarmInspector() },
		},
	})
	o.sampler = perf.NewSampler(func(s perf.Stats) {
		if opts.OnStats != nil {
			opts.OnStats(s)
		}
	})
	o.poller = perf.NewProcessPoller(opts.ProcessInfo, perf.WithPollLogger(logger))
	o.hold = perf.NewHoldTimer(o.confirmReload)
	return o
}

// Start attaches lifecycle-owned resources: the process poller and the
// store subscription. The overlay starts visible with the inspector
// disarmed.
func (o *Overlay) Start(ctx context.Context) error {
	o.mu.Lock()
	if o.started {
		o.mu.Unlock()
		return fmt.Errorf("overlay: already started")
	}
	o.started = true
	o.visible = true
	o.mu.Unlock()

	o.poller.Start(ctx)
	unsub := o.store.Subscribe(func(count int) {
		if o.opts.OnAnnotationCount != nil {
			o.opts.OnAnnotationCount(count)
		}
	})
	o.mu.Lock()
	o.unsubs = append(o.unsubs, unsub)
	o.mu.Unlock()

	if err := o.bridge.SetVisible(true); err != nil {
		return err
	}
	o.logger.Info("overlay: started")
	return nil
}

// Stop detaches everything Start and Arm attached. Safe to call once only
// after Start.
func (o *Overlay) Stop() {
	o.DisarmInspector()
	o.poller.Stop()
	o.hold.Stop()

	o.mu.Lock()
	unsubs := o.unsubs
	o.unsubs = nil
	o.started = false
	o.mu.Unlock()

	for _, u := range unsubs {
		u()
	}
	if err := o.bridge.Close(); err != nil {
		o.logger.Warn("overlay: bridge close", "error", err)
	}
	o.logger.Info("overlay: stopped")
}

// Toggle flips overlay visibility; hiding also disarms the inspector.
func (o *Overlay) Toggle() {
	o.mu.Lock()
	o.visible = !o.visible
	visible := o.visible
	o.mu.Unlock()

	if !visible {
		o.DisarmInspector()
	}
	if err := o.bridge.SetVisible(visible); err != nil {
		o.logger.Warn("overlay: set visible", "error", err)
	}
}

// Visible reports current overlay visibility.
func (o *Overlay) Visible() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.visible
}

// ArmInspector attaches the page capture listeners and starts tracking.
func (o *Overlay) ArmInspector() error {
	if err := o.bridge.SetArmed(true); err != nil {
		return fmt.Errorf("overlay: arm: %w", err)
	}
	o.tracker.Arm()
	return nil
}

// DisarmInspector detaches listeners and clears the hover target.
func (o *Overlay) DisarmInspector() {
	o.tracker.Disarm()
	if err := o.bridge.SetArmed(false); err != nil {
		o.logger.Warn("overlay: disarm", "error", err)
	}
}

// Inspecting reports whether the tracker is armed.
func (o *Overlay) Inspecting() bool {
	return o.tracker.State() == inspect.Armed
}

// HandlePointerMove feeds one pointer sample from the bridge.
func (o *Overlay) HandlePointerMove(x, y int, candidates [][]dom.SpineNode) {
	stack := make([]*dom.Element, 0, len(candidates))
	for _, spine := range candidates {
		el, err := dom.DecodeSpine(spine)
		if err != nil {
			continue
		}
		stack = append(stack, el)
	}
	o.tracker.HandlePointerMove(inspect.PointerEvent{X: x, Y: y, Stack: stack})
}

// HandleClick feeds a suppressed click from the bridge.
func (o *Overlay) HandleClick() {
	o.tracker.HandleClick()
}

// HandleKey interprets the keyboard surface: modifier+Shift+D toggles the
// overlay, Escape disarms the inspector.
func (o *Overlay) HandleKey(key string, mod, shift bool) {
	switch {
	case mod && shift && strings.EqualFold(key, "d"):
		o.Toggle()
	case key == "Escape":
		o.tracker.HandleEscape()
	}
}

// HandleFrames feeds batched frame signals from the agent into the sampler.
func (o *Overlay) HandleFrames(count int, at time.Time) {
	o.sampler.FramesAt(count, at)
}

// HandleHeap updates the heap snapshot attached to subsequent stats samples.
func (o *Overlay) HandleHeap(h *perf.HeapInfo) {
	o.sampler.SetHeap(h)
}

// Selected returns the last inspector selection, if any.
func (o *Overlay) Selected() (*dom.Element, *inspect.Descriptor) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.selectedE, o.selected
}

// Annotate saves a free-text note for the current selection. The selection
// survives until the next one, so the comment dialog can submit after
// disarm.
func (o *Overlay) Annotate(ctx context.Context, comment, prompt string) (annotation.Annotation, error) {
	o.mu.Lock()
	d := o.selected
	o.mu.Unlock()
	if d == nil {
		return annotation.Annotation{}, fmt.Errorf("overlay: no element selected")
	}

	var snippet string
	if o.opts.Snippet != nil {
		var err error
		snippet, err = o.opts.Snippet(d.Selector)
		if err != nil {
			o.logger.Warn("overlay: snippet fetch failed", "selector", d.Selector, "error", err)
			snippet = ""
		}
	}

	a, err := o.store.Save(ctx, annotation.Annotation{
		Selector: d.Selector,
		Target: annotation.Target{
			Tag:       d.Tag,
			ID:        d.ID,
			Selector:  d.Selector,
			Component: d.ComponentName,
			Text:      d.Text,
		},
		Comment: comment,
		Prompt:  prompt,
		Snippet: snippet,
	})
	if err != nil {
		return annotation.Annotation{}, err
	}
	o.toast("Annotation saved", d.Selector)
	return a, nil
}

// Sampler exposes the stats sampler for the stats panel.
func (o *Overlay) Sampler() *perf.Sampler { return o.sampler }

// ProcessMemory returns the last-known external process info.
func (o *Overlay) ProcessMemory() *perf.ProcessInfo { return o.poller.Last() }

// HoldReloadPress begins the hold-to-confirm gesture for the destructive
// page reload.
func (o *Overlay) HoldReloadPress() { o.hold.Press() }

// HoldReloadRelease cancels the gesture; progress resets to zero.
func (o *Overlay) HoldReloadRelease() { o.hold.Release() }

// HoldReloadProgress returns the gesture progress, 0-100.
func (o *Overlay) HoldReloadProgress() int { return o.hold.Progress() }

func (o *Overlay) confirmReload() {
	if err := o.bridge.Reload(); err != nil {
		o.logger.Error("overlay: reload failed", "error", err)
		return
	}
	o.toast("Page reloaded", "")
}

func (o *Overlay) onHover(el *dom.Element, d *inspect.Descriptor) {
	if d == nil {
		if err := o.bridge.Highlight(0, 0, 0, 0); err != nil {
			o.logger.Debug("overlay: clear highlight", "error", err)
		}
		return
	}
	if err := o.bridge.Highlight(d.X, d.Y, d.Width, d.Height); err != nil {
		o.logger.Debug("overlay: highlight", "error", err)
	}
}

func (o *Overlay) onSelect(el *dom.Element, d *inspect.Descriptor) {
	o.mu.Lock()
	o.selectedE = el
	o.selected = d
	o.mu.Unlock()

	if o.opts.OnSelect != nil {
		o.opts.OnSelect(el, d)
	}
}

func (o *Overlay) toast(message, description string) {
	if o.opts.Toast != nil {
		o.opts.Toast(message, description)
	}
}
