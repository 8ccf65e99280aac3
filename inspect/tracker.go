package inspect

import (
	"log/slog"
	"sync"

	"github.com/hazyhaar/devlens/dom"
	"github.com/hazyhaar/devlens/selector"
)

// OverlayMarkAttr marks elements belonging to the tool's own overlay
// subtree. Hit-testing skips any candidate carrying it on itself or an
// ancestor.
const OverlayMarkAttr = "data-devlens-overlay"

// State is the tracker's listening mode.
type State int

const (
	Disabled State = iota
	Armed
)

func (s State) String() string {
	if s == Armed {
		return "armed"
	}
	return "disabled"
}

// PointerEvent is one pointer-move sample: viewport coordinates plus the
// hit-test candidate stack (topmost first), as delivered by the page agent.
type PointerEvent struct {
	X, Y  int
	Stack []*dom.Element
}

// Sink receives tracker output. Implementations deliver to the overlay UI,
// the annotation flow, or test recorders.
type Sink interface {
	// HoverChanged fires when the tracked hover target changes. el may be
	// nil when the target is cleared.
	HoverChanged(el *dom.Element, d *Descriptor)
	// Selected fires on a click while armed, with the element whose default
	// activation was suppressed.
	Selected(el *dom.Element, d *Descriptor)
	// DisarmRequested fires on Escape while armed; the owner decides
	// whether to disarm.
	DisarmRequested()
}

// Callback adapts plain functions to the Sink interface. Any handler may be
// nil.
type Callback struct {
	OnHover  func(el *dom.Element, d *Descriptor)
	OnSelect func(el *dom.Element, d *Descriptor)
	OnDisarm func()
}

func (c *Callback) HoverChanged(el *dom.Element, d *Descriptor) {
	if c.OnHover != nil {
		c.OnHover(el, d)
	}
}

func (c *Callback) Selected(el *dom.Element, d *Descriptor) {
	if c.OnSelect != nil {
		c.OnSelect(el, d)
	}
}

func (c *Callback) DisarmRequested() {
	if c.OnDisarm != nil {
		c.OnDisarm()
	}
}

// Tracker resolves the topmost non-overlay element under the cursor and
// keeps a descriptor snapshot of it while armed. Listener attachment and
// detachment on the page side is paired with Arm/Disarm by the owner.
type Tracker struct {
	mu         sync.Mutex
	state      State
	hovered    *dom.Element
	hoveredKey string // generated selector; snapshots are fresh objects per event
	desc       *Descriptor
	sink       Sink
	resolver   ComponentNameResolver
	logger     *slog.Logger
}

// TrackerConfig configures a Tracker.
type TrackerConfig struct {
	Sink     Sink
	Resolver ComponentNameResolver
	Logger   *slog.Logger
}

// NewTracker creates a Tracker in the disabled state.
func NewTracker(cfg TrackerConfig) *Tracker {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Sink == nil {
		cfg.Sink = &Callback{}
	}
	return &Tracker{
		state:    Disabled,
		sink:     cfg.Sink,
		resolver: cfg.Resolver,
		logger:   cfg.Logger,
	}
}

// State returns the current listening mode.
func (t *Tracker) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Arm transitions to the armed state. Idempotent.
func (t *Tracker) Arm() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state == Armed {
		return
	}
	t.state = Armed
	t.logger.Debug("inspect: tracker armed")
}

// Disarm transitions to disabled and clears the hover target immediately.
func (t *Tracker) Disarm() {
	t.mu.Lock()
	if t.state == Disabled {
		t.mu.Unlock()
		return
	}
	t.state = Disabled
	cleared := t.hovered != nil
	t.hovered = nil
	t.hoveredKey = ""
	t.desc = nil
	t.mu.Unlock()

	if cleared {
		t.sink.HoverChanged(nil, nil)
	}
	t.logger.Debug("inspect: tracker disarmed")
}

// Hovered returns the current hover target and its descriptor snapshot.
func (t *Tracker) Hovered() (*dom.Element, *Descriptor) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.hovered, t.desc
}

// HandlePointerMove processes one pointer-move sample. Ignored while
// disabled. The descriptor is recomputed only when the resolved element
// differs from the current target; it is a snapshot, not a reactive watch.
func (t *Tracker) HandlePointerMove(ev PointerEvent) {
	t.mu.Lock()
	if t.state != Armed {
		t.mu.Unlock()
		return
	}
	el := topmost(ev.Stack)
	key := ""
	if el != nil {
		key = selector.Generate(el)
	}
	if key == t.hoveredKey && (el == nil) == (t.hovered == nil) {
		t.mu.Unlock()
		return
	}
	var d *Descriptor
	if el != nil {
		d = Describe(el, t.resolver)
	}
	t.hovered = el
	t.hoveredKey = key
	t.desc = d
	t.mu.Unlock()

	t.sink.HoverChanged(el, d)
}

// HandleClick processes a click while armed: the page agent has already
// suppressed default activation, so the tracked element is emitted as a
// selection instead.
func (t *Tracker) HandleClick() {
	t.mu.Lock()
	if t.state != Armed || t.hovered == nil {
		t.mu.Unlock()
		return
	}
	el, d := t.hovered, t.desc
	t.mu.Unlock()

	t.sink.Selected(el, d)
}

// HandleEscape clears the hover target and requests disarm from the owner.
func (t *Tracker) HandleEscape() {
	t.mu.Lock()
	if t.state != Armed {
		t.mu.Unlock()
		return
	}
	cleared := t.hovered != nil
	t.hovered = nil
	t.hoveredKey = ""
	t.desc = nil
	t.mu.Unlock()

	if cleared {
		t.sink.HoverChanged(nil, nil)
	}
	t.sink.DisarmRequested()
}

// topmost picks the first candidate that is not part of the overlay
// subtree, the document root, or the body.
func topmost(stack []*dom.Element) *dom.Element {
	for _, el := range stack {
		if el == nil || el.IsRoot() || el.IsBody() {
			continue
		}
		if inOverlay(el) {
			continue
		}
		return el
	}
	return nil
}

func inOverlay(el *dom.Element) bool {
	for cur := el; cur != nil; cur = cur.Parent {
		if cur.HasAttr(OverlayMarkAttr) {
			return true
		}
	}
	return false
}
