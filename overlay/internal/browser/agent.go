package browser

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"

	"github.com/hazyhaar/devlens/dom"
	"github.com/hazyhaar/devlens/perf"
)

//go:embed agent.js
var agentJS []byte

const bindingName = "__devlens_binding"

// Handlers receives decoded agent events. Any handler may be nil.
type Handlers struct {
	OnPointerMove func(x, y int, candidates [][]dom.SpineNode)
	OnClick       func()
	OnKey         func(key string, mod, shift bool)
	OnFrames      func(count int, at time.Time)
	OnHeap        func(h *perf.HeapInfo)
}

// Agent is the injected page-side companion: it owns the capture-phase
// listeners, the overlay panel subtree, and the event binding back to Go.
type Agent struct {
	page     *rod.Page
	handlers Handlers
	logger   *slog.Logger
	ctx      context.Context
	cancel   context.CancelFunc
}

// Inject installs the binding and the agent script on an open page.
func Inject(ctx context.Context, page *rod.Page, handlers Handlers, logger *slog.Logger) (*Agent, error) {
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(ctx)
	a := &Agent{
		page:     page,
		handlers: handlers,
		logger:   logger,
		ctx:      ctx,
		cancel:   cancel,
	}

	if err := (proto.RuntimeAddBinding{Name: bindingName}.Call(page)); err != nil {
		logger.Warn("agent: addBinding failed (may already exist)", "error", err)
	}
	go a.listenBinding()

	if _, err := page.Eval(string(agentJS)); err != nil {
		cancel()
		return nil, fmt.Errorf("agent: inject: %w", err)
	}
	logger.Debug("agent: injected")
	return a, nil
}

// SetArmed attaches (or detaches) the page-side pointer/click/key capture
// listeners.
func (a *Agent) SetArmed(armed bool) error {
	_, err := a.page.Eval(`(armed) => window.__devlens.setArmed(armed)`, armed)
	if err != nil {
		return fmt.Errorf("agent: set armed: %w", err)
	}
	return nil
}

// SetVisible shows or hides the overlay panel subtree.
func (a *Agent) SetVisible(visible bool) error {
	_, err := a.page.Eval(`(visible) => window.__devlens.setVisible(visible)`, visible)
	if err != nil {
		return fmt.Errorf("agent: set visible: %w", err)
	}
	return nil
}

// Highlight draws the hover outline over the given viewport box; a zero box
// clears it.
func (a *Agent) Highlight(x, y, w, h int) error {
	_, err := a.page.Eval(`(x, y, w, h) => window.__devlens.highlight(x, y, w, h)`, x, y, w, h)
	if err != nil {
		return fmt.Errorf("agent: highlight: %w", err)
	}
	return nil
}

// OuterHTML returns the outer HTML of the first element matching sel, or ""
// when the selector no longer resolves (nothing to render).
func (a *Agent) OuterHTML(sel string) (string, error) {
	res, err := a.page.Eval(`(sel) => {
		const el = document.querySelector(sel);
		return el ? el.outerHTML : "";
	}`, sel)
	if err != nil {
		return "", fmt.Errorf("agent: outer html: %w", err)
	}
	return res.Value.Str(), nil
}

// SnapshotHTML serialises the full document for offline describing.
func (a *Agent) SnapshotHTML() (string, error) {
	res, err := a.page.Eval(`() => document.documentElement.outerHTML`)
	if err != nil {
		return "", fmt.Errorf("agent: snapshot: %w", err)
	}
	return res.Value.Str(), nil
}

// Reload reloads the page; the destructive action behind hold-to-confirm.
func (a *Agent) Reload() error {
	if err := a.page.Reload(); err != nil {
		return fmt.Errorf("agent: reload: %w", err)
	}
	return nil
}

// Close detaches the binding listener. The page itself stays open.
func (a *Agent) Close() error {
	a.cancel()
	return nil
}

// agentEvent is the wire shape of one binding payload.
type agentEvent struct {
	Type       string            `json:"type"`
	X          int               `json:"x,omitempty"`
	Y          int               `json:"y,omitempty"`
	Candidates [][]dom.SpineNode `json:"candidates,omitempty"`
	Key        string            `json:"key,omitempty"`
	Mod        bool              `json:"mod,omitempty"`
	Shift      bool              `json:"shift,omitempty"`
	Count      int               `json:"count,omitempty"`
	Heap       *perf.HeapInfo    `json:"heap,omitempty"`
}

func (a *Agent) listenBinding() {
	a.page.Context(a.ctx).EachEvent(func(e *proto.RuntimeBindingCalled) {
		if e.Name != bindingName {
			return
		}
		var ev agentEvent
		if err := json.Unmarshal([]byte(e.Payload), &ev); err != nil {
			a.logger.Warn("agent: parse binding payload", "error", err)
			return
		}
		a.dispatch(ev)
	})()
}

func (a *Agent) dispatch(ev agentEvent) {
	switch ev.Type {
	case "pointer":
		if a.handlers.OnPointerMove != nil {
			a.handlers.OnPointerMove(ev.X, ev.Y, ev.Candidates)
		}
	case "click":
		if a.handlers.OnClick != nil {
			a.handlers.OnClick()
		}
	case "key":
		if a.handlers.OnKey != nil {
			a.handlers.OnKey(ev.Key, ev.Mod, ev.Shift)
		}
	case "frames":
		if a.handlers.OnFrames != nil {
			a.handlers.OnFrames(ev.Count, time.Now())
		}
		if ev.Heap != nil && a.handlers.OnHeap != nil {
			a.handlers.OnHeap(ev.Heap)
		}
	default:
		a.logger.Debug("agent: unknown event", "type", ev.Type)
	}
}
