package overlay

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/hazyhaar/devlens/annotation"
	"github.com/hazyhaar/devlens/overlay/internal/browser"
)

// Session is a running overlay attached to a live page: browser handle,
// injected agent, and the orchestrator wired together.
type Session struct {
	manager *browser.Manager
	agent   *browser.Agent
	overlay *Overlay
	logger  *slog.Logger
	store   *annotation.Store
}

// agentBridge adapts *browser.Agent to the Bridge interface. The agent is
// bound after injection; calls before binding are dropped, since no page
// event can arrive before the agent script runs anyway.
type agentBridge struct {
	mu    sync.Mutex
	agent *browser.Agent
}

func (b *agentBridge) bind(a *browser.Agent) {
	b.mu.Lock()
	b.agent = a
	b.mu.Unlock()
}

func (b *agentBridge) get() *browser.Agent {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.agent
}

func (b *agentBridge) SetArmed(armed bool) error {
	if a := b.get(); a != nil {
		return a.SetArmed(armed)
	}
	return nil
}

func (b *agentBridge) SetVisible(visible bool) error {
	if a := b.get(); a != nil {
		return a.SetVisible(visible)
	}
	return nil
}

func (b *agentBridge) Highlight(x, y, w, h int) error {
	if a := b.get(); a != nil {
		return a.Highlight(x, y, w, h)
	}
	return nil
}

func (b *agentBridge) Reload() error {
	if a := b.get(); a != nil {
		return a.Reload()
	}
	return nil
}

func (b *agentBridge) Close() error {
	if a := b.get(); a != nil {
		return a.Close()
	}
	return nil
}

// StartSession launches (or connects to) a browser, opens targetURL,
// injects the page agent, and starts an Overlay over it. Close releases
// everything in reverse order.
func StartSession(ctx context.Context, cfg Config, targetURL string, store *annotation.Store, opts Options) (*Session, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	manager := browser.NewManager(browser.Config{
		RemoteURL: cfg.Browser.Remote,
		Headless:  cfg.Browser.Headless,
		Stealth:   cfg.Browser.Stealth,
		Logger:    logger,
	})
	if _, err := manager.Start(ctx); err != nil {
		return nil, fmt.Errorf("overlay: start browser: %w", err)
	}

	page, err := manager.OpenPage(ctx, targetURL)
	if err != nil {
		manager.Close()
		return nil, fmt.Errorf("overlay: open %s: %w", targetURL, err)
	}

	bridge := &agentBridge{}
	if opts.Snippet == nil {
		opts.Snippet = func(sel string) (string, error) {
			a := bridge.get()
			if a == nil {
				return "", nil
			}
			return a.OuterHTML(sel)
		}
	}
	o := New(bridge, store, opts)

	agent, err := browser.Inject(ctx, page, browser.Handlers{
		OnPointerMove: o.HandlePointerMove,
		OnClick:       o.HandleClick,
		OnKey:         o.HandleKey,
		OnFrames:      o.HandleFrames,
		OnHeap:        o.HandleHeap,
	}, logger)
	if err != nil {
		manager.Close()
		return nil, fmt.Errorf("overlay: inject agent: %w", err)
	}
	bridge.bind(agent)

	if err := o.Start(ctx); err != nil {
		agent.Close()
		manager.Close()
		return nil, err
	}

	return &Session{
		manager: manager,
		agent:   agent,
		overlay: o,
		logger:  logger,
		store:   store,
	}, nil
}

// Overlay returns the session's orchestrator.
func (s *Session) Overlay() *Overlay { return s.overlay }

// Store returns the session's annotation store.
func (s *Session) Store() *annotation.Store { return s.store }

// SnapshotHTML captures the page's current outer HTML, for dashboards and
// exports that want surrounding context.
func (s *Session) SnapshotHTML() (string, error) {
	return s.agent.SnapshotHTML()
}

// OuterHTML returns the outer HTML of the first element matching sel, used
// to attach a context snippet to annotations.
func (s *Session) OuterHTML(sel string) (string, error) {
	return s.agent.OuterHTML(sel)
}

// Close stops the overlay and releases the browser.
func (s *Session) Close() error {
	s.overlay.Stop()
	return s.manager.Close()
}
