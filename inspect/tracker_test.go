package inspect

import (
	"testing"

	"github.com/hazyhaar/devlens/dom"
)

type recorder struct {
	hovers   []*Descriptor
	selects  []*Descriptor
	disarms  int
	lastEl   *dom.Element
	clearSeq int
}

func (r *recorder) HoverChanged(el *dom.Element, d *Descriptor) {
	r.hovers = append(r.hovers, d)
	r.lastEl = el
	if el == nil {
		r.clearSeq++
	}
}
func (r *recorder) Selected(el *dom.Element, d *Descriptor) { r.selects = append(r.selects, d) }
func (r *recorder) DisarmRequested()                        { r.disarms++ }

func stackFrom(t *testing.T, src, tag string) []*dom.Element {
	t.Helper()
	root, err := dom.ParseString(src)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	el := findByTag(root, tag)
	if el == nil {
		t.Fatalf("element <%s> not found", tag)
	}
	// elementsFromPoint order: target first, then ancestors to the root.
	stack := []*dom.Element{el}
	for p := el.Parent; p != nil; p = p.Parent {
		stack = append(stack, p)
	}
	return stack
}

func TestTracker_IgnoresEventsWhileDisabled(t *testing.T) {
	rec := &recorder{}
	tr := NewTracker(TrackerConfig{Sink: rec})

	tr.HandlePointerMove(PointerEvent{Stack: stackFrom(t, `<html><body><p>x</p></body></html>`, "p")})
	tr.HandleClick()
	tr.HandleEscape()

	if len(rec.hovers) != 0 || len(rec.selects) != 0 || rec.disarms != 0 {
		t.Errorf("disabled tracker emitted events: %+v", rec)
	}
}

func TestTracker_HoverChangeAndDedup(t *testing.T) {
	rec := &recorder{}
	tr := NewTracker(TrackerConfig{Sink: rec})
	tr.Arm()

	stack := stackFrom(t, `<html><body><p class="x">x</p></body></html>`, "p")
	tr.HandlePointerMove(PointerEvent{X: 1, Y: 1, Stack: stack})
	tr.HandlePointerMove(PointerEvent{X: 2, Y: 2, Stack: stack})

	if len(rec.hovers) != 1 {
		t.Fatalf("hovers: got %d, want 1 (same target deduped)", len(rec.hovers))
	}
	if rec.hovers[0] == nil || rec.hovers[0].Tag != "p" {
		t.Errorf("descriptor: got %+v", rec.hovers[0])
	}
}

func TestTracker_SkipsOverlayRootAndBody(t *testing.T) {
	rec := &recorder{}
	tr := NewTracker(TrackerConfig{Sink: rec})
	tr.Arm()

	root, err := dom.ParseString(`<html><body><div data-devlens-overlay=""><button>panel</button></div><span>page</span></body></html>`)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	btn := findByTag(root, "button")
	span := findByTag(root, "span")
	body := findByTag(root, "body")

	// Overlay button on top, page span beneath, then body/html.
	tr.HandlePointerMove(PointerEvent{Stack: []*dom.Element{btn, btn.Parent, span, body, root}})

	el, d := tr.Hovered()
	if el != span {
		t.Fatalf("hovered: got %v, want the page span", el)
	}
	if d.Tag != "span" {
		t.Errorf("descriptor tag: got %q, want span", d.Tag)
	}
}

func TestTracker_OnlyOverlayUnderCursorClearsTarget(t *testing.T) {
	rec := &recorder{}
	tr := NewTracker(TrackerConfig{Sink: rec})
	tr.Arm()

	tr.HandlePointerMove(PointerEvent{Stack: stackFrom(t, `<html><body><p>x</p></body></html>`, "p")})

	root, _ := dom.ParseString(`<html><body><div data-devlens-overlay=""><button>panel</button></div></body></html>`)
	btn := findByTag(root, "button")
	tr.HandlePointerMove(PointerEvent{Stack: []*dom.Element{btn, btn.Parent, findByTag(root, "body"), root}})

	if el, _ := tr.Hovered(); el != nil {
		t.Errorf("hovered: got %v, want nil over overlay-only stack", el)
	}
	if rec.lastEl != nil {
		t.Error("sink should observe the cleared target")
	}
}

func TestTracker_ClickEmitsSelection(t *testing.T) {
	rec := &recorder{}
	tr := NewTracker(TrackerConfig{Sink: rec})
	tr.Arm()

	tr.HandlePointerMove(PointerEvent{Stack: stackFrom(t, `<html><body><button id="b">x</button></body></html>`, "button")})
	tr.HandleClick()
	tr.HandleClick()

	if len(rec.selects) != 2 {
		t.Fatalf("selects: got %d, want 2", len(rec.selects))
	}
	if rec.selects[0].Selector != "#b" {
		t.Errorf("selection selector: got %q, want #b", rec.selects[0].Selector)
	}
}

func TestTracker_EscapeClearsAndRequestsDisarm(t *testing.T) {
	rec := &recorder{}
	tr := NewTracker(TrackerConfig{Sink: rec})
	tr.Arm()

	tr.HandlePointerMove(PointerEvent{Stack: stackFrom(t, `<html><body><p>x</p></body></html>`, "p")})
	tr.HandleEscape()

	if rec.disarms != 1 {
		t.Errorf("disarms: got %d, want 1", rec.disarms)
	}
	if el, _ := tr.Hovered(); el != nil {
		t.Errorf("hovered after escape: got %v, want nil", el)
	}
	if tr.State() != Armed {
		t.Error("escape alone must not disarm; the owner decides")
	}
}

func TestTracker_DisarmClearsHover(t *testing.T) {
	rec := &recorder{}
	tr := NewTracker(TrackerConfig{Sink: rec})
	tr.Arm()

	tr.HandlePointerMove(PointerEvent{Stack: stackFrom(t, `<html><body><p>x</p></body></html>`, "p")})
	tr.Disarm()

	if tr.State() != Disabled {
		t.Errorf("state: got %v, want disabled", tr.State())
	}
	if el, _ := tr.Hovered(); el != nil {
		t.Errorf("hovered after disarm: got %v, want nil", el)
	}
	if rec.clearSeq != 1 {
		t.Errorf("clear notifications: got %d, want 1", rec.clearSeq)
	}
}
