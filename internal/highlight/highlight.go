// Package highlight implements the decaying execution highlight: a line is
// painted prominently when it runs, dimmed after a dwell time, and removed
// when the next line runs.
package highlight

import (
	"time"

	"github.com/fakeyudi/linelog/internal/document"
)

// State is the lifecycle state of a highlight.
type State int

const (
	Active State = iota
	Stale
	Removed
)

func (s State) String() string {
	switch s {
	case Active:
		return "active"
	case Stale:
		return "stale"
	case Removed:
		return "removed"
	}
	return "unknown"
}

// Appearance selects how a highlight is painted.
type Appearance int

const (
	Primary   Appearance = iota // freshly executed line
	Secondary                   // dimmed, after the active dwell time
)

// Decoration is a painted visual resource. Dispose must be idempotent.
type Decoration interface {
	Dispose()
}

// Painter paints one fixed location.
type Painter interface {
	Paint(a Appearance) Decoration
}

// Scheduler runs fn after d unless the returned cancel func is called first.
type Scheduler interface {
	Schedule(d time.Duration, fn func()) (cancel func())
}

// Highlighter owns at most one live (active or stale) highlight.
type Highlighter struct {
	sched Scheduler
	// activeFor is how long a highlight stays Active before going Stale.
	activeFor time.Duration
	// staleFor is how long a Stale highlight lives; zero keeps it until the
	// next request supersedes it.
	staleFor time.Duration
	current  *Highlight
}

// New returns a Highlighter that times transitions with sched.
func New(sched Scheduler, activeFor, staleFor time.Duration) *Highlighter {
	return &Highlighter{sched: sched, activeFor: activeFor, staleFor: staleFor}
}

// Request removes any live highlight and paints a new Active one for doc.
func (h *Highlighter) Request(doc document.ID, p Painter) *Highlight {
	if h.current != nil {
		h.current.Remove()
	}
	hl := &Highlight{doc: doc, painter: p, sched: h.sched, staleFor: h.staleFor}
	hl.deco = p.Paint(Primary)
	hl.cancel = h.sched.Schedule(h.activeFor, hl.fade)
	h.current = hl
	return hl
}

// Current returns the live highlight, or nil.
func (h *Highlighter) Current() *Highlight {
	if h.current == nil || h.current.state == Removed {
		return nil
	}
	return h.current
}

// Forget removes the live highlight if it belongs to doc.
func (h *Highlighter) Forget(doc document.ID) {
	if h.current != nil && h.current.doc == doc {
		h.current.Remove()
		h.current = nil
	}
}

// Close removes the live highlight.
func (h *Highlighter) Close() {
	if h.current != nil {
		h.current.Remove()
		h.current = nil
	}
}

// Highlight is one painted execution highlight.
type Highlight struct {
	doc      document.ID
	painter  Painter
	sched    Scheduler
	staleFor time.Duration

	state  State
	deco   Decoration
	cancel func()
}

// Doc returns the document the highlight is bound to.
func (hl *Highlight) Doc() document.ID { return hl.doc }

// State returns the current lifecycle state.
func (hl *Highlight) State() State { return hl.state }

// fade moves an Active highlight to Stale. A late timer on a highlight that
// already moved on is ignored.
func (hl *Highlight) fade() {
	if hl.state != Active {
		return
	}
	hl.release()
	hl.deco = hl.painter.Paint(Secondary)
	hl.state = Stale
	hl.cancel = nil
	if hl.staleFor > 0 {
		hl.cancel = hl.sched.Schedule(hl.staleFor, hl.Remove)
	}
}

// Remove cancels pending transitions and releases the decoration. Calling
// it again has no effect.
func (hl *Highlight) Remove() {
	if hl.state == Removed {
		return
	}
	if hl.cancel != nil {
		hl.cancel()
		hl.cancel = nil
	}
	hl.release()
	hl.state = Removed
}

func (hl *Highlight) release() {
	if hl.deco != nil {
		hl.deco.Dispose()
		hl.deco = nil
	}
}
