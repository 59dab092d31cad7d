package tui

import (
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/fakeyudi/linelog/internal/document"
	"github.com/fakeyudi/linelog/internal/highlight"
	"github.com/fakeyudi/linelog/internal/render"
)

// annotationsMsg replaces the annotations shown for a view.
type annotationsMsg struct {
	view  render.View
	decos []render.Decoration
}

// paintMsg adds a highlight.
type paintMsg struct {
	id    int
	view  render.View
	rng   document.Range
	style highlight.Appearance
}

// unpaintMsg removes the highlight with id.
type unpaintMsg struct{ id int }

// Surface is the render.Surface of the terminal UI. It is called from the
// session controller goroutine and forwards every call to the Bubble Tea
// program as a message. One view is visible at a time: the focused tab.
type Surface struct {
	mu      sync.Mutex
	send    func(tea.Msg)
	focused render.View
	hasView bool
	nextID  int
}

// NewSurface returns a surface that drops messages until Attach is called.
func NewSurface() *Surface {
	return &Surface{}
}

// Attach sets the function messages are delivered with, typically
// (*tea.Program).Send.
func (s *Surface) Attach(send func(tea.Msg)) {
	s.mu.Lock()
	s.send = send
	s.mu.Unlock()
}

// Focus makes doc the visible view.
func (s *Surface) Focus(doc document.ID) {
	s.mu.Lock()
	s.focused = render.View{ID: string(doc), Doc: doc}
	s.hasView = doc != ""
	s.mu.Unlock()
}

func (s *Surface) Views() []render.View {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.hasView {
		return nil
	}
	return []render.View{s.focused}
}

func (s *Surface) SetAnnotations(v render.View, decos []render.Decoration) {
	s.deliver(annotationsMsg{view: v, decos: decos})
}

func (s *Surface) Paint(v render.View, r document.Range, a highlight.Appearance) highlight.Decoration {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.mu.Unlock()
	s.deliver(paintMsg{id: id, view: v, rng: r, style: a})
	return &paint{surface: s, id: id}
}

func (s *Surface) deliver(msg tea.Msg) {
	s.mu.Lock()
	send := s.send
	s.mu.Unlock()
	if send != nil {
		send(msg)
	}
}

type paint struct {
	surface  *Surface
	id       int
	disposed bool
}

func (p *paint) Dispose() {
	if p.disposed {
		return
	}
	p.disposed = true
	p.surface.deliver(unpaintMsg{id: p.id})
}
