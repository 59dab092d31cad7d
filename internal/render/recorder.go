package render

import (
	"sort"
	"sync"

	"github.com/fakeyudi/linelog/internal/document"
	"github.com/fakeyudi/linelog/internal/highlight"
)

// Paint is a highlight painted on a Recorder.
type Paint struct {
	View       View
	Range      document.Range
	Appearance highlight.Appearance
}

// Recorder is an in-memory Surface. It keeps the latest annotations of each
// view and the set of live highlight paints.
type Recorder struct {
	mu     sync.Mutex
	views  []View
	annots map[string][]Decoration
	paints map[int]Paint
	next   int
}

// NewRecorder returns a recorder showing views.
func NewRecorder(views ...View) *Recorder {
	return &Recorder{
		views:  views,
		annots: make(map[string][]Decoration),
		paints: make(map[int]Paint),
	}
}

// Show makes v visible. Showing a view twice is a no-op.
func (r *Recorder) Show(v View) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, have := range r.views {
		if have.ID == v.ID {
			return
		}
	}
	r.views = append(r.views, v)
}

// Hide removes the view with the given id.
func (r *Recorder) Hide(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, v := range r.views {
		if v.ID == id {
			r.views = append(r.views[:i], r.views[i+1:]...)
			delete(r.annots, id)
			return
		}
	}
}

func (r *Recorder) Views() []View {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]View(nil), r.views...)
}

func (r *Recorder) SetAnnotations(v View, decorations []Decoration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(decorations) == 0 {
		delete(r.annots, v.ID)
		return
	}
	r.annots[v.ID] = append([]Decoration(nil), decorations...)
}

func (r *Recorder) Paint(v View, rng document.Range, a highlight.Appearance) highlight.Decoration {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := r.next
	r.next++
	r.paints[id] = Paint{View: v, Range: rng, Appearance: a}
	return &recorded{rec: r, id: id}
}

// Annotations returns the decorations last set on the view with id.
func (r *Recorder) Annotations(id string) []Decoration {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Decoration(nil), r.annots[id]...)
}

// Paints returns the live paints in the order they were made.
func (r *Recorder) Paints() []Paint {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]int, 0, len(r.paints))
	for id := range r.paints {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	out := make([]Paint, 0, len(ids))
	for _, id := range ids {
		out = append(out, r.paints[id])
	}
	return out
}

type recorded struct {
	rec *Recorder
	id  int
}

func (d *recorded) Dispose() {
	d.rec.mu.Lock()
	delete(d.rec.paints, d.id)
	d.rec.mu.Unlock()
}
