// Package render projects annotation and highlight state onto an editor
// surface. Projections are computed fresh from store snapshots on every
// sync; the surface never sees the store's own records.
package render

import (
	"strings"

	"github.com/fakeyudi/linelog/internal/annotation"
	"github.com/fakeyudi/linelog/internal/document"
	"github.com/fakeyudi/linelog/internal/highlight"
)

// View is one visible presentation of a document.
type View struct {
	ID  string
	Doc document.ID
}

// Decoration is the display instruction for one annotated line.
type Decoration struct {
	Line  int
	Range document.Range
	After string   // most recent entry, shown after the line
	Hover []string // full history, oldest first
}

// Surface is the editor surface linelog draws on.
type Surface interface {
	// Views returns the currently visible views.
	Views() []View
	// SetAnnotations replaces every annotation decoration of v.
	SetAnnotations(v View, decorations []Decoration)
	// Paint paints a highlight over r in v.
	Paint(v View, r document.Range, a highlight.Appearance) highlight.Decoration
}

// Documents gives access to authoritative document snapshots.
type Documents interface {
	Get(id document.ID) (*document.Document, bool)
}

// Project turns annotation snapshots into decorations. Annotations on lines
// the document does not have are skipped.
func Project(snaps []annotation.Snapshot, lines annotation.Lines) []Decoration {
	out := make([]Decoration, 0, len(snaps))
	for _, s := range snaps {
		r, ok := lines.LineRange(s.Line)
		if !ok {
			continue
		}
		hover := make([]string, 0, len(s.Entries))
		for i := len(s.Entries) - 1; i >= 0; i-- {
			hover = append(hover, compact(s.Entries[i]))
		}
		out = append(out, Decoration{
			Line:  s.Line,
			Range: r,
			After: compact(s.Latest()),
			Hover: hover,
		})
	}
	return out
}

// compact folds an output entry onto a single display line.
func compact(s string) string {
	s = strings.TrimRight(s, " \t\r\n")
	return strings.Join(strings.Fields(strings.ReplaceAll(s, "\r\n", "\n")), " ")
}

// Bridge keeps a surface in step with the annotation store.
type Bridge struct {
	surface Surface
	docs    Documents
}

// NewBridge returns a bridge drawing on surface.
func NewBridge(surface Surface, docs Documents) *Bridge {
	return &Bridge{surface: surface, docs: docs}
}

// ViewsOf returns the visible views of doc.
func (b *Bridge) ViewsOf(doc document.ID) []View {
	var out []View
	for _, v := range b.surface.Views() {
		if v.Doc == doc {
			out = append(out, v)
		}
	}
	return out
}

// Sync redraws the annotations of every visible view. Views of documents
// without annotations are cleared.
func (b *Bridge) Sync(store *annotation.Store) {
	for _, v := range b.surface.Views() {
		doc, ok := b.docs.Get(v.Doc)
		if !ok {
			b.surface.SetAnnotations(v, nil)
			continue
		}
		b.surface.SetAnnotations(v, Project(store.Snapshot(v.Doc), doc))
	}
}

// Painter returns a painter for line of doc covering every view of doc
// that is visible when it paints.
func (b *Bridge) Painter(doc document.ID, line int) highlight.Painter {
	return linePainter{bridge: b, doc: doc, line: line}
}

type linePainter struct {
	bridge *Bridge
	doc    document.ID
	line   int
}

func (p linePainter) Paint(a highlight.Appearance) highlight.Decoration {
	d, ok := p.bridge.docs.Get(p.doc)
	if !ok {
		return &group{}
	}
	r, ok := d.LineRange(p.line)
	if !ok {
		return &group{}
	}
	g := &group{}
	for _, v := range p.bridge.ViewsOf(p.doc) {
		g.parts = append(g.parts, p.bridge.surface.Paint(v, r, a))
	}
	return g
}

// group disposes a set of decorations together.
type group struct {
	parts    []highlight.Decoration
	disposed bool
}

func (g *group) Dispose() {
	if g.disposed {
		return
	}
	g.disposed = true
	for _, p := range g.parts {
		p.Dispose()
	}
}
