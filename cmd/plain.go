package cmd

import (
	"fmt"
	"io"
	"path/filepath"
	"sync"

	"github.com/fakeyudi/linelog/internal/document"
	"github.com/fakeyudi/linelog/internal/highlight"
	"github.com/fakeyudi/linelog/internal/render"
)

// plainSurface prints annotation changes as lines of text, for terminals
// without a UI or output piped elsewhere. Every document is visible.
type plainSurface struct {
	mu    sync.Mutex
	w     io.Writer
	views []render.View
	last  map[string]map[int]string // view ID -> line -> after text
}

func newPlainSurface(w io.Writer, docs []document.ID) *plainSurface {
	s := &plainSurface{w: w, last: make(map[string]map[int]string)}
	for _, id := range docs {
		s.views = append(s.views, render.View{ID: string(id), Doc: id})
	}
	return s
}

func (s *plainSurface) Views() []render.View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]render.View(nil), s.views...)
}

// SetAnnotations prints lines whose after text changed. Lines that merely
// moved are printed again at their new position.
func (s *plainSurface) SetAnnotations(v render.View, decos []render.Decoration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev := s.last[v.ID]
	next := make(map[int]string, len(decos))
	name := filepath.Base(v.Doc.Path())
	for _, d := range decos {
		next[d.Line] = d.After
		if old, ok := prev[d.Line]; ok && old == d.After {
			continue
		}
		fmt.Fprintf(s.w, "%s:%d ▸ %s\n", name, d.Line+1, d.After)
	}
	if len(prev) > 0 && len(next) == 0 {
		fmt.Fprintf(s.w, "%s: cleared\n", name)
	}
	s.last[v.ID] = next
}

// Paint marks the active line only; stale highlights have nothing to show
// in a scrolling log.
func (s *plainSurface) Paint(v render.View, r document.Range, a highlight.Appearance) highlight.Decoration {
	if a == highlight.Primary {
		s.mu.Lock()
		fmt.Fprintf(s.w, "→ %s @%d\n", filepath.Base(v.Doc.Path()), r.Start)
		s.mu.Unlock()
	}
	return noDecoration{}
}

type noDecoration struct{}

func (noDecoration) Dispose() {}
