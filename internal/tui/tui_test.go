package tui

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fakeyudi/linelog/internal/document"
	"github.com/fakeyudi/linelog/internal/highlight"
	"github.com/fakeyudi/linelog/internal/render"
	"github.com/fakeyudi/linelog/internal/session"
)

const (
	appJS  document.ID = "/src/app.js"
	utilJS document.ID = "/src/util.js"
)

type harness struct {
	model  Model
	sent   []tea.Msg
	posted []session.Event
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	ws := document.NewWorkspace()
	ws.Put(document.New(appJS, "let a = 1;\nconsole.log(a)\nlet b = 2;\n"))
	ws.Put(document.New(utilJS, "export {}\n"))
	h := &harness{}
	s := NewSurface()
	s.Attach(func(msg tea.Msg) { h.sent = append(h.sent, msg) })
	h.model = New(ws, []document.ID{appJS, utilJS}, s, func(ev session.Event) { h.posted = append(h.posted, ev) }, Theme{})
	h.update(tea.WindowSizeMsg{Width: 100, Height: 30})
	return h
}

func (h *harness) update(msg tea.Msg) {
	m, cmd := h.model.Update(msg)
	h.model = m.(Model)
	if cmd != nil {
		cmd()
	}
}

func (h *harness) key(s string) {
	switch s {
	case "tab":
		h.update(tea.KeyMsg{Type: tea.KeyTab})
	default:
		h.update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)})
	}
}

func TestSurfaceShowsOnlyFocusedView(t *testing.T) {
	h := newHarness(t)

	assert.Equal(t, []render.View{{ID: string(appJS), Doc: appJS}}, h.model.surface.Views())

	h.key("tab")
	assert.Equal(t, []render.View{{ID: string(utilJS), Doc: utilJS}}, h.model.surface.Views())
	assert.Equal(t, []session.Event{session.ActiveViewChanged{Doc: utilJS}}, h.posted)
}

func TestSurfacePaintDisposesOnce(t *testing.T) {
	s := NewSurface()
	var sent []tea.Msg
	s.Attach(func(msg tea.Msg) { sent = append(sent, msg) })
	v := render.View{ID: "v", Doc: appJS}

	d := s.Paint(v, document.Range{Start: 0, End: 3}, highlight.Primary)
	d.Dispose()
	d.Dispose()

	require.Len(t, sent, 2)
	p, ok := sent[0].(paintMsg)
	require.True(t, ok)
	assert.Equal(t, unpaintMsg{id: p.id}, sent[1])
}

func TestSurfaceDropsMessagesWhenDetached(t *testing.T) {
	s := NewSurface()
	s.SetAnnotations(render.View{ID: "v"}, nil)
	s.Paint(render.View{ID: "v"}, document.Range{}, highlight.Primary).Dispose()
}

func TestViewShowsAnnotationsAfterLine(t *testing.T) {
	h := newHarness(t)

	h.update(annotationsMsg{
		view:  render.View{ID: string(appJS), Doc: appJS},
		decos: []render.Decoration{{Line: 1, After: "1", Hover: []string{"0", "1"}}},
	})

	out := h.model.View()
	var line string
	for _, l := range strings.Split(out, "\n") {
		if strings.Contains(l, "console.log(a)") {
			line = l
		}
	}
	require.NotEmpty(t, line)
	assert.Contains(t, line, "▸ 1")
	assert.Contains(t, out, "/src/app.js")
}

func TestCursorShowsLineHistory(t *testing.T) {
	h := newHarness(t)
	h.update(annotationsMsg{
		view:  render.View{ID: string(appJS), Doc: appJS},
		decos: []render.Decoration{{Line: 1, After: "third", Hover: []string{"first", "second", "third"}}},
	})

	assert.Contains(t, h.model.View(), "(no output on this line)")

	h.key("j")
	out := h.model.View()
	assert.Contains(t, out, "Line 2 history")
	assert.Contains(t, out, "first")
	assert.Contains(t, out, "third")
	assert.Less(t, strings.Index(out, "•  first"), strings.Index(out, "•  third"))
}

func TestCursorStaysInsideDocument(t *testing.T) {
	h := newHarness(t)

	for i := 0; i < 10; i++ {
		h.key("j")
	}
	assert.Equal(t, 3, h.model.cursor, "last line is the empty one after the final newline")

	h.key("k")
	h.key("g")
	assert.Equal(t, 0, h.model.cursor)
}

func TestClearKeyPostsClear(t *testing.T) {
	h := newHarness(t)

	h.key("c")

	assert.Equal(t, []session.Event{session.Clear{Doc: appJS}}, h.posted)
}

func TestPaintsAreTrackedAndRemoved(t *testing.T) {
	h := newHarness(t)
	view := render.View{ID: string(appJS), Doc: appJS}

	h.update(paintMsg{id: 1, view: view, rng: document.Range{Start: 11, End: 25}, style: highlight.Secondary})
	h.update(paintMsg{id: 2, view: view, rng: document.Range{Start: 11, End: 25}, style: highlight.Primary})
	doc, _ := h.model.ws.Get(appJS)

	painted := h.model.paintedLines(doc, string(appJS))
	assert.Equal(t, map[int]highlight.Appearance{1: highlight.Primary}, painted)

	h.update(unpaintMsg{id: 2})
	h.update(unpaintMsg{id: 1})
	assert.Empty(t, h.model.paintedLines(doc, string(appJS)))
}

func TestClosedDocumentRendersPlaceholder(t *testing.T) {
	h := newHarness(t)
	h.model.ws.Close(appJS)
	h.update(annotationsMsg{view: render.View{ID: string(appJS), Doc: appJS}})

	assert.Contains(t, h.model.View(), "(document closed)")
}

func TestQuit(t *testing.T) {
	h := newHarness(t)
	_, cmd := h.model.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}
