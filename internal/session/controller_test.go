package session

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fakeyudi/linelog/internal/document"
	"github.com/fakeyudi/linelog/internal/highlight"
	"github.com/fakeyudi/linelog/internal/render"
)

const docID document.ID = "/src/app.js"

const source = "let a = 1;\nconsole.log(a)\nlet b = 2;\nconsole.log(b)\n"

func newController(t *testing.T, opts Options) (*Controller, *render.Recorder, *clockwork.FakeClock) {
	t.Helper()
	clock := clockwork.NewFakeClock()
	opts.Clock = clock
	rec := render.NewRecorder(render.View{ID: "main", Doc: docID})
	c := New(document.NewWorkspace(), rec, opts)
	t.Cleanup(c.Close)
	return c, rec, clock
}

func TestOutputAnnotatesAndRenders(t *testing.T) {
	c, rec, _ := newController(t, Options{})
	c.Handle(DocumentOpened{Doc: docID, Text: source})

	c.Handle(Output{Doc: docID, Line: 1, Text: "1\n"})
	c.Handle(Output{Doc: docID, Line: 1, Text: "2\n"})

	snaps := c.Annotations(docID)
	require.Len(t, snaps, 1)
	assert.Equal(t, []string{"2\n", "1\n"}, snaps[0].Entries)
	assert.Equal(t, 25, snaps[0].Offset, "anchored to the end of line 1")

	decos := rec.Annotations("main")
	require.Len(t, decos, 1)
	assert.Equal(t, "2", decos[0].After)
	assert.Equal(t, []string{"1", "2"}, decos[0].Hover)
}

func TestOutputBeforeOpenIsAnchoredOnOpen(t *testing.T) {
	c, rec, _ := newController(t, Options{})

	c.Handle(Output{Doc: docID, Line: 3, Text: "early"})
	assert.False(t, c.Annotations(docID)[0].Anchored())
	assert.Empty(t, rec.Annotations("main"), "document is not open yet")

	c.Handle(DocumentOpened{Doc: docID, Text: source})
	snaps := c.Annotations(docID)
	require.Len(t, snaps, 1)
	assert.True(t, snaps[0].Anchored())
	assert.Len(t, rec.Annotations("main"), 1)
}

func TestActivatingViewResyncsAnchors(t *testing.T) {
	c, rec, _ := newController(t, Options{})
	c.Handle(DocumentOpened{Doc: docID, Text: "let a = 1;\n"})
	c.Handle(Output{Doc: docID, Line: 3, Text: "past the end"})
	require.False(t, c.Annotations(docID)[0].Anchored())

	c.ws.Put(document.New(docID, source))
	c.Handle(ActiveViewChanged{Doc: docID})

	snaps := c.Annotations(docID)
	require.Len(t, snaps, 1)
	assert.True(t, snaps[0].Anchored())
	assert.Equal(t, len(source)-1, snaps[0].Offset, "anchored to the end of line 3")
	assert.Len(t, rec.Annotations("main"), 1)
}

func TestEditShiftsAndInvalidates(t *testing.T) {
	c, rec, _ := newController(t, Options{})
	c.Handle(DocumentOpened{Doc: docID, Text: source})
	c.Handle(Output{Doc: docID, Line: 1, Text: "a"})
	c.Handle(Output{Doc: docID, Line: 3, Text: "b"})

	// Insert a line at the top: both annotations move down.
	c.Handle(DocumentChanged{Doc: docID, Changes: []document.Change{{Start: 0, Text: "// header\n"}}})
	snaps := c.Annotations(docID)
	require.Len(t, snaps, 2)
	assert.Equal(t, 2, snaps[0].Line)
	assert.Equal(t, 4, snaps[1].Line)

	// Rewrite the end of the "a" line: its annotation goes.
	doc, _ := c.ws.Get(docID)
	r, _ := doc.LineRange(2)
	c.Handle(DocumentChanged{Doc: docID, Changes: []document.Change{{Start: r.End - 1, Length: 2, Text: ");\n"}}})

	snaps = c.Annotations(docID)
	require.Len(t, snaps, 1)
	assert.Equal(t, "b", snaps[0].Latest())
	assert.Len(t, rec.Annotations("main"), 1)
}

func TestMalformedEditDropsDocumentAnnotations(t *testing.T) {
	c, _, _ := newController(t, Options{})
	c.Handle(DocumentOpened{Doc: docID, Text: source})
	c.Handle(DocumentOpened{Doc: "/src/other.js", Text: "x\n"})
	c.Handle(Output{Doc: docID, Line: 1, Text: "a"})
	c.Handle(Output{Doc: "/src/other.js", Line: 0, Text: "keep"})

	c.Handle(DocumentChanged{Doc: docID, Changes: []document.Change{{Start: 10_000, Length: 1}}})

	assert.Empty(t, c.Annotations(docID))
	assert.Len(t, c.Annotations("/src/other.js"), 1)
	doc, _ := c.ws.Get(docID)
	assert.Equal(t, source, doc.Text(), "workspace keeps the last good text")
}

func TestChangeForUnknownDocumentIsIgnored(t *testing.T) {
	c, _, _ := newController(t, Options{})
	c.Handle(Output{Doc: docID, Line: 0, Text: "x"})

	c.Handle(DocumentChanged{Doc: docID, Changes: []document.Change{{Start: 0, Text: "y"}}})

	assert.Len(t, c.Annotations(docID), 1)
}

func TestSaveClearsOnlyWhenConfigured(t *testing.T) {
	keep, _, _ := newController(t, Options{ClearOnSave: false})
	keep.Handle(Output{Doc: docID, Line: 0, Text: "x"})
	keep.Handle(DocumentSaved{Doc: docID})
	assert.Len(t, keep.Annotations(docID), 1)

	drop, _, _ := newController(t, Options{ClearOnSave: true})
	drop.Handle(Output{Doc: docID, Line: 0, Text: "x"})
	drop.Handle(DocumentSaved{Doc: docID})
	assert.Empty(t, drop.Annotations(docID))
}

func TestCloseDocumentDropsEverything(t *testing.T) {
	c, rec, _ := newController(t, Options{})
	c.Handle(DocumentOpened{Doc: docID, Text: source})
	c.Handle(Output{Doc: docID, Line: 1, Text: "x"})
	c.Handle(Highlight{Doc: docID, Line: 1})
	require.Len(t, rec.Paints(), 1)

	c.Handle(DocumentClosed{Doc: docID})

	assert.Empty(t, c.Annotations(docID))
	assert.Empty(t, rec.Paints())
	_, open := c.ws.Get(docID)
	assert.False(t, open)
	_, _, live := c.HighlightState()
	assert.False(t, live)
}

func TestClearEvent(t *testing.T) {
	c, _, _ := newController(t, Options{})
	c.Handle(Output{Doc: "a", Line: 0, Text: "1"})
	c.Handle(Output{Doc: "b", Line: 0, Text: "2"})

	c.Handle(Clear{Doc: "a"})
	assert.Empty(t, c.Annotations("a"))
	assert.Len(t, c.Annotations("b"), 1)

	c.Handle(Clear{})
	assert.Empty(t, c.Annotations("b"))
}

func TestSessionStartResetsState(t *testing.T) {
	c, rec, clock := newController(t, Options{})
	c.Handle(DocumentOpened{Doc: docID, Text: source})
	c.Handle(Output{Doc: docID, Line: 0, Text: "old"})
	c.Handle(Highlight{Doc: docID, Line: 0})

	c.Handle(SessionStarted{})

	assert.Empty(t, c.Annotations(docID))
	assert.Empty(t, rec.Paints())
	assert.NotEmpty(t, c.SessionID())
	assert.Equal(t, clock.Now(), c.Report().Session.StartTime)

	c.Handle(SessionStarted{ID: "fixed"})
	assert.Equal(t, "fixed", c.SessionID())
}

func TestHighlightSupersedes(t *testing.T) {
	c, rec, _ := newController(t, Options{})
	c.Handle(DocumentOpened{Doc: docID, Text: source})

	c.Handle(Highlight{Doc: docID, Line: 0})
	c.Handle(Highlight{Doc: docID, Line: 2})

	paints := rec.Paints()
	require.Len(t, paints, 1)
	assert.Equal(t, document.Range{Start: 26, End: 36}, paints[0].Range)
	assert.Equal(t, highlight.Primary, paints[0].Appearance)
}

func TestReport(t *testing.T) {
	c, _, clock := newController(t, Options{})
	c.Handle(SessionStarted{ID: "s1"})
	c.Handle(DocumentOpened{Doc: docID, Text: source})
	c.Handle(Output{Doc: docID, Line: 3, Text: "2"})
	c.Handle(Output{Doc: docID, Line: 1, Text: "1"})
	clock.Advance(90 * time.Second)

	r := c.Report()

	assert.Equal(t, "s1", r.Session.ID)
	assert.Equal(t, 2, r.Session.Outputs)
	assert.Equal(t, "1m30s", r.Session.Duration)
	require.Len(t, r.Documents, 1)
	assert.Equal(t, string(docID), r.Documents[0].Path)
	require.Len(t, r.Documents[0].Lines, 2)
	assert.Equal(t, 2, r.Documents[0].Lines[0].Line)
	assert.Equal(t, "console.log(a)", r.Documents[0].Lines[0].Source)
	assert.Equal(t, 4, r.Documents[0].Lines[1].Line)
}

func TestCloseClearsSurfaceAndIsIdempotent(t *testing.T) {
	c, rec, _ := newController(t, Options{})
	c.Handle(DocumentOpened{Doc: docID, Text: source})
	c.Handle(Output{Doc: docID, Line: 0, Text: "x"})
	c.Handle(Highlight{Doc: docID, Line: 0})

	c.Close()
	c.Close()

	assert.Empty(t, rec.Annotations("main"))
	assert.Empty(t, rec.Paints())

	c.Handle(Output{Doc: docID, Line: 0, Text: "after close"})
	assert.Empty(t, c.Annotations(docID))

	err := c.Run(context.Background(), make(chan Event))
	assert.ErrorIs(t, err, ErrClosed)
}

func TestRunFadesHighlightOnTimer(t *testing.T) {
	c, rec, clock := newController(t, Options{ActiveFor: time.Second, StaleFor: 2 * time.Second})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	events := make(chan Event)
	errc := make(chan error, 1)
	go func() { errc <- c.Run(ctx, events) }()

	events <- DocumentOpened{Doc: docID, Text: source}
	events <- Highlight{Doc: docID, Line: 1}

	require.Eventually(t, func() bool {
		p := rec.Paints()
		return len(p) == 1 && p[0].Appearance == highlight.Primary
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, clock.BlockUntilContext(ctx, 1))
	clock.Advance(time.Second)
	require.Eventually(t, func() bool {
		p := rec.Paints()
		return len(p) == 1 && p[0].Appearance == highlight.Secondary
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, clock.BlockUntilContext(ctx, 1))
	clock.Advance(2 * time.Second)
	require.Eventually(t, func() bool {
		return len(rec.Paints()) == 0
	}, time.Second, 5*time.Millisecond)

	close(events)
	require.NoError(t, <-errc)
}

func TestRunStopsOnContextCancel(t *testing.T) {
	c, _, _ := newController(t, Options{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := c.Run(ctx, make(chan Event))

	assert.True(t, errors.Is(err, context.Canceled))
}

// Feature: linelog, scenario: an edit before the anchor shifts it, an edit
// across it removes the annotation
func TestEditScenario(t *testing.T) {
	var sb strings.Builder
	for i := 0; i < 5; i++ {
		sb.WriteString(strings.Repeat("x", 19) + "\n")
	}
	sb.WriteString("fifteen chars..\n")
	sb.WriteString("tail one\ntail two\n")
	c, rec, _ := newController(t, Options{})
	c.Handle(DocumentOpened{Doc: docID, Text: sb.String()})
	c.Handle(Output{Doc: docID, Line: 5, Text: "out"})
	require.Equal(t, 115, c.Annotations(docID)[0].Offset)

	c.Handle(DocumentChanged{Doc: docID, Changes: []document.Change{{Start: 0, Length: 10, Text: strings.Repeat("y", 15)}}})
	require.Equal(t, 120, c.Annotations(docID)[0].Offset)
	require.Equal(t, 5, c.Annotations(docID)[0].Line)

	c.Handle(DocumentChanged{Doc: docID, Changes: []document.Change{{Start: 117, Length: 6}}})
	assert.Empty(t, c.Annotations(docID))
	assert.Empty(t, rec.Annotations("main"))
}
