package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/fakeyudi/linelog/internal/annotation"
	"github.com/fakeyudi/linelog/internal/bundle"
	"github.com/fakeyudi/linelog/internal/document"
	"github.com/fakeyudi/linelog/internal/highlight"
	"github.com/fakeyudi/linelog/internal/render"
)

// Default highlight dwell times.
const (
	DefaultActiveFor = time.Second
	DefaultStaleFor  = 0 // stale until superseded
)

// ErrClosed is returned by Run on a closed controller.
var ErrClosed = errors.New("session controller closed")

// Options configures a Controller. The zero value is usable.
type Options struct {
	// ClearOnSave drops a document's annotations when it is saved.
	ClearOnSave bool
	// ActiveFor is the primary highlight dwell time; zero means
	// DefaultActiveFor.
	ActiveFor time.Duration
	// StaleFor is the secondary highlight dwell time; zero keeps a stale
	// highlight until the next one.
	StaleFor time.Duration
	Clock    clockwork.Clock
	Logger   *slog.Logger
}

// Controller owns the workspace contents, the annotation store and the
// highlighter. All of its state is touched only from Handle, which Run
// calls on a single goroutine.
type Controller struct {
	ws     *document.Workspace
	store  *annotation.Store
	hl     *highlight.Highlighter
	bridge *render.Bridge
	clock  clockwork.Clock
	log    *slog.Logger
	opts   Options

	tasks chan func()
	done  chan struct{}
	scope scope

	sessionID string
	started   time.Time
	outputs   int
}

// New returns a controller drawing on surface. ws is shared with readers
// such as the terminal UI; only the controller writes to it.
func New(ws *document.Workspace, surface render.Surface, opts Options) *Controller {
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
	if opts.ActiveFor <= 0 {
		opts.ActiveFor = DefaultActiveFor
	}
	if opts.StaleFor < 0 {
		opts.StaleFor = DefaultStaleFor
	}

	c := &Controller{
		ws:     ws,
		store:  annotation.NewStore(),
		bridge: render.NewBridge(surface, ws),
		clock:  opts.Clock,
		log:    opts.Logger,
		opts:   opts,
		tasks:  make(chan func(), 16),
		done:   make(chan struct{}),
	}
	sched := loopScheduler{clock: c.clock, tasks: c.tasks, done: c.done}
	c.hl = highlight.New(sched, opts.ActiveFor, opts.StaleFor)

	c.scope.add(func() { close(c.done) })
	c.scope.add(func() {
		c.store.Clear()
		c.bridge.Sync(c.store)
	})
	c.scope.add(c.hl.Close)
	return c
}

// Run handles events and timer callbacks until ctx is done, events is
// closed or the controller is closed. It returns nil when events is closed.
func (c *Controller) Run(ctx context.Context, events <-chan Event) error {
	for {
		select {
		case <-c.done:
			return ErrClosed
		case <-ctx.Done():
			return ctx.Err()
		case fn := <-c.tasks:
			fn()
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			c.Handle(ev)
		}
	}
}

// Close removes the live highlight, drops every annotation and stops
// pending timers from posting work. It is safe to call more than once but
// must not race with Run handling an event.
func (c *Controller) Close() {
	c.scope.close()
}

// Handle applies one event to completion and resyncs the surface.
func (c *Controller) Handle(ev Event) {
	select {
	case <-c.done:
		return
	default:
	}

	switch ev := ev.(type) {
	case SessionStarted:
		c.startSession(ev)
	case DocumentOpened:
		c.openDocument(ev)
	case DocumentChanged:
		c.changeDocument(ev)
	case DocumentClosed:
		c.store.CloseDocument(ev.Doc)
		c.hl.Forget(ev.Doc)
		c.ws.Close(ev.Doc)
		c.log.Debug("document closed", "doc", ev.Doc)
	case DocumentSaved:
		if c.opts.ClearOnSave {
			c.store.Clear(ev.Doc)
			c.log.Debug("cleared annotations on save", "doc", ev.Doc)
		}
	case ActiveViewChanged:
		if doc, ok := c.ws.Get(ev.Doc); ok {
			c.store.ResyncAll(ev.Doc, doc)
		}
		c.log.Debug("views changed", "focused", ev.Doc)
	case Output:
		c.output(ev)
	case Highlight:
		if ev.Line < 0 {
			return
		}
		c.hl.Request(ev.Doc, c.bridge.Painter(ev.Doc, ev.Line))
		c.log.Debug("highlight", "doc", ev.Doc, "line", ev.Line)
	case Clear:
		if ev.Doc == "" {
			c.store.Clear()
		} else {
			c.store.Clear(ev.Doc)
		}
	default:
		c.log.Warn("unknown event", "type", fmt.Sprintf("%T", ev))
		return
	}
	c.bridge.Sync(c.store)
}

func (c *Controller) startSession(ev SessionStarted) {
	c.store.Clear()
	c.hl.Close()
	c.sessionID = ev.ID
	if c.sessionID == "" {
		c.sessionID = uuid.NewString()
	}
	c.started = ev.At
	if c.started.IsZero() {
		c.started = c.clock.Now()
	}
	c.outputs = 0
	c.log.Info("debug session started", "session", c.sessionID)
}

func (c *Controller) openDocument(ev DocumentOpened) {
	doc := document.New(ev.Doc, ev.Text)
	c.ws.Put(doc)
	c.store.ResyncAll(ev.Doc, doc)
	c.log.Debug("document opened", "doc", ev.Doc, "lines", doc.LineCount())
}

func (c *Controller) changeDocument(ev DocumentChanged) {
	doc, ok := c.ws.Get(ev.Doc)
	if !ok {
		c.log.Debug("change for unknown document", "doc", ev.Doc)
		return
	}
	next, err := doc.Apply(ev.Changes...)
	if err != nil {
		// The batch does not describe this document; nothing can be anchored.
		c.store.Clear(ev.Doc)
		c.log.Warn("dropping annotations after malformed edit", "doc", ev.Doc, "err", err)
		return
	}
	c.ws.Put(next)
	if removed := c.store.ApplyEdit(ev.Doc, document.Deltas(ev.Changes), next); removed > 0 {
		c.log.Debug("edit removed annotations", "doc", ev.Doc, "removed", removed)
	}
}

func (c *Controller) output(ev Output) {
	if ev.Line < 0 {
		c.log.Debug("output for negative line ignored", "doc", ev.Doc, "line", ev.Line)
		return
	}
	c.store.Log(ev.Doc, ev.Line, ev.Text)
	c.outputs++
	if doc, ok := c.ws.Get(ev.Doc); ok {
		c.store.ResyncAll(ev.Doc, doc)
	}
}

// Report returns a snapshot of the session's annotations. It must not race
// with Run handling an event.
func (c *Controller) Report() *bundle.Report {
	now := c.clock.Now()
	r := &bundle.Report{
		Session: bundle.SessionMeta{
			ID:          c.sessionID,
			StartTime:   c.started,
			GeneratedAt: now,
			Outputs:     c.outputs,
		},
	}
	if !c.started.IsZero() {
		r.Session.Duration = now.Sub(c.started).Round(time.Second).String()
	}
	for _, id := range c.store.Documents() {
		doc, open := c.ws.Get(id)
		d := bundle.Document{Path: id.Path()}
		for _, s := range c.store.Snapshot(id) {
			l := bundle.Line{Line: s.Line + 1, Entries: s.Entries}
			if open {
				l.Source = doc.Line(s.Line)
			}
			d.Lines = append(d.Lines, l)
		}
		r.Documents = append(r.Documents, d)
	}
	return r
}

// Annotations returns read-only copies of doc's annotations. It must not
// race with Run handling an event.
func (c *Controller) Annotations(doc document.ID) []annotation.Snapshot {
	return c.store.Snapshot(doc)
}

// HighlightState reports the live highlight, if any.
func (c *Controller) HighlightState() (document.ID, highlight.State, bool) {
	cur := c.hl.Current()
	if cur == nil {
		return "", highlight.Removed, false
	}
	return cur.Doc(), cur.State(), true
}

// SessionID returns the current debug session ID, empty before the first
// session starts.
func (c *Controller) SessionID() string { return c.sessionID }
