package highlight

import (
	"testing"
	"time"
)

// manualScheduler collects scheduled tasks; tests fire them explicitly.
type manualScheduler struct {
	tasks []*task
}

type task struct {
	d         time.Duration
	fn        func()
	cancelled bool
}

func (s *manualScheduler) Schedule(d time.Duration, fn func()) func() {
	tk := &task{d: d, fn: fn}
	s.tasks = append(s.tasks, tk)
	return func() { tk.cancelled = true }
}

// fireAll runs every pending task, cancelled or not, the way a timer that
// already fired can still deliver its callback late.
func (s *manualScheduler) fireAll(includeCancelled bool) {
	tasks := s.tasks
	s.tasks = nil
	for _, tk := range tasks {
		if tk.cancelled && !includeCancelled {
			continue
		}
		tk.fn()
	}
}

func (s *manualScheduler) pending() int {
	n := 0
	for _, tk := range s.tasks {
		if !tk.cancelled {
			n++
		}
	}
	return n
}

// paintLog records live decorations per appearance.
type paintLog struct {
	live     map[Appearance]int
	disposed int
}

func newPaintLog() *paintLog { return &paintLog{live: make(map[Appearance]int)} }

type logPainter struct{ log *paintLog }

func (p logPainter) Paint(a Appearance) Decoration {
	p.log.live[a]++
	return &logDecoration{log: p.log, a: a}
}

type logDecoration struct {
	log      *paintLog
	a        Appearance
	disposed bool
}

func (d *logDecoration) Dispose() {
	if d.disposed {
		return
	}
	d.disposed = true
	d.log.live[d.a]--
	d.log.disposed++
}

func TestRequestPaintsPrimaryAndArmsTimer(t *testing.T) {
	sched := &manualScheduler{}
	log := newPaintLog()
	h := New(sched, time.Second, 0)

	hl := h.Request("a.js", logPainter{log})

	if hl.State() != Active {
		t.Fatalf("state = %v, want active", hl.State())
	}
	if log.live[Primary] != 1 {
		t.Errorf("live primary = %d, want 1", log.live[Primary])
	}
	if len(sched.tasks) != 1 || sched.tasks[0].d != time.Second {
		t.Errorf("expected one task after 1s, got %+v", sched.tasks)
	}
	if h.Current() != hl {
		t.Error("Current should return the new highlight")
	}
}

func TestTimerMovesActiveToStale(t *testing.T) {
	sched := &manualScheduler{}
	log := newPaintLog()
	h := New(sched, time.Second, 0)
	hl := h.Request("a.js", logPainter{log})

	sched.fireAll(false)

	if hl.State() != Stale {
		t.Fatalf("state = %v, want stale", hl.State())
	}
	if log.live[Primary] != 0 || log.live[Secondary] != 1 {
		t.Errorf("live = %v, want only secondary", log.live)
	}
	if sched.pending() != 0 {
		t.Errorf("stale highlight without a stale dwell must not arm a timer")
	}
}

func TestStaleDwellRemoves(t *testing.T) {
	sched := &manualScheduler{}
	log := newPaintLog()
	h := New(sched, time.Second, 3*time.Second)
	hl := h.Request("a.js", logPainter{log})

	sched.fireAll(false)
	if sched.pending() != 1 || sched.tasks[0].d != 3*time.Second {
		t.Fatalf("expected the stale timer, got %+v", sched.tasks)
	}
	sched.fireAll(false)

	if hl.State() != Removed {
		t.Fatalf("state = %v, want removed", hl.State())
	}
	if log.live[Primary] != 0 || log.live[Secondary] != 0 {
		t.Errorf("live = %v, want none", log.live)
	}
	if h.Current() != nil {
		t.Error("Current should be nil after removal")
	}
}

// Feature: linelog, Property 4: removing a highlight twice is the same as once
func TestRemoveIsIdempotent(t *testing.T) {
	sched := &manualScheduler{}
	log := newPaintLog()
	h := New(sched, time.Second, 0)
	hl := h.Request("a.js", logPainter{log})

	hl.Remove()
	disposed := log.disposed
	hl.Remove()

	if hl.State() != Removed {
		t.Fatalf("state = %v, want removed", hl.State())
	}
	if log.disposed != disposed {
		t.Errorf("second Remove disposed again: %d -> %d", disposed, log.disposed)
	}
	if log.live[Primary] != 0 {
		t.Errorf("live primary = %d, want 0", log.live[Primary])
	}
}

func TestLateTimerAfterRemoveIsIgnored(t *testing.T) {
	sched := &manualScheduler{}
	log := newPaintLog()
	h := New(sched, time.Second, 0)
	hl := h.Request("a.js", logPainter{log})

	hl.Remove()
	sched.fireAll(true)

	if hl.State() != Removed {
		t.Fatalf("late timer revived the highlight: %v", hl.State())
	}
	if log.live[Secondary] != 0 {
		t.Error("late timer painted a secondary decoration")
	}
}

// Feature: linelog, Property 5: a new request supersedes the live highlight
func TestRequestSupersedes(t *testing.T) {
	sched := &manualScheduler{}
	log := newPaintLog()
	h := New(sched, time.Second, 0)

	first := h.Request("a.js", logPainter{log})
	second := h.Request("a.js", logPainter{log})

	if first.State() != Removed {
		t.Errorf("first state = %v, want removed", first.State())
	}
	if second.State() != Active {
		t.Errorf("second state = %v, want active", second.State())
	}
	if log.live[Primary] != 1 {
		t.Errorf("live primary = %d, want exactly 1", log.live[Primary])
	}
	if sched.pending() != 1 {
		t.Errorf("pending timers = %d, want 1", sched.pending())
	}

	// Supersede a stale highlight as well.
	sched.fireAll(false)
	third := h.Request("b.js", logPainter{log})
	if second.State() != Removed || third.State() != Active {
		t.Errorf("states = %v/%v, want removed/active", second.State(), third.State())
	}
	if log.live[Primary] != 1 || log.live[Secondary] != 0 {
		t.Errorf("live = %v, want one primary", log.live)
	}
}

func TestForgetOnlyRemovesMatchingDocument(t *testing.T) {
	sched := &manualScheduler{}
	log := newPaintLog()
	h := New(sched, time.Second, 0)
	hl := h.Request("a.js", logPainter{log})

	h.Forget("b.js")
	if hl.State() != Active {
		t.Fatalf("forgetting another document removed the highlight")
	}

	h.Forget("a.js")
	if hl.State() != Removed {
		t.Fatalf("state = %v, want removed", hl.State())
	}
	if sched.pending() != 0 {
		t.Error("forget must cancel the pending timer")
	}
}

func TestCloseRemovesLiveHighlight(t *testing.T) {
	sched := &manualScheduler{}
	log := newPaintLog()
	h := New(sched, time.Second, 0)
	hl := h.Request("a.js", logPainter{log})

	h.Close()
	h.Close()

	if hl.State() != Removed || h.Current() != nil {
		t.Fatalf("Close left a live highlight")
	}
}
