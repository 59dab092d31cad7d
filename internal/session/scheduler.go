package session

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// loopScheduler runs highlight timers on the controller goroutine: a timer
// that fires only posts its callback to the task queue.
type loopScheduler struct {
	clock clockwork.Clock
	tasks chan<- func()
	done  <-chan struct{}
}

func (s loopScheduler) Schedule(d time.Duration, fn func()) func() {
	t := s.clock.AfterFunc(d, func() {
		select {
		case s.tasks <- fn:
		case <-s.done:
		}
	})
	return func() { t.Stop() }
}

// scope releases a set of resources together, last acquired first.
type scope struct {
	mu      sync.Mutex
	closers []func()
	closed  bool
}

// add registers fn to run when the scope closes. On a closed scope fn
// runs immediately.
func (s *scope) add(fn func()) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		fn()
		return
	}
	s.closers = append(s.closers, fn)
	s.mu.Unlock()
}

func (s *scope) close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	closers := s.closers
	s.closers = nil
	s.mu.Unlock()

	for i := len(closers) - 1; i >= 0; i-- {
		closers[i]()
	}
}
