// Package session runs the linelog event loop. Hosts post events; the
// controller applies them to the document workspace, the annotation store
// and the highlighter on a single goroutine.
package session

import (
	"time"

	"github.com/fakeyudi/linelog/internal/document"
)

// Event is anything the controller can handle.
type Event interface {
	event()
}

// SessionStarted marks the start of a debug session. Every annotation and
// highlight from a previous session is dropped.
type SessionStarted struct {
	ID string    // generated when empty
	At time.Time // controller clock when zero
}

// DocumentOpened makes a document known with its full text.
type DocumentOpened struct {
	Doc  document.ID
	Text string
}

// DocumentChanged carries one edit batch, in the order the host applied it.
type DocumentChanged struct {
	Doc     document.ID
	Changes []document.Change
}

// DocumentClosed drops a document and everything attached to it.
type DocumentClosed struct {
	Doc document.ID
}

// DocumentSaved reports that a document was written to disk.
type DocumentSaved struct {
	Doc document.ID
}

// ActiveViewChanged reports that the set of visible views changed.
type ActiveViewChanged struct {
	Doc document.ID // document of the focused view, if any
}

// Output appends text to the history of a line.
type Output struct {
	Doc  document.ID
	Line int // zero-based
	Text string
}

// Highlight marks a line as just executed.
type Highlight struct {
	Doc  document.ID
	Line int // zero-based
}

// Clear drops the annotations of Doc, or of every document when Doc is
// empty.
type Clear struct {
	Doc document.ID
}

func (SessionStarted) event()    {}
func (DocumentOpened) event()    {}
func (DocumentChanged) event()   {}
func (DocumentClosed) event()    {}
func (DocumentSaved) event()     {}
func (ActiveViewChanged) event() {}
func (Output) event()            {}
func (Highlight) event()         {}
func (Clear) event()             {}
