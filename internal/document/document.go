// Package document is linelog's in-process text document model: immutable
// document snapshots with a line index, the changes that turn one snapshot
// into the next, and the workspace of open documents.
package document

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/fakeyudi/linelog/internal/anchor"
)

// ErrOutOfRange is returned when a change does not fit the document it is
// applied to.
var ErrOutOfRange = errors.New("change out of document range")

// ID identifies a document. It is stable across edits and distinct per
// document.
type ID string

// IDFromPath returns the ID of the file at path.
func IDFromPath(path string) ID {
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	return ID(filepath.Clean(path))
}

// Path returns the file path the ID was derived from.
func (id ID) Path() string { return string(id) }

// Range is a half-open byte range [Start, End).
type Range struct {
	Start int
	End   int
}

// Change replaces Length bytes at Start with Text.
type Change struct {
	Start  int
	Length int
	Text   string
}

// Delta returns the edit delta the change produces.
func (c Change) Delta() anchor.EditDelta {
	return anchor.EditDelta{Start: c.Start, OldLength: c.Length, NewLength: len(c.Text)}
}

// Deltas returns the edit deltas of changes, in order.
func Deltas(changes []Change) []anchor.EditDelta {
	deltas := make([]anchor.EditDelta, len(changes))
	for i, c := range changes {
		deltas[i] = c.Delta()
	}
	return deltas
}

// Document is an immutable snapshot of a document's text.
type Document struct {
	id     ID
	text   string
	starts []int // byte offset where each line begins
}

// New returns a snapshot of text for the document id.
func New(id ID, text string) *Document {
	return &Document{id: id, text: text, starts: lineStarts(text)}
}

func lineStarts(text string) []int {
	starts := []int{0}
	for i := 0; i < len(text); i++ {
		if text[i] == '\n' {
			starts = append(starts, i+1)
		}
	}
	return starts
}

// ID returns the document's identity.
func (d *Document) ID() ID { return d.id }

// Text returns the full document text.
func (d *Document) Text() string { return d.text }

// Len returns the document length in bytes.
func (d *Document) Len() int { return len(d.text) }

// LineCount returns the number of lines. A trailing newline starts a final
// empty line, as editors count it.
func (d *Document) LineCount() int { return len(d.starts) }

// LineRange returns the range of line's content, excluding its line break.
func (d *Document) LineRange(line int) (Range, bool) {
	if line < 0 || line >= len(d.starts) {
		return Range{}, false
	}
	start := d.starts[line]
	end := len(d.text)
	if line+1 < len(d.starts) {
		end = d.starts[line+1] - 1
		if end > start && d.text[end-1] == '\r' {
			end--
		}
	}
	return Range{Start: start, End: end}, true
}

// Line returns the content of line without its line break.
func (d *Document) Line(line int) string {
	r, ok := d.LineRange(line)
	if !ok {
		return ""
	}
	return d.text[r.Start:r.End]
}

// LineAt returns the line containing offset. The document end belongs to
// the last line.
func (d *Document) LineAt(offset int) (int, bool) {
	if offset < 0 || offset > len(d.text) {
		return 0, false
	}
	// first line starting after offset, minus one
	return sort.Search(len(d.starts), func(i int) bool { return d.starts[i] > offset }) - 1, true
}

// Apply applies changes in order, each to the result of the previous one,
// and returns the new snapshot.
func (d *Document) Apply(changes ...Change) (*Document, error) {
	text := d.text
	for i, c := range changes {
		if c.Start < 0 || c.Length < 0 || c.Start+c.Length > len(text) {
			return nil, fmt.Errorf("change %d [%d,+%d) on %d bytes: %w", i, c.Start, c.Length, len(text), ErrOutOfRange)
		}
		var sb strings.Builder
		sb.Grow(len(text) - c.Length + len(c.Text))
		sb.WriteString(text[:c.Start])
		sb.WriteString(c.Text)
		sb.WriteString(text[c.Start+c.Length:])
		text = sb.String()
	}
	return New(d.id, text), nil
}
