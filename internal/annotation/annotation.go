// Package annotation keeps per-line output history for open documents and
// keeps each history anchored to its line while the document is edited.
package annotation

import (
	"github.com/fakeyudi/linelog/internal/anchor"
	"github.com/fakeyudi/linelog/internal/document"
)

// Lines is the authoritative line/offset lookup of one document snapshot.
// *document.Document implements it.
type Lines interface {
	LineRange(line int) (document.Range, bool)
	LineAt(offset int) (int, bool)
}

// Annotation is the output history of one document line.
type Annotation struct {
	doc  document.ID
	line int
	// offset is the end of the tracked line, or anchor.Unknown until the
	// annotation is resynced against a document snapshot.
	offset  int
	entries []string // most recent first
}

func newAnnotation(doc document.ID, line int) *Annotation {
	return &Annotation{doc: doc, line: line, offset: anchor.Unknown}
}

func (a *Annotation) prepend(text string) {
	a.entries = append(a.entries, "")
	copy(a.entries[1:], a.entries)
	a.entries[0] = text
}

func (a *Annotation) snapshot() Snapshot {
	entries := make([]string, len(a.entries))
	copy(entries, a.entries)
	return Snapshot{Doc: a.doc, Line: a.line, Offset: a.offset, Entries: entries}
}

// Snapshot is a read-only copy of an annotation.
type Snapshot struct {
	Doc     document.ID
	Line    int
	Offset  int      // anchor.Unknown when not yet resynced
	Entries []string // most recent first
}

// Latest returns the most recent entry, for compact display.
func (s Snapshot) Latest() string {
	if len(s.Entries) == 0 {
		return ""
	}
	return s.Entries[0]
}

// Anchored reports whether the offset is authoritative.
func (s Snapshot) Anchored() bool { return s.Offset != anchor.Unknown }
