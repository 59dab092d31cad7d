package annotation

import (
	"sort"

	"github.com/fakeyudi/linelog/internal/anchor"
	"github.com/fakeyudi/linelog/internal/document"
)

// Store owns the annotations of every open document, at most one per
// (document, line). Missing documents and lines are never an error: every
// operation on them is a no-op.
//
// Store is not safe for concurrent use; the session controller is its only
// writer and reader.
type Store struct {
	docs map[document.ID]map[int]*Annotation
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{docs: make(map[document.ID]map[int]*Annotation)}
}

// Log prepends text to the history of (doc, line), creating the annotation
// if needed. It reports whether a new annotation was created.
func (s *Store) Log(doc document.ID, line int, text string) bool {
	if line < 0 {
		return false
	}
	lines, ok := s.docs[doc]
	if !ok {
		lines = make(map[int]*Annotation)
		s.docs[doc] = lines
	}
	a, ok := lines[line]
	created := !ok
	if created {
		a = newAnnotation(doc, line)
		lines[line] = a
	}
	a.prepend(text)
	return created
}

// ResyncAll recomputes every anchor of doc from its current line using an
// authoritative snapshot. Annotations on lines the snapshot no longer has
// lose their anchor and are removed by the next edit.
func (s *Store) ResyncAll(doc document.ID, lines Lines) {
	for _, a := range s.docs[doc] {
		r, ok := lines.LineRange(a.line)
		if !ok {
			a.offset = anchor.Unknown
			continue
		}
		a.offset = r.End
	}
}

// ApplyEdit reconciles every anchor of doc against a batch of deltas and
// removes the annotations the batch invalidates. lines must describe the
// document after the edit; it re-derives each surviving annotation's line.
// An empty batch is a resync request. ApplyEdit returns the number of
// annotations removed.
func (s *Store) ApplyEdit(doc document.ID, deltas []anchor.EditDelta, lines Lines) int {
	if len(deltas) == 0 {
		s.ResyncAll(doc, lines)
		return 0
	}
	table, ok := s.docs[doc]
	if !ok {
		return 0
	}

	next := make(map[int]*Annotation, len(table))
	removed := 0
	for _, a := range sortedByLine(table) {
		offset := anchor.ReconcileAll(a.offset, deltas)
		if offset == anchor.Unknown {
			removed++
			continue
		}
		line, ok := lines.LineAt(offset)
		if !ok {
			removed++
			continue
		}
		if _, taken := next[line]; taken {
			removed++
			continue
		}
		a.offset = offset
		a.line = line
		next[line] = a
	}
	s.docs[doc] = next
	return removed
}

// Clear drops the annotations of the given documents, or of every document
// when none is given.
func (s *Store) Clear(docs ...document.ID) {
	if len(docs) == 0 {
		s.docs = make(map[document.ID]map[int]*Annotation)
		return
	}
	for _, doc := range docs {
		delete(s.docs, doc)
	}
}

// CloseDocument drops every annotation of doc.
func (s *Store) CloseDocument(doc document.ID) {
	delete(s.docs, doc)
}

// Get returns a copy of the annotation on (doc, line).
func (s *Store) Get(doc document.ID, line int) (Snapshot, bool) {
	a, ok := s.docs[doc][line]
	if !ok {
		return Snapshot{}, false
	}
	return a.snapshot(), true
}

// Snapshot returns copies of doc's annotations ordered by line.
func (s *Store) Snapshot(doc document.ID) []Snapshot {
	table := s.docs[doc]
	out := make([]Snapshot, 0, len(table))
	for _, a := range sortedByLine(table) {
		out = append(out, a.snapshot())
	}
	return out
}

// Len returns the number of annotations on doc.
func (s *Store) Len(doc document.ID) int { return len(s.docs[doc]) }

// Documents returns the documents that have annotations, sorted.
func (s *Store) Documents() []document.ID {
	ids := make([]document.ID, 0, len(s.docs))
	for id, table := range s.docs {
		if len(table) > 0 {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func sortedByLine(table map[int]*Annotation) []*Annotation {
	out := make([]*Annotation, 0, len(table))
	for _, a := range table {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].line < out[j].line })
	return out
}
