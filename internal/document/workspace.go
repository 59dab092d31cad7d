package document

import (
	"sort"
	"sync"
)

// Workspace holds the open documents. Documents are immutable snapshots, so
// a snapshot returned by Get stays valid after the workspace moves on.
type Workspace struct {
	mu   sync.RWMutex
	docs map[ID]*Document
}

// NewWorkspace returns an empty workspace.
func NewWorkspace() *Workspace {
	return &Workspace{docs: make(map[ID]*Document)}
}

// Put opens doc, replacing any snapshot with the same ID.
func (w *Workspace) Put(doc *Document) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.docs[doc.ID()] = doc
}

// Get returns the current snapshot of id.
func (w *Workspace) Get(id ID) (*Document, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	doc, ok := w.docs[id]
	return doc, ok
}

// Close forgets id. Closing an unknown document is a no-op.
func (w *Workspace) Close(id ID) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.docs, id)
}

// IDs returns the open document IDs in sorted order.
func (w *Workspace) IDs() []ID {
	w.mu.RLock()
	defer w.mu.RUnlock()
	ids := make([]ID, 0, len(w.docs))
	for id := range w.docs {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
