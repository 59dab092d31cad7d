package bundle

import (
	"time"
)

// Report is the exported snapshot of a session's annotations. It is written
// once and never read back.
type Report struct {
	Session   SessionMeta `json:"session"`
	Documents []Document  `json:"documents"`
}

// SessionMeta holds summary metadata about the debug session.
type SessionMeta struct {
	ID          string    `json:"id,omitempty"`
	StartTime   time.Time `json:"start_time,omitempty"`
	GeneratedAt time.Time `json:"generated_at"`
	Duration    string    `json:"duration,omitempty"` // human-readable, e.g. "2m5s"
	Outputs     int       `json:"outputs"`            // output events logged this session
}

// Document is one annotated file.
type Document struct {
	Path  string `json:"path"`
	Lines []Line `json:"lines"`
}

// Line is one annotated line of a document.
type Line struct {
	Line    int      `json:"line"` // 1-based
	Source  string   `json:"source"`
	Entries []string `json:"entries"` // most recent first
}

// Count returns the number of annotated lines across all documents.
func (r *Report) Count() int {
	n := 0
	for _, d := range r.Documents {
		n += len(d.Lines)
	}
	return n
}
