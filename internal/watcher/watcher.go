// Package watcher follows files on disk and reports their edits as session
// events. Each write is diffed against the last text the watcher saw, so
// the events carry ordered edit batches rather than whole files.
package watcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/fakeyudi/linelog/internal/document"
	"github.com/fakeyudi/linelog/internal/session"
)

// Watcher tracks a set of files. A file is watched through its parent
// directory so editors that replace files on save keep being followed.
type Watcher struct {
	fs  *fsnotify.Watcher
	log *slog.Logger

	mu    sync.Mutex
	files map[string]string // path -> last seen text
	dirs  map[string]int    // dir -> tracked files in it
}

// New returns a watcher with no files.
func New(logger *slog.Logger) (*Watcher, error) {
	fs, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create file watcher: %w", err)
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Watcher{
		fs:    fs,
		log:   logger,
		files: make(map[string]string),
		dirs:  make(map[string]int),
	}, nil
}

// Add starts tracking path, whose current text is text.
func (w *Watcher) Add(path, text string) error {
	path = document.IDFromPath(path).Path()
	dir := filepath.Dir(path)

	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.files[path]; ok {
		w.files[path] = text
		return nil
	}
	if w.dirs[dir] == 0 {
		if err := w.fs.Add(dir); err != nil {
			return fmt.Errorf("watch %s: %w", dir, err)
		}
	}
	w.dirs[dir]++
	w.files[path] = text
	return nil
}

// Remove stops tracking path.
func (w *Watcher) Remove(path string) {
	path = document.IDFromPath(path).Path()
	w.mu.Lock()
	defer w.mu.Unlock()
	w.untrack(path)
}

func (w *Watcher) untrack(path string) {
	if _, ok := w.files[path]; !ok {
		return
	}
	delete(w.files, path)
	dir := filepath.Dir(path)
	w.dirs[dir]--
	if w.dirs[dir] <= 0 {
		delete(w.dirs, dir)
		_ = w.fs.Remove(dir)
	}
}

// Tracked reports whether path is tracked.
func (w *Watcher) Tracked(path string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	_, ok := w.files[document.IDFromPath(path).Path()]
	return ok
}

// Run posts events for tracked files until ctx is cancelled or the watcher
// is closed.
func (w *Watcher) Run(ctx context.Context, out chan<- session.Event) error {
	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.fs.Events:
			if !ok {
				return nil
			}
			for _, ev := range w.handle(event) {
				select {
				case out <- ev:
				case <-ctx.Done():
					return nil
				}
			}

		case err, ok := <-w.fs.Errors:
			if !ok {
				return nil
			}
			// Watcher errors are non-fatal; continue watching.
			w.log.Warn("file watcher error", "err", err)
		}
	}
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	return w.fs.Close()
}

func (w *Watcher) handle(event fsnotify.Event) []session.Event {
	path := filepath.Clean(event.Name)

	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.files[path]; !ok {
		return nil
	}

	switch {
	case event.Has(fsnotify.Write), event.Has(fsnotify.Create):
		return w.refresh(path)
	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		// Editors that save by renaming a temp file over the original
		// still leave a file behind.
		if _, err := os.Stat(path); err == nil {
			return w.refresh(path)
		}
		w.untrack(path)
		w.log.Debug("tracked file went away", "path", path)
		return []session.Event{session.DocumentClosed{Doc: document.ID(path)}}
	}
	return nil
}

// refresh rereads path and returns the edit batch since the last read,
// followed by a save. It must be called with w.mu held.
func (w *Watcher) refresh(path string) []session.Event {
	data, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			w.log.Warn("read tracked file", "path", path, "err", err)
		}
		return nil
	}
	text := string(data)
	changes := document.Diff(w.files[path], text)
	if len(changes) == 0 {
		return nil
	}
	w.files[path] = text
	doc := document.ID(path)
	w.log.Debug("file changed", "path", path, "changes", len(changes))
	return []session.Event{
		session.DocumentChanged{Doc: doc, Changes: changes},
		session.DocumentSaved{Doc: doc},
	}
}
