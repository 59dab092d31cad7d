package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/fakeyudi/linelog/internal/bundle"
	"github.com/fakeyudi/linelog/internal/dap"
	"github.com/fakeyudi/linelog/internal/document"
	"github.com/fakeyudi/linelog/internal/session"
)

// autoReport is the --report value for a timestamped file in the
// configured output directory.
const autoReport = "auto"

// sourceFile is a file named on the command line.
type sourceFile struct {
	id   document.ID
	text string
}

// readSources reads every file in paths. Duplicate paths are read once.
func readSources(paths []string) ([]sourceFile, error) {
	seen := make(map[document.ID]bool, len(paths))
	var out []sourceFile
	for _, p := range paths {
		id := document.IDFromPath(p)
		if seen[id] {
			continue
		}
		seen[id] = true
		data, err := os.ReadFile(id.Path())
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("file not found: %s", p)
			}
			return nil, err
		}
		out = append(out, sourceFile{id: id, text: string(data)})
	}
	return out, nil
}

func ids(files []sourceFile) []document.ID {
	out := make([]document.ID, len(files))
	for i, f := range files {
		out[i] = f.id
	}
	return out
}

// sessionOptions maps the merged config onto controller options.
func sessionOptions() session.Options {
	return session.Options{
		ClearOnSave: cfg.ShouldClearOnSave(),
		ActiveFor:   cfg.ActiveDwell(),
		StaleFor:    cfg.StaleDwell(),
		Logger:      logger,
	}
}

// openEvents opens the DAP event stream. "-" is stdin.
func openEvents(path string) (io.ReadCloser, error) {
	if path == "-" {
		return io.NopCloser(os.Stdin), nil
	}
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("event stream not found: %s", path)
		}
		return nil, fmt.Errorf("open event stream: %w", err)
	}
	return f, nil
}

// isPipe reports whether path names a FIFO, which is reopened after each
// writer goes away.
func isPipe(path string) bool {
	if path == "-" {
		return false
	}
	fi, err := os.Stat(path)
	return err == nil && fi.Mode()&os.ModeNamedPipe != 0
}

// streamEvents reads the DAP stream at path into out. A FIFO is reopened
// after each writer closes it, until ctx is done.
func streamEvents(ctx context.Context, path string, out chan<- session.Event) error {
	follow := isPipe(path)
	for {
		r, err := openEvents(path)
		if err != nil {
			return err
		}
		rd := dap.NewReader(r, dap.Options{Categories: cfg.OutputCategories, Logger: logger})
		err = rd.Run(ctx, out)
		r.Close()
		if err != nil {
			return err
		}
		logger.Debug("event stream ended", "path", path)
		if !follow || ctx.Err() != nil {
			return nil
		}
	}
}

// reportPath resolves the --report flag value.
func reportPath(flag string, rd bundle.Renderer, now time.Time) string {
	if flag == autoReport {
		dir := cfg.OutputDir
		if dir == "" {
			dir = "."
		}
		return filepath.Join(dir, bundle.Filename(now, rd))
	}
	if fi, err := os.Stat(flag); err == nil && fi.IsDir() {
		return filepath.Join(flag, bundle.Filename(now, rd))
	}
	return flag
}

// writeReport renders the controller's report to the --report destination.
func writeReport(w io.Writer, ctrl *session.Controller, flag, format string) error {
	if flag == "" {
		return nil
	}
	if format == "" {
		format = cfg.DefaultFormat
	}
	rd := bundle.RendererFor(format)
	r := ctrl.Report()
	path := reportPath(flag, rd, r.Session.GeneratedAt)
	if err := bundle.Write(path, r, rd); err != nil {
		return err
	}
	fmt.Fprintf(w, "Report: %s (%d annotated lines)\n", path, r.Count())
	return nil
}
