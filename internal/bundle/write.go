package bundle

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Filename returns the default report file name for a report generated at t.
func Filename(t time.Time, rd Renderer) string {
	return "linelog-" + t.Format("20060102-150405") + rd.Ext()
}

// Write renders r and writes it to path atomically via a temp file and
// os.Rename.
func Write(path string, r *Report, rd Renderer) (err error) {
	data, err := rd.Render(r)
	if err != nil {
		return fmt.Errorf("render report: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create report directory: %w", err)
	}

	// Write to a temp file in the same directory so os.Rename is atomic.
	tmp, err := os.CreateTemp(dir, ".linelog-*.tmp")
	if err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		if err != nil {
			os.Remove(tmpName)
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write report: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	if err = os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}
