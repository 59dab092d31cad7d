package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// ProjectFile is the per-project config file name, read from the working
// directory.
const ProjectFile = ".linelog.toml"

// Config holds all configurable linelog settings.
type Config struct {
	// ClearOnSave drops a document's annotations when it is saved. Unset
	// means true.
	ClearOnSave      *bool    `toml:"clear_on_save"`
	HighlightActive  string   `toml:"highlight_active"` // duration, e.g. "1s"
	HighlightStale   string   `toml:"highlight_stale"`  // duration; "0s" keeps it until the next one
	OutputCategories []string `toml:"output_categories"`
	DefaultFormat    string   `toml:"default_format"` // "markdown" | "json"
	OutputDir        string   `toml:"output_dir"`
	LogLevel         string   `toml:"log_level"`  // debug | info | warn | error
	LogFormat        string   `toml:"log_format"` // text | json
	Colors           Colors   `toml:"colors"`
}

// Colors are lipgloss colour values for the terminal UI.
type Colors struct {
	Annotation string `toml:"annotation"`
	Primary    string `toml:"primary"`   // active highlight background
	Secondary  string `toml:"secondary"` // stale highlight background
}

// Defaults returns sensible default configuration values.
func Defaults() Config {
	clearOnSave := true
	return Config{
		ClearOnSave:      &clearOnSave,
		HighlightActive:  "1s",
		HighlightStale:   "0s",
		OutputCategories: []string{"stdout"},
		DefaultFormat:    "markdown",
		OutputDir:        ".",
		LogLevel:         "info",
		LogFormat:        "text",
		Colors: Colors{
			Annotation: "243",
			Primary:    "214",
			Secondary:  "226",
		},
	}
}

// GlobalPath returns the path of the global config file.
func GlobalPath() (string, error) {
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		base = filepath.Join(home, ".config")
	}
	return filepath.Join(base, "linelog", "config.toml"), nil
}

// LoadGlobal reads the global config file.
// Returns defaults if the file is absent.
func LoadGlobal() (*Config, error) {
	path, err := GlobalPath()
	if err != nil {
		return nil, err
	}
	return loadFile(path, true)
}

// LoadProject reads .linelog.toml in the current working directory.
// Returns nil (no error) if the file is absent.
func LoadProject() (*Config, error) {
	return loadFile(ProjectFile, false)
}

// loadFile reads and parses a TOML config file at path.
// If returnDefaults is true, returns defaults when the file is absent.
// If returnDefaults is false, returns nil when the file is absent.
func loadFile(path string, returnDefaults bool) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			if returnDefaults {
				d := Defaults()
				return &d, nil
			}
			return nil, nil
		}
		return nil, err
	}
	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, &ParseError{Path: path, Err: err}
	}
	if err := cfg.validate(); err != nil {
		return nil, &ParseError{Path: path, Err: err}
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	for key, v := range map[string]string{
		"highlight_active": c.HighlightActive,
		"highlight_stale":  c.HighlightStale,
	} {
		if v == "" {
			continue
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		if d < 0 {
			return fmt.Errorf("%s: negative duration %s", key, v)
		}
	}
	switch c.DefaultFormat {
	case "", "markdown", "json":
	default:
		return fmt.Errorf("default_format: unknown format %q", c.DefaultFormat)
	}
	return nil
}

// Merge combines global and project configs, with project taking precedence.
// Missing keys fall back to global, then defaults.
func Merge(global, project *Config) Config {
	result := Defaults()
	result.apply(global)
	result.apply(project)
	return result
}

func (c *Config) apply(o *Config) {
	if o == nil {
		return
	}
	if o.ClearOnSave != nil {
		v := *o.ClearOnSave
		c.ClearOnSave = &v
	}
	setString(&c.HighlightActive, o.HighlightActive)
	setString(&c.HighlightStale, o.HighlightStale)
	if len(o.OutputCategories) > 0 {
		c.OutputCategories = o.OutputCategories
	}
	setString(&c.DefaultFormat, o.DefaultFormat)
	setString(&c.OutputDir, o.OutputDir)
	setString(&c.LogLevel, o.LogLevel)
	setString(&c.LogFormat, o.LogFormat)
	setString(&c.Colors.Annotation, o.Colors.Annotation)
	setString(&c.Colors.Primary, o.Colors.Primary)
	setString(&c.Colors.Secondary, o.Colors.Secondary)
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

// ShouldClearOnSave reports the effective clear_on_save value.
func (c Config) ShouldClearOnSave() bool {
	return c.ClearOnSave == nil || *c.ClearOnSave
}

// ActiveDwell returns how long a highlight stays active.
func (c Config) ActiveDwell() time.Duration {
	return parseDuration(c.HighlightActive, time.Second)
}

// StaleDwell returns how long a stale highlight lives; zero keeps it until
// the next highlight.
func (c Config) StaleDwell() time.Duration {
	return parseDuration(c.HighlightStale, 0)
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d < 0 {
		return fallback
	}
	return d
}

// ParseError is returned when a config file exists but cannot be parsed.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	return "failed to parse config file " + e.Path + ": " + e.Err.Error()
}

func (e *ParseError) Unwrap() error {
	return e.Err
}
