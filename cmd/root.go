package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/fakeyudi/linelog/internal/config"
	"github.com/fakeyudi/linelog/internal/logging"
)

// cfg holds the merged configuration, populated in PersistentPreRunE.
var cfg config.Config

// logger is built from cfg and the --verbose flag in PersistentPreRunE.
var logger = slog.New(slog.DiscardHandler)

// closeLog releases the log output.
var closeLog = func() error { return nil }

var verbose bool

var rootCmd = &cobra.Command{
	Use:   "linelog",
	Short: "Show debugger output next to the source lines that produced it",
	Long: `linelog follows source files and a Debug Adapter Protocol event stream.
Each output event is attached to the line that printed it and stays anchored
to that line while the file is edited.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Load and merge config files.
		global, err := config.LoadGlobal()
		if err != nil {
			return fmt.Errorf("loading global config: %w", err)
		}
		project, err := config.LoadProject()
		if err != nil {
			return fmt.Errorf("loading project config: %w", err)
		}
		cfg = config.Merge(global, project)
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		return closeLog()
	},
}

// setupLogging builds the logger. When the terminal UI owns the screen,
// logs go to a file.
func setupLogging(toFile bool) error {
	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	if verbose {
		level = slog.LevelDebug
	}
	format, err := logging.ParseFormat(cfg.LogFormat)
	if err != nil {
		return err
	}
	lc := logging.Config{Level: level, Format: format, Writer: os.Stderr}
	if toFile {
		lc.FilePath = logging.DefaultFilePath()
	}
	l, closer, err := logging.New(lc)
	if err != nil {
		return err
	}
	logger, closeLog = l, closer
	slog.SetDefault(l)
	return nil
}

// Execute runs the root command. Exits with code 1 on error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log at debug level")
}
