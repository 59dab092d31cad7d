package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/charmbracelet/x/term"
	"github.com/spf13/cobra"

	"github.com/fakeyudi/linelog/internal/document"
	"github.com/fakeyudi/linelog/internal/render"
	"github.com/fakeyudi/linelog/internal/session"
	"github.com/fakeyudi/linelog/internal/tui"
	"github.com/fakeyudi/linelog/internal/watcher"
)

var watchEvents string
var watchPlain bool
var watchReport string
var watchFormat string

var watchCmd = &cobra.Command{
	Use:   "watch <file>...",
	Short: "Follow files and a debugger event stream, showing output beside each line",
	Long: `Follow files and a Debug Adapter Protocol event stream, showing each
output next to the line that printed it.

Every write to a watched file counts as a save. With the default
clear_on_save = true, a write clears that file's annotations. Set
clear_on_save = false in .linelog.toml to keep them and have them follow
the edited lines instead.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		plain := watchPlain || !term.IsTerminal(os.Stdout.Fd())
		if watchEvents == "-" && !plain {
			return errors.New("--events - reads stdin, which the terminal UI needs; use --plain or a file")
		}
		if err := setupLogging(!plain); err != nil {
			return err
		}
		files, err := readSources(args)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		w, err := watcher.New(logger)
		if err != nil {
			return err
		}
		defer w.Close()
		for _, f := range files {
			if err := w.Add(f.id.Path(), f.text); err != nil {
				return err
			}
		}

		ws := document.NewWorkspace()
		var surface render.Surface
		var ui *tui.Surface
		if plain {
			surface = newPlainSurface(cmd.OutOrStdout(), ids(files))
		} else {
			ui = tui.NewSurface()
			surface = ui
		}
		ctrl := session.New(ws, surface, sessionOptions())
		defer ctrl.Close()
		for _, f := range files {
			ctrl.Handle(session.DocumentOpened{Doc: f.id, Text: f.text})
		}

		events := make(chan session.Event, 64)
		go func() {
			if err := w.Run(ctx, events); err != nil {
				logger.Error("file watcher stopped", "err", err)
			}
		}()
		go func() {
			if err := streamEvents(ctx, watchEvents, events); err != nil {
				logger.Error("event stream stopped", "err", err)
			}
		}()

		if plain {
			fmt.Fprintf(cmd.OutOrStdout(), "Watching %d file(s). Press Ctrl+C to stop.\n", len(files))
			if err := ctrl.Run(ctx, events); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
		} else {
			runErr := make(chan error, 1)
			go func() { runErr <- ctrl.Run(ctx, events) }()
			post := func(ev session.Event) {
				select {
				case events <- ev:
				case <-ctx.Done():
				}
			}
			theme := tui.Theme{
				Annotation: cfg.Colors.Annotation,
				Primary:    cfg.Colors.Primary,
				Secondary:  cfg.Colors.Secondary,
			}
			uiErr := tui.Run(tui.New(ws, ids(files), ui, post, theme))
			stop()
			if err := <-runErr; err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			if uiErr != nil {
				return uiErr
			}
		}
		return writeReport(cmd.OutOrStdout(), ctrl, watchReport, watchFormat)
	},
}

func init() {
	watchCmd.Flags().StringVar(&watchEvents, "events", "", "DAP event stream: a file, a FIFO or - for stdin (with --plain)")
	watchCmd.Flags().BoolVar(&watchPlain, "plain", false, "print annotations as text instead of the terminal UI")
	watchCmd.Flags().StringVar(&watchReport, "report", "", "write a report on exit to this path or directory; \"auto\" uses output_dir")
	watchCmd.Flags().StringVar(&watchFormat, "format", "", "report format: markdown or json (overrides config)")
	_ = watchCmd.MarkFlagRequired("events")
	rootCmd.AddCommand(watchCmd)
}
