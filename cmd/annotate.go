package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/fakeyudi/linelog/internal/document"
	"github.com/fakeyudi/linelog/internal/render"
	"github.com/fakeyudi/linelog/internal/session"
)

var annotateEvents string
var annotateReport string
var annotateFormat string

var annotateCmd = &cobra.Command{
	Use:   "annotate <file>...",
	Short: "Replay a recorded event stream and print the files with their output",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := setupLogging(false); err != nil {
			return err
		}
		files, err := readSources(args)
		if err != nil {
			return err
		}

		ws := document.NewWorkspace()
		views := make([]render.View, len(files))
		for i, f := range files {
			views[i] = render.View{ID: string(f.id), Doc: f.id}
		}
		rec := render.NewRecorder(views...)
		ctrl := session.New(ws, rec, sessionOptions())
		defer ctrl.Close()
		for _, f := range files {
			ctrl.Handle(session.DocumentOpened{Doc: f.id, Text: f.text})
		}

		ctx := cmd.Context()
		events := make(chan session.Event, 64)
		streamErr := make(chan error, 1)
		go func() {
			streamErr <- streamEvents(ctx, annotateEvents, events)
			close(events)
		}()
		if err := ctrl.Run(ctx, events); err != nil {
			return err
		}
		if err := <-streamErr; err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		for _, f := range files {
			doc, ok := ws.Get(f.id)
			if !ok {
				continue
			}
			printAnnotated(out, doc, rec.Annotations(string(f.id)))
		}
		return writeReport(out, ctrl, annotateReport, annotateFormat)
	},
}

// printAnnotated writes doc with line numbers and the latest output of each
// annotated line.
func printAnnotated(w io.Writer, doc *document.Document, decos []render.Decoration) {
	byLine := make(map[int]render.Decoration, len(decos))
	for _, d := range decos {
		byLine[d.Line] = d
	}

	fmt.Fprintf(w, "## %s\n", doc.ID().Path())
	width := len(fmt.Sprint(doc.LineCount()))
	n := doc.LineCount()
	// The empty line after a final newline is not worth printing.
	if n > 1 && doc.Line(n-1) == "" {
		if _, ok := byLine[n-1]; !ok {
			n--
		}
	}
	for i := 0; i < n; i++ {
		line := fmt.Sprintf("  %*d │ %s", width, i+1, strings.ReplaceAll(doc.Line(i), "\t", "    "))
		if d, ok := byLine[i]; ok {
			line += "  ▸ " + d.After
			if len(d.Hover) > 1 {
				line += fmt.Sprintf("  (%d outputs)", len(d.Hover))
			}
		}
		fmt.Fprintln(w, line)
	}
	fmt.Fprintln(w)
}

func init() {
	annotateCmd.Flags().StringVar(&annotateEvents, "events", "-", "DAP event stream: a file, a FIFO or - for stdin")
	annotateCmd.Flags().StringVar(&annotateReport, "report", "", "write a report to this path or directory; \"auto\" uses output_dir")
	annotateCmd.Flags().StringVar(&annotateFormat, "format", "", "report format: markdown or json (overrides config)")
	rootCmd.AddCommand(annotateCmd)
}
