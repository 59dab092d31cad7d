package bundle

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Renderer serializes a Report to bytes.
type Renderer interface {
	Render(r *Report) ([]byte, error)
	// Ext is the file extension, dot included, of rendered reports.
	Ext() string
}

// RendererFor returns the renderer for format ("json" or "markdown").
// Unknown formats fall back to Markdown.
func RendererFor(format string) Renderer {
	if strings.EqualFold(format, "json") {
		return &JSONRenderer{}
	}
	return &MarkdownRenderer{}
}

// JSONRenderer renders a Report as indented JSON.
type JSONRenderer struct{}

func (*JSONRenderer) Render(r *Report) ([]byte, error) {
	return json.MarshalIndent(r, "", "  ")
}

func (*JSONRenderer) Ext() string { return ".json" }

// MarkdownRenderer renders a Report as human-readable Markdown.
type MarkdownRenderer struct{}

func (*MarkdownRenderer) Ext() string { return ".md" }

func (*MarkdownRenderer) Render(r *Report) ([]byte, error) {
	var sb strings.Builder

	fmt.Fprintf(&sb, "# linelog report: %s\n\n", r.Session.GeneratedAt.Format("2006-01-02 15:04:05 MST"))

	// ## Session
	sb.WriteString("## Session\n\n")
	if r.Session.ID == "" {
		sb.WriteString("- Session: _none started_\n")
	} else {
		fmt.Fprintf(&sb, "- Session: %s\n", r.Session.ID)
		fmt.Fprintf(&sb, "- Started: %s\n", r.Session.StartTime.Format("2006-01-02 15:04:05 MST"))
	}
	if r.Session.Duration != "" {
		fmt.Fprintf(&sb, "- Duration: %s\n", r.Session.Duration)
	}
	fmt.Fprintf(&sb, "- Outputs: %d\n", r.Session.Outputs)
	fmt.Fprintf(&sb, "- Annotated lines: %d\n", r.Count())
	sb.WriteString("\n")

	// ## Annotations
	sb.WriteString("## Annotations\n\n")
	if len(r.Documents) == 0 {
		sb.WriteString("_No annotations._\n\n")
		return []byte(sb.String()), nil
	}
	for _, d := range r.Documents {
		fmt.Fprintf(&sb, "### %s\n\n", d.Path)
		sb.WriteString("| Line | Source | Latest | History |\n")
		sb.WriteString("|------|--------|--------|---------|\n")
		for _, l := range d.Lines {
			latest := ""
			if len(l.Entries) > 0 {
				latest = l.Entries[0]
			}
			fmt.Fprintf(&sb, "| %d | %s | %s | %d |\n",
				l.Line,
				cell(l.Source, true),
				cell(latest, false),
				len(l.Entries),
			)
		}
		sb.WriteString("\n")
	}

	return []byte(sb.String()), nil
}

// cell escapes s for a Markdown table cell, optionally as inline code.
func cell(s string, code bool) string {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, "\r\n", " ")
	s = strings.ReplaceAll(s, "\n", " ")
	s = strings.ReplaceAll(s, "|", `\|`)
	if s == "" {
		return ""
	}
	if code {
		return "`" + strings.ReplaceAll(s, "`", "'") + "`"
	}
	return s
}
