// Package tui provides a Bubble Tea TUI that shows watched documents with
// their line annotations and the execution highlight.
package tui

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/fakeyudi/linelog/internal/document"
	"github.com/fakeyudi/linelog/internal/highlight"
	"github.com/fakeyudi/linelog/internal/render"
	"github.com/fakeyudi/linelog/internal/session"
)

// ── Styles ────────────

var (
	// Title bar at the very top
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15")).
			Background(lipgloss.Color("62")).
			Padding(0, 2)

	// Active tab: bright
	activeTabStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15")).
			Background(lipgloss.Color("62")).
			Padding(0, 1)

	// Inactive tab: muted
	inactiveTabStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("245")).
				Background(lipgloss.Color("235")).
				Padding(0, 1)

	// Separator between tabs
	tabSepStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("238")).
			Background(lipgloss.Color("235"))

	sectionHeader = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("86"))

	gutterStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))

	cursorGutterStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("15")).
				Bold(true)

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))

	bulletStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205"))

	statusBarStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("235")).
			Foreground(lipgloss.Color("245")).
			Padding(0, 1)
)

// Theme holds the configurable colours.
type Theme struct {
	Annotation string // after-line text
	Primary    string // active highlight background
	Secondary  string // stale highlight background
}

// DefaultTheme matches the config defaults.
var DefaultTheme = Theme{Annotation: "243", Primary: "214", Secondary: "226"}

// detailHeight is the number of rows of the history pane, border included.
const detailHeight = 6

// ── Model ────────────────────

// Model is the root Bubble Tea model for the TUI.
type Model struct {
	ws      *document.Workspace
	surface *Surface
	post    func(session.Event)

	docs   []document.ID
	active int
	cursor int

	annots map[string][]render.Decoration // by view ID
	paints map[int]paintMsg

	annotationStyle lipgloss.Style
	primaryStyle    lipgloss.Style
	secondaryStyle  lipgloss.Style

	viewport viewport.Model
	width    int
	height   int
	ready    bool
}

// New creates a model showing docs, read from ws. post delivers events to
// the session controller and must not block for long.
func New(ws *document.Workspace, docs []document.ID, surface *Surface, post func(session.Event), theme Theme) Model {
	if theme.Annotation == "" {
		theme.Annotation = DefaultTheme.Annotation
	}
	if theme.Primary == "" {
		theme.Primary = DefaultTheme.Primary
	}
	if theme.Secondary == "" {
		theme.Secondary = DefaultTheme.Secondary
	}
	m := Model{
		ws:      ws,
		surface: surface,
		post:    post,
		docs:    append([]document.ID(nil), docs...),
		annots:  make(map[string][]render.Decoration),
		paints:  make(map[int]paintMsg),

		annotationStyle: lipgloss.NewStyle().Foreground(lipgloss.Color(theme.Annotation)).Italic(true),
		primaryStyle:    lipgloss.NewStyle().Foreground(lipgloss.Color("0")).Background(lipgloss.Color(theme.Primary)),
		secondaryStyle:  lipgloss.NewStyle().Foreground(lipgloss.Color("0")).Background(lipgloss.Color(theme.Secondary)),
	}
	if len(m.docs) > 0 {
		surface.Focus(m.docs[0])
	}
	return m
}

// ── Bubble Tea interface ───────────────

func (m Model) Init() tea.Cmd {
	if doc, ok := m.activeDoc(); ok {
		return m.emit(session.ActiveViewChanged{Doc: doc})
	}
	return nil
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "tab", "l", "right":
			return m, m.switchDoc(1)
		case "shift+tab", "h", "left":
			return m, m.switchDoc(-1)
		case "down", "j":
			m.moveCursor(1)
			return m, nil
		case "up", "k":
			m.moveCursor(-1)
			return m, nil
		case "g", "home":
			m.moveCursor(-m.cursor)
			return m, nil
		case "G", "end":
			m.moveCursor(m.lineCount())
			return m, nil
		case "c":
			if doc, ok := m.activeDoc(); ok {
				return m, m.emit(session.Clear{Doc: doc})
			}
			return m, nil
		}
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		m.initViewport()
		return m, nil

	case annotationsMsg:
		if len(msg.decos) == 0 {
			delete(m.annots, msg.view.ID)
		} else {
			m.annots[msg.view.ID] = msg.decos
		}
		m.refresh()
		return m, nil

	case paintMsg:
		m.paints[msg.id] = msg
		m.refresh()
		return m, nil

	case unpaintMsg:
		delete(m.paints, msg.id)
		m.refresh()
		return m, nil
	}
	return m, nil
}

func (m Model) View() string {
	if !m.ready {
		return "Loading…"
	}

	// ── Row 1: title bar ──────────────────────────────────────────────────────
	name := "(no documents)"
	if doc, ok := m.activeDoc(); ok {
		name = doc.Path()
	}
	title := titleStyle.Width(m.width).Render("  linelog  " + name)

	// ── Row 2: tab bar ────────────────────────────────────────────────────────
	var tabParts []string
	for i, doc := range m.docs {
		label := fmt.Sprintf(" %d %s ", i+1, filepath.Base(doc.Path()))
		if n := len(m.annots[string(doc)]); n > 0 && i == m.active {
			label = fmt.Sprintf(" %d %s (%d) ", i+1, filepath.Base(doc.Path()), n)
		}
		if i == m.active {
			tabParts = append(tabParts, activeTabStyle.Render(label))
		} else {
			tabParts = append(tabParts, inactiveTabStyle.Render(label))
		}
		if i < len(m.docs)-1 {
			tabParts = append(tabParts, tabSepStyle.Render("│"))
		}
	}
	tabRow := lipgloss.NewStyle().
		Background(lipgloss.Color("235")).
		Width(m.width).
		Render(lipgloss.JoinHorizontal(lipgloss.Top, tabParts...))

	// ── Row 3…N-1: document and history pane ─────────────────────────────────
	content := m.viewport.View()
	detail := m.renderDetail()

	// ── Row N: status / hint bar ──────────────────────────────────────────────
	hint := "  tab doc  j/k line  c clear  q quit"
	pos := fmt.Sprintf("Ln %d/%d", m.cursor+1, m.lineCount())
	pad := m.width - lipgloss.Width(hint) - len(pos) - 2
	if pad < 1 {
		pad = 1
	}
	statusBar := statusBarStyle.Width(m.width).Render(hint + strings.Repeat(" ", pad) + pos)

	return lipgloss.JoinVertical(lipgloss.Left, title, tabRow, content, detail, statusBar)
}

// ── Navigation ────────────────────────────────────────────────────────────────

func (m *Model) activeDoc() (document.ID, bool) {
	if len(m.docs) == 0 {
		return "", false
	}
	return m.docs[m.active], true
}

func (m *Model) switchDoc(step int) tea.Cmd {
	if len(m.docs) < 2 {
		return nil
	}
	m.active = (m.active + step + len(m.docs)) % len(m.docs)
	m.cursor = 0
	doc := m.docs[m.active]
	m.surface.Focus(doc)
	m.refresh()
	m.viewport.GotoTop()
	return m.emit(session.ActiveViewChanged{Doc: doc})
}

func (m *Model) moveCursor(step int) {
	n := m.lineCount()
	m.cursor += step
	if m.cursor >= n {
		m.cursor = n - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
	m.refresh()
	if !m.ready {
		return
	}
	if m.cursor < m.viewport.YOffset {
		m.viewport.SetYOffset(m.cursor)
	} else if bottom := m.viewport.YOffset + m.viewport.Height - 1; m.cursor > bottom {
		m.viewport.SetYOffset(m.cursor - m.viewport.Height + 1)
	}
}

func (m *Model) lineCount() int {
	doc, ok := m.document()
	if !ok {
		return 0
	}
	return doc.LineCount()
}

func (m *Model) document() (*document.Document, bool) {
	id, ok := m.activeDoc()
	if !ok {
		return nil, false
	}
	return m.ws.Get(id)
}

func (m Model) emit(ev session.Event) tea.Cmd {
	if m.post == nil {
		return nil
	}
	post := m.post
	return func() tea.Msg {
		post(ev)
		return nil
	}
}

// ── Viewport management ───────────────────────────────────────────────────────

func (m *Model) initViewport() {
	// title(1) + tabRow(1) + detail + statusBar(1)
	vpHeight := m.height - 3 - detailHeight
	if vpHeight < 1 {
		vpHeight = 1
	}
	m.viewport = viewport.New(m.width, vpHeight)
	m.viewport.SetContent(m.renderDocument())
}

func (m *Model) refresh() {
	if n := m.lineCount(); m.cursor >= n && n > 0 {
		m.cursor = n - 1
	}
	if m.ready {
		m.viewport.SetContent(m.renderDocument())
	}
}

// ── Renderers ─────────────────────────────────────────────────────────────────

func (m *Model) renderDocument() string {
	doc, ok := m.document()
	if !ok {
		return dimStyle.Render("  (document closed)")
	}
	view := string(doc.ID())
	after := make(map[int]string)
	for _, d := range m.annots[view] {
		after[d.Line] = d.After
	}
	painted := m.paintedLines(doc, view)

	width := len(fmt.Sprint(doc.LineCount()))
	var sb strings.Builder
	for i := 0; i < doc.LineCount(); i++ {
		num := fmt.Sprintf(" %*d │ ", width, i+1)
		if i == m.cursor {
			sb.WriteString(cursorGutterStyle.Render(">" + num[1:]))
		} else {
			sb.WriteString(gutterStyle.Render(num))
		}

		text := strings.ReplaceAll(doc.Line(i), "\t", "    ")
		switch a, ok := painted[i]; {
		case !ok:
			sb.WriteString(text)
		case a == highlight.Primary:
			sb.WriteString(m.primaryStyle.Render(text))
		default:
			sb.WriteString(m.secondaryStyle.Render(text))
		}

		if s, ok := after[i]; ok {
			sb.WriteString("  " + m.annotationStyle.Render("▸ "+s))
		}
		if i < doc.LineCount()-1 {
			sb.WriteString("\n")
		}
	}
	return sb.String()
}

// paintedLines maps each highlighted line of view to its appearance. A
// primary paint wins over a secondary one on the same line.
func (m *Model) paintedLines(doc *document.Document, view string) map[int]highlight.Appearance {
	out := make(map[int]highlight.Appearance)
	for _, p := range m.paints {
		if p.view.ID != view {
			continue
		}
		line, ok := doc.LineAt(p.rng.Start)
		if !ok {
			continue
		}
		if cur, seen := out[line]; !seen || p.style < cur {
			out[line] = p.style
		}
	}
	return out
}

func (m *Model) renderDetail() string {
	var sb strings.Builder
	sb.WriteString(sectionHeader.Render(fmt.Sprintf("  Line %d history", m.cursor+1)) + "\n")

	var hover []string
	if doc, ok := m.activeDoc(); ok {
		for _, d := range m.annots[string(doc)] {
			if d.Line == m.cursor {
				hover = d.Hover
				break
			}
		}
	}
	rows := detailHeight - 2
	if len(hover) == 0 {
		sb.WriteString(dimStyle.Render("  (no output on this line)") + "\n")
		rows--
	}
	// Most recent last, trimmed to the pane.
	if len(hover) > rows {
		sb.WriteString(dimStyle.Render(fmt.Sprintf("  … %d earlier", len(hover)-rows+1)) + "\n")
		hover = hover[len(hover)-rows+1:]
	}
	for _, h := range hover {
		sb.WriteString(bulletStyle.Render("  •") + "  " + h + "\n")
	}
	return lipgloss.NewStyle().
		Width(m.width).
		Height(detailHeight - 1).
		BorderTop(true).
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("238")).
		Render(strings.TrimRight(sb.String(), "\n"))
}

// Run starts the TUI and blocks until the user quits. The surface is
// attached to the program for the duration of the run.
func Run(m Model) error {
	p := tea.NewProgram(m, tea.WithAltScreen())
	m.surface.Attach(p.Send)
	defer m.surface.Attach(nil)
	_, err := p.Run()
	return err
}
