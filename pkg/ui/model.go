// Package ui is the interactive terminal view of the relationship graph.
//
// The Model owns no graph state of its own: every transition goes through
// view.Controller, and fetch plus layout run as tea.Cmds so the event loop
// never blocks. Results come back as resolvedMsg and are committed, which
// drops anything a newer request has superseded.
package ui

import (
	"context"
	"fmt"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/vanderheijden86/casegraph/pkg/debug"
	"github.com/vanderheijden86/casegraph/pkg/layout"
	"github.com/vanderheijden86/casegraph/pkg/metrics"
	"github.com/vanderheijden86/casegraph/pkg/model"
	"github.com/vanderheijden86/casegraph/pkg/scene"
	"github.com/vanderheijden86/casegraph/pkg/view"
	"github.com/vanderheijden86/casegraph/pkg/watcher"
)

const (
	zoomStep     = 1.25
	detailsWidth = 44
	// header: title bar and project tabs; footer: status or search input.
	headerLines = 2
	footerLines = 1
)

// ProjectLister supplies the projects for the filter tabs.
type ProjectLister interface {
	ListProjects(ctx context.Context) ([]model.Project, error)
}

// Options configures a Model.
type Options struct {
	Controller  *view.Controller
	Projects    ProjectLister
	Watcher     *watcher.Watcher // nil when the store is not file-backed
	ShowDetails bool
	Renderer    *lipgloss.Renderer
	// Copy writes to the clipboard; defaults to clipboard.WriteAll.
	Copy func(string) error
}

// resolvedMsg carries a fetched and laid out graph back to the loop.
type resolvedMsg struct {
	res view.Result
}

// projectsMsg carries the project list.
type projectsMsg struct {
	projects []model.Project
	err      error
}

// FileChangedMsg reports that the watched case file changed on disk.
type FileChangedMsg struct{}

// Model is the bubbletea model for cg.
type Model struct {
	ctx     context.Context
	ctrl    *view.Controller
	lister  ProjectLister
	watcher *watcher.Watcher
	copy    func(string) error
	theme   Theme

	width, height int
	projects      []model.Project

	input    textinput.Model
	inputOn  bool
	spin     spinner.Model
	cursor   int
	details  *detailPane
	showInfo bool

	status    string
	statusErr bool
}

// New returns a Model driving opts.Controller.
func New(ctx context.Context, opts Options) Model {
	r := opts.Renderer
	if r == nil {
		r = lipgloss.DefaultRenderer()
	}
	theme := DefaultTheme(r)

	in := textinput.New()
	in.Prompt = "search: "
	in.Placeholder = "entity name"
	in.CharLimit = 120

	sp := spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(theme.Info))

	cp := opts.Copy
	if cp == nil {
		cp = clipboard.WriteAll
	}

	return Model{
		ctx:      ctx,
		ctrl:     opts.Controller,
		lister:   opts.Projects,
		watcher:  opts.Watcher,
		copy:     cp,
		theme:    theme,
		width:    100,
		height:   30,
		input:    in,
		spin:     sp,
		details:  newDetailPane(detailsWidth - 2),
		showInfo: opts.ShowDetails,
	}
}

// fetchCmd resolves req off the event loop.
func (m Model) fetchCmd(req view.Request) tea.Cmd {
	ctrl, ctx := m.ctrl, m.ctx
	return func() tea.Msg {
		return resolvedMsg{res: ctrl.Resolve(ctx, req)}
	}
}

func (m Model) loadProjectsCmd() tea.Cmd {
	if m.lister == nil {
		return nil
	}
	lister, ctx := m.lister, m.ctx
	return func() tea.Msg {
		ps, err := lister.ListProjects(ctx)
		return projectsMsg{projects: ps, err: err}
	}
}

// WatchFileCmd waits for the next change of w.
func WatchFileCmd(w *watcher.Watcher) tea.Cmd {
	return func() tea.Msg {
		<-w.Changed()
		return FileChangedMsg{}
	}
}

func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.spin.Tick, m.loadProjectsCmd()}
	if req, ok := m.ctrl.Refresh(); ok {
		cmds = append(cmds, m.fetchCmd(req))
	}
	if m.watcher != nil {
		cmds = append(cmds, WatchFileCmd(m.watcher))
	}
	return tea.Batch(cmds...)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		cols, rows := m.canvasSize()
		m.ctrl.SetCanvas(float64(cols*cellWidth), float64(rows*cellHeight))
		return m, nil

	case resolvedMsg:
		if !m.ctrl.Commit(msg.res) {
			return m, nil
		}
		m.cursor = 0
		st := m.ctrl.State()
		switch {
		case st.Err != nil:
			m.setStatus(st.Err.Error(), true)
		case !st.Interactive:
			m.setStatus(fmt.Sprintf("%d nodes exceeds the interactive limit of %d; narrow the scope or lower -limit",
				st.Snapshot.NodeCount(), layout.InteractiveNodeLimit), true)
		default:
			m.setStatus(fmt.Sprintf("%d nodes, %d relationships", st.Snapshot.NodeCount(), st.Snapshot.EdgeCount()), false)
		}
		return m, nil

	case projectsMsg:
		if msg.err != nil {
			debug.Log("ui: listing projects: %v", msg.err)
			m.setStatus("could not list projects: "+msg.err.Error(), true)
			return m, nil
		}
		m.projects = msg.projects
		return m, nil

	case FileChangedMsg:
		m.setStatus("case file changed, reloading", false)
		cmds := []tea.Cmd{WatchFileCmd(m.watcher)}
		if req, ok := m.ctrl.Refresh(); ok {
			cmds = append(cmds, m.fetchCmd(req))
		}
		return m, tea.Batch(cmds...)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		if m.inputOn {
			return m.handleInputKey(msg)
		}
		return m.handleKey(msg)
	}

	if m.inputOn {
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m Model) handleInputKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		m.inputOn = false
		m.input.Blur()
		req, ok := m.ctrl.Search(m.input.Value())
		if !ok {
			return m, nil
		}
		return m, m.fetchCmd(req)
	case "esc":
		m.inputOn = false
		m.input.Blur()
		m.input.Reset()
		if req, ok := m.ctrl.Search(""); ok {
			return m, m.fetchCmd(req)
		}
		return m, nil
	case "ctrl+c":
		return m, tea.Quit
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	st := m.ctrl.State()

	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit

	case "tab", "shift+tab":
		dir := 1
		if msg.String() == "shift+tab" {
			dir = -1
		}
		current := st.ProjectFilter
		if st.Searching || st.LabelFilter != "" {
			// Leaving search or label mode returns to the filter that was active.
			dir = 0
		}
		req, _ := m.ctrl.SetProjectFilter(cycleFilter(m.projects, current, dir))
		m.input.Reset()
		return m, m.fetchCmd(req)

	case "l", "L":
		dir := 1
		if msg.String() == "L" {
			dir = -1
		}
		req, ok := m.ctrl.ShowLabel(string(cycleLabel(st.LabelFilter, dir)))
		if !ok {
			return m, nil
		}
		m.input.Reset()
		return m, m.fetchCmd(req)

	case "/":
		m.inputOn = true
		m.input.SetValue(st.SearchTerm)
		m.input.CursorEnd()
		return m, m.input.Focus()

	case "esc":
		if st.Selection.Active() {
			m.ctrl.ClearSelection()
			return m, nil
		}
		m.input.Reset()
		if req, ok := m.ctrl.Search(""); ok {
			return m, m.fetchCmd(req)
		}
		return m, nil

	case "r":
		req, _ := m.ctrl.Refresh()
		m.setStatus("refreshing", false)
		return m, m.fetchCmd(req)

	case "+", "=":
		m.setStatus(fmt.Sprintf("zoom %.2fx", m.ctrl.SetZoom(st.Zoom*zoomStep)), false)
	case "-", "_":
		m.setStatus(fmt.Sprintf("zoom %.2fx", m.ctrl.SetZoom(st.Zoom/zoomStep)), false)
	case "0":
		m.setStatus(fmt.Sprintf("zoom %.2fx", m.ctrl.SetZoom(1)), false)

	case "j", "down":
		if n := st.Snapshot.NodeCount(); n > 0 {
			m.cursor = (m.cursor + 1) % n
		}
	case "k", "up":
		if n := st.Snapshot.NodeCount(); n > 0 {
			m.cursor = (m.cursor - 1 + n) % n
		}

	case " ", "space":
		if id, ok := m.cursorID(st); ok {
			sel := m.ctrl.Select(id)
			if selID, on := sel.ID(); on {
				m.setStatus("selected "+selID, false)
			} else {
				m.setStatus("selection cleared", false)
			}
		}

	case "y":
		id, ok := st.Selection.ID()
		if !ok {
			id, ok = m.cursorID(st)
		}
		if !ok {
			return m, nil
		}
		if err := m.copy(id); err != nil {
			m.setStatus(fmt.Sprintf("clipboard error: %v", err), true)
		} else {
			m.setStatus("copied "+id+" to clipboard", false)
		}

	case "d":
		m.showInfo = !m.showInfo
		cols, rows := m.canvasSize()
		m.ctrl.SetCanvas(float64(cols*cellWidth), float64(rows*cellHeight))
	}
	return m, nil
}

func (m *Model) setStatus(s string, isErr bool) {
	m.status, m.statusErr = s, isErr
}

func (m Model) cursorID(st view.State) (string, bool) {
	if m.cursor < 0 || m.cursor >= len(st.Snapshot.Nodes) {
		return "", false
	}
	return st.Snapshot.Nodes[m.cursor].ID, true
}

// canvasSize returns the graph area in cells.
func (m Model) canvasSize() (int, int) {
	cols := m.width
	if m.showInfo {
		cols -= detailsWidth
	}
	return max(cols, 10), max(m.height-headerLines-footerLines, 3)
}

func (m Model) View() string {
	defer metrics.Timer(metrics.UIRender)()

	st := m.ctrl.State()
	sc := m.ctrl.Scene()
	cols, rows := m.canvasSize()

	header := m.renderHeader(st, sc)
	tabs := renderProjectBar(m.projects, st.ProjectFilter, st.Searching || st.LabelFilter != "", m.width, m.theme)

	var body string
	switch {
	case st.Err != nil:
		body = m.renderMessage(m.theme.Error.Render("error: "+st.Err.Error()), cols, rows)
	case len(sc.Nodes) == 0 && st.Loading:
		body = m.renderMessage(m.spin.View()+" loading graph", cols, rows)
	case len(sc.Nodes) == 0:
		body = m.renderMessage(m.theme.Muted.Render("no graph data for "+st.Title()), cols, rows)
	default:
		cursor, _ := m.cursorID(st)
		body = rasterize(sc, cols, rows, cursor).render(m.theme)
	}

	if m.showInfo {
		id, selected := st.Selection.ID()
		if !selected {
			id, _ = m.cursorID(st)
		}
		m.details.setWidth(detailsWidth - 2)
		pane := m.theme.Panel.
			Width(detailsWidth - 2).
			Height(rows - 2).
			MaxHeight(rows).
			Render(m.details.render(st.Snapshot, st.Generation, id, selected))
		body = lipgloss.JoinHorizontal(lipgloss.Top, body, pane)
	}

	return strings.Join([]string{header, tabs, body, m.renderFooter()}, "\n")
}

func (m Model) renderHeader(st view.State, sc scene.Scene) string {
	left := m.theme.Header.Render("cg") + " " + m.theme.Title.Render(truncate(sc.Summary.Title, 40))
	parts := []string{
		fmt.Sprintf("%d nodes", sc.Summary.NodeCount),
		fmt.Sprintf("%d edges", sc.Summary.EdgeCount),
		fmt.Sprintf("%d components", sc.Summary.Components),
		fmt.Sprintf("zoom %.2fx", sc.Zoom),
	}
	if sc.Summary.DanglingEdges > 0 {
		parts = append(parts, fmt.Sprintf("%d dangling", sc.Summary.DanglingEdges))
	}
	if sc.Summary.Selected != "" {
		parts = append(parts, "selected "+sc.Summary.Selected)
	}
	right := m.theme.Muted.Render(strings.Join(parts, " · "))
	if st.Loading {
		right = m.spin.View() + " " + right
	}
	gap := m.width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 1 {
		return left
	}
	return left + strings.Repeat(" ", gap) + right
}

func (m Model) renderFooter() string {
	if m.inputOn {
		return m.input.View()
	}
	if m.status != "" {
		style := m.theme.Info
		if m.statusErr {
			style = m.theme.Error
		}
		return style.Render(truncate(m.status, m.width))
	}
	return m.theme.Muted.Render(truncate("tab project · l label · / search · j/k move · space select · +/- zoom · d details · y copy · r refresh · q quit", m.width))
}

// renderMessage centers a one-line message in the canvas area.
func (m Model) renderMessage(msg string, cols, rows int) string {
	return lipgloss.Place(cols, rows, lipgloss.Center, lipgloss.Center, msg)
}
