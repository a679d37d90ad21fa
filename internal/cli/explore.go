package cli

import (
	"context"
	"fmt"
	"strings"
	"sync"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	errs "github.com/matzehuels/graftwood/pkg/errors"
	"github.com/matzehuels/graftwood/pkg/mount"
	"github.com/matzehuels/graftwood/pkg/render"
	"github.com/matzehuels/graftwood/pkg/tree"
)

// List styles
var (
	listSelectedStyle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	listNormalStyle   = lipgloss.NewStyle().Foreground(colorWhite)
	listDimStyle      = lipgloss.NewStyle().Foreground(colorDim)
	listFailedStyle   = lipgloss.NewStyle().Foreground(colorRed)
)

// exploreCommand creates the interactive tree browser.
func (c *CLI) exploreCommand() *cobra.Command {
	var params map[string]string

	cmd := &cobra.Command{
		Use:   "explore <source>",
		Short: "Browse a tree interactively, resolving branches on demand",
		Long: `Browse a tree interactively.

Keys:
  ↑/↓ k/j   move
  →/l ⏎     expand (lazy branches are fetched and grafted in place)
  ←/h       collapse, or jump to the parent
  f         follow the node's continuation as a new document
  b ⌫       back to the previous document
  q         quit`,
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: completeSource,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runExplore(cmd.Context(), args[0], params)
		},
	}
	cmd.Flags().StringToStringVarP(&params, "param", "p", nil, "provider parameter key=value (repeatable)")
	return cmd
}

func (c *CLI) runExplore(ctx context.Context, src string, params map[string]string) error {
	ws, err := c.open(ctx)
	if err != nil {
		return err
	}
	defer ws.Close()

	e, reg := ws.newEngine()
	defer reg.Close()
	sink := &messageSink{}
	e.Sink = sink

	t, err := c.buildTree(ctx, e, src, params, 0)
	if err != nil {
		return err
	}

	m := newExploreModel(ctx, e, sink, t)
	_, err = tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx)).Run()
	return err
}

// =============================================================================
// Messages
// =============================================================================

// messageSink keeps provider messages until the model shows them. Providers
// report from resolve commands, which run off the event loop.
type messageSink struct {
	mu       sync.Mutex
	messages []string
}

func (s *messageSink) Progress(string) {}

func (s *messageSink) Message(text string) {
	s.mu.Lock()
	s.messages = append(s.messages, text)
	s.mu.Unlock()
}

func (s *messageSink) drain() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.messages
	s.messages = nil
	return out
}

// resolvedMsg reports the end of a mount resolution.
type resolvedMsg struct {
	id  string
	err error
}

// openedMsg reports a followed continuation.
type openedMsg struct {
	source string
	tree   *tree.Tree
	err    error
}

// =============================================================================
// ExploreModel - Interactive tree browser
// =============================================================================

// exploreRow is one visible line. Rows are computed on the event loop so
// View never reads the tree while a resolve command is grafting into it.
type exploreRow struct {
	id     string
	depth  int
	text   string
	open   bool
	branch bool
	failed bool
}

// view is one document on the follow stack.
type view struct {
	tree   *tree.Tree
	title  string
	source string
	open   map[string]bool
	cursor int
	offset int
}

// ExploreModel is the bubbletea model for browsing a lazily grown tree.
type ExploreModel struct {
	ctx    context.Context
	engine *mount.Engine
	sink   *messageSink

	stack  []*view
	rows   []exploreRow
	height int
	busy   string
	status string
	failed bool
}

func newExploreModel(ctx context.Context, e *mount.Engine, sink *messageSink, t *tree.Tree) *ExploreModel {
	m := &ExploreModel{ctx: ctx, engine: e, sink: sink, height: 20}
	m.push(t)
	return m
}

func (m *ExploreModel) current() *view { return m.stack[len(m.stack)-1] }

func (m *ExploreModel) push(t *tree.Tree) {
	m.stack = append(m.stack, &view{
		tree:   t,
		title:  t.Root().Label,
		source: t.Source(),
		open:   map[string]bool{t.RootID(): true},
	})
	m.refresh()
}

// refresh recomputes the visible rows from the current tree.
func (m *ExploreModel) refresh() {
	v := m.current()
	m.rows = m.rows[:0]
	var visit func(id string, depth int)
	visit = func(id string, depth int) {
		n, ok := v.tree.Node(id)
		if !ok {
			return
		}
		children := v.tree.Children(id)
		row := exploreRow{
			id:     id,
			depth:  depth,
			text:   render.OutlineLine(n),
			open:   v.open[id],
			branch: len(children) > 0,
			failed: n.Mount != nil && n.Mount.State == tree.MountFailed,
		}
		m.rows = append(m.rows, row)
		if !row.open {
			return
		}
		for _, c := range children {
			visit(c, depth+1)
		}
	}
	visit(v.tree.RootID(), 0)
	if v.cursor >= len(m.rows) {
		v.cursor = len(m.rows) - 1
	}
	m.scroll()
}

func (m *ExploreModel) scroll() {
	v := m.current()
	if v.cursor < v.offset {
		v.offset = v.cursor
	}
	if v.cursor >= v.offset+m.height {
		v.offset = v.cursor - m.height + 1
	}
}

func (m *ExploreModel) selected() exploreRow { return m.rows[m.current().cursor] }

func (m *ExploreModel) Init() tea.Cmd {
	return nil
}

func (m *ExploreModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.key(msg.String())
	case tea.WindowSizeMsg:
		m.height = max(msg.Height-6, 5)
		m.scroll()
	case resolvedMsg:
		m.busy = ""
		m.setStatus(msg.err)
		if msg.err == nil {
			v := m.current()
			v.open[msg.id] = true
			for _, c := range v.tree.Children(msg.id) {
				v.open[c] = true
			}
		}
		m.refresh()
	case openedMsg:
		m.busy = ""
		m.setStatus(msg.err)
		if msg.err == nil {
			m.push(msg.tree)
			m.status = "Opened " + msg.source
		}
	}
	return m, nil
}

func (m *ExploreModel) key(k string) (tea.Model, tea.Cmd) {
	if k == "q" || k == "ctrl+c" {
		return m, tea.Quit
	}
	if m.busy != "" {
		return m, nil
	}
	v := m.current()
	switch k {
	case "up", "k":
		if v.cursor > 0 {
			v.cursor--
			m.scroll()
		}
	case "down", "j":
		if v.cursor < len(m.rows)-1 {
			v.cursor++
			m.scroll()
		}
	case "right", "l", "enter":
		return m, m.expand()
	case "left", "h":
		m.collapse()
	case "f":
		return m, m.follow()
	case "b", "backspace":
		if len(m.stack) > 1 {
			m.engine.Leave(v.tree.Source())
			m.stack = m.stack[:len(m.stack)-1]
			m.status = ""
			m.refresh()
		}
	}
	return m, nil
}

// expand opens a branch, or starts resolving a mount point.
func (m *ExploreModel) expand() tea.Cmd {
	row, v := m.selected(), m.current()
	n, _ := v.tree.Node(row.id)
	if n.Mount == nil {
		if row.branch && !row.open {
			v.open[row.id] = true
			m.refresh()
		}
		return nil
	}
	m.busy = fmt.Sprintf("Resolving %s", n.Label)
	ctx, e, t, id := m.ctx, m.engine, v.tree, row.id
	return func() tea.Msg {
		return resolvedMsg{id: id, err: e.Resolve(ctx, t, id)}
	}
}

func (m *ExploreModel) collapse() {
	row, v := m.selected(), m.current()
	if row.open && row.branch {
		v.open[row.id] = false
		m.refresh()
		return
	}
	parent, ok := v.tree.Parent(row.id)
	if !ok {
		return
	}
	for i, r := range m.rows {
		if r.id == parent {
			v.cursor = i
			m.scroll()
			return
		}
	}
}

// follow opens the selected node's continuation as a new top-level document.
// The provider's recursion guard refuses to reopen the document it was last
// opened with.
func (m *ExploreModel) follow() tea.Cmd {
	row, v := m.selected(), m.current()
	n, _ := v.tree.Node(row.id)
	if n.Mount == nil {
		m.status, m.failed = "Node has no continuation", true
		return nil
	}
	target, err := mount.ResolveReference(v.tree.Source(), n.Mount.Continuation)
	if err != nil {
		m.setStatus(errs.Wrap(errs.ErrCodeInvalidSource, err, "follow %s", n.Mount.Continuation))
		return nil
	}
	m.busy = fmt.Sprintf("Opening %s", target)
	ctx, e := m.ctx, m.engine
	return func() tea.Msg {
		t, err := e.Open(ctx, target, nil)
		return openedMsg{source: target, tree: t, err: err}
	}
}

func (m *ExploreModel) setStatus(err error) {
	msgs := m.sink.drain()
	switch {
	case err != nil:
		m.status, m.failed = errs.UserMessage(err), true
	case len(msgs) > 0:
		m.status, m.failed = msgs[len(msgs)-1], false
	default:
		m.status, m.failed = "", false
	}
}

func (m *ExploreModel) View() string {
	var b strings.Builder
	v := m.current()

	b.WriteString(StyleTitle.Render(v.title))
	b.WriteString(" ")
	b.WriteString(listDimStyle.Render(v.source))
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render("↑/↓ move  → expand  ← collapse  f follow  b back  q quit"))
	b.WriteString("\n\n")

	end := min(v.offset+m.height, len(m.rows))
	for i := v.offset; i < end; i++ {
		r := m.rows[i]
		marker := "  "
		switch {
		case r.branch && r.open:
			marker = "▾ "
		case r.branch:
			marker = "▸ "
		}
		line := strings.Repeat("  ", r.depth) + marker + r.text
		switch {
		case i == v.cursor:
			b.WriteString(listSelectedStyle.Render(line))
		case r.failed:
			b.WriteString(listFailedStyle.Render(line))
		default:
			b.WriteString(listNormalStyle.Render(line))
		}
		b.WriteString("\n")
	}

	b.WriteString("\n")
	switch {
	case m.busy != "":
		b.WriteString(styleIconSpinner.Render("…") + " " + listDimStyle.Render(m.busy))
	case m.status != "" && m.failed:
		b.WriteString(styleIconError.Render(iconError) + " " + m.status)
	case m.status != "":
		b.WriteString(styleIconInfo.Render(iconInfo) + " " + m.status)
	default:
		b.WriteString(listDimStyle.Render(fmt.Sprintf("  [%d/%d]", v.cursor+1, len(m.rows))))
	}
	return b.String()
}
