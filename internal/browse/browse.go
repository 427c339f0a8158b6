// Package browse is an interactive terminal browser over a reflected schema
// snapshot.
package browse

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/sadopc/monetdialect/internal/render"
	"github.com/sadopc/monetdialect/internal/schema"
	"github.com/sadopc/monetdialect/internal/theme"
)

const minTreeWidth = 24

// Model is the root bubbletea model of the browser.
type Model struct {
	snap *schema.Snapshot
	th   *theme.Theme
	hl   *render.Highlighter
	keys KeyMap
	help help.Model

	nodes  []*TreeNode
	flat   []*TreeNode
	cursor int
	offset int
	width  int
	height int

	columns table.Model
}

// New creates a browser over snap. hl may be nil.
func New(snap *schema.Snapshot, th *theme.Theme, hl *render.Highlighter) Model {
	if th == nil {
		th = theme.Default()
	}
	cols := table.New(
		table.WithColumns(columnHeaders(40)),
		table.WithFocused(false),
	)
	styles := table.DefaultStyles()
	styles.Header = th.Header
	styles.Selected = lipgloss.NewStyle()
	cols.SetStyles(styles)

	m := Model{
		snap:    snap,
		th:      th,
		hl:      hl,
		keys:    DefaultKeyMap(),
		help:    help.New(),
		nodes:   buildTree(snap),
		columns: cols,
	}
	m.flat = flatten(m.nodes)
	m.syncDetail()
	return m
}

// Run starts the browser on the alternate screen and blocks until it quits.
func Run(snap *schema.Snapshot, th *theme.Theme, hl *render.Highlighter) error {
	_, err := tea.NewProgram(New(snap, th, hl), tea.WithAltScreen()).Run()
	return err
}

// Init returns no initial command.
func (m Model) Init() tea.Cmd {
	return nil
}

// Update handles window and key messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.help.Width = msg.Width
		m.syncDetail()

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.Help):
			m.help.ShowAll = !m.help.ShowAll
		case key.Matches(msg, m.keys.Up):
			if m.cursor > 0 {
				m.cursor--
			}
		case key.Matches(msg, m.keys.Down):
			if m.cursor < len(m.flat)-1 {
				m.cursor++
			}
		case key.Matches(msg, m.keys.Top):
			m.cursor = 0
		case key.Matches(msg, m.keys.Bottom):
			m.cursor = len(m.flat) - 1
		case key.Matches(msg, m.keys.Expand):
			if n := m.selected(); n != nil && len(n.Children) > 0 {
				n.Expanded = !n.Expanded
				m.reflatten(n)
			}
		case key.Matches(msg, m.keys.Collapse):
			m.collapse()
		}
		m.ensureVisible()
		m.syncDetail()
	}
	return m, nil
}

func (m Model) selected() *TreeNode {
	if m.cursor < 0 || m.cursor >= len(m.flat) {
		return nil
	}
	return m.flat[m.cursor]
}

// collapse closes the selected node, or moves to its parent when it is a
// leaf or already closed.
func (m *Model) collapse() {
	n := m.selected()
	if n == nil {
		return
	}
	if n.Expanded {
		n.Expanded = false
		m.reflatten(n)
		return
	}
	for i := m.cursor - 1; i >= 0; i-- {
		if m.flat[i].Depth < n.Depth {
			m.cursor = i
			return
		}
	}
}

// reflatten rebuilds the visible list and keeps the cursor on keep.
func (m *Model) reflatten(keep *TreeNode) {
	m.flat = flatten(m.nodes)
	for i, n := range m.flat {
		if n == keep {
			m.cursor = i
			return
		}
	}
	if m.cursor >= len(m.flat) {
		m.cursor = len(m.flat) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

func (m Model) treeWidth() int {
	w := m.width / 3
	if w < minTreeWidth {
		w = minTreeWidth
	}
	return w
}

// treeHeight is the number of node lines that fit inside the tree border.
func (m Model) treeHeight() int {
	h := m.height - 3
	if h < 1 {
		h = 1
	}
	return h
}

func (m *Model) ensureVisible() {
	h := m.treeHeight()
	if m.cursor < m.offset {
		m.offset = m.cursor
	}
	if m.cursor >= m.offset+h {
		m.offset = m.cursor - h + 1
	}
}

func columnHeaders(width int) []table.Column {
	name := width / 4
	if name < 8 {
		name = 8
	}
	return []table.Column{
		{Title: "Column", Width: name},
		{Title: "Type", Width: name},
		{Title: "Null", Width: 4},
		{Title: "Default", Width: name},
	}
}

// syncDetail loads the columns of the selected table into the detail table.
func (m *Model) syncDetail() {
	detailW := m.width - m.treeWidth() - 4
	if detailW < 20 {
		detailW = 20
	}
	m.columns.SetRows(nil)
	m.columns.SetColumns(columnHeaders(detailW))
	m.columns.SetWidth(detailW)

	t, ok := m.selectedTable()
	if !ok {
		return
	}
	rows := make([]table.Row, 0, len(t.Columns))
	for _, c := range t.Columns {
		null := "no"
		if c.Nullable {
			null = "yes"
		}
		def := ""
		if c.Default != nil {
			def = *c.Default
		}
		rows = append(rows, table.Row{c.Name, c.Type.String(), null, def})
	}
	m.columns.SetRows(rows)
	h := len(rows) + 3
	if limit := m.height - 8; limit > 2 && h > limit {
		h = limit
	}
	m.columns.SetHeight(h)
}

func (m Model) selectedTable() (schema.Table, bool) {
	n := m.selected()
	if n == nil || m.snap == nil || (n.Kind != NodeTable && n.Kind != NodeColumn) {
		return schema.Table{}, false
	}
	return m.snap.Tables[n.Ref], true
}

// View renders the tree, the detail pane and the help line.
func (m Model) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}
	tw := m.treeWidth()
	tree := m.th.Border.Width(tw - 2).Height(m.treeHeight() + 1).Render(m.viewTree(tw - 2))
	detail := lipgloss.NewStyle().PaddingLeft(1).Render(m.viewDetail())
	body := lipgloss.JoinHorizontal(lipgloss.Top, tree, detail)
	return lipgloss.JoinVertical(lipgloss.Left, body, m.help.View(m.keys))
}

func (m Model) viewTree(width int) string {
	schemaName := ""
	if m.snap != nil {
		schemaName = m.snap.Schema
	}
	lines := []string{m.th.Title.Render("schema " + schemaName)}

	end := m.offset + m.treeHeight()
	if end > len(m.flat) {
		end = len(m.flat)
	}
	for i := m.offset; i < end; i++ {
		lines = append(lines, m.renderNode(m.flat[i], i == m.cursor, width))
	}
	return strings.Join(lines, "\n")
}

func (m Model) renderNode(n *TreeNode, selected bool, width int) string {
	marker := "  "
	if len(n.Children) > 0 {
		if n.Expanded {
			marker = "▼ "
		} else {
			marker = "▶ "
		}
	}
	line := strings.Repeat("  ", n.Depth) + marker + n.Label

	line = runewidth.Truncate(line, width, "…")

	switch {
	case selected:
		return m.th.Selected.Render(line)
	case n.IsPK:
		return lipgloss.NewStyle().Bold(true).Render(line)
	case n.Kind == NodeColumn:
		return m.th.Muted.Render(line)
	}
	return line
}

func (m Model) viewDetail() string {
	n := m.selected()
	if n == nil || m.snap == nil {
		return m.th.Muted.Render("Nothing reflected.")
	}

	switch n.Kind {
	case NodeTable, NodeColumn:
		t := m.snap.Tables[n.Ref]
		parts := []string{m.th.Title.Render(t.Name), m.columns.View()}
		if keys := keyLines(t); len(keys) > 0 {
			parts = append(parts, "", strings.Join(keys, "\n"))
		}
		return strings.Join(parts, "\n")

	case NodeView:
		v := m.snap.Views[n.Ref]
		def := strings.TrimSpace(v.Definition)
		if m.hl != nil {
			def = m.hl.Highlight(def)
		}
		return m.th.Title.Render(v.Name) + "\n\n" + def

	case NodeSequence:
		s := m.snap.Sequences[n.Ref]
		return m.th.Title.Render(s.Name) + "\n\n" + fmt.Sprintf("id %d, schema id %d", s.ID, s.SchemaID)
	}
	return m.th.Muted.Render(n.Label)
}

// keyLines summarizes the constraints and indexes of t.
func keyLines(t schema.Table) []string {
	var lines []string
	if !t.PrimaryKey.IsZero() {
		lines = append(lines, fmt.Sprintf("PRIMARY KEY %s (%s)", t.PrimaryKey.Name, strings.Join(t.PrimaryKey.ConstrainedColumns, ", ")))
	}
	for _, u := range t.Uniques {
		lines = append(lines, fmt.Sprintf("UNIQUE %s (%s)", u.Name, strings.Join(u.ColumnNames, ", ")))
	}
	for _, fk := range t.ForeignKeys {
		lines = append(lines, fmt.Sprintf("FOREIGN KEY %s (%s) -> %s.%s(%s)",
			fk.Name, strings.Join(fk.ConstrainedColumns, ", "),
			fk.ReferredSchema, fk.ReferredTable, strings.Join(fk.ReferredColumns, ", ")))
	}
	for _, ix := range t.Indexes {
		lines = append(lines, fmt.Sprintf("INDEX %s (%s)", ix.Name, strings.Join(ix.ColumnNames, ", ")))
	}
	return lines
}
