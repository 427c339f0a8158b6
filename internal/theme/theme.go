// Package theme holds the lipgloss styles used for SQL highlighting and the
// interactive browser.
package theme

import "github.com/charmbracelet/lipgloss"

// Theme is a named set of styles.
type Theme struct {
	Name string

	// SQL syntax highlighting
	SQLKeyword  lipgloss.Style
	SQLString   lipgloss.Style
	SQLNumber   lipgloss.Style
	SQLComment  lipgloss.Style
	SQLOperator lipgloss.Style
	SQLFunction lipgloss.Style
	SQLType     lipgloss.Style

	// Browser
	Title    lipgloss.Style
	Header   lipgloss.Style
	Selected lipgloss.Style
	Border   lipgloss.Style
	Muted    lipgloss.Style
	Error    lipgloss.Style
}

// palette is the handful of colors a theme is derived from.
type palette struct {
	keyword, str, number, comment, operator, function, typ string
	accent, selectedFg, selectedBg, border, muted, err     string
}

func build(name string, p palette) *Theme {
	fg := func(c string) lipgloss.Style { return lipgloss.NewStyle().Foreground(lipgloss.Color(c)) }
	return &Theme{
		Name: name,

		SQLKeyword:  fg(p.keyword).Bold(true),
		SQLString:   fg(p.str),
		SQLNumber:   fg(p.number),
		SQLComment:  fg(p.comment).Italic(true),
		SQLOperator: fg(p.operator),
		SQLFunction: fg(p.function),
		SQLType:     fg(p.typ),

		Title:  fg(p.accent).Bold(true).PaddingLeft(1),
		Header: fg(p.accent).Bold(true).BorderStyle(lipgloss.NormalBorder()).BorderBottom(true).BorderForeground(lipgloss.Color(p.border)),
		Selected: lipgloss.NewStyle().Bold(true).
			Foreground(lipgloss.Color(p.selectedFg)).
			Background(lipgloss.Color(p.selectedBg)),
		Border: lipgloss.NewStyle().BorderStyle(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color(p.border)),
		Muted:  fg(p.muted),
		Error:  fg(p.err).Bold(true),
	}
}

// Themes maps theme names to their definitions.
var Themes = map[string]*Theme{
	"default": build("default", palette{
		keyword: "#569CD6", str: "#CE9178", number: "#B5CEA8", comment: "#6A9955",
		operator: "#D4D4D4", function: "#DCDCAA", typ: "#4EC9B0",
		accent: "#569CD6", selectedFg: "#FFFFFF", selectedBg: "#264F78",
		border: "#3C3C3C", muted: "#808080", err: "#F44747",
	}),
	"light": build("light", palette{
		keyword: "#0000FF", str: "#A31515", number: "#098658", comment: "#008000",
		operator: "#000000", function: "#795E26", typ: "#267F99",
		accent: "#0451A5", selectedFg: "#FFFFFF", selectedBg: "#0060C0",
		border: "#D4D4D4", muted: "#A0A0A0", err: "#CD3131",
	}),
	"monokai": build("monokai", palette{
		keyword: "#F92672", str: "#E6DB74", number: "#AE81FF", comment: "#75715E",
		operator: "#F92672", function: "#A6E22E", typ: "#66D9EF",
		accent: "#A6E22E", selectedFg: "#F8F8F2", selectedBg: "#49483E",
		border: "#49483E", muted: "#75715E", err: "#F92672",
	}),
}

// Default returns the default dark theme.
func Default() *Theme {
	return Themes["default"]
}

// Get returns the named theme, falling back to Default.
func Get(name string) *Theme {
	if t, ok := Themes[name]; ok {
		return t
	}
	return Default()
}
