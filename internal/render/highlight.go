package render

import (
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/charmbracelet/lipgloss"

	"github.com/sadopc/monetdialect/internal/theme"
)

// Highlighter colors SQL text with chroma tokens and theme styles.
type Highlighter struct {
	lexer chroma.Lexer
	th    *theme.Theme
}

// NewHighlighter returns a Highlighter for th. A nil theme disables
// coloring.
func NewHighlighter(th *theme.Theme) *Highlighter {
	l := lexers.Get("SQL")
	if l == nil {
		l = lexers.Fallback
	}
	return &Highlighter{lexer: chroma.Coalesce(l), th: th}
}

// Highlight returns sql with each token styled. Newlines are written
// unstyled so multi-line view definitions keep their layout.
func (h *Highlighter) Highlight(sql string) string {
	if h == nil || h.th == nil {
		return sql
	}
	iter, err := h.lexer.Tokenise(nil, sql)
	if err != nil {
		return sql
	}

	var b strings.Builder
	b.Grow(len(sql) * 2)
	for _, tok := range iter.Tokens() {
		if tok.Value == "" {
			continue
		}
		style, ok := h.styleFor(tok.Type)
		if !ok {
			b.WriteString(tok.Value)
			continue
		}
		for i, line := range strings.Split(tok.Value, "\n") {
			if i > 0 {
				b.WriteByte('\n')
			}
			if line != "" {
				b.WriteString(style.Render(line))
			}
		}
	}
	return b.String()
}

func (h *Highlighter) styleFor(tt chroma.TokenType) (lipgloss.Style, bool) {
	th := h.th
	switch {
	case tt == chroma.KeywordType:
		return th.SQLType, true
	case tt == chroma.NameFunction || tt == chroma.NameBuiltin:
		return th.SQLFunction, true
	case tt.InCategory(chroma.Keyword):
		return th.SQLKeyword, true
	case tt.InSubCategory(chroma.LiteralString):
		return th.SQLString, true
	case tt.InSubCategory(chroma.LiteralNumber):
		return th.SQLNumber, true
	case tt.InCategory(chroma.Comment):
		return th.SQLComment, true
	case tt.InCategory(chroma.Operator):
		return th.SQLOperator, true
	}
	return lipgloss.Style{}, false
}
