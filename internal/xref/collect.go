package xref

import (
	"strings"

	"github.com/cybertec-postgresql/rbxref/internal/index"
	"github.com/cybertec-postgresql/rbxref/internal/lexer"
)

// SymbolCollector gathers symbol occurrences with their line numbers.
type SymbolCollector struct {
	// IncludeKeywords keeps keyword occurrences as well.
	IncludeKeywords bool

	line      int
	symbols   []index.Symbol
	lastIsSym bool
}

// NewSymbolCollector creates an empty collector.
func NewSymbolCollector() *SymbolCollector {
	return &SymbolCollector{line: 1}
}

func (c *SymbolCollector) Offer(string) { c.lastIsSym = false }

func (c *SymbolCollector) OfferSymbol(text string, offset int, keyword bool) {
	c.lastIsSym = false
	if keyword && !c.IncludeKeywords {
		return
	}
	c.symbols = append(c.symbols, index.Symbol{
		Name:    index.NormalizeName(text),
		Offset:  offset,
		Line:    c.line,
		Keyword: keyword,
	})
	c.lastIsSym = true
}

func (c *SymbolCollector) DisjointSpan(string) { c.lastIsSym = false }

func (c *SymbolCollector) StartNewLine() {
	c.line++
	c.lastIsSym = false
}

// SkipSymbol drops the symbol just offered, if any.
func (c *SymbolCollector) SkipSymbol() {
	if c.lastIsSym {
		c.symbols = c.symbols[:len(c.symbols)-1]
		c.lastIsSym = false
	}
}

// Symbols returns the collected occurrences in source order.
func (c *SymbolCollector) Symbols() []index.Symbol {
	return c.symbols
}

// LineCounter counts total lines and lines of code. A line of code has
// non-blank content outside comment spans.
type LineCounter struct {
	class   string
	lines   int
	loc     int
	content bool // current line has any text
	code    bool // current line has code
}

func (l *LineCounter) offer(text string) {
	if text == "" {
		return
	}
	l.content = true
	if l.class != lexer.CommentClass && strings.TrimSpace(text) != "" {
		l.code = true
	}
}

func (l *LineCounter) Offer(text string)                      { l.offer(text) }
func (l *LineCounter) OfferSymbol(text string, _ int, _ bool) { l.offer(text) }
func (l *LineCounter) OfferLink(url string)                   { l.offer(url) }
func (l *LineCounter) DisjointSpan(class string)              { l.class = class }
func (l *LineCounter) SkipSymbol()                            {}

func (l *LineCounter) StartNewLine() {
	l.lines++
	if l.code {
		l.loc++
	}
	l.content, l.code = false, false
}

// Lines returns the number of lines seen, counting an unterminated last line.
func (l *LineCounter) Lines() int {
	if l.content {
		return l.lines + 1
	}
	return l.lines
}

// LOC returns the number of lines of code.
func (l *LineCounter) LOC() int {
	if l.code {
		return l.loc + 1
	}
	return l.loc
}
