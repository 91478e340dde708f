package lexer

import (
	"strings"
	"sync"

	"github.com/dlclark/regexp2"
)

// OperatorKind classifies the operator that opened a quote.
type OperatorKind int

const (
	OpNone       OperatorKind = iota // plain quotes: ' " `
	OpQuote                          // q qq %q %Q %()
	OpWords                          // qw %w %W %i %I
	OpMatch                          // m qr %r and the bare /regex/ shorthand
	OpSubstitute                     // s tr y
	OpCommand                        // qx %x
	OpSymbol                         // %s
)

// String returns a string representation of OperatorKind
func (k OperatorKind) String() string {
	switch k {
	case OpNone:
		return "none"
	case OpQuote:
		return "quote"
	case OpWords:
		return "words"
	case OpMatch:
		return "match"
	case OpSubstitute:
		return "substitute"
	case OpCommand:
		return "command"
	case OpSymbol:
		return "symbol"
	default:
		return "unknown"
	}
}

// AcceptsModifiers reports whether trailing letters after the closing
// delimiter belong to the operator (e.g. /x/im).
func (k OperatorKind) AcceptsModifiers() bool {
	return k == OpMatch || k == OpSubstitute
}

// KindOf maps an operator name as written in source to its kind. A leading
// '%' selects the Ruby percent-literal family.
func KindOf(name string) OperatorKind {
	if name == "" {
		return OpNone
	}
	if strings.HasPrefix(name, "%") {
		switch name[1:] {
		case "", "q", "Q":
			return OpQuote
		case "w", "W", "i", "I":
			return OpWords
		case "r":
			return OpMatch
		case "x":
			return OpCommand
		case "s":
			return OpSymbol
		}
		return OpQuote
	}
	switch name {
	case "q", "qq":
		return OpQuote
	case "qw":
		return OpWords
	case "m", "qr":
		return OpMatch
	case "s", "tr", "y":
		return OpSubstitute
	case "qx":
		return OpCommand
	}
	return OpQuote
}

// NestingState holds the per-context quote counters.
//
// EndChar is zero iff no quote is open. RemainingClosers is meaningful only
// while a quote is open. Delimiters change only through setDelimiters, which
// drops the cached collateral pattern.
type NestingState struct {
	// Operator is the operator name of the most recent quote. It is kept
	// after the quote closes so modifiers can still be recognised.
	Operator string
	Kind     OperatorKind

	EndChar  rune
	NestChar rune

	RemainingClosers    int
	PendingInterpBraces int

	collateral *CollateralPattern
}

// QuoteOpen reports whether a quote is currently open.
func (s *NestingState) QuoteOpen() bool {
	return s.EndChar != 0
}

// InterpolationPending reports whether the context is inside #{...}.
func (s *NestingState) InterpolationPending() bool {
	return s.PendingInterpBraces > 0
}

func (s *NestingState) setDelimiters(end, nest rune) {
	s.EndChar = end
	s.NestChar = nest
	s.collateral = nil
}

// delimitersFor maps the opening character of a quote body to its nesting
// and closing characters.
func delimitersFor(opener rune) (nest, end rune) {
	switch opener {
	case '[':
		return '[', ']'
	case '<':
		return '<', '>'
	case '(':
		return '(', ')'
	case '{':
		return '{', '}'
	}
	return 0, opener
}

// CollateralPattern finds the next end or nest character of a quote that is
// not escaped by an odd run of backslashes.
type CollateralPattern struct {
	end, nest rune
	re        *regexp2.Regexp
}

// Next returns the byte index in text of the next meaningful delimiter, or
// -1 when there is none.
func (p *CollateralPattern) Next(text string) int {
	m, err := p.re.FindStringMatch(text)
	if err != nil || m == nil {
		return -1
	}
	// regexp2 reports rune indexes.
	return runeIndexToByte(text, m.Index)
}

// String returns the pattern source.
func (p *CollateralPattern) String() string {
	return p.re.String()
}

type delimiterPair struct {
	end, nest rune
}

// compiled patterns are immutable and shared by all scans.
var collateralPatterns sync.Map

func collateralFor(end, nest rune) *CollateralPattern {
	key := delimiterPair{end, nest}
	if p, ok := collateralPatterns.Load(key); ok {
		return p.(*CollateralPattern)
	}
	alt := regexp2.Escape(string(end))
	if nest != 0 {
		alt += "|" + regexp2.Escape(string(nest))
	}
	expr := `(?<=(?:^|[^\\])(?:\\\\)*)(?:` + alt + `)`
	p := &CollateralPattern{end: end, nest: nest, re: regexp2.MustCompile(expr, regexp2.None)}
	actual, _ := collateralPatterns.LoadOrStore(key, p)
	return actual.(*CollateralPattern)
}

func runeIndexToByte(s string, runeIdx int) int {
	n := 0
	for i := range s {
		if n == runeIdx {
			return i
		}
		n++
	}
	return len(s)
}
