package ruby

import (
	"regexp"
	"strings"

	"github.com/cybertec-postgresql/rbxref/internal/lexer"
)

type fragKind int

const (
	fragText        fragKind = iota // operators and punctuation
	fragSpace                       // horizontal whitespace, line continuation
	fragNewline                     // a single LF
	fragIdent                       // identifiers, keywords, @ivar, $global
	fragNumber                      // numeric literal
	fragChar                        // ?a character literal
	fragComment                     // # to end of line
	fragBrace                       // { or }
	fragQuoteOpen                   // operator name + opening delimiter
	fragQuoteBody                   // string or heredoc body text
	fragQuoteDelim                  // end or nest character of the open quote
	fragInterpOpen                  // #{
	fragRegexPunc                   // punctuation, whitespace, '/'
	fragRegexSymbol                 // identifier, whitespace, '/'
	fragHeredocDecl                 // <<ID
	fragHeredocEnd                  // heredoc terminator line
	fragEmbdocBegin                 // =begin line
	fragEmbdocEnd                   // =end line
	fragDocBody                     // =begin body line
	fragData                        // __END__
	fragDataBody                    // line after __END__
)

// fragment is one recognised piece of input starting at Scanner.pos.
type fragment struct {
	kind     fragKind
	text     string
	nameLen  int  // fragQuoteOpen: operator name length
	noInterp bool // fragQuoteOpen
	keyword  bool // fragIdent, fragRegexSymbol
}

var urlPattern = regexp.MustCompile(`(?:https?|ftp)://[^\s"'<>{}|\\^` + "`" + `]+`)

// feed consumes f and advances past it, minus any pushback requested by
// the engine.
func (s *Scanner) feed(f fragment) {
	start := s.pos
	n := len(f.text)

	switch f.kind {
	case fragText, fragSpace, fragDataBody:
		s.out.Offer(f.text)

	case fragNewline:
		s.out.StartNewLine()
		if s.eng.CurrentMode() == stateCode {
			s.eng.StartFirstPending()
		}

	case fragIdent:
		s.out.OfferSymbol(f.text, start, f.keyword)

	case fragNumber:
		s.out.DisjointSpan(lexer.NumberClass)
		s.out.Offer(f.text)
		s.out.DisjointSpan("")

	case fragChar:
		s.out.DisjointSpan(lexer.StringClass)
		s.out.Offer(f.text)
		s.out.DisjointSpan("")

	case fragComment:
		s.out.DisjointSpan(lexer.CommentClass)
		s.offerLinked(f.text, true)
		s.out.DisjointSpan("")

	case fragBrace:
		if s.eng.MaybeEndInterpolation(f.text) {
			n -= s.eng.TakePushback()
			break
		}
		s.out.Offer(f.text)

	case fragQuoteOpen:
		if !s.eng.OpenQuote(f.text, f.nameLen, f.noInterp) {
			n -= s.eng.TakePushback()
		}

	case fragQuoteBody:
		s.offerLinked(f.text, Table.Links(s.eng.CurrentMode()))

	case fragQuoteDelim:
		if s.eng.MaybeCloseQuote(f.text) {
			n += s.eng.Modifiers(s.src[start+n:])
			s.eng.FinishQuote(s.src[start : start+n])
			s.valueExpected = false
		} else {
			s.out.Offer(f.text)
		}

	case fragInterpOpen:
		s.out.DisjointSpan("")
		s.out.Offer(f.text)
		s.eng.BeginInterpolation()

	case fragRegexPunc:
		if !s.eng.HQopPunc(f.text) {
			n -= s.eng.TakePushback()
		}

	case fragRegexSymbol:
		if !s.eng.HQopSymbol(f.text, start, f.keyword) {
			n -= s.eng.TakePushback()
		}

	case fragHeredocDecl:
		if _, ok := s.eng.DeclareHeredoc(f.text); ok {
			s.out.DisjointSpan(lexer.StringClass)
			s.out.Offer(f.text)
			s.out.DisjointSpan("")
		} else {
			s.out.Offer("<<")
			n = 2
		}

	case fragHeredocEnd:
		s.eng.MaybeEndHeredoc(f.text)

	case fragEmbdocBegin:
		s.eng.PushMode(stateEmbdoc)
		s.out.DisjointSpan(lexer.CommentClass)
		s.out.Offer(f.text)

	case fragDocBody:
		s.offerLinked(f.text, true)

	case fragEmbdocEnd:
		s.out.Offer(f.text)
		s.out.DisjointSpan("")
		s.eng.PopMode()

	case fragData:
		s.out.OfferSymbol(f.text, start, true)
		s.eng.PushMode(stateData)
	}

	s.track(f)
	s.pos = start + n
	s.fed++
}

// track updates the context used to tell a regex from a division and a
// percent literal from a modulo.
func (s *Scanner) track(f fragment) {
	s.cmdArg = f.kind == fragSpace && s.last == fragIdent && !s.lastKeyword

	switch f.kind {
	case fragText:
		last := f.text[len(f.text)-1]
		s.valueExpected = last != ')' && last != ']'
		s.noKeyword = f.text == ":" ||
			strings.HasSuffix(f.text, ".") && !strings.HasSuffix(f.text, "..")
	case fragIdent:
		s.valueExpected = f.keyword && expectsValueAfter(f.text)
		s.noKeyword = false
	case fragNumber, fragChar, fragHeredocDecl:
		s.valueExpected = false
	case fragBrace:
		s.valueExpected = f.text == "{"
	case fragNewline, fragInterpOpen, fragHeredocEnd, fragEmbdocEnd:
		s.valueExpected = true
	}

	if f.kind != fragSpace {
		s.last = f.kind
		s.lastKeyword = f.keyword
	}
	s.lineStart = f.kind == fragNewline
}

// offerLinked offers text, splitting out URLs as links when the consumer
// renders them.
func (s *Scanner) offerLinked(text string, link bool) {
	if !link || s.links == nil {
		s.out.Offer(text)
		return
	}
	for text != "" {
		loc := urlPattern.FindStringIndex(text)
		if loc == nil {
			s.out.Offer(text)
			return
		}
		end := loc[0] + len(strings.TrimRight(text[loc[0]:loc[1]], ".,;:!?)'"))
		if loc[0] > 0 {
			s.out.Offer(text[:loc[0]])
		}
		s.links.OfferLink(text[loc[0]:end])
		text = text[end:]
	}
}
