package ruby

import (
	"strings"
	"unicode/utf8"

	"github.com/cybertec-postgresql/rbxref/internal/lexer"
)

// scanQuote recognises the next fragment inside a quote: body text up to
// the next delimiter, interpolation or line end.
func (s *Scanner) scanQuote(mode lexer.StateID) {
	rest := s.src[s.pos:]
	line := lineOf(rest)
	if line == "" {
		s.feed(fragment{kind: fragNewline, text: "\n"})
		return
	}

	delim := -1
	if p := s.eng.CollateralCapturePattern(); p != nil {
		delim = p.Next(line)
	}
	interp := -1
	if Table.Interpolates(mode) {
		interp = interpStart(line)
	}

	switch {
	case delim == 0:
		_, size := utf8.DecodeRuneInString(line)
		s.feed(fragment{kind: fragQuoteDelim, text: line[:size]})
	case interp == 0:
		s.feed(fragment{kind: fragInterpOpen, text: "#{"})
	default:
		stop := len(line)
		if delim > 0 {
			stop = delim
		}
		if interp > 0 && interp < stop {
			stop = interp
		}
		s.feed(fragment{kind: fragQuoteBody, text: line[:stop]})
	}
}

// scanHeredoc recognises terminator lines, interpolation and body text of
// the current heredoc.
func (s *Scanner) scanHeredoc(mode lexer.StateID) {
	rest := s.src[s.pos:]
	line := lineOf(rest)
	if line == "" {
		s.feed(fragment{kind: fragNewline, text: "\n"})
		return
	}

	if s.lineStart {
		if term := strings.TrimSuffix(line, "\r"); s.eng.HeredocEndsAt(term) {
			s.feed(fragment{kind: fragHeredocEnd, text: term})
			return
		}
	}

	stop := len(line)
	if Table.Interpolates(mode) {
		switch i := interpStart(line); {
		case i == 0:
			s.feed(fragment{kind: fragInterpOpen, text: "#{"})
			return
		case i > 0:
			stop = i
		}
	}
	s.feed(fragment{kind: fragQuoteBody, text: line[:stop]})
}

func (s *Scanner) scanEmbdoc() {
	rest := s.src[s.pos:]
	line := lineOf(rest)
	switch {
	case line == "":
		s.feed(fragment{kind: fragNewline, text: "\n"})
	case s.lineStart && isEmbdocMarker(strings.TrimSuffix(line, "\r"), "=end"):
		s.feed(fragment{kind: fragEmbdocEnd, text: line})
	default:
		s.feed(fragment{kind: fragDocBody, text: line})
	}
}

func (s *Scanner) scanData() {
	rest := s.src[s.pos:]
	if line := lineOf(rest); line != "" {
		s.feed(fragment{kind: fragDataBody, text: line})
		return
	}
	s.feed(fragment{kind: fragNewline, text: "\n"})
}

// interpStart returns the index of the first unescaped "#{" in text, or -1.
func interpStart(text string) int {
	for i := 0; i < len(text); i++ {
		switch text[i] {
		case '\\':
			i++
		case '#':
			if i+1 < len(text) && text[i+1] == '{' {
				return i
			}
		}
	}
	return -1
}
