package ruby

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/cybertec-postgresql/rbxref/internal/lexer"
)

// opChars are grouped into one text fragment. '/', '%', ':', '?', braces
// and quotes get their own recognisers.
const opChars = "+-*=<>!&|^~,;.()[]"

func (s *Scanner) scanCode() {
	rest := s.src[s.pos:]

	if s.lineStart {
		line := strings.TrimSuffix(lineOf(rest), "\r")
		switch {
		case isEmbdocMarker(line, "=begin"):
			s.feed(fragment{kind: fragEmbdocBegin, text: line})
			return
		case line == "__END__":
			s.feed(fragment{kind: fragData, text: line})
			return
		}
	}

	switch c := rest[0]; {
	case c == '\n':
		s.feed(fragment{kind: fragNewline, text: "\n"})
	case isSpace(c):
		s.feed(fragment{kind: fragSpace, text: rest[:spaceLen(rest)]})
	case c == '\\' && strings.HasPrefix(rest, "\\\n"):
		s.feed(fragment{kind: fragSpace, text: "\\"})
	case c == '#':
		s.feed(fragment{kind: fragComment, text: lineOf(rest)})
	case c == '"' || c == '`':
		s.feed(fragment{kind: fragQuoteOpen, text: rest[:1]})
	case c == '\'':
		s.feed(fragment{kind: fragQuoteOpen, text: rest[:1], noInterp: true})
	case c == '{' || c == '}':
		s.feed(fragment{kind: fragBrace, text: rest[:1]})
	case c == ':':
		s.scanColon(rest)
	case c == '%':
		s.scanPercent(rest)
	case c == '/':
		s.scanSlash(rest)
	case c == '<' && strings.HasPrefix(rest, "<<"):
		s.scanShift(rest)
	case c == '?':
		s.scanQuestion(rest)
	case c == '@' || c == '$':
		s.scanVariable(rest)
	case isDigit(c):
		s.feed(fragment{kind: fragNumber, text: rest[:numberLen(rest)]})
	case identLen(rest) > 0:
		s.scanIdent(rest)
	default:
		s.scanPunct(rest)
	}
}

func (s *Scanner) scanIdent(rest string) {
	n := identLen(rest)
	if n < len(rest) && (rest[n] == '?' || rest[n] == '!') &&
		(n+1 >= len(rest) || rest[n+1] != '=') {
		n++
	}
	word := rest[:n]
	kw := !s.noKeyword && IsKeyword(word)

	// ident /re/ : a regex argument rather than a division
	if ws := hspaceLen(rest[n:]); ws > 0 && n+ws < len(rest) && rest[n+ws] == '/' {
		after := byte(' ')
		if n+ws+1 < len(rest) {
			after = rest[n+ws+1]
		}
		divides := after == ' ' || after == '\t' || after == '\n' || after == '='
		if kw && expectsValueAfter(word) || !kw && !divides {
			s.feed(fragment{kind: fragRegexSymbol, text: rest[:n+ws+1], keyword: kw})
			return
		}
	}

	s.feed(fragment{kind: fragIdent, text: word, keyword: kw})
}

func (s *Scanner) scanVariable(rest string) {
	i := 1
	if rest[0] == '@' && strings.HasPrefix(rest, "@@") {
		i = 2
	}
	if n := identLen(rest[i:]); n > 0 {
		s.feed(fragment{kind: fragIdent, text: rest[:i+n]})
		return
	}
	if rest[0] == '$' && len(rest) > 1 {
		switch c := rest[1]; {
		case isDigit(c):
			n := 1
			for n < len(rest) && isDigit(rest[n]) {
				n++
			}
			s.feed(fragment{kind: fragIdent, text: rest[:n]})
			return
		case strings.IndexByte("!@&~'+*$?:\"<>,./\\;0_", c) >= 0:
			s.feed(fragment{kind: fragIdent, text: rest[:2]})
			return
		}
	}
	s.feed(fragment{kind: fragText, text: rest[:1]})
}

func (s *Scanner) scanColon(rest string) {
	switch {
	case strings.HasPrefix(rest, "::"):
		s.feed(fragment{kind: fragText, text: "::"})
	case strings.HasPrefix(rest, `:"`):
		s.feed(fragment{kind: fragQuoteOpen, text: rest[:2], nameLen: 1})
	case strings.HasPrefix(rest, ":'"):
		s.feed(fragment{kind: fragQuoteOpen, text: rest[:2], nameLen: 1, noInterp: true})
	default:
		// ":" before an identifier is a symbol colon; track() then keeps
		// the identifier from being read as a keyword.
		s.feed(fragment{kind: fragText, text: ":"})
		if identLen(rest[1:]) == 0 {
			s.noKeyword = false
		}
	}
}

func (s *Scanner) scanPercent(rest string) {
	if s.valueExpected || s.cmdArg {
		i := 1
		if len(rest) > 1 && strings.IndexByte("qQwWiIrsx", rest[1]) >= 0 {
			i = 2
		}
		if i < len(rest) {
			d, size := utf8.DecodeRuneInString(rest[i:])
			ok := isPercentDelim(d) && !(s.cmdArg && !s.valueExpected && d == '=')
			if ok {
				noInterp := i == 2 && strings.IndexByte("qwis", rest[1]) >= 0
				s.feed(fragment{kind: fragQuoteOpen, text: rest[:i+size], nameLen: i, noInterp: noInterp})
				return
			}
		}
	}
	if strings.HasPrefix(rest, "%=") {
		s.feed(fragment{kind: fragText, text: "%="})
		return
	}
	s.feed(fragment{kind: fragText, text: "%"})
}

func (s *Scanner) scanSlash(rest string) {
	next := byte(0)
	if len(rest) > 1 {
		next = rest[1]
	}
	if s.valueExpected || s.cmdArg && next != ' ' && next != '\t' && next != '=' && next != '\n' && next != 0 {
		s.feed(fragment{kind: fragRegexPunc, text: "/"})
		return
	}
	if next == '=' {
		s.feed(fragment{kind: fragText, text: "/="})
		return
	}
	s.feed(fragment{kind: fragText, text: "/"})
}

func (s *Scanner) scanShift(rest string) {
	if s.valueExpected || s.cmdArg {
		i := 2
		if i < len(rest) && (rest[i] == '~' || rest[i] == '-') {
			i++
		}
		if i < len(rest) {
			if q := rest[i]; q == '\'' || q == '"' || q == '`' {
				line := lineOf(rest)
				end := len(line)
				if j := strings.IndexByte(line[i+1:], q); j >= 0 {
					end = i + 1 + j + 1
				}
				s.feed(fragment{kind: fragHeredocDecl, text: rest[:end]})
				return
			}
			if n := wordLen(rest[i:]); n > 0 {
				s.feed(fragment{kind: fragHeredocDecl, text: rest[:i+n]})
				return
			}
		}
	}
	if strings.HasPrefix(rest, "<<=") {
		s.feed(fragment{kind: fragText, text: "<<="})
		return
	}
	s.feed(fragment{kind: fragText, text: "<<"})
}

func (s *Scanner) scanQuestion(rest string) {
	if (s.valueExpected || s.cmdArg) && len(rest) > 1 {
		n := 1
		if rest[1] == '\\' && len(rest) > 2 {
			_, size := utf8.DecodeRuneInString(rest[2:])
			n = 2 + size
		} else {
			r, size := utf8.DecodeRuneInString(rest[1:])
			if !unicode.IsSpace(r) {
				n = 1 + size
			}
		}
		if n > 1 && identLen(rest[n:]) == 0 {
			s.feed(fragment{kind: fragChar, text: rest[:n]})
			return
		}
	}
	s.feed(fragment{kind: fragText, text: "?"})
}

func (s *Scanner) scanPunct(rest string) {
	n := 0
	for n < len(rest) && strings.IndexByte(opChars, rest[n]) >= 0 {
		if n > 0 && strings.HasPrefix(rest[n:], "<<") {
			break
		}
		n++
	}
	if n == 0 {
		_, size := utf8.DecodeRuneInString(rest)
		s.feed(fragment{kind: fragText, text: rest[:size]})
		return
	}

	// punctuation, optional whitespace, '/' : a regex operand
	if last := rest[n-1]; last != ')' && last != ']' {
		j := n
		for j < len(rest) {
			c := rest[j]
			if c == '\n' && len(s.eng.PendingHeredocs()) == 0 || isSpace(c) {
				j++
				continue
			}
			break
		}
		if j < len(rest) && rest[j] == '/' {
			s.feed(fragment{kind: fragRegexPunc, text: rest[:j+1]})
			return
		}
	}

	s.feed(fragment{kind: fragText, text: rest[:n]})
}

// ── character classes ───────────────────────────────────────────────────

func lineOf(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\r' || c == '\f' || c == '\v'
}

func spaceLen(s string) int {
	n := 0
	for n < len(s) && isSpace(s[n]) {
		n++
	}
	return n
}

func hspaceLen(s string) int {
	n := 0
	for n < len(s) && (s[n] == ' ' || s[n] == '\t') {
		n++
	}
	return n
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func isIdentRune(r rune, first bool) bool {
	switch {
	case r == '_' || unicode.IsLetter(r):
		return true
	case unicode.IsDigit(r):
		return !first
	}
	return r >= 0x80 && r != utf8.RuneError && !unicode.IsSpace(r) && !unicode.IsPunct(r)
}

func identLen(s string) int {
	n := 0
	for n < len(s) {
		r, size := utf8.DecodeRuneInString(s[n:])
		if !isIdentRune(r, n == 0) {
			break
		}
		n += size
	}
	return n
}

// wordLen measures a bare heredoc terminator.
func wordLen(s string) int {
	n := 0
	for n < len(s) {
		r, size := utf8.DecodeRuneInString(s[n:])
		if r == utf8.RuneError || !lexer.IsWordRune(r) {
			break
		}
		n += size
	}
	return n
}

func numberLen(s string) int {
	hex := strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X")
	n := 1
	for n < len(s) {
		c := s[n]
		switch {
		case isDigit(c) || c == '_' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z':
		case c == '.' && n+1 < len(s) && isDigit(s[n+1]):
		case (c == '+' || c == '-') && !hex && (s[n-1] == 'e' || s[n-1] == 'E') &&
			n+1 < len(s) && isDigit(s[n+1]):
		default:
			return n
		}
		n++
	}
	return n
}

func isPercentDelim(r rune) bool {
	return r < utf8.RuneSelf && r > ' ' && !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_'
}

func isEmbdocMarker(line, marker string) bool {
	if !strings.HasPrefix(line, marker) {
		return false
	}
	return len(line) == len(marker) || isSpace(line[len(marker)])
}
