package lexer

import "strings"

// HeredocDecl is a pending here-document: its terminator line and the mode
// its body is scanned in.
type HeredocDecl struct {
	Terminator  string
	Resume      StateID
	Indented    bool
	Interpolate bool
}

// Matches reports whether line terminates the heredoc. Leading whitespace
// is ignored, trailing whitespace is not.
func (d HeredocDecl) Matches(line string) bool {
	return strings.TrimLeft(line, " \t\f\v\r") == d.Terminator
}

// HeredocQueue holds declarations in the order they appeared on a line.
type HeredocQueue struct {
	decls []HeredocDecl
}

// Len returns the number of pending declarations.
func (q *HeredocQueue) Len() int { return len(q.decls) }

// Push appends a declaration.
func (q *HeredocQueue) Push(d HeredocDecl) { q.decls = append(q.decls, d) }

// Peek returns the head declaration.
func (q *HeredocQueue) Peek() (HeredocDecl, bool) {
	if len(q.decls) == 0 {
		return HeredocDecl{}, false
	}
	return q.decls[0], true
}

// Pop removes and returns the head declaration.
func (q *HeredocQueue) Pop() (HeredocDecl, bool) {
	if len(q.decls) == 0 {
		return HeredocDecl{}, false
	}
	d := q.decls[0]
	q.decls = q.decls[1:]
	return d, true
}

// Reset drops all declarations.
func (q *HeredocQueue) Reset() { q.decls = nil }

func (q HeredocQueue) clone() HeredocQueue {
	if len(q.decls) == 0 {
		return HeredocQueue{}
	}
	return HeredocQueue{decls: append([]HeredocDecl(nil), q.decls...)}
}

// heredocOpener is the parsed form of a "<<..." declaration fragment.
type heredocOpener struct {
	terminator  string
	indented    bool
	interpolate bool
}

// parseHeredoc extracts the terminator and flags from a fragment starting
// with "<<". A double-quoted terminator is not recognised.
func parseHeredoc(fragment string) (heredocOpener, bool) {
	if !strings.HasPrefix(fragment, "<<") {
		return heredocOpener{}, false
	}
	opener := heredocOpener{interpolate: true}
	rest := fragment[2:]
	if strings.HasPrefix(rest, "~") || strings.HasPrefix(rest, "-") {
		opener.indented = true
		rest = rest[1:]
	}
	if rest == "" {
		return heredocOpener{}, false
	}

	switch q := rest[0]; q {
	case '\'', '`':
		opener.interpolate = q == '`'
		rest = rest[1:]
		if i := strings.IndexByte(rest, q); i >= 0 {
			rest = rest[:i]
		}
		opener.terminator = rest
	default:
		opener.terminator = leadingWord(rest)
	}
	if opener.terminator == "" {
		return heredocOpener{}, false
	}
	return opener, true
}

// leadingWord returns the longest prefix of word characters.
func leadingWord(s string) string {
	for i, r := range s {
		if !IsWordRune(r) {
			return s[:i]
		}
	}
	return s
}

// IsWordRune reports whether r may appear in a bare heredoc terminator or
// identifier: ASCII letters, digits, underscore and the U+00C0-U+024F
// Latin block.
func IsWordRune(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
		return true
	case r >= 0xC0 && r <= 0x24F:
		return r != 0xD7 && r != 0xF7
	}
	return false
}
