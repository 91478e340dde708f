// Package lexer is the language-independent core of the rbxref scanners.
//
// A concrete scanner (see internal/lexer/ruby) recognises lexical fragments
// and hands the ones that open, continue or close nested constructs to an
// Engine:
//
//   - quote-like operators (%w[...], q{...}, /.../) whose closing delimiter
//     depends on the opening one and whose bracket delimiters nest;
//   - here-documents, several of which may be declared on one line and are
//     replayed in declaration order after the line ends;
//   - #{...} interpolation, which suspends the enclosing quote, re-enters
//     top-level scanning and resumes the quote on the matching brace.
//
// The Engine keeps one current Context (NestingState + HeredocQueue), a
// StateStack of suspended contexts, and the lexer mode stack of the
// scanner. All output goes to a SymbolConsumer. Nothing here blocks or does
// I/O; one Engine serves exactly one scan at a time.
//
// Invariant violations that can only come from a broken scanner table
// (popping an empty stack, ending a heredoc that was never declared) panic.
package lexer

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Engine drives nested lexical constructs for one scan.
type Engine struct {
	table ScanStateTable
	out   SymbolConsumer

	cur   Context
	stack StateStack
	modes modeStack

	// modeBase records the mode stack depth at each BeginInterpolation,
	// parallel to stack.
	modeBase []int

	pushback int
}

// NewEngine returns an Engine in file-start state.
func NewEngine(table ScanStateTable, out SymbolConsumer) *Engine {
	if out == nil {
		out = Discard
	}
	e := &Engine{table: table, out: out}
	e.Reset()
	return e
}

// Reset restores the file-start state: no open quote, no pending heredocs
// or interpolation, and only the initial mode on the mode stack.
func (e *Engine) Reset() {
	e.cur = Context{}
	e.stack.Reset()
	e.modes.reset(e.table.Initial)
	e.modeBase = e.modeBase[:0]
	e.pushback = 0
}

// SetConsumer redirects output.
func (e *Engine) SetConsumer(out SymbolConsumer) {
	if out == nil {
		out = Discard
	}
	e.out = out
}

// Nesting returns a copy of the current nesting counters.
func (e *Engine) Nesting() NestingState { return e.cur.Nesting }

// PendingHeredocs returns the queued declarations of the current context.
func (e *Engine) PendingHeredocs() []HeredocDecl {
	return append([]HeredocDecl(nil), e.cur.Heredocs.decls...)
}

// StackDepth returns the number of suspended contexts.
func (e *Engine) StackDepth() int { return e.stack.Len() }

// ---------------------------------------------------------------------------
// Lexer modes
// ---------------------------------------------------------------------------

// CurrentMode returns the mode on top of the mode stack.
func (e *Engine) CurrentMode() StateID { return e.modes.top() }

// PushMode enters mode id, remembering the current one.
func (e *Engine) PushMode(id StateID) { e.modes.push(id) }

// PopMode returns to the previous mode. Popping the initial mode panics.
func (e *Engine) PopMode() StateID { return e.modes.pop() }

// SwitchMode replaces the current mode without growing the stack.
func (e *Engine) SwitchMode(id StateID) { e.modes.replace(id) }

// ModeDepth returns the size of the mode stack.
func (e *Engine) ModeDepth() int { return e.modes.depth() }

// TakePushback returns, and clears, the number of trailing fragment bytes
// the scanner must rescan after the last helper call.
func (e *Engine) TakePushback() int {
	n := e.pushback
	e.pushback = 0
	return n
}

// ---------------------------------------------------------------------------
// Quote-construct helper
// ---------------------------------------------------------------------------

// OpenQuote starts a quote from fragment, whose first nameLen bytes are the
// operator name and whose remainder begins with the opening delimiter. It
// reports false when the fragment instead closed a pending interpolation.
func (e *Engine) OpenQuote(fragment string, nameLen int, noInterp bool) bool {
	return e.openQuote(true, fragment, nameLen, noInterp)
}

func (e *Engine) openQuote(write bool, fragment string, nameLen int, noInterp bool) bool {
	if e.interpolationClose(fragment) {
		return false
	}

	name, post := fragment[:nameLen], fragment[nameLen:]
	opener, size := utf8.DecodeRuneInString(post)
	if size == 0 {
		panic(fmt.Sprintf("lexer: quote fragment %q has no delimiter", fragment))
	}

	n := &e.cur.Nesting
	n.Operator = name
	n.Kind = KindOf(name)
	n.RemainingClosers = 1
	nest, end := delimitersFor(opener)
	n.setDelimiters(end, nest)

	link := opener != '/' && opener != '@'
	e.modes.push(e.table.QuoteState(!noInterp, link))

	if write {
		if name != "" {
			e.out.Offer(name)
			e.out.SkipSymbol()
		}
		e.out.DisjointSpan(StringClass)
		e.out.Offer(post)
	}
	return true
}

// MaybeCloseQuote inspects the first character of fragment against the open
// quote. The end character decrements the remaining closers and closes the
// quote at zero; the nest character increments them. It reports whether the
// quote closed. This is the only place nesting depth changes.
func (e *Engine) MaybeCloseQuote(fragment string) bool {
	n := &e.cur.Nesting
	if !n.QuoteOpen() || fragment == "" {
		return false
	}
	c, _ := utf8.DecodeRuneInString(fragment)
	switch {
	case c == n.EndChar:
		n.RemainingClosers--
		if n.RemainingClosers == 0 {
			n.setDelimiters(0, 0)
			return true
		}
	case n.NestChar != 0 && c == n.NestChar:
		n.RemainingClosers++
	}
	return false
}

// Modifiers returns how many leading bytes of rest are trailing modifiers
// of the quote that just closed.
func (e *Engine) Modifiers(rest string) int {
	if !e.cur.Nesting.Kind.AcceptsModifiers() {
		return 0
	}
	i := 0
	for i < len(rest) && (rest[i] >= 'a' && rest[i] <= 'z' || rest[i] >= 'A' && rest[i] <= 'Z') {
		i++
	}
	return i
}

// FinishQuote emits the closing delimiter (plus any modifiers), closes the
// string span and leaves the quote mode. Call it after MaybeCloseQuote
// reported true.
func (e *Engine) FinishQuote(fragment string) {
	e.out.Offer(fragment)
	e.out.DisjointSpan("")
	e.modes.pop()
}

// HQopPunc handles a probable /regex/ shorthand preceded by punctuation:
// fragment is the punctuation, optional whitespace (possibly with line
// breaks) and the delimiter.
func (e *Engine) HQopPunc(fragment string) bool {
	return e.hqop(fragment, false, 0, false)
}

// HQopSymbol is HQopPunc for a shorthand preceded by an identifier, which is
// emitted as a symbol at offset.
func (e *Engine) HQopSymbol(fragment string, offset int, keyword bool) bool {
	return e.hqop(fragment, true, offset, keyword)
}

func (e *Engine) hqop(fragment string, symbol bool, offset int, keyword bool) bool {
	if e.interpolationClose(fragment) {
		return false
	}

	delim, size := utf8.DecodeLastRuneInString(fragment)
	if size == 0 {
		panic("lexer: empty shorthand fragment")
	}
	preceding := fragment[:len(fragment)-size]
	lede := strings.TrimRightFunc(preceding, unicode.IsSpace)
	intervening := preceding[len(lede):]

	if lede != "" {
		if symbol {
			e.out.OfferSymbol(lede, offset, keyword)
		} else {
			e.out.Offer(lede)
		}
	}
	if intervening != "" {
		e.EmitWithLFFolding(intervening)
	}

	e.openQuote(false, "m"+string(delim), 1, false)
	e.out.DisjointSpan(StringClass)
	e.out.Offer(string(delim))
	return true
}

// CollateralCapturePattern returns a matcher for the next unescaped end or
// nest character of the open quote, or nil when no quote is open. The
// pattern is built on first use and dropped whenever the delimiters change.
func (e *Engine) CollateralCapturePattern() *CollateralPattern {
	n := &e.cur.Nesting
	if !n.QuoteOpen() {
		return nil
	}
	if n.collateral == nil {
		n.collateral = collateralFor(n.EndChar, n.NestChar)
	}
	return n.collateral
}

// ---------------------------------------------------------------------------
// Line tracker
// ---------------------------------------------------------------------------

// EmitWithLFFolding passes text without line feeds straight through. For
// text with line feeds it starts one new line per LF and offers only what
// follows the last LF.
func (e *Engine) EmitWithLFFolding(text string) {
	last := strings.LastIndexByte(text, '\n')
	if last < 0 {
		if text != "" {
			e.out.Offer(text)
		}
		return
	}
	for range strings.Count(text, "\n") {
		e.out.StartNewLine()
	}
	if rest := text[last+1:]; rest != "" {
		e.out.Offer(rest)
	}
}

// ---------------------------------------------------------------------------
// Interpolation tracker
// ---------------------------------------------------------------------------

// BeginInterpolation suspends the current context and re-enters top-level
// scanning for the body of #{...}. The scanner has already emitted "#{".
// Heredocs declared inside the interpolation are discarded with its context.
func (e *Engine) BeginInterpolation() {
	e.stack.Push(e.cur)
	e.modeBase = append(e.modeBase, e.modes.depth())
	e.cur = Context{}
	e.cur.Nesting.PendingInterpBraces = 1
	e.modes.push(e.table.Initial)
}

// InterpolationPending reports whether the current context is inside #{}.
func (e *Engine) InterpolationPending() bool {
	return e.cur.Nesting.InterpolationPending()
}

// MaybeEndInterpolation tracks braces inside #{...}. It is a no-op when no
// interpolation is pending. A '{' nests; the '}' that balances the opening
// brace restores the suspended context and quote mode, re-opens the string
// span, emits the brace and pushes back the rest of fragment. It reports
// whether the interpolation closed.
func (e *Engine) MaybeEndInterpolation(fragment string) bool {
	n := &e.cur.Nesting
	if n.PendingInterpBraces == 0 || fragment == "" {
		return false
	}
	switch fragment[0] {
	case '}':
		n.PendingInterpBraces--
		if n.PendingInterpBraces > 0 {
			return false
		}
		e.cur = e.stack.Pop()
		base := e.modeBase[len(e.modeBase)-1]
		e.modeBase = e.modeBase[:len(e.modeBase)-1]
		for e.modes.depth() > base {
			e.modes.pop()
		}
		e.out.DisjointSpan(StringClass)
		e.out.Offer("}")
		e.pushback = len(fragment) - 1
		return true
	case '{':
		n.PendingInterpBraces++
	}
	return false
}

func (e *Engine) interpolationClose(fragment string) bool {
	return e.cur.Nesting.InterpolationPending() &&
		strings.HasPrefix(fragment, "}") &&
		e.MaybeEndInterpolation(fragment)
}

// ---------------------------------------------------------------------------
// Heredoc parser
// ---------------------------------------------------------------------------

// DeclareHeredoc parses a "<<TERM" fragment and queues its body. It reports
// false, queueing nothing, when no terminator can be extracted.
func (e *Engine) DeclareHeredoc(fragment string) (HeredocDecl, bool) {
	opener, ok := parseHeredoc(fragment)
	if !ok {
		return HeredocDecl{}, false
	}
	d := HeredocDecl{
		Terminator:  opener.terminator,
		Resume:      e.table.HeredocState(opener.indented, opener.interpolate),
		Indented:    opener.indented,
		Interpolate: opener.interpolate,
	}
	e.cur.Heredocs.Push(d)
	return d, true
}

// StartFirstPending enters the body mode of the first queued heredoc and
// opens a string span. Scanners call it once per logical line, after the
// line's declarations.
func (e *Engine) StartFirstPending() bool {
	d, ok := e.cur.Heredocs.Peek()
	if !ok {
		return false
	}
	e.modes.push(d.Resume)
	e.out.DisjointSpan(StringClass)
	return true
}

// HeredocEndsAt reports whether line would terminate the current heredoc
// in its mode: indented heredocs allow leading whitespace, others do not.
func (e *Engine) HeredocEndsAt(line string) bool {
	d, ok := e.cur.Heredocs.Peek()
	if !ok {
		return false
	}
	if d.Indented {
		return d.Matches(line)
	}
	return line == d.Terminator
}

// MaybeEndHeredoc compares line (leading whitespace stripped) with the head
// terminator and offers the untrimmed line. On a match the span closes and
// the declaration is dropped. It reports true once the last queued heredoc
// has ended and the scanner is back in its enclosing mode.
func (e *Engine) MaybeEndHeredoc(line string) bool {
	d, ok := e.cur.Heredocs.Peek()
	if !ok {
		panic("lexer: no pending heredoc")
	}
	closed := false
	if d.Matches(line) {
		e.out.DisjointSpan("")
		e.cur.Heredocs.Pop()
		closed = true
	}
	if line != "" {
		e.out.Offer(line)
	}
	if next, ok := e.cur.Heredocs.Peek(); ok {
		e.modes.replace(next.Resume)
		if closed {
			e.out.DisjointSpan(StringClass)
		}
		return false
	}
	e.modes.pop()
	return true
}
