// Package ruby scans Ruby source into a lexer.SymbolConsumer stream.
//
// The Scanner recognises fragments (identifiers, literals, comments,
// delimiters) and feeds each one exactly once; quote, heredoc and
// interpolation bookkeeping is delegated to a lexer.Engine.
package ruby

import (
	"context"
	"io"

	"github.com/cybertec-postgresql/rbxref/internal/errors"
	"github.com/cybertec-postgresql/rbxref/internal/lexer"
)

// Lexer modes. The first nine are handed to the engine through Table.
const (
	stateCode lexer.StateID = iota
	stateQuote
	stateQuoteNoInterp
	stateQuoteNoLink
	stateQuoteNoInterpNoLink
	stateHeredoc
	stateHeredocNoInterp
	stateHeredocIndented
	stateHeredocIndentedNoInterp
	stateEmbdoc // =begin ... =end
	stateData   // after __END__
)

// Table is the Ruby scan state table.
var Table = lexer.ScanStateTable{
	Initial:                 stateCode,
	Quote:                   stateQuote,
	QuoteNoInterp:           stateQuoteNoInterp,
	QuoteNoLink:             stateQuoteNoLink,
	QuoteNoInterpNoLink:     stateQuoteNoInterpNoLink,
	Heredoc:                 stateHeredoc,
	HeredocNoInterp:         stateHeredocNoInterp,
	HeredocIndented:         stateHeredocIndented,
	HeredocIndentedNoInterp: stateHeredocIndentedNoInterp,
}

// ctxCheckInterval is how many fragments are fed between cancellation checks.
const ctxCheckInterval = 1024

// Scanner is a Ruby scanner. It is not safe for concurrent use; create one
// per goroutine.
type Scanner struct {
	// MaxSize limits ScanReader input in bytes. Zero means no limit.
	MaxSize int64

	eng   *lexer.Engine
	out   lexer.SymbolConsumer
	links lexer.LinkOfferer

	src string
	pos int
	fed int

	lineStart     bool
	valueExpected bool // a '/' here starts a regex, '%' a literal
	cmdArg        bool // identifier followed by whitespace
	noKeyword     bool // after '.' or a symbol colon
	last          fragKind
	lastKeyword   bool
}

// New creates a Scanner writing to out.
func New(out lexer.SymbolConsumer) *Scanner {
	s := &Scanner{eng: lexer.NewEngine(Table, nil)}
	s.SetConsumer(out)
	s.Reset()
	return s
}

// SetConsumer redirects the scan output.
func (s *Scanner) SetConsumer(out lexer.SymbolConsumer) {
	if out == nil {
		out = lexer.Discard
	}
	s.out = out
	s.links, _ = out.(lexer.LinkOfferer)
	s.eng.SetConsumer(out)
}

// Engine exposes the nesting engine, mostly for tests.
func (s *Scanner) Engine() *lexer.Engine {
	return s.eng
}

// Reset restores file-start state.
func (s *Scanner) Reset() {
	s.eng.Reset()
	s.src = ""
	s.pos = 0
	s.fed = 0
	s.lineStart = true
	s.valueExpected = true
	s.cmdArg = false
	s.noKeyword = false
	s.last = fragNewline
	s.lastKeyword = false
}

// Scan scans src from file-start state. Unterminated constructs at the end
// of input are not an error; only cancellation is.
func (s *Scanner) Scan(ctx context.Context, src string) error {
	s.Reset()
	s.src = src

	for s.pos < len(s.src) {
		if s.fed%ctxCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		s.step()
	}

	// Close a string or comment span left open by unterminated input.
	if s.eng.ModeDepth() > 1 {
		s.out.DisjointSpan("")
	}
	return nil
}

// ScanReader reads a whole file from r and scans it. Read failures and
// oversized input are reported as *errors.ScanError.
func (s *Scanner) ScanReader(ctx context.Context, name string, r io.Reader) error {
	if s.MaxSize > 0 {
		r = io.LimitReader(r, s.MaxSize+1)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return errors.NewScanError(name, "read", err)
	}
	if s.MaxSize > 0 && int64(len(data)) > s.MaxSize {
		return errors.NewScanError(name, "read", errors.ErrTooLarge)
	}
	if err := s.Scan(ctx, string(data)); err != nil {
		return errors.NewScanError(name, "scan", err)
	}
	return nil
}

func (s *Scanner) step() {
	switch mode := s.eng.CurrentMode(); {
	case Table.IsQuote(mode):
		s.scanQuote(mode)
	case Table.IsHeredoc(mode):
		s.scanHeredoc(mode)
	case mode == stateEmbdoc:
		s.scanEmbdoc()
	case mode == stateData:
		s.scanData()
	default:
		s.scanCode()
	}
}
