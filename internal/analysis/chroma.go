package analysis

import (
	"context"
	"io"
	"strings"

	"github.com/alecthomas/chroma/v2"

	"github.com/cybertec-postgresql/rbxref/internal/errors"
	"github.com/cybertec-postgresql/rbxref/internal/lexer"
)

const tokenCheckInterval = 1024

// ChromaAnalyzer scans languages without a dedicated scanner using a
// chroma lexer. Keywords and names become symbols; comments, strings and
// numbers become spans.
type ChromaAnalyzer struct {
	MaxSize int64

	lexer    chroma.Lexer
	language string
}

// NewChromaAnalyzer wraps l.
func NewChromaAnalyzer(l chroma.Lexer) *ChromaAnalyzer {
	return &ChromaAnalyzer{lexer: chroma.Coalesce(l), language: strings.ToLower(l.Config().Name)}
}

func (a *ChromaAnalyzer) Language() string { return a.language }

func (a *ChromaAnalyzer) Analyze(ctx context.Context, name string, r io.Reader, out lexer.SymbolConsumer) error {
	src, err := readSource(name, r, a.MaxSize)
	if err != nil {
		return err
	}

	// Offsets index into src, so line endings must reach the emitter untouched.
	it, err := a.lexer.Tokenise(&chroma.TokeniseOptions{State: "root", EnsureLF: false}, src)
	if err != nil {
		return errors.NewScanError(name, "scan", err)
	}

	e := tokenEmitter{out: out, src: src}
	n := 0
	for tok := it(); tok != chroma.EOF; tok = it() {
		if n%tokenCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return errors.NewScanError(name, "scan", err)
			}
		}
		n++
		if !e.emit(tok) {
			break
		}
	}
	return nil
}

// tokenEmitter tracks the byte offset of chroma tokens in src.
type tokenEmitter struct {
	out lexer.SymbolConsumer
	src string
	pos int
}

// emit offers one token and reports whether source remains. Text some
// lexers append past the end (a final LF) is dropped.
func (e *tokenEmitter) emit(tok chroma.Token) bool {
	value := tok.Value
	if rest := len(e.src) - e.pos; len(value) > rest {
		value = value[:rest]
	}
	if value == "" {
		return e.pos < len(e.src)
	}
	start := e.pos
	e.pos += len(value)

	t := tok.Type
	switch {
	case t.InCategory(chroma.Comment):
		e.span(lexer.CommentClass, value)
	case t.InSubCategory(chroma.LiteralString):
		e.span(lexer.StringClass, value)
	case t.InSubCategory(chroma.LiteralNumber):
		e.span(lexer.NumberClass, value)
	case isWord(value) && t.InCategory(chroma.Keyword):
		e.out.OfferSymbol(value, start, true)
	case isWord(value) && t.InCategory(chroma.Name) && !t.InSubCategory(chroma.NameBuiltin):
		e.out.OfferSymbol(value, start, false)
	default:
		e.lines(value)
	}
	return e.pos < len(e.src)
}

func (e *tokenEmitter) span(class, value string) {
	e.out.DisjointSpan(class)
	e.lines(value)
	e.out.DisjointSpan("")
}

// lines offers value, turning each LF into StartNewLine.
func (e *tokenEmitter) lines(value string) {
	for {
		i := strings.IndexByte(value, '\n')
		if i < 0 {
			if value != "" {
				e.out.Offer(value)
			}
			return
		}
		if i > 0 {
			e.out.Offer(value[:i])
		}
		e.out.StartNewLine()
		value = value[i+1:]
	}
}

func isWord(s string) bool {
	return !strings.ContainsAny(s, " \t\r\n")
}
