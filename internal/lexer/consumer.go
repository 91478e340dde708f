package lexer

// Highlighting classes passed to SymbolConsumer.DisjointSpan.
const (
	StringClass  = "s"
	CommentClass = "c"
	NumberClass  = "n"
)

// SymbolConsumer receives the scan result stream. Calls arrive in source
// order; concatenating the text of every Offer and OfferSymbol call (with a
// newline for each StartNewLine) reproduces the scanned input, apart from
// whitespace collapsed by Engine.EmitWithLFFolding.
type SymbolConsumer interface {
	// Offer emits literal text.
	Offer(text string)

	// OfferSymbol emits an indexable symbol starting at offset, a byte
	// offset into the original source.
	OfferSymbol(text string, offset int, keyword bool)

	// DisjointSpan opens a highlighting span of the given class, closing
	// any span that is still open. An empty class closes the open span.
	DisjointSpan(class string)

	// StartNewLine ends the current line and begins the next one.
	StartNewLine()

	// SkipSymbol tells the consumer that the immediately preceding offer
	// must not be treated as a symbol.
	SkipSymbol()
}

// LinkOfferer is implemented by consumers that can render URLs found in
// ordinary string bodies and comments as links.
type LinkOfferer interface {
	OfferLink(url string)
}

// Discard is a SymbolConsumer that drops everything.
var Discard SymbolConsumer = discard{}

type discard struct{}

func (discard) Offer(string)                  {}
func (discard) OfferSymbol(string, int, bool) {}
func (discard) DisjointSpan(string)           {}
func (discard) StartNewLine()                 {}
func (discard) SkipSymbol()                   {}
