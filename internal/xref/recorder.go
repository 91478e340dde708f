package xref

import (
	"fmt"
	"io"
	"strings"

	"github.com/cybertec-postgresql/rbxref/internal/lexer"
)

// EventKind names a SymbolConsumer call.
type EventKind string

const (
	EventOffer   EventKind = "offer"
	EventSymbol  EventKind = "symbol"
	EventLink    EventKind = "link"
	EventSpan    EventKind = "span"
	EventNewLine EventKind = "newline"
	EventSkip    EventKind = "skip"
)

// Event is one recorded consumer call.
type Event struct {
	Kind    EventKind `json:"kind"`
	Text    string    `json:"text,omitempty"`
	Offset  int       `json:"offset,omitempty"`
	Keyword bool      `json:"keyword,omitempty"`
	Class   string    `json:"class,omitempty"`
}

// Recorder keeps the raw call stream, e.g. for the dump command.
type Recorder struct {
	Events []Event
}

func (r *Recorder) Offer(text string) {
	r.Events = append(r.Events, Event{Kind: EventOffer, Text: text})
}

func (r *Recorder) OfferSymbol(text string, offset int, keyword bool) {
	r.Events = append(r.Events, Event{Kind: EventSymbol, Text: text, Offset: offset, Keyword: keyword})
}

func (r *Recorder) OfferLink(url string) {
	r.Events = append(r.Events, Event{Kind: EventLink, Text: url})
}

func (r *Recorder) DisjointSpan(class string) {
	r.Events = append(r.Events, Event{Kind: EventSpan, Class: class})
}

func (r *Recorder) StartNewLine() {
	r.Events = append(r.Events, Event{Kind: EventNewLine})
}

func (r *Recorder) SkipSymbol() {
	r.Events = append(r.Events, Event{Kind: EventSkip})
}

// Text rebuilds the offered text, one LF per new line.
func (r *Recorder) Text() string {
	var b strings.Builder
	for _, e := range r.Events {
		switch e.Kind {
		case EventOffer, EventSymbol, EventLink:
			b.WriteString(e.Text)
		case EventNewLine:
			b.WriteByte('\n')
		}
	}
	return b.String()
}

// WriteTo writes one line per event.
func (r *Recorder) WriteTo(w io.Writer) (int64, error) {
	var total int64
	for _, e := range r.Events {
		var line string
		switch e.Kind {
		case EventSymbol:
			kw := ""
			if e.Keyword {
				kw = " keyword"
			}
			line = fmt.Sprintf("symbol  %q @%d%s\n", e.Text, e.Offset, kw)
		case EventSpan:
			if e.Class == "" {
				line = "span    end\n"
			} else {
				line = fmt.Sprintf("span    %s\n", e.Class)
			}
		case EventNewLine, EventSkip:
			line = string(e.Kind) + "\n"
		default:
			line = fmt.Sprintf("%-7s %q\n", e.Kind, e.Text)
		}
		n, err := io.WriteString(w, line)
		total += int64(n)
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// Tee forwards every call to several consumers. Links go to consumers that
// render them and are offered as plain text to the rest.
type Tee []lexer.SymbolConsumer

func (t Tee) Offer(text string) {
	for _, c := range t {
		c.Offer(text)
	}
}

func (t Tee) OfferSymbol(text string, offset int, keyword bool) {
	for _, c := range t {
		c.OfferSymbol(text, offset, keyword)
	}
}

func (t Tee) OfferLink(url string) {
	for _, c := range t {
		if l, ok := c.(lexer.LinkOfferer); ok {
			l.OfferLink(url)
		} else {
			c.Offer(url)
		}
	}
}

func (t Tee) DisjointSpan(class string) {
	for _, c := range t {
		c.DisjointSpan(class)
	}
}

func (t Tee) StartNewLine() {
	for _, c := range t {
		c.StartNewLine()
	}
}

func (t Tee) SkipSymbol() {
	for _, c := range t {
		c.SkipSymbol()
	}
}
