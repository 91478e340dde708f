package lexer

// StateID identifies a lexer mode of a concrete scanner. Values are owned
// by the scanner; the engine only stores and compares them.
type StateID int

// ScanStateTable names the modes the generic helpers need to switch into.
// A concrete scanner builds one value and hands it to NewEngine.
type ScanStateTable struct {
	// Initial is the top-level mode. It is the base of the mode stack and
	// the mode pushed when an interpolation region starts.
	Initial StateID

	// Quote modes, by interpolation and link rendering.
	Quote               StateID
	QuoteNoInterp       StateID
	QuoteNoLink         StateID
	QuoteNoInterpNoLink StateID

	// Heredoc body modes, by indentation and interpolation.
	Heredoc                 StateID
	HeredocNoInterp         StateID
	HeredocIndented         StateID
	HeredocIndentedNoInterp StateID
}

// QuoteState returns the quote mode for the given flags.
func (t ScanStateTable) QuoteState(interp, link bool) StateID {
	switch {
	case interp && link:
		return t.Quote
	case interp:
		return t.QuoteNoLink
	case link:
		return t.QuoteNoInterp
	default:
		return t.QuoteNoInterpNoLink
	}
}

// HeredocState returns the heredoc body mode for the given flags.
func (t ScanStateTable) HeredocState(indented, interp bool) StateID {
	switch {
	case indented && interp:
		return t.HeredocIndented
	case indented:
		return t.HeredocIndentedNoInterp
	case interp:
		return t.Heredoc
	default:
		return t.HeredocNoInterp
	}
}

// IsQuote reports whether id is one of the quote modes.
func (t ScanStateTable) IsQuote(id StateID) bool {
	return id == t.Quote || id == t.QuoteNoInterp || id == t.QuoteNoLink || id == t.QuoteNoInterpNoLink
}

// IsHeredoc reports whether id is one of the heredoc body modes.
func (t ScanStateTable) IsHeredoc(id StateID) bool {
	return id == t.Heredoc || id == t.HeredocNoInterp || id == t.HeredocIndented || id == t.HeredocIndentedNoInterp
}

// Interpolates reports whether the quote or heredoc mode id expands #{}.
func (t ScanStateTable) Interpolates(id StateID) bool {
	return id == t.Quote || id == t.QuoteNoLink || id == t.Heredoc || id == t.HeredocIndented
}

// Links reports whether the quote mode id renders URLs as links.
func (t ScanStateTable) Links(id StateID) bool {
	return id == t.Quote || id == t.QuoteNoInterp || t.IsHeredoc(id)
}

// modeStack is the cheap, high-frequency stack of lexer modes. It always
// holds at least the base mode.
type modeStack struct {
	ids []StateID
}

func (m *modeStack) reset(base StateID) {
	m.ids = append(m.ids[:0], base)
}

func (m *modeStack) top() StateID {
	return m.ids[len(m.ids)-1]
}

func (m *modeStack) push(id StateID) {
	m.ids = append(m.ids, id)
}

func (m *modeStack) pop() StateID {
	if len(m.ids) <= 1 {
		panic("lexer: mode stack underflow")
	}
	id := m.ids[len(m.ids)-1]
	m.ids = m.ids[:len(m.ids)-1]
	return id
}

func (m *modeStack) replace(id StateID) {
	m.ids[len(m.ids)-1] = id
}

func (m *modeStack) depth() int {
	return len(m.ids)
}
