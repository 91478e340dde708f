package lexer

// Context is the quote and heredoc state of one scanning context. The
// engine owns the current Context; suspended ones live on a StateStack.
type Context struct {
	Nesting  NestingState
	Heredocs HeredocQueue
}

// StateStack holds suspended contexts while an interpolation region is
// scanned. Entries are values, so no two live contexts share state.
type StateStack struct {
	frames []Context
}

// Push suspends c.
func (s *StateStack) Push(c Context) {
	c.Heredocs = c.Heredocs.clone()
	s.frames = append(s.frames, c)
}

// Pop restores the most recently suspended context. Popping an empty stack
// is a scanner table defect and panics.
func (s *StateStack) Pop() Context {
	if len(s.frames) == 0 {
		panic("lexer: state stack underflow")
	}
	c := s.frames[len(s.frames)-1]
	s.frames[len(s.frames)-1] = Context{}
	s.frames = s.frames[:len(s.frames)-1]
	return c
}

// Len returns the number of suspended contexts.
func (s *StateStack) Len() int { return len(s.frames) }

// Reset drops all suspended contexts.
func (s *StateStack) Reset() {
	clear(s.frames)
	s.frames = s.frames[:0]
}
