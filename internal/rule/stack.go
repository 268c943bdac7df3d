package rule

import "github.com/jward/draftlint/internal/syntax"

// Frame is one active invocation of the target helper.
type Frame struct {
	// Opening identifies the call node that pushed the frame. Frames are
	// popped by identity, never by position.
	Opening syntax.Key
	// Handle is the name bound to the callback's first parameter, or empty
	// when that parameter is missing or is not a simple name.
	Handle string
}

// HasHandle reports whether the frame sanctions a handle.
func (f Frame) HasHandle() bool { return f.Handle != "" }

// Stack holds the active frames, outermost first. The zero value is an
// empty stack ready to use.
type Stack struct {
	frames []Frame
}

// Push appends f as the innermost frame.
func (s *Stack) Push(f Frame) {
	s.frames = append(s.frames, f)
}

// Pop removes the most recently pushed frame opened by key. It is a no-op
// when no such frame exists.
func (s *Stack) Pop(key syntax.Key) {
	for i := len(s.frames) - 1; i >= 0; i-- {
		if s.frames[i].Opening == key {
			s.frames = append(s.frames[:i], s.frames[i+1:]...)
			return
		}
	}
}

// Top returns the innermost frame.
func (s *Stack) Top() (Frame, bool) {
	if len(s.frames) == 0 {
		return Frame{}, false
	}
	return s.frames[len(s.frames)-1], true
}

// Len returns the number of active frames.
func (s *Stack) Len() int { return len(s.frames) }

// Reset empties the stack for reuse on another source unit.
func (s *Stack) Reset() { s.frames = s.frames[:0] }
