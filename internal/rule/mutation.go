package rule

import (
	sitter "github.com/smacker/go-tree-sitter"

	"github.com/jward/draftlint/internal/syntax"
)

// Classification is the verdict on one assignment.
type Classification int

const (
	// NotApplicable means the assignment is outside any frame, is not a
	// property mutation, or has no identifier at the root of its target.
	NotApplicable Classification = iota
	// Sanctioned means the target's root is the innermost frame's handle.
	Sanctioned
	// Violation means a property of some other variable is mutated.
	Violation
)

func (c Classification) String() string {
	switch c {
	case NotApplicable:
		return "not-applicable"
	case Sanctioned:
		return "sanctioned"
	case Violation:
		return "violation"
	}
	return "unknown"
}

// ClassifyMutation classifies a against the innermost frame of stack. Outer
// frames are never consulted.
func ClassifyMutation(f *syntax.File, a *syntax.Assignment, stack *Stack) Classification {
	top, ok := stack.Top()
	if !ok {
		return NotApplicable
	}
	member, ok := f.View(syntax.Unwrap(a.Target)).(*syntax.Member)
	if !ok {
		return NotApplicable
	}
	root, ok := RootName(f, member.Object)
	if !ok {
		return NotApplicable
	}
	if top.HasHandle() && root == top.Handle {
		return Sanctioned
	}
	return Violation
}

// RootName walks a property-access chain down to its base and returns the
// base identifier. a.b[c].d yields "a"; this.x and f().x have no root name.
// Parentheses, non-null assertions and type casts are looked through.
func RootName(f *syntax.File, n *sitter.Node) (string, bool) {
	for n != nil {
		switch v := f.View(n).(type) {
		case *syntax.Identifier:
			return v.Name, true
		case *syntax.Member:
			n = v.Object
		default:
			switch n.Type() {
			case syntax.KindParenthesized:
				inner := syntax.Unwrap(n)
				if inner == n {
					return "", false
				}
				n = inner
			case syntax.KindNonNull, syntax.KindAs, syntax.KindSatisfies:
				n = n.NamedChild(0)
			default:
				return "", false
			}
		}
	}
	return "", false
}
