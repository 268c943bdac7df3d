package syntax

import (
	"context"

	sitter "github.com/smacker/go-tree-sitter"
)

// Handler receives a node visited by Walk.
type Handler func(n *sitter.Node)

// Visitor registers Enter and Exit handlers keyed by node kind. Only named
// nodes are dispatched.
type Visitor struct {
	Enter map[string]Handler
	Exit  map[string]Handler
}

// On registers h for entry events on each of kinds.
func (v *Visitor) On(h Handler, kinds ...string) {
	if v.Enter == nil {
		v.Enter = make(map[string]Handler)
	}
	for _, k := range kinds {
		v.Enter[k] = chain(v.Enter[k], h)
	}
}

// OnExit registers h for exit events on each of kinds.
func (v *Visitor) OnExit(h Handler, kinds ...string) {
	if v.Exit == nil {
		v.Exit = make(map[string]Handler)
	}
	for _, k := range kinds {
		v.Exit[k] = chain(v.Exit[k], h)
	}
}

func chain(prev, next Handler) Handler {
	if prev == nil {
		return next
	}
	return func(n *sitter.Node) {
		prev(n)
		next(n)
	}
}

// cancelCheckInterval is how many nodes Walk visits between context checks.
const cancelCheckInterval = 1024

// Walk traverses the tree rooted at root in a single depth-first pass.
// Entry events fire in pre-order and exit events in post-order: a node's
// exit fires after every descendant's entry and exit and before its next
// sibling's entry. Every entry is paired with exactly one exit.
//
// Walk returns ctx.Err() if the context is cancelled mid-traversal. Exit
// events for the nodes still open at that point are not delivered.
func Walk(ctx context.Context, root *sitter.Node, v Visitor) error {
	if root == nil {
		return nil
	}
	cursor := sitter.NewTreeCursor(root)
	defer cursor.Close()

	visited := 0
	for {
		visited++
		if visited%cancelCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}

		n := cursor.CurrentNode()
		v.dispatch(v.Enter, n)
		if cursor.GoToFirstChild() {
			continue
		}
		v.dispatch(v.Exit, n)

		for !cursor.GoToNextSibling() {
			if !cursor.GoToParent() {
				return nil
			}
			v.dispatch(v.Exit, cursor.CurrentNode())
		}
	}
}

func (v Visitor) dispatch(handlers map[string]Handler, n *sitter.Node) {
	if !n.IsNamed() {
		return
	}
	if h, ok := handlers[n.Type()]; ok {
		h(n)
	}
}
