// Package rule implements the no-external-immer-draft check: inside the
// callback of an immer-style produce(base, draft => { ... }) call, only the
// draft may have its properties assigned.
//
// The check is a single pass over the syntax tree. Entering a qualifying
// call pushes a frame naming the callback's draft parameter, leaving it pops
// the frame, and every assignment in between is judged against the
// innermost frame only.
package rule

import (
	"context"
	"fmt"
	"log/slog"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/jward/draftlint/internal/syntax"
)

// Diagnostic is one reported violation.
type Diagnostic struct {
	Rule    string
	Kind    string
	Message string
	Span    syntax.Span
}

// Options configures the rule.
type Options struct {
	// Target is the helper function name.
	Target string
	// Modules lists the module specifiers the helper is imported from.
	Modules []string
	// RequireImport only recognizes calls through names imported from one
	// of Modules. When false any callee spelled Target qualifies.
	RequireImport bool
}

// DefaultOptions returns the options for immer's produce.
func DefaultOptions() Options {
	return Options{
		Target:        "produce",
		Modules:       []string{"immer"},
		RequireImport: true,
	}
}

// Rule is a configured draft-mutation check. A Rule holds no per-file state
// and is safe for concurrent use; every Check gets its own scope stack.
type Rule struct {
	opts   Options
	logger *slog.Logger
}

// New returns a Rule. Empty fields of opts take their defaults.
func New(opts Options, logger *slog.Logger) *Rule {
	def := DefaultOptions()
	if opts.Target == "" {
		opts.Target = def.Target
	}
	if len(opts.Modules) == 0 {
		opts.Modules = def.Modules
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Rule{opts: opts, logger: logger}
}

// Options returns the effective options.
func (r *Rule) Options() Options { return r.opts }

// Check analyzes one parsed file and returns its diagnostics in source
// order. Running Check twice on the same file yields the same result.
func (r *Rule) Check(ctx context.Context, f *syntax.File) ([]Diagnostic, error) {
	c := &checker{
		file:       f,
		suppressed: make(suppressions),
	}

	var v syntax.Visitor
	if r.opts.RequireImport {
		imports := NewImportGate(r.opts.Target, r.opts.Modules...)
		c.gate = imports
		v.On(func(n *sitter.Node) { imports.Observe(f.View(n)) }, syntax.KindImport, syntax.KindVariableDeclarator)
	} else {
		c.gate = NameGate(r.opts.Target)
	}
	v.On(c.enterCall, syntax.KindCall)
	v.OnExit(c.exitCall, syntax.KindCall)
	v.On(c.visitAssignment, syntax.KindAssignment, syntax.KindAugmentedAssignment)
	v.On(c.visitComment, syntax.KindComment)

	if err := syntax.Walk(ctx, f.Root(), v); err != nil {
		return nil, fmt.Errorf("check %s: %w", f.Path, err)
	}

	diags := c.suppressed.filter(c.diags)
	attrs := []any{
		slog.String("path", f.Path),
		slog.Int("frames", c.framesOpened),
		slog.Int("diagnostics", len(diags)),
	}
	if imports, ok := c.gate.(*ImportGate); ok {
		attrs = append(attrs, slog.Int("bindings", imports.Bindings()))
	}
	r.logger.Debug("rule: checked file", attrs...)
	return diags, nil
}

// checker is the per-traversal state of one Check.
type checker struct {
	file         *syntax.File
	gate         Gate
	stack        Stack
	diags        []Diagnostic
	suppressed   suppressions
	framesOpened int
}

func (c *checker) enterCall(n *sitter.Node) {
	call, ok := c.file.View(n).(*syntax.Call)
	if !ok {
		return
	}
	if frame, ok := ClassifyCall(c.file, call, c.gate); ok {
		c.stack.Push(frame)
		c.framesOpened++
	}
}

func (c *checker) exitCall(n *sitter.Node) {
	c.stack.Pop(syntax.KeyOf(n))
}

func (c *checker) visitAssignment(n *sitter.Node) {
	if c.stack.Len() == 0 {
		return
	}
	a, ok := c.file.View(n).(*syntax.Assignment)
	if !ok {
		return
	}
	if ClassifyMutation(c.file, a, &c.stack) != Violation {
		return
	}
	c.diags = append(c.diags, Diagnostic{
		Rule:    Name,
		Kind:    MessageExternalMutation,
		Message: Metadata.Message(MessageExternalMutation),
		Span:    syntax.SpanOf(n),
	})
}

func (c *checker) visitComment(n *sitter.Node) {
	c.suppressed.add(c.file.Text(n), syntax.SpanOf(n).StartLine)
}
