package runtime

import (
	"context"
	"fmt"

	"github.com/risor-io/risor/object"

	"github.com/jward/draftlint/internal/rule"
	"github.com/jward/draftlint/internal/syntax"
)

// Target is the file a script rule runs against.
type Target struct {
	File *syntax.File
	// Prior holds diagnostics already produced for File by built-in rules.
	Prior []rule.Diagnostic
}

// RunRule executes the script at scriptPath against target and returns the
// diagnostics it reported, in report order.
//
// Scripts see these globals in addition to the standard ones:
//
//	file_path   the linted file's path
//	language    its canonical language name
//	root        the root Node of its tree
//	diagnostics the Prior diagnostics as a list of maps
//	report      report(node, kind, message) records a finding at node
func (r *Runtime) RunRule(ctx context.Context, scriptPath string, target Target) ([]rule.Diagnostic, error) {
	src, err := r.LoadScript(scriptPath)
	if err != nil {
		return nil, err
	}

	ss := newSourceStore()
	defer ss.close()
	ss.register(target.File)

	root, err := object.NewProxy(target.File.Root())
	if err != nil {
		return nil, fmt.Errorf("runtime: proxy root: %w", err)
	}

	rep := &reporter{rule: RuleName(scriptPath)}
	globals := map[string]any{
		"file_path":   target.File.Path,
		"language":    target.File.Language,
		"root":        root,
		"diagnostics": diagnosticsToList(target.Prior),
		"report":      rep.builtin(),
	}
	if err := r.eval(ctx, src, scriptPath, ss, globals); err != nil {
		return nil, err
	}
	return rep.diags, nil
}

// reporter collects the findings of one script run.
type reporter struct {
	rule  string
	diags []rule.Diagnostic
}

// builtin creates "report".
//
// report(node, kind, message) → nil
// report(node, message) → nil, with kind defaulting to the rule id
func (rep *reporter) builtin() *object.Builtin {
	return object.NewBuiltin("report", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 2 && len(args) != 3 {
			return object.Errorf("report: expected 2 or 3 arguments, got %d", len(args))
		}
		node, errObj := nodeArg("report", args[0])
		if errObj != nil {
			return errObj
		}

		kind := rep.rule
		msgArg := args[1]
		if len(args) == 3 {
			k, err := toString(args[1])
			if err != nil {
				return object.Errorf("report: kind: %v", err)
			}
			kind = k
			msgArg = args[2]
		}
		msg, err := toString(msgArg)
		if err != nil {
			return object.Errorf("report: message: %v", err)
		}

		rep.diags = append(rep.diags, rule.Diagnostic{
			Rule:    rep.rule,
			Kind:    kind,
			Message: msg,
			Span:    syntax.SpanOf(node),
		})
		return object.Nil
	})
}

// diagnosticsToList converts diagnostics to a Risor list of maps.
func diagnosticsToList(diags []rule.Diagnostic) object.Object {
	results := make([]object.Object, 0, len(diags))
	for _, d := range diags {
		results = append(results, object.NewMap(map[string]object.Object{
			"rule":       object.NewString(d.Rule),
			"kind":       object.NewString(d.Kind),
			"message":    object.NewString(d.Message),
			"start_line": object.NewInt(int64(d.Span.StartLine)),
			"start_col":  object.NewInt(int64(d.Span.StartCol)),
			"end_line":   object.NewInt(int64(d.Span.EndLine)),
			"end_col":    object.NewInt(int64(d.Span.EndCol)),
		}))
	}
	return object.NewList(results)
}

func toString(obj object.Object) (string, error) {
	if s, ok := obj.(*object.String); ok {
		return s.Value(), nil
	}
	return "", fmt.Errorf("expected string, got %s", obj.Type())
}
