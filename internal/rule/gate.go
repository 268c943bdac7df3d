package rule

import "github.com/jward/draftlint/internal/syntax"

// Gate decides whether a bare callee name refers to the target helper.
type Gate interface {
	IsTarget(name string) bool
}

// NameGate accepts any callee spelled exactly like the target.
type NameGate string

// IsTarget implements Gate.
func (g NameGate) IsTarget(name string) bool { return name == string(g) }

// ImportGate accepts only names bound by importing the target from one of
// the configured modules. It learns bindings from import declarations and
// destructuring requires as the traversal reaches them, so it must be fresh
// for every source unit.
type ImportGate struct {
	target  string
	modules map[string]bool
	locals  map[string]bool
}

// NewImportGate returns a gate for target imported from any of modules.
func NewImportGate(target string, modules ...string) *ImportGate {
	g := &ImportGate{
		target:  target,
		modules: make(map[string]bool, len(modules)),
		locals:  make(map[string]bool),
	}
	for _, m := range modules {
		g.modules[m] = true
	}
	return g
}

// Observe records the local bindings introduced by v when v imports the
// target from a tracked module. Other views are ignored.
func (g *ImportGate) Observe(v syntax.View) {
	var source string
	var specs []syntax.ImportSpecifier
	switch v := v.(type) {
	case *syntax.Import:
		if v.TypeOnly {
			return
		}
		source, specs = v.Source, v.Specifiers
	case *syntax.Require:
		source, specs = v.Source, v.Specifiers
	default:
		return
	}
	if !g.modules[source] {
		return
	}
	for _, s := range specs {
		if s.Imported == g.target {
			g.locals[s.Local] = true
		}
	}
}

// IsTarget implements Gate.
func (g *ImportGate) IsTarget(name string) bool { return g.locals[name] }

// Bindings returns the number of local names bound to the target.
func (g *ImportGate) Bindings() int { return len(g.locals) }
