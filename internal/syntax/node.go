package syntax

import (
	sitter "github.com/smacker/go-tree-sitter"
)

// Node kinds of the JavaScript and TypeScript grammars that the typed views
// understand. Every other kind is presented as Other.
const (
	KindIdentifier          = "identifier"
	KindCall                = "call_expression"
	KindArguments           = "arguments"
	KindArrowFunction       = "arrow_function"
	KindFunctionExpression  = "function_expression"
	KindFunctionLegacy      = "function"
	KindGeneratorFunction   = "generator_function"
	KindFormalParameters    = "formal_parameters"
	KindAssignment          = "assignment_expression"
	KindAugmentedAssignment = "augmented_assignment_expression"
	KindMember              = "member_expression"
	KindSubscript           = "subscript_expression"
	KindParenthesized       = "parenthesized_expression"
	KindNonNull             = "non_null_expression"
	KindAs                  = "as_expression"
	KindSatisfies           = "satisfies_expression"
	KindImport              = "import_statement"
	KindVariableDeclarator  = "variable_declarator"
	KindComment             = "comment"
	KindString              = "string"
)

// View is a typed view of a syntax node. The set of implementations is
// closed: Identifier, Member, Call, Function, Assignment, Import, Require and
// Other. Consumers discriminate with a type switch.
type View interface {
	Node() *sitter.Node
	view()
}

type base struct{ n *sitter.Node }

func (b base) Node() *sitter.Node { return b.n }
func (base) view()                {}

// Identifier is a bare name reference.
type Identifier struct {
	base
	Name string
}

// Member is a property access, either dotted (a.b) or computed (a[k]).
type Member struct {
	base
	Object   *sitter.Node
	Property string // empty for computed access
	Computed bool
}

// Call is a function invocation.
type Call struct {
	base
	Callee View
	Args   []*sitter.Node
}

// Function is a function literal: an arrow function (expression- or
// block-bodied), a function expression or a generator function expression.
type Function struct {
	base
	Arrow  bool
	Params []*sitter.Node
}

// Assignment is a plain or compound assignment expression.
type Assignment struct {
	base
	Target   *sitter.Node
	Value    *sitter.Node
	Operator string
}

// ImportSpecifier binds Imported from a module to a Local name.
type ImportSpecifier struct {
	Imported string
	Local    string
}

// Import is an ES module import statement. Only named specifiers are
// collected; default and namespace imports are not.
type Import struct {
	base
	Source     string
	TypeOnly   bool
	Specifiers []ImportSpecifier
}

// Require is a CommonJS destructuring require:
// const { a, b: c } = require("m").
type Require struct {
	base
	Source     string
	Specifiers []ImportSpecifier
}

// Other is any node kind without a dedicated view.
type Other struct {
	base
}

// View returns the typed view of n. It never returns nil for a non-nil node;
// shapes that do not match the expected grammar fall back to Other.
func (f *File) View(n *sitter.Node) View {
	if n == nil {
		return nil
	}
	switch n.Type() {
	case KindIdentifier:
		return &Identifier{base: base{n}, Name: f.Text(n)}

	case KindMember:
		obj := n.ChildByFieldName("object")
		if obj == nil {
			break
		}
		return &Member{base: base{n}, Object: obj, Property: f.Text(n.ChildByFieldName("property"))}

	case KindSubscript:
		obj := n.ChildByFieldName("object")
		if obj == nil {
			break
		}
		return &Member{base: base{n}, Object: obj, Computed: true}

	case KindCall:
		fn := n.ChildByFieldName("function")
		if fn == nil {
			break
		}
		return &Call{base: base{n}, Callee: f.View(fn), Args: callArguments(n)}

	case KindArrowFunction:
		fn := &Function{base: base{n}, Arrow: true}
		if p := n.ChildByFieldName("parameter"); p != nil {
			fn.Params = []*sitter.Node{p}
		} else {
			fn.Params = namedChildren(n.ChildByFieldName("parameters"))
		}
		return fn

	case KindFunctionExpression, KindFunctionLegacy, KindGeneratorFunction:
		return &Function{base: base{n}, Params: namedChildren(n.ChildByFieldName("parameters"))}

	case KindAssignment, KindAugmentedAssignment:
		left := n.ChildByFieldName("left")
		if left == nil {
			break
		}
		op := "="
		if o := n.ChildByFieldName("operator"); o != nil {
			op = f.Text(o)
		}
		return &Assignment{base: base{n}, Target: left, Value: n.ChildByFieldName("right"), Operator: op}

	case KindImport:
		return f.importView(n)

	case KindVariableDeclarator:
		if req := f.requireView(n); req != nil {
			return req
		}
	}
	return &Other{base: base{n}}
}

// Unwrap strips parentheses around an expression.
func Unwrap(n *sitter.Node) *sitter.Node {
	for n != nil && n.Type() == KindParenthesized {
		inner := firstNamedChild(n)
		if inner == nil {
			return n
		}
		n = inner
	}
	return n
}

// BoundName reports the name bound by a function parameter when the
// parameter is a simple name. Destructuring patterns, rest parameters and
// parameters with default values bind no single name.
func (f *File) BoundName(param *sitter.Node) (string, bool) {
	if param == nil {
		return "", false
	}
	switch param.Type() {
	case KindIdentifier:
		return f.Text(param), true
	case "required_parameter", "optional_parameter":
		if param.ChildByFieldName("value") != nil {
			return "", false
		}
		pattern := param.ChildByFieldName("pattern")
		if pattern != nil && pattern.Type() == KindIdentifier {
			return f.Text(pattern), true
		}
	}
	return "", false
}

func (f *File) importView(n *sitter.Node) View {
	imp := &Import{base: base{n}, Source: f.stringValue(n.ChildByFieldName("source"))}
	for i := 0; i < int(n.ChildCount()); i++ {
		child := n.Child(i)
		switch {
		case !child.IsNamed() && child.Type() == "type":
			imp.TypeOnly = true
		case child.Type() == "import_clause":
			imp.Specifiers = f.importClause(child)
		}
	}
	return imp
}

func (f *File) importClause(clause *sitter.Node) []ImportSpecifier {
	var specs []ImportSpecifier
	for _, c := range namedChildren(clause) {
		if c.Type() != "named_imports" {
			continue
		}
		for _, spec := range namedChildren(c) {
			if spec.Type() != "import_specifier" || hasKeyword(spec, "type") {
				continue
			}
			name := spec.ChildByFieldName("name")
			if name == nil {
				continue
			}
			imported := f.Text(name)
			if name.Type() == KindString {
				imported = f.stringValue(name)
			}
			local := imported
			if alias := spec.ChildByFieldName("alias"); alias != nil {
				local = f.Text(alias)
			}
			specs = append(specs, ImportSpecifier{Imported: imported, Local: local})
		}
	}
	return specs
}

func (f *File) requireView(n *sitter.Node) View {
	value := Unwrap(n.ChildByFieldName("value"))
	pattern := n.ChildByFieldName("name")
	if value == nil || pattern == nil || value.Type() != KindCall || pattern.Type() != "object_pattern" {
		return nil
	}
	fn := value.ChildByFieldName("function")
	if fn == nil || fn.Type() != KindIdentifier || f.Text(fn) != "require" {
		return nil
	}
	args := callArguments(value)
	if len(args) != 1 || args[0].Type() != KindString {
		return nil
	}

	req := &Require{base: base{n}, Source: f.stringValue(args[0])}
	for _, c := range namedChildren(pattern) {
		switch c.Type() {
		case "shorthand_property_identifier_pattern":
			name := f.Text(c)
			req.Specifiers = append(req.Specifiers, ImportSpecifier{Imported: name, Local: name})
		case "pair_pattern":
			key, val := c.ChildByFieldName("key"), c.ChildByFieldName("value")
			if key == nil || val == nil || val.Type() != KindIdentifier {
				continue
			}
			imported := f.Text(key)
			if key.Type() == KindString {
				imported = f.stringValue(key)
			}
			req.Specifiers = append(req.Specifiers, ImportSpecifier{Imported: imported, Local: f.Text(val)})
		}
	}
	return req
}

// stringValue returns the contents of a string literal without its quotes.
func (f *File) stringValue(n *sitter.Node) string {
	s := f.Text(n)
	if len(s) >= 2 {
		return s[1 : len(s)-1]
	}
	return s
}

// callArguments returns the argument expressions of a call, skipping
// comments and unwrapping parentheses. Tagged templates have no arguments.
func callArguments(call *sitter.Node) []*sitter.Node {
	args := call.ChildByFieldName("arguments")
	if args == nil || args.Type() != KindArguments {
		return nil
	}
	list := namedChildren(args)
	for i, a := range list {
		list[i] = Unwrap(a)
	}
	return list
}

// namedChildren returns the named children of n, excluding comments.
func namedChildren(n *sitter.Node) []*sitter.Node {
	if n == nil {
		return nil
	}
	count := int(n.NamedChildCount())
	out := make([]*sitter.Node, 0, count)
	for i := 0; i < count; i++ {
		c := n.NamedChild(i)
		if c == nil || c.Type() == KindComment {
			continue
		}
		out = append(out, c)
	}
	return out
}

func firstNamedChild(n *sitter.Node) *sitter.Node {
	if kids := namedChildren(n); len(kids) > 0 {
		return kids[0]
	}
	return nil
}

func hasKeyword(n *sitter.Node, keyword string) bool {
	for i := 0; i < int(n.ChildCount()); i++ {
		c := n.Child(i)
		if !c.IsNamed() && c.Type() == keyword {
			return true
		}
	}
	return false
}
