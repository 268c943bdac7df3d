package syntax

import (
	"context"
	"fmt"

	sitter "github.com/smacker/go-tree-sitter"
)

// File is one parsed source unit. The tree is owned by the File and
// released by Close.
type File struct {
	Path     string
	Language string
	Source   []byte
	Tree     *sitter.Tree
}

// Parse parses src with the grammar for lang. Syntax errors do not fail the
// parse; tree-sitter recovers and the resulting tree contains ERROR nodes.
func Parse(ctx context.Context, path string, src []byte, lang string) (*File, error) {
	grammar, ok := GrammarForLanguage(lang)
	if !ok {
		return nil, fmt.Errorf("parse: unsupported language %q", lang)
	}

	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(grammar)

	tree, err := parser.ParseCtx(ctx, nil, src)
	if err != nil {
		return nil, fmt.Errorf("parse: tree-sitter parse failed: %w", err)
	}
	return &File{Path: path, Language: lang, Source: src, Tree: tree}, nil
}

// Close releases the underlying tree-sitter tree.
func (f *File) Close() {
	if f.Tree != nil {
		f.Tree.Close()
		f.Tree = nil
	}
}

// Root returns the root node of the tree.
func (f *File) Root() *sitter.Node {
	return f.Tree.RootNode()
}

// Text returns the source text covered by n.
func (f *File) Text(n *sitter.Node) string {
	if n == nil {
		return ""
	}
	return n.Content(f.Source)
}

// Span is a source range with 1-based lines and columns. Columns count bytes.
type Span struct {
	StartLine int
	StartCol  int
	EndLine   int
	EndCol    int
}

// SpanOf returns the 1-based span of n.
func SpanOf(n *sitter.Node) Span {
	start, end := n.StartPoint(), n.EndPoint()
	return Span{
		StartLine: int(start.Row) + 1,
		StartCol:  int(start.Column) + 1,
		EndLine:   int(end.Row) + 1,
		EndCol:    int(end.Column) + 1,
	}
}

// Key identifies a node within one tree. Two lookups of the same node yield
// equal keys even when the binding hands out distinct *sitter.Node values.
type Key struct {
	Start, End uint32
	Kind       string
}

// KeyOf returns the identity key of n.
func KeyOf(n *sitter.Node) Key {
	return Key{Start: n.StartByte(), End: n.EndByte(), Kind: n.Type()}
}
