package runtime

import (
	"context"
	"log/slog"
	"sync"

	"github.com/risor-io/risor/object"
	sitter "github.com/smacker/go-tree-sitter"

	"github.com/jward/draftlint/internal/syntax"
)

// sourceStore maps the root node of every tree visible to a script run to
// its parsed file. node_text and query recover source and grammar from any
// node by walking up to the root; smacker/go-tree-sitter caches node values
// per tree, so the root pointer is stable.
type sourceStore struct {
	mu    sync.RWMutex
	files map[*sitter.Node]*syntax.File
	owned []*syntax.File
}

func newSourceStore() *sourceStore {
	return &sourceStore{files: make(map[*sitter.Node]*syntax.File)}
}

func (s *sourceStore) register(f *syntax.File) {
	s.mu.Lock()
	s.files[f.Root()] = f
	s.mu.Unlock()
}

// adopt registers a file parsed by the script itself; close releases it.
func (s *sourceStore) adopt(f *syntax.File) {
	s.register(f)
	s.mu.Lock()
	s.owned = append(s.owned, f)
	s.mu.Unlock()
}

func (s *sourceStore) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, f := range s.owned {
		f.Close()
	}
	s.owned = nil
	clear(s.files)
}

func (s *sourceStore) fileForNode(node *sitter.Node) (*syntax.File, bool) {
	for node.Parent() != nil {
		node = node.Parent()
	}
	s.mu.RLock()
	f, ok := s.files[node]
	s.mu.RUnlock()
	return f, ok
}

// nodeArg unwraps a proxied *sitter.Node argument.
func nodeArg(fn string, arg object.Object) (*sitter.Node, *object.Error) {
	proxy, ok := arg.(*object.Proxy)
	if !ok {
		return nil, object.Errorf("%s: expected proxy (Node), got %s", fn, arg.Type())
	}
	node, ok := proxy.Interface().(*sitter.Node)
	if !ok || node == nil {
		return nil, object.Errorf("%s: expected *sitter.Node, got %T", fn, proxy.Interface())
	}
	return node, nil
}

// makeParseSrcFn creates "parse_src".
//
// parse_src(source, language) → Node (the root)
func makeParseSrcFn(ss *sourceStore) *object.Builtin {
	return object.NewBuiltin("parse_src", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 2 {
			return object.NewArgsError("parse_src", 2, len(args))
		}
		srcStr, ok := args[0].(*object.String)
		if !ok {
			return object.Errorf("parse_src: source must be a string, got %s", args[0].Type())
		}
		langStr, ok := args[1].(*object.String)
		if !ok {
			return object.Errorf("parse_src: language must be a string, got %s", args[1].Type())
		}

		f, err := syntax.Parse(ctx, "<script>", []byte(srcStr.Value()), langStr.Value())
		if err != nil {
			return object.Errorf("parse_src: %v", err)
		}
		ss.adopt(f)

		proxy, err := object.NewProxy(f.Root())
		if err != nil {
			return object.Errorf("parse_src: proxy error: %v", err)
		}
		return proxy
	})
}

// makeNodeTextFn creates "node_text". Risor's proxy system cannot convert
// strings to []byte for node.Content([]byte).
//
// node_text(node) → string
func makeNodeTextFn(ss *sourceStore) *object.Builtin {
	return object.NewBuiltin("node_text", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("node_text", 1, len(args))
		}
		node, errObj := nodeArg("node_text", args[0])
		if errObj != nil {
			return errObj
		}
		f, found := ss.fileForNode(node)
		if !found {
			return object.Errorf("node_text: no source found for node's tree")
		}
		return object.NewString(f.Text(node))
	})
}

// makeQueryFn creates "query".
//
// query(pattern, node) → []map[string]Node
//
// Each map has capture names as keys and proxied Nodes as values.
func makeQueryFn(ss *sourceStore) *object.Builtin {
	return object.NewBuiltin("query", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 2 {
			return object.NewArgsError("query", 2, len(args))
		}
		patternStr, ok := args[0].(*object.String)
		if !ok {
			return object.Errorf("query: pattern must be a string, got %s", args[0].Type())
		}
		node, errObj := nodeArg("query", args[1])
		if errObj != nil {
			return errObj
		}

		f, found := ss.fileForNode(node)
		if !found {
			return object.Errorf("query: no source found for node's tree")
		}
		lang, _ := syntax.GrammarForLanguage(f.Language)

		q, err := sitter.NewQuery([]byte(patternStr.Value()), lang)
		if err != nil {
			return object.Errorf("query: invalid pattern: %v", err)
		}
		defer q.Close()

		cursor := sitter.NewQueryCursor()
		defer cursor.Close()
		cursor.Exec(q, node)

		results := []object.Object{}
		for {
			match, ok := cursor.NextMatch()
			if !ok {
				break
			}
			match = cursor.FilterPredicates(match, f.Source)
			if len(match.Captures) == 0 {
				continue
			}

			matchMap := make(map[string]object.Object, len(match.Captures))
			for _, capture := range match.Captures {
				name := q.CaptureNameForId(capture.Index)
				nodeP, err := object.NewProxy(capture.Node)
				if err != nil {
					return object.Errorf("query: proxy error for capture %q: %v", name, err)
				}
				matchMap[name] = nodeP
			}
			results = append(results, object.NewMap(matchMap))
		}
		return object.NewList(results)
	})
}

// makeNodeChildFn creates "node_child", a ChildByFieldName wrapper that
// returns Risor nil instead of a proxied Go nil pointer.
//
// node_child(node, fieldName) → Node or nil
func makeNodeChildFn() *object.Builtin {
	return object.NewBuiltin("node_child", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 2 {
			return object.NewArgsError("node_child", 2, len(args))
		}
		node, errObj := nodeArg("node_child", args[0])
		if errObj != nil {
			return errObj
		}
		fieldStr, ok := args[1].(*object.String)
		if !ok {
			return object.Errorf("node_child: field must be a string, got %s", args[1].Type())
		}

		child := node.ChildByFieldName(fieldStr.Value())
		if child == nil {
			return object.Nil
		}
		p, err := object.NewProxy(child)
		if err != nil {
			return object.Errorf("node_child: proxy error: %v", err)
		}
		return p
	})
}

// logObject provides log.Debug/Info/Warn/Error methods for Risor scripts.
type logObject struct {
	logger *slog.Logger
}

func (l *logObject) Debug(msg string) { l.logger.Debug(msg) }
func (l *logObject) Info(msg string)  { l.logger.Info(msg) }
func (l *logObject) Warn(msg string)  { l.logger.Warn(msg) }
func (l *logObject) Error(msg string) { l.logger.Error(msg) }
