package draftlint

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
)

// benchSource is a reducer module with nested produce calls, sibling
// callbacks and a mix of sanctioned and external mutations.
const benchSource = `import { produce } from "immer";

const stats = { renders: 0, errors: 0 };
const registry = new Map();

export function reducer(state, action) {
  switch (action.type) {
    case "add":
      return produce(state, draft => {
        draft.items.push(action.item);
        draft.byId[action.item.id] = action.item;
        stats.renders += 1;
      });
    case "remove":
      return produce(state, draft => {
        delete draft.byId[action.id];
        draft.items = draft.items.filter(i => i.id !== action.id);
      });
    case "batch":
      return produce(state, outer => {
        for (const item of action.items) {
          outer.byId[item.id] = produce(item, inner => {
            inner.seen = true;
            outer.count = (outer.count || 0) + 1;
          });
        }
        registry.lastBatch = action.items.length;
      });
    default:
      stats.errors += 1;
      return state;
  }
}
`

// setupBenchEngine creates an Engine and writes n copies of benchSource.
func setupBenchEngine(b *testing.B, n int) (*Engine, []string) {
	b.Helper()
	dir := b.TempDir()
	e, err := New(filepath.Join(dir, "bench.db"), WithLogger(discardLogger()))
	if err != nil {
		b.Fatal(err)
	}
	var paths []string
	for i := range n {
		path := filepath.Join(dir, "src", fmt.Sprintf("module_%02d.js", i))
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			b.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(benchSource), 0644); err != nil {
			b.Fatal(err)
		}
		paths = append(paths, path)
	}
	return e, paths
}

// BenchmarkLintSource measures analysis of one file without persistence.
func BenchmarkLintSource(b *testing.B) {
	e, _ := setupBenchEngine(b, 0)
	defer e.Close()
	ctx := context.Background()
	src := []byte(benchSource)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := e.LintSource(ctx, "bench.js", src); err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkLintFiles measures a cold lint of 26 files including SQLite
// writes.
func BenchmarkLintFiles(b *testing.B) {
	ctx := context.Background()
	for i := 0; i < b.N; i++ {
		b.StopTimer()
		e, paths := setupBenchEngine(b, 26)
		b.StartTimer()

		if _, err := e.LintFiles(ctx, paths); err != nil {
			e.Close()
			b.Fatal(err)
		}

		b.StopTimer()
		e.Close()
		b.StartTimer()
	}
}

// BenchmarkLintFiles_Cached measures a warm run where every file is
// unchanged.
func BenchmarkLintFiles_Cached(b *testing.B) {
	e, paths := setupBenchEngine(b, 26)
	defer e.Close()
	ctx := context.Background()
	if _, err := e.LintFiles(ctx, paths); err != nil {
		b.Fatal(err)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := e.LintFiles(ctx, paths); err != nil {
			b.Fatal(err)
		}
	}
}
