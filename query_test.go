package draftlint

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/draftlint/internal/store"
)

func newTestQueryBuilder(t *testing.T) (*QueryBuilder, *store.Store) {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	s, err := store.NewStore(dbPath)
	require.NoError(t, err)
	require.NoError(t, s.Migrate())
	t.Cleanup(func() { s.Close() })
	return NewQueryBuilder(s), s
}

func seedFile(t *testing.T, s *store.Store, path string, diags ...store.Diagnostic) int64 {
	t.Helper()
	id, err := s.InsertFile(&store.File{Path: path, Language: "javascript", Hash: "h", LastLinted: time.Now()})
	require.NoError(t, err)
	for i := range diags {
		diags[i].FileID = id
		_, err := s.InsertDiagnostic(&diags[i])
		require.NoError(t, err)
	}
	return id
}

func diagAt(rule string, line, col int) store.Diagnostic {
	return store.Diagnostic{
		Rule: rule, Kind: "k", Message: "m",
		StartLine: line, StartCol: col, EndLine: line, EndCol: col + 4,
	}
}

func TestDiagnostics_OrderedByPathAndPosition(t *testing.T) {
	q, s := newTestQueryBuilder(t)
	seedFile(t, s, "/b.js", diagAt("r", 1, 1))
	seedFile(t, s, "/a.js", diagAt("r", 7, 2), diagAt("r", 3, 9), diagAt("r", 3, 1))
	seedFile(t, s, "/clean.js")

	diags, err := q.Diagnostics()
	require.NoError(t, err)
	require.Len(t, diags, 4)

	var got []Location
	for _, d := range diags {
		got = append(got, Location{File: d.File, StartLine: d.StartLine, StartCol: d.StartCol})
	}
	assert.Equal(t, []Location{
		{File: "/a.js", StartLine: 3, StartCol: 1},
		{File: "/a.js", StartLine: 3, StartCol: 9},
		{File: "/a.js", StartLine: 7, StartCol: 2},
		{File: "/b.js", StartLine: 1, StartCol: 1},
	}, got)
	assert.Equal(t, 5, diags[0].EndCol)
	assert.Equal(t, "m", diags[0].Message)
}

func TestDiagnostics_EmptyStore(t *testing.T) {
	q, _ := newTestQueryBuilder(t)
	diags, err := q.Diagnostics()
	require.NoError(t, err)
	assert.Empty(t, diags)
}

func TestDiagnosticsByFile(t *testing.T) {
	q, s := newTestQueryBuilder(t)
	seedFile(t, s, "/a.js", diagAt("r", 2, 1), diagAt("r", 1, 1))
	seedFile(t, s, "/b.js", diagAt("r", 1, 1))

	diags, err := q.DiagnosticsByFile("/a.js")
	require.NoError(t, err)
	require.Len(t, diags, 2)
	assert.Equal(t, 1, diags[0].StartLine)
	assert.Equal(t, "/a.js", diags[1].File)

	none, err := q.DiagnosticsByFile("/nope.js")
	require.NoError(t, err)
	assert.Nil(t, none)
}

func TestDiagnosticsByRule(t *testing.T) {
	q, s := newTestQueryBuilder(t)
	seedFile(t, s, "/b.js", diagAt("alpha", 1, 1), diagAt("beta", 2, 1))
	seedFile(t, s, "/a.js", diagAt("alpha", 5, 1))

	diags, err := q.DiagnosticsByRule("alpha")
	require.NoError(t, err)
	require.Len(t, diags, 2)
	assert.Equal(t, "/a.js", diags[0].File)
	assert.Equal(t, "/b.js", diags[1].File)
	for _, d := range diags {
		assert.Equal(t, "alpha", d.Rule)
	}

	none, err := q.DiagnosticsByRule("gamma")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestSummary(t *testing.T) {
	q, s := newTestQueryBuilder(t)
	seedFile(t, s, "/b.js", diagAt("alpha", 1, 1), diagAt("beta", 2, 1))
	seedFile(t, s, "/a.js", diagAt("alpha", 5, 1))
	seedFile(t, s, "/clean.js")

	summary, err := q.Summary()
	require.NoError(t, err)
	assert.Equal(t, &Summary{
		Files:       3,
		Diagnostics: 3,
		ByRule:      []RuleCount{{Rule: "alpha", Count: 2}, {Rule: "beta", Count: 1}},
		ByFile:      []FileCount{{Path: "/a.js", Count: 1}, {Path: "/b.js", Count: 2}},
		ByLanguage:  map[string]int{"javascript": 3},
	}, summary)
}
