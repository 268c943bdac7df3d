package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/draftlint"
)

func TestFindRepoRoot_DirectGitDir(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	if err := os.Mkdir(filepath.Join(root, ".git"), 0o755); err != nil {
		t.Fatal(err)
	}

	got := findRepoRoot(root)
	assert.Equal(t, root, got)
}

func TestFindRepoRoot_NestedSubdirectory(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	if err := os.Mkdir(filepath.Join(root, ".git"), 0o755); err != nil {
		t.Fatal(err)
	}
	deep := filepath.Join(root, "sub", "deep")
	if err := os.MkdirAll(deep, 0o755); err != nil {
		t.Fatal(err)
	}

	got := findRepoRoot(deep)
	assert.Equal(t, root, got)
}

func TestFindRepoRoot_NoGitAncestor(t *testing.T) {
	t.Parallel()
	// TempDir has no .git directory anywhere in its ancestry
	// (unless /tmp itself is a repo, which would be unusual).
	dir := t.TempDir()

	got := findRepoRoot(dir)
	assert.Equal(t, dir, got)
}

func TestResolveDBPath_Default(t *testing.T) {
	t.Parallel()
	assert.Equal(t, filepath.Join("/repo", ".draftlint", "cache.db"), resolveDBPath("/repo"))
}

func TestResolveTargetDir(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	file := filepath.Join(dir, "a.js")
	require.NoError(t, os.WriteFile(file, []byte("x;\n"), 0o644))

	got, err := resolveTargetDir([]string{dir})
	require.NoError(t, err)
	assert.Equal(t, dir, got)

	_, err = resolveTargetDir([]string{file})
	assert.ErrorContains(t, err, "not a directory")

	_, err = resolveTargetDir([]string{filepath.Join(dir, "missing")})
	assert.ErrorContains(t, err, "directory not found")
}

func TestValidateFormat(t *testing.T) {
	t.Parallel()
	assert.NoError(t, validateFormat("json"))
	assert.NoError(t, validateFormat("text"))
	assert.ErrorContains(t, validateFormat("yaml"), `invalid format "yaml"`)
}

func TestRemoveDatabase(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	db := filepath.Join(dir, "cache.db")
	for _, p := range []string{db, db + "-wal"} {
		require.NoError(t, os.WriteFile(p, nil, 0o644))
	}

	require.NoError(t, removeDatabase(db))
	assert.NoFileExists(t, db)
	assert.NoFileExists(t, db+"-wal")
	assert.NoError(t, removeDatabase(db), "missing files are not an error")
}

func diagAt(file string, line, col int) draftlint.Diagnostic {
	return draftlint.Diagnostic{
		Location: draftlint.Location{File: file, StartLine: line, StartCol: col, EndLine: line, EndCol: col + 10},
		Rule:     "no-external-immer-draft",
		Kind:     "externalMutation",
		Message:  "Avoid mutating variables outside of produce's draft scope.",
	}
}

func TestUnderDir(t *testing.T) {
	t.Parallel()
	diags := []draftlint.Diagnostic{
		diagAt("/repo/app/a.js", 1, 1),
		diagAt("/repo/application/b.js", 1, 1),
		diagAt("/repo/lib/c.js", 1, 1),
	}

	got := underDir(diags, "/repo/app")
	require.Len(t, got, 1)
	assert.Equal(t, "/repo/app/a.js", got[0].File)
}

func TestByRule(t *testing.T) {
	t.Parallel()
	other := diagAt("/a.js", 2, 1)
	other.Rule = "no-console"

	got := byRule([]draftlint.Diagnostic{diagAt("/a.js", 1, 1), other}, "no-console")
	require.Len(t, got, 1)
	assert.Equal(t, 2, got[0].StartLine)
}

func TestFormatDiagnosticsText(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	formatDiagnosticsText(&buf, []draftlint.Diagnostic{diagAt("/a.js", 4, 3)})

	out := buf.String()
	assert.Contains(t, out, "/a.js:4:3")
	assert.Contains(t, out, "Avoid mutating variables outside of produce's draft scope.")
	assert.Contains(t, out, "[no-external-immer-draft]")
	assert.Contains(t, out, "1 problem\n")

	buf.Reset()
	formatDiagnosticsText(&buf, nil)
	assert.Empty(t, buf.String())
}

func TestFormatSummaryText(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	formatSummaryText(&buf, draftlint.Summary{
		Files:       2,
		Diagnostics: 3,
		ByRule:      []draftlint.RuleCount{{Rule: "no-external-immer-draft", Count: 3}},
		ByFile:      []draftlint.FileCount{{Path: "/a.js", Count: 3}},
		ByLanguage:  map[string]int{"typescript": 1, "javascript": 1},
	})

	out := buf.String()
	assert.Contains(t, out, "Files: 2\n")
	assert.Contains(t, out, "Diagnostics: 3\n")
	assert.Contains(t, out, "  no-external-immer-draft: 3\n")
	assert.Contains(t, out, "  /a.js: 3\n")
	assert.Contains(t, out, "By Language:\n  javascript: 1\n  typescript: 1\n")
}

func TestListRules(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "no-console.risor"), []byte("1\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "README.md"), []byte("docs\n"), 0o644))

	rules, err := listRules(dir)
	require.NoError(t, err)
	require.Len(t, rules, 2)

	assert.Equal(t, "no-external-immer-draft", rules[0].ID)
	assert.Equal(t, "builtin", rules[0].Source)
	assert.Equal(t, "problem", rules[0].Type)
	assert.Contains(t, rules[0].Messages, "externalMutation")

	assert.Equal(t, CLIRule{ID: "no-console", Source: "script", Path: "no-console.risor"}, rules[1])

	bundled, err := listRules("")
	require.NoError(t, err)
	require.Len(t, bundled, 2)
	assert.Equal(t, CLIRule{ID: "no-draft-reassign", Source: "script", Path: "no-draft-reassign.risor"}, bundled[1])
}

func TestFormatRulesText(t *testing.T) {
	t.Parallel()
	rules, err := listRules("")
	require.NoError(t, err)

	var buf bytes.Buffer
	formatRulesText(&buf, rules)
	out := buf.String()
	assert.Contains(t, out, "no-external-immer-draft")
	assert.Contains(t, out, "externalMutation: Avoid mutating variables outside of produce's draft scope.")
}
