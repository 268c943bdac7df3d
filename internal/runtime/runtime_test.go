package runtime

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/draftlint/internal/rule"
	"github.com/jward/draftlint/internal/syntax"
)

const jsTestSource = `import { produce } from "immer";

function greet(name) {
  console.log("hello " + name);
}

function add(a, b) {
  return a + b;
}

const next = produce(state, draft => {
  draft.count = add(1, 2);
});
`

func parseJS(t *testing.T, src string) *syntax.File {
	t.Helper()
	f, err := syntax.Parse(context.Background(), "app.js", []byte(src), syntax.JavaScript)
	require.NoError(t, err)
	t.Cleanup(f.Close)
	return f
}

// --- Host functions (via RunSource) ---

func TestRunSource_ParseSrcAndNodeText(t *testing.T) {
	rt := NewRuntime("")

	script := `
root := parse_src(src, "javascript")
assert(root.Type() == "program", "expected program")

names := []
count := int(root.NamedChildCount())
for i := 0; i < count; i++ {
    child := root.NamedChild(i)
    if child.Type() == "function_declaration" {
        names.append(node_text(child.ChildByFieldName("name")))
    }
}

assert(len(names) == 2, 'expected 2 functions, got {len(names)}')
assert(names[0] == "greet", 'expected greet, got {names[0]}')
assert(names[1] == "add", 'expected add, got {names[1]}')
`
	err := rt.RunSource(context.Background(), script, map[string]any{"src": jsTestSource})
	require.NoError(t, err)
}

func TestRunSource_QueryHostFunction(t *testing.T) {
	rt := NewRuntime("")

	script := `
root := parse_src(src, "javascript")
matches := query("(function_declaration name: (identifier) @name)", root)
assert(len(matches) == 2, 'expected 2 matches, got {len(matches)}')
assert(node_text(matches[0]["name"]) == "greet", "first match")
assert(node_text(matches[1]["name"]) == "add", "second match")
`
	err := rt.RunSource(context.Background(), script, map[string]any{"src": jsTestSource})
	require.NoError(t, err)
}

func TestRunSource_QueryPredicates(t *testing.T) {
	rt := NewRuntime("")

	script := `
root := parse_src(src, "javascript")
matches := query("((identifier) @id (#eq? @id \"draft\"))", root)
assert(len(matches) == 2, 'expected 2 draft identifiers, got {len(matches)}')
`
	err := rt.RunSource(context.Background(), script, map[string]any{"src": jsTestSource})
	require.NoError(t, err)
}

func TestRunSource_QueryNoMatches(t *testing.T) {
	rt := NewRuntime("")

	script := `
root := parse_src("const x = 1;", "javascript")
matches := query("(class_declaration) @c", root)
assert(len(matches) == 0, 'expected 0 matches, got {len(matches)}')
`
	require.NoError(t, rt.RunSource(context.Background(), script, nil))
}

func TestRunSource_QueryInvalidPattern(t *testing.T) {
	rt := NewRuntime("")

	script := `
root := parse_src("const x = 1;", "javascript")
query("(not_a_real_node_kind) @x", root)
`
	err := rt.RunSource(context.Background(), script, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid pattern")
}

func TestRunSource_ParseSrcUnsupportedLanguage(t *testing.T) {
	rt := NewRuntime("")
	err := rt.RunSource(context.Background(), `parse_src("x", "cobol")`, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported language")
}

func TestRunSource_NodeChild(t *testing.T) {
	rt := NewRuntime("")

	script := `
root := parse_src("const x = 1;", "javascript")
decl := root.NamedChild(0).NamedChild(0)
assert(decl.Type() == "variable_declarator", 'got {decl.Type()}')
assert(node_text(node_child(decl, "name")) == "x", "name field")
assert(node_child(decl, "no_such_field") == nil, "missing field is nil")
`
	require.NoError(t, rt.RunSource(context.Background(), script, nil))
}

func TestRunSource_NodeTextRejectsNonNode(t *testing.T) {
	rt := NewRuntime("")
	err := rt.RunSource(context.Background(), `node_text("nope")`, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expected proxy")
}

func TestRunSource_LogRoutesToSlog(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	rt := NewRuntime("", WithLogger(logger))

	require.NoError(t, rt.RunSource(context.Background(), `log.Warn("careful")`, nil))
	assert.Contains(t, buf.String(), "level=WARN")
	assert.Contains(t, buf.String(), "msg=careful")
	assert.Contains(t, buf.String(), "script=<inline>")
}

// --- Script rules ---

const consoleRule = `
matches := query("((call_expression function: (member_expression object: (identifier) @obj)) @call (#eq? @obj \"console\"))", root)
for i := 0; i < len(matches); i++ {
    report(matches[i]["call"], "noConsole", "Unexpected console call.")
}
`

func TestRunRule_ReportsDiagnostics(t *testing.T) {
	mapFS := fstest.MapFS{
		"no-console.risor": &fstest.MapFile{Data: []byte(consoleRule)},
	}
	rt := NewRuntime("", WithRuntimeFS(mapFS))

	diags, err := rt.RunRule(context.Background(), "no-console.risor", Target{File: parseJS(t, jsTestSource)})
	require.NoError(t, err)
	require.Len(t, diags, 1)
	assert.Equal(t, rule.Diagnostic{
		Rule:    "no-console",
		Kind:    "noConsole",
		Message: "Unexpected console call.",
		Span:    syntax.Span{StartLine: 4, StartCol: 3, EndLine: 4, EndCol: 31},
	}, diags[0])
}

func TestRunRule_FileGlobals(t *testing.T) {
	mapFS := fstest.MapFS{
		"globals.risor": &fstest.MapFile{Data: []byte(`
assert(file_path == "app.js", 'file_path {file_path}')
assert(language == "javascript", 'language {language}')
assert(root.Type() == "program", "root")
report(root, "whole file")
`)},
	}
	rt := NewRuntime("", WithRuntimeFS(mapFS))

	diags, err := rt.RunRule(context.Background(), "globals.risor", Target{File: parseJS(t, jsTestSource)})
	require.NoError(t, err)
	require.Len(t, diags, 1)
	assert.Equal(t, "globals", diags[0].Rule)
	assert.Equal(t, "globals", diags[0].Kind, "kind defaults to the rule id")
	assert.Equal(t, "whole file", diags[0].Message)
	assert.Equal(t, 1, diags[0].Span.StartLine)
}

func TestRunRule_SeesPriorDiagnostics(t *testing.T) {
	mapFS := fstest.MapFS{
		"count.risor": &fstest.MapFile{Data: []byte(`
assert(len(diagnostics) == 1, 'expected 1 prior, got {len(diagnostics)}')
d := diagnostics[0]
assert(d["rule"] == "no-external-immer-draft", "rule")
assert(d["start_line"] == 3, "line")
`)},
	}
	rt := NewRuntime("", WithRuntimeFS(mapFS))

	prior := []rule.Diagnostic{{
		Rule: rule.Name, Kind: rule.MessageExternalMutation, Message: "m",
		Span: syntax.Span{StartLine: 3, StartCol: 3, EndLine: 3, EndCol: 17},
	}}
	diags, err := rt.RunRule(context.Background(), "count.risor", Target{File: parseJS(t, jsTestSource), Prior: prior})
	require.NoError(t, err)
	assert.Empty(t, diags)
}

func TestRunRule_ReportArgumentErrors(t *testing.T) {
	tests := []struct {
		name   string
		script string
		want   string
	}{
		{"too few", `report(root)`, "expected 2 or 3 arguments"},
		{"not a node", `report("x", "msg")`, "expected proxy"},
		{"message not a string", `report(root, 42)`, "message"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mapFS := fstest.MapFS{"bad.risor": &fstest.MapFile{Data: []byte(tt.script)}}
			rt := NewRuntime("", WithRuntimeFS(mapFS))
			_, err := rt.RunRule(context.Background(), "bad.risor", Target{File: parseJS(t, "x;")})
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
			assert.Contains(t, err.Error(), "bad.risor")
		})
	}
}

func TestRunRule_MissingScript(t *testing.T) {
	rt := NewRuntime(t.TempDir())
	_, err := rt.RunRule(context.Background(), "nope.risor", Target{File: parseJS(t, "x;")})
	require.Error(t, err)
}

// --- Script loading ---

func TestRunScript_LoadsFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "test.risor"), []byte(`result := 1 + 1`), 0644))

	rt := NewRuntime(dir)
	require.NoError(t, rt.RunScript(context.Background(), "test.risor", nil))
}

func TestRunScript_MissingFile(t *testing.T) {
	rt := NewRuntime(t.TempDir())
	require.Error(t, rt.RunScript(context.Background(), "nonexistent.risor", nil))
}

func TestLoadScript(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "test.risor")
	content := `x := 42`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	rt := NewRuntime(dir)
	got, err := rt.LoadScript(path)
	require.NoError(t, err)
	assert.Equal(t, content, got)

	got, err = rt.LoadScript("test.risor")
	require.NoError(t, err)
	assert.Equal(t, content, got)
}

func TestLoadScript_FromFS(t *testing.T) {
	t.Parallel()

	content := `x := 42`
	mapFS := fstest.MapFS{
		"rules/a.risor": &fstest.MapFile{Data: []byte(content)},
	}
	rt := NewRuntime("", WithRuntimeFS(mapFS))

	got, err := rt.LoadScript("rules/a.risor")
	require.NoError(t, err)
	assert.Equal(t, content, got)

	// Absolute-style path should be resolved within the FS.
	got, err = rt.LoadScript("/rules/a.risor")
	require.NoError(t, err)
	assert.Equal(t, content, got)

	_, err = rt.LoadScript("missing.risor")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "from fs")
}

func TestScripts_FromFS(t *testing.T) {
	t.Parallel()

	mapFS := fstest.MapFS{
		"b.risor":          &fstest.MapFile{Data: []byte(``)},
		"a.risor":          &fstest.MapFile{Data: []byte(``)},
		"README.md":        &fstest.MapFile{Data: []byte(``)},
		"lib/helper.risor": &fstest.MapFile{Data: []byte(``)},
	}
	rt := NewRuntime("", WithRuntimeFS(mapFS))

	got, err := rt.Scripts()
	require.NoError(t, err)
	assert.Equal(t, []string{"a.risor", "b.risor"}, got)
}

func TestScripts_FromDir(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "z.risor"), []byte(`1`), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte(`x`), 0644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "lib.risor"), 0755))

	rt := NewRuntime(dir)
	got, err := rt.Scripts()
	require.NoError(t, err)
	assert.Equal(t, []string{"z.risor"}, got)

	sources, err := rt.ScriptSources()
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"z.risor": "1"}, sources)
}

func TestScripts_MissingOrUnconfigured(t *testing.T) {
	t.Parallel()

	got, err := NewRuntime(filepath.Join(t.TempDir(), "absent")).Scripts()
	require.NoError(t, err)
	assert.Empty(t, got)

	got, err = NewRuntime("").Scripts()
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestRuleName(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "no-console", RuleName("no-console.risor"))
	assert.Equal(t, "x", RuleName(filepath.Join("a", "b", "x.risor")))
}

// --- Importer wiring ---

func TestImport_FSImporter(t *testing.T) {
	// Risor's FSImporter resolves "lib_helpers" by trying name + ".risor",
	// so the file must be at the flat path "lib_helpers.risor" in the FS.
	mapFS := fstest.MapFS{
		"lib_helpers.risor": &fstest.MapFile{Data: []byte(`
func greet(name) {
	return "hello " + name
}
`)},
	}
	rt := NewRuntime("", WithRuntimeFS(mapFS))

	script := `
import lib_helpers

msg := lib_helpers.greet("world")
assert(msg == "hello world", 'expected "hello world", got ' + msg)
`
	require.NoError(t, rt.RunSource(context.Background(), script, nil))
}

func TestImport_LocalImporter(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "math_utils.risor"), []byte(`
func double(x) {
	return x * 2
}
`), 0644))

	rt := NewRuntime(dir)

	script := `
import math_utils

result := math_utils.double(21)
assert(result == 42, 'expected 42, got {result}')
`
	require.NoError(t, rt.RunSource(context.Background(), script, nil))
}

func TestImport_GlobalsAvailableInImportedModules(t *testing.T) {
	// Imported modules reference host globals; the importer must know their
	// names or the module fails to compile.
	mapFS := fstest.MapFS{
		"helper.risor": &fstest.MapFile{Data: []byte(`
func flag(node, msg) {
	report(node, msg)
}
`)},
		"uses-helper.risor": &fstest.MapFile{Data: []byte(`
import helper
helper.flag(root, "via helper")
`)},
	}
	rt := NewRuntime("", WithRuntimeFS(mapFS))

	diags, err := rt.RunRule(context.Background(), "uses-helper.risor", Target{File: parseJS(t, "x;")})
	require.NoError(t, err)
	require.Len(t, diags, 1)
	assert.Equal(t, "uses-helper", diags[0].Rule)
}

func TestNewRuntime_Defaults(t *testing.T) {
	t.Parallel()

	rt := NewRuntime("/some/dir")
	require.NotNil(t, rt)
	assert.Nil(t, rt.fsys)
	assert.Equal(t, "/some/dir", rt.scriptsDir)
	assert.NotNil(t, rt.logger)
}
