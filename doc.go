// Package draftlint finds mutations that escape immer-style draft scopes in
// JavaScript and TypeScript code.
//
// Inside the callback of produce(base, draft => { ... }) only the draft may
// have its properties assigned; assigning a property of any other variable
// mutates state that produce cannot track. draftlint parses each file with
// tree-sitter, reports those assignments, and caches results in SQLite.
//
// # Usage
//
// Create an Engine, lint a directory, and query the results:
//
//	e, err := draftlint.New(".draftlint/cache.db")
//	if err != nil { ... }
//	defer e.Close()
//
//	ctx := context.Background()
//	stats, err := e.LintDirectory(ctx, "path/to/project")
//
//	diags, err := e.Query().Diagnostics()
//
// [Engine.LintSource] analyzes in-memory source without touching the cache.
// [Engine.Watch] lints a directory again each time one of its files changes.
// [WithExclude] skips files matching glob patterns.
//
// # Incremental Linting
//
// [Engine.LintFiles] skips files whose content hash is unchanged since they
// were last linted, keeping their stored diagnostics. Changing the rule
// options or any script rule invalidates the whole cache; see
// [Engine.ConfigChanged].
//
// # Configuration
//
// The built-in rule defaults to immer's produce and only recognizes it when
// imported from "immer". [WithRuleOptions] selects another helper name or
// module, or drops the import requirement.
//
// # Script Rules
//
// Additional rules can be written in Risor and placed in a scripts
// directory ([WithScriptsDir] or [WithScriptsFS]). Each top-level .risor
// file is one rule, named after the file, and runs once per linted file with
// the tree-sitter tree in scope. See the internal/runtime package for the
// globals exposed to scripts. The scripts package embeds the rules that
// ship with draftlint.
//
// # Suppressions
//
// A comment of the form
//
//	// draftlint-disable-next-line [rule, ...] [-- reason]
//
// silences the listed rules (all rules when none are listed) on the next
// line; draftlint-disable-line does the same for its own line.
package draftlint
