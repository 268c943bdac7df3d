package draftlint

import (
	"database/sql"
	"fmt"

	"github.com/jward/draftlint/internal/store"
	"github.com/jward/draftlint/internal/syntax"
)

// QueryBuilder provides read access to stored lint results.
type QueryBuilder struct {
	store *store.Store
}

// Location represents a source code position range. Lines and columns are
// 1-based.
type Location struct {
	File      string `json:"file"`
	StartLine int    `json:"start_line"`
	StartCol  int    `json:"start_col"`
	EndLine   int    `json:"end_line"`
	EndCol    int    `json:"end_col"`
}

// Diagnostic is one reported finding.
type Diagnostic struct {
	Location
	Rule    string `json:"rule"`
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

func newDiagnostic(path, rule, kind, message string, span syntax.Span) Diagnostic {
	return Diagnostic{
		Location: Location{
			File:      path,
			StartLine: span.StartLine,
			StartCol:  span.StartCol,
			EndLine:   span.EndLine,
			EndCol:    span.EndCol,
		},
		Rule:    rule,
		Kind:    kind,
		Message: message,
	}
}

// Summary aggregates stored diagnostics. ByLanguage omits languages with
// no linted files.
type Summary struct {
	Files       int            `json:"files"`
	Diagnostics int            `json:"diagnostics"`
	ByRule      []RuleCount    `json:"by_rule"`
	ByFile      []FileCount    `json:"by_file"`
	ByLanguage  map[string]int `json:"by_language,omitempty"`
}

const diagnosticWithPathCols = "f.path, " + store.DiagnosticCols

// Diagnostics returns every stored diagnostic ordered by file path and
// position.
func (q *QueryBuilder) Diagnostics() ([]Diagnostic, error) {
	diags, err := q.query(
		`SELECT ` + diagnosticWithPathCols + ` FROM diagnostics d JOIN files f ON f.id = d.file_id
		 ORDER BY f.path, d.start_line, d.start_col, d.id`,
	)
	if err != nil {
		return nil, fmt.Errorf("diagnostics: %w", err)
	}
	return diags, nil
}

// DiagnosticsByFile returns the diagnostics stored for one file in source
// order. An unknown path yields no diagnostics.
func (q *QueryBuilder) DiagnosticsByFile(path string) ([]Diagnostic, error) {
	f, err := q.store.FileByPath(path)
	if err != nil {
		return nil, fmt.Errorf("diagnostics by file: lookup file: %w", err)
	}
	if f == nil {
		return nil, nil
	}
	rows, err := q.store.DiagnosticsByFile(f.ID)
	if err != nil {
		return nil, fmt.Errorf("diagnostics by file: %w", err)
	}
	return toDiagnostics(f.Path, rows), nil
}

// DiagnosticsByRule returns every diagnostic reported by rule, ordered by
// file path and position.
func (q *QueryBuilder) DiagnosticsByRule(rule string) ([]Diagnostic, error) {
	diags, err := q.query(
		`SELECT `+diagnosticWithPathCols+` FROM diagnostics d JOIN files f ON f.id = d.file_id
		 WHERE d.rule = ? ORDER BY f.path, d.start_line, d.start_col, d.id`,
		rule,
	)
	if err != nil {
		return nil, fmt.Errorf("diagnostics by rule: %w", err)
	}
	return diags, nil
}

// Summary returns per-rule and per-file diagnostic counts along with
// per-language file counts.
func (q *QueryBuilder) Summary() (*Summary, error) {
	files, err := q.store.Files()
	if err != nil {
		return nil, fmt.Errorf("summary: files: %w", err)
	}
	byRule, err := q.store.CountsByRule()
	if err != nil {
		return nil, fmt.Errorf("summary: %w", err)
	}
	byFile, err := q.store.CountsByFile()
	if err != nil {
		return nil, fmt.Errorf("summary: %w", err)
	}

	s := &Summary{
		Files:  len(files),
		ByRule: byRule,
		ByFile: byFile,
	}
	for _, c := range byRule {
		s.Diagnostics += c.Count
	}
	for _, lang := range syntax.Languages() {
		langFiles, err := q.store.FilesByLanguage(lang)
		if err != nil {
			return nil, fmt.Errorf("summary: files by language: %w", err)
		}
		if len(langFiles) == 0 {
			continue
		}
		if s.ByLanguage == nil {
			s.ByLanguage = make(map[string]int)
		}
		s.ByLanguage[lang] = len(langFiles)
	}
	return s, nil
}

func (q *QueryBuilder) query(query string, args ...any) ([]Diagnostic, error) {
	rows, err := q.store.DB().Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Diagnostic
	for rows.Next() {
		var path string
		d, err := store.ScanDiagnosticRow(pathScanner{rows: rows, path: &path})
		if err != nil {
			return nil, fmt.Errorf("scan diagnostic: %w", err)
		}
		out = append(out, toDiagnostic(path, d))
	}
	return out, rows.Err()
}

// pathScanner prepends the joined file path to a diagnostic row scan.
type pathScanner struct {
	rows *sql.Rows
	path *string
}

func (p pathScanner) Scan(dest ...any) error {
	return p.rows.Scan(append([]any{p.path}, dest...)...)
}

func toDiagnostic(path string, d *store.Diagnostic) Diagnostic {
	return newDiagnostic(path, d.Rule, d.Kind, d.Message, syntax.Span{
		StartLine: d.StartLine,
		StartCol:  d.StartCol,
		EndLine:   d.EndLine,
		EndCol:    d.EndCol,
	})
}

func toDiagnostics(path string, rows []*store.Diagnostic) []Diagnostic {
	out := make([]Diagnostic, len(rows))
	for i, d := range rows {
		out[i] = toDiagnostic(path, d)
	}
	return out
}

// NewQueryBuilder creates a QueryBuilder over an already-open Store.
func NewQueryBuilder(s *Store) *QueryBuilder {
	return &QueryBuilder{store: s}
}
