package store

import "fmt"

// --- Diagnostic operations ---

func (s *Store) InsertDiagnostic(d *Diagnostic) (int64, error) {
	res, err := s.db.Exec(
		`INSERT INTO diagnostics (file_id, rule, kind, message, start_line, start_col, end_line, end_col)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		d.FileID, d.Rule, d.Kind, d.Message, d.StartLine, d.StartCol, d.EndLine, d.EndCol,
	)
	if err != nil {
		return 0, fmt.Errorf("insert diagnostic: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}
	d.ID = id
	return id, nil
}

// DiagnosticCols is the column list for diagnostic queries, exported for use
// by QueryBuilder.
const DiagnosticCols = `d.id, d.file_id, d.rule, d.kind, d.message,
	d.start_line, d.start_col, d.end_line, d.end_col`

// ScanDiagnosticRow scans a single row into a Diagnostic. Exported for use
// by QueryBuilder.
func ScanDiagnosticRow(scanner interface{ Scan(...any) error }) (*Diagnostic, error) {
	d := &Diagnostic{}
	err := scanner.Scan(
		&d.ID, &d.FileID, &d.Rule, &d.Kind, &d.Message,
		&d.StartLine, &d.StartCol, &d.EndLine, &d.EndCol,
	)
	if err != nil {
		return nil, err
	}
	return d, nil
}

func (s *Store) queryDiagnostics(query string, args ...any) ([]*Diagnostic, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var diags []*Diagnostic
	for rows.Next() {
		d, err := ScanDiagnosticRow(rows)
		if err != nil {
			return nil, fmt.Errorf("scan diagnostic: %w", err)
		}
		diags = append(diags, d)
	}
	return diags, rows.Err()
}

// DiagnosticsByFile returns a file's diagnostics in source order.
func (s *Store) DiagnosticsByFile(fileID int64) ([]*Diagnostic, error) {
	return s.queryDiagnostics(
		"SELECT "+DiagnosticCols+" FROM diagnostics d WHERE d.file_id = ? ORDER BY d.start_line, d.start_col, d.id",
		fileID,
	)
}

// DiagnosticsByRule returns every diagnostic reported by rule, ordered by
// file path and position.
func (s *Store) DiagnosticsByRule(rule string) ([]*Diagnostic, error) {
	return s.queryDiagnostics(
		`SELECT `+DiagnosticCols+` FROM diagnostics d JOIN files f ON f.id = d.file_id
		 WHERE d.rule = ? ORDER BY f.path, d.start_line, d.start_col, d.id`,
		rule,
	)
}

// CountsByRule returns diagnostic counts per rule, ordered by rule.
func (s *Store) CountsByRule() ([]RuleCount, error) {
	rows, err := s.db.Query("SELECT rule, COUNT(*) FROM diagnostics GROUP BY rule ORDER BY rule")
	if err != nil {
		return nil, fmt.Errorf("counts by rule: %w", err)
	}
	defer rows.Close()
	var counts []RuleCount
	for rows.Next() {
		var c RuleCount
		if err := rows.Scan(&c.Rule, &c.Count); err != nil {
			return nil, fmt.Errorf("counts by rule: scan: %w", err)
		}
		counts = append(counts, c)
	}
	return counts, rows.Err()
}

// CountsByFile returns diagnostic counts for files with at least one
// diagnostic, ordered by path.
func (s *Store) CountsByFile() ([]FileCount, error) {
	rows, err := s.db.Query(
		`SELECT f.path, COUNT(*) FROM diagnostics d JOIN files f ON f.id = d.file_id
		 GROUP BY f.path ORDER BY f.path`,
	)
	if err != nil {
		return nil, fmt.Errorf("counts by file: %w", err)
	}
	defer rows.Close()
	var counts []FileCount
	for rows.Next() {
		var c FileCount
		if err := rows.Scan(&c.Path, &c.Count); err != nil {
			return nil, fmt.Errorf("counts by file: scan: %w", err)
		}
		counts = append(counts, c)
	}
	return counts, rows.Err()
}
