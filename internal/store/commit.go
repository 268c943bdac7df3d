package store

import "fmt"

// CommitBatch inserts all buffered diagnostics from a BatchedStore into
// SQLite within a single transaction, replacing fake (negative) IDs with
// the real ones assigned by SQLite.
func (s *Store) CommitBatch(batch *BatchedStore) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("commit batch: begin: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(
		`INSERT INTO diagnostics (file_id, rule, kind, message, start_line, start_col, end_line, end_col)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return fmt.Errorf("commit batch: prepare: %w", err)
	}
	defer stmt.Close()

	batch.mu.Lock()
	defer batch.mu.Unlock()
	for i := range batch.Diagnostics {
		d := &batch.Diagnostics[i]
		if d.FileID < 0 {
			return fmt.Errorf("commit batch: diagnostic %d has uncommitted file_id=%d", d.ID, d.FileID)
		}
		res, err := stmt.Exec(d.FileID, d.Rule, d.Kind, d.Message, d.StartLine, d.StartCol, d.EndLine, d.EndCol)
		if err != nil {
			return fmt.Errorf("commit batch: diagnostic %s at %d:%d: %w", d.Rule, d.StartLine, d.StartCol, err)
		}
		realID, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("commit batch: last insert id: %w", err)
		}
		d.ID = realID
	}

	return tx.Commit()
}
