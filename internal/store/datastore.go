package store

// DataStore is the interface for analysis-phase writes. Both Store (direct
// SQLite) and BatchedStore (in-memory buffering for parallel linting)
// implement this interface.
type DataStore interface {
	InsertDiagnostic(d *Diagnostic) (int64, error)
	DiagnosticsByFile(fileID int64) ([]*Diagnostic, error)
}

// Compile-time check: *Store satisfies DataStore.
var _ DataStore = (*Store)(nil)
