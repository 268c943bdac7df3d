package store

import "sync"

// BatchedStore buffers diagnostics in memory using fake (negative) IDs. It
// implements DataStore so analysis code can write to it without knowing
// whether it is hitting SQLite or an in-memory buffer.
//
// Thread safety: the mutex protects fake ID allocation and slice appends.
// Reads of committed data are passed through to the underlying Store, which
// is safe for concurrent reads.
type BatchedStore struct {
	store *Store // for read passthrough
	mu    sync.Mutex

	Diagnostics []Diagnostic

	nextFakeID int64 // starts at -1, decrements
}

// Compile-time check: *BatchedStore satisfies DataStore.
var _ DataStore = (*BatchedStore)(nil)

// NewBatchedStore creates a BatchedStore backed by the given Store for read queries.
func NewBatchedStore(s *Store) *BatchedStore {
	return &BatchedStore{
		store:      s,
		nextFakeID: -1,
	}
}

func (b *BatchedStore) allocFakeID() int64 {
	id := b.nextFakeID
	b.nextFakeID--
	return id
}

func (b *BatchedStore) InsertDiagnostic(d *Diagnostic) (int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	fakeID := b.allocFakeID()
	d.ID = fakeID
	b.Diagnostics = append(b.Diagnostics, *d)
	return fakeID, nil
}

// DiagnosticsByFile returns diagnostics for a file, merging any buffered
// (not yet committed) diagnostics with those already in the database.
func (b *BatchedStore) DiagnosticsByFile(fileID int64) ([]*Diagnostic, error) {
	var dbDiags []*Diagnostic
	if b.store != nil {
		var err error
		dbDiags, err = b.store.DiagnosticsByFile(fileID)
		if err != nil {
			return nil, err
		}
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := range b.Diagnostics {
		if b.Diagnostics[i].FileID == fileID {
			dbDiags = append(dbDiags, &b.Diagnostics[i])
		}
	}
	return dbDiags, nil
}

// Len returns the number of buffered diagnostics.
func (b *BatchedStore) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.Diagnostics)
}
