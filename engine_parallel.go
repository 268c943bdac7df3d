package draftlint

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	"github.com/jward/draftlint/internal/store"
)

// lintFilesParallel lints files using a three-phase parallel pipeline:
//
//	Phase A (serial):   Hash check, delete old data, prepare file records.
//	Phase B (parallel): Parse and analyze on a worker pool.
//	Phase C (serial):   Commit each file's diagnostics to SQLite.
func (e *Engine) lintFilesParallel(ctx context.Context, paths []string) (Stats, error) {
	var stats Stats
	var errs []error

	// ---- Phase A: Serial file preparation ----
	var items []workItem
	for _, path := range paths {
		item, skip, err := e.prepareFile(path, &stats)
		if err != nil {
			errs = append(errs, fmt.Errorf("prepare %s: %w", path, err))
			continue
		}
		if skip {
			continue
		}
		item.batch = store.NewBatchedStore(e.store)
		items = append(items, item)
	}

	// ---- Phase B: Parallel analysis ----
	numWorkers := max(min(runtime.NumCPU(), len(items)), 1)

	workCh := make(chan workItem, len(items))
	for _, item := range items {
		workCh <- item
	}
	close(workCh)

	type result struct {
		item workItem
		err  error
	}
	resultCh := make(chan result, len(items))

	var wg sync.WaitGroup
	for range numWorkers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			// The BatchedStore per item handles write isolation.
			for item := range workCh {
				if err := ctx.Err(); err != nil {
					resultCh <- result{item: item, err: err}
					continue
				}
				_, err := e.lintFile(ctx, item, item.batch)
				resultCh <- result{item: item, err: err}
			}
		}()
	}

	go func() {
		wg.Wait()
		close(resultCh)
	}()

	// ---- Phase C: Serial commit ----
	for res := range resultCh {
		if res.err != nil {
			errs = append(errs, fmt.Errorf("lint %s: %w", res.item.path, res.err))
			e.discard(res.item)
			continue
		}
		if err := e.store.CommitBatch(res.item.batch); err != nil {
			errs = append(errs, fmt.Errorf("commit %s: %w", res.item.path, err))
			e.discard(res.item)
			continue
		}
		stats.Linted++
		stats.Diagnostics += res.item.batch.Len()
	}

	if len(errs) > 0 {
		return stats, fmt.Errorf("parallel linting had %d error(s): %w", len(errs), errs[0])
	}
	return stats, nil
}
