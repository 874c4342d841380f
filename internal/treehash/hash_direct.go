package treehash

import (
	"context"
	"database/sql"
	"log"
)

// HashSink is the interface the hash-update driver (C8) drives: submit
// files to be hashed in scan order, then Finalize once the scan is
// exhausted. DirectHasher and ThreadedHasher are the two implementations
// (spec.md §4.6, §4.7).
type HashSink interface {
	HashFile(ctx context.Context, index uint64, node Node, path string) error
	Finalize() error
}

// DirectHasher is the single-threaded fallback: hash, then insert,
// one file at a time, on the caller's goroutine (spec.md §4.6).
type DirectHasher struct {
	ins      *hashInserter
	progress *State
}

// NewDirectHasher prepares the insert statement against tx. progress may be
// nil (no accounting performed), matching NewThreadedHasher's contract.
func NewDirectHasher(ctx context.Context, tx *sql.Tx, progress *State) (*DirectHasher, error) {
	ins, err := prepareHashInsert(ctx, tx)
	if err != nil {
		return nil, err
	}
	if progress == nil {
		progress = NewState(0, 0, nil)
	}
	return &DirectHasher{ins: ins, progress: progress}, nil
}

// HashFile reads the entire file at path and hashes its bytes. An OS error
// logs a warning and returns without inserting a row — individual file
// errors are non-fatal and simply omit the row (spec.md §4.6). All other
// SQL step failures are fatal and propagate. A successful hash advances
// progress the same way the threaded collector does (spec.md §4.5, §8
// scenario 1), since C5 is shared across both sinks, not just the threaded
// one.
func (d *DirectHasher) HashFile(ctx context.Context, index uint64, node Node, path string) error {
	sum, err := hashFileContents(path)
	if err != nil {
		log.Printf("Warning: error hashing %s", path)
		return nil
	}
	d.progress.Update(node)
	return d.ins.insert(ctx, index, sum[:])
}

// Finalize releases the prepared statement.
func (d *DirectHasher) Finalize() error {
	return d.ins.finalize()
}
