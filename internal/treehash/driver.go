package treehash

import (
	"context"
	"database/sql"
	"fmt"
)

// DriverOptions configures UpdateHashes (spec.md §4.8).
type DriverOptions struct {
	// Root is the logical root path reported for the outermost Enter.
	Root string
	// Threaded selects the worker-pool hash sink (C7) over the
	// single-threaded fallback (C6).
	Threaded bool
	// Workers is W for the threaded sink; ignored otherwise.
	Workers int
	// Meter receives progress redraws; nil installs NopMeter.
	Meter Meter
}

// UpdateHashes orchestrates the full hashing pipeline inside one database
// transaction (spec.md §4.8):
//
//  1. Prescan with a Memo-backed replay of prior to compute totals.
//  2. Open a single transaction on db with the driver's default options;
//     it is not opened in exclusive locking mode.
//  3. Construct a hasher (direct or threaded) bound to the transaction.
//  4. Iterate the path-tracked stream; for each node needing a hash, call
//     HashFile with a zero-based index that counts every node in the
//     stream, not only the hashed files (spec.md §9 Open Question).
//  5. Finalize the hasher (blocks until the threaded collector completes).
//  6. Commit on normal exit; roll back on any fatal error.
func UpdateHashes(ctx context.Context, db *sql.DB, prior NodeStream, opts DriverOptions) error {
	memo := NewMemo(prior)

	totalFiles, totalOctets, err := Prescan(memo.Stream())
	if err != nil {
		return err
	}
	progress := NewState(totalFiles, totalOctets, opts.Meter)

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("treehash: begin transaction: %w", err)
	}

	var sink HashSink
	if opts.Threaded {
		sink, err = NewThreadedHasher(ctx, tx, opts.Workers, progress)
	} else {
		sink, err = NewDirectHasher(ctx, tx, progress)
	}
	if err != nil {
		tx.Rollback()
		return err
	}

	paths := TrackPaths(opts.Root, memo.Stream())

	var index uint64
	for {
		pn, ok, walkErr := paths.Next()
		if walkErr != nil {
			sink.Finalize()
			tx.Rollback()
			return walkErr
		}
		if !ok {
			break
		}

		if NeedsHash(pn.Node) {
			if err := sink.HashFile(ctx, index, pn.Node, pn.Path); err != nil {
				// Finalize blocks until the threaded sink's collector has
				// actually stopped; prefer its error over HashFile's, since
				// a threaded submit failing here just means the collector
				// cancelled the shared context — Finalize carries the real
				// fatal cause (e.g. a SQL step failure).
				finalErr := sink.Finalize()
				tx.Rollback()
				if finalErr != nil {
					return finalErr
				}
				return err
			}
		}
		index++
	}

	if err := sink.Finalize(); err != nil {
		tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("treehash: commit transaction: %w", err)
	}
	return nil
}
