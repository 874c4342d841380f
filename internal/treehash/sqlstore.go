package treehash

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite" // pure-Go driver registered under "sqlite"
)

// HashRecord is one hashed file's persisted row (spec.md §3.3): index is the
// zero-based position of the file's event in the path-tracked node stream
// for the current run, not a cross-run identifier (spec.md §9 Open
// Question — index carries gaps and downstream consumers must treat it as
// opaque).
type HashRecord struct {
	Index uint64
	SHA1  [20]byte
}

// OpenHashDB opens (creating if needed) the SQLite-backed hash side
// database at path and ensures the hashes table exists.
func OpenHashDB(ctx context.Context, path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("treehash: open hash db: %w", err)
	}
	db.SetMaxOpenConns(1) // spec.md §5: the SQL handle is single-threaded by construction

	const schema = `CREATE TABLE IF NOT EXISTS hashes (
		"index" INTEGER NOT NULL,
		sha1    BLOB NOT NULL
	)`
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("treehash: create hashes table: %w", err)
	}
	return db, nil
}

// hashInserter wraps one prepared statement, INSERT INTO hashes VALUES
// (?, ?), bound to a single open transaction (spec.md §4.6). All SQL step
// failures other than a clean completion are fatal.
type hashInserter struct {
	stmt *sql.Stmt
}

func prepareHashInsert(ctx context.Context, tx *sql.Tx) (*hashInserter, error) {
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO hashes ("index", sha1) VALUES (?, ?)`)
	if err != nil {
		return nil, fmt.Errorf("treehash: prepare insert: %w", err)
	}
	return &hashInserter{stmt: stmt}, nil
}

func (h *hashInserter) insert(ctx context.Context, index uint64, sha1 []byte) error {
	if _, err := h.stmt.ExecContext(ctx, index, sha1); err != nil {
		return &FatalError{Msg: fmt.Sprintf("sql step failed for index %d: %s", index, err)}
	}
	return nil
}

func (h *hashInserter) finalize() error {
	return h.stmt.Close()
}
