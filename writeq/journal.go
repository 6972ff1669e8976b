package writeq

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// Journal persists queued operations in SQLite so optimistic writes
// survive a reload. Saves are idempotent upserts keyed by op ID.
type Journal struct {
	db *sql.DB
}

// OpenJournal opens (creating if needed) the journal database at path and
// ensures the schema exists. Parent directories are created.
func OpenJournal(path string) (*Journal, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("writeq: journal mkdir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("writeq: journal open: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 10000",
		"PRAGMA synchronous = NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("writeq: %s: %w", p, err)
		}
	}

	j := &Journal{db: db}
	if err := j.ensureTable(); err != nil {
		db.Close()
		return nil, err
	}
	return j, nil
}

// NewJournal wraps an already-open database. The caller owns the
// connection; the schema is still ensured here.
func NewJournal(db *sql.DB) (*Journal, error) {
	j := &Journal{db: db}
	if err := j.ensureTable(); err != nil {
		return nil, err
	}
	return j, nil
}

func (j *Journal) ensureTable() error {
	_, err := j.db.Exec(`
		CREATE TABLE IF NOT EXISTS pinmark_ops (
			id            TEXT PRIMARY KEY,
			kind          TEXT NOT NULL,
			annotation_id TEXT NOT NULL,
			parent_id     TEXT NOT NULL DEFAULT '',
			payload       BLOB,
			state         TEXT NOT NULL,
			attempts      INTEGER NOT NULL DEFAULT 0,
			not_before    INTEGER NOT NULL DEFAULT 0,
			created_at    INTEGER NOT NULL
		);
	`)
	if err != nil {
		return fmt.Errorf("writeq: ensure table: %w", err)
	}
	return nil
}

// Close closes the underlying database.
func (j *Journal) Close() error { return j.db.Close() }

// Save upserts one operation.
func (j *Journal) Save(ctx context.Context, op *Op) error {
	_, err := j.db.ExecContext(ctx, `
		INSERT INTO pinmark_ops (id, kind, annotation_id, parent_id, payload, state, attempts, not_before, created_at)
		VALUES (?,?,?,?,?,?,?,?,?)
		ON CONFLICT(id) DO UPDATE SET
			annotation_id = excluded.annotation_id,
			parent_id     = excluded.parent_id,
			state         = excluded.state,
			attempts      = excluded.attempts,
			not_before    = excluded.not_before`,
		op.ID, string(op.Kind), op.AnnotationID, op.ParentID, op.Payload,
		string(op.State), op.Attempts, op.NotBefore.UnixMilli(), op.CreatedAt.UnixMilli(),
	)
	return err
}

// Delete removes a confirmed or abandoned operation.
func (j *Journal) Delete(ctx context.Context, id string) error {
	_, err := j.db.ExecContext(ctx, `DELETE FROM pinmark_ops WHERE id = ?`, id)
	return err
}

// Load returns all journaled operations, oldest first. Loaded ops come
// back pending and immediately due: whatever delay they were waiting out
// belongs to the previous session.
func (j *Journal) Load(ctx context.Context) ([]*Op, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT id, kind, annotation_id, parent_id, payload, attempts, created_at
		FROM pinmark_ops ORDER BY created_at ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ops []*Op
	for rows.Next() {
		var op Op
		var kind string
		var created int64
		if err := rows.Scan(&op.ID, &kind, &op.AnnotationID, &op.ParentID, &op.Payload, &op.Attempts, &created); err != nil {
			return nil, err
		}
		op.Kind = Kind(kind)
		op.State = StatePending
		op.CreatedAt = time.UnixMilli(created)
		ops = append(ops, &op)
	}
	return ops, rows.Err()
}
