package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "modernc.org/sqlite"
)

// SQLiteStore persists records in a SQLite database. Useful when several
// controllers on one host should share a registry through a single file
// instead of a directory tree.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if path == "" {
		path = ":memory:"
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite store: %w", err)
	}
	// SQLite works best with a single writer connection.
	db.SetMaxOpenConns(1)
	s := &SQLiteStore{db: db}
	if err := s.ensureSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) ensureSchema(ctx context.Context) error {
	stmt := `CREATE TABLE IF NOT EXISTS process_records(
		scope TEXT NOT NULL,
		name TEXT NOT NULL,
		pid INTEGER NOT NULL,
		command TEXT NOT NULL,
		work_dir TEXT NOT NULL DEFAULT '',
		log_path TEXT NOT NULL,
		started_at TIMESTAMP NOT NULL,
		PRIMARY KEY(scope, name)
	);`
	if _, err := s.db.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

func (s *SQLiteStore) List(ctx context.Context, scope string) ([]Record, error) {
	recs, err := s.readAll(ctx)
	if err != nil {
		return nil, err
	}
	return visible(recs, scope), nil
}

func (s *SQLiteStore) Get(ctx context.Context, name, scope string) (Record, error) {
	recs, err := s.readAll(ctx)
	if err != nil {
		return Record{}, err
	}
	rec, ok := findByName(visible(recs, scope), name, scope)
	if !ok {
		return Record{}, ErrRecordNotFound
	}
	return rec, nil
}

func (s *SQLiteStore) Put(ctx context.Context, rec Record) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO process_records(scope, name, pid, command, work_dir, log_path, started_at)
		VALUES(?, ?, ?, ?, ?, ?, ?);`,
		rec.Scope, rec.Name, rec.PID, rec.Command, rec.WorkDir, rec.LogPath, rec.StartedAt.UTC())
	if err != nil {
		return fmt.Errorf("put record: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Remove(ctx context.Context, name, scope string) error {
	rec, err := s.Get(ctx, name, scope)
	if errors.Is(err, ErrRecordNotFound) {
		return nil // idempotent
	}
	if err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM process_records WHERE scope = ? AND name = ?;`, rec.Scope, rec.Name); err != nil {
		return fmt.Errorf("remove record: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Close() error { return s.db.Close() }

// Scope matching is a path-semantics question, so filtering happens in Go
// rather than SQL.
func (s *SQLiteStore) readAll(ctx context.Context) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT scope, name, pid, command, work_dir, log_path, started_at FROM process_records;`)
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	defer func() { _ = rows.Close() }()
	var recs []Record
	for rows.Next() {
		var rec Record
		if err := rows.Scan(&rec.Scope, &rec.Name, &rec.PID, &rec.Command, &rec.WorkDir, &rec.LogPath, &rec.StartedAt); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}
