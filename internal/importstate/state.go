// Package importstate remembers which export files liftlog-import has
// already sent, keyed by content hash, so re-running the importer over the
// same directory does not upload them again.
package importstate

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

const schema = `CREATE TABLE IF NOT EXISTS imported_files (
	hash        TEXT NOT NULL,
	server      TEXT NOT NULL,
	path        TEXT NOT NULL,
	sessions    INTEGER NOT NULL DEFAULT 0,
	sets        INTEGER NOT NULL DEFAULT 0,
	imported_at TIMESTAMP NOT NULL,
	PRIMARY KEY (hash, server)
)`

// Record describes one successfully imported file.
type Record struct {
	Hash       string
	Server     string
	Path       string
	Sessions   int
	Sets       int
	ImportedAt time.Time
}

// DB is the SQLite-backed import state.
type DB struct {
	db *sql.DB
}

// Open opens (or creates) the state database at dir/state.db.
func Open(dir string) (*DB, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating state dir %s: %w", dir, err)
	}

	db, err := sql.Open("sqlite", filepath.Join(dir, "state.db"))
	if err != nil {
		return nil, fmt.Errorf("opening state db: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating state table: %w", err)
	}
	return &DB{db: db}, nil
}

// IsImported reports whether a file with this hash was already sent to server.
func (s *DB) IsImported(ctx context.Context, hash, server string) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM imported_files WHERE hash = ? AND server = ?`,
		hash, server,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("checking import state: %w", err)
	}
	return count > 0, nil
}

// MarkImported records r. ImportedAt defaults to now.
func (s *DB) MarkImported(ctx context.Context, r Record) error {
	if r.ImportedAt.IsZero() {
		r.ImportedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO imported_files (hash, server, path, sessions, sets, imported_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		r.Hash, r.Server, r.Path, r.Sessions, r.Sets, r.ImportedAt,
	)
	if err != nil {
		return fmt.Errorf("recording import of %s: %w", r.Path, err)
	}
	return nil
}

// Recent returns the latest imports, newest first.
func (s *DB) Recent(ctx context.Context, limit int) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT hash, server, path, sessions, sets, imported_at
		 FROM imported_files ORDER BY imported_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing imports: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var r Record
		if err := rows.Scan(&r.Hash, &r.Server, &r.Path, &r.Sessions, &r.Sets, &r.ImportedAt); err != nil {
			return nil, fmt.Errorf("scanning import: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Close closes the state database.
func (s *DB) Close() error {
	return s.db.Close()
}

// HashFile computes the hex SHA-256 of a file's contents.
func HashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("hashing %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
