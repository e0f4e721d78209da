// Package journal records every durable document write as a revision row in
// a SQLite database, giving `docbridge history` an audit trail of saves.
package journal

import (
	"crypto/rand"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/oklog/ulid/v2"
	_ "modernc.org/sqlite"
)

// CurrentSchemaVersion is the latest schema version.
// Bump this when adding migrations.
const CurrentSchemaVersion = 1

// Revision is one recorded durable write.
type Revision struct {
	ID        string `json:"id"`
	DocPath   string `json:"docPath"`
	Bytes     int    `json:"bytes"`
	SHA256    string `json:"sha256"`
	CreatedAt int64  `json:"createdAt"` // unix milliseconds
}

// Init initializes the SQLite database at baseDir/journal.db.
// The baseDir parameter allows tests to use t.TempDir() instead of ~/.docbridge.
func Init(baseDir string) (*sql.DB, error) {
	if err := os.MkdirAll(baseDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}
	_ = os.Chmod(baseDir, 0700)

	dbPath := filepath.Join(baseDir, "journal.db")
	dsn := dbPath + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := verifyWALMode(db); err != nil {
		db.Close()
		return nil, err
	}

	if err := migrate(db); err != nil {
		db.Close()
		return nil, err
	}

	_ = os.Chmod(dbPath, 0600)

	return db, nil
}

// migrate applies schema migrations based on user_version.
func migrate(db *sql.DB) error {
	version, err := GetUserVersion(db)
	if err != nil {
		return err
	}

	if version < 1 {
		schema := `
		CREATE TABLE IF NOT EXISTS revisions (
		  id         TEXT PRIMARY KEY,
		  doc_path   TEXT NOT NULL,
		  bytes      INTEGER NOT NULL,
		  sha256     TEXT NOT NULL,
		  created_at INTEGER NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_revisions_doc_created
		ON revisions(doc_path, created_at DESC);
		`
		if _, err := db.Exec(schema); err != nil {
			return fmt.Errorf("migration 1 failed: %w", err)
		}
		if err := SetUserVersion(db, 1); err != nil {
			return err
		}
	}

	// Future migrations go here:
	// if version < 2 { ... }

	return nil
}

// verifyWALMode checks that WAL mode is active (set via connection string).
func verifyWALMode(db *sql.DB) error {
	var journalMode string
	if err := db.QueryRow("PRAGMA journal_mode;").Scan(&journalMode); err != nil {
		return fmt.Errorf("failed to verify journal mode: %w", err)
	}
	if journalMode != "wal" {
		return fmt.Errorf("expected WAL mode, got %s", journalMode)
	}
	return nil
}

// GetUserVersion returns the current schema version (user_version pragma).
func GetUserVersion(db *sql.DB) (int, error) {
	var version int
	if err := db.QueryRow("PRAGMA user_version;").Scan(&version); err != nil {
		return 0, fmt.Errorf("failed to get user_version: %w", err)
	}
	return version, nil
}

// SetUserVersion sets the schema version (user_version pragma).
func SetUserVersion(db *sql.DB, version int) error {
	_, err := db.Exec(fmt.Sprintf("PRAGMA user_version=%d", version))
	if err != nil {
		return fmt.Errorf("failed to set user_version: %w", err)
	}
	return nil
}

// RecordRevision stores a revision row for one durable write and returns it.
func RecordRevision(db *sql.DB, docPath string, data []byte) (*Revision, error) {
	sum := sha256.Sum256(data)
	entropy := ulid.Monotonic(rand.Reader, 0)
	rev := &Revision{
		ID:        ulid.MustNew(ulid.Timestamp(time.Now()), entropy).String(),
		DocPath:   docPath,
		Bytes:     len(data),
		SHA256:    hex.EncodeToString(sum[:]),
		CreatedAt: time.Now().UnixMilli(),
	}

	_, err := db.Exec(
		`INSERT INTO revisions (id, doc_path, bytes, sha256, created_at) VALUES (?, ?, ?, ?, ?)`,
		rev.ID, rev.DocPath, rev.Bytes, rev.SHA256, rev.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to record revision: %w", err)
	}
	return rev, nil
}

// ListRevisions returns revisions for a document, newest first, capped at
// limit (0 = no cap).
func ListRevisions(db *sql.DB, docPath string, limit int) ([]*Revision, error) {
	query := `
		SELECT id, doc_path, bytes, sha256, created_at
		FROM revisions
		WHERE doc_path = ?
		ORDER BY created_at DESC, rowid DESC
	`
	args := []any{docPath}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list revisions: %w", err)
	}
	defer rows.Close()

	var out []*Revision
	for rows.Next() {
		var r Revision
		if err := rows.Scan(&r.ID, &r.DocPath, &r.Bytes, &r.SHA256, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan revision: %w", err)
		}
		out = append(out, &r)
	}
	return out, rows.Err()
}
