// Package durable implements storage.Backend on SQLite with WAL journaling
// and FTS5 full-text search (connection-string pragmas, PRAGMA user_version
// migrations). Writes go through a single-connection writer pool to
// serialize mutations; reads use a separate multi-connection pool so
// long-running SSE/search requests never block ingestion.
package durable

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/yologdev/yocore/internal/storage"
	_ "modernc.org/sqlite"
)

// CurrentSchemaVersion is the latest schema version. Bump when adding a migration.
const CurrentSchemaVersion = 1

// Backend is the SQLite-backed storage.Backend implementation.
type Backend struct {
	writer *sql.DB
	reader *sql.DB
}

var _ storage.Backend = (*Backend)(nil)

// Open initializes (or reopens) the database at baseDir/yocore.db, verifies
// WAL mode, and runs pending migrations.
func Open(baseDir string) (*Backend, error) {
	if err := os.MkdirAll(baseDir, 0700); err != nil {
		return nil, fmt.Errorf("create base directory: %w", err)
	}
	_ = os.Chmod(baseDir, 0700)

	dbPath := filepath.Join(baseDir, "yocore.db")
	dsn := dbPath + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)"

	writer, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open writer connection: %w", err)
	}
	writer.SetMaxOpenConns(1)

	if err := verifyWALMode(writer); err != nil {
		writer.Close()
		return nil, err
	}
	if err := migrate(writer); err != nil {
		writer.Close()
		return nil, err
	}

	reader, err := sql.Open("sqlite", dsn)
	if err != nil {
		writer.Close()
		return nil, fmt.Errorf("open reader connection: %w", err)
	}
	reader.SetMaxOpenConns(4)

	_ = os.Chmod(dbPath, 0600)

	return &Backend{writer: writer, reader: reader}, nil
}

func (b *Backend) Mode() storage.Mode { return storage.ModeDurable }

func (b *Backend) Close() error {
	werr := b.writer.Close()
	rerr := b.reader.Close()
	if werr != nil {
		return werr
	}
	return rerr
}

func verifyWALMode(db *sql.DB) error {
	var mode string
	if err := db.QueryRow("PRAGMA journal_mode;").Scan(&mode); err != nil {
		return fmt.Errorf("verify journal mode: %w", err)
	}
	if mode != "wal" {
		return fmt.Errorf("expected WAL journal mode, got %s", mode)
	}
	return nil
}

func getUserVersion(db *sql.DB) (int, error) {
	var v int
	if err := db.QueryRow("PRAGMA user_version;").Scan(&v); err != nil {
		return 0, fmt.Errorf("get user_version: %w", err)
	}
	return v, nil
}

func setUserVersion(db *sql.DB, v int) error {
	_, err := db.Exec(fmt.Sprintf("PRAGMA user_version=%d", v))
	if err != nil {
		return fmt.Errorf("set user_version: %w", err)
	}
	return nil
}
