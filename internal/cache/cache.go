// Package cache is the persistent compile cache: solved existential models
// and emitted specializations, stored in SQLite and keyed by content hash.
// Because keys are content-addressed, cache rows never go stale; a key
// either means exactly what it meant when written or is absent.
package cache

import (
	"database/sql"
	_ "embed"
	"fmt"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/silica-hdl/silica/internal/ir"
)

//go:embed schema.sql
var schemaSQL string

// Cache wraps a SQLite database holding compile results across runs.
// Uses WAL mode so concurrent compiles can read while one writes.
type Cache struct {
	db      *sql.DB
	session string
}

// Open creates or opens the cache database at path. Applies pragmas and the
// schema, and records a new compile session. Idempotent over the same file.
func Open(path string) (*Cache, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open cache: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect cache: %w", err)
	}

	// SQLite allows one writer; a single connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply pragmas: %w", err)
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	session := uuid.NewString()
	_, err = db.Exec(`
		INSERT INTO sessions (id, compiler_version, ir_version)
		VALUES (?, ?, ?)
	`, session, ir.CompilerVersion, ir.IRVersion)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("record session: %w", err)
	}

	return &Cache{db: db, session: session}, nil
}

// Session returns the uuid of the compile session this handle records
// writes under.
func (c *Cache) Session() string {
	return c.session
}

func (c *Cache) Close() error {
	if c.db == nil {
		return nil
	}
	return c.db.Close()
}

func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("execute %q: %w", pragma, err)
		}
	}
	return nil
}
