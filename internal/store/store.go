package store

import (
	"database/sql"
	_ "embed"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// dsnParams are applied by the driver to every connection it opens.
const dsnParams = "_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000&_foreign_keys=1"

// migration upgrades a database from version-1 to version. Every statement
// must be idempotent; a database created from schema.sql already satisfies
// all of them.
type migration struct {
	version int
	stmt    string
}

// migrations in version order. The last version is the current one.
//
//	1 - entity name index, for name filters and group lookups
//	2 - entity kind index, for kind filters
var migrations = []migration{
	{1, `CREATE INDEX IF NOT EXISTS idx_entities_name ON entities(session_id, name)`},
	{2, `CREATE INDEX IF NOT EXISTS idx_entities_kind ON entities(session_id, kind)`},
}

func schemaVersion() int {
	return migrations[len(migrations)-1].version
}

// Store is a SQLite trace log. One session writer appends at a time; reads
// may run concurrently thanks to WAL.
type Store struct {
	db *sql.DB
}

// Open creates or opens the trace log at path, creating tables and applying
// pending migrations. Safe to call on an existing log.
//
// Connections run with WAL journaling, NORMAL sync, a 5s busy timeout and
// foreign keys on.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path+"?"+dsnParams)
	if err != nil {
		return nil, fmt.Errorf("open trace log: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect to trace log %s: %w", path, err)
	}

	// Single writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	if err := migrate(db); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func migrate(db *sql.DB) error {
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if version > schemaVersion() {
		return fmt.Errorf("trace log schema version %d is newer than supported version %d", version, schemaVersion())
	}

	for _, m := range migrations {
		if m.version <= version {
			continue
		}
		if _, err := db.Exec(m.stmt); err != nil {
			return fmt.Errorf("migrate to v%d: %w", m.version, err)
		}
		if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", m.version)); err != nil {
			return fmt.Errorf("set schema version %d: %w", m.version, err)
		}
	}
	return nil
}

// verifyPragma checks a pragma's current value. Tests only.
func (s *Store) verifyPragma(name, expected string) error {
	var value string
	if err := s.db.QueryRow("PRAGMA " + name).Scan(&value); err != nil {
		return fmt.Errorf("query %s: %w", name, err)
	}
	if value != expected {
		return fmt.Errorf("%s = %q, expected %q", name, value, expected)
	}
	return nil
}
