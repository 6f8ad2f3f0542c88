package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"entgo.io/ent/dialect"

	// Postgres driver registered as "pgx".
	_ "github.com/jackc/pgx/v5/stdlib"
	// Pure Go SQLite driver (no CGO).
	_ "modernc.org/sqlite"
)

// Driver names a supported SQL backend.
type Driver string

const (
	DriverSQLite   Driver = "sqlite"
	DriverPostgres Driver = "postgres"
)

// ErrNotFound is returned when a keyed row does not exist.
var ErrNotFound = errors.New("not found")

// Store holds the database handle and provides access to repositories.
type Store struct {
	db      *sql.DB
	dialect string
	seq     *sequenceCounter
}

// Open connects to the database, applies SQLite pragmas where relevant and
// runs auto-migration.
func Open(ctx context.Context, driver Driver, dsn string) (*Store, error) {
	var drvName, dia string
	switch driver {
	case DriverSQLite, "":
		drvName, dia = "sqlite", dialect.SQLite
		if dsn == "" {
			p, err := DefaultDBPath()
			if err != nil {
				return nil, err
			}
			dsn = p
		}
	case DriverPostgres:
		drvName, dia = "pgx", dialect.Postgres
		if dsn == "" {
			dsn = "postgres://localhost:5432/adaptiq?sslmode=disable"
		}
	default:
		return nil, fmt.Errorf("unsupported driver: %s", driver)
	}

	db, err := sql.Open(drvName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if dia == dialect.SQLite {
		// One writer at a time; avoids SQLITE_BUSY on shared-cache databases.
		db.SetMaxOpenConns(1)
		if err := applyPragmas(ctx, db); err != nil {
			db.Close()
			return nil, fmt.Errorf("apply pragmas: %w", err)
		}
	}

	if err := migrate(ctx, db, dia); err != nil {
		db.Close()
		return nil, err
	}

	seq, err := newSequenceCounter(ctx, db, dia)
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db, dialect: dia, seq: seq}, nil
}

// DB returns the underlying *sql.DB for raw queries.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Dialect returns the ent dialect name of the connection.
func (s *Store) Dialect() string {
	return s.dialect
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// QuestionRepo returns a QuestionRepo backed by this store.
func (s *Store) QuestionRepo() QuestionRepo {
	return &questionRepo{db: s.db, dialect: s.dialect}
}

// WeaknessRepo returns a WeaknessRepo backed by this store.
func (s *Store) WeaknessRepo() WeaknessRepo {
	return &weaknessRepo{db: s.db, dialect: s.dialect}
}

// AttemptRepo returns an AttemptRepo backed by this store.
func (s *Store) AttemptRepo() AttemptRepo {
	return &attemptRepo{db: s.db, dialect: s.dialect}
}

// ProgressRepo returns a ProgressRepo backed by this store.
func (s *Store) ProgressRepo() ProgressRepo {
	return &progressRepo{db: s.db, dialect: s.dialect}
}

// SessionRepo returns a SQL-backed SessionRepo.
func (s *Store) SessionRepo() SessionRepo {
	return &sqlSessionRepo{db: s.db, dialect: s.dialect}
}

// EventRepo returns an EventRepo backed by this store.
func (s *Store) EventRepo() EventRepo {
	return &eventRepo{db: s.db, dialect: s.dialect, seq: s.seq}
}

// applyPragmas configures SQLite for single-node service use.
func applyPragmas(ctx context.Context, db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
		"PRAGMA synchronous = NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			return fmt.Errorf("%s: %w", p, err)
		}
	}
	return nil
}

// DefaultDBPath resolves the SQLite database file path in priority order:
// 1. ADAPTIQ_DB environment variable
// 2. $XDG_DATA_HOME/adaptiq/adaptiq.db
// 3. ~/.local/share/adaptiq/adaptiq.db
func DefaultDBPath() (string, error) {
	if p := os.Getenv("ADAPTIQ_DB"); p != "" {
		return p, ensureDir(p)
	}

	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		dataHome = filepath.Join(home, ".local", "share")
	}

	p := filepath.Join(dataHome, "adaptiq", "adaptiq.db")
	return p, ensureDir(p)
}

// ensureDir creates the parent directory of path if it doesn't exist.
func ensureDir(path string) error {
	dir := filepath.Dir(path)
	return os.MkdirAll(dir, 0o755)
}
