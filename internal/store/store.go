// Package store is the single owner of every persistent row the chat
// core keeps: users, sessions, friendships, groups and encrypted
// messages. No other package issues SQL directly.
//
// The same schema runs against Postgres (github.com/lib/pq) and
// against an embedded pure-Go SQLite (modernc.org/sqlite), selected by
// the scheme of DATABASE_URL. Query text is written with "?"
// placeholders throughout and rebound to "$1, $2, ..." for Postgres at
// Exec/Query time, the same trick sqlx's Rebind uses.
package store

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// Dialect names the SQL flavor a Store was opened against.
type Dialect string

const (
	Postgres Dialect = "postgres"
	SQLite   Dialect = "sqlite"
)

// Store wraps a *sql.DB together with the dialect it was opened
// against, since the two SQL engines disagree on placeholder syntax
// and a handful of DDL types.
type Store struct {
	DB      *sql.DB
	Dialect Dialect
}

// Connect opens the database named by databaseURL. Recognized schemes:
//
//	postgres://...   -> github.com/lib/pq
//	sqlite://path     -> modernc.org/sqlite, path after the scheme
//	sqlite:path       -> same, single-colon form
//	sqlite::memory:    -> in-memory database, one per Store
func Connect(databaseURL string) (*Store, error) {
	switch {
	case strings.HasPrefix(databaseURL, "postgres://"), strings.HasPrefix(databaseURL, "postgresql://"):
		db, err := sql.Open("postgres", databaseURL)
		if err != nil {
			return nil, fmt.Errorf("store: open postgres: %w", err)
		}
		if err := db.Ping(); err != nil {
			return nil, fmt.Errorf("store: ping postgres: %w", err)
		}
		return &Store{DB: db, Dialect: Postgres}, nil

	case strings.HasPrefix(databaseURL, "sqlite:"):
		dsn := strings.TrimPrefix(strings.TrimPrefix(databaseURL, "sqlite:"), "//")
		if dsn == "" {
			dsn = ":memory:"
		}
		db, err := sql.Open("sqlite", dsn)
		if err != nil {
			return nil, fmt.Errorf("store: open sqlite: %w", err)
		}
		if dsn == ":memory:" {
			// A single shared connection keeps the in-memory database
			// alive; modernc.org/sqlite tears it down when the last
			// connection in the pool closes.
			db.SetMaxOpenConns(1)
		}
		if err := db.Ping(); err != nil {
			return nil, fmt.Errorf("store: ping sqlite: %w", err)
		}
		return &Store{DB: db, Dialect: SQLite}, nil

	default:
		return nil, fmt.Errorf("store: unrecognized DATABASE_URL scheme in %q", databaseURL)
	}
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	return s.DB.Close()
}

// rebind rewrites "?" placeholders into the dialect's native syntax.
// Postgres wants "$1", "$2", ...; SQLite accepts "?" as-is.
func (s *Store) rebind(query string) string {
	if s.Dialect != Postgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			fmt.Fprintf(&b, "$%d", n)
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (s *Store) exec(query string, args ...any) (sql.Result, error) {
	return s.DB.Exec(s.rebind(query), args...)
}

func (s *Store) query(query string, args ...any) (*sql.Rows, error) {
	return s.DB.Query(s.rebind(query), args...)
}

func (s *Store) queryRow(query string, args ...any) *sql.Row {
	return s.DB.QueryRow(s.rebind(query), args...)
}

// now returns the current Unix timestamp in seconds, the resolution
// every stored time column uses so the schema is dialect-portable.
func now() int64 {
	return time.Now().Unix()
}
