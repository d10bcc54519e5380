package db

import (
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

var (
	ErrMonitorNotFound   = errors.New("monitor not found")
	ErrCheckNotFound     = errors.New("check not found")
	ErrIncidentNotFound  = errors.New("incident not found")
	ErrNoOngoingIncident = errors.New("no ongoing incident")
	ErrAPIKeyNotFound    = errors.New("api key not found")
	ErrInvalidAPIKey     = errors.New("invalid api key")
)

// Dialect selects the SQL backend.
type Dialect string

const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "postgres"
)

// DBConfig describes how to open the backing database.
// SQLite uses Path, Postgres uses DSN.
type DBConfig struct {
	Type Dialect
	Path string
	DSN  string
}

type Store struct {
	db      *sql.DB
	dialect Dialect
}

func NewStore(cfg DBConfig) (*Store, error) {
	var (
		db  *sql.DB
		err error
	)

	switch cfg.Type {
	case DialectPostgres:
		db, err = sql.Open("postgres", cfg.DSN)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(5 * time.Minute)

	case DialectSQLite, "":
		dsn := cfg.Path
		if dsn == "" || dsn == ":memory:" {
			// Unique shared-cache name so every connection of this
			// store sees the same in-memory database, while separate
			// stores stay isolated.
			dsn = fmt.Sprintf("file:vigil-%s?mode=memory&cache=shared", uuid.NewString())
		}
		db, err = sql.Open("sqlite3", dsn)
		if err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
		db.SetMaxOpenConns(1)

	default:
		return nil, fmt.Errorf("unsupported database type %q", cfg.Type)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	s := &Store{db: db, dialect: cfg.Type}
	if s.dialect == "" {
		s.dialect = DialectSQLite
	}

	if s.dialect == DialectSQLite {
		if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
			db.Close()
			return nil, fmt.Errorf("enable foreign keys: %w", err)
		}
	}

	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Ping() error {
	return s.db.Ping()
}

// IsPostgres reports whether the store runs on Postgres. A few
// statements cannot be expressed portably and branch on this.
func (s *Store) IsPostgres() bool {
	return s.dialect == DialectPostgres
}

// rebind rewrites ? placeholders to $1..$n for Postgres. Queries are
// written once in SQLite style and rebound at the call site.
func (s *Store) rebind(query string) string {
	if !s.IsPostgres() {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func timePtr(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}
	t := nt.Time
	return &t
}

func nullInt64(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}

func int64Ptr(ni sql.NullInt64) *int64 {
	if !ni.Valid {
		return nil
	}
	v := ni.Int64
	return &v
}

func nullInt(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}

func intPtr(ni sql.NullInt64) *int {
	if !ni.Valid {
		return nil
	}
	v := int(ni.Int64)
	return &v
}
