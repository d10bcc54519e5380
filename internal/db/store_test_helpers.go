package db

import (
	"os"
	"testing"
)

// NewTestConfig returns a DBConfig for in-memory SQLite testing.
func NewTestConfig() DBConfig {
	return DBConfig{
		Type: DialectSQLite,
		Path: ":memory:",
	}
}

// NewTestConfigWithPath returns a DBConfig for SQLite testing with a
// specific path.
func NewTestConfigWithPath(path string) DBConfig {
	return DBConfig{
		Type: DialectSQLite,
		Path: path,
	}
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(NewTestConfig())
	if err != nil {
		t.Fatalf("Failed to create test store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

// RunTestWithBothDBs runs the test body against SQLite and, when
// VIGIL_TEST_POSTGRES_DSN is set, against Postgres too. The Postgres
// database must be empty; migrations run on open.
func RunTestWithBothDBs(t *testing.T, name string, fn func(t *testing.T, s *Store)) {
	t.Run(name+"/sqlite", func(t *testing.T) {
		s, err := NewStore(NewTestConfig())
		if err != nil {
			t.Fatalf("Failed to create sqlite store: %v", err)
		}
		defer func() { _ = s.Close() }()
		fn(t, s)
	})

	dsn := os.Getenv("VIGIL_TEST_POSTGRES_DSN")
	if dsn == "" {
		return
	}
	t.Run(name+"/postgres", func(t *testing.T) {
		s, err := NewStore(DBConfig{Type: DialectPostgres, DSN: dsn})
		if err != nil {
			t.Fatalf("Failed to create postgres store: %v", err)
		}
		defer func() {
			wipeTables(s)
			_ = s.Close()
		}()
		wipeTables(s)
		fn(t, s)
	})
}

func wipeTables(s *Store) {
	for _, table := range []string{
		"monitor_checks", "health_transitions", "incidents",
		"maintenance_windows", "notification_channels", "api_keys",
		"settings", "monitors",
	} {
		_, _ = s.db.Exec("DELETE FROM " + table)
	}
}
