package testutil

import (
	"database/sql"
	"io/fs"
	"testing"

	_ "modernc.org/sqlite"

	"github.com/pratik-mahalle/cloudops/migrations"
)

// NewTestDB creates an in-memory SQLite database with the embedded schema
// applied. The pool is pinned to one connection so every query sees the same
// in-memory database.
func NewTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	db.SetMaxOpenConns(1)

	names, err := migrations.Names(migrations.FS())
	if err != nil {
		t.Fatalf("Failed to list migrations: %v", err)
	}
	for _, name := range names {
		schema, err := fs.ReadFile(migrations.FS(), name)
		if err != nil {
			t.Fatalf("Failed to read migration %s: %v", name, err)
		}
		if _, err := db.Exec(string(schema)); err != nil {
			t.Fatalf("Failed to create test schema from %s: %v", name, err)
		}
	}

	t.Cleanup(func() { CleanupDB(db) })
	return db
}

// CleanupDB closes the test database
func CleanupDB(db *sql.DB) {
	if db != nil {
		db.Close()
	}
}
