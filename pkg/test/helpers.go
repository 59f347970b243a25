package test

import (
	"fmt"
	"log"
	"testing"

	"github.com/google/uuid"

	"usersapi/internal/adapter/database/sqlite"
)

type TestSetup[T any] struct {
	DB   *sqlite.DB
	Repo T
}

// InitTestDB opens a private in-memory sqlite database with the schema applied.
// Each call gets its own database, so tests never share rows.
func InitTestDB() *sqlite.DB {
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_busy_timeout=5000", uuid.NewString())

	db, err := sqlite.New(sqlite.Options{
		Path:         dsn,
		LogLevel:     "error",
		MaxOpenConns: 1,
	})
	if err != nil {
		log.Fatal(err)
	}

	return db
}

func SetupTest[T any](t *testing.T, newRepo func(db *sqlite.DB) T) *TestSetup[T] {
	t.Helper()

	db := InitTestDB()

	return &TestSetup[T]{
		DB:   db,
		Repo: newRepo(db),
	}
}

func TeardownTest[T any](t *testing.T, setup *TestSetup[T]) {
	t.Helper()

	if setup.DB != nil {
		CleanDB(t, setup.DB)
		setup.DB.Close()
	}
}

func CleanDB(t *testing.T, db *sqlite.DB) {
	t.Helper()

	rows, err := db.Query("SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT IN ('sqlite_sequence', 'schema_migrations')")
	if err != nil {
		t.Fatalf("Failed to query tables: %v", err)
	}

	var tables []string
	for rows.Next() {
		var table string
		if err := rows.Scan(&table); err != nil {
			rows.Close()
			t.Fatalf("Failed to scan table name: %v", err)
		}
		tables = append(tables, table)
	}
	rows.Close()

	for _, table := range tables {
		if _, err := db.Exec("DELETE FROM " + table); err != nil {
			t.Fatalf("Failed to clean table %s: %v", table, err)
		}
	}
}
