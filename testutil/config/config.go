// Package config supplies environment-driven database configuration for
// integration tests. Values are read from the environment, with a best-effort
// .env load for local runs; tests skip when the relevant variable is unset.
package config

import (
	"database/sql"
	"os"
	"testing"

	_ "github.com/go-sql-driver/mysql" // mysql driver
	_ "github.com/lib/pq"              // postgres driver
	"github.com/joho/godotenv"
	_ "modernc.org/sqlite" // sqlite driver
)

func init() {
	// Missing .env is fine, the environment may already be populated.
	_ = godotenv.Load()
}

// PostgresConnString returns the postgres test target, skipping the test when
// none is configured.
func PostgresConnString(t *testing.T) string {
	t.Helper()

	connString := os.Getenv("GOVERNANCE_TEST_POSTGRES_URL")
	if connString == "" {
		t.Skip("GOVERNANCE_TEST_POSTGRES_URL not set")
	}

	return connString
}

// MySQLConnString returns the mysql test target, skipping the test when none
// is configured.
func MySQLConnString(t *testing.T) string {
	t.Helper()

	connString := os.Getenv("GOVERNANCE_TEST_MYSQL_DSN")
	if connString == "" {
		t.Skip("GOVERNANCE_TEST_MYSQL_DSN not set")
	}

	return connString
}

// OpenPostgres opens a database/sql handle on the postgres test target.
func OpenPostgres(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("postgres", PostgresConnString(t))
	if err != nil {
		t.Fatalf("failed to open postgres handle: %v", err)
	}

	t.Cleanup(func() { _ = db.Close() })

	return db
}

// OpenMySQL opens a database/sql handle on the mysql test target.
func OpenMySQL(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("mysql", MySQLConnString(t))
	if err != nil {
		t.Fatalf("failed to open mysql handle: %v", err)
	}

	t.Cleanup(func() { _ = db.Close() })

	return db
}

// SQLiteMemoryConnString is the canonical memory-backed sqlite target used to
// exercise the single-connection mode rule.
const SQLiteMemoryConnString = "file::memory:?mode=memory&cache=shared"

// OpenSQLiteMemory opens an in-memory sqlite handle. No environment needed;
// the driver is pure Go.
func OpenSQLiteMemory(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite", SQLiteMemoryConnString)
	if err != nil {
		t.Fatalf("failed to open sqlite handle: %v", err)
	}

	t.Cleanup(func() { _ = db.Close() })

	return db
}
