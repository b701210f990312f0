// Package testutil provides shared test infrastructure for integration tests.
package testutil

import (
	"context"
	"database/sql"
	"os"
	"testing"
	"time"

	_ "github.com/lib/pq"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/auditelle/storefront/migrations"
)

// PGTest returns a migrated database for an integration test.
//
// It connects to POSTGRES_URL when set. Otherwise it starts a throwaway
// postgres container, which is skipped under -short or when no Docker
// daemon is reachable. Tables are truncated when the test ends.
//
//	db := testutil.PGTest(t)
func PGTest(t *testing.T) *sql.DB {
	t.Helper()

	dsn := os.Getenv("POSTGRES_URL")
	if dsn == "" {
		dsn = startPostgres(t)
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		t.Fatalf("pgtest: open database: %v", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		t.Fatalf("pgtest: connect to database: %v", err)
	}

	ctx := context.Background()
	if err := migrations.Up(ctx, db); err != nil {
		_ = db.Close()
		t.Fatalf("pgtest: run migrations: %v", err)
	}

	t.Cleanup(func() {
		Truncate(ctx, db)
		_ = db.Close()
	})
	return db
}

func startPostgres(t *testing.T) string {
	t.Helper()
	if testing.Short() {
		t.Skip("POSTGRES_URL not set and -short given, skipping integration test")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	ctr, err := postgres.Run(ctx, "postgres:16-alpine",
		postgres.WithDatabase("storefront"),
		postgres.WithUsername("storefront"),
		postgres.WithPassword("storefront"),
		postgres.BasicWaitStrategies(),
	)
	testcontainers.CleanupContainer(t, ctr)
	if err != nil {
		t.Fatalf("pgtest: start postgres container: %v", err)
	}

	dsn, err := ctr.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("pgtest: connection string: %v", err)
	}
	return dsn
}

// Truncate empties every application table. PGTest calls it on cleanup;
// tests sharing one database between subtests call it directly.
func Truncate(ctx context.Context, db *sql.DB) {
	var tables sql.NullString
	err := db.QueryRowContext(ctx, `
		SELECT string_agg(format('%I', tablename), ', ')
		FROM pg_tables
		WHERE schemaname = 'public' AND tablename <> 'goose_db_version'
	`).Scan(&tables)
	if err != nil || !tables.Valid {
		return
	}
	// Names are quoted by format('%I').
	_, _ = db.ExecContext(ctx, "TRUNCATE "+tables.String+" CASCADE") // #nosec G202
}
