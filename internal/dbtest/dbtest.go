// Package dbtest opens a migrated, empty Postgres database for store tests.
package dbtest

import (
	"context"
	"os"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mimoreirac/pi-tercero/internal/migrations"
)

// Open connects to RIDES_TEST_DSN, applies migrations and truncates every table.
// The test is skipped when the variable is unset.
func Open(t *testing.T) *pgxpool.Pool {
	t.Helper()

	dsn := os.Getenv("RIDES_TEST_DSN")
	if dsn == "" {
		t.Skip("RIDES_TEST_DSN not set; skipping DB-backed tests")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("connect db: %v", err)
	}
	t.Cleanup(pool.Close)

	if err := migrations.Up(ctx, pool); err != nil {
		t.Fatalf("apply migrations: %v", err)
	}
	if _, err := pool.Exec(ctx, "TRUNCATE TABLE registro_auditoria, incidentes, reservas, viajes, usuarios"); err != nil {
		t.Fatalf("truncate tables: %v", err)
	}
	return pool
}
