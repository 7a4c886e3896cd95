package testutil

import (
	"context"
	"os"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"github.com/kjannette/vitanova-gold/internal/db"
)

// SetupPool creates a pgxpool.Pool for integration tests and applies the
// schema. Tests are skipped unless TEST_DATABASE_URL or DB_HOST is set.
func SetupPool(t *testing.T) *pgxpool.Pool {
	t.Helper()

	_ = godotenv.Load("../../.env")

	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		if os.Getenv("DB_HOST") == "" {
			t.Skip("no TEST_DATABASE_URL or DB_HOST; skipping database test")
		}
		host := EnvOr("DB_HOST", "localhost")
		port := EnvOr("DB_PORT", "5432")
		name := EnvOr("DB_NAME", "vitanova_gold")
		user := EnvOr("DB_USER", "postgres")
		pass := EnvOr("DB_PASSWORD", "")
		dsn = "postgres://" + user + ":" + pass + "@" + host + ":" + port + "/" + name + "?sslmode=disable"
	}

	pool, err := db.Connect(dsn)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(func() { pool.Close() })

	if err := db.EnsureSchema(context.Background(), pool); err != nil {
		t.Fatalf("schema: %v", err)
	}
	return pool
}

func EnvOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
