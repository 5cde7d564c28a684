// Package testutil provides shared test infrastructure: a disposable
// PostgreSQL container with the pgvector extension, a deterministic
// embedding provider, and a silent logger.
package testutil

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/millwright/millwright/internal/database"
)

// TestDB wraps a PostgreSQL test container with a ready connection pool.
type TestDB struct {
	Container *postgres.PostgresContainer
	Pool      *pgxpool.Pool
	ConnStr   string
}

// SkipIfNoDocker skips the test when integration tests are disabled.
// Set MILLWRIGHT_TEST_DB=1 to enable container-backed tests.
func SkipIfNoDocker(t *testing.T) {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}
	if os.Getenv("MILLWRIGHT_TEST_DB") == "" {
		t.Skip("set MILLWRIGHT_TEST_DB=1 to run container-backed tests")
	}
}

// SetupTestDB starts a pgvector-enabled PostgreSQL container, runs the
// embedded migrations, and returns a connected pool. Cleanup is
// registered on t.
func SetupTestDB(t *testing.T) *TestDB {
	t.Helper()

	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"pgvector/pgvector:pg16",
		postgres.WithDatabase("millwright_test"),
		postgres.WithUsername("millwright_test"),
		postgres.WithPassword("test_password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	if err != nil {
		t.Fatalf("starting postgres container: %v", err)
	}
	t.Cleanup(func() {
		if err := pgContainer.Terminate(context.Background()); err != nil {
			t.Logf("terminating postgres container: %v", err)
		}
	})

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("getting connection string: %v", err)
	}

	if err := database.Migrate(connStr); err != nil {
		t.Fatalf("running migrations: %v", err)
	}

	pool, err := database.Open(ctx, connStr)
	if err != nil {
		t.Fatalf("opening connection pool: %v", err)
	}
	t.Cleanup(pool.Close)

	return &TestDB{Container: pgContainer, Pool: pool, ConnStr: connStr}
}
