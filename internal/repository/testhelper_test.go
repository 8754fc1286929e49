package repository_test

import (
	"context"
	"fmt"
	"path/filepath"
	"runtime"
	"strconv"
	"testing"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// TestDB is a throwaway Postgres carrying the worker's progress schema.
type TestDB struct {
	Pool      *pgxpool.Pool
	Container testcontainers.Container
}

// SetupTestDB starts a PostgreSQL container, applies the migrations and
// registers its teardown with t.
func SetupTestDB(t *testing.T) *TestDB {
	t.Helper()
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
	ctx := context.Background()

	_, currentFile, _, _ := runtime.Caller(0)
	migrationsPath := filepath.Join(filepath.Dir(currentFile), "..", "..", "migrations")

	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("migratehero"),
		postgres.WithUsername("replica"),
		postgres.WithPassword("replica"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		t.Fatalf("start postgres container: %v", err)
	}
	tdb := &TestDB{Container: pgContainer}
	t.Cleanup(func() { tdb.cleanup(t) })

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("connection string: %v", err)
	}

	m, err := migrate.New("file://"+migrationsPath, connStr)
	if err != nil {
		t.Fatalf("create migrate instance: %v", err)
	}
	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		t.Fatalf("run migrations: %v", err)
	}
	m.Close()

	tdb.Pool, err = pgxpool.New(ctx, connStr)
	if err != nil {
		t.Fatalf("create connection pool: %v", err)
	}
	if err := tdb.Pool.Ping(ctx); err != nil {
		t.Fatalf("ping database: %v", err)
	}
	return tdb
}

func (tdb *TestDB) cleanup(t *testing.T) {
	if tdb.Pool != nil {
		tdb.Pool.Close()
	}
	if err := tdb.Container.Terminate(context.Background()); err != nil {
		t.Logf("Warning: failed to terminate container: %v", err)
	}
}

// TruncateTables clears the worker tables for test isolation.
func (tdb *TestDB) TruncateTables(t *testing.T) {
	t.Helper()
	_, err := tdb.Pool.Exec(context.Background(),
		"TRUNCATE TABLE mvp_migrated_email, mvp_folder_progress, mvp_migration_task RESTART IDENTITY")
	if err != nil {
		t.Fatalf("truncate worker tables: %v", err)
	}
}

// InsertTask writes a task row the way the worker does and returns its id.
// cols overrides or extends the default column values.
func (tdb *TestDB) InsertTask(t *testing.T, cols map[string]any) string {
	t.Helper()
	values := map[string]any{
		"source_ews_url":   "https://ews.old.example/EWS/Exchange.asmx",
		"source_email":     "alice@old.example",
		"source_password":  "x",
		"target_imap_host": "imap.new.example",
		"target_imap_port": 993,
		"target_imap_ssl":  true,
		"target_email":     "alice@new.example",
		"target_password":  "x",
	}
	for k, v := range cols {
		values[k] = v
	}

	var names, params string
	args := make([]any, 0, len(values))
	for k, v := range values {
		if len(args) > 0 {
			names += ", "
			params += ", "
		}
		args = append(args, v)
		names += k
		params += fmt.Sprintf("$%d", len(args))
	}

	var id int64
	err := tdb.Pool.QueryRow(context.Background(),
		fmt.Sprintf("INSERT INTO mvp_migration_task (%s) VALUES (%s) RETURNING id", names, params),
		args...).Scan(&id)
	if err != nil {
		t.Fatalf("insert task: %v", err)
	}
	return strconv.FormatInt(id, 10)
}

// Exec runs a seeding statement.
func (tdb *TestDB) Exec(t *testing.T, sql string, args ...any) {
	t.Helper()
	if _, err := tdb.Pool.Exec(context.Background(), sql, args...); err != nil {
		t.Fatalf("exec %q: %v", sql, err)
	}
}
