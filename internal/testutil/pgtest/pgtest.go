// Package pgtest starts throwaway PostgreSQL containers with the billhub
// schema applied. It is used by tests built with the integration tag.
package pgtest

import (
	"context"
	"database/sql"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/erp/billhub/internal/infrastructure/migration"
	"github.com/erp/billhub/migrations"
)

const image = "postgres:16-alpine"

// TestDB is a migrated database in its own container
type TestDB struct {
	DB        *gorm.DB
	SqlDB     *sql.DB
	Container *tcpostgres.PostgresContainer
	DSN       string
	t         *testing.T
}

// New starts a container, applies every migration and registers cleanup.
// It skips the test in -short mode.
func New(t *testing.T) *TestDB {
	t.Helper()
	if testing.Short() {
		t.Skip("Skipping PostgreSQL integration test in short mode")
	}

	tdb := Start(t)
	m, err := migration.New(tdb.SqlDB, migrations.FS, nil)
	require.NoError(t, err, "Failed to create migrator")
	require.NoError(t, m.Up(), "Failed to run migrations")
	return tdb
}

// Start starts a container with an empty database
func Start(t *testing.T) *TestDB {
	t.Helper()
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx, image,
		tcpostgres.WithDatabase("billhub_test"),
		tcpostgres.WithUsername("postgres"),
		tcpostgres.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err, "Failed to start PostgreSQL container")

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err, "Failed to get connection string")

	gormCfg := &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)}
	if os.Getenv("TEST_DB_DEBUG") != "" {
		gormCfg.Logger = logger.Default.LogMode(logger.Info)
	}
	db, err := gorm.Open(gormpostgres.Open(dsn), gormCfg)
	require.NoError(t, err, "Failed to connect to database")

	sqlDB, err := db.DB()
	require.NoError(t, err)
	// enough connections for the concurrency tests to contend on row locks
	sqlDB.SetMaxOpenConns(16)
	sqlDB.SetMaxIdleConns(4)

	tdb := &TestDB{DB: db, SqlDB: sqlDB, Container: container, DSN: dsn, t: t}
	t.Cleanup(tdb.Close)
	return tdb
}

// Close closes the connection pool and terminates the container
func (tdb *TestDB) Close() {
	if tdb.SqlDB != nil {
		_ = tdb.SqlDB.Close()
	}
	if tdb.Container != nil {
		if err := tdb.Container.Terminate(context.Background()); err != nil {
			tdb.t.Logf("Warning: failed to terminate container: %v", err)
		}
	}
}

// SeedOwner inserts a department and a user and returns the user id
func (tdb *TestDB) SeedOwner(username, department string) uuid.UUID {
	tdb.t.Helper()

	deptID, userID := uuid.New(), uuid.New()
	require.NoError(tdb.t, tdb.DB.Exec(
		`INSERT INTO departments (id, name) VALUES (?, ?)`, deptID, department).Error)
	require.NoError(tdb.t, tdb.DB.Exec(
		`INSERT INTO users (id, username, email, phone, display_name, department_id) VALUES (?, ?, ?, ?, ?, ?)`,
		userID, username, username+"@example.com", "555-0100", username, deptID).Error)
	return userID
}
