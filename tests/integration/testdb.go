// Package integration runs the catalog sync against a real PostgreSQL
// database started with testcontainers, migrated with the versioned schema.
package integration

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/b2bportal/backend/internal/infrastructure/migration"
	_ "github.com/lib/pq"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// TestDB represents a migrated test database
type TestDB struct {
	DB             *gorm.DB
	SqlDB          *sql.DB
	Container      testcontainers.Container
	DSN            string
	MigrationsPath string
	t              *testing.T
}

// NewTestDB starts a fresh PostgreSQL container and applies every migration.
// Each test gets its own container for complete isolation.
func NewTestDB(t *testing.T) *TestDB {
	t.Helper()

	ctx := context.Background()

	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("catalog_test"),
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

	db, sqlDB := connectToDatabase(t, dsn)

	testDB := &TestDB{
		DB:             db,
		SqlDB:          sqlDB,
		Container:      container,
		DSN:            dsn,
		MigrationsPath: findMigrationsPath(),
		t:              t,
	}
	t.Cleanup(testDB.Close)

	require.NotEmpty(t, testDB.MigrationsPath, "Could not find migrations directory")
	testDB.Migrate(func(m *migration.Migrator) error { return m.Up() })

	return testDB
}

// Migrate opens a migrator on a dedicated connection and runs fn with it
func (tdb *TestDB) Migrate(fn func(m *migration.Migrator) error) {
	tdb.t.Helper()

	conn, err := sql.Open("postgres", tdb.DSN)
	require.NoError(tdb.t, err)

	m, err := migration.New(conn, tdb.MigrationsPath, zap.NewNop())
	require.NoError(tdb.t, err, "Failed to create migrator")
	defer func() { _ = m.Close() }()

	require.NoError(tdb.t, fn(m))
}

// Close closes the connection and terminates the container
func (tdb *TestDB) Close() {
	if tdb.SqlDB != nil {
		_ = tdb.SqlDB.Close()
	}
	if tdb.Container != nil {
		if err := tdb.Container.Terminate(context.Background()); err != nil {
			tdb.t.Logf("Warning: Failed to terminate container: %v", err)
		}
	}
}

// connectToDatabase establishes a GORM connection to the database
func connectToDatabase(t *testing.T, dsn string) (*gorm.DB, *sql.DB) {
	t.Helper()

	gormConfig := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	}
	if os.Getenv("TEST_DB_DEBUG") != "" {
		gormConfig.Logger = logger.Default.LogMode(logger.Info)
	}

	db, err := gorm.Open(gormpostgres.Open(dsn), gormConfig)
	require.NoError(t, err, "Failed to connect to database")

	sqlDB, err := db.DB()
	require.NoError(t, err, "Failed to get underlying SQL DB")

	sqlDB.SetMaxOpenConns(5)
	sqlDB.SetMaxIdleConns(2)
	sqlDB.SetConnMaxLifetime(5 * time.Minute)

	return db, sqlDB
}

// findMigrationsPath walks up from this file to the repository's migrations directory
func findMigrationsPath() string {
	_, filename, _, ok := runtime.Caller(0)
	if !ok {
		return ""
	}
	dir := filepath.Dir(filename)
	for range 5 {
		candidate := filepath.Join(dir, "migrations")
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
		dir = filepath.Dir(dir)
	}
	return ""
}
