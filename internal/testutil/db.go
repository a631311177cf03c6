package testutil

import (
	"context"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/Ramsey-B/fern/pkg/database"
)

// MigrationsPath returns the absolute path of the SQL migrations.
func MigrationsPath() string {
	_, file, _, _ := runtime.Caller(0)
	return filepath.Join(filepath.Dir(file), "..", "..", "db", "pg")
}

// NewDB starts PostgreSQL, applies every migration and returns a connected pool.
func NewDB(t *testing.T) database.DB {
	t.Helper()
	pg := StartPostgres(t)
	logger := Logger()

	db, err := database.Connect(context.Background(), pg.DSN(), database.PoolConfig{MaxOpenConns: 5}, logger)
	if err != nil {
		t.Fatalf("failed to connect to test database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	migrations := database.NewMigrationService(logger, &database.MigrationConfig{MigrationFolderPath: MigrationsPath()})
	if err := migrations.MigratePostgres(db.SQLDB(), pg.Database); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	return db
}
