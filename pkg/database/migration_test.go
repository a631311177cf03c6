package database

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/Gobusters/ectologger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLatestMigrationVersion(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{
		"000001_init.up.sql",
		"000001_init.down.sql",
		"000003_aliases.up.sql",
		"000002_employees.up.sql",
		"README.md",
	} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("--"), 0o644))
	}

	latest, err := latestMigrationVersion(dir)
	require.NoError(t, err)
	assert.Equal(t, 3, latest)
}

func TestLatestMigrationVersion_Empty(t *testing.T) {
	_, err := latestMigrationVersion(t.TempDir())
	assert.Error(t, err)
}

func TestResolveMigrationFolder(t *testing.T) {
	logger := ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})

	t.Run("existing folder", func(t *testing.T) {
		dir := t.TempDir()
		ms := NewMigrationService(logger, &MigrationConfig{MigrationFolderPath: dir})

		folder, err := ms.resolveMigrationFolder()
		require.NoError(t, err)
		assert.Equal(t, dir, folder)
	})

	t.Run("missing folder", func(t *testing.T) {
		ms := NewMigrationService(logger, &MigrationConfig{MigrationFolderPath: "does/not/exist"})

		_, err := ms.resolveMigrationFolder()
		assert.Error(t, err)
	})
}
