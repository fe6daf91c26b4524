package migrator

import (
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompare(t *testing.T) {
	assert.Equal(t, Current, Compare(5, 5))
	assert.Equal(t, NeedsUpgrade, Compare(6, 5))
	assert.Equal(t, TooNew, Compare(4, 5))
}

func TestResolveMigrationFilesAllPresent(t *testing.T) {
	dir := t.TempDir()
	for _, n := range []int{2, 3} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, "pgbackman_"+strconv.Itoa(n)+".sql"), []byte("-- noop"), 0o644))
	}

	files, err := resolveMigrationFiles(dir, 1, 3)
	require.NoError(t, err)
	assert.Len(t, files, 2)
	assert.Contains(t, files[2], "pgbackman_2.sql")
	assert.Contains(t, files[3], "pgbackman_3.sql")
}

func TestResolveMigrationFilesMissingRefuses(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "pgbackman_2.sql"), []byte("-- noop"), 0o644))

	_, err := resolveMigrationFiles(dir, 1, 3)
	assert.Error(t, err)
}

