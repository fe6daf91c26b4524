package controldaemon

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pgbackman/pgbackman/internal/catalog"
)

func sampleDefs() []catalog.BackupDefinition {
	return []catalog.BackupDefinition{
		{
			DefID: 1,
			Schedule: catalog.Schedule{
				Minute: "0", Hour: "3", DayOfMonth: "*", Month: "*", Weekday: "*",
			},
		},
	}
}

func TestRenderCrontabSameDefsDifferentTimestampsShareContentHash(t *testing.T) {
	a := RenderCrontab(sampleDefs(), "/usr/bin/pgbackman-executor", time.Unix(0, 0))
	b := RenderCrontab(sampleDefs(), "/usr/bin/pgbackman-executor", time.Unix(1_000_000, 0))

	hashA, ok := contentHash(a)
	require.True(t, ok)
	hashB, ok := contentHash(b)
	require.True(t, ok)
	assert.Equal(t, hashA, hashB)
	assert.NotEqual(t, a, b)
}

func TestRenderCrontabChangedDefsChangeContentHash(t *testing.T) {
	a := RenderCrontab(sampleDefs(), "/usr/bin/pgbackman-executor", time.Unix(0, 0))

	changed := sampleDefs()
	changed[0].Schedule.Hour = "4"
	b := RenderCrontab(changed, "/usr/bin/pgbackman-executor", time.Unix(0, 0))

	hashA, _ := contentHash(a)
	hashB, _ := contentHash(b)
	assert.NotEqual(t, hashA, hashB)
}

func TestWriteCrontabAtomicNoOpOnUnchangedDefinitions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "crontab")

	first := RenderCrontab(sampleDefs(), "/usr/bin/pgbackman-executor", time.Unix(0, 0))
	require.NoError(t, WriteCrontabAtomic(path, first))

	written, err := os.ReadFile(path)
	require.NoError(t, err)

	// A later tick over an unchanged definition set renders a fresh
	// generation timestamp but must not touch the file on disk.
	second := RenderCrontab(sampleDefs(), "/usr/bin/pgbackman-executor", time.Unix(99_999, 0))
	require.NoError(t, WriteCrontabAtomic(path, second))

	stillWritten, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, written, stillWritten, "unchanged definitions must not rewrite the crontab file")
}

func TestWriteCrontabAtomicRewritesOnChangedDefinitions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "crontab")

	first := RenderCrontab(sampleDefs(), "/usr/bin/pgbackman-executor", time.Unix(0, 0))
	require.NoError(t, WriteCrontabAtomic(path, first))

	changed := sampleDefs()
	changed[0].Schedule.Hour = "4"
	second := RenderCrontab(changed, "/usr/bin/pgbackman-executor", time.Unix(0, 0))
	require.NoError(t, WriteCrontabAtomic(path, second))

	onDisk, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, second, onDisk)
}

func TestContentHashMissingHeaderReturnsFalse(t *testing.T) {
	_, ok := contentHash([]byte("no header here\n"))
	assert.False(t, ok)
}
