package pendinglog

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pgbackman/pgbackman/internal/catalog"
)

func sampleRow() catalog.BackupCatalog {
	defID := int64(7)
	return catalog.BackupCatalog{
		DefID:           &defID,
		BackupServerID:  1,
		PgSQLNodeID:     2,
		Dbname:          "salesdb",
		Started:         time.Date(2026, 7, 30, 2, 0, 0, 0, time.UTC),
		Finished:        time.Date(2026, 7, 30, 2, 5, 0, 0, time.UTC),
		Duration:        5 * time.Minute,
		DumpFile:        "/srv/pgbackman/db01/salesdb/2026/07/30/7_1.dump",
		DumpFileSize:    1024,
		ExecutionStatus: catalog.ExecutionSucceeded,
		PgDumpRelease:   "16.2",
		RoleList:        []string{"app_role", "readonly_role"},
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	row := sampleRow()
	line := encode(row)

	decoded, err := decode(line)
	require.NoError(t, err)
	assert.Equal(t, *row.DefID, *decoded.DefID)
	assert.Equal(t, row.BackupServerID, decoded.BackupServerID)
	assert.Equal(t, row.Dbname, decoded.Dbname)
	assert.Equal(t, row.DumpFileSize, decoded.DumpFileSize)
	assert.Equal(t, row.RoleList, decoded.RoleList)
	assert.WithinDuration(t, row.Started, decoded.Started, time.Second)
}

func TestDecodeRejectsWrongFieldCount(t *testing.T) {
	_, err := decode("1::2::3")
	assert.Error(t, err)
}

func TestDecodeRejectsMissingDefAndSnapshot(t *testing.T) {
	row := sampleRow()
	row.DefID = nil
	line := encode(row)
	_, err := decode(line)
	assert.Error(t, err)
}

func TestAppendAndDrain(t *testing.T) {
	dir := t.TempDir()
	row := sampleRow()

	require.NoError(t, Append(dir, 2, row))
	require.NoError(t, Append(dir, 2, row))

	var inserted []catalog.BackupCatalog
	results, err := Drain(dir, func(r catalog.BackupCatalog) error {
		inserted = append(inserted, r)
		return nil
	})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.True(t, results[0].FileDeleted)
	assert.Equal(t, 2, results[0].LinesOK)
	assert.Len(t, inserted, 2)

	results, err = Drain(dir, func(catalog.BackupCatalog) error { return nil })
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestDrainLeavesFileOnPartialFailure(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, Append(dir, 3, sampleRow()))

	calls := 0
	results, err := Drain(dir, func(catalog.BackupCatalog) error {
		calls++
		return assertError{}
	})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.False(t, results[0].FileDeleted)
	assert.Equal(t, 1, results[0].LinesBad)
}

type assertError struct{}

func (assertError) Error() string { return "simulated insert failure" }
