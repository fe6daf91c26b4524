package maintenance

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/pgbackman/pgbackman/internal/catalog"
)

func rowFinishedDaysAgo(bckID int64, days int) catalog.BackupCatalog {
	return catalog.BackupCatalog{BckID: bckID, Finished: time.Now().Add(-time.Duration(days) * 24 * time.Hour)}
}

// TestSelectExpiredMatchesSpecExample mirrors spec.md's worked example: a
// definition with retention_period=3 days, retention_redundancy=2, and
// catalog rows finished 1, 2, 4, 5 days ago. Only the 4d and 5d rows expire.
func TestSelectExpiredMatchesSpecExample(t *testing.T) {
	now := time.Now()
	rows := []catalog.BackupCatalog{
		rowFinishedDaysAgo(1, 1),
		rowFinishedDaysAgo(2, 2),
		rowFinishedDaysAgo(3, 4),
		rowFinishedDaysAgo(4, 5),
	}

	expired := selectExpired(rows, 2, 3*24*time.Hour, 0, now)

	var ids []int64
	for _, r := range expired {
		ids = append(ids, r.BckID)
	}
	assert.ElementsMatch(t, []int64{3, 4}, ids)
}

func TestSelectExpiredKeepsRedundancyRegardlessOfAge(t *testing.T) {
	now := time.Now()
	rows := []catalog.BackupCatalog{
		rowFinishedDaysAgo(1, 100),
		rowFinishedDaysAgo(2, 200),
	}

	expired := selectExpired(rows, 2, time.Hour, 0, now)
	assert.Empty(t, expired)
}

func TestSelectExpiredRespectsGraceWindow(t *testing.T) {
	now := time.Now()
	rows := []catalog.BackupCatalog{rowFinishedDaysAgo(1, 4)}

	assert.Empty(t, selectExpired(rows, 0, 3*24*time.Hour, 2*24*time.Hour, now))
	assert.NotEmpty(t, selectExpired(rows, 0, 3*24*time.Hour, 0, now))
}

func TestSelectExpiredNoRowsBeyondRedundancy(t *testing.T) {
	rows := []catalog.BackupCatalog{rowFinishedDaysAgo(1, 10)}
	assert.Empty(t, selectExpired(rows, 5, time.Hour, 0, time.Now()))
}

func TestArtifactPathsSkipsEmpty(t *testing.T) {
	row := catalog.BackupCatalog{DumpFile: "/a/b.dump", DumpLogFile: "", GlobalsFile: "/a/b.globals"}
	paths := artifactPaths(row)
	assert.Equal(t, []string{"/a/b.dump", "/a/b.globals"}, paths)
}
