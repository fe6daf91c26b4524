package executor

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/pgbackman/pgbackman/internal/catalog"
)

func TestMajorVersionOf(t *testing.T) {
	assert.Equal(t, 0, majorVersionOf(""))
	assert.Equal(t, 16, majorVersionOf("16"))
	assert.Equal(t, 9, majorVersionOf("9.6"))
}

func TestIdSuffixFor(t *testing.T) {
	defID := int64(42)
	assert.Equal(t, "42", idSuffixFor(&defID, nil))

	snapID := int64(7)
	assert.Equal(t, "snap7", idSuffixFor(nil, &snapID))

	assert.Equal(t, "unknown", idSuffixFor(nil, nil))
}

func TestPgDumpBinary(t *testing.T) {
	assert.Equal(t, "pg_dumpall", pgDumpBinary(catalog.CodeCluster))
	assert.Equal(t, "pg_dump", pgDumpBinary(catalog.CodeFull))
	assert.Equal(t, "pg_dump", pgDumpBinary(catalog.CodeSchema))
}

func TestArtifactDir(t *testing.T) {
	e := &Executor{rootBackupPartition: "/srv/pgbackman"}
	at := time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC)
	got := e.artifactDir("db01.example.org", "salesdb", at)
	assert.Equal(t, "/srv/pgbackman/db01.example.org/salesdb/2026/03/05", got)
}

func TestFileOrEmptyAndSizeOfMissingFile(t *testing.T) {
	assert.Equal(t, "", fileOrEmpty("/nonexistent/path"))
	assert.Equal(t, int64(0), sizeOf("/nonexistent/path"))
}
