package adminapi

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pgbackman/pgbackman/internal/catalog"
	"github.com/pgbackman/pgbackman/internal/pgerr"
)

func TestValidateCode(t *testing.T) {
	assert.NoError(t, validateCode(catalog.CodeFull))
	assert.NoError(t, validateCode(catalog.CodeCluster))
	err := validateCode(catalog.BackupCode("BOGUS"))
	require.Error(t, err)
	assert.Equal(t, pgerr.KindValidation, pgerr.KindOf(err))
}

func TestValidateJobStatus(t *testing.T) {
	assert.NoError(t, validateJobStatus(catalog.JobActive))
	assert.Error(t, validateJobStatus(catalog.JobStatus("BOGUS")))
}

func TestValidatePgDumpRelease(t *testing.T) {
	assert.NoError(t, validatePgDumpRelease(""))
	assert.NoError(t, validatePgDumpRelease("16"))
	assert.Error(t, validatePgDumpRelease("9.6"))
}

func TestDefaultStar(t *testing.T) {
	assert.Equal(t, "*", defaultStar(""))
	assert.Equal(t, "30", defaultStar("30"))
}

func TestParseDuration(t *testing.T) {
	d, err := parseDuration("")
	require.NoError(t, err)
	assert.Zero(t, d)

	d, err = parseDuration("168h")
	require.NoError(t, err)
	assert.Equal(t, 168*time.Hour, d)

	_, err = parseDuration("7 days")
	require.Error(t, err)
	assert.Equal(t, pgerr.KindValidation, pgerr.KindOf(err))
}
