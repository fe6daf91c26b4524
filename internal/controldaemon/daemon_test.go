package controldaemon

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/pgbackman/pgbackman/internal/catalog/jobqueue"
)

func TestAdvisoryLockKeyDistinctPerNode(t *testing.T) {
	a := advisoryLockKey(1, 10)
	b := advisoryLockKey(1, 11)
	assert.NotEqual(t, a, b)
}

func TestAdvisoryLockKeyStable(t *testing.T) {
	assert.Equal(t, advisoryLockKey(3, 7), advisoryLockKey(3, 7))
}

func TestNextBackoffCapsAtFiveMinutes(t *testing.T) {
	d := 4 * time.Minute
	assert.Equal(t, 5*time.Minute, nextBackoff(d))
}

func TestNextBackoffDoubles(t *testing.T) {
	assert.Equal(t, 20*time.Second, nextBackoff(10*time.Second))
}

func TestDecodePayloadCrontab(t *testing.T) {
	raw, _ := json.Marshal(jobqueue.CrontabPayload{BackupServerID: 1, PgSQLNodeID: 2})
	job := jobqueue.Job{Payload: raw}

	var payload jobqueue.CrontabPayload
	assert.NoError(t, decodePayload(job, &payload))
	assert.Equal(t, int64(1), payload.BackupServerID)
	assert.Equal(t, int64(2), payload.PgSQLNodeID)
}

func TestDecodePayloadRejectsMalformedJSON(t *testing.T) {
	job := jobqueue.Job{Payload: []byte(`not json`)}
	var payload jobqueue.ATPayload
	assert.Error(t, decodePayload(job, &payload))
}

func TestRemoveIfExistsToleratesMissingFile(t *testing.T) {
	assert.NoError(t, removeIfExists("/nonexistent/artifact/path"))
	assert.NoError(t, removeIfExists(""))
}

func TestParseAtqJobNumbersExtractsFirstField(t *testing.T) {
	out := "3\tWed Aug  5 03:00:00 2026 a root\n7\tThu Aug  6 04:00:00 2026 a root\n"
	assert.Equal(t, []string{"3", "7"}, parseAtqJobNumbers([]byte(out)))
}

func TestParseAtqJobNumbersEmptyQueue(t *testing.T) {
	assert.Nil(t, parseAtqJobNumbers([]byte("")))
}

func TestAtJobBodyMatchesFindsCommand(t *testing.T) {
	body := []byte("#!/bin/sh\ncd /\n/usr/bin/pgbackman-executor --snapshot-id=42\n")
	assert.True(t, atJobBodyMatches(body, "/usr/bin/pgbackman-executor --snapshot-id=42"))
	assert.False(t, atJobBodyMatches(body, "/usr/bin/pgbackman-executor --snapshot-id=43"))
}
