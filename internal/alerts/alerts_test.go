package alerts

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadTemplateDefaultRenders(t *testing.T) {
	tmpl, err := loadTemplate("")
	require.NoError(t, err)

	data := alertData{Kind: "backup_catalog", ID: 42, Status: "ERROR", ReturnCode: 1,
		Finished: time.Date(2026, 3, 5, 10, 0, 0, 0, time.UTC), ErrorMsg: "pg_dump: connection refused"}

	var buf bytes.Buffer
	require.NoError(t, tmpl.Execute(&buf, data))

	rendered := buf.String()
	assert.Contains(t, rendered, "backup_catalog #42")
	assert.Contains(t, rendered, "pg_dump: connection refused")
}

func TestLoadTemplateMissingFileErrors(t *testing.T) {
	_, err := loadTemplate("/nonexistent/template/path.tmpl")
	assert.Error(t, err)
}
