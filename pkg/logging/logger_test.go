package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_JSON(t *testing.T) {
	var buf bytes.Buffer
	New(&buf, "json", "info").Info("scored", "score", 204.88)

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "scored", rec["msg"])
	assert.Equal(t, 204.88, rec["score"])
	assert.Equal(t, "INFO", rec["level"])
}

func TestNew_Text(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, "TEXT", "warn")
	logger.Info("hidden")
	logger.Warn("shown", "k", "v")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "msg=shown")
	assert.Contains(t, out, "k=v")
}

func TestNew_DefaultsToCLI(t *testing.T) {
	var buf bytes.Buffer
	New(&buf, "", "debug").Debug("details")
	assert.Contains(t, buf.String(), colorGreen+"details")
}
