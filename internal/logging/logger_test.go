package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewJSONTo_StandardizesErrorKey(t *testing.T) {
	var buf bytes.Buffer
	logger := NewJSONTo(&buf, slog.LevelInfo)

	logger.Debug("hidden")
	logger.Error("failed", "error", errors.New("boom"))

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "failed", line["msg"])
	assert.Equal(t, "boom", line["err"])
	assert.NotContains(t, line, "error")
}
