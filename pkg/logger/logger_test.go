package logger

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xhad/ragchat/pkg/config"
	"go.uber.org/zap"
)

func TestNewWritesJSONToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ragchat.log")

	log, err := New(config.LogConfig{File: path, Level: "info", MaxSizeMB: 1})
	require.NoError(t, err)

	log.Debug("hidden")
	log.Info("query submitted", zap.Uint64("seq", 1))
	require.NoError(t, log.Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 1)

	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "query submitted", entry["message"])
	assert.Equal(t, "INFO", entry["level"])
	assert.EqualValues(t, 1, entry["seq"])
}

func TestNewWithoutFileIsNop(t *testing.T) {
	log, err := New(config.LogConfig{Level: "not-a-level"})
	require.NoError(t, err)
	assert.NotNil(t, log)
}

func TestNewRejectsUnknownLevel(t *testing.T) {
	_, err := New(config.LogConfig{File: filepath.Join(t.TempDir(), "x.log"), Level: "loud"})
	assert.Error(t, err)
}
