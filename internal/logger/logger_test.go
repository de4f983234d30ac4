package logger

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zapcore.DebugLevel, ParseLevel("debug"))
	assert.Equal(t, zapcore.WarnLevel, ParseLevel(" WARN "))
	assert.Equal(t, zapcore.ErrorLevel, ParseLevel("error"))
	assert.Equal(t, zapcore.InfoLevel, ParseLevel("bogus"))
}

func TestNewJSONConsole(t *testing.T) {
	var buf bytes.Buffer
	log := newLogger(Config{Level: "warn", Format: "json"}, &buf)

	log.Info("dropped")
	log.Warn("kept")
	require.NoError(t, log.Sync())

	var entry map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry))
	assert.Equal(t, "kept", entry["msg"])
	assert.Equal(t, "warn", entry["level"])
}

func TestNewFileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tigerwatch.log")
	log := newLogger(Config{Level: "info", Format: "json", Output: "file", FilePath: path, MaxSize: 1}, &bytes.Buffer{})

	log.Info("to file")
	require.NoError(t, log.Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "to file")
}

func TestNewFileWithoutPathIsNop(t *testing.T) {
	log := newLogger(Config{Output: "file"}, &bytes.Buffer{})
	assert.NotNil(t, log)
	log.Info("nowhere")
}
