package logger

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitWritesJSONFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "sniwatch.log")
	require.NoError(t, Init(Config{Level: "info", File: path, MaxSizeMB: 1, MaxFiles: 1}))
	t.Cleanup(func() { globalLogger = nil })

	Debug("hidden")
	Info("新连接", "sni", "example.com")
	Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &entry), "only one line expected: %s", data)
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, "新连接", entry["msg"])
	assert.Equal(t, "example.com", entry["sni"])
}

func TestInvalidLevelFallsBackToWarn(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sniwatch.log")
	require.NoError(t, Init(Config{Level: "loud", File: path}))
	t.Cleanup(func() { globalLogger = nil })

	Info("hidden")
	Warn("shown")
	Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "hidden")
	assert.Contains(t, string(data), "shown")
}

func TestHelpersBeforeInit(t *testing.T) {
	globalLogger = nil
	assert.NotPanics(t, func() {
		Debug("x")
		Error("y", "k", 1)
		Sync()
	})
}
