package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestFacadeLevels(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	Use(zap.New(core))

	LogDebug("d %d", 1)
	LogInfo("i %s", "x")
	LogWarn("w")
	LogError("e %v", 2.5)

	entries := logs.All()
	require.Len(t, entries, 4)
	assert.Equal(t, "d 1", entries[0].Message)
	assert.Equal(t, "i x", entries[1].Message)
	assert.Equal(t, zap.WarnLevel, entries[2].Level)
	assert.Equal(t, "e 2.5", entries[3].Message)
}

func TestInitWritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nav.log")
	require.NoError(t, Init(Config{Level: "debug", File: path, MaxSizeMB: 1}))
	LogInfo("build %s done", "solo")
	_ = Sync() // stderr sync may fail on some terminals

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "build solo done")
}

func TestInitRejectsBadLevel(t *testing.T) {
	assert.Error(t, Init(Config{Level: "loud"}))
}
