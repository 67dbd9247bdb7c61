package logger

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/coinmeca/flashloan-deployer/conf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestLevel(t *testing.T) {
	assert.Equal(t, zapcore.ErrorLevel, Level(-1))
	assert.Equal(t, zapcore.ErrorLevel, Level(0))
	assert.Equal(t, zapcore.WarnLevel, Level(1))
	assert.Equal(t, zapcore.InfoLevel, Level(2))
	assert.Equal(t, zapcore.DebugLevel, Level(3))
	assert.Equal(t, zapcore.DebugLevel, Level(9))
}

func TestInitFile(t *testing.T) {
	prev := Logger
	t.Cleanup(func() { Logger = prev })

	var c conf.Log
	c.File.Use = true
	c.File.Verbosity = 1
	c.File.FileName = filepath.Join(t.TempDir(), "deployer.log")
	require.NoError(t, Init(c))
	assert.False(t, Terminal())

	Logger.Info("dropped")
	Logger.Warn("kept", zap.String("network", "sepolia"))
	Sync()

	data, err := os.ReadFile(c.File.FileName)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "dropped")
	assert.Contains(t, string(data), `"network":"sepolia"`)
}

func TestInitTo(t *testing.T) {
	prev := Logger
	t.Cleanup(func() { Logger = prev })

	var c conf.Log
	c.Terminal.Use = true
	c.Terminal.Verbosity = 0

	var buf bytes.Buffer
	require.NoError(t, InitTo(c, &buf))
	assert.True(t, Terminal())
	Logger.Warn("quiet")
	Logger.Error("deployment failed", zap.String("network", "ethereum"))

	assert.NotContains(t, buf.String(), "quiet")
	assert.Contains(t, buf.String(), "deployment failed")
	assert.Contains(t, buf.String(), "ethereum")
}
