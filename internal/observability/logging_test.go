package observability

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cory-johannsen/hexdraft/internal/config"
)

func TestNewLogger_JSON(t *testing.T) {
	cfg := config.LoggingConfig{Level: "info", Format: "json"}
	logger, err := NewLogger(cfg)
	require.NoError(t, err)
	assert.NotNil(t, logger)
}

func TestNewLogger_Console(t *testing.T) {
	cfg := config.LoggingConfig{Level: "debug", Format: "console"}
	logger, err := NewLogger(cfg)
	require.NoError(t, err)
	assert.NotNil(t, logger)
}

func TestNewLogger_InvalidLevel(t *testing.T) {
	cfg := config.LoggingConfig{Level: "trace", Format: "json"}
	_, err := NewLogger(cfg)
	assert.Error(t, err)
}

func TestNewLogger_InvalidFormat(t *testing.T) {
	cfg := config.LoggingConfig{Level: "info", Format: "xml"}
	_, err := NewLogger(cfg)
	assert.Error(t, err)
}

func TestNewLogger_AllLevels(t *testing.T) {
	for _, level := range []string{"debug", "info", "warn", "error"} {
		cfg := config.LoggingConfig{Level: level, Format: "json"}
		logger, err := NewLogger(cfg)
		require.NoError(t, err, "level %q should be valid", level)
		assert.NotNil(t, logger)
	}
}

func TestNewLogger_FileSink(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hexdraft.log")
	cfg := config.LoggingConfig{Level: "info", Format: "json", File: path, MaxSizeMB: 1, MaxBackups: 1}
	logger, err := NewLogger(cfg)
	require.NoError(t, err)

	logger.Info("room placed")
	_ = logger.Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "room placed")
}

func TestRotatingFile_CarriesLimits(t *testing.T) {
	cfg := config.LoggingConfig{File: "/tmp/x.log", MaxSizeMB: 7, MaxBackups: 2, MaxAgeDays: 9}
	lj := RotatingFile(cfg)
	assert.Equal(t, "/tmp/x.log", lj.Filename)
	assert.Equal(t, 7, lj.MaxSize)
	assert.Equal(t, 2, lj.MaxBackups)
	assert.Equal(t, 9, lj.MaxAge)
}
