package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "info", cfg.Level)
	assert.Equal(t, "console", cfg.Format)
	assert.Equal(t, "stdout", cfg.Output)
	assert.NotEmpty(t, cfg.TimeFormat)
}

func TestFromSettings(t *testing.T) {
	t.Run("overrides non-empty values", func(t *testing.T) {
		cfg := FromSettings("development", "debug", "", "stderr")
		assert.Equal(t, "debug", cfg.Level)
		assert.Equal(t, "console", cfg.Format)
		assert.Equal(t, "stderr", cfg.Output)
	})

	t.Run("production forces json", func(t *testing.T) {
		cfg := FromSettings("production", "", "console", "")
		assert.Equal(t, "json", cfg.Format)
	})
}

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		cfg     *Config
		wantErr bool
	}{
		{name: "nil config uses defaults", cfg: nil},
		{name: "json to stderr", cfg: &Config{Level: "warn", Format: "json", Output: "stderr"}},
		{name: "console to stdout", cfg: DefaultConfig()},
		{name: "unwritable file", cfg: &Config{Output: filepath.Join(os.TempDir(), "missing-dir", "x", "sync.log")}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, err := New(tt.cfg)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, logger)
		})
	}
}

func TestNew_WritesJSONFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sync.log")
	logger, err := New(&Config{Level: "info", Format: "json", Output: path})
	require.NoError(t, err)

	logger.Info("Sync run started")
	require.NoError(t, logger.Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"Sync run started"`)
	assert.Contains(t, string(data), `"level":"info"`)
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zapcore.DebugLevel, parseLevel("DEBUG"))
	assert.Equal(t, zapcore.WarnLevel, parseLevel("warning"))
	assert.Equal(t, zapcore.ErrorLevel, parseLevel("error"))
	assert.Equal(t, zapcore.InfoLevel, parseLevel("verbose"))
}
