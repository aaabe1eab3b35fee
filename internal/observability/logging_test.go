package observability

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/jusdesk/portal-sync/internal/config"
)

func TestNewLoggerLevels(t *testing.T) {
	tests := []struct {
		name  string
		cfg   config.LoggerConfig
		level zapcore.Level
	}{
		{name: "explicit warn", cfg: config.LoggerConfig{Level: "warn"}, level: zapcore.WarnLevel},
		{name: "unknown level falls back to info", cfg: config.LoggerConfig{Level: "loud"}, level: zapcore.InfoLevel},
		{name: "production", cfg: config.LoggerConfig{Level: "info", Development: false}, level: zapcore.InfoLevel},
		{name: "development", cfg: config.LoggerConfig{Level: "debug", Development: true}, level: zapcore.DebugLevel},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			logger, err := NewLogger(tc.cfg)
			require.NoError(t, err)
			assert.True(t, logger.Core().Enabled(tc.level))
			if tc.level > zapcore.DebugLevel {
				assert.False(t, logger.Core().Enabled(tc.level-1))
			}
		})
	}
}
