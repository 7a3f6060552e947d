package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		enabled zapcore.Level
		hidden  zapcore.Level
	}{
		{"default level", Config{Environment: "development"}, zapcore.InfoLevel, zapcore.DebugLevel},
		{"debug", Config{Environment: "development", Level: "debug"}, zapcore.DebugLevel, zapcore.DebugLevel - 1},
		{"production warn", Config{Environment: "production", Level: "warn"}, zapcore.WarnLevel, zapcore.InfoLevel},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, err := New(tt.cfg)
			require.NoError(t, err)
			assert.True(t, l.Core().Enabled(tt.enabled))
			assert.False(t, l.Core().Enabled(tt.hidden))
		})
	}
}

func TestNew_InvalidLevel(t *testing.T) {
	_, err := New(Config{Level: "loud"})
	assert.Error(t, err)
}
