package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// noEnvFile points Load at a file that does not exist.
func noEnvFile(t *testing.T) string {
	return "-env-file=" + filepath.Join(t.TempDir(), "missing.env")
}

// clearEnv unsets every variable Load reads. t.Setenv first so the
// previous values come back after the test; godotenv skips variables that
// are set, even to "", so they must be truly unset.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"ENV", "LOG_LEVEL", "HTTP_ADDR", "STORE_DRIVER", "REDIS_ADDR", "REDIS_DB",
		"REDIS_PASSWORD", "BADGER_PATH", "ACTIVITY_CAPACITY", "API_KEYS", "API_KEY",
		"CORS_ORIGINS", "API_URL", "POLL_INTERVAL", "READ_TIMEOUT", "WRITE_TIMEOUT",
		"IDLE_TIMEOUT", "SHUTDOWN_TIMEOUT",
	} {
		t.Setenv(k, "")
		require.NoError(t, os.Unsetenv(k))
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, rest, err := Load([]string{noEnvFile(t)})
	require.NoError(t, err)
	assert.Empty(t, rest)

	assert.Equal(t, "development", cfg.App.Environment)
	assert.Equal(t, "info", cfg.Logger.Level)
	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, 5*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, []string{"*"}, cfg.Server.CORSOrigins)
	assert.Equal(t, "redis", cfg.Store.Driver)
	assert.Equal(t, "localhost:6379", cfg.Store.RedisAddr)
	assert.Equal(t, 100, cfg.Activity.Capacity)
	assert.Empty(t, cfg.Auth.APIKeys)
	assert.Equal(t, "http://localhost:9090", cfg.Client.APIURL)
	assert.Equal(t, 5*time.Second, cfg.Client.PollInterval)
	assert.False(t, cfg.IsProduction())
}

func TestLoad_Precedence(t *testing.T) {
	clearEnv(t)

	envFile := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("HTTP_ADDR=:7000\nLOG_LEVEL=warn\nACTIVITY_CAPACITY=10\n"), 0o600))

	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("API_KEYS", "a, b,,c")

	cfg, rest, err := Load([]string{"-env-file=" + envFile, "-activity-capacity=3", "tui"})
	require.NoError(t, err)

	assert.Equal(t, ":7000", cfg.Server.Addr, ".env beats default")
	assert.Equal(t, "debug", cfg.Logger.Level, "env beats .env")
	assert.Equal(t, 3, cfg.Activity.Capacity, "flag beats .env")
	assert.Equal(t, []string{"a", "b", "c"}, cfg.Auth.APIKeys)
	assert.Equal(t, []string{"tui"}, rest)
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want string
	}{
		{"bad duration", map[string]string{"READ_TIMEOUT": "soon"}, "READ_TIMEOUT"},
		{"bad int", map[string]string{"ACTIVITY_CAPACITY": "many"}, "ACTIVITY_CAPACITY"},
		{"zero capacity", map[string]string{"ACTIVITY_CAPACITY": "0"}, "activity capacity"},
		{"unknown driver", map[string]string{"STORE_DRIVER": "mongo"}, "store driver"},
		{"relative api url", map[string]string{"API_URL": "localhost"}, "api url"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, _, err := Load([]string{noEnvFile(t)})
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoad_UnknownFlag(t *testing.T) {
	clearEnv(t)
	_, _, err := Load([]string{noEnvFile(t), "-no-such-flag"})
	assert.Error(t, err)
}
