// Package config loads application configuration from command-line flags,
// environment variables and an optional .env file.
package config

import (
	"errors"
	"flag"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the application configuration.
type Config struct {
	App      AppConfig
	Logger   LoggerConfig
	Server   ServerConfig
	Store    StoreConfig
	Activity ActivityConfig
	Auth     AuthConfig
	Client   ClientConfig
}

// AppConfig holds application-level configuration.
type AppConfig struct {
	Environment string
}

// LoggerConfig holds logging configuration.
type LoggerConfig struct {
	Level string
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Addr            string        // Listen address (default: :9090)
	ReadTimeout     time.Duration // default: 5s
	WriteTimeout    time.Duration // default: 10s
	IdleTimeout     time.Duration // default: 120s
	ShutdownTimeout time.Duration // default: 5s
	CORSOrigins     []string      // default: *
}

// StoreConfig selects the document store.
type StoreConfig struct {
	Driver        string // redis or badger
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	BadgerPath    string // empty runs badger in memory
}

// ActivityConfig configures the activity log.
type ActivityConfig struct {
	Capacity int
}

// AuthConfig holds the static API keys. No keys disables authentication.
type AuthConfig struct {
	APIKeys []string
}

// ClientConfig configures the terminal frontend.
type ClientConfig struct {
	APIURL       string
	APIKey       string
	PollInterval time.Duration
}

// Load builds the configuration with precedence:
// 1. Command-line flags (highest priority).
// 2. Environment variables.
// 3. .env file.
// 4. Default values (lowest priority).
//
// args excludes the program name. Arguments left after flag parsing are
// returned for subcommand handling.
func Load(args []string) (*Config, []string, error) {
	fs := flag.NewFlagSet("itemcrud", flag.ContinueOnError)

	env := fs.String("env", "", "Environment (development, production)")
	logLevel := fs.String("log-level", "", "Log level (debug, info, warn, error)")
	httpAddr := fs.String("http-addr", "", "HTTP listen address (default: :9090)")
	readTimeout := fs.String("read-timeout", "", "HTTP read timeout (default: 5s)")
	writeTimeout := fs.String("write-timeout", "", "HTTP write timeout (default: 10s)")
	idleTimeout := fs.String("idle-timeout", "", "HTTP idle timeout (default: 120s)")
	shutdownTimeout := fs.String("shutdown-timeout", "", "Graceful shutdown timeout (default: 5s)")
	corsOrigins := fs.String("cors-origins", "", "Comma-separated allowed origins (default: *)")
	storeDriver := fs.String("store", "", "Document store driver: redis or badger (default: redis)")
	redisAddr := fs.String("redis-addr", "", "Redis address (default: localhost:6379)")
	redisDB := fs.String("redis-db", "", "Redis database number (default: 0)")
	badgerPath := fs.String("badger-path", "", "Badger data directory (default: in-memory)")
	activityCapacity := fs.String("activity-capacity", "", "Activity log capacity (default: 100)")
	apiURL := fs.String("api-url", "", "API base URL for the tui (default: http://localhost:9090)")
	pollInterval := fs.String("poll-interval", "", "tui refresh interval (default: 5s)")
	envFile := fs.String("env-file", ".env", "Path to .env file")

	if err := fs.Parse(args); err != nil {
		return nil, nil, err
	}

	// A missing .env file is not an error. godotenv.Load never overrides
	// variables already set in the environment.
	if err := godotenv.Load(*envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, nil, fmt.Errorf("load %s: %w", *envFile, err)
	}

	var errs []error
	durationValue := func(flagVal, envKey string, def time.Duration) time.Duration {
		d, err := getDurationConfigValue(flagVal, envKey, def)
		errs = append(errs, err)
		return d
	}
	intValue := func(flagVal, envKey string, def int) int {
		n, err := getIntConfigValue(flagVal, envKey, def)
		errs = append(errs, err)
		return n
	}

	cfg := &Config{
		App: AppConfig{
			Environment: getConfigValue(*env, "ENV", "development"),
		},
		Logger: LoggerConfig{
			Level: getConfigValue(*logLevel, "LOG_LEVEL", "info"),
		},
		Server: ServerConfig{
			Addr:            getConfigValue(*httpAddr, "HTTP_ADDR", ":9090"),
			ReadTimeout:     durationValue(*readTimeout, "READ_TIMEOUT", 5*time.Second),
			WriteTimeout:    durationValue(*writeTimeout, "WRITE_TIMEOUT", 10*time.Second),
			IdleTimeout:     durationValue(*idleTimeout, "IDLE_TIMEOUT", 120*time.Second),
			ShutdownTimeout: durationValue(*shutdownTimeout, "SHUTDOWN_TIMEOUT", 5*time.Second),
			CORSOrigins:     splitList(getConfigValue(*corsOrigins, "CORS_ORIGINS", "*")),
		},
		Store: StoreConfig{
			Driver:        getConfigValue(*storeDriver, "STORE_DRIVER", "redis"),
			RedisAddr:     getConfigValue(*redisAddr, "REDIS_ADDR", "localhost:6379"),
			RedisPassword: os.Getenv("REDIS_PASSWORD"),
			RedisDB:       intValue(*redisDB, "REDIS_DB", 0),
			BadgerPath:    getConfigValue(*badgerPath, "BADGER_PATH", ""),
		},
		Activity: ActivityConfig{
			Capacity: intValue(*activityCapacity, "ACTIVITY_CAPACITY", 100),
		},
		Auth: AuthConfig{
			APIKeys: splitList(os.Getenv("API_KEYS")),
		},
		Client: ClientConfig{
			APIURL:       strings.TrimRight(getConfigValue(*apiURL, "API_URL", "http://localhost:9090"), "/"),
			APIKey:       os.Getenv("API_KEY"),
			PollInterval: durationValue(*pollInterval, "POLL_INTERVAL", 5*time.Second),
		},
	}

	if err := errors.Join(errs...); err != nil {
		return nil, nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	return cfg, fs.Args(), nil
}

// Validate checks the loaded configuration for invalid values.
func (c *Config) Validate() error {
	var errs []error
	switch c.Store.Driver {
	case "redis", "badger":
	default:
		errs = append(errs, fmt.Errorf("store driver must be redis or badger, got %q", c.Store.Driver))
	}
	if c.Store.Driver == "redis" && c.Store.RedisAddr == "" {
		errs = append(errs, errors.New("redis address is required"))
	}
	if c.Server.Addr == "" {
		errs = append(errs, errors.New("http address is required"))
	}
	if c.Activity.Capacity < 1 {
		errs = append(errs, fmt.Errorf("activity capacity must be positive, got %d", c.Activity.Capacity))
	}
	if c.Client.PollInterval <= 0 {
		errs = append(errs, errors.New("poll interval must be positive"))
	}
	if u, err := url.Parse(c.Client.APIURL); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Errorf("api url %q is not an absolute URL", c.Client.APIURL))
	}
	return errors.Join(errs...)
}

// IsProduction reports whether the app runs in production.
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

// getConfigValue returns the first non-empty value from: flag, env var, default.
func getConfigValue(flagVal, envKey, defaultVal string) string {
	if flagVal != "" {
		return flagVal
	}
	if v := os.Getenv(envKey); v != "" {
		return v
	}
	return defaultVal
}

func getDurationConfigValue(flagVal, envKey string, defaultVal time.Duration) (time.Duration, error) {
	s := getConfigValue(flagVal, envKey, "")
	if s == "" {
		return defaultVal, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", envKey, s, err)
	}
	return d, nil
}

func getIntConfigValue(flagVal, envKey string, defaultVal int) (int, error) {
	s := getConfigValue(flagVal, envKey, "")
	if s == "" {
		return defaultVal, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", envKey, s, err)
	}
	return n, nil
}

// splitList parses a comma-separated list, dropping blanks.
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if v := strings.TrimSpace(part); v != "" {
			out = append(out, v)
		}
	}
	return out
}
