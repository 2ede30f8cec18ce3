package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

const (
	defaultHTTPAddr          = ":8099"
	defaultDBPath            = "/data/airplane_scheduler.db"
	defaultSchedulesPath     = "/data/schedules.json"
	defaultSimulatedRoot     = "/data/simulated"
	defaultSUPath            = "su"
	defaultCommandTimeout    = 10 * time.Second
	defaultRootProbeTimeout  = 5 * time.Second
	defaultStatePollInterval = 30 * time.Second
	defaultNotificationKeep  = 500

	BackendAndroid   = "android"
	BackendSimulated = "simulated"
)

// Config stores runtime settings loaded from environment variables.
type Config struct {
	HTTPAddr          string
	DBPath            string
	LogLevel          slog.Level
	Backend           string
	RootBackend       string
	SUPath            string
	CommandTimeout    time.Duration
	RootProbeTimeout  time.Duration
	GateMode          string
	SchedulesPath     string
	PackageName       string
	RPCToken          string
	StatePollInterval time.Duration
	NotificationKeep  int

	SimulatedRoot          string
	SimulatedElevated      bool
	SimulatedRootAvailable bool
}

// Load builds Config from environment variables using stable defaults.
func Load() Config {
	return Config{
		HTTPAddr:          getenv("HTTP_ADDR", defaultHTTPAddr),
		DBPath:            getenv("DB_PATH", defaultDBPath),
		LogLevel:          parseLogLevel(getenv("LOG_LEVEL", "info")),
		Backend:           parseBackend(getenv("BACKEND", BackendAndroid)),
		RootBackend:       strings.ToLower(getenv("ROOT_BACKEND", "subprocess")),
		SUPath:            getenv("SU_PATH", defaultSUPath),
		CommandTimeout:    parseDuration("COMMAND_TIMEOUT", defaultCommandTimeout),
		RootProbeTimeout:  parseDuration("ROOT_PROBE_TIMEOUT", defaultRootProbeTimeout),
		GateMode:          strings.ToLower(getenv("GATE_MODE", "queue")),
		SchedulesPath:     getenv("SCHEDULES_PATH", defaultSchedulesPath),
		PackageName:       getenv("PACKAGE_NAME", ""),
		RPCToken:          getenv("RPC_TOKEN", ""),
		StatePollInterval: parseDuration("STATE_POLL_INTERVAL", defaultStatePollInterval),
		NotificationKeep:  parseInt("NOTIFICATION_KEEP", defaultNotificationKeep),

		SimulatedRoot:          getenv("SIMULATED_ROOT", defaultSimulatedRoot),
		SimulatedElevated:      parseBool("SIMULATED_ELEVATED", false),
		SimulatedRootAvailable: parseBool("SIMULATED_ROOT_AVAILABLE", true),
	}
}

// DBDir returns the target directory for DBPath.
func (c Config) DBDir() string {
	return filepath.Dir(c.DBPath)
}

func getenv(key string, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		trimmed := strings.TrimSpace(value)
		if trimmed != "" {
			return trimmed
		}
	}
	return fallback
}

func parseDuration(key string, fallback time.Duration) time.Duration {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	value, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil || value <= 0 {
		return fallback
	}
	return value
}

func parseBool(key string, fallback bool) bool {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	value, err := strconv.ParseBool(strings.TrimSpace(raw))
	if err != nil {
		return fallback
	}
	return value
}

func parseInt(key string, fallback int) int {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	value, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || value <= 0 {
		return fallback
	}
	return value
}

func parseBackend(raw string) string {
	if strings.EqualFold(raw, BackendSimulated) {
		return BackendSimulated
	}
	return BackendAndroid
}

// ParseLogLevel maps a level name onto slog levels, defaulting to info.
func ParseLogLevel(raw string) slog.Level {
	return parseLogLevel(raw)
}

func parseLogLevel(raw string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
