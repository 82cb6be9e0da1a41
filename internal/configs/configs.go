/*
Package configs is responsible for loading and parsing the application's configuration settings.

It configures server parameters by reading operating system environment variables,
including the running environment, port, CORS allowed origins, room retention, and
the voting time limit.
*/
package configs

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// AppConfig contains all configuration parameters required for the application to run.
// All configuration values are loaded from environment variables.
type AppConfig struct {
	// General Server Settings
	Environment string
	Port        int

	// Security Settings
	AllowedOrigins []string

	// Room Lifecycle Settings
	RoomTTL       time.Duration
	SweepInterval time.Duration

	// Game Settings
	VoteTimeLimit time.Duration
}

// intFromEnv reads an integer environment variable, using def when unset.
func intFromEnv(key string, def int) (int, error) {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return def, nil
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return 0, fmt.Errorf("invalid %s environment variable: %w", key, err)
	}

	return value, nil
}

// LoadConfig reads and parses the application configuration from environment variables.
// It provides default values for each configuration item and performs necessary type
// conversions and validation. It returns a pointer to the AppConfig struct and any error
// encountered.
func LoadConfig() (*AppConfig, error) {
	cfg := &AppConfig{}

	// --- General Server Settings ---
	cfg.Environment = os.Getenv("ENVIRONMENT")
	if cfg.Environment == "" {
		cfg.Environment = "development"
	}

	port, err := intFromEnv("PORT", 8080)
	if err != nil {
		return nil, err
	}
	cfg.Port = port

	if cfg.Port < 1024 || cfg.Port > 65535 {
		return nil, fmt.Errorf("port number %d is outside the recommended range (%d-%d) to avoid privileged ports", cfg.Port, 1024, 65535)
	}

	// --- Security Settings ---
	originsStr := os.Getenv("ALLOWED_ORIGINS")
	if originsStr != "" {
		origins := strings.Split(originsStr, ",")
		for _, origin := range origins {
			trimmed := strings.TrimSpace(origin)
			if trimmed != "" {
				cfg.AllowedOrigins = append(cfg.AllowedOrigins, trimmed)
			}
		}
	} else {
		cfg.AllowedOrigins = []string{}
	}

	// --- Room Lifecycle Settings ---
	ttlMinutes, err := intFromEnv("ROOM_TTL_MINUTES", 60)
	if err != nil {
		return nil, err
	}
	if ttlMinutes <= 0 {
		return nil, fmt.Errorf("ROOM_TTL_MINUTES must be positive, got %d", ttlMinutes)
	}
	cfg.RoomTTL = time.Duration(ttlMinutes) * time.Minute

	sweepMinutes, err := intFromEnv("ROOM_SWEEP_MINUTES", 10)
	if err != nil {
		return nil, err
	}
	if sweepMinutes <= 0 {
		return nil, fmt.Errorf("ROOM_SWEEP_MINUTES must be positive, got %d", sweepMinutes)
	}
	cfg.SweepInterval = time.Duration(sweepMinutes) * time.Minute

	// --- Game Settings ---
	voteSeconds, err := intFromEnv("VOTE_TIME_LIMIT_SECONDS", 60)
	if err != nil {
		return nil, err
	}
	if voteSeconds <= 0 {
		return nil, fmt.Errorf("VOTE_TIME_LIMIT_SECONDS must be positive, got %d", voteSeconds)
	}
	cfg.VoteTimeLimit = time.Duration(voteSeconds) * time.Second

	return cfg, nil
}
