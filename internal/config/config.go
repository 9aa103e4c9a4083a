// Package config loads application configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
)

// Config holds the application configuration loaded from environment variables.
type Config struct {
	AdminPassword string
	ListenAddr    string
	DBPath        string
	KeyPath       string
	LoginWorkers  int
}

// Load reads configuration from environment variables and returns a validated
// Config. BUCKETPANEL_ADMIN_PASSWORD is required; the composition root
// enforces the strength rules on it before serving. Optional variables with
// defaults: BUCKETPANEL_LISTEN_ADDR (127.0.0.1:8080), BUCKETPANEL_DB_PATH
// (bucketpanel.db), BUCKETPANEL_KEY_PATH (bucketpanel.key),
// BUCKETPANEL_LOGIN_WORKERS (4).
func Load() (*Config, error) {
	password := os.Getenv("BUCKETPANEL_ADMIN_PASSWORD")
	if password == "" {
		return nil, fmt.Errorf("BUCKETPANEL_ADMIN_PASSWORD is required")
	}

	listenAddr := "127.0.0.1:8080"
	if v, ok := os.LookupEnv("BUCKETPANEL_LISTEN_ADDR"); ok {
		listenAddr = v
	}

	dbPath := "bucketpanel.db"
	if v, ok := os.LookupEnv("BUCKETPANEL_DB_PATH"); ok {
		dbPath = v
	}

	keyPath := "bucketpanel.key"
	if v, ok := os.LookupEnv("BUCKETPANEL_KEY_PATH"); ok {
		keyPath = v
	}

	loginWorkers := 4
	if v, ok := os.LookupEnv("BUCKETPANEL_LOGIN_WORKERS"); ok {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 1 {
			return nil, fmt.Errorf("BUCKETPANEL_LOGIN_WORKERS has invalid value %q", v)
		}
		loginWorkers = parsed
	}

	return &Config{
		AdminPassword: password,
		ListenAddr:    listenAddr,
		DBPath:        dbPath,
		KeyPath:       keyPath,
		LoginWorkers:  loginWorkers,
	}, nil
}
