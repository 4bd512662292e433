// Copyright 2025 The MCP OAuth Gateway Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package config loads and validates the gateway's environment-variable
// configuration, in the shape of the teacher's authserver config: a plain
// struct, an applyDefaults pass that only touches zero values, and a
// Validate method that returns descriptive errors rather than panicking.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config is the fully-resolved gateway configuration.
type Config struct {
	// ServerURL is this server's own externally-visible origin: the OAuth
	// issuer and the base every callback/redirect URL is built from.
	ServerURL string

	// Enabled gates the entire auth core off when false (the MCP
	// collaborator then runs unauthenticated).
	Enabled bool

	// Provider selects which identity source backs federated logins:
	// "custom" (local demo), "google", or "azure".
	Provider     string
	ClientID     string
	ClientSecret string
	TenantID     string

	ValidScopes   string
	DefaultScopes string

	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
	AuthCodeTTL     time.Duration

	StoreBackend    string
	DataDir         string
	CleanupInterval time.Duration

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	LogLevel       string
	LogDevelopment bool
}

// Load reads the configuration from the process environment, applies
// defaults, and validates the result.
func Load() (Config, error) {
	cfg := Config{
		ServerURL:    os.Getenv("SERVER_URL"),
		Enabled:      envBool("OAUTH_ENABLED", true),
		Provider:     os.Getenv("OAUTH_PROVIDER"),
		ClientID:     os.Getenv("OAUTH_CLIENT_ID"),
		ClientSecret: os.Getenv("OAUTH_CLIENT_SECRET"),
		TenantID:     os.Getenv("OAUTH_TENANT_ID"),

		ValidScopes:   os.Getenv("OAUTH_VALID_SCOPES"),
		DefaultScopes: os.Getenv("OAUTH_DEFAULT_SCOPES"),

		StoreBackend: os.Getenv("STORE_BACKEND"),
		DataDir:      os.Getenv("OAUTH_DATA_DIR"),

		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       envInt("REDIS_DB", 0),

		LogLevel:       os.Getenv("LOG_LEVEL"),
		LogDevelopment: envBool("LOG_DEVELOPMENT", false),
	}

	var err error
	if cfg.AccessTokenTTL, err = envDuration("OAUTH_ACCESS_TOKEN_TTL", time.Hour); err != nil {
		return Config{}, err
	}
	if cfg.RefreshTokenTTL, err = envDuration("OAUTH_REFRESH_TOKEN_TTL", 24*time.Hour); err != nil {
		return Config{}, err
	}
	if cfg.AuthCodeTTL, err = envDuration("OAUTH_AUTH_CODE_TTL", 10*time.Minute); err != nil {
		return Config{}, err
	}
	if cfg.CleanupInterval, err = envDuration("OAUTH_CLEANUP_INTERVAL", 60*time.Second); err != nil {
		return Config{}, err
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// applyDefaults fills in zero-valued fields with sane defaults. It never
// overwrites a value the environment actually supplied.
func (c *Config) applyDefaults() {
	if c.Provider == "" {
		c.Provider = "custom"
	}
	if c.TenantID == "" {
		c.TenantID = "common"
	}
	if c.ValidScopes == "" {
		c.ValidScopes = "read write"
	}
	if c.DefaultScopes == "" {
		c.DefaultScopes = "read"
	}
	if c.StoreBackend == "" {
		c.StoreBackend = "file"
	}
	if c.DataDir == "" {
		c.DataDir = ".oauth_data"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.RedisAddr == "" {
		c.RedisAddr = "localhost:6379"
	}
}

// Validate reports a descriptive error for any configuration combination
// the gateway cannot start with.
func (c Config) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.ServerURL == "" {
		return fmt.Errorf("config: SERVER_URL is required when OAUTH_ENABLED")
	}
	switch c.Provider {
	case "custom":
	case "google", "azure":
		if c.ClientID == "" || c.ClientSecret == "" {
			return fmt.Errorf("config: OAUTH_CLIENT_ID and OAUTH_CLIENT_SECRET are required for provider %q", c.Provider)
		}
	default:
		return fmt.Errorf("config: unrecognized OAUTH_PROVIDER %q (want custom, google, or azure)", c.Provider)
	}
	switch c.StoreBackend {
	case "file", "redis":
	default:
		return fmt.Errorf("config: unrecognized STORE_BACKEND %q (want file or redis)", c.StoreBackend)
	}
	return nil
}

func envBool(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func envInt(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func envDuration(key string, def time.Duration) (time.Duration, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	secs, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("config: %s must be an integer number of seconds: %w", key, err)
	}
	return time.Duration(secs) * time.Second, nil
}
