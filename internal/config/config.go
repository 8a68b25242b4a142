// Package config provides configuration for the demo program. The
// identitypool library itself never reads the environment; only the
// example host application (cmd/demo) does.
package config

import (
	"os"
	"path/filepath"
)

// Config holds the demo program's configuration.
type Config struct {
	// Server settings
	Port string
	Host string

	// Storage settings
	DBPath string

	// Pool settings — a real deployment would not hardcode these, but the
	// demo has nothing else to source them from.
	PoolID       string
	ClientID     string
	ClientSecret string
	Endpoint     string

	// Environment
	IsDevelopment bool
}

// New creates a new Config with values from environment variables or defaults.
func New() *Config {
	return &Config{
		Port:          getEnv("PORT", "8080"),
		Host:          getEnv("HOST", "localhost"),
		DBPath:        getEnv("DB_PATH", filepath.Join("data", "identitypool-demo.db")),
		PoolID:        getEnv("IDENTITYPOOL_POOL_ID", "us-east-1_demoPool"),
		ClientID:      getEnv("IDENTITYPOOL_CLIENT_ID", "demo-client"),
		ClientSecret:  getEnv("IDENTITYPOOL_CLIENT_SECRET", ""),
		Endpoint:      getEnv("IDENTITYPOOL_ENDPOINT", ""),
		IsDevelopment: getEnv("ENV", "development") == "development",
	}
}

// Address returns the full address to bind the server to.
func (c *Config) Address() string {
	return c.Host + ":" + c.Port
}

// getEnv returns the value of an environment variable or a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
