package app

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	Issuer         string // Required: issuer claim for access tokens
	BootstrapToken string // Optional: token required to perform bootstrap

	SuperuserName     string // Optional: enables the config-derived superuser when set
	SuperuserPassword string // Required when SuperuserName is set

	DatabaseFile         string        // Optional: path to SQLite database file (default: ./gatekeep.db)
	SessionTimeout       time.Duration // Global session inactivity timeout (default: 30m)
	AccessTokenTTL       time.Duration // Access token lifetime (default: 15m)
	RefreshTokenTTL      time.Duration // Refresh token lifetime (default: 168h)
	SecureCookies        bool          // Mark session cookies HTTPS-only (default: false)
	Env                  string        // Environment (dev, staging, prod) (default: dev)
	LogLevel             string        // Log level (debug, info, warn, error) (default: info)
	LogFormat            string        // Log format (json, text) (default: json)
	Port                 int           // HTTP server port (default: 8080)
	ShutdownGracePeriod  time.Duration // Graceful shutdown timeout (default: 10s)
	HousekeepingInterval time.Duration // Housekeeping interval (default: 1h)
}

func LoadConfig() Config {
	cfg := Config{
		Issuer:            getEnvOrDefault("GATEKEEP_ISSUER", "gatekeep"),
		BootstrapToken:    os.Getenv("BOOTSTRAP_TOKEN"),
		SuperuserName:     os.Getenv("GATEKEEP_SUPERUSER_NAME"),
		SuperuserPassword: os.Getenv("GATEKEEP_SUPERUSER_PASSWORD"),
		DatabaseFile:      getEnvOrDefault("GATEKEEP_DATABASE_FILE", "gatekeep.db"),

		SessionTimeout:  getEnvDurationOrDefault("GATEKEEP_SESSION_TIMEOUT", 30*time.Minute),
		AccessTokenTTL:  getEnvDurationOrDefault("GATEKEEP_ACCESS_TOKEN_TTL", 15*time.Minute),
		RefreshTokenTTL: getEnvDurationOrDefault("GATEKEEP_REFRESH_TOKEN_TTL", 7*24*time.Hour),
		SecureCookies:   getEnvBoolOrDefault("GATEKEEP_SECURE_COOKIES", false),

		Env:                  getEnvOrDefault("ENV", "dev"),
		LogLevel:             getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:            getEnvOrDefault("LOG_FORMAT", "json"),
		Port:                 getEnvIntOrDefault("PORT", 8080),
		ShutdownGracePeriod:  getEnvDurationOrDefault("SHUTDOWN_GRACE_PERIOD", 10*time.Second),
		HousekeepingInterval: getEnvDurationOrDefault("HOUSEKEEPING_INTERVAL", 1*time.Hour),
	}

	return cfg
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if intValue, err := strconv.Atoi(value); err == nil {
		return intValue
	}

	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if boolValue, err := strconv.ParseBool(value); err == nil {
		return boolValue
	}

	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	// Try parsing as duration (e.g., "1h", "30m", "90s")
	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}

	// Try parsing as integer minutes
	if minutes, err := strconv.Atoi(value); err == nil {
		return time.Duration(minutes) * time.Minute
	}

	return defaultValue
}
