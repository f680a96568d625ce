// Package config loads process settings from the environment.
package config

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/subosito/gotenv"
)

// Store backends.
const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
	StoreMongo    = "mongo"
	StoreRedis    = "redis"
)

// Config holds the settings shared by every command.
type Config struct {
	Host            string
	Port            int
	Store           string
	CredentialStore string
	DefaultModel    string
	Temperature     float64
	MaxTokens       int
	MaxConcurrent   int
	MaxInputLength  int
}

// Load reads .env files (default ".env") into the environment without
// overriding variables already set, then builds a Config. Missing files are
// ignored.
func Load(files ...string) (*Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := gotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}
	return FromEnv(), nil
}

// FromEnv builds a Config from environment variables with defaults.
func FromEnv() *Config {
	return &Config{
		Host:            getEnv("TANDEM_HOST", ""),
		Port:            getEnvInt("TANDEM_PORT", 8080),
		Store:           strings.ToLower(getEnv("TANDEM_STORE", StoreMemory)),
		CredentialStore: strings.ToLower(getEnv("TANDEM_CREDENTIAL_STORE", StoreMemory)),
		DefaultModel:    getEnv("TANDEM_DEFAULT_MODEL", "gemini-2.5-flash-lite"),
		Temperature:     getEnvFloat("TANDEM_TEMPERATURE", 0.7),
		MaxTokens:       getEnvInt("TANDEM_MAX_TOKENS", 2048),
		MaxConcurrent:   getEnvInt("TANDEM_MAX_CONCURRENT", 0),
		MaxInputLength:  getEnvInt("TANDEM_MAX_INPUT_LENGTH", 4000),
	}
}

// Validate checks every field.
func (c *Config) Validate() error {
	v := NewValidator()
	v.ValidatePort("port", c.Port)
	v.ValidateOneOf("store", c.Store, StoreMemory, StorePostgres, StoreMongo, StoreRedis)
	v.ValidateOneOf("credentialStore", c.CredentialStore, StoreMemory, StoreRedis)
	v.RequirePositive("maxInputLength", c.MaxInputLength)
	if err := v.Error(); err != nil {
		return err
	}
	if err := ValidateGenerationConfig(c.DefaultModel, c.Temperature, c.MaxTokens); err != nil {
		return err
	}
	return ValidateLimiterConfig(c.MaxConcurrent)
}

// Addr returns the listen address.
func (c *Config) Addr() string {
	return c.Host + ":" + strconv.Itoa(c.Port)
}

func getEnv(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}
