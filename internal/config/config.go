package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// Config holds the server settings read from the environment
type Config struct {
	Port             string `validate:"required,numeric"`
	GinMode          string `validate:"oneof=debug release test"`
	DatabaseURL      string `validate:"omitempty,url"`
	DataPath         string `validate:"required_without=DatabaseURL"`
	JWTSecret        string `validate:"required"`
	APIMasterSecret  string `validate:"required"`
	AdminUsername    string `validate:"required"`
	AdminPassword    string `validate:"required,min=6"`
	LogLevel         string `validate:"oneof=debug info warn error"`
	LogFormat        string `validate:"oneof=json console"`
	RequireAPIKey    bool
	RequestTimeout   time.Duration `validate:"gt=0"`
	EnforceWeeklyCap bool
}

var validate = validator.New()

// Load reads the first .env found near the working directory and then the environment
func Load() (*Config, error) {
	LoadDotEnv()
	return FromEnv()
}

// LoadDotEnv loads a .env file from the working directory or up to two parents.
// Variables already set in the environment win.
func LoadDotEnv() {
	for _, dir := range []string{".", "..", filepath.Join("..", "..")} {
		path := filepath.Join(dir, ".env")
		if _, err := os.Stat(path); err == nil {
			_ = godotenv.Load(path)
			return
		}
	}
}

// FromEnv builds and validates a Config from environment variables
func FromEnv() (*Config, error) {
	cfg := &Config{
		Port:            getEnv("PORT", "8000"),
		GinMode:         getEnv("GIN_MODE", "release"),
		DatabaseURL:     os.Getenv("DATABASE_URL"),
		DataPath:        getEnv("DATA_PATH", "scheduler.db"),
		JWTSecret:       getEnv("JWT_SECRET", "default_jwt_secret_change_me"),
		APIMasterSecret: getEnv("API_MASTER_SECRET", "default_master_secret_change_me"),
		AdminUsername:   getEnv("ADMIN_USERNAME", "admin"),
		AdminPassword:   getEnv("ADMIN_PASSWORD", "admin123"),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		LogFormat:       getEnv("LOG_FORMAT", "json"),
	}

	var err error
	if cfg.RequireAPIKey, err = getBool("REQUIRE_API_KEY"); err != nil {
		return nil, err
	}
	if cfg.EnforceWeeklyCap, err = getBool("ENFORCE_WEEKLY_CAP"); err != nil {
		return nil, err
	}

	cfg.RequestTimeout = 10 * time.Second
	if v := os.Getenv("REQUEST_TIMEOUT"); v != "" {
		if cfg.RequestTimeout, err = time.ParseDuration(v); err != nil {
			return nil, fmt.Errorf("invalid REQUEST_TIMEOUT %q: %w", v, err)
		}
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the struct rules
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	return nil
}

// Addr is the listen address for the server
func (c *Config) Addr() string {
	return ":" + c.Port
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getBool(key string) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	return b, nil
}
