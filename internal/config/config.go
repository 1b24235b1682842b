// internal/config/config.go
package config

import (
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"
)

// MinSigningKeyBytes is the minimum decoded length of JWT_SECRET_KEY (HS256).
const MinSigningKeyBytes = 32

// Config holds all configuration for the backend.
// Values come from the environment (optionally seeded by a .env file) or from a
// YAML file named by CONFIG_FILE. Environment variables override the file.
type Config struct {
	Port     string `yaml:"port" env:"PORT" env-default:"8080"`
	Env      string `yaml:"env" env:"ENVIRONMENT" env-default:"production"`
	LogLevel string `yaml:"log_level" env:"LOG_LEVEL" env-default:"info"`

	Auth     AuthConfig     `yaml:"auth"`
	CORS     CORSConfig     `yaml:"cors"`
	AI       AIConfig       `yaml:"ai"`
	Database DatabaseConfig `yaml:"database"`
	Storage  StorageConfig  `yaml:"storage"`
}

// AuthConfig holds token and password settings.
type AuthConfig struct {
	// SecretKey is the base64 encoded HMAC signing key. It must stay the same
	// across restarts or every issued token stops verifying.
	SecretKey         string `yaml:"-" env:"JWT_SECRET_KEY"`
	ExpirationSeconds int    `yaml:"expiration_seconds" env:"JWT_EXPIRATION_SECONDS" env-default:"3600"`
	BcryptCost        int    `yaml:"bcrypt_cost" env:"BCRYPT_COST" env-default:"10"`
}

type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins" env:"CORS_ALLOWED_ORIGINS" env-separator:"," env-default:"http://localhost:5173,http://127.0.0.1:5173,http://localhost:3000"`
}

// AIConfig points at the external inference server.
type AIConfig struct {
	BaseURL        string        `yaml:"base_url" env:"AI_SERVER_URL" env-default:"http://localhost:5000"`
	Timeout        time.Duration `yaml:"timeout" env:"AI_SERVER_TIMEOUT" env-default:"10s"`
	MaxUploadBytes int64         `yaml:"max_upload_bytes" env:"MAX_UPLOAD_BYTES" env-default:"10485760"`
}

type DatabaseConfig struct {
	Driver   string        `yaml:"driver" env:"DB_DRIVER" env-default:"postgres"`
	URL      string        `yaml:"-" env:"DATABASE_URL"`
	Host     string        `yaml:"host" env:"DB_HOST" env-default:"localhost"`
	Port     int           `yaml:"port" env:"DB_PORT" env-default:"5432"`
	User     string        `yaml:"user" env:"DB_USER" env-default:"postgres"`
	Password string        `yaml:"-" env:"DB_PASSWORD"`
	Name     string        `yaml:"name" env:"DB_NAME" env-default:"beef"`
	SSLMode  string        `yaml:"ssl_mode" env:"DB_SSLMODE" env-default:"disable"`
	Path     string        `yaml:"path" env:"DB_PATH" env-default:"beef.db"`
	Timeout  time.Duration `yaml:"timeout" env:"DB_TIMEOUT" env-default:"10s"`
}

// StorageConfig configures the MinIO image archive. An empty endpoint disables it.
type StorageConfig struct {
	Endpoint  string `yaml:"endpoint" env:"MINIO_ENDPOINT"`
	AccessKey string `yaml:"-" env:"MINIO_ACCESS_KEY"`
	SecretKey string `yaml:"-" env:"MINIO_SECRET_KEY"`
	Bucket    string `yaml:"bucket" env:"MINIO_BUCKET" env-default:"beef-images"`
	UseSSL    bool   `yaml:"use_ssl" env:"MINIO_USE_SSL" env-default:"false"`
}

// Load reads .env (if present) and then the environment, or CONFIG_FILE when set.
func Load() (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	cfg := &Config{}
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cleanenv.ReadConfig(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
	} else if err := cleanenv.ReadEnv(cfg); err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks the fields that cannot be given a safe default.
func (c *Config) Validate() error {
	if _, err := c.Auth.SigningKey(); err != nil {
		return err
	}
	if c.Auth.ExpirationSeconds <= 0 {
		return errors.New("JWT_EXPIRATION_SECONDS must be positive")
	}
	if c.Auth.BcryptCost < bcrypt.MinCost || c.Auth.BcryptCost > bcrypt.MaxCost {
		return fmt.Errorf("BCRYPT_COST must be between %d and %d", bcrypt.MinCost, bcrypt.MaxCost)
	}
	if c.AI.BaseURL == "" {
		return errors.New("AI_SERVER_URL is required")
	}
	if c.AI.Timeout <= 0 {
		return errors.New("AI_SERVER_TIMEOUT must be positive")
	}
	switch c.Database.Driver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.Database.Driver)
	}
	return nil
}

// SigningKey decodes SecretKey.
func (a AuthConfig) SigningKey() ([]byte, error) {
	if a.SecretKey == "" {
		return nil, errors.New("JWT_SECRET_KEY is required")
	}
	key, err := base64.StdEncoding.DecodeString(a.SecretKey)
	if err != nil {
		return nil, fmt.Errorf("JWT_SECRET_KEY is not valid base64: %w", err)
	}
	if len(key) < MinSigningKeyBytes {
		return nil, fmt.Errorf("JWT_SECRET_KEY must decode to at least %d bytes", MinSigningKeyBytes)
	}
	return key, nil
}

// TokenTTL returns the token lifetime.
func (a AuthConfig) TokenTTL() time.Duration {
	return time.Duration(a.ExpirationSeconds) * time.Second
}

// DSN returns the connection string for the configured driver.
func (d DatabaseConfig) DSN() string {
	if d.Driver == "sqlite" {
		return d.Path
	}
	if d.URL != "" {
		return d.URL
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode,
	)
}

// Enabled reports whether image archiving is configured.
func (s StorageConfig) Enabled() bool {
	return s.Endpoint != ""
}
