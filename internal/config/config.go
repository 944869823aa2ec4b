// Package config holds the runtime settings of the chat server and the
// constants shared by the realtime core.
package config

import (
	"fmt"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config is decoded from ROOMCHAT_* environment variables.
type Config struct {
	HTTPAddr string `envconfig:"HTTP_ADDR" default:":8080"`

	// DBDriver is "postgres" or "sqlite".
	DBDriver    string `envconfig:"DB_DRIVER" default:"postgres"`
	DatabaseDSN string `envconfig:"DATABASE_DSN" default:"host=localhost user=user password=password dbname=roomchatdb port=5432 sslmode=disable"`

	// RedisAddr may be empty, which disables the identity cache and bans.
	RedisAddr     string `envconfig:"REDIS_ADDR" default:"localhost:6379"`
	RedisPassword string `envconfig:"REDIS_PASSWORD"`
	RedisDB       int    `envconfig:"REDIS_DB" default:"0"`

	JWTSecret   string        `envconfig:"JWT_SECRET" required:"true"`
	JWTIssuer   string        `envconfig:"JWT_ISSUER" default:"roomchat-service"`
	TokenTTL    time.Duration `envconfig:"TOKEN_TTL" default:"72h"`
	IdentityTTL time.Duration `envconfig:"IDENTITY_CACHE_TTL" default:"10m"`

	HistoryLimit  int `envconfig:"HISTORY_LIMIT" default:"50"`
	SessionBuffer int `envconfig:"SESSION_BUFFER" default:"256"`

	UploadDir      string   `envconfig:"UPLOAD_DIR" default:"uploads"`
	MaxUploadBytes int64    `envconfig:"MAX_UPLOAD_BYTES" default:"10485760"`
	AllowedOrigins []string `envconfig:"ALLOWED_ORIGINS"`
}

// Load reads an optional .env file and then the environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("WARNING: no .env file loaded, using process environment")
	}

	var cfg Config
	if err := envconfig.Process("roomchat", &cfg); err != nil {
		return nil, fmt.Errorf("config error: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the values envconfig cannot express in tags.
func (c *Config) Validate() error {
	switch c.DBDriver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("config error: unsupported DB_DRIVER %q", c.DBDriver)
	}
	if c.HistoryLimit <= 0 || c.HistoryLimit > MaxHistoryLimit {
		return fmt.Errorf("config error: HISTORY_LIMIT must be in 1..%d, got %d", MaxHistoryLimit, c.HistoryLimit)
	}
	if c.SessionBuffer <= 0 {
		return fmt.Errorf("config error: SESSION_BUFFER must be positive, got %d", c.SessionBuffer)
	}
	return nil
}
