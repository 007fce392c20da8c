package config

import (
	"fmt"
	"log"

	"github.com/kelseyhightower/envconfig"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

type Config struct {
	Addr      string `envconfig:"HTTP_ADDR" default:":8080"`
	JWTSecret string `envconfig:"JWT_SECRET" required:"true"`
	JWTTTLMin int    `envconfig:"JWT_TTL_MIN" default:"10080"`

	DBDriver    string `envconfig:"DB_DRIVER" default:"sqlite"`
	SQLITEDsn   string `envconfig:"SQLITE_DSN" default:"file:chat.db?_pragma=foreign_keys(ON)"`
	PostgresDsn string `envconfig:"POSTGRES_DSN"`

	// empty disables the presence mirror
	RedisAddr        string `envconfig:"REDIS_ADDR"`
	RedisPresenceKey string `envconfig:"REDIS_PRESENCE_KEY" default:"presence:online"`

	CORSOrigins  []string `envconfig:"CORS_ORIGINS" default:"http://localhost:5173"`
	CookieSecure bool     `envconfig:"COOKIE_SECURE" default:"true"`
	WSSendBuffer int      `envconfig:"WS_SEND_BUFFER" default:"256"`
	LogLevel     string   `envconfig:"LOG_LEVEL" default:"INFO"`
}

func Load() (Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, err
	}
	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("JWT_SECRET must not be empty")
	}
	switch cfg.DBDriver {
	case DriverSQLite:
	case DriverPostgres:
		if cfg.PostgresDsn == "" {
			return Config{}, fmt.Errorf("POSTGRES_DSN is required when DB_DRIVER=%s", DriverPostgres)
		}
	default:
		return Config{}, fmt.Errorf("unsupported DB_DRIVER %q", cfg.DBDriver)
	}
	if cfg.WSSendBuffer <= 0 {
		return Config{}, fmt.Errorf("WS_SEND_BUFFER must be positive, got %d", cfg.WSSendBuffer)
	}
	return cfg, nil
}

func MustLoad() Config {
	cfg, err := Load()
	if err != nil {
		log.Fatalf("Error loading config: %v", err)
	}
	return cfg
}
