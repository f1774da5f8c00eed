package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Environment variables that override the file.
const (
	EnvJWTSecret = "RIGHTSNET_JWT_SECRET"
	EnvAddr      = "RIGHTSNET_ADDR"
	EnvDataPath  = "RIGHTSNET_DATA"
)

type Config struct {
	Server   Server   `yaml:"server"`
	Storage  Storage  `yaml:"storage"`
	Auth     Auth     `yaml:"auth"`
	Realtime Realtime `yaml:"realtime"`
	Log      Log      `yaml:"log"`
}

type Server struct {
	Addr            string        `yaml:"addr"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	StaticDir       string        `yaml:"static_dir"`
}

type Storage struct {
	Path       string `yaml:"path"`
	InMemory   bool   `yaml:"in_memory"`
	SyncWrites bool   `yaml:"sync_writes"`
	BackupDir  string `yaml:"backup_dir"`
}

type Auth struct {
	JWTSecret  string        `yaml:"jwt_secret"`
	TokenTTL   time.Duration `yaml:"token_ttl"`
	BcryptCost int           `yaml:"bcrypt_cost"`
}

type Realtime struct {
	BufferSize     int           `yaml:"buffer_size"`
	TypingTTL      time.Duration `yaml:"typing_ttl"`
	AllowedOrigins []string      `yaml:"allowed_origins"`
}

type Log struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns a configuration that serves on :8080 with data under ./data.
func Default() *Config {
	return &Config{
		Server: Server{
			Addr:            ":8080",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Storage: Storage{
			Path:      "data/rightsnet.db",
			BackupDir: "data/backups",
		},
		Auth: Auth{
			TokenTTL:   24 * time.Hour,
			BcryptCost: 10,
		},
		Realtime: Realtime{
			BufferSize: 256,
			TypingTTL:  5 * time.Second,
		},
		Log: Log{
			Level:  "info",
			Format: "text",
		},
	}
}

// LoadConfig reads path over the defaults. An empty path yields the
// defaults. Environment overrides are applied last.
func LoadConfig(path string) (*Config, error) {
	config := Default()

	if path != "" {
		file, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(file, config); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	}

	config.applyEnv()
	return config, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv(EnvJWTSecret); v != "" {
		c.Auth.JWTSecret = v
	}
	if v := os.Getenv(EnvAddr); v != "" {
		c.Server.Addr = v
	}
	if v := os.Getenv(EnvDataPath); v != "" {
		c.Storage.Path = v
	}
}

// Validate reports the first setting that cannot be served.
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return errors.New("server.addr is required")
	}
	if !c.Storage.InMemory && c.Storage.Path == "" {
		return errors.New("storage.path is required unless storage.in_memory is set")
	}
	if c.Auth.JWTSecret == "" && !c.Storage.InMemory {
		return fmt.Errorf("auth.jwt_secret is required (or set %s)", EnvJWTSecret)
	}
	if c.Auth.TokenTTL <= 0 {
		return errors.New("auth.token_ttl must be positive")
	}
	if c.Auth.BcryptCost < 4 || c.Auth.BcryptCost > 31 {
		return fmt.Errorf("auth.bcrypt_cost %d is outside 4..31", c.Auth.BcryptCost)
	}
	if c.Realtime.BufferSize <= 0 {
		return errors.New("realtime.buffer_size must be positive")
	}
	if _, err := c.Log.SlogLevel(); err != nil {
		return err
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("log.format %q must be text or json", c.Log.Format)
	}
	return nil
}

// SlogLevel parses the configured level name.
func (l Log) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(l.Level))); err != nil {
		return 0, fmt.Errorf("log.level %q: %w", l.Level, err)
	}
	return level, nil
}
