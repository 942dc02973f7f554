package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

type StorageDriver string

const (
	DriverFile     StorageDriver = "file"
	DriverSQLite   StorageDriver = "sqlite"
	DriverPostgres StorageDriver = "postgres"
)

// Config - глобальная конфигурация бота
type Config struct {
	Env string // "local", "prod"

	Telegram TelegramConfig
	Storage  StorageConfig
	Database DatabaseConfig

	Workers        int
	RequestTimeout time.Duration // таймаут на одну операцию с хранилищем
}

type TelegramConfig struct {
	BotToken string
	AdminID  int64
}

type StorageConfig struct {
	Driver        StorageDriver
	StateDir      string // для file: state.json
	EncryptionKey string // hex, 32 байта; пусто = без шифрования
	SQLitePath    string
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

func (s StorageConfig) StatePath() string {
	return filepath.Join(s.StateDir, "state.json")
}

// LoadConfig читает настройки из окружения (.env подхватывается godotenv/autoload в main)
func LoadConfig() (*Config, error) {
	cfg := &Config{
		Env: getEnv("APP_ENV", "local"),
		Telegram: TelegramConfig{
			BotToken: os.Getenv("BOT_TOKEN"),
		},
		Storage: StorageConfig{
			Driver:        StorageDriver(strings.ToLower(getEnv("STORAGE_DRIVER", string(DriverFile)))),
			StateDir:      getEnv("STATE_DIR", "data"),
			EncryptionKey: os.Getenv("STATE_ENCRYPTION_KEY"),
			SQLitePath:    getEnv("SQLITE_PATH", "data/bot.db"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			User:     getEnv("DB_USER", "postgres"),
			Password: os.Getenv("DB_PASSWORD"),
			DBName:   getEnv("DB_NAME", "md5bot"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
	}

	var err error
	if cfg.Database.Port, err = getInt("DB_PORT", 5432); err != nil {
		return nil, err
	}
	if cfg.Workers, err = getInt("WORKERS", 5); err != nil {
		return nil, err
	}
	if cfg.RequestTimeout, err = getDuration("REQUEST_TIMEOUT", 10*time.Second); err != nil {
		return nil, err
	}

	if raw := os.Getenv("ADMIN_ID"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid ADMIN_ID %q: %w", raw, err)
		}
		cfg.Telegram.AdminID = id
	}

	switch cfg.Storage.Driver {
	case DriverFile, DriverSQLite, DriverPostgres:
	default:
		return nil, fmt.Errorf("unknown STORAGE_DRIVER %q", cfg.Storage.Driver)
	}
	if cfg.Workers < 1 {
		return nil, errors.New("WORKERS must be positive")
	}

	return cfg, nil
}

// ValidateBot - проверки, нужные только боту (keyctl работает без токена)
func (c *Config) ValidateBot() error {
	if c.Telegram.BotToken == "" {
		return errors.New("BOT_TOKEN is required")
	}
	if c.Telegram.AdminID == 0 {
		return errors.New("ADMIN_ID is required")
	}
	return nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getInt(key string, def int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	return v, nil
}

func getDuration(key string, def time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	return v, nil
}
