package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
)

// DigestOff значение DAILY_DIGEST_SCHEDULE, отключающее ежедневную сводку
const DigestOff = "off"

type Config struct {
	DBDSN              string        `mapstructure:"DB_DSN"`
	Environment        string        `mapstructure:"ENV"`
	HTTPAddr           string        `mapstructure:"HTTP_ADDR"`
	AdminAPIKey        string        `mapstructure:"ADMIN_API_KEY"`
	TelegramToken      string        `mapstructure:"TELEGRAM_TOKEN"`
	OwnerChatID        int64         `mapstructure:"TELEGRAM_OWNER_CHAT_ID"`
	RateLimitPerMinute int           `mapstructure:"RATE_LIMIT_PER_MINUTE"`
	TxMaxRetries       int           `mapstructure:"TX_MAX_RETRIES"`
	LockPruneInterval  time.Duration `mapstructure:"LOCK_PRUNE_INTERVAL"`
	DigestSchedule     string        `mapstructure:"DAILY_DIGEST_SCHEDULE"`
}

func Load() (*Config, error) {
	// Пытаемся загрузить .env файл (игнорируем ошибку, если файла нет)
	if err := godotenv.Load(".env"); err != nil {
		log.Println("⚠️  No .env file found, using environment variables")
	} else {
		log.Println("✅ Loaded configuration from .env file")
	}

	return FromEnv(os.Getenv)
}

// FromEnv собирает конфиг из функции чтения переменных окружения
func FromEnv(getenv func(string) string) (*Config, error) {
	cfg := &Config{
		DBDSN:          getenv("DB_DSN"),
		Environment:    getenv("ENV"),
		HTTPAddr:       getenv("HTTP_ADDR"),
		AdminAPIKey:    getenv("ADMIN_API_KEY"),
		TelegramToken:  getenv("TELEGRAM_TOKEN"),
		DigestSchedule: getenv("DAILY_DIGEST_SCHEDULE"),
	}

	// Устанавливаем дефолтные значения
	if cfg.Environment == "" {
		cfg.Environment = "development"
	}
	if cfg.HTTPAddr == "" {
		cfg.HTTPAddr = ":8080"
	}
	if cfg.DigestSchedule == "" {
		cfg.DigestSchedule = "0 8 * * *"
	}

	var err error
	if cfg.OwnerChatID, err = parseInt64(getenv, "TELEGRAM_OWNER_CHAT_ID", 0); err != nil {
		return nil, err
	}
	rate, err := parseInt64(getenv, "RATE_LIMIT_PER_MINUTE", 60)
	if err != nil {
		return nil, err
	}
	cfg.RateLimitPerMinute = int(rate)

	retries, err := parseInt64(getenv, "TX_MAX_RETRIES", 3)
	if err != nil {
		return nil, err
	}
	cfg.TxMaxRetries = int(retries)

	cfg.LockPruneInterval = 24 * time.Hour
	if raw := getenv("LOCK_PRUNE_INTERVAL"); raw != "" {
		cfg.LockPruneInterval, err = time.ParseDuration(raw)
		if err != nil {
			return nil, fmt.Errorf("LOCK_PRUNE_INTERVAL: %w", err)
		}
	}

	// Проверяем обязательные поля
	if cfg.DBDSN == "" {
		return nil, fmt.Errorf("DB_DSN is required but not set")
	}
	if cfg.AdminAPIKey == "" {
		return nil, fmt.Errorf("ADMIN_API_KEY is required but not set")
	}
	if cfg.TelegramToken != "" && cfg.OwnerChatID == 0 {
		return nil, fmt.Errorf("TELEGRAM_OWNER_CHAT_ID is required when TELEGRAM_TOKEN is set")
	}
	if cfg.TxMaxRetries < 1 {
		cfg.TxMaxRetries = 1
	}
	if cfg.LockPruneInterval <= 0 {
		return nil, fmt.Errorf("LOCK_PRUNE_INTERVAL must be positive")
	}
	if cfg.DigestEnabled() {
		if _, err := cron.ParseStandard(cfg.DigestSchedule); err != nil {
			return nil, fmt.Errorf("DAILY_DIGEST_SCHEDULE: %w", err)
		}
	}

	return cfg, nil
}

func (c *Config) GetDBDSN() string {
	return c.DBDSN
}

// TelegramEnabled сообщает, настроен ли бот владельца
func (c *Config) TelegramEnabled() bool {
	return c.TelegramToken != ""
}

// DigestEnabled ежедневная сводка нужна только при настроенном боте
func (c *Config) DigestEnabled() bool {
	return c.TelegramEnabled() && c.DigestSchedule != DigestOff
}

func parseInt64(getenv func(string) string, key string, def int64) (int64, error) {
	raw := getenv(key)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return v, nil
}
