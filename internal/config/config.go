// Package config はアプリケーションの設定を読み込みます。
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultConfigPath は CONFIG_FILE 未指定時に読みにいく設定ファイルです。存在しなければ無視します。
const DefaultConfigPath = "config/config.yaml"

const (
	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

type DatabaseConfig struct {
	Driver          string        `yaml:"driver"`
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	Name            string        `yaml:"dbname"`
	DSN             string        `yaml:"dsn"` // 指定された場合は他の接続項目より優先
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
}

type UploadConfig struct {
	Dir       string        `yaml:"dir"` // 空の場合はアップロードファイルを保存しない
	Retention time.Duration `yaml:"retention"`
	MaxBytes  int64         `yaml:"max_bytes"`
}

type ReminderConfig struct {
	Enabled        bool   `yaml:"enabled"`
	Schedule       string `yaml:"schedule"` // cron 形式 (分 時 日 月 曜日)
	DigestDays     int    `yaml:"digest_days"`
	TelegramToken  string `yaml:"telegram_token"`
	TelegramChatID int64  `yaml:"telegram_chat_id"`
}

// Config はアプリケーション全体の設定です。起動時に一度だけ読み込み、明示的に渡します。
type Config struct {
	Mode         string         `yaml:"mode"` // dev | release
	Port         string         `yaml:"port"`
	AllowOrigins []string       `yaml:"allow_origins"`
	Timezone     string         `yaml:"timezone"`
	Locale       string         `yaml:"locale"`
	Database     DatabaseConfig `yaml:"database"`
	Upload       UploadConfig   `yaml:"upload"`
	Reminder     ReminderConfig `yaml:"reminder"`
}

// Default はデフォルト設定を返します。
func Default() *Config {
	return &Config{
		Mode:         "dev",
		Port:         "8080",
		AllowOrigins: []string{"http://localhost:3000", "http://localhost:3001"},
		Timezone:     "Local",
		Locale:       "de",
		Database: DatabaseConfig{
			Driver:          DriverMySQL,
			Host:            "127.0.0.1",
			Port:            3306,
			Name:            "gifty_db",
			MaxOpenConns:    25,
			MaxIdleConns:    25,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Upload: UploadConfig{
			Dir:       "uploads",
			Retention: 30 * 24 * time.Hour,
			MaxBytes:  5 << 20,
		},
		Reminder: ReminderConfig{
			Schedule:   "0 8 * * *",
			DigestDays: 7,
		},
	}
}

// Load は設定を デフォルト → YAMLファイル → .env → 環境変数 の順に読み込みます。
// path が空の場合は CONFIG_FILE、それも空なら DefaultConfigPath (存在する場合のみ) を使います。
func Load(path string) (*Config, error) {
	cfg := Default()

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Printf("Warning: Could not load .env file: %v", err)
	}

	required := true
	if path == "" {
		path = os.Getenv("CONFIG_FILE")
	}
	if path == "" {
		path = DefaultConfigPath
		required = false
	}
	if err := cfg.loadFile(path, required); err != nil {
		return nil, err
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string, required bool) error {
	buf, err := os.ReadFile(path)
	if err != nil {
		if !required && errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("could not read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(buf, c); err != nil {
		return fmt.Errorf("could not parse config file %s: %w", path, err)
	}
	log.Printf("Loaded config file %s", path)
	return nil
}

func (c *Config) applyEnv() error {
	setString := func(key string, dst *string) {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			*dst = v
		}
	}

	setString("APP_MODE", &c.Mode)
	setString("PORT", &c.Port)
	setString("TZ_NAME", &c.Timezone)
	setString("LOCALE", &c.Locale)
	setString("DB_DRIVER", &c.Database.Driver)
	setString("DB_HOST", &c.Database.Host)
	setString("DB_USER", &c.Database.User)
	setString("DB_PASS", &c.Database.Password)
	setString("DB_NAME", &c.Database.Name)
	setString("DB_DSN", &c.Database.DSN)
	setString("UPLOAD_DIR", &c.Upload.Dir)
	setString("REMINDER_SCHEDULE", &c.Reminder.Schedule)
	setString("TELEGRAM_TOKEN", &c.Reminder.TelegramToken)

	if v := strings.TrimSpace(os.Getenv("CORS_ORIGINS")); v != "" {
		var origins []string
		for _, o := range strings.Split(v, ",") {
			if o = strings.TrimSpace(o); o != "" {
				origins = append(origins, o)
			}
		}
		c.AllowOrigins = origins
	}
	if v := strings.TrimSpace(os.Getenv("DB_PORT")); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid DB_PORT %q: %w", v, err)
		}
		c.Database.Port = port
	}
	if v := strings.TrimSpace(os.Getenv("REMINDER_ENABLED")); v != "" {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid REMINDER_ENABLED %q: %w", v, err)
		}
		c.Reminder.Enabled = enabled
	}
	if v := strings.TrimSpace(os.Getenv("TELEGRAM_CHAT_ID")); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid TELEGRAM_CHAT_ID %q: %w", v, err)
		}
		c.Reminder.TelegramChatID = id
	}
	return nil
}

// Validate は設定値を検証します。
func (c *Config) Validate() error {
	if c.Mode != "dev" && c.Mode != "release" {
		return fmt.Errorf("mode must be dev or release, got %q", c.Mode)
	}
	switch c.Database.Driver {
	case DriverMySQL, DriverPostgres, DriverSQLite:
	default:
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}
	if _, err := strconv.Atoi(c.Port); err != nil {
		return fmt.Errorf("invalid port %q", c.Port)
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	if c.Reminder.DigestDays < 0 {
		return fmt.Errorf("reminder.digest_days must not be negative")
	}
	return nil
}

// Location は設定されたタイムゾーンを返します。「今日」の判定に使います。
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// Addr は HTTP サーバーの待ち受けアドレスを返します。
func (c *Config) Addr() string {
	return ":" + c.Port
}
