// Package database は設定に応じたデータベース接続とリポジトリを用意します。
package database

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"gifty/backend/internal/config"
	"gifty/backend/internal/repositories"
)

// DefaultSQLitePath は DSN 未指定時の SQLite ファイルです。
const DefaultSQLitePath = "data/gifty.db"

// Store は開いた接続と、それを使う BirthdayRepository をまとめたものです。
type Store struct {
	Birthdays repositories.BirthdayRepository
	// SQL はヘルスチェックと Close に使う下位の接続プールです。
	SQL *sql.DB
}

// Ping はデータベース接続を確認します。
func (s *Store) Ping(ctx context.Context) error {
	return s.SQL.PingContext(ctx)
}

// Close は接続プールを閉じます。
func (s *Store) Close() error {
	return s.SQL.Close()
}

// GetDSN は設定から接続文字列 (DSN) を構築します。cfg.DSN が指定されていればそれを返します。
func GetDSN(cfg config.DatabaseConfig) string {
	if cfg.DSN != "" {
		return cfg.DSN
	}
	switch cfg.Driver {
	case config.DriverPostgres:
		u := url.URL{
			Scheme:   "postgres",
			User:     url.UserPassword(cfg.User, cfg.Password),
			Host:     cfg.Host + ":" + strconv.Itoa(cfg.Port),
			Path:     "/" + cfg.Name,
			RawQuery: "sslmode=disable",
		}
		return u.String()
	case config.DriverSQLite:
		return DefaultSQLitePath
	default:
		return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true&charset=utf8mb4&timeout=5s&readTimeout=10s&writeTimeout=10s",
			cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.Name)
	}
}

// Open は設定されたドライバーでデータベースに接続し、マイグレーションを実行します。
func Open(ctx context.Context, cfg config.DatabaseConfig) (*Store, error) {
	var (
		store *Store
		err   error
	)
	switch cfg.Driver {
	case config.DriverMySQL, "":
		store, err = openMySQL(cfg)
	case config.DriverPostgres:
		store, err = openPostgres(cfg)
	case config.DriverSQLite:
		store, err = openSQLite(cfg)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, err
	}

	if err := store.Ping(ctx); err != nil {
		store.Close()
		return nil, fmt.Errorf("could not ping database: %w", err)
	}
	if err := store.Birthdays.Migrate(ctx); err != nil {
		store.Close()
		return nil, err
	}
	log.Printf("Successfully connected to %s database!", cfg.Driver)
	return store, nil
}

func applyPool(db *sql.DB, cfg config.DatabaseConfig) {
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}
}

func openMySQL(cfg config.DatabaseConfig) (*Store, error) {
	db, err := sql.Open("mysql", GetDSN(cfg))
	if err != nil {
		return nil, fmt.Errorf("could not open mysql connection: %w", err)
	}
	applyPool(db, cfg)
	return &Store{Birthdays: repositories.NewMySQLBirthdayRepository(db), SQL: db}, nil
}

func openPostgres(cfg config.DatabaseConfig) (*Store, error) {
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(GetDSN(cfg))))
	applyPool(sqldb, cfg)
	db := bun.NewDB(sqldb, pgdialect.New())
	return &Store{Birthdays: repositories.NewPostgresBirthdayRepository(db), SQL: sqldb}, nil
}

func openSQLite(cfg config.DatabaseConfig) (*Store, error) {
	dsn := GetDSN(cfg)
	if err := ensureDirForSQLite(dsn); err != nil {
		return nil, err
	}

	dbLogger := logger.New(
		log.New(os.Stdout, "", log.LstdFlags),
		logger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         dbLogger,
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("could not open sqlite database: %w", err)
	}
	sqldb, err := gdb.DB()
	if err != nil {
		return nil, fmt.Errorf("could not get sqlite connection pool: %w", err)
	}
	// SQLite は書き込みが1接続に限られるので、プールも1本にする
	sqldb.SetMaxOpenConns(1)
	return &Store{Birthdays: repositories.NewSQLiteBirthdayRepository(gdb), SQL: sqldb}, nil
}

// ensureDirForSQLite は SQLite ファイルの親ディレクトリを作成します。
func ensureDirForSQLite(dsn string) error {
	if strings.Contains(dsn, ":memory:") || strings.Contains(dsn, "mode=memory") {
		return nil
	}
	clean := strings.TrimPrefix(dsn, "file:")
	clean = strings.Split(clean, "?")[0]
	dir := filepath.Dir(clean)
	if dir == "." || dir == "" {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("could not create database directory %q: %w", dir, err)
	}
	return nil
}
