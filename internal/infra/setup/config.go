package setup

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/go-redis/redis/v8"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Supported DB_TYPE values.
const (
	DBTypeSQLite   = "sqlite"
	DBTypeMySQL    = "mysql"
	DBTypePostgres = "postgres"
)

// DBConfig selects and addresses the relational store.
type DBConfig struct {
	Type     string
	Storage  string // sqlite file path
	URL      string // full DSN, takes precedence over the discrete fields
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	Logging  bool
}

// DSN builds the driver-specific connection string.
func (c DBConfig) DSN() (string, error) {
	if c.URL != "" {
		return c.URL, nil
	}
	switch c.Type {
	case DBTypeSQLite, "":
		if c.Storage == "" {
			return "snsu.db", nil
		}
		return c.Storage, nil
	case DBTypeMySQL:
		if c.User == "" {
			return "", fmt.Errorf("DB_USER environment variable not set")
		}
		host, port := orDefault(c.Host, "127.0.0.1"), orDefault(c.Port, "3306")
		return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=Local",
			c.User, c.Password, host, port, orDefault(c.Name, "snsu_notification")), nil
	case DBTypePostgres:
		if c.User == "" {
			return "", fmt.Errorf("DB_USER environment variable not set")
		}
		host, port := orDefault(c.Host, "127.0.0.1"), orDefault(c.Port, "5432")
		return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable TimeZone=UTC",
			host, port, c.User, c.Password, orDefault(c.Name, "snsu_notification")), nil
	}
	return "", fmt.Errorf("unsupported DB_TYPE %q", c.Type)
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

// InitDB opens the database selected by cfg.Type.
func InitDB(cfg DBConfig) (*gorm.DB, error) {
	dsn, err := cfg.DSN()
	if err != nil {
		return nil, fmt.Errorf("failed to build DSN: %w", err)
	}

	var dialector gorm.Dialector
	switch cfg.Type {
	case DBTypeMySQL:
		dialector = mysql.Open(dsn)
	case DBTypePostgres:
		dialector = postgres.Open(dsn)
	default:
		dialector = sqlite.Open(dsn)
	}

	gormLogger := logger.Default.LogMode(logger.Silent)
	if cfg.Logging {
		gormLogger = logger.New(log.New(os.Stdout, "\r\n", log.LstdFlags), logger.Config{
			SlowThreshold: 200 * time.Millisecond,
			LogLevel:      logger.Info,
			Colorful:      true,
		})
	}

	db, err := gorm.Open(dialector, &gorm.Config{Logger: gormLogger, TranslateError: true})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", orDefault(cfg.Type, DBTypeSQLite), err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	if cfg.Type == DBTypeMySQL || cfg.Type == DBTypePostgres {
		sqlDB.SetMaxOpenConns(50)
		sqlDB.SetMaxIdleConns(10)
		sqlDB.SetConnMaxLifetime(30 * time.Minute)
	} else {
		// SQLite serialises writers; a single connection avoids "database is locked".
		sqlDB.SetMaxOpenConns(1)
	}
	return db, nil
}

// InitRedis connects and pings Redis.
func InitRedis(addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		PoolSize:     20,
		MinIdleConns: 5,
		MaxConnAge:   30 * time.Minute,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := client.Ping(ctx).Result(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", addr, err)
	}
	return client, nil
}
