package config

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// OpenSQL opens the relational store selected by StoreDriver (mysql, postgres or sqlite) and tunes its pool.
func OpenSQL(cfg AppConfig) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch strings.ToLower(cfg.StoreDriver) {
	case "mysql":
		dsn := cfg.DatabaseURI
		if dsn == "" {
			dsn = fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=Local",
				cfg.DBUser,
				cfg.DBPassword,
				cfg.DBHost,
				cfg.DBPort,
				cfg.DBName,
			)
		}
		dialector = mysql.Open(dsn)
	case "postgres":
		dsn := cfg.DatabaseURI
		if dsn == "" {
			dsn = fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable",
				cfg.DBHost,
				cfg.DBUser,
				cfg.DBPassword,
				cfg.DBName,
				cfg.DBPort,
			)
		}
		dialector = postgres.Open(dsn)
	case "sqlite":
		path := cfg.SQLitePath
		if path != ":memory:" && !strings.HasPrefix(path, "file:") {
			if dir := filepath.Dir(path); dir != "." {
				_ = os.MkdirAll(dir, 0o755)
			}
		}
		dialector = sqlite.Open(path)
	default:
		return nil, fmt.Errorf("unsupported sql driver %q", cfg.StoreDriver)
	}

	// Configure GORM logger: derive level from app LogLevel and raise slow-sql threshold to reduce noise
	gLogger := logger.New(
		log.New(os.Stdout, "", log.LstdFlags),
		logger.Config{
			SlowThreshold:             2 * time.Second,
			LogLevel:                  toGormLogLevel(cfg.LogLevel),
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)

	db, err := gorm.Open(dialector, &gorm.Config{Logger: gLogger, TranslateError: true})
	if err != nil {
		return nil, fmt.Errorf("failed to connect database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}
	if strings.EqualFold(cfg.StoreDriver, "sqlite") {
		// a single connection keeps sqlite writers from tripping over each other
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxIdleConns(5)
		sqlDB.SetMaxOpenConns(20)
		sqlDB.SetConnMaxLifetime(30 * time.Minute)
		sqlDB.SetConnMaxIdleTime(10 * time.Minute)
	}

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("database ping failed: %w", err)
	}
	return db, nil
}

// toGormLogLevel maps application LogLevel to GORM's logger level.
func toGormLogLevel(level string) logger.LogLevel {
	switch level {
	case "debug":
		// GORM 'Info' shows SQL; use with caution
		return logger.Info
	case "info", "", "warn":
		return logger.Warn
	case "error":
		return logger.Error
	case "silent":
		return logger.Silent
	default:
		return logger.Warn
	}
}

// ConnectMongo dials MongoDB and verifies the primary is reachable.
func ConnectMongo(cfg AppConfig) (*mongo.Client, error) {
	timeout := time.Duration(cfg.MongoTimeoutSec) * time.Second
	opts := options.Client().
		ApplyURI(cfg.MongoURI).
		SetConnectTimeout(timeout).
		SetTimeout(timeout)

	client, err := mongo.Connect(opts)
	if err != nil {
		return nil, fmt.Errorf("mongodb connection error: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}
	return client, nil
}
