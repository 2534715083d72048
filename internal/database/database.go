package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/ahrie-ai/backend/config"
	"github.com/ahrie-ai/backend/internal/logger"
)

// DB wraps the connection pool and the gorm handle built on it.
type DB struct {
	sql  *sql.DB
	Gorm *gorm.DB
}

// PoolStats summarises the connection pool for health reporting.
type PoolStats struct {
	MaxOpen int `json:"pool_size"`
	InUse   int `json:"pool_in_use"`
	Idle    int `json:"pool_idle"`
}

// New creates a new database connection
func New(ctx context.Context, cfg *config.Config) (*DB, error) {
	log := logger.FromContext(ctx)

	sqlDB, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}

	sqlDB.SetMaxOpenConns(cfg.DBPoolMaxSize)
	sqlDB.SetMaxIdleConns(cfg.DBPoolMinSize)
	sqlDB.SetConnMaxLifetime(cfg.DBConnMaxLifetime)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(pingCtx); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("error connecting to the database: %w", err)
	}

	db, err := Wrap(sqlDB, cfg.Debug)
	if err != nil {
		sqlDB.Close()
		return nil, err
	}

	log.Info("connected to database", "pool_max", cfg.DBPoolMaxSize, "pool_min", cfg.DBPoolMinSize)
	return db, nil
}

// Wrap builds a DB around an existing postgres pool.
func Wrap(sqlDB *sql.DB, debug bool) (*DB, error) {
	level := gormlogger.Warn
	if debug {
		level = gormlogger.Info
	}
	gdb, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		Logger: gormlogger.Default.LogMode(level),
	})
	if err != nil {
		return nil, fmt.Errorf("error initialising gorm: %w", err)
	}
	return &DB{sql: sqlDB, Gorm: gdb}, nil
}

// FromGorm adapts an already opened gorm handle, as used by tests on sqlite.
func FromGorm(gdb *gorm.DB) (*DB, error) {
	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, err
	}
	return &DB{sql: sqlDB, Gorm: gdb}, nil
}

// HealthCheck checks if the database is accessible
func (db *DB) HealthCheck(ctx context.Context) error {
	var one int
	if err := db.sql.QueryRowContext(ctx, "SELECT 1").Scan(&one); err != nil {
		return fmt.Errorf("database health check failed: %w", err)
	}
	return nil
}

// PoolStats reports connection pool usage.
func (db *DB) PoolStats() PoolStats {
	s := db.sql.Stats()
	return PoolStats{MaxOpen: s.MaxOpenConnections, InUse: s.InUse, Idle: s.Idle}
}

// Close releases the pool.
func (db *DB) Close() error {
	return db.sql.Close()
}
