package db

import (
	"context"
	"embed"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var migrations embed.FS

const migrationsDir = "migrations"

// NewPostgres создаёт подключение к PostgreSQL с заданным DSN.
func NewPostgres(ctx context.Context, dsn string) (*sqlx.DB, error) {
	conn, err := sqlx.ConnectContext(ctx, "postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: не удалось подключиться: %w", err)
	}

	conn.SetMaxOpenConns(50)
	conn.SetMaxIdleConns(10)
	conn.SetConnMaxLifetime(5 * time.Minute)

	return conn, nil
}

// RunMigrations применяет встроенные миграции goose до последней версии.
func RunMigrations(ctx context.Context, conn *sqlx.DB) error {
	return RunMigrationCommand(ctx, conn, "up")
}

// RunMigrationCommand выполняет команду goose (up, down, status, version, redo ...)
// над встроенными миграциями.
func RunMigrationCommand(ctx context.Context, conn *sqlx.DB, command string, args ...string) error {
	goose.SetBaseFS(migrations)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("postgres: goose dialect: %w", err)
	}
	if err := goose.RunContext(ctx, command, conn.DB, migrationsDir, args...); err != nil {
		return fmt.Errorf("postgres: миграция %s: %w", command, err)
	}
	return nil
}
