// Command migrate применяет миграции схемы ledger через goose.
//
// Использование:
//
//	go run ./cmd/migrate up
//	go run ./cmd/migrate down
//	go run ./cmd/migrate status
//	go run ./cmd/migrate version
//	go run ./cmd/migrate redo
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/ignatzorin/swapmarket-backend/internal/config"
	"github.com/ignatzorin/swapmarket-backend/internal/db"
	"github.com/ignatzorin/swapmarket-backend/internal/logger"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: migrate <command>")
		fmt.Println("Commands: up, down, status, version, redo, up-to <version>, down-to <version>")
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "ошибка загрузки конфигурации: %v\n", err)
		os.Exit(1)
	}
	logger.Init(cfg.LogLevel)

	ctx := context.Background()
	conn, err := db.NewPostgres(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Log.Fatalf("ошибка подключения к БД: %v", err)
	}
	defer conn.Close()

	command := os.Args[1]
	if err := db.RunMigrationCommand(ctx, conn, command, os.Args[2:]...); err != nil {
		logger.Log.Fatalf("миграция %s не выполнена: %v", command, err)
	}
	logger.Log.WithField("command", command).Info("миграция выполнена")
}
