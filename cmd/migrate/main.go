package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/bazarpepe/orders/internal/storage/postgres"
)

// migrateOptions — аргументы командной строки утилиты миграций.
type migrateOptions struct {
	command string
	steps   int
	dsn     string
}

func main() {
	if err := run(parseOptions()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func parseOptions() migrateOptions {
	var opts migrateOptions
	flag.StringVar(&opts.command, "direction", "up", "up, down или status")
	flag.IntVar(&opts.steps, "steps", 0, "сколько миграций применить/откатить (0 — все для up, 1 для down)")
	flag.StringVar(&opts.dsn, "dsn", "", "PostgreSQL DSN; по умолчанию ORDERS_POSTGRES_DSN")
	flag.Parse()

	if strings.TrimSpace(opts.dsn) == "" {
		opts.dsn = strings.TrimSpace(os.Getenv("ORDERS_POSTGRES_DSN"))
	}
	opts.command = strings.ToLower(strings.TrimSpace(opts.command))
	return opts
}

func run(opts migrateOptions) error {
	if opts.dsn == "" {
		return fmt.Errorf("нужен -dsn или переменная ORDERS_POSTGRES_DSN")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	store, err := postgres.Open(ctx, opts.dsn)
	if err != nil {
		return fmt.Errorf("подключение к postgres: %w", err)
	}
	defer store.Close()

	switch opts.command {
	case "up":
		if err := store.MigrateUp(ctx, opts.steps); err != nil {
			return fmt.Errorf("migrate up: %w", err)
		}
	case "down":
		if err := store.MigrateDown(ctx, opts.steps); err != nil {
			return fmt.Errorf("migrate down: %w", err)
		}
	case "status":
		// применять нечего, ниже только отчёт
	default:
		return fmt.Errorf("неизвестная команда %q: ожидается up, down или status", opts.command)
	}

	version, applied, err := store.MigrationStatus(ctx)
	if err != nil {
		return fmt.Errorf("статус миграций: %w", err)
	}
	fmt.Printf("%s: version=%d applied=%d\n", opts.command, version, applied)
	return nil
}
