package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

const pingTimeout = 5 * time.Second

// poolLimits задаёт настройки пула соединений database/sql.
type poolLimits struct {
	maxOpen     int
	maxIdle     int
	maxLifetime time.Duration
	maxIdleTime time.Duration
}

var defaultPoolLimits = poolLimits{
	maxOpen:     25,
	maxIdle:     25,
	maxLifetime: 30 * time.Minute,
	maxIdleTime: 5 * time.Minute,
}

// Store — подключение сервиса заказов к PostgreSQL. Репозитории пакета
// делят один пул соединений.
type Store struct {
	db *sql.DB
}

// Open подключается к базе по DSN и сразу проверяет её доступность.
func Open(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	applyPoolLimits(db, defaultPoolLimits)

	store := &Store{db: db}
	if err := store.Ping(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

func applyPoolLimits(db *sql.DB, limits poolLimits) {
	db.SetMaxOpenConns(limits.maxOpen)
	db.SetMaxIdleConns(limits.maxIdle)
	db.SetConnMaxLifetime(limits.maxLifetime)
	db.SetConnMaxIdleTime(limits.maxIdleTime)
}

// DB даёт низкоуровневый доступ к пулу (миграции, интеграционные тесты).
func (s *Store) DB() *sql.DB {
	return s.db
}

// Ping проверяет соединение с базой; используется health-пробой.
func (s *Store) Ping(ctx context.Context) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("postgres store is not initialized")
	}

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := s.db.PingContext(pingCtx); err != nil {
		return fmt.Errorf("ping postgres: %w", err)
	}
	return nil
}

// Close закрывает пул соединений.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}
