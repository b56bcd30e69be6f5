package app

import (
	"os"
	"strconv"
	"time"
)

// Драйверы хранилища заказов.
const (
	StorageDriverMemory   = "memory"
	StorageDriverPostgres = "postgres"
)

// Config описывает настройки запуска приложения.
type Config struct {
	HTTPAddr    string
	MetricsAddr string

	StorageDriver       string
	PostgresDSN         string
	PostgresAutoMigrate bool

	KafkaBrokers     string
	OrderEventsTopic string
	DLQTopic         string

	OutboxPollInterval time.Duration
	OutboxBatchSize    int
	OutboxMaxAttempts  int
	OutboxRetryDelay   time.Duration
}

// DefaultConfig возвращает конфигурацию для локального запуска:
// in-memory хранилище, без Kafka.
func DefaultConfig() Config {
	return Config{
		HTTPAddr:           ":8080",
		MetricsAddr:        ":9090",
		StorageDriver:      StorageDriverMemory,
		OutboxPollInterval: time.Second,
		OutboxBatchSize:    100,
		OutboxMaxAttempts:  3,
		OutboxRetryDelay:   50 * time.Millisecond,
	}
}

// ReadConfig формирует конфигурацию, позволяя переопределить значения
// через переменные окружения ORDERS_*.
func ReadConfig() Config {
	cfg := DefaultConfig()

	if v := os.Getenv("ORDERS_HTTP_ADDR"); v != "" {
		cfg.HTTPAddr = v
	}
	if v := os.Getenv("ORDERS_METRICS_ADDR"); v != "" {
		cfg.MetricsAddr = v
	}
	if v := os.Getenv("ORDERS_STORAGE_DRIVER"); v != "" {
		cfg.StorageDriver = v
	}
	if v := os.Getenv("ORDERS_POSTGRES_DSN"); v != "" {
		cfg.PostgresDSN = v
	}
	if v := os.Getenv("ORDERS_POSTGRES_AUTO_MIGRATE"); v != "" {
		if parsed, err := strconv.ParseBool(v); err == nil {
			cfg.PostgresAutoMigrate = parsed
		}
	}
	if v := os.Getenv("ORDERS_KAFKA_BROKERS"); v != "" {
		cfg.KafkaBrokers = v
	}
	if v := os.Getenv("ORDERS_ORDER_EVENTS_TOPIC"); v != "" {
		cfg.OrderEventsTopic = v
	}
	if v := os.Getenv("ORDERS_DLQ_TOPIC"); v != "" {
		cfg.DLQTopic = v
	}
	if v := os.Getenv("ORDERS_OUTBOX_POLL_INTERVAL"); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil && parsed > 0 {
			cfg.OutboxPollInterval = parsed
		}
	}
	if v := os.Getenv("ORDERS_OUTBOX_BATCH_SIZE"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			cfg.OutboxBatchSize = parsed
		}
	}
	if v := os.Getenv("ORDERS_OUTBOX_MAX_ATTEMPTS"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			cfg.OutboxMaxAttempts = parsed
		}
	}
	if v := os.Getenv("ORDERS_OUTBOX_RETRY_DELAY"); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil && parsed >= 0 {
			cfg.OutboxRetryDelay = parsed
		}
	}

	return cfg
}
