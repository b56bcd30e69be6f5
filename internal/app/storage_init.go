package app

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/bazarpepe/orders/internal/domain"
	"github.com/bazarpepe/orders/internal/health"
	"github.com/bazarpepe/orders/internal/storage/memory"
	"github.com/bazarpepe/orders/internal/storage/postgres"
)

// Repositories объединяет хранилища, от которых зависит сервис заказов.
type Repositories struct {
	Orders   domain.OrderRepository
	Items    domain.OrderItemRepository
	Products domain.ProductRepository
	Users    domain.UserRepository
	History  domain.StatusHistoryRepository
	Outbox   domain.OutboxRepository

	// HealthCheck проверяет доступность хранилища; nil для in-memory.
	HealthCheck health.CheckFunc
	// Close освобождает ресурсы хранилища.
	Close func() error
}

// initStorage выбирает драйвер хранилища по конфигурации.
func initStorage(ctx context.Context, cfg Config, logger *log.Entry) (*Repositories, error) {
	switch cfg.StorageDriver {
	case StorageDriverMemory, "":
		return initMemoryStorage(logger), nil
	case StorageDriverPostgres:
		return initPostgresStorage(ctx, cfg, logger)
	default:
		return nil, fmt.Errorf("unknown storage driver: %s", cfg.StorageDriver)
	}
}

func initMemoryStorage(logger *log.Entry) *Repositories {
	store := memory.NewStore()
	products := memory.NewProductRepository(store)
	users := memory.NewUserRepository(store)
	seedDemoCatalog(products, users)

	logger.Info("in-memory хранилище инициализировано с демо-каталогом")

	return &Repositories{
		Orders:   memory.NewOrderRepository(store),
		Items:    memory.NewOrderItemRepository(store),
		Products: products,
		Users:    users,
		History:  memory.NewStatusHistoryRepository(store),
		Outbox:   memory.NewOutboxRepository(store),
		Close:    func() error { return nil },
	}
}

func initPostgresStorage(ctx context.Context, cfg Config, logger *log.Entry) (*Repositories, error) {
	if cfg.PostgresDSN == "" {
		return nil, fmt.Errorf("postgres driver requires ORDERS_POSTGRES_DSN")
	}

	store, err := postgres.Open(ctx, cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres storage: %w", err)
	}

	if cfg.PostgresAutoMigrate {
		if err := store.EnsureSchema(ctx); err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("apply migrations: %w", err)
		}
		logger.Info("миграции применены")
	}

	logger.Info("postgres хранилище инициализировано")

	return &Repositories{
		Orders:   postgres.NewOrderRepository(store),
		Items:    postgres.NewOrderItemRepository(store),
		Products: postgres.NewProductRepository(store),
		Users:    postgres.NewUserRepository(store),
		History:  postgres.NewStatusHistoryRepository(store),
		Outbox:   postgres.NewOutboxRepository(store),
		HealthCheck: func() error {
			pingCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			return store.Ping(pingCtx)
		},
		Close: store.Close,
	}, nil
}

// seedDemoCatalog наполняет in-memory каталог, чтобы сервис можно было
// попробовать сразу после запуска без внешних зависимостей.
func seedDemoCatalog(products *memory.ProductRepository, users *memory.UserRepository) {
	now := time.Now().UTC()

	products.Put(domain.Product{
		ID: "demo-teapot", Name: "Заварочный чайник", PriceMinor: 1999, CreatedAt: now,
	})
	products.Put(domain.Product{
		ID: "demo-cup", Name: "Чашка", PriceMinor: 501, CreatedAt: now,
	})
	users.Put(domain.User{
		ID: "demo-user", Name: "Демо-покупатель", Email: "demo@bazarpepe.example", Role: "customer", CreatedAt: now,
	})
}
