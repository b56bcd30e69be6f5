// Package memory содержит in-memory реализации репозиториев для
// локальной разработки и тестов. Заказы и их позиции живут в одном
// Store, чтобы репозитории видели общий срез данных — как таблицы
// одной базы.
package memory

import (
	"sync"

	"github.com/bazarpepe/orders/internal/domain"
)

// Store — общее состояние in-memory хранилища.
type Store struct {
	mu       sync.RWMutex
	orders   map[string]domain.Order
	items    map[string]domain.OrderItem
	products map[string]domain.Product
	users    map[string]domain.User
	history  map[string][]domain.StatusChange
	outbox   map[string]*outboxRecord
}

// NewStore создаёт пустое in-memory хранилище.
func NewStore() *Store {
	return &Store{
		orders:   make(map[string]domain.Order),
		items:    make(map[string]domain.OrderItem),
		products: make(map[string]domain.Product),
		users:    make(map[string]domain.User),
		history:  make(map[string][]domain.StatusChange),
		outbox:   make(map[string]*outboxRecord),
	}
}
