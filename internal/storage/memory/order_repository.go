package memory

import (
	"github.com/bazarpepe/orders/internal/domain"
)

// orderRepositoryInMemory — in-memory реализация OrderRepository.
type orderRepositoryInMemory struct {
	store *Store
}

// NewOrderRepository возвращает in-memory репозиторий заказов.
func NewOrderRepository(store *Store) domain.OrderRepository {
	return &orderRepositoryInMemory{store: store}
}

// Create сохраняет агрегат целиком: заказ и все его позиции появляются
// под одной блокировкой, частичной записи не бывает.
func (r *orderRepositoryInMemory) Create(order domain.Order) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if _, exists := r.store.orders[order.ID]; exists {
		return domain.ErrOrderAlreadyExists
	}
	for _, item := range order.Items {
		if _, exists := r.store.items[item.ID]; exists {
			return domain.ErrOrderAlreadyExists
		}
	}

	// Сохраняем копии, чтобы избежать непредсказуемых мутаций извне.
	r.store.orders[order.ID] = order
	for _, item := range order.Items {
		r.store.items[item.ID] = item
	}
	return nil
}

// Count возвращает число сохранённых заказов.
func (r *orderRepositoryInMemory) Count() (int64, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	return int64(len(r.store.orders)), nil
}

var _ domain.OrderRepository = (*orderRepositoryInMemory)(nil)
