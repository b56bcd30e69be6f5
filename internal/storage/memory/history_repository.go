package memory

import (
	"time"

	"github.com/bazarpepe/orders/internal/domain"
)

// historyRepositoryInMemory хранит историю переходов статусов позиций.
type historyRepositoryInMemory struct {
	store *Store
}

// NewStatusHistoryRepository возвращает in-memory реализацию истории статусов.
func NewStatusHistoryRepository(store *Store) domain.StatusHistoryRepository {
	return &historyRepositoryInMemory{store: store}
}

// Append добавляет запись о переходе в конец истории позиции.
func (r *historyRepositoryInMemory) Append(change domain.StatusChange) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if change.Occurred.IsZero() {
		change.Occurred = time.Now().UTC()
	}
	r.store.history[change.ItemID] = append(r.store.history[change.ItemID], change)
	return nil
}

// List возвращает историю переходов позиции в порядке применения.
func (r *historyRepositoryInMemory) List(itemID string) ([]domain.StatusChange, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	changes := r.store.history[itemID]
	result := make([]domain.StatusChange, len(changes))
	copy(result, changes)
	return result, nil
}

var _ domain.StatusHistoryRepository = (*historyRepositoryInMemory)(nil)
