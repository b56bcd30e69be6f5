package memory

import (
	"sort"

	"github.com/bazarpepe/orders/internal/domain"
)

// orderItemRepositoryInMemory — in-memory реализация OrderItemRepository.
type orderItemRepositoryInMemory struct {
	store *Store
}

// NewOrderItemRepository возвращает in-memory репозиторий позиций.
func NewOrderItemRepository(store *Store) domain.OrderItemRepository {
	return &orderItemRepositoryInMemory{store: store}
}

// Get возвращает позицию или ErrOrderItemNotFound.
func (r *orderItemRepositoryInMemory) Get(id string) (domain.OrderItem, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	item, ok := r.store.items[id]
	if !ok {
		return domain.OrderItem{}, domain.ErrOrderItemNotFound
	}
	return item, nil
}

// Save перезаписывает позицию; последняя запись побеждает.
func (r *orderItemRepositoryInMemory) Save(item domain.OrderItem) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if _, ok := r.store.items[item.ID]; !ok {
		return domain.ErrOrderItemNotFound
	}
	r.store.items[item.ID] = item
	return nil
}

// Find вычисляет составной предикат над всеми позициями, сортирует и
// нарезает страницу. Итоги считаются от полного числа совпадений.
func (r *orderItemRepositoryInMemory) Find(filter domain.ItemFilter, page domain.PageRequest) (domain.ItemPage, error) {
	page = page.Normalize()

	r.store.mu.RLock()
	matched := make([]domain.OrderItem, 0, len(r.store.items))
	for _, item := range r.store.items {
		if filter.Matches(item) {
			matched = append(matched, item)
		}
	}
	r.store.mu.RUnlock()

	sortItems(matched, page)

	total := int64(len(matched))
	start := page.Offset()
	if start >= len(matched) {
		return domain.NewItemPage(nil, total, page.Size), nil
	}
	end := start + page.Size
	if end > len(matched) {
		end = len(matched)
	}

	return domain.NewItemPage(matched[start:end], total, page.Size), nil
}

// sortItems упорядочивает выборку по ключу страницы; ID — стабилизирующий
// вторичный ключ, чтобы страницы не плавали между вызовами.
func sortItems(items []domain.OrderItem, page domain.PageRequest) {
	less := func(a, b domain.OrderItem) bool {
		switch page.SortBy {
		case domain.SortByID:
			return a.ID < b.ID
		case domain.SortByPrice:
			if a.PriceMinor != b.PriceMinor {
				return a.PriceMinor < b.PriceMinor
			}
		case domain.SortByQty:
			if a.Qty != b.Qty {
				return a.Qty < b.Qty
			}
		case domain.SortByStatus:
			if a.Status != b.Status {
				return a.Status < b.Status
			}
		default:
			if !a.CreatedAt.Equal(b.CreatedAt) {
				return a.CreatedAt.Before(b.CreatedAt)
			}
		}
		return a.ID < b.ID
	}

	sort.Slice(items, func(i, j int) bool {
		if page.SortDesc {
			return less(items[j], items[i])
		}
		return less(items[i], items[j])
	})
}

var _ domain.OrderItemRepository = (*orderItemRepositoryInMemory)(nil)
