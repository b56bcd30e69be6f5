package domain

import "time"

// ItemFilter — композиция независимых необязательных критериев отбора
// позиций заказов. Отсутствующий критерий не ограничивает выборку
// (логическая единица), присутствующие критерии складываются через AND.
type ItemFilter struct {
	// Status ограничивает выборку одним статусом.
	Status *OrderStatus
	// CreatedFrom/CreatedTo задают диапазон по времени создания.
	// Обе границы включительные; может присутствовать любая комбинация.
	CreatedFrom *time.Time
	CreatedTo   *time.Time
	// ItemID ограничивает выборку одной позицией.
	ItemID string
}

// itemPredicate — одно условие над позицией.
type itemPredicate func(OrderItem) bool

// clauses собирает условия для присутствующих критериев.
// Диапазон дат разворачивается в три ветки: обе границы, только нижняя,
// только верхняя; отсутствие обеих не даёт условия вовсе.
func (f ItemFilter) clauses() []itemPredicate {
	var preds []itemPredicate

	if f.Status != nil {
		want := *f.Status
		preds = append(preds, func(item OrderItem) bool {
			return item.Status == want
		})
	}

	switch {
	case f.CreatedFrom != nil && f.CreatedTo != nil:
		from, to := *f.CreatedFrom, *f.CreatedTo
		preds = append(preds, func(item OrderItem) bool {
			return !item.CreatedAt.Before(from) && !item.CreatedAt.After(to)
		})
	case f.CreatedFrom != nil:
		from := *f.CreatedFrom
		preds = append(preds, func(item OrderItem) bool {
			return !item.CreatedAt.Before(from)
		})
	case f.CreatedTo != nil:
		to := *f.CreatedTo
		preds = append(preds, func(item OrderItem) bool {
			return !item.CreatedAt.After(to)
		})
	}

	if f.ItemID != "" {
		want := f.ItemID
		preds = append(preds, func(item OrderItem) bool {
			return item.ID == want
		})
	}

	return preds
}

// Matches вычисляет составной предикат над позицией. Пустой фильтр
// вырождается в "совпадает всё".
func (f ItemFilter) Matches(item OrderItem) bool {
	for _, pred := range f.clauses() {
		if !pred(item) {
			return false
		}
	}
	return true
}

// IsEmpty сообщает, что ни один критерий не задан.
func (f ItemFilter) IsEmpty() bool {
	return f.Status == nil && f.CreatedFrom == nil && f.CreatedTo == nil && f.ItemID == ""
}

const (
	defaultPageSize = 20
	maxPageSize     = 200

	// SortByCreatedAt и другие ключи сортировки, разрешённые на чтении.
	SortByCreatedAt = "created_at"
	SortByID        = "id"
	SortByPrice     = "price"
	SortByQty       = "qty"
	SortByStatus    = "status"
)

// PageRequest задаёт параметры страницы для выборки позиций.
// Нумерация страниц с нуля.
type PageRequest struct {
	Page     int
	Size     int
	SortBy   string
	SortDesc bool
}

// Normalize приводит параметры к безопасным значениям: отрицательная
// страница становится нулевой, некорректный размер — размером по
// умолчанию, неизвестный ключ сортировки — сортировкой по времени создания.
func (p PageRequest) Normalize() PageRequest {
	if p.Page < 0 {
		p.Page = 0
	}
	if p.Size <= 0 {
		p.Size = defaultPageSize
	}
	if p.Size > maxPageSize {
		p.Size = maxPageSize
	}
	switch p.SortBy {
	case SortByCreatedAt, SortByID, SortByPrice, SortByQty, SortByStatus:
	default:
		p.SortBy = SortByCreatedAt
		p.SortDesc = true
	}
	return p
}

// Offset возвращает смещение первой строки страницы.
func (p PageRequest) Offset() int {
	return p.Page * p.Size
}

// ItemPage — страница позиций вместе с итогами по всей выборке.
type ItemPage struct {
	Items         []OrderItem
	TotalElements int64
	TotalPages    int
}

// NewItemPage собирает страницу и вычисляет количество страниц от
// полного числа совпадений.
func NewItemPage(items []OrderItem, total int64, pageSize int) ItemPage {
	pages := 0
	if pageSize > 0 && total > 0 {
		pages = int((total + int64(pageSize) - 1) / int64(pageSize))
	}
	return ItemPage{
		Items:         items,
		TotalElements: total,
		TotalPages:    pages,
	}
}
