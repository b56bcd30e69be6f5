package domain

import "errors"

var (
	// ErrProductNotFound возвращается, если товар не найден в каталоге.
	ErrProductNotFound = errors.New("product not found")
	// ErrUserNotFound возвращается, если покупатель не найден.
	ErrUserNotFound = errors.New("user not found")
	// ErrOrderItemNotFound возвращается, если позиция заказа не найдена.
	ErrOrderItemNotFound = errors.New("order item not found")
	// ErrNoItemsMatched сигнализирует, что фильтр не нашёл ни одной позиции.
	// По контракту API пустая страница — ошибка, а не успешный пустой список.
	ErrNoItemsMatched = errors.New("no order items matched the filter")
	// ErrUnknownStatus — токен статуса не входит в закрытое перечисление.
	ErrUnknownStatus = errors.New("unknown order status token")
	// ErrOrderAlreadyExists — заказ с таким ID уже сохранён.
	ErrOrderAlreadyExists = errors.New("order already exists")
	// Ошибка отсутствия хотя бы одной позиции в заказе.
	ErrItemsRequired = errors.New("order must contain at least one item")
	// Ошибка отрицательной суммы заказа.
	ErrTotalNegative = errors.New("total_minor must be non-negative")
	// Ошибка при некорректном количестве товара (<= 0).
	ErrItemQtyInvalid = errors.New("item qty must be greater than zero")
	// Ошибка, если цена позиции отрицательная.
	ErrItemPriceInvalid = errors.New("item price must be non-negative")
	// Ошибка отсутствующего покупателя на позиции.
	ErrUserRequired = errors.New("user_id is required")
	// Ошибка отсутствующей ссылки на товар.
	ErrProductRequired = errors.New("product_id is required")
	// ErrOutboxPublish — ошибка при публикации сообщения из outbox.
	ErrOutboxPublish = errors.New("outbox publish failed")
)

// IsNotFound проверяет, относится ли ошибка к семейству "не найдено".
func IsNotFound(err error) bool {
	return errors.Is(err, ErrProductNotFound) ||
		errors.Is(err, ErrUserNotFound) ||
		errors.Is(err, ErrOrderItemNotFound) ||
		errors.Is(err, ErrNoItemsMatched)
}
