package domain

// ProductRepository даёт доступ к каталогу товаров (только чтение).
type ProductRepository interface {
	// Get возвращает товар по идентификатору или ErrProductNotFound.
	Get(id string) (Product, error)
}

// UserRepository даёт доступ к покупателям (только чтение).
type UserRepository interface {
	// Get возвращает покупателя по идентификатору или ErrUserNotFound.
	Get(id string) (User, error)
}

// OrderRepository описывает требования к хранилищу заказов.
type OrderRepository interface {
	// Create атомарно сохраняет агрегат: строку заказа и все его позиции
	// в одной транзакции. Возвращает ErrOrderAlreadyExists, если запись
	// с таким ID уже существует.
	Create(order Order) error
	// Count возвращает общее число сохранённых заказов.
	Count() (int64, error)
}

// OrderItemRepository описывает требования к хранилищу позиций.
type OrderItemRepository interface {
	// Get возвращает позицию по идентификатору или ErrOrderItemNotFound.
	Get(id string) (OrderItem, error)
	// Save перезаписывает позицию. Конкурентные записи не координируются:
	// последняя побеждает.
	Save(item OrderItem) error
	// Find выполняет составной фильтр с пагинацией и возвращает страницу
	// вместе с итогами по всей выборке. Пустая страница — валидный
	// результат на этом уровне; в ошибку её превращает сервисный слой.
	Find(filter ItemFilter, page PageRequest) (ItemPage, error)
}

// StatusHistoryRepository хранит историю переходов статусов позиций.
type StatusHistoryRepository interface {
	Append(change StatusChange) error
	List(itemID string) ([]StatusChange, error)
}
