package domain

import "time"

// Product — товар каталога. Для ядра заказов это внешняя сущность:
// читается только цена и справочные поля, мутаций нет.
type Product struct {
	ID          string
	Name        string
	Description string
	// PriceMinor — актуальная цена за единицу в минимальных денежных единицах.
	PriceMinor int64
	CategoryID string
	CreatedAt  time.Time
}

// User — уже аутентифицированный покупатель. Ядро заказов использует
// его только чтобы проставить владельца на позициях.
type User struct {
	ID          string
	Name        string
	Email       string
	PhoneNumber string
	Role        string
	CreatedAt   time.Time
}
