package domain

import (
	"strings"
	"time"
)

// OrderStatus описывает жизненный цикл позиции заказа в витрине.
type OrderStatus string

const (
	// StatusPending — позиция создана, заказ ещё не подтверждён.
	StatusPending OrderStatus = "pending"
	// StatusConfirmed — заказ подтверждён магазином.
	StatusConfirmed OrderStatus = "confirmed"
	// StatusShipped — позиция передана в доставку.
	StatusShipped OrderStatus = "shipped"
	// StatusDelivered — позиция доставлена покупателю.
	StatusDelivered OrderStatus = "delivered"
	// StatusCancelled — позиция отменена.
	StatusCancelled OrderStatus = "cancelled"
	// StatusReturned — позиция возвращена покупателем.
	StatusReturned OrderStatus = "returned"
)

// ParseOrderStatus преобразует строковый токен в OrderStatus.
// Токен нечувствителен к регистру; неизвестный токен — всегда
// ErrUnknownStatus, без маппинга на статус по умолчанию.
func ParseOrderStatus(token string) (OrderStatus, error) {
	switch OrderStatus(strings.ToLower(strings.TrimSpace(token))) {
	case StatusPending:
		return StatusPending, nil
	case StatusConfirmed:
		return StatusConfirmed, nil
	case StatusShipped:
		return StatusShipped, nil
	case StatusDelivered:
		return StatusDelivered, nil
	case StatusCancelled:
		return StatusCancelled, nil
	case StatusReturned:
		return StatusReturned, nil
	default:
		return "", ErrUnknownStatus
	}
}

// OrderItem представляет одну позицию заказа.
type OrderItem struct {
	// ID позиции нужен для однозначной идентификации и фильтрации.
	ID string
	// OrderID — обратная ссылка на заказ-владелец. Заполняется перед
	// сохранением агрегата, когда заказ уже сконструирован.
	OrderID string
	// ProductID — ссылка на товар каталога.
	ProductID string
	// UserID — покупатель, оформивший позицию.
	UserID string
	// Qty — количество единиц товара.
	Qty int32
	// PriceMinor — полная цена строки (цена за единицу × количество)
	// в минимальных денежных единицах. Фиксируется при создании и
	// никогда не пересчитывается от актуальной цены товара.
	PriceMinor int64
	// Status — текущий статус жизненного цикла позиции.
	Status OrderStatus
	// CreatedAt фиксирует момент создания позиции; поле иммутабельно.
	CreatedAt time.Time
}

// Order агрегирует позиции, созданные за одно оформление.
type Order struct {
	ID string
	// TotalMinor — итоговая сумма заказа: либо доверенное значение от
	// вызывающей стороны (если > 0), либо сумма цен позиций.
	TotalMinor int64
	Items      []OrderItem
	CreatedAt  time.Time
}

// ValidateInvariants проверяет базовые инварианты агрегата и возвращает список замечаний.
// Сумма заказа с суммой позиций намеренно не сверяется: переданный извне
// total — точка переопределения для скидок, рассчитанных выше по стеку.
func (o *Order) ValidateInvariants() []error {
	var errs []error

	if len(o.Items) == 0 {
		errs = append(errs, ErrItemsRequired)
	}
	if o.TotalMinor < 0 {
		errs = append(errs, ErrTotalNegative)
	}

	for _, item := range o.Items {
		if item.Qty <= 0 {
			errs = append(errs, ErrItemQtyInvalid)
		}
		if item.PriceMinor < 0 {
			errs = append(errs, ErrItemPriceInvalid)
		}
		if item.UserID == "" {
			errs = append(errs, ErrUserRequired)
		}
		if item.ProductID == "" {
			errs = append(errs, ErrProductRequired)
		}
	}

	return errs
}

// SumItemsMinor возвращает точную сумму цен позиций.
func (o *Order) SumItemsMinor() int64 {
	var sum int64
	for _, item := range o.Items {
		sum += item.PriceMinor
	}
	return sum
}

// StatusChange описывает одно применение перехода статуса к позиции.
type StatusChange struct {
	ItemID   string
	From     OrderStatus
	To       OrderStatus
	Occurred time.Time
}
