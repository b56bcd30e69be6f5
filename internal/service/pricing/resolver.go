// Package pricing вычисляет авторитетную цену строки заказа по каталогу.
package pricing

import (
	"github.com/bazarpepe/orders/internal/domain"
)

// Resolver читает актуальную цену товара и считает цену строки.
// Побочных эффектов нет: каталог только читается.
type Resolver struct {
	products domain.ProductRepository
}

// NewResolver создаёт резолвер поверх каталога товаров.
func NewResolver(products domain.ProductRepository) *Resolver {
	return &Resolver{products: products}
}

// Quote возвращает цену строки: цена за единицу × количество, в
// минимальных денежных единицах. Умножение на целое количество точное,
// округлений нет. Возвращает ErrProductNotFound, если товар не
// разрешается, и ErrItemQtyInvalid при qty <= 0.
func (r *Resolver) Quote(productID string, qty int32) (int64, error) {
	if qty <= 0 {
		return 0, domain.ErrItemQtyInvalid
	}

	product, err := r.products.Get(productID)
	if err != nil {
		return 0, err
	}

	return product.PriceMinor * int64(qty), nil
}
