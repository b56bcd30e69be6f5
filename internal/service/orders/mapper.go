package orders

import (
	"github.com/bazarpepe/orders/internal/domain"
)

// ItemProjection — позиция заказа, развёрнутая для вызывающей стороны:
// к строке добавлены сводки товара и покупателя.
type ItemProjection struct {
	Item    domain.OrderItem
	Product domain.Product
	User    domain.User
}

// Mapper разворачивает позиции заказов, дочитывая товар и покупателя.
// Это шаг гидрации на чтении, хранилище про него не знает.
type Mapper struct {
	products domain.ProductRepository
	users    domain.UserRepository
}

// NewMapper создаёт маппер поверх каталога и справочника покупателей.
func NewMapper(products domain.ProductRepository, users domain.UserRepository) *Mapper {
	return &Mapper{products: products, users: users}
}

// Expand дочитывает товар и покупателя к позиции. Отсутствующая
// ссылка оставляет пустую сводку — строка всё равно возвращается;
// любая другая ошибка хранилища прерывает гидрацию.
func (m *Mapper) Expand(item domain.OrderItem) (ItemProjection, error) {
	projection := ItemProjection{Item: item}

	if item.ProductID != "" {
		product, err := m.products.Get(item.ProductID)
		switch {
		case err == nil:
			projection.Product = product
		case !domain.IsNotFound(err):
			return ItemProjection{}, err
		}
	}

	if item.UserID != "" {
		user, err := m.users.Get(item.UserID)
		switch {
		case err == nil:
			projection.User = user
		case !domain.IsNotFound(err):
			return ItemProjection{}, err
		}
	}

	return projection, nil
}

// ExpandAll разворачивает список позиций, сохраняя порядок выборки.
func (m *Mapper) ExpandAll(items []domain.OrderItem) ([]ItemProjection, error) {
	result := make([]ItemProjection, 0, len(items))
	for _, item := range items {
		projection, err := m.Expand(item)
		if err != nil {
			return nil, err
		}
		result = append(result, projection)
	}
	return result, nil
}
