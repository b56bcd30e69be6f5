package memory

import "github.com/bazarpepe/orders/internal/domain"

// ProductRepository — in-memory каталог товаров.
type ProductRepository struct {
	store *Store
}

// NewProductRepository возвращает in-memory реализацию каталога.
func NewProductRepository(store *Store) *ProductRepository {
	return &ProductRepository{store: store}
}

// Get возвращает товар или ErrProductNotFound, если его нет.
func (r *ProductRepository) Get(id string) (domain.Product, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	product, ok := r.store.products[id]
	if !ok {
		return domain.Product{}, domain.ErrProductNotFound
	}
	return product, nil
}

// Put добавляет или заменяет товар. Нужен для seed-данных и тестов;
// в доменный порт метод намеренно не входит — ядро заказов каталог
// не мутирует.
func (r *ProductRepository) Put(product domain.Product) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	r.store.products[product.ID] = product
}

var _ domain.ProductRepository = (*ProductRepository)(nil)

// UserRepository — in-memory справочник покупателей.
type UserRepository struct {
	store *Store
}

// NewUserRepository возвращает in-memory реализацию справочника.
func NewUserRepository(store *Store) *UserRepository {
	return &UserRepository{store: store}
}

// Get возвращает покупателя или ErrUserNotFound.
func (r *UserRepository) Get(id string) (domain.User, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	user, ok := r.store.users[id]
	if !ok {
		return domain.User{}, domain.ErrUserNotFound
	}
	return user, nil
}

// Put добавляет или заменяет покупателя (seed-данные и тесты).
func (r *UserRepository) Put(user domain.User) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	r.store.users[user.ID] = user
}

var _ domain.UserRepository = (*UserRepository)(nil)
