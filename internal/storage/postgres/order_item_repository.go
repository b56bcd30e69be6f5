package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/bazarpepe/orders/internal/domain"
)

const itemColumns = "id, order_id, product_id, user_id, qty, price_minor, status, created_at"

type orderItemRepository struct {
	db *sql.DB
}

// NewOrderItemRepository создаёт PostgreSQL-реализацию OrderItemRepository.
func NewOrderItemRepository(store *Store) domain.OrderItemRepository {
	return &orderItemRepository{db: store.DB()}
}

func (r *orderItemRepository) Get(id string) (domain.OrderItem, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	row := r.db.QueryRowContext(ctx, `
		SELECT `+itemColumns+`
		FROM order_items
		WHERE id = $1
	`, id)
	return scanItem(row)
}

func (r *orderItemRepository) Save(item domain.OrderItem) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	result, err := r.db.ExecContext(ctx, `
		UPDATE order_items
		SET qty = $2, price_minor = $3, status = $4
		WHERE id = $1
	`, item.ID, item.Qty, item.PriceMinor, string(item.Status))
	if err != nil {
		return fmt.Errorf("update order item: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return domain.ErrOrderItemNotFound
	}
	return nil
}

// Find транслирует композицию критериев фильтра в параметризованный WHERE.
// Каждый присутствующий критерий добавляет своё условие; пустой фильтр
// отбирает все строки.
func (r *orderItemRepository) Find(filter domain.ItemFilter, page domain.PageRequest) (domain.ItemPage, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	page = page.Normalize()
	where, args := buildItemWhere(filter)

	var total int64
	countQuery := "SELECT COUNT(*) FROM order_items" + where
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return domain.ItemPage{}, fmt.Errorf("count filtered items: %w", err)
	}
	if total == 0 {
		return domain.NewItemPage(nil, 0, page.Size), nil
	}

	query := fmt.Sprintf(
		"SELECT %s FROM order_items%s ORDER BY %s LIMIT $%d OFFSET $%d",
		itemColumns, where, orderByClause(page), len(args)+1, len(args)+2,
	)
	args = append(args, page.Size, page.Offset())

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return domain.ItemPage{}, fmt.Errorf("select filtered items: %w", err)
	}
	defer rows.Close()

	items := make([]domain.OrderItem, 0, page.Size)
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return domain.ItemPage{}, err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return domain.ItemPage{}, fmt.Errorf("iterate filtered items: %w", err)
	}

	return domain.NewItemPage(items, total, page.Size), nil
}

func buildItemWhere(filter domain.ItemFilter) (string, []any) {
	var (
		conditions []string
		args       []any
	)

	appendCondition := func(expr string, value any) {
		args = append(args, value)
		conditions = append(conditions, fmt.Sprintf(expr, len(args)))
	}

	if filter.Status != nil {
		appendCondition("status = $%d", string(*filter.Status))
	}
	if filter.CreatedFrom != nil {
		appendCondition("created_at >= $%d", *filter.CreatedFrom)
	}
	if filter.CreatedTo != nil {
		appendCondition("created_at <= $%d", *filter.CreatedTo)
	}
	if filter.ItemID != "" {
		appendCondition("id = $%d", filter.ItemID)
	}

	if len(conditions) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conditions, " AND "), args
}

// orderByClause переводит нормализованный ключ сортировки в имя колонки.
// Вторичная сортировка по id даёт стабильный порядок страниц.
func orderByClause(page domain.PageRequest) string {
	column := map[string]string{
		domain.SortByCreatedAt: "created_at",
		domain.SortByID:        "id",
		domain.SortByPrice:     "price_minor",
		domain.SortByQty:       "qty",
		domain.SortByStatus:    "status",
	}[page.SortBy]
	if column == "" {
		column = "created_at"
	}

	direction := "ASC"
	if page.SortDesc {
		direction = "DESC"
	}
	return fmt.Sprintf("%s %s, id ASC", column, direction)
}

var _ domain.OrderItemRepository = (*orderItemRepository)(nil)

type statusHistoryRepository struct {
	db *sql.DB
}

// NewStatusHistoryRepository создаёт PostgreSQL-реализацию StatusHistoryRepository.
func NewStatusHistoryRepository(store *Store) domain.StatusHistoryRepository {
	return &statusHistoryRepository{db: store.DB()}
}

func (r *statusHistoryRepository) Append(change domain.StatusChange) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO order_item_status_history (item_id, from_status, to_status, occurred_at)
		VALUES ($1, $2, $3, $4)
	`, change.ItemID, string(change.From), string(change.To), change.Occurred)
	if err != nil {
		return fmt.Errorf("insert status change: %w", err)
	}
	return nil
}

func (r *statusHistoryRepository) List(itemID string) ([]domain.StatusChange, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	rows, err := r.db.QueryContext(ctx, `
		SELECT item_id, from_status, to_status, occurred_at
		FROM order_item_status_history
		WHERE item_id = $1
		ORDER BY occurred_at ASC, id ASC
	`, itemID)
	if err != nil {
		return nil, fmt.Errorf("select status history: %w", err)
	}
	defer rows.Close()

	var changes []domain.StatusChange
	for rows.Next() {
		var change domain.StatusChange
		var from, to string
		if err := rows.Scan(&change.ItemID, &from, &to, &change.Occurred); err != nil {
			return nil, fmt.Errorf("scan status change: %w", err)
		}
		change.From = domain.OrderStatus(from)
		change.To = domain.OrderStatus(to)
		changes = append(changes, change)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate status history: %w", err)
	}

	return changes, nil
}

var _ domain.StatusHistoryRepository = (*statusHistoryRepository)(nil)
