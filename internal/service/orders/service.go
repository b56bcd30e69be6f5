// Package orders реализует ядро управления заказами витрины:
// сборку агрегата с авторитетным ценообразованием, охрану переходов
// статусов и составную фильтрацию позиций с пагинацией.
package orders

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/bazarpepe/orders/internal/domain"
	"github.com/bazarpepe/orders/internal/metrics"
	"github.com/bazarpepe/orders/internal/service/pricing"
)

const (
	aggregateTypeOrder     = "order"
	aggregateTypeOrderItem = "order_item"

	eventTypeOrderPlaced       = "order.placed"
	eventTypeItemStatusChanged = "order_item.status_changed"
)

// ItemRequest — одна строка корзины на входе оформления.
type ItemRequest struct {
	ProductID string
	Qty       int32
}

// FilterQuery — параметры составного фильтра позиций.
// Любое подмножество критериев может отсутствовать.
type FilterQuery struct {
	StatusToken string
	CreatedFrom *time.Time
	CreatedTo   *time.Time
	ItemID      string
	Page        int
	Size        int
	SortBy      string
	SortDesc    bool
}

// FilterResult — страница развёрнутых позиций с итогами по выборке.
type FilterResult struct {
	Items         []ItemProjection
	TotalElements int64
	TotalPages    int
}

// Deps собирает зависимости сервиса заказов. Outbox и Metrics
// необязательны: без них сервис просто не публикует события и не
// пишет метрики.
type Deps struct {
	Orders  domain.OrderRepository
	Items   domain.OrderItemRepository
	Pricing *pricing.Resolver
	Mapper  *Mapper
	History domain.StatusHistoryRepository
	Outbox  domain.OutboxRepository
	Metrics *metrics.OrderMetrics
	Logger  *log.Entry
}

// Service — ядро заказов поверх доменных репозиториев.
type Service struct {
	orders  domain.OrderRepository
	items   domain.OrderItemRepository
	pricing *pricing.Resolver
	mapper  *Mapper
	history domain.StatusHistoryRepository
	outbox  domain.OutboxRepository
	metrics *metrics.OrderMetrics
	logger  *log.Entry
}

// NewService конструирует сервис с зависимостями.
func NewService(deps Deps) *Service {
	logger := deps.Logger
	if logger == nil {
		logger = log.New().WithField("component", "orders-service")
	}
	return &Service{
		orders:  deps.Orders,
		items:   deps.Items,
		pricing: deps.Pricing,
		mapper:  deps.Mapper,
		history: deps.History,
		outbox:  deps.Outbox,
		metrics: deps.Metrics,
		logger:  logger,
	}
}

// PlaceOrder собирает агрегат заказа и атомарно сохраняет его.
// Каждая строка корзины проходит через резолвер цен; любой сбой
// разрешения отменяет всё оформление, частичных записей не бывает.
// totalMinor > 0 принимается дословно (скидки считаются выше по
// стеку), иначе итог — точная сумма цен строк. Возвращает ID
// созданного заказа как подтверждение.
func (s *Service) PlaceOrder(userID string, requests []ItemRequest, totalMinor int64) (string, error) {
	started := time.Now()

	if userID == "" {
		return "", domain.ErrUserRequired
	}
	if len(requests) == 0 {
		return "", domain.ErrItemsRequired
	}

	now := time.Now().UTC()
	items := make([]domain.OrderItem, 0, len(requests))
	for _, req := range requests {
		linePrice, err := s.pricing.Quote(req.ProductID, req.Qty)
		if err != nil {
			s.metrics.PlaceFailed()
			s.logger.WithError(err).WithField("product_id", req.ProductID).Warn("pricing resolution failed, aborting placement")
			return "", err
		}

		items = append(items, domain.OrderItem{
			ID:         uuid.NewString(),
			ProductID:  req.ProductID,
			UserID:     userID,
			Qty:        req.Qty,
			PriceMinor: linePrice,
			Status:     domain.StatusPending,
			CreatedAt:  now,
		})
	}

	order := domain.Order{
		ID:        uuid.NewString(),
		Items:     items,
		CreatedAt: now,
	}
	order.TotalMinor = order.SumItemsMinor()
	if totalMinor > 0 {
		// Переданный итог доверяется дословно, без сверки с суммой строк.
		order.TotalMinor = totalMinor
	}

	// Обратная ссылка на заказ проставляется после конструирования
	// агрегата, чтобы позиции легли в ту же транзакцию, что и заказ.
	for i := range order.Items {
		order.Items[i].OrderID = order.ID
	}

	if errs := order.ValidateInvariants(); len(errs) > 0 {
		s.metrics.PlaceFailed()
		return "", errors.Join(errs...)
	}

	if err := s.orders.Create(order); err != nil {
		s.metrics.PlaceFailed()
		s.logger.WithError(err).Error("failed to persist order aggregate")
		return "", err
	}

	s.enqueueOrderPlaced(order)
	s.metrics.OrderPlaced(len(order.Items), time.Since(started))

	s.logger.WithFields(log.Fields{
		"order_id":    order.ID,
		"items":       len(order.Items),
		"total_minor": order.TotalMinor,
	}).Info("order placed")

	return order.ID, nil
}

// UpdateItemStatus применяет переход статуса к позиции.
// Токен нечувствителен к регистру; неизвестный токен отклоняется до
// любой мутации. Граф переходов не проверяется: допустим любой статус
// после любого, повторное применение того же токена идемпотентно.
func (s *Service) UpdateItemStatus(itemID, statusToken string) (domain.OrderItem, error) {
	item, err := s.items.Get(itemID)
	if err != nil {
		return domain.OrderItem{}, err
	}

	status, err := domain.ParseOrderStatus(statusToken)
	if err != nil {
		return domain.OrderItem{}, err
	}

	previous := item.Status
	item.Status = status
	if err := s.items.Save(item); err != nil {
		s.logger.WithError(err).WithField("item_id", itemID).Error("failed to save order item status")
		return domain.OrderItem{}, err
	}

	s.appendStatusHistory(item.ID, previous, status)
	s.enqueueStatusChanged(item, previous)
	s.metrics.StatusChanged(string(status))

	return item, nil
}

// FilterItems выполняет составной фильтр с пагинацией и разворачивает
// каждую найденную позицию сводками товара и покупателя.
// Пустая страница — это ErrNoItemsMatched, а не успешный пустой список:
// поведение зафиксировано контрактом API.
func (s *Service) FilterItems(query FilterQuery) (FilterResult, error) {
	filter := domain.ItemFilter{
		CreatedFrom: query.CreatedFrom,
		CreatedTo:   query.CreatedTo,
		ItemID:      query.ItemID,
	}
	if query.StatusToken != "" {
		status, err := domain.ParseOrderStatus(query.StatusToken)
		if err != nil {
			return FilterResult{}, err
		}
		filter.Status = &status
	}

	page, err := s.items.Find(filter, domain.PageRequest{
		Page:     query.Page,
		Size:     query.Size,
		SortBy:   query.SortBy,
		SortDesc: query.SortDesc,
	})
	if err != nil {
		s.logger.WithError(err).Error("order item filter query failed")
		return FilterResult{}, err
	}

	if len(page.Items) == 0 {
		s.metrics.FilterExecuted(true)
		return FilterResult{}, domain.ErrNoItemsMatched
	}
	s.metrics.FilterExecuted(false)

	projections, err := s.mapper.ExpandAll(page.Items)
	if err != nil {
		s.logger.WithError(err).Error("failed to expand filtered order items")
		return FilterResult{}, err
	}

	return FilterResult{
		Items:         projections,
		TotalElements: page.TotalElements,
		TotalPages:    page.TotalPages,
	}, nil
}

// GetItem возвращает одну развёрнутую позицию вместе с историей
// переходов её статуса.
func (s *Service) GetItem(itemID string) (ItemProjection, []domain.StatusChange, error) {
	item, err := s.items.Get(itemID)
	if err != nil {
		return ItemProjection{}, nil, err
	}

	projection, err := s.mapper.Expand(item)
	if err != nil {
		return ItemProjection{}, nil, err
	}

	var history []domain.StatusChange
	if s.history != nil {
		history, err = s.history.List(itemID)
		if err != nil {
			s.logger.WithError(err).WithField("item_id", itemID).Warn("failed to list status history")
			history = nil
		}
	}

	return projection, history, nil
}

func (s *Service) appendStatusHistory(itemID string, from, to domain.OrderStatus) {
	if s.history == nil {
		return
	}
	change := domain.StatusChange{
		ItemID:   itemID,
		From:     from,
		To:       to,
		Occurred: time.Now().UTC(),
	}
	if err := s.history.Append(change); err != nil {
		s.logger.WithError(err).WithField("item_id", itemID).Warn("failed to append status history")
	}
}

type orderPlacedEvent struct {
	OrderID    string    `json:"order_id"`
	UserID     string    `json:"user_id"`
	TotalMinor int64     `json:"total_minor"`
	ItemCount  int       `json:"item_count"`
	PlacedAt   time.Time `json:"placed_at"`
}

type itemStatusChangedEvent struct {
	ItemID    string    `json:"item_id"`
	OrderID   string    `json:"order_id"`
	From      string    `json:"from"`
	To        string    `json:"to"`
	ChangedAt time.Time `json:"changed_at"`
}

func (s *Service) enqueueOrderPlaced(order domain.Order) {
	if s.outbox == nil {
		return
	}

	userID := ""
	if len(order.Items) > 0 {
		userID = order.Items[0].UserID
	}
	payload, err := json.Marshal(orderPlacedEvent{
		OrderID:    order.ID,
		UserID:     userID,
		TotalMinor: order.TotalMinor,
		ItemCount:  len(order.Items),
		PlacedAt:   order.CreatedAt,
	})
	if err != nil {
		s.logger.WithError(err).WithField("order_id", order.ID).Warn("failed to encode order.placed event")
		return
	}

	if _, err := s.outbox.Enqueue(domain.OutboxMessage{
		AggregateType: aggregateTypeOrder,
		AggregateID:   order.ID,
		EventType:     eventTypeOrderPlaced,
		Payload:       payload,
	}); err != nil {
		s.logger.WithError(err).WithField("order_id", order.ID).Warn("failed to enqueue order.placed event")
	}
}

func (s *Service) enqueueStatusChanged(item domain.OrderItem, previous domain.OrderStatus) {
	if s.outbox == nil {
		return
	}

	payload, err := json.Marshal(itemStatusChangedEvent{
		ItemID:    item.ID,
		OrderID:   item.OrderID,
		From:      string(previous),
		To:        string(item.Status),
		ChangedAt: time.Now().UTC(),
	})
	if err != nil {
		s.logger.WithError(err).WithField("item_id", item.ID).Warn("failed to encode status change event")
		return
	}

	if _, err := s.outbox.Enqueue(domain.OutboxMessage{
		AggregateType: aggregateTypeOrderItem,
		AggregateID:   item.ID,
		EventType:     eventTypeItemStatusChanged,
		Payload:       payload,
	}); err != nil {
		s.logger.WithError(err).WithField("item_id", item.ID).Warn("failed to enqueue status change event")
	}
}
