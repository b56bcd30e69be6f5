package rest

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	log "github.com/sirupsen/logrus"

	"github.com/bazarpepe/orders/internal/domain"
	"github.com/bazarpepe/orders/internal/service/orders"
)

// Handler обслуживает HTTP API заказов поверх orders.Service.
type Handler struct {
	service *orders.Service
	logger  *log.Entry
}

// NewHandler создаёт HTTP handler.
func NewHandler(service *orders.Service, logger *log.Entry) *Handler {
	if logger == nil {
		logger = log.WithField("component", "rest")
	}
	return &Handler{service: service, logger: logger}
}

// Routes собирает маршруты API.
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Route("/api", func(r chi.Router) {
		r.Post("/orders", h.placeOrder)
		r.Get("/order-items", h.filterItems)
		r.Get("/order-items/{id}", h.getItem)
		r.Put("/order-items/{id}/status", h.updateItemStatus)
	})

	return r
}

// placeOrderRequest — тело POST /api/orders. Итог передаётся в минимальных
// денежных единицах; при нулевом или отрицательном значении сервис считает
// сумму строк сам.
type placeOrderRequest struct {
	UserID     string           `json:"user_id"`
	TotalMinor int64            `json:"total_minor"`
	Items      []placeOrderItem `json:"items"`
}

type placeOrderItem struct {
	ProductID string `json:"product_id"`
	Qty       int32  `json:"qty"`
}

type orderItemView struct {
	ID         string    `json:"id"`
	OrderID    string    `json:"order_id"`
	ProductID  string    `json:"product_id"`
	UserID     string    `json:"user_id"`
	Qty        int32     `json:"qty"`
	PriceMinor int64     `json:"price_minor"`
	Status     string    `json:"status"`
	CreatedAt  time.Time `json:"created_at"`
	Product    *struct {
		Name       string `json:"name"`
		PriceMinor int64  `json:"price_minor"`
	} `json:"product,omitempty"`
	User *struct {
		Name  string `json:"name"`
		Email string `json:"email"`
	} `json:"user,omitempty"`
}

// itemListResponse повторяет envelope фронтового API магазина.
type itemListResponse struct {
	Status        int             `json:"status"`
	Message       string          `json:"message"`
	OrderItemList []orderItemView `json:"order_item_list"`
	TotalPage     int             `json:"total_page"`
	TotalElement  int64           `json:"total_element"`
}

type statusChangeView struct {
	From     string    `json:"from"`
	To       string    `json:"to"`
	Occurred time.Time `json:"occurred"`
}

func (h *Handler) placeOrder(w http.ResponseWriter, r *http.Request) {
	var req placeOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	requests := make([]orders.ItemRequest, 0, len(req.Items))
	for _, item := range req.Items {
		requests = append(requests, orders.ItemRequest{ProductID: item.ProductID, Qty: item.Qty})
	}

	orderID, err := h.service.PlaceOrder(req.UserID, requests, req.TotalMinor)
	if err != nil {
		h.respondError(w, err)
		return
	}

	h.writeJSON(w, http.StatusCreated, map[string]string{
		"order_id": orderID,
		"status":   "created",
	})
}

func (h *Handler) updateItemStatus(w http.ResponseWriter, r *http.Request) {
	itemID := chi.URLParam(r, "id")
	token := r.URL.Query().Get("status")
	if token == "" {
		h.writeError(w, http.StatusBadRequest, "status query parameter is required")
		return
	}

	item, err := h.service.UpdateItemStatus(itemID, token)
	if err != nil {
		h.respondError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, itemToView(item))
}

func (h *Handler) getItem(w http.ResponseWriter, r *http.Request) {
	itemID := chi.URLParam(r, "id")

	projection, history, err := h.service.GetItem(itemID)
	if err != nil {
		h.respondError(w, err)
		return
	}

	changes := make([]statusChangeView, 0, len(history))
	for _, change := range history {
		changes = append(changes, statusChangeView{
			From:     string(change.From),
			To:       string(change.To),
			Occurred: change.Occurred,
		})
	}

	h.writeJSON(w, http.StatusOK, map[string]any{
		"order_item": projectionToView(projection),
		"history":    changes,
	})
}

func (h *Handler) filterItems(w http.ResponseWriter, r *http.Request) {
	query, err := parseFilterQuery(r)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.service.FilterItems(query)
	if err != nil {
		h.respondError(w, err)
		return
	}

	views := make([]orderItemView, 0, len(result.Items))
	for _, projection := range result.Items {
		views = append(views, projectionToView(projection))
	}

	h.writeJSON(w, http.StatusOK, itemListResponse{
		Status:        http.StatusOK,
		Message:       "Successfully filtered order items",
		OrderItemList: views,
		TotalPage:     result.TotalPages,
		TotalElement:  result.TotalElements,
	})
}

// parseFilterQuery разбирает query-параметры GET /api/order-items.
// Даты принимаются в RFC 3339.
func parseFilterQuery(r *http.Request) (orders.FilterQuery, error) {
	values := r.URL.Query()
	query := orders.FilterQuery{
		StatusToken: values.Get("status"),
		ItemID:      values.Get("item_id"),
		SortBy:      values.Get("sort_by"),
		SortDesc:    values.Get("sort_dir") == "desc",
	}

	if raw := values.Get("start_date"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return orders.FilterQuery{}, errors.New("start_date must be RFC 3339")
		}
		query.CreatedFrom = &parsed
	}
	if raw := values.Get("end_date"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return orders.FilterQuery{}, errors.New("end_date must be RFC 3339")
		}
		query.CreatedTo = &parsed
	}
	if raw := values.Get("page"); raw != "" {
		page, err := strconv.Atoi(raw)
		if err != nil || page < 0 {
			return orders.FilterQuery{}, errors.New("page must be a non-negative integer")
		}
		query.Page = page
	}
	if raw := values.Get("size"); raw != "" {
		size, err := strconv.Atoi(raw)
		if err != nil || size < 0 {
			return orders.FilterQuery{}, errors.New("size must be a non-negative integer")
		}
		query.Size = size
	}

	return query, nil
}

func projectionToView(projection orders.ItemProjection) orderItemView {
	view := itemToView(projection.Item)
	if projection.Product.ID != "" {
		view.Product = &struct {
			Name       string `json:"name"`
			PriceMinor int64  `json:"price_minor"`
		}{Name: projection.Product.Name, PriceMinor: projection.Product.PriceMinor}
	}
	if projection.User.ID != "" {
		view.User = &struct {
			Name  string `json:"name"`
			Email string `json:"email"`
		}{Name: projection.User.Name, Email: projection.User.Email}
	}
	return view
}

func itemToView(item domain.OrderItem) orderItemView {
	return orderItemView{
		ID:         item.ID,
		OrderID:    item.OrderID,
		ProductID:  item.ProductID,
		UserID:     item.UserID,
		Qty:        item.Qty,
		PriceMinor: item.PriceMinor,
		Status:     string(item.Status),
		CreatedAt:  item.CreatedAt,
	}
}

// respondError переводит доменные ошибки в HTTP-статусы.
func (h *Handler) respondError(w http.ResponseWriter, err error) {
	switch {
	case domain.IsNotFound(err):
		h.writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrUnknownStatus),
		errors.Is(err, domain.ErrItemsRequired),
		errors.Is(err, domain.ErrItemQtyInvalid),
		errors.Is(err, domain.ErrItemPriceInvalid),
		errors.Is(err, domain.ErrUserRequired),
		errors.Is(err, domain.ErrProductRequired),
		errors.Is(err, domain.ErrTotalNegative):
		h.writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrOrderAlreadyExists):
		h.writeError(w, http.StatusConflict, err.Error())
	default:
		h.logger.WithError(err).Error("internal error")
		h.writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

func (h *Handler) writeError(w http.ResponseWriter, code int, message string) {
	h.writeJSON(w, code, map[string]any{
		"status":  code,
		"message": message,
	})
}

func (h *Handler) writeJSON(w http.ResponseWriter, code int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.logger.WithError(err).Warn("failed to encode response")
	}
}
