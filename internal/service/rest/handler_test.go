package rest_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/bazarpepe/orders/internal/domain"
	"github.com/bazarpepe/orders/internal/service/orders"
	"github.com/bazarpepe/orders/internal/service/pricing"
	"github.com/bazarpepe/orders/internal/service/rest"
	"github.com/bazarpepe/orders/internal/storage/memory"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	store := memory.NewStore()
	products := memory.NewProductRepository(store)
	users := memory.NewUserRepository(store)

	products.Put(domain.Product{ID: "product-1", Name: "teapot", PriceMinor: 1999})
	products.Put(domain.Product{ID: "product-2", Name: "cup", PriceMinor: 501})
	users.Put(domain.User{ID: "user-1", Name: "Pepe", Email: "pepe@example.com"})

	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)
	entry := logger.WithField("component", "rest-test")

	service := orders.NewService(orders.Deps{
		Orders:  memory.NewOrderRepository(store),
		Items:   memory.NewOrderItemRepository(store),
		Pricing: pricing.NewResolver(products),
		Mapper:  orders.NewMapper(products, users),
		History: memory.NewStatusHistoryRepository(store),
		Outbox:  memory.NewOutboxRepository(store),
		Logger:  entry,
	})

	server := httptest.NewServer(rest.NewHandler(service, entry).Routes())
	t.Cleanup(server.Close)
	return server
}

func placeOrderViaAPI(t *testing.T, server *httptest.Server, body string) map[string]string {
	t.Helper()

	resp, err := http.Post(server.URL+"/api/orders", "application/json", bytes.NewBufferString(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var created map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))
	require.NotEmpty(t, created["order_id"])
	return created
}

func TestPlaceOrderEndpoint(t *testing.T) {
	server := newTestServer(t)

	created := placeOrderViaAPI(t, server, `{
		"user_id": "user-1",
		"items": [
			{"product_id": "product-1", "qty": 2},
			{"product_id": "product-2", "qty": 1}
		]
	}`)
	require.Equal(t, "created", created["status"])
}

func TestPlaceOrderEndpoint_UnknownProduct(t *testing.T) {
	server := newTestServer(t)

	resp, err := http.Post(server.URL+"/api/orders", "application/json", bytes.NewBufferString(`{
		"user_id": "user-1",
		"items": [{"product_id": "missing", "qty": 1}]
	}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestPlaceOrderEndpoint_BadBody(t *testing.T) {
	server := newTestServer(t)

	resp, err := http.Post(server.URL+"/api/orders", "application/json", bytes.NewBufferString(`{broken`))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func firstItemID(t *testing.T, server *httptest.Server) string {
	t.Helper()

	resp, err := http.Get(server.URL + "/api/order-items?size=1")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var envelope struct {
		OrderItemList []struct {
			ID string `json:"id"`
		} `json:"order_item_list"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&envelope))
	require.NotEmpty(t, envelope.OrderItemList)
	return envelope.OrderItemList[0].ID
}

func TestUpdateItemStatusEndpoint(t *testing.T) {
	server := newTestServer(t)
	placeOrderViaAPI(t, server, `{"user_id":"user-1","items":[{"product_id":"product-1","qty":1}]}`)
	itemID := firstItemID(t, server)

	req, err := http.NewRequest(http.MethodPut,
		fmt.Sprintf("%s/api/order-items/%s/status?status=SHIPPED", server.URL, itemID), nil)
	require.NoError(t, err)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var updated struct {
		Status string `json:"status"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&updated))
	require.Equal(t, "shipped", updated.Status)
}

func TestUpdateItemStatusEndpoint_UnknownToken(t *testing.T) {
	server := newTestServer(t)
	placeOrderViaAPI(t, server, `{"user_id":"user-1","items":[{"product_id":"product-1","qty":1}]}`)
	itemID := firstItemID(t, server)

	req, err := http.NewRequest(http.MethodPut,
		fmt.Sprintf("%s/api/order-items/%s/status?status=not_a_status", server.URL, itemID), nil)
	require.NoError(t, err)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestUpdateItemStatusEndpoint_NotFound(t *testing.T) {
	server := newTestServer(t)

	req, err := http.NewRequest(http.MethodPut, server.URL+"/api/order-items/ghost/status?status=shipped", nil)
	require.NoError(t, err)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestFilterItemsEndpoint_Envelope(t *testing.T) {
	server := newTestServer(t)
	placeOrderViaAPI(t, server, `{"user_id":"user-1","items":[{"product_id":"product-1","qty":1},{"product_id":"product-2","qty":1}]}`)

	resp, err := http.Get(server.URL + "/api/order-items?status=pending&size=10")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var envelope struct {
		Status        int    `json:"status"`
		Message       string `json:"message"`
		OrderItemList []struct {
			Status  string `json:"status"`
			Product *struct {
				Name string `json:"name"`
			} `json:"product"`
			User *struct {
				Email string `json:"email"`
			} `json:"user"`
		} `json:"order_item_list"`
		TotalPage    int   `json:"total_page"`
		TotalElement int64 `json:"total_element"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&envelope))
	require.Equal(t, http.StatusOK, envelope.Status)
	require.Len(t, envelope.OrderItemList, 2)
	require.Equal(t, int64(2), envelope.TotalElement)
	require.Equal(t, 1, envelope.TotalPage)

	item := envelope.OrderItemList[0]
	require.Equal(t, "pending", item.Status)
	require.NotNil(t, item.Product)
	require.NotNil(t, item.User)
	require.Equal(t, "pepe@example.com", item.User.Email)
}

func TestFilterItemsEndpoint_EmptyPageIs404(t *testing.T) {
	server := newTestServer(t)
	placeOrderViaAPI(t, server, `{"user_id":"user-1","items":[{"product_id":"product-1","qty":1}]}`)

	resp, err := http.Get(server.URL + "/api/order-items?status=returned")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestFilterItemsEndpoint_BadDates(t *testing.T) {
	server := newTestServer(t)

	resp, err := http.Get(server.URL + "/api/order-items?start_date=yesterday")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestGetItemEndpoint_WithHistory(t *testing.T) {
	server := newTestServer(t)
	placeOrderViaAPI(t, server, `{"user_id":"user-1","items":[{"product_id":"product-1","qty":1}]}`)
	itemID := firstItemID(t, server)

	req, err := http.NewRequest(http.MethodPut,
		fmt.Sprintf("%s/api/order-items/%s/status?status=confirmed", server.URL, itemID), nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()

	resp, err = http.Get(server.URL + "/api/order-items/" + itemID)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		OrderItem struct {
			ID     string `json:"id"`
			Status string `json:"status"`
		} `json:"order_item"`
		History []struct {
			From string `json:"from"`
			To   string `json:"to"`
		} `json:"history"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Equal(t, itemID, body.OrderItem.ID)
	require.Equal(t, "confirmed", body.OrderItem.Status)
	require.Len(t, body.History, 1)
	require.Equal(t, "pending", body.History[0].From)
	require.Equal(t, "confirmed", body.History[0].To)
}
