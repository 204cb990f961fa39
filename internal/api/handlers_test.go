package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/example/order-engine/internal/api"
	"github.com/example/order-engine/internal/auth"
	"github.com/example/order-engine/internal/domain/address"
	"github.com/example/order-engine/internal/domain/catalog"
	"github.com/example/order-engine/internal/domain/order"
	"github.com/example/order-engine/internal/domain/payment"
	"github.com/example/order-engine/internal/infrastructure/store/mocks"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// apiEnv wires the full router against in-memory stores, so requests
// exercise auth, routing, handlers, and the domain services together.
type apiEnv struct {
	router     http.Handler
	jwtService *auth.JWTService
	orders     *mocks.MockOrderStore
	vault      *mocks.MockPaymentMethodStore
	catalog    *mocks.MockCatalogStore
	addresses  *mocks.MockAddressStore
}

func newAPIEnv(t *testing.T) *apiEnv {
	t.Helper()

	orderStore := mocks.NewMockOrderStore()
	vaultStore := mocks.NewMockPaymentMethodStore()
	catalogStore := mocks.NewMockCatalogStore()
	addressStore := mocks.NewMockAddressStore()
	jwtService := auth.NewJWTService("test-secret-key", 15*time.Minute)

	vault := payment.NewService(vaultStore, "test-vault-secret")
	orders := order.NewService(orderStore, catalogStore, addressStore, vault, mocks.NewMockPublisher())

	router := api.NewRouter(api.RouterConfig{
		Orders:         api.NewOrderHandlers(orders),
		PaymentMethods: api.NewPaymentMethodHandlers(vault),
		JWTService:     jwtService,
	})

	return &apiEnv{
		router:     router,
		jwtService: jwtService,
		orders:     orderStore,
		vault:      vaultStore,
		catalog:    catalogStore,
		addresses:  addressStore,
	}
}

func (e *apiEnv) request(t *testing.T, method, path string, body any, token string) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func (e *apiEnv) tokenFor(t *testing.T, userID, role string) string {
	t.Helper()
	token, _, err := e.jwtService.GenerateAccessToken(userID, role)
	require.NoError(t, err)
	return token
}

func (e *apiEnv) seedCatalog() {
	e.catalog.Add(&catalog.Product{ID: "prod-1", Name: "Mechanical Keyboard", Price: 100, Image: "kb.jpg"})
	e.catalog.Add(&catalog.Product{ID: "prod-2", Name: "Mouse Pad", Price: 50, Image: "pad.jpg"})
}

func (e *apiEnv) seedAddress(userID string) {
	e.addresses.Add(&address.Address{
		ID:         "addr-1",
		UserID:     userID,
		Recipient:  "Jo Doe",
		Phone:      "090-0000-0000",
		Line1:      "1-2-3 Chiyoda",
		City:       "Tokyo",
		Province:   "Tokyo",
		PostalCode: "100-0001",
	})
}

func (e *apiEnv) seedPendingOrder(userID, orderID string) {
	now := time.Now()
	e.orders.SeedOrder(&order.Order{
		ID:            orderID,
		Number:        "ORD-20250829-ABCDEF",
		UserID:        userID,
		Status:        order.StatusPending,
		Subtotal:      250,
		ShippingCost:  15,
		TotalAmount:   265,
		PaymentStatus: order.PaymentPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}, []order.Item{{
		ID:          uuid.New().String(),
		OrderID:     orderID,
		ProductID:   "prod-1",
		ProductName: "Mechanical Keyboard",
		Quantity:    2,
		UnitPrice:   100,
		TotalPrice:  200,
		CreatedAt:   now,
	}}, nil, []order.StatusHistory{{
		ID:        uuid.New().String(),
		OrderID:   orderID,
		Status:    order.StatusPending,
		Note:      "order created",
		CreatedAt: now,
	}})
}

func createOrderBody() map[string]any {
	return map[string]any{
		"address_id": "addr-1",
		"items": []map[string]any{
			{"product_id": "prod-1", "quantity": 2, "unit_price": 100},
			{"product_id": "prod-2", "quantity": 1, "unit_price": 50},
		},
		"subtotal":      250,
		"shipping_cost": 15,
	}
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

// ============================================
// Auth Gate Tests
// ============================================

func TestAPI_RequiresAuthentication(t *testing.T) {
	env := newAPIEnv(t)

	tests := []struct {
		method string
		path   string
	}{
		{http.MethodPost, "/orders"},
		{http.MethodGet, "/orders"},
		{http.MethodGet, "/orders/o-1"},
		{http.MethodPatch, "/orders/o-1/cancel"},
		{http.MethodGet, "/api/payment-methods"},
		{http.MethodPost, "/api/payment-methods"},
		{http.MethodPatch, "/admin/orders/o-1/status"},
	}
	for _, tt := range tests {
		rec := env.request(t, tt.method, tt.path, nil, "")
		assert.Equal(t, http.StatusUnauthorized, rec.Code, "%s %s", tt.method, tt.path)
	}
}

// ============================================
// Order Endpoint Tests
// ============================================

func TestCreateOrder_Success(t *testing.T) {
	env := newAPIEnv(t)
	env.seedCatalog()
	env.seedAddress("user-1")
	token := env.tokenFor(t, "user-1", "customer")

	rec := env.request(t, http.MethodPost, "/orders", createOrderBody(), token)

	require.Equal(t, http.StatusCreated, rec.Code)
	body := decodeEnvelope(t, rec)
	assert.Equal(t, true, body["success"])
	data := body["data"].(map[string]any)
	assert.Equal(t, float64(265), data["total_amount"])
	assert.Equal(t, "pending", data["status"])
	assert.NotEmpty(t, data["order_number"])
	assert.Equal(t, 1, env.orders.OrderCount())
}

func TestCreateOrder_SubtotalMismatch(t *testing.T) {
	env := newAPIEnv(t)
	env.seedCatalog()
	env.seedAddress("user-1")
	token := env.tokenFor(t, "user-1", "customer")

	body := createOrderBody()
	body["subtotal"] = 999
	rec := env.request(t, http.MethodPost, "/orders", body, token)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "subtotal")
	assert.Equal(t, 0, env.orders.OrderCount())
}

func TestCreateOrder_MalformedBody(t *testing.T) {
	env := newAPIEnv(t)
	token := env.tokenFor(t, "user-1", "customer")

	req := httptest.NewRequest(http.MethodPost, "/orders", bytes.NewBufferString("{not json"))
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid request body")
}

func TestGetOrders_Pagination(t *testing.T) {
	env := newAPIEnv(t)
	token := env.tokenFor(t, "user-1", "customer")
	env.seedPendingOrder("user-1", "o-1")
	env.seedPendingOrder("user-2", "o-2")

	rec := env.request(t, http.MethodGet, "/orders?page=1&limit=10", nil, token)

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeEnvelope(t, rec)
	data := body["data"].(map[string]any)
	orders := data["orders"].([]any)
	require.Len(t, orders, 1)
	pagination := data["pagination"].(map[string]any)
	assert.Equal(t, float64(1), pagination["total"])
	assert.Equal(t, float64(10), pagination["limit"])
}

func TestGetOrder_Detail(t *testing.T) {
	env := newAPIEnv(t)
	token := env.tokenFor(t, "user-1", "customer")
	env.seedPendingOrder("user-1", "o-1")

	rec := env.request(t, http.MethodGet, "/orders/o-1", nil, token)

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeEnvelope(t, rec)
	data := body["data"].(map[string]any)
	assert.Equal(t, "o-1", data["order"].(map[string]any)["id"])
	assert.Len(t, data["items"].([]any), 1)
	assert.Len(t, data["status_history"].([]any), 1)
	// no payment yet, but the field is present and empty
	assert.Empty(t, data["payments"].([]any))
}

func TestGetOrder_ForeignOrderIsNotFound(t *testing.T) {
	env := newAPIEnv(t)
	env.seedPendingOrder("user-2", "o-2")
	token := env.tokenFor(t, "user-1", "customer")

	rec := env.request(t, http.MethodGet, "/orders/o-2", nil, token)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "not found")
}

func TestCancelOrder_Success(t *testing.T) {
	env := newAPIEnv(t)
	token := env.tokenFor(t, "user-1", "customer")
	env.seedPendingOrder("user-1", "o-1")

	rec := env.request(t, http.MethodPatch, "/orders/o-1/cancel", nil, token)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "order cancelled")

	o, err := env.orders.GetOrder(context.Background(), "user-1", "o-1")
	require.NoError(t, err)
	assert.Equal(t, order.StatusCancelled, o.Status)
}

func TestCancelOrder_ShippedOrderRejected(t *testing.T) {
	env := newAPIEnv(t)
	token := env.tokenFor(t, "user-1", "customer")
	env.seedPendingOrder("user-1", "o-1")
	require.NoError(t, env.orders.Transition(context.Background(), "o-1", []order.Status{order.StatusPending}, order.StatusConfirmed, order.StatusHistory{ID: "h-2", OrderID: "o-1", Status: order.StatusConfirmed}))
	require.NoError(t, env.orders.Transition(context.Background(), "o-1", []order.Status{order.StatusConfirmed}, order.StatusProcessing, order.StatusHistory{ID: "h-3", OrderID: "o-1", Status: order.StatusProcessing}))
	require.NoError(t, env.orders.Transition(context.Background(), "o-1", []order.Status{order.StatusProcessing}, order.StatusShipped, order.StatusHistory{ID: "h-4", OrderID: "o-1", Status: order.StatusShipped}))

	rec := env.request(t, http.MethodPatch, "/orders/o-1/cancel", nil, token)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "can no longer be cancelled")
}

// ============================================
// Admin Endpoint Tests
// ============================================

func TestUpdateOrderStatus_AdminOnly(t *testing.T) {
	env := newAPIEnv(t)
	env.seedPendingOrder("user-1", "o-1")

	customerToken := env.tokenFor(t, "user-1", "customer")
	rec := env.request(t, http.MethodPatch, "/admin/orders/o-1/status",
		map[string]any{"status": "confirmed"}, customerToken)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	adminToken := env.tokenFor(t, "admin-1", "admin")
	rec = env.request(t, http.MethodPatch, "/admin/orders/o-1/status",
		map[string]any{"status": "confirmed", "note": "verified by support"}, adminToken)
	require.Equal(t, http.StatusOK, rec.Code)

	o, err := env.orders.GetOrderAny(context.Background(), "o-1")
	require.NoError(t, err)
	assert.Equal(t, order.StatusConfirmed, o.Status)

	history, _ := env.orders.GetHistory(context.Background(), "o-1")
	require.Len(t, history, 2)
	assert.Equal(t, "verified by support", history[1].Note)
	assert.Equal(t, "admin-1", history[1].Actor)
}

func TestUpdateOrderStatus_IllegalTransition(t *testing.T) {
	env := newAPIEnv(t)
	env.seedPendingOrder("user-1", "o-1")
	adminToken := env.tokenFor(t, "admin-1", "admin")

	rec := env.request(t, http.MethodPatch, "/admin/orders/o-1/status",
		map[string]any{"status": "delivered"}, adminToken)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "cannot transition")
}

func TestUpdateOrderStatus_UnknownStatus(t *testing.T) {
	env := newAPIEnv(t)
	env.seedPendingOrder("user-1", "o-1")
	adminToken := env.tokenFor(t, "admin-1", "admin")

	rec := env.request(t, http.MethodPatch, "/admin/orders/o-1/status",
		map[string]any{"status": "refunded"}, adminToken)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "unknown status")
}

// ============================================
// Payment Method Endpoint Tests
// ============================================

func addMethodBody() map[string]any {
	return map[string]any{
		"holder_name": "Jo Doe",
		"card_number": "4111 1111 1111 1111",
		"exp_month":   12,
		"exp_year":    2035,
		"cvv":         "123",
	}
}

func TestAddPaymentMethod_Success(t *testing.T) {
	env := newAPIEnv(t)
	token := env.tokenFor(t, "user-1", "customer")

	rec := env.request(t, http.MethodPost, "/api/payment-methods", addMethodBody(), token)

	require.Equal(t, http.StatusCreated, rec.Code)
	body := decodeEnvelope(t, rec)
	data := body["data"].(map[string]any)
	assert.Equal(t, "visa", data["card_brand"])
	assert.Equal(t, "1111", data["card_last4"])
	// the token and fingerprint never leave the server
	assert.NotContains(t, rec.Body.String(), "tok_")
	assert.NotContains(t, rec.Body.String(), "4111 1111")
}

func TestAddPaymentMethod_BadCVV(t *testing.T) {
	env := newAPIEnv(t)
	token := env.tokenFor(t, "user-1", "customer")

	body := addMethodBody()
	body["cvv"] = "12"
	rec := env.request(t, http.MethodPost, "/api/payment-methods", body, token)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "cvv")
}

func TestListPaymentMethods_EmptyIsArray(t *testing.T) {
	env := newAPIEnv(t)
	token := env.tokenFor(t, "user-1", "customer")

	rec := env.request(t, http.MethodGet, "/api/payment-methods", nil, token)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"data":[]`)
}

func TestSetDefaultPaymentMethod_NotFound(t *testing.T) {
	env := newAPIEnv(t)
	token := env.tokenFor(t, "user-1", "customer")

	rec := env.request(t, http.MethodPatch, "/api/payment-methods/missing/set-default", nil, token)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDeactivatePaymentMethod(t *testing.T) {
	env := newAPIEnv(t)
	token := env.tokenFor(t, "user-1", "customer")

	rec := env.request(t, http.MethodPost, "/api/payment-methods", addMethodBody(), token)
	require.Equal(t, http.StatusCreated, rec.Code)
	id := decodeEnvelope(t, rec)["data"].(map[string]any)["id"].(string)

	rec = env.request(t, http.MethodDelete, "/api/payment-methods/"+id, nil, token)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.request(t, http.MethodGet, "/api/payment-methods", nil, token)
	assert.Contains(t, rec.Body.String(), `"data":[]`)
}

// ============================================
// Order With Payment Flow
// ============================================

func TestCreateOrder_WithStoredPaymentMethod(t *testing.T) {
	env := newAPIEnv(t)
	env.seedCatalog()
	env.seedAddress("user-1")
	token := env.tokenFor(t, "user-1", "customer")

	rec := env.request(t, http.MethodPost, "/api/payment-methods", addMethodBody(), token)
	require.Equal(t, http.StatusCreated, rec.Code)
	methodID := decodeEnvelope(t, rec)["data"].(map[string]any)["id"].(string)

	body := createOrderBody()
	body["payment_method_id"] = methodID
	rec = env.request(t, http.MethodPost, "/orders", body, token)

	require.Equal(t, http.StatusCreated, rec.Code)
	data := decodeEnvelope(t, rec)["data"].(map[string]any)
	assert.Equal(t, "confirmed", data["status"])

	orderID := data["order_id"].(string)
	rec = env.request(t, http.MethodGet, "/orders/"+orderID, nil, token)
	require.Equal(t, http.StatusOK, rec.Code)
	detail := decodeEnvelope(t, rec)["data"].(map[string]any)
	payments := detail["payments"].([]any)
	require.Len(t, payments, 1)
	assert.Equal(t, "completed", payments[0].(map[string]any)["status"])
	assert.Len(t, detail["status_history"].([]any), 2)
}

func TestCreateOrder_ForeignPaymentMethodRejected(t *testing.T) {
	env := newAPIEnv(t)
	env.seedCatalog()
	env.seedAddress("user-1")

	otherToken := env.tokenFor(t, "user-2", "customer")
	rec := env.request(t, http.MethodPost, "/api/payment-methods", addMethodBody(), otherToken)
	require.Equal(t, http.StatusCreated, rec.Code)
	methodID := decodeEnvelope(t, rec)["data"].(map[string]any)["id"].(string)

	token := env.tokenFor(t, "user-1", "customer")
	body := createOrderBody()
	body["payment_method_id"] = methodID
	rec = env.request(t, http.MethodPost, "/orders", body, token)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, 0, env.orders.OrderCount())
}
