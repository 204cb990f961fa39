package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/example/order-engine/internal/api/middleware"
	"github.com/example/order-engine/internal/domain/order"
	"github.com/go-chi/chi/v5"
)

// OrderHandlers exposes the order engine over HTTP. The acting user is
// always taken from the authenticated request context and passed down
// explicitly; the domain layer never reads ambient state.
type OrderHandlers struct {
	orders *order.Service
}

func NewOrderHandlers(orders *order.Service) *OrderHandlers {
	return &OrderHandlers{orders: orders}
}

func (h *OrderHandlers) CreateOrder(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var in order.CreateInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		respondFailure(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.orders.CreateOrder(r.Context(), userID, in)
	if err != nil {
		respondErr(w, err)
		return
	}
	respondData(w, http.StatusCreated, result)
}

func (h *OrderHandlers) GetOrders(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	orders, pagination, err := h.orders.GetOrders(r.Context(), userID, page, limit)
	if err != nil {
		respondErr(w, err)
		return
	}
	respondData(w, http.StatusOK, map[string]any{
		"orders":     orders,
		"pagination": pagination,
	})
}

func (h *OrderHandlers) GetOrder(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	orderID := chi.URLParam(r, "id")

	detail, err := h.orders.GetOrderDetail(r.Context(), userID, orderID)
	if err != nil {
		respondErr(w, err)
		return
	}
	respondData(w, http.StatusOK, detail)
}

func (h *OrderHandlers) CancelOrder(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	orderID := chi.URLParam(r, "id")

	if err := h.orders.CancelOrder(r.Context(), userID, orderID); err != nil {
		respondErr(w, err)
		return
	}
	respondMessage(w, http.StatusOK, "order cancelled")
}

// UpdateOrderStatus drives an operator transition. The route is gated by
// the admin role in the router.
func (h *OrderHandlers) UpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	claims, _ := middleware.GetUserFromContext(r.Context())
	orderID := chi.URLParam(r, "id")

	var body struct {
		Status order.Status `json:"status"`
		Note   string       `json:"note"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondFailure(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.orders.UpdateStatus(r.Context(), orderID, body.Status, body.Note, claims.UserID); err != nil {
		respondErr(w, err)
		return
	}
	respondMessage(w, http.StatusOK, "order status updated")
}
