package api

import (
	"encoding/json"
	"net/http"

	"github.com/example/order-engine/internal/api/middleware"
	"github.com/example/order-engine/internal/domain/payment"
	"github.com/go-chi/chi/v5"
)

// PaymentMethodHandlers exposes the card vault over HTTP.
type PaymentMethodHandlers struct {
	vault *payment.Service
}

func NewPaymentMethodHandlers(vault *payment.Service) *PaymentMethodHandlers {
	return &PaymentMethodHandlers{vault: vault}
}

func (h *PaymentMethodHandlers) ListMethods(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	methods, err := h.vault.List(r.Context(), userID)
	if err != nil {
		respondErr(w, err)
		return
	}
	if methods == nil {
		methods = []payment.Method{}
	}
	respondData(w, http.StatusOK, methods)
}

func (h *PaymentMethodHandlers) AddMethod(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var body struct {
		HolderName string `json:"holder_name"`
		CardNumber string `json:"card_number"`
		ExpMonth   int    `json:"exp_month"`
		ExpYear    int    `json:"exp_year"`
		CVV        string `json:"cvv"`
		IsDefault  bool   `json:"is_default"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondFailure(w, http.StatusBadRequest, "invalid request body")
		return
	}

	method, err := h.vault.AddMethod(r.Context(), userID, payment.CardInput{
		HolderName: body.HolderName,
		Number:     body.CardNumber,
		ExpMonth:   body.ExpMonth,
		ExpYear:    body.ExpYear,
		CVV:        body.CVV,
		SetDefault: body.IsDefault,
	})
	if err != nil {
		respondErr(w, err)
		return
	}
	respondData(w, http.StatusCreated, method)
}

func (h *PaymentMethodHandlers) SetDefaultMethod(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	methodID := chi.URLParam(r, "id")

	if err := h.vault.SetDefault(r.Context(), userID, methodID); err != nil {
		respondErr(w, err)
		return
	}
	respondMessage(w, http.StatusOK, "")
}

func (h *PaymentMethodHandlers) DeactivateMethod(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	methodID := chi.URLParam(r, "id")

	if err := h.vault.Deactivate(r.Context(), userID, methodID); err != nil {
		respondErr(w, err)
		return
	}
	respondMessage(w, http.StatusOK, "")
}
