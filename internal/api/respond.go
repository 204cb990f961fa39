package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/example/order-engine/internal/domain/errs"
)

type envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
}

func respondData(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(envelope{Success: true, Data: data})
}

func respondMessage(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(envelope{Success: true, Message: message})
}

func respondFailure(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(envelope{Success: false, Message: message})
}

// respondErr translates the domain error taxonomy into HTTP responses.
// Storage error detail stays in the logs; clients get a generic message.
func respondErr(w http.ResponseWriter, err error) {
	switch {
	case errs.IsValidation(err):
		respondFailure(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, errs.ErrNotFound):
		respondFailure(w, http.StatusNotFound, err.Error())
	case errors.Is(err, errs.ErrInvalidTransition):
		respondFailure(w, http.StatusBadRequest, err.Error())
	default:
		log.Printf("[API] Internal error: %v", err)
		respondFailure(w, http.StatusInternalServerError, "internal server error")
	}
}
