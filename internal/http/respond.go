package http

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/felruizrojas/pasteleriaapp-sub000/internal/cart"
	"github.com/felruizrojas/pasteleriaapp-sub000/internal/checkout"
	"github.com/felruizrojas/pasteleriaapp-sub000/internal/orders"
	"github.com/felruizrojas/pasteleriaapp-sub000/internal/repository"
	"github.com/felruizrojas/pasteleriaapp-sub000/internal/users"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("failed to encode response: %v", err)
	}
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, ErrorResponse{
		Error:   message,
		Code:    code,
		Details: "",
	})
}

// handleServiceError converts the service sentinels to HTTP status codes.
func handleServiceError(w http.ResponseWriter, err error) {
	var httpStatus int
	var code string

	switch {
	case errors.Is(err, repository.ErrOrderNotFound),
		errors.Is(err, repository.ErrCartLineNotFound),
		errors.Is(err, repository.ErrUserNotFound):
		httpStatus = http.StatusNotFound
		code = "not_found"
	case errors.Is(err, repository.ErrRUNTaken),
		errors.Is(err, repository.ErrEmailTaken):
		httpStatus = http.StatusConflict
		code = "already_exists"
	case errors.Is(err, users.ErrInvalidCredentials):
		httpStatus = http.StatusUnauthorized
		code = "invalid_credentials"
	case errors.Is(err, users.ErrAccountBlocked),
		errors.Is(err, checkout.ErrAccountBlocked):
		httpStatus = http.StatusForbidden
		code = "account_blocked"
	case errors.Is(err, users.ErrMissingField),
		errors.Is(err, cart.ErrInvalidQuantity),
		errors.Is(err, cart.ErrInvalidProduct),
		errors.Is(err, checkout.ErrInvalidCard),
		errors.Is(err, orders.ErrInvalidStatus):
		httpStatus = http.StatusBadRequest
		code = "invalid_argument"
	case errors.Is(err, checkout.ErrEmptyCart):
		httpStatus = http.StatusConflict
		code = "empty_cart"
	default:
		httpStatus = http.StatusInternalServerError
		code = "internal_error"
	}

	message := err.Error()
	if httpStatus == http.StatusInternalServerError {
		message = "internal server error" // never leak internals
	}

	respondError(w, httpStatus, code, message)
}
