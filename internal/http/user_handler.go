package http

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/felruizrojas/pasteleriaapp-sub000/internal/domain"
	"github.com/felruizrojas/pasteleriaapp-sub000/internal/users"
)

type UserService interface {
	Register(ctx context.Context, reg users.Registration) (*domain.UserProfile, error)
	Authenticate(ctx context.Context, login, password string) (*domain.UserProfile, error)
	Get(ctx context.Context, id int64) (*domain.UserProfile, error)
}

type UserHandler struct {
	users   UserService
	timeout time.Duration
}

func NewUserHandler(users UserService, timeout time.Duration) *UserHandler {
	return &UserHandler{
		users:   users,
		timeout: timeout,
	}
}

type RegisterRequestDTO struct {
	Name      string `json:"name"`
	RUN       string `json:"run"`
	Email     string `json:"email"`
	Birthdate string `json:"birthdate"`
	Password  string `json:"password"`
}

type LoginRequestDTO struct {
	Login    string `json:"login"`
	Password string `json:"password"`
}

type UserResponseDTO struct {
	ID                   int64  `json:"id"`
	Name                 string `json:"name"`
	RUN                  string `json:"run"`
	Email                string `json:"email"`
	Birthdate            string `json:"birthdate"`
	HasAgeDiscount       bool   `json:"has_age_discount"`
	HasPromoCodeDiscount bool   `json:"has_promo_code_discount"`
	IsEligibleStudent    bool   `json:"is_eligible_student"`
}

func convertUser(u *domain.UserProfile) UserResponseDTO {
	return UserResponseDTO{
		ID:                   u.ID,
		Name:                 u.Name,
		RUN:                  u.RUN,
		Email:                u.Email,
		Birthdate:            u.Birthdate,
		HasAgeDiscount:       u.HasAgeDiscount,
		HasPromoCodeDiscount: u.HasPromoCodeDiscount,
		IsEligibleStudent:    u.IsEligibleStudent,
	}
}

// POST /api/v1/users
func (h *UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req RegisterRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	user, err := h.users.Register(ctx, users.Registration{
		Name:      req.Name,
		RUN:       req.RUN,
		Email:     req.Email,
		Birthdate: req.Birthdate,
		Password:  req.Password,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, convertUser(user))
}

// POST /api/v1/login
func (h *UserHandler) Login(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req LoginRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	user, err := h.users.Authenticate(ctx, req.Login, req.Password)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, convertUser(user))
}

// GET /api/v1/me
func (h *UserHandler) Profile(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	userID := getUserIDFromContext(r.Context())
	if userID == 0 {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}

	user, err := h.users.Get(ctx, userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, convertUser(user))
}
