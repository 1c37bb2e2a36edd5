package handler

import (
	"net/http"
	"strings"

	"cinetrivia/internal/domain"
	"cinetrivia/internal/service"
	apperrors "cinetrivia/pkg/errors"
	"cinetrivia/pkg/logger"
)

// AuthHandler serves the admin login and token verification endpoints.
type AuthHandler struct {
	auth   *service.AuthService
	logger *logger.Logger
}

func NewAuthHandler(auth *service.AuthService, log *logger.Logger) *AuthHandler {
	return &AuthHandler{
		auth:   auth,
		logger: log,
	}
}

// Login handles POST /api/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req domain.LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, err, h.logger)
		return
	}

	resp, err := h.auth.Login(r.Context(), &req)
	if err != nil {
		respondError(w, r, err, h.logger)
		return
	}
	respondJSON(w, http.StatusOK, resp)
}

// Verify handles GET /api/auth/verify
func (h *AuthHandler) Verify(w http.ResponseWriter, r *http.Request) {
	authHeader := r.Header.Get("Authorization")
	if !strings.HasPrefix(authHeader, "Bearer ") {
		respondError(w, r, apperrors.NewAuthenticationError("Authorization header is required"), h.logger)
		return
	}

	claims, err := h.auth.Verify(r.Context(), strings.TrimPrefix(authHeader, "Bearer "))
	if err != nil {
		respondError(w, r, err, h.logger)
		return
	}
	respondJSON(w, http.StatusOK, claims)
}
