package handler

import (
	"context"
	"net/http"

	"github.com/Shivanand-hulikatti/event-scheduler/internal/model"
	"github.com/rs/zerolog/hlog"
)

// IdentityManager is the identity API the handlers depend on.
type IdentityManager interface {
	Register(ctx context.Context, req model.RegisterRequest) (*model.AuthResponse, error)
	Login(ctx context.Context, req model.LoginRequest) (*model.AuthResponse, error)
	VerifyToken(token string) (string, error)
	CurrentUser(ctx context.Context, userID string) (*model.PublicUser, error)
}

// AuthHandler handles registration, login and the current-user lookup.
type AuthHandler struct {
	svc IdentityManager
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(svc IdentityManager) *AuthHandler {
	return &AuthHandler{svc: svc}
}

// Register handles POST /api/auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req model.RegisterRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, string(model.KindValidation), "invalid request body")
		return
	}

	resp, err := h.svc.Register(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	hlog.FromRequest(r).Info().Str("user_id", resp.User.ID).Msg("user registered")
	writeJSON(w, http.StatusCreated, resp)
}

// Login handles POST /api/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req model.LoginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, string(model.KindValidation), "invalid request body")
		return
	}

	resp, err := h.svc.Login(r.Context(), req)
	if err != nil {
		if model.KindOf(err) == model.KindAuth {
			hlog.FromRequest(r).Warn().Str("email", req.Email).Msg("failed authentication attempt")
		}
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// Me handles GET /api/auth/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, err := h.svc.CurrentUser(r.Context(), userID(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, user)
}
