package httptransport

import (
	"context"
	"encoding/json"
	"net/http"

	"unionvote/internal/auth"
	"unionvote/internal/platform/middleware"
	dErrors "unionvote/pkg/domain-errors"
	"unionvote/pkg/platform/httputil"
)

// AuthService is the slice of the auth service this handler needs.
type AuthService interface {
	Login(ctx context.Context, employeeID, pin, ip string) (*auth.LoginResult, error)
	Logout(ctx context.Context, principal middleware.Principal) error
}

type AuthHandler struct {
	auth AuthService
}

func (h *AuthHandler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		EmployeeID string `json:"employee_id"`
		PIN        string `json:"pin"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	result, err := h.auth.Login(r.Context(), req.EmployeeID, req.PIN, middleware.ClientIP(r))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, result)
}

func (h *AuthHandler) handleLogout(w http.ResponseWriter, r *http.Request) {
	principal, _ := middleware.GetPrincipal(r.Context())
	if err := h.auth.Logout(r.Context(), principal); err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"message": "logged out"})
}
