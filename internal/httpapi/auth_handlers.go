package httpapi

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"opspanel.org/internal/audit"
	"opspanel.org/internal/auth"
	"opspanel.org/internal/rbac"
	"opspanel.org/internal/store"
	"opspanel.org/internal/token"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Token   string      `json:"token"`
	User    *store.User `json:"user"`
}

// profileResponse is the /api/auth/me payload: the stored profile plus
// the permission set resolved from the role catalog.
type profileResponse struct {
	*store.User
	Permissions []rbac.Permission `json:"permissions"`
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}

	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	req.Email = strings.TrimSpace(req.Email)
	if req.Email == "" || req.Password == "" {
		writeError(w, r, http.StatusBadRequest, "Email and password are required")
		return
	}

	user, err := a.users.FindByEmail(r.Context(), req.Email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, r, http.StatusUnauthorized, "Invalid email or password")
			return
		}
		handleStoreError(w, r, err)
		return
	}
	if !user.Active() {
		writeError(w, r, http.StatusForbidden, "Account is deactivated. Please contact administrator.")
		return
	}
	if err := store.VerifyPassword(user.PasswordHash, req.Password); err != nil {
		writeError(w, r, http.StatusUnauthorized, "Invalid email or password")
		return
	}

	identity := token.Identity{UserID: user.ID, Email: user.Email, Role: user.Role}
	signed, expiresAt, err := token.Sign(identity, a.tokenTTL)
	if err != nil {
		if errors.Is(err, token.ErrMissingSecret) {
			writeError(w, r, http.StatusInternalServerError, "Server configuration error")
			return
		}
		writeError(w, r, http.StatusInternalServerError, "token generation failed")
		return
	}

	_ = audit.LogEvent(r.Context(), "auth.login", map[string]any{
		"user_id":    user.ID,
		"email":      user.Email,
		"role":       string(user.Role),
		"expires_at": expiresAt.UTC().Format(time.RFC3339),
	})

	writeJSON(w, http.StatusOK, loginResponse{
		Success: true,
		Message: "Login successful",
		Token:   signed,
		User:    user,
	})
}

func (a *API) handleMe(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}

	identity, failure := auth.RequirePermission(r, rbac.PermDashboardView)
	if failure != nil {
		writeFailure(w, r, failure)
		return
	}

	user, err := a.users.Find(r.Context(), identity.UserID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, r, http.StatusNotFound, "User not found")
			return
		}
		handleStoreError(w, r, err)
		return
	}
	if !user.Active() {
		writeError(w, r, http.StatusForbidden, "Account is deactivated")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"user": profileResponse{
			User:        user,
			Permissions: rbac.RolePermissions(user.Role),
		},
	})
}

func (a *API) handleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}

	// Credentials are stateless; the client discards its copy. The event
	// is still worth an audit line when the caller identifies itself.
	ctx := r.Context()
	if identity, failure := auth.Authenticate(r); failure == nil {
		ctx = auth.ContextWithIdentity(ctx, identity)
	}
	_ = audit.LogEvent(ctx, "auth.logout", nil)

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Logout successful",
	})
}
