package httpapi

import (
	"math"
	"net/http"
	"strconv"
	"strings"

	"opspanel.org/internal/audit"
	"opspanel.org/internal/auth"
	"opspanel.org/internal/rbac"
	"opspanel.org/internal/store"
)

type createUserRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
	Status   string `json:"status"`
}

type updateUserRequest struct {
	Name     *string `json:"name"`
	Email    *string `json:"email"`
	Password *string `json:"password"`
	Role     *string `json:"role"`
	Status   *string `json:"status"`
}

type paginationResponse struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
}

func (a *API) handleUsersCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		a.listUsers(w, r)
	case http.MethodPost:
		a.createUser(w, r)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

func (a *API) handleUserResource(w http.ResponseWriter, r *http.Request) {
	id := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/users/"), "/")
	if id == "" || strings.Contains(id, "/") {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}
	switch r.Method {
	case http.MethodPut:
		a.updateUser(w, r, id)
	case http.MethodDelete:
		a.deleteUser(w, r, id)
	default:
		methodNotAllowed(w, r, http.MethodPut, http.MethodDelete)
	}
}

func (a *API) listUsers(w http.ResponseWriter, r *http.Request) {
	if _, failure := auth.RequireAPIAccess(r, http.MethodGet, "/api/users"); failure != nil {
		writeFailure(w, r, failure)
		return
	}

	query := r.URL.Query()
	page, err := parsePositiveInt(query.Get("page"), 1, 1, math.MaxInt32)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "page must be a positive integer")
		return
	}
	limit, err := parsePositiveInt(query.Get("limit"), 10, 1, 100)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "limit must be between 1 and 100")
		return
	}

	users, total, err := a.users.List(r.Context(), store.ListQuery{
		Page:   page,
		Limit:  limit,
		Search: query.Get("search"),
	})
	if err != nil {
		handleStoreError(w, r, err)
		return
	}
	if users == nil {
		users = []*store.User{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"users":   users,
		"pagination": paginationResponse{
			Page:       page,
			Limit:      limit,
			Total:      total,
			TotalPages: int(math.Ceil(float64(total) / float64(limit))),
		},
	})
}

func (a *API) createUser(w http.ResponseWriter, r *http.Request) {
	identity, failure := auth.RequireAPIAccess(r, http.MethodPost, "/api/users")
	if failure != nil {
		writeFailure(w, r, failure)
		return
	}

	var req createUserRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.TrimSpace(req.Email)
	if req.Name == "" || req.Email == "" || req.Password == "" {
		writeError(w, r, http.StatusBadRequest, "Name, email and password are required")
		return
	}
	role := rbac.NormalizeRole(req.Role)
	if role == "" {
		role = rbac.RoleUser
	}
	if !rbac.KnownRole(role) {
		writeError(w, r, http.StatusBadRequest, "unknown role")
		return
	}

	hash, err := store.HashPassword(req.Password)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "internal error")
		return
	}
	user := &store.User{
		Name:         req.Name,
		Email:        req.Email,
		PasswordHash: hash,
		Role:         role,
		Status:       strings.TrimSpace(strings.ToLower(req.Status)),
	}
	ctx := auth.ContextWithIdentity(r.Context(), identity)
	if err := a.users.Create(ctx, user); err != nil {
		handleStoreError(w, r, err)
		return
	}

	_ = audit.LogEvent(ctx, "users.create", map[string]any{
		"target_id": user.ID,
		"role":      string(user.Role),
	})
	w.Header().Set("Location", "/api/users/"+user.ID)
	writeJSON(w, http.StatusCreated, map[string]any{
		"success": true,
		"user":    user,
	})
}

func (a *API) updateUser(w http.ResponseWriter, r *http.Request, id string) {
	identity, failure := auth.RequireAPIAccess(r, http.MethodPut, "/api/users/{id}")
	if failure != nil {
		writeFailure(w, r, failure)
		return
	}

	var req updateUserRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	upd := store.UserUpdate{
		Name:   req.Name,
		Email:  req.Email,
		Status: req.Status,
	}
	if req.Role != nil {
		role := rbac.NormalizeRole(*req.Role)
		if !rbac.KnownRole(role) {
			writeError(w, r, http.StatusBadRequest, "unknown role")
			return
		}
		upd.Role = &role
	}
	if req.Password != nil {
		if strings.TrimSpace(*req.Password) == "" {
			writeError(w, r, http.StatusBadRequest, "password must not be empty")
			return
		}
		hash, err := store.HashPassword(*req.Password)
		if err != nil {
			writeError(w, r, http.StatusInternalServerError, "internal error")
			return
		}
		upd.PasswordHash = &hash
	}

	ctx := auth.ContextWithIdentity(r.Context(), identity)
	user, err := a.users.Update(ctx, id, upd)
	if err != nil {
		handleStoreError(w, r, err)
		return
	}

	_ = audit.LogEvent(ctx, "users.update", map[string]any{"target_id": id})
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"user":    user,
	})
}

func (a *API) deleteUser(w http.ResponseWriter, r *http.Request, id string) {
	identity, failure := auth.RequireAPIAccess(r, http.MethodDelete, "/api/users/{id}")
	if failure != nil {
		writeFailure(w, r, failure)
		return
	}
	if identity.UserID == id {
		writeError(w, r, http.StatusBadRequest, "cannot delete your own account")
		return
	}

	ctx := auth.ContextWithIdentity(r.Context(), identity)
	if err := a.users.Delete(ctx, id); err != nil {
		handleStoreError(w, r, err)
		return
	}

	_ = audit.LogEvent(ctx, "users.delete", map[string]any{"target_id": id})
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "User deleted",
	})
}

func parsePositiveInt(raw string, def, min, max int) (int, error) {
	if strings.TrimSpace(raw) == "" {
		return def, nil
	}
	val, err := strconv.Atoi(raw)
	if err != nil || val < min || val > max {
		return 0, strconv.ErrRange
	}
	return val, nil
}
