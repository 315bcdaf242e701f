package session

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"opspanel.org/internal/auth"
	"opspanel.org/internal/rbac"
	"opspanel.org/internal/store"
)

// fakeAPI mimics the auth endpoints closely enough for client tests.
type fakeAPI struct {
	token       string
	mu          sync.Mutex
	user        store.User
	logoutCalls atomic.Int64
	rejectMe    atomic.Bool
}

func (f *fakeAPI) profile() store.User {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.user
}

func (f *fakeAPI) rename(name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.user.Name = name
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		token: "test-token",
		user: store.User{
			ID:     "u-1",
			Name:   "Test User",
			Email:  "user@example.com",
			Role:   rbac.RoleUser,
			Status: store.UserStatusActive,
		},
	}
}

func (f *fakeAPI) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/auth/login", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Email    string `json:"email"`
			Password string `json:"password"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		user := f.profile()
		if req.Email != user.Email || req.Password != "s3cret" {
			w.WriteHeader(http.StatusUnauthorized)
			_ = json.NewEncoder(w).Encode(map[string]any{"success": false, "error": "Invalid email or password"})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"success": true,
			"message": "Login successful",
			"token":   f.token,
			"user":    user,
		})
	})
	mux.HandleFunc("/api/auth/me", func(w http.ResponseWriter, r *http.Request) {
		if f.rejectMe.Load() || r.Header.Get("Authorization") != "Bearer "+f.token {
			w.WriteHeader(http.StatusUnauthorized)
			_ = json.NewEncoder(w).Encode(map[string]any{"success": false, "error": "Authentication required"})
			return
		}
		user := f.profile()
		_ = json.NewEncoder(w).Encode(map[string]any{
			"success": true,
			"user": map[string]any{
				"id":          user.ID,
				"name":        user.Name,
				"email":       user.Email,
				"role":        user.Role,
				"status":      user.Status,
				"permissions": rbac.RolePermissions(user.Role),
			},
		})
	})
	mux.HandleFunc("/api/auth/logout", func(w http.ResponseWriter, r *http.Request) {
		f.logoutCalls.Add(1)
		_ = json.NewEncoder(w).Encode(map[string]any{"success": true, "message": "Logout successful"})
	})
	return mux
}

func newTestManager(t *testing.T, srv *httptest.Server, opts ...Option) *Manager {
	t.Helper()
	m, err := New(srv.URL, opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return m
}

func TestLoginStoresStateAndCookie(t *testing.T) {
	api := newFakeAPI()
	srv := httptest.NewServer(api.handler())
	defer srv.Close()

	m := newTestManager(t, srv)
	if err := m.Login(context.Background(), "user@example.com", "s3cret", false); err != nil {
		t.Fatalf("Login: %v", err)
	}

	st := m.Snapshot()
	if !st.Authenticated || st.Token != "test-token" {
		t.Fatalf("unexpected state: %+v", st)
	}
	if st.User == nil || st.User.Email != "user@example.com" {
		t.Fatalf("unexpected user: %+v", st.User)
	}
	if len(st.Permissions) != 1 || st.Permissions[0] != rbac.PermDashboardView {
		t.Fatalf("unexpected permissions: %v", st.Permissions)
	}

	u, _ := url.Parse(srv.URL)
	var found bool
	for _, c := range m.jar.Cookies(u) {
		if c.Name == auth.CookieName && c.Value == "test-token" {
			found = true
		}
	}
	if !found {
		t.Fatal("expected authToken cookie in jar")
	}
}

func TestLoginRejectedLeavesStateUntouched(t *testing.T) {
	api := newFakeAPI()
	srv := httptest.NewServer(api.handler())
	defer srv.Close()

	m := newTestManager(t, srv)
	err := m.Login(context.Background(), "user@example.com", "wrong", false)
	if err == nil {
		t.Fatal("expected error")
	}
	if st := m.Snapshot(); st.Authenticated {
		t.Fatalf("state should stay anonymous: %+v", st)
	}
}

func TestLogoutIsIdempotent(t *testing.T) {
	api := newFakeAPI()
	srv := httptest.NewServer(api.handler())
	defer srv.Close()

	m := newTestManager(t, srv)
	if err := m.Login(context.Background(), "user@example.com", "s3cret", false); err != nil {
		t.Fatalf("Login: %v", err)
	}

	if err := m.Logout(context.Background()); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if st := m.Snapshot(); st.Authenticated || st.Token != "" {
		t.Fatalf("expected anonymous state: %+v", st)
	}

	// Second call: already anonymous, no server round trip, no error.
	if err := m.Logout(context.Background()); err != nil {
		t.Fatalf("second Logout: %v", err)
	}
	if got := api.logoutCalls.Load(); got != 1 {
		t.Fatalf("expected exactly one logout call, got %d", got)
	}
}

func TestLogoutClearsEvenWhenServerUnreachable(t *testing.T) {
	api := newFakeAPI()
	srv := httptest.NewServer(api.handler())

	m := newTestManager(t, srv)
	if err := m.Login(context.Background(), "user@example.com", "s3cret", false); err != nil {
		t.Fatalf("Login: %v", err)
	}

	srv.Close()
	_ = m.Logout(context.Background())
	if st := m.Snapshot(); st.Authenticated {
		t.Fatalf("local state must clear despite transport failure: %+v", st)
	}
}

func TestVerifyRefreshesProfile(t *testing.T) {
	api := newFakeAPI()
	srv := httptest.NewServer(api.handler())
	defer srv.Close()

	m := newTestManager(t, srv)
	if err := m.Login(context.Background(), "user@example.com", "s3cret", false); err != nil {
		t.Fatalf("Login: %v", err)
	}

	api.rename("Renamed User")
	if err := m.Verify(context.Background()); err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if st := m.Snapshot(); st.User == nil || st.User.Name != "Renamed User" {
		t.Fatalf("expected refreshed profile: %+v", st.User)
	}
}

func TestVerifyRejectionClearsState(t *testing.T) {
	api := newFakeAPI()
	srv := httptest.NewServer(api.handler())
	defer srv.Close()

	m := newTestManager(t, srv)
	if err := m.Login(context.Background(), "user@example.com", "s3cret", false); err != nil {
		t.Fatalf("Login: %v", err)
	}

	api.rejectMe.Store(true)
	err := m.Verify(context.Background())
	if err == nil {
		t.Fatal("expected rejection error")
	}
	if st := m.Snapshot(); st.Authenticated {
		t.Fatalf("expected cleared state: %+v", st)
	}

	// Verifying while anonymous is a no-op.
	if err := m.Verify(context.Background()); err != nil {
		t.Fatalf("anonymous Verify: %v", err)
	}
}

func TestSubscribeSeesTransitions(t *testing.T) {
	api := newFakeAPI()
	srv := httptest.NewServer(api.handler())
	defer srv.Close()

	m := newTestManager(t, srv)
	ch, cancel := m.Subscribe()
	defer cancel()

	if err := m.Login(context.Background(), "user@example.com", "s3cret", false); err != nil {
		t.Fatalf("Login: %v", err)
	}
	select {
	case st := <-ch:
		if !st.Authenticated {
			t.Fatalf("expected authenticated notification: %+v", st)
		}
	case <-time.After(time.Second):
		t.Fatal("no notification after login")
	}

	if err := m.Logout(context.Background()); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	select {
	case st := <-ch:
		if st.Authenticated {
			t.Fatalf("expected anonymous notification: %+v", st)
		}
	case <-time.After(time.Second):
		t.Fatal("no notification after logout")
	}
}

func TestStateFileRoundTrip(t *testing.T) {
	api := newFakeAPI()
	srv := httptest.NewServer(api.handler())
	defer srv.Close()

	path := filepath.Join(t.TempDir(), "session.json")
	m := newTestManager(t, srv, WithStateFile(path))
	if err := m.Login(context.Background(), "user@example.com", "s3cret", false); err != nil {
		t.Fatalf("Login: %v", err)
	}

	restored := newTestManager(t, srv, WithStateFile(path))
	st := restored.Snapshot()
	if !st.Authenticated || st.Token != "test-token" {
		t.Fatalf("expected restored session: %+v", st)
	}
	if err := restored.Verify(context.Background()); err != nil {
		t.Fatalf("Verify restored session: %v", err)
	}

	if err := restored.Logout(context.Background()); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	empty := newTestManager(t, srv, WithStateFile(path))
	if empty.Snapshot().Authenticated {
		t.Fatal("expected cleared state file after logout")
	}
}

func TestNewRejectsRelativeURL(t *testing.T) {
	if _, err := New("not-a-url"); err == nil {
		t.Fatal("expected error for relative base url")
	}
}
