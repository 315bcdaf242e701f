// Package session is the client-side counterpart of the auth API: it
// holds the signed credential and the cached user snapshot, keeps both
// in sync with the server, and lets callers observe state changes.
package session

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"sync"
	"time"

	"opspanel.org/internal/auth"
	"opspanel.org/internal/rbac"
	"opspanel.org/internal/store"
)

const (
	cookieMaxAge         = 86400
	rememberMeCookieAge  = 30 * 86400
	defaultPollInterval  = time.Minute
	requestTimeoutBudget = 10 * time.Second
)

// ErrRejected marks a server-side refusal (bad credentials, expired
// token, deactivated account) as opposed to a transport failure.
var ErrRejected = errors.New("session rejected")

// State is the observable session snapshot. The zero value is the
// anonymous state.
type State struct {
	Token         string            `json:"token,omitempty"`
	User          *store.User       `json:"user,omitempty"`
	Permissions   []rbac.Permission `json:"permissions,omitempty"`
	Authenticated bool              `json:"authenticated"`
}

// Role returns the cached role, empty while anonymous.
func (s State) Role() rbac.Role {
	if s.User == nil {
		return ""
	}
	return s.User.Role
}

// Manager owns the session state for one API origin. All methods are
// safe for concurrent use.
type Manager struct {
	client  *http.Client
	jar     http.CookieJar
	baseURL *url.URL
	file    string

	mu      sync.Mutex
	state   State
	gen     uint64
	subs    map[int]chan State
	nextSub int
}

// Option configures a Manager.
type Option func(*Manager)

// WithHTTPClient substitutes the transport, keeping the cookie jar.
func WithHTTPClient(c *http.Client) Option {
	return func(m *Manager) {
		if c != nil {
			m.client = c
		}
	}
}

// WithStateFile persists the session across restarts at the given path.
func WithStateFile(path string) Option {
	return func(m *Manager) { m.file = path }
}

// New builds a Manager for the given API origin. When a state file is
// configured and readable, the previous session is restored; callers
// should Verify before trusting it.
func New(baseURL string, opts ...Option) (*Manager, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("base url must be absolute: %q", baseURL)
	}
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("cookie jar: %w", err)
	}

	m := &Manager{
		client:  &http.Client{Timeout: requestTimeoutBudget},
		jar:     jar,
		baseURL: u,
		subs:    make(map[int]chan State),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.client.Jar = jar

	if m.file != "" {
		if st, err := loadState(m.file); err == nil {
			m.state = st
			if st.Token != "" {
				m.mirrorCookie(st.Token, cookieMaxAge)
			}
		}
	}
	return m, nil
}

// Snapshot returns a copy of the current state.
func (m *Manager) Snapshot() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Subscribe returns a channel that receives the state after every
// change, plus a cancel function. The channel holds only the latest
// state; slow consumers never block the Manager.
func (m *Manager) Subscribe() (<-chan State, func()) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := m.nextSub
	m.nextSub++
	ch := make(chan State, 1)
	m.subs[id] = ch

	cancel := func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.subs, id)
	}
	return ch, cancel
}

type loginResult struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Error   string      `json:"error"`
	Token   string      `json:"token"`
	User    *store.User `json:"user"`
}

type profileResult struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	User    *struct {
		store.User
		Permissions []rbac.Permission `json:"permissions"`
	} `json:"user"`
}

// Login authenticates against the API. On success the token and user
// snapshot are stored, the authToken cookie is mirrored into the jar
// (30 days with rememberMe, 24 hours otherwise), and subscribers are
// notified. A refused login leaves the current state untouched.
func (m *Manager) Login(ctx context.Context, email, password string, rememberMe bool) error {
	payload, err := json.Marshal(map[string]string{"email": email, "password": password})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.endpoint("/api/auth/login"), bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.client.Do(req)
	if err != nil {
		return fmt.Errorf("login request: %w", err)
	}
	defer resp.Body.Close()

	var result loginResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return fmt.Errorf("decode login response: %w", err)
	}
	if resp.StatusCode != http.StatusOK || !result.Success || result.Token == "" || result.User == nil {
		msg := result.Error
		if msg == "" {
			msg = result.Message
		}
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return fmt.Errorf("%w: %s", ErrRejected, msg)
	}

	maxAge := cookieMaxAge
	if rememberMe {
		maxAge = rememberMeCookieAge
	}
	m.mirrorCookie(result.Token, maxAge)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.gen++
	m.state = State{
		Token:         result.Token,
		User:          result.User,
		Permissions:   rbac.RolePermissions(result.User.Role),
		Authenticated: true,
	}
	m.persistLocked()
	m.notifyLocked()
	return nil
}

// Logout tells the server, best effort, and then clears local state
// unconditionally. Calling it while anonymous is a no-op and returns
// nil; the clear always wins even if the POST fails.
func (m *Manager) Logout(ctx context.Context) error {
	m.mu.Lock()
	token := m.state.Token
	wasAuthenticated := m.state.Authenticated
	m.mu.Unlock()

	var reqErr error
	if wasAuthenticated {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.endpoint("/api/auth/logout"), nil)
		if err == nil {
			if token != "" {
				req.Header.Set("Authorization", "Bearer "+token)
			}
			resp, err := m.client.Do(req)
			if err != nil {
				reqErr = err
			} else {
				resp.Body.Close()
			}
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.gen++
	m.clearLocked()
	return reqErr
}

// Verify re-validates the stored credential against /api/auth/me. A
// rejection (401/403/404) clears the session; a transport failure
// leaves it untouched. Results from calls that raced with a Login or
// Logout are discarded.
func (m *Manager) Verify(ctx context.Context) error {
	m.mu.Lock()
	if !m.state.Authenticated {
		m.mu.Unlock()
		return nil
	}
	token := m.state.Token
	gen := m.gen
	m.mu.Unlock()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, m.endpoint("/api/auth/me"), nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := m.client.Do(req)
	if err != nil {
		return fmt.Errorf("verify request: %w", err)
	}
	defer resp.Body.Close()

	var result profileResult
	decodeErr := json.NewDecoder(resp.Body).Decode(&result)

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.gen != gen {
		// The session changed underneath this call; drop the result.
		return nil
	}

	switch {
	case resp.StatusCode == http.StatusOK && decodeErr == nil && result.User != nil:
		user := result.User.User
		m.state.User = &user
		m.state.Permissions = result.User.Permissions
		m.persistLocked()
		m.notifyLocked()
		return nil
	case resp.StatusCode == http.StatusUnauthorized,
		resp.StatusCode == http.StatusForbidden,
		resp.StatusCode == http.StatusNotFound:
		m.gen++
		m.clearLocked()
		return fmt.Errorf("%w: %s", ErrRejected, http.StatusText(resp.StatusCode))
	case decodeErr != nil:
		return fmt.Errorf("decode verify response: %w", decodeErr)
	default:
		return fmt.Errorf("verify: unexpected status %d", resp.StatusCode)
	}
}

// Poll re-verifies on an interval until the context is cancelled.
// Transient errors are swallowed; rejection clears the session through
// Verify as usual.
func (m *Manager) Poll(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = defaultPollInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_ = m.Verify(ctx)
		}
	}
}

func (m *Manager) endpoint(path string) string {
	u := *m.baseURL
	u.Path = path
	return u.String()
}

func (m *Manager) mirrorCookie(token string, maxAge int) {
	m.jar.SetCookies(m.baseURL, []*http.Cookie{{
		Name:    auth.CookieName,
		Value:   token,
		Path:    "/",
		MaxAge:  maxAge,
		Expires: time.Now().Add(time.Duration(maxAge) * time.Second),
	}})
}

func (m *Manager) clearLocked() {
	m.state = State{}
	m.jar.SetCookies(m.baseURL, []*http.Cookie{{
		Name:   auth.CookieName,
		Value:  "",
		Path:   "/",
		MaxAge: -1,
	}})
	m.persistLocked()
	m.notifyLocked()
}

func (m *Manager) notifyLocked() {
	for _, ch := range m.subs {
		// Drop the stale value so the send below cannot block.
		select {
		case <-ch:
		default:
		}
		ch <- m.state
	}
}
