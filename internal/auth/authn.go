package auth

import (
	"errors"
	"net/http"
	"strings"

	"opspanel.org/internal/token"
)

const (
	authorizationHeader = "Authorization"
	bearerScheme        = "bearer"

	// CookieName carries the signed credential for browser page loads,
	// where no Authorization header exists.
	CookieName = "authToken"
)

// CredentialFromRequest extracts the raw credential. The Authorization
// header wins over the cookie when both are present.
func CredentialFromRequest(r *http.Request) (string, bool) {
	if header := r.Header.Get(authorizationHeader); header != "" {
		if raw, err := extractBearerToken(header); err == nil {
			return raw, true
		}
		return "", false
	}
	if c, err := r.Cookie(CookieName); err == nil && c.Value != "" {
		return c.Value, true
	}
	return "", false
}

// Authenticate verifies the request credential and returns the
// identity it encodes. Any missing, malformed, expired or tampered
// credential yields an Unauthenticated failure; a missing signing
// secret is reported as a server error, not blamed on the caller.
func Authenticate(r *http.Request) (token.Identity, *Failure) {
	raw, ok := CredentialFromRequest(r)
	if !ok {
		return token.Identity{}, Unauthenticated()
	}
	identity, err := token.Verify(raw)
	if err != nil {
		if errors.Is(err, token.ErrMissingSecret) {
			return token.Identity{}, serverError("Server configuration error")
		}
		return token.Identity{}, Unauthenticated()
	}
	return identity, nil
}

func extractBearerToken(header string) (string, error) {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], bearerScheme) {
		return "", errors.New("authorization header is not a bearer credential")
	}
	raw := strings.TrimSpace(parts[1])
	if raw == "" {
		return "", errors.New("bearer credential is empty")
	}
	return raw, nil
}
