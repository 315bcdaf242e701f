package token

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"opspanel.org/internal/rbac"
)

func setSecret(t *testing.T, value string) {
	t.Helper()
	ResetSecretForTests()
	t.Setenv("PANEL_AUTH_SECRET", value)
	t.Cleanup(ResetSecretForTests)
}

func TestSignVerifyRoundTrip(t *testing.T) {
	setSecret(t, "unit-test-secret")

	identity := Identity{UserID: "42", Email: "Admin@Example.com", Role: "Admin"}
	signed, expiresAt, err := Sign(identity, time.Hour)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	if time.Until(expiresAt) <= 0 {
		t.Fatalf("expected future expiration, got %v", expiresAt)
	}

	got, err := Verify(signed)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if got.UserID != "42" {
		t.Fatalf("unexpected user id: %s", got.UserID)
	}
	if got.Email != "admin@example.com" {
		t.Fatalf("email was not normalized: %s", got.Email)
	}
	if got.Role != rbac.RoleAdmin {
		t.Fatalf("role was not normalized: %s", got.Role)
	}
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	setSecret(t, "secret-one")
	signed, _, err := Sign(Identity{UserID: "7", Role: rbac.RoleUser}, time.Hour)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}

	setSecret(t, "secret-two")
	if _, err := Verify(signed); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestVerifyRejectsTruncatedToken(t *testing.T) {
	setSecret(t, "unit-test-secret")
	signed, _, err := Sign(Identity{UserID: "7", Role: rbac.RoleUser}, time.Hour)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	truncated := signed[:strings.LastIndex(signed, ".")]
	if _, err := Verify(truncated); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for truncated token, got %v", err)
	}
	if _, err := Verify(""); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for empty token, got %v", err)
	}
}

func TestVerifyRejectsExpiredToken(t *testing.T) {
	setSecret(t, "unit-test-secret")

	// A token signed 25 hours ago with the default 24h TTL.
	issued := time.Now().UTC().Add(-25 * time.Hour)
	claims := Claims{
		Email: "user@example.com",
		Role:  "user",
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   "7",
			IssuedAt:  jwt.NewNumericDate(issued),
			ExpiresAt: jwt.NewNumericDate(issued.Add(DefaultTTL)),
			ID:        "expired-token",
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("unit-test-secret"))
	if err != nil {
		t.Fatalf("sign expired token: %v", err)
	}
	if _, err := Verify(signed); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for expired token, got %v", err)
	}
}

func TestVerifyRejectsForeignIssuer(t *testing.T) {
	setSecret(t, "unit-test-secret")
	now := time.Now().UTC()
	claims := Claims{
		Role: "admin",
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "someone-else",
			Subject:   "7",
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("unit-test-secret"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	if _, err := Verify(signed); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for foreign issuer, got %v", err)
	}
}

func TestMissingSecretIsConfigurationError(t *testing.T) {
	setSecret(t, "")

	if err := CheckSecret(); !errors.Is(err, ErrMissingSecret) {
		t.Fatalf("expected ErrMissingSecret, got %v", err)
	}
	if _, _, err := Sign(Identity{UserID: "7", Role: rbac.RoleUser}, time.Hour); !errors.Is(err, ErrMissingSecret) {
		t.Fatalf("expected ErrMissingSecret from Sign, got %v", err)
	}
	if _, err := Verify("whatever"); !errors.Is(err, ErrMissingSecret) {
		t.Fatalf("expected ErrMissingSecret from Verify, got %v", err)
	}
}

func TestSignRejectsBadInput(t *testing.T) {
	setSecret(t, "unit-test-secret")
	if _, _, err := Sign(Identity{Role: rbac.RoleUser}, time.Hour); err == nil {
		t.Fatal("expected error for missing user id")
	}
	if _, _, err := Sign(Identity{UserID: "7", Role: rbac.RoleUser}, 0); err == nil {
		t.Fatal("expected error for non-positive ttl")
	}
}
