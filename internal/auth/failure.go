// Package auth turns an incoming request into an authenticated
// identity and answers whether that identity may do what it asks.
// Every guard returns a discriminated (identity, failure) pair; no
// guard ever panics across the boundary.
package auth

import (
	"fmt"
	"net/http"
	"strings"

	"opspanel.org/internal/rbac"
)

// Stable machine-readable failure codes.
const (
	CodeUnauthenticated = "unauthenticated"
	CodeForbidden       = "forbidden"
	CodeServerError     = "server_error"
)

// Failure is a refused authorization decision. Status is transport
// detail and stays out of the serialized body.
type Failure struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"error"`
}

func (f *Failure) Error() string {
	return fmt.Sprintf("%s: %s", f.Code, f.Message)
}

// Unauthenticated is the failure for requests without a usable
// credential.
func Unauthenticated() *Failure {
	return &Failure{
		Status:  http.StatusUnauthorized,
		Code:    CodeUnauthenticated,
		Message: "Authentication required",
	}
}

// Forbidden is the failure for authenticated but unpermitted requests.
func Forbidden(message string) *Failure {
	return &Failure{
		Status:  http.StatusForbidden,
		Code:    CodeForbidden,
		Message: message,
	}
}

func serverError(message string) *Failure {
	return &Failure{
		Status:  http.StatusInternalServerError,
		Code:    CodeServerError,
		Message: message,
	}
}

func missingPermission(p rbac.Permission) *Failure {
	return Forbidden(fmt.Sprintf("Permission required: %s", p))
}

func missingAnyPermission(perms []rbac.Permission) *Failure {
	return Forbidden(fmt.Sprintf("One of these permissions required: %s", joinPermissions(perms)))
}

func missingAllPermissions(perms []rbac.Permission) *Failure {
	return Forbidden(fmt.Sprintf("All of these permissions required: %s", joinPermissions(perms)))
}

func accessDenied(method, endpoint string) *Failure {
	return Forbidden(fmt.Sprintf("Access denied for %s %s", method, endpoint))
}

func joinPermissions(perms []rbac.Permission) string {
	names := make([]string, len(perms))
	for i, p := range perms {
		names[i] = string(p)
	}
	return strings.Join(names, ", ")
}
