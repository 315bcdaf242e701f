package auth

import (
	"net/http"

	"opspanel.org/internal/rbac"
	"opspanel.org/internal/token"
)

// RequireAuth passes any authenticated identity.
func RequireAuth(r *http.Request) (token.Identity, *Failure) {
	return Authenticate(r)
}

// RequirePermission passes identities whose role holds the permission.
func RequirePermission(r *http.Request, p rbac.Permission) (token.Identity, *Failure) {
	identity, failure := Authenticate(r)
	if failure != nil {
		return token.Identity{}, failure
	}
	if !rbac.HasPermission(identity.Role, p) {
		return token.Identity{}, missingPermission(p)
	}
	return identity, nil
}

// RequireAnyPermission passes when the role holds at least one of the
// listed permissions.
func RequireAnyPermission(r *http.Request, perms []rbac.Permission) (token.Identity, *Failure) {
	identity, failure := Authenticate(r)
	if failure != nil {
		return token.Identity{}, failure
	}
	if !rbac.HasAnyPermission(identity.Role, perms) {
		return token.Identity{}, missingAnyPermission(perms)
	}
	return identity, nil
}

// RequireAllPermissions passes only when the role holds every listed
// permission.
func RequireAllPermissions(r *http.Request, perms []rbac.Permission) (token.Identity, *Failure) {
	identity, failure := Authenticate(r)
	if failure != nil {
		return token.Identity{}, failure
	}
	for _, p := range perms {
		if !rbac.HasPermission(identity.Role, p) {
			return token.Identity{}, missingAllPermissions(perms)
		}
	}
	return identity, nil
}

// RequireAPIAccess checks the endpoint permission table. Endpoints
// absent from the table deny every role.
func RequireAPIAccess(r *http.Request, method, endpoint string) (token.Identity, *Failure) {
	identity, failure := Authenticate(r)
	if failure != nil {
		return token.Identity{}, failure
	}
	if !rbac.CanAccessAPI(identity.Role, method, endpoint) {
		return token.Identity{}, accessDenied(method, endpoint)
	}
	return identity, nil
}
