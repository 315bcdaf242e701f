package rbac

import "strings"

// Route and endpoint requirements live here and nowhere else. The page
// middleware, the endpoint guards, and the render guards all consult
// these tables so the three enforcement surfaces cannot drift apart.

// routePermissions gates page navigation. A route with no entry is
// public: pages degrade gracefully.
var routePermissions = map[string][]Permission{
	"/dashboard":       {PermDashboardView},
	"/dashboard/admin": {PermDashboardAdmin},
	"/users":           {PermUserManage},
	"/settings":        {PermSettingsManage},
	"/admin":           {PermDashboardAdmin},
}

// apiPermissions gates API calls, keyed by "METHOD path". An endpoint
// with no entry is denied: APIs fail safe. The asymmetry with the route
// table is deliberate.
var apiPermissions = map[string][]Permission{
	"GET /api/auth/me":       {PermDashboardView},
	"GET /api/users":         {PermUserManage},
	"POST /api/users":        {PermUserManage},
	"PUT /api/users/{id}":    {PermUserManage},
	"DELETE /api/users/{id}": {PermUserManage},
	"GET /api/settings":      {PermSettingsManage},
	"PUT /api/settings":      {PermSettingsManage},
}

// PublicRoutes never require a credential.
var PublicRoutes = []string{
	"/",
	"/login",
	"/register",
	"/forgot-password",
	"/reset-password",
}

// AuthRequiredRoutes require a credential but no particular permission.
var AuthRequiredRoutes = []string{
	"/dashboard",
	"/profile",
	"/settings",
}

// HasPermission reports whether the role's permission set contains perm.
func HasPermission(role Role, perm Permission) bool {
	for _, p := range rolePermissions[role] {
		if p == perm {
			return true
		}
	}
	return false
}

// HasAnyPermission reports whether the role holds at least one required permission.
// Requirements compose with OR: any qualifying permission satisfies.
func HasAnyPermission(role Role, required []Permission) bool {
	for _, perm := range required {
		if HasPermission(role, perm) {
			return true
		}
	}
	return false
}

// CanAccessRoute reports whether the role may navigate to route. Routes
// absent from the table are public and allowed for every role.
func CanAccessRoute(role Role, route string) bool {
	required, ok := routePermissions[route]
	if !ok {
		return true
	}
	return HasAnyPermission(role, required)
}

// CanAccessAPI reports whether the role may call the endpoint. Pairs
// absent from the table are denied for every role.
func CanAccessAPI(role Role, method, endpoint string) bool {
	required, ok := apiPermissions[strings.ToUpper(strings.TrimSpace(method))+" "+endpoint]
	if !ok {
		return false
	}
	return HasAnyPermission(role, required)
}

// RouteRequirement resolves the guarding permissions for a page path by
// longest matching route prefix. The second result is false for paths no
// table entry covers.
func RouteRequirement(path string) ([]Permission, bool) {
	var (
		match string
		perms []Permission
		found bool
	)
	for route, required := range routePermissions {
		if !routePrefixMatch(path, route) {
			continue
		}
		if len(route) > len(match) {
			match = route
			perms = required
			found = true
		}
	}
	return perms, found
}

// IsPublicRoute reports whether the path is listed as public.
func IsPublicRoute(path string) bool {
	for _, route := range PublicRoutes {
		if path == route {
			return true
		}
	}
	return false
}

// RequiresAuth reports whether the path needs a credential, with or
// without a specific permission.
func RequiresAuth(path string) bool {
	for _, route := range AuthRequiredRoutes {
		if routePrefixMatch(path, route) {
			return true
		}
	}
	_, found := RouteRequirement(path)
	return found
}

func routePrefixMatch(path, route string) bool {
	if path == route {
		return true
	}
	return strings.HasPrefix(path, route+"/")
}
