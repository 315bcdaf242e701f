package rbac

import "strings"

// Role is a named bundle of permissions. The set is closed at build time;
// role definitions are not editable at runtime.
type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

// AllRoles enumerates the role catalog.
var AllRoles = []Role{RoleAdmin, RoleUser}

// RoleNames maps roles to user-facing labels.
var RoleNames = map[Role]string{
	RoleAdmin: "Administrator",
	RoleUser:  "User",
}

// rolePermissions assigns each role its permission set. The admin role
// carries the full catalog, so it is a superset of every other role by
// construction.
var rolePermissions = map[Role][]Permission{
	RoleAdmin: AllPermissions,
	RoleUser: {
		PermDashboardView,
	},
}

// NormalizeRole lower-cases and trims a role identifier received off the
// wire so lookups are case-insensitive.
func NormalizeRole(role string) Role {
	return Role(strings.TrimSpace(strings.ToLower(role)))
}

// RolePermissions returns a copy of the permission set for the role.
// Unknown roles yield an empty set, never an error.
func RolePermissions(role Role) []Permission {
	perms, ok := rolePermissions[role]
	if !ok {
		return []Permission{}
	}
	out := make([]Permission, len(perms))
	copy(out, perms)
	return out
}

// KnownRole reports whether the role exists in the catalog.
func KnownRole(role Role) bool {
	_, ok := rolePermissions[role]
	return ok
}
