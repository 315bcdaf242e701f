package rbac

import "strings"

// Permission is an atomic capability identified by a "category:action"
// wire string. The set below is closed and enumerated at build time.
type Permission string

const (
	PermDashboardView  Permission = "dashboard:view"
	PermDashboardAdmin Permission = "dashboard:admin"

	PermUserManage Permission = "user:manage"
	PermUserView   Permission = "user:view"
	PermUserEdit   Permission = "user:edit"
	PermUserDelete Permission = "user:delete"
	PermUserCreate Permission = "user:create"

	PermSettingsManage Permission = "settings:manage"

	PermAdminFullAccess Permission = "admin:full_access"
)

// AllPermissions enumerates the full catalog.
var AllPermissions = []Permission{
	PermDashboardView,
	PermDashboardAdmin,
	PermUserManage,
	PermUserView,
	PermUserEdit,
	PermUserDelete,
	PermUserCreate,
	PermSettingsManage,
	PermAdminFullAccess,
}

// PermissionNames maps permissions to user-facing labels.
var PermissionNames = map[Permission]string{
	PermDashboardView:   "View Dashboard",
	PermDashboardAdmin:  "Admin Dashboard",
	PermUserManage:      "Manage Users",
	PermUserView:        "View Users",
	PermUserEdit:        "Edit Users",
	PermUserDelete:      "Delete Users",
	PermUserCreate:      "Create Users",
	PermSettingsManage:  "Manage Settings",
	PermAdminFullAccess: "Full Admin Access",
}

// Category returns the text before the first colon. Every permission
// belongs to exactly one category.
func (p Permission) Category() string {
	category, _, _ := strings.Cut(string(p), ":")
	return category
}

// Action returns the text after the first colon, empty if there is none.
func (p Permission) Action() string {
	_, action, _ := strings.Cut(string(p), ":")
	return action
}

func (p Permission) String() string { return string(p) }

// ParsePermission validates the category:action shape of a wire string.
// Total over any string containing a non-empty category and action.
func ParsePermission(s string) (Permission, bool) {
	s = strings.TrimSpace(s)
	category, action, ok := strings.Cut(s, ":")
	if !ok || category == "" || action == "" {
		return "", false
	}
	return Permission(s), true
}
