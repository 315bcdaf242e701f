package rbac

import (
	"testing"
)

func TestAdminHoldsEveryRolePermission(t *testing.T) {
	adminPerms := make(map[Permission]struct{})
	for _, p := range RolePermissions(RoleAdmin) {
		adminPerms[p] = struct{}{}
	}
	for _, role := range AllRoles {
		for _, p := range RolePermissions(role) {
			if _, ok := adminPerms[p]; !ok {
				t.Fatalf("admin is missing %q granted to %q", p, role)
			}
		}
	}
}

func TestRolePermissionsUnknownRole(t *testing.T) {
	perms := RolePermissions(Role("auditor"))
	if len(perms) != 0 {
		t.Fatalf("expected empty set for unknown role, got %v", perms)
	}
}

func TestRolePermissionsReturnsCopy(t *testing.T) {
	perms := RolePermissions(RoleUser)
	if len(perms) == 0 {
		t.Fatal("expected user permissions")
	}
	perms[0] = Permission("tampered:value")
	if HasPermission(RoleUser, Permission("tampered:value")) {
		t.Fatal("catalog was mutated through the returned slice")
	}
}

func TestHasPermission(t *testing.T) {
	if !HasPermission(RoleUser, PermDashboardView) {
		t.Fatal("user should hold dashboard:view")
	}
	if HasPermission(RoleUser, PermUserManage) {
		t.Fatal("user should not hold user:manage")
	}
	if !HasPermission(RoleAdmin, PermAdminFullAccess) {
		t.Fatal("admin should hold admin:full_access")
	}
	if HasPermission(Role("ghost"), PermDashboardView) {
		t.Fatal("unknown role should hold nothing")
	}
}

func TestCanAccessRouteDefaultsToPublic(t *testing.T) {
	for _, role := range []Role{RoleAdmin, RoleUser, Role("nobody")} {
		if !CanAccessRoute(role, "/about") {
			t.Fatalf("unlisted route should be public for %q", role)
		}
	}
}

func TestCanAccessRouteRequiresPermission(t *testing.T) {
	if !CanAccessRoute(RoleAdmin, "/users") {
		t.Fatal("admin should reach /users")
	}
	if CanAccessRoute(RoleUser, "/users") {
		t.Fatal("user lacks user:manage and should not reach /users")
	}
	if !CanAccessRoute(RoleUser, "/dashboard") {
		t.Fatal("user holds dashboard:view and should reach /dashboard")
	}
}

func TestCanAccessAPIDefaultsToDenied(t *testing.T) {
	for _, role := range []Role{RoleAdmin, RoleUser} {
		if CanAccessAPI(role, "GET", "/api/unknown") {
			t.Fatalf("unlisted endpoint should be denied for %q", role)
		}
	}
}

func TestCanAccessAPIUserScenario(t *testing.T) {
	// Role user holds only dashboard:view; /api/users requires user:manage.
	if CanAccessAPI(RoleUser, "GET", "/api/users") {
		t.Fatal("user should be denied GET /api/users")
	}
	if !CanAccessAPI(RoleAdmin, "GET", "/api/users") {
		t.Fatal("admin should be allowed GET /api/users")
	}
	if !CanAccessAPI(RoleUser, "GET", "/api/auth/me") {
		t.Fatal("user should be allowed GET /api/auth/me")
	}
	if !CanAccessAPI(RoleAdmin, "delete", "/api/users/{id}") {
		t.Fatal("method lookup should be case-insensitive")
	}
}

func TestPermissionCategoryAction(t *testing.T) {
	for _, p := range AllPermissions {
		if p.Category() == "" || p.Action() == "" {
			t.Fatalf("catalog permission %q lacks category or action", p)
		}
	}
	if got := PermUserManage.Category(); got != "user" {
		t.Fatalf("unexpected category: %s", got)
	}
	if got := PermAdminFullAccess.Action(); got != "full_access" {
		t.Fatalf("unexpected action: %s", got)
	}
}

func TestParsePermission(t *testing.T) {
	if _, ok := ParsePermission("settings:manage"); !ok {
		t.Fatal("expected valid permission to parse")
	}
	for _, raw := range []string{"", "nodelimiter", ":action", "category:", "  "} {
		if _, ok := ParsePermission(raw); ok {
			t.Fatalf("expected %q to be rejected", raw)
		}
	}
}

func TestRouteRequirement(t *testing.T) {
	perms, found := RouteRequirement("/dashboard/admin/reports")
	if !found {
		t.Fatal("expected /dashboard/admin prefix to match")
	}
	if len(perms) != 1 || perms[0] != PermDashboardAdmin {
		t.Fatalf("expected dashboard:admin requirement, got %v", perms)
	}
	if _, found := RouteRequirement("/docs"); found {
		t.Fatal("expected no requirement for unlisted path")
	}
}

func TestRequiresAuth(t *testing.T) {
	for _, path := range []string{"/dashboard", "/profile/photo", "/users", "/admin"} {
		if !RequiresAuth(path) {
			t.Fatalf("expected %q to require auth", path)
		}
	}
	if RequiresAuth("/login") {
		t.Fatal("login must not require auth")
	}
}
