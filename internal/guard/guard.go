// Package guard resolves what a client should render for a protected
// piece of UI. Decisions are display-only: the endpoint guards in
// internal/auth remain the authoritative boundary, and a client that
// renders something it should not still cannot call anything it should
// not.
package guard

import (
	"opspanel.org/internal/obs"
	"opspanel.org/internal/rbac"
)

// Outcome discriminates the three render states.
type Outcome int

const (
	// OutcomePending means the session is still resolving; render the
	// loading slot. Nothing is ever allowed while pending.
	OutcomePending Outcome = iota
	// OutcomeAllowed means render the protected content.
	OutcomeAllowed
	// OutcomeDenied means render the fallback slot.
	OutcomeDenied
)

// Decision is the result of a render guard.
type Decision struct {
	Outcome Outcome
}

func (d Decision) Allowed() bool { return d.Outcome == OutcomeAllowed }
func (d Decision) Denied() bool  { return d.Outcome == OutcomeDenied }
func (d Decision) Pending() bool { return d.Outcome == OutcomePending }

// Slot names the UI slot to render: "children", "fallback" or
// "loading".
func (d Decision) Slot() string {
	switch d.Outcome {
	case OutcomeAllowed:
		return "children"
	case OutcomeDenied:
		return "fallback"
	default:
		return "loading"
	}
}

// View is the session snapshot a guard decides over. Resolved is false
// while the initial credential check is still in flight.
type View struct {
	Resolved      bool
	Authenticated bool
	Role          rbac.Role
}

func allow() Decision {
	obs.AuthDecision("render", "allow")
	return Decision{Outcome: OutcomeAllowed}
}

func deny() Decision {
	obs.AuthDecision("render", "deny")
	return Decision{Outcome: OutcomeDenied}
}

func pending() Decision {
	return Decision{Outcome: OutcomePending}
}

// decide applies the common shape: pending until resolved, denied
// without a signed-in user, then the supplied predicate.
func decide(v View, pred func() bool) Decision {
	if !v.Resolved {
		return pending()
	}
	if !v.Authenticated {
		return deny()
	}
	if pred() {
		return allow()
	}
	return deny()
}

// Permission allows when the role holds the permission.
func Permission(v View, p rbac.Permission) Decision {
	return decide(v, func() bool { return rbac.HasPermission(v.Role, p) })
}

// AnyPermission allows when the role holds at least one permission.
func AnyPermission(v View, perms ...rbac.Permission) Decision {
	return decide(v, func() bool { return rbac.HasAnyPermission(v.Role, perms) })
}

// AllPermissions allows only when the role holds every permission.
func AllPermissions(v View, perms ...rbac.Permission) Decision {
	return decide(v, func() bool {
		for _, p := range perms {
			if !rbac.HasPermission(v.Role, p) {
				return false
			}
		}
		return true
	})
}

// Role allows only the exact role.
func Role(v View, role rbac.Role) Decision {
	return decide(v, func() bool { return v.Role == role })
}

// AnyRole allows any of the listed roles.
func AnyRole(v View, roles ...rbac.Role) Decision {
	return decide(v, func() bool {
		for _, r := range roles {
			if v.Role == r {
				return true
			}
		}
		return false
	})
}

// Admin allows only the admin role.
func Admin(v View) Decision {
	return Role(v, rbac.RoleAdmin)
}

// Auth allows any signed-in user.
func Auth(v View) Decision {
	return decide(v, func() bool { return true })
}

// Guest allows only anonymous visitors, for login and register views.
func Guest(v View) Decision {
	if !v.Resolved {
		return pending()
	}
	if v.Authenticated {
		return deny()
	}
	return allow()
}

// Route allows when the role may open the page, mirroring the edge
// middleware's table.
func Route(v View, route string) Decision {
	return decide(v, func() bool { return rbac.CanAccessRoute(v.Role, route) })
}
