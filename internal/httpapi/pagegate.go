package httpapi

import (
	"net/http"
	"net/url"
	"strings"

	"opspanel.org/internal/auth"
	"opspanel.org/internal/obs"
	"opspanel.org/internal/rbac"
	"opspanel.org/internal/token"
)

const (
	loginPath   = "/login"
	defaultPage = "/dashboard"
)

// PageGate runs before any page is served. It classifies the requested
// path as public, auth-required, or auth+permission-required, and
// redirects rather than exposing bare error pages: unauthenticated
// visitors go to the login page with the original destination preserved,
// under-permissioned visitors go to the dashboard. API and asset paths
// pass through untouched; endpoints are separately protected by their
// own guards.
func (a *API) PageGate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path

		if skipPageGate(path) {
			next.ServeHTTP(w, r)
			return
		}

		identity, authenticated := pageIdentity(r)

		if rbac.IsPublicRoute(path) {
			// The root path routes by authentication state.
			if path == "/" {
				if authenticated {
					http.Redirect(w, r, defaultPage, http.StatusFound)
				} else {
					http.Redirect(w, r, loginPath, http.StatusFound)
				}
				return
			}
			// Signed-in visitors have no business on the login forms.
			if authenticated && (path == loginPath || path == "/register") {
				http.Redirect(w, r, defaultPage, http.StatusFound)
				return
			}
			next.ServeHTTP(w, r)
			return
		}

		if rbac.RequiresAuth(path) && !authenticated {
			obs.AuthDecision("middleware", "deny")
			redirect := url.URL{Path: loginPath, RawQuery: url.Values{"redirect": {path}}.Encode()}
			http.Redirect(w, r, redirect.String(), http.StatusFound)
			return
		}

		if required, found := rbac.RouteRequirement(path); found && authenticated {
			if !rbac.HasAnyPermission(identity.Role, required) {
				obs.AuthDecision("middleware", "deny")
				http.Redirect(w, r, defaultPage, http.StatusFound)
				return
			}
		}

		obs.AuthDecision("middleware", "allow")
		next.ServeHTTP(w, r)
	})
}

// pageIdentity resolves the visitor from header or cookie. Invalid and
// expired credentials count as anonymous; the gate fails closed.
func pageIdentity(r *http.Request) (token.Identity, bool) {
	identity, failure := auth.Authenticate(r)
	if failure != nil {
		return token.Identity{}, false
	}
	return identity, true
}

func skipPageGate(path string) bool {
	if strings.HasPrefix(path, "/api/") {
		return true
	}
	for _, p := range []string{"/assets/", "/static/", "/public/"} {
		if strings.HasPrefix(path, p) {
			return true
		}
	}
	switch path {
	case "/healthz", "/readyz", "/metrics":
		return true
	}
	// Anything with a file extension is a static asset.
	return strings.Contains(path[strings.LastIndex(path, "/")+1:], ".")
}
