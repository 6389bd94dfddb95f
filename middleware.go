package kraackauth

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
)

type claimsContextKey struct{}

// ClaimsFromContext returns the session claims the middleware attached to the
// request, or nil when no valid session was presented.
func ClaimsFromContext(ctx context.Context) *SessionClaims {
	claims, _ := ctx.Value(claimsContextKey{}).(*SessionClaims)
	return claims
}

// RouteConfig classifies request paths for the interceptor.
type RouteConfig struct {
	// PublicRoutes are exact paths reachable without a session.
	PublicRoutes []string

	// PublicRoutePrefixes are path prefixes reachable without a session,
	// e.g. static assets.
	PublicRoutePrefixes []string

	// AuthRoutes are the login/signup pages; a logged-in user visiting one
	// is bounced to DefaultLoginRedirect.
	AuthRoutes []string

	// APIAuthPrefix marks the auth API itself, which the interceptor never
	// touches.
	APIAuthPrefix string

	DefaultLoginRedirect string
	LoginPath            string
}

func (rc *RouteConfig) EnsureDefaults() {
	if len(rc.PublicRoutes) == 0 {
		rc.PublicRoutes = []string{
			"/", "/verify-email", "/home", "/gallery", "/sponsors",
			"/contact", "/leaderboard", "/about", "/events", "/teams",
		}
	}
	if len(rc.AuthRoutes) == 0 {
		rc.AuthRoutes = []string{"/login", "/signup", "/error", "/reset-password", "/new-password"}
	}
	if rc.APIAuthPrefix == "" {
		rc.APIAuthPrefix = "/api/auth"
	}
	if rc.DefaultLoginRedirect == "" {
		rc.DefaultLoginRedirect = "/dashboard"
	}
	if rc.LoginPath == "" {
		rc.LoginPath = "/login"
	}
}

func (rc *RouteConfig) IsPublic(path string) bool {
	for _, route := range rc.PublicRoutes {
		if path == route {
			return true
		}
	}
	for _, prefix := range rc.PublicRoutePrefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

func (rc *RouteConfig) IsAuthRoute(path string) bool {
	for _, route := range rc.AuthRoutes {
		if path == route {
			return true
		}
	}
	return false
}

// Middleware resolves the session for each request and enforces the route
// access rules.  VerifyToken and Enrich are injected so the middleware does
// not depend on how tokens are minted.
type Middleware struct {
	AuthTokenHeaderName string
	AuthTokenCookieName string
	Routes              RouteConfig

	VerifyToken func(tokenString string) (*SessionClaims, error)

	// Enrich refreshes token claims from durable state.  Optional.
	Enrich func(claims *SessionClaims) (*SessionClaims, error)
}

func (m *Middleware) EnsureDefaults() {
	if m.AuthTokenHeaderName == "" {
		m.AuthTokenHeaderName = "Authorization"
	}
	if m.AuthTokenCookieName == "" {
		m.AuthTokenCookieName = "KraackAuthToken"
	}
	m.Routes.EnsureDefaults()
}

// ClaimsFromRequest resolves session claims from the request context, the
// auth cookie, or the Authorization header, in that order.
func (m *Middleware) ClaimsFromRequest(r *http.Request) *SessionClaims {
	if claims := ClaimsFromContext(r.Context()); claims != nil {
		return claims
	}
	if m.VerifyToken == nil {
		slog.Warn("no token verifier configured")
		return nil
	}

	var tokens []string
	for _, cookie := range r.CookiesNamed(m.AuthTokenCookieName) {
		if cookie.Value != "" {
			tokens = append(tokens, cookie.Value)
		}
	}
	for _, header := range r.Header.Values(m.AuthTokenHeaderName) {
		tokens = append(tokens, strings.TrimPrefix(header, "Bearer "))
	}

	for _, token := range tokens {
		claims, err := m.VerifyToken(token)
		if err != nil {
			slog.Debug("token verification failed", "err", err)
			continue
		}
		if claims == nil {
			continue
		}
		if m.Enrich != nil {
			enriched, err := m.Enrich(claims)
			if err != nil {
				slog.Warn("claims enrichment failed", "err", err)
			} else {
				claims = enriched
			}
		}
		return claims
	}
	return nil
}

// ExtractClaims attaches the resolved session claims (possibly nil) to the
// request context.  It never rejects a request.
func (m *Middleware) ExtractClaims(next http.Handler) http.Handler {
	m.EnsureDefaults()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims := m.ClaimsFromRequest(r)
		if claims != nil {
			r = r.WithContext(context.WithValue(r.Context(), claimsContextKey{}, claims))
		}
		next.ServeHTTP(w, r)
	})
}

// Intercept applies the route access rules:
//
//   - requests under APIAuthPrefix always pass,
//   - auth routes pass for anonymous users and bounce logged-in users to the
//     default redirect,
//   - public routes always pass,
//   - anything else requires a session; anonymous requests are redirected to
//     the login page with the original path and query as callbackUrl.
func (m *Middleware) Intercept(next http.Handler) http.Handler {
	m.EnsureDefaults()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path
		if strings.HasPrefix(path, m.Routes.APIAuthPrefix) {
			next.ServeHTTP(w, r)
			return
		}

		claims := m.ClaimsFromRequest(r)
		loggedIn := claims != nil
		if claims != nil {
			r = r.WithContext(context.WithValue(r.Context(), claimsContextKey{}, claims))
		}

		if m.Routes.IsAuthRoute(path) {
			if loggedIn {
				http.Redirect(w, r, m.Routes.DefaultLoginRedirect, http.StatusFound)
				return
			}
			next.ServeHTTP(w, r)
			return
		}

		if m.Routes.IsPublic(path) {
			next.ServeHTTP(w, r)
			return
		}

		if !loggedIn {
			callback := path
			if r.URL.RawQuery != "" {
				callback += "?" + r.URL.RawQuery
			}
			target := m.Routes.LoginPath + "?callbackUrl=" + url.QueryEscape(callback)
			http.Redirect(w, r, target, http.StatusFound)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireClaims is for API handlers: it rejects requests without a session
// instead of redirecting.
func (m *Middleware) RequireClaims(next http.Handler) http.Handler {
	m.EnsureDefaults()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims := m.ClaimsFromRequest(r)
		if claims == nil {
			http.Error(w, `{"message":"Not authenticated"}`, http.StatusUnauthorized)
			return
		}
		r = r.WithContext(context.WithValue(r.Context(), claimsContextKey{}, claims))
		next.ServeHTTP(w, r)
	})
}
