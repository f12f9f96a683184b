package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"slices"
	"time"

	"vitalreg/internal/transport/http/shared"
	dErrors "vitalreg/pkg/domain-errors"
	"vitalreg/pkg/requestcontext"
)

// Identity is the resolved subject of a session, the subset of the user
// record the transport layer needs for authorization decisions.
type Identity struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"`
}

// SessionResolver turns a sid cookie value into an identity. Resolving an
// authenticated request also touches the server-side session (rolling
// expiry), so the middleware re-issues the cookie afterwards.
type SessionResolver interface {
	ResolveSession(ctx context.Context, sid string) (Identity, error)
}

// CookieConfig describes how the sid cookie is issued.
type CookieConfig struct {
	Name   string
	TTL    time.Duration
	Secure bool
}

// SetSessionCookie writes the sid cookie: http-only, same-site-lax, expiry
// matching the server-side session record.
func SetSessionCookie(w http.ResponseWriter, cfg CookieConfig, sid string) {
	http.SetCookie(w, &http.Cookie{
		Name:     cfg.Name,
		Value:    sid,
		Path:     "/",
		MaxAge:   int(cfg.TTL.Seconds()),
		HttpOnly: true,
		Secure:   cfg.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearSessionCookie expires the sid cookie immediately.
func ClearSessionCookie(w http.ResponseWriter, cfg CookieConfig) {
	http.SetCookie(w, &http.Cookie{
		Name:     cfg.Name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   cfg.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// RequireSession authenticates the request from its sid cookie, injects the
// resolved identity into context, and refreshes the cookie's rolling expiry.
// Missing or stale sessions get 401.
func RequireSession(resolver SessionResolver, cfg CookieConfig, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(cfg.Name)
			if err != nil || cookie.Value == "" {
				shared.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "unauthorized"))
				return
			}

			identity, err := resolver.ResolveSession(r.Context(), cookie.Value)
			if err != nil {
				logger.WarnContext(r.Context(), "session rejected",
					"error", err,
					"request_id", requestcontext.RequestID(r.Context()),
				)
				ClearSessionCookie(w, cfg)
				shared.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "unauthorized"))
				return
			}

			SetSessionCookie(w, cfg, cookie.Value)

			ctx := r.Context()
			ctx = requestcontext.WithUserID(ctx, identity.UserID)
			ctx = requestcontext.WithUserRole(ctx, identity.Role)
			ctx = requestcontext.WithSessionID(ctx, cookie.Value)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole allows only the listed roles through. It fails closed: no
// session identity or an unlisted role both deny.
func RequireRole(allowed ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			role := requestcontext.UserRole(r.Context())
			if role == "" || !slices.Contains(allowed, role) {
				shared.WriteError(w, dErrors.New(dErrors.CodeForbidden, "insufficient permissions"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
