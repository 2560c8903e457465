package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"ms-marketplace/internal/apperror"
	"ms-marketplace/internal/logger"
	"ms-marketplace/internal/models"
	"ms-marketplace/internal/utils"
)

type contextKey string

const (
	claimsKey contextKey = "claims"
	tokenKey  contextKey = "token"
)

type middlewareOptions struct {
	revocations RevocationStore
}

type Option func(*middlewareOptions)

// WithRevocation makes the middleware reject tokens recorded at logout.
func WithRevocation(store RevocationStore) Option {
	return func(o *middlewareOptions) {
		o.revocations = store
	}
}

// Middleware authenticates every request. A missing credential is 401, any
// credential that fails verification is 403.
func Middleware(tokens TokenVerifier, log *logger.Logger, opts ...Option) func(http.Handler) http.Handler {
	var o middlewareOptions
	for _, opt := range opts {
		opt(&o)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, err := TokenFromRequest(r)
			if errors.Is(err, ErrNoCredential) {
				utils.WriteError(w, apperror.Unauthorized("authentication required"))
				return
			}
			if err != nil {
				log.LogSecurity("AUTH", fmt.Sprintf("%s %s rejected: %v", r.Method, r.URL.Path, err))
				utils.WriteError(w, apperror.Forbidden("invalid token"))
				return
			}

			claims, err := tokens.Verify(raw)
			if err != nil {
				msg := "invalid token"
				if errors.Is(err, ErrExpired) {
					msg = "token expired"
				}
				log.LogSecurity("AUTH", fmt.Sprintf("%s %s rejected: %v", r.Method, r.URL.Path, err))
				utils.WriteError(w, apperror.Forbidden(msg))
				return
			}

			if o.revocations != nil {
				revoked, err := o.revocations.IsRevoked(r.Context(), raw)
				if err != nil {
					log.Error("AUTH", fmt.Sprintf("Revocation lookup failed: %v", err))
					utils.WriteError(w, apperror.Forbidden("unable to validate token"))
					return
				}
				if revoked {
					log.LogSecurity("AUTH", fmt.Sprintf("revoked token used by %s", claims.ID))
					utils.WriteError(w, apperror.Forbidden("token revoked"))
					return
				}
			}

			ctx := context.WithValue(r.Context(), claimsKey, claims)
			ctx = context.WithValue(ctx, tokenKey, raw)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// AdminOnly must run after Middleware.
func AdminOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, _ := ClaimsFromContext(r.Context())
		if err := RequireAdmin(claims); err != nil {
			utils.WriteError(w, err)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RolesOnly admits the listed roles. Must run after Middleware.
func RolesOnly(roles ...models.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, _ := ClaimsFromContext(r.Context())
			if err := RequireRole(claims, roles...); err != nil {
				utils.WriteError(w, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// WithClaims stores claims in ctx the way Middleware does.
func WithClaims(ctx context.Context, claims *Claims) context.Context {
	return context.WithValue(ctx, claimsKey, claims)
}

func ClaimsFromContext(ctx context.Context) (*Claims, bool) {
	claims, ok := ctx.Value(claimsKey).(*Claims)
	return claims, ok && claims != nil
}

// Helper to extract user ID in handlers
func UserID(ctx context.Context) string {
	if claims, ok := ClaimsFromContext(ctx); ok {
		return claims.ID
	}
	return ""
}

// RawToken returns the credential the request was authenticated with.
func RawToken(ctx context.Context) string {
	if token, ok := ctx.Value(tokenKey).(string); ok {
		return token
	}
	return ""
}
