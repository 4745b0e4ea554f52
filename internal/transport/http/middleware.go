// Copyright 2026 The AuthGrid Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package http

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/authgrid/authgrid/internal/authz"
	"github.com/authgrid/authgrid/internal/observability/logger"
	"github.com/authgrid/authgrid/internal/observability/metrics"
	"github.com/authgrid/authgrid/internal/token"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// TokenVerifier verifies a bearer access token. Verification is purely
// computational; no predicate below performs database access.
type TokenVerifier interface {
	VerifyAccessToken(tokenString string) (*token.Claims, error)
}

// extractBearer pulls the bearer token from the Authorization header.
// Returns "" when the header is absent or malformed.
func extractBearer(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" || !strings.HasPrefix(header, "Bearer ") {
		return ""
	}
	return strings.TrimPrefix(header, "Bearer ")
}

// Authenticate verifies the bearer token and binds its claims to the
// request context. A missing or malformed header, an expired token, and an
// invalid signature are distinguished Unauthorized reasons.
func Authenticate(verifier TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := extractBearer(r)
			if raw == "" {
				respondError(w, http.StatusUnauthorized, "no token provided")
				return
			}

			claims, err := verifier.VerifyAccessToken(raw)
			if err != nil {
				respondFault(w, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
		})
	}
}

// OptionalAuthenticate binds claims only when a valid token is present and
// never fails the request. For endpoints with degraded anonymous behavior.
func OptionalAuthenticate(verifier TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if raw := extractBearer(r); raw != "" {
				if claims, err := verifier.VerifyAccessToken(raw); err == nil {
					r = r.WithContext(WithClaims(r.Context(), claims))
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireRole passes if the claim snapshot intersects the allowed set.
func RequireRole(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims := ClaimsFromContext(r.Context())
			if claims == nil {
				respondError(w, http.StatusUnauthorized, "authentication required")
				return
			}
			if !claims.HasAnyRole(roles...) {
				slog.WarnContext(r.Context(), "authorization denied",
					logger.UserID(claims.UserID),
					logger.Role(strings.Join(roles, ", ")),
					logger.Decision("deny"),
				)
				respondError(w, http.StatusForbidden,
					"requires one of these roles: "+strings.Join(roles, ", "))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequirePermission passes if the claim snapshot holds any one of the
// allowed permissions (OR semantics).
func RequirePermission(permissions ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims := ClaimsFromContext(r.Context())
			if claims == nil {
				respondError(w, http.StatusUnauthorized, "authentication required")
				return
			}
			if !claims.HasAnyPermission(permissions...) {
				slog.WarnContext(r.Context(), "authorization denied",
					logger.UserID(claims.UserID),
					logger.Permission(strings.Join(permissions, ", ")),
					logger.Decision("deny"),
				)
				respondError(w, http.StatusForbidden,
					"requires one of these permissions: "+strings.Join(permissions, ", "))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireAllPermissions passes only if the claim snapshot is a superset of
// the required permissions (AND semantics).
func RequireAllPermissions(permissions ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims := ClaimsFromContext(r.Context())
			if claims == nil {
				respondError(w, http.StatusUnauthorized, "authentication required")
				return
			}
			if !claims.HasAllPermissions(permissions...) {
				slog.WarnContext(r.Context(), "authorization denied",
					logger.UserID(claims.UserID),
					logger.Permission(strings.Join(permissions, ", ")),
					logger.Decision("deny"),
				)
				respondError(w, http.StatusForbidden,
					"requires all of these permissions: "+strings.Join(permissions, ", "))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireSuperAdmin passes iff the claim snapshot contains the immutable
// super admin role.
func RequireSuperAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims := ClaimsFromContext(r.Context())
		if claims == nil {
			respondError(w, http.StatusUnauthorized, "authentication required")
			return
		}
		if !claims.HasRole(authz.RoleSuperAdmin) {
			slog.WarnContext(r.Context(), "authorization denied",
				logger.UserID(claims.UserID),
				logger.Role(authz.RoleSuperAdmin),
				logger.Decision("deny"),
			)
			respondError(w, http.StatusForbidden, "super admin access required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireOwnerOrPermission passes if the path-addressed user equals the
// authenticated user, or the claim snapshot holds the permission. The
// decision depends only on already-verified claims and the URL parameter.
func RequireOwnerOrPermission(permission string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims := ClaimsFromContext(r.Context())
			if claims == nil {
				respondError(w, http.StatusUnauthorized, "authentication required")
				return
			}

			isOwner := chi.URLParam(r, "userID") == claims.UserID
			if !isOwner && !claims.HasPermission(permission) {
				slog.WarnContext(r.Context(), "authorization denied",
					logger.UserID(claims.UserID),
					logger.Permission(permission),
					logger.Decision("deny"),
				)
				respondError(w, http.StatusForbidden,
					"you can only access your own resources or need specific permission")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// DecisionMetrics counts the outcome of every request through a guarded
// route: a 401 or 403 is a deny, everything else an allow. Mounted before
// the authentication middleware so rejected credentials count too.
func DecisionMetrics(m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			allowed := ww.Status() != http.StatusUnauthorized && ww.Status() != http.StatusForbidden
			route := r.URL.Path
			if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
				route = rctx.RoutePattern()
			}
			m.Decision(r.Context(), route, allowed)
		})
	}
}

// LoggingMiddleware logs HTTP requests
func LoggingMiddleware() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			defer func() {
				slog.InfoContext(r.Context(), "http_request",
					logger.RequestID(middleware.GetReqID(r.Context())),
					logger.Method(r.Method),
					logger.Path(r.URL.Path),
					logger.RemoteAddr(r.RemoteAddr),
					logger.UserAgent(r.UserAgent()),
					logger.StatusCode(ww.Status()),
					logger.Duration(time.Since(start).Milliseconds()),
				)
			}()

			next.ServeHTTP(ww, r)
		})
	}
}
