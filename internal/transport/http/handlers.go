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
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/authgrid/authgrid/internal/audit"
	"github.com/authgrid/authgrid/internal/authz"
	"github.com/authgrid/authgrid/internal/identity"
	"github.com/authgrid/authgrid/internal/observability/metrics"
	"github.com/authgrid/authgrid/internal/token"
)

// Handler holds HTTP handlers and dependencies
type Handler struct {
	identityService *identity.Service
	authzService    *authz.Service
	tokenService    *token.Service
	auditLogger     audit.Logger
	metrics         *metrics.Metrics
	validate        *validator.Validate
}

// NewHandler creates a new HTTP handler. A nil metrics set disables
// recording without changing behavior.
func NewHandler(
	identityService *identity.Service,
	authzService *authz.Service,
	tokenService *token.Service,
	auditLogger audit.Logger,
	meterSet *metrics.Metrics,
) *Handler {
	return &Handler{
		identityService: identityService,
		authzService:    authzService,
		tokenService:    tokenService,
		auditLogger:     auditLogger,
		metrics:         meterSet,
		validate:        validator.New(),
	}
}

// NewRouter creates a new HTTP router
func NewRouter(h *Handler, rateLimiter *RateLimiter) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(func(handler http.Handler) http.Handler {
		return otelhttp.NewHandler(handler, "http_request",
			otelhttp.WithSpanNameFormatter(func(operation string, r *http.Request) string {
				return r.Method + " " + r.URL.Path
			}),
		)
	})
	r.Use(LoggingMiddleware())
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	// Health check
	r.Get("/health", h.HealthCheck)

	auth := Authenticate(h.tokenService)

	r.Route("/api/v1", func(r chi.Router) {
		// Public authentication endpoints, rate-limited per client.
		r.Group(func(r chi.Router) {
			r.Use(RateLimitMiddleware(rateLimiter))
			r.Post("/auth/register", h.Register)
			r.Post("/auth/login", h.Login)
			r.Post("/auth/refresh-token", h.RefreshToken)
		})

		// Session-holder endpoints: any valid access token.
		r.Group(func(r chi.Router) {
			r.Use(auth)
			r.Get("/auth/profile", h.GetProfile)
			r.Patch("/auth/profile", h.UpdateProfile)
			r.Post("/auth/change-password", h.ChangePassword)
			r.Post("/auth/logout", h.Logout)
		})

		r.Route("/users", func(r chi.Router) {
			r.Use(DecisionMetrics(h.metrics))
			r.Use(auth)
			r.With(RequirePermission("users:read")).Get("/", h.ListUsers)
			r.With(RequirePermission("users:create")).Post("/", h.CreateUser)
			r.With(RequireOwnerOrPermission("users:read")).Get("/{userID}", h.GetUser)
			r.With(RequireOwnerOrPermission("users:update")).Patch("/{userID}", h.UpdateUser)
			r.With(RequirePermission("users:delete")).Delete("/{userID}", h.DeleteUser)
			r.With(RequirePermission("users:update")).Post("/{userID}/roles", h.AssignUserRoles)
			r.With(RequirePermission("users:update")).Delete("/{userID}/roles/{roleID}", h.RemoveUserRole)
			r.With(RequireOwnerOrPermission("users:read")).Get("/{userID}/permissions", h.GetUserPermissions)
		})

		r.Route("/roles", func(r chi.Router) {
			r.Use(DecisionMetrics(h.metrics))
			r.Use(auth)
			r.With(RequirePermission("roles:read")).Get("/", h.ListRoles)
			r.With(RequirePermission("roles:create")).Post("/", h.CreateRole)
			r.With(RequirePermission("roles:read")).Get("/{roleID}", h.GetRole)
			r.With(RequirePermission("roles:update")).Patch("/{roleID}", h.UpdateRole)
			r.With(RequirePermission("roles:delete")).Delete("/{roleID}", h.DeleteRole)
			r.With(RequirePermission("roles:update")).Post("/{roleID}/permissions", h.ReplaceRolePermissions)
			r.With(RequirePermission("roles:update")).Post("/{roleID}/permissions/add", h.AddRolePermission)
			r.With(RequirePermission("roles:update")).Delete("/{roleID}/permissions/{permissionID}", h.RemoveRolePermission)
		})

		r.Route("/permissions", func(r chi.Router) {
			r.Use(DecisionMetrics(h.metrics))
			r.Use(auth)
			r.With(RequirePermission("permissions:read")).Get("/", h.ListPermissions)
			r.With(RequirePermission("permissions:read")).Get("/grouped", h.ListPermissionsGrouped)
			r.With(RequirePermission("permissions:read")).Get("/resources/{resource}/actions", h.ListResourceActions)
			r.With(RequirePermission("permissions:create")).Post("/", h.CreatePermission)
			r.With(RequirePermission("permissions:read")).Get("/{permissionID}", h.GetPermission)
			r.With(RequirePermission("permissions:update")).Patch("/{permissionID}", h.UpdatePermission)
			r.With(RequirePermission("permissions:delete")).Delete("/{permissionID}", h.DeletePermission)
		})
	})

	return r
}

// HealthCheck returns the health status
// @Summary Health Check
// @Tags System
// @Produce json
// @Success 200 {object} map[string]string
// @Router /health [get]
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": "authgrid",
	})
}
