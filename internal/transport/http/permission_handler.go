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

	"github.com/go-chi/chi/v5"

	"github.com/authgrid/authgrid/internal/authz"
)

// ListPermissions returns all permissions
// @Summary List permissions
// @Tags Permissions
// @Produce json
// @Success 200 {object} map[string]any
// @Router /api/v1/permissions [get]
func (h *Handler) ListPermissions(w http.ResponseWriter, r *http.Request) {
	permissions, err := h.authzService.ListPermissions(r.Context())
	if err != nil {
		respondFault(w, err)
		return
	}
	respondData(w, http.StatusOK, "Permissions retrieved successfully", permissionViews(permissions))
}

// ListPermissionsGrouped returns permissions grouped by resource
// @Summary List permissions grouped by resource
// @Tags Permissions
// @Produce json
// @Success 200 {object} map[string]any
// @Router /api/v1/permissions/grouped [get]
func (h *Handler) ListPermissionsGrouped(w http.ResponseWriter, r *http.Request) {
	grouped, err := h.authzService.PermissionsByResource(r.Context())
	if err != nil {
		respondFault(w, err)
		return
	}

	views := make(map[string][]PermissionView, len(grouped))
	for resource, group := range grouped {
		views[resource] = permissionViews(group)
	}
	respondData(w, http.StatusOK, "Permissions retrieved successfully", views)
}

// ListResourceActions returns the actions defined on one resource
// @Summary List actions for a resource
// @Tags Permissions
// @Produce json
// @Param resource path string true "Resource"
// @Success 200 {object} map[string]any
// @Router /api/v1/permissions/resources/{resource}/actions [get]
func (h *Handler) ListResourceActions(w http.ResponseWriter, r *http.Request) {
	permissions, err := h.authzService.PermissionsForResource(r.Context(), chi.URLParam(r, "resource"))
	if err != nil {
		respondFault(w, err)
		return
	}
	respondData(w, http.StatusOK, "Actions retrieved successfully", permissionViews(permissions))
}

// CreatePermissionRequest represents permission creation data. The name is
// derived, never supplied.
type CreatePermissionRequest struct {
	Resource    string `json:"resource" validate:"required,max=100"`
	Action      string `json:"action" validate:"required,max=100"`
	Description string `json:"description" validate:"omitempty,max=500"`
}

// CreatePermission defines a new resource:action capability
// @Summary Create permission
// @Tags Permissions
// @Accept json
// @Produce json
// @Param request body CreatePermissionRequest true "Permission Data"
// @Success 201 {object} map[string]any
// @Failure 400 {object} map[string]string
// @Failure 409 {object} map[string]string
// @Router /api/v1/permissions [post]
func (h *Handler) CreatePermission(w http.ResponseWriter, r *http.Request) {
	var req CreatePermissionRequest
	if err := h.decode(r, &req); err != nil {
		respondFault(w, err)
		return
	}

	permission, err := h.authzService.CreatePermission(r.Context(), req.Resource, req.Action, req.Description)
	if err != nil {
		respondFault(w, err)
		return
	}
	respondData(w, http.StatusCreated, "Permission created successfully", permissionView(permission))
}

// GetPermission returns a single permission by ID
// @Summary Get permission
// @Tags Permissions
// @Produce json
// @Param permissionID path string true "Permission ID"
// @Success 200 {object} map[string]any
// @Failure 404 {object} map[string]string
// @Router /api/v1/permissions/{permissionID} [get]
func (h *Handler) GetPermission(w http.ResponseWriter, r *http.Request) {
	permission, err := h.authzService.GetPermission(r.Context(), chi.URLParam(r, "permissionID"))
	if err != nil {
		respondFault(w, err)
		return
	}
	respondData(w, http.StatusOK, "Permission retrieved successfully", permissionView(permission))
}

// UpdatePermissionRequest is a partial permission update. Changing resource
// or action recomputes the derived name.
type UpdatePermissionRequest struct {
	Resource    *string `json:"resource" validate:"omitempty,max=100"`
	Action      *string `json:"action" validate:"omitempty,max=100"`
	Description *string `json:"description" validate:"omitempty,max=500"`
}

// UpdatePermission applies a partial update to a permission
// @Summary Update permission
// @Tags Permissions
// @Accept json
// @Produce json
// @Param permissionID path string true "Permission ID"
// @Param request body UpdatePermissionRequest true "Permission fields"
// @Success 200 {object} map[string]any
// @Failure 409 {object} map[string]string
// @Router /api/v1/permissions/{permissionID} [patch]
func (h *Handler) UpdatePermission(w http.ResponseWriter, r *http.Request) {
	var req UpdatePermissionRequest
	if err := h.decode(r, &req); err != nil {
		respondFault(w, err)
		return
	}

	permission, err := h.authzService.UpdatePermission(r.Context(), chi.URLParam(r, "permissionID"), authz.PermissionUpdate{
		Resource:    req.Resource,
		Action:      req.Action,
		Description: req.Description,
	})
	if err != nil {
		respondFault(w, err)
		return
	}
	respondData(w, http.StatusOK, "Permission updated successfully", permissionView(permission))
}

// DeletePermission removes a permission unless roles still reference it
// @Summary Delete permission
// @Tags Permissions
// @Produce json
// @Param permissionID path string true "Permission ID"
// @Success 200 {object} map[string]any
// @Failure 403 {object} map[string]string
// @Router /api/v1/permissions/{permissionID} [delete]
func (h *Handler) DeletePermission(w http.ResponseWriter, r *http.Request) {
	if err := h.authzService.DeletePermission(r.Context(), chi.URLParam(r, "permissionID")); err != nil {
		respondFault(w, err)
		return
	}
	respondData(w, http.StatusOK, "Permission deleted successfully", nil)
}
