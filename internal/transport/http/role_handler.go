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
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/authgrid/authgrid/internal/authz"
)

// RoleDetailView is a role together with its attached permissions.
type RoleDetailView struct {
	RoleView
	Permissions []PermissionView `json:"permissions"`
}

func (h *Handler) roleDetailView(ctx context.Context, role *authz.Role) (RoleDetailView, error) {
	permissions, err := h.authzService.RolePermissions(ctx, role.ID)
	if err != nil {
		return RoleDetailView{}, err
	}
	return RoleDetailView{
		RoleView:    roleView(role),
		Permissions: permissionViews(permissions),
	}, nil
}

// ListRoles returns all roles
// @Summary List roles
// @Tags Roles
// @Produce json
// @Success 200 {object} map[string]any
// @Router /api/v1/roles [get]
func (h *Handler) ListRoles(w http.ResponseWriter, r *http.Request) {
	roles, err := h.authzService.ListRoles(r.Context())
	if err != nil {
		respondFault(w, err)
		return
	}
	respondData(w, http.StatusOK, "Roles retrieved successfully", roleViews(roles))
}

// CreateRoleRequest represents role creation data
type CreateRoleRequest struct {
	Name          string   `json:"name" validate:"required,max=100"`
	Description   string   `json:"description" validate:"omitempty,max=500"`
	PermissionIDs []string `json:"permissionIds" validate:"omitempty,dive,uuid"`
}

// CreateRole creates a role, optionally attaching an initial permission set
// @Summary Create role
// @Tags Roles
// @Accept json
// @Produce json
// @Param request body CreateRoleRequest true "Role Data"
// @Success 201 {object} map[string]any
// @Failure 400 {object} map[string]string
// @Failure 409 {object} map[string]string
// @Router /api/v1/roles [post]
func (h *Handler) CreateRole(w http.ResponseWriter, r *http.Request) {
	var req CreateRoleRequest
	if err := h.decode(r, &req); err != nil {
		respondFault(w, err)
		return
	}

	role, err := h.authzService.CreateRole(r.Context(), req.Name, req.Description, req.PermissionIDs)
	if err != nil {
		respondFault(w, err)
		return
	}

	view, err := h.roleDetailView(r.Context(), role)
	if err != nil {
		respondFault(w, err)
		return
	}
	respondData(w, http.StatusCreated, "Role created successfully", view)
}

// GetRole returns a role with its permissions
// @Summary Get role
// @Tags Roles
// @Produce json
// @Param roleID path string true "Role ID"
// @Success 200 {object} map[string]any
// @Failure 404 {object} map[string]string
// @Router /api/v1/roles/{roleID} [get]
func (h *Handler) GetRole(w http.ResponseWriter, r *http.Request) {
	role, err := h.authzService.GetRole(r.Context(), chi.URLParam(r, "roleID"))
	if err != nil {
		respondFault(w, err)
		return
	}

	view, err := h.roleDetailView(r.Context(), role)
	if err != nil {
		respondFault(w, err)
		return
	}
	respondData(w, http.StatusOK, "Role retrieved successfully", view)
}

// UpdateRoleRequest is a partial role update
type UpdateRoleRequest struct {
	Name        *string `json:"name" validate:"omitempty,max=100"`
	Description *string `json:"description" validate:"omitempty,max=500"`
}

// UpdateRole renames or re-describes a role. System roles are immutable.
// @Summary Update role
// @Tags Roles
// @Accept json
// @Produce json
// @Param roleID path string true "Role ID"
// @Param request body UpdateRoleRequest true "Role fields"
// @Success 200 {object} map[string]any
// @Failure 403 {object} map[string]string
// @Router /api/v1/roles/{roleID} [patch]
func (h *Handler) UpdateRole(w http.ResponseWriter, r *http.Request) {
	var req UpdateRoleRequest
	if err := h.decode(r, &req); err != nil {
		respondFault(w, err)
		return
	}

	role, err := h.authzService.UpdateRole(r.Context(), chi.URLParam(r, "roleID"), authz.RoleUpdate{
		Name:        req.Name,
		Description: req.Description,
	})
	if err != nil {
		respondFault(w, err)
		return
	}
	respondData(w, http.StatusOK, "Role updated successfully", roleView(role))
}

// DeleteRole removes a role. System roles and roles still assigned to
// users are refused.
// @Summary Delete role
// @Tags Roles
// @Produce json
// @Param roleID path string true "Role ID"
// @Success 200 {object} map[string]any
// @Failure 403 {object} map[string]string
// @Router /api/v1/roles/{roleID} [delete]
func (h *Handler) DeleteRole(w http.ResponseWriter, r *http.Request) {
	if err := h.authzService.DeleteRole(r.Context(), chi.URLParam(r, "roleID")); err != nil {
		respondFault(w, err)
		return
	}
	respondData(w, http.StatusOK, "Role deleted successfully", nil)
}

// ReplacePermissionsRequest names the complete replacement permission set
type ReplacePermissionsRequest struct {
	PermissionIDs []string `json:"permissionIds" validate:"required,dive,uuid"`
}

// ReplaceRolePermissions swaps the role's permission set wholesale
// @Summary Replace role permissions
// @Tags Roles
// @Accept json
// @Produce json
// @Param roleID path string true "Role ID"
// @Param request body ReplacePermissionsRequest true "Permission IDs"
// @Success 200 {object} map[string]any
// @Router /api/v1/roles/{roleID}/permissions [post]
func (h *Handler) ReplaceRolePermissions(w http.ResponseWriter, r *http.Request) {
	var req ReplacePermissionsRequest
	if err := h.decode(r, &req); err != nil {
		respondFault(w, err)
		return
	}

	roleID := chi.URLParam(r, "roleID")
	if err := h.authzService.ReplaceRolePermissions(r.Context(), roleID, req.PermissionIDs); err != nil {
		respondFault(w, err)
		return
	}

	role, err := h.authzService.GetRole(r.Context(), roleID)
	if err != nil {
		respondFault(w, err)
		return
	}
	view, err := h.roleDetailView(r.Context(), role)
	if err != nil {
		respondFault(w, err)
		return
	}
	respondData(w, http.StatusOK, "Permissions assigned successfully", view)
}

// AddPermissionRequest names a single permission to attach
type AddPermissionRequest struct {
	PermissionID string `json:"permissionId" validate:"required,uuid"`
}

// AddRolePermission attaches one permission to a role
// @Summary Add permission to role
// @Tags Roles
// @Accept json
// @Produce json
// @Param roleID path string true "Role ID"
// @Param request body AddPermissionRequest true "Permission ID"
// @Success 200 {object} map[string]any
// @Failure 409 {object} map[string]string
// @Router /api/v1/roles/{roleID}/permissions/add [post]
func (h *Handler) AddRolePermission(w http.ResponseWriter, r *http.Request) {
	var req AddPermissionRequest
	if err := h.decode(r, &req); err != nil {
		respondFault(w, err)
		return
	}

	roleID := chi.URLParam(r, "roleID")
	if err := h.authzService.AddPermissionToRole(r.Context(), roleID, req.PermissionID); err != nil {
		respondFault(w, err)
		return
	}

	role, err := h.authzService.GetRole(r.Context(), roleID)
	if err != nil {
		respondFault(w, err)
		return
	}
	view, err := h.roleDetailView(r.Context(), role)
	if err != nil {
		respondFault(w, err)
		return
	}
	respondData(w, http.StatusOK, "Permission added successfully", view)
}

// RemoveRolePermission detaches one permission from a role
// @Summary Remove permission from role
// @Tags Roles
// @Produce json
// @Param roleID path string true "Role ID"
// @Param permissionID path string true "Permission ID"
// @Success 200 {object} map[string]any
// @Failure 404 {object} map[string]string
// @Router /api/v1/roles/{roleID}/permissions/{permissionID} [delete]
func (h *Handler) RemoveRolePermission(w http.ResponseWriter, r *http.Request) {
	roleID := chi.URLParam(r, "roleID")
	if err := h.authzService.RemovePermissionFromRole(r.Context(), roleID, chi.URLParam(r, "permissionID")); err != nil {
		respondFault(w, err)
		return
	}

	role, err := h.authzService.GetRole(r.Context(), roleID)
	if err != nil {
		respondFault(w, err)
		return
	}
	view, err := h.roleDetailView(r.Context(), role)
	if err != nil {
		respondFault(w, err)
		return
	}
	respondData(w, http.StatusOK, "Permission removed successfully", view)
}
