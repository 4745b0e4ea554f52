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

	"github.com/authgrid/authgrid/internal/identity"
)

// ListUsers returns all users with their roles and permission closures
// @Summary List users
// @Tags Users
// @Produce json
// @Success 200 {object} map[string]any
// @Router /api/v1/users [get]
func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.identityService.ListUsers(r.Context())
	if err != nil {
		respondFault(w, err)
		return
	}

	views := make([]UserView, 0, len(users))
	for _, user := range users {
		view, err := h.userView(r.Context(), user)
		if err != nil {
			respondFault(w, err)
			return
		}
		views = append(views, view)
	}
	respondData(w, http.StatusOK, "Users retrieved successfully", views)
}

// CreateUserRequest represents administrative user creation data
type CreateUserRequest struct {
	Email     string   `json:"email" validate:"required,email"`
	Password  string   `json:"password" validate:"required"`
	FirstName string   `json:"firstName" validate:"omitempty,max=100"`
	LastName  string   `json:"lastName" validate:"omitempty,max=100"`
	RoleIDs   []string `json:"roleIds" validate:"omitempty,dive,uuid"`
}

// CreateUser provisions a user on behalf of an administrator. When no roles
// are named the default user role is assigned.
// @Summary Create user
// @Tags Users
// @Accept json
// @Produce json
// @Param request body CreateUserRequest true "User Data"
// @Success 201 {object} map[string]any
// @Failure 409 {object} map[string]string
// @Router /api/v1/users [post]
func (h *Handler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req CreateUserRequest
	if err := h.decode(r, &req); err != nil {
		respondFault(w, err)
		return
	}

	user, err := h.identityService.CreateUser(r.Context(), identity.CreateUserInput{
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		RoleIDs:   req.RoleIDs,
	}, UserIDFromContext(r.Context()))
	if err != nil {
		respondFault(w, err)
		return
	}

	view, err := h.userView(r.Context(), user)
	if err != nil {
		respondFault(w, err)
		return
	}
	respondData(w, http.StatusCreated, "User created successfully", view)
}

// GetUser returns a single user by ID
// @Summary Get user
// @Tags Users
// @Produce json
// @Param userID path string true "User ID"
// @Success 200 {object} map[string]any
// @Failure 404 {object} map[string]string
// @Router /api/v1/users/{userID} [get]
func (h *Handler) GetUser(w http.ResponseWriter, r *http.Request) {
	user, err := h.identityService.GetUser(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		respondFault(w, err)
		return
	}

	view, err := h.userView(r.Context(), user)
	if err != nil {
		respondFault(w, err)
		return
	}
	respondData(w, http.StatusOK, "User retrieved successfully", view)
}

// UpdateUserRequest is a partial user update
type UpdateUserRequest struct {
	Email     *string `json:"email" validate:"omitempty,email"`
	FirstName *string `json:"firstName" validate:"omitempty,max=100"`
	LastName  *string `json:"lastName" validate:"omitempty,max=100"`
	AvatarURL *string `json:"avatarUrl" validate:"omitempty,url"`
	IsActive  *bool   `json:"isActive"`
}

// UpdateUser applies a partial update to a user record
// @Summary Update user
// @Tags Users
// @Accept json
// @Produce json
// @Param userID path string true "User ID"
// @Param request body UpdateUserRequest true "User fields"
// @Success 200 {object} map[string]any
// @Failure 404 {object} map[string]string
// @Router /api/v1/users/{userID} [patch]
func (h *Handler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	var req UpdateUserRequest
	if err := h.decode(r, &req); err != nil {
		respondFault(w, err)
		return
	}

	user, err := h.identityService.UpdateUser(r.Context(), chi.URLParam(r, "userID"), identity.UserUpdate{
		Email:     req.Email,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		AvatarURL: req.AvatarURL,
		IsActive:  req.IsActive,
	})
	if err != nil {
		respondFault(w, err)
		return
	}

	view, err := h.userView(r.Context(), user)
	if err != nil {
		respondFault(w, err)
		return
	}
	respondData(w, http.StatusOK, "User updated successfully", view)
}

// DeleteUser removes a user. Self-deletion and deleting a super admin
// holder are both refused.
// @Summary Delete user
// @Tags Users
// @Produce json
// @Param userID path string true "User ID"
// @Success 200 {object} map[string]any
// @Failure 403 {object} map[string]string
// @Router /api/v1/users/{userID} [delete]
func (h *Handler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	if err := h.identityService.DeleteUser(r.Context(), chi.URLParam(r, "userID"), UserIDFromContext(r.Context())); err != nil {
		respondFault(w, err)
		return
	}
	respondData(w, http.StatusOK, "User deleted successfully", nil)
}

// AssignRolesRequest names the complete replacement role set
type AssignRolesRequest struct {
	RoleIDs []string `json:"roleIds" validate:"required,min=1,dive,uuid"`
}

// AssignUserRoles replaces a user's role set. The set may never become
// empty.
// @Summary Assign roles to user
// @Tags Users
// @Accept json
// @Produce json
// @Param userID path string true "User ID"
// @Param request body AssignRolesRequest true "Role IDs"
// @Success 200 {object} map[string]any
// @Failure 400 {object} map[string]string
// @Router /api/v1/users/{userID}/roles [post]
func (h *Handler) AssignUserRoles(w http.ResponseWriter, r *http.Request) {
	var req AssignRolesRequest
	if err := h.decode(r, &req); err != nil {
		respondFault(w, err)
		return
	}

	userID := chi.URLParam(r, "userID")
	user, err := h.identityService.GetUser(r.Context(), userID)
	if err != nil {
		respondFault(w, err)
		return
	}

	if err := h.authzService.AssignRoles(r.Context(), userID, req.RoleIDs, UserIDFromContext(r.Context())); err != nil {
		respondFault(w, err)
		return
	}

	view, err := h.userView(r.Context(), user)
	if err != nil {
		respondFault(w, err)
		return
	}
	respondData(w, http.StatusOK, "Roles assigned successfully", view)
}

// RemoveUserRole detaches one role from a user. The last role and the
// super_admin role cannot be removed.
// @Summary Remove role from user
// @Tags Users
// @Produce json
// @Param userID path string true "User ID"
// @Param roleID path string true "Role ID"
// @Success 200 {object} map[string]any
// @Failure 400 {object} map[string]string
// @Failure 403 {object} map[string]string
// @Router /api/v1/users/{userID}/roles/{roleID} [delete]
func (h *Handler) RemoveUserRole(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	if err := h.authzService.RemoveRole(r.Context(), userID, chi.URLParam(r, "roleID")); err != nil {
		respondFault(w, err)
		return
	}

	user, err := h.identityService.GetUser(r.Context(), userID)
	if err != nil {
		respondFault(w, err)
		return
	}
	view, err := h.userView(r.Context(), user)
	if err != nil {
		respondFault(w, err)
		return
	}
	respondData(w, http.StatusOK, "Role removed successfully", view)
}

// GetUserPermissions returns the user's flattened permission closure
// @Summary Get user permissions
// @Tags Users
// @Produce json
// @Param userID path string true "User ID"
// @Success 200 {object} map[string]any
// @Router /api/v1/users/{userID}/permissions [get]
func (h *Handler) GetUserPermissions(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	if _, err := h.identityService.GetUser(r.Context(), userID); err != nil {
		respondFault(w, err)
		return
	}

	permissions, err := h.authzService.UserPermissions(r.Context(), userID)
	if err != nil {
		respondFault(w, err)
		return
	}
	respondData(w, http.StatusOK, "Permissions retrieved successfully", permissionViews(permissions))
}
