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
	"time"

	"github.com/authgrid/authgrid/internal/authz"
	"github.com/authgrid/authgrid/internal/identity"
)

// RoleView is the outward representation of a role.
type RoleView struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	IsSystem    bool      `json:"isSystem"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// PermissionView is the outward representation of a permission.
type PermissionView struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Resource    string    `json:"resource"`
	Action      string    `json:"action"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// UserView is the outward representation of a user. The password hash never
// appears here.
type UserView struct {
	ID          string     `json:"id"`
	Email       string     `json:"email"`
	FirstName   string     `json:"firstName"`
	LastName    string     `json:"lastName"`
	AvatarURL   string     `json:"avatarUrl"`
	IsActive    bool       `json:"isActive"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
	Roles       []RoleView `json:"roles"`
	Permissions []string   `json:"permissions"`
}

func roleView(r *authz.Role) RoleView {
	return RoleView{
		ID:          r.ID,
		Name:        r.Name,
		Description: r.Description,
		IsSystem:    r.IsSystem(),
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}

func roleViews(roles []*authz.Role) []RoleView {
	views := make([]RoleView, 0, len(roles))
	for _, r := range roles {
		views = append(views, roleView(r))
	}
	return views
}

func permissionView(p *authz.Permission) PermissionView {
	return PermissionView{
		ID:          p.ID,
		Name:        p.Name,
		Resource:    p.Resource,
		Action:      p.Action,
		Description: p.Description,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

func permissionViews(perms []*authz.Permission) []PermissionView {
	views := make([]PermissionView, 0, len(perms))
	for _, p := range perms {
		views = append(views, permissionView(p))
	}
	return views
}

// userView assembles the outward user shape, including the resolved roles
// and the flattened permission closure.
func (h *Handler) userView(ctx context.Context, user *identity.User) (UserView, error) {
	roles, err := h.authzService.RolesForUser(ctx, user.ID)
	if err != nil {
		return UserView{}, err
	}
	_, permissions, err := h.authzService.ResolveClosure(ctx, user.ID)
	if err != nil {
		return UserView{}, err
	}
	return UserView{
		ID:          user.ID,
		Email:       user.Email,
		FirstName:   user.FirstName,
		LastName:    user.LastName,
		AvatarURL:   user.AvatarURL,
		IsActive:    user.IsActive,
		CreatedAt:   user.CreatedAt,
		UpdatedAt:   user.UpdatedAt,
		Roles:       roleViews(roles),
		Permissions: permissions,
	}, nil
}
