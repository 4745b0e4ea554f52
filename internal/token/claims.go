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

package token

import (
	"github.com/golang-jwt/jwt/v5"
)

// Claims is the fixed-shape snapshot embedded in both token kinds at
// issuance. It is authoritative for the token's lifetime: revoking or
// changing roles does not retroactively alter already-issued tokens.
// No extra fields are trusted from input.
type Claims struct {
	UserID      string   `json:"userId"`
	Email       string   `json:"email"`
	Roles       []string `json:"roles"`
	Permissions []string `json:"permissions"`
	jwt.RegisteredClaims

	roleSet map[string]struct{}
	permSet map[string]struct{}
}

// HasRole reports whether the snapshot contains the role.
func (c *Claims) HasRole(role string) bool {
	if c.roleSet == nil {
		c.roleSet = toSet(c.Roles)
	}
	_, ok := c.roleSet[role]
	return ok
}

// HasAnyRole reports whether the snapshot intersects the given set.
func (c *Claims) HasAnyRole(roles ...string) bool {
	for _, r := range roles {
		if c.HasRole(r) {
			return true
		}
	}
	return false
}

// HasPermission reports whether the snapshot contains the permission.
func (c *Claims) HasPermission(permission string) bool {
	if c.permSet == nil {
		c.permSet = toSet(c.Permissions)
	}
	_, ok := c.permSet[permission]
	return ok
}

// HasAnyPermission reports whether the snapshot intersects the given set
// (OR semantics: any one suffices).
func (c *Claims) HasAnyPermission(permissions ...string) bool {
	for _, p := range permissions {
		if c.HasPermission(p) {
			return true
		}
	}
	return false
}

// HasAllPermissions reports whether the snapshot is a superset of the given
// set (AND semantics).
func (c *Claims) HasAllPermissions(permissions ...string) bool {
	for _, p := range permissions {
		if !c.HasPermission(p) {
			return false
		}
	}
	return true
}

func toSet(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[v] = struct{}{}
	}
	return set
}
