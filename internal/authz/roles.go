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

package authz

// -----------------------------------------------------------------------------
// System Role Names
// These are the canonical names for the fixed roles seeded at migration time.
// System roles are immutable: their name and description cannot be changed
// and they cannot be deleted.
// -----------------------------------------------------------------------------

const (
	// RoleSuperAdmin has every permission and cannot be stripped from a
	// holder through the role-removal path.
	RoleSuperAdmin = "super_admin"

	// RoleAdmin is the administrative role for user and role management.
	RoleAdmin = "admin"

	// RoleManager is the elevated operational role.
	RoleManager = "manager"

	// RoleUser is the default role granted at registration.
	RoleUser = "user"
)

// systemRoles is the fixed, immutable role name set known to both the core
// and the transport boundary.
var systemRoles = map[string]struct{}{
	RoleSuperAdmin: {},
	RoleAdmin:      {},
	RoleManager:    {},
	RoleUser:       {},
}

// IsSystemRole reports whether name belongs to the immutable system set.
func IsSystemRole(name string) bool {
	_, ok := systemRoles[name]
	return ok
}

// SystemRoleNames returns the system role set in stable order.
func SystemRoleNames() []string {
	return []string{RoleSuperAdmin, RoleAdmin, RoleManager, RoleUser}
}
