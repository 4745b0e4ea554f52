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

import (
	"context"
	"sort"
	"strings"

	"github.com/authgrid/authgrid/internal/audit"
	"github.com/authgrid/authgrid/internal/fault"
	"github.com/google/uuid"
)

// Service owns the authorization graph: roles, permissions, and their
// junctions to each other and to users. Every multi-row mutation is
// delegated to the repository as a single atomic unit.
type Service struct {
	roles       RoleRepository
	permissions PermissionRepository
	assignments AssignmentRepository
	auditLogger audit.Logger
}

// NewService creates a new authorization graph service
func NewService(
	roles RoleRepository,
	permissions PermissionRepository,
	assignments AssignmentRepository,
	auditLogger audit.Logger,
) *Service {
	return &Service{
		roles:       roles,
		permissions: permissions,
		assignments: assignments,
		auditLogger: auditLogger,
	}
}

// -----------------------------------------------------------------------------
// Roles
// -----------------------------------------------------------------------------

// CreateRole validates the name pattern and uniqueness and creates the role,
// optionally with an initial permission set. The role row and its edges are
// written in one transaction.
func (s *Service) CreateRole(ctx context.Context, name, description string, permissionIDs []string) (*Role, error) {
	if !ValidName(name) {
		return nil, fault.BadRequest("role name must be lowercase and can only contain letters and underscores")
	}

	if existing, err := s.roles.GetByName(ctx, name); err == nil && existing != nil {
		return nil, fault.Conflict("role with this name already exists")
	} else if err != nil && !fault.IsKind(err, fault.KindNotFound) {
		return nil, err
	}

	permissionIDs = dedupeIDs(permissionIDs)
	if len(permissionIDs) > 0 {
		if err := s.resolvePermissionIDs(ctx, permissionIDs); err != nil {
			return nil, err
		}
	}

	role := &Role{
		ID:          uuid.NewString(),
		Name:        name,
		Description: description,
	}
	if err := s.roles.Create(ctx, role, permissionIDs); err != nil {
		return nil, err
	}

	return role, nil
}

// GetRole retrieves a role by ID
func (s *Service) GetRole(ctx context.Context, roleID string) (*Role, error) {
	return s.roles.GetByID(ctx, roleID)
}

// ListRoles retrieves all roles
func (s *Service) ListRoles(ctx context.Context) ([]*Role, error) {
	return s.roles.List(ctx)
}

// RolePermissions retrieves a role's permissions
func (s *Service) RolePermissions(ctx context.Context, roleID string) ([]*Permission, error) {
	if _, err := s.roles.GetByID(ctx, roleID); err != nil {
		return nil, err
	}
	return s.roles.ListPermissions(ctx, roleID)
}

// UpdateRole applies a partial update. System roles are immutable through
// this path; a name change re-checks the pattern and uniqueness.
func (s *Service) UpdateRole(ctx context.Context, roleID string, patch RoleUpdate) (*Role, error) {
	role, err := s.roles.GetByID(ctx, roleID)
	if err != nil {
		return nil, err
	}

	if role.IsSystem() {
		return nil, fault.Forbidden("cannot update system roles")
	}

	if patch.Name != nil && *patch.Name != role.Name {
		if !ValidName(*patch.Name) {
			return nil, fault.BadRequest("role name must be lowercase and can only contain letters and underscores")
		}
		if existing, err := s.roles.GetByName(ctx, *patch.Name); err == nil && existing != nil {
			return nil, fault.Conflict("role name already exists")
		} else if err != nil && !fault.IsKind(err, fault.KindNotFound) {
			return nil, err
		}
		role.Name = *patch.Name
	}
	if patch.Description != nil {
		role.Description = *patch.Description
	}

	if err := s.roles.Update(ctx, role); err != nil {
		return nil, err
	}
	return role, nil
}

// DeleteRole deletes a role. System roles and roles with holders are
// protected; the failure reports the blocking assignment count.
func (s *Service) DeleteRole(ctx context.Context, roleID string) error {
	role, err := s.roles.GetByID(ctx, roleID)
	if err != nil {
		return err
	}

	if role.IsSystem() {
		return fault.Forbidden("cannot delete system roles")
	}

	count, err := s.roles.CountAssignments(ctx, roleID)
	if err != nil {
		return err
	}
	if count > 0 {
		return fault.Newf(fault.KindForbidden, "cannot delete role: it is assigned to %d user(s)", count)
	}

	return s.roles.Delete(ctx, roleID)
}

// ReplaceRolePermissions atomically swaps the role's full permission edge
// set. Calling it twice with the same set yields the same final state.
func (s *Service) ReplaceRolePermissions(ctx context.Context, roleID string, permissionIDs []string) error {
	if _, err := s.roles.GetByID(ctx, roleID); err != nil {
		return err
	}
	permissionIDs = dedupeIDs(permissionIDs)
	if err := s.resolvePermissionIDs(ctx, permissionIDs); err != nil {
		return err
	}
	if err := s.roles.ReplacePermissions(ctx, roleID, permissionIDs); err != nil {
		return err
	}

	s.auditLogger.Log(ctx, audit.Event{
		Type:     audit.TypePermissionGranted,
		Resource: "role:" + roleID,
		Metadata: map[string]any{"permission_count": len(permissionIDs)},
	})
	return nil
}

// AddPermissionToRole inserts a single role-permission edge. Adding an edge
// that is already present is a Conflict.
func (s *Service) AddPermissionToRole(ctx context.Context, roleID, permissionID string) error {
	if _, err := s.roles.GetByID(ctx, roleID); err != nil {
		return err
	}
	if _, err := s.permissions.GetByID(ctx, permissionID); err != nil {
		return err
	}

	if err := s.roles.AddPermission(ctx, roleID, permissionID); err != nil {
		if fault.IsKind(err, fault.KindConflict) {
			return fault.Conflict("permission already assigned to this role")
		}
		return err
	}

	s.auditLogger.Log(ctx, audit.Event{
		Type:     audit.TypePermissionGranted,
		Resource: "role:" + roleID,
		Metadata: map[string]any{"permission_id": permissionID},
	})
	return nil
}

// RemovePermissionFromRole deletes a single role-permission edge. Removing
// an absent edge is NotFound.
func (s *Service) RemovePermissionFromRole(ctx context.Context, roleID, permissionID string) error {
	removed, err := s.roles.RemovePermission(ctx, roleID, permissionID)
	if err != nil {
		return err
	}
	if !removed {
		return fault.NotFound("role does not have this permission")
	}

	s.auditLogger.Log(ctx, audit.Event{
		Type:     audit.TypePermissionRevoked,
		Resource: "role:" + roleID,
		Metadata: map[string]any{"permission_id": permissionID},
	})
	return nil
}

// -----------------------------------------------------------------------------
// Permissions
// -----------------------------------------------------------------------------

// CreatePermission validates both segments, derives the canonical name, and
// rejects a derived-name collision.
func (s *Service) CreatePermission(ctx context.Context, resource, action, description string) (*Permission, error) {
	if !ValidName(resource) {
		return nil, fault.BadRequest("resource must be lowercase and can only contain letters and underscores")
	}
	if !ValidName(action) {
		return nil, fault.BadRequest("action must be lowercase and can only contain letters and underscores")
	}

	name := PermissionName(resource, action)
	if existing, err := s.permissions.GetByName(ctx, name); err == nil && existing != nil {
		return nil, fault.Conflict("permission with this name already exists")
	} else if err != nil && !fault.IsKind(err, fault.KindNotFound) {
		return nil, err
	}

	permission := &Permission{
		ID:          uuid.NewString(),
		Name:        name,
		Resource:    resource,
		Action:      action,
		Description: description,
	}
	if err := s.permissions.Create(ctx, permission); err != nil {
		return nil, err
	}
	return permission, nil
}

// GetPermission retrieves a permission by ID
func (s *Service) GetPermission(ctx context.Context, permissionID string) (*Permission, error) {
	return s.permissions.GetByID(ctx, permissionID)
}

// ListPermissions retrieves all permissions ordered by resource then action
func (s *Service) ListPermissions(ctx context.Context) ([]*Permission, error) {
	return s.permissions.List(ctx)
}

// UpdatePermission applies a partial update. A resource or action change
// recomputes the derived name; uniqueness is re-validated only when the
// derived name actually changes.
func (s *Service) UpdatePermission(ctx context.Context, permissionID string, patch PermissionUpdate) (*Permission, error) {
	permission, err := s.permissions.GetByID(ctx, permissionID)
	if err != nil {
		return nil, err
	}

	if patch.Resource != nil {
		if !ValidName(*patch.Resource) {
			return nil, fault.BadRequest("resource must be lowercase and can only contain letters and underscores")
		}
		permission.Resource = *patch.Resource
	}
	if patch.Action != nil {
		if !ValidName(*patch.Action) {
			return nil, fault.BadRequest("action must be lowercase and can only contain letters and underscores")
		}
		permission.Action = *patch.Action
	}
	if patch.Description != nil {
		permission.Description = *patch.Description
	}

	newName := PermissionName(permission.Resource, permission.Action)
	if newName != permission.Name {
		if existing, err := s.permissions.GetByName(ctx, newName); err == nil && existing != nil {
			return nil, fault.Conflict("permission with this name already exists")
		} else if err != nil && !fault.IsKind(err, fault.KindNotFound) {
			return nil, err
		}
		permission.Name = newName
	}

	if err := s.permissions.Update(ctx, permission); err != nil {
		return nil, err
	}
	return permission, nil
}

// DeletePermission deletes a permission unless a role still references it.
func (s *Service) DeletePermission(ctx context.Context, permissionID string) error {
	if _, err := s.permissions.GetByID(ctx, permissionID); err != nil {
		return err
	}

	count, err := s.permissions.CountRoleRefs(ctx, permissionID)
	if err != nil {
		return err
	}
	if count > 0 {
		return fault.Newf(fault.KindForbidden, "cannot delete permission: it is assigned to %d role(s)", count)
	}

	return s.permissions.Delete(ctx, permissionID)
}

// PermissionsByResource returns permissions grouped by resource, each group
// ordered by action. Used for capability discovery, not authorization.
func (s *Service) PermissionsByResource(ctx context.Context) (map[string][]*Permission, error) {
	permissions, err := s.permissions.List(ctx)
	if err != nil {
		return nil, err
	}

	grouped := make(map[string][]*Permission)
	for _, p := range permissions {
		grouped[p.Resource] = append(grouped[p.Resource], p)
	}
	for _, group := range grouped {
		sort.Slice(group, func(i, j int) bool { return group[i].Action < group[j].Action })
	}
	return grouped, nil
}

// PermissionsForResource returns the permissions defined on one resource,
// ordered by action.
func (s *Service) PermissionsForResource(ctx context.Context, resource string) ([]*Permission, error) {
	permissions, err := s.permissions.List(ctx)
	if err != nil {
		return nil, err
	}

	matched := make([]*Permission, 0, len(permissions))
	for _, p := range permissions {
		if p.Resource == resource {
			matched = append(matched, p)
		}
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].Action < matched[j].Action })
	return matched, nil
}

// -----------------------------------------------------------------------------
// Role assignments (user <-> role edge)
// -----------------------------------------------------------------------------

// AssignRoles atomically replaces the user's role set. An empty set is
// rejected: a user holds at least one role at all times.
func (s *Service) AssignRoles(ctx context.Context, userID string, roleIDs []string, assignedBy string) error {
	if len(roleIDs) == 0 {
		return fault.BadRequest("user must have at least one role")
	}
	roleIDs = dedupeIDs(roleIDs)
	if err := s.resolveRoleIDs(ctx, roleIDs); err != nil {
		return err
	}

	if err := s.assignments.ReplaceForUser(ctx, userID, roleIDs, assignedBy); err != nil {
		return err
	}

	s.auditLogger.Log(ctx, audit.Event{
		Type:     audit.TypeRoleAssigned,
		ActorID:  assignedBy,
		Resource: "user:" + userID,
		Metadata: map[string]any{"role_count": len(roleIDs)},
	})
	return nil
}

// GetRoleByName retrieves a role by its unique name.
func (s *Service) GetRoleByName(ctx context.Context, name string) (*Role, error) {
	return s.roles.GetByName(ctx, name)
}

// RemoveRole deletes a single user-role edge subject to the safety
// invariants: the super_admin assignment cannot be removed, and the user's
// last role cannot be removed.
func (s *Service) RemoveRole(ctx context.Context, userID, roleID string) error {
	if _, err := s.assignments.Get(ctx, userID, roleID); err != nil {
		if fault.IsKind(err, fault.KindNotFound) {
			return fault.NotFound("user does not have this role")
		}
		return err
	}

	role, err := s.roles.GetByID(ctx, roleID)
	if err != nil {
		return err
	}
	if role.Name == RoleSuperAdmin {
		return fault.Forbidden("cannot remove super_admin role")
	}

	count, err := s.assignments.CountForUser(ctx, userID)
	if err != nil {
		return err
	}
	if count <= 1 {
		return fault.BadRequest("user must have at least one role")
	}

	removed, err := s.assignments.Remove(ctx, userID, roleID)
	if err != nil {
		return err
	}
	if !removed {
		return fault.NotFound("user does not have this role")
	}

	s.auditLogger.Log(ctx, audit.Event{
		Type:     audit.TypeRoleRevoked,
		Resource: "user:" + userID,
		Metadata: map[string]any{"role_id": roleID, "role_name": role.Name},
	})
	return nil
}

// RolesForUser returns all roles the user holds.
func (s *Service) RolesForUser(ctx context.Context, userID string) ([]*Role, error) {
	return s.assignments.RolesForUser(ctx, userID)
}

// UserPermissions returns the user's distinct permissions across all held
// roles.
func (s *Service) UserPermissions(ctx context.Context, userID string) ([]*Permission, error) {
	return s.assignments.PermissionsForUser(ctx, userID)
}

// ResolveClosure computes the user's role names and the deduplicated union
// of permission names across those roles. The union is order-independent;
// the result is sorted for determinism.
func (s *Service) ResolveClosure(ctx context.Context, userID string) (roles []string, permissions []string, err error) {
	heldRoles, err := s.assignments.RolesForUser(ctx, userID)
	if err != nil {
		return nil, nil, err
	}

	roles = make([]string, 0, len(heldRoles))
	for _, r := range heldRoles {
		roles = append(roles, r.Name)
	}

	perms, err := s.assignments.PermissionsForUser(ctx, userID)
	if err != nil {
		return nil, nil, err
	}

	seen := make(map[string]struct{}, len(perms))
	permissions = make([]string, 0, len(perms))
	for _, p := range perms {
		if _, dup := seen[p.Name]; dup {
			continue
		}
		seen[p.Name] = struct{}{}
		permissions = append(permissions, p.Name)
	}

	sort.Strings(roles)
	sort.Strings(permissions)
	return roles, permissions, nil
}

// -----------------------------------------------------------------------------
// Batch validation helpers
// -----------------------------------------------------------------------------

// dedupeIDs drops repeated IDs, keeping first-occurrence order. A repeated
// ID is neither an invalid reference nor a second edge.
func dedupeIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	deduped := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		deduped = append(deduped, id)
	}
	return deduped
}

// resolvePermissionIDs verifies that every ID resolves to an existing
// permission, naming the invalid subset on failure. Callers pass deduplicated
// IDs; the batch lookup returns distinct rows.
func (s *Service) resolvePermissionIDs(ctx context.Context, ids []string) error {
	found, err := s.permissions.GetByIDs(ctx, ids)
	if err != nil {
		return err
	}
	if len(found) == len(ids) {
		return nil
	}

	known := make(map[string]struct{}, len(found))
	for _, p := range found {
		known[p.ID] = struct{}{}
	}
	var invalid []string
	for _, id := range ids {
		if _, ok := known[id]; !ok {
			invalid = append(invalid, id)
		}
	}
	return fault.Newf(fault.KindBadRequest, "invalid permission IDs: %s", strings.Join(invalid, ", "))
}

// resolveRoleIDs verifies that every ID resolves to an existing role,
// naming the invalid subset on failure.
func (s *Service) resolveRoleIDs(ctx context.Context, ids []string) error {
	var invalid []string
	for _, id := range ids {
		if _, err := s.roles.GetByID(ctx, id); err != nil {
			if fault.IsKind(err, fault.KindNotFound) {
				invalid = append(invalid, id)
				continue
			}
			return err
		}
	}
	if len(invalid) > 0 {
		return fault.Newf(fault.KindBadRequest, "invalid role IDs: %s", strings.Join(invalid, ", "))
	}
	return nil
}
