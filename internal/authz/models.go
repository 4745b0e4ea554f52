package authz

import (
	"context"
	"fmt"
	"regexp"
	"time"
)

// namePattern constrains role names and permission segments: lowercase
// letters and underscores only.
var namePattern = regexp.MustCompile(`^[a-z_]+$`)

// ValidName reports whether s is a valid role name or permission segment.
func ValidName(s string) bool {
	return namePattern.MatchString(s)
}

// PermissionName derives the canonical permission name from its segments.
// The derived name is the identity the rest of the system keys on.
func PermissionName(resource, action string) string {
	return fmt.Sprintf("%s:%s", resource, action)
}

// Role is a named bundle of permissions assignable to users
type Role struct {
	ID          string
	Name        string
	Description string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// IsSystem reports whether the role belongs to the immutable system set.
func (r *Role) IsSystem() bool {
	return IsSystemRole(r.Name)
}

// Permission is an atomic resource:action capability
type Permission struct {
	ID          string
	Name        string // always `${resource}:${action}`
	Resource    string
	Action      string
	Description string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// RoleAssignment joins a user to a role
type RoleAssignment struct {
	UserID     string
	RoleID     string
	AssignedAt time.Time
	AssignedBy string // self-referential during bootstrap
}

// RoleUpdate is a partial update: only present fields are applied.
type RoleUpdate struct {
	Name        *string
	Description *string
}

// PermissionUpdate is a partial update: only present fields are applied.
// Changing resource or action recomputes the derived name.
type PermissionUpdate struct {
	Resource    *string
	Action      *string
	Description *string
}

// RoleRepository defines the interface for role persistence
type RoleRepository interface {
	// Create inserts the role and, when permissionIDs is non-empty, its
	// permission edges in a single transaction.
	Create(ctx context.Context, role *Role, permissionIDs []string) error

	// GetByID retrieves a role by ID
	GetByID(ctx context.Context, id string) (*Role, error)

	// GetByName retrieves a role by name
	GetByName(ctx context.Context, name string) (*Role, error)

	// Update updates role name and description
	Update(ctx context.Context, role *Role) error

	// Delete deletes a role and its permission edges
	Delete(ctx context.Context, id string) error

	// List retrieves all roles ordered by name
	List(ctx context.Context) ([]*Role, error)

	// CountAssignments returns the number of users holding the role
	CountAssignments(ctx context.Context, roleID string) (int, error)

	// ListPermissions returns the role's permissions ordered by name
	ListPermissions(ctx context.Context, roleID string) ([]*Permission, error)

	// ReplacePermissions atomically clears and re-inserts the role's
	// permission edge set. A partial set is never observable.
	ReplacePermissions(ctx context.Context, roleID string, permissionIDs []string) error

	// AddPermission inserts a single edge; a duplicate is a Conflict.
	AddPermission(ctx context.Context, roleID, permissionID string) error

	// RemovePermission deletes a single edge, reporting whether it existed.
	RemovePermission(ctx context.Context, roleID, permissionID string) (bool, error)
}

// PermissionRepository defines the interface for permission persistence
type PermissionRepository interface {
	// Create creates a new permission
	Create(ctx context.Context, permission *Permission) error

	// GetByID retrieves a permission by ID
	GetByID(ctx context.Context, id string) (*Permission, error)

	// GetByName retrieves a permission by derived name
	GetByName(ctx context.Context, name string) (*Permission, error)

	// GetByIDs resolves a batch of permission IDs; missing IDs are simply
	// absent from the result.
	GetByIDs(ctx context.Context, ids []string) ([]*Permission, error)

	// Update updates a permission
	Update(ctx context.Context, permission *Permission) error

	// Delete deletes a permission
	Delete(ctx context.Context, id string) error

	// List retrieves all permissions ordered by resource then action
	List(ctx context.Context) ([]*Permission, error)

	// CountRoleRefs returns the number of roles referencing the permission
	CountRoleRefs(ctx context.Context, permissionID string) (int, error)
}

// AssignmentRepository defines the interface for the user-role edge
type AssignmentRepository interface {
	// ReplaceForUser atomically clears and re-inserts the user's role set.
	ReplaceForUser(ctx context.Context, userID string, roleIDs []string, assignedBy string) error

	// Get retrieves a single assignment edge
	Get(ctx context.Context, userID, roleID string) (*RoleAssignment, error)

	// Remove deletes a single edge, reporting whether it existed.
	Remove(ctx context.Context, userID, roleID string) (bool, error)

	// CountForUser returns the number of roles the user holds
	CountForUser(ctx context.Context, userID string) (int, error)

	// RolesForUser returns all roles the user holds, ordered by name
	RolesForUser(ctx context.Context, userID string) ([]*Role, error)

	// PermissionsForUser returns the distinct permissions reachable through
	// the user's roles, ordered by name
	PermissionsForUser(ctx context.Context, userID string) ([]*Permission, error)
}
