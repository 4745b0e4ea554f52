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

package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/authgrid/authgrid/internal/authz"
	"github.com/authgrid/authgrid/internal/fault"
)

// RoleRepository implements authz.RoleRepository
type RoleRepository struct {
	db *DB
}

// NewRoleRepository creates a new role repository
func NewRoleRepository(db *DB) *RoleRepository {
	return &RoleRepository{db: db}
}

// Create inserts the role and its initial permission edges in one
// transaction.
func (r *RoleRepository) Create(ctx context.Context, role *authz.Role, permissionIDs []string) error {
	now := time.Now()

	err := r.db.WithTx(ctx, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO roles (id, name, description, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5)
		`, role.ID, role.Name, role.Description, now, now)
		if err != nil {
			if isUniqueViolation(err) {
				return fault.Conflict("role with this name already exists")
			}
			return fault.Internal(err, "failed to insert role")
		}

		for _, permissionID := range permissionIDs {
			_, err := tx.Exec(ctx, `
				INSERT INTO role_permissions (role_id, permission_id)
				VALUES ($1, $2)
			`, role.ID, permissionID)
			if err != nil {
				return fault.Internal(err, "failed to insert role permission")
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	role.CreatedAt = now
	role.UpdatedAt = now
	return nil
}

func scanRole(row pgx.Row) (*authz.Role, error) {
	var role authz.Role
	err := row.Scan(&role.ID, &role.Name, &role.Description, &role.CreatedAt, &role.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &role, nil
}

// GetByID retrieves a role by ID
func (r *RoleRepository) GetByID(ctx context.Context, id string) (*authz.Role, error) {
	role, err := scanRole(r.db.pool.QueryRow(ctx, `
		SELECT id, name, description, created_at, updated_at
		FROM roles
		WHERE id = $1
	`, id))
	if err != nil {
		return nil, notFound(err, "role not found")
	}
	return role, nil
}

// GetByName retrieves a role by name
func (r *RoleRepository) GetByName(ctx context.Context, name string) (*authz.Role, error) {
	role, err := scanRole(r.db.pool.QueryRow(ctx, `
		SELECT id, name, description, created_at, updated_at
		FROM roles
		WHERE name = $1
	`, name))
	if err != nil {
		return nil, notFound(err, "role not found")
	}
	return role, nil
}

// Update updates role name and description
func (r *RoleRepository) Update(ctx context.Context, role *authz.Role) error {
	now := time.Now()
	tag, err := r.db.pool.Exec(ctx, `
		UPDATE roles
		SET name = $2, description = $3, updated_at = $4
		WHERE id = $1
	`, role.ID, role.Name, role.Description, now)
	if err != nil {
		if isUniqueViolation(err) {
			return fault.Conflict("role with this name already exists")
		}
		return fault.Internal(err, "failed to update role")
	}
	if tag.RowsAffected() == 0 {
		return fault.NotFound("role not found")
	}

	role.UpdatedAt = now
	return nil
}

// Delete deletes a role; its permission edges cascade
func (r *RoleRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.db.pool.Exec(ctx, `DELETE FROM roles WHERE id = $1`, id)
	if err != nil {
		return fault.Internal(err, "failed to delete role")
	}
	if tag.RowsAffected() == 0 {
		return fault.NotFound("role not found")
	}
	return nil
}

// List retrieves all roles ordered by name
func (r *RoleRepository) List(ctx context.Context) ([]*authz.Role, error) {
	rows, err := r.db.pool.Query(ctx, `
		SELECT id, name, description, created_at, updated_at
		FROM roles
		ORDER BY name
	`)
	if err != nil {
		return nil, fault.Internal(err, "failed to list roles")
	}
	defer rows.Close()

	var roles []*authz.Role
	for rows.Next() {
		role, err := scanRole(rows)
		if err != nil {
			return nil, fault.Internal(err, "failed to scan role")
		}
		roles = append(roles, role)
	}
	if err := rows.Err(); err != nil {
		return nil, fault.Internal(err, "failed to iterate roles")
	}
	return roles, nil
}

// CountAssignments returns the number of users holding the role
func (r *RoleRepository) CountAssignments(ctx context.Context, roleID string) (int, error) {
	var count int
	err := r.db.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM role_assignments WHERE role_id = $1
	`, roleID).Scan(&count)
	if err != nil {
		return 0, fault.Internal(err, "failed to count role assignments")
	}
	return count, nil
}

// ListPermissions returns the role's permissions ordered by name
func (r *RoleRepository) ListPermissions(ctx context.Context, roleID string) ([]*authz.Permission, error) {
	rows, err := r.db.pool.Query(ctx, `
		SELECT p.id, p.name, p.resource, p.action, p.description, p.created_at, p.updated_at
		FROM permissions p
		JOIN role_permissions rp ON rp.permission_id = p.id
		WHERE rp.role_id = $1
		ORDER BY p.name
	`, roleID)
	if err != nil {
		return nil, fault.Internal(err, "failed to list role permissions")
	}
	defer rows.Close()

	return collectPermissions(rows)
}

// ReplacePermissions atomically swaps the role's permission edge set. A
// partial set is never observable from a concurrent reader.
func (r *RoleRepository) ReplacePermissions(ctx context.Context, roleID string, permissionIDs []string) error {
	return r.db.WithTx(ctx, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `DELETE FROM role_permissions WHERE role_id = $1`, roleID)
		if err != nil {
			return fault.Internal(err, "failed to clear role permissions")
		}

		for _, permissionID := range permissionIDs {
			_, err := tx.Exec(ctx, `
				INSERT INTO role_permissions (role_id, permission_id)
				VALUES ($1, $2)
			`, roleID, permissionID)
			if err != nil {
				return fault.Internal(err, "failed to insert role permission")
			}
		}
		return nil
	})
}

// AddPermission inserts a single edge; a duplicate is a Conflict
func (r *RoleRepository) AddPermission(ctx context.Context, roleID, permissionID string) error {
	_, err := r.db.pool.Exec(ctx, `
		INSERT INTO role_permissions (role_id, permission_id)
		VALUES ($1, $2)
	`, roleID, permissionID)
	if err != nil {
		if isUniqueViolation(err) {
			return fault.Conflict("permission already assigned to this role")
		}
		return fault.Internal(err, "failed to insert role permission")
	}
	return nil
}

// RemovePermission deletes a single edge, reporting whether it existed
func (r *RoleRepository) RemovePermission(ctx context.Context, roleID, permissionID string) (bool, error) {
	tag, err := r.db.pool.Exec(ctx, `
		DELETE FROM role_permissions
		WHERE role_id = $1 AND permission_id = $2
	`, roleID, permissionID)
	if err != nil {
		return false, fault.Internal(err, "failed to delete role permission")
	}
	return tag.RowsAffected() > 0, nil
}
