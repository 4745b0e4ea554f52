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

// PermissionRepository implements authz.PermissionRepository
type PermissionRepository struct {
	db *DB
}

// NewPermissionRepository creates a new permission repository
func NewPermissionRepository(db *DB) *PermissionRepository {
	return &PermissionRepository{db: db}
}

// Create creates a new permission
func (r *PermissionRepository) Create(ctx context.Context, permission *authz.Permission) error {
	now := time.Now()
	_, err := r.db.pool.Exec(ctx, `
		INSERT INTO permissions (id, name, resource, action, description, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, permission.ID, permission.Name, permission.Resource, permission.Action, permission.Description, now, now)
	if err != nil {
		if isUniqueViolation(err) {
			return fault.Conflict("permission with this name already exists")
		}
		return fault.Internal(err, "failed to insert permission")
	}

	permission.CreatedAt = now
	permission.UpdatedAt = now
	return nil
}

func scanPermission(row pgx.Row) (*authz.Permission, error) {
	var p authz.Permission
	err := row.Scan(&p.ID, &p.Name, &p.Resource, &p.Action, &p.Description, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func collectPermissions(rows pgx.Rows) ([]*authz.Permission, error) {
	var permissions []*authz.Permission
	for rows.Next() {
		p, err := scanPermission(rows)
		if err != nil {
			return nil, fault.Internal(err, "failed to scan permission")
		}
		permissions = append(permissions, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fault.Internal(err, "failed to iterate permissions")
	}
	return permissions, nil
}

// GetByID retrieves a permission by ID
func (r *PermissionRepository) GetByID(ctx context.Context, id string) (*authz.Permission, error) {
	p, err := scanPermission(r.db.pool.QueryRow(ctx, `
		SELECT id, name, resource, action, description, created_at, updated_at
		FROM permissions
		WHERE id = $1
	`, id))
	if err != nil {
		return nil, notFound(err, "permission not found")
	}
	return p, nil
}

// GetByName retrieves a permission by its derived name
func (r *PermissionRepository) GetByName(ctx context.Context, name string) (*authz.Permission, error) {
	p, err := scanPermission(r.db.pool.QueryRow(ctx, `
		SELECT id, name, resource, action, description, created_at, updated_at
		FROM permissions
		WHERE name = $1
	`, name))
	if err != nil {
		return nil, notFound(err, "permission not found")
	}
	return p, nil
}

// GetByIDs resolves a batch of permission IDs; missing IDs are simply
// absent from the result
func (r *PermissionRepository) GetByIDs(ctx context.Context, ids []string) ([]*authz.Permission, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	rows, err := r.db.pool.Query(ctx, `
		SELECT id, name, resource, action, description, created_at, updated_at
		FROM permissions
		WHERE id = ANY($1)
	`, ids)
	if err != nil {
		return nil, fault.Internal(err, "failed to query permissions")
	}
	defer rows.Close()

	return collectPermissions(rows)
}

// Update updates a permission
func (r *PermissionRepository) Update(ctx context.Context, permission *authz.Permission) error {
	now := time.Now()
	tag, err := r.db.pool.Exec(ctx, `
		UPDATE permissions
		SET name = $2, resource = $3, action = $4, description = $5, updated_at = $6
		WHERE id = $1
	`, permission.ID, permission.Name, permission.Resource, permission.Action, permission.Description, now)
	if err != nil {
		if isUniqueViolation(err) {
			return fault.Conflict("permission with this name already exists")
		}
		return fault.Internal(err, "failed to update permission")
	}
	if tag.RowsAffected() == 0 {
		return fault.NotFound("permission not found")
	}

	permission.UpdatedAt = now
	return nil
}

// Delete deletes a permission
func (r *PermissionRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.db.pool.Exec(ctx, `DELETE FROM permissions WHERE id = $1`, id)
	if err != nil {
		return fault.Internal(err, "failed to delete permission")
	}
	if tag.RowsAffected() == 0 {
		return fault.NotFound("permission not found")
	}
	return nil
}

// List retrieves all permissions ordered by resource then action
func (r *PermissionRepository) List(ctx context.Context) ([]*authz.Permission, error) {
	rows, err := r.db.pool.Query(ctx, `
		SELECT id, name, resource, action, description, created_at, updated_at
		FROM permissions
		ORDER BY resource, action
	`)
	if err != nil {
		return nil, fault.Internal(err, "failed to list permissions")
	}
	defer rows.Close()

	return collectPermissions(rows)
}

// CountRoleRefs returns the number of roles referencing the permission
func (r *PermissionRepository) CountRoleRefs(ctx context.Context, permissionID string) (int, error) {
	var count int
	err := r.db.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM role_permissions WHERE permission_id = $1
	`, permissionID).Scan(&count)
	if err != nil {
		return 0, fault.Internal(err, "failed to count permission references")
	}
	return count, nil
}
