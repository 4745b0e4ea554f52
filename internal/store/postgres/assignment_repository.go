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

// AssignmentRepository implements authz.AssignmentRepository
type AssignmentRepository struct {
	db *DB
}

// NewAssignmentRepository creates a new assignment repository
func NewAssignmentRepository(db *DB) *AssignmentRepository {
	return &AssignmentRepository{db: db}
}

// ReplaceForUser atomically swaps the user's role set. Concurrent replaces
// serialize on the row locks; the last commit wins wholesale.
func (r *AssignmentRepository) ReplaceForUser(ctx context.Context, userID string, roleIDs []string, assignedBy string) error {
	now := time.Now()

	return r.db.WithTx(ctx, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `DELETE FROM role_assignments WHERE user_id = $1`, userID)
		if err != nil {
			return fault.Internal(err, "failed to clear role assignments")
		}

		for _, roleID := range roleIDs {
			_, err := tx.Exec(ctx, `
				INSERT INTO role_assignments (user_id, role_id, assigned_at, assigned_by)
				VALUES ($1, $2, $3, $4)
			`, userID, roleID, now, assignedBy)
			if err != nil {
				return fault.Internal(err, "failed to insert role assignment")
			}
		}
		return nil
	})
}

// Get retrieves a single assignment edge
func (r *AssignmentRepository) Get(ctx context.Context, userID, roleID string) (*authz.RoleAssignment, error) {
	var a authz.RoleAssignment
	err := r.db.pool.QueryRow(ctx, `
		SELECT user_id, role_id, assigned_at, assigned_by
		FROM role_assignments
		WHERE user_id = $1 AND role_id = $2
	`, userID, roleID).Scan(&a.UserID, &a.RoleID, &a.AssignedAt, &a.AssignedBy)
	if err != nil {
		return nil, notFound(err, "role assignment not found")
	}
	return &a, nil
}

// Remove deletes a single edge, reporting whether it existed
func (r *AssignmentRepository) Remove(ctx context.Context, userID, roleID string) (bool, error) {
	tag, err := r.db.pool.Exec(ctx, `
		DELETE FROM role_assignments
		WHERE user_id = $1 AND role_id = $2
	`, userID, roleID)
	if err != nil {
		return false, fault.Internal(err, "failed to delete role assignment")
	}
	return tag.RowsAffected() > 0, nil
}

// CountForUser returns the number of roles the user holds
func (r *AssignmentRepository) CountForUser(ctx context.Context, userID string) (int, error) {
	var count int
	err := r.db.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM role_assignments WHERE user_id = $1
	`, userID).Scan(&count)
	if err != nil {
		return 0, fault.Internal(err, "failed to count role assignments")
	}
	return count, nil
}

// RolesForUser returns all roles the user holds, ordered by name
func (r *AssignmentRepository) RolesForUser(ctx context.Context, userID string) ([]*authz.Role, error) {
	rows, err := r.db.pool.Query(ctx, `
		SELECT r.id, r.name, r.description, r.created_at, r.updated_at
		FROM roles r
		JOIN role_assignments ra ON ra.role_id = r.id
		WHERE ra.user_id = $1
		ORDER BY r.name
	`, userID)
	if err != nil {
		return nil, fault.Internal(err, "failed to query user roles")
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

// PermissionsForUser returns the distinct permissions reachable through the
// user's roles, ordered by name
func (r *AssignmentRepository) PermissionsForUser(ctx context.Context, userID string) ([]*authz.Permission, error) {
	rows, err := r.db.pool.Query(ctx, `
		SELECT DISTINCT p.id, p.name, p.resource, p.action, p.description, p.created_at, p.updated_at
		FROM permissions p
		JOIN role_permissions rp ON rp.permission_id = p.id
		JOIN role_assignments ra ON ra.role_id = rp.role_id
		WHERE ra.user_id = $1
		ORDER BY p.name
	`, userID)
	if err != nil {
		return nil, fault.Internal(err, "failed to query user permissions")
	}
	defer rows.Close()

	return collectPermissions(rows)
}
