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

	"github.com/authgrid/authgrid/internal/fault"
	"github.com/authgrid/authgrid/internal/identity"
)

// UserRepository implements identity.UserRepository
type UserRepository struct {
	db *DB
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create inserts the user and its initial role assignments in one
// transaction. A user row without at least one role edge never commits.
func (r *UserRepository) Create(ctx context.Context, user *identity.User, roleIDs []string, assignedBy string) error {
	now := time.Now()

	err := r.db.WithTx(ctx, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO users (
				id, email, password_hash, first_name, last_name,
				avatar_url, is_active, created_at, updated_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		`,
			user.ID, user.Email, user.PasswordHash, user.FirstName, user.LastName,
			user.AvatarURL, user.IsActive, now, now,
		)
		if err != nil {
			if isUniqueViolation(err) {
				return fault.Conflict("user with this email already exists")
			}
			return fault.Internal(err, "failed to insert user")
		}

		for _, roleID := range roleIDs {
			_, err := tx.Exec(ctx, `
				INSERT INTO role_assignments (user_id, role_id, assigned_at, assigned_by)
				VALUES ($1, $2, $3, $4)
			`, user.ID, roleID, now, assignedBy)
			if err != nil {
				return fault.Internal(err, "failed to insert role assignment")
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	user.CreatedAt = now
	user.UpdatedAt = now
	return nil
}

const userColumns = `
	id, email, password_hash, first_name, last_name,
	avatar_url, is_active, created_at, updated_at`

func scanUser(row pgx.Row) (*identity.User, error) {
	var user identity.User
	err := row.Scan(
		&user.ID, &user.Email, &user.PasswordHash, &user.FirstName, &user.LastName,
		&user.AvatarURL, &user.IsActive, &user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetByID retrieves a user by ID
func (r *UserRepository) GetByID(ctx context.Context, id string) (*identity.User, error) {
	user, err := scanUser(r.db.pool.QueryRow(ctx, `
		SELECT`+userColumns+`
		FROM users
		WHERE id = $1
	`, id))
	if err != nil {
		return nil, notFound(err, "user not found")
	}
	return user, nil
}

// GetByEmail retrieves a user by email
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*identity.User, error) {
	user, err := scanUser(r.db.pool.QueryRow(ctx, `
		SELECT`+userColumns+`
		FROM users
		WHERE email = $1
	`, email))
	if err != nil {
		return nil, notFound(err, "user not found")
	}
	return user, nil
}

// Update updates profile fields and the active flag
func (r *UserRepository) Update(ctx context.Context, user *identity.User) error {
	now := time.Now()
	tag, err := r.db.pool.Exec(ctx, `
		UPDATE users
		SET email = $2, first_name = $3, last_name = $4, avatar_url = $5,
		    is_active = $6, updated_at = $7
		WHERE id = $1
	`, user.ID, user.Email, user.FirstName, user.LastName, user.AvatarURL, user.IsActive, now)
	if err != nil {
		if isUniqueViolation(err) {
			return fault.Conflict("user with this email already exists")
		}
		return fault.Internal(err, "failed to update user")
	}
	if tag.RowsAffected() == 0 {
		return fault.NotFound("user not found")
	}

	user.UpdatedAt = now
	return nil
}

// UpdatePassword replaces the stored password hash
func (r *UserRepository) UpdatePassword(ctx context.Context, userID, passwordHash string) error {
	tag, err := r.db.pool.Exec(ctx, `
		UPDATE users
		SET password_hash = $2, updated_at = $3
		WHERE id = $1
	`, userID, passwordHash, time.Now())
	if err != nil {
		return fault.Internal(err, "failed to update password")
	}
	if tag.RowsAffected() == 0 {
		return fault.NotFound("user not found")
	}
	return nil
}

// Delete hard-deletes a user; role assignments cascade
func (r *UserRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.db.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fault.Internal(err, "failed to delete user")
	}
	if tag.RowsAffected() == 0 {
		return fault.NotFound("user not found")
	}
	return nil
}

// List retrieves all users ordered by email
func (r *UserRepository) List(ctx context.Context) ([]*identity.User, error) {
	rows, err := r.db.pool.Query(ctx, `
		SELECT`+userColumns+`
		FROM users
		ORDER BY email
	`)
	if err != nil {
		return nil, fault.Internal(err, "failed to list users")
	}
	defer rows.Close()

	var users []*identity.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fault.Internal(err, "failed to scan user")
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, fault.Internal(err, "failed to iterate users")
	}
	return users, nil
}
