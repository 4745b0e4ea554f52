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

package identity

import (
	"context"
	"time"
)

// User represents an authenticable identity in the system
type User struct {
	ID           string
	Email        string
	PasswordHash string // opaque; never serialized outward
	FirstName    string
	LastName     string
	AvatarURL    string
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// FullName returns the display name assembled from profile fields.
func (u *User) FullName() string {
	switch {
	case u.FirstName != "" && u.LastName != "":
		return u.FirstName + " " + u.LastName
	case u.FirstName != "":
		return u.FirstName
	default:
		return u.LastName
	}
}

// UserUpdate is a partial update: only present fields are applied, absent
// fields are no-ops, never defaulted.
type UserUpdate struct {
	Email     *string
	FirstName *string
	LastName  *string
	AvatarURL *string
	IsActive  *bool
}

// UserRepository defines the interface for user persistence
type UserRepository interface {
	// Create inserts the user and its initial role assignments in a single
	// transaction: an identity never exists without at least one role.
	Create(ctx context.Context, user *User, roleIDs []string, assignedBy string) error

	// GetByID retrieves a user by ID
	GetByID(ctx context.Context, id string) (*User, error)

	// GetByEmail retrieves a user by email
	GetByEmail(ctx context.Context, email string) (*User, error)

	// Update updates user profile fields and active flag
	Update(ctx context.Context, user *User) error

	// UpdatePassword updates the stored password hash
	UpdatePassword(ctx context.Context, userID, passwordHash string) error

	// Delete hard-deletes a user; role assignments cascade
	Delete(ctx context.Context, id string) error

	// List retrieves all users ordered by email
	List(ctx context.Context) ([]*User, error)
}
