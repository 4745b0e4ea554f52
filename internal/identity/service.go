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
	"strings"

	"github.com/authgrid/authgrid/internal/audit"
	"github.com/authgrid/authgrid/internal/authz"
	"github.com/authgrid/authgrid/internal/fault"
	"github.com/google/uuid"
)

// Service provides identity-related business logic. It owns user rows; role
// and permission rows belong to the authorization graph, with the user-role
// edge jointly constrained by both.
type Service struct {
	repo        UserRepository
	hasher      *PasswordHasher
	policy      PasswordPolicy
	graph       *authz.Service
	auditLogger audit.Logger
}

// NewService creates a new identity service
func NewService(
	repo UserRepository,
	hasher *PasswordHasher,
	policy PasswordPolicy,
	graph *authz.Service,
	auditLogger audit.Logger,
) *Service {
	return &Service{
		repo:        repo,
		hasher:      hasher,
		policy:      policy,
		graph:       graph,
		auditLogger: auditLogger,
	}
}

// CreateUserInput carries administrative user creation parameters. An empty
// RoleIDs set falls back to the default user role.
type CreateUserInput struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
	RoleIDs   []string
}

// Register creates a self-service identity holding the default user role
// and returns it. The caller issues the token pair.
func (s *Service) Register(ctx context.Context, email, password, firstName, lastName string) (*User, error) {
	user, err := s.createUser(ctx, CreateUserInput{
		Email:     email,
		Password:  password,
		FirstName: firstName,
		LastName:  lastName,
	}, "")
	if err != nil {
		return nil, err
	}

	s.auditLogger.Log(ctx, audit.Event{
		Type:     audit.TypeUserCreated,
		ActorID:  user.ID,
		Resource: "user:" + user.ID,
		Metadata: map[string]any{audit.AttrEmail: user.Email},
	})
	return user, nil
}

// CreateUser creates an identity administratively, with an explicit role set
// or the default user role.
func (s *Service) CreateUser(ctx context.Context, input CreateUserInput, createdBy string) (*User, error) {
	user, err := s.createUser(ctx, input, createdBy)
	if err != nil {
		return nil, err
	}

	s.auditLogger.Log(ctx, audit.Event{
		Type:     audit.TypeUserCreated,
		ActorID:  createdBy,
		Resource: "user:" + user.ID,
		Metadata: map[string]any{audit.AttrEmail: user.Email},
	})
	return user, nil
}

func (s *Service) createUser(ctx context.Context, input CreateUserInput, createdBy string) (*User, error) {
	if !isValidEmail(input.Email) {
		return nil, fault.BadRequest("invalid email address")
	}

	if existing, err := s.repo.GetByEmail(ctx, input.Email); err == nil && existing != nil {
		return nil, fault.Conflict("user with this email already exists")
	} else if err != nil && !fault.IsKind(err, fault.KindNotFound) {
		return nil, err
	}

	if violations := s.policy.Validate(input.Password); len(violations) > 0 {
		return nil, fault.BadRequest(strings.Join(violations, ", "))
	}

	passwordHash, err := s.hasher.Hash(input.Password)
	if err != nil {
		return nil, fault.Internal(err, "failed to hash password")
	}

	roleIDs := input.RoleIDs
	if len(roleIDs) == 0 {
		defaultRole, err := s.graph.GetRoleByName(ctx, authz.RoleUser)
		if err != nil {
			return nil, fault.Internal(err, "default user role not found")
		}
		roleIDs = []string{defaultRole.ID}
	} else {
		for _, id := range roleIDs {
			if _, err := s.graph.GetRole(ctx, id); err != nil {
				if fault.IsKind(err, fault.KindNotFound) {
					return nil, fault.Newf(fault.KindBadRequest, "invalid role ID: %s", id)
				}
				return nil, err
			}
		}
	}

	user := &User{
		ID:           uuid.NewString(),
		Email:        input.Email,
		PasswordHash: passwordHash,
		FirstName:    input.FirstName,
		LastName:     input.LastName,
		IsActive:     true,
	}

	// Self-referential assigner for bootstrap and self-registration.
	assignedBy := createdBy
	if assignedBy == "" {
		assignedBy = user.ID
	}

	if err := s.repo.Create(ctx, user, roleIDs, assignedBy); err != nil {
		return nil, err
	}
	return user, nil
}

// Authenticate verifies email/password credentials. Failed verification
// never mutates the identity.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*User, error) {
	user, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		s.auditLogger.Log(ctx, audit.Event{
			Type:     audit.TypeLoginFailed,
			Resource: "login",
			Metadata: map[string]any{audit.AttrReason: "user_not_found"},
		})
		return nil, fault.Unauthorized("invalid credentials")
	}

	if !user.IsActive {
		s.auditLogger.Log(ctx, audit.Event{
			Type:     audit.TypeLoginFailed,
			ActorID:  user.ID,
			Resource: "login",
			Metadata: map[string]any{audit.AttrReason: "deactivated"},
		})
		return nil, fault.Unauthorized("account is deactivated")
	}

	valid, err := s.hasher.Verify(password, user.PasswordHash)
	if err != nil {
		return nil, fault.Internal(err, "failed to verify credentials")
	}
	if !valid {
		s.auditLogger.Log(ctx, audit.Event{
			Type:     audit.TypeLoginFailed,
			ActorID:  user.ID,
			Resource: "login",
			Metadata: map[string]any{audit.AttrReason: "invalid_password"},
		})
		return nil, fault.Unauthorized("invalid credentials")
	}

	s.auditLogger.Log(ctx, audit.Event{
		Type:     audit.TypeLoginSuccess,
		ActorID:  user.ID,
		Resource: "login",
	})
	return user, nil
}

// GetUser retrieves a user by ID
func (s *Service) GetUser(ctx context.Context, userID string) (*User, error) {
	return s.repo.GetByID(ctx, userID)
}

// ListUsers retrieves all users
func (s *Service) ListUsers(ctx context.Context) ([]*User, error) {
	return s.repo.List(ctx)
}

// UpdateUser applies a partial update. An email change re-checks uniqueness.
func (s *Service) UpdateUser(ctx context.Context, userID string, patch UserUpdate) (*User, error) {
	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if patch.Email != nil && *patch.Email != user.Email {
		if !isValidEmail(*patch.Email) {
			return nil, fault.BadRequest("invalid email address")
		}
		if existing, err := s.repo.GetByEmail(ctx, *patch.Email); err == nil && existing != nil {
			return nil, fault.Conflict("email already in use")
		} else if err != nil && !fault.IsKind(err, fault.KindNotFound) {
			return nil, err
		}
		user.Email = *patch.Email
	}
	if patch.FirstName != nil {
		user.FirstName = *patch.FirstName
	}
	if patch.LastName != nil {
		user.LastName = *patch.LastName
	}
	if patch.AvatarURL != nil {
		user.AvatarURL = *patch.AvatarURL
	}
	if patch.IsActive != nil {
		user.IsActive = *patch.IsActive
	}

	if err := s.repo.Update(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// DeleteUser hard-deletes an identity. The super_admin holder cannot be
// deleted, and no identity can delete itself.
func (s *Service) DeleteUser(ctx context.Context, userID, deletedBy string) error {
	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return err
	}

	if userID == deletedBy {
		return fault.Forbidden("cannot delete your own account")
	}

	roles, err := s.graph.RolesForUser(ctx, userID)
	if err != nil {
		return err
	}
	for _, role := range roles {
		if role.Name == authz.RoleSuperAdmin {
			return fault.Forbidden("cannot delete super admin user")
		}
	}

	if err := s.repo.Delete(ctx, userID); err != nil {
		return err
	}

	s.auditLogger.Log(ctx, audit.Event{
		Type:     audit.TypeUserDeleted,
		ActorID:  deletedBy,
		Resource: "user:" + userID,
		Metadata: map[string]any{audit.AttrEmail: user.Email},
	})
	return nil
}

// ChangePassword verifies the current secret and applies the strength policy
// before storing a new hash.
func (s *Service) ChangePassword(ctx context.Context, userID, currentPassword, newPassword string) error {
	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return err
	}

	valid, err := s.hasher.Verify(currentPassword, user.PasswordHash)
	if err != nil {
		return fault.Internal(err, "failed to verify credentials")
	}
	if !valid {
		return fault.Unauthorized("invalid current password")
	}

	if violations := s.policy.Validate(newPassword); len(violations) > 0 {
		return fault.BadRequest(strings.Join(violations, ", "))
	}

	newHash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return fault.Internal(err, "failed to hash password")
	}

	if err := s.repo.UpdatePassword(ctx, userID, newHash); err != nil {
		return err
	}

	s.auditLogger.Log(ctx, audit.Event{
		Type:     audit.TypePasswordChanged,
		ActorID:  userID,
		Resource: "user:" + userID,
	})
	return nil
}

func isValidEmail(email string) bool {
	if len(email) < 3 || len(email) > 254 {
		return false
	}
	at := strings.Index(email, "@")
	return at > 0 && at < len(email)-1
}
