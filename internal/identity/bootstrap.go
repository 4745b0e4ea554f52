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
	"fmt"
	"log/slog"

	"github.com/authgrid/authgrid/internal/audit"
	"github.com/authgrid/authgrid/internal/authz"
	"github.com/authgrid/authgrid/internal/fault"
	"github.com/authgrid/authgrid/internal/observability/logger"
)

// BootstrapService provisions the initial super admin on first start
type BootstrapService struct {
	identityService *Service
	roleRepo        authz.RoleRepository
	auditLogger     audit.Logger
}

// NewBootstrapService creates a new bootstrap service
func NewBootstrapService(
	identityService *Service,
	roleRepo authz.RoleRepository,
	auditLogger audit.Logger,
) *BootstrapService {
	return &BootstrapService{
		identityService: identityService,
		roleRepo:        roleRepo,
		auditLogger:     auditLogger,
	}
}

// Bootstrap creates a super admin identity with the given credentials when
// no user currently holds the super_admin role. An empty email disables
// bootstrapping; an existing holder makes it a silent no-op.
func (s *BootstrapService) Bootstrap(ctx context.Context, email, password string) error {
	if email == "" {
		return nil
	}

	role, err := s.roleRepo.GetByName(ctx, authz.RoleSuperAdmin)
	if err != nil {
		if fault.IsKind(err, fault.KindNotFound) {
			return fmt.Errorf("super_admin role missing: run migrations before bootstrap")
		}
		return fmt.Errorf("failed to look up super_admin role: %w", err)
	}

	count, err := s.roleRepo.CountAssignments(ctx, role.ID)
	if err != nil {
		return fmt.Errorf("failed to check for existing super admin: %w", err)
	}
	if count > 0 {
		return nil
	}

	user, err := s.identityService.CreateUser(ctx, CreateUserInput{
		Email:    email,
		Password: password,
		RoleIDs:  []string{role.ID},
	}, "")
	if err != nil {
		if fault.IsKind(err, fault.KindConflict) {
			// The user exists but holds no super_admin role; attach it.
			return s.promoteExisting(ctx, email, role)
		}
		return fmt.Errorf("failed to create bootstrap super admin: %w", err)
	}

	s.auditLogger.Log(ctx, audit.Event{
		Type:     audit.TypeRoleAssigned,
		ActorID:  user.ID,
		Resource: "user:" + user.ID,
		Metadata: map[string]any{
			audit.AttrEmail: email,
			"role":          authz.RoleSuperAdmin,
		},
	})

	slog.InfoContext(ctx, "bootstrapped initial super admin", logger.Email(email))
	return nil
}

func (s *BootstrapService) promoteExisting(ctx context.Context, email string, role *authz.Role) error {
	user, err := s.identityService.repo.GetByEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("bootstrap user not found: %w", err)
	}

	// Promotion adds the super_admin edge; roles the account already
	// holds are kept.
	held, err := s.identityService.graph.RolesForUser(ctx, user.ID)
	if err != nil {
		return fmt.Errorf("failed to load roles during bootstrap: %w", err)
	}
	roleIDs := make([]string, 0, len(held)+1)
	for _, heldRole := range held {
		if heldRole.ID == role.ID {
			return nil
		}
		roleIDs = append(roleIDs, heldRole.ID)
	}
	roleIDs = append(roleIDs, role.ID)

	if err := s.identityService.graph.AssignRoles(ctx, user.ID, roleIDs, user.ID); err != nil {
		return fmt.Errorf("failed to grant super_admin role during bootstrap: %w", err)
	}

	s.auditLogger.Log(ctx, audit.Event{
		Type:     audit.TypeRoleAssigned,
		ActorID:  user.ID,
		Resource: "user:" + user.ID,
		Metadata: map[string]any{
			audit.AttrEmail: email,
			"role":          authz.RoleSuperAdmin,
		},
	})

	slog.InfoContext(ctx, "promoted existing user to super admin", logger.Email(email))
	return nil
}
