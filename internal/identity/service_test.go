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
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/authgrid/authgrid/internal/audit"
	"github.com/authgrid/authgrid/internal/authz"
	"github.com/authgrid/authgrid/internal/fault"
)

// mockUserRepository is an in-memory UserRepository that also records the
// role edges created alongside each user.
type mockUserRepository struct {
	users     map[string]*User
	userRoles map[string][]string
}

func newMockUserRepository() *mockUserRepository {
	return &mockUserRepository{
		users:     make(map[string]*User),
		userRoles: make(map[string][]string),
	}
}

func (m *mockUserRepository) Create(_ context.Context, user *User, roleIDs []string, _ string) error {
	for _, existing := range m.users {
		if existing.Email == user.Email {
			return fault.Conflict("user with this email already exists")
		}
	}
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	m.users[user.ID] = user
	m.userRoles[user.ID] = roleIDs
	return nil
}

func (m *mockUserRepository) GetByID(_ context.Context, id string) (*User, error) {
	user, ok := m.users[id]
	if !ok {
		return nil, fault.NotFound("user not found")
	}
	copied := *user
	return &copied, nil
}

func (m *mockUserRepository) GetByEmail(_ context.Context, email string) (*User, error) {
	for _, user := range m.users {
		if user.Email == email {
			copied := *user
			return &copied, nil
		}
	}
	return nil, fault.NotFound("user not found")
}

func (m *mockUserRepository) Update(_ context.Context, user *User) error {
	if _, ok := m.users[user.ID]; !ok {
		return fault.NotFound("user not found")
	}
	user.UpdatedAt = time.Now()
	m.users[user.ID] = user
	return nil
}

func (m *mockUserRepository) UpdatePassword(_ context.Context, userID, passwordHash string) error {
	user, ok := m.users[userID]
	if !ok {
		return fault.NotFound("user not found")
	}
	user.PasswordHash = passwordHash
	return nil
}

func (m *mockUserRepository) Delete(_ context.Context, id string) error {
	if _, ok := m.users[id]; !ok {
		return fault.NotFound("user not found")
	}
	delete(m.users, id)
	delete(m.userRoles, id)
	return nil
}

func (m *mockUserRepository) List(_ context.Context) ([]*User, error) {
	var users []*User
	for _, user := range m.users {
		copied := *user
		users = append(users, &copied)
	}
	return users, nil
}

// stubRoleRepo is a minimal in-memory authz.RoleRepository: just enough
// graph for identity's role lookups and the bootstrap path.
type stubRoleRepo struct {
	roles       map[string]*authz.Role
	assignments map[string][]string // userID -> roleIDs
}

func newStubRoleRepo(names ...string) *stubRoleRepo {
	s := &stubRoleRepo{
		roles:       make(map[string]*authz.Role),
		assignments: make(map[string][]string),
	}
	for _, name := range names {
		s.roles[name] = &authz.Role{ID: uuid.NewString(), Name: name}
	}
	return s
}

func (s *stubRoleRepo) Create(_ context.Context, role *authz.Role, _ []string) error {
	s.roles[role.Name] = role
	return nil
}

func (s *stubRoleRepo) GetByID(_ context.Context, id string) (*authz.Role, error) {
	for _, role := range s.roles {
		if role.ID == id {
			return role, nil
		}
	}
	return nil, fault.NotFound("role not found")
}

func (s *stubRoleRepo) GetByName(_ context.Context, name string) (*authz.Role, error) {
	if role, ok := s.roles[name]; ok {
		return role, nil
	}
	return nil, fault.NotFound("role not found")
}

func (s *stubRoleRepo) Update(_ context.Context, _ *authz.Role) error  { return nil }
func (s *stubRoleRepo) Delete(_ context.Context, _ string) error      { return nil }
func (s *stubRoleRepo) List(_ context.Context) ([]*authz.Role, error) { return nil, nil }

func (s *stubRoleRepo) CountAssignments(_ context.Context, roleID string) (int, error) {
	count := 0
	for _, roleIDs := range s.assignments {
		for _, id := range roleIDs {
			if id == roleID {
				count++
			}
		}
	}
	return count, nil
}

func (s *stubRoleRepo) ListPermissions(_ context.Context, _ string) ([]*authz.Permission, error) {
	return nil, nil
}

func (s *stubRoleRepo) ReplacePermissions(_ context.Context, _ string, _ []string) error {
	return nil
}

func (s *stubRoleRepo) AddPermission(_ context.Context, _, _ string) error { return nil }

func (s *stubRoleRepo) RemovePermission(_ context.Context, _, _ string) (bool, error) {
	return false, nil
}

type stubPermissionRepo struct{}

func (stubPermissionRepo) Create(_ context.Context, _ *authz.Permission) error { return nil }
func (stubPermissionRepo) GetByID(_ context.Context, _ string) (*authz.Permission, error) {
	return nil, fault.NotFound("permission not found")
}
func (stubPermissionRepo) GetByName(_ context.Context, _ string) (*authz.Permission, error) {
	return nil, fault.NotFound("permission not found")
}
func (stubPermissionRepo) GetByIDs(_ context.Context, _ []string) ([]*authz.Permission, error) {
	return nil, nil
}
func (stubPermissionRepo) Update(_ context.Context, _ *authz.Permission) error { return nil }
func (stubPermissionRepo) Delete(_ context.Context, _ string) error            { return nil }
func (stubPermissionRepo) List(_ context.Context) ([]*authz.Permission, error) { return nil, nil }
func (stubPermissionRepo) CountRoleRefs(_ context.Context, _ string) (int, error) {
	return 0, nil
}

// stubAssignmentRepo shares the role store's assignment map so both views of
// the user-role edge stay consistent.
type stubAssignmentRepo struct{ roles *stubRoleRepo }

func (s *stubAssignmentRepo) ReplaceForUser(_ context.Context, userID string, roleIDs []string, _ string) error {
	s.roles.assignments[userID] = roleIDs
	return nil
}

func (s *stubAssignmentRepo) Get(_ context.Context, userID, roleID string) (*authz.RoleAssignment, error) {
	for _, id := range s.roles.assignments[userID] {
		if id == roleID {
			return &authz.RoleAssignment{UserID: userID, RoleID: roleID}, nil
		}
	}
	return nil, fault.NotFound("role assignment not found")
}

func (s *stubAssignmentRepo) Remove(_ context.Context, _, _ string) (bool, error) {
	return false, nil
}

func (s *stubAssignmentRepo) CountForUser(_ context.Context, userID string) (int, error) {
	return len(s.roles.assignments[userID]), nil
}

func (s *stubAssignmentRepo) RolesForUser(_ context.Context, userID string) ([]*authz.Role, error) {
	var held []*authz.Role
	for _, roleID := range s.roles.assignments[userID] {
		for _, role := range s.roles.roles {
			if role.ID == roleID {
				held = append(held, role)
			}
		}
	}
	return held, nil
}

func (s *stubAssignmentRepo) PermissionsForUser(_ context.Context, _ string) ([]*authz.Permission, error) {
	return nil, nil
}

type identityFixture struct {
	service   *Service
	bootstrap *BootstrapService
	users     *mockUserRepository
	roles     *stubRoleRepo
}

func newIdentityFixture(t *testing.T) *identityFixture {
	t.Helper()
	users := newMockUserRepository()
	roles := newStubRoleRepo(authz.RoleSuperAdmin, authz.RoleUser)
	graph := authz.NewService(roles, stubPermissionRepo{}, &stubAssignmentRepo{roles}, audit.NopLogger{})
	service := NewService(
		users,
		NewPasswordHasher(bcrypt.MinCost),
		PasswordPolicy{MinLength: 8},
		graph,
		audit.NopLogger{},
	)
	return &identityFixture{
		service:   service,
		bootstrap: NewBootstrapService(service, roles, audit.NopLogger{}),
		users:     users,
		roles:     roles,
	}
}

func (f *identityFixture) mustRegister(t *testing.T, email string) *User {
	t.Helper()
	user, err := f.service.Register(context.Background(), email, "SecurePass1!", "Test", "User")
	require.NoError(t, err)
	return user
}

func TestRegister_AssignsDefaultRole(t *testing.T) {
	f := newIdentityFixture(t)

	user := f.mustRegister(t, "alice@example.com")
	assert.True(t, user.IsActive)
	assert.NotEqual(t, "SecurePass1!", user.PasswordHash)

	defaultRole := f.roles.roles[authz.RoleUser]
	assert.Equal(t, []string{defaultRole.ID}, f.users.userRoles[user.ID])
}

func TestRegister_Validation(t *testing.T) {
	f := newIdentityFixture(t)
	ctx := context.Background()

	_, err := f.service.Register(ctx, "not-an-email", "SecurePass1!", "A", "B")
	require.True(t, fault.IsKind(err, fault.KindBadRequest))
	assert.Equal(t, "invalid email address", fault.MessageOf(err))

	_, err = f.service.Register(ctx, "alice@example.com", "weak", "A", "B")
	require.True(t, fault.IsKind(err, fault.KindBadRequest))
	assert.Contains(t, fault.MessageOf(err), "at least 8 characters")

	f.mustRegister(t, "alice@example.com")
	_, err = f.service.Register(ctx, "alice@example.com", "SecurePass1!", "A", "B")
	assert.True(t, fault.IsKind(err, fault.KindConflict))
}

func TestCreateUser_InvalidRoleID(t *testing.T) {
	f := newIdentityFixture(t)

	_, err := f.service.CreateUser(context.Background(), CreateUserInput{
		Email:     "bob@example.com",
		Password:  "SecurePass1!",
		FirstName: "Bob",
		LastName:  "Builder",
		RoleIDs:   []string{"nonexistent-role"},
	}, "admin-id")
	require.True(t, fault.IsKind(err, fault.KindBadRequest))
	assert.Contains(t, fault.MessageOf(err), "nonexistent-role")
}

func TestCreateUser_ExplicitRoles(t *testing.T) {
	f := newIdentityFixture(t)
	super := f.roles.roles[authz.RoleSuperAdmin]

	user, err := f.service.CreateUser(context.Background(), CreateUserInput{
		Email:     "bob@example.com",
		Password:  "SecurePass1!",
		FirstName: "Bob",
		LastName:  "Builder",
		RoleIDs:   []string{super.ID},
	}, "admin-id")
	require.NoError(t, err)
	assert.Equal(t, []string{super.ID}, f.users.userRoles[user.ID])
}

func TestAuthenticate(t *testing.T) {
	f := newIdentityFixture(t)
	ctx := context.Background()
	registered := f.mustRegister(t, "alice@example.com")

	user, err := f.service.Authenticate(ctx, "alice@example.com", "SecurePass1!")
	require.NoError(t, err)
	assert.Equal(t, registered.ID, user.ID)

	_, err = f.service.Authenticate(ctx, "alice@example.com", "WrongPass1!")
	require.True(t, fault.IsKind(err, fault.KindUnauthorized))
	assert.Equal(t, "invalid credentials", fault.MessageOf(err))

	// An unknown email yields the same opaque message as a bad password.
	_, err = f.service.Authenticate(ctx, "nobody@example.com", "SecurePass1!")
	require.True(t, fault.IsKind(err, fault.KindUnauthorized))
	assert.Equal(t, "invalid credentials", fault.MessageOf(err))
}

func TestAuthenticate_DeactivatedAccount(t *testing.T) {
	f := newIdentityFixture(t)
	ctx := context.Background()
	user := f.mustRegister(t, "alice@example.com")

	inactive := false
	_, err := f.service.UpdateUser(ctx, user.ID, UserUpdate{IsActive: &inactive})
	require.NoError(t, err)

	_, err = f.service.Authenticate(ctx, "alice@example.com", "SecurePass1!")
	require.True(t, fault.IsKind(err, fault.KindUnauthorized))
	assert.Equal(t, "account is deactivated", fault.MessageOf(err))
}

func TestUpdateUser_EmailUniqueness(t *testing.T) {
	f := newIdentityFixture(t)
	ctx := context.Background()
	f.mustRegister(t, "alice@example.com")
	bob := f.mustRegister(t, "bob@example.com")

	taken := "alice@example.com"
	_, err := f.service.UpdateUser(ctx, bob.ID, UserUpdate{Email: &taken})
	require.True(t, fault.IsKind(err, fault.KindConflict))
	assert.Equal(t, "email already in use", fault.MessageOf(err))

	fresh := "robert@example.com"
	updated, err := f.service.UpdateUser(ctx, bob.ID, UserUpdate{Email: &fresh})
	require.NoError(t, err)
	assert.Equal(t, "robert@example.com", updated.Email)
}

func TestDeleteUser_Protections(t *testing.T) {
	f := newIdentityFixture(t)
	ctx := context.Background()

	alice := f.mustRegister(t, "alice@example.com")
	err := f.service.DeleteUser(ctx, alice.ID, alice.ID)
	require.True(t, fault.IsKind(err, fault.KindForbidden))
	assert.Equal(t, "cannot delete your own account", fault.MessageOf(err))

	super := f.roles.roles[authz.RoleSuperAdmin]
	root, err := f.service.CreateUser(ctx, CreateUserInput{
		Email:    "root@example.com",
		Password: "SecurePass1!",
		RoleIDs:  []string{super.ID},
	}, alice.ID)
	require.NoError(t, err)
	f.roles.assignments[root.ID] = []string{super.ID}

	err = f.service.DeleteUser(ctx, root.ID, alice.ID)
	require.True(t, fault.IsKind(err, fault.KindForbidden))
	assert.Equal(t, "cannot delete super admin user", fault.MessageOf(err))

	bob := f.mustRegister(t, "bob@example.com")
	require.NoError(t, f.service.DeleteUser(ctx, bob.ID, alice.ID))
	_, err = f.service.GetUser(ctx, bob.ID)
	assert.True(t, fault.IsKind(err, fault.KindNotFound))
}

func TestChangePassword(t *testing.T) {
	f := newIdentityFixture(t)
	ctx := context.Background()
	user := f.mustRegister(t, "alice@example.com")

	err := f.service.ChangePassword(ctx, user.ID, "WrongPass1!", "NewSecure2@")
	require.True(t, fault.IsKind(err, fault.KindUnauthorized))
	assert.Equal(t, "invalid current password", fault.MessageOf(err))

	err = f.service.ChangePassword(ctx, user.ID, "SecurePass1!", "weak")
	assert.True(t, fault.IsKind(err, fault.KindBadRequest))

	require.NoError(t, f.service.ChangePassword(ctx, user.ID, "SecurePass1!", "NewSecure2@"))

	// The old secret no longer authenticates; the new one does.
	_, err = f.service.Authenticate(ctx, "alice@example.com", "SecurePass1!")
	assert.True(t, fault.IsKind(err, fault.KindUnauthorized))
	_, err = f.service.Authenticate(ctx, "alice@example.com", "NewSecure2@")
	assert.NoError(t, err)
}

func TestBootstrap(t *testing.T) {
	f := newIdentityFixture(t)
	ctx := context.Background()

	// An empty email disables bootstrapping.
	require.NoError(t, f.bootstrap.Bootstrap(ctx, "", ""))
	assert.Empty(t, f.users.users)

	require.NoError(t, f.bootstrap.Bootstrap(ctx, "root@example.com", "SecurePass1!"))
	root, err := f.users.GetByEmail(ctx, "root@example.com")
	require.NoError(t, err)

	super := f.roles.roles[authz.RoleSuperAdmin]
	assert.Equal(t, []string{super.ID}, f.users.userRoles[root.ID])

	// Re-running against an existing holder is a no-op.
	f.roles.assignments[root.ID] = []string{super.ID}
	require.NoError(t, f.bootstrap.Bootstrap(ctx, "other@example.com", "SecurePass1!"))
	_, err = f.users.GetByEmail(ctx, "other@example.com")
	assert.True(t, fault.IsKind(err, fault.KindNotFound))
}

func TestBootstrap_PromotesExistingUser(t *testing.T) {
	f := newIdentityFixture(t)
	ctx := context.Background()

	existing := f.mustRegister(t, "root@example.com")
	userRole := f.roles.roles[authz.RoleUser]
	f.roles.assignments[existing.ID] = []string{userRole.ID}

	require.NoError(t, f.bootstrap.Bootstrap(ctx, "root@example.com", "DifferentPass1!"))

	// Promotion appends the super_admin edge; the roles the account
	// already held stay.
	super := f.roles.roles[authz.RoleSuperAdmin]
	assert.ElementsMatch(t, []string{userRole.ID, super.ID}, f.roles.assignments[existing.ID])

	// Promoting an account that already holds super_admin is a no-op.
	require.NoError(t, f.bootstrap.Bootstrap(ctx, "root@example.com", "DifferentPass1!"))
	assert.ElementsMatch(t, []string{userRole.ID, super.ID}, f.roles.assignments[existing.ID])
}
