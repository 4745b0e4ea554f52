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

package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/authgrid/authgrid/internal/audit"
	"github.com/authgrid/authgrid/internal/authz"
	"github.com/authgrid/authgrid/internal/fault"
	"github.com/authgrid/authgrid/internal/identity"
	"github.com/authgrid/authgrid/internal/token"
)

// memStore backs every repository interface for router tests, so user rows
// and graph edges stay consistent across services.
type memStore struct {
	users       map[string]*identity.User
	roles       map[string]*authz.Role
	permissions map[string]*authz.Permission
	rolePerms   map[string]map[string]struct{}
	assignments map[string][]string // userID -> roleIDs
}

func newMemStore() *memStore {
	return &memStore{
		users:       make(map[string]*identity.User),
		roles:       make(map[string]*authz.Role),
		permissions: make(map[string]*authz.Permission),
		rolePerms:   make(map[string]map[string]struct{}),
		assignments: make(map[string][]string),
	}
}

func (s *memStore) addRole(name string, permNames ...string) *authz.Role {
	role := &authz.Role{ID: uuid.NewString(), Name: name}
	s.roles[role.ID] = role
	set := make(map[string]struct{})
	for _, pn := range permNames {
		for id, p := range s.permissions {
			if p.Name == pn {
				set[id] = struct{}{}
			}
		}
	}
	s.rolePerms[role.ID] = set
	return role
}

func (s *memStore) addPermission(resource, action string) *authz.Permission {
	p := &authz.Permission{
		ID:       uuid.NewString(),
		Name:     authz.PermissionName(resource, action),
		Resource: resource,
		Action:   action,
	}
	s.permissions[p.ID] = p
	return p
}

type memUserRepo struct{ s *memStore }

func (m *memUserRepo) Create(_ context.Context, user *identity.User, roleIDs []string, _ string) error {
	for _, existing := range m.s.users {
		if existing.Email == user.Email {
			return fault.Conflict("user with this email already exists")
		}
	}
	m.s.users[user.ID] = user
	m.s.assignments[user.ID] = roleIDs
	return nil
}

func (m *memUserRepo) GetByID(_ context.Context, id string) (*identity.User, error) {
	if user, ok := m.s.users[id]; ok {
		copied := *user
		return &copied, nil
	}
	return nil, fault.NotFound("user not found")
}

func (m *memUserRepo) GetByEmail(_ context.Context, email string) (*identity.User, error) {
	for _, user := range m.s.users {
		if user.Email == email {
			copied := *user
			return &copied, nil
		}
	}
	return nil, fault.NotFound("user not found")
}

func (m *memUserRepo) Update(_ context.Context, user *identity.User) error {
	if _, ok := m.s.users[user.ID]; !ok {
		return fault.NotFound("user not found")
	}
	m.s.users[user.ID] = user
	return nil
}

func (m *memUserRepo) UpdatePassword(_ context.Context, userID, passwordHash string) error {
	user, ok := m.s.users[userID]
	if !ok {
		return fault.NotFound("user not found")
	}
	user.PasswordHash = passwordHash
	return nil
}

func (m *memUserRepo) Delete(_ context.Context, id string) error {
	delete(m.s.users, id)
	delete(m.s.assignments, id)
	return nil
}

func (m *memUserRepo) List(_ context.Context) ([]*identity.User, error) {
	var users []*identity.User
	for _, user := range m.s.users {
		copied := *user
		users = append(users, &copied)
	}
	return users, nil
}

type memRoleRepo struct{ s *memStore }

func (m *memRoleRepo) Create(_ context.Context, role *authz.Role, permissionIDs []string) error {
	m.s.roles[role.ID] = role
	set := make(map[string]struct{})
	for _, id := range permissionIDs {
		set[id] = struct{}{}
	}
	m.s.rolePerms[role.ID] = set
	return nil
}

func (m *memRoleRepo) GetByID(_ context.Context, id string) (*authz.Role, error) {
	if role, ok := m.s.roles[id]; ok {
		return role, nil
	}
	return nil, fault.NotFound("role not found")
}

func (m *memRoleRepo) GetByName(_ context.Context, name string) (*authz.Role, error) {
	for _, role := range m.s.roles {
		if role.Name == name {
			return role, nil
		}
	}
	return nil, fault.NotFound("role not found")
}

func (m *memRoleRepo) Update(_ context.Context, role *authz.Role) error {
	m.s.roles[role.ID] = role
	return nil
}

func (m *memRoleRepo) Delete(_ context.Context, id string) error {
	delete(m.s.roles, id)
	return nil
}

func (m *memRoleRepo) List(_ context.Context) ([]*authz.Role, error) {
	var roles []*authz.Role
	for _, role := range m.s.roles {
		roles = append(roles, role)
	}
	return roles, nil
}

func (m *memRoleRepo) CountAssignments(_ context.Context, roleID string) (int, error) {
	count := 0
	for _, roleIDs := range m.s.assignments {
		for _, id := range roleIDs {
			if id == roleID {
				count++
			}
		}
	}
	return count, nil
}

func (m *memRoleRepo) ListPermissions(_ context.Context, roleID string) ([]*authz.Permission, error) {
	var perms []*authz.Permission
	for id := range m.s.rolePerms[roleID] {
		if p, ok := m.s.permissions[id]; ok {
			perms = append(perms, p)
		}
	}
	return perms, nil
}

func (m *memRoleRepo) ReplacePermissions(_ context.Context, roleID string, permissionIDs []string) error {
	set := make(map[string]struct{})
	for _, id := range permissionIDs {
		set[id] = struct{}{}
	}
	m.s.rolePerms[roleID] = set
	return nil
}

func (m *memRoleRepo) AddPermission(_ context.Context, roleID, permissionID string) error {
	set := m.s.rolePerms[roleID]
	if set == nil {
		set = make(map[string]struct{})
		m.s.rolePerms[roleID] = set
	}
	if _, dup := set[permissionID]; dup {
		return fault.Conflict("permission already assigned to this role")
	}
	set[permissionID] = struct{}{}
	return nil
}

func (m *memRoleRepo) RemovePermission(_ context.Context, roleID, permissionID string) (bool, error) {
	set := m.s.rolePerms[roleID]
	if _, ok := set[permissionID]; !ok {
		return false, nil
	}
	delete(set, permissionID)
	return true, nil
}

type memPermissionRepo struct{ s *memStore }

func (m *memPermissionRepo) Create(_ context.Context, p *authz.Permission) error {
	m.s.permissions[p.ID] = p
	return nil
}

func (m *memPermissionRepo) GetByID(_ context.Context, id string) (*authz.Permission, error) {
	if p, ok := m.s.permissions[id]; ok {
		return p, nil
	}
	return nil, fault.NotFound("permission not found")
}

func (m *memPermissionRepo) GetByName(_ context.Context, name string) (*authz.Permission, error) {
	for _, p := range m.s.permissions {
		if p.Name == name {
			return p, nil
		}
	}
	return nil, fault.NotFound("permission not found")
}

func (m *memPermissionRepo) GetByIDs(_ context.Context, ids []string) ([]*authz.Permission, error) {
	var found []*authz.Permission
	for _, id := range ids {
		if p, ok := m.s.permissions[id]; ok {
			found = append(found, p)
		}
	}
	return found, nil
}

func (m *memPermissionRepo) Update(_ context.Context, p *authz.Permission) error {
	m.s.permissions[p.ID] = p
	return nil
}

func (m *memPermissionRepo) Delete(_ context.Context, id string) error {
	delete(m.s.permissions, id)
	return nil
}

func (m *memPermissionRepo) List(_ context.Context) ([]*authz.Permission, error) {
	var perms []*authz.Permission
	for _, p := range m.s.permissions {
		perms = append(perms, p)
	}
	return perms, nil
}

func (m *memPermissionRepo) CountRoleRefs(_ context.Context, permissionID string) (int, error) {
	count := 0
	for _, set := range m.s.rolePerms {
		if _, ok := set[permissionID]; ok {
			count++
		}
	}
	return count, nil
}

type memAssignmentRepo struct{ s *memStore }

func (m *memAssignmentRepo) ReplaceForUser(_ context.Context, userID string, roleIDs []string, _ string) error {
	m.s.assignments[userID] = roleIDs
	return nil
}

func (m *memAssignmentRepo) Get(_ context.Context, userID, roleID string) (*authz.RoleAssignment, error) {
	for _, id := range m.s.assignments[userID] {
		if id == roleID {
			return &authz.RoleAssignment{UserID: userID, RoleID: roleID}, nil
		}
	}
	return nil, fault.NotFound("role assignment not found")
}

func (m *memAssignmentRepo) Remove(_ context.Context, userID, roleID string) (bool, error) {
	roleIDs := m.s.assignments[userID]
	for i, id := range roleIDs {
		if id == roleID {
			m.s.assignments[userID] = append(roleIDs[:i], roleIDs[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

func (m *memAssignmentRepo) CountForUser(_ context.Context, userID string) (int, error) {
	return len(m.s.assignments[userID]), nil
}

func (m *memAssignmentRepo) RolesForUser(_ context.Context, userID string) ([]*authz.Role, error) {
	var held []*authz.Role
	for _, roleID := range m.s.assignments[userID] {
		if role, ok := m.s.roles[roleID]; ok {
			held = append(held, role)
		}
	}
	return held, nil
}

func (m *memAssignmentRepo) PermissionsForUser(_ context.Context, userID string) ([]*authz.Permission, error) {
	seen := make(map[string]struct{})
	var perms []*authz.Permission
	for _, roleID := range m.s.assignments[userID] {
		for permID := range m.s.rolePerms[roleID] {
			if _, dup := seen[permID]; dup {
				continue
			}
			seen[permID] = struct{}{}
			if p, ok := m.s.permissions[permID]; ok {
				perms = append(perms, p)
			}
		}
	}
	return perms, nil
}

// apiFixture wires real services over the in-memory store behind the full
// router, middleware included.
type apiFixture struct {
	router    http.Handler
	store     *memStore
	identity  *identity.Service
	adminRole *authz.Role
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()
	store := newMemStore()

	store.addPermission("users", "read")
	store.addPermission("users", "create")
	store.addPermission("roles", "read")
	store.addRole(authz.RoleUser)
	adminRole := store.addRole(authz.RoleAdmin, "users:read", "users:create", "roles:read")

	authzService := authz.NewService(
		&memRoleRepo{store}, &memPermissionRepo{store}, &memAssignmentRepo{store}, audit.NopLogger{})
	identityService := identity.NewService(
		&memUserRepo{store},
		identity.NewPasswordHasher(bcrypt.MinCost),
		identity.PasswordPolicy{MinLength: 8},
		authzService,
		audit.NopLogger{},
	)
	tokenService, err := token.NewService(identityService, authzService, audit.NopLogger{}, token.Config{
		AccessSecret:  "router-test-access-secret-32-bytes-ok",
		RefreshSecret: "router-test-refresh-secret-32-bytes-o",
		Issuer:        "authgrid-test",
	})
	require.NoError(t, err)

	h := NewHandler(identityService, authzService, tokenService, audit.NopLogger{}, nil)
	router := NewRouter(h, NewRateLimiter(1000, 1000))

	return &apiFixture{
		router:    router,
		store:     store,
		identity:  identityService,
		adminRole: adminRole,
	}
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Error   string          `json:"error"`
	Data    json.RawMessage `json:"data"`
}

func (f *apiFixture) do(t *testing.T, method, path, bearer string, body any) (*httptest.ResponseRecorder, *envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	env := &envelope{}
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), env))
	}
	return rec, env
}

// register creates an account through the public endpoint and returns the
// issued token pair.
func (f *apiFixture) register(t *testing.T, email string) (access, refresh string) {
	t.Helper()
	rec, env := f.do(t, http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"email":     email,
		"password":  "SecurePass1!",
		"firstName": "Test",
		"lastName":  "User",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var payload struct {
		AccessToken  string `json:"accessToken"`
		RefreshToken string `json:"refreshToken"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &payload))
	return payload.AccessToken, payload.RefreshToken
}

// registerAdmin creates an account and promotes it to the admin role before
// issuing tokens.
func (f *apiFixture) registerAdmin(t *testing.T, email string) string {
	t.Helper()
	user, err := f.identity.CreateUser(context.Background(), identity.CreateUserInput{
		Email:    email,
		Password: "SecurePass1!",
		RoleIDs:  []string{f.adminRole.ID},
	}, "")
	require.NoError(t, err)

	rec, env := f.do(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"email":    user.Email,
		"password": "SecurePass1!",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var payload struct {
		AccessToken string `json:"accessToken"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &payload))
	return payload.AccessToken
}

func TestHealthCheck(t *testing.T) {
	f := newAPIFixture(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, "authgrid", body["service"])
}

func TestRegisterFlow(t *testing.T) {
	f := newAPIFixture(t)

	rec, env := f.do(t, http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"email":    "alice@example.com",
		"password": "SecurePass1!",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.True(t, env.Success)
	assert.Equal(t, "User registered successfully", env.Message)

	var payload struct {
		User struct {
			Email string   `json:"email"`
			Roles []struct {
				Name string `json:"name"`
			} `json:"roles"`
		} `json:"user"`
		AccessToken  string `json:"accessToken"`
		RefreshToken string `json:"refreshToken"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &payload))
	assert.Equal(t, "alice@example.com", payload.User.Email)
	require.Len(t, payload.User.Roles, 1)
	assert.Equal(t, authz.RoleUser, payload.User.Roles[0].Name)
	assert.NotEmpty(t, payload.AccessToken)
	assert.NotEmpty(t, payload.RefreshToken)

	// Duplicate registration conflicts.
	rec, env = f.do(t, http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"email":    "alice@example.com",
		"password": "SecurePass1!",
	})
	require.Equal(t, http.StatusConflict, rec.Code)
	assert.False(t, env.Success)
	assert.Equal(t, "user with this email already exists", env.Error)
}

func TestRegister_Validation(t *testing.T) {
	f := newAPIFixture(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/register", bytes.NewBufferString("{not json"))
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec2, env := f.do(t, http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"password": "SecurePass1!",
	})
	require.Equal(t, http.StatusBadRequest, rec2.Code)
	assert.Contains(t, env.Error, "email")
}

func TestLogin_InvalidCredentials(t *testing.T) {
	f := newAPIFixture(t)
	f.register(t, "alice@example.com")

	rec, env := f.do(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"email":    "alice@example.com",
		"password": "WrongPass1!",
	})
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "invalid credentials", env.Error)
}

func TestProfileRoundTrip(t *testing.T) {
	f := newAPIFixture(t)
	access, _ := f.register(t, "alice@example.com")

	rec, env := f.do(t, http.MethodGet, "/api/v1/auth/profile", access, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var profile struct {
		Email string `json:"email"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &profile))
	assert.Equal(t, "alice@example.com", profile.Email)

	// Without a token the endpoint is closed.
	rec, _ = f.do(t, http.MethodGet, "/api/v1/auth/profile", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestGuardedRoutes(t *testing.T) {
	f := newAPIFixture(t)
	userAccess, _ := f.register(t, "alice@example.com")
	adminAccess := f.registerAdmin(t, "admin@example.com")

	// The default role carries no list permission.
	rec, _ := f.do(t, http.MethodGet, "/api/v1/users", userAccess, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, env := f.do(t, http.MethodGet, "/api/v1/users", adminAccess, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var users []json.RawMessage
	require.NoError(t, json.Unmarshal(env.Data, &users))
	assert.Len(t, users, 2)

	// Unauthenticated requests never reach the permission check.
	rec, _ = f.do(t, http.MethodGet, "/api/v1/users", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestOwnershipRoute(t *testing.T) {
	f := newAPIFixture(t)
	aliceAccess, _ := f.register(t, "alice@example.com")
	bobAccess, _ := f.register(t, "bob@example.com")

	alice, err := f.identity.ListUsers(context.Background())
	require.NoError(t, err)
	var aliceID string
	for _, u := range alice {
		if u.Email == "alice@example.com" {
			aliceID = u.ID
		}
	}
	require.NotEmpty(t, aliceID)

	// Owners read their own record without users:read.
	rec, _ := f.do(t, http.MethodGet, "/api/v1/users/"+aliceID, aliceAccess, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	// Another plain user is rejected.
	rec, _ = f.do(t, http.MethodGet, "/api/v1/users/"+aliceID, bobAccess, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRefreshTokenEndpoint(t *testing.T) {
	f := newAPIFixture(t)
	_, refresh := f.register(t, "alice@example.com")

	rec, env := f.do(t, http.MethodPost, "/api/v1/auth/refresh-token", "", map[string]string{
		"refreshToken": refresh,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var pair struct {
		AccessToken  string `json:"accessToken"`
		RefreshToken string `json:"refreshToken"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &pair))
	assert.NotEmpty(t, pair.AccessToken)
	assert.NotEmpty(t, pair.RefreshToken)

	rec, env = f.do(t, http.MethodPost, "/api/v1/auth/refresh-token", "", map[string]string{
		"refreshToken": "bogus",
	})
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "invalid refresh token", env.Error)
}
