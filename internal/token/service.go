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

package token

import (
	"context"
	"errors"
	"time"

	"github.com/authgrid/authgrid/internal/audit"
	"github.com/authgrid/authgrid/internal/fault"
	"github.com/authgrid/authgrid/internal/identity"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Pair is the bearer token pair returned to the boundary.
type Pair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// IdentitySource resolves identities at issuance and refresh time.
type IdentitySource interface {
	GetUser(ctx context.Context, userID string) (*identity.User, error)
}

// ClosureResolver computes a user's current role and permission closure
// from the authorization graph.
type ClosureResolver interface {
	ResolveClosure(ctx context.Context, userID string) (roles []string, permissions []string, err error)
}

// Config holds signing material and lifetimes. Secrets are distinct per
// token kind and must be provided explicitly: there is no default.
type Config struct {
	AccessSecret    string
	RefreshSecret   string
	AccessLifetime  time.Duration
	RefreshLifetime time.Duration
	Issuer          string
}

// Service issues and verifies the two token kinds. Verification is purely
// computational: a signature check and a clock comparison, no I/O.
type Service struct {
	users       IdentitySource
	graph       ClosureResolver
	auditLogger audit.Logger

	accessSecret    []byte
	refreshSecret   []byte
	accessLifetime  time.Duration
	refreshLifetime time.Duration
	issuer          string
}

// NewService creates a token service. Missing signing secrets are a fatal
// configuration error, never silently defaulted.
func NewService(users IdentitySource, graph ClosureResolver, auditLogger audit.Logger, cfg Config) (*Service, error) {
	if cfg.AccessSecret == "" || cfg.RefreshSecret == "" {
		return nil, errors.New("token: signing secrets are required")
	}
	if cfg.AccessLifetime <= 0 {
		cfg.AccessLifetime = time.Hour
	}
	if cfg.RefreshLifetime <= 0 {
		cfg.RefreshLifetime = 7 * 24 * time.Hour
	}

	return &Service{
		users:           users,
		graph:           graph,
		auditLogger:     auditLogger,
		accessSecret:    []byte(cfg.AccessSecret),
		refreshSecret:   []byte(cfg.RefreshSecret),
		accessLifetime:  cfg.AccessLifetime,
		refreshLifetime: cfg.RefreshLifetime,
		issuer:          cfg.Issuer,
	}, nil
}

// IssuePair resolves the identity's current role and permission closure and
// embeds it as a claim snapshot in a fresh access/refresh pair.
func (s *Service) IssuePair(ctx context.Context, userID string) (*Pair, error) {
	user, err := s.users.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	roles, permissions, err := s.graph.ResolveClosure(ctx, userID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	accessToken, err := s.sign(user, roles, permissions, now, s.accessLifetime, s.accessSecret)
	if err != nil {
		return nil, fault.Internal(err, "failed to sign access token")
	}
	refreshToken, err := s.sign(user, roles, permissions, now, s.refreshLifetime, s.refreshSecret)
	if err != nil {
		return nil, fault.Internal(err, "failed to sign refresh token")
	}

	s.auditLogger.Log(ctx, audit.Event{
		Type:     audit.TypeTokenIssued,
		ActorID:  user.ID,
		Resource: "token",
		Metadata: map[string]any{"role_count": len(roles), "permission_count": len(permissions)},
	})

	return &Pair{AccessToken: accessToken, RefreshToken: refreshToken}, nil
}

// VerifyAccessToken checks signature and expiry against the access secret
// and returns the embedded claim snapshot. Expired and invalid are
// distinguished failure reasons.
func (s *Service) VerifyAccessToken(tokenString string) (*Claims, error) {
	return verify(tokenString, s.accessSecret, "token expired", "invalid token")
}

// VerifyRefreshToken is the refresh-secret analogue of VerifyAccessToken.
func (s *Service) VerifyRefreshToken(tokenString string) (*Claims, error) {
	return verify(tokenString, s.refreshSecret, "refresh token expired", "invalid refresh token")
}

// Refresh verifies the refresh token and issues a fresh pair. The closure
// is re-resolved from the live graph, not from the old claims: this is how
// privilege changes eventually propagate. An inactive or deleted identity
// fails as Unauthorized, never NotFound.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*Pair, error) {
	claims, err := s.VerifyRefreshToken(refreshToken)
	if err != nil {
		return nil, err
	}

	user, err := s.users.GetUser(ctx, claims.UserID)
	if err != nil {
		// Only a missing identity reads as a bad token; a store failure
		// stays an infrastructure failure.
		if fault.IsKind(err, fault.KindNotFound) {
			return nil, fault.Unauthorized("invalid refresh token")
		}
		return nil, err
	}
	if !user.IsActive {
		return nil, fault.Unauthorized("invalid refresh token")
	}

	pair, err := s.IssuePair(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	s.auditLogger.Log(ctx, audit.Event{
		Type:     audit.TypeTokenRefreshed,
		ActorID:  user.ID,
		Resource: "token",
	})
	return pair, nil
}

func (s *Service) sign(user *identity.User, roles, permissions []string, now time.Time, lifetime time.Duration, secret []byte) (string, error) {
	claims := &Claims{
		UserID:      user.ID,
		Email:       user.Email,
		Roles:       roles,
		Permissions: permissions,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(lifetime)),
			ID:        uuid.NewString(),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

func verify(tokenString string, secret []byte, expiredMsg, invalidMsg string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fault.Unauthorized(expiredMsg)
		}
		return nil, fault.Unauthorized(invalidMsg)
	}
	return claims, nil
}
