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
	"context"

	"github.com/authgrid/authgrid/internal/token"
)

type contextKey string

const claimsKey contextKey = "claims"

// WithClaims binds verified claims to the request context.
func WithClaims(ctx context.Context, claims *token.Claims) context.Context {
	return context.WithValue(ctx, claimsKey, claims)
}

// ClaimsFromContext retrieves the verified claims bound by Authenticate or
// OptionalAuthenticate. Returns nil when the request is anonymous.
func ClaimsFromContext(ctx context.Context) *token.Claims {
	if claims, ok := ctx.Value(claimsKey).(*token.Claims); ok {
		return claims
	}
	return nil
}

// UserIDFromContext is a convenience accessor for the authenticated user ID.
func UserIDFromContext(ctx context.Context) string {
	if claims := ClaimsFromContext(ctx); claims != nil {
		return claims.UserID
	}
	return ""
}
