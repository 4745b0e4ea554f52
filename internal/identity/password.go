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
	"errors"
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/crypto/bcrypt"
)

// passwordSymbols is the fixed punctuation set the strength policy accepts.
const passwordSymbols = "@$!%*?&"

// PasswordHasher hashes and verifies passwords using bcrypt with a fixed,
// configurable work factor.
type PasswordHasher struct {
	cost int
}

// NewPasswordHasher creates a password hasher with the given bcrypt cost.
func NewPasswordHasher(cost int) *PasswordHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &PasswordHasher{cost: cost}
}

// Hash hashes a password. The plaintext is never retained.
func (h *PasswordHasher) Hash(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

// Verify compares a candidate password against a stored hash. A mismatch is
// not an error; only a malformed hash is.
func (h *PasswordHasher) Verify(password, hash string) (bool, error) {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return false, nil
	}
	return false, fmt.Errorf("failed to compare password: %w", err)
}

// PasswordPolicy enforces secret strength on create and change.
type PasswordPolicy struct {
	MinLength int
}

// DefaultPasswordPolicy matches the documented minimum requirements.
func DefaultPasswordPolicy() PasswordPolicy {
	return PasswordPolicy{MinLength: 8}
}

// Validate returns every failing rule, not just the first. An empty result
// means the password is acceptable.
func (p PasswordPolicy) Validate(password string) []string {
	minLength := p.MinLength
	if minLength <= 0 {
		minLength = 8
	}

	var violations []string
	if len(password) < minLength {
		violations = append(violations, fmt.Sprintf("password must be at least %d characters long", minLength))
	}

	var hasLower, hasUpper, hasDigit, hasSymbol bool
	for _, r := range password {
		switch {
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsDigit(r):
			hasDigit = true
		case strings.ContainsRune(passwordSymbols, r):
			hasSymbol = true
		}
	}

	if !hasLower {
		violations = append(violations, "password must contain at least one lowercase letter")
	}
	if !hasUpper {
		violations = append(violations, "password must contain at least one uppercase letter")
	}
	if !hasDigit {
		violations = append(violations, "password must contain at least one number")
	}
	if !hasSymbol {
		violations = append(violations, "password must contain at least one special character")
	}

	return violations
}
