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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestPasswordHasher_RoundTrip(t *testing.T) {
	hasher := NewPasswordHasher(bcrypt.MinCost)

	hash, err := hasher.Hash("SecurePass1!")
	require.NoError(t, err)
	require.NotEqual(t, "SecurePass1!", hash)

	ok, err := hasher.Verify("SecurePass1!", hash)
	require.NoError(t, err)
	assert.True(t, ok)

	// A mismatch is a negative answer, not an error.
	ok, err = hasher.Verify("WrongPass1!", hash)
	require.NoError(t, err)
	assert.False(t, ok)

	// A malformed hash is an error.
	_, err = hasher.Verify("SecurePass1!", "not-a-bcrypt-hash")
	assert.Error(t, err)
}

func TestNewPasswordHasher_ClampsCost(t *testing.T) {
	// Out-of-range costs fall back to the bcrypt default rather than
	// producing hashes that cannot be verified.
	hasher := NewPasswordHasher(1000)
	hash, err := hasher.Hash("SecurePass1!")
	require.NoError(t, err)

	cost, err := bcrypt.Cost([]byte(hash))
	require.NoError(t, err)
	assert.Equal(t, bcrypt.DefaultCost, cost)
}

func TestPasswordPolicy_ReportsAllViolations(t *testing.T) {
	policy := PasswordPolicy{MinLength: 8}

	violations := policy.Validate("abc")
	assert.Contains(t, violations, "password must be at least 8 characters long")
	assert.Contains(t, violations, "password must contain at least one uppercase letter")
	assert.Contains(t, violations, "password must contain at least one number")

	assert.Empty(t, policy.Validate("SecurePass1!"))
	assert.Empty(t, policy.Validate("Aa1@aaaa"))
}

func TestPasswordPolicy_ZeroMinLengthDefaults(t *testing.T) {
	policy := PasswordPolicy{}
	violations := policy.Validate("Aa1@a")
	assert.Contains(t, violations, "password must be at least 8 characters long")
}
