package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		Security: SecurityConfig{BcryptCost: 10, PasswordMinLength: 8},
		Token: TokenConfig{
			AccessSecret:  "an-access-signing-secret-of-32-bytes+",
			RefreshSecret: "a-refresh-signing-secret-of-32-bytes+",
		},
	}
}

func TestValidate(t *testing.T) {
	require.NoError(t, validConfig().Validate())

	c := validConfig()
	c.Token.AccessSecret = "short"
	assert.ErrorContains(t, c.Validate(), "JWT_ACCESS_SECRET")

	c = validConfig()
	c.Token.RefreshSecret = "short"
	assert.ErrorContains(t, c.Validate(), "JWT_REFRESH_SECRET")

	// The two signing secrets must never be shared.
	c = validConfig()
	c.Token.RefreshSecret = c.Token.AccessSecret
	assert.ErrorContains(t, c.Validate(), "must differ")

	c = validConfig()
	c.Security.BcryptCost = 2
	assert.ErrorContains(t, c.Validate(), "BCRYPT_COST")
}

func TestLoad_ReadsEnvironment(t *testing.T) {
	t.Setenv("DB_PASSWORD", "test-password")
	t.Setenv("JWT_ACCESS_SECRET", "an-access-signing-secret-of-32-bytes+")
	t.Setenv("JWT_REFRESH_SECRET", "a-refresh-signing-secret-of-32-bytes+")
	t.Setenv("SERVER_PORT", "9090")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, "authgrid", cfg.Token.Issuer)
	assert.Equal(t, float64(10), cfg.RateLimit.RequestsPerSecond)
}

func TestLoad_RequiresSecrets(t *testing.T) {
	t.Setenv("DB_PASSWORD", "test-password")
	t.Setenv("JWT_ACCESS_SECRET", "")
	t.Setenv("JWT_REFRESH_SECRET", "")

	_, err := Load()
	assert.Error(t, err)
}
