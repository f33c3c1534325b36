package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBaseConfigDefaults(t *testing.T) {
	cfg := &BaseConfig{}

	assert.Equal(t, ":7077", cfg.GetServer().GetAddr())
	assert.Equal(t, "http://localhost:5173", cfg.GetServer().GetAllowedOrigin())

	auth := cfg.GetAuth()
	assert.Equal(t, "HS256", auth.GetSigningMethod())
	assert.Equal(t, "token", auth.GetContextKey())
	assert.Equal(t, "cookie:token", auth.GetTokenLookup())
	assert.Equal(t, "Bearer", auth.GetAuthScheme())
	assert.Equal(t, 24, auth.GetTokenExpiration())
	assert.Equal(t, 0, auth.GetExtendedTokenDuration())

	assert.Equal(t, "sqlite", cfg.GetPersistence().GetDriver())
	assert.Equal(t, 5*time.Second, cfg.GetPersistence().GetPingTimeout())

	assert.Equal(t, 587, cfg.GetEmail().GetPort())
	assert.Equal(t, "http://localhost:5173", cfg.GetClient().GetURL())
}

func TestBaseConfigOverrides(t *testing.T) {
	cfg := &BaseConfig{
		Auth: Auth{
			ContextKey:      "session",
			TokenExpiration: 72,
		},
		Persistence: Persistence{
			PingTimeoutExpression: "30s",
		},
		Email: Email{
			Username: "relay@example.com",
		},
	}

	assert.Equal(t, "session", cfg.GetAuth().GetContextKey())
	assert.Equal(t, "cookie:session", cfg.GetAuth().GetTokenLookup())
	assert.Equal(t, 72, cfg.GetAuth().GetTokenExpiration())
	assert.Equal(t, 30*time.Second, cfg.GetPersistence().GetPingTimeout())
	assert.Equal(t, "relay@example.com", cfg.GetEmail().GetFrom())
}

func TestBaseConfigValidate(t *testing.T) {
	cfg := &BaseConfig{}
	require.Error(t, cfg.Validate())

	cfg.Auth.SigningKey = "super-secret"
	cfg.Persistence.DSN = "file:authd.db"
	require.NoError(t, cfg.Validate())
}

func TestPingTimeoutPanicsOnBadExpression(t *testing.T) {
	p := Persistence{PingTimeoutExpression: "not-a-duration"}
	assert.Panics(t, func() {
		p.GetPingTimeout()
	})
}
