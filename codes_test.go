package authd_test

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cinematiq/authd"
)

func TestNewVerificationCode(t *testing.T) {
	pattern := regexp.MustCompile(`^\d{6}$`)

	seen := map[string]bool{}
	for i := 0; i < 32; i++ {
		code, err := authd.NewVerificationCode()
		require.NoError(t, err)
		assert.Regexp(t, pattern, code)
		seen[code] = true
	}

	// 32 draws from a million-value space should not all collide
	assert.Greater(t, len(seen), 1)
}

func TestNewResetToken(t *testing.T) {
	pattern := regexp.MustCompile(`^[0-9a-f]{40}$`)

	a, err := authd.NewResetToken()
	require.NoError(t, err)
	b, err := authd.NewResetToken()
	require.NoError(t, err)

	assert.Regexp(t, pattern, a)
	assert.Regexp(t, pattern, b)
	assert.NotEqual(t, a, b)
}
