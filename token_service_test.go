package authd_test

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cinematiq/authd"
)

var testSigningKey = []byte("test-signing-key")

func testTokenService(expirationHours int) authd.TokenService {
	return authd.NewTokenService(testSigningKey, expirationHours, "authd-test", jwt.ClaimStrings{"api"}, testLogger{})
}

func TestTokenServiceRoundTrip(t *testing.T) {
	svc := testTokenService(24)

	identity := testIdentity{id: "9b9c78c1-7d5f-4f55-a4a3-111111111111", verified: true}
	token, err := svc.Generate(identity)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := svc.Validate(token)
	require.NoError(t, err)

	assert.Equal(t, identity.id, claims.Subject())
	assert.Equal(t, identity.id, claims.UserID())
	assert.True(t, claims.Verified())
	assert.WithinDuration(t, time.Now().Add(24*time.Hour), claims.Expires(), time.Minute)
	assert.WithinDuration(t, time.Now(), claims.IssuedAt(), time.Minute)
}

func TestTokenServiceExpiredToken(t *testing.T) {
	svc := testTokenService(-1)

	token, err := svc.Generate(testIdentity{id: "user-1"})
	require.NoError(t, err)

	_, err = svc.Validate(token)
	require.Error(t, err)
	assert.True(t, authd.IsTokenExpiredError(err))
}

func TestTokenServiceTamperedToken(t *testing.T) {
	svc := testTokenService(24)

	token, err := svc.Generate(testIdentity{id: "user-1"})
	require.NoError(t, err)

	_, err = svc.Validate(token + "garbage")
	require.Error(t, err)
	assert.False(t, authd.IsTokenExpiredError(err))
}

func TestTokenServiceWrongKey(t *testing.T) {
	minter := authd.NewTokenService([]byte("other-key"), 24, "authd-test", jwt.ClaimStrings{"api"}, testLogger{})
	token, err := minter.Generate(testIdentity{id: "user-1"})
	require.NoError(t, err)

	_, err = testTokenService(24).Validate(token)
	require.Error(t, err)
}

func TestTokenServiceIssuerMismatch(t *testing.T) {
	minter := authd.NewTokenService(testSigningKey, 24, "someone-else", nil, testLogger{})
	token, err := minter.Generate(testIdentity{id: "user-1"})
	require.NoError(t, err)

	_, err = testTokenService(24).Validate(token)
	require.Error(t, err)
}

func TestTokenServiceMintedTokensCarryUniqueIDs(t *testing.T) {
	svc := testTokenService(24)

	first, err := svc.Generate(testIdentity{id: "user-1"})
	require.NoError(t, err)
	second, err := svc.Generate(testIdentity{id: "user-1"})
	require.NoError(t, err)

	// same subject, distinct jti
	assert.NotEqual(t, first, second)
}

func TestSignClaimsRejectsNil(t *testing.T) {
	svc := testTokenService(24)

	_, err := svc.SignClaims(nil)
	require.Error(t, err)
}
