package jwtware_test

import (
	"errors"
	"testing"

	"github.com/goliatone/go-router"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/cinematiq/authd/middleware/jwtware"
)

type stubClaims struct {
	sub      string
	uid      string
	verified bool
}

func (c stubClaims) Subject() string { return c.sub }
func (c stubClaims) UserID() string  { return c.uid }
func (c stubClaims) Verified() bool  { return c.verified }

type stubValidator struct {
	claims jwtware.AuthClaims
	err    error
	seen   []string
}

func (v *stubValidator) Validate(tokenString string) (jwtware.AuthClaims, error) {
	v.seen = append(v.seen, tokenString)
	if v.err != nil {
		return nil, v.err
	}
	return v.claims, nil
}

func passthroughErrHandler(c router.Context, err error) error {
	return err
}

func runMiddleware(mw router.MiddlewareFunc, ctx router.Context) error {
	handler := mw(func(c router.Context) error {
		return nil
	})
	return handler(ctx)
}

func TestJWTWare_CookieExtraction(t *testing.T) {
	validator := &stubValidator{claims: stubClaims{sub: "pepe.rone@example.com", uid: "u-1", verified: true}}

	mw := jwtware.New(jwtware.Config{
		SigningKey: jwtware.SigningKey{
			Key:    []byte("test-secret"),
			JWTAlg: "HS256",
		},
		TokenValidator: validator,
		TokenLookup:    "cookie:token",
		ErrorHandler:   passthroughErrHandler,
	})

	ctx := router.NewMockContext()
	ctx.CookiesM["token"] = "raw-token-value"
	ctx.On("Locals", "user", mock.Anything).Return(nil)

	err := runMiddleware(mw, ctx)
	require.NoError(t, err)
	assert.True(t, ctx.NextCalled, "expected Next to run after successful validation")
	assert.Equal(t, []string{"raw-token-value"}, validator.seen)
}

func TestJWTWare_MissingToken(t *testing.T) {
	validator := &stubValidator{claims: stubClaims{}}

	mw := jwtware.New(jwtware.Config{
		SigningKey: jwtware.SigningKey{
			Key:    []byte("test-secret"),
			JWTAlg: "HS256",
		},
		TokenValidator: validator,
		TokenLookup:    "cookie:token",
		ErrorHandler:   passthroughErrHandler,
	})

	ctx := router.NewMockContext()

	err := runMiddleware(mw, ctx)
	require.Error(t, err)
	assert.ErrorContains(t, err, jwtware.ErrJWTMissingOrMalformed.Error())
	assert.Empty(t, validator.seen, "validator should not run without a token")
}

func TestJWTWare_ValidatorError(t *testing.T) {
	validator := &stubValidator{err: errors.New("session token is expired")}

	mw := jwtware.New(jwtware.Config{
		SigningKey: jwtware.SigningKey{
			Key:    []byte("test-secret"),
			JWTAlg: "HS256",
		},
		TokenValidator: validator,
		TokenLookup:    "cookie:token",
		ErrorHandler:   passthroughErrHandler,
	})

	ctx := router.NewMockContext()
	ctx.CookiesM["token"] = "expired-token"

	err := runMiddleware(mw, ctx)
	require.Error(t, err)
	assert.ErrorContains(t, err, "expired")
	assert.False(t, ctx.NextCalled)
}

func TestJWTWare_RequireVerified(t *testing.T) {
	t.Run("unverified account is rejected", func(t *testing.T) {
		validator := &stubValidator{claims: stubClaims{sub: "pepe.rone@example.com", uid: "u-1", verified: false}}

		mw := jwtware.New(jwtware.Config{
			SigningKey: jwtware.SigningKey{
				Key:    []byte("test-secret"),
				JWTAlg: "HS256",
			},
			TokenValidator:  validator,
			TokenLookup:     "cookie:token",
			RequireVerified: true,
			ErrorHandler:    passthroughErrHandler,
		})

		ctx := router.NewMockContext()
		ctx.CookiesM["token"] = "raw-token-value"

		err := runMiddleware(mw, ctx)
		require.Error(t, err)
		assert.ErrorContains(t, err, "not verified")
	})

	t.Run("verified account passes", func(t *testing.T) {
		validator := &stubValidator{claims: stubClaims{sub: "pepe.rone@example.com", uid: "u-1", verified: true}}

		mw := jwtware.New(jwtware.Config{
			SigningKey: jwtware.SigningKey{
				Key:    []byte("test-secret"),
				JWTAlg: "HS256",
			},
			TokenValidator:  validator,
			TokenLookup:     "cookie:token",
			RequireVerified: true,
			ErrorHandler:    passthroughErrHandler,
		})

		ctx := router.NewMockContext()
		ctx.CookiesM["token"] = "raw-token-value"
		ctx.On("Locals", "user", mock.Anything).Return(nil)

		err := runMiddleware(mw, ctx)
		require.NoError(t, err)
		assert.True(t, ctx.NextCalled)
	})
}

func TestJWTWare_ValidationListeners(t *testing.T) {
	validator := &stubValidator{claims: stubClaims{sub: "pepe.rone@example.com", uid: "u-1", verified: true}}

	var listenerClaims jwtware.AuthClaims
	mw := jwtware.New(jwtware.Config{
		SigningKey: jwtware.SigningKey{
			Key:    []byte("test-secret"),
			JWTAlg: "HS256",
		},
		TokenValidator: validator,
		TokenLookup:    "cookie:token",
		ErrorHandler:   passthroughErrHandler,
		ValidationListeners: []jwtware.ValidationListener{
			nil, // nil listeners are skipped
			func(ctx router.Context, claims jwtware.AuthClaims) error {
				listenerClaims = claims
				return nil
			},
		},
	})

	ctx := router.NewMockContext()
	ctx.CookiesM["token"] = "raw-token-value"
	ctx.On("Locals", "user", mock.Anything).Return(nil)

	err := runMiddleware(mw, ctx)
	require.NoError(t, err)
	require.NotNil(t, listenerClaims)
	assert.Equal(t, "u-1", listenerClaims.UserID())
}

func TestJWTWare_ListenerErrorShortCircuits(t *testing.T) {
	validator := &stubValidator{claims: stubClaims{verified: true}}

	mw := jwtware.New(jwtware.Config{
		SigningKey: jwtware.SigningKey{
			Key:    []byte("test-secret"),
			JWTAlg: "HS256",
		},
		TokenValidator: validator,
		TokenLookup:    "cookie:token",
		ErrorHandler:   passthroughErrHandler,
		ValidationListeners: []jwtware.ValidationListener{
			func(ctx router.Context, claims jwtware.AuthClaims) error {
				return errors.New("listener rejected request")
			},
		},
	})

	ctx := router.NewMockContext()
	ctx.CookiesM["token"] = "raw-token-value"

	err := runMiddleware(mw, ctx)
	require.Error(t, err)
	assert.ErrorContains(t, err, "listener rejected")
	assert.False(t, ctx.NextCalled)
}

func TestJWTWare_FilterSkips(t *testing.T) {
	validator := &stubValidator{claims: stubClaims{}}

	mw := jwtware.New(jwtware.Config{
		SigningKey: jwtware.SigningKey{
			Key:    []byte("test-secret"),
			JWTAlg: "HS256",
		},
		TokenValidator: validator,
		TokenLookup:    "cookie:token",
		ErrorHandler:   passthroughErrHandler,
		Filter: func(ctx router.Context) bool {
			return true
		},
	})

	ctx := router.NewMockContext()

	err := runMiddleware(mw, ctx)
	require.NoError(t, err)
	assert.True(t, ctx.NextCalled)
	assert.Empty(t, validator.seen, "filtered requests skip extraction and validation")
}

func TestGetDefaultConfig(t *testing.T) {
	t.Run("fills in defaults", func(t *testing.T) {
		cfg := jwtware.GetDefaultConfig(jwtware.Config{
			SigningKey: jwtware.SigningKey{
				Key:    []byte("test-secret"),
				JWTAlg: "HS256",
			},
			TokenValidator: &stubValidator{},
		})

		assert.Equal(t, "user", cfg.ContextKey)
		assert.Equal(t, "Bearer", cfg.AuthScheme)
		assert.NotEmpty(t, cfg.TokenLookup)
		assert.NotNil(t, cfg.SuccessHandler)
		assert.NotNil(t, cfg.ErrorHandler)
		assert.NotNil(t, cfg.KeyFunc)
	})

	t.Run("panics without a validator", func(t *testing.T) {
		assert.Panics(t, func() {
			jwtware.GetDefaultConfig(jwtware.Config{
				SigningKey: jwtware.SigningKey{Key: []byte("test-secret")},
			})
		})
	})

	t.Run("panics without any signing material", func(t *testing.T) {
		assert.Panics(t, func() {
			jwtware.GetDefaultConfig(jwtware.Config{
				TokenValidator: &stubValidator{},
			})
		})
	})
}

func TestGetExtractors(t *testing.T) {
	extractors := jwtware.GetExtractors("header:Authorization,query:jwt,param:token,cookie:token")
	assert.Len(t, extractors, 4)

	extractors = jwtware.GetExtractors("cookie:token")
	assert.Len(t, extractors, 1)
}
