package authd_test

import (
	"context"
	"testing"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cinematiq/authd"
)

func TestUserProviderVerifyIdentity(t *testing.T) {
	ctx := context.Background()
	hash := bcryptHash("s3cret")

	t.Run("valid credentials", func(t *testing.T) {
		userID := uuid.New()
		trackedSuccess := false
		users := &stubUsers{
			getByIdentifier: func(ctx context.Context, identifier string) (*authd.User, error) {
				return &authd.User{
					ID:           userID,
					Name:         "Pepe Rone",
					Email:        identifier,
					PasswordHash: hash,
					IsVerified:   true,
				}, nil
			},
			trackSuccessful: func(ctx context.Context, user *authd.User) error {
				trackedSuccess = true
				return nil
			},
		}

		provider := authd.NewUserProvider(trackerAdapter{users: users}).WithLogger(testLogger{})

		identity, err := provider.VerifyIdentity(ctx, "pepe.rone@example.com", "s3cret")
		require.NoError(t, err)
		assert.Equal(t, userID.String(), identity.ID())
		assert.Equal(t, "pepe.rone@example.com", identity.Email())
		assert.True(t, identity.Verified())
		assert.True(t, trackedSuccess)
	})

	t.Run("wrong password increments the attempt counter", func(t *testing.T) {
		trackedAttempt := false
		users := &stubUsers{
			getByIdentifier: func(ctx context.Context, identifier string) (*authd.User, error) {
				return &authd.User{ID: uuid.New(), Email: identifier, PasswordHash: hash}, nil
			},
			trackAttempted: func(ctx context.Context, user *authd.User) error {
				trackedAttempt = true
				return nil
			},
		}

		provider := authd.NewUserProvider(trackerAdapter{users: users}).WithLogger(testLogger{})

		_, err := provider.VerifyIdentity(ctx, "pepe.rone@example.com", "wrong")
		require.ErrorIs(t, err, authd.ErrInvalidCredentials)
		assert.True(t, trackedAttempt)

		// the exact message is part of the API surface; clients key off it
		var rich *goerrors.Error
		require.True(t, goerrors.As(err, &rich))
		assert.Equal(t, "Invalid credentials", rich.Message)
	})

	t.Run("unknown email reports the same error as a bad password", func(t *testing.T) {
		users := &stubUsers{
			getByIdentifier: func(ctx context.Context, identifier string) (*authd.User, error) {
				return nil, repository.NewRecordNotFound()
			},
		}

		provider := authd.NewUserProvider(trackerAdapter{users: users}).WithLogger(testLogger{})

		_, err := provider.VerifyIdentity(ctx, "ghost@example.com", "whatever")
		require.ErrorIs(t, err, authd.ErrInvalidCredentials)

		var rich *goerrors.Error
		require.True(t, goerrors.As(err, &rich))
		assert.Equal(t, "Invalid credentials", rich.Message)
	})

	t.Run("too many recent attempts cools the account down", func(t *testing.T) {
		recent := time.Now().Add(-time.Minute)
		users := &stubUsers{
			getByIdentifier: func(ctx context.Context, identifier string) (*authd.User, error) {
				return &authd.User{
					ID:             uuid.New(),
					Email:          identifier,
					PasswordHash:   hash,
					LoginAttempts:  authd.MaxLoginAttempts + 1,
					LoginAttemptAt: &recent,
				}, nil
			},
		}

		provider := authd.NewUserProvider(trackerAdapter{users: users}).WithLogger(testLogger{})

		_, err := provider.VerifyIdentity(ctx, "pepe.rone@example.com", "s3cret")
		require.ErrorIs(t, err, authd.ErrTooManyLoginAttempts)
	})

	t.Run("stale attempts are forgiven after the cooldown window", func(t *testing.T) {
		stale := time.Now().Add(-48 * time.Hour)
		trackedSuccess := false
		users := &stubUsers{
			getByIdentifier: func(ctx context.Context, identifier string) (*authd.User, error) {
				return &authd.User{
					ID:             uuid.New(),
					Email:          identifier,
					PasswordHash:   hash,
					LoginAttempts:  authd.MaxLoginAttempts + 1,
					LoginAttemptAt: &stale,
				}, nil
			},
			trackSuccessful: func(ctx context.Context, user *authd.User) error {
				trackedSuccess = true
				return nil
			},
		}

		provider := authd.NewUserProvider(trackerAdapter{users: users}).WithLogger(testLogger{})

		_, err := provider.VerifyIdentity(ctx, "pepe.rone@example.com", "s3cret")
		require.NoError(t, err)
		assert.True(t, trackedSuccess)
	})
}

func TestUserProviderFindIdentityByIdentifier(t *testing.T) {
	ctx := context.Background()

	userID := uuid.New()
	users := &stubUsers{
		getByIdentifier: func(ctx context.Context, identifier string) (*authd.User, error) {
			return &authd.User{ID: userID, Name: "Pepe Rone", Email: "pepe.rone@example.com"}, nil
		},
	}

	provider := authd.NewUserProvider(trackerAdapter{users: users}).WithLogger(testLogger{})

	identity, err := provider.FindIdentityByIdentifier(ctx, userID.String())
	require.NoError(t, err)
	assert.Equal(t, userID.String(), identity.ID())
	assert.Equal(t, "Pepe Rone", identity.Name())
	assert.False(t, identity.Verified())
}
