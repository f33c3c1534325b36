package authd_test

import (
	"context"
	"regexp"
	"testing"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cinematiq/authd"
)

func TestRegisterUserHandler(t *testing.T) {
	ctx := context.Background()

	t.Run("missing fields", func(t *testing.T) {
		handler := authd.NewRegisterUserHandler(stubRepo{})
		err := handler.Execute(ctx, authd.RegisterUserMessage{Email: "pepe.rone@example.com"})
		require.ErrorIs(t, err, authd.ErrFieldsRequired)
	})

	t.Run("email already taken", func(t *testing.T) {
		users := &stubUsers{
			getByIdentifierTx: func(ctx context.Context, identifier string) (*authd.User, error) {
				return &authd.User{Email: identifier}, nil
			},
		}
		handler := authd.NewRegisterUserHandler(stubRepo{users: users})

		err := handler.Execute(ctx, authd.RegisterUserMessage{
			Name:     "Pepe Rone",
			Email:    "pepe.rone@example.com",
			Password: "s3cret",
		})
		require.ErrorIs(t, err, authd.ErrEmailTaken)
	})

	t.Run("creates user with hash and verification code", func(t *testing.T) {
		var created *authd.User
		users := &stubUsers{
			getByIdentifierTx: func(ctx context.Context, identifier string) (*authd.User, error) {
				return nil, repository.NewRecordNotFound()
			},
			createTx: func(ctx context.Context, record *authd.User) (*authd.User, error) {
				created = record
				return record, nil
			},
		}

		notifier := &recordingNotifier{}
		sink := &recordingSink{}

		handler := authd.NewRegisterUserHandler(stubRepo{users: users}).
			WithNotifier(notifier).
			WithActivitySink(sink).
			WithLogger(testLogger{})

		var responded *authd.User
		err := handler.Execute(ctx, authd.RegisterUserMessage{
			Name:     "Pepe Rone",
			Email:    "pepe.rone@example.com",
			Password: "s3cret",
			OnResponse: func(u *authd.User) {
				responded = u
			},
		})
		require.NoError(t, err)
		require.NotNil(t, created)
		require.Same(t, created, responded)

		assert.NotEqual(t, "s3cret", created.PasswordHash)
		require.NoError(t, authd.ComparePasswordAndHash("s3cret", created.PasswordHash))

		assert.Regexp(t, regexp.MustCompile(`^\d{6}$`), created.VerificationCode)
		require.NotNil(t, created.VerificationExpiresAt)
		assert.WithinDuration(t,
			time.Now().Add(authd.VerificationCodeTTL*time.Hour),
			*created.VerificationExpiresAt,
			time.Minute,
		)

		assert.False(t, created.IsVerified)

		calls := notifier.Calls()
		require.Len(t, calls, 1)
		assert.Equal(t, "verification", calls[0].kind)
		assert.Equal(t, created.VerificationCode, calls[0].arg)

		events := sink.Events()
		require.Len(t, events, 1)
		assert.Equal(t, authd.ActivityEventUserRegistered, events[0].EventType)
	})

	t.Run("notifier failure does not fail registration", func(t *testing.T) {
		users := &stubUsers{
			getByIdentifierTx: func(ctx context.Context, identifier string) (*authd.User, error) {
				return nil, repository.NewRecordNotFound()
			},
			createTx: func(ctx context.Context, record *authd.User) (*authd.User, error) {
				return record, nil
			},
		}

		notifier := &recordingNotifier{err: goerrors.New("smtp relay down", goerrors.CategoryOperation)}

		handler := authd.NewRegisterUserHandler(stubRepo{users: users}).
			WithNotifier(notifier).
			WithLogger(testLogger{})

		err := handler.Execute(ctx, authd.RegisterUserMessage{
			Name:     "Pepe Rone",
			Email:    "pepe.rone@example.com",
			Password: "s3cret",
		})
		require.NoError(t, err)
	})
}
