package authd_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cinematiq/authd"
)

type blockingNotifier struct {
	authd.Notifier
	delivered chan string
	ctxs      chan context.Context
}

func (n *blockingNotifier) Welcome(ctx context.Context, user *authd.User) error {
	n.ctxs <- ctx
	n.delivered <- user.Email
	return nil
}

func TestAsyncNotifierDetachesDelivery(t *testing.T) {
	inner := &blockingNotifier{
		delivered: make(chan string, 1),
		ctxs:      make(chan context.Context, 1),
	}
	notifier := authd.NewAsyncNotifier(inner, testLogger{})

	// a cancelled request context must not stop the outbound email
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := notifier.Welcome(ctx, &authd.User{ID: uuid.New(), Email: "pepe.rone@example.com"})
	require.NoError(t, err)

	select {
	case deliveryCtx := <-inner.ctxs:
		assert.NoError(t, deliveryCtx.Err())
	case <-time.After(time.Second):
		t.Fatal("delivery never started")
	}

	select {
	case email := <-inner.delivered:
		assert.Equal(t, "pepe.rone@example.com", email)
	case <-time.After(time.Second):
		t.Fatal("delivery never finished")
	}
}

func TestNormalizeNotifier(t *testing.T) {
	n := authd.NormalizeNotifier(nil)
	require.NotNil(t, n)

	// the no-op accepts every call without error
	assert.NoError(t, n.Welcome(context.Background(), &authd.User{}))
	assert.NoError(t, n.VerificationCode(context.Background(), &authd.User{}, "042917"))
}
