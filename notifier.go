package authd

import "context"

// Notifier delivers account lifecycle email to users. Implementations
// live outside this package; see the notify package for the SMTP one.
type Notifier interface {
	VerificationCode(ctx context.Context, user *User, code string) error
	Welcome(ctx context.Context, user *User) error
	PasswordResetRequest(ctx context.Context, user *User, resetLink string) error
	PasswordResetConfirmation(ctx context.Context, user *User) error
}

type noopNotifier struct{}

func (noopNotifier) VerificationCode(context.Context, *User, string) error     { return nil }
func (noopNotifier) Welcome(context.Context, *User) error                      { return nil }
func (noopNotifier) PasswordResetRequest(context.Context, *User, string) error { return nil }
func (noopNotifier) PasswordResetConfirmation(context.Context, *User) error    { return nil }

// NormalizeNotifier returns a no-op notifier when given nil.
func NormalizeNotifier(n Notifier) Notifier {
	if n == nil {
		return noopNotifier{}
	}
	return n
}

// AsyncNotifier dispatches notifications on their own goroutine so
// request handling never blocks on the SMTP relay. Delivery failures
// are logged and dropped; the triggering operation already succeeded.
type AsyncNotifier struct {
	next   Notifier
	logger Logger
}

// NewAsyncNotifier wraps next with fire-and-forget dispatch.
func NewAsyncNotifier(next Notifier, logger Logger) *AsyncNotifier {
	if logger == nil {
		logger = defLogger{}
	}
	return &AsyncNotifier{
		next:   NormalizeNotifier(next),
		logger: logger,
	}
}

func (n *AsyncNotifier) VerificationCode(ctx context.Context, user *User, code string) error {
	n.dispatch("verification code", user, func(ctx context.Context) error {
		return n.next.VerificationCode(ctx, user, code)
	})
	return nil
}

func (n *AsyncNotifier) Welcome(ctx context.Context, user *User) error {
	n.dispatch("welcome", user, func(ctx context.Context) error {
		return n.next.Welcome(ctx, user)
	})
	return nil
}

func (n *AsyncNotifier) PasswordResetRequest(ctx context.Context, user *User, resetLink string) error {
	n.dispatch("password reset request", user, func(ctx context.Context) error {
		return n.next.PasswordResetRequest(ctx, user, resetLink)
	})
	return nil
}

func (n *AsyncNotifier) PasswordResetConfirmation(ctx context.Context, user *User) error {
	n.dispatch("password reset confirmation", user, func(ctx context.Context) error {
		return n.next.PasswordResetConfirmation(ctx, user)
	})
	return nil
}

func (n *AsyncNotifier) dispatch(kind string, user *User, send func(context.Context) error) {
	// detach from the request context: the caller's deadline should not
	// cancel an email that is already on its way out
	go func() {
		if err := send(context.Background()); err != nil {
			n.logger.Error("notification delivery failed",
				"kind", kind,
				"user_id", user.ID.String(),
				"error", err,
			)
		}
	}()
}

var _ Notifier = (*AsyncNotifier)(nil)
