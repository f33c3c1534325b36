package authd

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
)

type VerifyEmailMessage struct {
	Code       string `json:"code" example:"042917" doc:"Six digit verification code."`
	OnResponse func(user *User)
}

func (e VerifyEmailMessage) Type() string { return "user.verify_email" }

type VerifyEmailHandler struct {
	repo     RepositoryManager
	notifier Notifier
	activity ActivitySink
	logger   Logger
	now      func() time.Time
}

// NewVerifyEmailHandler creates a handler with sane defaults.
func NewVerifyEmailHandler(repo RepositoryManager) *VerifyEmailHandler {
	return &VerifyEmailHandler{
		repo:     repo,
		notifier: noopNotifier{},
		activity: noopActivitySink{},
		logger:   defLogger{},
		now:      time.Now,
	}
}

// WithNotifier sets the notifier used to send the welcome email.
func (h *VerifyEmailHandler) WithNotifier(n Notifier) *VerifyEmailHandler {
	h.notifier = NormalizeNotifier(n)
	return h
}

// WithActivitySink sets the sink used to emit verification events.
func (h *VerifyEmailHandler) WithActivitySink(sink ActivitySink) *VerifyEmailHandler {
	h.activity = normalizeActivitySink(sink)
	return h
}

// WithLogger overrides the logger used by the handler.
func (h *VerifyEmailHandler) WithLogger(logger Logger) *VerifyEmailHandler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

// WithClock injects a custom clock (useful for tests).
func (h *VerifyEmailHandler) WithClock(clock func() time.Time) *VerifyEmailHandler {
	if clock != nil {
		h.now = clock
	}
	return h
}

func (h *VerifyEmailHandler) Execute(ctx context.Context, event VerifyEmailMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(ctx.Err(), goerrors.CategoryOperation, "context cancelled during email verification")
	default:
		return h.execute(ctx, event)
	}
}

func (h *VerifyEmailHandler) execute(ctx context.Context, event VerifyEmailMessage) error {
	if event.Code == "" {
		return ErrInvalidVerificationCode
	}

	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	// an unknown code and an expired one are indistinguishable here,
	// both surface the same validation error to the caller
	user, err := h.repo.Users().GetByVerificationCode(ctx, event.Code, h.now())
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return ErrInvalidVerificationCode
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to retrieve user for verification")
	}

	// the unverified->verified transition goes through the account state
	// machine, which persists the flip and publishes the status change
	actor := ActorRef{ID: user.ID.String(), Type: "user"}
	user, err = h.repo.Users().Verify(ctx, actor, user,
		WithTransitionReason("verification code redeemed"),
	)
	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to mark user as verified")
	}

	if err := h.notifier.Welcome(ctx, user); err != nil {
		h.logger.Error("failed to dispatch welcome email", "error", err)
	}

	h.recordActivity(ctx, user)

	if event.OnResponse != nil {
		event.OnResponse(user)
	}

	return nil
}

func (h *VerifyEmailHandler) recordActivity(ctx context.Context, user *User) {
	if user == nil {
		return
	}

	event := ActivityEvent{
		EventType: ActivityEventEmailVerified,
		Actor: ActorRef{
			ID:   user.ID.String(),
			Type: "user",
		},
		UserID:     user.ID.String(),
		FromStatus: AccountUnverified,
		ToStatus:   AccountVerified,
		OccurredAt: h.now(),
	}

	if err := normalizeActivitySink(h.activity).Record(ctx, event); err != nil {
		h.logger.Warn("activity sink error during email verification", "error", err)
	}
}
