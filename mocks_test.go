package authd_test

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"github.com/goliatone/go-repository-bun"
	"github.com/goliatone/go-router"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/uptrace/bun"

	"github.com/cinematiq/authd"
)

type testLogger struct{}

func (testLogger) Debug(string, ...any) {}
func (testLogger) Info(string, ...any)  {}
func (testLogger) Warn(string, ...any)  {}
func (testLogger) Error(string, ...any) {}

// testIdentity implements authd.Identity
type testIdentity struct {
	id       string
	name     string
	email    string
	verified bool
}

func (i testIdentity) ID() string     { return i.id }
func (i testIdentity) Name() string   { return i.name }
func (i testIdentity) Email() string  { return i.email }
func (i testIdentity) Verified() bool { return i.verified }

// MockIdentityProvider implements authd.IdentityProvider
type MockIdentityProvider struct {
	mock.Mock
}

func (m *MockIdentityProvider) VerifyIdentity(ctx context.Context, identifier, password string) (authd.Identity, error) {
	args := m.Called(ctx, identifier, password)
	identity, _ := args.Get(0).(authd.Identity)
	return identity, args.Error(1)
}

func (m *MockIdentityProvider) FindIdentityByIdentifier(ctx context.Context, identifier string) (authd.Identity, error) {
	args := m.Called(ctx, identifier)
	identity, _ := args.Get(0).(authd.Identity)
	return identity, args.Error(1)
}

// MockHTTPAuthenticator implements authd.HTTPAuthenticator
type MockHTTPAuthenticator struct {
	mock.Mock
}

func (m *MockHTTPAuthenticator) ProtectedRoute(cfg authd.Config, errorHandler func(router.Context, error) error) router.MiddlewareFunc {
	args := m.Called(cfg, errorHandler)
	mw, _ := args.Get(0).(router.MiddlewareFunc)
	return mw
}

func (m *MockHTTPAuthenticator) Login(c router.Context, payload authd.LoginPayload) error {
	args := m.Called(c, payload)
	return args.Error(0)
}

func (m *MockHTTPAuthenticator) Logout(c router.Context) {
	m.Called(c)
}

func (m *MockHTTPAuthenticator) Impersonate(c router.Context, identifier string) error {
	args := m.Called(c, identifier)
	return args.Error(0)
}

func (m *MockHTTPAuthenticator) MakeClientRouteAuthErrorHandler(optionalAuth bool) func(c router.Context, err error) error {
	args := m.Called(optionalAuth)
	fn, _ := args.Get(0).(func(c router.Context, err error) error)
	return fn
}

// stubUsers overrides only the repository methods a test exercises; anything
// else panics through the embedded nil interface.
type stubUsers struct {
	authd.Users

	getByIdentifier       func(ctx context.Context, identifier string) (*authd.User, error)
	getByIdentifierTx     func(ctx context.Context, identifier string) (*authd.User, error)
	createTx              func(ctx context.Context, record *authd.User) (*authd.User, error)
	getByVerificationCode func(ctx context.Context, code string, now time.Time) (*authd.User, error)
	markVerified          func(ctx context.Context, id uuid.UUID) (*authd.User, error)
	getByResetTokenTx     func(ctx context.Context, token string, now time.Time) (*authd.User, error)
	setResetTokenTx       func(ctx context.Context, id uuid.UUID, token string, expiresAt time.Time) (*authd.User, error)
	resetPasswordTx       func(ctx context.Context, id uuid.UUID, passwordHash string) error
	trackAttempted        func(ctx context.Context, user *authd.User) error
	trackSuccessful       func(ctx context.Context, user *authd.User) error
}

func (s *stubUsers) GetByIdentifier(ctx context.Context, identifier string, criteria ...repository.SelectCriteria) (*authd.User, error) {
	return s.getByIdentifier(ctx, identifier)
}

func (s *stubUsers) GetByIdentifierTx(ctx context.Context, tx bun.IDB, identifier string, criteria ...repository.SelectCriteria) (*authd.User, error) {
	return s.getByIdentifierTx(ctx, identifier)
}

func (s *stubUsers) CreateTx(ctx context.Context, tx bun.IDB, record *authd.User, criteria ...repository.InsertCriteria) (*authd.User, error) {
	return s.createTx(ctx, record)
}

func (s *stubUsers) GetByVerificationCode(ctx context.Context, code string, now time.Time) (*authd.User, error) {
	return s.getByVerificationCode(ctx, code, now)
}

func (s *stubUsers) GetByVerificationCodeTx(ctx context.Context, tx bun.IDB, code string, now time.Time) (*authd.User, error) {
	return s.getByVerificationCode(ctx, code, now)
}

func (s *stubUsers) MarkVerified(ctx context.Context, id uuid.UUID) (*authd.User, error) {
	return s.markVerified(ctx, id)
}

func (s *stubUsers) MarkVerifiedTx(ctx context.Context, tx bun.IDB, id uuid.UUID) (*authd.User, error) {
	return s.markVerified(ctx, id)
}

// Verify runs the real lifecycle machine over the stub store, the same path
// the repository takes in production.
func (s *stubUsers) Verify(ctx context.Context, actor authd.ActorRef, user *authd.User, opts ...authd.TransitionOption) (*authd.User, error) {
	return authd.NewAccountStateMachine(s).Transition(ctx, actor, user, authd.AccountVerified, opts...)
}

func (s *stubUsers) GetByResetTokenTx(ctx context.Context, tx bun.IDB, token string, now time.Time) (*authd.User, error) {
	return s.getByResetTokenTx(ctx, token, now)
}

func (s *stubUsers) SetResetTokenTx(ctx context.Context, tx bun.IDB, id uuid.UUID, token string, expiresAt time.Time) (*authd.User, error) {
	return s.setResetTokenTx(ctx, id, token, expiresAt)
}

func (s *stubUsers) ResetPasswordTx(ctx context.Context, tx bun.IDB, id uuid.UUID, passwordHash string) error {
	return s.resetPasswordTx(ctx, id, passwordHash)
}

func (s *stubUsers) TrackAttemptedLogin(ctx context.Context, user *authd.User) error {
	return s.trackAttempted(ctx, user)
}

func (s *stubUsers) TrackSucccessfulLogin(ctx context.Context, user *authd.User) error {
	return s.trackSuccessful(ctx, user)
}

// trackerAdapter narrows stubUsers to the authd.UserTracker surface; the
// repository GetByIdentifier is variadic so it does not satisfy the
// interface directly.
type trackerAdapter struct {
	users authd.Users
}

func (a trackerAdapter) GetByIdentifier(ctx context.Context, identifier string) (*authd.User, error) {
	return a.users.GetByIdentifier(ctx, identifier)
}

func (a trackerAdapter) TrackAttemptedLogin(ctx context.Context, user *authd.User) error {
	return a.users.TrackAttemptedLogin(ctx, user)
}

func (a trackerAdapter) TrackSucccessfulLogin(ctx context.Context, user *authd.User) error {
	return a.users.TrackSucccessfulLogin(ctx, user)
}

// stubRepo satisfies authd.RepositoryManager without a database; RunInTx
// invokes the callback with a zero transaction since stubs never touch it.
type stubRepo struct {
	users authd.Users
}

func (s stubRepo) Users() authd.Users { return s.users }
func (s stubRepo) Validate() error    { return nil }
func (s stubRepo) MustValidate()      {}

func (s stubRepo) RunInTx(ctx context.Context, opts *sql.TxOptions, f func(ctx context.Context, tx bun.Tx) error) error {
	var tx bun.Tx
	return f(ctx, tx)
}

type notifierCall struct {
	kind string
	user *authd.User
	arg  string
}

// recordingNotifier captures lifecycle email dispatches.
type recordingNotifier struct {
	mu    sync.Mutex
	calls []notifierCall
	err   error
}

func (n *recordingNotifier) record(kind string, user *authd.User, arg string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls = append(n.calls, notifierCall{kind: kind, user: user, arg: arg})
	return n.err
}

func (n *recordingNotifier) VerificationCode(ctx context.Context, user *authd.User, code string) error {
	return n.record("verification", user, code)
}

func (n *recordingNotifier) Welcome(ctx context.Context, user *authd.User) error {
	return n.record("welcome", user, "")
}

func (n *recordingNotifier) PasswordResetRequest(ctx context.Context, user *authd.User, resetLink string) error {
	return n.record("reset_request", user, resetLink)
}

func (n *recordingNotifier) PasswordResetConfirmation(ctx context.Context, user *authd.User) error {
	return n.record("reset_confirmation", user, "")
}

func (n *recordingNotifier) Calls() []notifierCall {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]notifierCall, len(n.calls))
	copy(out, n.calls)
	return out
}

// recordingSink captures activity events.
type recordingSink struct {
	mu     sync.Mutex
	events []authd.ActivityEvent
}

func (s *recordingSink) Record(ctx context.Context, event authd.ActivityEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

func (s *recordingSink) Events() []authd.ActivityEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]authd.ActivityEvent, len(s.events))
	copy(out, s.events)
	return out
}

func bcryptHash(password string) string {
	hash, err := authd.HashPassword(password)
	if err != nil {
		panic(err)
	}
	return hash
}

var _ authd.RepositoryManager = stubRepo{}
var _ authd.Notifier = (*recordingNotifier)(nil)
var _ authd.ActivitySink = (*recordingSink)(nil)
var _ authd.IdentityProvider = (*MockIdentityProvider)(nil)
var _ authd.HTTPAuthenticator = (*MockHTTPAuthenticator)(nil)
