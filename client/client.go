package client

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"

	"github.com/cinematiq/authd"
)

// Client is the API consumer side of the auth service. It keeps the session
// cookie in a jar and mirrors server-confirmed identity into a Store so the
// presentation layer can react to changes.
type Client struct {
	base   string
	http   *http.Client
	store  Store
	logger authd.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the transport. The client will still install a
// cookie jar if the given client has none.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithStore injects the session mirror.
func WithStore(store Store) Option {
	return func(c *Client) {
		if store != nil {
			c.store = store
		}
	}
}

func WithLogger(logger authd.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New creates a client for the API at baseURL, e.g. "http://localhost:7077".
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		base:   strings.TrimRight(baseURL, "/"),
		store:  NewMemoryStore(),
		logger: authd.DefaultLogger(),
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.http == nil {
		c.http = &http.Client{Timeout: 30 * time.Second}
	}

	if c.http.Jar == nil {
		jar, err := cookiejar.New(nil)
		if err == nil {
			c.http.Jar = jar
		}
	}

	return c
}

// Store exposes the session mirror, e.g. to subscribe listeners.
func (c *Client) Store() Store {
	return c.store
}

type envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Code    int    `json:"code"`
	User    *User  `json:"user"`
}

// SignUp registers an account. The server issues a session cookie right
// away, verification happens later.
func (c *Client) SignUp(ctx context.Context, name, email, password string) (*User, error) {
	c.begin(false)

	env, err := c.do(ctx, http.MethodPost, "/api/auth/sign-up", map[string]string{
		"name":     name,
		"email":    email,
		"password": password,
	})
	if err != nil {
		return nil, c.fail(err, false)
	}

	c.succeed(env)
	return env.User, nil
}

// SignIn authenticates with email and password.
func (c *Client) SignIn(ctx context.Context, email, password string) (*User, error) {
	c.begin(false)

	env, err := c.do(ctx, http.MethodPost, "/api/auth/sign-in", map[string]string{
		"email":    email,
		"password": password,
	})
	if err != nil {
		return nil, c.fail(err, false)
	}

	c.succeed(env)
	return env.User, nil
}

// Logout clears the server cookie and resets the mirror to anonymous.
func (c *Client) Logout(ctx context.Context) error {
	c.begin(false)

	env, err := c.do(ctx, http.MethodPost, "/api/auth/logout", nil)
	if err != nil {
		// even a failed logout drops local identity
		return c.fail(err, true)
	}

	c.store.Update(func(s *State) {
		s.IsLoading = false
		s.User = nil
		s.IsAuthenticated = false
		s.Message = env.Message
	})
	return nil
}

// VerifyEmail confirms the account with the emailed 6 digit code.
func (c *Client) VerifyEmail(ctx context.Context, code string) (*User, error) {
	c.begin(false)

	env, err := c.do(ctx, http.MethodPost, "/api/auth/verify-email", map[string]string{
		"code": code,
	})
	if err != nil {
		return nil, c.fail(err, false)
	}

	c.succeed(env)
	return env.User, nil
}

// ForgetPassword requests a reset link for the given address.
func (c *Client) ForgetPassword(ctx context.Context, email string) error {
	c.begin(false)

	env, err := c.do(ctx, http.MethodPost, "/api/auth/forget-password", map[string]string{
		"email": email,
	})
	if err != nil {
		return c.fail(err, false)
	}

	c.store.Update(func(s *State) {
		s.IsLoading = false
		s.Message = env.Message
	})
	return nil
}

// ResetPassword finalizes a reset started by ForgetPassword.
func (c *Client) ResetPassword(ctx context.Context, token, password string) error {
	c.begin(false)

	env, err := c.do(ctx, http.MethodPost, "/api/auth/reset-password/"+token, map[string]string{
		"password": password,
	})
	if err != nil {
		return c.fail(err, false)
	}

	c.store.Update(func(s *State) {
		s.IsLoading = false
		s.Message = env.Message
	})
	return nil
}

// CheckAuth rebuilds the mirror from the session cookie. A failure is not an
// application error for the caller, it just means anonymous.
func (c *Client) CheckAuth(ctx context.Context) (*User, error) {
	c.begin(true)

	env, err := c.do(ctx, http.MethodGet, "/api/auth/check-auth", nil)
	if err != nil {
		// anonymous, not an error banner
		c.store.Update(func(s *State) {
			s.IsCheckingAuth = false
			s.User = nil
			s.IsAuthenticated = false
			s.Error = ""
		})
		return nil, err
	}

	c.store.Update(func(s *State) {
		s.IsCheckingAuth = false
		if env.User != nil {
			s.User = env.User
			s.IsAuthenticated = true
		}
	})
	return env.User, nil
}

func (c *Client) begin(checking bool) {
	c.store.Update(func(s *State) {
		if checking {
			s.IsCheckingAuth = true
		} else {
			s.IsLoading = true
		}
		s.Error = ""
	})
}

func (c *Client) succeed(env *envelope) {
	c.store.Update(func(s *State) {
		s.IsLoading = false
		if env.User != nil {
			s.User = env.User
			s.IsAuthenticated = true
		}
		s.Message = env.Message
	})
}

// fail records the failure on the mirror and returns err unchanged. Prior
// user and auth state survive unless reset is set.
func (c *Client) fail(err error, reset bool) error {
	c.store.Update(func(s *State) {
		s.IsLoading = false
		s.Error = err.Error()
		if reset {
			s.User = nil
			s.IsAuthenticated = false
		}
	})
	return err
}

func (c *Client) do(ctx context.Context, method, path string, body any) (*envelope, error) {
	var payload *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return nil, goerrors.Wrap(err, goerrors.CategoryOperation, "failed to encode request body")
		}
		payload = bytes.NewReader(raw)
	} else {
		payload = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, payload)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryOperation, "failed to build request")
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := c.http.Do(req)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryOperation, "request failed")
	}
	defer res.Body.Close()

	var env envelope
	if err := json.NewDecoder(res.Body).Decode(&env); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryOperation, "failed to decode response").
			WithMetadata(map[string]any{"status": res.StatusCode})
	}

	if res.StatusCode >= 400 || !env.Success {
		msg := env.Message
		if msg == "" {
			msg = res.Status
		}
		return nil, goerrors.New(msg, categoryForStatus(res.StatusCode)).
			WithCode(res.StatusCode)
	}

	return &env, nil
}

func categoryForStatus(status int) goerrors.Category {
	switch status {
	case http.StatusUnauthorized:
		return goerrors.CategoryAuth
	case http.StatusNotFound:
		return goerrors.CategoryNotFound
	case http.StatusConflict:
		return goerrors.CategoryConflict
	case http.StatusBadRequest:
		return goerrors.CategoryValidation
	case http.StatusTooManyRequests:
		return goerrors.CategoryRateLimit
	default:
		return goerrors.CategoryInternal
	}
}
