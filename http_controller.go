package authd

import (
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-repository-bun"
	"github.com/goliatone/go-router"
)

type Middleware interface {
	Impersonate(c router.Context, identifier string) error
	ProtectedRoute(cfg Config, errorHandler func(router.Context, error) error) router.MiddlewareFunc
}

// GetRouterSession builds a SessionObject from the claims the JWT middleware
// stashed in the router context.
func GetRouterSession(c router.Context, key string) (*SessionObject, error) {
	raw := c.Locals(key)
	if raw == nil {
		return nil, ErrUnableToFindSession
	}

	claims, ok := raw.(AuthClaims)
	if claims == nil || !ok {
		return nil, ErrUnableToDecodeSession
	}

	return sessionFromAuthClaims(claims)
}

// RegisterAuthRoutes mounts the credential API on the given router, normally
// a group at /api/auth.
func RegisterAuthRoutes[T any](app router.Router[T], opts ...AuthControllerOption) {

	controller := NewAuthController(opts...)

	app.
		Post(controller.Routes.SignUp, controller.SignUp).
		SetName("auth.sign-up")

	app.
		Post(controller.Routes.SignIn, controller.SignIn).
		SetName("auth.sign-in")

	app.Post(controller.Routes.Logout, controller.Logout).SetName("auth.sign-out")

	app.Post(controller.Routes.VerifyEmail, controller.VerifyEmail).
		SetName("auth.verify-email")

	app.Post(controller.Routes.ForgetPassword, controller.ForgetPassword).
		SetName("auth.forget-password")

	app.Post(fmt.Sprintf("%s/:token", controller.Routes.ResetPassword), controller.ResetPassword).
		SetName("auth.reset-password")

	app.Get(
		controller.Routes.CheckAuth,
		controller.CheckAuth,
		controller.Auther.ProtectedRoute(
			controller.Config,
			controller.Auther.MakeClientRouteAuthErrorHandler(false),
		),
	).SetName("auth.check-auth")
}

type AuthControllerRoutes struct {
	SignUp         string
	SignIn         string
	Logout         string
	VerifyEmail    string
	ForgetPassword string
	ResetPassword  string
	CheckAuth      string
}

type AuthController struct {
	Debug        bool
	Logger       Logger
	Repo         RepositoryManager
	Routes       *AuthControllerRoutes
	Auther       HTTPAuthenticator
	Config       Config
	Notifier     Notifier
	ActivitySink ActivitySink
	ClientURL    string
	ErrorHandler router.ErrorHandler
}

type AuthControllerOption func(*AuthController) *AuthController

func NewAuthController(opts ...AuthControllerOption) *AuthController {
	c := &AuthController{
		Logger:       defLogger{},
		ErrorHandler: defaultErrHandler,
		Routes: &AuthControllerRoutes{
			SignUp:         "/sign-up",
			SignIn:         "/sign-in",
			Logout:         "/logout",
			VerifyEmail:    "/verify-email",
			ForgetPassword: "/forget-password",
			ResetPassword:  "/reset-password",
			CheckAuth:      "/check-auth",
		},
	}

	for _, opt := range opts {
		c = opt(c)
	}

	if c.Repo == nil {
		panic("Missing RepositoryManager in auth controller...")
	}

	if c.Auther == nil {
		panic("Missing HTTPAuthenticator in auth controller...")
	}

	if c.Config == nil {
		panic("Missing Config in auth controller...")
	}

	return c
}

// WithLogger overrides the controller logger.
func (a *AuthController) WithLogger(logger Logger) *AuthController {
	if logger != nil {
		a.Logger = logger
	}
	return a
}

// SignUpRequest payload
type SignUpRequest struct {
	Name     string `form:"name" json:"name"`
	Email    string `form:"email" json:"email"`
	Password string `form:"password" json:"password"`
}

// Validate will run validation rules
func (r SignUpRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.Required, validation.Length(1, 200)),
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.Password, validation.Required, validation.Length(6, 100)),
	)
}

func (a *AuthController) SignUp(ctx router.Context) error {
	payload := new(SignUpRequest)

	if err := ctx.Bind(payload); err != nil {
		a.Logger.Error("sign up parse payload", "error", err)
		return a.ErrorHandler(ctx, goerrors.Wrap(err, goerrors.CategoryBadInput, "Error parsing body").
			WithCode(goerrors.CodeBadRequest))
	}

	if payload.Name == "" || payload.Email == "" || payload.Password == "" {
		return a.ErrorHandler(ctx, ErrFieldsRequired)
	}

	if err := payload.Validate(); err != nil {
		a.Logger.Error("sign up validate payload", "error", err)
		return a.ErrorHandler(ctx, goerrors.Wrap(err, goerrors.CategoryValidation, err.Error()).
			WithCode(goerrors.CodeBadRequest))
	}

	if a.Debug {
		fmt.Println("======= AUTH SIGN UP ======")
		fmt.Println(print.MaybePrettyJSON(payload))
		fmt.Println("===========================")
	}

	var user *User
	req := RegisterUserMessage{
		Name:     payload.Name,
		Email:    payload.Email,
		Password: payload.Password,
		OnResponse: func(u *User) {
			user = u
		},
	}

	registerUser := NewRegisterUserHandler(a.Repo).
		WithNotifier(a.Notifier).
		WithActivitySink(a.ActivitySink).
		WithLogger(a.Logger)

	if err := registerUser.Execute(ctx.Context(), req); err != nil {
		a.Logger.Error("sign up execute", "error", err)
		return a.ErrorHandler(ctx, err)
	}

	// new accounts get a session right away, verification happens later
	if err := a.Auther.Impersonate(ctx, user.ID.String()); err != nil {
		a.Logger.Error("sign up session issue", "error", err)
		return a.ErrorHandler(ctx, err)
	}

	return ctx.JSON(router.StatusCreated, map[string]any{
		"success": true,
		"message": "User created successfully",
		"user":    user,
	})
}

// SignInRequest payload
type SignInRequest struct {
	Email      string `form:"email" json:"email"`
	Password   string `form:"password" json:"password"`
	RememberMe bool   `form:"remember_me" json:"remember_me"`
}

// GetIdentifier returns the identifier
func (r SignInRequest) GetIdentifier() string {
	return r.Email
}

// GetPassword will return the password
func (r SignInRequest) GetPassword() string {
	return r.Password
}

// GetExtendedSession reports whether the session should outlive the default TTL
func (r SignInRequest) GetExtendedSession() bool {
	return r.RememberMe
}

// Validate will run validation rules
func (r SignInRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(
			&r.Email,
			validation.Required,
			is.Email,
		),
		validation.Field(
			&r.Password,
			validation.Required,
		),
	)
}

func (a *AuthController) SignIn(ctx router.Context) error {
	payload := new(SignInRequest)

	if err := ctx.Bind(payload); err != nil {
		a.Logger.Error("sign in parse payload", "error", err)
		return a.ErrorHandler(ctx, goerrors.Wrap(err, goerrors.CategoryBadInput, "Error parsing body").
			WithCode(goerrors.CodeBadRequest))
	}

	if err := payload.Validate(); err != nil {
		a.Logger.Error("sign in validate payload", "error", err)
		return a.ErrorHandler(ctx, goerrors.Wrap(err, goerrors.CategoryValidation, err.Error()).
			WithCode(goerrors.CodeBadRequest))
	}

	if a.Debug {
		fmt.Println("======= AUTH SIGN IN ======")
		fmt.Println(print.MaybePrettyJSON(payload))
		fmt.Println("===========================")
	}

	if err := a.Auther.Login(ctx, payload); err != nil {
		a.Logger.Error("sign in authenticate", "error", err)
		return a.ErrorHandler(ctx, err)
	}

	user, err := a.Repo.Users().GetByIdentifier(ctx.Context(), payload.Email)
	if err != nil {
		a.Logger.Error("sign in user lookup", "error", err)
		return a.ErrorHandler(ctx, err)
	}

	return ctx.JSON(router.StatusOK, map[string]any{
		"success": true,
		"message": "Logged in successfully",
		"user":    user,
	})
}

func (a *AuthController) Logout(ctx router.Context) error {
	a.Auther.Logout(ctx)
	return ctx.JSON(router.StatusOK, map[string]any{
		"success": true,
		"message": "User logged out successfully",
	})
}

// VerifyEmailRequest payload
type VerifyEmailRequest struct {
	Code string `form:"code" json:"code"`
}

// Validate will run validation rules
func (r VerifyEmailRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(
			&r.Code,
			validation.Required,
			validation.Length(6, 6),
			is.Digit,
		),
	)
}

func (a *AuthController) VerifyEmail(ctx router.Context) error {
	payload := new(VerifyEmailRequest)

	if err := ctx.Bind(payload); err != nil {
		a.Logger.Error("verify email parse payload", "error", err)
		return a.ErrorHandler(ctx, goerrors.Wrap(err, goerrors.CategoryBadInput, "Error parsing body").
			WithCode(goerrors.CodeBadRequest))
	}

	if err := payload.Validate(); err != nil {
		a.Logger.Error("verify email validate payload", "error", err)
		return a.ErrorHandler(ctx, ErrInvalidVerificationCode)
	}

	var user *User
	req := VerifyEmailMessage{
		Code: payload.Code,
		OnResponse: func(u *User) {
			user = u
		},
	}

	verifyEmail := NewVerifyEmailHandler(a.Repo).
		WithNotifier(a.Notifier).
		WithActivitySink(a.ActivitySink).
		WithLogger(a.Logger)

	if err := verifyEmail.Execute(ctx.Context(), req); err != nil {
		a.Logger.Error("verify email execute", "error", err)
		return a.ErrorHandler(ctx, err)
	}

	return ctx.JSON(router.StatusOK, map[string]any{
		"success": true,
		"message": "Email verified successfully",
		"user":    user,
	})
}

// ForgetPasswordRequest payload
type ForgetPasswordRequest struct {
	Email string `form:"email" json:"email"`
}

// Validate will run validation rules
func (r ForgetPasswordRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(
			&r.Email,
			validation.Required,
			is.Email,
		),
	)
}

func (a *AuthController) ForgetPassword(ctx router.Context) error {
	payload := new(ForgetPasswordRequest)

	if err := ctx.Bind(payload); err != nil {
		a.Logger.Error("forget password parse payload", "error", err)
		return a.ErrorHandler(ctx, goerrors.Wrap(err, goerrors.CategoryBadInput, "Error parsing body").
			WithCode(goerrors.CodeBadRequest))
	}

	if payload.Email == "" {
		return a.ErrorHandler(ctx, ErrFieldsRequired)
	}

	if err := payload.Validate(); err != nil {
		a.Logger.Error("forget password validate payload", "error", err)
		return a.ErrorHandler(ctx, goerrors.Wrap(err, goerrors.CategoryValidation, err.Error()).
			WithCode(goerrors.CodeBadRequest))
	}

	var res *InitializePasswordResetResponse
	req := InitializePasswordResetMessage{
		Email: payload.Email,
		OnResponse: func(resp *InitializePasswordResetResponse) {
			res = resp
		},
	}

	initPwdReset := NewInitializePasswordResetHandler(a.Repo).
		WithNotifier(a.Notifier).
		WithActivitySink(a.ActivitySink).
		WithLogger(a.Logger).
		WithClientURL(a.ClientURL)

	if err := initPwdReset.Execute(ctx.Context(), req); err != nil {
		a.Logger.Error("forget password execute", "error", err)
		return a.ErrorHandler(ctx, err)
	}

	if a.Debug {
		fmt.Println("======= PASSWORD RESET ======")
		fmt.Println(print.MaybePrettyJSON(res))
		fmt.Println("=============================")
	}

	return ctx.JSON(router.StatusOK, map[string]any{
		"success": true,
		"message": "Password reset link sent to your email",
	})
}

// ResetPasswordRequest payload
type ResetPasswordRequest struct {
	Password string `form:"password" json:"password"`
}

// Validate will run validation rules
func (r ResetPasswordRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(
			&r.Password,
			validation.Required,
			validation.Length(6, 100),
		),
	)
}

func (a *AuthController) ResetPassword(ctx router.Context) error {
	token := ctx.Param("token", "")

	payload := new(ResetPasswordRequest)

	if err := ctx.Bind(payload); err != nil {
		a.Logger.Error("reset password parse payload", "error", err)
		return a.ErrorHandler(ctx, goerrors.Wrap(err, goerrors.CategoryBadInput, "Error parsing body").
			WithCode(goerrors.CodeBadRequest))
	}

	if err := payload.Validate(); err != nil {
		a.Logger.Error("reset password validate payload", "error", err)
		return a.ErrorHandler(ctx, goerrors.Wrap(err, goerrors.CategoryValidation, err.Error()).
			WithCode(goerrors.CodeBadRequest))
	}

	req := FinalizePasswordResetMesasge{
		Token:    token,
		Password: payload.Password,
	}

	finalizePwdReset := NewFinalizePasswordResetHandler(a.Repo).
		WithNotifier(a.Notifier).
		WithActivitySink(a.ActivitySink).
		WithLogger(a.Logger)

	if err := finalizePwdReset.Execute(ctx.Context(), req); err != nil {
		a.Logger.Error("reset password execute", "error", err)
		return a.ErrorHandler(ctx, err)
	}

	return ctx.JSON(router.StatusOK, map[string]any{
		"success": true,
		"message": "Password reset successful",
	})
}

func (a *AuthController) CheckAuth(ctx router.Context) error {
	claims, ok := GetRouterClaims(ctx, a.Config.GetContextKey())
	if !ok {
		return a.ErrorHandler(ctx, ErrNoTokenProvided)
	}

	user, err := a.Repo.Users().GetByIdentifier(ctx.Context(), claims.UserID())
	if err != nil {
		a.Logger.Error("check auth user lookup", "error", err)
		if repository.IsRecordNotFound(err) {
			return a.ErrorHandler(ctx, ErrUserNotFound)
		}
		return a.ErrorHandler(ctx, err)
	}

	return ctx.JSON(router.StatusOK, map[string]any{
		"success": true,
		"user":    user,
	})
}

func defaultErrHandler(c router.Context, err error) error {
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) {
		richErr = goerrors.Wrap(err, goerrors.CategoryInternal, "An unexpected server error occurred").
			WithCode(goerrors.CodeInternal)
	}

	status := StatusFromError(richErr)

	return c.JSON(status, map[string]any{
		"success": false,
		"message": richErr.Message,
		"code":    status,
	})
}
