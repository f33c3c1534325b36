package notify

import (
	"context"
	"strings"

	"github.com/cinematiq/authd"
	goerrors "github.com/goliatone/go-errors"
	"gopkg.in/gomail.v2"
)

// Config holds the SMTP relay settings.
type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// Sender delivers a composed message. The default dials the SMTP relay;
// tests swap in a capture.
type Sender func(m *gomail.Message) error

// Mailer sends account lifecycle email over SMTP. Wrap it with
// authd.NewAsyncNotifier so request handling never blocks on the relay.
type Mailer struct {
	cfg    Config
	logger authd.Logger
	send   Sender
}

// NewMailer creates a mailer for the given relay settings.
func NewMailer(cfg Config) *Mailer {
	m := &Mailer{cfg: cfg}
	m.send = m.dialAndSend
	return m
}

// WithLogger overrides the logger used for delivery reporting.
func (n *Mailer) WithLogger(logger authd.Logger) *Mailer {
	if logger != nil {
		n.logger = logger
	}
	return n
}

// WithSender overrides the transport, e.g. to capture messages in tests.
func (n *Mailer) WithSender(send Sender) *Mailer {
	if send != nil {
		n.send = send
	}
	return n
}

func (n *Mailer) VerificationCode(ctx context.Context, user *authd.User, code string) error {
	body := strings.Replace(verificationEmailTemplate, "{verificationCode}", code, 1)
	return n.deliver(ctx, user.Email, "VERIFICATION MESSAGE", body)
}

func (n *Mailer) Welcome(ctx context.Context, user *authd.User) error {
	body := strings.Replace(welcomeEmailTemplate, "{name}", user.Name, 1)
	return n.deliver(ctx, user.Email, "WELCOME", body)
}

func (n *Mailer) PasswordResetRequest(ctx context.Context, user *authd.User, resetLink string) error {
	body := strings.Replace(passwordResetRequestTemplate, "{resetURL}", resetLink, 1)
	return n.deliver(ctx, user.Email, "RESET PASSWORD", body)
}

func (n *Mailer) PasswordResetConfirmation(ctx context.Context, user *authd.User) error {
	return n.deliver(ctx, user.Email, "Success password reset", passwordResetSuccessTemplate)
}

func (n *Mailer) deliver(ctx context.Context, to, subject, body string) error {
	if err := ctx.Err(); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryOperation, "context cancelled before email delivery")
	}

	if n.cfg.Host == "" || n.cfg.From == "" {
		return goerrors.New("smtp relay is not configured", goerrors.CategoryOperation)
	}

	if strings.TrimSpace(to) == "" {
		return goerrors.New("email recipient is empty", goerrors.CategoryValidation)
	}

	m := gomail.NewMessage()
	m.SetHeader("From", n.cfg.From)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", body)

	if err := n.send(m); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryOperation, "failed to send email")
	}

	n.getLogger().Info("email sent", "to", to, "subject", subject)
	return nil
}

func (n *Mailer) dialAndSend(m *gomail.Message) error {
	d := gomail.NewDialer(n.cfg.Host, n.cfg.Port, n.cfg.Username, n.cfg.Password)
	return d.DialAndSend(m)
}

func (n *Mailer) getLogger() authd.Logger {
	if n.logger != nil {
		return n.logger
	}
	return authd.DefaultLogger()
}

var _ authd.Notifier = (*Mailer)(nil)
