package notify

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/gomail.v2"

	"github.com/cinematiq/authd"
)

func testMailer(t *testing.T) (*Mailer, *[]*gomail.Message) {
	t.Helper()

	var captured []*gomail.Message
	mailer := NewMailer(Config{
		Host: "smtp.example.com",
		Port: 587,
		From: "noreply@example.com",
	}).WithSender(func(m *gomail.Message) error {
		captured = append(captured, m)
		return nil
	})

	return mailer, &captured
}

func testUser() *authd.User {
	return &authd.User{
		Name:  "Pepe Rone",
		Email: "pepe.rone@example.com",
	}
}

func messageBody(t *testing.T, m *gomail.Message) string {
	t.Helper()
	var sb strings.Builder
	_, err := m.WriteTo(&sb)
	require.NoError(t, err)
	// drop quoted-printable soft line breaks so substring checks hold
	return strings.ReplaceAll(sb.String(), "=\r\n", "")
}

func TestMailerVerificationCode(t *testing.T) {
	mailer, captured := testMailer(t)

	err := mailer.VerificationCode(context.Background(), testUser(), "042917")
	require.NoError(t, err)
	require.Len(t, *captured, 1)

	m := (*captured)[0]
	assert.Equal(t, []string{"pepe.rone@example.com"}, m.GetHeader("To"))
	assert.Equal(t, []string{"VERIFICATION MESSAGE"}, m.GetHeader("Subject"))
	assert.Contains(t, messageBody(t, m), "042917")
}

func TestMailerPasswordResetRequest(t *testing.T) {
	mailer, captured := testMailer(t)

	link := "https://app.example.com/reset-password/0a1b2c3d"
	err := mailer.PasswordResetRequest(context.Background(), testUser(), link)
	require.NoError(t, err)
	require.Len(t, *captured, 1)

	m := (*captured)[0]
	assert.Equal(t, []string{"RESET PASSWORD"}, m.GetHeader("Subject"))
	assert.Contains(t, messageBody(t, m), "reset-password/0a1b2c3d")
}

func TestMailerPasswordResetConfirmation(t *testing.T) {
	mailer, captured := testMailer(t)

	err := mailer.PasswordResetConfirmation(context.Background(), testUser())
	require.NoError(t, err)
	require.Len(t, *captured, 1)
	assert.Equal(t, []string{"Success password reset"}, (*captured)[0].GetHeader("Subject"))
}

func TestMailerWelcome(t *testing.T) {
	mailer, captured := testMailer(t)

	err := mailer.Welcome(context.Background(), testUser())
	require.NoError(t, err)
	require.Len(t, *captured, 1)
	assert.Contains(t, messageBody(t, (*captured)[0]), "Pepe Rone")
}

func TestMailerGuards(t *testing.T) {
	t.Run("missing relay config", func(t *testing.T) {
		mailer := NewMailer(Config{})
		err := mailer.Welcome(context.Background(), testUser())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "not configured")
	})

	t.Run("empty recipient", func(t *testing.T) {
		mailer, _ := testMailer(t)
		err := mailer.Welcome(context.Background(), &authd.User{Name: "No Email"})
		require.Error(t, err)
	})

	t.Run("cancelled context", func(t *testing.T) {
		mailer, captured := testMailer(t)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		err := mailer.Welcome(ctx, testUser())
		require.Error(t, err)
		assert.Empty(t, *captured)
	})
}
