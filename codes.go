package authd

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"math/big"

	"github.com/goliatone/go-errors"
)

const (
	// VerificationCodeTTL is how long an email verification code stays valid
	VerificationCodeTTL = 24 // hours

	// ResetTokenTTL is how long a password reset token stays valid
	ResetTokenTTL = 1 // hour

	resetTokenBytes = 20
)

// NewVerificationCode returns a uniformly random 6 digit numeric code.
// Codes are zero padded so "042917" is as likely as "942917".
func NewVerificationCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return "", errors.Wrap(err, errors.CategoryInternal, "unable to generate verification code")
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

// NewResetToken returns an opaque hex encoded token for password reset links
func NewResetToken() (string, error) {
	buf := make([]byte, resetTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", errors.Wrap(err, errors.CategoryInternal, "unable to generate reset token")
	}
	return hex.EncodeToString(buf), nil
}
