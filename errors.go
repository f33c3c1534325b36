package authd

import (
	"strings"

	"github.com/goliatone/go-errors"
)

// Text codes surfaced in error payloads and log attributes
const (
	TextCodeInvalidCreds       = "INVALID_CREDENTIALS"
	TextCodeEmailTaken         = "EMAIL_TAKEN"
	TextCodeFieldsRequired     = "FIELDS_REQUIRED"
	TextCodeInvalidVerifyCode  = "INVALID_VERIFICATION_CODE"
	TextCodeInvalidResetToken  = "INVALID_RESET_TOKEN"
	TextCodeUserNotFound       = "USER_NOT_FOUND"
	TextCodeNoToken            = "NO_TOKEN"
	TextCodeInvalidToken       = "INVALID_TOKEN"
	TextCodeTokenExpired       = "TOKEN_EXPIRED"
	TextCodeTokenMalformed     = "TOKEN_MALFORMED"
	TextCodeTooManyAttempts    = "TOO_MANY_ATTEMPTS"
	TextCodeEmptyPassword      = "EMPTY_PASSWORD"
	TextCodeSessionNotFound    = "SESSION_NOT_FOUND"
	TextCodeSessionDecodeError = "SESSION_DECODE_ERROR"
	TextCodeClaimsMappingError = "CLAIMS_MAPPING_ERROR"
	TextCodeDataParseError     = "DATA_PARSE_ERROR"
)

// ErrInvalidCredentials is returned for unknown emails and password
// mismatches alike; both paths must surface the same message so callers
// cannot probe which half failed.
var ErrInvalidCredentials = errors.New("Invalid credentials", errors.CategoryAuth).
	WithCode(errors.CodeBadRequest).
	WithTextCode(TextCodeInvalidCreds)

// ErrEmailTaken is the duplicate registration error
var ErrEmailTaken = errors.New("This email is already taken", errors.CategoryConflict).
	WithCode(errors.CodeConflict).
	WithTextCode(TextCodeEmailTaken)

// ErrFieldsRequired is returned when a sign up payload is missing fields
var ErrFieldsRequired = errors.New("All fields are required", errors.CategoryValidation).
	WithCode(errors.CodeBadRequest).
	WithTextCode(TextCodeFieldsRequired)

// ErrInvalidVerificationCode covers both unknown and expired codes
var ErrInvalidVerificationCode = errors.New("Invalid or Expired verification code", errors.CategoryValidation).
	WithCode(errors.CodeBadRequest).
	WithTextCode(TextCodeInvalidVerifyCode)

// ErrInvalidResetToken covers unknown, consumed, and expired reset tokens
var ErrInvalidResetToken = errors.New("Invalid or expired reset token", errors.CategoryValidation).
	WithCode(errors.CodeBadRequest).
	WithTextCode(TextCodeInvalidResetToken)

// ErrUserNotFound is returned when an operation references a user record
// that no longer exists
var ErrUserNotFound = errors.New("User not found", errors.CategoryNotFound).
	WithCode(errors.CodeNotFound).
	WithTextCode(TextCodeUserNotFound)

// ErrNoTokenProvided is the session gate error for a missing cookie
var ErrNoTokenProvided = errors.New("No token provided", errors.CategoryAuth).
	WithCode(errors.CodeUnauthorized).
	WithTextCode(TextCodeNoToken)

// ErrInvalidToken is the session gate error for a tampered or otherwise
// unverifiable session credential
var ErrInvalidToken = errors.New("Invalid token", errors.CategoryAuth).
	WithCode(errors.CodeUnauthorized).
	WithTextCode(TextCodeInvalidToken)

// ErrTokenExpired is returned when a session credential is past its exp claim
var ErrTokenExpired = errors.New("session token is expired", errors.CategoryAuth).
	WithCode(errors.CodeUnauthorized).
	WithTextCode(TextCodeTokenExpired)

// ErrTokenMalformed is returned when a session credential cannot be parsed
var ErrTokenMalformed = errors.New("session token is malformed", errors.CategoryAuth).
	WithCode(errors.CodeUnauthorized).
	WithTextCode(TextCodeTokenMalformed)

// ErrMismatchedHashAndPassword is the internal bcrypt comparison failure;
// callers translate it to ErrInvalidCredentials before it leaves the package
var ErrMismatchedHashAndPassword = errors.New("the credentials provided are invalid", errors.CategoryAuth).
	WithCode(errors.CodeBadRequest).
	WithTextCode(TextCodeInvalidCreds)

// ErrTooManyLoginAttempts is returned while an account is cooling down
var ErrTooManyLoginAttempts = errors.New("too many login attempts, try again later", errors.CategoryRateLimit).
	WithTextCode(TextCodeTooManyAttempts)

// ErrNoEmptyString rejects empty passwords before they reach bcrypt
var ErrNoEmptyString = errors.New("password should not be an empty string", errors.CategoryValidation).
	WithCode(errors.CodeBadRequest).
	WithTextCode(TextCodeEmptyPassword)

// ErrIdentityNotFound is the error we return for non found identities
var ErrIdentityNotFound = errors.New("identity not found", errors.CategoryNotFound).
	WithCode(errors.CodeNotFound)

// ErrUnableToFindSession is the error when our request has no cookie
var ErrUnableToFindSession = errors.New("unable to find session", errors.CategoryAuth).
	WithCode(errors.CodeUnauthorized).
	WithTextCode(TextCodeSessionNotFound)

// ErrUnableToDecodeSession unable to decode JWT from session cookie
var ErrUnableToDecodeSession = errors.New("unable to decode session", errors.CategoryAuth).
	WithCode(errors.CodeUnauthorized).
	WithTextCode(TextCodeSessionDecodeError)

// ErrUnableToMapClaims unable to get claims from token
var ErrUnableToMapClaims = errors.New("unable to map claims", errors.CategoryAuth).
	WithCode(errors.CodeUnauthorized).
	WithTextCode(TextCodeClaimsMappingError)

// ErrUnableToParseData parse error
var ErrUnableToParseData = errors.New("unable to parse data", errors.CategoryBadInput).
	WithCode(errors.CodeBadRequest).
	WithTextCode(TextCodeDataParseError)

// ErrImmutableClaimMutation is raised when a claims decorator touches
// registered or identity claims
var ErrImmutableClaimMutation = errors.New("immutable claim mutated", errors.CategoryInternal).
	WithCode(errors.CodeInternal).
	WithTextCode("IMMUTABLE_CLAIM_MUTATION")

// StatusFromError resolves the HTTP status an error should surface as.
// Rich errors carry their own code; anything else is a 500.
func StatusFromError(err error) int {
	var rich *errors.Error
	if !errors.As(err, &rich) {
		return 500
	}

	if rich.Code > 0 {
		return rich.Code
	}

	switch rich.Category {
	case errors.CategoryValidation, errors.CategoryBadInput:
		return 400
	case errors.CategoryAuth, errors.CategoryAuthz:
		return 401
	case errors.CategoryNotFound:
		return 404
	case errors.CategoryConflict:
		return 409
	case errors.CategoryRateLimit:
		return 429
	default:
		return 500
	}
}

// IsTokenExpiredError will check for expired tokens
func IsTokenExpiredError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrTokenExpired) {
		return true
	}
	return strings.Contains(err.Error(), "token is expired")
}

// IsMalformedError will check for error message
func IsMalformedError(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "token is malformed") ||
		strings.Contains(err.Error(), "missing or malformed JWT")
}
