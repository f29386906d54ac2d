package auth

import "errors"

var (
	// ErrConflict is returned when the signup email is already registered.
	ErrConflict = errors.New("account already exists")
	// ErrWrongUser is returned when no account matches the given email.
	ErrWrongUser = errors.New("wrong user")
	// ErrNotConfirmed is returned when a login is attempted before the
	// email address has been confirmed.
	ErrNotConfirmed = errors.New("email not confirmed")
	// ErrWrongPassword is returned when the password check fails.
	ErrWrongPassword = errors.New("wrong password")
	// ErrInvalidRefreshToken is returned when a presented refresh token is
	// malformed, expired, or no longer the single live token for the user.
	ErrInvalidRefreshToken = errors.New("invalid refresh token")
	// ErrWrongCredentials is returned by the authorization gate for any
	// access-token validation or lookup failure.
	ErrWrongCredentials = errors.New("wrong credentials")
	// ErrVerification is returned when an email-confirmation token does
	// not resolve to a known account.
	ErrVerification = errors.New("verification error")
	// ErrTransient wraps store and mail backend failures that the caller
	// may retry; it is never an authorization verdict.
	ErrTransient = errors.New("backend temporarily unavailable")
)
