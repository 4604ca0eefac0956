package service

import "errors"

var (
	// ErrInvalidCredentials is the single externally visible rejection for
	// login. Wrong password, unknown name, blocked account and empty
	// password all surface as this exact error so a caller cannot probe
	// which factor failed.
	ErrInvalidCredentials = errors.New("wrong username or password")

	// ErrTwoFactorRequired signals that the principal has a confirmed
	// second factor and the request carried no code.
	ErrTwoFactorRequired = errors.New("two_factor_required")

	// ErrInvalidTwoFactorCode rejects a wrong or reused TOTP code.
	ErrInvalidTwoFactorCode = errors.New("invalid_two_factor_code")

	// ErrInvalidGrant rejects an unknown, expired or revoked refresh token.
	ErrInvalidGrant = errors.New("invalid_grant")

	// ErrSessionUnavailable reports that the session layer failed to
	// produce a session after retrying. This is an environment fault, not
	// a client error.
	ErrSessionUnavailable = errors.New("session layer unavailable")
)
