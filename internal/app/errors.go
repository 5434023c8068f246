package app

import "bookassist/pkg/domain"

var (
	// ErrInvalidCredentials is returned when the supplied credentials do not match.
	// The message never reveals which field was wrong, to prevent account enumeration.
	ErrInvalidCredentials = domain.NewError(domain.KindAuth, "Invalid email or password")

	// ErrInvalidSession is returned when a bearer token has no live session row.
	ErrInvalidSession = domain.NewError(domain.KindAuth, "Invalid or expired session")

	// ErrAccountInactive is returned for disabled accounts with valid credentials.
	ErrAccountInactive = domain.NewError(domain.KindAuth, "Account is inactive")

	ErrEmailAlreadyRegistered = domain.NewError(domain.KindConflict, "Email already registered")
	ErrEmailAlreadyVerified   = domain.NewError(domain.KindValidation, "Email already verified")

	ErrInvalidVerificationToken = domain.NewError(domain.KindNotFound, "Invalid or expired verification token")
	ErrInvalidResetToken        = domain.NewError(domain.KindNotFound, "Invalid or expired reset token")

	ErrMessageRequired = domain.NewError(domain.KindValidation, "message required")
	ErrSessionRequired = domain.NewError(domain.KindValidation, "session_id required")
)
