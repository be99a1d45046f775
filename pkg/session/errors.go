package session

import "errors"

var (
	// ErrNotAuthenticated is returned when an operation requires an
	// authenticated session and none is present.
	ErrNotAuthenticated = errors.New("session.not_authenticated")

	// ErrEmailConfirmationRequired is returned by Register when the identity
	// provider requires the user to confirm their email address before the
	// account becomes usable.
	ErrEmailConfirmationRequired = errors.New("session.email_confirmation_required")
)
