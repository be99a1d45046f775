package idp

import "errors"

var (
	// ErrInvalidCredentials indicates the email/password pair was rejected.
	ErrInvalidCredentials = errors.New("idp.invalid_credentials")

	// ErrEmailExists indicates registration hit an already-used email.
	ErrEmailExists = errors.New("idp.email_exists")

	// ErrRefreshRejected indicates the refresh token was revoked or expired;
	// the session cannot be recovered without a fresh sign-in.
	ErrRefreshRejected = errors.New("idp.refresh_rejected")

	// ErrNoRefreshToken indicates a restore was attempted without a stored
	// refresh token.
	ErrNoRefreshToken = errors.New("idp.no_refresh_token")

	// ErrMalformedResponse indicates the provider response was missing
	// required fields.
	ErrMalformedResponse = errors.New("idp.malformed_response")
)
