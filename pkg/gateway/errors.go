package gateway

import "errors"

var (
	// ErrSessionExpired indicates the access credential could not be
	// refreshed; the session has been forced out.
	ErrSessionExpired = errors.New("gateway.session_expired")

	// ErrInvalidRequest indicates the request could not be constructed.
	ErrInvalidRequest = errors.New("gateway.invalid_request")

	// ErrInvalidResponse indicates the response payload could not be decoded.
	ErrInvalidResponse = errors.New("gateway.invalid_response")

	// ErrEmptyResponse indicates a decode was attempted on a response with
	// no envelope data.
	ErrEmptyResponse = errors.New("gateway.empty_response")
)
