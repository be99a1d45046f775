package gateway

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// Response is a decoded backend response. The backend wraps every payload in
// an envelope: {"success": true, "data": ...} on success and
// {"success": false, "error": {"code": ..., "message": ...}} on failure.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte

	// Data is the envelope payload, present on successful responses.
	Data json.RawMessage

	success  bool
	envelope bool
	apiErr   *APIError
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// decodeEnvelope parses the standard response envelope. Responses without an
// envelope (health probes, proxies in front of the backend) are left as raw
// bodies.
func (r *Response) decodeEnvelope() {
	if len(r.Body) == 0 {
		return
	}
	var env envelope
	if err := json.Unmarshal(r.Body, &env); err != nil {
		return
	}
	r.envelope = true
	r.success = env.Success
	r.Data = env.Data
	if env.Error != nil {
		r.apiErr = &APIError{
			Status:  r.StatusCode,
			Code:    env.Error.Code,
			Message: env.Error.Message,
		}
	}
}

// envelopeError returns the error carried in the response envelope, if any.
func (r *Response) envelopeError() *APIError {
	return r.apiErr
}

// Decode unmarshals the envelope data into v.
func (r *Response) Decode(v any) error {
	if r.Data == nil {
		return ErrEmptyResponse
	}
	if err := json.Unmarshal(r.Data, v); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidResponse, err)
	}
	return nil
}

// APIError is a terminal application error returned by the backend.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("api error %d (%s): %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("api error %d: %s", e.Status, e.Message)
}

// UserMessage returns the stable user-facing message for this error's code.
func (e *APIError) UserMessage() string {
	return UserMessage(e.Code)
}
