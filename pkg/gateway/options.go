package gateway

import "time"

// RequestOption configures a single request.
type RequestOption func(*requestOptions)

type requestOptions struct {
	timeout       time.Duration
	skipAuth      bool
	noRetry       bool
	headers       map[string]string
	overrideToken string
}

func defaultRequestOptions() *requestOptions {
	return &requestOptions{}
}

// WithRequestTimeout overrides the per-attempt timeout computed from the
// retry policy.
func WithRequestTimeout(d time.Duration) RequestOption {
	return func(o *requestOptions) {
		if d > 0 {
			o.timeout = d
		}
	}
}

// WithoutAuth skips bearer injection and the 401 refresh-and-retry cycle.
// Used for public endpoints such as the liveness probe.
func WithoutAuth() RequestOption {
	return func(o *requestOptions) {
		o.skipAuth = true
	}
}

// WithoutRetry limits the request to a single attempt regardless of the
// retry policy.
func WithoutRetry() RequestOption {
	return func(o *requestOptions) {
		o.noRetry = true
	}
}

// WithHeader sets a custom header on the request.
func WithHeader(key, value string) RequestOption {
	return func(o *requestOptions) {
		if o.headers == nil {
			o.headers = make(map[string]string)
		}
		o.headers[key] = value
	}
}

// WithBearer sends an explicit bearer token instead of consulting the token
// source. Used by callers that operate on a specific credential, such as
// remote sign-out.
func WithBearer(token string) RequestOption {
	return func(o *requestOptions) {
		o.overrideToken = token
	}
}
