package gateway_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/authkit/pkg/gateway"
	"github.com/dmitrymomot/authkit/pkg/retry"
)

func fastConfig(baseURL string) gateway.Config {
	cfg := gateway.DefaultConfig()
	cfg.BaseURL = baseURL
	cfg.RetryBaseDelay = time.Millisecond
	cfg.RetryMaxDelay = 10 * time.Millisecond
	cfg.AttemptTimeout = time.Second
	cfg.TimeoutStep = time.Second
	cfg.MaxTimeout = 2 * time.Second
	return cfg
}

func staticTokens(token string) gateway.TokenSource {
	return gateway.TokenSourceFunc(func() (string, bool) {
		return token, token != ""
	})
}

type refresherFunc func(ctx context.Context) (string, error)

func (f refresherFunc) RefreshAccess(ctx context.Context) (string, error) { return f(ctx) }

func TestDoInjectsBearerAndDecodesEnvelope(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer at-123", r.Header.Get("Authorization"))
		assert.NotEmpty(t, r.Header.Get("X-Request-ID"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"success":true,"data":{"user":{"id":"u1","email":"u@example.com"}}}`))
	}))
	defer srv.Close()

	gw := gateway.New(fastConfig(srv.URL), gateway.WithTokenSource(staticTokens("at-123")))

	resp, err := gw.Get(context.Background(), "/auth/me")
	require.NoError(t, err)

	var payload struct {
		User struct {
			ID    string `json:"id"`
			Email string `json:"email"`
		} `json:"user"`
	}
	require.NoError(t, resp.Decode(&payload))
	assert.Equal(t, "u1", payload.User.ID)
	assert.Equal(t, "u@example.com", payload.User.Email)
}

func TestDoMissingTokenIsNotAnError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{"success":true,"data":{}}`))
	}))
	defer srv.Close()

	gw := gateway.New(fastConfig(srv.URL), gateway.WithTokenSource(staticTokens("")))

	_, err := gw.Get(context.Background(), "/public")
	assert.NoError(t, err)
}

func TestDoRefreshAndRetryOn401(t *testing.T) {
	t.Parallel()

	var requests atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		if r.Header.Get("Authorization") != "Bearer fresh-token" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"success":false,"error":{"code":"TOKEN_EXPIRED","message":"expired"}}`))
			return
		}
		_, _ = w.Write([]byte(`{"success":true,"data":{"ok":true}}`))
	}))
	defer srv.Close()

	var refreshes atomic.Int32
	gw := gateway.New(fastConfig(srv.URL), gateway.WithTokenSource(staticTokens("stale-token")))
	gw.SetRefresher(refresherFunc(func(ctx context.Context) (string, error) {
		refreshes.Add(1)
		return "fresh-token", nil
	}))

	resp, err := gw.Get(context.Background(), "/auth/me")
	require.NoError(t, err)

	var payload struct {
		OK bool `json:"ok"`
	}
	require.NoError(t, resp.Decode(&payload))
	assert.True(t, payload.OK, "caller receives the retried response transparently")
	assert.Equal(t, int32(1), refreshes.Load())
	assert.Equal(t, int32(2), requests.Load(), "original request retried exactly once")
}

func TestDoRefreshFailureSurfacesSessionExpired(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"success":false,"error":{"code":"INVALID_TOKEN","message":"invalid"}}`))
	}))
	defer srv.Close()

	var expired atomic.Bool
	gw := gateway.New(fastConfig(srv.URL), gateway.WithTokenSource(staticTokens("stale")))
	gw.SetRefresher(refresherFunc(func(ctx context.Context) (string, error) {
		return "", errors.New("refresh token revoked")
	}))
	gw.SetSessionExpiredHandler(func() { expired.Store(true) })

	_, err := gw.Get(context.Background(), "/auth/me")
	assert.ErrorIs(t, err, gateway.ErrSessionExpired)
	assert.True(t, expired.Load(), "forced logout hook must fire")
}

func TestDoTransientRefreshFailureDoesNotExpireSession(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"success":false,"error":{"code":"TOKEN_EXPIRED","message":"expired"}}`))
	}))
	defer srv.Close()

	var expired atomic.Bool
	gw := gateway.New(fastConfig(srv.URL), gateway.WithTokenSource(staticTokens("stale")))
	gw.SetRefresher(refresherFunc(func(ctx context.Context) (string, error) {
		return "", context.DeadlineExceeded
	}))
	gw.SetSessionExpiredHandler(func() { expired.Store(true) })

	_, err := gw.Get(context.Background(), "/auth/me")
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.NotErrorIs(t, err, gateway.ErrSessionExpired)
	assert.False(t, expired.Load(), "a cold backend must not tear the session down")
}

func TestDoNeverRefreshesTwice(t *testing.T) {
	t.Parallel()

	var requests atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"success":false,"error":{"code":"INVALID_TOKEN","message":"invalid"}}`))
	}))
	defer srv.Close()

	var refreshes atomic.Int32
	gw := gateway.New(fastConfig(srv.URL), gateway.WithTokenSource(staticTokens("stale")))
	gw.SetRefresher(refresherFunc(func(ctx context.Context) (string, error) {
		refreshes.Add(1)
		return "still-rejected", nil
	}))

	_, err := gw.Get(context.Background(), "/auth/me")

	var apiErr *gateway.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.Status)
	assert.Equal(t, int32(1), refreshes.Load(), "exactly one refresh per failing request")
	assert.Equal(t, int32(2), requests.Load())
}

func TestDoWithout401HandlingWhenNoRefresher(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"success":false,"error":{"code":"INVALID_TOKEN","message":"invalid"}}`))
	}))
	defer srv.Close()

	gw := gateway.New(fastConfig(srv.URL), gateway.WithTokenSource(staticTokens("t")))

	_, err := gw.Get(context.Background(), "/auth/me")
	var apiErr *gateway.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "INVALID_TOKEN", apiErr.Code)
}

func TestDoRetriesTransientFailuresBounded(t *testing.T) {
	t.Parallel()

	var requests atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"success":false,"error":{"code":"SERVICE_UNAVAILABLE","message":"warming up"}}`))
	}))
	defer srv.Close()

	cfg := fastConfig(srv.URL)
	cfg.RetryMaxAttempts = 3
	gw := gateway.New(cfg)

	_, err := gw.Get(context.Background(), "/auth/me")
	require.Error(t, err)
	assert.True(t, retry.IsTransient(err))
	assert.Equal(t, int32(3), requests.Load(), "attempted exactly MaxAttempts times")

	var apiErr *gateway.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "SERVICE_UNAVAILABLE", apiErr.Code)
}

func TestDoDoesNotRetryApplicationErrors(t *testing.T) {
	t.Parallel()

	var requests atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		w.WriteHeader(http.StatusConflict)
		_, _ = w.Write([]byte(`{"success":false,"error":{"code":"EMAIL_EXISTS","message":"duplicate"}}`))
	}))
	defer srv.Close()

	gw := gateway.New(fastConfig(srv.URL))

	_, err := gw.Post(context.Background(), "/auth/register", map[string]string{"email": "a@b.c"})

	var apiErr *gateway.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "EMAIL_EXISTS", apiErr.Code)
	assert.Equal(t, "An account with this email already exists.", apiErr.UserMessage())
	assert.Equal(t, int32(1), requests.Load(), "4xx errors are terminal")
}

func TestDoWithoutRetrySingleAttempt(t *testing.T) {
	t.Parallel()

	var requests atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	gw := gateway.New(fastConfig(srv.URL))

	_, err := gw.Get(context.Background(), "/health", gateway.WithoutRetry())
	require.Error(t, err)
	assert.Equal(t, int32(1), requests.Load())
}

func TestHealthProbesWithoutAuth(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/health", r.URL.Path)
		assert.Empty(t, r.Header.Get("Authorization"))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	gw := gateway.New(fastConfig(srv.URL), gateway.WithTokenSource(staticTokens("at")))
	assert.NoError(t, gw.Health(context.Background()))
}

func TestDoRespectsContextCancellation(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	cfg := fastConfig(srv.URL)
	cfg.RetryBaseDelay = time.Second
	gw := gateway.New(cfg)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := gw.Get(ctx, "/auth/me")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestUserMessageFallback(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "Something went wrong. Please try again.", gateway.UserMessage("NEVER_SEEN_CODE"))
	assert.NotEmpty(t, gateway.UserMessage("INVALID_CREDENTIALS"))
}
