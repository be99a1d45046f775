package idp_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/authkit/pkg/gateway"
	"github.com/dmitrymomot/authkit/pkg/idp"
)

func newGateway(t *testing.T, handler http.Handler) *gateway.Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := gateway.DefaultConfig()
	cfg.BaseURL = srv.URL
	cfg.RetryBaseDelay = time.Millisecond
	return gateway.New(cfg)
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}

const userJSON = `{"id":"u1","email":"u@example.com","name":"Uma","avatar_url":"","auth_provider":"email","email_verified":true}`

func TestSignInSuccess(t *testing.T) {
	t.Parallel()

	gw := newGateway(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/auth/login", r.URL.Path)
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "u@example.com", body["email"])

		writeJSON(w, http.StatusOK,
			`{"success":true,"data":{"access_token":"at-1","refresh_token":"rt-1","expires_in":3600,"user":`+userJSON+`}}`)
	}))

	provider := idp.NewHTTPProvider(gw)
	res, err := provider.SignIn(context.Background(), idp.Credentials{Email: "u@example.com", Password: "pw"})
	require.NoError(t, err)

	assert.Equal(t, "u1", res.Identity.UID)
	assert.Equal(t, "Uma", res.Identity.Name)
	assert.Equal(t, "at-1", res.Token.AccessToken)
	assert.Equal(t, "rt-1", res.Token.RefreshToken)
	assert.True(t, res.Token.Valid(), "token expiry must honor expires_in")
	assert.False(t, res.EmailConfirmationRequired)
}

func TestSignInInvalidCredentials(t *testing.T) {
	t.Parallel()

	gw := newGateway(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized,
			`{"success":false,"error":{"code":"INVALID_CREDENTIALS","message":"bad login"}}`)
	}))

	provider := idp.NewHTTPProvider(gw)
	_, err := provider.SignIn(context.Background(), idp.Credentials{Email: "u@example.com", Password: "nope"})
	assert.ErrorIs(t, err, idp.ErrInvalidCredentials)
}

func TestSignUpEmailConfirmationRequired(t *testing.T) {
	t.Parallel()

	gw := newGateway(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/auth/register", r.URL.Path)
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "Uma", body["name"], "profile hints applied at registration")

		writeJSON(w, http.StatusOK, `{"success":true,"data":{"email_confirmation_required":true}}`)
	}))

	provider := idp.NewHTTPProvider(gw)
	res, err := provider.SignUp(context.Background(),
		idp.Credentials{Email: "u@example.com", Password: "pw"},
		idp.ProfileHints{DisplayName: "Uma"},
	)
	require.NoError(t, err)
	assert.True(t, res.EmailConfirmationRequired)
	assert.Nil(t, res.Token)
}

func TestSignUpDuplicateEmail(t *testing.T) {
	t.Parallel()

	gw := newGateway(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusConflict,
			`{"success":false,"error":{"code":"EMAIL_EXISTS","message":"duplicate"}}`)
	}))

	provider := idp.NewHTTPProvider(gw)
	_, err := provider.SignUp(context.Background(), idp.Credentials{Email: "u@example.com", Password: "pw"}, idp.ProfileHints{})
	assert.ErrorIs(t, err, idp.ErrEmailExists)
}

func TestRefreshRotatesTokenPair(t *testing.T) {
	t.Parallel()

	gw := newGateway(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/auth/refresh", r.URL.Path)
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "rt-old", body["refresh_token"])

		writeJSON(w, http.StatusOK,
			`{"success":true,"data":{"access_token":"at-new","refresh_token":"rt-new"}}`)
	}))

	provider := idp.NewHTTPProvider(gw)
	token, err := provider.Refresh(context.Background(), "rt-old", false)
	require.NoError(t, err)
	assert.Equal(t, "at-new", token.AccessToken)
	assert.Equal(t, "rt-new", token.RefreshToken)
}

func TestRefreshRejected(t *testing.T) {
	t.Parallel()

	gw := newGateway(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized,
			`{"success":false,"error":{"code":"REFRESH_TOKEN_REVOKED","message":"revoked"}}`)
	}))

	provider := idp.NewHTTPProvider(gw)
	_, err := provider.Refresh(context.Background(), "rt-revoked", true)
	assert.ErrorIs(t, err, idp.ErrRefreshRejected)
}

func TestRefreshWithoutToken(t *testing.T) {
	t.Parallel()

	provider := idp.NewHTTPProvider(newGateway(t, http.NotFoundHandler()))
	_, err := provider.Refresh(context.Background(), "", false)
	assert.ErrorIs(t, err, idp.ErrNoRefreshToken)
}

func TestRestoreMintsTokenAndFetchesIdentity(t *testing.T) {
	t.Parallel()

	gw := newGateway(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/auth/refresh":
			writeJSON(w, http.StatusOK,
				`{"success":true,"data":{"access_token":"at-restored","refresh_token":"rt-restored"}}`)
		case "/auth/me":
			assert.Equal(t, "Bearer at-restored", r.Header.Get("Authorization"))
			writeJSON(w, http.StatusOK, `{"success":true,"data":{"user":`+userJSON+`}}`)
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))

	provider := idp.NewHTTPProvider(gw)
	res, err := provider.Restore(context.Background(), "rt-stored")
	require.NoError(t, err)
	assert.Equal(t, "u1", res.Identity.UID)
	assert.Equal(t, "at-restored", res.Token.AccessToken)
}

func TestSignOutUsesExplicitBearer(t *testing.T) {
	t.Parallel()

	gw := newGateway(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/auth/logout", r.URL.Path)
		assert.Equal(t, "Bearer at-current", r.Header.Get("Authorization"))
		writeJSON(w, http.StatusOK, `{"success":true}`)
	}))

	provider := idp.NewHTTPProvider(gw)
	assert.NoError(t, provider.SignOut(context.Background(), "at-current"))
}

func TestPasswordResetFlow(t *testing.T) {
	t.Parallel()

	var paths []string
	gw := newGateway(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		writeJSON(w, http.StatusOK, `{"success":true}`)
	}))

	provider := idp.NewHTTPProvider(gw)
	ctx := context.Background()

	require.NoError(t, provider.ResetPasswordRequest(ctx, "u@example.com"))
	require.NoError(t, provider.VerifyResetToken(ctx, "reset-token"))
	require.NoError(t, provider.ConfirmPasswordReset(ctx, "reset-token", "new-pw"))
	require.NoError(t, provider.ResendVerification(ctx, "u@example.com"))

	assert.Equal(t, []string{
		"/auth/password-reset/request",
		"/auth/password-reset/verify",
		"/auth/password-reset/confirm",
		"/auth/resend-verification",
	}, paths)
}

func TestMalformedResponses(t *testing.T) {
	t.Parallel()

	gw := newGateway(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `{"success":true,"data":{"access_token":"at"}}`)
	}))

	provider := idp.NewHTTPProvider(gw)
	_, err := provider.SignIn(context.Background(), idp.Credentials{Email: "u@example.com", Password: "pw"})
	assert.ErrorIs(t, err, idp.ErrMalformedResponse, "token without user record is malformed")
}
