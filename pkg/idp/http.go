package idp

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/oauth2"

	"github.com/dmitrymomot/authkit/pkg/gateway"
	"github.com/dmitrymomot/authkit/pkg/logger"
)

// HTTPProvider implements Provider against the backend's own /auth endpoints,
// for deployments where the application backend doubles as the identity
// provider. All calls go through the request gateway with auth handling
// disabled, so a 401 during sign-in can never recurse into a refresh cycle.
type HTTPProvider struct {
	gw       *gateway.Client
	log      *slog.Logger
	tokenTTL time.Duration
}

// HTTPOption configures an HTTPProvider.
type HTTPOption func(*HTTPProvider)

// WithLogger sets the logger for provider diagnostics.
func WithLogger(log *slog.Logger) HTTPOption {
	return func(p *HTTPProvider) {
		if log != nil {
			p.log = log
		}
	}
}

// WithTokenTTL sets the access token lifetime assumed when the backend does
// not report one. Defaults to 55 minutes.
func WithTokenTTL(ttl time.Duration) HTTPOption {
	return func(p *HTTPProvider) {
		if ttl > 0 {
			p.tokenTTL = ttl
		}
	}
}

// NewHTTPProvider creates a provider speaking the backend /auth contract.
func NewHTTPProvider(gw *gateway.Client, opts ...HTTPOption) *HTTPProvider {
	p := &HTTPProvider{
		gw:       gw,
		log:      logger.Discard(),
		tokenTTL: 55 * time.Minute,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// tokenPayload is the wire shape shared by login, register, and refresh.
type tokenPayload struct {
	AccessToken               string          `json:"access_token"`
	RefreshToken              string          `json:"refresh_token"`
	ExpiresIn                 int64           `json:"expires_in,omitempty"`
	User                      json.RawMessage `json:"user,omitempty"`
	EmailConfirmationRequired bool            `json:"email_confirmation_required,omitempty"`
}

func (p *HTTPProvider) SignIn(ctx context.Context, creds Credentials) (*AuthResult, error) {
	resp, err := p.gw.Post(ctx, "/auth/login", map[string]string{
		"email":    creds.Email,
		"password": creds.Password,
	}, gateway.WithoutAuth())
	if err != nil {
		return nil, p.mapError(err, ErrInvalidCredentials)
	}
	return p.authResult(resp)
}

func (p *HTTPProvider) SignUp(ctx context.Context, creds Credentials, hints ProfileHints) (*AuthResult, error) {
	body := map[string]string{
		"email":    creds.Email,
		"password": creds.Password,
	}
	if hints.DisplayName != "" {
		body["name"] = hints.DisplayName
	}

	resp, err := p.gw.Post(ctx, "/auth/register", body, gateway.WithoutAuth())
	if err != nil {
		return nil, p.mapError(err, ErrEmailExists)
	}
	return p.authResult(resp)
}

func (p *HTTPProvider) SignOut(ctx context.Context, accessToken string) error {
	_, err := p.gw.Post(ctx, "/auth/logout", nil,
		gateway.WithoutAuth(),
		gateway.WithBearer(accessToken),
		gateway.WithoutRetry(),
	)
	return err
}

func (p *HTTPProvider) Refresh(ctx context.Context, refreshToken string, force bool) (*oauth2.Token, error) {
	if refreshToken == "" {
		return nil, ErrNoRefreshToken
	}
	// The backend rotates the pair on every call, so force and non-force
	// refreshes are the same remote operation here.
	_ = force

	resp, err := p.gw.Post(ctx, "/auth/refresh", map[string]string{
		"refresh_token": refreshToken,
	}, gateway.WithoutAuth())
	if err != nil {
		return nil, p.mapError(err, ErrRefreshRejected)
	}

	var payload tokenPayload
	if err := resp.Decode(&payload); err != nil {
		return nil, errors.Join(ErrMalformedResponse, err)
	}
	return p.token(payload), nil
}

func (p *HTTPProvider) Restore(ctx context.Context, refreshToken string) (*AuthResult, error) {
	token, err := p.Refresh(ctx, refreshToken, false)
	if err != nil {
		return nil, err
	}

	// The refresh response carries no user record; fetch the identity with
	// the freshly minted access token.
	resp, err := p.gw.Get(ctx, "/auth/me",
		gateway.WithoutAuth(),
		gateway.WithBearer(token.AccessToken),
	)
	if err != nil {
		return nil, p.mapError(err, ErrRefreshRejected)
	}

	var payload struct {
		User json.RawMessage `json:"user"`
	}
	if err := resp.Decode(&payload); err != nil {
		return nil, errors.Join(ErrMalformedResponse, err)
	}

	identity, err := decodeIdentity(payload.User)
	if err != nil {
		return nil, err
	}
	return &AuthResult{Identity: identity, Token: token}, nil
}

func (p *HTTPProvider) ResetPasswordRequest(ctx context.Context, email string) error {
	_, err := p.gw.Post(ctx, "/auth/password-reset/request", map[string]string{
		"email": email,
	}, gateway.WithoutAuth())
	return err
}

func (p *HTTPProvider) VerifyResetToken(ctx context.Context, token string) error {
	_, err := p.gw.Post(ctx, "/auth/password-reset/verify", map[string]string{
		"token": token,
	}, gateway.WithoutAuth())
	return err
}

func (p *HTTPProvider) ConfirmPasswordReset(ctx context.Context, token, newPassword string) error {
	_, err := p.gw.Post(ctx, "/auth/password-reset/confirm", map[string]string{
		"token":        token,
		"new_password": newPassword,
	}, gateway.WithoutAuth())
	return err
}

func (p *HTTPProvider) ResendVerification(ctx context.Context, email string) error {
	_, err := p.gw.Post(ctx, "/auth/resend-verification", map[string]string{
		"email": email,
	}, gateway.WithoutAuth())
	return err
}

// authResult decodes the common login/register response shape.
func (p *HTTPProvider) authResult(resp *gateway.Response) (*AuthResult, error) {
	var payload tokenPayload
	if err := resp.Decode(&payload); err != nil {
		return nil, errors.Join(ErrMalformedResponse, err)
	}

	if payload.EmailConfirmationRequired {
		return &AuthResult{EmailConfirmationRequired: true}, nil
	}

	if payload.AccessToken == "" {
		return nil, ErrMalformedResponse
	}

	identity, err := decodeIdentity(payload.User)
	if err != nil {
		return nil, err
	}

	return &AuthResult{
		Identity: identity,
		Token:    p.token(payload),
	}, nil
}

func (p *HTTPProvider) token(payload tokenPayload) *oauth2.Token {
	ttl := p.tokenTTL
	if payload.ExpiresIn > 0 {
		ttl = time.Duration(payload.ExpiresIn) * time.Second
	}
	return &oauth2.Token{
		AccessToken:  payload.AccessToken,
		RefreshToken: payload.RefreshToken,
		TokenType:    "Bearer",
		Expiry:       time.Now().Add(ttl),
	}
}

// mapError converts gateway auth failures into provider sentinels while
// passing transient and unexpected errors through unchanged.
func (p *HTTPProvider) mapError(err error, authSentinel error) error {
	var apiErr *gateway.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.Status {
		case http.StatusUnauthorized, http.StatusForbidden:
			p.log.Debug("idp: authentication rejected", slog.String("code", apiErr.Code))
			return errors.Join(authSentinel, err)
		case http.StatusConflict:
			return errors.Join(ErrEmailExists, err)
		}
	}
	return err
}

func decodeIdentity(raw json.RawMessage) (*Identity, error) {
	if len(raw) == 0 {
		return nil, ErrMalformedResponse
	}
	var identity Identity
	if err := json.Unmarshal(raw, &identity); err != nil {
		return nil, errors.Join(ErrMalformedResponse, err)
	}
	if identity.UID == "" {
		return nil, ErrMalformedResponse
	}
	return &identity, nil
}
