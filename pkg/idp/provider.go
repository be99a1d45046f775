package idp

import (
	"context"

	"golang.org/x/oauth2"
)

// Identity is the authenticated principal as known by the identity provider.
// It carries only provider-level fields; the enriched backend profile is
// fetched separately through the request gateway.
type Identity struct {
	UID           string `json:"id"`
	Email         string `json:"email"`
	Name          string `json:"name,omitempty"`
	AvatarURL     string `json:"avatar_url,omitempty"`
	AuthProvider  string `json:"auth_provider,omitempty"`
	EmailVerified bool   `json:"email_verified"`
}

// Credentials are the user-supplied sign-in inputs.
type Credentials struct {
	Email    string
	Password string
}

// ProfileHints are optional attributes applied at registration time.
type ProfileHints struct {
	DisplayName string
}

// AuthResult is the outcome of a successful provider operation.
type AuthResult struct {
	Identity *Identity
	Token    *oauth2.Token

	// EmailConfirmationRequired is set when the provider created the account
	// but withholds tokens until the email address is confirmed.
	EmailConfirmationRequired bool
}

// DeferredResult is the outcome of an external sign-in that completed via a
// full-page redirect rather than an in-page flow. The hosting application
// feeds it to the session coordinator after the page reload.
type DeferredResult struct {
	Result *AuthResult
	Err    error
}

// Provider abstracts the external identity provider behind the session
// coordinator. Implementations authenticate end users and mint renewable
// tokens; they hold no session state of their own.
type Provider interface {
	// SignIn authenticates with email/password credentials.
	SignIn(ctx context.Context, creds Credentials) (*AuthResult, error)

	// SignUp creates a new account, optionally applying profile hints.
	SignUp(ctx context.Context, creds Credentials, hints ProfileHints) (*AuthResult, error)

	// SignOut invalidates the given access credential remotely. Callers
	// treat failures as best-effort; local sign-out proceeds regardless.
	SignOut(ctx context.Context, accessToken string) error

	// Refresh mints a fresh token pair from a refresh token. When force is
	// set, implementations must go to the provider even if a cached token
	// still looks valid.
	Refresh(ctx context.Context, refreshToken string, force bool) (*oauth2.Token, error)

	// Restore recovers a session from a stored refresh token at startup.
	Restore(ctx context.Context, refreshToken string) (*AuthResult, error)

	// ResetPasswordRequest starts the password reset flow for an email.
	ResetPasswordRequest(ctx context.Context, email string) error

	// VerifyResetToken checks a password reset token without consuming it.
	VerifyResetToken(ctx context.Context, token string) error

	// ConfirmPasswordReset consumes a reset token and sets a new password.
	ConfirmPasswordReset(ctx context.Context, token, newPassword string) error

	// ResendVerification re-sends the address confirmation email.
	ResendVerification(ctx context.Context, email string) error
}
