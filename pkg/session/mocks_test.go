package session_test

import (
	"context"
	"errors"

	"golang.org/x/oauth2"

	"github.com/dmitrymomot/authkit/pkg/idp"
)

var errNotStubbed = errors.New("not stubbed")

type mockProvider struct {
	signIn             func(ctx context.Context, creds idp.Credentials) (*idp.AuthResult, error)
	signUp             func(ctx context.Context, creds idp.Credentials, hints idp.ProfileHints) (*idp.AuthResult, error)
	signOut            func(ctx context.Context, accessToken string) error
	refresh            func(ctx context.Context, refreshToken string, force bool) (*oauth2.Token, error)
	restore            func(ctx context.Context, refreshToken string) (*idp.AuthResult, error)
	resetRequest       func(ctx context.Context, email string) error
	verifyReset        func(ctx context.Context, token string) error
	confirmReset       func(ctx context.Context, token, newPassword string) error
	resendVerification func(ctx context.Context, email string) error
}

func (m *mockProvider) SignIn(ctx context.Context, creds idp.Credentials) (*idp.AuthResult, error) {
	if m.signIn == nil {
		return nil, errNotStubbed
	}
	return m.signIn(ctx, creds)
}

func (m *mockProvider) SignUp(ctx context.Context, creds idp.Credentials, hints idp.ProfileHints) (*idp.AuthResult, error) {
	if m.signUp == nil {
		return nil, errNotStubbed
	}
	return m.signUp(ctx, creds, hints)
}

func (m *mockProvider) SignOut(ctx context.Context, accessToken string) error {
	if m.signOut == nil {
		return nil
	}
	return m.signOut(ctx, accessToken)
}

func (m *mockProvider) Refresh(ctx context.Context, refreshToken string, force bool) (*oauth2.Token, error) {
	if m.refresh == nil {
		return nil, errNotStubbed
	}
	return m.refresh(ctx, refreshToken, force)
}

func (m *mockProvider) Restore(ctx context.Context, refreshToken string) (*idp.AuthResult, error) {
	if m.restore == nil {
		return nil, errNotStubbed
	}
	return m.restore(ctx, refreshToken)
}

func (m *mockProvider) ResetPasswordRequest(ctx context.Context, email string) error {
	if m.resetRequest == nil {
		return errNotStubbed
	}
	return m.resetRequest(ctx, email)
}

func (m *mockProvider) VerifyResetToken(ctx context.Context, token string) error {
	if m.verifyReset == nil {
		return errNotStubbed
	}
	return m.verifyReset(ctx, token)
}

func (m *mockProvider) ConfirmPasswordReset(ctx context.Context, token, newPassword string) error {
	if m.confirmReset == nil {
		return errNotStubbed
	}
	return m.confirmReset(ctx, token, newPassword)
}

func (m *mockProvider) ResendVerification(ctx context.Context, email string) error {
	if m.resendVerification == nil {
		return errNotStubbed
	}
	return m.resendVerification(ctx, email)
}
