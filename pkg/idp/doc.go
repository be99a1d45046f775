// Package idp abstracts the external identity provider behind the session
// coordinator.
//
// The Provider interface covers sign-in, sign-up, token refresh, session
// restore, and the password-reset flow. Tokens are represented as
// golang.org/x/oauth2 tokens so that expiry handling follows the standard
// conventions.
//
// HTTPProvider is the bundled implementation for backends that act as their
// own identity provider through /auth endpoints. External providers (OAuth
// redirect flows, hosted identity services) plug in behind the same
// interface, with redirect outcomes delivered to the coordinator as
// DeferredResult values.
package idp
