// Package session coordinates the client-side authentication session.
//
// The Coordinator is the single owner of session state. It signs users in
// and out through an identity provider (pkg/idp), reconciles the thin
// provider identity against the richer backend profile store through the
// request gateway (pkg/gateway), persists credentials in a credential store
// (pkg/credstore), and publishes ordered session snapshots to subscribers.
//
// Sessions move through four states: unauthenticated, syncing (identity
// present, backend profile fetch in flight), synced, and sync_failed (the
// backend could not confirm; the session stays usable with provider data
// only). Subscribers receive every transition in order, with the latest
// snapshot replayed synchronously on subscription.
//
// Background continuations are epoch-guarded: signing out, or signing in as
// a different user, invalidates the results of any fetch or refresh still in
// flight from the previous session.
package session
