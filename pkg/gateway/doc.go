// Package gateway provides the single HTTP entry point for backend requests.
//
// Every outgoing call attaches the current access credential as a bearer
// header when one is present. Transient network failures are retried per the
// retry policy with widening per-attempt timeouts; an authorization failure
// triggers at most one refresh-and-retry cycle through the wired Refresher,
// escalating to a forced logout when the refresh itself fails.
//
// Basic usage:
//
//	gw := gateway.New(gateway.DefaultConfig(),
//		gateway.WithTokenSource(gateway.TokenSourceFunc(func() (string, bool) {
//			return store.Read(credstore.KindAccess)
//		})),
//	)
//	gw.SetRefresher(coordinator)
//
//	resp, err := gw.Get(ctx, "/auth/me")
package gateway
