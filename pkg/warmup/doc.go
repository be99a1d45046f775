// Package warmup provides a background keep-alive prober that reduces
// first-request latency against a backend prone to cold starts.
//
// The pinger has an independent lifecycle tied to session presence: it is
// started when a session becomes authenticated in a production deployment
// and stopped on logout. Probe failures are swallowed; the pinger never
// affects session state.
//
// Basic usage:
//
//	pinger := warmup.New(func(ctx context.Context) error {
//		return gw.Health(ctx)
//	})
//	pinger.Start()
//	defer pinger.Stop()
package warmup
