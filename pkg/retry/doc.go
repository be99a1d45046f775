// Package retry provides a deterministic retry policy for network calls
// against a backend prone to cold starts.
//
// A Policy answers two questions: should a failed attempt be retried, and how
// long to wait before the next attempt. Delays grow exponentially with no
// jitter so that tests can assert exact schedules, and each retry widens the
// per-attempt timeout budget to give a cold backend time to come up.
//
// Only transient failures are retried: timeouts, connection resets, truncated
// responses, and 5xx statuses. Application-level 4xx errors are terminal.
//
// Basic usage:
//
//	policy := retry.DefaultPolicy()
//	for attempt := 1; ; attempt++ {
//		err := callBackend(ctx, policy.TimeoutFor(attempt))
//		if err == nil || !policy.ShouldRetry(attempt, err) {
//			return err
//		}
//		time.Sleep(policy.DelayFor(attempt))
//	}
package retry
