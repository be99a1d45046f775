// Package authkit assembles a client-side authentication stack: a session
// coordinator backed by an external identity provider, a request gateway
// that injects credentials and recovers from expiry, a persistent credential
// store, and a warmup pinger for backends that scale to zero.
//
// The layers live in pkg/ and can be composed by hand; this package wires
// them in the conventional arrangement:
//
//	client, err := authkit.NewFromEnv()
//	if err != nil {
//		return err
//	}
//	defer client.Close()
//
//	client.Restore(ctx)
//	unsub := client.Session().Subscribe(func(s session.Session) {
//		// route on s.State
//	})
//	defer unsub()
package authkit
