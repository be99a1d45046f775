// Package credstore provides durable key/value persistence for identity
// tokens and the cached user profile.
//
// The Store interface is deliberately fail-soft: when the underlying storage
// is unavailable, reads miss and writes become no-ops. Losing persistence
// must degrade to a session that only lives in memory, never crash the
// application.
//
// Three implementations are provided:
//
//   - MemoryStore: always available, used as the fallback and in tests.
//   - FileStore: JSON file under the user config dir, surviving process
//     restarts, with optional AES-GCM encryption of credential values.
//   - RedisStore: shared credential cache for multi-process clients.
//
// Basic usage:
//
//	store := credstore.NewFileStore(credstore.DefaultPath("myapp"))
//	store.Save(credstore.KindAccess, token.AccessToken)
//	if v, ok := store.Read(credstore.KindRefresh); ok {
//		// restore session
//	}
package credstore
