package credstore

// Kind identifies the logical purpose of a stored credential.
type Kind string

const (
	// KindAccess is the short-lived bearer token attached to API requests.
	KindAccess Kind = "access"
	// KindRefresh is the long-lived token used to mint new access tokens.
	KindRefresh Kind = "refresh"
	// KindRemember records the user's remember-me preference.
	KindRemember Kind = "remember"
)

// Store persists credentials and the cached profile record across process
// restarts. Implementations must fail soft: when the underlying storage is
// unavailable, Read misses, Save and Clear are no-ops, and no method panics
// or returns an error. Loss of persistence degrades to session-only auth.
//
// All methods are synchronous and safe for concurrent use.
type Store interface {
	// Save stores a credential value under the given kind, overwriting any
	// previous value.
	Save(kind Kind, value string)

	// Read returns the credential stored under kind, or ("", false) when
	// absent or when storage is unavailable.
	Read(kind Kind) (string, bool)

	// SaveProfile caches the serialized backend profile record.
	SaveProfile(raw []byte)

	// Profile returns the cached profile record, or (nil, false) when absent.
	Profile() ([]byte, bool)

	// HasProfile reports whether a cached profile record is present.
	HasProfile() bool

	// Clear removes all credentials and the cached profile. From the caller's
	// perspective the removal is atomic: no Read observes a partially-cleared
	// state. Clear is a no-op when storage is already empty.
	Clear()
}
