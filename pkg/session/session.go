package session

import (
	"time"

	"github.com/dmitrymomot/authkit/pkg/idp"
)

// SyncState describes how far the local session has reconciled with the
// backend profile store.
type SyncState string

const (
	// StateUnauthenticated means no identity is present.
	StateUnauthenticated SyncState = "unauthenticated"
	// StateSyncing means an identity is present and the backend profile
	// fetch is in flight.
	StateSyncing SyncState = "syncing"
	// StateSynced means the backend profile has been adopted.
	StateSynced SyncState = "synced"
	// StateSyncFailed means the backend profile could not be fetched; the
	// session stays authenticated with identity-provider data only.
	StateSyncFailed SyncState = "sync_failed"
)

// SyncError is the diagnostic recorded when reconciliation fails.
type SyncError struct {
	Code    string
	Message string
	Time    time.Time
}

// Preferences mirrors the backend's per-user settings.
type Preferences struct {
	DefaultClickTracking bool   `json:"default_click_tracking"`
	DefaultPrivacyLevel  string `json:"default_privacy_level"`
	DataRetentionDays    *int   `json:"data_retention_days"`
}

// Profile is the enriched user record maintained by the backend. While the
// session is in StateSyncing or StateSyncFailed it holds only the fields
// derivable from the identity provider; callers must tolerate the missing
// backend-only fields (counts, preferences).
type Profile struct {
	ID            string       `json:"id"`
	Email         string       `json:"email"`
	Name          string       `json:"name,omitempty"`
	AvatarURL     string       `json:"avatar_url,omitempty"`
	AuthProvider  string       `json:"auth_provider,omitempty"`
	EmailVerified bool         `json:"email_verified"`
	CreatedAt     string       `json:"created_at,omitempty"`
	LastLoginAt   string       `json:"last_login_at,omitempty"`
	LinksCount    int          `json:"links_count"`
	FoldersCount  int          `json:"folders_count"`
	Preferences   *Preferences `json:"preferences,omitempty"`
}

// Stats is the account usage summary from the backend.
type Stats struct {
	TotalLinks     int `json:"total_links"`
	TotalFolders   int `json:"total_folders"`
	TotalTags      int `json:"total_tags"`
	TotalClicks    int `json:"total_clicks"`
	ActiveLinks    int `json:"active_links"`
	PinnedLinks    int `json:"pinned_links"`
	BrokenLinks    int `json:"broken_links"`
	RecentActivity int `json:"recent_activity"`
}

// Session is a snapshot of the authentication state published to subscribers.
// Invariant: Identity is nil if and only if State is StateUnauthenticated.
type Session struct {
	Identity      *idp.Identity
	Profile       *Profile
	State         SyncState
	LastSyncError *SyncError

	// Ready is false until the startup restore has determined whether a
	// previous session can be recovered.
	Ready bool
}

// IsAuthenticated reports whether an identity is present.
func (s Session) IsAuthenticated() bool {
	return s.Identity != nil
}

// Event names published when an external sign-in completes via a full-page
// redirect rather than an in-page flow.
const (
	EventDeferredAuthCompleted = "auth.deferred.completed"
	EventDeferredAuthFailed    = "auth.deferred.failed"
)

// Event is a named signal delivered to event subscribers.
type Event struct {
	Name string
	Err  error
}

// profileFromIdentity builds the provisional profile published before the
// backend confirms.
func profileFromIdentity(identity *idp.Identity) *Profile {
	if identity == nil {
		return nil
	}
	return &Profile{
		ID:            identity.UID,
		Email:         identity.Email,
		Name:          identity.Name,
		AvatarURL:     identity.AvatarURL,
		AuthProvider:  identity.AuthProvider,
		EmailVerified: identity.EmailVerified,
	}
}
