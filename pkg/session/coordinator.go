package session

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/dmitrymomot/authkit/pkg/credstore"
	"github.com/dmitrymomot/authkit/pkg/gateway"
	"github.com/dmitrymomot/authkit/pkg/idp"
	"github.com/dmitrymomot/authkit/pkg/retry"
)

// Pinger is the warmup probe the coordinator drives across the session
// lifecycle. Satisfied by *warmup.Pinger.
type Pinger interface {
	Start()
	Stop()
	Confirmed() bool
}

// Coordinator owns the authentication session: it holds the single mutable
// session value, reconciles it against the backend profile store, refreshes
// credentials, and fans out ordered snapshots to subscribers.
//
// All exported methods are safe for concurrent use. Continuations spawned by
// sign-in, restore, and refresh carry the session epoch they were started
// under; their results are discarded once a sign-out or a newer sign-in has
// moved the epoch on.
type Coordinator struct {
	store    credstore.Store
	gw       *gateway.Client
	provider idp.Provider
	pinger   Pinger
	log      *slog.Logger
	cfg      Config

	mu          sync.Mutex
	cur         Session
	epoch       uint64
	epochCtx    context.Context
	epochCancel context.CancelFunc
	closed      bool

	refreshGroup singleflight.Group

	states *relay[Session]
	events *relay[Event]
}

// New builds a Coordinator. The gateway should be pointed back at the
// coordinator afterwards via gw.SetRefresher so that request-path 401
// recovery and explicit refreshes share the same single-flight group.
func New(store credstore.Store, gw *gateway.Client, provider idp.Provider, opts ...Option) *Coordinator {
	c := &Coordinator{
		store:    store,
		gw:       gw,
		provider: provider,
		log:      slog.Default(),
		cfg:      DefaultConfig(),
		states:   newRelay[Session](),
		events:   newRelay[Event](),
	}
	for _, opt := range opts {
		opt(c)
	}

	ctx, cancel := context.WithCancel(context.Background())
	c.epochCtx = ctx
	c.epochCancel = cancel
	c.cur = Session{State: StateUnauthenticated}
	c.states.publish(c.cur)
	return c
}

// Current returns the latest session snapshot.
func (c *Coordinator) Current() Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cur
}

// Subscribe registers a session listener. The latest snapshot is replayed
// synchronously before Subscribe returns; subsequent snapshots arrive in
// transition order on a dispatcher goroutine. The returned function
// unsubscribes and is safe to call from within the listener.
func (c *Coordinator) Subscribe(fn func(Session)) func() {
	return c.states.subscribe(fn)
}

// SubscribeEvents registers a listener for out-of-band session events such as
// deferred sign-in completion.
func (c *Coordinator) SubscribeEvents(fn func(Event)) func() {
	return c.events.subscribe(fn)
}

// Login authenticates with email/password and, on success, adopts the new
// session. The returned error is the provider error verbatim; the session is
// untouched on failure.
func (c *Coordinator) Login(ctx context.Context, creds idp.Credentials) error {
	res, err := c.provider.SignIn(ctx, creds)
	if err != nil {
		return err
	}
	c.adopt(res)
	return nil
}

// Register creates an account. When the provider withholds tokens until the
// email address is confirmed, Register returns ErrEmailConfirmationRequired
// and the session stays unauthenticated; otherwise the new session is adopted
// immediately.
func (c *Coordinator) Register(ctx context.Context, creds idp.Credentials, hints idp.ProfileHints) error {
	res, err := c.provider.SignUp(ctx, creds, hints)
	if err != nil {
		return err
	}
	if res.EmailConfirmationRequired || res.Token == nil {
		return ErrEmailConfirmationRequired
	}
	c.adopt(res)
	return nil
}

// CompleteDeferred feeds in the outcome of an external sign-in that finished
// via a full-page redirect. Success adopts the session and emits
// EventDeferredAuthCompleted; failure leaves the session untouched and emits
// EventDeferredAuthFailed carrying the error.
func (c *Coordinator) CompleteDeferred(res idp.DeferredResult) {
	if res.Err != nil || res.Result == nil {
		err := res.Err
		if err == nil {
			err = idp.ErrMalformedResponse
		}
		c.log.Warn("deferred sign-in failed", slog.Any("error", err))
		c.events.publish(Event{Name: EventDeferredAuthFailed, Err: err})
		return
	}
	c.adopt(res.Result)
	c.events.publish(Event{Name: EventDeferredAuthCompleted})
}

// SetRemember records the user's keep-me-signed-in choice. When cleared,
// Restore discards stored credentials instead of recovering the session.
func (c *Coordinator) SetRemember(v bool) {
	c.store.Save(credstore.KindRemember, strconv.FormatBool(v))
}

// Remembered reports the keep-me-signed-in choice; unset defaults to true.
func (c *Coordinator) Remembered() bool {
	v, ok := c.store.Read(credstore.KindRemember)
	return !ok || v == "true"
}

// Restore attempts to recover the previous session from stored credentials.
// It is the startup entry point: once it returns, published snapshots carry
// Ready=true and the hosting application can route on authentication state.
//
// A missing refresh token, or a cleared remember preference, resolves to
// unauthenticated. A refresh token the provider rejects clears stored
// credentials. A transient failure (backend unreachable) also resolves to
// unauthenticated but leaves the stored credentials intact for the next
// start.
func (c *Coordinator) Restore(ctx context.Context) {
	epoch := c.currentEpoch()

	if !c.Remembered() {
		c.clearIfCurrent(epoch)
		c.markReady()
		return
	}

	refreshToken, ok := c.store.Read(credstore.KindRefresh)
	if !ok {
		c.markReady()
		return
	}

	res, err := c.provider.Restore(ctx, refreshToken)
	if err != nil {
		if retry.IsTransient(err) {
			c.log.Warn("session restore unreachable, keeping stored credentials", slog.Any("error", err))
			c.markReady()
			return
		}
		c.log.Info("stored credentials rejected, clearing", slog.Any("error", err))
		c.clearIfCurrent(epoch)
		c.markReady()
		return
	}
	// A sign-in or sign-out that landed during the provider round trip wins
	// over the restored session.
	c.adoptIfCurrent(res, epoch)
}

// Logout tears the session down unconditionally. Local state is cleared
// first; the remote sign-out runs best-effort in the background and its
// failure is only logged. Logout cannot fail.
func (c *Coordinator) Logout() {
	accessToken, _ := c.store.Read(credstore.KindAccess)
	c.forceLogout()

	if accessToken == "" {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), c.cfg.SignOutTimeout)
		defer cancel()
		if err := c.provider.SignOut(ctx, accessToken); err != nil {
			c.log.Debug("remote sign-out failed", slog.Any("error", err))
		}
	}()
}

// Refresh exchanges the stored refresh token for fresh credentials.
// Concurrent callers collapse into one provider call. A rejected refresh
// token forces a sign-out; transient failures leave the session as is so the
// periodic refresher or the next request can retry.
func (c *Coordinator) Refresh(ctx context.Context, force bool) error {
	_, err := c.refresh(ctx, force)
	return err
}

// RefreshAccess implements gateway.Refresher: the request path calls it when
// a request bounces with 401.
func (c *Coordinator) RefreshAccess(ctx context.Context) (string, error) {
	return c.refresh(ctx, false)
}

func (c *Coordinator) refresh(ctx context.Context, force bool) (string, error) {
	v, err, _ := c.refreshGroup.Do("refresh", func() (any, error) {
		epoch := c.currentEpoch()

		refreshToken, ok := c.store.Read(credstore.KindRefresh)
		if !ok {
			return "", idp.ErrNoRefreshToken
		}

		token, err := c.provider.Refresh(ctx, refreshToken, force)
		if err != nil {
			if retry.IsTransient(err) {
				c.log.Warn("credential refresh unreachable", slog.Any("error", err))
				return "", err
			}
			c.log.Info("credential refresh rejected, signing out", slog.Any("error", err))
			c.forceLogout()
			return "", err
		}

		// A sign-out that landed while the refresh was in flight owns the
		// store now; persisting the late tokens would resurrect the session
		// on the next restore.
		c.mu.Lock()
		if c.closed || epoch != c.epoch {
			c.mu.Unlock()
			return "", ErrNotAuthenticated
		}
		c.saveToken(token.AccessToken, token.RefreshToken)

		// A session stuck in StateSyncFailed gets another reconciliation run
		// now that credentials are known good.
		if c.cur.State == StateSyncFailed {
			c.cur.State = StateSyncing
			c.states.publish(c.cur)
			go c.reconcile(c.epochCtx, c.epoch)
		}
		c.mu.Unlock()

		return token.AccessToken, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// RetrySync re-runs backend reconciliation for a session in StateSyncFailed.
// It is a no-op in any other state.
func (c *Coordinator) RetrySync() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || c.cur.State != StateSyncFailed {
		return
	}
	c.cur.State = StateSyncing
	c.cur.LastSyncError = nil
	c.states.publish(c.cur)
	go c.reconcile(c.epochCtx, c.epoch)
}

// ProfileUpdate carries the mutable profile fields for UpdateProfile. Nil
// fields are left unchanged by the backend.
type ProfileUpdate struct {
	Name        *string      `json:"name,omitempty"`
	Preferences *Preferences `json:"preferences,omitempty"`
}

// UpdateProfile pushes profile changes to the backend and adopts the
// returned record. The adoption is epoch-guarded: if the user signed out (or
// a different user signed in) while the request was in flight, the result is
// discarded.
func (c *Coordinator) UpdateProfile(ctx context.Context, changes ProfileUpdate) (*Profile, error) {
	c.mu.Lock()
	if !c.cur.IsAuthenticated() {
		c.mu.Unlock()
		return nil, ErrNotAuthenticated
	}
	epoch := c.epoch
	c.mu.Unlock()

	resp, err := c.gw.Put(ctx, "/auth/me", changes)
	if err != nil {
		return nil, err
	}
	profile, raw, err := decodeProfile(resp)
	if err != nil {
		return nil, err
	}

	c.applyIfCurrent(epoch, func(s *Session) {
		s.Profile = profile
		s.State = StateSynced
		s.LastSyncError = nil
		c.store.SaveProfile(raw)
	})
	return profile, nil
}

// Stats fetches the account usage summary.
func (c *Coordinator) Stats(ctx context.Context) (*Stats, error) {
	if !c.Current().IsAuthenticated() {
		return nil, ErrNotAuthenticated
	}
	resp, err := c.gw.Get(ctx, "/auth/stats")
	if err != nil {
		return nil, err
	}
	var payload struct {
		Stats Stats `json:"stats"`
	}
	if err := resp.Decode(&payload); err != nil {
		return nil, err
	}
	return &payload.Stats, nil
}

// DeleteAccount removes the account on the backend and signs out locally.
func (c *Coordinator) DeleteAccount(ctx context.Context, password string) error {
	if !c.Current().IsAuthenticated() {
		return ErrNotAuthenticated
	}
	_, err := c.gw.Post(ctx, "/auth/delete-account", map[string]string{
		"password": password,
	})
	if err != nil {
		return err
	}
	c.forceLogout()
	return nil
}

// ResetPasswordRequest asks the provider to send a password reset email.
func (c *Coordinator) ResetPasswordRequest(ctx context.Context, email string) error {
	return c.provider.ResetPasswordRequest(ctx, email)
}

// VerifyResetToken checks a password reset token without consuming it.
func (c *Coordinator) VerifyResetToken(ctx context.Context, token string) error {
	return c.provider.VerifyResetToken(ctx, token)
}

// ConfirmPasswordReset consumes a reset token and sets the new password.
func (c *Coordinator) ConfirmPasswordReset(ctx context.Context, token, newPassword string) error {
	return c.provider.ConfirmPasswordReset(ctx, token, newPassword)
}

// ResendVerification re-sends the email confirmation message for the
// signed-in user.
func (c *Coordinator) ResendVerification(ctx context.Context) error {
	cur := c.Current()
	if !cur.IsAuthenticated() {
		return ErrNotAuthenticated
	}
	return c.provider.ResendVerification(ctx, cur.Identity.Email)
}

// Close stops background work and releases subscribers. The coordinator is
// unusable afterwards.
func (c *Coordinator) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.epoch++
	c.epochCancel()
	c.mu.Unlock()

	if c.pinger != nil {
		c.pinger.Stop()
	}
	c.states.close()
	c.events.close()
}

// adopt installs the session produced by a successful provider operation:
// it bumps the epoch (cancelling continuations of the previous session),
// persists credentials, publishes the provisional snapshot, and spawns the
// reconciliation and periodic refresh loops.
func (c *Coordinator) adopt(res *idp.AuthResult) {
	c.install(res, nil)
}

// adoptIfCurrent installs only while epoch still matches, so a session
// produced by a stale round trip cannot override a newer sign-out or
// sign-in.
func (c *Coordinator) adoptIfCurrent(res *idp.AuthResult, epoch uint64) bool {
	return c.install(res, &epoch)
}

func (c *Coordinator) install(res *idp.AuthResult, expect *uint64) bool {
	c.mu.Lock()
	if c.closed || (expect != nil && *expect != c.epoch) {
		c.mu.Unlock()
		return false
	}
	c.epoch++
	epoch := c.epoch
	c.epochCancel()
	ctx, cancel := context.WithCancel(context.Background())
	c.epochCtx = ctx
	c.epochCancel = cancel

	c.cur = Session{
		Identity: res.Identity,
		Profile:  c.provisionalProfile(res.Identity),
		State:    StateSyncing,
		Ready:    true,
	}
	c.states.publish(c.cur)
	if res.Token != nil {
		c.saveToken(res.Token.AccessToken, res.Token.RefreshToken)
	}
	c.mu.Unlock()

	if c.pinger != nil {
		c.pinger.Start()
	}

	go c.reconcile(ctx, epoch)
	go c.periodicRefresh(ctx)
	return true
}

// provisionalProfile prefers the cached backend profile over the thin
// identity projection, as long as the cache belongs to the same user.
func (c *Coordinator) provisionalProfile(identity *idp.Identity) *Profile {
	if raw, ok := c.store.Profile(); ok {
		var cached Profile
		if err := json.Unmarshal(raw, &cached); err == nil && identity != nil && cached.ID == identity.UID {
			return &cached
		}
	}
	return profileFromIdentity(identity)
}

// reconcile fetches the authoritative backend profile with widening timeouts
// until it succeeds or the attempt budget is spent. Results are applied only
// while the starting epoch is still current.
func (c *Coordinator) reconcile(ctx context.Context, epoch uint64) {
	var lastErr error
	for attempt := 1; attempt <= c.cfg.SyncAttempts; attempt++ {
		if ctx.Err() != nil {
			return
		}

		profile, raw, err := c.fetchProfile(ctx, attempt)
		if err == nil {
			c.applyIfCurrent(epoch, func(s *Session) {
				s.Profile = profile
				s.State = StateSynced
				s.LastSyncError = nil
				c.store.SaveProfile(raw)
			})
			return
		}
		lastErr = err
		c.log.Debug("profile sync attempt failed",
			slog.Int("attempt", attempt),
			slog.Any("error", err),
		)

		// A rejected session surfaces through the gateway's expiry handler;
		// stop retrying here.
		if errors.Is(err, gateway.ErrSessionExpired) {
			return
		}
		if attempt < c.cfg.SyncAttempts {
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Duration(attempt) * time.Second):
			}
		}
	}

	c.applyIfCurrent(epoch, func(s *Session) {
		s.State = StateSyncFailed
		s.LastSyncError = newSyncError(lastErr)
	})
}

// fetchProfile performs one reconciliation attempt. Retrying is owned by the
// reconcile loop, so gateway-level retry is disabled; the 401 refresh path
// stays active.
func (c *Coordinator) fetchProfile(ctx context.Context, attempt int) (*Profile, json.RawMessage, error) {
	resp, err := c.gw.Get(ctx, "/auth/me",
		gateway.WithoutRetry(),
		gateway.WithRequestTimeout(c.syncTimeout(attempt)),
	)
	if err != nil {
		return nil, nil, err
	}
	return decodeProfile(resp)
}

func decodeProfile(resp *gateway.Response) (*Profile, json.RawMessage, error) {
	var payload struct {
		User json.RawMessage `json:"user"`
	}
	if err := resp.Decode(&payload); err != nil {
		return nil, nil, err
	}
	var profile Profile
	if err := json.Unmarshal(payload.User, &profile); err != nil {
		return nil, nil, errors.Join(gateway.ErrInvalidResponse, err)
	}
	return &profile, payload.User, nil
}

// syncTimeout widens per attempt; while the warmup pinger has not confirmed
// backend liveness the cold-start base applies instead.
func (c *Coordinator) syncTimeout(attempt int) time.Duration {
	base := c.cfg.SyncBaseTimeout
	if c.pinger != nil && !c.pinger.Confirmed() {
		base = c.cfg.SyncColdTimeout
	}
	return base + time.Duration(attempt-1)*c.cfg.SyncTimeoutStep
}

// periodicRefresh renews credentials ahead of expiry for the lifetime of one
// epoch.
func (c *Coordinator) periodicRefresh(ctx context.Context) {
	ticker := time.NewTicker(c.cfg.RefreshInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := c.refresh(ctx, false); err != nil && ctx.Err() == nil {
				c.log.Warn("periodic credential refresh failed", slog.Any("error", err))
			}
		}
	}
}

// applyIfCurrent mutates and publishes the session only when epoch still
// matches; stale continuations fall through without effect.
func (c *Coordinator) applyIfCurrent(epoch uint64, mutate func(*Session)) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || epoch != c.epoch {
		return false
	}
	mutate(&c.cur)
	c.states.publish(c.cur)
	return true
}

// forceLogout transitions to unauthenticated and wipes local credentials. It
// is the single teardown path shared by Logout, rejected refreshes, and
// account deletion.
func (c *Coordinator) forceLogout() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	if c.cur.State == StateUnauthenticated && c.cur.Ready {
		// Already signed out; keep the credential clear idempotent without
		// bumping the epoch or publishing a duplicate snapshot.
		c.store.Clear()
		c.mu.Unlock()
		return
	}
	c.epoch++
	c.epochCancel()
	ctx, cancel := context.WithCancel(context.Background())
	c.epochCtx = ctx
	c.epochCancel = cancel
	c.cur = Session{State: StateUnauthenticated, Ready: true}
	c.states.publish(c.cur)
	c.store.Clear()
	c.mu.Unlock()

	if c.pinger != nil {
		c.pinger.Stop()
	}
}

// clearIfCurrent wipes stored credentials only while epoch still matches.
func (c *Coordinator) clearIfCurrent(epoch uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || epoch != c.epoch {
		return
	}
	c.store.Clear()
}

func (c *Coordinator) currentEpoch() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.epoch
}

// markReady flags the startup restore as settled without changing
// authentication state.
func (c *Coordinator) markReady() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || c.cur.Ready {
		return
	}
	c.cur.Ready = true
	c.states.publish(c.cur)
}

func (c *Coordinator) saveToken(access, refresh string) {
	if access != "" {
		c.store.Save(credstore.KindAccess, access)
	}
	if refresh != "" {
		c.store.Save(credstore.KindRefresh, refresh)
	}
}

func newSyncError(err error) *SyncError {
	se := &SyncError{Time: time.Now(), Message: "profile sync failed"}
	if err == nil {
		return se
	}
	se.Message = err.Error()
	var apiErr *gateway.APIError
	if errors.As(err, &apiErr) {
		se.Code = apiErr.Code
		se.Message = apiErr.Message
	}
	return se
}
