package access

import (
	"context"
	"sync"
	"time"

	"github.com/goliatone/go-errors"
)

// AuthState is the lifecycle state of the authenticated session.
type AuthState string

const (
	// StateUnauthenticated is the initial state and the state after logout.
	StateUnauthenticated AuthState = "unauthenticated"
	// StateLoading covers restore, login initiation, and the redirect gap.
	StateLoading AuthState = "loading"
	// StateAuthenticated holds a verified Identity and Credential.
	StateAuthenticated AuthState = "authenticated"
	// StateError carries a displayable login-initiation failure.
	StateError AuthState = "error"
)

// Authenticator owns the auth session lifecycle: it reduces init/login/logout
// events, keeps the Session Store synchronized with the external provider,
// and notifies the role layer on every transition. Transitions are strictly
// serialized; reads are safe from any goroutine in any state.
type Authenticator struct {
	opMu sync.Mutex   // serializes whole transitions, including their I/O
	mu   sync.RWMutex // guards the observable snapshot below

	state      AuthState
	identity   Identity
	credential Credential
	lastError  string

	store        Store
	provider     ExternalProvider
	registrar    AccountRegistrar
	roles        RoleRefresher
	activitySink ActivitySink
	logger       Logger
	now          func() time.Time
}

// AuthOption customizes Authenticator construction.
type AuthOption func(*Authenticator)

// WithRegistrar sets the backend registry used to register-or-fetch the
// identity after external login. Without one, IsNewUser stays unclassified.
func WithRegistrar(registrar AccountRegistrar) AuthOption {
	return func(a *Authenticator) {
		a.registrar = registrar
	}
}

// WithRoleRefresher wires the role layer into auth transitions.
func WithRoleRefresher(refresher RoleRefresher) AuthOption {
	return func(a *Authenticator) {
		a.roles = normalizeRoleRefresher(refresher)
	}
}

// WithActivitySink sets the ActivitySink used to publish auth events.
func WithActivitySink(sink ActivitySink) AuthOption {
	return func(a *Authenticator) {
		a.activitySink = normalizeActivitySink(sink)
	}
}

// WithAuthLogger overrides the logger.
func WithAuthLogger(logger Logger) AuthOption {
	return func(a *Authenticator) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// WithAuthClock injects a custom clock (useful for tests).
func WithAuthClock(clock func() time.Time) AuthOption {
	return func(a *Authenticator) {
		if clock != nil {
			a.now = clock
		}
	}
}

// NewAuthenticator creates an Authenticator in the unauthenticated state.
func NewAuthenticator(store Store, provider ExternalProvider, opts ...AuthOption) *Authenticator {
	a := &Authenticator{
		state:        StateUnauthenticated,
		store:        store,
		provider:     provider,
		roles:        noopRoleRefresher{},
		activitySink: noopActivitySink{},
		logger:       defLogger{},
		now:          time.Now,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(a)
		}
	}

	return a
}

// State returns the current auth state.
func (a *Authenticator) State() AuthState {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.state
}

// Identity returns the current identity; zero when not authenticated.
func (a *Authenticator) Identity() Identity {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.identity
}

// Credential returns the active bearer credential. It is non-empty iff the
// state is authenticated.
func (a *Authenticator) Credential() Credential {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.credential
}

// ErrorMessage returns the displayable message carried by the error state,
// empty otherwise.
func (a *Authenticator) ErrorMessage() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.lastError
}

// Init restores the session on startup and on return from the login
// redirect: it reads the Session Store, verifies the session against the
// external provider, and registers newly discovered identities with the
// backend. Any failure or empty lookup lands in unauthenticated with the
// store cleared; Init itself only errors on programmer misuse.
func (a *Authenticator) Init(ctx context.Context) error {
	a.opMu.Lock()
	defer a.opMu.Unlock()
	return a.initLocked(ctx)
}

// CompleteLoginIfPending re-runs the restore logic after the browser returns
// from the provider redirect. No in-memory continuation survives the
// redirect; the persisted store and the provider session are the only
// carriers, so completion is just Init by another name.
func (a *Authenticator) CompleteLoginIfPending(ctx context.Context) error {
	return a.Init(ctx)
}

func (a *Authenticator) initLocked(ctx context.Context) error {
	from := a.setState(StateLoading)

	stored, err := a.store.Restore()
	if err != nil {
		// Restore failures are the expected malformed-payload path.
		a.logger.Debug("init: session restore failed: %v", err)
		stored = nil
	}

	external, err := a.provider.CurrentSession(ctx)
	if err != nil {
		a.logger.Debug("init: external session lookup failed: %v", err)
		external = nil
	}

	if external == nil {
		a.clearSession()
		return nil
	}

	// A restarted session is a restore, not a fresh login; audit consumers
	// rely on the distinction, so exactly one event is emitted per transition.
	if stored != nil {
		a.becomeAuthenticated(ctx, from, stored.Identity, stored.Credential, ActivityEventSessionRestored)
		return nil
	}

	identity := a.register(ctx, external.Identity)
	if err := a.store.Persist(identity, external.Credential); err != nil {
		a.logger.Warn("init: failed to persist session: %v", err)
	}

	a.becomeAuthenticated(ctx, from, identity, external.Credential, ActivityEventLoginSuccess)
	return nil
}

// BeginLogin starts a redirect-based login with the named upstream provider.
// A call while another transition is running is a no-op and returns
// ErrLoginInProgress; a call while already authenticated is a plain no-op.
// The returned redirect suspends the application; on return, Init re-runs.
func (a *Authenticator) BeginLogin(ctx context.Context, providerID string) (*LoginRedirect, error) {
	if !a.opMu.TryLock() {
		a.logger.Debug("begin login: transition already in progress, ignoring")
		return nil, ErrLoginInProgress
	}
	defer a.opMu.Unlock()

	if a.State() == StateAuthenticated {
		a.logger.Debug("begin login: already authenticated, ignoring")
		return nil, nil
	}

	from := a.setState(StateLoading)

	redirect, err := a.provider.BeginLogin(ctx, providerID)
	if err != nil {
		richErr := errors.Wrap(err, ErrProviderUnavailable.Category, ErrProviderUnavailable.Message).
			WithTextCode(ErrProviderUnavailable.TextCode)

		a.mu.Lock()
		a.state = StateError
		a.lastError = richErr.Message
		a.mu.Unlock()

		a.emit(ctx, ActivityEvent{
			EventType: ActivityEventLoginFailure,
			FromState: from,
			ToState:   StateError,
			Metadata:  map[string]any{"provider": providerID, "error": err.Error()},
		})
		return nil, richErr
	}

	a.emit(ctx, ActivityEvent{
		EventType: ActivityEventLoginBegin,
		FromState: from,
		ToState:   StateLoading,
		Metadata:  map[string]any{"provider": providerID},
	})

	// The state stays loading across the redirect; completion is observed by
	// the next Init call.
	return redirect, nil
}

// Logout ends the session. The external session teardown is best-effort:
// local state and the Session Store are cleared even when the provider
// cannot be reached.
func (a *Authenticator) Logout(ctx context.Context) error {
	a.opMu.Lock()
	defer a.opMu.Unlock()

	from := a.setState(StateLoading)
	userID := a.Identity().ID

	if err := a.provider.EndSession(ctx); err != nil {
		a.logger.Warn("logout: failed to end external session: %v", err)
	}

	a.clearSession()

	a.emit(ctx, ActivityEvent{
		EventType: ActivityEventLogout,
		UserID:    userID,
		FromState: from,
		ToState:   StateUnauthenticated,
	})
	return nil
}

// CompleteOnboarding marks the identity as no longer new after the welcome
// flow finishes. The flag is write-once for the session: an unknown
// classification (nil) is never recomputed.
func (a *Authenticator) CompleteOnboarding(ctx context.Context) error {
	a.opMu.Lock()
	defer a.opMu.Unlock()

	a.mu.Lock()
	if a.state != StateAuthenticated || a.identity.IsNewUser == nil || !*a.identity.IsNewUser {
		a.mu.Unlock()
		return nil
	}
	seen := false
	a.identity.IsNewUser = &seen
	identity := a.identity
	credential := a.credential
	a.mu.Unlock()

	if err := a.store.Persist(identity, credential); err != nil {
		a.logger.Warn("complete onboarding: failed to persist session: %v", err)
	}
	return nil
}

// register runs the backend register-or-fetch. A registry outage must not
// block authentication: the externally provided identity is used as-is with
// the new-user classification left unknown.
func (a *Authenticator) register(ctx context.Context, identity Identity) Identity {
	if a.registrar == nil {
		identity.IsNewUser = nil
		return identity
	}

	registered, err := a.registrar.RegisterIfNotExists(ctx, identity)
	if err != nil {
		a.logger.Warn("registration failed, proceeding with provider identity: %v", err)
		identity.IsNewUser = nil
		return identity
	}
	return registered
}

func (a *Authenticator) becomeAuthenticated(ctx context.Context, from AuthState, identity Identity, credential Credential, eventType ActivityEventType) {
	a.mu.Lock()
	a.state = StateAuthenticated
	a.identity = identity
	a.credential = credential
	a.lastError = ""
	a.mu.Unlock()

	if err := a.roles.Refresh(ctx, identity.ID); err != nil {
		// Role resolution fails soft; authorization checks stay fail-closed
		// until a refresh succeeds.
		a.logger.Warn("role refresh failed: %v", err)
	}

	a.emit(ctx, ActivityEvent{
		EventType: eventType,
		UserID:    identity.ID,
		FromState: from,
		ToState:   StateAuthenticated,
	})
}

func (a *Authenticator) clearSession() {
	if err := a.store.Clear(); err != nil {
		a.logger.Warn("failed to clear session store: %v", err)
	}

	a.mu.Lock()
	a.state = StateUnauthenticated
	a.identity = Identity{}
	a.credential = ""
	a.lastError = ""
	a.mu.Unlock()

	a.roles.Reset()
}

// setState moves to the target state and returns the previous one.
func (a *Authenticator) setState(target AuthState) AuthState {
	a.mu.Lock()
	defer a.mu.Unlock()
	from := a.state
	a.state = target
	a.lastError = ""
	return from
}

func (a *Authenticator) emit(ctx context.Context, event ActivityEvent) {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = a.now()
	}

	sink := normalizeActivitySink(a.activitySink)
	if err := sink.Record(ctx, event); err != nil {
		a.logger.Warn("activity sink record error: %v", err)
	}
}
