// Package permission maintains the caller's organization memberships and
// system role, and exposes the hierarchy-aware predicates the access guard
// evaluates.
package permission

import (
	"context"
	"sync"

	"github.com/goliatone/go-access"
	"github.com/goliatone/go-errors"
)

// API is the backend surface role resolution depends on. The registry
// package provides the production implementation.
type API interface {
	// UserOrganizations lists the caller's memberships across organizations.
	UserOrganizations(ctx context.Context, userID string) ([]access.Membership, error)

	// UserSystemRole returns the caller's platform-wide role.
	UserSystemRole(ctx context.Context, userID string) (access.SystemRole, error)
}

// Resolver caches the membership set and system role for the authenticated
// identity. The cache is replaced wholesale on every successful refresh and
// retained through failed ones; before the first success every predicate
// answers false. Reads are safe from any goroutine at any time.
type Resolver struct {
	mu sync.RWMutex

	memberships  map[string]access.Membership // keyed by organization id
	systemRole   access.SystemRole
	currentOrgID string
	loaded       bool

	// generation implements last-writer-wins by trigger order: responses to
	// superseded refreshes are discarded on arrival.
	generation uint64

	api    API
	logger access.Logger
	sink   access.ActivitySink
}

// ResolverOption customizes Resolver construction.
type ResolverOption func(*Resolver)

// WithLogger overrides the logger.
func WithLogger(logger access.Logger) ResolverOption {
	return func(r *Resolver) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithActivitySink sets the sink notified on refresh and reset.
func WithActivitySink(sink access.ActivitySink) ResolverOption {
	return func(r *Resolver) {
		if sink != nil {
			r.sink = sink
		}
	}
}

// NewResolver creates an empty, fail-closed resolver backed by api.
func NewResolver(api API, opts ...ResolverOption) *Resolver {
	r := &Resolver{
		api:         api,
		memberships: map[string]access.Membership{},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}

	return r
}

// Refresh fetches memberships and the system role for identityID and
// replaces the cache wholesale. When a newer Refresh is triggered before
// this one's responses arrive, the stale result is dropped. On backend
// failure the previous cache is retained and ErrRoleFetchFailed returned.
func (r *Resolver) Refresh(ctx context.Context, identityID string) error {
	r.mu.Lock()
	r.generation++
	gen := r.generation
	r.mu.Unlock()

	memberships, err := r.api.UserOrganizations(ctx, identityID)
	if err != nil {
		return r.fetchFailed(identityID, err)
	}

	systemRole, err := r.api.UserSystemRole(ctx, identityID)
	if err != nil {
		return r.fetchFailed(identityID, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if gen != r.generation {
		r.logDebug("roles refresh superseded, discarding response (user=%s)", identityID)
		return nil
	}

	byOrg := make(map[string]access.Membership, len(memberships))
	for _, m := range memberships {
		byOrg[m.OrganizationID] = m
	}

	r.memberships = byOrg
	r.systemRole = systemRole
	r.loaded = true

	r.record(access.ActivityEvent{
		EventType: access.ActivityEventRolesRefreshed,
		UserID:    identityID,
		Metadata: map[string]any{
			"memberships": len(byOrg),
			"system_role": string(systemRole),
		},
	})

	return nil
}

// Reset discards all cached role state. Called on logout.
func (r *Resolver) Reset() {
	r.mu.Lock()
	r.generation++
	r.memberships = map[string]access.Membership{}
	r.systemRole = access.SystemRoleNone
	r.currentOrgID = ""
	r.loaded = false
	r.mu.Unlock()

	r.record(access.ActivityEvent{EventType: access.ActivityEventRolesCleared})
}

// SelectOrganization moves the current-organization pointer. It does not
// re-fetch; an unknown or non-active membership simply yields no role.
func (r *Resolver) SelectOrganization(organizationID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.currentOrgID = organizationID
}

// CurrentOrganizationID implements access.RoleView.
func (r *Resolver) CurrentOrganizationID() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.currentOrgID
}

// CurrentOrgRole is the role held in the selected organization, OrgRoleNone
// when no active membership exists there.
func (r *Resolver) CurrentOrgRole() access.OrgRole {
	r.mu.RLock()
	defer r.mu.RUnlock()

	m, ok := r.memberships[r.currentOrgID]
	if !ok {
		return access.OrgRoleNone
	}
	return m.EffectiveRole()
}

// SystemRole returns the cached platform-wide role.
func (r *Resolver) SystemRole() access.SystemRole {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.systemRole
}

// HasOrganizationRole implements access.RoleView: true iff an active
// membership for the organization holds at least the required role.
func (r *Resolver) HasOrganizationRole(organizationID string, required access.OrgRole) bool {
	if organizationID == "" {
		return false
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	if !r.loaded {
		return false
	}

	m, ok := r.memberships[organizationID]
	if !ok || !m.IsActive() {
		return false
	}

	return m.Role.IsAtLeast(required)
}

// HasSystemRole implements access.RoleView.
func (r *Resolver) HasSystemRole(required access.SystemRole) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if !r.loaded {
		return false
	}

	return r.systemRole.IsAtLeast(required)
}

// Memberships returns the active memberships, for listing screens.
func (r *Resolver) Memberships() []access.Membership {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]access.Membership, 0, len(r.memberships))
	for _, m := range r.memberships {
		if m.IsActive() {
			out = append(out, m)
		}
	}
	return out
}

// Membership returns the raw membership for an organization, active or not.
func (r *Resolver) Membership(organizationID string) (access.Membership, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.memberships[organizationID]
	return m, ok
}

// Loaded reports whether at least one refresh has succeeded.
func (r *Resolver) Loaded() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.loaded
}

func (r *Resolver) fetchFailed(identityID string, err error) error {
	r.logWarn("roles fetch failed, retaining previous cache (user=%s): %v", identityID, err)
	return errors.Wrap(err, access.ErrRoleFetchFailed.Category, access.ErrRoleFetchFailed.Message).
		WithTextCode(access.ErrRoleFetchFailed.TextCode)
}

func (r *Resolver) record(event access.ActivityEvent) {
	if r.sink == nil {
		return
	}
	if err := r.sink.Record(context.Background(), event); err != nil {
		r.logWarn("activity sink record error: %v", err)
	}
}

func (r *Resolver) logWarn(format string, args ...any) {
	if r.logger != nil {
		r.logger.Warn(format, args...)
	}
}

func (r *Resolver) logDebug(format string, args ...any) {
	if r.logger != nil {
		r.logger.Debug(format, args...)
	}
}

var _ access.RoleView = (*Resolver)(nil)
var _ access.RoleRefresher = (*Resolver)(nil)
