package access

import (
	"context"
	"fmt"
	"time"
)

type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

// LoginRedirect carries the provider URL the user agent must navigate to in
// order to authenticate. The application suspends at this point; completion
// is observed through a later CurrentSession call.
type LoginRedirect struct {
	URL      string
	State    string
	Provider string
}

// ExternalSession is the provider's view of an authenticated user: a minimal
// profile plus the bearer credential for the backend.
type ExternalSession struct {
	Identity   Identity
	Credential Credential
	ExpiresAt  time.Time
}

// ExternalProvider isolates the redirect-based identity provider protocol.
// The core consumes exactly three operations; everything else the provider
// does (code exchange, token refresh, JWKS) stays behind this interface.
type ExternalProvider interface {
	// BeginLogin starts a redirect-based login with the named upstream
	// provider (e.g. "Google"). Fire and forget: the returned redirect
	// suspends the application.
	BeginLogin(ctx context.Context, providerID string) (*LoginRedirect, error)

	// CurrentSession returns the active external session, or (nil, nil) when
	// no session exists. "No session" is an expected empty case.
	CurrentSession(ctx context.Context) (*ExternalSession, error)

	// EndSession terminates the external session. Failures must not block
	// local logout.
	EndSession(ctx context.Context) error
}

// AccountRegistrar ensures the externally authenticated identity exists in
// the backend user registry, returning it with IsNewUser classified.
type AccountRegistrar interface {
	RegisterIfNotExists(ctx context.Context, identity Identity) (Identity, error)
}

// RoleRefresher receives auth lifecycle notifications so role state can track
// the session. The Authenticator calls Refresh on every transition into
// authenticated and Reset on every transition into unauthenticated.
type RoleRefresher interface {
	Refresh(ctx context.Context, identityID string) error
	Reset()
}

// RoleView is the read-only predicate surface the access guard evaluates.
// Implementations must be safe to read in any auth state.
type RoleView interface {
	// HasOrganizationRole is true iff an active membership for the
	// organization holds at least the required role.
	HasOrganizationRole(organizationID string, required OrgRole) bool

	// HasSystemRole is true iff the system role holds at least the required
	// rank.
	HasSystemRole(required SystemRole) bool

	// CurrentOrganizationID is the selected organization, used when a
	// requirement names no organization of its own.
	CurrentOrganizationID() string
}

type noopRoleRefresher struct{}

func (noopRoleRefresher) Refresh(context.Context, string) error { return nil }
func (noopRoleRefresher) Reset()                                {}

func normalizeRoleRefresher(r RoleRefresher) RoleRefresher {
	if r == nil {
		return noopRoleRefresher{}
	}
	return r
}

type defLogger struct{}

func (d defLogger) Error(format string, args ...any) {
	fmt.Printf("[ERR] ACCESS "+newline(format), args...)
}

func (d defLogger) Warn(format string, args ...any) {
	fmt.Printf("[WRN] ACCESS "+newline(format), args...)
}

func (d defLogger) Info(format string, args ...any) {
	fmt.Printf("[INF] ACCESS "+newline(format), args...)
}

func (d defLogger) Debug(format string, args ...any) {
	fmt.Printf("[DBG] ACCESS "+newline(format), args...)
}

func newline(s string) string {
	if len(s) > 0 && s[len(s)-1] != '\n' {
		s += "\n"
	}
	return s
}
