package access

import "github.com/goliatone/go-errors"

const (
	TextCodeProviderUnavailable = "provider_unavailable"
	TextCodeSessionRestore      = "session_restore_failed"
	TextCodeRegistrationFailed  = "registration_failed"
	TextCodeRoleFetchFailed     = "role_fetch_failed"
	TextCodeLoginInProgress     = "login_in_progress"
	TextCodeSessionPersist      = "session_persist_failed"
	TextCodeExternalSession     = "external_session_failed"
)

// ErrProviderUnavailable is returned when the identity provider cannot be
// reached while initiating a login.
var ErrProviderUnavailable = errors.New("identity provider unavailable", errors.CategoryAuth).
	WithTextCode(TextCodeProviderUnavailable).
	WithCode(errors.CodeUnauthorized)

// ErrSessionRestore wraps a malformed or expired persisted session. It is an
// expected path: callers recover by clearing the store, never by surfacing it.
var ErrSessionRestore = errors.New("unable to restore persisted session", errors.CategoryAuth).
	WithTextCode(TextCodeSessionRestore).
	WithCode(errors.CodeUnauthorized)

// ErrSessionPersist is returned when the session store cannot write.
var ErrSessionPersist = errors.New("unable to persist session", errors.CategoryInternal).
	WithTextCode(TextCodeSessionPersist).
	WithCode(errors.CodeInternal)

// ErrRegistrationFailed is returned when the backend user registry cannot be
// reached during post-login registration. Authentication proceeds degraded.
var ErrRegistrationFailed = errors.New("backend registration failed", errors.CategoryInternal).
	WithTextCode(TextCodeRegistrationFailed).
	WithCode(errors.CodeInternal)

// ErrRoleFetchFailed is returned when role resolution cannot reach the
// backend. Callers retain any previously fetched roles.
var ErrRoleFetchFailed = errors.New("failed to fetch roles", errors.CategoryInternal).
	WithTextCode(TextCodeRoleFetchFailed).
	WithCode(errors.CodeInternal)

// ErrLoginInProgress is returned when a login is requested while another
// transition is still running.
var ErrLoginInProgress = errors.New("login already in progress", errors.CategoryConflict).
	WithTextCode(TextCodeLoginInProgress).
	WithCode(errors.CodeConflict)

// ErrExternalSession is returned when the provider's session lookup fails in
// a way that is not the expected "no session" empty case.
var ErrExternalSession = errors.New("external session lookup failed", errors.CategoryAuth).
	WithTextCode(TextCodeExternalSession).
	WithCode(errors.CodeUnauthorized)
