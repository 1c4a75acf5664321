// Package guardware gates routes on auth state and resolved roles. It is the
// transport-facing face of access.Decide: allow passes through, a missing
// session redirects to login with the rejected route remembered in a cookie,
// and an authenticated user without the required role is sent to a fallback
// route instead.
package guardware

import (
	"net/http"
	"time"

	"github.com/goliatone/go-access"
	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"
)

const (
	defaultLoginPath        = "/login"
	defaultFallbackPath     = "/"
	defaultRejectedRouteKey = "rejected_route"

	// IdentityLocalsKey is where allowed requests find the authenticated
	// identity. access.GetRouterIdentity reads it by default.
	IdentityLocalsKey = "identity"
)

// StateSource reports the current auth state. access.Authenticator satisfies
// it directly.
type StateSource interface {
	State() access.AuthState
}

// IdentitySource optionally exposes the authenticated identity so allowed
// requests can carry it downstream. access.Authenticator satisfies it.
type IdentitySource interface {
	Identity() access.Identity
}

type Config struct {
	// Filter skips the guard for matching requests.
	Filter func(router.Context) bool

	// Auth reports the session state. Required.
	Auth StateSource

	// Roles is the resolved role view. Optional when Requirement carries no
	// role constraints; a nil view denies every role gate.
	Roles access.RoleView

	// Requirement is the gate to evaluate.
	Requirement access.Requirement

	// LoginPath is where unauthenticated requests are redirected.
	// Default: "/login".
	LoginPath string

	// FallbackPath is where authenticated-but-unauthorized requests are
	// redirected. Default: "/".
	FallbackPath string

	// RejectedRouteKey names the cookie holding the route to return to after
	// login. Default: "rejected_route".
	RejectedRouteKey string

	// SuccessHandler runs on allow. Default: ctx.Next().
	SuccessHandler router.HandlerFunc

	// PendingHandler runs while the session is still being resolved.
	// Default: 503 with a Retry-After of one second.
	PendingHandler router.HandlerFunc

	Logger access.Logger
}

// New builds the guard middleware.
func New(config ...Config) router.MiddlewareFunc {
	cfg := getDefaultConfig(config...)

	return func(hf router.HandlerFunc) router.HandlerFunc {
		return func(ctx router.Context) error {
			if cfg.Filter != nil && cfg.Filter(ctx) {
				return ctx.Next()
			}

			decision := access.Decide(cfg.Auth.State(), cfg.Roles, cfg.Requirement)

			switch decision {
			case access.DecisionAllow:
				exposeIdentity(ctx, cfg)
				return cfg.SuccessHandler(ctx)

			case access.DecisionPending:
				return cfg.PendingHandler(ctx)

			case access.DecisionRedirectToLogin:
				cfg.Logger.Info(
					"no authenticated session, redirecting to login",
					"path", ctx.OriginalURL(),
				)
				setRejectedRoute(ctx, cfg.RejectedRouteKey)
				return redirect(ctx, cfg.LoginPath)

			case access.DecisionRedirectToFallback:
				cfg.Logger.Info(
					"authorization denied, redirecting to fallback",
					"path", ctx.OriginalURL(),
					"requirement", print.MaybePrettyJSON(requirementMetadata(cfg.Requirement)),
				)
				return redirect(ctx, cfg.FallbackPath)
			}

			return errors.New("unhandled access decision", errors.CategoryInternal).
				WithCode(errors.CodeInternal).
				WithMetadata(map[string]any{"decision": decision.String()})
		}
	}
}

// RequireSystemRole gates a route on a minimum system role.
func RequireSystemRole(auth StateSource, roles access.RoleView, min access.SystemRole, config ...Config) router.MiddlewareFunc {
	cfg := firstConfig(config...)
	cfg.Auth = auth
	cfg.Roles = roles
	cfg.Requirement = access.Requirement{SystemRole: min}
	return New(cfg)
}

// RequireOrganizationRole gates a route on a minimum role in the currently
// selected organization.
func RequireOrganizationRole(auth StateSource, roles access.RoleView, min access.OrgRole, config ...Config) router.MiddlewareFunc {
	cfg := firstConfig(config...)
	cfg.Auth = auth
	cfg.Roles = roles
	cfg.Requirement = access.Requirement{OrganizationRole: min}
	return New(cfg)
}

// RequireAuthenticated gates a route on an authenticated session only.
func RequireAuthenticated(auth StateSource, config ...Config) router.MiddlewareFunc {
	cfg := firstConfig(config...)
	cfg.Auth = auth
	cfg.Requirement = access.Requirement{}
	return New(cfg)
}

func firstConfig(config ...Config) Config {
	if len(config) > 0 {
		return config[0]
	}
	return Config{}
}

func getDefaultConfig(config ...Config) (cfg Config) {
	cfg = firstConfig(config...)

	if cfg.Auth == nil {
		panic("ACCESS: guard middleware configuration: Auth is required.")
	}

	if cfg.LoginPath == "" {
		cfg.LoginPath = defaultLoginPath
	}

	if cfg.FallbackPath == "" {
		cfg.FallbackPath = defaultFallbackPath
	}

	if cfg.RejectedRouteKey == "" {
		cfg.RejectedRouteKey = defaultRejectedRouteKey
	}

	if cfg.SuccessHandler == nil {
		cfg.SuccessHandler = func(ctx router.Context) error {
			return ctx.Next()
		}
	}

	if cfg.PendingHandler == nil {
		cfg.PendingHandler = func(ctx router.Context) error {
			ctx.SetHeader("Retry-After", "1")
			return ctx.Status(router.StatusServiceUnavailable).SendString("session pending")
		}
	}

	if cfg.Logger == nil {
		cfg.Logger = noopLogger{}
	}

	return cfg
}

// GetRedirect pops the rejected-route cookie, returning def when no route
// was remembered. Login handlers call it after a successful login.
func GetRedirect(ctx router.Context, rejectedRouteKey string, def string) string {
	if rejectedRouteKey == "" {
		rejectedRouteKey = defaultRejectedRouteKey
	}

	r := ctx.Cookies(rejectedRouteKey)
	if r == "" {
		return def
	}
	clearCookie(ctx, rejectedRouteKey)
	return r
}

func setRejectedRoute(ctx router.Context, key string) {
	ctx.Cookie(&router.Cookie{
		Name:     key,
		Value:    ctx.OriginalURL(),
		Expires:  time.Now().Add(time.Minute * 5),
		HTTPOnly: true,
		Secure:   true,
		SameSite: "Lax",
	})
}

func clearCookie(ctx router.Context, name string) {
	ctx.Cookie(&router.Cookie{
		Name:     name,
		Value:    "",
		Expires:  time.Now().Add(-time.Hour * (24 * 365)),
		HTTPOnly: true,
		Secure:   true,
		SameSite: "Lax",
	})
}

func redirect(ctx router.Context, path string) error {
	statusCode := http.StatusSeeOther
	if ctx.Method() == string(router.GET) {
		statusCode = http.StatusFound
	}
	return ctx.Redirect(path, statusCode)
}

func exposeIdentity(ctx router.Context, cfg Config) {
	src, ok := cfg.Auth.(IdentitySource)
	if !ok {
		return
	}

	identity := src.Identity()
	if identity.ID == "" {
		return
	}
	ctx.Locals(IdentityLocalsKey, &identity)
}

func requirementMetadata(req access.Requirement) map[string]any {
	meta := map[string]any{}
	if req.SystemRole != access.SystemRoleNone {
		meta["system_role"] = string(req.SystemRole)
	}
	if req.OrganizationRole != access.OrgRoleNone {
		meta["organization_role"] = string(req.OrganizationRole)
	}
	if req.OrganizationID != "" {
		meta["organization_id"] = req.OrganizationID
	}
	if req.RequireAll {
		meta["require_all"] = true
	}
	return meta
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}
