package access

import (
	"context"

	"github.com/goliatone/go-router"
)

var identityCtxKey = &contextKey{"identity"}
var rolesCtxKey = &contextKey{"roles"}

type contextKey struct {
	name string
}

// WithIdentity sets the Identity in the given context
func WithIdentity(ctx context.Context, identity *Identity) context.Context {
	return context.WithValue(ctx, identityCtxKey, identity)
}

// IdentityFromContext finds the identity from the context.
func IdentityFromContext(ctx context.Context) (*Identity, bool) {
	raw, ok := ctx.Value(identityCtxKey).(*Identity)
	return raw, ok
}

// WithRoles sets the RoleView in the given context
func WithRoles(ctx context.Context, roles RoleView) context.Context {
	return context.WithValue(ctx, rolesCtxKey, roles)
}

// RolesFromContext extracts the RoleView from the standard context
func RolesFromContext(ctx context.Context) (RoleView, bool) {
	raw, ok := ctx.Value(rolesCtxKey).(RoleView)
	return raw, ok
}

// GetRouterIdentity extracts the Identity from the router context
func GetRouterIdentity(ctx router.Context, key string) (*Identity, bool) {
	if key == "" {
		key = "identity" // Default key used by the guard middleware
	}
	raw := ctx.Locals(key)
	if raw == nil {
		return nil, false
	}
	identity, ok := raw.(*Identity)
	return identity, ok
}

// Can is a convenience function to check role membership directly from the
// standard context. Unknown role names fail closed.
func Can(ctx context.Context, orgID string, role OrgRole) bool {
	roles, ok := RolesFromContext(ctx)
	if !ok || roles == nil {
		return false
	}
	return roles.HasOrganizationRole(orgID, role)
}

// CanSystem is a convenience function to check system role membership directly
// from the standard context.
func CanSystem(ctx context.Context, role SystemRole) bool {
	roles, ok := RolesFromContext(ctx)
	if !ok || roles == nil {
		return false
	}
	return roles.HasSystemRole(role)
}
