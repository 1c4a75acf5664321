package access

// Decision is the outcome of evaluating a Requirement before rendering a
// protected page or fragment.
type Decision int

const (
	// DecisionPending means auth state is still resolving; render nothing.
	DecisionPending Decision = iota
	// DecisionAllow grants access.
	DecisionAllow
	// DecisionRedirectToLogin sends an unauthenticated caller to login.
	DecisionRedirectToLogin
	// DecisionRedirectToFallback denies an authenticated caller that lacks
	// the required role.
	DecisionRedirectToFallback
)

func (d Decision) String() string {
	switch d {
	case DecisionPending:
		return "pending"
	case DecisionAllow:
		return "allow"
	case DecisionRedirectToLogin:
		return "redirect_to_login"
	case DecisionRedirectToFallback:
		return "redirect_to_fallback"
	default:
		return "unknown"
	}
}

// Requirement describes the roles a capability demands. Zero values mean
// "unset": a requirement with neither role set is a pass-through.
type Requirement struct {
	// SystemRole gates on the platform-wide role when set.
	SystemRole SystemRole

	// OrganizationRole gates on an organization role when set.
	OrganizationRole OrgRole

	// OrganizationID names the organization to check. When empty the
	// RoleView's currently selected organization is used.
	OrganizationID string

	// RequireAll demands both gates when both roles are set; otherwise
	// either one suffices. Ignored when only one role is set.
	RequireAll bool
}

// IsZero reports whether the requirement gates on nothing.
func (r Requirement) IsZero() bool {
	return r.SystemRole == SystemRoleNone && r.OrganizationRole == OrgRoleNone
}

// Decide evaluates a requirement against the current auth state and role
// snapshot. It is pure: no side effects, and the same inputs always produce
// the same decision. A nil roles view fails closed.
func Decide(state AuthState, roles RoleView, req Requirement) Decision {
	if state == StateLoading {
		return DecisionPending
	}

	if state != StateAuthenticated {
		return DecisionRedirectToLogin
	}

	if req.IsZero() {
		return DecisionAllow
	}

	sysSet := req.SystemRole != SystemRoleNone
	orgSet := req.OrganizationRole != OrgRoleNone

	sysOk := false
	if sysSet && roles != nil {
		sysOk = roles.HasSystemRole(req.SystemRole)
	}

	orgOk := false
	if orgSet && roles != nil {
		orgID := req.OrganizationID
		if orgID == "" {
			orgID = roles.CurrentOrganizationID()
		}
		orgOk = roles.HasOrganizationRole(orgID, req.OrganizationRole)
	}

	var pass bool
	switch {
	case sysSet && !orgSet:
		pass = sysOk
	case orgSet && !sysSet:
		pass = orgOk
	case req.RequireAll:
		pass = sysOk && orgOk
	default:
		pass = sysOk || orgOk
	}

	if pass {
		return DecisionAllow
	}
	return DecisionRedirectToFallback
}
