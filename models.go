package access

import "time"

// Credential is the opaque bearer token proving an authenticated session to
// the backend. Exactly one Credential is active at a time; persisting a new
// one replaces the previous one.
type Credential string

// IsZero reports whether the credential is empty.
func (c Credential) IsZero() bool {
	return c == ""
}

// Identity holds the authenticated end-user's profile data. It is owned by
// the Authenticator; the session store only keeps a serialized copy for
// persistence.
type Identity struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name,omitempty"`
	Email       string `json:"email,omitempty"`

	// IsNewUser is set by backend registration: true when the registration
	// call created the user, false when the user already existed, nil when
	// registration could not be reached and the classification is unknown.
	IsNewUser *bool `json:"is_new_user,omitempty"`
}

// IsZero reports whether the identity carries no user.
func (i Identity) IsZero() bool {
	return i.ID == ""
}

// MembershipStatus is the lifecycle status of an organization membership.
type MembershipStatus string

const (
	// MembershipActive is a membership in good standing
	MembershipActive MembershipStatus = "active"
	// MembershipPending is an accepted invite awaiting approval
	MembershipPending MembershipStatus = "pending"
	// MembershipInactive is a membership that lapsed
	MembershipInactive MembershipStatus = "inactive"
	// MembershipSuspended is a membership revoked by an admin
	MembershipSuspended MembershipStatus = "suspended"
)

// Membership is a per-organization role assignment for an Identity. At most
// one membership exists per organization per identity.
type Membership struct {
	ID             string           `json:"id,omitempty"`
	OrganizationID string           `json:"organization_id"`
	Role           OrgRole          `json:"organization_role"`
	Status         MembershipStatus `json:"status"`
	CreatedAt      *time.Time       `json:"created_at,omitempty"`
	UpdatedAt      *time.Time       `json:"updated_at,omitempty"`
}

// IsActive reports whether the membership grants its role. Only active
// memberships count toward authorization decisions.
func (m Membership) IsActive() bool {
	return m.Status == MembershipActive
}

// EffectiveRole returns the membership's role when active, OrgRoleNone
// otherwise.
func (m Membership) EffectiveRole() OrgRole {
	if !m.IsActive() {
		return OrgRoleNone
	}
	return m.Role
}
