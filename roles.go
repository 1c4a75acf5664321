package access

// OrgRole is a role held within a single organization.
type OrgRole string

const (
	// OrgRoleNone is the absence of an organization role.
	OrgRoleNone OrgRole = ""
	// OrgRoleMember can view organization content
	OrgRoleMember OrgRole = "member"
	// OrgRoleAdmin can manage organization members
	OrgRoleAdmin OrgRole = "admin"
	// OrgRoleSuperuser can manage admins and organization settings
	OrgRoleSuperuser OrgRole = "superuser"
)

// SystemRole is a platform-wide role, independent of any organization.
type SystemRole string

const (
	// SystemRoleNone is the absence of a system role.
	SystemRoleNone SystemRole = ""
	// SystemRoleViewer can browse system screens
	SystemRoleViewer SystemRole = "viewer"
	// SystemRoleModerator can manage organizations
	SystemRoleModerator SystemRole = "moderator"
	// SystemRoleAdmin can access system administration
	SystemRoleAdmin SystemRole = "admin"
)

// The hierarchy tables are the single source of truth for role ordering.
// Unknown roles rank 0 so every "at least" check fails for them.
var orgRoleRank = map[OrgRole]int{
	OrgRoleMember:    1,
	OrgRoleAdmin:     2,
	OrgRoleSuperuser: 3,
}

var systemRoleRank = map[SystemRole]int{
	SystemRoleViewer:    1,
	SystemRoleModerator: 2,
	SystemRoleAdmin:     3,
}

// Rank returns the role's position in the organization hierarchy, 0 if unknown.
func (r OrgRole) Rank() int {
	return orgRoleRank[r]
}

// IsValid checks if the role is one of the predefined organization roles
func (r OrgRole) IsValid() bool {
	_, ok := orgRoleRank[r]
	return ok
}

// IsAtLeast checks if this role meets the minimum required level
func (r OrgRole) IsAtLeast(min OrgRole) bool {
	rank, ok := orgRoleRank[r]
	if !ok {
		return false
	}
	minRank, ok := orgRoleRank[min]
	if !ok {
		return false
	}
	return rank >= minRank
}

// Rank returns the role's position in the system hierarchy, 0 if unknown.
func (r SystemRole) Rank() int {
	return systemRoleRank[r]
}

// IsValid checks if the role is one of the predefined system roles
func (r SystemRole) IsValid() bool {
	_, ok := systemRoleRank[r]
	return ok
}

// IsAtLeast checks if this role meets the minimum required level
func (r SystemRole) IsAtLeast(min SystemRole) bool {
	rank, ok := systemRoleRank[r]
	if !ok {
		return false
	}
	minRank, ok := systemRoleRank[min]
	if !ok {
		return false
	}
	return rank >= minRank
}

// OrgRoles returns all predefined organization roles in hierarchical order
func OrgRoles() []OrgRole {
	return []OrgRole{
		OrgRoleMember,
		OrgRoleAdmin,
		OrgRoleSuperuser,
	}
}

// SystemRoles returns all predefined system roles in hierarchical order
func SystemRoles() []SystemRole {
	return []SystemRole{
		SystemRoleViewer,
		SystemRoleModerator,
		SystemRoleAdmin,
	}
}

// ParseOrgRole safely parses a string into an OrgRole
func ParseOrgRole(roleStr string) (OrgRole, bool) {
	role := OrgRole(roleStr)
	return role, role.IsValid()
}

// ParseSystemRole safely parses a string into a SystemRole
func ParseSystemRole(roleStr string) (SystemRole, bool) {
	role := SystemRole(roleStr)
	return role, role.IsValid()
}
