package access_test

import (
	"testing"

	"github.com/goliatone/go-access"
	"github.com/stretchr/testify/assert"
)

func TestDecide(t *testing.T) {
	roles := &stubRoleView{
		orgRoles: map[string]access.OrgRole{
			"org-1": access.OrgRoleAdmin,
			"org-2": access.OrgRoleMember,
		},
		systemRole: access.SystemRoleModerator,
		currentOrg: "org-1",
	}

	tests := []struct {
		name     string
		state    access.AuthState
		roles    access.RoleView
		req      access.Requirement
		expected access.Decision
	}{
		{
			name:     "loading is pending regardless of requirement",
			state:    access.StateLoading,
			roles:    roles,
			req:      access.Requirement{SystemRole: access.SystemRoleAdmin},
			expected: access.DecisionPending,
		},
		{
			name:     "unauthenticated redirects to login",
			state:    access.StateUnauthenticated,
			roles:    roles,
			req:      access.Requirement{},
			expected: access.DecisionRedirectToLogin,
		},
		{
			name:     "error state redirects to login",
			state:    access.StateError,
			roles:    roles,
			req:      access.Requirement{},
			expected: access.DecisionRedirectToLogin,
		},
		{
			name:     "authenticated with no requirement passes through",
			state:    access.StateAuthenticated,
			roles:    nil,
			req:      access.Requirement{},
			expected: access.DecisionAllow,
		},
		{
			name:     "system role satisfied",
			state:    access.StateAuthenticated,
			roles:    roles,
			req:      access.Requirement{SystemRole: access.SystemRoleViewer},
			expected: access.DecisionAllow,
		},
		{
			name:     "system role too low",
			state:    access.StateAuthenticated,
			roles:    roles,
			req:      access.Requirement{SystemRole: access.SystemRoleAdmin},
			expected: access.DecisionRedirectToFallback,
		},
		{
			name:     "org role against named organization",
			state:    access.StateAuthenticated,
			roles:    roles,
			req:      access.Requirement{OrganizationRole: access.OrgRoleAdmin, OrganizationID: "org-1"},
			expected: access.DecisionAllow,
		},
		{
			name:     "org role falls back to selected organization",
			state:    access.StateAuthenticated,
			roles:    roles,
			req:      access.Requirement{OrganizationRole: access.OrgRoleAdmin},
			expected: access.DecisionAllow,
		},
		{
			name:     "org role too low in named organization",
			state:    access.StateAuthenticated,
			roles:    roles,
			req:      access.Requirement{OrganizationRole: access.OrgRoleAdmin, OrganizationID: "org-2"},
			expected: access.DecisionRedirectToFallback,
		},
		{
			name:     "unknown organization denies",
			state:    access.StateAuthenticated,
			roles:    roles,
			req:      access.Requirement{OrganizationRole: access.OrgRoleMember, OrganizationID: "org-9"},
			expected: access.DecisionRedirectToFallback,
		},
		{
			name:  "either role suffices by default",
			state: access.StateAuthenticated,
			roles: roles,
			req: access.Requirement{
				SystemRole:       access.SystemRoleAdmin,
				OrganizationRole: access.OrgRoleAdmin,
				OrganizationID:   "org-1",
			},
			expected: access.DecisionAllow,
		},
		{
			name:  "require all demands both",
			state: access.StateAuthenticated,
			roles: roles,
			req: access.Requirement{
				SystemRole:       access.SystemRoleAdmin,
				OrganizationRole: access.OrgRoleAdmin,
				OrganizationID:   "org-1",
				RequireAll:       true,
			},
			expected: access.DecisionRedirectToFallback,
		},
		{
			name:  "require all passes when both hold",
			state: access.StateAuthenticated,
			roles: roles,
			req: access.Requirement{
				SystemRole:       access.SystemRoleViewer,
				OrganizationRole: access.OrgRoleMember,
				OrganizationID:   "org-1",
				RequireAll:       true,
			},
			expected: access.DecisionAllow,
		},
		{
			name:  "require all ignored when only one role set",
			state: access.StateAuthenticated,
			roles: roles,
			req: access.Requirement{
				SystemRole: access.SystemRoleViewer,
				RequireAll: true,
			},
			expected: access.DecisionAllow,
		},
		{
			name:     "nil role view fails closed",
			state:    access.StateAuthenticated,
			roles:    nil,
			req:      access.Requirement{SystemRole: access.SystemRoleViewer},
			expected: access.DecisionRedirectToFallback,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, access.Decide(tt.state, tt.roles, tt.req))
		})
	}
}

func TestDecideIsDeterministic(t *testing.T) {
	roles := &stubRoleView{
		orgRoles:   map[string]access.OrgRole{"org-1": access.OrgRoleMember},
		systemRole: access.SystemRoleViewer,
		currentOrg: "org-1",
	}
	req := access.Requirement{
		SystemRole:       access.SystemRoleModerator,
		OrganizationRole: access.OrgRoleMember,
	}

	first := access.Decide(access.StateAuthenticated, roles, req)
	for i := 0; i < 100; i++ {
		assert.Equal(t, first, access.Decide(access.StateAuthenticated, roles, req))
	}
}

func TestRequirementIsZero(t *testing.T) {
	assert.True(t, access.Requirement{}.IsZero())
	assert.True(t, access.Requirement{OrganizationID: "org-1", RequireAll: true}.IsZero())
	assert.False(t, access.Requirement{SystemRole: access.SystemRoleViewer}.IsZero())
	assert.False(t, access.Requirement{OrganizationRole: access.OrgRoleMember}.IsZero())
}
