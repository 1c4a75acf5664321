package access_test

import (
	"context"

	"github.com/goliatone/go-access"
	"github.com/stretchr/testify/mock"
)

// MockStore implements access.Store
type MockStore struct {
	mock.Mock
}

func (m *MockStore) Restore() (*access.StoredSession, error) {
	args := m.Called()
	session, _ := args.Get(0).(*access.StoredSession)
	return session, args.Error(1)
}

func (m *MockStore) Persist(identity access.Identity, credential access.Credential) error {
	args := m.Called(identity, credential)
	return args.Error(0)
}

func (m *MockStore) Clear() error {
	args := m.Called()
	return args.Error(0)
}

// MockProvider implements access.ExternalProvider
type MockProvider struct {
	mock.Mock
}

func (m *MockProvider) BeginLogin(ctx context.Context, providerID string) (*access.LoginRedirect, error) {
	args := m.Called(ctx, providerID)
	redirect, _ := args.Get(0).(*access.LoginRedirect)
	return redirect, args.Error(1)
}

func (m *MockProvider) CurrentSession(ctx context.Context) (*access.ExternalSession, error) {
	args := m.Called(ctx)
	session, _ := args.Get(0).(*access.ExternalSession)
	return session, args.Error(1)
}

func (m *MockProvider) EndSession(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// MockRegistrar implements access.AccountRegistrar
type MockRegistrar struct {
	mock.Mock
}

func (m *MockRegistrar) RegisterIfNotExists(ctx context.Context, identity access.Identity) (access.Identity, error) {
	args := m.Called(ctx, identity)
	registered, _ := args.Get(0).(access.Identity)
	return registered, args.Error(1)
}

// MockRoleRefresher implements access.RoleRefresher
type MockRoleRefresher struct {
	mock.Mock
}

func (m *MockRoleRefresher) Refresh(ctx context.Context, identityID string) error {
	args := m.Called(ctx, identityID)
	return args.Error(0)
}

func (m *MockRoleRefresher) Reset() {
	m.Called()
}

// stubRoleView is a fixed-answer access.RoleView for guard tests.
type stubRoleView struct {
	orgRoles   map[string]access.OrgRole
	systemRole access.SystemRole
	currentOrg string
}

func (s *stubRoleView) HasOrganizationRole(organizationID string, required access.OrgRole) bool {
	role, ok := s.orgRoles[organizationID]
	if !ok {
		return false
	}
	return role.IsAtLeast(required)
}

func (s *stubRoleView) HasSystemRole(required access.SystemRole) bool {
	return s.systemRole.IsAtLeast(required)
}

func (s *stubRoleView) CurrentOrganizationID() string {
	return s.currentOrg
}

// recordingSink captures every activity event it receives.
type recordingSink struct {
	events []access.ActivityEvent
}

func (s *recordingSink) Record(ctx context.Context, event access.ActivityEvent) error {
	s.events = append(s.events, event)
	return nil
}

func (s *recordingSink) types() []access.ActivityEventType {
	out := make([]access.ActivityEventType, 0, len(s.events))
	for _, event := range s.events {
		out = append(out, event.EventType)
	}
	return out
}
