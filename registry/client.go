// Package registry is the REST client for the backend user registry: user
// registration, membership listing, system roles, and membership management.
// Every request carries the active bearer credential.
package registry

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/goliatone/go-access"
	"github.com/goliatone/go-errors"
)

// CredentialSource supplies the bearer credential for outbound requests,
// normally Authenticator.Credential.
type CredentialSource func() access.Credential

// Config holds registry client options.
type Config struct {
	// BaseURL is the registry API root, e.g. https://api.example.org/v1.
	BaseURL string

	// Credentials supplies the bearer token per request.
	Credentials CredentialSource

	// HTTPClient overrides the default client. Timeouts are its concern.
	HTTPClient *http.Client

	// Logger overrides the default logger.
	Logger access.Logger
}

// Validate implements config validation.
func (c Config) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.BaseURL, validation.Required),
	)
}

// Client talks to the backend registry.
type Client struct {
	baseURL     string
	credentials CredentialSource
	httpClient  *http.Client
	logger      access.Logger
}

// New creates a registry client.
func New(cfg Config) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, errors.CategoryValidation, "invalid registry config")
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}

	logger := cfg.Logger
	if logger == nil {
		logger = noopLogger{}
	}

	credentials := cfg.Credentials
	if credentials == nil {
		credentials = func() access.Credential { return "" }
	}

	return &Client{
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		credentials: credentials,
		httpClient:  httpClient,
		logger:      logger,
	}, nil
}

type userRecord struct {
	ID          string `json:"id"`
	ExternalID  string `json:"external_id"`
	DisplayName string `json:"display_name"`
	Email       string `json:"email"`
}

// RegisterIfNotExists implements access.AccountRegistrar: it looks the
// identity up by external id and creates it when missing, classifying
// IsNewUser accordingly.
func (c *Client) RegisterIfNotExists(ctx context.Context, identity access.Identity) (access.Identity, error) {
	var existing userRecord
	err := c.get(ctx, "/users/get-by-external-id/"+url.PathEscape(identity.ID), nil, &existing)
	if err == nil {
		isNew := false
		identity.IsNewUser = &isNew
		if existing.DisplayName != "" {
			identity.DisplayName = existing.DisplayName
		}
		return identity, nil
	}

	if !isNotFound(err) {
		return identity, c.registrationError(err)
	}

	payload := userRecord{
		ExternalID:  identity.ID,
		DisplayName: identity.DisplayName,
		Email:       identity.Email,
	}

	var created userRecord
	if err := c.post(ctx, "/users/create", payload, &created); err != nil {
		return identity, c.registrationError(err)
	}

	isNew := true
	identity.IsNewUser = &isNew
	return identity, nil
}

type membershipList struct {
	Memberships []access.Membership `json:"user_organizations"`
}

// UserOrganizations implements permission.API.
func (c *Client) UserOrganizations(ctx context.Context, userID string) ([]access.Membership, error) {
	query := url.Values{"user_id": {userID}}

	var list membershipList
	if err := c.get(ctx, "/user-organizations/list", query, &list); err != nil {
		return nil, c.fetchError(err)
	}

	return list.Memberships, nil
}

type systemRoleRecord struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"`
}

// UserSystemRole implements permission.API. A user without a role record
// simply has no system role; that is not an error.
func (c *Client) UserSystemRole(ctx context.Context, userID string) (access.SystemRole, error) {
	var record systemRoleRecord
	err := c.get(ctx, "/user-roles/get/"+url.PathEscape(userID), nil, &record)
	if err != nil {
		if isNotFound(err) {
			return access.SystemRoleNone, nil
		}
		return access.SystemRoleNone, c.fetchError(err)
	}

	role, ok := access.ParseSystemRole(record.Role)
	if !ok {
		c.logger.Warn("registry returned unknown system role %q for user %s", record.Role, userID)
		return access.SystemRoleNone, nil
	}
	return role, nil
}

// InviteMemberRequest creates or re-activates a membership.
type InviteMemberRequest struct {
	OrganizationID string         `json:"organization_id"`
	UserID         string         `json:"user_id,omitempty"`
	Email          string         `json:"email,omitempty"`
	Role           access.OrgRole `json:"organization_role"`
}

// Validate implements request validation.
func (r InviteMemberRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.OrganizationID, validation.Required),
		validation.Field(&r.Role, validation.Required, validation.By(orgRoleRule)),
	)
}

func orgRoleRule(value any) error {
	role, _ := value.(access.OrgRole)
	if !role.IsValid() {
		return fmt.Errorf("unknown organization role %q", role)
	}
	return nil
}

// InviteMember adds a user to an organization with the given role. The new
// membership starts pending until the backend activates it.
func (c *Client) InviteMember(ctx context.Context, req InviteMemberRequest) (*access.Membership, error) {
	if err := req.Validate(); err != nil {
		return nil, errors.Wrap(err, errors.CategoryValidation, "invalid invite request")
	}

	var membership access.Membership
	if err := c.post(ctx, "/user-organizations/create", req, &membership); err != nil {
		return nil, c.fetchError(err)
	}
	return &membership, nil
}

// UpdateMemberRole changes the role on an existing membership record.
func (c *Client) UpdateMemberRole(ctx context.Context, membershipID string, role access.OrgRole) (*access.Membership, error) {
	if !role.IsValid() {
		return nil, errors.New("unknown organization role", errors.CategoryValidation).
			WithMetadata(map[string]any{"role": string(role)})
	}

	payload := map[string]any{"organization_role": role}

	var membership access.Membership
	if err := c.put(ctx, "/user-organizations/update/"+url.PathEscape(membershipID), payload, &membership); err != nil {
		return nil, c.fetchError(err)
	}
	return &membership, nil
}

// RemoveMember deletes a membership record.
func (c *Client) RemoveMember(ctx context.Context, membershipID string) error {
	if err := c.do(ctx, http.MethodDelete, "/user-organizations/delete/"+url.PathEscape(membershipID), nil, nil, nil); err != nil {
		return c.fetchError(err)
	}
	return nil
}

// OrganizationMembers lists the memberships of an organization, for admin
// member-management screens.
func (c *Client) OrganizationMembers(ctx context.Context, organizationID string) ([]access.Membership, error) {
	query := url.Values{"organization_id": {organizationID}}

	var list membershipList
	if err := c.get(ctx, "/user-organizations/list", query, &list); err != nil {
		return nil, c.fetchError(err)
	}
	return list.Memberships, nil
}

func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	return c.do(ctx, http.MethodGet, path, query, nil, out)
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	return c.do(ctx, http.MethodPost, path, nil, body, out)
}

func (c *Client) put(ctx context.Context, path string, body, out any) error {
	return c.do(ctx, http.MethodPut, path, nil, body, out)
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return errors.Wrap(err, errors.CategoryInternal, "failed to encode request body")
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "failed to build request")
	}

	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if credential := c.credentials(); !credential.IsZero() {
		req.Header.Set("Authorization", "Bearer "+string(credential))
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "registry request failed")
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "failed to read registry response")
	}

	if resp.StatusCode == http.StatusNotFound {
		return statusError(resp.StatusCode, data)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return statusError(resp.StatusCode, data)
	}

	if out == nil || len(data) == 0 {
		return nil
	}

	if err := json.Unmarshal(data, out); err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "failed to decode registry response")
	}
	return nil
}

func statusError(status int, body []byte) error {
	msg := strings.TrimSpace(string(body))
	if msg == "" {
		msg = http.StatusText(status)
	}

	category := errors.CategoryInternal
	code := errors.CodeInternal
	switch {
	case status == http.StatusNotFound:
		category = errors.CategoryNotFound
		code = errors.CodeNotFound
	case status == http.StatusUnauthorized:
		category = errors.CategoryAuth
		code = errors.CodeUnauthorized
	case status == http.StatusForbidden:
		category = errors.CategoryAuthz
		code = errors.CodeForbidden
	case status >= 400 && status < 500:
		category = errors.CategoryBadInput
		code = errors.CodeBadRequest
	}

	return errors.New(fmt.Sprintf("registry responded %d: %s", status, msg), category).
		WithCode(code).
		WithMetadata(map[string]any{"status": status})
}

func isNotFound(err error) bool {
	var richErr *errors.Error
	if errors.As(err, &richErr) {
		return richErr.Category == errors.CategoryNotFound
	}
	return false
}

func (c *Client) registrationError(err error) error {
	return errors.Wrap(err, access.ErrRegistrationFailed.Category, access.ErrRegistrationFailed.Message).
		WithTextCode(access.ErrRegistrationFailed.TextCode)
}

func (c *Client) fetchError(err error) error {
	return errors.Wrap(err, access.ErrRoleFetchFailed.Category, access.ErrRoleFetchFailed.Message).
		WithTextCode(access.ErrRoleFetchFailed.TextCode)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

var _ access.AccountRegistrar = (*Client)(nil)
