package cognito

import (
	"fmt"
	"net/http"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/goliatone/go-access"
)

// Config holds Cognito hosted-UI configuration.
type Config struct {
	// IssuerURL is the user pool issuer, e.g.
	// "https://cognito-idp.us-east-1.amazonaws.com/us-east-1_AbCdEfGhI".
	// OAuth endpoints are resolved through OIDC discovery on this URL.
	IssuerURL string

	// Domain is the hosted-UI domain, e.g. "auth.example.org". Required for
	// the logout endpoint, which discovery does not expose.
	Domain string

	// ClientID is the app client id.
	ClientID string

	// ClientSecret is the app client secret. Optional for public clients.
	ClientSecret string

	// RedirectURL is the callback the hosted UI returns to after login.
	RedirectURL string

	// LogoutRedirectURL is where the hosted UI sends the user agent after
	// logout. Defaults to RedirectURL.
	LogoutRedirectURL string

	// Scopes beyond "openid". Default: profile, email.
	Scopes []string

	// HTTPClient overrides the client used for discovery and token calls.
	HTTPClient *http.Client

	// Logger overrides the default logger.
	Logger access.Logger
}

// Validate implements config validation.
func (c Config) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.IssuerURL, validation.Required),
		validation.Field(&c.Domain, validation.Required),
		validation.Field(&c.ClientID, validation.Required),
		validation.Field(&c.RedirectURL, validation.Required),
	)
}

func (c Config) scopes() []string {
	scopes := []string{"openid"}
	if len(c.Scopes) > 0 {
		return append(scopes, c.Scopes...)
	}
	return append(scopes, "profile", "email")
}

func (c Config) logoutRedirect() string {
	if c.LogoutRedirectURL != "" {
		return c.LogoutRedirectURL
	}
	return c.RedirectURL
}

func (c Config) hostedUIBase() string {
	domain := strings.TrimSpace(c.Domain)
	domain = strings.TrimSuffix(domain, "/")
	if strings.HasPrefix(domain, "http://") || strings.HasPrefix(domain, "https://") {
		return domain
	}
	return fmt.Sprintf("https://%s", domain)
}
