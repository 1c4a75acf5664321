package cognito

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDisplayName(t *testing.T) {
	tests := []struct {
		name     string
		claims   idTokenClaims
		expected string
	}{
		{
			name:     "name claim wins",
			claims:   idTokenClaims{Name: "Ada Lovelace", GivenName: "Ada", CognitoUsername: "ada", Email: "ada@example.com"},
			expected: "Ada Lovelace",
		},
		{
			name:     "given and family name combined",
			claims:   idTokenClaims{GivenName: "Ada", FamilyName: "Lovelace"},
			expected: "Ada Lovelace",
		},
		{
			name:     "given name alone",
			claims:   idTokenClaims{GivenName: "Ada"},
			expected: "Ada",
		},
		{
			name:     "cognito username fallback",
			claims:   idTokenClaims{CognitoUsername: "ada", Email: "ada@example.com"},
			expected: "ada",
		},
		{
			name:     "email as last resort",
			claims:   idTokenClaims{Email: "ada@example.com"},
			expected: "ada@example.com",
		},
		{
			name:     "nothing available",
			claims:   idTokenClaims{},
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, displayName(tt.claims))
		})
	}
}

func TestConfigScopes(t *testing.T) {
	cfg := Config{}
	assert.Equal(t, []string{"openid", "profile", "email"}, cfg.scopes())

	cfg.Scopes = []string{"email"}
	assert.Equal(t, []string{"openid", "email"}, cfg.scopes())
}

func TestConfigHostedUIBase(t *testing.T) {
	assert.Equal(t, "https://auth.example.org", Config{Domain: "auth.example.org"}.hostedUIBase())
	assert.Equal(t, "https://auth.example.org", Config{Domain: "auth.example.org/"}.hostedUIBase())
	assert.Equal(t, "http://localhost:9229", Config{Domain: "http://localhost:9229"}.hostedUIBase())
}
