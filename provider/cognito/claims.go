package cognito

import (
	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/goliatone/go-access"
	"github.com/goliatone/go-errors"
)

type idTokenClaims struct {
	Sub             string `json:"sub"`
	Email           string `json:"email"`
	Name            string `json:"name"`
	GivenName       string `json:"given_name"`
	FamilyName      string `json:"family_name"`
	CognitoUsername string `json:"cognito:username"`
}

func identityFromIDToken(token *oidc.IDToken) (access.Identity, error) {
	var claims idTokenClaims
	if err := token.Claims(&claims); err != nil {
		return access.Identity{}, errors.Wrap(err, errors.CategoryAuth, "failed to extract id token claims").
			WithCode(errors.CodeUnauthorized)
	}

	if claims.Sub == "" {
		return access.Identity{}, errors.New("id token missing sub claim", errors.CategoryAuth).
			WithCode(errors.CodeUnauthorized)
	}

	return access.Identity{
		ID:          claims.Sub,
		Email:       claims.Email,
		DisplayName: displayName(claims),
	}, nil
}

func displayName(claims idTokenClaims) string {
	if claims.Name != "" {
		return claims.Name
	}
	if claims.GivenName != "" {
		name := claims.GivenName
		if claims.FamilyName != "" {
			name += " " + claims.FamilyName
		}
		return name
	}
	if claims.CognitoUsername != "" {
		return claims.CognitoUsername
	}
	return claims.Email
}
