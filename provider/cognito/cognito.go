package cognito

import (
	"context"
	"crypto/subtle"
	"net/url"
	"sync"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/goliatone/go-access"
	"github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"golang.org/x/oauth2"
)

// Provider implements access.ExternalProvider against a Cognito user pool's
// hosted UI. Login is redirect based: BeginLogin hands back the authorize
// URL, the user agent completes the hosted-UI flow, and the application
// callback feeds the code into CompleteLogin. CurrentSession then serves the
// cached session, refreshing through the token endpoint when it expires.
type Provider struct {
	config Config
	logger access.Logger

	mu           sync.Mutex
	oidcProvider *oidc.Provider
	verifier     *oidc.IDTokenVerifier
	oauth        oauth2.Config

	pendingState string
	session      *session

	now func() time.Time
}

type session struct {
	identity     access.Identity
	idToken      string
	refreshToken string
	expiresAt    time.Time
}

// New creates a Cognito provider. Discovery is deferred until the first
// operation that needs it, so construction never touches the network.
func New(cfg Config) (*Provider, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, errors.CategoryValidation, "invalid cognito config")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = noopLogger{}
	}

	return &Provider{
		config: cfg,
		logger: logger,
		now:    time.Now,
	}, nil
}

// discover runs OIDC discovery once and caches the verifier and oauth2
// endpoints. Callers must hold p.mu.
func (p *Provider) discover(ctx context.Context) error {
	if p.oidcProvider != nil {
		return nil
	}

	if p.config.HTTPClient != nil {
		ctx = oidc.ClientContext(ctx, p.config.HTTPClient)
	}

	provider, err := oidc.NewProvider(ctx, p.config.IssuerURL)
	if err != nil {
		return errors.Wrap(err, access.ErrProviderUnavailable.Category, access.ErrProviderUnavailable.Message).
			WithTextCode(access.ErrProviderUnavailable.TextCode).
			WithMetadata(map[string]any{"issuer": p.config.IssuerURL})
	}

	p.oidcProvider = provider
	p.verifier = provider.Verifier(&oidc.Config{ClientID: p.config.ClientID})
	p.oauth = oauth2.Config{
		ClientID:     p.config.ClientID,
		ClientSecret: p.config.ClientSecret,
		RedirectURL:  p.config.RedirectURL,
		Endpoint:     provider.Endpoint(),
		Scopes:       p.config.scopes(),
	}

	return nil
}

// BeginLogin implements access.ExternalProvider. providerID names the
// upstream federation source ("Google", "SignInWithApple", ...); empty means
// the pool's own user directory.
func (p *Provider) BeginLogin(ctx context.Context, providerID string) (*access.LoginRedirect, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.discover(ctx); err != nil {
		return nil, err
	}

	state := uuid.NewString()

	opts := []oauth2.AuthCodeOption{oauth2.AccessTypeOffline}
	if providerID != "" {
		opts = append(opts, oauth2.SetAuthURLParam("identity_provider", providerID))
	}

	p.pendingState = state

	return &access.LoginRedirect{
		URL:      p.oauth.AuthCodeURL(state, opts...),
		State:    state,
		Provider: providerID,
	}, nil
}

// CompleteLogin exchanges the callback code for tokens, verifies the ID
// token, and caches the resulting session. The state must match the one
// issued by the most recent BeginLogin.
func (p *Provider) CompleteLogin(ctx context.Context, code, state string) (*access.ExternalSession, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.discover(ctx); err != nil {
		return nil, err
	}

	expected := p.pendingState
	if expected == "" || subtle.ConstantTimeCompare([]byte(expected), []byte(state)) != 1 {
		return nil, errors.New("oauth state mismatch", errors.CategoryBadInput).
			WithCode(errors.CodeBadRequest)
	}
	p.pendingState = ""

	if p.config.HTTPClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, p.config.HTTPClient)
	}

	token, err := p.oauth.Exchange(ctx, code)
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryAuth, "code exchange failed").
			WithCode(errors.CodeUnauthorized)
	}

	sess, err := p.sessionFromToken(ctx, token)
	if err != nil {
		return nil, err
	}

	p.session = sess
	return p.externalSession(sess), nil
}

// CurrentSession implements access.ExternalProvider. Returns (nil, nil) when
// no session exists. An expired session with a refresh token is refreshed
// in place; one without is discarded.
func (p *Provider) CurrentSession(ctx context.Context) (*access.ExternalSession, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.session == nil {
		return nil, nil
	}

	if p.now().Before(p.session.expiresAt) {
		return p.externalSession(p.session), nil
	}

	if p.session.refreshToken == "" {
		p.logger.Debug("session expired with no refresh token, discarding")
		p.session = nil
		return nil, nil
	}

	sess, err := p.refresh(ctx, p.session.refreshToken)
	if err != nil {
		p.logger.Warn("session refresh failed: %v", err)
		p.session = nil
		return nil, errors.Wrap(err, access.ErrExternalSession.Category, access.ErrExternalSession.Message).
			WithTextCode(access.ErrExternalSession.TextCode)
	}

	p.session = sess
	return p.externalSession(sess), nil
}

// EndSession implements access.ExternalProvider. The local session cache is
// always cleared; the hosted-UI cookie is the user agent's to kill via
// LogoutURL.
func (p *Provider) EndSession(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.session = nil
	p.pendingState = ""
	return nil
}

// LogoutURL is the hosted-UI logout endpoint the user agent should visit to
// terminate the Cognito cookie session. Discovery does not expose it, so it
// is built from the configured domain.
func (p *Provider) LogoutURL() string {
	params := url.Values{
		"client_id":  {p.config.ClientID},
		"logout_uri": {p.config.logoutRedirect()},
	}
	return p.config.hostedUIBase() + "/logout?" + params.Encode()
}

func (p *Provider) refresh(ctx context.Context, refreshToken string) (*session, error) {
	if p.config.HTTPClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, p.config.HTTPClient)
	}

	stale := &oauth2.Token{
		RefreshToken: refreshToken,
		Expiry:       p.now().Add(-time.Hour),
	}

	token, err := p.oauth.TokenSource(ctx, stale).Token()
	if err != nil {
		return nil, err
	}

	// Cognito does not rotate refresh tokens; keep the original when the
	// refresh response omits one.
	if token.RefreshToken == "" {
		token.RefreshToken = refreshToken
	}

	return p.sessionFromToken(ctx, token)
}

func (p *Provider) sessionFromToken(ctx context.Context, token *oauth2.Token) (*session, error) {
	rawIDToken, ok := token.Extra("id_token").(string)
	if !ok || rawIDToken == "" {
		return nil, errors.New("no id_token in token response", errors.CategoryAuth).
			WithCode(errors.CodeUnauthorized)
	}

	idToken, err := p.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryAuth, "invalid id token").
			WithCode(errors.CodeUnauthorized)
	}

	identity, err := identityFromIDToken(idToken)
	if err != nil {
		return nil, err
	}

	return &session{
		identity:     identity,
		idToken:      rawIDToken,
		refreshToken: token.RefreshToken,
		expiresAt:    idToken.Expiry,
	}, nil
}

func (p *Provider) externalSession(s *session) *access.ExternalSession {
	return &access.ExternalSession{
		Identity:   s.identity,
		Credential: access.Credential(s.idToken),
		ExpiresAt:  s.expiresAt,
	}
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

var _ access.ExternalProvider = (*Provider)(nil)
