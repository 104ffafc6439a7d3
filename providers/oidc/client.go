// Package oidc implements the provider client contract for any OpenID
// Connect issuer using the authorization-code flow with PKCE. Discovery,
// token exchange, and ID token verification ride on go-oidc and x/oauth2;
// interactive attempts park in the pending-auth store until the inbound
// redirect completes them.
package oidc

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	glog "github.com/goliatone/go-logger/glog"
	"golang.org/x/oauth2"

	"github.com/goliatone/go-signon/core"
	"github.com/goliatone/go-signon/identity"
)

const (
	defaultProviderID         = "oidc"
	defaultRequestTimeout     = 30 * time.Second
	maxRevocationResponseBody = 1 << 20 // 1 MiB
)

var _ core.ProviderClient = (*Client)(nil)

// URLOpener presents the authorization URL to the user: a browser launch, a
// webview, or a test capture.
type URLOpener interface {
	OpenURL(rawURL string) error
}

type URLOpenerFunc func(rawURL string) error

func (f URLOpenerFunc) OpenURL(rawURL string) error { return f(rawURL) }

type Config struct {
	ProviderID   string
	Issuer       string
	ClientID     string
	ClientSecret string
	RedirectURL  string

	// Scopes requested during interactive sign-in. Defaults to
	// openid/profile/email/offline_access; openid is always enforced.
	Scopes []string

	RequestTimeout time.Duration
	HTTPClient     *http.Client
	URLOpener      URLOpener
	PendingAuth    core.PendingAuthStore
	TokenCache     TokenCache
	Logger         core.Logger
}

// Client drives one OIDC issuer. Interactive sign-ins span two calls: SignIn
// parks the attempt and opens the authorization URL, HandleRedirectURL
// consumes the returned state and finishes the exchange asynchronously.
type Client struct {
	cfg                Config
	oauth              oauth2.Config
	provider           *oidc.Provider
	verifier           *oidc.IDTokenVerifier
	opener             URLOpener
	pendingAuth        core.PendingAuthStore
	tokens             TokenCache
	httpClient         *http.Client
	logger             core.Logger
	requestTimeout     time.Duration
	redirect           *url.URL
	revocationEndpoint string

	mu        sync.Mutex
	attempts  map[string]core.SignInCallback
	revocable *CachedToken
}

// New discovers the issuer configuration and returns a ready client.
func New(ctx context.Context, cfg Config) (*Client, error) {
	cfg.ProviderID = strings.TrimSpace(strings.ToLower(cfg.ProviderID))
	if cfg.ProviderID == "" {
		cfg.ProviderID = defaultProviderID
	}
	cfg.Issuer = strings.TrimSpace(cfg.Issuer)
	if cfg.Issuer == "" {
		return nil, fmt.Errorf("oidc: issuer is required")
	}
	cfg.ClientID = strings.TrimSpace(cfg.ClientID)
	if cfg.ClientID == "" {
		return nil, fmt.Errorf("oidc: client id is required for provider %q", cfg.ProviderID)
	}
	cfg.ClientSecret = strings.TrimSpace(cfg.ClientSecret)
	cfg.RedirectURL = strings.TrimSpace(cfg.RedirectURL)
	if cfg.RedirectURL == "" {
		return nil, fmt.Errorf("oidc: redirect url is required for provider %q", cfg.ProviderID)
	}
	redirect, err := url.Parse(cfg.RedirectURL)
	if err != nil {
		return nil, fmt.Errorf("oidc: parse redirect url: %w", err)
	}
	if cfg.URLOpener == nil {
		return nil, fmt.Errorf("oidc: url opener is required for provider %q", cfg.ProviderID)
	}

	if ctx == nil {
		ctx = context.Background()
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultRequestTimeout}
	}

	provider, err := oidc.NewProvider(oidc.ClientContext(ctx, httpClient), cfg.Issuer)
	if err != nil {
		return nil, fmt.Errorf("oidc: discover issuer %q: %w", cfg.Issuer, err)
	}
	var discovery struct {
		RevocationEndpoint string `json:"revocation_endpoint"`
	}
	if err := provider.Claims(&discovery); err != nil {
		return nil, fmt.Errorf("oidc: decode issuer metadata: %w", err)
	}

	scopes := normalizeRequestScopes(cfg.Scopes)
	if len(scopes) == 0 {
		scopes = defaultScopes()
	}

	pendingAuth := cfg.PendingAuth
	if pendingAuth == nil {
		pendingAuth = core.NewMemoryPendingAuthStore(0)
	}
	tokens := cfg.TokenCache
	if tokens == nil {
		tokens = NewMemoryTokenCache()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = glog.Nop()
	}
	requestTimeout := cfg.RequestTimeout
	if requestTimeout <= 0 {
		requestTimeout = defaultRequestTimeout
	}

	return &Client{
		cfg: cfg,
		oauth: oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Endpoint:     provider.Endpoint(),
			Scopes:       scopes,
		},
		provider:           provider,
		verifier:           provider.Verifier(&oidc.Config{ClientID: cfg.ClientID}),
		opener:             cfg.URLOpener,
		pendingAuth:        pendingAuth,
		tokens:             tokens,
		httpClient:         httpClient,
		logger:             logger,
		requestTimeout:     requestTimeout,
		redirect:           redirect,
		revocationEndpoint: strings.TrimSpace(discovery.RevocationEndpoint),
		attempts:           map[string]core.SignInCallback{},
	}, nil
}

func (c *Client) ID() string {
	return c.cfg.ProviderID
}

// SignIn builds the authorization URL, parks the attempt, and hands the URL
// to the opener. The callback fires when HandleRedirectURL sees the matching
// state, or immediately on local failures.
func (c *Client) SignIn(presentation core.PresentationContext, scopes []string, onComplete core.SignInCallback) {
	if onComplete == nil {
		return
	}

	requested := normalizeRequestScopes(scopes)
	if len(requested) == 0 {
		requested = append([]string(nil), c.oauth.Scopes...)
	}

	state, err := core.GeneratePendingAuthState()
	if err != nil {
		onComplete(nil, fmt.Errorf("oidc: generate state: %w", err))
		return
	}
	nonce, err := randomURLSafe(32)
	if err != nil {
		onComplete(nil, fmt.Errorf("oidc: generate nonce: %w", err))
		return
	}
	verifier, err := randomURLSafe(43)
	if err != nil {
		onComplete(nil, fmt.Errorf("oidc: generate code verifier: %w", err))
		return
	}

	record := core.PendingAuthRecord{
		State:      state,
		ProviderID: c.cfg.ProviderID,
		Scopes:     requested,
		Nonce:      nonce,
		Verifier:   verifier,
	}
	if surface := strings.TrimSpace(presentation.Surface); surface != "" {
		record.Metadata = map[string]any{"surface": surface}
	}
	if err := c.pendingAuth.Save(context.Background(), record); err != nil {
		onComplete(nil, fmt.Errorf("oidc: park sign-in attempt: %w", err))
		return
	}

	c.mu.Lock()
	c.attempts[state] = onComplete
	c.mu.Unlock()

	conf := c.oauth
	conf.Scopes = requested
	options := []oauth2.AuthCodeOption{
		oidc.Nonce(nonce),
		oauth2.SetAuthURLParam("code_challenge", pkceChallenge(verifier)),
		oauth2.SetAuthURLParam("code_challenge_method", "S256"),
	}
	if locale := strings.TrimSpace(presentation.Locale); locale != "" {
		options = append(options, oauth2.SetAuthURLParam("ui_locales", locale))
	}

	if err := c.opener.OpenURL(conf.AuthCodeURL(state, options...)); err != nil {
		c.takeAttempt(state)
		onComplete(nil, fmt.Errorf("oidc: open authorization url: %w", err))
	}
}

// HandleRedirectURL reports whether the URL is this client's redirect
// carrying a parked state. Recognized redirects complete asynchronously
// through the parked callback.
func (c *Client) HandleRedirectURL(rawURL string) bool {
	parsed, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return false
	}
	if !c.matchesRedirect(parsed) {
		return false
	}

	query := parsed.Query()
	state := strings.TrimSpace(query.Get("state"))
	if state == "" {
		return false
	}
	onComplete, ok := c.takeAttempt(state)
	if !ok {
		return false
	}

	record, err := c.pendingAuth.Consume(context.Background(), state)
	if err != nil {
		onComplete(nil, &core.ProviderError{
			Code:        "invalid_request",
			Description: "authorization state is unknown or expired",
		})
		return true
	}
	if errCode := strings.TrimSpace(query.Get("error")); errCode != "" {
		onComplete(nil, &core.ProviderError{
			Code:        errCode,
			Description: strings.TrimSpace(query.Get("error_description")),
		})
		return true
	}
	code := strings.TrimSpace(query.Get("code"))
	if code == "" {
		onComplete(nil, &core.ProviderError{
			Code:        "invalid_request",
			Description: "authorization response is missing a code",
		})
		return true
	}

	go c.completeExchange(record, code, onComplete)
	return true
}

// RestorePreviousSession refreshes the cached credential if one exists. No
// cached credential reports (nil, nil) so the caller can stay quiet.
func (c *Client) RestorePreviousSession(onComplete core.SignInCallback) {
	if onComplete == nil {
		return
	}
	go func() {
		ctx, cancel := c.requestContext()
		defer cancel()

		cached, err := c.tokens.Load(ctx)
		if err != nil {
			onComplete(nil, fmt.Errorf("oidc: load cached token: %w", err))
			return
		}
		if cached == nil {
			onComplete(nil, nil)
			return
		}

		fresh, err := c.oauth.TokenSource(ctx, cached.OAuth2Token()).Token()
		if err != nil {
			onComplete(nil, normalizeOAuthError(err))
			return
		}

		rawIDToken, claims, err := c.restoreClaims(ctx, fresh, cached)
		if err != nil {
			onComplete(nil, err)
			return
		}

		granted := grantedScopes(fresh)
		if granted == nil && cached.Scopes != nil {
			granted = append([]string(nil), cached.Scopes...)
		}

		c.rememberToken(ctx, fresh, rawIDToken, granted)
		onComplete(identity.FromClaims(claims).ProviderUser(providerAuth(fresh, rawIDToken), granted), nil)
	}()
}

// SignOut clears the cached credential. The credential is kept aside so a
// following Disconnect can still revoke it.
func (c *Client) SignOut() {
	ctx, cancel := c.requestContext()
	defer cancel()

	cached, err := c.tokens.Load(ctx)
	if err != nil {
		c.logger.Warn("token cache load failed during sign-out", "provider_id", c.cfg.ProviderID, "error", err)
	}
	if cached != nil {
		c.mu.Lock()
		c.revocable = cached
		c.mu.Unlock()
	}
	if err := c.tokens.Clear(ctx); err != nil {
		c.logger.Warn("token cache clear failed during sign-out", "provider_id", c.cfg.ProviderID, "error", err)
	}
}

// Disconnect revokes the credential at the issuer when a revocation endpoint
// is advertised. Nothing stored means nothing to revoke, which is success.
func (c *Client) Disconnect(onComplete core.DisconnectCallback) {
	if onComplete == nil {
		return
	}
	go func() {
		ctx, cancel := c.requestContext()
		defer cancel()

		token := c.takeRevocable()
		if token == nil {
			loaded, err := c.tokens.Load(ctx)
			if err != nil {
				onComplete(fmt.Errorf("oidc: load cached token: %w", err))
				return
			}
			token = loaded
		}
		if token == nil {
			onComplete(nil)
			return
		}
		if c.revocationEndpoint == "" {
			onComplete(&core.ProviderError{
				Code:        "revocation_not_supported",
				Description: "issuer does not advertise a revocation endpoint",
			})
			return
		}
		if err := c.revokeToken(ctx, token); err != nil {
			onComplete(err)
			return
		}
		if err := c.tokens.Clear(ctx); err != nil {
			c.logger.Warn("token cache clear failed after revocation", "provider_id", c.cfg.ProviderID, "error", err)
		}
		onComplete(nil)
	}()
}

func (c *Client) completeExchange(record core.PendingAuthRecord, code string, onComplete core.SignInCallback) {
	ctx, cancel := c.requestContext()
	defer cancel()

	conf := c.oauth
	conf.Scopes = record.Scopes
	token, err := conf.Exchange(ctx, code, oauth2.SetAuthURLParam("code_verifier", record.Verifier))
	if err != nil {
		onComplete(nil, normalizeOAuthError(err))
		return
	}

	rawIDToken, ok := token.Extra("id_token").(string)
	if !ok || strings.TrimSpace(rawIDToken) == "" {
		onComplete(nil, &core.ProviderError{
			Code:        "invalid_response",
			Description: "token response is missing an id_token",
		})
		return
	}
	idToken, err := c.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		onComplete(nil, &core.ProviderError{
			Code:        "invalid_token",
			Description: "id_token verification failed: " + err.Error(),
		})
		return
	}
	if idToken.Nonce != record.Nonce {
		onComplete(nil, &core.ProviderError{
			Code:        "invalid_token",
			Description: "id_token nonce mismatch",
		})
		return
	}

	var claims map[string]any
	if err := idToken.Claims(&claims); err != nil {
		onComplete(nil, &core.ProviderError{
			Code:        "invalid_token",
			Description: "decode id_token claims: " + err.Error(),
		})
		return
	}

	granted := grantedScopes(token)
	c.rememberToken(ctx, token, rawIDToken, granted)
	onComplete(identity.FromClaims(claims).ProviderUser(providerAuth(token, rawIDToken), granted), nil)
}

// restoreClaims picks the identity evidence for a restored session: a fresh
// verified id_token when the refresh grant returned one, the cached id_token
// decoded without re-verification otherwise (it expired on the shelf; trust
// comes from the refresh grant), and the userinfo endpoint as last resort.
func (c *Client) restoreClaims(ctx context.Context, fresh *oauth2.Token, cached *CachedToken) (string, map[string]any, error) {
	if raw, ok := fresh.Extra("id_token").(string); ok && strings.TrimSpace(raw) != "" {
		idToken, err := c.verifier.Verify(ctx, raw)
		if err != nil {
			return "", nil, &core.ProviderError{
				Code:        "invalid_token",
				Description: "refreshed id_token verification failed: " + err.Error(),
			}
		}
		var claims map[string]any
		if err := idToken.Claims(&claims); err != nil {
			return "", nil, &core.ProviderError{
				Code:        "invalid_token",
				Description: "decode refreshed id_token claims: " + err.Error(),
			}
		}
		return raw, claims, nil
	}

	if strings.TrimSpace(cached.IDToken) != "" {
		claims, err := identity.DecodeIDTokenClaims(cached.IDToken)
		if err == nil {
			return cached.IDToken, claims, nil
		}
	}

	userInfo, err := c.provider.UserInfo(ctx, oauth2.StaticTokenSource(fresh))
	if err != nil {
		return "", nil, normalizeOAuthError(err)
	}
	var claims map[string]any
	if err := userInfo.Claims(&claims); err != nil {
		return "", nil, &core.ProviderError{
			Code:        "invalid_response",
			Description: "decode userinfo claims: " + err.Error(),
		}
	}
	return "", claims, nil
}

func (c *Client) revokeToken(ctx context.Context, token *CachedToken) error {
	value := strings.TrimSpace(token.RefreshToken)
	hint := "refresh_token"
	if value == "" {
		value = strings.TrimSpace(token.AccessToken)
		hint = "access_token"
	}
	if value == "" {
		return nil
	}

	form := url.Values{
		"token":           {value},
		"token_type_hint": {hint},
		"client_id":       {c.cfg.ClientID},
	}
	if c.cfg.ClientSecret != "" {
		form.Set("client_secret", c.cfg.ClientSecret)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.revocationEndpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("oidc: build revocation request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	res, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("oidc: call revocation endpoint: %w", err)
	}
	defer res.Body.Close()
	if res.StatusCode == http.StatusOK {
		return nil
	}

	body, _ := io.ReadAll(io.LimitReader(res.Body, maxRevocationResponseBody))
	var payload struct {
		Error            string `json:"error"`
		ErrorDescription string `json:"error_description"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && strings.TrimSpace(payload.Error) != "" {
		return &core.ProviderError{
			Code:        strings.TrimSpace(payload.Error),
			Description: strings.TrimSpace(payload.ErrorDescription),
		}
	}
	return &core.ProviderError{
		Code:        "revocation_failed",
		Description: fmt.Sprintf("revocation endpoint returned status %d", res.StatusCode),
	}
}

func (c *Client) rememberToken(ctx context.Context, token *oauth2.Token, rawIDToken string, scopes []string) {
	cached := CachedToken{
		TokenType:    token.Type(),
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		IDToken:      rawIDToken,
		Expiry:       token.Expiry,
	}
	if scopes != nil {
		cached.Scopes = append([]string(nil), scopes...)
	}

	c.mu.Lock()
	c.revocable = nil
	c.mu.Unlock()

	if err := c.tokens.Save(ctx, cached); err != nil {
		c.logger.Warn("token cache save failed", "provider_id", c.cfg.ProviderID, "error", err)
	}
}

func (c *Client) takeAttempt(state string) (core.SignInCallback, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	onComplete, ok := c.attempts[state]
	if ok {
		delete(c.attempts, state)
	}
	return onComplete, ok
}

func (c *Client) takeRevocable() *CachedToken {
	c.mu.Lock()
	defer c.mu.Unlock()
	token := c.revocable
	c.revocable = nil
	return token
}

func (c *Client) matchesRedirect(parsed *url.URL) bool {
	if !strings.EqualFold(parsed.Scheme, c.redirect.Scheme) {
		return false
	}
	if !strings.EqualFold(parsed.Host, c.redirect.Host) {
		return false
	}
	return normalizeRedirectPath(parsed.Path) == normalizeRedirectPath(c.redirect.Path)
}

func (c *Client) requestContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(oidc.ClientContext(context.Background(), c.httpClient), c.requestTimeout)
}

func normalizeRedirectPath(path string) string {
	path = strings.TrimSuffix(strings.TrimSpace(path), "/")
	if path == "" {
		return "/"
	}
	return path
}

func defaultScopes() []string {
	return []string{oidc.ScopeOpenID, "profile", "email", oidc.ScopeOfflineAccess}
}

func normalizeRequestScopes(scopes []string) []string {
	normalized := make([]string, 0, len(scopes))
	hasOpenID := false
	for _, scope := range scopes {
		scope = strings.TrimSpace(scope)
		if scope == "" {
			continue
		}
		if strings.EqualFold(scope, oidc.ScopeOpenID) {
			hasOpenID = true
		}
		normalized = append(normalized, scope)
	}
	if len(normalized) == 0 {
		return nil
	}
	if !hasOpenID {
		normalized = append([]string{oidc.ScopeOpenID}, normalized...)
	}
	return normalized
}

// grantedScopes reads the token response scope field. Absent means the
// issuer did not report grants, reported as nil rather than empty.
func grantedScopes(token *oauth2.Token) []string {
	raw, ok := token.Extra("scope").(string)
	if !ok {
		return nil
	}
	fields := strings.Fields(raw)
	if len(fields) == 0 {
		return nil
	}
	return fields
}

func providerAuth(token *oauth2.Token, rawIDToken string) *core.ProviderAuth {
	auth := &core.ProviderAuth{
		TokenType:    token.Type(),
		AccessToken:  token.AccessToken,
		IDToken:      rawIDToken,
		RefreshToken: token.RefreshToken,
	}
	if !token.Expiry.IsZero() {
		expiresAt := token.Expiry.UTC()
		auth.ExpiresAt = &expiresAt
	}
	return auth
}

// normalizeOAuthError maps SDK token-endpoint failures onto the provider
// error shape so the sign-on taxonomy can match on code.
func normalizeOAuthError(err error) error {
	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) {
		code := strings.TrimSpace(retrieveErr.ErrorCode)
		description := strings.TrimSpace(retrieveErr.ErrorDescription)
		if code == "" {
			code = "server_error"
			if description == "" && retrieveErr.Response != nil {
				description = fmt.Sprintf("token endpoint returned status %d", retrieveErr.Response.StatusCode)
			}
		}
		return &core.ProviderError{Code: code, Description: description}
	}
	return err
}

func randomURLSafe(length int) (string, error) {
	raw := make([]byte, length)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("oidc: read random bytes: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(raw), nil
}

func pkceChallenge(verifier string) string {
	hash := sha256.Sum256([]byte(verifier))
	return base64.RawURLEncoding.EncodeToString(hash[:])
}
