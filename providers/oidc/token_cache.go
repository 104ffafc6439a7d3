package oidc

import (
	"context"
	"sync"
	"time"

	"golang.org/x/oauth2"
)

// CachedToken is the persisted credential snapshot a client restores silent
// sessions from. IDToken keeps the raw JWT because oauth2.Token drops its
// extra fields on the floor once serialized.
type CachedToken struct {
	TokenType    string
	AccessToken  string
	RefreshToken string
	IDToken      string
	Expiry       time.Time
	Scopes       []string
}

// OAuth2Token rebuilds the SDK token so a TokenSource can refresh it.
func (t CachedToken) OAuth2Token() *oauth2.Token {
	return &oauth2.Token{
		TokenType:    t.TokenType,
		AccessToken:  t.AccessToken,
		RefreshToken: t.RefreshToken,
		Expiry:       t.Expiry,
	}
}

// TokenCache persists one credential per provider client. Load returns
// (nil, nil) when nothing is stored; hosts back it with their keychain or
// secret store of choice.
type TokenCache interface {
	Load(ctx context.Context) (*CachedToken, error)
	Save(ctx context.Context, token CachedToken) error
	Clear(ctx context.Context) error
}

type MemoryTokenCache struct {
	mu    sync.Mutex
	token *CachedToken
}

func NewMemoryTokenCache() *MemoryTokenCache {
	return &MemoryTokenCache{}
}

func (c *MemoryTokenCache) Load(_ context.Context) (*CachedToken, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.token == nil {
		return nil, nil
	}
	cloned := cloneCachedToken(*c.token)
	return &cloned, nil
}

func (c *MemoryTokenCache) Save(_ context.Context, token CachedToken) error {
	cloned := cloneCachedToken(token)
	c.mu.Lock()
	c.token = &cloned
	c.mu.Unlock()
	return nil
}

func (c *MemoryTokenCache) Clear(_ context.Context) error {
	c.mu.Lock()
	c.token = nil
	c.mu.Unlock()
	return nil
}

func cloneCachedToken(token CachedToken) CachedToken {
	cloned := token
	if token.Scopes != nil {
		cloned.Scopes = append([]string(nil), token.Scopes...)
	}
	return cloned
}
