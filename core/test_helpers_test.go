package core

import (
	"context"
	"sync"
	"testing"
	"time"
)

// scriptedClient is a ProviderClient whose outcomes are fixed up front. Each
// completion callback fires on its own goroutine, the way a real SDK bridge
// delivers them.
type scriptedClient struct {
	mu sync.Mutex

	id string

	signInUser *ProviderUser
	signInErr  error

	restoreUser *ProviderUser
	restoreErr  error

	disconnectErr error

	handledURLs map[string]bool

	signInCalls     int
	restoreCalls    int
	signOutCalls    int
	disconnectCalls int
	redirectCalls   []string
	lastScopes      []string
	lastSurface     string
}

func newScriptedClient(id string) *scriptedClient {
	return &scriptedClient{id: id, handledURLs: map[string]bool{}}
}

func (c *scriptedClient) ID() string { return c.id }

func (c *scriptedClient) SignIn(presentation PresentationContext, scopes []string, onComplete SignInCallback) {
	c.mu.Lock()
	c.signInCalls++
	c.lastScopes = append([]string(nil), scopes...)
	c.lastSurface = presentation.Surface
	user, err := c.signInUser, c.signInErr
	c.mu.Unlock()
	go onComplete(user, err)
}

func (c *scriptedClient) RestorePreviousSession(onComplete SignInCallback) {
	c.mu.Lock()
	c.restoreCalls++
	user, err := c.restoreUser, c.restoreErr
	c.mu.Unlock()
	go onComplete(user, err)
}

func (c *scriptedClient) SignOut() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.signOutCalls++
}

func (c *scriptedClient) Disconnect(onComplete DisconnectCallback) {
	c.mu.Lock()
	c.disconnectCalls++
	err := c.disconnectErr
	c.mu.Unlock()
	go onComplete(err)
}

func (c *scriptedClient) HandleRedirectURL(rawURL string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.redirectCalls = append(c.redirectCalls, rawURL)
	return c.handledURLs[rawURL]
}

func (c *scriptedClient) calls() (signIn, restore, signOut, disconnect int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.signInCalls, c.restoreCalls, c.signOutCalls, c.disconnectCalls
}

func validProviderUser() *ProviderUser {
	return &ProviderUser{
		ID:            "usr_1",
		Name:          "Ada Lovelace",
		GivenName:     "Ada",
		FamilyName:    "Lovelace",
		Email:         "ada@example.com",
		GrantedScopes: []string{"openid", "profile", "email"},
		Auth: &ProviderAuth{
			TokenType:   "Bearer",
			AccessToken: "access_token_1",
			IDToken:     "id_token_1",
		},
	}
}

type stubLogger struct{}

func (stubLogger) Trace(string, ...any) {}
func (stubLogger) Debug(string, ...any) {}
func (stubLogger) Info(string, ...any)  {}
func (stubLogger) Warn(string, ...any)  {}
func (stubLogger) Error(string, ...any) {}
func (stubLogger) Fatal(string, ...any) {}
func (s stubLogger) WithContext(context.Context) Logger {
	return s
}

type stubLoggerProvider struct {
	logger Logger
}

func (s stubLoggerProvider) GetLogger(string) Logger {
	return s.logger
}

type mapRawLoader struct {
	values map[string]any
}

func (l mapRawLoader) LoadRaw(context.Context) (map[string]any, error) {
	if len(l.values) == 0 {
		return map[string]any{}, nil
	}
	out := make(map[string]any, len(l.values))
	for key, value := range l.values {
		out[key] = value
	}
	return out, nil
}

type funcStateHook struct {
	name string
	fn   func(ctx context.Context, state SessionState) error
}

func (h funcStateHook) Name() string { return h.name }

func (h funcStateHook) OnState(ctx context.Context, state SessionState) error {
	if h.fn == nil {
		return nil
	}
	return h.fn(ctx, state)
}

// awaitState drains the channel until a state with the wanted phase arrives.
func awaitState(t *testing.T, ch <-chan SessionState, phase SessionPhase) SessionState {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case state, ok := <-ch:
			if !ok {
				t.Fatalf("state channel closed while waiting for phase %q", phase)
			}
			if state.Phase == phase {
				return state
			}
		case <-deadline:
			t.Fatalf("timed out waiting for phase %q", phase)
		}
	}
}

func awaitCondition(t *testing.T, check func() bool, message string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if check() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for condition: %s", message)
}

func newTestOrchestrator(t *testing.T, client ProviderClient, options ...Option) *Orchestrator {
	t.Helper()
	base := []Option{
		WithLogger(stubLogger{}),
		WithProviderClient(client),
		WithActivitySink(NewMemoryActivityStore()),
	}
	orchestrator, err := NewOrchestrator(Config{}, append(base, options...)...)
	if err != nil {
		t.Fatalf("new orchestrator: %v", err)
	}
	return orchestrator
}
