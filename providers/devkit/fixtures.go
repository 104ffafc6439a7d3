// Package devkit ships scripted fixtures and conformance validators for the
// provider client contract, so hosts can exercise their sign-on wiring
// without a live identity provider.
package devkit

import (
	"strings"
	"sync"
	"time"

	"github.com/goliatone/go-signon/core"
)

// SignInScript is one scripted provider outcome. Exactly one of User/Err
// should be set; both-nil restores mean "no previous session".
type SignInScript struct {
	User *core.ProviderUser
	Err  error
}

// ProviderClientFixture is a scripted core.ProviderClient. Sign-in and
// restore outcomes replay in order and repeat the last script once the queue
// is exhausted; every call is recorded for assertions.
type ProviderClientFixture struct {
	mu              sync.Mutex
	providerID      string
	signInScripts   []SignInScript
	signInIndex     int
	restoreScripts  []SignInScript
	restoreIndex    int
	disconnectErr   error
	redirectMatcher func(rawURL string) bool
	calls           []string
	presentations   []core.PresentationContext
	requestedScopes [][]string
	redirectURLs    []string
}

func NewProviderClientFixture(providerID string) *ProviderClientFixture {
	providerID = strings.TrimSpace(strings.ToLower(providerID))
	if providerID == "" {
		providerID = "devkit"
	}
	return &ProviderClientFixture{providerID: providerID}
}

// UserFixture returns a provider user that passes the session projections:
// non-empty subject and a credential with a live access token.
func UserFixture(subject string) *core.ProviderUser {
	subject = strings.TrimSpace(subject)
	if subject == "" {
		subject = "devkit_user"
	}
	expiresAt := time.Now().Add(time.Hour).UTC()
	return &core.ProviderUser{
		ID:            subject,
		Name:          "Devkit User",
		Email:         subject + "@devkit.example",
		GrantedScopes: []string{"openid", "profile", "email"},
		Auth: &core.ProviderAuth{
			TokenType:   "Bearer",
			AccessToken: "devkit_access_" + subject,
			IDToken:     "devkit_id_" + subject,
			ExpiresAt:   &expiresAt,
		},
	}
}

// QueueSignInOutcome appends one scripted interactive sign-in outcome.
func (f *ProviderClientFixture) QueueSignInOutcome(user *core.ProviderUser, err error) {
	f.mu.Lock()
	f.signInScripts = append(f.signInScripts, SignInScript{User: user, Err: err})
	f.mu.Unlock()
}

// QueueRestoreOutcome appends one scripted restore outcome. With no scripts
// queued, restores report (nil, nil).
func (f *ProviderClientFixture) QueueRestoreOutcome(user *core.ProviderUser, err error) {
	f.mu.Lock()
	f.restoreScripts = append(f.restoreScripts, SignInScript{User: user, Err: err})
	f.mu.Unlock()
}

// SeedRestoreUser scripts a successful silent restore for the given user.
func (f *ProviderClientFixture) SeedRestoreUser(user *core.ProviderUser) {
	f.QueueRestoreOutcome(user, nil)
}

// FailDisconnect makes subsequent Disconnect calls report err; nil restores
// the default success.
func (f *ProviderClientFixture) FailDisconnect(err error) {
	f.mu.Lock()
	f.disconnectErr = err
	f.mu.Unlock()
}

// SetRedirectMatcher decides which URLs HandleRedirectURL consumes. Without
// one, every URL is reported as foreign.
func (f *ProviderClientFixture) SetRedirectMatcher(matcher func(rawURL string) bool) {
	f.mu.Lock()
	f.redirectMatcher = matcher
	f.mu.Unlock()
}

func (f *ProviderClientFixture) ID() string {
	if f == nil {
		return ""
	}
	return f.providerID
}

func (f *ProviderClientFixture) SignIn(presentation core.PresentationContext, scopes []string, onComplete core.SignInCallback) {
	if f == nil || onComplete == nil {
		return
	}
	f.mu.Lock()
	f.calls = append(f.calls, "sign_in")
	f.presentations = append(f.presentations, presentation)
	f.requestedScopes = append(f.requestedScopes, append([]string(nil), scopes...))
	script := nextScript(f.signInScripts, &f.signInIndex, SignInScript{User: UserFixture("")})
	f.mu.Unlock()

	go onComplete(script.User, script.Err)
}

func (f *ProviderClientFixture) RestorePreviousSession(onComplete core.SignInCallback) {
	if f == nil || onComplete == nil {
		return
	}
	f.mu.Lock()
	f.calls = append(f.calls, "restore")
	script := nextScript(f.restoreScripts, &f.restoreIndex, SignInScript{})
	f.mu.Unlock()

	go onComplete(script.User, script.Err)
}

func (f *ProviderClientFixture) SignOut() {
	if f == nil {
		return
	}
	f.mu.Lock()
	f.calls = append(f.calls, "sign_out")
	f.mu.Unlock()
}

func (f *ProviderClientFixture) Disconnect(onComplete core.DisconnectCallback) {
	if f == nil || onComplete == nil {
		return
	}
	f.mu.Lock()
	f.calls = append(f.calls, "disconnect")
	err := f.disconnectErr
	f.mu.Unlock()

	go onComplete(err)
}

func (f *ProviderClientFixture) HandleRedirectURL(rawURL string) bool {
	if f == nil {
		return false
	}
	f.mu.Lock()
	f.calls = append(f.calls, "handle_redirect")
	f.redirectURLs = append(f.redirectURLs, rawURL)
	matcher := f.redirectMatcher
	f.mu.Unlock()

	if matcher == nil {
		return false
	}
	return matcher(rawURL)
}

// Calls returns the recorded call names in order.
func (f *ProviderClientFixture) Calls() []string {
	if f == nil {
		return nil
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

// CallCount counts recorded calls with the given name.
func (f *ProviderClientFixture) CallCount(name string) int {
	count := 0
	for _, call := range f.Calls() {
		if call == name {
			count++
		}
	}
	return count
}

// Presentations returns the presentation contexts passed to SignIn.
func (f *ProviderClientFixture) Presentations() []core.PresentationContext {
	if f == nil {
		return nil
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]core.PresentationContext(nil), f.presentations...)
}

// RequestedScopes returns the scope lists passed to SignIn.
func (f *ProviderClientFixture) RequestedScopes() [][]string {
	if f == nil {
		return nil
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([][]string, 0, len(f.requestedScopes))
	for _, scopes := range f.requestedScopes {
		out = append(out, append([]string(nil), scopes...))
	}
	return out
}

// RedirectURLs returns the URLs offered to HandleRedirectURL.
func (f *ProviderClientFixture) RedirectURLs() []string {
	if f == nil {
		return nil
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.redirectURLs...)
}

func nextScript(scripts []SignInScript, index *int, fallback SignInScript) SignInScript {
	if *index < len(scripts) {
		script := scripts[*index]
		*index++
		return script
	}
	if len(scripts) > 0 {
		return scripts[len(scripts)-1]
	}
	return fallback
}

var _ core.ProviderClient = (*ProviderClientFixture)(nil)
