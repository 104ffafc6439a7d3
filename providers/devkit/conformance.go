package devkit

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/goliatone/go-signon/core"
)

const (
	conformanceTimeout = 5 * time.Second
	doubleFireWindow   = 50 * time.Millisecond
)

// ValidateProviderClientConformance probes the parts of the provider client
// contract observable without an interactive flow: a stable ID, restore
// completing exactly once with a coherent outcome, foreign redirect URLs
// left alone, and sign-out/disconnect finishing. The probe drives sign-out
// and disconnect, so run it against a throwaway client.
func ValidateProviderClientConformance(ctx context.Context, client core.ProviderClient) error {
	if client == nil {
		return fmt.Errorf("devkit: provider client is required")
	}
	if strings.TrimSpace(client.ID()) == "" {
		return fmt.Errorf("devkit: provider client id is required")
	}
	if client.ID() != strings.TrimSpace(strings.ToLower(client.ID())) {
		return fmt.Errorf("devkit: provider client id should be lower-case and trimmed, got %q", client.ID())
	}
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, conformanceTimeout)
	defer cancel()

	type restoreOutcome struct {
		user *core.ProviderUser
		err  error
	}
	outcomes := make(chan restoreOutcome, 2)
	client.RestorePreviousSession(func(user *core.ProviderUser, err error) {
		outcomes <- restoreOutcome{user: user, err: err}
	})

	select {
	case outcome := <-outcomes:
		if outcome.user != nil && outcome.err != nil {
			return fmt.Errorf("devkit: restore reported both a user and an error")
		}
		if outcome.user != nil {
			if strings.TrimSpace(outcome.user.ID) == "" {
				return fmt.Errorf("devkit: restored user is missing a subject id")
			}
			if outcome.user.Auth == nil {
				return fmt.Errorf("devkit: restored user is missing a credential")
			}
		}
	case <-ctx.Done():
		return fmt.Errorf("devkit: restore did not complete: %w", ctx.Err())
	}

	select {
	case <-outcomes:
		return fmt.Errorf("devkit: restore callback fired more than once")
	case <-time.After(doubleFireWindow):
	}

	if client.HandleRedirectURL("https://conformance.devkit.invalid/callback?state=devkit_probe") {
		return fmt.Errorf("devkit: client consumed a foreign redirect url")
	}

	client.SignOut()

	disconnects := make(chan error, 2)
	client.Disconnect(func(err error) { disconnects <- err })
	select {
	case <-disconnects:
	case <-ctx.Done():
		return fmt.Errorf("devkit: disconnect did not complete: %w", ctx.Err())
	}
	select {
	case <-disconnects:
		return fmt.Errorf("devkit: disconnect callback fired more than once")
	case <-time.After(doubleFireWindow):
	}

	return nil
}

// ValidatePendingAuthStoreConformance checks one-shot consume semantics on a
// pending-auth store implementation.
func ValidatePendingAuthStoreConformance(ctx context.Context, store core.PendingAuthStore) error {
	if store == nil {
		return fmt.Errorf("devkit: pending auth store is required")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	state, err := core.GeneratePendingAuthState()
	if err != nil {
		return fmt.Errorf("devkit: generate probe state: %w", err)
	}
	record := core.PendingAuthRecord{
		State:      state,
		ProviderID: "devkit",
		Scopes:     []string{"openid", "email"},
		Nonce:      "devkit_nonce",
		Verifier:   "devkit_verifier",
		Metadata:   map[string]any{"surface": "conformance"},
	}
	if err := store.Save(ctx, record); err != nil {
		return fmt.Errorf("devkit: save pending auth record: %w", err)
	}

	loaded, err := store.Consume(ctx, state)
	if err != nil {
		return fmt.Errorf("devkit: consume pending auth record: %w", err)
	}
	if loaded.Nonce != record.Nonce || loaded.Verifier != record.Verifier {
		return fmt.Errorf("devkit: consumed record lost its nonce or verifier")
	}
	if len(loaded.Scopes) != len(record.Scopes) {
		return fmt.Errorf("devkit: consumed record lost its scopes")
	}

	if _, err := store.Consume(ctx, state); err == nil {
		return fmt.Errorf("devkit: consume should be one-shot")
	}
	if _, err := store.Consume(ctx, "devkit_unknown_state"); err == nil {
		return fmt.Errorf("devkit: consuming an unknown state should fail")
	}
	if err := store.Save(ctx, core.PendingAuthRecord{}); err == nil {
		return fmt.Errorf("devkit: save should reject an empty state")
	}
	return nil
}
