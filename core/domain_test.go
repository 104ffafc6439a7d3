package core

import (
	"errors"
	"testing"
	"time"
)

func TestNewProfile_RequiresSubjectID(t *testing.T) {
	if _, err := NewProfile(nil); !errors.Is(err, ErrNilProviderUser) {
		t.Fatalf("expected nil provider user error, got %v", err)
	}

	_, err := NewProfile(&ProviderUser{ID: "   "})
	if !errors.Is(err, ErrMissingProfileData) {
		t.Fatalf("expected missing profile data error, got %v", err)
	}

	profile, err := NewProfile(&ProviderUser{ID: " usr_1 ", Name: " Ada ", Email: " ada@example.com "})
	if err != nil {
		t.Fatalf("new profile: %v", err)
	}
	if profile.ID != "usr_1" || profile.Name != "Ada" || profile.Email != "ada@example.com" {
		t.Fatalf("expected trimmed fields, got %#v", profile)
	}
}

func TestNewRemoteSession_RequiresUsableCredential(t *testing.T) {
	if _, err := NewRemoteSession(&ProviderUser{ID: "usr_1"}); !errors.Is(err, ErrMissingCredential) {
		t.Fatalf("expected missing credential for nil auth, got %v", err)
	}

	_, err := NewRemoteSession(&ProviderUser{
		ID:   "usr_1",
		Auth: &ProviderAuth{TokenType: "Bearer"},
	})
	if !errors.Is(err, ErrMissingCredential) {
		t.Fatalf("expected missing credential for empty tokens, got %v", err)
	}

	expiry := time.Date(2026, 3, 1, 12, 0, 0, 0, time.FixedZone("CET", 3600))
	remote, err := NewRemoteSession(&ProviderUser{
		ID:            "usr_1",
		GrantedScopes: []string{"Profile", "email", "profile"},
		Auth: &ProviderAuth{
			TokenType:   " Bearer ",
			AccessToken: " token ",
			ExpiresAt:   &expiry,
		},
	})
	if err != nil {
		t.Fatalf("new remote session: %v", err)
	}
	if remote.AccessToken != "token" || remote.TokenType != "Bearer" {
		t.Fatalf("expected trimmed credential fields, got %#v", remote)
	}
	if remote.ExpiresAt == nil || remote.ExpiresAt.Location() != time.UTC {
		t.Fatalf("expected expiry normalized to UTC, got %#v", remote.ExpiresAt)
	}
	if len(remote.GrantedScopes) != 2 || remote.GrantedScopes[0] != "email" || remote.GrantedScopes[1] != "profile" {
		t.Fatalf("expected normalized scopes, got %v", remote.GrantedScopes)
	}
}

func TestNewRemoteSession_IDTokenOnlyCredentialIsUsable(t *testing.T) {
	remote, err := NewRemoteSession(&ProviderUser{
		ID:   "usr_1",
		Auth: &ProviderAuth{IDToken: "id_token"},
	})
	if err != nil {
		t.Fatalf("new remote session: %v", err)
	}
	if remote.IDToken != "id_token" {
		t.Fatalf("expected id token carried, got %#v", remote)
	}
	if remote.GrantedScopes != nil {
		t.Fatalf("expected unreported scopes to stay nil, got %#v", remote.GrantedScopes)
	}
}

func TestBuildSession_BothProjectionsOrNothing(t *testing.T) {
	now := time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)

	session, err := BuildSession(validProviderUser(), SessionOriginInteractive, now)
	if err != nil {
		t.Fatalf("build session: %v", err)
	}
	if session.Profile.ID != "usr_1" {
		t.Fatalf("expected profile projection, got %#v", session.Profile)
	}
	if session.Remote.AccessToken != "access_token_1" {
		t.Fatalf("expected remote projection, got %#v", session.Remote)
	}
	if session.Origin != SessionOriginInteractive {
		t.Fatalf("expected interactive origin, got %q", session.Origin)
	}
	if !session.EstablishedAt.Equal(now) {
		t.Fatalf("expected established at %v, got %v", now, session.EstablishedAt)
	}

	// Valid profile, no credential: the session must not exist at all.
	_, err = BuildSession(&ProviderUser{ID: "usr_1"}, SessionOriginInteractive, now)
	if !errors.Is(err, ErrMissingCredential) {
		t.Fatalf("expected missing credential, got %v", err)
	}

	// Valid credential, no profile: same.
	_, err = BuildSession(&ProviderUser{Auth: &ProviderAuth{AccessToken: "token"}}, SessionOriginInteractive, now)
	if !errors.Is(err, ErrMissingProfileData) {
		t.Fatalf("expected missing profile data, got %v", err)
	}

	// Both failures surface together.
	_, err = BuildSession(&ProviderUser{}, SessionOriginInteractive, now)
	if !errors.Is(err, ErrMissingProfileData) || !errors.Is(err, ErrMissingCredential) {
		t.Fatalf("expected joined projection failures, got %v", err)
	}
}

func TestBuildSession_DefaultsOriginToInteractive(t *testing.T) {
	session, err := BuildSession(validProviderUser(), "", time.Now())
	if err != nil {
		t.Fatalf("build session: %v", err)
	}
	if session.Origin != SessionOriginInteractive {
		t.Fatalf("expected interactive default, got %q", session.Origin)
	}
	if session.EstablishedAt.Location() != time.UTC {
		t.Fatalf("expected UTC established at, got %v", session.EstablishedAt)
	}
}

func TestSessionPhase_Validate(t *testing.T) {
	for _, phase := range []SessionPhase{SessionPhaseDisconnected, SessionPhaseConnected, SessionPhaseFailed} {
		if err := phase.Validate(); err != nil {
			t.Fatalf("expected %q to validate, got %v", phase, err)
		}
	}
	if err := SessionPhase("authenticated").Validate(); !errors.Is(err, ErrInvalidSessionPhase) {
		t.Fatalf("expected invalid phase error, got %v", err)
	}
}

func TestFailedState_NormalizesEnvelope(t *testing.T) {
	state := FailedState(UndefinedUser())
	if !state.IsFailed() {
		t.Fatalf("expected failed state")
	}
	if state.Failure.Code != CodeUndefinedUser {
		t.Fatalf("expected code %d, got %d", CodeUndefinedUser, state.Failure.Code)
	}
	if state.IsConnected() {
		t.Fatalf("failed state must not read as connected")
	}

	disconnected := DisconnectedState()
	if disconnected.Session != nil || disconnected.Failure != nil {
		t.Fatalf("disconnected state must carry nothing, got %#v", disconnected)
	}
}
