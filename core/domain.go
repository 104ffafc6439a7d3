package core

import (
	"errors"
	"fmt"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

var (
	ErrNilProviderUser     = errors.New("core: provider user is nil")
	ErrMissingProfileData  = errors.New("core: provider user is missing profile data")
	ErrMissingCredential   = errors.New("core: provider user has no usable credential")
	ErrInvalidSessionPhase = errors.New("core: invalid session phase")
)

type SessionPhase string

const (
	SessionPhaseDisconnected SessionPhase = "disconnected"
	SessionPhaseConnected    SessionPhase = "connected"
	SessionPhaseFailed       SessionPhase = "failed"
)

func (p SessionPhase) Validate() error {
	switch p {
	case SessionPhaseDisconnected, SessionPhaseConnected, SessionPhaseFailed:
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrInvalidSessionPhase, string(p))
	}
}

type SessionOrigin string

const (
	SessionOriginInteractive SessionOrigin = "interactive"
	SessionOriginRestored    SessionOrigin = "restored"
)

// SessionState is the single host-visible value: exactly one phase is current
// at any time. Connected always carries a fully-built Session, Failed always
// carries the domain error; Disconnected carries nothing.
type SessionState struct {
	Phase   SessionPhase
	Session *Session
	Failure *goerrors.Error
}

func DisconnectedState() SessionState {
	return SessionState{Phase: SessionPhaseDisconnected}
}

func ConnectedState(session Session) SessionState {
	return SessionState{Phase: SessionPhaseConnected, Session: &session}
}

func FailedState(failure *goerrors.Error) SessionState {
	return SessionState{Phase: SessionPhaseFailed, Failure: ensureSignOnErrorEnvelope(failure)}
}

func (s SessionState) IsConnected() bool {
	return s.Phase == SessionPhaseConnected && s.Session != nil
}

func (s SessionState) IsFailed() bool {
	return s.Phase == SessionPhaseFailed && s.Failure != nil
}

// Profile is the immutable projection of provider user display data. It is
// built once per sign-in event and never mutated.
type Profile struct {
	ID         string
	Name       string
	GivenName  string
	FamilyName string
	Email      string
	AvatarURL  string
}

func NewProfile(user *ProviderUser) (Profile, error) {
	if user == nil {
		return Profile{}, ErrNilProviderUser
	}
	id := strings.TrimSpace(user.ID)
	if id == "" {
		return Profile{}, fmt.Errorf("%w: empty subject id", ErrMissingProfileData)
	}
	return Profile{
		ID:         id,
		Name:       strings.TrimSpace(user.Name),
		GivenName:  strings.TrimSpace(user.GivenName),
		FamilyName: strings.TrimSpace(user.FamilyName),
		Email:      strings.TrimSpace(user.Email),
		AvatarURL:  strings.TrimSpace(user.AvatarURL),
	}, nil
}

// RemoteSession is the immutable projection of the provider-issued credential
// the host uses to call backends on the user's behalf.
type RemoteSession struct {
	TokenType     string
	AccessToken   string
	IDToken       string
	RefreshToken  string
	ExpiresAt     *time.Time
	GrantedScopes []string
}

func NewRemoteSession(user *ProviderUser) (RemoteSession, error) {
	if user == nil {
		return RemoteSession{}, ErrNilProviderUser
	}
	auth := user.Auth
	if auth == nil {
		return RemoteSession{}, fmt.Errorf("%w: nil auth object", ErrMissingCredential)
	}
	if strings.TrimSpace(auth.AccessToken) == "" && strings.TrimSpace(auth.IDToken) == "" {
		return RemoteSession{}, fmt.Errorf("%w: empty tokens", ErrMissingCredential)
	}
	remote := RemoteSession{
		TokenType:     strings.TrimSpace(auth.TokenType),
		AccessToken:   strings.TrimSpace(auth.AccessToken),
		IDToken:       strings.TrimSpace(auth.IDToken),
		RefreshToken:  strings.TrimSpace(auth.RefreshToken),
		GrantedScopes: normalizeScopes(user.GrantedScopes),
	}
	if auth.ExpiresAt != nil {
		expiresAt := auth.ExpiresAt.UTC()
		remote.ExpiresAt = &expiresAt
	}
	return remote, nil
}

// Session pairs one Profile with one RemoteSession. It exists only when both
// projections succeed; partial construction is not representable.
type Session struct {
	Profile       Profile
	Remote        RemoteSession
	Origin        SessionOrigin
	EstablishedAt time.Time
}

// BuildSession attempts both projections independently from the same provider
// user and succeeds only when both do.
func BuildSession(user *ProviderUser, origin SessionOrigin, now time.Time) (Session, error) {
	profile, profileErr := NewProfile(user)
	remote, remoteErr := NewRemoteSession(user)
	if err := errors.Join(profileErr, remoteErr); err != nil {
		return Session{}, fmt.Errorf("core: build session: %w", err)
	}
	if origin == "" {
		origin = SessionOriginInteractive
	}
	return Session{
		Profile:       profile,
		Remote:        remote,
		Origin:        origin,
		EstablishedAt: now.UTC(),
	}, nil
}

type SignOnActivityStatus string

const (
	SignOnActivityStatusOK    SignOnActivityStatus = "ok"
	SignOnActivityStatusWarn  SignOnActivityStatus = "warn"
	SignOnActivityStatusError SignOnActivityStatus = "error"
)

// SignOnActivityEntry is one row of the sign-on attempt trail: which
// operation ran, against which provider, and how it settled.
type SignOnActivityEntry struct {
	ID         string
	ProviderID string
	Action     string
	Subject    string
	Phase      SessionPhase
	Status     SignOnActivityStatus
	ErrorCode  int
	ErrorText  string
	Metadata   map[string]any
	OccurredAt time.Time
}
