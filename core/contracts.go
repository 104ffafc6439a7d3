package core

import (
	"context"
	"time"

	glog "github.com/goliatone/go-logger/glog"
)

// ProviderAuth is the provider-issued credential object attached to a
// provider user. A nil ProviderAuth means the provider returned a user
// without a usable credential.
type ProviderAuth struct {
	TokenType    string
	AccessToken  string
	IDToken      string
	RefreshToken string
	ExpiresAt    *time.Time
	Metadata     map[string]any
}

// ProviderUser is the raw user snapshot handed back by a provider client. A
// nil GrantedScopes slice means the provider did not report grants, which is
// distinct from an empty slice.
type ProviderUser struct {
	ID            string
	Name          string
	GivenName     string
	FamilyName    string
	Email         string
	AvatarURL     string
	GrantedScopes []string
	Auth          *ProviderAuth
}

// PresentationContext is the opaque UI anchor the host supplies for an
// interactive sign-in: where and how the provider client should present the
// authorization step. The core never inspects it beyond logging the surface.
type PresentationContext struct {
	Surface  string
	ReturnTo string
	Locale   string
	Metadata map[string]any
}

// SignInCallback completes an interactive or silent sign-in attempt. Exactly
// one of user/err is expected; both-nil and both-set are provider contract
// violations the orchestrator maps through the error taxonomy.
type SignInCallback func(user *ProviderUser, err error)

// DisconnectCallback completes a disconnect call; nil means success.
type DisconnectCallback func(err error)

// ProviderClient is the consumed identity-provider SDK contract. Calls that
// complete asynchronously take completion callbacks; the orchestrator wraps
// each callback in a one-shot channel and suspends on it.
type ProviderClient interface {
	ID() string

	// SignIn starts an interactive sign-in using the given presentation
	// context and scope list. The callback fires exactly once with the
	// provider outcome.
	SignIn(presentation PresentationContext, scopes []string, onComplete SignInCallback)

	// RestorePreviousSession silently re-establishes a prior session if the
	// provider client holds one. No stored session is reported as (nil, nil).
	RestorePreviousSession(onComplete SignInCallback)

	// SignOut clears local sign-in state. Fire-and-forget.
	SignOut()

	// Disconnect revokes the provider-side account link and reports the
	// outcome through the callback.
	Disconnect(onComplete DisconnectCallback)

	// HandleRedirectURL offers an inbound URL to the client and reports
	// whether the client recognized and consumed it.
	HandleRedirectURL(rawURL string) bool
}

// ClientRegistry indexes provider clients by ID for hosts that wire more
// than one identity provider.
type ClientRegistry interface {
	Register(client ProviderClient) error
	Get(providerID string) (ProviderClient, bool)
	List() []ProviderClient
}

type SignOnActivityFilter struct {
	ProviderID string
	Action     string
	Subject    string
	Status     SignOnActivityStatus
	From       *time.Time
	To         *time.Time
	Page       int
	PerPage    int
}

type SignOnActivityPage struct {
	Items   []SignOnActivityEntry
	Page    int
	PerPage int
	Total   int
	HasNext bool
}

// SignOnActivitySink records sign-on attempt entries and serves reads over
// them. Record must never block the orchestrator.
type SignOnActivitySink interface {
	Record(ctx context.Context, entry SignOnActivityEntry) error
	List(ctx context.Context, filter SignOnActivityFilter) (SignOnActivityPage, error)
}

type Logger = glog.Logger

type LoggerProvider = glog.LoggerProvider

type FieldsLogger = glog.FieldsLogger

type JobExecutionMessage struct {
	JobID          string
	ScriptPath     string
	Parameters     map[string]any
	IdempotencyKey string
	DedupPolicy    string
}

type JobNackOptions struct {
	Delay      time.Duration
	Requeue    bool
	DeadLetter bool
	Reason     string
}

type JobEnqueuer interface {
	Enqueue(ctx context.Context, msg *JobExecutionMessage) error
}

type JobDelivery interface {
	Message() *JobExecutionMessage
	Ack(ctx context.Context) error
	Nack(ctx context.Context, opts JobNackOptions) error
}

type JobDequeuer interface {
	Dequeue(ctx context.Context) (JobDelivery, error)
}

type JobWorkerHook interface {
	OnStart(ctx context.Context, event JobWorkerEvent)
	OnSuccess(ctx context.Context, event JobWorkerEvent)
	OnFailure(ctx context.Context, event JobWorkerEvent)
	OnRetry(ctx context.Context, event JobWorkerEvent)
}

type JobWorkerEvent struct {
	Message   *JobExecutionMessage
	Attempt   int
	Delay     time.Duration
	Err       error
	StartedAt time.Time
	Duration  time.Duration
}
