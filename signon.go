package signon

import "github.com/goliatone/go-signon/core"

type Config = core.Config

type ActivityConfig = core.ActivityConfig

type Option = core.Option

type Orchestrator = core.Orchestrator

type OrchestratorDependencies = core.OrchestratorDependencies
type ProviderClient = core.ProviderClient
type ClientRegistry = core.ClientRegistry
type PendingAuthStore = core.PendingAuthStore
type PendingAuthRecord = core.PendingAuthRecord
type SignOnActivitySink = core.SignOnActivitySink
type SignOnActivityEntry = core.SignOnActivityEntry
type SignOnActivityFilter = core.SignOnActivityFilter
type SignOnActivityPage = core.SignOnActivityPage
type ActivityStoreFactory = core.ActivityStoreFactory
type ActivityRetentionPolicy = core.ActivityRetentionPolicy
type StateHook = core.StateHook
type StateHookCoordinator = core.StateHookCoordinator
type MetricsRecorder = core.MetricsRecorder

type SessionState = core.SessionState
type SessionPhase = core.SessionPhase
type Session = core.Session
type SessionOrigin = core.SessionOrigin
type Profile = core.Profile
type RemoteSession = core.RemoteSession

type PresentationContext = core.PresentationContext

type ProviderUser = core.ProviderUser

type ProviderAuth = core.ProviderAuth

type ProviderError = core.ProviderError

var (
	WithLogger            = core.WithLogger
	WithLoggerProvider    = core.WithLoggerProvider
	WithMetricsRecorder   = core.WithMetricsRecorder
	WithErrorFactory      = core.WithErrorFactory
	WithErrorMapper       = core.WithErrorMapper
	WithConfigProvider    = core.WithConfigProvider
	WithOptionsResolver   = core.WithOptionsResolver
	WithProviderClient    = core.WithProviderClient
	WithClientRegistry    = core.WithClientRegistry
	WithPendingAuthStore  = core.WithPendingAuthStore
	WithActivitySink      = core.WithActivitySink
	WithStateHooks        = core.WithStateHooks
	WithPersistenceClient = core.WithPersistenceClient
	WithRepositoryFactory = core.WithRepositoryFactory
)

func DefaultConfig() Config {
	return core.DefaultConfig()
}

func New(cfg Config, opts ...Option) (*Orchestrator, error) {
	return core.NewOrchestrator(cfg, opts...)
}

func Setup(cfg Config, opts ...Option) (*Orchestrator, error) {
	return core.Setup(cfg, opts...)
}
