package core

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	goerrors "github.com/goliatone/go-errors"
	glog "github.com/goliatone/go-logger/glog"
)

// Orchestrator is the top-level sign-on state machine. It owns the state
// publisher, drives the one-shot restore flow, runs the permission gate and
// session construction on interactive sign-in, and maps provider outcomes
// through the domain error taxonomy. All failures surface as Failed states on
// the stream; returned errors mirror them for callers that want both.
type Orchestrator struct {
	config           Config
	logger           Logger
	loggerProvider   LoggerProvider
	metricsRecorder  MetricsRecorder
	errorFactory     ErrorFactory
	errorMapper      ErrorMapper
	configProvider   ConfigProvider
	optionsResolver  OptionsResolver
	client           ProviderClient
	clients          ClientRegistry
	pendingAuthStore PendingAuthStore
	activitySink     SignOnActivitySink
	hooks            *StateHookCoordinator
	publisher        *StatePublisher
	requiredScopes   []string

	restoreOnce sync.Once
}

type OrchestratorDependencies struct {
	Logger           Logger
	LoggerProvider   LoggerProvider
	MetricsRecorder  MetricsRecorder
	ErrorFactory     ErrorFactory
	ErrorMapper      ErrorMapper
	ConfigProvider   ConfigProvider
	OptionsResolver  OptionsResolver
	Client           ProviderClient
	Clients          ClientRegistry
	PendingAuthStore PendingAuthStore
	ActivitySink     SignOnActivitySink
	Hooks            *StateHookCoordinator
}

func NewOrchestrator(cfg Config, options ...Option) (*Orchestrator, error) {
	builder := defaultOrchestratorBuilder(cfg)
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(&builder)
	}

	provider, logger := glog.Resolve("signon", builder.loggerProvider, builder.logger)
	logger = glog.Ensure(logger)
	if provider != nil {
		if named := provider.GetLogger("signon"); named != nil {
			logger = glog.Ensure(named)
		}
	}

	if builder.errorFactory == nil {
		builder.errorFactory = goerrors.New
	}
	if builder.metricsRecorder == nil {
		builder.metricsRecorder = NopMetricsRecorder{}
	}
	if builder.errorMapper == nil {
		builder.errorMapper = defaultErrorMapper
	}
	if builder.configProvider == nil {
		builder.configProvider = NewCfgxConfigProvider(nil)
	}
	if builder.optionsResolver == nil {
		builder.optionsResolver = GoOptionsResolver{}
	}
	if builder.clients == nil {
		builder.clients = NewProviderClientRegistry()
	}
	if builder.pendingAuthStore == nil {
		builder.pendingAuthStore = NewMemoryPendingAuthStore(defaultPendingAuthTTL)
	}
	if builder.hooks == nil {
		builder.hooks = NewStateHookCoordinator()
	}

	defaults := DefaultConfig()
	loaded, err := builder.configProvider.Load(context.Background(), defaults)
	if err != nil {
		return nil, mapBuildError(builder.errorMapper, err)
	}
	finalConfig, err := builder.optionsResolver.Resolve(defaults, loaded, builder.runtimeConfig)
	if err != nil {
		return nil, mapBuildError(builder.errorMapper, err)
	}

	client := builder.client
	if client == nil {
		if providerID := strings.TrimSpace(finalConfig.ProviderID); providerID != "" {
			if registered, ok := builder.clients.Get(providerID); ok {
				client = registered
			}
		}
	}
	if client == nil {
		return nil, mapBuildError(builder.errorMapper, fmt.Errorf("core: provider client is required"))
	}

	if builder.activitySink == nil && builder.repositoryFactory != nil {
		if factory, ok := builder.repositoryFactory.(ActivityStoreFactory); ok {
			store, buildErr := factory.BuildActivityStore(builder.persistenceClient)
			if buildErr != nil {
				return nil, mapBuildError(builder.errorMapper, buildErr)
			}
			if store != nil {
				buffered, sinkErr := NewBufferedActivitySink(
					store,
					nil,
					finalConfig.RetentionPolicy(),
					finalConfig.Activity.BufferSize,
				)
				if sinkErr != nil {
					return nil, mapBuildError(builder.errorMapper, sinkErr)
				}
				builder.activitySink = buffered
			}
		} else if sink, ok := builder.repositoryFactory.(SignOnActivitySink); ok {
			builder.activitySink = sink
		}
	}

	return &Orchestrator{
		config:           finalConfig,
		logger:           logger,
		loggerProvider:   provider,
		metricsRecorder:  builder.metricsRecorder,
		errorFactory:     builder.errorFactory,
		errorMapper:      builder.errorMapper,
		configProvider:   builder.configProvider,
		optionsResolver:  builder.optionsResolver,
		client:           client,
		clients:          builder.clients,
		pendingAuthStore: builder.pendingAuthStore,
		activitySink:     builder.activitySink,
		hooks:            builder.hooks,
		publisher:        NewStatePublisher(),
		requiredScopes:   append([]string(nil), finalConfig.RequiredScopes...),
	}, nil
}

func Setup(cfg Config, options ...Option) (*Orchestrator, error) {
	return NewOrchestrator(cfg, options...)
}

func mapBuildError(mapper ErrorMapper, err error) error {
	if err == nil {
		return nil
	}
	if mapper == nil {
		return err
	}
	mapped := mapper(err)
	if mapped == nil {
		return err
	}
	return mapped
}

func (s *Orchestrator) Config() Config {
	if s == nil {
		return Config{}
	}
	return s.config
}

func (s *Orchestrator) Dependencies() OrchestratorDependencies {
	if s == nil {
		return OrchestratorDependencies{}
	}
	return OrchestratorDependencies{
		Logger:           s.logger,
		LoggerProvider:   s.loggerProvider,
		MetricsRecorder:  s.metricsRecorder,
		ErrorFactory:     s.errorFactory,
		ErrorMapper:      s.errorMapper,
		ConfigProvider:   s.configProvider,
		OptionsResolver:  s.optionsResolver,
		Client:           s.client,
		Clients:          s.clients,
		PendingAuthStore: s.pendingAuthStore,
		ActivitySink:     s.activitySink,
		Hooks:            s.hooks,
	}
}

// RequiredScopes returns a copy of the scope set fixed at construction.
func (s *Orchestrator) RequiredScopes() []string {
	if s == nil {
		return nil
	}
	return append([]string(nil), s.requiredScopes...)
}

// CurrentState returns the value a new subscriber would be primed with.
func (s *Orchestrator) CurrentState() SessionState {
	if s == nil || s.publisher == nil {
		return DisconnectedState()
	}
	return s.publisher.Current()
}

// Subscribe attaches an observer to the session state stream. The channel is
// primed with the current value; the returned cancel detaches it.
func (s *Orchestrator) Subscribe(buffer int) (<-chan SessionState, func()) {
	if s == nil || s.publisher == nil {
		ch := make(chan SessionState)
		close(ch)
		return ch, func() {}
	}
	return s.publisher.Subscribe(buffer)
}

// Initialize publishes the Disconnected baseline and launches the one-shot
// restore flow on its own goroutine. Calling it again re-publishes
// Disconnected but never relaunches restore.
func (s *Orchestrator) Initialize(ctx context.Context) (err error) {
	if s == nil {
		return fmt.Errorf("core: orchestrator is not configured")
	}
	startedAt := time.Now().UTC()
	fields := map[string]any{
		"provider_id": s.providerID(),
	}
	defer func() {
		s.observeOperation(ctx, startedAt, "initialize", err, fields)
	}()

	s.publishState(ctx, DisconnectedState())
	s.recordActivity(ctx, ActivityActionInitialize, DisconnectedState(), nil)

	s.restoreOnce.Do(func() {
		fields["restore_launched"] = true
		go s.restorePreviousSession(context.Background())
	})
	return nil
}

// SignIn runs one interactive sign-in attempt end to end: provider call,
// permission gate, session construction, and exactly one publish of the
// outcome. The call suspends until the provider completion fires; ctx scopes
// logging and persistence only, it does not cancel the provider attempt.
func (s *Orchestrator) SignIn(ctx context.Context, presentation PresentationContext) (err error) {
	if s == nil {
		return fmt.Errorf("core: orchestrator is not configured")
	}
	startedAt := time.Now().UTC()
	fields := map[string]any{
		"provider_id": s.providerID(),
		"origin":      string(SessionOriginInteractive),
		"surface":     presentation.Surface,
	}
	defer func() {
		s.observeOperation(ctx, startedAt, "sign_in", err, fields)
	}()

	if s.client == nil {
		err = s.mapError(fmt.Errorf("core: provider client is required"))
		return err
	}

	onComplete, outcome := newSignInRelay()
	s.client.SignIn(presentation, s.RequiredScopes(), onComplete)
	result := <-outcome

	state := s.resolveSignInState(result.user, result.err)
	fields["phase"] = string(state.Phase)
	s.publishState(ctx, state)
	s.recordActivity(ctx, ActivityActionSignIn, state, nil)

	if state.Failure != nil {
		err = state.Failure
		return err
	}
	return nil
}

// SignOut clears local sign-in state, then disconnects the provider link and
// publishes the disconnect outcome. The local sign-out has already happened
// by the time a disconnect failure is published.
func (s *Orchestrator) SignOut(ctx context.Context) (err error) {
	if s == nil {
		return fmt.Errorf("core: orchestrator is not configured")
	}
	startedAt := time.Now().UTC()
	fields := map[string]any{
		"provider_id": s.providerID(),
	}
	defer func() {
		s.observeOperation(ctx, startedAt, "sign_out", err, fields)
	}()

	if s.client == nil {
		err = s.mapError(fmt.Errorf("core: provider client is required"))
		return err
	}

	s.client.SignOut()

	onComplete, outcome := newDisconnectRelay()
	s.client.Disconnect(onComplete)
	disconnectErr := <-outcome

	if disconnectErr != nil {
		failure := MapProviderFailure(disconnectErr)
		state := FailedState(failure)
		fields["phase"] = string(state.Phase)
		s.publishState(ctx, state)
		s.recordActivity(ctx, ActivityActionSignOut, state, map[string]any{
			"local_sign_out": "completed",
		})
		s.logWarn(ctx, "provider disconnect failed after local sign-out", map[string]any{
			"provider_id": s.providerID(),
			"error":       failure.Error(),
		})
		err = failure
		return err
	}

	state := DisconnectedState()
	fields["phase"] = string(state.Phase)
	s.publishState(ctx, state)
	s.recordActivity(ctx, ActivityActionSignOut, state, nil)
	return nil
}

// HandleInboundRedirect offers an inbound URL to the provider client and
// reports whether the client recognized and consumed it. No state publish
// happens here; a consumed redirect completes a suspended SignIn call, which
// publishes.
func (s *Orchestrator) HandleInboundRedirect(rawURL string) bool {
	if s == nil || s.client == nil {
		return false
	}
	ctx := context.Background()
	startedAt := time.Now().UTC()
	handled := s.client.HandleRedirectURL(rawURL)

	fields := map[string]any{
		"provider_id": s.providerID(),
		"handled":     handled,
	}
	s.observeOperation(ctx, startedAt, "handle_redirect", nil, fields)
	s.recordActivity(ctx, ActivityActionRedirect, s.CurrentState(), map[string]any{
		"handled": handled,
	})
	return handled
}

// ActivityLog reads the recorded sign-on trail.
func (s *Orchestrator) ActivityLog(ctx context.Context, filter SignOnActivityFilter) (SignOnActivityPage, error) {
	if s == nil || s.activitySink == nil {
		return SignOnActivityPage{}, fmt.Errorf("core: activity sink is not configured")
	}
	page, err := s.activitySink.List(ctx, filter)
	if err != nil {
		return SignOnActivityPage{}, s.mapError(err)
	}
	return page, nil
}

// restorePreviousSession is the one async restore task launched by the first
// Initialize. A restored user skips the permission gate: scopes granted in
// the original interactive sign-in are trusted. No stored session means no
// publish at all.
func (s *Orchestrator) restorePreviousSession(ctx context.Context) {
	if s == nil || s.client == nil {
		return
	}
	startedAt := time.Now().UTC()
	fields := map[string]any{
		"provider_id": s.providerID(),
		"origin":      string(SessionOriginRestored),
	}
	var err error
	defer func() {
		s.observeOperation(ctx, startedAt, "restore", err, fields)
	}()

	onComplete, outcome := newSignInRelay()
	s.client.RestorePreviousSession(onComplete)
	result := <-outcome

	if result.user == nil {
		fields["outcome"] = "no_previous_session"
		baseline := DisconnectedState()
		if result.err != nil {
			err = result.err
			s.recordActivity(ctx, ActivityActionRestore, baseline, map[string]any{
				"outcome": "no_previous_session",
				"error":   result.err.Error(),
			})
			return
		}
		s.recordActivity(ctx, ActivityActionRestore, baseline, map[string]any{
			"outcome": "no_previous_session",
		})
		return
	}

	var state SessionState
	session, buildErr := BuildSession(result.user, SessionOriginRestored, time.Now().UTC())
	if buildErr != nil {
		err = buildErr
		state = FailedState(InvalidUserData(buildErr))
	} else {
		state = ConnectedState(session)
	}
	fields["phase"] = string(state.Phase)
	s.publishState(ctx, state)
	s.recordActivity(ctx, ActivityActionRestore, state, nil)
}

// resolveSignInState maps one interactive provider outcome onto the next
// session state: gate, then session construction, then the error taxonomy.
func (s *Orchestrator) resolveSignInState(user *ProviderUser, callbackErr error) SessionState {
	switch {
	case user != nil && callbackErr != nil:
		return FailedState(Unexpected("provider returned both a user and an error"))
	case user == nil && callbackErr != nil:
		return FailedState(MapProviderFailure(callbackErr))
	case user == nil:
		return FailedState(UndefinedUser())
	}

	if !ScopesSatisfy(user.GrantedScopes, s.requiredScopes) {
		return FailedState(PermissionDenied(s.requiredScopes))
	}
	session, err := BuildSession(user, SessionOriginInteractive, time.Now().UTC())
	if err != nil {
		return FailedState(InvalidUserData(err))
	}
	return ConnectedState(session)
}

// publishState runs the pre hooks, publishes, then runs the post hooks. Hook
// failures are logged, never allowed to block the publish.
func (s *Orchestrator) publishState(ctx context.Context, next SessionState) {
	if s == nil || s.publisher == nil {
		return
	}
	if s.hooks != nil {
		if hookErr := s.hooks.ExecutePrePublish(ctx, next); hookErr != nil {
			s.logWarn(ctx, "pre-publish state hook failed", map[string]any{
				"phase": string(next.Phase),
				"error": hookErr.Error(),
			})
		}
	}
	s.publisher.Publish(next)
	if s.hooks != nil {
		if hookErr := s.hooks.ExecutePostPublish(ctx, next); hookErr != nil {
			s.logWarn(ctx, "post-publish state hook failed", map[string]any{
				"phase": string(next.Phase),
				"error": hookErr.Error(),
			})
		}
	}
}

func (s *Orchestrator) recordActivity(ctx context.Context, action string, state SessionState, metadata map[string]any) {
	if s == nil || s.activitySink == nil {
		return
	}
	entry := SignOnActivityEntry{
		ProviderID: s.providerID(),
		Action:     action,
		Phase:      state.Phase,
		Status:     SignOnActivityStatusOK,
		Metadata:   RedactSensitiveMap(metadata),
		OccurredAt: time.Now().UTC(),
	}
	if state.Failure != nil {
		entry.Status = SignOnActivityStatusError
		entry.ErrorCode = state.Failure.Code
		entry.ErrorText = state.Failure.Message
	}
	if state.Session != nil {
		entry.Subject = state.Session.Profile.ID
	}
	if recordErr := s.activitySink.Record(ctx, entry); recordErr != nil {
		s.logWarn(ctx, "activity record failed", map[string]any{
			"action": action,
			"error":  recordErr.Error(),
		})
	}
}

func (s *Orchestrator) providerID() string {
	if s == nil || s.client == nil {
		return ""
	}
	return strings.TrimSpace(s.client.ID())
}

func (s *Orchestrator) mapError(err error) error {
	if err == nil {
		return nil
	}
	if s == nil || s.errorMapper == nil {
		return err
	}
	mapped := s.errorMapper(err)
	if mapped == nil {
		return err
	}
	return mapped
}

type providerOutcome struct {
	user *ProviderUser
	err  error
}

// newSignInRelay wraps a sign-in completion callback in a one-shot buffered
// channel: the first delivery wins, a late or double-fired callback neither
// blocks nor panics.
func newSignInRelay() (SignInCallback, <-chan providerOutcome) {
	ch := make(chan providerOutcome, 1)
	return func(user *ProviderUser, err error) {
		select {
		case ch <- providerOutcome{user: user, err: err}:
		default:
		}
	}, ch
}

func newDisconnectRelay() (DisconnectCallback, <-chan error) {
	ch := make(chan error, 1)
	return func(err error) {
		select {
		case ch <- err:
		default:
		}
	}, ch
}
