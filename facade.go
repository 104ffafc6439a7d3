package signon

import (
	"context"
	"fmt"

	signoncommand "github.com/goliatone/go-signon/command"
	"github.com/goliatone/go-signon/core"
	signonquery "github.com/goliatone/go-signon/query"
)

type CommandQueryService interface {
	signoncommand.SignOnService
	signonquery.SessionStateReader
}

type Commands struct {
	Initialize     *signoncommand.InitializeCommand
	SignIn         *signoncommand.SignInCommand
	SignOut        *signoncommand.SignOutCommand
	HandleRedirect *signoncommand.HandleRedirectCommand
}

type Queries struct {
	CurrentState       *signonquery.CurrentStateQuery
	ListSignOnActivity *signonquery.ListSignOnActivityQuery
}

type Facade struct {
	service  CommandQueryService
	commands Commands
	queries  Queries
}

type FacadeOption func(*facadeOptions)

type facadeOptions struct {
	activityReader signonquery.SignOnActivityReader
}

func WithActivityReader(reader signonquery.SignOnActivityReader) FacadeOption {
	return func(options *facadeOptions) {
		options.activityReader = reader
	}
}

func NewFacade(service CommandQueryService, opts ...FacadeOption) (*Facade, error) {
	if service == nil {
		return nil, fmt.Errorf("signon: command/query service is required")
	}
	cfg := facadeOptions{}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(&cfg)
	}

	reader := cfg.activityReader
	if reader == nil {
		reader = resolveActivityReader(service)
	}

	facade := &Facade{service: service}
	facade.commands = Commands{
		Initialize:     signoncommand.NewInitializeCommand(service),
		SignIn:         signoncommand.NewSignInCommand(service),
		SignOut:        signoncommand.NewSignOutCommand(service),
		HandleRedirect: signoncommand.NewHandleRedirectCommand(service),
	}
	facade.queries = Queries{
		CurrentState:       signonquery.NewCurrentStateQuery(service),
		ListSignOnActivity: signonquery.NewListSignOnActivityQuery(reader),
	}

	return facade, nil
}

func (f *Facade) Commands() Commands {
	if f == nil {
		return Commands{}
	}
	return f.commands
}

func (f *Facade) Queries() Queries {
	if f == nil {
		return Queries{}
	}
	return f.queries
}

func (f *Facade) Service() CommandQueryService {
	if f == nil {
		return nil
	}
	return f.service
}

// resolveActivityReader finds a reader for the activity list query. The
// orchestrator exposes ActivityLog directly; service wrappers that hide it
// still resolve when their dependencies carry an activity sink.
func resolveActivityReader(service CommandQueryService) signonquery.SignOnActivityReader {
	if service == nil {
		return nil
	}
	if reader, ok := service.(signonquery.SignOnActivityReader); ok {
		return reader
	}
	provider, ok := service.(interface {
		Dependencies() core.OrchestratorDependencies
	})
	if !ok {
		return nil
	}
	sink := provider.Dependencies().ActivitySink
	if sink == nil {
		return nil
	}
	return activitySinkReader{sink: sink}
}

type activitySinkReader struct {
	sink core.SignOnActivitySink
}

func (r activitySinkReader) ActivityLog(ctx context.Context, filter core.SignOnActivityFilter) (core.SignOnActivityPage, error) {
	return r.sink.List(ctx, filter)
}
