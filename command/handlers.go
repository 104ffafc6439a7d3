package command

import (
	"context"

	gocmd "github.com/goliatone/go-command"
	"github.com/goliatone/go-signon/core"
)

// SignOnService is the orchestrator seam the command handlers drive.
// *core.Orchestrator satisfies it.
type SignOnService interface {
	Initialize(ctx context.Context) error
	SignIn(ctx context.Context, presentation core.PresentationContext) error
	SignOut(ctx context.Context) error
	HandleInboundRedirect(rawURL string) bool
	CurrentState() core.SessionState
}

type InitializeCommand struct {
	service SignOnService
}

func NewInitializeCommand(service SignOnService) *InitializeCommand {
	return &InitializeCommand{service: service}
}

func (c *InitializeCommand) Execute(ctx context.Context, msg InitializeMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: sign-on service is required")
	}
	return c.service.Initialize(ctx)
}

type SignInCommand struct {
	service SignOnService
}

func NewSignInCommand(service SignOnService) *SignInCommand {
	return &SignInCommand{service: service}
}

// Execute runs one interactive sign-in to settlement. SignIn publishes the
// outcome state before returning, so the state read here is the settled one;
// it is stored for dispatchers that collect results.
func (c *SignInCommand) Execute(ctx context.Context, msg SignInMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: sign-on service is required")
	}
	if err := c.service.SignIn(ctx, msg.Presentation); err != nil {
		return err
	}
	storeResult(ctx, c.service.CurrentState())
	return nil
}

type SignOutCommand struct {
	service SignOnService
}

func NewSignOutCommand(service SignOnService) *SignOutCommand {
	return &SignOutCommand{service: service}
}

func (c *SignOutCommand) Execute(ctx context.Context, msg SignOutMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: sign-on service is required")
	}
	return c.service.SignOut(ctx)
}

type HandleRedirectCommand struct {
	service SignOnService
}

func NewHandleRedirectCommand(service SignOnService) *HandleRedirectCommand {
	return &HandleRedirectCommand{service: service}
}

// Execute offers the inbound URL to the provider client. A URL the client
// does not recognize is a normal outcome, not an error: the handled flag is
// stored as the result.
func (c *HandleRedirectCommand) Execute(ctx context.Context, msg HandleRedirectMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: sign-on service is required")
	}
	storeResult(ctx, c.service.HandleInboundRedirect(msg.RawURL))
	return nil
}

func storeResult[T any](ctx context.Context, value T) {
	collector := gocmd.ResultFromContext[T](ctx)
	if collector == nil {
		return
	}
	collector.Store(value)
}
