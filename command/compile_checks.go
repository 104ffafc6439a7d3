package command

import (
	gocmd "github.com/goliatone/go-command"
	"github.com/goliatone/go-signon/core"
)

var (
	_ gocmd.Commander[InitializeMessage]     = (*InitializeCommand)(nil)
	_ gocmd.Commander[SignInMessage]         = (*SignInCommand)(nil)
	_ gocmd.Commander[SignOutMessage]        = (*SignOutCommand)(nil)
	_ gocmd.Commander[HandleRedirectMessage] = (*HandleRedirectCommand)(nil)

	_ SignOnService = (*core.Orchestrator)(nil)
)
