package query

import (
	gocmd "github.com/goliatone/go-command"
	"github.com/goliatone/go-signon/core"
)

var (
	_ gocmd.Querier[CurrentStateMessage, core.SessionState]             = (*CurrentStateQuery)(nil)
	_ gocmd.Querier[ListSignOnActivityMessage, core.SignOnActivityPage] = (*ListSignOnActivityQuery)(nil)

	_ SessionStateReader   = (*core.Orchestrator)(nil)
	_ SignOnActivityReader = (*core.Orchestrator)(nil)
)
