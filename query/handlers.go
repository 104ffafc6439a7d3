package query

import (
	"context"

	"github.com/goliatone/go-signon/core"
)

// SessionStateReader reads the value a new state subscriber would be primed
// with. *core.Orchestrator satisfies it.
type SessionStateReader interface {
	CurrentState() core.SessionState
}

// SignOnActivityReader serves filtered reads over the recorded sign-on
// trail. *core.Orchestrator satisfies it.
type SignOnActivityReader interface {
	ActivityLog(ctx context.Context, filter core.SignOnActivityFilter) (core.SignOnActivityPage, error)
}

type CurrentStateQuery struct {
	reader SessionStateReader
}

func NewCurrentStateQuery(reader SessionStateReader) *CurrentStateQuery {
	return &CurrentStateQuery{reader: reader}
}

func (q *CurrentStateQuery) Query(ctx context.Context, msg CurrentStateMessage) (core.SessionState, error) {
	if q == nil || q.reader == nil {
		return core.SessionState{}, queryDependencyError("query: session state reader is required")
	}
	return q.reader.CurrentState(), nil
}

type ListSignOnActivityQuery struct {
	reader SignOnActivityReader
}

func NewListSignOnActivityQuery(reader SignOnActivityReader) *ListSignOnActivityQuery {
	return &ListSignOnActivityQuery{reader: reader}
}

func (q *ListSignOnActivityQuery) Query(
	ctx context.Context,
	msg ListSignOnActivityMessage,
) (core.SignOnActivityPage, error) {
	if q == nil || q.reader == nil {
		return core.SignOnActivityPage{}, queryDependencyError("query: sign-on activity reader is required")
	}
	return q.reader.ActivityLog(ctx, msg.Filter)
}
