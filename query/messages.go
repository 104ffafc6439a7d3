package query

import (
	"github.com/goliatone/go-signon/core"
)

const (
	TypeCurrentState       = "signon.query.state.current"
	TypeListSignOnActivity = "signon.query.activity.list"
)

type CurrentStateMessage struct{}

func (CurrentStateMessage) Type() string { return TypeCurrentState }

func (CurrentStateMessage) Validate() error { return nil }

type ListSignOnActivityMessage struct {
	Filter core.SignOnActivityFilter
}

func (ListSignOnActivityMessage) Type() string { return TypeListSignOnActivity }

func (m ListSignOnActivityMessage) Validate() error {
	if m.Filter.Page < 0 {
		return queryValidationError("page", "page must be >= 0")
	}
	if m.Filter.PerPage < 0 {
		return queryValidationError("per_page", "per_page must be >= 0")
	}
	switch m.Filter.Status {
	case "", core.SignOnActivityStatusOK, core.SignOnActivityStatusWarn, core.SignOnActivityStatusError:
	default:
		return queryValidationError("status", "unknown activity status")
	}
	if m.Filter.From != nil && m.Filter.To != nil && m.Filter.To.Before(*m.Filter.From) {
		return queryValidationError("to", "window end must not precede its start")
	}
	return nil
}
