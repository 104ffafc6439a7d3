package sqlstore

import "github.com/goliatone/go-signon/core"

var (
	_ core.SignOnActivitySink      = (*SignOnActivityStore)(nil)
	_ core.ActivityRetentionPruner = (*SignOnActivityStore)(nil)
	_ core.ActivityStoreFactory    = (*ActivityStoreFactory)(nil)
)
