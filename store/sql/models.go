package sqlstore

import (
	"time"

	"github.com/uptrace/bun"
)

type signOnActivityRecord struct {
	bun.BaseModel `bun:"table:signon_activity_entries,alias:sae"`

	ID         string         `bun:"id,pk"`
	ProviderID string         `bun:"provider_id,notnull"`
	Action     string         `bun:"action,notnull"`
	Subject    string         `bun:"subject"`
	Phase      string         `bun:"phase"`
	Status     string         `bun:"status,notnull"`
	ErrorCode  int            `bun:"error_code"`
	ErrorText  string         `bun:"error_text"`
	Metadata   map[string]any `bun:"metadata,type:jsonb,notnull"`
	OccurredAt time.Time      `bun:"occurred_at,nullzero,notnull"`
	CreatedAt  time.Time      `bun:"created_at,nullzero,notnull,default:current_timestamp"`
}
