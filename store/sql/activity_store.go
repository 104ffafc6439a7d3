package sqlstore

import (
	"context"
	"fmt"
	"strings"
	"time"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/goliatone/go-signon/core"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// SignOnActivityStore persists the sign-on activity trail through bun. It
// normalizes entries the same way the in-memory store does, so hosts can swap
// sinks without changing what the trail records.
type SignOnActivityStore struct {
	db   *bun.DB
	repo repository.Repository[*signOnActivityRecord]
}

func NewSignOnActivityStore(db *bun.DB) (*SignOnActivityStore, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlstore: bun db is required")
	}
	repo := repository.NewRepository[*signOnActivityRecord](db, activityHandlers())
	if validator, ok := repo.(repository.Validator); ok {
		if err := validator.Validate(); err != nil {
			return nil, fmt.Errorf("sqlstore: invalid activity repository wiring: %w", err)
		}
	}
	return &SignOnActivityStore{db: db, repo: repo}, nil
}

func (s *SignOnActivityStore) Record(ctx context.Context, entry core.SignOnActivityEntry) error {
	if s == nil || s.repo == nil {
		return fmt.Errorf("sqlstore: activity store is not configured")
	}
	providerID := strings.TrimSpace(entry.ProviderID)
	if providerID == "" {
		return fmt.Errorf("sqlstore: activity entry requires a provider id")
	}

	id := strings.TrimSpace(entry.ID)
	if id == "" {
		id = uuid.NewString()
	}
	occurredAt := entry.OccurredAt.UTC()
	if occurredAt.IsZero() {
		occurredAt = time.Now().UTC()
	}
	status := strings.TrimSpace(string(entry.Status))
	if status == "" {
		status = string(core.SignOnActivityStatusOK)
	}

	record := &signOnActivityRecord{
		ID:         id,
		ProviderID: providerID,
		Action:     strings.TrimSpace(entry.Action),
		Subject:    strings.TrimSpace(entry.Subject),
		Phase:      strings.TrimSpace(string(entry.Phase)),
		Status:     status,
		ErrorCode:  entry.ErrorCode,
		ErrorText:  strings.TrimSpace(entry.ErrorText),
		Metadata:   copyAnyMap(entry.Metadata),
		OccurredAt: occurredAt,
	}

	_, err := s.repo.Create(ctx, record)
	return err
}

func (s *SignOnActivityStore) List(ctx context.Context, filter core.SignOnActivityFilter) (core.SignOnActivityPage, error) {
	if s == nil || s.repo == nil {
		return core.SignOnActivityPage{}, fmt.Errorf("sqlstore: activity store is not configured")
	}
	page := filter.Page
	if page <= 0 {
		page = 1
	}
	perPage := filter.PerPage
	if perPage <= 0 {
		perPage = 25
	}
	offset := (page - 1) * perPage

	selectors := []repository.SelectCriteria{
		repository.OrderBy("occurred_at DESC"),
		repository.SelectPaginate(perPage, offset),
	}
	if providerID := strings.TrimSpace(filter.ProviderID); providerID != "" {
		selectors = append(selectors, repository.SelectBy("provider_id", "=", providerID))
	}
	if action := strings.TrimSpace(filter.Action); action != "" {
		selectors = append(selectors, repository.SelectBy("action", "=", action))
	}
	if subject := strings.TrimSpace(filter.Subject); subject != "" {
		selectors = append(selectors, repository.SelectBy("subject", "=", subject))
	}
	if status := strings.TrimSpace(string(filter.Status)); status != "" {
		selectors = append(selectors, repository.SelectBy("status", "=", status))
	}
	if filter.From != nil {
		selectors = append(selectors, repository.SelectByTimetz("occurred_at", ">=", filter.From.UTC()))
	}
	if filter.To != nil {
		selectors = append(selectors, repository.SelectByTimetz("occurred_at", "<=", filter.To.UTC()))
	}

	records, total, err := s.repo.List(ctx, selectors...)
	if err != nil {
		return core.SignOnActivityPage{}, err
	}
	items := make([]core.SignOnActivityEntry, 0, len(records))
	for _, record := range records {
		items = append(items, activityRecordToDomain(record))
	}
	return core.SignOnActivityPage{
		Items:   items,
		Page:    page,
		PerPage: perPage,
		Total:   total,
		HasNext: offset+len(items) < total,
	}, nil
}

func (s *SignOnActivityStore) Prune(ctx context.Context, policy core.ActivityRetentionPolicy) (int, error) {
	if s == nil || s.db == nil {
		return 0, fmt.Errorf("sqlstore: activity store is not configured")
	}
	deleted := 0
	now := time.Now().UTC()

	if policy.TTL > 0 {
		cutoff := now.Add(-policy.TTL)
		res, err := s.db.NewDelete().
			Model((*signOnActivityRecord)(nil)).
			Where("occurred_at < ?", cutoff).
			Exec(ctx)
		if err != nil {
			return deleted, err
		}
		affected, _ := res.RowsAffected()
		deleted += int(affected)
	}

	if policy.RowCap > 0 {
		total, err := s.db.NewSelect().Model((*signOnActivityRecord)(nil)).Count(ctx)
		if err != nil {
			return deleted, err
		}
		excess := total - policy.RowCap
		if excess > 0 {
			res, err := s.db.NewRaw(
				"DELETE FROM signon_activity_entries WHERE id IN (SELECT id FROM signon_activity_entries ORDER BY occurred_at ASC LIMIT ?)",
				excess,
			).Exec(ctx)
			if err != nil {
				return deleted, err
			}
			affected, _ := res.RowsAffected()
			deleted += int(affected)
		}
	}

	return deleted, nil
}

func activityRecordToDomain(record *signOnActivityRecord) core.SignOnActivityEntry {
	if record == nil {
		return core.SignOnActivityEntry{}
	}
	return core.SignOnActivityEntry{
		ID:         record.ID,
		ProviderID: record.ProviderID,
		Action:     record.Action,
		Subject:    record.Subject,
		Phase:      core.SessionPhase(record.Phase),
		Status:     core.SignOnActivityStatus(record.Status),
		ErrorCode:  record.ErrorCode,
		ErrorText:  record.ErrorText,
		Metadata:   copyAnyMap(record.Metadata),
		OccurredAt: record.OccurredAt,
	}
}

func copyAnyMap(in map[string]any) map[string]any {
	if len(in) == 0 {
		return map[string]any{}
	}
	out := make(map[string]any, len(in))
	for key, value := range in {
		out[key] = value
	}
	return out
}
