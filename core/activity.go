package core

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	ActivityActionInitialize = "initialize"
	ActivityActionSignIn     = "sign_in"
	ActivityActionSignOut    = "sign_out"
	ActivityActionRestore    = "restore"
	ActivityActionRedirect   = "redirect"
)

type ActivityRetentionPolicy struct {
	TTL    time.Duration
	RowCap int
}

type ActivityRetentionPruner interface {
	Prune(ctx context.Context, policy ActivityRetentionPolicy) (deleted int, err error)
}

// ActivityStoreFactory builds the durable activity sink from a persistence
// client, so hosts wire storage without this package importing theirs.
type ActivityStoreFactory interface {
	BuildActivityStore(persistenceClient any) (SignOnActivitySink, error)
}

// BufferedActivitySink decouples the orchestrator from activity storage: it
// queues entries and drains them to the primary sink on a single goroutine,
// spilling to the fallback sink when the queue is full. Close flushes what is
// still queued.
type BufferedActivitySink struct {
	primary  SignOnActivitySink
	fallback SignOnActivitySink
	policy   ActivityRetentionPolicy
	pruner   ActivityRetentionPruner

	queue chan SignOnActivityEntry
	now   func() time.Time

	stopOnce sync.Once
	stopCh   chan struct{}
	doneCh   chan struct{}
}

func NewBufferedActivitySink(
	primary SignOnActivitySink,
	fallback SignOnActivitySink,
	policy ActivityRetentionPolicy,
	bufferSize int,
) (*BufferedActivitySink, error) {
	if primary == nil {
		return nil, fmt.Errorf("core: primary activity sink is required")
	}
	if bufferSize <= 0 {
		bufferSize = 128
	}

	sink := &BufferedActivitySink{
		primary:  primary,
		fallback: fallback,
		policy:   policy,
		queue:    make(chan SignOnActivityEntry, bufferSize),
		now: func() time.Time {
			return time.Now().UTC()
		},
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}
	if pruner, ok := primary.(ActivityRetentionPruner); ok {
		sink.pruner = pruner
	}

	go sink.run()
	return sink, nil
}

func (s *BufferedActivitySink) Record(ctx context.Context, entry SignOnActivityEntry) error {
	if s == nil || s.primary == nil {
		return fmt.Errorf("core: buffered activity sink is not configured")
	}
	if strings.TrimSpace(entry.ID) == "" {
		entry.ID = uuid.NewString()
	}
	if entry.OccurredAt.IsZero() {
		entry.OccurredAt = s.now().UTC()
	}
	if entry.Status == "" {
		entry.Status = SignOnActivityStatusOK
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case s.queue <- entry:
		return nil
	default:
		if s.fallback != nil {
			return s.fallback.Record(ctx, entry)
		}
		return nil
	}
}

func (s *BufferedActivitySink) List(ctx context.Context, filter SignOnActivityFilter) (SignOnActivityPage, error) {
	if s == nil || s.primary == nil {
		return SignOnActivityPage{}, fmt.Errorf("core: buffered activity sink is not configured")
	}
	return s.primary.List(ctx, filter)
}

func (s *BufferedActivitySink) EnforceRetention(ctx context.Context) (int, error) {
	if s == nil {
		return 0, fmt.Errorf("core: buffered activity sink is not configured")
	}
	pruner := s.pruner
	if pruner == nil {
		if p, ok := s.primary.(ActivityRetentionPruner); ok {
			pruner = p
		}
	}
	if pruner == nil {
		return 0, nil
	}
	return pruner.Prune(ctx, s.policy)
}

func (s *BufferedActivitySink) Close() {
	if s == nil {
		return
	}
	s.stopOnce.Do(func() {
		close(s.stopCh)
		<-s.doneCh
	})
}

func (s *BufferedActivitySink) run() {
	defer close(s.doneCh)
	for {
		select {
		case <-s.stopCh:
			s.flush()
			return
		case entry := <-s.queue:
			s.deliver(entry)
		}
	}
}

func (s *BufferedActivitySink) flush() {
	for {
		select {
		case entry := <-s.queue:
			s.deliver(entry)
		default:
			return
		}
	}
}

func (s *BufferedActivitySink) deliver(entry SignOnActivityEntry) {
	if err := s.primary.Record(context.Background(), entry); err != nil && s.fallback != nil {
		_ = s.fallback.Record(context.Background(), entry)
	}
}

// MemoryActivityStore keeps the trail in process memory. It backs hosts that
// do not wire SQL storage, and serves as the fallback sink in tests.
type MemoryActivityStore struct {
	mu      sync.Mutex
	entries []SignOnActivityEntry
}

func NewMemoryActivityStore() *MemoryActivityStore {
	return &MemoryActivityStore{entries: []SignOnActivityEntry{}}
}

func (s *MemoryActivityStore) Record(_ context.Context, entry SignOnActivityEntry) error {
	if s == nil {
		return fmt.Errorf("core: memory activity store is not configured")
	}
	if strings.TrimSpace(entry.ID) == "" {
		entry.ID = uuid.NewString()
	}
	if entry.OccurredAt.IsZero() {
		entry.OccurredAt = time.Now().UTC()
	}
	entry.Metadata = copyAnyMap(entry.Metadata)

	s.mu.Lock()
	s.entries = append(s.entries, entry)
	s.mu.Unlock()
	return nil
}

func (s *MemoryActivityStore) List(_ context.Context, filter SignOnActivityFilter) (SignOnActivityPage, error) {
	if s == nil {
		return SignOnActivityPage{}, fmt.Errorf("core: memory activity store is not configured")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	perPage := filter.PerPage
	if perPage <= 0 {
		perPage = 25
	}

	s.mu.Lock()
	matched := make([]SignOnActivityEntry, 0, len(s.entries))
	for _, entry := range s.entries {
		if matchesActivityFilter(entry, filter) {
			matched = append(matched, entry)
		}
	}
	s.mu.Unlock()

	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].OccurredAt.After(matched[j].OccurredAt)
	})

	total := len(matched)
	offset := (page - 1) * perPage
	if offset > total {
		offset = total
	}
	end := offset + perPage
	if end > total {
		end = total
	}

	return SignOnActivityPage{
		Items:   append([]SignOnActivityEntry(nil), matched[offset:end]...),
		Page:    page,
		PerPage: perPage,
		Total:   total,
		HasNext: end < total,
	}, nil
}

func (s *MemoryActivityStore) Prune(_ context.Context, policy ActivityRetentionPolicy) (int, error) {
	if s == nil {
		return 0, fmt.Errorf("core: memory activity store is not configured")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := make([]SignOnActivityEntry, 0, len(s.entries))
	cutoff := time.Time{}
	if policy.TTL > 0 {
		cutoff = time.Now().UTC().Add(-policy.TTL)
	}
	for _, entry := range s.entries {
		if !cutoff.IsZero() && entry.OccurredAt.Before(cutoff) {
			continue
		}
		kept = append(kept, entry)
	}
	if policy.RowCap > 0 && len(kept) > policy.RowCap {
		sort.SliceStable(kept, func(i, j int) bool {
			return kept[i].OccurredAt.After(kept[j].OccurredAt)
		})
		kept = kept[:policy.RowCap]
	}

	deleted := len(s.entries) - len(kept)
	s.entries = kept
	return deleted, nil
}

func matchesActivityFilter(entry SignOnActivityEntry, filter SignOnActivityFilter) bool {
	if providerID := strings.TrimSpace(filter.ProviderID); providerID != "" &&
		!strings.EqualFold(strings.TrimSpace(entry.ProviderID), providerID) {
		return false
	}
	if action := strings.TrimSpace(filter.Action); action != "" &&
		!strings.EqualFold(strings.TrimSpace(entry.Action), action) {
		return false
	}
	if subject := strings.TrimSpace(filter.Subject); subject != "" &&
		strings.TrimSpace(entry.Subject) != subject {
		return false
	}
	if filter.Status != "" && entry.Status != filter.Status {
		return false
	}
	if filter.From != nil && entry.OccurredAt.Before(filter.From.UTC()) {
		return false
	}
	if filter.To != nil && entry.OccurredAt.After(filter.To.UTC()) {
		return false
	}
	return true
}
