package core

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"strings"
	"sync"
	"time"
)

const defaultPendingAuthTTL = 15 * time.Minute

// PendingAuthRecord parks one in-flight interactive sign-in attempt, keyed by
// the opaque state a redirect-based provider client attaches to its
// authorization request.
type PendingAuthRecord struct {
	State      string
	ProviderID string
	Scopes     []string
	Nonce      string
	Verifier   string
	Metadata   map[string]any
	CreatedAt  time.Time
	ExpiresAt  time.Time
}

// PendingAuthStore is one-shot storage: Consume returns a record at most once.
type PendingAuthStore interface {
	Save(ctx context.Context, record PendingAuthRecord) error
	Consume(ctx context.Context, state string) (PendingAuthRecord, error)
}

type MemoryPendingAuthStore struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]PendingAuthRecord
}

func NewMemoryPendingAuthStore(ttl time.Duration) *MemoryPendingAuthStore {
	if ttl <= 0 {
		ttl = defaultPendingAuthTTL
	}
	return &MemoryPendingAuthStore{
		ttl:     ttl,
		entries: map[string]PendingAuthRecord{},
	}
}

func (s *MemoryPendingAuthStore) Save(_ context.Context, record PendingAuthRecord) error {
	if s == nil {
		return fmt.Errorf("core: pending auth store is not configured")
	}
	state := strings.TrimSpace(record.State)
	if state == "" {
		return fmt.Errorf("core: pending auth state is required")
	}

	now := time.Now().UTC()
	if record.CreatedAt.IsZero() {
		record.CreatedAt = now
	}
	if record.ExpiresAt.IsZero() {
		record.ExpiresAt = record.CreatedAt.Add(s.ttl)
	}

	s.mu.Lock()
	s.entries[state] = clonePendingAuthRecord(record)
	s.mu.Unlock()

	return nil
}

func (s *MemoryPendingAuthStore) Consume(_ context.Context, state string) (PendingAuthRecord, error) {
	if s == nil {
		return PendingAuthRecord{}, fmt.Errorf("core: pending auth store is not configured")
	}
	state = strings.TrimSpace(state)
	if state == "" {
		return PendingAuthRecord{}, fmt.Errorf("core: pending auth state is required")
	}

	s.mu.Lock()
	record, ok := s.entries[state]
	if ok {
		delete(s.entries, state)
	}
	s.mu.Unlock()

	if !ok {
		return PendingAuthRecord{}, fmt.Errorf("core: pending auth state not found")
	}
	if !record.ExpiresAt.IsZero() && time.Now().UTC().After(record.ExpiresAt) {
		return PendingAuthRecord{}, fmt.Errorf("core: pending auth state expired")
	}

	return clonePendingAuthRecord(record), nil
}

// GeneratePendingAuthState returns an opaque single-use correlation value.
func GeneratePendingAuthState() (string, error) {
	raw := make([]byte, 24)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("core: generate pending auth state: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(raw), nil
}

func clonePendingAuthRecord(record PendingAuthRecord) PendingAuthRecord {
	cloned := record
	cloned.Scopes = append([]string(nil), record.Scopes...)
	if record.Metadata == nil {
		cloned.Metadata = map[string]any{}
	} else {
		cloned.Metadata = copyAnyMap(record.Metadata)
	}
	return cloned
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
