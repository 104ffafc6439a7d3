package core

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

type ProviderClientRegistry struct {
	mu      sync.RWMutex
	clients map[string]ProviderClient
}

func NewProviderClientRegistry() *ProviderClientRegistry {
	return &ProviderClientRegistry{clients: make(map[string]ProviderClient)}
}

func (r *ProviderClientRegistry) Register(client ProviderClient) error {
	if client == nil {
		return fmt.Errorf("core: provider client is nil")
	}
	id := strings.TrimSpace(client.ID())
	if id == "" {
		return fmt.Errorf("core: provider client id is required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.clients[id]; exists {
		return fmt.Errorf("core: provider client already registered: %s", id)
	}
	r.clients[id] = client
	return nil
}

func (r *ProviderClientRegistry) Get(providerID string) (ProviderClient, bool) {
	id := strings.TrimSpace(providerID)
	if id == "" {
		return nil, false
	}
	r.mu.RLock()
	client, ok := r.clients[id]
	r.mu.RUnlock()
	return client, ok
}

func (r *ProviderClientRegistry) List() []ProviderClient {
	r.mu.RLock()
	keys := make([]string, 0, len(r.clients))
	for id := range r.clients {
		keys = append(keys, id)
	}
	r.mu.RUnlock()
	sort.Strings(keys)

	clients := make([]ProviderClient, 0, len(keys))
	r.mu.RLock()
	for _, id := range keys {
		clients = append(clients, r.clients[id])
	}
	r.mu.RUnlock()
	return clients
}
