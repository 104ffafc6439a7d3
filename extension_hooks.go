package signon

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/goliatone/go-signon/core"
)

type ClientPack struct {
	Name    string
	Clients []core.ProviderClient
}

type CommandQueryBundleFactory func(service CommandQueryService) (any, error)

// ExtensionHooks lets downstream modules contribute provider clients and
// command/query bundles before the host wires the orchestrator.
type ExtensionHooks struct {
	mu sync.RWMutex

	clientPacks map[string]ClientPack
	bundles     map[string]CommandQueryBundleFactory
}

func NewExtensionHooks() *ExtensionHooks {
	return &ExtensionHooks{
		clientPacks: map[string]ClientPack{},
		bundles:     map[string]CommandQueryBundleFactory{},
	}
}

func (h *ExtensionHooks) RegisterClientPack(pack ClientPack) error {
	if h == nil {
		return fmt.Errorf("signon: extension hooks are nil")
	}
	name := strings.TrimSpace(pack.Name)
	if name == "" {
		return fmt.Errorf("signon: client pack name is required")
	}
	if len(pack.Clients) == 0 {
		return fmt.Errorf("signon: client pack %q has no clients", name)
	}

	normalized := ClientPack{
		Name:    name,
		Clients: append([]core.ProviderClient(nil), pack.Clients...),
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if _, exists := h.clientPacks[name]; exists {
		return fmt.Errorf("signon: client pack %q already registered", name)
	}
	h.clientPacks[name] = normalized
	return nil
}

func (h *ExtensionHooks) RegisterCommandQueryBundle(
	name string,
	factory CommandQueryBundleFactory,
) error {
	if h == nil {
		return fmt.Errorf("signon: extension hooks are nil")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("signon: command/query bundle name is required")
	}
	if factory == nil {
		return fmt.Errorf("signon: command/query bundle %q factory is required", name)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if _, exists := h.bundles[name]; exists {
		return fmt.Errorf("signon: command/query bundle %q already registered", name)
	}
	h.bundles[name] = factory
	return nil
}

func (h *ExtensionHooks) ApplyClientPacks(registry core.ClientRegistry) error {
	if h == nil {
		return nil
	}
	if registry == nil {
		return fmt.Errorf("signon: client registry is required")
	}

	packs := h.ClientPacks()
	for _, pack := range packs {
		for _, client := range pack.Clients {
			if client == nil {
				return fmt.Errorf("signon: client pack %q contains nil client", pack.Name)
			}
			if err := registry.Register(client); err != nil {
				return err
			}
		}
	}
	return nil
}

func (h *ExtensionHooks) BuildCommandQueryBundles(
	service CommandQueryService,
) (map[string]any, error) {
	if h == nil {
		return map[string]any{}, nil
	}
	if service == nil {
		return nil, fmt.Errorf("signon: command/query service is required")
	}

	h.mu.RLock()
	names := make([]string, 0, len(h.bundles))
	for name := range h.bundles {
		names = append(names, name)
	}
	sort.Strings(names)
	factories := make(map[string]CommandQueryBundleFactory, len(h.bundles))
	for name, factory := range h.bundles {
		factories[name] = factory
	}
	h.mu.RUnlock()

	result := make(map[string]any, len(names))
	for _, name := range names {
		bundle, err := factories[name](service)
		if err != nil {
			return nil, err
		}
		result[name] = bundle
	}
	return result, nil
}

func (h *ExtensionHooks) ClientPacks() []ClientPack {
	if h == nil {
		return nil
	}
	h.mu.RLock()
	defer h.mu.RUnlock()

	names := make([]string, 0, len(h.clientPacks))
	for name := range h.clientPacks {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]ClientPack, 0, len(names))
	for _, name := range names {
		pack := h.clientPacks[name]
		out = append(out, ClientPack{
			Name:    pack.Name,
			Clients: append([]core.ProviderClient(nil), pack.Clients...),
		})
	}
	return out
}

func (h *ExtensionHooks) BundleNames() []string {
	if h == nil {
		return nil
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	names := make([]string, 0, len(h.bundles))
	for name := range h.bundles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
