package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
)

// StateHook observes session state publishes.
type StateHook interface {
	Name() string
	OnState(ctx context.Context, state SessionState) error
}

type StateHookCoordinator struct {
	mu          sync.RWMutex
	prePublish  []StateHook
	postPublish []StateHook
}

func NewStateHookCoordinator() *StateHookCoordinator {
	return &StateHookCoordinator{
		prePublish:  make([]StateHook, 0),
		postPublish: make([]StateHook, 0),
	}
}

func (c *StateHookCoordinator) RegisterPrePublish(hook StateHook) {
	if c == nil || hook == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.prePublish = append(c.prePublish, hook)
}

func (c *StateHookCoordinator) RegisterPostPublish(hook StateHook) {
	if c == nil || hook == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.postPublish = append(c.postPublish, hook)
}

// ExecutePrePublish runs pre-publish hooks synchronously in registration
// order. The first hook error is returned; the orchestrator logs it and
// publishes anyway, so hooks observe, never veto.
func (c *StateHookCoordinator) ExecutePrePublish(ctx context.Context, state SessionState) error {
	for _, hook := range c.preHooks() {
		if hook == nil {
			continue
		}
		if err := hook.OnState(ctx, state); err != nil {
			return fmt.Errorf("core: pre-publish state hook %q failed: %w", stateHookName(hook), err)
		}
	}
	return nil
}

// ExecutePostPublish runs hooks after the value is visible to observers.
// Failures are aggregated and returned for observability.
func (c *StateHookCoordinator) ExecutePostPublish(ctx context.Context, state SessionState) error {
	var hookErr error
	for _, hook := range c.postHooks() {
		if hook == nil {
			continue
		}
		if err := hook.OnState(ctx, state); err != nil {
			hookErr = errors.Join(hookErr, fmt.Errorf("post-publish state hook %q failed: %w", stateHookName(hook), err))
		}
	}
	return hookErr
}

func (c *StateHookCoordinator) preHooks() []StateHook {
	if c == nil {
		return nil
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]StateHook, len(c.prePublish))
	copy(out, c.prePublish)
	return out
}

func (c *StateHookCoordinator) postHooks() []StateHook {
	if c == nil {
		return nil
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]StateHook, len(c.postPublish))
	copy(out, c.postPublish)
	return out
}

func stateHookName(hook StateHook) string {
	if hook == nil {
		return "unknown"
	}
	name := strings.TrimSpace(hook.Name())
	if name == "" {
		return "unnamed"
	}
	return name
}
