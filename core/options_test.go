package core

import (
	"context"
	"strings"
	"testing"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

type fixedConfigProvider struct {
	cfg Config
}

func (p *fixedConfigProvider) Load(context.Context, Config) (Config, error) {
	return p.cfg, nil
}

type fixedOptionsResolver struct {
	cfg Config
}

func (r *fixedOptionsResolver) Resolve(Config, Config, Config) (Config, error) {
	return r.cfg, nil
}

func TestNewOrchestrator_DefaultDependencies(t *testing.T) {
	orchestrator, err := NewOrchestrator(Config{}, WithProviderClient(newScriptedClient("oidc")))
	if err != nil {
		t.Fatalf("new orchestrator: %v", err)
	}
	deps := orchestrator.Dependencies()
	if deps.Logger == nil {
		t.Fatalf("expected default logger")
	}
	if deps.MetricsRecorder == nil {
		t.Fatalf("expected default metrics recorder")
	}
	if deps.ErrorFactory == nil {
		t.Fatalf("expected default error factory")
	}
	if deps.ErrorMapper == nil {
		t.Fatalf("expected default error mapper")
	}
	if deps.ConfigProvider == nil {
		t.Fatalf("expected default config provider")
	}
	if deps.OptionsResolver == nil {
		t.Fatalf("expected default options resolver")
	}
	if deps.Clients == nil {
		t.Fatalf("expected default client registry")
	}
	if deps.PendingAuthStore == nil {
		t.Fatalf("expected default pending auth store")
	}
	if deps.Hooks == nil {
		t.Fatalf("expected default hook coordinator")
	}
	if got := orchestrator.Config().ServiceName; got != "signon" {
		t.Fatalf("expected default service_name=signon, got %q", got)
	}
	if got := orchestrator.Config().Activity.BufferSize; got != 128 {
		t.Fatalf("expected default activity buffer 128, got %d", got)
	}
}

func TestNewOrchestrator_ConfigAndResolverOverrides(t *testing.T) {
	configProvider := &fixedConfigProvider{cfg: Config{ServiceName: "from-provider"}}
	optionsResolver := &fixedOptionsResolver{cfg: Config{ServiceName: "resolved", ProviderID: "oidc"}}

	orchestrator, err := NewOrchestrator(Config{ServiceName: "runtime"},
		WithProviderClient(newScriptedClient("oidc")),
		WithConfigProvider(configProvider),
		WithOptionsResolver(optionsResolver),
	)
	if err != nil {
		t.Fatalf("new orchestrator: %v", err)
	}
	if got := orchestrator.Config().ServiceName; got != "resolved" {
		t.Fatalf("expected resolver output to win, got %q", got)
	}
}

func TestCfgxConfigProvider_MergesRawValuesOverDefaults(t *testing.T) {
	provider := NewCfgxConfigProvider(mapRawLoader{values: map[string]any{
		"provider_id": "google",
		"activity": map[string]any{
			"retention_days": 7,
		},
	}})

	cfg, err := provider.Load(context.Background(), DefaultConfig())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ProviderID != "google" {
		t.Fatalf("expected provider_id from raw values, got %q", cfg.ProviderID)
	}
	if cfg.ServiceName != "signon" {
		t.Fatalf("expected default service_name kept, got %q", cfg.ServiceName)
	}
	if cfg.Activity.RetentionDays != 7 {
		t.Fatalf("expected retention override, got %d", cfg.Activity.RetentionDays)
	}
	if cfg.Activity.BufferSize != 128 {
		t.Fatalf("expected default buffer kept, got %d", cfg.Activity.BufferSize)
	}
}

func TestCfgxConfigProvider_ValidatorRejectsBadValues(t *testing.T) {
	provider := NewCfgxConfigProvider(mapRawLoader{values: map[string]any{
		"activity": map[string]any{
			"row_cap": -5,
		},
	}})

	if _, err := provider.Load(context.Background(), DefaultConfig()); err == nil {
		t.Fatalf("expected validation failure for negative row cap")
	}
}

func TestGoOptionsResolver_RuntimeLayerWins(t *testing.T) {
	resolver := GoOptionsResolver{}

	defaults := DefaultConfig()
	loaded := DefaultConfig()
	loaded.ProviderID = "google"
	loaded.Activity.RetentionDays = 14
	runtime := Config{ProviderID: "oidc"}

	resolved, err := resolver.Resolve(defaults, loaded, runtime)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if resolved.ProviderID != "oidc" {
		t.Fatalf("expected runtime provider to win, got %q", resolved.ProviderID)
	}
	if resolved.Activity.RetentionDays != 14 {
		t.Fatalf("expected loaded retention kept, got %d", resolved.Activity.RetentionDays)
	}
	if resolved.ServiceName != "signon" {
		t.Fatalf("expected default service name kept, got %q", resolved.ServiceName)
	}
}

func TestGoOptionsResolver_ZeroRuntimeDoesNotStompLayers(t *testing.T) {
	resolver := GoOptionsResolver{}

	loaded := DefaultConfig()
	loaded.RequiredScopes = []string{"email"}

	resolved, err := resolver.Resolve(DefaultConfig(), loaded, Config{})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if len(resolved.RequiredScopes) != 1 || resolved.RequiredScopes[0] != "email" {
		t.Fatalf("expected loaded scopes kept, got %v", resolved.RequiredScopes)
	}
	if resolved.Activity.BufferSize != 128 {
		t.Fatalf("expected default activity kept, got %d", resolved.Activity.BufferSize)
	}
}

func TestConfigValidate(t *testing.T) {
	valid := DefaultConfig()
	if err := valid.Validate(); err != nil {
		t.Fatalf("expected default config to validate, got %v", err)
	}

	missingName := DefaultConfig()
	missingName.ServiceName = "  "
	if err := missingName.Validate(); err == nil || !strings.Contains(err.Error(), "service_name") {
		t.Fatalf("expected service_name error, got %v", err)
	}

	negative := DefaultConfig()
	negative.Activity.BufferSize = -1
	if err := negative.Validate(); err == nil {
		t.Fatalf("expected negative buffer rejection")
	}
}

func TestConfigRetentionPolicy(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Activity.RetentionDays = 7
	cfg.Activity.RowCap = 500

	policy := cfg.RetentionPolicy()
	if policy.TTL != 7*24*time.Hour {
		t.Fatalf("expected 7 day TTL, got %v", policy.TTL)
	}
	if policy.RowCap != 500 {
		t.Fatalf("expected row cap 500, got %d", policy.RowCap)
	}
}

func TestDefaultErrorMapper_WrapsPlainErrors(t *testing.T) {
	mapped := defaultErrorMapper(context.DeadlineExceeded)
	if mapped == nil {
		t.Fatalf("expected mapped error")
	}
	if mapped.Code == 0 {
		t.Fatalf("expected numeric code assigned")
	}
	if defaultErrorMapper(nil) != nil {
		t.Fatalf("expected nil passthrough")
	}

	rich := goerrors.New("boom", goerrors.CategoryInternal)
	if got := defaultErrorMapper(rich); got.Category != goerrors.CategoryInternal {
		t.Fatalf("expected category preserved, got %q", got.Category)
	}
}
