package signon

import (
	"context"
	"strings"
	"testing"

	"github.com/goliatone/go-signon/core"
	"github.com/goliatone/go-signon/providers/oidc"
)

func TestDevkitProviderClientFactory(t *testing.T) {
	client := DevkitProviderClient("  Corp_IDP  ")
	if client == nil {
		t.Fatalf("expected devkit client")
	}
	if client.ID() != "corp_idp" {
		t.Fatalf("expected normalized provider id, got %q", client.ID())
	}

	var _ core.ProviderClient = client

	registry := core.NewProviderClientRegistry()
	if err := registry.Register(client); err != nil {
		t.Fatalf("register devkit client: %v", err)
	}
	if _, ok := registry.Get("corp_idp"); !ok {
		t.Fatalf("expected devkit client in registry")
	}
}

func TestOIDCProviderClientFactoryValidatesConfig(t *testing.T) {
	client, err := OIDCProviderClient(context.Background(), oidc.Config{
		ClientID:    "client",
		RedirectURL: "myapp://signon/callback",
		URLOpener:   oidc.URLOpenerFunc(func(string) error { return nil }),
	})
	if err == nil {
		t.Fatalf("expected missing issuer error")
	}
	if client != nil {
		t.Fatalf("expected nil client on config error")
	}
	if !strings.Contains(err.Error(), "issuer is required") {
		t.Fatalf("expected issuer validation error, got %v", err)
	}
}
