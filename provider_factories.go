package signon

import (
	"context"

	"github.com/goliatone/go-signon/providers/devkit"
	"github.com/goliatone/go-signon/providers/oidc"
)

// OIDCProviderClient builds a provider client against a live OIDC issuer.
// Discovery runs during construction, so the context bounds the metadata
// fetch.
func OIDCProviderClient(ctx context.Context, cfg oidc.Config) (*oidc.Client, error) {
	return oidc.New(ctx, cfg)
}

// DevkitProviderClient builds the scripted in-memory provider client host
// test suites drive.
func DevkitProviderClient(providerID string) *devkit.ProviderClientFixture {
	return devkit.NewProviderClientFixture(providerID)
}
