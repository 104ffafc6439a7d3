// Package core contains the canonical sign-on domain contracts, entities, and
// orchestration logic. Provider clients and adapters must depend on this
// package; core must not depend on provider-specific or transport-specific
// code.
package core
