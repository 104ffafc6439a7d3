package command

import (
	"net/url"
	"strings"

	"github.com/goliatone/go-signon/core"
)

const (
	TypeInitialize     = "signon.command.initialize"
	TypeSignIn         = "signon.command.sign_in"
	TypeSignOut        = "signon.command.sign_out"
	TypeHandleRedirect = "signon.command.handle_redirect"
)

type InitializeMessage struct{}

func (InitializeMessage) Type() string { return TypeInitialize }

func (InitializeMessage) Validate() error { return nil }

type SignInMessage struct {
	Presentation core.PresentationContext
}

func (SignInMessage) Type() string { return TypeSignIn }

// Validate leaves the presentation context opaque: the core never requires
// any of its fields. A return target that does not even parse is rejected
// here so the failure surfaces before a provider round trip.
func (m SignInMessage) Validate() error {
	if returnTo := strings.TrimSpace(m.Presentation.ReturnTo); returnTo != "" {
		if _, err := url.Parse(returnTo); err != nil {
			return commandWrapValidation(err, "command: return target must be a parseable url")
		}
	}
	return nil
}

type SignOutMessage struct{}

func (SignOutMessage) Type() string { return TypeSignOut }

func (SignOutMessage) Validate() error { return nil }

type HandleRedirectMessage struct {
	RawURL string
}

func (HandleRedirectMessage) Type() string { return TypeHandleRedirect }

func (m HandleRedirectMessage) Validate() error {
	if strings.TrimSpace(m.RawURL) == "" {
		return commandValidationError("raw_url", "raw url is required")
	}
	return nil
}
