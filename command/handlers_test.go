package command

import (
	"context"
	"fmt"
	"testing"
	"time"

	gocmd "github.com/goliatone/go-command"
	"github.com/goliatone/go-signon/core"
)

func TestSignInCommand_ExecuteDelegatesAndStoresState(t *testing.T) {
	settled := core.ConnectedState(core.Session{
		Profile:       core.Profile{ID: "user_1", Email: "user@example.com"},
		Remote:        core.RemoteSession{TokenType: "Bearer", AccessToken: "access_1"},
		Origin:        core.SessionOriginInteractive,
		EstablishedAt: time.Now().UTC(),
	})
	called := false

	svc := stubSignOnService{
		signInFn: func(_ context.Context, presentation core.PresentationContext) error {
			called = true
			if presentation.Surface != "settings_pane" {
				t.Fatalf("expected settings_pane surface, got %q", presentation.Surface)
			}
			return nil
		},
		currentStateFn: func() core.SessionState { return settled },
	}

	cmd := NewSignInCommand(svc)
	collector := gocmd.NewResult[core.SessionState]()
	ctx := gocmd.ContextWithResult(context.Background(), collector)

	err := cmd.Execute(ctx, SignInMessage{Presentation: core.PresentationContext{
		Surface: "settings_pane",
	}})
	if err != nil {
		t.Fatalf("execute sign-in: %v", err)
	}
	if !called {
		t.Fatalf("expected sign-in service invocation")
	}
	result, ok := collector.Load()
	if !ok {
		t.Fatalf("expected settled state to be stored")
	}
	if !result.IsConnected() {
		t.Fatalf("expected connected result, got %q", result.Phase)
	}
	if result.Session.Profile.ID != "user_1" {
		t.Fatalf("unexpected result subject: %q", result.Session.Profile.ID)
	}
}

func TestSignInCommand_FailureSkipsResult(t *testing.T) {
	failure := core.UndefinedUser()
	svc := stubSignOnService{
		signInFn: func(_ context.Context, _ core.PresentationContext) error { return failure },
		currentStateFn: func() core.SessionState {
			t.Fatalf("state must not be read after a failed sign-in")
			return core.SessionState{}
		},
	}

	collector := gocmd.NewResult[core.SessionState]()
	ctx := gocmd.ContextWithResult(context.Background(), collector)

	err := NewSignInCommand(svc).Execute(ctx, SignInMessage{})
	if err == nil {
		t.Fatalf("expected sign-in failure to propagate")
	}
	if _, ok := collector.Load(); ok {
		t.Fatalf("expected no stored result on failure")
	}
}

func TestLifecycleCommands_DelegateToService(t *testing.T) {
	t.Run("initialize", func(t *testing.T) {
		called := false
		svc := stubSignOnService{
			initializeFn: func(_ context.Context) error {
				called = true
				return nil
			},
		}
		if err := NewInitializeCommand(svc).Execute(context.Background(), InitializeMessage{}); err != nil {
			t.Fatalf("execute initialize: %v", err)
		}
		if !called {
			t.Fatalf("expected initialize invocation")
		}
	})

	t.Run("sign out", func(t *testing.T) {
		called := false
		svc := stubSignOnService{
			signOutFn: func(_ context.Context) error {
				called = true
				return nil
			},
		}
		if err := NewSignOutCommand(svc).Execute(context.Background(), SignOutMessage{}); err != nil {
			t.Fatalf("execute sign-out: %v", err)
		}
		if !called {
			t.Fatalf("expected sign-out invocation")
		}
	})

	t.Run("sign out propagates disconnect failure", func(t *testing.T) {
		failure := core.FailedSignIn(fmt.Errorf("revocation_failed: endpoint returned 503"))
		svc := stubSignOnService{
			signOutFn: func(_ context.Context) error { return failure },
		}
		err := NewSignOutCommand(svc).Execute(context.Background(), SignOutMessage{})
		if err == nil {
			t.Fatalf("expected sign-out failure to propagate")
		}
	})
}

func TestHandleRedirectCommand_StoresHandledFlag(t *testing.T) {
	t.Run("recognized", func(t *testing.T) {
		svc := stubSignOnService{
			handleRedirectFn: func(rawURL string) bool {
				if rawURL != "myapp://signon/callback?state=st_1&code=c_1" {
					t.Fatalf("unexpected redirect url: %q", rawURL)
				}
				return true
			},
		}
		collector := gocmd.NewResult[bool]()
		ctx := gocmd.ContextWithResult(context.Background(), collector)
		err := NewHandleRedirectCommand(svc).Execute(ctx, HandleRedirectMessage{
			RawURL: "myapp://signon/callback?state=st_1&code=c_1",
		})
		if err != nil {
			t.Fatalf("execute handle redirect: %v", err)
		}
		handled, ok := collector.Load()
		if !ok {
			t.Fatalf("expected handled flag to be stored")
		}
		if !handled {
			t.Fatalf("expected recognized redirect")
		}
	})

	t.Run("foreign url is not an error", func(t *testing.T) {
		svc := stubSignOnService{
			handleRedirectFn: func(string) bool { return false },
		}
		collector := gocmd.NewResult[bool]()
		ctx := gocmd.ContextWithResult(context.Background(), collector)
		err := NewHandleRedirectCommand(svc).Execute(ctx, HandleRedirectMessage{
			RawURL: "https://elsewhere.example/landing",
		})
		if err != nil {
			t.Fatalf("execute handle redirect: %v", err)
		}
		handled, ok := collector.Load()
		if !ok {
			t.Fatalf("expected handled flag to be stored")
		}
		if handled {
			t.Fatalf("expected unrecognized redirect")
		}
	})
}

func TestMessageValidation(t *testing.T) {
	tests := []struct {
		name    string
		msg     interface{ Validate() error }
		wantErr bool
	}{
		{
			name:    "initialize always valid",
			msg:     InitializeMessage{},
			wantErr: false,
		},
		{
			name:    "sign in empty presentation valid",
			msg:     SignInMessage{},
			wantErr: false,
		},
		{
			name: "sign in with return target",
			msg: SignInMessage{Presentation: core.PresentationContext{
				ReturnTo: "myapp://signon/done",
			}},
			wantErr: false,
		},
		{
			name: "sign in rejects unparseable return target",
			msg: SignInMessage{Presentation: core.PresentationContext{
				ReturnTo: "myapp://signon/\x01done",
			}},
			wantErr: true,
		},
		{
			name:    "sign out always valid",
			msg:     SignOutMessage{},
			wantErr: false,
		},
		{
			name:    "handle redirect valid",
			msg:     HandleRedirectMessage{RawURL: "myapp://signon/callback?state=st_1"},
			wantErr: false,
		},
		{
			name:    "handle redirect missing url",
			msg:     HandleRedirectMessage{},
			wantErr: true,
		},
		{
			name:    "handle redirect blank url",
			msg:     HandleRedirectMessage{RawURL: "   "},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.msg.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

type stubSignOnService struct {
	initializeFn     func(ctx context.Context) error
	signInFn         func(ctx context.Context, presentation core.PresentationContext) error
	signOutFn        func(ctx context.Context) error
	handleRedirectFn func(rawURL string) bool
	currentStateFn   func() core.SessionState
}

func (s stubSignOnService) Initialize(ctx context.Context) error {
	if s.initializeFn == nil {
		return fmt.Errorf("initialize not configured")
	}
	return s.initializeFn(ctx)
}

func (s stubSignOnService) SignIn(ctx context.Context, presentation core.PresentationContext) error {
	if s.signInFn == nil {
		return fmt.Errorf("sign in not configured")
	}
	return s.signInFn(ctx, presentation)
}

func (s stubSignOnService) SignOut(ctx context.Context) error {
	if s.signOutFn == nil {
		return fmt.Errorf("sign out not configured")
	}
	return s.signOutFn(ctx)
}

func (s stubSignOnService) HandleInboundRedirect(rawURL string) bool {
	if s.handleRedirectFn == nil {
		return false
	}
	return s.handleRedirectFn(rawURL)
}

func (s stubSignOnService) CurrentState() core.SessionState {
	if s.currentStateFn == nil {
		return core.DisconnectedState()
	}
	return s.currentStateFn()
}

var _ SignOnService = stubSignOnService{}
