package core

import "testing"

func TestScopesSatisfy_UnreportedGrantsFailClosed(t *testing.T) {
	if ScopesSatisfy(nil, nil) {
		t.Fatalf("expected unreported grants to fail even with no requirements")
	}
	if ScopesSatisfy(nil, []string{"email"}) {
		t.Fatalf("expected unreported grants to fail against requirements")
	}
}

func TestScopesSatisfy_EmptyRequirementPasses(t *testing.T) {
	if !ScopesSatisfy([]string{}, nil) {
		t.Fatalf("expected empty grant set to satisfy no requirements")
	}
	if !ScopesSatisfy([]string{}, []string{}) {
		t.Fatalf("expected empty grant set to satisfy empty requirements")
	}
	if !ScopesSatisfy([]string{"email"}, nil) {
		t.Fatalf("expected any reported grants to satisfy no requirements")
	}
}

func TestScopesSatisfy_RequiresNonEmptyIntersection(t *testing.T) {
	cases := []struct {
		name     string
		granted  []string
		required []string
		want     bool
	}{
		{name: "disjoint", granted: []string{"profile"}, required: []string{"email"}, want: false},
		{name: "partial overlap", granted: []string{"profile", "email"}, required: []string{"email", "calendar"}, want: true},
		{name: "full match", granted: []string{"email"}, required: []string{"email"}, want: true},
		{name: "empty granted", granted: []string{}, required: []string{"email"}, want: false},
		{name: "case and padding", granted: []string{" EMAIL "}, required: []string{"email"}, want: true},
		{name: "blank requirements collapse", granted: []string{}, required: []string{"  ", ""}, want: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ScopesSatisfy(tc.granted, tc.required); got != tc.want {
				t.Fatalf("ScopesSatisfy(%v, %v) = %v, want %v", tc.granted, tc.required, got, tc.want)
			}
		})
	}
}

func TestNormalizeScopes_SortsAndDeduplicates(t *testing.T) {
	got := normalizeScopes([]string{"profile", "email", "profile", " email", ""})
	want := []string{"email", "profile"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
	if normalizeScopes(nil) != nil {
		t.Fatalf("expected nil scopes to stay nil")
	}
	if out := normalizeScopes([]string{"", "  "}); out == nil || len(out) != 0 {
		t.Fatalf("expected blank-only scopes to collapse to empty non-nil, got %#v", out)
	}
}
