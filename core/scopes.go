package core

import (
	"sort"
	"strings"
)

// ScopesSatisfy reports whether the granted scope set satisfies the required
// one. A nil granted slice means the provider did not report grants and fails
// closed. A nil or empty required set is always satisfied. Otherwise at least
// one required scope must appear among the granted ones.
func ScopesSatisfy(granted []string, required []string) bool {
	if granted == nil {
		return false
	}
	requiredSet := toScopeSet(required)
	if len(requiredSet) == 0 {
		return true
	}
	grantedSet := toScopeSet(granted)
	for scope := range requiredSet {
		if _, ok := grantedSet[scope]; ok {
			return true
		}
	}
	return false
}

// normalizeScopes trims, lowercases, deduplicates, and sorts. A nil input
// stays nil: it marks grants as unreported, which is not the same as an
// empty grant set.
func normalizeScopes(values []string) []string {
	if values == nil {
		return nil
	}
	if len(values) == 0 {
		return []string{}
	}
	set := toScopeSet(values)
	out := make([]string, 0, len(set))
	for scope := range set {
		out = append(out, scope)
	}
	sort.Strings(out)
	return out
}

func toScopeSet(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, value := range values {
		trimmed := strings.TrimSpace(strings.ToLower(value))
		if trimmed == "" {
			continue
		}
		set[trimmed] = struct{}{}
	}
	return set
}
