// Package identity normalizes OpenID Connect claim sets into the profile
// shape provider clients hand to the sign-on core.
package identity

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/goliatone/go-signon/core"
)

// UserProfile is the normalized projection of one provider claim set. Raw
// keeps the source claims for hosts that need provider-specific fields.
type UserProfile struct {
	Issuer        string
	Subject       string
	Email         string
	EmailVerified bool
	Name          string
	GivenName     string
	FamilyName    string
	PictureURL    string
	Locale        string
	Raw           map[string]any
}

// FromClaims projects a decoded claim set onto UserProfile. Claim values
// arrive as whatever the JSON decoder produced, so string and bool fields
// coerce from the common wire variants (json.Number subjects, "true"
// strings, numeric booleans). A missing name falls back to the given/family
// pair.
func FromClaims(claims map[string]any) UserProfile {
	profile := UserProfile{
		Issuer:        readString(claims["iss"]),
		Subject:       readString(claims["sub"]),
		Email:         readString(claims["email"]),
		EmailVerified: readBool(claims["email_verified"]),
		Name:          readString(claims["name"]),
		GivenName:     readString(claims["given_name"]),
		FamilyName:    readString(claims["family_name"]),
		PictureURL:    readString(claims["picture"]),
		Locale:        readString(claims["locale"]),
		Raw:           copyClaims(claims),
	}
	if profile.Name == "" {
		profile.Name = strings.TrimSpace(strings.Join(
			[]string{profile.GivenName, profile.FamilyName},
			" ",
		))
	}
	return profile
}

// ExternalAccountID qualifies the subject with its issuer so profiles from
// different providers never collide in host storage.
func (p UserProfile) ExternalAccountID() string {
	subject := strings.TrimSpace(p.Subject)
	if subject == "" {
		return ""
	}
	issuer := strings.TrimSpace(p.Issuer)
	if issuer == "" {
		return subject
	}
	return issuer + "|" + subject
}

// Map renders the profile as loggable metadata.
func (p UserProfile) Map() map[string]any {
	metadata := map[string]any{
		"issuer":         strings.TrimSpace(p.Issuer),
		"subject":        strings.TrimSpace(p.Subject),
		"external_id":    p.ExternalAccountID(),
		"email":          strings.TrimSpace(p.Email),
		"email_verified": p.EmailVerified,
		"name":           strings.TrimSpace(p.Name),
		"given_name":     strings.TrimSpace(p.GivenName),
		"family_name":    strings.TrimSpace(p.FamilyName),
		"picture_url":    strings.TrimSpace(p.PictureURL),
		"locale":         strings.TrimSpace(p.Locale),
	}
	if len(p.Raw) > 0 {
		metadata["raw"] = copyClaims(p.Raw)
	}
	return metadata
}

// ProviderUser projects the profile onto the core user contract. Scope and
// credential validation stay with the core; a profile with an empty subject
// still projects and fails there. A nil grantedScopes slice is preserved to
// mean the provider did not report grants.
func (p UserProfile) ProviderUser(auth *core.ProviderAuth, grantedScopes []string) *core.ProviderUser {
	return &core.ProviderUser{
		ID:            strings.TrimSpace(p.Subject),
		Name:          strings.TrimSpace(p.Name),
		GivenName:     strings.TrimSpace(p.GivenName),
		FamilyName:    strings.TrimSpace(p.FamilyName),
		Email:         strings.TrimSpace(p.Email),
		AvatarURL:     strings.TrimSpace(p.PictureURL),
		GrantedScopes: grantedScopes,
		Auth:          auth,
	}
}

// DecodeIDTokenClaims decodes a JWT payload without verifying its signature.
// It serves paths where trust was already established elsewhere, such as
// re-projecting a cached ID token after a refresh grant, and diagnostics.
// Interactive sign-in must verify through the provider client instead.
func DecodeIDTokenClaims(token string) (map[string]any, error) {
	parts := strings.Split(strings.TrimSpace(token), ".")
	if len(parts) < 2 {
		return nil, fmt.Errorf("identity: invalid id_token format")
	}
	decoded, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		return nil, fmt.Errorf("identity: decode id_token payload: %w", err)
	}
	var claims map[string]any
	if err := json.Unmarshal(decoded, &claims); err != nil {
		return nil, fmt.Errorf("identity: decode id_token claims: %w", err)
	}
	return claims, nil
}

func copyClaims(src map[string]any) map[string]any {
	if len(src) == 0 {
		return map[string]any{}
	}
	dst := make(map[string]any, len(src))
	for key, value := range src {
		dst[key] = value
	}
	return dst
}

func readString(value any) string {
	switch typed := value.(type) {
	case string:
		return strings.TrimSpace(typed)
	case fmt.Stringer:
		return strings.TrimSpace(typed.String())
	case json.Number:
		return strings.TrimSpace(typed.String())
	case int:
		return strconv.Itoa(typed)
	case int64:
		return strconv.FormatInt(typed, 10)
	case float64:
		return strconv.FormatInt(int64(typed), 10)
	default:
		if value == nil {
			return ""
		}
		return strings.TrimSpace(fmt.Sprint(value))
	}
}

func readBool(value any) bool {
	switch typed := value.(type) {
	case bool:
		return typed
	case string:
		parsed, err := strconv.ParseBool(strings.TrimSpace(typed))
		return err == nil && parsed
	case json.Number:
		parsed, err := typed.Int64()
		return err == nil && parsed != 0
	case int:
		return typed != 0
	case int64:
		return typed != 0
	case float64:
		return typed != 0
	default:
		return false
	}
}
