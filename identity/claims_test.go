package identity

import (
	"encoding/base64"
	"encoding/json"
	"testing"

	"github.com/goliatone/go-signon/core"
)

func TestFromClaims_NormalizesStandardClaims(t *testing.T) {
	profile := FromClaims(map[string]any{
		"iss":            "https://accounts.example.com",
		"sub":            " sub_123 ",
		"email":          "user@example.com",
		"email_verified": true,
		"name":           "User Name",
		"given_name":     "User",
		"family_name":    "Name",
		"picture":        "https://example.com/p.png",
		"locale":         "en",
	})
	if profile.Subject != "sub_123" {
		t.Fatalf("expected trimmed subject sub_123, got %q", profile.Subject)
	}
	if profile.Issuer != "https://accounts.example.com" {
		t.Fatalf("expected issuer from iss claim, got %q", profile.Issuer)
	}
	if profile.Email != "user@example.com" || !profile.EmailVerified {
		t.Fatalf("expected verified email, got %q verified=%v", profile.Email, profile.EmailVerified)
	}
	if profile.Name != "User Name" {
		t.Fatalf("expected name from name claim, got %q", profile.Name)
	}
	if profile.PictureURL != "https://example.com/p.png" {
		t.Fatalf("expected picture url, got %q", profile.PictureURL)
	}
	if profile.ExternalAccountID() != "https://accounts.example.com|sub_123" {
		t.Fatalf("expected issuer-qualified external account id, got %q", profile.ExternalAccountID())
	}
}

func TestFromClaims_CoercesWireVariants(t *testing.T) {
	profile := FromClaims(map[string]any{
		"sub":            float64(12345),
		"email_verified": "true",
	})
	if profile.Subject != "12345" {
		t.Fatalf("expected numeric subject coerced to string, got %q", profile.Subject)
	}
	if !profile.EmailVerified {
		t.Fatalf("expected string true coerced to bool")
	}

	profile = FromClaims(map[string]any{
		"sub":            json.Number("67890"),
		"email_verified": json.Number("1"),
	})
	if profile.Subject != "67890" {
		t.Fatalf("expected json.Number subject coerced to string, got %q", profile.Subject)
	}
	if !profile.EmailVerified {
		t.Fatalf("expected nonzero json.Number coerced to true")
	}

	profile = FromClaims(map[string]any{"email_verified": "not-a-bool"})
	if profile.EmailVerified {
		t.Fatalf("expected unparseable bool to stay false")
	}
}

func TestFromClaims_NameFallsBackToGivenFamilyPair(t *testing.T) {
	profile := FromClaims(map[string]any{
		"sub":         "sub_1",
		"given_name":  "Ada",
		"family_name": "Lovelace",
	})
	if profile.Name != "Ada Lovelace" {
		t.Fatalf("expected name assembled from given/family pair, got %q", profile.Name)
	}

	profile = FromClaims(map[string]any{
		"sub":        "sub_2",
		"given_name": "Ada",
	})
	if profile.Name != "Ada" {
		t.Fatalf("expected single-part fallback without padding, got %q", profile.Name)
	}
}

func TestExternalAccountID_WithoutIssuerFallsBackToSubject(t *testing.T) {
	profile := UserProfile{Subject: "sub_1"}
	if profile.ExternalAccountID() != "sub_1" {
		t.Fatalf("expected bare subject, got %q", profile.ExternalAccountID())
	}
	if (UserProfile{}).ExternalAccountID() != "" {
		t.Fatalf("expected empty id for empty profile")
	}
}

func TestProviderUser_ProjectsProfileAndPreservesNilScopes(t *testing.T) {
	auth := &core.ProviderAuth{
		TokenType:   "Bearer",
		AccessToken: "access_1",
		IDToken:     "id_1",
	}
	profile := FromClaims(map[string]any{
		"iss":     "https://accounts.example.com",
		"sub":     "sub_123",
		"email":   "user@example.com",
		"name":    "User Name",
		"picture": "https://example.com/p.png",
	})

	user := profile.ProviderUser(auth, nil)
	if user.ID != "sub_123" {
		t.Fatalf("expected subject as user id, got %q", user.ID)
	}
	if user.AvatarURL != "https://example.com/p.png" {
		t.Fatalf("expected picture projected to avatar url, got %q", user.AvatarURL)
	}
	if user.GrantedScopes != nil {
		t.Fatalf("expected nil scopes to stay nil, got %v", user.GrantedScopes)
	}
	if user.Auth != auth {
		t.Fatalf("expected auth passed through unchanged")
	}

	user = profile.ProviderUser(auth, []string{"openid"})
	if len(user.GrantedScopes) != 1 || user.GrantedScopes[0] != "openid" {
		t.Fatalf("expected reported scopes carried over, got %v", user.GrantedScopes)
	}
}

func TestDecodeIDTokenClaims_DecodesPayloadWithoutVerification(t *testing.T) {
	token := mustJWTToken(t, map[string]any{
		"iss": "https://accounts.example.com",
		"sub": "sub_123",
	})
	claims, err := DecodeIDTokenClaims(token)
	if err != nil {
		t.Fatalf("decode id token claims: %v", err)
	}
	if claims["sub"] != "sub_123" {
		t.Fatalf("expected sub claim, got %v", claims["sub"])
	}

	profile := FromClaims(claims)
	if profile.ExternalAccountID() != "https://accounts.example.com|sub_123" {
		t.Fatalf("expected decoded claims to project, got %q", profile.ExternalAccountID())
	}
}

func TestDecodeIDTokenClaims_RejectsMalformedTokens(t *testing.T) {
	if _, err := DecodeIDTokenClaims("not-a-jwt"); err == nil {
		t.Fatalf("expected error for token without payload segment")
	}
	if _, err := DecodeIDTokenClaims("header.!!!.signature"); err == nil {
		t.Fatalf("expected error for payload that is not base64url")
	}
	badPayload := base64.RawURLEncoding.EncodeToString([]byte("not json"))
	if _, err := DecodeIDTokenClaims("header." + badPayload + ".signature"); err == nil {
		t.Fatalf("expected error for payload that is not a JSON object")
	}
}

func TestMap_IncludesRawClaims(t *testing.T) {
	profile := FromClaims(map[string]any{
		"iss":   "https://accounts.example.com",
		"sub":   "sub_123",
		"hd":    "example.com",
		"email": "user@example.com",
	})
	metadata := profile.Map()
	if metadata["external_id"] != "https://accounts.example.com|sub_123" {
		t.Fatalf("expected external id in metadata, got %v", metadata["external_id"])
	}
	raw, ok := metadata["raw"].(map[string]any)
	if !ok {
		t.Fatalf("expected raw claims map, got %T", metadata["raw"])
	}
	if raw["hd"] != "example.com" {
		t.Fatalf("expected provider-specific claim retained, got %v", raw["hd"])
	}
}

func mustJWTToken(t *testing.T, claims map[string]any) string {
	t.Helper()
	header := base64.RawURLEncoding.EncodeToString([]byte(`{"alg":"none","typ":"JWT"}`))
	payload, err := json.Marshal(claims)
	if err != nil {
		t.Fatalf("marshal claims: %v", err)
	}
	return header + "." + base64.RawURLEncoding.EncodeToString(payload) + ".signature"
}
