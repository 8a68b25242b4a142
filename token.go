package identitypool

import (
	"github.com/golang-jwt/jwt/v5"
)

// IDToken wraps the raw JWT string returned by the IdP as CognitoIdToken
// (spec.md §3 "Tokens"). Claims are decoded on demand; this library never
// validates the signature (spec.md §1 Non-goals) since it has no
// verification key and is not the relying party performing that check.
type IDToken struct {
	raw    string
	claims jwt.MapClaims
}

// AccessToken wraps the raw JWT string returned as CognitoAccessToken.
type AccessToken struct {
	raw    string
	claims jwt.MapClaims
}

// RefreshToken carries only an opaque string — the IdP never exposes its
// contents to the client.
type RefreshToken struct {
	raw string
}

func decodeClaims(raw string) jwt.MapClaims {
	claims := jwt.MapClaims{}
	parser := jwt.NewParser()
	_, _, _ = parser.ParseUnverified(raw, claims)
	return claims
}

// NewIDToken decodes raw's payload without verifying its signature.
func NewIDToken(raw string) *IDToken {
	return &IDToken{raw: raw, claims: decodeClaims(raw)}
}

// NewAccessToken decodes raw's payload without verifying its signature.
func NewAccessToken(raw string) *AccessToken {
	return &AccessToken{raw: raw, claims: decodeClaims(raw)}
}

// NewRefreshToken wraps raw as an opaque refresh token.
func NewRefreshToken(raw string) *RefreshToken {
	return &RefreshToken{raw: raw}
}

func (t *IDToken) String() string { return t.raw }
func (t *IDToken) JWTToken() string { return t.raw }

func (t *IDToken) Claims() jwt.MapClaims { return t.claims }
func (t *IDToken) ExpiresAt() int64      { return claimInt64(t.claims, "exp") }
func (t *IDToken) IssuedAt() int64       { return claimInt64(t.claims, "iat") }
func (t *IDToken) Subject() string       { return claimString(t.claims, "sub") }
func (t *IDToken) Username() string {
	if u := claimString(t.claims, "cognito:username"); u != "" {
		return u
	}
	return claimString(t.claims, "username")
}

func (t *AccessToken) String() string      { return t.raw }
func (t *AccessToken) JWTToken() string    { return t.raw }
func (t *AccessToken) Claims() jwt.MapClaims { return t.claims }
func (t *AccessToken) ExpiresAt() int64     { return claimInt64(t.claims, "exp") }
func (t *AccessToken) IssuedAt() int64      { return claimInt64(t.claims, "iat") }
func (t *AccessToken) Subject() string      { return claimString(t.claims, "sub") }
func (t *AccessToken) Username() string {
	if u := claimString(t.claims, "username"); u != "" {
		return u
	}
	return claimString(t.claims, "cognito:username")
}

func (t *RefreshToken) String() string { return t.raw }

func claimInt64(claims jwt.MapClaims, key string) int64 {
	v, ok := claims[key]
	if !ok {
		return 0
	}
	switch n := v.(type) {
	case float64:
		return int64(n)
	case int64:
		return n
	case int:
		return int64(n)
	default:
		return 0
	}
}

func claimString(claims jwt.MapClaims, key string) string {
	v, ok := claims[key]
	if !ok {
		return ""
	}
	s, _ := v.(string)
	return s
}
