package identitypool

import (
	"testing"
	"time"
)

func TestSessionIsValidWhenBothTokensUnexpired(t *testing.T) {
	now := time.Now().Unix()
	idToken := testJWT(map[string]any{"exp": now + 3600, "iat": now})
	accessToken := testJWT(map[string]any{"exp": now + 3600, "iat": now})

	s := newSession(idToken, accessToken, "refresh-opaque")
	if !s.IsValid() {
		t.Fatal("expected session to be valid")
	}
}

func TestSessionIsInvalidWhenEitherTokenExpired(t *testing.T) {
	now := time.Now().Unix()
	idToken := testJWT(map[string]any{"exp": now - 10, "iat": now - 3600})
	accessToken := testJWT(map[string]any{"exp": now + 3600, "iat": now - 3600})

	// Built directly with zero clock drift: newSession would record
	// drift = now - iat (3600 here), which shifts the validity check back
	// by an hour and makes this session valid.
	s := &Session{
		IDToken:      NewIDToken(idToken),
		AccessToken:  NewAccessToken(accessToken),
		RefreshToken: NewRefreshToken("refresh-opaque"),
	}
	if s.IsValid() {
		t.Fatal("expected session to be invalid when the id token is expired")
	}
}

func TestSessionNilIsInvalid(t *testing.T) {
	var s *Session
	if s.IsValid() {
		t.Fatal("nil session must be invalid")
	}
}

func TestSessionClockDriftComputedAtIssuance(t *testing.T) {
	issuedAgo := int64(30)
	now := time.Now().Unix()
	idToken := testJWT(map[string]any{"exp": now + 3600, "iat": now - issuedAgo})
	accessToken := testJWT(map[string]any{"exp": now + 3600, "iat": now - issuedAgo})

	s := newSession(idToken, accessToken, "refresh-opaque")
	if s.ClockDrift < issuedAgo-1 || s.ClockDrift > issuedAgo+1 {
		t.Fatalf("ClockDrift = %d, want approximately %d", s.ClockDrift, issuedAgo)
	}
}

func TestSessionTokenKeysRoundTrip(t *testing.T) {
	now := time.Now().Unix()
	idToken := testJWT(map[string]any{"exp": now + 3600, "iat": now})
	accessToken := testJWT(map[string]any{"exp": now + 3600, "iat": now})

	s := newSession(idToken, accessToken, "refresh-opaque")
	keys := s.toTokenKeys()
	restored := sessionFromTokenKeys(keys)

	if restored.IDToken.String() != s.IDToken.String() {
		t.Errorf("IDToken mismatch after round trip")
	}
	if restored.AccessToken.String() != s.AccessToken.String() {
		t.Errorf("AccessToken mismatch after round trip")
	}
	if restored.RefreshToken.String() != s.RefreshToken.String() {
		t.Errorf("RefreshToken mismatch after round trip")
	}
	if restored.ClockDrift != s.ClockDrift {
		t.Errorf("ClockDrift = %d, want %d", restored.ClockDrift, s.ClockDrift)
	}
}
