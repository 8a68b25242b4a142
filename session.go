package identitypool

import (
	"strconv"
	"time"

	"github.com/solidauth/identitypool/storage"
)

// Session is the materialised id/access/refresh token triple plus the
// clock-drift correction recorded at issuance (spec.md §3 "Session").
type Session struct {
	IDToken      *IDToken
	AccessToken  *AccessToken
	RefreshToken *RefreshToken
	ClockDrift   int64
}

// newSession builds a Session from an AuthenticationResult's three raw
// JWT/opaque strings (spec.md §4.4). clockDrift is computed against the
// id token's iat claim at the moment of issuance and frozen into the
// Session from then on.
func newSession(idToken, accessToken, refreshToken string) *Session {
	id := NewIDToken(idToken)
	clockDrift := time.Now().Unix() - id.IssuedAt()
	return &Session{
		IDToken:      id,
		AccessToken:  NewAccessToken(accessToken),
		RefreshToken: NewRefreshToken(refreshToken),
		ClockDrift:   clockDrift,
	}
}

// IsValid reports whether both the id and access tokens are unexpired,
// adjusted for clock drift recorded at issuance (spec.md §3
// "isValid() ≡ min(idExp, accessExp) > currentTime − clockDrift").
func (s *Session) IsValid() bool {
	if s == nil {
		return false
	}
	idExp := s.IDToken.ExpiresAt()
	accessExp := s.AccessToken.ExpiresAt()
	minExp := idExp
	if accessExp < minExp {
		minExp = accessExp
	}
	return minExp > time.Now().Unix()-s.ClockDrift
}

func (s *Session) toTokenKeys() storage.TokenKeys {
	return storage.TokenKeys{
		IDToken:      s.IDToken.String(),
		AccessToken:  s.AccessToken.String(),
		RefreshToken: s.RefreshToken.String(),
		ClockDrift:   strconv.FormatInt(s.ClockDrift, 10),
	}
}

func sessionFromTokenKeys(t storage.TokenKeys) *Session {
	drift, _ := strconv.ParseInt(t.ClockDrift, 10, 64)
	return &Session{
		IDToken:      NewIDToken(t.IDToken),
		AccessToken:  NewAccessToken(t.AccessToken),
		RefreshToken: NewRefreshToken(t.RefreshToken),
		ClockDrift:   drift,
	}
}
