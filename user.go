package identitypool

import (
	"context"

	"github.com/solidauth/identitypool/storage"
)

// AuthFlowType enumerates the authentication flows a User can drive
// (spec.md §3).
type AuthFlowType string

const (
	UserSRPAuth          AuthFlowType = "USER_SRP_AUTH"
	UserPasswordAuth     AuthFlowType = "USER_PASSWORD_AUTH"
	CustomAuth           AuthFlowType = "CUSTOM_AUTH"
	RefreshTokenAuth     AuthFlowType = "REFRESH_TOKEN_AUTH"
	AuthFlowRefreshToken AuthFlowType = "REFRESH_TOKEN"
)

// User is the mutable, caller-owned authentication handle (spec.md §3
// "User"). Not safe for concurrent use by multiple goroutines calling
// entry points on the same User (spec.md §5).
type User struct {
	// Username may be rewritten by the IdP to a canonical alias
	// (USER_ID_FOR_SRP) during PASSWORD_VERIFIER response handling; no
	// other event rewrites it (spec.md §8 invariant 1).
	Username string
	Pool     *Pool

	// AuthenticationFlowType selects the flow authenticateUser drives.
	// Defaults to USER_SRP_AUTH.
	AuthenticationFlowType AuthFlowType

	// Session is the opaque protocol correlation string the IdP returns
	// between challenge steps — distinct from SignInUserSession, the
	// materialised token triple.
	Session string

	SignInUserSession *Session

	DeviceKey      string
	DeviceGroupKey string
	RandomPassword string

	ChallengeName       string
	ChallengeParameters map[string]string

	storage storage.Storage
	cache   *storage.Cache
}

// NewUser constructs a User bound to pool. Per spec.md §3's invariant and
// §8 scenario S1, both username and pool are required.
func NewUser(username string, pool *Pool) (*User, error) {
	if username == "" || pool == nil {
		return nil, newError(ErrInvalidParameter, "Username and Pool information are required.")
	}
	return &User{
		Username:               username,
		Pool:                   pool,
		AuthenticationFlowType: UserSRPAuth,
		storage:                pool.storage(),
		cache:                  pool.tokenCache(),
	}, nil
}

func (u *User) poolShortID() string {
	return u.Pool.poolShortID()
}

// loadCachedDevice populates DeviceKey/DeviceGroupKey/RandomPassword from
// storage if present, without overwriting already-set in-memory values.
func (u *User) loadCachedDevice() {
	if u.DeviceKey != "" {
		return
	}
	if d, ok := u.cache.Device(u.Username); ok {
		u.DeviceKey = d.DeviceKey
		u.DeviceGroupKey = d.DeviceGroupKey
		u.RandomPassword = d.RandomPassword
	}
}

func (u *User) cacheDevice(deviceKey, deviceGroupKey, randomPassword string) {
	u.DeviceKey = deviceKey
	u.DeviceGroupKey = deviceGroupKey
	u.RandomPassword = randomPassword
	u.cache.SetDevice(u.Username, storage.DeviceKeys{
		DeviceKey:      deviceKey,
		DeviceGroupKey: deviceGroupKey,
		RandomPassword: randomPassword,
	})
}

// cacheTokens persists SignInUserSession's four-key blob and records
// LastAuthUser (spec.md §4.4, §8 invariant 2).
func (u *User) cacheTokens() {
	if u.SignInUserSession == nil {
		return
	}
	u.cache.SetTokens(u.Username, u.SignInUserSession.toTokenKeys())
}

// SignOut clears the in-memory session and the four cache keys plus
// .LastAuthUser (spec.md §4.7, §8 invariant 3).
func (u *User) SignOut() {
	u.SignInUserSession = nil
	u.cache.ClearTokens(u.Username)
}

// GlobalSignOut invalidates all of the user's active tokens server-side,
// then clears local state (spec.md §4.7).
func (u *User) GlobalSignOut(ctx context.Context, cb *Callbacks) {
	session, err := u.getSessionSync(ctx)
	if err != nil {
		cb.fail(err)
		return
	}
	go func() {
		req := map[string]any{"AccessToken": session.AccessToken.String()}
		if err := u.Pool.dispatcher().Invoke(ctx, "GlobalSignOut", req, nil); err != nil {
			cb.fail(translateIdPError(err))
			return
		}
		u.SignOut()
		cb.succeed(nil, false)
	}()
}

// GetSession implements spec.md §4.5's access-token gating: if the
// in-memory session is valid it is returned with no network call (spec.md
// §8 invariant 7); else it is reconstituted from cache and, if the cached
// session is no longer valid, silently refreshed with its refresh token;
// with no cached tokens OnFailure fires with ErrNotAuthorized.
func (u *User) GetSession(ctx context.Context, clientMetadata map[string]string, cb *Callbacks) {
	if u.Username == "" {
		cb.fail(newError(ErrNotAuthorized, "Username is null. Cannot retrieve a new session"))
		return
	}
	if u.SignInUserSession.IsValid() {
		cb.succeed(u.SignInUserSession, false)
		return
	}

	cached, ok := u.cache.Tokens(u.Username)
	if !ok {
		cb.fail(newError(ErrNotAuthorized, "User is not authenticated"))
		return
	}
	session := sessionFromTokenKeys(cached)
	if session.IsValid() {
		u.SignInUserSession = session
		cb.succeed(session, false)
		return
	}

	u.refreshSession(ctx, session.RefreshToken.String(), clientMetadata, cb)
}

// getSessionSync is the blocking form used internally by single-shot
// action wrappers (spec.md §4.3 "Other entry points") that need a valid
// access token before dispatching their own IdP call.
func (u *User) getSessionSync(ctx context.Context) (*Session, error) {
	result := make(chan struct {
		session *Session
		err     error
	}, 1)
	u.GetSession(ctx, nil, &Callbacks{
		OnSuccess: func(s *Session, _ bool) { result <- struct {
			session *Session
			err     error
		}{s, nil} },
		OnFailure: func(err error) { result <- struct {
			session *Session
			err     error
		}{nil, err} },
	})
	r := <-result
	return r.session, r.err
}
