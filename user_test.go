package identitypool

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"
)

func testPool(t *testing.T, handler http.HandlerFunc) *Pool {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	pool, err := NewPool("us-test-1_abc123", "client123")
	if err != nil {
		t.Fatalf("NewPool: %v", err)
	}
	pool.Endpoint = srv.URL
	pool.Doer = http.DefaultClient
	return pool
}

func actionFromRequest(r *http.Request) string {
	target := r.Header.Get("X-Amz-Target")
	_, action, _ := strings.Cut(target, ".")
	return action
}

func decodeBody(r *http.Request, v any) {
	_ = json.NewDecoder(r.Body).Decode(v)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

// TestNewUserRequiresUsernameAndPool implements spec.md §8 scenario S1.
func TestNewUserRequiresUsernameAndPool(t *testing.T) {
	pool := &Pool{PoolID: "us-test-1_abc", ClientID: "client123"}

	if _, err := NewUser("", pool); err == nil {
		t.Fatal("expected an error for empty username")
	} else if err.Error() != "Username and Pool information are required." {
		t.Errorf("error = %q, want exact S1 message", err.Error())
	}

	if _, err := NewUser("alice", nil); err == nil {
		t.Fatal("expected an error for nil pool")
	}
}

// TestAuthenticateUserInvalidFlowType implements spec.md §8 scenario S2.
func TestAuthenticateUserInvalidFlowType(t *testing.T) {
	pool := testPool(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no IdP call should be made for an invalid flow type")
	})
	user, err := NewUser("alice", pool)
	if err != nil {
		t.Fatalf("NewUser: %v", err)
	}
	user.AuthenticationFlowType = "WRONG_AUTH_FLOW_TYPE"

	var calls int
	var mu sync.Mutex
	done := make(chan struct{})
	user.AuthenticateUser(context.Background(), AuthenticationDetails{Password: "pw"}, &Callbacks{
		OnFailure: func(err error) {
			mu.Lock()
			calls++
			mu.Unlock()
			close(done)
		},
		OnSuccess: func(*Session, bool) {
			t.Fatal("OnSuccess should not be invoked")
		},
	})
	<-done
	mu.Lock()
	defer mu.Unlock()
	if calls != 1 {
		t.Fatalf("OnFailure invoked %d times, want exactly 1", calls)
	}
}

// TestAuthenticateUserSRPHappyPath implements spec.md §8 scenario S3.
func TestAuthenticateUserSRPHappyPath(t *testing.T) {
	now := time.Now().Unix()
	idToken := testJWT(map[string]any{"exp": now + 3600, "iat": now, "sub": "user-sub"})
	accessToken := testJWT(map[string]any{"exp": now + 3600, "iat": now})

	pool := testPool(t, func(w http.ResponseWriter, r *http.Request) {
		switch actionFromRequest(r) {
		case "InitiateAuth":
			writeJSON(w, map[string]any{
				"ChallengeName": "PASSWORD_VERIFIER",
				"Session":       "srp-session-token",
				"ChallengeParameters": map[string]string{
					"USER_ID_FOR_SRP": "alice-internal",
					"SALT":            "aa",
					"SRP_B":           "abcdef12",
					"SECRET_BLOCK":    base64.StdEncoding.EncodeToString([]byte("secretblock")),
				},
			})
		case "RespondToAuthChallenge":
			var body map[string]any
			decodeBody(r, &body)
			writeJSON(w, map[string]any{
				"AuthenticationResult": map[string]string{
					"IdToken":      idToken,
					"AccessToken":  accessToken,
					"RefreshToken": "refresh-opaque",
				},
			})
		default:
			t.Fatalf("unexpected action %q", actionFromRequest(r))
		}
	})

	user, err := NewUser("alice", pool)
	if err != nil {
		t.Fatalf("NewUser: %v", err)
	}

	type result struct {
		session *Session
		err     error
	}
	done := make(chan result, 1)
	user.AuthenticateUser(context.Background(), AuthenticationDetails{Password: "correct horse battery staple"}, &Callbacks{
		OnSuccess: func(s *Session, userConfirmationNecessary bool) { done <- result{s, nil} },
		OnFailure: func(err error) { done <- result{nil, err} },
	})

	r := <-done
	if r.err != nil {
		t.Fatalf("authentication failed: %v", r.err)
	}
	if !r.session.IsValid() {
		t.Fatal("expected a valid session")
	}
	if user.Username != "alice-internal" {
		t.Errorf("Username = %q, want alias rewrite to alice-internal", user.Username)
	}
}

// TestCustomChallengeCarriesThrough implements spec.md §8 scenario S4.
func TestCustomChallengeCarriesThrough(t *testing.T) {
	pool := testPool(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{
			"ChallengeName":       "CUSTOM_CHALLENGE",
			"Session":             "s",
			"ChallengeParameters": map[string]string{"answer": "p"},
		})
	})
	user, err := NewUser("alice", pool)
	if err != nil {
		t.Fatalf("NewUser: %v", err)
	}
	user.AuthenticationFlowType = CustomAuth

	var gotParams map[string]string
	done := make(chan struct{})
	user.AuthenticateUser(context.Background(), AuthenticationDetails{}, &Callbacks{
		CustomChallenge: func(params map[string]string) {
			gotParams = params
			close(done)
		},
		OnFailure: func(err error) { t.Fatalf("unexpected failure: %v", err) },
	})
	<-done

	if gotParams["answer"] != "p" {
		t.Errorf("challenge parameters = %v, want answer=p", gotParams)
	}
	if user.Session != "s" {
		t.Errorf("user.Session = %q, want %q", user.Session, "s")
	}
}

// TestGlobalSignOutWithInvalidSession implements spec.md §8 scenario S5.
func TestGlobalSignOutWithInvalidSession(t *testing.T) {
	pool := testPool(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no IdP call should be made without a valid session")
	})
	user, err := NewUser("alice", pool)
	if err != nil {
		t.Fatalf("NewUser: %v", err)
	}

	past := time.Now().Add(-time.Hour).Unix()
	expired := testJWT(map[string]any{"exp": past, "iat": past - 3600})
	// Zero clock drift, so the hour-old expiry counts (newSession would
	// record drift = now - iat and treat these tokens as still valid).
	user.SignInUserSession = &Session{
		IDToken:      NewIDToken(expired),
		AccessToken:  NewAccessToken(expired),
		RefreshToken: NewRefreshToken("refresh-opaque"),
	}

	done := make(chan error, 1)
	user.GlobalSignOut(context.Background(), &Callbacks{
		OnFailure: func(err error) { done <- err },
		OnSuccess: func(*Session, bool) { t.Fatal("OnSuccess should not be invoked") },
	})
	err = <-done
	if err == nil {
		t.Fatal("expected an error for an invalid session")
	}
}

// TestRefreshSessionPreservesExistingRefreshToken implements spec.md §8
// scenario S6.
func TestRefreshSessionPreservesExistingRefreshToken(t *testing.T) {
	now := time.Now().Unix()
	idToken := testJWT(map[string]any{"exp": now + 3600, "iat": now})
	accessToken := testJWT(map[string]any{"exp": now + 3600, "iat": now})

	pool := testPool(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{
			"AuthenticationResult": map[string]any{
				"IdToken":      idToken,
				"AccessToken":  accessToken,
				"RefreshToken": nil,
			},
		})
	})
	user, err := NewUser("alice", pool)
	if err != nil {
		t.Fatalf("NewUser: %v", err)
	}

	done := make(chan *Session, 1)
	user.refreshSession(context.Background(), "original-refresh-token", nil, &Callbacks{
		OnSuccess: func(s *Session, _ bool) { done <- s },
		OnFailure: func(err error) { t.Fatalf("refreshSession failed: %v", err) },
	})
	session := <-done

	if session.RefreshToken.String() != "original-refresh-token" {
		t.Errorf("RefreshToken = %q, want the original token preserved", session.RefreshToken.String())
	}
}

// TestSignOutClearsSessionAndCache implements spec.md §8 invariant 3.
func TestSignOutClearsSessionAndCache(t *testing.T) {
	pool := testPool(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("SignOut must not call the IdP")
	})
	user, err := NewUser("alice", pool)
	if err != nil {
		t.Fatalf("NewUser: %v", err)
	}

	now := time.Now().Unix()
	idToken := testJWT(map[string]any{"exp": now + 3600, "iat": now})
	user.SignInUserSession = newSession(idToken, idToken, "refresh-opaque")
	user.cacheTokens()

	user.SignOut()

	if user.SignInUserSession != nil {
		t.Fatal("expected in-memory session to be cleared")
	}
	if _, ok := user.cache.Tokens("alice"); ok {
		t.Fatal("expected cached tokens to be cleared")
	}
	if _, ok := user.cache.LastAuthUser(); ok {
		t.Fatal("expected LastAuthUser to be cleared")
	}
}

// TestGetSessionReturnsCachedValidSessionWithoutNetworkCall implements
// spec.md §8 invariant 7.
func TestGetSessionReturnsCachedValidSessionWithoutNetworkCall(t *testing.T) {
	pool := testPool(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("GetSession must not call the IdP when the in-memory session is valid")
	})
	user, err := NewUser("alice", pool)
	if err != nil {
		t.Fatalf("NewUser: %v", err)
	}

	now := time.Now().Unix()
	idToken := testJWT(map[string]any{"exp": now + 3600, "iat": now})
	user.SignInUserSession = newSession(idToken, idToken, "refresh-opaque")

	done := make(chan *Session, 1)
	user.GetSession(context.Background(), nil, &Callbacks{
		OnSuccess: func(s *Session, _ bool) { done <- s },
		OnFailure: func(err error) { t.Fatalf("unexpected failure: %v", err) },
	})
	if <-done == nil {
		t.Fatal("expected a session")
	}
}
