// Command demo is a minimal chi-routed HTTP application that drives
// identitypool end to end: sign-up, SRP sign-in, MFA, and device
// remembering, against whatever IdP endpoint is configured.
package main

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	identitypool "github.com/solidauth/identitypool"
	"github.com/solidauth/identitypool/internal/config"
	"github.com/solidauth/identitypool/storage"
)

// app holds the demo's dependencies and its in-memory registry of
// in-flight Users, keyed by username. A real host application would key
// this off its own session cookie instead.
type app struct {
	pool *identitypool.Pool

	mu    sync.Mutex
	users map[string]*identitypool.User
}

func (a *app) userFor(username string) *identitypool.User {
	a.mu.Lock()
	defer a.mu.Unlock()
	if u, ok := a.users[username]; ok {
		return u
	}
	u, err := identitypool.NewUser(username, a.pool)
	if err != nil {
		return nil
	}
	a.users[username] = u
	return u
}

func main() {
	cfg := config.New()

	store, err := storage.NewSQLite(cfg.DBPath)
	if err != nil {
		log.Fatalf("opening storage: %v", err)
	}
	defer store.Close()

	pool, err := identitypool.NewPool(cfg.PoolID, cfg.ClientID)
	if err != nil {
		log.Fatalf("constructing pool: %v", err)
	}
	pool.ClientSecret = cfg.ClientSecret
	pool.Storage = store
	if cfg.Endpoint != "" {
		pool.Endpoint = cfg.Endpoint
	}

	a := &app{pool: pool, users: map[string]*identitypool.User{}}

	r := chi.NewRouter()
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(chimw.RealIP)
	r.Use(chimw.RequestID)

	r.Get("/health", a.handleHealth)
	r.Post("/signup", a.handleSignUp)
	r.Post("/confirm", a.handleConfirm)
	r.Post("/login", a.handleLogin)
	r.Post("/mfa", a.handleMFA)
	r.Post("/device/remember", a.handleRememberDevice)
	r.Get("/session", a.handleSession)
	r.Post("/logout", a.handleLogout)

	server := &http.Server{
		Addr:         cfg.Address(),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Printf("[identitypool-demo] listening on %s", cfg.Address())
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("[identitypool-demo] shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("forced shutdown: %v", err)
	}
}

func (a *app) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (a *app) handleSignUp(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string            `json:"username"`
		Password string            `json:"password"`
		Attrs    map[string]string `json:"attributes"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	result, err := a.pool.SignUp(r.Context(), req.Username, req.Password, req.Attrs, nil, nil)
	if err != nil {
		writeError(w, http.StatusBadGateway, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"userSub":       result.UserSub,
		"userConfirmed": result.UserConfirmed,
	})
}

func (a *app) handleConfirm(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Code     string `json:"code"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := a.pool.ConfirmRegistration(r.Context(), req.Username, req.Code, false, nil); err != nil {
		writeError(w, http.StatusBadGateway, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "confirmed"})
}

func (a *app) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	user := a.userFor(req.Username)
	if user == nil {
		writeError(w, http.StatusBadRequest, nil)
		return
	}

	done := make(chan struct{})
	var outcome map[string]any
	cb := &identitypool.Callbacks{
		OnSuccess: func(session *identitypool.Session, userConfirmationNecessary bool) {
			outcome = map[string]any{
				"status":                    "signed-in",
				"userConfirmationNecessary": userConfirmationNecessary,
			}
			close(done)
		},
		OnFailure: func(err error) {
			outcome = map[string]any{"status": "error", "error": err.Error()}
			close(done)
		},
		MFARequired: func(challengeName string, params map[string]string) {
			outcome = map[string]any{"status": "mfa-required", "challenge": challengeName, "parameters": params}
			close(done)
		},
		TOTPRequired: func(challengeName string, params map[string]string) {
			outcome = map[string]any{"status": "totp-required", "challenge": challengeName, "parameters": params}
			close(done)
		},
		SelectMFAType: func(challengeName string, params map[string]string) {
			outcome = map[string]any{"status": "select-mfa-type", "challenge": challengeName, "parameters": params}
			close(done)
		},
		NewPasswordRequired: func(userAttributes map[string]string, requiredAttributes []string) {
			outcome = map[string]any{
				"status":             "new-password-required",
				"userAttributes":     userAttributes,
				"requiredAttributes": requiredAttributes,
			}
			close(done)
		},
	}
	user.AuthenticateUser(r.Context(), identitypool.AuthenticationDetails{Password: req.Password}, cb)
	<-done
	writeJSON(w, http.StatusOK, outcome)
}

func (a *app) handleMFA(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Code     string `json:"code"`
		MFAType  string `json:"mfaType"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	user := a.userFor(req.Username)
	if user == nil {
		writeError(w, http.StatusBadRequest, nil)
		return
	}

	done := make(chan struct{})
	var outcome map[string]any
	cb := &identitypool.Callbacks{
		OnSuccess: func(session *identitypool.Session, userConfirmationNecessary bool) {
			outcome = map[string]any{"status": "signed-in", "userConfirmationNecessary": userConfirmationNecessary}
			close(done)
		},
		OnFailure: func(err error) {
			outcome = map[string]any{"status": "error", "error": err.Error()}
			close(done)
		},
	}
	user.SendMFACode(r.Context(), req.Code, req.MFAType, nil, cb)
	<-done
	writeJSON(w, http.StatusOK, outcome)
}

func (a *app) handleRememberDevice(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Remember bool   `json:"remember"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	user := a.userFor(req.Username)
	if user == nil {
		writeError(w, http.StatusBadRequest, nil)
		return
	}

	done := make(chan struct{})
	var outcome map[string]any
	cb := &identitypool.Callbacks{
		OnSuccess: func(*identitypool.Session, bool) {
			outcome = map[string]any{"status": "ok"}
			close(done)
		},
		OnFailure: func(err error) {
			outcome = map[string]any{"status": "error", "error": err.Error()}
			close(done)
		},
	}
	if req.Remember {
		user.RememberDevice(r.Context(), cb)
	} else {
		user.DontRememberDevice(r.Context(), cb)
	}
	<-done
	writeJSON(w, http.StatusOK, outcome)
}

func (a *app) handleSession(w http.ResponseWriter, r *http.Request) {
	username := r.URL.Query().Get("username")
	user := a.userFor(username)
	if user == nil {
		writeError(w, http.StatusBadRequest, nil)
		return
	}

	done := make(chan struct{})
	var outcome map[string]any
	cb := &identitypool.Callbacks{
		OnSuccess: func(session *identitypool.Session, _ bool) {
			outcome = map[string]any{"status": "valid", "expiresAt": session.AccessToken.ExpiresAt()}
			close(done)
		},
		OnFailure: func(err error) {
			outcome = map[string]any{"status": "invalid", "error": err.Error()}
			close(done)
		},
	}
	user.GetSession(r.Context(), nil, cb)
	<-done
	writeJSON(w, http.StatusOK, outcome)
}

func (a *app) handleLogout(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	user := a.userFor(req.Username)
	if user == nil {
		writeError(w, http.StatusBadRequest, nil)
		return
	}
	user.SignOut()
	writeJSON(w, http.StatusOK, map[string]string{"status": "signed-out"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	msg := "bad request"
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, map[string]string{"error": msg})
}
