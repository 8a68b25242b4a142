package identitypool

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"log"
	"net/http"
	"strings"

	"golang.org/x/time/rate"

	"github.com/solidauth/identitypool/internal/idp"
	"github.com/solidauth/identitypool/storage"
)

// defaultEndpointTemplate mirrors spec.md §6's single-POST-endpoint
// convention, generalised to a provider-neutral host. Region is taken
// from the leading segment of PoolID (form "region_shortId").
const defaultEndpointTemplate = "https://identitypool.%s.example/"

// Pool is the immutable configuration root (spec.md §3 "Pool"): pool id,
// client id/secret, storage handle, advisory-security hook, endpoint
// override. Users are constructed against a Pool and share its Storage
// and dispatcher.
type Pool struct {
	// PoolID has the form "region_shortId" (e.g. "us-east-1_AbCdEfGhI").
	PoolID string
	// ClientID identifies the application registered against this pool.
	ClientID string
	// ClientSecret, when set, causes every request to carry a SECRET_HASH
	// (spec.md §6 "Configuration options").
	ClientSecret string

	// Storage is the injected persistence abstraction; defaults to an
	// in-memory store when nil (spec.md §6 "a fallback in-memory
	// implementation must be supplied when none exists").
	Storage storage.Storage

	// Endpoint overrides the default derived-from-region IdP endpoint.
	Endpoint string

	// AdvancedSecurityDataCollectionFlag mirrors the IdP's opt-in/opt-out
	// advanced-security-data setting. It is not read by this package and
	// is not sent with requests; UserContextData carries only
	// UserContextDataHook's payload.
	AdvancedSecurityDataCollectionFlag bool

	// UserContextDataHook, when set, returns the advisory-security payload
	// to attach to authentication requests for the given username. Left
	// nil, no UserContextData field is sent at all (spec.md §9 Open
	// Questions).
	UserContextDataHook func(username string) []byte

	// Limiter, when set, throttles outbound IdP dispatcher calls made
	// through this pool (most relevant to background session refresh).
	Limiter *rate.Limiter

	// Logger receives the dispatcher's per-action log lines. Defaults to
	// log.Default() when nil.
	Logger *log.Logger

	// Doer overrides the HTTP transport used by the dispatcher (tests
	// supply a mock; production callers normally leave this nil to get
	// http.DefaultClient).
	Doer idp.Doer

	client *idp.Client
	cache  *storage.Cache
}

// NewPool validates poolID/clientID and returns a ready-to-use Pool.
// Per spec.md §3 invariant, a malformed pool id is a construction-time
// failure.
func NewPool(poolID, clientID string) (*Pool, error) {
	region, _, ok := strings.Cut(poolID, "_")
	if !ok || region == "" || clientID == "" {
		return nil, newError(ErrInvalidParameter, "UserPoolId must have the form region_poolShortId and ClientId must be non-empty")
	}
	return &Pool{PoolID: poolID, ClientID: clientID}, nil
}

func (p *Pool) poolShortID() string {
	_, shortID, _ := strings.Cut(p.PoolID, "_")
	return shortID
}

func (p *Pool) region() string {
	region, _, _ := strings.Cut(p.PoolID, "_")
	return region
}

func (p *Pool) storage() storage.Storage {
	if p.Storage == nil {
		p.Storage = storage.NewMemory()
	}
	return p.Storage
}

func (p *Pool) tokenCache() *storage.Cache {
	if p.cache == nil {
		p.cache = storage.NewCache(p.storage(), p.ClientID)
	}
	return p.cache
}

func (p *Pool) dispatcher() *idp.Client {
	if p.client == nil {
		endpoint := p.Endpoint
		if endpoint == "" {
			endpoint = fmt.Sprintf(defaultEndpointTemplate, p.region())
		}
		doer := p.Doer
		if doer == nil {
			doer = http.DefaultClient
		}
		p.client = &idp.Client{
			Endpoint: endpoint,
			Doer:     doer,
			Limiter:  p.Limiter,
			Logger:   p.Logger,
		}
	}
	return p.client
}

// secretHash computes SECRET_HASH = base64(HMAC-SHA256(clientSecret,
// username ‖ clientId)), or "" when no ClientSecret is configured
// (spec.md §6).
func (p *Pool) secretHash(username string) string {
	if p.ClientSecret == "" {
		return ""
	}
	mac := hmac.New(sha256.New, []byte(p.ClientSecret))
	mac.Write([]byte(username + p.ClientID))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// SignUpResult is returned by SignUp on success (spec.md §4.6).
type SignUpResult struct {
	User              *User
	UserConfirmed     bool
	UserSub           string
	CodeDeliveryDetail map[string]string
}

// SignUp registers a new user (spec.md §4.6).
func (p *Pool) SignUp(ctx context.Context, username, password string, userAttributes, validationData map[string]string, clientMetadata map[string]string) (*SignUpResult, error) {
	if username == "" || password == "" {
		return nil, newError(ErrInvalidParameter, "username and password are required")
	}

	req := map[string]any{
		"ClientId":       p.ClientID,
		"Username":       username,
		"Password":       password,
		"UserAttributes": attributeList(userAttributes),
	}
	if len(validationData) > 0 {
		req["ValidationData"] = attributeList(validationData)
	}
	if len(clientMetadata) > 0 {
		req["ClientMetadata"] = clientMetadata
	}
	if hash := p.secretHash(username); hash != "" {
		req["SecretHash"] = hash
	}

	var resp struct {
		UserConfirmed      bool              `json:"UserConfirmed"`
		UserSub            string            `json:"UserSub"`
		CodeDeliveryDetail map[string]string `json:"CodeDeliveryDetail"`
	}
	if err := p.dispatcher().Invoke(ctx, "SignUp", req, &resp); err != nil {
		return nil, translateIdPError(err)
	}

	user, err := NewUser(username, p)
	if err != nil {
		return nil, err
	}
	return &SignUpResult{
		User:               user,
		UserConfirmed:      resp.UserConfirmed,
		UserSub:            resp.UserSub,
		CodeDeliveryDetail: resp.CodeDeliveryDetail,
	}, nil
}

// ConfirmRegistration confirms a sign-up with a verification code
// (spec.md §4.6).
func (p *Pool) ConfirmRegistration(ctx context.Context, username, code string, forceAliasCreation bool, clientMetadata map[string]string) error {
	req := map[string]any{
		"ClientId":           p.ClientID,
		"Username":           username,
		"ConfirmationCode":   code,
		"ForceAliasCreation": forceAliasCreation,
	}
	if len(clientMetadata) > 0 {
		req["ClientMetadata"] = clientMetadata
	}
	if hash := p.secretHash(username); hash != "" {
		req["SecretHash"] = hash
	}
	if err := p.dispatcher().Invoke(ctx, "ConfirmSignUp", req, nil); err != nil {
		return translateIdPError(err)
	}
	return nil
}

// ResendConfirmationCode asks the IdP to resend the sign-up confirmation
// code (spec.md §4.6).
func (p *Pool) ResendConfirmationCode(ctx context.Context, username string, clientMetadata map[string]string) (map[string]string, error) {
	req := map[string]any{
		"ClientId": p.ClientID,
		"Username": username,
	}
	if len(clientMetadata) > 0 {
		req["ClientMetadata"] = clientMetadata
	}
	if hash := p.secretHash(username); hash != "" {
		req["SecretHash"] = hash
	}
	var resp struct {
		CodeDeliveryDetail map[string]string `json:"CodeDeliveryDetail"`
	}
	if err := p.dispatcher().Invoke(ctx, "ResendConfirmationCode", req, &resp); err != nil {
		return nil, translateIdPError(err)
	}
	return resp.CodeDeliveryDetail, nil
}

func attributeList(attrs map[string]string) []map[string]string {
	list := make([]map[string]string, 0, len(attrs))
	for name, value := range attrs {
		list = append(list, map[string]string{"Name": name, "Value": value})
	}
	return list
}

// translateIdPError converts errors returned from the dispatcher into the
// library's *Error type (spec.md §7).
func translateIdPError(err error) error {
	if err == nil {
		return nil
	}
	switch e := err.(type) {
	case *idp.Error:
		switch e.Kind {
		case "NotAuthorizedException":
			return wrapError(ErrNotAuthorized, e.Message, err)
		default:
			return &Error{Kind: ErrIdP, Message: fmt.Sprintf("%s: %s", e.Kind, e.Message), Cause: err}
		}
	case *idp.NetworkError:
		return wrapError(ErrNetwork, e.Error(), err)
	default:
		return wrapError(ErrIdP, err.Error(), err)
	}
}
