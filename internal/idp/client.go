// Package idp implements the action-style JSON dispatcher used to talk to
// the hosted identity provider: one HTTP POST per named action, a fixed
// target header, and structured {__type, message} error decoding
// (spec.md §4.2, §6).
package idp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"

	"golang.org/x/time/rate"
)

// Doer is satisfied directly by *http.Client; callers that need custom
// transport (proxies, retries, test doubles) supply their own.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// targetHeaderPrefix namespaces the action name in the request header,
// analogous to the X-Amz-Target convention the teacher's broker clients
// send as a fixed header (mitid/client.go, saxo/auth.go), generalised to
// a provider-neutral service name.
const targetHeaderPrefix = "IdentityProviderService."

// Client dispatches named actions to a single IdP endpoint.
type Client struct {
	// Endpoint is the full URL of the IdP's single POST endpoint.
	Endpoint string
	// Doer performs the actual HTTP round trip.
	Doer Doer
	// Limiter, if set, throttles outbound requests — most relevant to
	// background session refresh, so a flapping client can't hammer the
	// IdP (modeled on internal/middleware/ratelimit.go's per-visitor
	// token bucket, here applied per Client rather than per remote IP).
	Limiter *rate.Limiter
	// Logger receives one line per dispatched action and per failure.
	// Defaults to log.Default() when nil.
	Logger *log.Logger
}

func (c *Client) logger() *log.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return log.Default()
}

// Invoke POSTs body (marshaled as JSON) to the IdP under the given action
// name and decodes the JSON response into out (which may be nil to
// discard the body). A non-2xx response is parsed as {__type, message}
// and returned as *Error; a transport failure is wrapped as
// *NetworkError.
func (c *Client) Invoke(ctx context.Context, action string, body, out any) error {
	if c.Limiter != nil {
		if err := c.Limiter.Wait(ctx); err != nil {
			return fmt.Errorf("idp: rate limiter: %w", err)
		}
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("idp: marshaling %s request: %w", action, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("idp: building %s request: %w", action, err)
	}
	req.Header.Set("Content-Type", "application/x-amz-json-1.1")
	req.Header.Set("X-Amz-Target", targetHeaderPrefix+action)

	c.logger().Printf("[identitypool] -> %s", action)

	resp, err := c.Doer.Do(req)
	if err != nil {
		c.logger().Printf("[identitypool] %s transport error: %v", action, err)
		return &NetworkError{Cause: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return &NetworkError{Cause: fmt.Errorf("reading response: %w", err)}
	}

	if resp.StatusCode >= 300 {
		idpErr := parseError(respBody)
		c.logger().Printf("[identitypool] %s failed: %s", action, idpErr.Error())
		return idpErr
	}

	if out == nil || len(respBody) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("idp: decoding %s response: %w", action, err)
	}
	return nil
}

type errorEnvelope struct {
	Type    string `json:"__type"`
	Message string `json:"message"`
}

// parseError extracts {__type, message} and reduces __type to its
// trailing segment, splitting on both '#' (provider-namespaced types) and
// '.' (dotted package-qualified types).
func parseError(body []byte) *Error {
	var env errorEnvelope
	_ = json.Unmarshal(body, &env)

	kind := env.Type
	if idx := strings.LastIndexAny(kind, "#."); idx >= 0 {
		kind = kind[idx+1:]
	}
	if kind == "" {
		kind = "UnknownError"
	}
	return &Error{Kind: kind, Message: env.Message}
}
