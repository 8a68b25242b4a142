package identitypool

import (
	"errors"
	"fmt"
)

// Sentinel error kinds (spec.md §7). Library failures are always wrapped
// in an *Error carrying one of these as Kind, so callers can branch with
// errors.Is without string-matching messages.
var (
	// ErrInvalidParameter covers missing username, missing password for
	// USER_PASSWORD_AUTH, missing pool, bad pool id format, missing new
	// password, and similar construction/argument failures.
	ErrInvalidParameter = errors.New("invalid parameter")

	// ErrInvalidAuthenticationFlowType is returned when AuthenticationFlowType
	// is not one of the recognised flows.
	ErrInvalidAuthenticationFlowType = errors.New("invalid authentication flow type")

	// ErrNotAuthorized covers an invalid/expired session, a nil username on
	// getSession, and NotAuthorizedException from the IdP.
	ErrNotAuthorized = errors.New("not authorized")

	// ErrNetwork wraps an IdP dispatcher transport failure.
	ErrNetwork = errors.New("network error")

	// ErrIdP wraps any structured __type returned by the IdP that isn't one
	// of the sentinels above (UserNotConfirmedException, CodeMismatchException,
	// ExpiredCodeException, PasswordResetRequiredException, ...).
	ErrIdP = errors.New("identity provider error")

	// ErrCryptoInvariant signals an SRP protocol abort: "B mod N = 0" or
	// "u = 0". The caller must restart authentication from scratch.
	ErrCryptoInvariant = errors.New("srp protocol invariant violated")
)

// Error is the structured error type every user-facing operation surfaces
// through its Callbacks.OnFailure. Kind is one of the sentinels above;
// Message is human-readable; Cause, when present, is the underlying error
// (a transport failure, a JSON decode error, an *idp.Error).
type Error struct {
	Kind    error
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Cause
}

func (e *Error) Is(target error) bool {
	return errors.Is(e.Kind, target)
}

func newError(kind error, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func wrapError(kind error, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}
