package idp

import "fmt"

// Error is the structured error surfaced for any IdP response of the
// shape {__type, message} (spec.md §6 "Errors"). Kind is the trailing
// segment of __type (e.g. "UserNotConfirmedException" out of
// "aws.cognito...#UserNotConfirmedException"-style identifiers — this
// library is provider-neutral, so it simply takes whatever follows the
// last '#'/'.' segment the server sends).
type Error struct {
	Kind    string
	Message string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("idp: %s", e.Kind)
	}
	return fmt.Sprintf("idp: %s: %s", e.Kind, e.Message)
}

// NetworkError wraps a transport-level failure (spec.md §7 NetworkError).
type NetworkError struct {
	Cause error
}

func (e *NetworkError) Error() string { return fmt.Sprintf("idp: network error: %v", e.Cause) }
func (e *NetworkError) Unwrap() error { return e.Cause }
