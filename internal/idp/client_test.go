package idp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestInvokeSendsTargetHeaderAndDecodesResponse(t *testing.T) {
	var gotTarget, gotContentType string
	var gotBody map[string]string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotTarget = r.Header.Get("X-Amz-Target")
		gotContentType = r.Header.Get("Content-Type")
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		json.NewEncoder(w).Encode(map[string]string{"Session": "abc123"})
	}))
	defer srv.Close()

	c := &Client{Endpoint: srv.URL, Doer: http.DefaultClient}

	var out struct {
		Session string `json:"Session"`
	}
	err := c.Invoke(context.Background(), "InitiateAuth", map[string]string{"USERNAME": "alice"}, &out)
	if err != nil {
		t.Fatalf("Invoke: %v", err)
	}

	if gotTarget != "IdentityProviderService.InitiateAuth" {
		t.Errorf("X-Amz-Target = %q", gotTarget)
	}
	if gotContentType != "application/x-amz-json-1.1" {
		t.Errorf("Content-Type = %q", gotContentType)
	}
	if gotBody["USERNAME"] != "alice" {
		t.Errorf("request body not forwarded: %v", gotBody)
	}
	if out.Session != "abc123" {
		t.Errorf("Session = %q, want abc123", out.Session)
	}
}

func TestInvokeSurfacesStructuredError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]string{
			"__type":  "#UserNotConfirmedException",
			"message": "User is not confirmed.",
		})
	}))
	defer srv.Close()

	c := &Client{Endpoint: srv.URL, Doer: http.DefaultClient}

	err := c.Invoke(context.Background(), "InitiateAuth", map[string]string{}, nil)
	if err == nil {
		t.Fatal("expected an error")
	}
	idpErr, ok := err.(*Error)
	if !ok {
		t.Fatalf("err type = %T, want *Error", err)
	}
	if idpErr.Kind != "UserNotConfirmedException" {
		t.Errorf("Kind = %q", idpErr.Kind)
	}
	if idpErr.Message != "User is not confirmed." {
		t.Errorf("Message = %q", idpErr.Message)
	}
}

func TestInvokeWrapsTransportFailure(t *testing.T) {
	c := &Client{Endpoint: "http://127.0.0.1:0/does-not-exist", Doer: http.DefaultClient}

	err := c.Invoke(context.Background(), "InitiateAuth", map[string]string{}, nil)
	if err == nil {
		t.Fatal("expected a network error")
	}
	if _, ok := err.(*NetworkError); !ok {
		t.Fatalf("err type = %T, want *NetworkError", err)
	}
}

func TestParseErrorFallsBackWhenTypeMissing(t *testing.T) {
	e := parseError([]byte(`{"message":"oops"}`))
	if e.Kind != "UnknownError" {
		t.Errorf("Kind = %q, want UnknownError", e.Kind)
	}
	if e.Message != "oops" {
		t.Errorf("Message = %q", e.Message)
	}
}
