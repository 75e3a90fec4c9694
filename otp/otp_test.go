package otp

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestCurrentCode(t *testing.T) {
	// WHAT: The client hits /codes/{account} and returns the code.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/codes/acc-1" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte(`{"code":"482913"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second)
	code, err := c.CurrentCode(context.Background(), "acc-1")
	if err != nil {
		t.Fatalf("current code: %v", err)
	}
	if code != "482913" {
		t.Errorf("code: got %q", code)
	}
}

func TestCurrentCodeRejectsGarbage(t *testing.T) {
	// WHAT: Empty and non-numeric provider responses are errors.
	// WHY: The state machine counts them as failed attempts, never submits them.
	for _, body := range []string{`{"code":""}`, `{"code":"abc123"}`, `{}`} {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(body))
		}))
		c := NewClient(srv.URL, time.Second)
		if _, err := c.CurrentCode(context.Background(), "acc-1"); err == nil {
			t.Errorf("body %s: expected error", body)
		}
		srv.Close()
	}
}

func TestCurrentCodeHTTPError(t *testing.T) {
	// WHAT: Non-200 responses propagate as errors.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second)
	if _, err := c.CurrentCode(context.Background(), "acc-1"); err == nil {
		t.Error("expected error on 502")
	}
}

func TestValidCode(t *testing.T) {
	cases := map[string]bool{
		"000000": true,
		"482913": true,
		"":       false,
		"12a456": false,
		" 12345": false,
	}
	for code, want := range cases {
		if got := ValidCode(code); got != want {
			t.Errorf("ValidCode(%q): got %v, want %v", code, got, want)
		}
	}
}
