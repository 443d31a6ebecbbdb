package token

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestExecAuthorityValidResponse(t *testing.T) {
	a := &ExecAuthority{Command: []string{"sh", "-c", `echo '{"valid": true, "token_ref": "cap-1"}' #`}}

	got, err := a.Resolve(context.Background(), "tok-1")
	if err != nil {
		t.Fatal(err)
	}
	if !got.Valid {
		t.Error("expected valid token")
	}
	if got.TokenRef != "cap-1" {
		t.Errorf("expected token_ref cap-1, got %q", got.TokenRef)
	}
}

func TestExecAuthorityNonzeroExitIsRejection(t *testing.T) {
	a := &ExecAuthority{Command: []string{"sh", "-c", `echo denied >&2; exit 3 #`}}

	got, err := a.Resolve(context.Background(), "tok-1")
	if err != nil {
		t.Fatalf("nonzero exit is an answer, not an error: %v", err)
	}
	if got.Valid {
		t.Error("rejected token must not be valid")
	}
	if got.ReasonCodes[0] != ReasonFailed {
		t.Errorf("expected %s, got %v", ReasonFailed, got.ReasonCodes)
	}
	if got.Metadata["code"] != "3" {
		t.Errorf("expected exit code 3, got %q", got.Metadata["code"])
	}
	if got.Metadata["stderr"] != "denied" {
		t.Errorf("expected stderr captured, got %q", got.Metadata["stderr"])
	}
}

func TestExecAuthorityMissingBinaryUnavailable(t *testing.T) {
	a := &ExecAuthority{Command: []string{"/nonexistent/blux-reg", "verify", "--token"}}

	_, err := a.Resolve(context.Background(), "tok-1")
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}

func TestExecAuthorityTimeoutUnavailable(t *testing.T) {
	a := &ExecAuthority{Command: []string{"sh", "-c", "sleep 5 #"}}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := a.Resolve(ctx, "tok-1")
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable on timeout, got %v", err)
	}
}

func TestExecAuthorityEmptyOutput(t *testing.T) {
	a := &ExecAuthority{Command: []string{"true"}}

	got, err := a.Resolve(context.Background(), "tok-1")
	if err != nil {
		t.Fatal(err)
	}
	if got.Valid {
		t.Error("empty output must not validate")
	}
}

func TestHTTPAuthorityValid(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/verify" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer key-1" {
			t.Errorf("unexpected auth header %q", got)
		}
		w.Write([]byte(`{"status": "valid", "id": "cap-2"}`))
	}))
	defer srv.Close()

	a := &HTTPAuthority{BaseURL: srv.URL, APIKey: "key-1"}
	got, err := a.Resolve(context.Background(), "tok-1")
	if err != nil {
		t.Fatal(err)
	}
	if !got.Valid {
		t.Error("expected valid")
	}
	if got.TokenRef != "cap-2" {
		t.Errorf("expected token_ref cap-2, got %q", got.TokenRef)
	}
}

func TestHTTPAuthorityNon2xxIsRejection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	a := &HTTPAuthority{BaseURL: srv.URL}
	got, err := a.Resolve(context.Background(), "tok-1")
	if err != nil {
		t.Fatal(err)
	}
	if got.Valid {
		t.Error("403 must not validate")
	}
	if got.ReasonCodes[0] != ReasonFailed {
		t.Errorf("expected %s, got %v", ReasonFailed, got.ReasonCodes)
	}
}

func TestHTTPAuthorityTransportErrorUnavailable(t *testing.T) {
	a := &HTTPAuthority{BaseURL: "http://127.0.0.1:1"}

	_, err := a.Resolve(context.Background(), "tok-1")
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}
