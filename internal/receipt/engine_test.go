package receipt

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/bluxlabs/bluxguard/internal/audit"
	"github.com/bluxlabs/bluxguard/internal/canonical"
	"github.com/bluxlabs/bluxguard/internal/keys"
	"github.com/bluxlabs/bluxguard/internal/model"
	"github.com/bluxlabs/bluxguard/internal/schema"
	"github.com/bluxlabs/bluxguard/internal/token"
)

// staticAuthority answers every token the same way without any I/O.
type staticAuthority struct {
	verification token.Verification
	err          error
}

func (a staticAuthority) Resolve(_ context.Context, _ string) (token.Verification, error) {
	return a.verification, a.err
}

func validAuthority() staticAuthority {
	return staticAuthority{verification: token.Verification{
		Valid:    true,
		TokenRef: "cap-001",
	}}
}

func newTestEngine(t *testing.T, authority token.Authority) *Engine {
	t.Helper()
	e, err := NewEngine(Options{
		Keys:     keys.Static([]byte("engine-test-secret")),
		Verifier: token.NewVerifier(authority, time.Second),
		Now:      func() time.Time { return time.Unix(1700000000, 0) },
	})
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	return e
}

func TestEvaluateMissingTokenBlocks(t *testing.T) {
	e := newTestEngine(t, validAuthority())

	rec, err := e.Evaluate(context.Background(), EvaluateInput{
		Envelope: &model.RequestEnvelope{WorkingDir: "/srv/app", Command: "rm -rf /"},
	})
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}

	if rec.Decision != "BLOCK" {
		t.Errorf("decision = %q, want BLOCK", rec.Decision)
	}
	if rec.TokenStatus != model.TokenMissing {
		t.Errorf("token status = %q", rec.TokenStatus)
	}
	want := []string{"token.missing", "discernment.none"}
	if !reflect.DeepEqual(rec.ReasonCodes, want) {
		t.Errorf("reason codes = %v, want %v", rec.ReasonCodes, want)
	}
	if rec.Signature == nil || rec.Signature.Alg != model.SignatureAlg {
		t.Fatalf("receipt missing signature: %+v", rec.Signature)
	}
	if rec.CapabilityTokenRef != "unknown" {
		t.Errorf("token ref = %q, want unknown", rec.CapabilityTokenRef)
	}
}

func TestEvaluateValidTokenAllows(t *testing.T) {
	e := newTestEngine(t, validAuthority())

	rec, err := e.Evaluate(context.Background(), EvaluateInput{
		Envelope: &model.RequestEnvelope{WorkingDir: "/srv/app"},
		Tokens:   []string{"tok-abc"},
	})
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}

	if rec.Decision != "ALLOW" {
		t.Errorf("decision = %q, want ALLOW", rec.Decision)
	}
	if rec.TokenStatus != model.TokenValid {
		t.Errorf("token status = %q", rec.TokenStatus)
	}
	if rec.CapabilityTokenRef != "cap-001" {
		t.Errorf("token ref = %q, want authority-issued ref", rec.CapabilityTokenRef)
	}
	// No commands, no paths, ALLOW: grant narrows to the working dir.
	if !reflect.DeepEqual(rec.Constraints.AllowedPaths, []string{"/srv/app"}) {
		t.Errorf("allowed paths = %v", rec.Constraints.AllowedPaths)
	}
}

func TestEvaluateHighRiskRequiresConfirmation(t *testing.T) {
	e := newTestEngine(t, validAuthority())

	rec, err := e.Evaluate(context.Background(), EvaluateInput{
		Envelope:    &model.RequestEnvelope{WorkingDir: "/srv/app"},
		Discernment: &model.DiscernmentReport{RiskLevel: "high"},
		Tokens:      []string{"tok-abc"},
	})
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}

	if rec.Decision != "REQUIRE_CONFIRM" {
		t.Errorf("decision = %q, want REQUIRE_CONFIRM", rec.Decision)
	}
	if !reflect.DeepEqual(rec.ReasonCodes, []string{"risk.high"}) {
		t.Errorf("reason codes = %v", rec.ReasonCodes)
	}
	if !rec.Constraints.ConfirmationRequired {
		t.Error("constraints must require confirmation")
	}
	if rec.Discernment.RiskLevel != "high" {
		t.Errorf("discernment echo = %+v", rec.Discernment)
	}
}

func TestEvaluateUnavailableAuthorityFailsClosed(t *testing.T) {
	e := newTestEngine(t, staticAuthority{err: token.ErrUnavailable})

	rec, err := e.Evaluate(context.Background(), EvaluateInput{
		Envelope: &model.RequestEnvelope{WorkingDir: "/srv/app"},
		Tokens:   []string{"tok-abc"},
	})
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}

	if rec.Decision != "BLOCK" {
		t.Errorf("decision = %q, want BLOCK", rec.Decision)
	}
	if rec.TokenStatus != model.TokenInvalid {
		t.Errorf("token status = %q", rec.TokenStatus)
	}
	found := false
	for _, c := range rec.ReasonCodes {
		if c == "token.verifier_unavailable" {
			found = true
		}
	}
	if !found {
		t.Errorf("reason codes %v missing token.verifier_unavailable", rec.ReasonCodes)
	}
}

func TestEvaluateRevokedToken(t *testing.T) {
	e := newTestEngine(t, validAuthority())

	rec, err := e.Evaluate(context.Background(), EvaluateInput{
		Envelope:    &model.RequestEnvelope{WorkingDir: "/srv/app"},
		Tokens:      []string{"tok-abc"},
		Revocations: []string{"tok-abc"},
	})
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}

	if rec.Decision != "BLOCK" {
		t.Errorf("decision = %q, want BLOCK", rec.Decision)
	}
	if rec.TokenStatus != model.TokenInvalid {
		t.Errorf("token status = %q", rec.TokenStatus)
	}
}

func TestEvaluateEnvelopeTokensUsed(t *testing.T) {
	e := newTestEngine(t, validAuthority())

	rec, err := e.Evaluate(context.Background(), EvaluateInput{
		Envelope: &model.RequestEnvelope{
			WorkingDir:      "/srv/app",
			CapabilityToken: "tok-on-envelope",
		},
	})
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if rec.TokenStatus != model.TokenValid {
		t.Errorf("envelope token not picked up, status = %q", rec.TokenStatus)
	}
}

func TestEvaluateRejectsInvalidDiscernment(t *testing.T) {
	e := newTestEngine(t, validAuthority())

	_, err := e.Evaluate(context.Background(), EvaluateInput{
		Envelope:    &model.RequestEnvelope{WorkingDir: "/srv/app"},
		Discernment: &model.DiscernmentReport{RiskLevel: "apocalyptic"},
		Tokens:      []string{"tok-abc"},
	})
	if err == nil {
		t.Fatal("expected validation error for unknown risk level")
	}
	var verr *schema.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected *schema.ValidationError, got %T: %v", err, err)
	}
}

func TestEvaluateRequiresEnvelope(t *testing.T) {
	e := newTestEngine(t, validAuthority())
	if _, err := e.Evaluate(context.Background(), EvaluateInput{}); err == nil {
		t.Fatal("expected error for nil envelope")
	}
}

func TestEvaluateTraceIDPreservedOrMinted(t *testing.T) {
	e := newTestEngine(t, validAuthority())

	rec, err := e.Evaluate(context.Background(), EvaluateInput{
		Envelope: &model.RequestEnvelope{WorkingDir: "/srv/app", TraceID: "trace-keep"},
	})
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if rec.TraceID != "trace-keep" || rec.Bindings.TraceID != "trace-keep" {
		t.Errorf("trace id not preserved: %q / %q", rec.TraceID, rec.Bindings.TraceID)
	}

	rec2, err := e.Evaluate(context.Background(), EvaluateInput{
		Envelope: &model.RequestEnvelope{WorkingDir: "/srv/app"},
	})
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if rec2.TraceID == "" {
		t.Error("trace id not minted")
	}
}

func TestEvaluateDeterministicDecision(t *testing.T) {
	e := newTestEngine(t, validAuthority())
	in := EvaluateInput{
		Envelope:    &model.RequestEnvelope{WorkingDir: "/srv/app", Command: "git push"},
		Discernment: &model.DiscernmentReport{RiskLevel: "medium"},
		Tokens:      []string{"tok-abc"},
	}

	first, err := e.Evaluate(context.Background(), in)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	for i := 0; i < 5; i++ {
		rec, err := e.Evaluate(context.Background(), in)
		if err != nil {
			t.Fatalf("Evaluate: %v", err)
		}
		if rec.Decision != first.Decision {
			t.Fatalf("decision drifted: %q vs %q", rec.Decision, first.Decision)
		}
		if !reflect.DeepEqual(rec.ReasonCodes, first.ReasonCodes) {
			t.Fatalf("reason codes drifted: %v vs %v", rec.ReasonCodes, first.ReasonCodes)
		}
		if !reflect.DeepEqual(rec.Constraints, first.Constraints) {
			t.Fatalf("constraints drifted")
		}
	}
}

func TestEvaluateWritesAuditEntry(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "audit.jsonl")
	l, err := audit.Open(logPath)
	if err != nil {
		t.Fatalf("audit.Open: %v", err)
	}
	defer l.Close()

	e, err := NewEngine(Options{
		Keys:     keys.Static([]byte("engine-test-secret")),
		Verifier: token.NewVerifier(validAuthority(), time.Second),
		Recorder: audit.NewRecorder(l, nil, nil),
	})
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}

	rec, err := e.Evaluate(context.Background(), EvaluateInput{
		Envelope: &model.RequestEnvelope{WorkingDir: dir, TraceID: "trace-audit"},
		Tokens:   []string{"tok-abc"},
	})
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}

	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read audit log: %v", err)
	}
	line := strings.TrimSpace(string(data))
	var entry map[string]any
	if err := json.Unmarshal([]byte(line), &entry); err != nil {
		t.Fatalf("audit line not JSON: %v", err)
	}
	if entry["action"] != "guard.receipt.issued" {
		t.Errorf("action = %v", entry["action"])
	}
	if entry["trace_id"] != "trace-audit" {
		t.Errorf("trace_id = %v", entry["trace_id"])
	}
	payload, _ := entry["payload"].(map[string]any)
	if payload["decision"] != rec.Decision {
		t.Errorf("payload decision = %v, want %v", payload["decision"], rec.Decision)
	}
	cb, err := canonical.Bytes(rec.Constraints)
	if err != nil {
		t.Fatalf("canonical constraints: %v", err)
	}
	if h, _ := payload["constraints_hash"].(string); h != canonical.Digest(cb) {
		t.Errorf("constraints_hash = %v, want %s", payload["constraints_hash"], canonical.Digest(cb))
	}
}
