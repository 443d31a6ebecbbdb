package trip

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/bluxlabs/bluxguard/internal/keys"
)

func TestRunStdin(t *testing.T) {
	kp := keys.Static([]byte("trip-test-secret"))
	rule := Rule{ID: "r-match", Condition: &Condition{Type: CondMatch, Field: "action", Value: "deploy"}}
	e := NewEngine(Options{Rules: &RuleSet{Rules: []Rule{rule}}, Keys: kp})

	input := strings.Join([]string{
		`{"uid":"u1","action":"build"}`,
		``,
		`{broken`,
		`{"uid":"u1","action":"deploy"}`,
	}, "\n")

	var out, errOut bytes.Buffer
	if err := e.RunStdin(context.Background(), strings.NewReader(input), &out, &errOut); err != nil {
		t.Fatalf("RunStdin: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("output lines = %d: %q", len(lines), out.String())
	}
	if lines[0] != "OK" {
		t.Errorf("non-matching event line = %q, want OK", lines[0])
	}
	inc, err := DecodeAlert(lines[1], kp.Accepted())
	if err != nil {
		t.Fatalf("second line is not a valid alert: %v", err)
	}
	if inc.RuleID != "r-match" {
		t.Errorf("rule id = %q", inc.RuleID)
	}
	if !strings.Contains(errOut.String(), "invalid JSON (skipping)") {
		t.Errorf("malformed line not reported: %q", errOut.String())
	}
}

func TestRunStdinCancellation(t *testing.T) {
	e := NewEngine(Options{Keys: keys.Static([]byte("k"))})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var out, errOut bytes.Buffer
	err := e.RunStdin(ctx, strings.NewReader(`{"uid":"u1"}`+"\n"), &out, &errOut)
	if err != context.Canceled {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

func TestRunStdinEmptyInput(t *testing.T) {
	e := NewEngine(Options{Keys: keys.Static([]byte("k"))})

	var out, errOut bytes.Buffer
	if err := e.RunStdin(context.Background(), strings.NewReader(""), &out, &errOut); err != nil {
		t.Fatalf("RunStdin: %v", err)
	}
	if out.Len() != 0 {
		t.Errorf("output = %q, want empty", out.String())
	}
}
