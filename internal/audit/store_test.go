package audit

import (
	"context"
	"path/filepath"
	"testing"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := OpenStore(filepath.Join(t.TempDir(), "audit.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStoreInsertAndQueryByTrace(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	entries := []Entry{
		{Timestamp: "2026-01-01T00:00:00.000Z", Level: "info", Actor: "guard", Action: "guard.receipt.issued", TraceID: "t-1", Payload: Payload{Decision: "ALLOW"}},
		{Timestamp: "2026-01-01T00:00:01.000Z", Level: "warn", Actor: "trip-engine", Action: "trip.rule_triggered", TraceID: "t-1", Payload: Payload{RuleID: "r1", Subject: "u1"}},
		{Timestamp: "2026-01-01T00:00:02.000Z", Level: "info", Actor: "guard", Action: "guard.receipt.issued", TraceID: "t-2", Payload: Payload{Decision: "BLOCK"}},
	}
	for _, e := range entries {
		if err := s.Insert(ctx, e); err != nil {
			t.Fatal(err)
		}
	}

	got, err := s.ByTrace(ctx, "t-1")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 entries for t-1, got %d", len(got))
	}
	if got[0].Payload.Decision != "ALLOW" {
		t.Errorf("expected first entry decision ALLOW, got %q", got[0].Payload.Decision)
	}
	if got[1].Payload.RuleID != "r1" {
		t.Errorf("expected rule_id r1 round-tripped, got %q", got[1].Payload.RuleID)
	}
}

func TestStoreCountByAction(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := s.Insert(ctx, Entry{
			Timestamp: "2026-01-01T00:00:00.000Z",
			Level:     "info",
			Actor:     "guard",
			Action:    "guard.receipt.issued",
		}); err != nil {
			t.Fatal(err)
		}
	}

	n, err := s.CountByAction(ctx, "guard.receipt.issued")
	if err != nil {
		t.Fatal(err)
	}
	if n != 3 {
		t.Fatalf("expected 3, got %d", n)
	}

	n, err = s.CountByAction(ctx, "trip.rule_triggered")
	if err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Fatalf("expected 0, got %d", n)
	}
}

func TestOpenStoreEmptyPath(t *testing.T) {
	if _, err := OpenStore(""); err == nil {
		t.Fatal("expected error for empty path")
	}
}

func TestRecorderWritesBothSinks(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "audit.jsonl")

	chain, err := Open(logPath)
	if err != nil {
		t.Fatal(err)
	}
	store, err := OpenStore(filepath.Join(dir, "audit.db"))
	if err != nil {
		t.Fatal(err)
	}

	rec := NewRecorder(chain, store, nil)
	defer rec.Close()

	if err := rec.Record(Entry{Action: "guard.receipt.issued", TraceID: "t-9", Payload: Payload{Decision: "WARN"}}); err != nil {
		t.Fatal(err)
	}

	result := VerifyChain(logPath)
	if !result.Valid() || result.Lines != 1 {
		t.Fatalf("expected one chained entry, got %s (%d lines)", result.Status, result.Lines)
	}

	got, err := store.ByTrace(context.Background(), "t-9")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 {
		t.Fatalf("expected mirrored entry, got %d", len(got))
	}
	if got[0].Level != "info" || got[0].Actor != "local" {
		t.Errorf("expected defaults applied, got level=%q actor=%q", got[0].Level, got[0].Actor)
	}
	if got[0].CorrelationID == "" {
		t.Error("expected correlation id assigned")
	}
}

func TestRecorderStoreFailureDoesNotBlockChain(t *testing.T) {
	dir := t.TempDir()
	chain, err := Open(filepath.Join(dir, "audit.jsonl"))
	if err != nil {
		t.Fatal(err)
	}
	store, err := OpenStore(filepath.Join(dir, "audit.db"))
	if err != nil {
		t.Fatal(err)
	}
	store.Close() // force insert failures

	rec := NewRecorder(chain, store, nil)
	if err := rec.Record(Entry{Action: "guard.receipt.issued"}); err != nil {
		t.Fatalf("chain write must succeed despite store failure: %v", err)
	}
	chain.Close()
}
