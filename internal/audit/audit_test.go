package audit

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
)

func testEntry(traceID, decision string) Entry {
	return Entry{
		Level:   "info",
		Actor:   "guard",
		Action:  "guard.receipt.issued",
		TraceID: traceID,
		Payload: Payload{Decision: decision},
	}
}

func openTestLog(t *testing.T) (*Log, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "audit.jsonl")
	l, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { l.Close() })
	return l, path
}

func TestSequentialWritesProduceValidChain(t *testing.T) {
	l, path := openTestLog(t)

	for i := 0; i < 5; i++ {
		if err := l.Record(testEntry(fmt.Sprintf("t-%d", i), "ALLOW")); err != nil {
			t.Fatal(err)
		}
	}

	result := VerifyChain(path)
	if !result.Valid() {
		t.Fatalf("expected clean chain, got %s: %s", result.Status, result.Error)
	}
	if result.Lines != 5 {
		t.Errorf("expected 5 lines, got %d", result.Lines)
	}
	if result.Digest != l.Digest() {
		t.Errorf("recomputed digest %s does not match live tail %s", result.Digest, l.Digest())
	}
}

func TestVerifyDetectsTamperedEntry(t *testing.T) {
	l, path := openTestLog(t)
	for i := 0; i < 3; i++ {
		if err := l.Record(testEntry("t-1", "ALLOW")); err != nil {
			t.Fatal(err)
		}
	}
	l.Close()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	tampered := strings.Replace(string(data), "ALLOW", "BLOCK", 1)
	if err := os.WriteFile(path, []byte(tampered), 0600); err != nil {
		t.Fatal(err)
	}

	result := VerifyChain(path)
	if result.Status != StatusBroken {
		t.Fatalf("expected broken chain, got %s", result.Status)
	}
	if result.ErrorLine != 2 {
		t.Errorf("expected break detected at line 2, got %d", result.ErrorLine)
	}
}

func TestVerifyDetectsDeletedEntry(t *testing.T) {
	l, path := openTestLog(t)
	for i := 0; i < 4; i++ {
		if err := l.Record(testEntry(fmt.Sprintf("t-%d", i), "ALLOW")); err != nil {
			t.Fatal(err)
		}
	}
	l.Close()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	// drop the second line
	kept := append(lines[:1], lines[2:]...)
	if err := os.WriteFile(path, []byte(strings.Join(kept, "\n")+"\n"), 0600); err != nil {
		t.Fatal(err)
	}

	result := VerifyChain(path)
	if result.Status != StatusBroken {
		t.Fatalf("expected broken chain after deletion, got %s", result.Status)
	}
}

func TestEmptyLogStatus(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.jsonl")
	if err := os.WriteFile(path, nil, 0600); err != nil {
		t.Fatal(err)
	}

	result := VerifyChain(path)
	if result.Status != StatusEmpty {
		t.Fatalf("expected empty status, got %s", result.Status)
	}
	if result.Lines != 0 {
		t.Errorf("expected 0 lines, got %d", result.Lines)
	}
}

func TestMissingLogIsEmpty(t *testing.T) {
	result := VerifyChain(filepath.Join(t.TempDir(), "missing.jsonl"))
	if result.Status != StatusEmpty {
		t.Fatalf("expected empty for missing file, got %s", result.Status)
	}
}

func TestConcurrentWritesSerializeCorrectly(t *testing.T) {
	l, path := openTestLog(t)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			l.Record(testEntry(fmt.Sprintf("t-%d", n), "ALLOW"))
		}(i)
	}
	wg.Wait()

	result := VerifyChain(path)
	if !result.Valid() {
		t.Fatalf("expected clean chain under concurrency, got %s: %s", result.Status, result.Error)
	}
	if result.Lines != 20 {
		t.Errorf("expected 20 lines, got %d", result.Lines)
	}
}

func TestFirstEntryUsesGenesisDigest(t *testing.T) {
	l, path := openTestLog(t)
	if err := l.Record(testEntry("t-1", "ALLOW")); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), GenesisDigest) {
		t.Fatal("first entry should carry the genesis digest")
	}
}

func TestOpenExistingLogContinuesChain(t *testing.T) {
	l, path := openTestLog(t)
	if err := l.Record(testEntry("t-1", "ALLOW")); err != nil {
		t.Fatal(err)
	}
	l.Close()

	l2, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer l2.Close()
	if err := l2.Record(testEntry("t-2", "BLOCK")); err != nil {
		t.Fatal(err)
	}

	result := VerifyChain(path)
	if !result.Valid() {
		t.Fatalf("reopened log must continue the chain, got %s: %s", result.Status, result.Error)
	}
	if result.Lines != 2 {
		t.Errorf("expected 2 lines, got %d", result.Lines)
	}
}
