// Package integrity refuses to run a modified binary. At startup the
// running executable is hashed and compared against a digest injected
// at build time, or against an installed checksum file for builds
// without one. A mismatch is recorded to the tamper log and pushed to
// any configured webhooks before the process exits.
package integrity

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bluxlabs/bluxguard/internal/alert"
)

// ExpectedHash is injected at release build time:
//
//	-ldflags "-X github.com/bluxlabs/bluxguard/internal/integrity.ExpectedHash=<sha256hex>"
//
// Dev builds leave it empty and fall back to ChecksumPaths.
var ExpectedHash string

// TamperLogDir holds the tamper event log. Overridable in tests.
var TamperLogDir = "/var/log/blux-guard"

// ChecksumPaths are tried in order when ExpectedHash is empty. Each
// candidate file holds one hex SHA-256 digest. Overridable in tests.
var ChecksumPaths = []string{
	"/etc/blux-guard/binary.sha256",
	"$HOME/.blux-guard/binary.sha256",
}

// TamperEvent is one line in the tamper log.
type TamperEvent struct {
	Timestamp    string `json:"timestamp"`
	Binary       string `json:"binary"`
	ExpectedHash string `json:"expected_hash"`
	ActualHash   string `json:"actual_hash"`
	Hostname     string `json:"hostname"`
	Type         string `json:"type"`
}

// Verify compares the running binary against the expected digest. No
// digest available means a dev build: a stderr note, then nil. On a
// mismatch the tamper event is persisted and an error returned; the
// caller is expected to exit.
func Verify() error {
	expected := expectedDigest()
	if expected == "" {
		fmt.Fprintln(os.Stderr, "integrity: WARNING no build-time hash or checksum file found (dev build, integrity check skipped)")
		return nil
	}

	self, err := os.Executable()
	if err != nil {
		return fmt.Errorf("integrity: cannot resolve executable path: %w", err)
	}
	actual, err := digestFile(self)
	if err != nil {
		return fmt.Errorf("integrity: cannot hash binary: %w", err)
	}

	if actual == expected {
		fmt.Fprintf(os.Stderr, "integrity: binary checksum verified (%s...%s)\n",
			actual[:8], actual[len(actual)-8:])
		return nil
	}

	ev := TamperEvent{
		Timestamp:    time.Now().UTC().Format("2006-01-02T15:04:05.000Z"),
		Binary:       self,
		ExpectedHash: expected,
		ActualHash:   actual,
		Type:         "binary_tamper",
	}
	ev.Hostname, _ = os.Hostname()
	recordTamper(ev)

	return fmt.Errorf("integrity: binary checksum mismatch (expected %s, got %s)", expected, actual)
}

// HashSelf digests the running binary, for writing a checksum file at
// install time.
func HashSelf() (string, error) {
	self, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("integrity: cannot resolve executable path: %w", err)
	}
	return digestFile(self)
}

// expectedDigest resolves the digest to check against: the build-time
// hash when present, otherwise the first readable checksum file.
func expectedDigest() string {
	if ExpectedHash != "" {
		return ExpectedHash
	}
	for _, candidate := range ChecksumPaths {
		data, err := os.ReadFile(os.ExpandEnv(candidate))
		if err != nil {
			continue
		}
		digest := strings.TrimSpace(string(data))
		if isDigest(digest) {
			return digest
		}
	}
	return ""
}

// isDigest reports whether s is a hex SHA-256 digest.
func isDigest(s string) bool {
	if len(s) != sha256.Size*2 {
		return false
	}
	_, err := hex.DecodeString(s)
	return err == nil
}

func digestFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// recordTamper persists the event three ways: an append-only JSONL
// file, a stderr line for the journal, and the configured webhooks.
// Webhook delivery is synchronous since the process exits right after.
func recordTamper(ev TamperEvent) {
	line, err := json.Marshal(ev)
	if err != nil {
		return
	}

	if err := os.MkdirAll(TamperLogDir, 0700); err == nil {
		path := filepath.Join(TamperLogDir, "tamper.jsonl")
		if f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600); err == nil {
			f.Write(append(line, '\n'))
			f.Sync()
			f.Close()
		}
	}

	fmt.Fprintf(os.Stderr, "TAMPER ALERT: %s\n", string(line))

	notifyWebhooks(ev)
}

// notifyWebhooks pushes the tamper event to webhooks subscribed to
// binary_tamper or BLOCK. Runs before any engine init, so it reads the
// config through the alert package's webhooks-only loader.
func notifyWebhooks(ev TamperEvent) {
	home, err := os.UserHomeDir()
	if err != nil {
		return
	}
	hooks, err := alert.LoadWebhooks(filepath.Join(home, ".blux-guard", "guard.yaml"))
	if err != nil || len(hooks) == 0 {
		return
	}

	event := tamperAlertEvent(ev)
	for _, cfg := range hooks {
		for _, want := range cfg.Events {
			if want == "binary_tamper" || want == "BLOCK" {
				if err := alert.Send(cfg, event); err != nil {
					fmt.Fprintf(os.Stderr, "TAMPER ALERT webhook failed: %v\n", err)
				}
				break
			}
		}
	}
}

// tamperAlertEvent frames the tamper event as a BLOCK-grade alert.
func tamperAlertEvent(ev TamperEvent) alert.Event {
	return alert.Event{
		Timestamp: ev.Timestamp,
		Type:      "binary_tamper",
		Decision:  "BLOCK",
		Subject:   ev.Hostname,
		Detail: fmt.Sprintf("binary checksum mismatch on %s: expected %s, got %s",
			ev.Binary, ev.ExpectedHash, ev.ActualHash),
	}
}
