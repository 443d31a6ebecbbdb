// Package keys supplies the MAC secret used to sign receipts, incidents,
// and compact alerts. The secret is environment-sourced and rotateable:
// verification accepts the current key plus any previous keys still in
// their grace window, while signing always uses the current key.
package keys

import (
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"os"
)

const (
	// EnvSecret is the primary signing secret.
	EnvSecret = "BLUX_GUARD_RECEIPT_SECRET"
	// EnvSecretPrevious holds the pre-rotation secret, accepted on
	// verification only.
	EnvSecretPrevious = "BLUX_GUARD_RECEIPT_SECRET_PREVIOUS"

	devSecret = "blux-guard-dev-secret"
)

// Provider hands out signing and verification keys. Construct once at
// startup and pass by reference to whichever component signs or verifies.
type Provider struct {
	current  []byte
	previous [][]byte
}

// FromEnv builds a Provider from the process environment. A missing
// primary secret falls back to the development default, matching local
// single-user installs.
func FromEnv() *Provider {
	secret := os.Getenv(EnvSecret)
	if secret == "" {
		secret = devSecret
	}
	p := &Provider{current: []byte(secret)}
	if prev := os.Getenv(EnvSecretPrevious); prev != "" {
		p.previous = append(p.previous, []byte(prev))
	}
	return p
}

// Static builds a Provider around a fixed key. Used by tests and by
// callers that manage key material themselves.
func Static(key []byte) *Provider {
	return &Provider{current: key}
}

// FromFile loads the key stored at path, generating and persisting a
// fresh random key (mode 0600) when the file does not exist. This is
// the trip engine's key bootstrap.
func FromFile(path string) (*Provider, error) {
	if data, err := os.ReadFile(path); err == nil && len(data) > 0 {
		return &Provider{current: data}, nil
	} else if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("keys: read %s: %w", path, err)
	}

	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return nil, fmt.Errorf("keys: generate: %w", err)
	}
	sum := sha256.Sum256(raw)
	if err := os.WriteFile(path, sum[:], 0600); err != nil {
		return nil, fmt.Errorf("keys: write %s: %w", path, err)
	}
	return &Provider{current: sum[:]}, nil
}

// Current returns the signing key.
func (p *Provider) Current() []byte {
	return p.current
}

// Accepted returns every key valid for verification: the current key
// first, then previous keys in rotation order.
func (p *Provider) Accepted() [][]byte {
	out := make([][]byte, 0, 1+len(p.previous))
	out = append(out, p.current)
	out = append(out, p.previous...)
	return out
}
