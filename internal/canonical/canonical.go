// Package canonical produces the deterministic byte form that every
// signature and chain digest in bluxguard is computed over. The byte
// form is RFC 8785 (JCS) canonical JSON, so a record signed from a Go
// struct verifies identically when re-read as a generic document.
package canonical

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/gowebpki/jcs"
)

// Bytes renders v as RFC 8785 canonical JSON.
func Bytes(v any) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("canonical: marshal: %w", err)
	}
	out, err := jcs.Transform(raw)
	if err != nil {
		return nil, fmt.Errorf("canonical: transform: %w", err)
	}
	return out, nil
}

// MAC computes HMAC-SHA256 over the canonical form of v and returns
// the hex-encoded digest.
func MAC(key []byte, v any) (string, error) {
	b, err := Bytes(v)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(MACBytes(key, b)), nil
}

// MACBytes computes raw HMAC-SHA256 over b.
func MACBytes(key, b []byte) []byte {
	mac := hmac.New(sha256.New, key)
	mac.Write(b)
	return mac.Sum(nil)
}

// MACBase64 computes HMAC-SHA256 over b and returns the standard
// base64 encoding, the framing used by compact trip alerts.
func MACBase64(key, b []byte) string {
	return base64.StdEncoding.EncodeToString(MACBytes(key, b))
}

// VerifyMAC recomputes the MAC of v under key and compares it against
// the hex signature in constant time.
func VerifyMAC(key []byte, v any, hexSig string) bool {
	want, err := hex.DecodeString(hexSig)
	if err != nil {
		return false
	}
	b, err := Bytes(v)
	if err != nil {
		return false
	}
	return hmac.Equal(MACBytes(key, b), want)
}

// Digest returns "sha256:<hex>" of the given bytes. Used both for chain
// links in the audit log and for content hashes bound into receipts.
func Digest(b []byte) string {
	h := sha256.Sum256(b)
	return "sha256:" + hex.EncodeToString(h[:])
}
