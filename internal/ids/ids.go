// Package ids generates the opaque identifiers threaded through
// receipts, audit entries, and incidents.
package ids

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
)

// EnvCorrelationID overrides generated correlation ids, letting a
// caller stitch guard activity into an existing trace.
const EnvCorrelationID = "BLUX_GUARD_CORRELATION_ID"

// NewTraceID generates a short prefixed trace ID.
func NewTraceID() string {
	return prefixedID("t", 12)
}

// NewReceiptID generates a fresh receipt identifier.
func NewReceiptID() string {
	return uuid.NewString()
}

// NewCorrelationID returns the env override if set, otherwise a UUID.
func NewCorrelationID() string {
	if cid := os.Getenv(EnvCorrelationID); cid != "" {
		return cid
	}
	return uuid.NewString()
}

// UTCNowISO returns the current UTC time in ISO format with Z suffix.
func UTCNowISO() string {
	return time.Now().UTC().Format("2006-01-02T15:04:05.000Z")
}

func prefixedID(prefix string, hexLen int) string {
	b := make([]byte, (hexLen+1)/2)
	if _, err := rand.Read(b); err != nil {
		// Fallback to timestamp-based ID if crypto/rand fails
		return fmt.Sprintf("%s-%x", prefix, time.Now().UnixNano())
	}
	return fmt.Sprintf("%s-%s", prefix, hex.EncodeToString(b)[:hexLen])
}
