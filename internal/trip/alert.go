package trip

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/bluxlabs/bluxguard/internal/canonical"
)

// signAlert frames an incident as a compact, externally verifiable
// token: base64(canonical_json(incident)) "." base64(mac).
func (e *Engine) signAlert(inc Incident) (string, error) {
	body, err := canonical.Bytes(inc)
	if err != nil {
		return "", fmt.Errorf("trip: canonicalize incident: %w", err)
	}
	mac := canonical.MACBase64(e.keys.Current(), body)
	return base64.StdEncoding.EncodeToString(body) + "." + mac, nil
}

// DecodeAlert parses and verifies a compact alert against the accepted
// keys, returning the embedded incident.
func DecodeAlert(alert string, accepted [][]byte) (*Incident, error) {
	idx := strings.LastIndexByte(alert, '.')
	if idx <= 0 || idx == len(alert)-1 {
		return nil, fmt.Errorf("trip: malformed alert framing")
	}

	body, err := base64.StdEncoding.DecodeString(alert[:idx])
	if err != nil {
		return nil, fmt.Errorf("trip: decode alert body: %w", err)
	}

	verified := false
	for _, key := range accepted {
		if canonical.MACBase64(key, body) == alert[idx+1:] {
			verified = true
			break
		}
	}
	if !verified {
		return nil, fmt.Errorf("trip: alert signature mismatch")
	}

	var inc Incident
	if err := json.Unmarshal(body, &inc); err != nil {
		return nil, fmt.Errorf("trip: decode incident: %w", err)
	}
	return &inc, nil
}
