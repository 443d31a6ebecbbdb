package token

import "fmt"

// parsePayload interprets an authority response with the tolerance the
// deployed authorities require: validity may arrive as a bool, a
// status string, or a lifecycle state, and the canonical reference may
// live under several historical key names.
func parsePayload(payload map[string]any, tok string) Verification {
	valid := false
	if b, ok := payload["valid"].(bool); ok && b {
		valid = true
	}
	if s, ok := payload["status"].(string); ok && s == "valid" {
		valid = true
	}
	if s, ok := payload["state"].(string); ok && s == "active" {
		valid = true
	}

	tokenRef := tok
	for _, key := range []string{"token_ref", "id", "ref"} {
		if s, ok := payload[key].(string); ok && s != "" {
			tokenRef = s
			break
		}
	}

	var reasons []string
	switch rc := payload["reason_codes"].(type) {
	case string:
		reasons = []string{rc}
	case []any:
		for _, item := range rc {
			reasons = append(reasons, fmt.Sprint(item))
		}
	}
	if len(reasons) == 0 {
		if valid {
			reasons = []string{ReasonValid}
		} else {
			reasons = []string{ReasonInvalid}
		}
	}

	metadata := make(map[string]string, len(payload))
	for k, v := range payload {
		if k == "reason_codes" {
			continue
		}
		metadata[k] = fmt.Sprint(v)
	}

	return Verification{
		Token:       tok,
		Valid:       valid,
		TokenRef:    tokenRef,
		ReasonCodes: reasons,
		Metadata:    metadata,
	}
}
