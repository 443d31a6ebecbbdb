package receipt

import (
	"encoding/json"

	"github.com/bluxlabs/bluxguard/internal/canonical"
	"github.com/bluxlabs/bluxguard/internal/model"
	"github.com/bluxlabs/bluxguard/internal/schema"
)

// Verification failure reasons. These are only produced by Verify;
// issuance never signs a receipt it cannot verify.
const (
	VerifyOK                = "ok"
	VerifyMissingFields     = "missing_fields"
	VerifyInvalidSigMeta    = "invalid_signature_metadata"
	VerifySignatureMismatch = "signature_mismatch"
)

// Verify checks a stored receipt document: structural contract first,
// then signature metadata, then the MAC over the canonical byte form of
// the document with the signature removed. Verification accepts every
// key the provider still honors, so receipts survive key rotation.
func (e *Engine) Verify(doc []byte) (bool, string) {
	var raw map[string]any
	if err := json.Unmarshal(doc, &raw); err != nil {
		return false, VerifyMissingFields
	}

	if err := e.validator.Validate(schema.ContractGuardReceipt, raw); err != nil {
		return false, VerifyMissingFields
	}

	sig, ok := raw["signature"].(map[string]any)
	if !ok {
		return false, VerifyInvalidSigMeta
	}
	alg, _ := sig["alg"].(string)
	value, _ := sig["value"].(string)
	if alg != model.SignatureAlg || value == "" {
		return false, VerifyInvalidSigMeta
	}

	payload := make(map[string]any, len(raw)-1)
	for k, v := range raw {
		if k == "signature" {
			continue
		}
		payload[k] = v
	}

	for _, key := range e.keys.Accepted() {
		if canonical.VerifyMAC(key, payload, value) {
			return true, VerifyOK
		}
	}
	return false, VerifySignatureMismatch
}
