package receipt

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/bluxlabs/bluxguard/internal/model"
	"github.com/bluxlabs/bluxguard/internal/schema"
)

// loadValidator compiles the contracts once for all file loads.
var loadValidator = sync.OnceValues(schema.NewValidator)

// LoadEnvelope reads a request envelope from a JSON file. The raw
// document is checked against the contract before decoding, so fields
// the contract does not know (a typoed key, say) are rejected rather
// than silently dropped by the struct round-trip.
func LoadEnvelope(path string) (*model.RequestEnvelope, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("receipt: read envelope: %w", err)
	}
	v, err := loadValidator()
	if err != nil {
		return nil, err
	}
	if err := v.Validate(schema.ContractRequestEnvelope, data); err != nil {
		return nil, err
	}
	var env model.RequestEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("receipt: parse envelope: %w", err)
	}
	return &env, nil
}

// LoadDiscernment reads a discernment report from a JSON file, checking
// the raw document against the contract before decoding.
func LoadDiscernment(path string) (*model.DiscernmentReport, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("receipt: read discernment: %w", err)
	}
	v, err := loadValidator()
	if err != nil {
		return nil, err
	}
	if err := v.Validate(schema.ContractDiscernmentReport, data); err != nil {
		return nil, err
	}
	var d model.DiscernmentReport
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("receipt: parse discernment: %w", err)
	}
	return &d, nil
}

// revocationsDoc is the object form of a revocation file.
type revocationsDoc struct {
	RevokedTokens []string `json:"revoked_tokens"`
}

// LoadRevocations reads revoked token identifiers from a JSON file.
// Both a bare array and {"revoked_tokens": […]} are accepted.
func LoadRevocations(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("receipt: read revocations: %w", err)
	}

	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		return list, nil
	}

	var doc revocationsDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("receipt: parse revocations: %w", err)
	}
	return doc.RevokedTokens, nil
}
