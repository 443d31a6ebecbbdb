// Package schema validates guard documents against their versioned
// structural contracts (JSON Schema draft 2020-12). Contracts are
// embedded in the binary and compiled once; a Validator is an explicit
// loader object constructed at startup and passed to whichever
// component needs it.
package schema

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed contracts/*.schema.json
var contractsFS embed.FS

// Contract names, matching the embedded schema $id values.
const (
	ContractRequestEnvelope   = "request_envelope"
	ContractDiscernmentReport = "discernment_report"
	ContractGuardReceipt      = "guard_receipt"
)

// Violation is a single structural failure at one document location.
type Violation struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

// ValidationError reports every violation found in a document, not just
// the first.
type ValidationError struct {
	Contract   string
	Violations []Violation
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		parts = append(parts, fmt.Sprintf("%s:%s: %s", e.Contract, v.Path, v.Message))
	}
	return fmt.Sprintf("schema validation failed: %s", strings.Join(parts, "; "))
}

// Validator holds the compiled contracts.
type Validator struct {
	schemas map[string]*jsonschema.Schema
}

// NewValidator compiles all embedded contracts.
func NewValidator() (*Validator, error) {
	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft2020

	names := []string{ContractRequestEnvelope, ContractDiscernmentReport, ContractGuardReceipt}
	v := &Validator{schemas: make(map[string]*jsonschema.Schema, len(names))}

	for _, name := range names {
		data, err := contractsFS.ReadFile("contracts/" + name + ".schema.json")
		if err != nil {
			return nil, fmt.Errorf("schema: read contract %s: %w", name, err)
		}
		url := "blux://contracts/" + name + ".schema.json"
		if err := compiler.AddResource(url, bytes.NewReader(data)); err != nil {
			return nil, fmt.Errorf("schema: load contract %s: %w", name, err)
		}
		compiled, err := compiler.Compile(url)
		if err != nil {
			return nil, fmt.Errorf("schema: compile contract %s: %w", name, err)
		}
		v.schemas[name] = compiled
	}
	return v, nil
}

// Validate checks doc against the named contract. doc may be a struct,
// a map, or raw JSON bytes; it is normalized to a generic JSON value
// before validation. Returns *ValidationError listing all violations.
func (v *Validator) Validate(contract string, doc any) error {
	schema, ok := v.schemas[contract]
	if !ok {
		return fmt.Errorf("schema: unknown contract %q", contract)
	}

	value, err := toJSONValue(doc)
	if err != nil {
		return &ValidationError{
			Contract:   contract,
			Violations: []Violation{{Path: "/", Message: err.Error()}},
		}
	}

	if err := schema.Validate(value); err != nil {
		var ve *jsonschema.ValidationError
		if ok := asValidationError(err, &ve); ok {
			return &ValidationError{Contract: contract, Violations: flatten(ve)}
		}
		return &ValidationError{
			Contract:   contract,
			Violations: []Violation{{Path: "/", Message: err.Error()}},
		}
	}
	return nil
}

func asValidationError(err error, target **jsonschema.ValidationError) bool {
	ve, ok := err.(*jsonschema.ValidationError)
	if ok {
		*target = ve
	}
	return ok
}

// flatten walks the cause tree and collects leaf violations, sorted by
// document path for stable error output.
func flatten(ve *jsonschema.ValidationError) []Violation {
	var out []Violation
	var walk func(e *jsonschema.ValidationError)
	walk = func(e *jsonschema.ValidationError) {
		if len(e.Causes) == 0 {
			path := e.InstanceLocation
			if path == "" {
				path = "/"
			}
			out = append(out, Violation{Path: path, Message: e.Message})
			return
		}
		for _, c := range e.Causes {
			walk(c)
		}
	}
	walk(ve)
	sort.Slice(out, func(i, j int) bool {
		if out[i].Path != out[j].Path {
			return out[i].Path < out[j].Path
		}
		return out[i].Message < out[j].Message
	})
	return out
}

// toJSONValue normalizes doc into the generic form the validator
// expects: structs round-trip through encoding/json, raw bytes are
// decoded directly.
func toJSONValue(doc any) (any, error) {
	switch d := doc.(type) {
	case nil:
		return nil, nil
	case []byte:
		var value any
		if err := json.Unmarshal(d, &value); err != nil {
			return nil, fmt.Errorf("invalid JSON: %v", err)
		}
		return value, nil
	case map[string]any:
		return d, nil
	default:
		raw, err := json.Marshal(doc)
		if err != nil {
			return nil, fmt.Errorf("not JSON-encodable: %v", err)
		}
		var value any
		if err := json.Unmarshal(raw, &value); err != nil {
			return nil, fmt.Errorf("invalid JSON: %v", err)
		}
		return value, nil
	}
}
