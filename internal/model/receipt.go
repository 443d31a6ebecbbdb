package model

// ReceiptSchemaID is the versioned contract every issued receipt is
// validated against.
const ReceiptSchemaID = "blux://contracts/guard_receipt.schema.json"

// SignatureAlg is the only signature algorithm receipts carry.
const SignatureAlg = "HMAC-SHA256"

// Token statuses reported on a receipt.
const (
	TokenMissing = "missing"
	TokenValid   = "valid"
	TokenInvalid = "invalid"
)

// Signature is the algorithm tag plus hex MAC value covering every
// receipt field except itself.
type Signature struct {
	Alg   string `json:"alg"`
	Value string `json:"value"`
}

// Bindings tie a receipt to the request it answered.
type Bindings struct {
	TraceID        string   `json:"trace_id"`
	EnvelopeHash   string   `json:"envelope_hash,omitempty"`
	CapabilityRefs []string `json:"capability_refs,omitempty"`
}

// ReceiptDiscernment is the reduced discernment echo embedded in a
// receipt.
type ReceiptDiscernment struct {
	RiskLevel   string `json:"risk_level,omitempty"`
	Uncertainty string `json:"uncertainty,omitempty"`
	Posture     string `json:"posture,omitempty"`
	Summary     string `json:"summary,omitempty"`
}

// EnvironmentPolicy is the environment-variable surface granted to an
// approved action.
type EnvironmentPolicy struct {
	Allowlist []string `json:"allowlist,omitempty"`
	Denylist  []string `json:"denylist,omitempty"`
}

// Constraints is the enforceable envelope handed to whatever executes
// the request. Unresolved fields are omitted, never emitted as null.
type Constraints struct {
	ReceiptRequired      bool              `json:"receipt_required"`
	AllowlistExecution   bool              `json:"allowlist_execution"`
	WorkingDir           string            `json:"working_dir"`
	SandboxProfile       string            `json:"sandbox_profile"`
	TimeoutS             int               `json:"timeout_s"`
	ResourceLimits       ResourceLimits    `json:"resource_limits"`
	AllowedCommands      []string          `json:"allowed_commands,omitempty"`
	AllowedPaths         []string          `json:"allowed_paths,omitempty"`
	Network              NetworkPolicy     `json:"network"`
	Environment          EnvironmentPolicy `json:"environment"`
	ConfirmationRequired bool              `json:"confirmation_required"`
}

// GuardReceipt is the signed record of a single authorization decision.
// Immutable after signing; Signature covers the canonical JSON of the
// receipt with the signature field removed.
type GuardReceipt struct {
	Schema             string             `json:"$schema"`
	ReceiptID          string             `json:"receipt_id"`
	IssuedAt           float64            `json:"issued_at"`
	Decision           string             `json:"decision"`
	TraceID            string             `json:"trace_id"`
	CapabilityTokenRef string             `json:"capability_token_ref"`
	TokenStatus        string             `json:"token_status"`
	ReasonCodes        []string           `json:"reason_codes"`
	Constraints        Constraints        `json:"constraints"`
	Discernment        ReceiptDiscernment `json:"discernment"`
	Bindings           Bindings           `json:"bindings"`
	Signature          *Signature         `json:"signature,omitempty"`
}

// Unsigned returns a shallow copy with the signature cleared, the form
// MACs are computed over.
func (r *GuardReceipt) Unsigned() GuardReceipt {
	out := *r
	out.Signature = nil
	return out
}
