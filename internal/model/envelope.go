package model

// Default values applied when an envelope leaves a field unset.
const (
	DefaultSandboxProfile = "userland"
	DefaultTimeoutS       = 300
	DefaultEgress         = "restricted"
)

// DefaultResourceLimits returns the limits applied when the envelope
// does not specify its own.
func DefaultResourceLimits() ResourceLimits {
	return ResourceLimits{CPUSeconds: 120, MemoryMB: 512, Processes: 64}
}

// ResourceLimits caps what an approved action may consume.
type ResourceLimits struct {
	CPUSeconds int `json:"cpu_seconds"`
	MemoryMB   int `json:"memory_mb"`
	Processes  int `json:"processes"`
}

// NetworkPolicy describes the network surface granted to an action.
type NetworkPolicy struct {
	Egress       string   `json:"egress"`
	AllowedHosts []string `json:"allowed_hosts,omitempty"`
}

// RequestEnvelope is the action under evaluation. It is immutable once
// constructed; each Evaluate call owns its envelope exclusively.
// All fields are structs with named optional members — never loose maps —
// so unknown shapes are rejected at the schema boundary, not discovered
// deep inside decision logic.
type RequestEnvelope struct {
	TraceID            string          `json:"trace_id,omitempty"`
	WorkingDir         string          `json:"working_dir,omitempty"`
	Command            string          `json:"command,omitempty"`
	AllowedCommands    []string        `json:"allowed_commands,omitempty"`
	AllowedPaths       []string        `json:"allowed_paths,omitempty"`
	SandboxProfile     string          `json:"sandbox_profile,omitempty"`
	TimeoutS           int             `json:"timeout_s,omitempty"`
	ResourceLimits     *ResourceLimits `json:"resource_limits,omitempty"`
	Network            *NetworkPolicy  `json:"network,omitempty"`
	EnvAllowlist       []string        `json:"env_allowlist,omitempty"`
	EnvDenylist        []string        `json:"env_denylist,omitempty"`
	CapabilityTokenRef string          `json:"capability_token_ref,omitempty"`
	CapabilityToken    string          `json:"capability_token,omitempty"`
	CapabilityTokens   []string        `json:"capability_tokens,omitempty"`
	CapabilityRefs     []string        `json:"capability_refs,omitempty"`
	EnvelopeHash       string          `json:"envelope_hash,omitempty"`
}

// Tokens collects the capability tokens supplied on the envelope,
// folding the single-token field into the list form.
func (e *RequestEnvelope) Tokens() []string {
	if len(e.CapabilityTokens) > 0 {
		return e.CapabilityTokens
	}
	if e.CapabilityToken != "" {
		return []string{e.CapabilityToken}
	}
	return nil
}
