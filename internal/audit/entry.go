package audit

// Payload carries the structured details of an audit entry. All fields
// are typed and optional (no map[string]any) so marshaling stays
// deterministic and the shape of the log is discoverable from code.
type Payload struct {
	Decision           string `json:"decision,omitempty"`
	CapabilityTokenRef string `json:"capability_token_ref,omitempty"`
	ConstraintsHash    string `json:"constraints_hash,omitempty"`
	RuleID             string `json:"rule_id,omitempty"`
	RuleName           string `json:"rule_name,omitempty"`
	Subject            string `json:"subject,omitempty"`
	Incident           string `json:"incident,omitempty"`
	IncidentMAC        string `json:"incident_mac,omitempty"`
	Status             string `json:"status,omitempty"`
	Detail             string `json:"detail,omitempty"`
}

// Entry is one line in the hash-chained JSONL audit log. Appended once,
// never mutated; each entry's prev_digest is the digest of the previous
// line, so the terminal digest anchors the whole history.
type Entry struct {
	Timestamp     string  `json:"ts"`
	Level         string  `json:"level"`
	Actor         string  `json:"actor"`
	Action        string  `json:"action"`
	TraceID       string  `json:"trace_id,omitempty"`
	CorrelationID string  `json:"correlation_id,omitempty"`
	Payload       Payload `json:"payload"`
	PrevDigest    string  `json:"prev_digest"`
}
