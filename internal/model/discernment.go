package model

import "strings"

// Risk band vocabulary accepted from discernment reports.
const (
	RiskLow      = "low"
	RiskMedium   = "medium"
	RiskHigh     = "high"
	RiskCritical = "critical"
)

// DiscernmentReport is an externally supplied risk assessment. It is a
// read-only input to decision mapping and is never persisted outside
// the receipt's discernment sub-object.
type DiscernmentReport struct {
	RiskLevel            string `json:"risk_level,omitempty"`
	Band                 string `json:"band,omitempty"`
	Uncertainty          string `json:"uncertainty,omitempty"`
	Posture              string `json:"posture,omitempty"`
	RequiresConfirmation bool   `json:"requires_confirmation,omitempty"`
	Summary              string `json:"summary,omitempty"`
}

// NormalizedRisk returns the lowercased risk band, preferring risk_level
// over the older band alias.
func (d *DiscernmentReport) NormalizedRisk() string {
	if d == nil {
		return ""
	}
	if d.RiskLevel != "" {
		return strings.ToLower(d.RiskLevel)
	}
	return strings.ToLower(d.Band)
}
