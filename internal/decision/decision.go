// Package decision maps a verified request context onto one of the four
// guard outcomes. The mapping is a pure function of its input — no
// clock, no I/O, no hidden state — so identical inputs always produce
// identical outcomes and reason codes.
package decision

import "github.com/bluxlabs/bluxguard/internal/model"

// Outcome is the guard decision for a request.
type Outcome string

const (
	Allow          Outcome = "ALLOW"
	Warn           Outcome = "WARN"
	RequireConfirm Outcome = "REQUIRE_CONFIRM"
	Block          Outcome = "BLOCK"
)

// severity orders outcomes for highest-wins accumulation.
var severity = map[Outcome]int{
	Allow:          0,
	Warn:           1,
	RequireConfirm: 2,
	Block:          3,
}

// Reason codes emitted by the mapping stages.
const (
	ReasonTokenInvalid  = "token.invalid"
	ReasonTokenMissing  = "token.missing"
	ReasonRiskCritical  = "risk.critical"
	ReasonRiskHigh      = "risk.high"
	ReasonRiskMedium    = "risk.medium"
	ReasonRiskLow       = "risk.low"
	ReasonPostureLow    = "posture.low"
	ReasonConfirmation  = "discernment.confirmation"
	ReasonNoDiscernment = "discernment.none"
)

// Input is the complete decision context. TokenStatus is one of the
// model token statuses; RiskBand and Posture come from the discernment
// report, already normalized to lowercase.
type Input struct {
	TokenStatus          string
	RiskBand             string
	Uncertainty          string
	Posture              string
	RequiresConfirmation bool
	HasDiscernment       bool
}

// Config holds the policy knobs for the mapping. The zero value is the
// shipped default.
type Config struct {
	// DefaultOutcome applies when no stage raises the outcome; empty
	// means Allow.
	DefaultOutcome Outcome
}

// Result is the outcome plus every reason code that applied, in stage
// order — not just the deciding one.
type Result struct {
	Outcome     Outcome
	ReasonCodes []string
}

// Map evaluates the fixed decision table. Stages are checked in order;
// each stage that applies contributes its reason code, and the highest
// severity across stages wins.
func Map(in Input, cfg Config) Result {
	base := cfg.DefaultOutcome
	if base == "" {
		base = Allow
	}

	outcome := base
	var reasons []string
	raised := false

	raise := func(o Outcome, reason string) {
		raised = true
		reasons = append(reasons, reason)
		if severity[o] > severity[outcome] {
			outcome = o
		}
	}

	// Stage 1: token gate. Invalid or missing tokens block before any
	// risk reasoning.
	switch in.TokenStatus {
	case model.TokenValid:
	case model.TokenMissing:
		raise(Block, ReasonTokenMissing)
	default:
		raise(Block, ReasonTokenInvalid)
	}

	// Stages 2-5: risk band ladder.
	switch in.RiskBand {
	case model.RiskCritical:
		raise(Block, ReasonRiskCritical)
	case model.RiskHigh:
		raise(RequireConfirm, ReasonRiskHigh)
	case model.RiskMedium:
		if in.Posture == "low" || in.Posture == "degraded" {
			raise(RequireConfirm, ReasonPostureLow)
		}
		raise(Warn, ReasonRiskMedium)
	}

	// Stage 6: explicit confirmation request.
	if in.RequiresConfirmation {
		raise(RequireConfirm, ReasonConfirmation)
	}

	// Stage 7: fallback, only when no earlier stage raised anything.
	if !raised {
		raise(base, ReasonRiskLow)
	}

	if !in.HasDiscernment {
		reasons = append(reasons, ReasonNoDiscernment)
	}

	return Result{Outcome: outcome, ReasonCodes: reasons}
}
