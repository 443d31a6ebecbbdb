package bluxguard

import (
	"fmt"
	"strings"

	"github.com/bluxlabs/bluxguard/internal/decision"
	"github.com/bluxlabs/bluxguard/internal/model"
)

// Decision is the guard enforcement outcome.
type Decision string

const (
	Allow          Decision = Decision(decision.Allow)
	Warn           Decision = Decision(decision.Warn)
	RequireConfirm Decision = Decision(decision.RequireConfirm)
	Block          Decision = Decision(decision.Block)
)

// Envelope describes what a tool intends to execute. It is the SDK's
// view of a request envelope; zero-value fields pick up guard defaults.
type Envelope = model.RequestEnvelope

// Discernment is an optional risk assessment accompanying an envelope.
type Discernment = model.DiscernmentReport

// Receipt is the signed decision record returned by Evaluate.
type Receipt = model.GuardReceipt

// Result is the evaluation outcome in SDK terms.
type Result struct {
	Decision    Decision
	ReasonCodes []string
	Receipt     *Receipt
}

// Allowed returns true if the decision permits execution without a
// human in the loop.
func (r Result) Allowed() bool {
	return r.Decision == Allow || r.Decision == Warn
}

// BlockedError is returned when the guard blocks or gates an envelope.
type BlockedError struct {
	Decision    Decision
	ReasonCodes []string
	Receipt     *Receipt
}

func (e *BlockedError) Error() string {
	return fmt.Sprintf("blux-guard blocked (%s): %s", e.Decision, strings.Join(e.ReasonCodes, ", "))
}
