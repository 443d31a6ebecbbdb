// Package receipt is the top-level guard entry point: it validates a
// request envelope, resolves capability tokens, maps the decision,
// resolves constraints, and issues a signed, schema-valid receipt.
package receipt

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/bluxlabs/bluxguard/internal/alert"
	"github.com/bluxlabs/bluxguard/internal/audit"
	"github.com/bluxlabs/bluxguard/internal/canonical"
	"github.com/bluxlabs/bluxguard/internal/constraint"
	"github.com/bluxlabs/bluxguard/internal/decision"
	"github.com/bluxlabs/bluxguard/internal/ids"
	"github.com/bluxlabs/bluxguard/internal/keys"
	"github.com/bluxlabs/bluxguard/internal/model"
	"github.com/bluxlabs/bluxguard/internal/schema"
	"github.com/bluxlabs/bluxguard/internal/token"
)

// Engine evaluates request envelopes into signed receipts and verifies
// receipts after the fact. Construct once and share: evaluation itself
// is stateless, so concurrent calls are safe.
type Engine struct {
	validator   *schema.Validator
	verifier    *token.Verifier
	keys        *keys.Provider
	recorder    *audit.Recorder
	alerts      *alert.Dispatcher
	decisionCfg decision.Config
	logger      *slog.Logger
	now         func() time.Time
}

// Options configures an Engine. Zero-value fields select defaults: a
// freshly compiled validator, the exec authority, env-sourced keys, no
// audit recorder.
type Options struct {
	Validator *schema.Validator
	Verifier  *token.Verifier
	Keys      *keys.Provider
	Recorder  *audit.Recorder
	Alerts    *alert.Dispatcher
	Decision  decision.Config
	Logger    *slog.Logger
	Now       func() time.Time
}

// NewEngine builds an Engine from the given options.
func NewEngine(opts Options) (*Engine, error) {
	validator := opts.Validator
	if validator == nil {
		var err error
		validator, err = schema.NewValidator()
		if err != nil {
			return nil, fmt.Errorf("receipt: %w", err)
		}
	}

	verifier := opts.Verifier
	if verifier == nil {
		verifier = token.NewVerifier(&token.ExecAuthority{}, 0)
	}

	kp := opts.Keys
	if kp == nil {
		kp = keys.FromEnv()
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	now := opts.Now
	if now == nil {
		now = time.Now
	}

	return &Engine{
		validator:   validator,
		verifier:    verifier,
		keys:        kp,
		recorder:    opts.Recorder,
		alerts:      opts.Alerts,
		decisionCfg: opts.Decision,
		logger:      logger,
		now:         now,
	}, nil
}

// EvaluateInput is one evaluation request. The envelope is owned by the
// call; tokens and revocations may also arrive on the envelope itself.
type EvaluateInput struct {
	Envelope    *model.RequestEnvelope
	Discernment *model.DiscernmentReport
	Tokens      []string
	Revocations []string
}

// Evaluate validates, decides, signs, and audits one request. Schema
// failures are rejected before any decision logic runs and report every
// failing field. Audit sink failures degrade to a log line — losing
// audit durability is a lesser harm than blocking every action.
func (e *Engine) Evaluate(ctx context.Context, in EvaluateInput) (*model.GuardReceipt, error) {
	if in.Envelope == nil {
		return nil, fmt.Errorf("receipt: envelope is required")
	}
	if err := e.validator.Validate(schema.ContractRequestEnvelope, in.Envelope); err != nil {
		return nil, err
	}
	if in.Discernment != nil {
		if err := e.validator.Validate(schema.ContractDiscernmentReport, in.Discernment); err != nil {
			return nil, err
		}
	}

	env := in.Envelope

	traceID := env.TraceID
	if traceID == "" {
		traceID = ids.NewTraceID()
	}

	tokens := in.Tokens
	if len(tokens) == 0 {
		tokens = env.Tokens()
	}

	tokenRef := env.CapabilityTokenRef
	if tokenRef == "" {
		tokenRef = "unknown"
	}

	tokenStatus := model.TokenMissing
	var reasons []string
	if len(tokens) > 0 {
		results := e.verifier.VerifyAll(ctx, tokens, token.RevocationSet(in.Revocations))
		allValid := true
		for _, r := range results {
			if !r.Valid {
				allValid = false
			}
			reasons = append(reasons, r.ReasonCodes...)
		}
		if allValid {
			tokenStatus = model.TokenValid
		} else {
			tokenStatus = model.TokenInvalid
		}
		if results[0].TokenRef != "" {
			tokenRef = results[0].TokenRef
		}
	}

	mapped := decision.Map(decision.Input{
		TokenStatus:          tokenStatus,
		RiskBand:             in.Discernment.NormalizedRisk(),
		Uncertainty:          discernmentField(in.Discernment, func(d *model.DiscernmentReport) string { return d.Uncertainty }),
		Posture:              discernmentField(in.Discernment, func(d *model.DiscernmentReport) string { return d.Posture }),
		RequiresConfirmation: in.Discernment != nil && in.Discernment.RequiresConfirmation,
		HasDiscernment:       in.Discernment != nil,
	}, e.decisionCfg)

	reasonCodes := dedupe(append(reasons, mapped.ReasonCodes...))
	constraints := constraint.Resolve(env, mapped.Outcome)

	rec := &model.GuardReceipt{
		Schema:             model.ReceiptSchemaID,
		ReceiptID:          ids.NewReceiptID(),
		IssuedAt:           float64(e.now().UnixMilli()) / 1000.0,
		Decision:           string(mapped.Outcome),
		TraceID:            traceID,
		CapabilityTokenRef: tokenRef,
		TokenStatus:        tokenStatus,
		ReasonCodes:        reasonCodes,
		Constraints:        constraints,
		Discernment:        discernmentEcho(in.Discernment),
		Bindings: model.Bindings{
			TraceID:        traceID,
			EnvelopeHash:   env.EnvelopeHash,
			CapabilityRefs: env.CapabilityRefs,
		},
	}

	sig, err := canonical.MAC(e.keys.Current(), rec.Unsigned())
	if err != nil {
		return nil, fmt.Errorf("receipt: sign: %w", err)
	}
	rec.Signature = &model.Signature{Alg: model.SignatureAlg, Value: sig}

	if err := e.validator.Validate(schema.ContractGuardReceipt, rec); err != nil {
		return nil, fmt.Errorf("receipt: issued receipt failed contract: %w", err)
	}

	e.recordIssued(rec)
	e.alerts.Dispatch(alert.Event{
		Timestamp:   ids.UTCNowISO(),
		Type:        alert.EventTypeDecision,
		TraceID:     rec.TraceID,
		Decision:    rec.Decision,
		ReasonCodes: rec.ReasonCodes,
		RiskBand:    rec.Discernment.RiskLevel,
		ReceiptID:   rec.ReceiptID,
	})
	return rec, nil
}

// recordIssued appends the issuance event. The entry carries a hash of
// the constraints rather than the raw constraints to bound log size.
func (e *Engine) recordIssued(rec *model.GuardReceipt) {
	if e.recorder == nil {
		return
	}

	var constraintsHash string
	if b, err := canonical.Bytes(rec.Constraints); err != nil {
		e.logger.Warn("constraints hash failed", "receipt_id", rec.ReceiptID, "error", err)
	} else {
		constraintsHash = canonical.Digest(b)
	}

	entry := audit.Entry{
		Actor:   "guard",
		Action:  "guard.receipt.issued",
		TraceID: rec.TraceID,
		Payload: audit.Payload{
			Decision:           rec.Decision,
			CapabilityTokenRef: rec.CapabilityTokenRef,
			ConstraintsHash:    constraintsHash,
		},
	}
	if err := e.recorder.Record(entry); err != nil {
		e.logger.Warn("audit sink degraded, receipt issued without durable record",
			"receipt_id", rec.ReceiptID, "trace_id", rec.TraceID, "error", err)
	}
}

func discernmentEcho(d *model.DiscernmentReport) model.ReceiptDiscernment {
	if d == nil {
		return model.ReceiptDiscernment{}
	}
	return model.ReceiptDiscernment{
		RiskLevel:   d.NormalizedRisk(),
		Uncertainty: d.Uncertainty,
		Posture:     d.Posture,
		Summary:     d.Summary,
	}
}

func discernmentField(d *model.DiscernmentReport, get func(*model.DiscernmentReport) string) string {
	if d == nil {
		return ""
	}
	return get(d)
}

// dedupe removes repeated reason codes, keeping first-occurrence order.
func dedupe(codes []string) []string {
	seen := make(map[string]bool, len(codes))
	out := make([]string, 0, len(codes))
	for _, c := range codes {
		if c == "" || seen[c] {
			continue
		}
		seen[c] = true
		out = append(out, c)
	}
	if len(out) == 0 {
		out = append(out, "unspecified")
	}
	return out
}
