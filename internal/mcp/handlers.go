package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/bluxlabs/bluxguard/internal/audit"
	"github.com/bluxlabs/bluxguard/internal/model"
	"github.com/bluxlabs/bluxguard/internal/receipt"
	"github.com/bluxlabs/bluxguard/internal/trip"
)

// --- Input/Output types ---

// EvaluateInput defines parameters for the guard_evaluate tool.
type EvaluateInput struct {
	Envelope    model.RequestEnvelope    `json:"envelope" jsonschema:"request envelope to evaluate"`
	Discernment *model.DiscernmentReport `json:"discernment,omitempty" jsonschema:"optional discernment report"`
	Tokens      []string                 `json:"tokens,omitempty" jsonschema:"capability tokens to verify"`
	Revocations []string                 `json:"revocations,omitempty" jsonschema:"revoked token identifiers"`
}

// EvaluateOutput carries the signed receipt plus the decision summary.
type EvaluateOutput struct {
	Receipt     *model.GuardReceipt `json:"receipt"`
	Decision    string              `json:"decision"`
	ReasonCodes []string            `json:"reason_codes"`
}

// VerifyReceiptInput defines parameters for the guard_verify_receipt tool.
type VerifyReceiptInput struct {
	Receipt map[string]any `json:"receipt" jsonschema:"the full receipt document to verify"`
}

// VerifyReceiptOutput reports the verification verdict.
type VerifyReceiptOutput struct {
	OK     bool   `json:"ok"`
	Reason string `json:"reason"`
}

// TripCheckInput defines parameters for the guard_trip_check tool.
type TripCheckInput struct {
	Event map[string]any `json:"event" jsonschema:"telemetry event to evaluate against trip rules"`
}

// TripCheckOutput lists the compact alerts for every rule that fired.
type TripCheckOutput struct {
	Triggered bool     `json:"triggered"`
	Alerts    []string `json:"alerts,omitempty"`
}

// AuditVerifyInput is empty unless a non-default log path is given.
type AuditVerifyInput struct {
	Path string `json:"path,omitempty" jsonschema:"audit log path, defaults to the server's configured log"`
}

// AuditVerifyOutput mirrors the chain verification result.
type AuditVerifyOutput struct {
	Status    string `json:"status"`
	Digest    string `json:"digest,omitempty"`
	LineCount int    `json:"line_count"`
	Error     string `json:"error,omitempty"`
	ErrorLine int    `json:"error_line,omitempty"`
}

// --- Handlers ---

func (s *Server) handleEvaluate(ctx context.Context, req *mcpsdk.CallToolRequest, input EvaluateInput) (*mcpsdk.CallToolResult, EvaluateOutput, error) {
	env := input.Envelope
	rec, err := s.engine.Evaluate(ctx, receipt.EvaluateInput{
		Envelope:    &env,
		Discernment: input.Discernment,
		Tokens:      input.Tokens,
		Revocations: input.Revocations,
	})
	if err != nil {
		return nil, EvaluateOutput{}, err
	}

	return nil, EvaluateOutput{
		Receipt:     rec,
		Decision:    rec.Decision,
		ReasonCodes: rec.ReasonCodes,
	}, nil
}

func (s *Server) handleVerifyReceipt(ctx context.Context, req *mcpsdk.CallToolRequest, input VerifyReceiptInput) (*mcpsdk.CallToolResult, VerifyReceiptOutput, error) {
	if len(input.Receipt) == 0 {
		return nil, VerifyReceiptOutput{}, fmt.Errorf("receipt is required")
	}

	doc, err := json.Marshal(input.Receipt)
	if err != nil {
		return nil, VerifyReceiptOutput{}, fmt.Errorf("encode receipt: %w", err)
	}

	ok, reason := s.engine.Verify(doc)
	return nil, VerifyReceiptOutput{OK: ok, Reason: reason}, nil
}

func (s *Server) handleTripCheck(ctx context.Context, req *mcpsdk.CallToolRequest, input TripCheckInput) (*mcpsdk.CallToolResult, TripCheckOutput, error) {
	if input.Event == nil {
		return nil, TripCheckOutput{}, fmt.Errorf("event is required")
	}

	alerts := s.tripEngine.Process(trip.Event(input.Event))
	return nil, TripCheckOutput{
		Triggered: len(alerts) > 0,
		Alerts:    alerts,
	}, nil
}

func (s *Server) handleAuditVerify(ctx context.Context, req *mcpsdk.CallToolRequest, input AuditVerifyInput) (*mcpsdk.CallToolResult, AuditVerifyOutput, error) {
	path := input.Path
	if path == "" {
		path = s.auditLogPath
	}
	if path == "" {
		return nil, AuditVerifyOutput{}, fmt.Errorf("no audit log configured")
	}

	result := audit.VerifyChain(path)
	return nil, AuditVerifyOutput{
		Status:    result.Status,
		Digest:    result.Digest,
		LineCount: result.Lines,
		Error:     result.Error,
		ErrorLine: result.ErrorLine,
	}, nil
}
