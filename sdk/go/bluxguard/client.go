package bluxguard

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/bluxlabs/bluxguard/internal/audit"
	"github.com/bluxlabs/bluxguard/internal/keys"
	"github.com/bluxlabs/bluxguard/internal/receipt"
	"github.com/bluxlabs/bluxguard/internal/token"
)

// Client holds the evaluation pipeline for in-process enforcement.
// Thread-safe for concurrent tool calls.
type Client struct {
	engine   *receipt.Engine
	recorder *audit.Recorder
}

// New creates a Client with the given options.
func New(opts ...Option) (*Client, error) {
	var cfg clientConfig
	for _, o := range opts {
		o(&cfg)
	}

	logger := cfg.logger
	if logger == nil {
		logger = slog.Default()
	}

	var recorder *audit.Recorder
	if cfg.auditLogPath != "" {
		chain, err := audit.Open(cfg.auditLogPath)
		if err != nil {
			return nil, fmt.Errorf("bluxguard: open audit log: %w", err)
		}
		var store *audit.Store
		if cfg.auditDBPath != "" {
			store, err = audit.OpenStore(cfg.auditDBPath)
			if err != nil {
				logger.Warn("audit store unavailable", "path", cfg.auditDBPath, "error", err)
			}
		}
		recorder = audit.NewRecorder(chain, store, logger)
	}

	kp := keys.FromEnv()
	if cfg.secret != nil {
		kp = keys.Static(cfg.secret)
	}

	var verifier *token.Verifier
	if cfg.authority != nil {
		verifier = token.NewVerifier(cfg.authority, 0)
	}

	engine, err := receipt.NewEngine(receipt.Options{
		Verifier: verifier,
		Keys:     kp,
		Recorder: recorder,
		Logger:   logger,
	})
	if err != nil {
		return nil, fmt.Errorf("bluxguard: %w", err)
	}

	return &Client{engine: engine, recorder: recorder}, nil
}

// Evaluate issues a signed receipt for the envelope without executing
// anything.
func (c *Client) Evaluate(ctx context.Context, env Envelope, disc *Discernment) (Result, error) {
	rec, err := c.engine.Evaluate(ctx, receipt.EvaluateInput{
		Envelope:    &env,
		Discernment: disc,
	})
	if err != nil {
		return Result{}, err
	}
	return Result{
		Decision:    Decision(rec.Decision),
		ReasonCodes: rec.ReasonCodes,
		Receipt:     rec,
	}, nil
}

// VerifyReceipt checks a previously issued receipt document.
func (c *Client) VerifyReceipt(doc []byte) (bool, string) {
	return c.engine.Verify(doc)
}

// Close releases the audit sinks, if any.
func (c *Client) Close() error {
	if c.recorder != nil {
		return c.recorder.Close()
	}
	return nil
}
