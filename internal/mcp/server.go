package mcp

import (
	"context"
	"fmt"
	"log/slog"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/bluxlabs/bluxguard/internal/alert"
	"github.com/bluxlabs/bluxguard/internal/audit"
	"github.com/bluxlabs/bluxguard/internal/keys"
	"github.com/bluxlabs/bluxguard/internal/receipt"
	"github.com/bluxlabs/bluxguard/internal/trip"
)

// Config holds MCP server configuration.
type Config struct {
	AuditLogPath string
	AuditDBPath  string
	RulesPath    string
	Version      string
	Alerts       *alert.Dispatcher
	Logger       *slog.Logger
}

// Server exposes guard evaluation, receipt verification, trip checks,
// and audit chain verification as MCP tools over stdio.
type Server struct {
	mcpServer    *mcpsdk.Server
	engine       *receipt.Engine
	tripEngine   *trip.Engine
	auditLog     *audit.Log
	auditLogPath string
	logger       *slog.Logger
}

// New creates an MCP server wired to a shared receipt engine and trip
// engine. Both engines record to the same audit chain when one is
// configured.
func New(cfg Config) (*Server, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var (
		auditLog *audit.Log
		recorder *audit.Recorder
	)
	if cfg.AuditLogPath != "" {
		var err error
		auditLog, err = audit.Open(cfg.AuditLogPath)
		if err != nil {
			return nil, fmt.Errorf("open audit log: %w", err)
		}

		var store *audit.Store
		if cfg.AuditDBPath != "" {
			store, err = audit.OpenStore(cfg.AuditDBPath)
			if err != nil {
				logger.Warn("audit store unavailable", "path", cfg.AuditDBPath, "error", err)
			}
		}
		recorder = audit.NewRecorder(auditLog, store, logger)
	}

	kp := keys.FromEnv()

	engine, err := receipt.NewEngine(receipt.Options{
		Keys:     kp,
		Recorder: recorder,
		Alerts:   cfg.Alerts,
		Logger:   logger,
	})
	if err != nil {
		return nil, err
	}

	var rules *trip.RuleSet
	if cfg.RulesPath != "" {
		rules, err = trip.LoadRules(cfg.RulesPath)
		if err != nil {
			return nil, fmt.Errorf("load rules: %w", err)
		}
	}
	tripEngine := trip.NewEngine(trip.Options{
		Rules:    rules,
		Keys:     kp,
		Recorder: recorder,
		Alerts:   cfg.Alerts,
		Logger:   logger,
	})

	version := cfg.Version
	if version == "" {
		version = "dev"
	}

	s := &Server{
		engine:       engine,
		tripEngine:   tripEngine,
		auditLog:     auditLog,
		auditLogPath: cfg.AuditLogPath,
		logger:       logger,
	}

	s.mcpServer = mcpsdk.NewServer(
		&mcpsdk.Implementation{
			Name:    "blux-guard",
			Version: version,
		},
		nil,
	)

	s.registerTools()
	return s, nil
}

// Run starts the MCP server on stdio transport. Blocks until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	return s.mcpServer.Run(ctx, &mcpsdk.StdioTransport{})
}

// Close closes the audit log if configured.
func (s *Server) Close() error {
	if s.auditLog != nil {
		return s.auditLog.Close()
	}
	return nil
}

// registerTools adds all guard tools to the MCP server.
func (s *Server) registerTools() {
	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "guard_evaluate",
		Description: "Evaluate a request envelope against guard policy and return a signed receipt with the decision, reason codes, and execution constraints.",
	}, s.handleEvaluate)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "guard_verify_receipt",
		Description: "Verify a previously issued guard receipt: schema conformance, signature metadata, and HMAC over the canonical payload.",
	}, s.handleVerifyReceipt)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "guard_trip_check",
		Description: "Feed one telemetry event to the trip rule engine. Returns signed compact alerts for every rule that triggered.",
	}, s.handleTripCheck)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "guard_audit_verify",
		Description: "Verify the hash chain of the audit log and return its status, head digest, and line count.",
	}, s.handleAuditVerify)
}
