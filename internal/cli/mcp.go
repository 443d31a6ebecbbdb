package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	guardmcp "github.com/bluxlabs/bluxguard/internal/mcp"
)

var (
	mcpAuditLog string
	mcpAuditDB  string
	mcpRules    string
)

func init() {
	rootCmd.AddCommand(mcpCmd)
	mcpCmd.Flags().StringVar(&mcpAuditLog, "audit-log", defaultAuditLogPath(), "Path to the hash-chained audit log")
	mcpCmd.Flags().StringVar(&mcpAuditDB, "audit-db", defaultAuditDBPath(), "Path to the SQLite audit index (empty to disable)")
	mcpCmd.Flags().StringVar(&mcpRules, "rules", "", "Path to trip rules file (JSON or YAML)")
}

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start MCP tool server for agent integration",
	Long:  "Runs the guard as an MCP (Model Context Protocol) server over stdio.\nExposes tools: guard_evaluate, guard_verify_receipt, guard_trip_check,\nguard_audit_verify.",
	RunE:  runMCP,
}

func runMCP(cmd *cobra.Command, args []string) error {
	logger := newLogger()
	srv, err := guardmcp.New(guardmcp.Config{
		AuditLogPath: mcpAuditLog,
		AuditDBPath:  mcpAuditDB,
		RulesPath:    mcpRules,
		Version:      version,
		Alerts:       newDispatcher(logger),
		Logger:       logger,
	})
	if err != nil {
		return fmt.Errorf("failed to create MCP server: %w", err)
	}
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigCh
		fmt.Fprintln(os.Stderr, "\nShutting down MCP server...")
		cancel()
	}()

	fmt.Fprintln(os.Stderr, "blux-guard MCP server running on stdio")
	return srv.Run(ctx)
}
