package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/bluxlabs/bluxguard/internal/integrity"
)

var rootCmd = &cobra.Command{
	Use:   "bluxguard",
	Short: "Trust core for agent command execution",
	Long:  "Evaluates request envelopes into signed guard receipts, watches telemetry\nfor trip conditions, and keeps a hash-chained audit log of every decision.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := integrity.Verify(); err != nil {
			fmt.Fprintf(os.Stderr, "FATAL: %v\n", err)
			os.Exit(78) // EX_CONFIG
		}
		return nil
	},
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		printError(err)
		os.Exit(1)
	}
}

// printError emits a structured error line on stderr so callers that
// drive the binary programmatically never have to parse prose.
func printError(err error) {
	out, merr := json.Marshal(map[string]string{"error": err.Error()})
	if merr != nil {
		fmt.Fprintln(os.Stderr, err)
		return
	}
	fmt.Fprintln(os.Stderr, string(out))
}

// defaultAuditLogPath is ~/.blux-guard/audit.jsonl; falls back to the
// working directory when the home dir cannot be resolved.
func defaultAuditLogPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "audit.jsonl"
	}
	return filepath.Join(home, ".blux-guard", "audit.jsonl")
}

// defaultAuditDBPath sits next to the JSONL chain.
func defaultAuditDBPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "audit.db"
	}
	return filepath.Join(home, ".blux-guard", "audit.db")
}

// defaultGuardConfigPath is the per-user guard config, holding the
// webhooks section among other settings.
func defaultGuardConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "guard.yaml"
	}
	return filepath.Join(home, ".blux-guard", "guard.yaml")
}
