package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/bluxlabs/bluxguard/internal/audit"
)

var (
	auditLogPath string

	replayTrace string
	replayFrom  string
	replayTo    string
	replayJSON  bool
)

func init() {
	rootCmd.AddCommand(auditCmd)
	auditCmd.PersistentFlags().StringVar(&auditLogPath, "log", defaultAuditLogPath(), "Path to the hash-chained audit log")

	auditCmd.AddCommand(auditVerifyCmd)

	auditCmd.AddCommand(auditReplayCmd)
	auditReplayCmd.Flags().StringVar(&replayTrace, "trace", "", "Trace ID to replay (required)")
	auditReplayCmd.Flags().StringVar(&replayFrom, "from", "", "Start time filter (RFC3339)")
	auditReplayCmd.Flags().StringVar(&replayTo, "to", "", "End time filter (RFC3339)")
	auditReplayCmd.Flags().BoolVar(&replayJSON, "json", false, "Emit the replay as JSON instead of a timeline")
	auditReplayCmd.MarkFlagRequired("trace")
}

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Audit log operations",
	Long:  "Commands for verifying and inspecting the hash-chained audit log.",
}

var auditVerifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Verify hash chain integrity of the audit log",
	Long:  "Recomputes the digest chain over the JSONL audit log and reports the\nstatus, terminal digest, and line count. Exits 0 when clean, 2 when broken.",
	RunE:  runAuditVerify,
}

var auditReplayCmd = &cobra.Command{
	Use:   "replay",
	Short: "Replay a trace from the audit log",
	Long:  "Filters the audit log by trace ID and optional time range and renders\na decision timeline with summary counts.",
	RunE:  runAuditReplay,
}

func runAuditVerify(cmd *cobra.Command, args []string) error {
	result := audit.VerifyChain(auditLogPath)

	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(os.Stdout, string(out))

	if result.Status == audit.StatusBroken {
		os.Exit(2)
	}
	return nil
}

func runAuditReplay(cmd *cobra.Command, args []string) error {
	filter := audit.ReplayFilter{TraceID: replayTrace}

	if replayFrom != "" {
		from, err := time.Parse(time.RFC3339, replayFrom)
		if err != nil {
			return fmt.Errorf("invalid --from time %q: %w", replayFrom, err)
		}
		filter.From = from
	}
	if replayTo != "" {
		to, err := time.Parse(time.RFC3339, replayTo)
		if err != nil {
			return fmt.Errorf("invalid --to time %q: %w", replayTo, err)
		}
		filter.To = to
	}

	result, err := audit.Replay(auditLogPath, filter)
	if err != nil {
		return err
	}

	if replayJSON {
		out, err := audit.FormatJSON(result)
		if err != nil {
			return err
		}
		fmt.Fprintln(os.Stdout, out)
		return nil
	}

	fmt.Fprint(os.Stdout, audit.FormatTimeline(result))
	return nil
}
