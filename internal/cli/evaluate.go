package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/bluxlabs/bluxguard/internal/receipt"
)

var (
	evalEnvelope    string
	evalDiscernment string
	evalTokens      []string
	evalRevocations string
	evalAuditLog    string
	evalAuditDB     string
)

func init() {
	rootCmd.AddCommand(evaluateCmd)
	evaluateCmd.Flags().StringVar(&evalEnvelope, "request-envelope", "", "Path to request envelope JSON (required)")
	evaluateCmd.Flags().StringVar(&evalDiscernment, "discernment", "", "Path to discernment report JSON")
	evaluateCmd.Flags().StringArrayVar(&evalTokens, "token", nil, "Capability token (repeatable)")
	evaluateCmd.Flags().StringVar(&evalRevocations, "revocations", "", "Path to revoked tokens JSON")
	evaluateCmd.Flags().StringVar(&evalAuditLog, "audit-log", defaultAuditLogPath(), "Path to the hash-chained audit log")
	evaluateCmd.Flags().StringVar(&evalAuditDB, "audit-db", defaultAuditDBPath(), "Path to the SQLite audit index (empty to disable)")
	evaluateCmd.MarkFlagRequired("request-envelope")
}

var evaluateCmd = &cobra.Command{
	Use:   "evaluate",
	Short: "Evaluate a request envelope into a signed guard receipt",
	Long:  "Validates the envelope, verifies capability tokens, maps risk to a\ndecision, resolves execution constraints, and prints the signed receipt.",
	RunE:  runEvaluate,
}

func runEvaluate(cmd *cobra.Command, args []string) error {
	logger := newLogger()

	env, err := receipt.LoadEnvelope(evalEnvelope)
	if err != nil {
		return err
	}

	in := receipt.EvaluateInput{Envelope: env, Tokens: evalTokens}

	if evalDiscernment != "" {
		in.Discernment, err = receipt.LoadDiscernment(evalDiscernment)
		if err != nil {
			return err
		}
	}
	if evalRevocations != "" {
		in.Revocations, err = receipt.LoadRevocations(evalRevocations)
		if err != nil {
			return err
		}
	}

	recorder, closeRecorder, err := openRecorder(evalAuditLog, evalAuditDB, logger)
	if err != nil {
		return fmt.Errorf("open audit log: %w", err)
	}
	defer closeRecorder()

	dispatcher := newDispatcher(logger)
	defer dispatcher.Flush()

	engine, err := receipt.NewEngine(receipt.Options{
		Recorder: recorder,
		Alerts:   dispatcher,
		Logger:   logger,
	})
	if err != nil {
		return err
	}

	rec, err := engine.Evaluate(context.Background(), in)
	if err != nil {
		return err
	}

	out, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(os.Stdout, string(out))
	return nil
}
