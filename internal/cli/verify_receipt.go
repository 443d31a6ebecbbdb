package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/bluxlabs/bluxguard/internal/receipt"
)

var verifyReceiptPath string

func init() {
	rootCmd.AddCommand(verifyReceiptCmd)
	verifyReceiptCmd.Flags().StringVar(&verifyReceiptPath, "receipt", "", "Path to receipt JSON (required)")
	verifyReceiptCmd.MarkFlagRequired("receipt")
}

var verifyReceiptCmd = &cobra.Command{
	Use:   "verify-receipt",
	Short: "Verify a previously issued guard receipt",
	Long:  "Checks schema conformance, signature metadata, and the HMAC over the\ncanonical payload. Exits 0 when valid, 2 when verification fails.",
	RunE:  runVerifyReceipt,
}

func runVerifyReceipt(cmd *cobra.Command, args []string) error {
	doc, err := os.ReadFile(verifyReceiptPath)
	if err != nil {
		return fmt.Errorf("read receipt: %w", err)
	}

	engine, err := receipt.NewEngine(receipt.Options{Logger: newLogger()})
	if err != nil {
		return err
	}

	ok, reason := engine.Verify(doc)
	out, _ := json.Marshal(map[string]any{"ok": ok, "reason": reason})
	fmt.Fprintln(os.Stdout, string(out))

	if !ok {
		os.Exit(2)
	}
	return nil
}
