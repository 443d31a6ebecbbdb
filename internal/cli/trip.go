package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/bluxlabs/bluxguard/internal/trip"
)

var (
	tripRules    string
	tripAuditLog string
	tripAuditDB  string
	tripWatch    bool
)

func init() {
	rootCmd.AddCommand(tripCmd)
	tripCmd.Flags().StringVar(&tripRules, "rules", "", "Path to trip rules file (JSON or YAML)")
	tripCmd.Flags().StringVar(&tripAuditLog, "audit-log", defaultAuditLogPath(), "Path to the hash-chained audit log")
	tripCmd.Flags().StringVar(&tripAuditDB, "audit-db", defaultAuditDBPath(), "Path to the SQLite audit index (empty to disable)")
	tripCmd.Flags().BoolVar(&tripWatch, "watch", false, "Reload the rules file when it changes")
}

var tripCmd = &cobra.Command{
	Use:   "trip",
	Short: "Run the trip rule engine over stdin events",
	Long:  "Reads one JSON event per line from stdin and evaluates it against the\nloaded rules. Prints a signed compact alert per triggered rule, or OK.",
	RunE:  runTrip,
}

func runTrip(cmd *cobra.Command, args []string) error {
	logger := newLogger()

	var rules *trip.RuleSet
	if tripRules != "" {
		var err error
		rules, err = trip.LoadRules(tripRules)
		if err != nil {
			return fmt.Errorf("load rules: %w", err)
		}
	}

	recorder, closeRecorder, err := openRecorder(tripAuditLog, tripAuditDB, logger)
	if err != nil {
		return fmt.Errorf("open audit log: %w", err)
	}
	defer closeRecorder()

	dispatcher := newDispatcher(logger)
	defer dispatcher.Flush()

	engine := trip.NewEngine(trip.Options{
		Rules:    rules,
		Recorder: recorder,
		Alerts:   dispatcher,
		Logger:   logger,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	if tripWatch {
		if tripRules == "" {
			return fmt.Errorf("--watch requires --rules")
		}
		go func() {
			if err := engine.WatchRules(ctx, tripRules); err != nil && !errors.Is(err, context.Canceled) {
				logger.Warn("rules watcher stopped", "error", err)
			}
		}()
	}

	err = engine.RunStdin(ctx, os.Stdin, os.Stdout, os.Stderr)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
