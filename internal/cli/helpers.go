package cli

import (
	"log/slog"
	"os"
	"path/filepath"

	"github.com/bluxlabs/bluxguard/internal/alert"
	"github.com/bluxlabs/bluxguard/internal/audit"
)

// newLogger builds the CLI's stderr logger. Warnings and up only, so
// stdout stays clean for machine-readable output.
func newLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	}))
}

// newDispatcher loads the webhooks section of the guard config. A
// missing config means no webhooks; the dispatcher is then nil, which
// every caller tolerates.
func newDispatcher(logger *slog.Logger) *alert.Dispatcher {
	hooks, err := alert.LoadWebhooks(defaultGuardConfigPath())
	if err != nil {
		logger.Warn("webhook config unavailable", "error", err)
		return nil
	}
	return alert.NewDispatcher(hooks)
}

// openRecorder opens the JSONL chain and, when dbPath is non-empty, the
// SQLite sink beside it. The returned cleanup closes both.
func openRecorder(logPath, dbPath string, logger *slog.Logger) (*audit.Recorder, func(), error) {
	if err := os.MkdirAll(filepath.Dir(logPath), 0700); err != nil {
		return nil, nil, err
	}

	chain, err := audit.Open(logPath)
	if err != nil {
		return nil, nil, err
	}

	var store *audit.Store
	if dbPath != "" {
		store, err = audit.OpenStore(dbPath)
		if err != nil {
			logger.Warn("audit store unavailable", "path", dbPath, "error", err)
			store = nil
		}
	}

	rec := audit.NewRecorder(chain, store, logger)
	return rec, func() { _ = rec.Close() }, nil
}
