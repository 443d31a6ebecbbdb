package audit

import (
	"context"
	"log/slog"
	"time"

	"github.com/bluxlabs/bluxguard/internal/ids"
)

// Recorder writes each audit event to both sinks: the hash-chained
// JSONL log (the record of truth) and the indexed SQLite store
// (best-effort; a store failure degrades queryability, never the
// chain). Either sink may be nil.
type Recorder struct {
	log    *Log
	store  *Store
	logger *slog.Logger
}

// NewRecorder wires the sinks together. logger may be nil, in which
// case slog.Default() is used for degrade events.
func NewRecorder(log *Log, store *Store, logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{log: log, store: store, logger: logger}
}

// Record stamps and appends the entry. The chained log write is the one
// that counts; its error is returned. The store mirror is best-effort
// and only logged on failure.
func (r *Recorder) Record(entry Entry) error {
	if entry.Timestamp == "" {
		entry.Timestamp = time.Now().UTC().Format(TimestampFormat)
	}
	if entry.Level == "" {
		entry.Level = "info"
	}
	if entry.Actor == "" {
		entry.Actor = "local"
	}
	if entry.CorrelationID == "" {
		entry.CorrelationID = ids.NewCorrelationID()
	}

	var logErr error
	if r.log != nil {
		logErr = r.log.Record(entry)
	}

	if r.store != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		if err := r.store.Insert(ctx, entry); err != nil {
			r.logger.Warn("audit store degraded", "action", entry.Action, "error", err)
		}
		cancel()
	}

	return logErr
}

// Close closes both sinks.
func (r *Recorder) Close() error {
	var firstErr error
	if r.log != nil {
		if err := r.log.Close(); err != nil {
			firstErr = err
		}
	}
	if r.store != nil {
		if err := r.store.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
