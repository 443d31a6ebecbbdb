package trip

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// RunStdin consumes one JSON event per line from r until EOF or ctx
// cancellation. For each event it prints either the compact alert for
// every triggered rule or the literal OK. Malformed lines are skipped
// with a warning on errw; they never crash the loop.
func (e *Engine) RunStdin(ctx context.Context, r io.Reader, w io.Writer, errw io.Writer) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var event Event
		if err := json.Unmarshal([]byte(line), &event); err != nil {
			fmt.Fprintf(errw, "invalid JSON (skipping): %v\n", err)
			continue
		}

		alerts := e.Process(event)
		if len(alerts) == 0 {
			fmt.Fprintln(w, "OK")
			continue
		}
		for _, alert := range alerts {
			fmt.Fprintln(w, alert)
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("trip: read events: %w", err)
	}
	return nil
}
