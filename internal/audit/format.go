package audit

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

const separator = "──────────────────────────────────────────────────────────────────"

// FormatTimeline renders a ReplayResult as a human-readable text timeline.
func FormatTimeline(result *ReplayResult) string {
	if len(result.Entries) == 0 {
		return fmt.Sprintf("Trace: %s | No entries found.\n", result.TraceID)
	}

	var b strings.Builder

	first := formatDateRange(result.Summary.FirstTimestamp)
	last := formatTimeOnly(result.Summary.LastTimestamp)
	b.WriteString(fmt.Sprintf("Trace: %s | %s–%s UTC\n", result.TraceID, first, last))
	b.WriteString(separator + "\n")

	for _, e := range result.Entries {
		ts := formatTimeOnly(e.Timestamp)
		decision := strings.ToUpper(e.Payload.Decision)
		if decision == "" {
			decision = "-"
		}
		detail := e.Payload.ConstraintsHash
		if e.Payload.RuleID != "" {
			detail = fmt.Sprintf("rule=%s subject=%s", e.Payload.RuleID, e.Payload.Subject)
		}
		b.WriteString(fmt.Sprintf("%-10s %-7s %-24s %-15s %s\n",
			ts, e.Level, truncate(e.Action, 24), decision, truncate(detail, 44)))
	}

	b.WriteString(separator + "\n")
	b.WriteString(formatSummary(result.Summary))

	return b.String()
}

// FormatJSON renders a ReplayResult as indented JSON.
func FormatJSON(result *ReplayResult) (string, error) {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal replay result: %w", err)
	}
	return string(data), nil
}

func formatDateRange(ts string) string {
	t, err := time.Parse(TimestampFormat, ts)
	if err != nil {
		return ts
	}
	return t.Format("2006-01-02 15:04:05")
}

func formatTimeOnly(ts string) string {
	t, err := time.Parse(TimestampFormat, ts)
	if err != nil {
		return ts
	}
	return t.Format("15:04:05")
}

func formatSummary(s ReplaySummary) string {
	parts := []string{}
	if s.AllowCount > 0 {
		parts = append(parts, fmt.Sprintf("%d allow", s.AllowCount))
	}
	if s.WarnCount > 0 {
		parts = append(parts, fmt.Sprintf("%d warn", s.WarnCount))
	}
	if s.ConfirmCount > 0 {
		parts = append(parts, fmt.Sprintf("%d require-confirm", s.ConfirmCount))
	}
	if s.BlockCount > 0 {
		parts = append(parts, fmt.Sprintf("%d block", s.BlockCount))
	}
	if s.IncidentCount > 0 {
		parts = append(parts, fmt.Sprintf("%d incident", s.IncidentCount))
	}
	if len(parts) == 0 {
		parts = append(parts, fmt.Sprintf("%d entries", s.Total))
	}
	return fmt.Sprintf("Summary: %s\n", strings.Join(parts, ", "))
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
