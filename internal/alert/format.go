package alert

import (
	"encoding/json"
	"fmt"
	"strings"
)

// FormatPayload builds the webhook body for the given format.
func FormatPayload(format string, event Event) ([]byte, error) {
	switch format {
	case "slack":
		return formatSlack(event)
	case "pagerduty":
		return formatPagerDuty(event)
	default:
		return formatGeneric(event)
	}
}

func formatGeneric(event Event) ([]byte, error) {
	return json.Marshal(event)
}

func formatSlack(event Event) ([]byte, error) {
	headline := event.Decision
	if headline == "" {
		headline = event.RuleName
	}
	if headline == "" {
		headline = event.Type
	}

	fields := []any{
		map[string]any{"type": "mrkdwn", "text": fmt.Sprintf("*Trace:* %s", event.TraceID)},
		map[string]any{"type": "mrkdwn", "text": fmt.Sprintf("*Risk:* %s", event.RiskBand)},
	}
	if len(event.ReasonCodes) > 0 {
		fields = append(fields, map[string]any{
			"type": "mrkdwn",
			"text": fmt.Sprintf("*Reasons:* %s", strings.Join(event.ReasonCodes, ", ")),
		})
	}
	if event.RuleID != "" {
		fields = append(fields, map[string]any{
			"type": "mrkdwn",
			"text": fmt.Sprintf("*Rule:* %s (%s)", event.RuleName, event.RuleID),
		})
	}

	payload := map[string]any{
		"blocks": []any{
			map[string]any{
				"type": "header",
				"text": map[string]any{
					"type": "plain_text",
					"text": fmt.Sprintf("blux-guard: %s", headline),
				},
			},
			map[string]any{
				"type":   "section",
				"fields": fields,
			},
		},
	}
	return json.Marshal(payload)
}

func formatPagerDuty(event Event) ([]byte, error) {
	severity := "info"
	switch {
	case event.Decision == "BLOCK" || event.Type == EventTypeIncident:
		severity = "critical"
	case event.Decision == "REQUIRE_CONFIRM":
		severity = "error"
	case event.Decision == "WARN":
		severity = "warning"
	}

	summary := fmt.Sprintf("blux-guard %s: trace %s", event.Decision, event.TraceID)
	if event.Type == EventTypeIncident {
		summary = fmt.Sprintf("blux-guard trip: %s (%s)", event.RuleName, event.Subject)
	}

	payload := map[string]any{
		"event_action": "trigger",
		"payload": map[string]any{
			"summary":  summary,
			"severity": severity,
			"source":   "blux-guard",
			"custom_details": map[string]any{
				"trace_id":     event.TraceID,
				"decision":     event.Decision,
				"reason_codes": event.ReasonCodes,
				"risk_band":    event.RiskBand,
				"rule_id":      event.RuleID,
				"subject":      event.Subject,
			},
		},
	}
	return json.Marshal(payload)
}
