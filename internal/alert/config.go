package alert

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// EventTypeDecision marks webhook events emitted for guard decisions.
const EventTypeDecision = "guard.decision"

// EventTypeIncident marks webhook events emitted for trip incidents.
const EventTypeIncident = "trip.incident"

// WebhookConfig defines a webhook alert destination.
type WebhookConfig struct {
	URL     string            `yaml:"url"     json:"url"`
	Format  string            `yaml:"format"  json:"format"` // "generic", "slack", "pagerduty"
	Events  []string          `yaml:"events"  json:"events"` // ["BLOCK", "REQUIRE_CONFIRM", "trip.incident"]
	Headers map[string]string `yaml:"headers" json:"headers"`
}

// LoadWebhooks reads the webhooks section of a guard config file. A
// missing file yields no webhooks; other read or parse failures are
// errors so a broken config never silently disables alerting.
func LoadWebhooks(path string) ([]WebhookConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("alert: read config: %w", err)
	}

	var cfg struct {
		Webhooks []WebhookConfig `yaml:"webhooks"`
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("alert: parse config: %w", err)
	}
	return cfg.Webhooks, nil
}

// Event is the payload sent to webhook endpoints.
type Event struct {
	Timestamp   string   `json:"timestamp"`
	Type        string   `json:"type"`
	TraceID     string   `json:"trace_id,omitempty"`
	Decision    string   `json:"decision,omitempty"`
	ReasonCodes []string `json:"reason_codes,omitempty"`
	RiskBand    string   `json:"risk_band,omitempty"`
	ReceiptID   string   `json:"receipt_id,omitempty"`
	RuleID      string   `json:"rule_id,omitempty"`
	RuleName    string   `json:"rule_name,omitempty"`
	Subject     string   `json:"subject,omitempty"`
	Detail      string   `json:"detail,omitempty"`
}
