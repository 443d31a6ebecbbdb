package trip

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/bluxlabs/bluxguard/internal/alert"
	"github.com/bluxlabs/bluxguard/internal/audit"
	"github.com/bluxlabs/bluxguard/internal/canonical"
	"github.com/bluxlabs/bluxguard/internal/ids"
	"github.com/bluxlabs/bluxguard/internal/keys"
)

// Event is one telemetry record pushed by an external producer. The
// shape is producer-defined; rules address into it with dotted paths.
type Event map[string]any

// Incident is the immutable record emitted when a rule fires.
type Incident struct {
	RuleID        string `json:"rule_id"`
	RuleName      string `json:"rule_name,omitempty"`
	Timestamp     int64  `json:"timestamp"`
	Subject       string `json:"uid"`
	EventSnapshot Event  `json:"event_snapshot"`
	Note          string `json:"note,omitempty"`
}

// Engine evaluates events against the loaded rule set. Window state is
// the only shared mutable state; the engine is safe for concurrent
// Process calls from multiple producers.
type Engine struct {
	keys     *keys.Provider
	recorder *audit.Recorder
	alerts   *alert.Dispatcher
	windows  *Windows
	logger   *slog.Logger
	now      func() time.Time

	mu    sync.RWMutex
	rules []Rule
}

// Options configures an Engine.
type Options struct {
	Rules    *RuleSet
	Keys     *keys.Provider
	Recorder *audit.Recorder
	Alerts   *alert.Dispatcher
	Logger   *slog.Logger
	Now      func() time.Time
}

// NewEngine builds an engine. Invalid rules are logged and dropped so a
// single bad definition never takes the evaluation loop down.
func NewEngine(opts Options) *Engine {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	kp := opts.Keys
	if kp == nil {
		kp = keys.FromEnv()
	}

	e := &Engine{
		keys:     kp,
		recorder: opts.Recorder,
		alerts:   opts.Alerts,
		windows:  NewWindows(),
		logger:   logger,
		now:      now,
	}
	if opts.Rules != nil {
		e.SetRules(opts.Rules)
	}
	return e
}

// SetRules swaps the active rule set. Called at startup and on rules
// file reload; window state carries over so a reload does not reset
// thresholds mid-window.
func (e *Engine) SetRules(rs *RuleSet) {
	valid := make([]Rule, 0, len(rs.Rules))
	for _, r := range rs.Rules {
		if err := r.Validate(); err != nil {
			e.logger.Warn("skipping malformed rule", "error", err)
			continue
		}
		valid = append(valid, r)
	}

	e.mu.Lock()
	e.rules = valid
	e.mu.Unlock()
}

// RuleCount returns the number of active rules.
func (e *Engine) RuleCount() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.rules)
}

// Process evaluates one event against every rule and returns the
// compact alerts for the rules that fired. Rule evaluation errors are
// isolated per rule: logged, treated as non-matching.
func (e *Engine) Process(event Event) []string {
	now := e.now()

	e.mu.RLock()
	rules := e.rules
	e.mu.RUnlock()

	var alerts []string
	for i := range rules {
		rule := &rules[i]
		hit, err := e.evalCondition(rule, rule.Condition, event, now)
		if err != nil {
			e.logger.Warn("rule evaluation error", "rule_id", rule.ID, "error", err)
			continue
		}
		if !hit {
			continue
		}

		inc := e.makeIncident(rule, event, now)
		alert, err := e.signAlert(inc)
		if err != nil {
			e.logger.Warn("incident signing failed", "rule_id", rule.ID, "error", err)
			continue
		}
		e.recordIncident(inc, alert)
		e.dispatchIncident(inc)
		alerts = append(alerts, alert)
	}
	return alerts
}

// evalCondition walks the condition tree. and/or short-circuit.
func (e *Engine) evalCondition(rule *Rule, cond *Condition, event Event, now time.Time) (bool, error) {
	switch cond.Type {
	case CondThreshold:
		return e.evalThreshold(rule, cond, event, now)

	case CondMatch:
		got, ok := lookupField(event, cond.Field)
		if !ok {
			return false, nil
		}
		return scalarEqual(got, cond.Value), nil

	case CondExists:
		got, ok := lookupField(event, cond.Field)
		return ok && got != nil, nil

	case CondAnd:
		for i := range cond.Clauses {
			hit, err := e.evalCondition(rule, &cond.Clauses[i], event, now)
			if err != nil || !hit {
				return false, err
			}
		}
		return true, nil

	case CondOr:
		for i := range cond.Clauses {
			hit, err := e.evalCondition(rule, &cond.Clauses[i], event, now)
			if err != nil {
				return false, err
			}
			if hit {
				return true, nil
			}
		}
		return false, nil

	default:
		return false, fmt.Errorf("unknown condition type %q", cond.Type)
	}
}

// evalThreshold updates the rule's sliding window and compares the
// in-window count against the configured bound. The event contributes
// to the window only when the addressed field is present and truthy.
func (e *Engine) evalThreshold(rule *Rule, cond *Condition, event Event, now time.Time) (bool, error) {
	bound, ok := cond.thresholdValue()
	if !ok {
		return false, fmt.Errorf("threshold value is not numeric")
	}

	subject := subjectOf(event, rule.subjectKey())
	windowS := cond.windowSeconds()

	var count int
	if val, ok := lookupField(event, cond.Field); ok && truthy(val) {
		count = e.windows.Observe(subject, cond.Field, now, windowS)
	} else {
		count = e.windows.Count(subject, cond.Field, now, windowS)
	}

	op := cond.Op
	if op == "" {
		op = "gt"
	}
	n := float64(count)
	switch op {
	case "gt":
		return n > bound, nil
	case "gte":
		return n >= bound, nil
	case "eq":
		return n == bound, nil
	case "lt":
		return n < bound, nil
	case "lte":
		return n <= bound, nil
	default:
		return false, fmt.Errorf("unknown threshold op %q", op)
	}
}

func (e *Engine) makeIncident(rule *Rule, event Event, now time.Time) Incident {
	return Incident{
		RuleID:        rule.ID,
		RuleName:      rule.Name,
		Timestamp:     now.Unix(),
		Subject:       subjectOf(event, rule.subjectKey()),
		EventSnapshot: event,
		Note:          "rule_triggered",
	}
}

// recordIncident appends the incident to the shared audit chain. The
// entry carries the full canonical incident body plus its MAC, so the
// chain alone can reconstruct the incident and vouch for the alert even
// after the stdout alert is gone.
func (e *Engine) recordIncident(inc Incident, alert string) {
	if e.recorder == nil {
		return
	}

	mac := ""
	if idx := strings.LastIndexByte(alert, '.'); idx > 0 {
		mac = alert[idx+1:]
	}

	body := ""
	if b, err := canonical.Bytes(inc); err != nil {
		e.logger.Warn("incident canonicalization failed", "rule_id", inc.RuleID, "error", err)
	} else {
		body = string(b)
	}

	entry := audit.Entry{
		Level:  "warn",
		Actor:  "trip-engine",
		Action: "trip.rule_triggered",
		Payload: audit.Payload{
			RuleID:      inc.RuleID,
			RuleName:    inc.RuleName,
			Subject:     inc.Subject,
			Incident:    body,
			IncidentMAC: mac,
		},
	}
	if err := e.recorder.Record(entry); err != nil {
		e.logger.Warn("audit sink degraded, incident not durably recorded",
			"rule_id", inc.RuleID, "error", err)
	}
}

// dispatchIncident pushes the incident to any configured webhooks.
func (e *Engine) dispatchIncident(inc Incident) {
	e.alerts.Dispatch(alert.Event{
		Timestamp: ids.UTCNowISO(),
		Type:      alert.EventTypeIncident,
		RuleID:    inc.RuleID,
		RuleName:  inc.RuleName,
		Subject:   inc.Subject,
	})
}

// subjectOf resolves the subject identifier, "<unknown>" when absent.
func subjectOf(event Event, key string) string {
	if v, ok := lookupField(event, key); ok {
		if s, ok := v.(string); ok && s != "" {
			return s
		}
		return fmt.Sprint(v)
	}
	return "<unknown>"
}

// lookupField resolves a dotted path into the event.
func lookupField(event Event, path string) (any, bool) {
	var cur any = map[string]any(event)
	for _, part := range strings.Split(path, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = m[part]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

// truthy mirrors the loose semantics events arrive with: zero numbers,
// empty strings, false, and nil do not count as occurrences.
func truthy(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case bool:
		return x
	case float64:
		return x != 0
	case int:
		return x != 0
	case string:
		return x != ""
	default:
		return true
	}
}

// scalarEqual compares two JSON scalars loosely enough that 80 and 80.0
// are the same value.
func scalarEqual(a, b any) bool {
	if af, aok := toFloat(a); aok {
		if bf, bok := toFloat(b); bok {
			return af == bf
		}
		return false
	}
	return a == b
}

func toFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	default:
		return 0, false
	}
}
