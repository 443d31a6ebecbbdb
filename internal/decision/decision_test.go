package decision

import (
	"reflect"
	"testing"

	"github.com/bluxlabs/bluxguard/internal/model"
)

func TestMapTable(t *testing.T) {
	cases := []struct {
		name        string
		in          Input
		wantOutcome Outcome
		wantReasons []string
	}{
		{
			name:        "missing token blocks",
			in:          Input{TokenStatus: model.TokenMissing},
			wantOutcome: Block,
			wantReasons: []string{ReasonTokenMissing, ReasonNoDiscernment},
		},
		{
			name:        "invalid token blocks",
			in:          Input{TokenStatus: model.TokenInvalid, HasDiscernment: true},
			wantOutcome: Block,
			wantReasons: []string{ReasonTokenInvalid},
		},
		{
			name:        "valid token no discernment allows",
			in:          Input{TokenStatus: model.TokenValid},
			wantOutcome: Allow,
			wantReasons: []string{ReasonRiskLow, ReasonNoDiscernment},
		},
		{
			name:        "valid token low risk allows",
			in:          Input{TokenStatus: model.TokenValid, RiskBand: model.RiskLow, HasDiscernment: true},
			wantOutcome: Allow,
			wantReasons: []string{ReasonRiskLow},
		},
		{
			name:        "medium risk warns",
			in:          Input{TokenStatus: model.TokenValid, RiskBand: model.RiskMedium, HasDiscernment: true},
			wantOutcome: Warn,
			wantReasons: []string{ReasonRiskMedium},
		},
		{
			name:        "medium risk low posture requires confirm",
			in:          Input{TokenStatus: model.TokenValid, RiskBand: model.RiskMedium, Posture: "low", HasDiscernment: true},
			wantOutcome: RequireConfirm,
			wantReasons: []string{ReasonPostureLow, ReasonRiskMedium},
		},
		{
			name:        "high risk requires confirm",
			in:          Input{TokenStatus: model.TokenValid, RiskBand: model.RiskHigh, HasDiscernment: true},
			wantOutcome: RequireConfirm,
			wantReasons: []string{ReasonRiskHigh},
		},
		{
			name:        "critical risk blocks",
			in:          Input{TokenStatus: model.TokenValid, RiskBand: model.RiskCritical, HasDiscernment: true},
			wantOutcome: Block,
			wantReasons: []string{ReasonRiskCritical},
		},
		{
			name:        "explicit confirmation request",
			in:          Input{TokenStatus: model.TokenValid, RequiresConfirmation: true, HasDiscernment: true},
			wantOutcome: RequireConfirm,
			wantReasons: []string{ReasonConfirmation},
		},
		{
			name:        "confirmation does not lower a block",
			in:          Input{TokenStatus: model.TokenValid, RiskBand: model.RiskCritical, RequiresConfirmation: true, HasDiscernment: true},
			wantOutcome: Block,
			wantReasons: []string{ReasonRiskCritical, ReasonConfirmation},
		},
		{
			name:        "missing token outranks high risk",
			in:          Input{TokenStatus: model.TokenMissing, RiskBand: model.RiskHigh, HasDiscernment: true},
			wantOutcome: Block,
			wantReasons: []string{ReasonTokenMissing, ReasonRiskHigh},
		},
		{
			name:        "token gate alone suppresses the risk fallback",
			in:          Input{TokenStatus: model.TokenInvalid, RiskBand: model.RiskLow, HasDiscernment: true},
			wantOutcome: Block,
			wantReasons: []string{ReasonTokenInvalid},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Map(tc.in, Config{})
			if got.Outcome != tc.wantOutcome {
				t.Errorf("outcome = %s, want %s", got.Outcome, tc.wantOutcome)
			}
			if !reflect.DeepEqual(got.ReasonCodes, tc.wantReasons) {
				t.Errorf("reasons = %v, want %v", got.ReasonCodes, tc.wantReasons)
			}
		})
	}
}

func TestMapDeterministic(t *testing.T) {
	in := Input{TokenStatus: model.TokenValid, RiskBand: model.RiskMedium, Posture: "low", HasDiscernment: true}
	first := Map(in, Config{})
	for i := 0; i < 10; i++ {
		got := Map(in, Config{})
		if got.Outcome != first.Outcome || !reflect.DeepEqual(got.ReasonCodes, first.ReasonCodes) {
			t.Fatal("mapping is not deterministic")
		}
	}
}

func TestMapDefaultOutcomeConfig(t *testing.T) {
	got := Map(Input{TokenStatus: model.TokenValid, HasDiscernment: true}, Config{DefaultOutcome: Warn})
	if got.Outcome != Warn {
		t.Fatalf("expected configured default WARN, got %s", got.Outcome)
	}
}

func TestMapNeverEmptyReasons(t *testing.T) {
	got := Map(Input{TokenStatus: model.TokenValid, HasDiscernment: true}, Config{})
	if len(got.ReasonCodes) == 0 {
		t.Fatal("reason codes must never be empty")
	}
}
