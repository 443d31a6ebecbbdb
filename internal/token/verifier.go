// Package token resolves capability tokens against a revocation set and
// an external verification authority. The verifier fails closed: an
// unreachable or slow authority yields an invalid result with
// token.verifier_unavailable, never an implicit allow.
package token

import (
	"context"
	"errors"
	"time"
)

// Reason codes attached to verification results.
const (
	ReasonMissing     = "token.missing"
	ReasonValid       = "token.valid"
	ReasonInvalid     = "token.invalid"
	ReasonRevoked     = "token.revoked"
	ReasonUnavailable = "token.verifier_unavailable"
	ReasonFailed      = "token.verify_failed"
)

// ErrUnavailable marks an authority that could not be reached at all,
// as opposed to one that answered with a rejection.
var ErrUnavailable = errors.New("token: authority unavailable")

// Verification is the resolved status of one token.
type Verification struct {
	Token       string            `json:"-"`
	Valid       bool              `json:"valid"`
	TokenRef    string            `json:"token_ref"`
	ReasonCodes []string          `json:"reason_codes"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

// Authority resolves a single token with the external capability
// authority. Implementations must honor ctx cancellation.
type Authority interface {
	Resolve(ctx context.Context, token string) (Verification, error)
}

// DefaultTimeout bounds a single authority call.
const DefaultTimeout = 5 * time.Second

// Verifier applies revocation checks locally and delegates the rest to
// an Authority with a hard timeout.
type Verifier struct {
	authority Authority
	timeout   time.Duration
}

// NewVerifier builds a Verifier. A zero timeout selects DefaultTimeout.
func NewVerifier(authority Authority, timeout time.Duration) *Verifier {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Verifier{authority: authority, timeout: timeout}
}

// Verify resolves one token. Revoked tokens never reach the authority.
func (v *Verifier) Verify(ctx context.Context, tok string, revoked map[string]bool) Verification {
	if revoked[tok] {
		return Verification{
			Token:       tok,
			Valid:       false,
			TokenRef:    tok,
			ReasonCodes: []string{ReasonRevoked},
			Metadata:    map[string]string{"status": "revoked"},
		}
	}

	if v.authority == nil {
		return unavailable(tok, "no authority configured")
	}

	ctx, cancel := context.WithTimeout(ctx, v.timeout)
	defer cancel()

	result, err := v.authority.Resolve(ctx, tok)
	switch {
	case err == nil:
		return result
	case errors.Is(err, ErrUnavailable),
		errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, context.Canceled):
		return unavailable(tok, err.Error())
	default:
		return Verification{
			Token:       tok,
			Valid:       false,
			TokenRef:    tok,
			ReasonCodes: []string{ReasonFailed},
			Metadata:    map[string]string{"status": "failed", "error": err.Error()},
		}
	}
}

// VerifyAll resolves every token in order. An empty token list yields a
// single missing result so callers always have at least one reason code.
func (v *Verifier) VerifyAll(ctx context.Context, tokens []string, revoked map[string]bool) []Verification {
	if len(tokens) == 0 {
		return []Verification{{
			Valid:       false,
			ReasonCodes: []string{ReasonMissing},
			Metadata:    map[string]string{"status": "missing"},
		}}
	}

	results := make([]Verification, 0, len(tokens))
	for _, tok := range tokens {
		results = append(results, v.Verify(ctx, tok, revoked))
	}
	return results
}

// RevocationSet normalizes a list of revoked token identifiers.
func RevocationSet(revocations []string) map[string]bool {
	if len(revocations) == 0 {
		return nil
	}
	set := make(map[string]bool, len(revocations))
	for _, r := range revocations {
		set[r] = true
	}
	return set
}

func unavailable(tok, detail string) Verification {
	return Verification{
		Token:       tok,
		Valid:       false,
		TokenRef:    tok,
		ReasonCodes: []string{ReasonUnavailable},
		Metadata:    map[string]string{"status": "unavailable", "detail": detail},
	}
}
