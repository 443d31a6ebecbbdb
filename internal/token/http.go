package token

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// HTTPAuthority verifies tokens against a network authority endpoint.
// The request is POST {base}/v1/verify with a JSON body {"token": …};
// the response payload uses the same tolerant shape parsePayload
// understands.
type HTTPAuthority struct {
	BaseURL string
	APIKey  string
	// Client defaults to http.DefaultClient; the verifier's context
	// timeout bounds each call either way.
	Client *http.Client
}

type verifyRequest struct {
	Token string `json:"token"`
}

// Resolve performs one verification round-trip. Transport errors are
// ErrUnavailable (fail closed); HTTP-level rejections are answered
// failures.
func (a *HTTPAuthority) Resolve(ctx context.Context, tok string) (Verification, error) {
	body, err := json.Marshal(verifyRequest{Token: tok})
	if err != nil {
		return Verification{}, fmt.Errorf("token: marshal request: %w", err)
	}

	url := strings.TrimRight(a.BaseURL, "/") + "/v1/verify"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return Verification{}, fmt.Errorf("token: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if a.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+a.APIKey)
	}

	client := a.Client
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Do(req)
	if err != nil {
		return Verification{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return Verification{}, fmt.Errorf("%w: read response: %v", ErrUnavailable, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Verification{
			Token:       tok,
			Valid:       false,
			TokenRef:    tok,
			ReasonCodes: []string{ReasonFailed},
			Metadata: map[string]string{
				"status": "failed",
				"code":   fmt.Sprint(resp.StatusCode),
			},
		}, nil
	}

	var payload map[string]any
	if err := json.Unmarshal(raw, &payload); err != nil {
		payload = map[string]any{"status": "unknown", "message": strings.TrimSpace(string(raw))}
	}
	return parsePayload(payload, tok), nil
}
