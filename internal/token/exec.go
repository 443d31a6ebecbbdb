package token

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// DefaultAuthorityCommand is the registry CLI consulted when no other
// authority is configured.
var DefaultAuthorityCommand = []string{"blux-reg", "verify", "--token"}

// ExecAuthority shells out to the registry CLI for each verification.
// The token is passed as the final argument; the response is JSON on
// stdout.
type ExecAuthority struct {
	// Command is the argv prefix; the token is appended. Empty means
	// DefaultAuthorityCommand.
	Command []string
}

// Resolve runs the authority command under ctx. A missing binary or a
// killed (timed out) process reports ErrUnavailable; a nonzero exit is
// an answered rejection, mapped to token.verify_failed.
func (a *ExecAuthority) Resolve(ctx context.Context, tok string) (Verification, error) {
	argv := a.Command
	if len(argv) == 0 {
		argv = DefaultAuthorityCommand
	}
	args := append(append([]string{}, argv[1:]...), tok)

	cmd := exec.CommandContext(ctx, argv[0], args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if ctx.Err() != nil {
		return Verification{}, fmt.Errorf("%w: %v", ErrUnavailable, ctx.Err())
	}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return Verification{
				Token:       tok,
				Valid:       false,
				TokenRef:    tok,
				ReasonCodes: []string{ReasonFailed},
				Metadata: map[string]string{
					"status": "failed",
					"code":   fmt.Sprint(exitErr.ExitCode()),
					"stderr": strings.TrimSpace(stderr.String()),
				},
			}, nil
		}
		// Binary not found or not startable.
		return Verification{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	raw := strings.TrimSpace(stdout.String())
	if raw == "" {
		raw = "{}"
	}
	var payload map[string]any
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		payload = map[string]any{"status": "unknown", "message": raw}
	}
	return parsePayload(payload, tok), nil
}
