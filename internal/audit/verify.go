package audit

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"

	"github.com/bluxlabs/bluxguard/internal/canonical"
)

// Chain statuses reported by VerifyChain.
const (
	StatusClean  = "clean"
	StatusEmpty  = "empty"
	StatusBroken = "broken"
)

// VerifyResult holds the outcome of a chain verification. Digest is the
// recomputed terminal digest; callers compare it against a previously
// recorded anchor to detect wholesale replacement.
type VerifyResult struct {
	Status    string `json:"status"`
	Digest    string `json:"digest,omitempty"`
	Lines     int    `json:"line_count"`
	Error     string `json:"error,omitempty"`
	ErrorLine int    `json:"error_line,omitempty"`
}

// Valid reports whether the chain recomputation succeeded.
func (r VerifyResult) Valid() bool {
	return r.Status == StatusClean
}

// VerifyChain reads a JSONL audit log and recomputes the digest chain
// from scratch. Any altered, removed, or reordered line breaks the
// chain at the first entry whose prev_digest no longer matches.
func VerifyChain(path string) VerifyResult {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return VerifyResult{Status: StatusEmpty}
		}
		return VerifyResult{Status: StatusBroken, Error: fmt.Sprintf("open: %v", err)}
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	lineNum := 0
	digest := GenesisDigest

	for scanner.Scan() {
		lineNum++
		raw := scanner.Bytes()

		// Copy: the scanner reuses its buffer.
		line := make([]byte, len(raw))
		copy(line, raw)

		var entry Entry
		if err := json.Unmarshal(line, &entry); err != nil {
			return VerifyResult{
				Status:    StatusBroken,
				Lines:     lineNum,
				Error:     fmt.Sprintf("parse error: %v", err),
				ErrorLine: lineNum,
			}
		}

		if entry.PrevDigest != digest {
			return VerifyResult{
				Status:    StatusBroken,
				Lines:     lineNum,
				Error:     fmt.Sprintf("digest mismatch: expected %s, got %s", digest, entry.PrevDigest),
				ErrorLine: lineNum,
			}
		}

		digest = canonical.Digest(line)
	}

	if err := scanner.Err(); err != nil {
		return VerifyResult{Status: StatusBroken, Lines: lineNum, Error: fmt.Sprintf("scan: %v", err)}
	}

	if lineNum == 0 {
		return VerifyResult{Status: StatusEmpty}
	}
	return VerifyResult{Status: StatusClean, Digest: digest, Lines: lineNum}
}
