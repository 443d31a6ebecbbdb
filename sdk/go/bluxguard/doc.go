// Package bluxguard provides in-process guard evaluation for Go agent
// frameworks. It wraps tool functions, evaluates request envelopes into
// signed receipts, and enforces decisions (allow, warn, require-confirm,
// block) at boundaries agents cannot bypass.
//
// Usage:
//
//	g, err := bluxguard.New(bluxguard.WithAuditLog("/var/log/blux-guard/audit.jsonl"))
//	wrapped := g.Wrap(myTool)
//	result, err := wrapped(ctx, bluxguard.Envelope{
//	    Command:    "git push",
//	    WorkingDir: "/srv/repo",
//	})
//
// The SDK links directly against internal packages for zero-subprocess
// overhead. External users import github.com/bluxlabs/bluxguard/sdk/go/bluxguard.
package bluxguard
