package bluxguard

import "context"

// ToolFunc is the function signature that Wrap guards.
// The caller provides an Envelope describing the intended execution.
type ToolFunc func(ctx context.Context, env Envelope) (any, error)

// Wrap returns a new ToolFunc that evaluates the envelope before
// calling fn. BLOCK and REQUIRE_CONFIRM decisions return a
// *BlockedError without calling fn; the signed receipt rides along so
// callers can surface it for confirmation flows.
func (c *Client) Wrap(fn ToolFunc) ToolFunc {
	return func(ctx context.Context, env Envelope) (any, error) {
		result, err := c.Evaluate(ctx, env, nil)
		if err != nil {
			return nil, err
		}

		if !result.Allowed() {
			return nil, &BlockedError{
				Decision:    result.Decision,
				ReasonCodes: result.ReasonCodes,
				Receipt:     result.Receipt,
			}
		}

		return fn(ctx, env)
	}
}
