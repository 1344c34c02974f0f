package httpclient

import "context"

// Stage is one link in the middleware chain. A stage may mutate the
// request, delegate inward, and post-process the response on the way back
// out. Only the terminal send stage performs network I/O.
type Stage interface {
	Process(ctx context.Context, req *Request) (*Response, error)
}

// StageFunc adapts a function to the Stage interface.
type StageFunc func(ctx context.Context, req *Request) (*Response, error)

// Process implements Stage.
func (f StageFunc) Process(ctx context.Context, req *Request) (*Response, error) {
	return f(ctx, req)
}

// StageConstructor builds one stage around the next-inner one. The chain is
// assembled from an explicit ordered list of constructors at client build
// time; there is no name-based registry.
type StageConstructor func(next Stage, c *Client) Stage

// DefaultStages returns the standard policy pipeline, outermost first:
// Retry, then Redirect, then Decode, wrapped around the terminal send.
//
// The nesting is a design invariant, not a default to casually reorder:
// Decode sits inside Redirect so every hop's response is decoded
// independently, and both sit inside Retry so a transient failure in any
// hop restarts the whole redirect sequence.
func DefaultStages() []StageConstructor {
	return []StageConstructor{RetryStage, RedirectStage, DecodeStage}
}

// buildChain wraps the terminal send stage with the constructors in order,
// first constructor outermost.
func buildChain(c *Client, ctors []StageConstructor) Stage {
	var stage Stage = newSendStage(c)
	for i := len(ctors) - 1; i >= 0; i-- {
		stage = ctors[i](stage, c)
	}
	return stage
}
