// Package agents wraps the external model collaborators: planner,
// retriever-ranker, summarizer, judge, and vision. Each is a black box
// that accepts a structured prompt and returns JSON, which is strictly
// decoded into its schema. Transport failures surface as UpstreamError;
// undecodable output surfaces as schema.ParseError.
package agents

import "context"

// Transport is a completion-capable model endpoint.
type Transport interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

// UpstreamError reports a failed or timed-out collaborator call.
type UpstreamError struct {
	Agent string
	Err   error
}

func (e *UpstreamError) Error() string {
	return "agent " + e.Agent + ": " + e.Err.Error()
}

func (e *UpstreamError) Unwrap() error { return e.Err }
