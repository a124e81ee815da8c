// Package script defines the call model shared by the interception
// layer and the gate: what an embedded script invocation looks like
// from the outside, independent of which execution engine runs it.
package script

import "context"

// Location identifies where in the document corpus a script fragment lives.
type Location struct {
	Note string `json:"note"`
	Line int    `json:"line"`
}

// Call is one invocation of an embedded script fragment.
// Source is the exact text handed to the execution engine; trust
// decisions are made over these bytes and nothing else.
type Call struct {
	Source   string         `json:"source"`
	Language string         `json:"language"`
	Location Location       `json:"location"`
	Params   map[string]any `json:"params,omitempty"`
}

// Result is what an execution engine returns for a call.
// Denied results carry no output; the placeholder shown to the user
// comes from the reporting collaborator, not from the engine.
type Result struct {
	Output string `json:"output"`
	Denied bool   `json:"denied"`
}

// RunFunc is the shape of an integration entry point: a callable that
// executes one script fragment. Entry-point values are swappable; the
// interception layer replaces them with guards and restores them on
// teardown.
type RunFunc func(ctx context.Context, call Call) (Result, error)
