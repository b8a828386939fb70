package protocol

import "context"

// ScriptSandbox runs caller-supplied logic against an environment, isolated
// and time-bounded.
type ScriptSandbox interface {
	Run(ctx context.Context, source string, env map[string]any) (any, error)
}

// InferenceProvider generates text from a model and a rendered prompt.
type InferenceProvider interface {
	Generate(ctx context.Context, model, prompt string) (string, error)
}

// LinkStatus is the outcome of an HTTP reachability probe.
type LinkStatus struct {
	Reachable  bool `json:"reachable"`
	StatusCode int  `json:"status_code,omitempty"`
}

// LinkChecker probes a URL for reachability.
type LinkChecker interface {
	Check(ctx context.Context, url string) (LinkStatus, error)
}
