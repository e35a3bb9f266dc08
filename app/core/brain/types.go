package brain

import "context"

// CompletionRequest is the single request shape every provider accepts.
type CompletionRequest struct {
	System    string
	Prompt    string
	MaxTokens int
}

// Provider is one model backend. Responders treat a nil provider as
// "offline" and fall back to deterministic output.
type Provider interface {
	Name() string
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}

const defaultMaxTokens = 2048
