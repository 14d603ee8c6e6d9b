package domain

import "context"

// Gateway is the boundary to a model backend. One gateway is constructed
// per agent, bound to that agent's (model, personality) pair, and is not
// shared across agents.
type Gateway interface {
	// SendPrompt sends a prompt and returns the raw response. Protocol
	// failures (backend unreachable, malformed or non-success response,
	// timeout) are returned as *CommunicationError.
	SendPrompt(ctx context.Context, p Prompt) (*PromptResponse, error)
	// Name returns the backend identifier (e.g. "ollama").
	Name() string
}
