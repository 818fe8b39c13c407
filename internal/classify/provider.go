package classify

import "context"

// LLMProvider sends a classification prompt to a model backend and returns
// the raw text response. Used only by the Chain; not exported to the rest of
// the system.
type LLMProvider interface {
	// Name identifies the backend for logging ("openai", "ollama").
	Name() string
	Complete(ctx context.Context, prompt string) (string, error)
}
