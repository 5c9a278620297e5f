package core

import "context"

// LLMProvider produces a single text completion.
type LLMProvider interface {
	Generate(ctx context.Context, systemPrompt string, userPrompt string) (string, error)
}
