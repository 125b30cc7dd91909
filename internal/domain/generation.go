package domain

import "context"

// Generator is the text-generation contract used by explain/enrich/chat.
// Implementations call an external chat-completion backend; callers must
// tolerate failure and fall back to extractive answers.
type Generator interface {
	Generate(ctx context.Context, system, prompt string) (string, error)
}
