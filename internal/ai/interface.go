package ai

import (
	"context"
	"errors"
)

// ErrEmptyResponse is returned when a provider answers without any text.
var ErrEmptyResponse = errors.New("ai: empty response")

// Completer sends a fully rendered prompt to a model and returns its raw text reply.
// Implementations must honour ctx cancellation and deadlines.
// This interface allows swapping providers (Gemini, OpenAI) by configuration.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}
