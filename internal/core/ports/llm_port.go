package ports

import (
	"context"

	"github.com/agricagent/agricagent/internal/core/domain"
)

// LLMPort defines the interface for the hosted completion capability.
//
// Implementations never return an error: every failure (missing credential,
// network error, provider error, malformed response) is translated into a
// degraded Reply so the pipeline always produces some answer.
type LLMPort interface {
	// Complete generates a text-only reply.
	Complete(ctx context.Context, system, prompt string) domain.Reply

	// CompleteWithImage generates a reply grounded on an image supplied as
	// a base64 data URL.
	CompleteWithImage(ctx context.Context, system, prompt, imageDataURL string) domain.Reply
}
