package llm

import (
	"context"
	"fmt"
	"time"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
	"github.com/tmc/langchaingo/schema"

	"github.com/agricagent/agricagent/config"
	"github.com/agricagent/agricagent/internal/core/domain"
	"github.com/agricagent/agricagent/internal/logger"
)

// disabledNotice is returned for every call when no API credential is
// configured. The process still serves requests; only model-backed replies
// are unavailable.
const disabledNotice = "Hi! I got your message. (AI is disabled — set OPENAI_API_KEY to enable advice.)"

// fallbackNotice prefixes the degraded reply produced when a provider call
// fails; the cause is appended so support can read it back from the reply.
const fallbackNotice = "Sorry, I couldn't process your request right now."

// OpenAIAdapter implements ports.LLMPort against the OpenAI chat API via
// langchaingo. It is stateless per call: no caching, no dedup, one attempt
// per invocation.
type OpenAIAdapter struct {
	client *openai.LLM
	cfg    *config.LLMConfig
	log    logger.Logger
}

// NewOpenAIAdapter creates the adapter. A missing API key is not an error:
// the adapter comes up in disabled mode and answers every call with a fixed
// notice instead of touching the network.
func NewOpenAIAdapter(cfg *config.LLMConfig, log logger.Logger) (*OpenAIAdapter, error) {
	if cfg.OpenAI.APIKey == "" {
		log.Warn("OPENAI_API_KEY not set, model-backed replies disabled")
		return &OpenAIAdapter{cfg: cfg, log: log}, nil
	}

	client, err := openai.New(
		openai.WithToken(cfg.OpenAI.APIKey),
		openai.WithModel(cfg.OpenAI.Model),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize openai client: %w", err)
	}

	log.Info("initialized openai adapter", "model", cfg.OpenAI.Model, "vision_model", cfg.OpenAI.VisionModel)
	return &OpenAIAdapter{
		client: client,
		cfg:    cfg,
		log:    log,
	}, nil
}

// Complete generates a text-only reply.
func (a *OpenAIAdapter) Complete(ctx context.Context, system, prompt string) domain.Reply {
	if a.client == nil {
		return domain.DegradedReply(disabledNotice, "no API credential configured")
	}

	messages := []llms.MessageContent{
		llms.TextParts(schema.ChatMessageTypeSystem, system),
		llms.TextParts(schema.ChatMessageTypeHuman, prompt),
	}
	return a.generate(ctx, messages, a.cfg.OpenAI.Model)
}

// CompleteWithImage generates a reply grounded on an image passed as a
// base64 data URL.
func (a *OpenAIAdapter) CompleteWithImage(ctx context.Context, system, prompt, imageDataURL string) domain.Reply {
	if a.client == nil {
		return domain.DegradedReply(disabledNotice, "no API credential configured")
	}

	messages := []llms.MessageContent{
		llms.TextParts(schema.ChatMessageTypeSystem, system),
		{
			Role: schema.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{
				llms.TextPart(prompt),
				llms.ImageURLPart(imageDataURL),
			},
		},
	}

	model := a.cfg.OpenAI.VisionModel
	if model == "" {
		model = a.cfg.OpenAI.Model
	}
	return a.generate(ctx, messages, model)
}

// generate makes one bounded provider call and translates any failure into
// a degraded reply.
func (a *OpenAIAdapter) generate(ctx context.Context, messages []llms.MessageContent, model string) domain.Reply {
	timeout := time.Duration(a.cfg.OpenAI.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	timeoutCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	resp, err := a.client.GenerateContent(timeoutCtx, messages,
		llms.WithModel(model),
		llms.WithMaxTokens(a.cfg.OpenAI.MaxTokens),
		llms.WithTemperature(0.2),
	)
	if err != nil {
		a.log.Error("openai call failed", "model", model, "error", err)
		return domain.DegradedReply(fmt.Sprintf("%s (%v)", fallbackNotice, err), err.Error())
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Content == "" {
		a.log.Error("openai returned no content", "model", model)
		return domain.DegradedReply(fallbackNotice, "provider returned an empty response")
	}

	return domain.OkReply(resp.Choices[0].Content)
}
