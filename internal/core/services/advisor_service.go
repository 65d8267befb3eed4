package services

import (
	"context"
	"errors"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/agricagent/agricagent/config"
	"github.com/agricagent/agricagent/internal/core/domain"
	"github.com/agricagent/agricagent/internal/core/ports"
	"github.com/agricagent/agricagent/internal/logger"
	"github.com/agricagent/agricagent/internal/media"
)

// Fixed replies for the degraded paths of the pipeline.
const (
	emptyInboundReply = "Please send a message or a photo of your crop, soil or animal so I can help."
	noImageReply      = "I couldn't read the image you sent. Please try sending it again, or describe the problem in words."
)

// AdvisorService runs the inbound-message pipeline: normalize media,
// compress, build the prompt, call inference and record the interaction.
// Every path produces a reply; only caller input errors on the API channel
// propagate as errors.
type AdvisorService struct {
	llm        ports.LLMPort
	repository ports.InteractionRepositoryPort
	normalizer *media.Normalizer
	compressor *media.Compressor
	mediaCfg   config.MediaConfig
	log        logger.Logger
}

// NewAdvisorService creates an AdvisorService.
func NewAdvisorService(
	llm ports.LLMPort,
	repository ports.InteractionRepositoryPort,
	normalizer *media.Normalizer,
	compressor *media.Compressor,
	mediaCfg config.MediaConfig,
	log logger.Logger,
) *AdvisorService {
	return &AdvisorService{
		llm:        llm,
		repository: repository,
		normalizer: normalizer,
		compressor: compressor,
		mediaCfg:   mediaCfg,
		log:        log,
	}
}

// Chat runs the text-only pipeline for the JSON API channel.
func (s *AdvisorService) Chat(ctx context.Context, sender, message string) domain.Reply {
	traceID := uuid.NewString()
	log := s.log.With("trace_id", traceID)
	log.Info("processing chat message", "sender", sender)

	system, prompt := BuildChatPrompt(message)
	reply := s.llm.Complete(ctx, system, prompt)
	if reply.Degraded {
		log.Warn("chat reply degraded", "reason", reply.Reason)
	}

	s.record(ctx, log, &domain.Interaction{
		TraceID:  traceID,
		Sender:   sender,
		Body:     message,
		Category: domain.Categorize(message),
		Analysis: reply.Text,
	})
	return reply
}

// Identify runs the image pipeline for the JSON API channel. Media errors
// (unsupported input, oversized payload) are returned to the caller so the
// handler can map them to 400/413.
func (s *AdvisorService) Identify(ctx context.Context, sender string, ref *domain.MediaRef, contextHint string) (domain.Reply, error) {
	traceID := uuid.NewString()
	log := s.log.With("trace_id", traceID)
	log.Info("processing identify request", "sender", sender, "filename", ref.Filename)

	normalized, err := s.normalizer.Normalize(ctx, ref)
	if err != nil {
		log.Warn("media normalization failed", "error", err)
		return domain.Reply{}, err
	}
	normalized = s.compressor.Compress(normalized)

	system, prompt := BuildIdentifyPrompt("", contextHint)
	reply := s.llm.CompleteWithImage(ctx, system, prompt, normalized.AsDataURL())
	if reply.Degraded {
		log.Warn("identify reply degraded", "reason", reply.Reason)
	}

	s.record(ctx, log, &domain.Interaction{
		TraceID:   traceID,
		Sender:    sender,
		Body:      contextHint,
		MediaMime: normalized.MimeType,
		MediaPath: s.saveDebugCopy(log, traceID, normalized),
		Category:  domain.Categorize(ref.Filename + " " + contextHint),
		Analysis:  reply.Text,
	})
	return reply, nil
}

// HandleInbound runs the carrier-webhook pipeline. It never returns an
// error: media problems degrade to a text-only analysis and the webhook
// always gets a reply to render.
func (s *AdvisorService) HandleInbound(ctx context.Context, msg *domain.InboundMessage) domain.Reply {
	traceID := uuid.NewString()
	log := s.log.With("trace_id", traceID)
	log.Info("processing inbound carrier message", "sender", msg.Sender, "has_media", msg.Media != nil)

	interaction := &domain.Interaction{
		TraceID:  traceID,
		Sender:   msg.Sender,
		Body:     msg.Body,
		Category: domain.Categorize(msg.Body),
	}

	if msg.Body == "" && msg.Media == nil {
		reply := domain.DegradedReply(emptyInboundReply, "empty inbound message")
		interaction.Analysis = reply.Text
		s.record(ctx, log, interaction)
		return reply
	}

	var normalized *domain.NormalizedMedia
	if msg.Media != nil {
		var err error
		normalized, err = s.normalizer.Normalize(ctx, msg.Media)
		if err != nil {
			// Carrier media failures never abort the request; continue as
			// if no media were attached.
			log.Warn("inbound media unusable, continuing without it", "error", err)
			if msg.Body == "" {
				reply := domain.DegradedReply(noImageReply, err.Error())
				interaction.Analysis = reply.Text
				s.record(ctx, log, interaction)
				return reply
			}
			normalized = nil
		}
	}

	var reply domain.Reply
	if normalized != nil {
		normalized = s.compressor.Compress(normalized)
		system, prompt := BuildIdentifyPrompt(msg.Body, msg.ContextHint)
		reply = s.llm.CompleteWithImage(ctx, system, prompt, normalized.AsDataURL())
		interaction.MediaMime = normalized.MimeType
		interaction.MediaPath = s.saveDebugCopy(log, traceID, normalized)
	} else {
		system, prompt := BuildChatPrompt(msg.Body)
		reply = s.llm.Complete(ctx, system, prompt)
	}

	if reply.Degraded {
		log.Warn("inbound reply degraded", "reason", reply.Reason)
	}

	interaction.Analysis = reply.Text
	s.record(ctx, log, interaction)
	return reply
}

// ListRecent returns the most recent interactions, newest first.
func (s *AdvisorService) ListRecent(ctx context.Context, limit int) ([]domain.Interaction, error) {
	return s.repository.ListRecent(ctx, limit)
}

// record persists the interaction. Storage failures are logged and never
// alter the already-computed reply.
func (s *AdvisorService) record(ctx context.Context, log logger.Logger, interaction *domain.Interaction) {
	if err := s.repository.Save(ctx, interaction); err != nil {
		log.Error("failed to record interaction", "error", err)
		return
	}
	log.Debug("interaction recorded", "id", interaction.ID, "category", interaction.Category)
}

// saveDebugCopy writes the compressed media to the configured debug
// directory and returns the path, or "" when the directory is unset or the
// write fails.
func (s *AdvisorService) saveDebugCopy(log logger.Logger, traceID string, m *domain.NormalizedMedia) string {
	if s.mediaCfg.DebugDir == "" {
		return ""
	}
	if err := os.MkdirAll(s.mediaCfg.DebugDir, 0755); err != nil {
		log.Warn("failed to create media debug dir", "error", err)
		return ""
	}
	path := filepath.Join(s.mediaCfg.DebugDir, traceID+m.Ext)
	if err := os.WriteFile(path, m.Data, 0644); err != nil {
		log.Warn("failed to write media debug copy", "error", err)
		return ""
	}
	return path
}

// IsCallerInputError reports whether err should surface as a 4xx response
// on the API channel.
func IsCallerInputError(err error) bool {
	return errors.Is(err, domain.ErrUnsupportedMedia) || errors.Is(err, domain.ErrImageTooLarge)
}
