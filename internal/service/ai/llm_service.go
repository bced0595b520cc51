package ai

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog"

	"github.com/kevingma/slack-clone-v6/internal/metrics"
	"github.com/kevingma/slack-clone-v6/internal/model/persona"
)

// ErrGeneration marks a failed call to the text generation capability.
var ErrGeneration = errors.New("ai: generation failed")

const (
	// FallbackReply is posted when a reply could not be generated.
	FallbackReply = "Sorry, I had trouble generating a response."
	// emptyReply stands in for a generation that returned only whitespace.
	emptyReply = "..."

	kindPersona = "persona"
	kindReply   = "reply"
)

// Config tunes generation calls.
type Config struct {
	Timeout          time.Duration
	PersonaMaxTokens int
	ReplyMaxTokens   int
	Stream           bool
}

func (c Config) withDefaults() Config {
	if c.Timeout <= 0 {
		c.Timeout = 30 * time.Second
	}
	if c.PersonaMaxTokens <= 0 {
		c.PersonaMaxTokens = 100
	}
	if c.ReplyMaxTokens <= 0 {
		c.ReplyMaxTokens = 150
	}
	return c
}

// ReplyRequest carries everything the reply prompt embeds.
type ReplyRequest struct {
	Persona           string
	Transcript        string
	TargetDisplayName string
	TriggeringContent string
}

// Synthesizer produces persona descriptors and in-character replies.
// Implementations never fail: they fall back to fixed text instead.
type Synthesizer interface {
	SynthesizePersona(ctx context.Context, history []string) string
	SynthesizeReply(ctx context.Context, req ReplyRequest) string
}

// Service runs persona and reply generation through eino chains.
type Service struct {
	cfg          Config
	personaChain compose.Runnable[map[string]any, *schema.Message]
	replyChain   compose.Runnable[map[string]any, *schema.Message]
	logger       zerolog.Logger
}

// NewService compiles the generation chains. A nil chatModel yields a
// service that always returns fallback text.
func NewService(ctx context.Context, chatModel model.ChatModel, cfg Config, logger zerolog.Logger) (*Service, error) {
	svc := &Service{
		cfg:    cfg.withDefaults(),
		logger: logger.With().Str("component", "ai").Logger(),
	}
	if chatModel == nil {
		return svc, nil
	}

	personaChain, err := compileChain(ctx, chatModel, personaSystemPrompt, personaUserPrompt)
	if err != nil {
		return nil, fmt.Errorf("failed to compile persona chain: %w", err)
	}
	replyChain, err := compileChain(ctx, chatModel, replySystemPrompt, replyUserPrompt)
	if err != nil {
		return nil, fmt.Errorf("failed to compile reply chain: %w", err)
	}

	svc.personaChain = personaChain
	svc.replyChain = replyChain
	return svc, nil
}

func compileChain(ctx context.Context, chatModel model.ChatModel, system, user string) (compose.Runnable[map[string]any, *schema.Message], error) {
	promptTemplate := prompt.FromMessages(
		schema.FString,
		schema.SystemMessage(system),
		schema.UserMessage(user),
	)

	chain := compose.NewChain[map[string]any, *schema.Message]()
	chain.AppendChatTemplate(promptTemplate)
	chain.AppendChatModel(chatModel)

	return chain.Compile(ctx)
}

// Enabled reports whether a chat model backs the service.
func (s *Service) Enabled() bool {
	return s != nil && s.personaChain != nil && s.replyChain != nil
}

// StreamingEnabled 指示生成时是否走流式输出。
func (s *Service) StreamingEnabled() bool {
	return s.cfg.Stream
}

// SynthesizePersona summarises a user's message history into a short style
// descriptor. Any failure yields persona.DefaultDescriptor.
func (s *Service) SynthesizePersona(ctx context.Context, history []string) string {
	if !s.Enabled() || len(history) == 0 {
		return persona.DefaultDescriptor
	}

	metrics.PersonaGenerations.Inc()
	text, err := s.generate(ctx, kindPersona, s.personaChain, map[string]any{
		"history": strings.Join(history, "\n"),
	}, s.cfg.PersonaMaxTokens)
	if err != nil {
		metrics.GenerationFailures.WithLabelValues(kindPersona).Inc()
		s.logger.Warn().Err(err).Int("history_len", len(history)).Msg("persona generation failed, using default")
		return persona.DefaultDescriptor
	}
	if text == "" {
		return persona.DefaultDescriptor
	}
	return text
}

// SynthesizeReply generates a reply in the voice described by req.Persona.
// Any failure yields FallbackReply.
func (s *Service) SynthesizeReply(ctx context.Context, req ReplyRequest) string {
	// No model configured: nothing was attempted, so nothing failed.
	if !s.Enabled() {
		return FallbackReply
	}

	text, err := s.generate(ctx, kindReply, s.replyChain, map[string]any{
		"persona":    req.Persona,
		"transcript": req.Transcript,
		"target":     req.TargetDisplayName,
		"content":    req.TriggeringContent,
	}, s.cfg.ReplyMaxTokens)
	if err != nil {
		metrics.GenerationFailures.WithLabelValues(kindReply).Inc()
		s.logger.Warn().Err(err).Str("target", req.TargetDisplayName).Msg("reply generation failed, using fallback")
		return FallbackReply
	}
	if text == "" {
		return emptyReply
	}

	s.logger.Debug().Str("target", req.TargetDisplayName).Int("length", len(text)).Msg("generated reply")
	return text
}

func (s *Service) generate(ctx context.Context, kind string, chain compose.Runnable[map[string]any, *schema.Message], input map[string]any, maxTokens int) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	start := time.Now()
	defer func() {
		metrics.GenerationLatency.WithLabelValues(kind).Observe(time.Since(start).Seconds())
	}()

	opts := []compose.Option{compose.WithChatModelOption(model.WithMaxTokens(maxTokens))}

	var (
		msg *schema.Message
		err error
	)
	if s.cfg.Stream {
		msg, err = streamMessage(ctx, chain, input, opts...)
	} else {
		msg, err = chain.Invoke(ctx, input, opts...)
	}
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrGeneration, kind, err)
	}
	if msg == nil {
		return "", nil
	}
	return strings.TrimSpace(msg.Content), nil
}

// streamMessage runs the chain in streaming mode and merges the chunks.
func streamMessage(ctx context.Context, chain compose.Runnable[map[string]any, *schema.Message], input map[string]any, opts ...compose.Option) (*schema.Message, error) {
	stream, err := chain.Stream(ctx, input, opts...)
	if err != nil {
		return nil, err
	}
	defer stream.Close()

	chunks := make([]*schema.Message, 0, 8)
	for {
		chunk, recvErr := stream.Recv()
		if errors.Is(recvErr, io.EOF) {
			break
		}
		if recvErr != nil {
			return nil, recvErr
		}
		if chunk == nil {
			continue
		}
		chunks = append(chunks, chunk)
	}
	if len(chunks) == 0 {
		return nil, nil
	}

	return schema.ConcatMessages(chunks)
}
