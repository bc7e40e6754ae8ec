// Package chat holds the campus assistant conversation: the controller that
// turns a question into a generated answer and the widget that owns the
// current session, its transient flags and the speech adapters.
package chat

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/soyeahso/campusbot/internal/domain"
	"github.com/soyeahso/campusbot/internal/hooks"
	"github.com/soyeahso/campusbot/internal/llm"
	"github.com/soyeahso/campusbot/internal/logging"
	"github.com/soyeahso/campusbot/internal/metrics"
)

// ApologyText replaces the answer whenever generation fails.
const ApologyText = "Sorry, I'm having trouble connecting right now. Please try again later."

// Conversation is the state the controller writes into.
type Conversation interface {
	Append(msg domain.Message)
	ClearDraft()
	SetLoading(on bool)
	SetListening(on bool)
}

// Speaker receives every bot answer. It decides itself whether to speak.
type Speaker interface {
	Speak(text string)
}

// ControllerConfig configures generation requests.
type ControllerConfig struct {
	Model             string
	InstructionPrefix string
	MaxTokens         int
	Temperature       *float64
}

// Controller sends one question at a time to the generation endpoint and
// appends the answer, or an apology, to the conversation.
type Controller struct {
	cfg      ControllerConfig
	registry *llm.Registry
	conv     Conversation
	speaker  Speaker
	hooks    *hooks.Manager
	log      *logging.Logger

	inflight atomic.Int32
}

// NewController creates a controller. speaker and hk may be nil.
func NewController(
	cfg ControllerConfig,
	registry *llm.Registry,
	conv Conversation,
	speaker Speaker,
	hk *hooks.Manager,
	log *logging.Logger,
) *Controller {
	return &Controller{
		cfg:      cfg,
		registry: registry,
		conv:     conv,
		speaker:  speaker,
		hooks:    hk,
		log:      log.Sub("chat"),
	}
}

// Sending reports whether a send is waiting on the generation endpoint.
func (c *Controller) Sending() bool {
	return c.inflight.Load() > 0
}

// Send appends text as a user message, asks for an answer and appends it
// as a bot message. Blank input appends nothing and only clears the
// listening flag. Send never fails: errors become the apology message.
func (c *Controller) Send(ctx context.Context, text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		c.conv.SetListening(false)
		return
	}

	c.inflight.Add(1)
	c.conv.Append(domain.UserMessage(text))
	c.conv.ClearDraft()
	c.conv.SetLoading(true)
	defer func() {
		c.inflight.Add(-1)
		c.conv.SetLoading(false)
		c.conv.SetListening(false)
	}()

	reply := c.answer(ctx, text)
	c.conv.Append(domain.BotMessage(reply))
	if c.speaker != nil {
		c.speaker.Speak(reply)
	}
}

func (c *Controller) answer(ctx context.Context, question string) (reply string) {
	defer func() {
		if r := recover(); r != nil {
			c.log.Error().Interface("panic", r).Msg("generation panicked")
			reply = ApologyText
		}
	}()

	content, err := c.generate(ctx, question)
	if err != nil {
		c.log.Error().Err(err).Msg("generation failed")
		return ApologyText
	}
	return content
}

func (c *Controller) generate(ctx context.Context, question string) (string, error) {
	client, err := c.registry.Resolve(c.cfg.Model)
	if err != nil {
		return "", err
	}

	prompt := BuildPrompt(c.cfg.InstructionPrefix, question)
	c.emit(ctx, hooks.EventBeforeGenerate, map[string]any{
		"provider": client.Name(),
		"model":    c.cfg.Model,
		"question": question,
	})

	start := time.Now()
	resp, err := client.Complete(ctx, llm.CompletionRequest{
		Model:       c.cfg.Model,
		Prompt:      prompt,
		MaxTokens:   c.cfg.MaxTokens,
		Temperature: c.cfg.Temperature,
	})
	elapsed := time.Since(start)

	if err == nil && strings.TrimSpace(resp.Content) == "" {
		err = llm.ErrNoCandidates
	}
	if err != nil {
		metrics.RecordGeneration(client.Name(), "error", elapsed.Seconds(), 0, 0)
		c.emit(ctx, hooks.EventAfterGenerate, map[string]any{
			"provider": client.Name(),
			"ok":       false,
			"error":    err.Error(),
		})
		return "", fmt.Errorf("%s completion: %w", client.Name(), err)
	}

	metrics.RecordGeneration(client.Name(), "ok", elapsed.Seconds(), resp.Usage.InputTokens, resp.Usage.OutputTokens)
	c.log.Info().
		Str("provider", client.Name()).
		Str("model", resp.Model).
		Int("inputTokens", resp.Usage.InputTokens).
		Int("outputTokens", resp.Usage.OutputTokens).
		Dur("duration", elapsed).
		Msg("answer generated")

	c.emit(ctx, hooks.EventAfterGenerate, map[string]any{
		"provider":   client.Name(),
		"ok":         true,
		"durationMs": elapsed.Milliseconds(),
	})
	return resp.Content, nil
}

func (c *Controller) emit(ctx context.Context, event string, data map[string]any) {
	if c.hooks == nil {
		return
	}
	c.hooks.EmitAsync(context.WithoutCancel(ctx), event, data)
}
