package openrouter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	"github.com/halcyonlabs/trumpbot/internal/config"
	"github.com/halcyonlabs/trumpbot/internal/retry"
)

// User-facing degraded responses. Generate never returns an error; every
// failure class maps to one of these.
const (
	PausedResponse      = "🚫 当前没有可用的免费模型，请稍后再试。"
	rateLimitedResponse = "🚫 太多人在用 TrumpBot！请等等再试～（模型限流）"
	refusalResponse     = "⚠️ 当前模型拒绝生成内容，请稍后再试。"
	abnormalResponse    = "⚠️ 模型输出异常，请稍后再试。"
	emptyResponse       = "⚠️ 模型没有返回有效内容，或输出太短，请稍后再试。"
	failedResponse      = "⚠️ AI 请求失败，请稍后再试。"
)

// Generator produces styled responses with the currently selected model.
type Generator struct {
	selector *Selector
	chat     ChatClient
	cfg      config.OpenRouterConfig
	limiter  *rate.Limiter
	log      *slog.Logger
	sleep    retry.Sleeper
}

func NewGenerator(selector *Selector, chat ChatClient, cfg config.OpenRouterConfig, log *slog.Logger) *Generator {
	return &Generator{
		selector: selector,
		chat:     chat,
		cfg:      cfg,
		limiter:  rate.NewLimiter(rate.Every(time.Second), 3),
		log:      log,
		sleep:    retry.SleepContext,
	}
}

// GenerateTopic writes a post about a topic, defaulting when empty.
func (g *Generator) GenerateTopic(ctx context.Context, topic string) string {
	if topic == "" {
		topic = defaultTopic
	}
	return g.Generate(ctx, fmt.Sprintf("Write a Truth Social post about %s.", topic))
}

// Generate runs the prompt against the active model and returns the text.
// With no active model it returns the paused sentinel without touching the
// provider. Provider failures come back as degraded text, never as errors.
func (g *Generator) Generate(ctx context.Context, prompt string) string {
	model, ok := g.selector.ActiveModel()
	if !ok {
		g.log.Warn("generation requested while paused, no free model active")
		return PausedResponse
	}

	if err := g.limiter.Wait(ctx); err != nil {
		return failedResponse
	}

	req := CompletionRequest{
		Model:       model.ID,
		System:      systemPrompt,
		User:        prompt,
		Temperature: 0.9,
		TopP:        0.9,
		MaxTokens:   256,
	}

	content, err := invokeModel(ctx, g.chat, req)
	if err == nil {
		return content
	}

	switch {
	case errors.Is(err, ErrRateLimited):
		g.log.Warn("model rate limited, trying fallbacks", "model", model.ID)
		if text, ok := g.fallback(ctx, req, model.ID, "fallback after rate limit"); ok {
			return text
		}
		return rateLimitedResponse
	case errors.Is(err, ErrRefusal):
		g.log.Warn("model refused, trying fallbacks", "model", model.ID)
		if text, ok := g.fallback(ctx, req, model.ID, "fallback after refusal"); ok {
			return text
		}
		return refusalResponse
	case errors.Is(err, ErrReasoningLeak):
		g.log.Warn("model leaked reasoning, trying fallbacks", "model", model.ID)
		if text, ok := g.fallback(ctx, req, model.ID, "fallback after reasoning leak"); ok {
			return text
		}
		return abnormalResponse
	case errors.Is(err, ErrEmptyContent):
		g.log.Warn("model returned unusable content", "model", model.ID)
		return emptyResponse
	default:
		g.log.Error("completion failed", "model", model.ID, "err", err)
		return failedResponse
	}
}

// fallback walks the remaining free candidates with the same request and
// switches the active model to the first one that works. An empty candidate
// cache (startup refresh never succeeded) triggers a catalog reload first.
func (g *Generator) fallback(ctx context.Context, req CompletionRequest, excludeID, reason string) (string, bool) {
	candidates := g.selector.Candidates()
	if len(candidates) == 0 {
		g.log.Info("fallback cache empty, refreshing free model list")
		if err := g.selector.Refresh(ctx); err != nil {
			return "", false
		}
		candidates = g.selector.Candidates()
	}

	attempts := 0
	for _, candidate := range candidates {
		if candidate.ID == excludeID {
			continue
		}
		attempts++
		if attempts > g.cfg.SmokeTestLimit {
			break
		}

		g.log.Info("attempting fallback model", "model", candidate.ID)
		req.Model = candidate.ID
		content, err := invokeModel(ctx, g.chat, req)
		if err == nil {
			g.selector.setActive(candidate, reason)
			return content, true
		}
		g.log.Warn("fallback model failed", "model", candidate.ID, "err", err)

		if g.cfg.SmokeTestDelay > 0 {
			if err := g.sleep(ctx, g.cfg.SmokeTestDelay); err != nil {
				return "", false
			}
		}
	}
	return "", false
}
