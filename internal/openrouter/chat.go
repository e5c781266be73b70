package openrouter

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"

	"github.com/halcyonlabs/trumpbot/internal/config"
)

// Completion failure classes. All are handled inside this package and turned
// into fallbacks or degraded text; none reach the gateway as errors.
var (
	ErrRateLimited   = errors.New("model rate limited")
	ErrRefusal       = errors.New("model refused the request")
	ErrReasoningLeak = errors.New("model leaked internal reasoning")
	ErrEmptyContent  = errors.New("model returned empty content")
)

const minUsableContent = 16

// CompletionRequest is one chat completion call.
type CompletionRequest struct {
	Model       string
	System      string
	User        string
	Temperature float64
	TopP        float64
	MaxTokens   int64
}

// ChatClient sends a completion request and returns the raw text.
type ChatClient interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}

type openAIChat struct {
	client openai.Client
}

// NewChatClient points the OpenAI SDK at the OpenRouter endpoint, which is
// OpenAI-compatible for chat completions.
func NewChatClient(cfg config.OpenRouterConfig) ChatClient {
	client := openai.NewClient(
		option.WithAPIKey(cfg.APIKey),
		option.WithBaseURL(baseURL),
		option.WithRequestTimeout(cfg.RequestTimeout),
		option.WithHeader("HTTP-Referer", referer),
		option.WithHeader("X-Title", appTitle),
	)
	return &openAIChat{client: client}
}

func (c *openAIChat) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	params := openai.ChatCompletionNewParams{
		Model: shared.ChatModel(req.Model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(req.System),
			openai.UserMessage(req.User),
		},
		Temperature: openai.Float(req.Temperature),
		TopP:        openai.Float(req.TopP),
		MaxTokens:   openai.Int(req.MaxTokens),
	}

	resp, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		var apiErr *openai.Error
		if errors.As(err, &apiErr) && apiErr.StatusCode == 429 {
			return "", fmt.Errorf("%w: %v", ErrRateLimited, err)
		}
		return "", fmt.Errorf("completion for %s: %w", req.Model, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("completion for %s: %w", req.Model, ErrEmptyContent)
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// invokeModel runs one completion and screens the output: too-short,
// refusing, or reasoning-leaking responses come back as typed errors.
func invokeModel(ctx context.Context, chat ChatClient, req CompletionRequest) (string, error) {
	content, err := chat.Complete(ctx, req)
	if err != nil {
		return "", err
	}
	if len(content) < minUsableContent {
		return "", ErrEmptyContent
	}

	sanitized := Sanitize(content)
	if isRefusal(sanitized) {
		return "", ErrRefusal
	}
	if hasReasoningLeak(sanitized) {
		return "", ErrReasoningLeak
	}
	return sanitized, nil
}
