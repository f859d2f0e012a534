// Package openai generates narrator lines through an OpenAI-compatible chat
// completions endpoint.
package openai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/bnema/ambient-narrator/internal/ports"
	openaisdk "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

const (
	DefaultModel   = "gpt-4o-mini"
	minTokenBudget = 16
)

type Config struct {
	APIKey  string
	BaseURL string
	Model   string
	// Timeout bounds a single request, retries included.
	Timeout time.Duration
}

type Generator struct {
	client openaisdk.Client
	model  string
	logger *slog.Logger
}

var _ ports.Generator = (*Generator)(nil)

func New(cfg Config, logger *slog.Logger) (*Generator, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("openai api key is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = DefaultModel
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
	}
	if baseURL := strings.TrimSpace(cfg.BaseURL); baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	if cfg.Timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(cfg.Timeout))
	}

	return &Generator{client: openaisdk.NewClient(opts...), model: model, logger: logger}, nil
}

// Generate asks for one completion. maxOutputLength is used as the token
// budget of the reply.
func (g *Generator) Generate(ctx context.Context, systemText, userText string, maxOutputLength int) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	budget := maxOutputLength
	if budget < minTokenBudget {
		budget = minTokenBudget
	}

	resp, err := g.client.Chat.Completions.New(ctx, openaisdk.ChatCompletionNewParams{
		Model: openaisdk.ChatModel(g.model),
		Messages: []openaisdk.ChatCompletionMessageParamUnion{
			openaisdk.SystemMessage(systemText),
			openaisdk.UserMessage(userText),
		},
		MaxTokens: openaisdk.Int(int64(budget)),
	})
	if err != nil {
		return "", fmt.Errorf("create chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("create chat completion: empty choices")
	}

	g.logger.Debug("chat completion",
		"model", resp.Model,
		"prompt_tokens", resp.Usage.PromptTokens,
		"completion_tokens", resp.Usage.CompletionTokens,
		"finish_reason", resp.Choices[0].FinishReason,
	)

	return resp.Choices[0].Message.Content, nil
}
