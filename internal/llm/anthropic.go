package llm

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/cenkalti/backoff/v5"
)

// AnthropicConfig holds model settings for the Anthropic client.
type AnthropicConfig struct {
	// APIKey falls back to ANTHROPIC_API_KEY when empty.
	APIKey    string `koanf:"api_key"`
	Model     string `koanf:"model"`
	MaxTokens int64  `koanf:"max_tokens"`
}

// ApplyDefaults fills zero values.
func (c *AnthropicConfig) ApplyDefaults() {
	if c.Model == "" {
		c.Model = string(anthropic.ModelClaudeSonnet4_5_20250929)
	}
	if c.MaxTokens <= 0 {
		c.MaxTokens = 2048
	}
}

// AnthropicClient implements Client on the Anthropic Messages API.
type AnthropicClient struct {
	client    anthropic.Client
	model     anthropic.Model
	maxTokens int64
	logger    *slog.Logger
}

// NewAnthropic builds a client. A nil logger discards output.
func NewAnthropic(cfg AnthropicConfig, logger *slog.Logger) *AnthropicClient {
	cfg.ApplyDefaults()
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	var opts []option.RequestOption
	if cfg.APIKey != "" {
		opts = append(opts, option.WithAPIKey(cfg.APIKey))
	}
	return &AnthropicClient{
		client:    anthropic.NewClient(opts...),
		model:     anthropic.Model(cfg.Model),
		maxTokens: cfg.MaxTokens,
		logger:    logger,
	}
}

// GenerateSQL asks the model to write or revise one query. Transport
// failures are retried with exponential backoff; a reply that violates
// the JSON contract is returned as an error for the caller to classify.
func (a *AnthropicClient) GenerateSQL(ctx context.Context, req GenerateRequest) (Generation, error) {
	prompt := buildGeneratePrompt(req)
	if req.Refinement() {
		prompt = buildRefinePrompt(req)
	}
	text, err := a.complete(ctx, prompt)
	if err != nil {
		return Generation{}, fmt.Errorf("generate sql: %w", err)
	}
	gen, err := decodeGeneration(text)
	if err != nil {
		return Generation{}, fmt.Errorf("generate sql: %w", err)
	}
	a.logger.Debug("sql generated", "refinement", req.Refinement(), "chars", len(gen.SQL))
	return gen, nil
}

// Summarize asks for the final natural-language answer.
func (a *AnthropicClient) Summarize(ctx context.Context, req SummarizeRequest) (string, error) {
	text, err := a.complete(ctx, buildSummarizePrompt(req))
	if err != nil {
		return "", fmt.Errorf("summarize: %w", err)
	}
	return text, nil
}

func (a *AnthropicClient) complete(ctx context.Context, prompt string) (string, error) {
	attempt := 0
	resp, err := backoff.Retry(ctx, func() (*anthropic.Message, error) {
		if attempt > 0 {
			a.logger.Warn("llm call failed, retrying", "attempt", attempt)
		}
		attempt++
		return a.client.Messages.New(ctx, anthropic.MessageNewParams{
			Model:     a.model,
			MaxTokens: a.maxTokens,
			System: []anthropic.TextBlockParam{
				{Text: systemPrompt, CacheControl: anthropic.NewCacheControlEphemeralParam()},
			},
			Messages: []anthropic.MessageParam{
				anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
			},
		})
	},
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxTries(3),
		backoff.WithMaxElapsedTime(2*time.Minute),
	)
	if err != nil {
		return "", err
	}

	var text string
	for _, blk := range resp.Content {
		if t := blk.AsText(); t.Text != "" {
			text += t.Text
		}
	}
	if text == "" {
		return "", fmt.Errorf("empty model reply")
	}
	return text, nil
}
