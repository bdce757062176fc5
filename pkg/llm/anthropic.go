package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	anthropic "github.com/liushuangls/go-anthropic/v2"
	"go.uber.org/zap"

	"github.com/askdb-io/askdb-engine/pkg/apperrors"
	"github.com/askdb-io/askdb-engine/pkg/models"
)

// AnthropicClient talks to the Anthropic Messages API.
type AnthropicClient struct {
	client *anthropic.Client
	model  string
	logger *zap.Logger
}

// NewAnthropicClient creates an Anthropic-backed model client.
func NewAnthropicClient(cfg *ClientConfig, logger *zap.Logger) (*AnthropicClient, error) {
	if cfg.Model == "" {
		return nil, fmt.Errorf("model is required")
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("api key is required")
	}

	var opts []anthropic.ClientOption
	if cfg.Endpoint != "" {
		opts = append(opts, anthropic.WithBaseURL(strings.TrimSuffix(cfg.Endpoint, "/")))
	}

	return &AnthropicClient{
		client: anthropic.NewClient(cfg.APIKey, opts...),
		model:  cfg.Model,
		logger: logger.Named("llm.anthropic"),
	}, nil
}

func (c *AnthropicClient) ClassifyIntent(ctx context.Context, question string, history []models.HistoryTurn) (Intent, error) {
	reply, err := c.complete(ctx, classifySystemPrompt, renderClassifyPrompt(question, history), 16)
	if err != nil {
		return IntentUnknown, err
	}
	return parseIntent(reply), nil
}

func (c *AnthropicClient) Chat(ctx context.Context, question string, history []models.HistoryTurn) (string, error) {
	return c.complete(ctx, chatSystemPrompt, renderChatPrompt(question, history), 512)
}

func (c *AnthropicClient) GenerateSQL(ctx context.Context, prompt *Prompt) (string, error) {
	reply, err := c.complete(ctx, sqlSystemPrompt, prompt.Render(), 1024)
	if err != nil {
		return "", err
	}
	return ExtractSQL(reply), nil
}

func (c *AnthropicClient) ExplainSQL(ctx context.Context, question, query string) (string, error) {
	return c.complete(ctx, explainSystemPrompt, renderExplainPrompt(question, query), 512)
}

func (c *AnthropicClient) complete(ctx context.Context, system, user string, maxTokens int) (string, error) {
	start := time.Now()
	resp, err := c.client.CreateMessages(ctx, anthropic.MessagesRequest{
		Model:     anthropic.Model(c.model),
		System:    system,
		MaxTokens: maxTokens,
		Messages: []anthropic.Message{
			anthropic.NewUserTextMessage(user),
		},
	})
	if err != nil {
		c.logger.Warn("LLM request failed",
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err))
		return "", fmt.Errorf("%w: %v", apperrors.ErrModelUnavailable, err)
	}

	var b strings.Builder
	for _, content := range resp.Content {
		if content.Type == anthropic.MessagesContentTypeText && content.Text != nil {
			b.WriteString(*content.Text)
		}
	}
	if b.Len() == 0 {
		return "", fmt.Errorf("%w: empty completion", apperrors.ErrModelUnavailable)
	}
	return strings.TrimSpace(b.String()), nil
}

// Ensure AnthropicClient implements LanguageModel at compile time.
var _ LanguageModel = (*AnthropicClient)(nil)
