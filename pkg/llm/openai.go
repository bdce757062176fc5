package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/askdb-io/askdb-engine/pkg/apperrors"
	"github.com/askdb-io/askdb-engine/pkg/models"
)

// OpenAIClient talks to any OpenAI-compatible chat-completion endpoint.
type OpenAIClient struct {
	client *openai.Client
	model  string
	logger *zap.Logger
}

// ClientConfig holds what a network-backed model client needs.
type ClientConfig struct {
	Endpoint string // Base URL, e.g. "https://api.openai.com/v1"; empty for the default
	Model    string // Model name, e.g. "gpt-4o"
	APIKey   string
}

// NewOpenAIClient creates an OpenAI-compatible client.
func NewOpenAIClient(cfg *ClientConfig, logger *zap.Logger) (*OpenAIClient, error) {
	if cfg.Model == "" {
		return nil, fmt.Errorf("model is required")
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.Endpoint != "" {
		clientConfig.BaseURL = strings.TrimSuffix(cfg.Endpoint, "/")
	}

	return &OpenAIClient{
		client: openai.NewClientWithConfig(clientConfig),
		model:  cfg.Model,
		logger: logger.Named("llm.openai"),
	}, nil
}

func (c *OpenAIClient) ClassifyIntent(ctx context.Context, question string, history []models.HistoryTurn) (Intent, error) {
	reply, err := c.complete(ctx, classifySystemPrompt, renderClassifyPrompt(question, history), 0)
	if err != nil {
		return IntentUnknown, err
	}
	return parseIntent(reply), nil
}

func (c *OpenAIClient) Chat(ctx context.Context, question string, history []models.HistoryTurn) (string, error) {
	return c.complete(ctx, chatSystemPrompt, renderChatPrompt(question, history), 0.7)
}

func (c *OpenAIClient) GenerateSQL(ctx context.Context, prompt *Prompt) (string, error) {
	reply, err := c.complete(ctx, sqlSystemPrompt, prompt.Render(), 0)
	if err != nil {
		return "", err
	}
	return ExtractSQL(reply), nil
}

func (c *OpenAIClient) ExplainSQL(ctx context.Context, question, query string) (string, error) {
	return c.complete(ctx, explainSystemPrompt, renderExplainPrompt(question, query), 0.3)
}

func (c *OpenAIClient) complete(ctx context.Context, system, user string, temperature float32) (string, error) {
	c.logger.Debug("LLM request",
		zap.String("model", c.model),
		zap.Int("prompt_len", len(user)))

	start := time.Now()
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
		Temperature: temperature,
	})
	if err != nil {
		c.logger.Warn("LLM request failed",
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err))
		return "", fmt.Errorf("%w: %v", apperrors.ErrModelUnavailable, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: empty completion", apperrors.ErrModelUnavailable)
	}

	c.logger.Debug("LLM response",
		zap.Duration("elapsed", time.Since(start)),
		zap.Int("response_len", len(resp.Choices[0].Message.Content)))
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// Ensure OpenAIClient implements LanguageModel at compile time.
var _ LanguageModel = (*OpenAIClient)(nil)
