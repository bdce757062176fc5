package llm

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/askdb-io/askdb-engine/pkg/config"
)

// NewFromConfig builds the configured LanguageModel. Provider "none"
// returns the rule-based client itself, so the engine always has a model
// to hold.
func NewFromConfig(cfg *config.LLMConfig, rules *Rules, logger *zap.Logger) (LanguageModel, error) {
	clientCfg := &ClientConfig{
		Endpoint: cfg.Endpoint,
		Model:    cfg.Model,
		APIKey:   cfg.APIKey,
	}

	switch cfg.Provider {
	case "openai":
		return NewOpenAIClient(clientCfg, logger)
	case "anthropic":
		return NewAnthropicClient(clientCfg, logger)
	case "none":
		return NewRuleBasedClient(rules), nil
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.Provider)
	}
}
