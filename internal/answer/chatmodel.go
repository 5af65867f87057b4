package answer

import (
	"context"
	"fmt"

	openaimodel "github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"github.com/hyperjump/docqa/internal/config"
	"github.com/hyperjump/docqa/internal/errs"
)

// NewChatModel creates an OpenAI-compatible chat model (Groq by default) from cfg.
// The API key is read from the environment variable named by cfg.APIKeyEnv.
func NewChatModel(ctx context.Context, cfg config.LLMConfig) (model.BaseChatModel, error) {
	apiKey := cfg.APIKey()
	if apiKey == "" {
		return nil, fmt.Errorf("%w: %s environment variable is required", errs.ErrModelUnavailable, cfg.APIKeyEnv)
	}
	temperature := cfg.Temperature
	chat, err := openaimodel.NewChatModel(ctx, &openaimodel.ChatModelConfig{
		APIKey:      apiKey,
		BaseURL:     cfg.BaseURL,
		Model:       cfg.Model,
		Timeout:     cfg.Timeout(),
		Temperature: &temperature,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errs.ErrModelUnavailable, err)
	}
	return chat, nil
}
