package agent

import (
	"context"

	"github.com/sashabaranov/go-openai"
	"github.com/terraincognita07/lifelog/internal/config"
)

// ChatClient is the chat completion call the assistant depends on.
// *openai.Client satisfies it.
type ChatClient interface {
	CreateChatCompletion(ctx context.Context, request openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// NewOpenAIClient returns nil when no API key is configured.
func NewOpenAIClient(cfg config.AIConfig) *openai.Client {
	if cfg.APIKey == "" {
		return nil
	}
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}
	return openai.NewClientWithConfig(clientConfig)
}
