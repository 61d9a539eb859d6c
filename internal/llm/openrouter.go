package llm

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

const defaultOpenRouterBaseURL = "https://openrouter.ai/api/v1"

// OpenRouterConfig configures the fallback client.
type OpenRouterConfig struct {
	BaseURL string
	APIKey  string
	Model   string
	Params  Params
}

// OpenRouterClient is the fallback generation collaborator. It speaks the
// OpenAI chat-completions protocol against the OpenRouter endpoint.
type OpenRouterClient struct {
	client *openai.Client
	model  string
	params Params
	apiKey string
}

// NewOpenRouterClient constructs the fallback client. The API key may be
// empty at construction; Generate then fails until one is configured, which
// lets the service start without a fallback configured.
func NewOpenRouterClient(cfg OpenRouterConfig, httpClient *http.Client) (*OpenRouterClient, error) {
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		return nil, fmt.Errorf("openrouter model is required")
	}
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultOpenRouterBaseURL
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	clientConfig.BaseURL = baseURL
	if httpClient != nil {
		clientConfig.HTTPClient = httpClient
	} else {
		clientConfig.HTTPClient = &http.Client{Timeout: defaultTimeout}
	}

	return &OpenRouterClient{
		client: openai.NewClientWithConfig(clientConfig),
		model:  model,
		params: cfg.Params,
		apiKey: cfg.APIKey,
	}, nil
}

// Configured reports whether a fallback API key is present.
func (c *OpenRouterClient) Configured() bool {
	return c.apiKey != ""
}

// Health reports readiness. The fallback is considered healthy whenever a
// key is configured; a failed call surfaces through Generate instead.
func (c *OpenRouterClient) Health(_ context.Context) bool {
	return c.Configured()
}

// Generate runs a single chat completion and returns the message content.
func (c *OpenRouterClient) Generate(ctx context.Context, prompt string) (string, error) {
	if !c.Configured() {
		return "", fmt.Errorf("openrouter fallback key is required for fallback generation")
	}

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		MaxTokens:   c.params.MaxNewTokens,
		Temperature: c.params.Temperature,
		TopP:        c.params.TopP,
		Stop:        c.params.Stop,
	})
	if err != nil {
		return "", fmt.Errorf("openrouter chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("openrouter returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}
