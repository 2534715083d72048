package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

const defaultTemperature = 0.7

// ClientConfig describes one OpenAI-compatible endpoint.
type ClientConfig struct {
	Provider   string
	APIKey     string
	BaseURL    string
	Model      string
	Timeout    time.Duration
	Headers    map[string]string
	HTTPClient *http.Client
}

// OpenAIClient talks to any OpenAI-compatible chat completion API.
type OpenAIClient struct {
	provider string
	model    string
	timeout  time.Duration
	client   *openai.Client
}

var _ ChatClient = (*OpenAIClient)(nil)

// NewOpenAIClient builds a client for cfg. The API key and model are required.
func NewOpenAIClient(cfg ClientConfig) (*OpenAIClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%s: api key is required", cfg.Provider)
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("%s: model is required", cfg.Provider)
	}

	oc := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oc.BaseURL = cfg.BaseURL
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	if len(cfg.Headers) > 0 {
		base := httpClient.Transport
		if base == nil {
			base = http.DefaultTransport
		}
		httpClient = &http.Client{
			Transport: &headerTransport{base: base, headers: cfg.Headers},
			Timeout:   httpClient.Timeout,
		}
	}
	oc.HTTPClient = httpClient

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	return &OpenAIClient{
		provider: cfg.Provider,
		model:    cfg.Model,
		timeout:  timeout,
		client:   openai.NewClientWithConfig(oc),
	}, nil
}

// Name returns the provider name.
func (c *OpenAIClient) Name() string { return c.provider }

// Model returns the configured model id.
func (c *OpenAIClient) Model() string { return c.model }

// Complete sends req as a chat completion.
func (c *OpenAIClient) Complete(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	msgs := make([]openai.ChatCompletionMessage, 0, len(req.Messages))
	for _, m := range req.Messages {
		msgs = append(msgs, openai.ChatCompletionMessage{Role: m.Role, Content: m.Content})
	}

	temp := req.Temperature
	if temp == 0 {
		temp = defaultTemperature
	}

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    msgs,
		Temperature: temp,
		MaxTokens:   req.MaxTokens,
	})
	if err != nil {
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) {
			return nil, fmt.Errorf("%s: status %d: %w", c.provider, apiErr.HTTPStatusCode, err)
		}
		return nil, fmt.Errorf("%s: %w", c.provider, err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("%s: empty completion", c.provider)
	}

	model := resp.Model
	if model == "" {
		model = c.model
	}
	return &ChatResponse{
		Content:    resp.Choices[0].Message.Content,
		Model:      model,
		Provider:   c.provider,
		TokensUsed: resp.Usage.TotalTokens,
	}, nil
}

type headerTransport struct {
	base    http.RoundTripper
	headers map[string]string
}

func (t *headerTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	r = r.Clone(r.Context())
	for k, v := range t.headers {
		r.Header.Set(k, v)
	}
	return t.base.RoundTrip(r)
}
