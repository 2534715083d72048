package llm

import (
	"context"
	"errors"
	"time"

	"github.com/ahrie-ai/backend/config"
	"github.com/ahrie-ai/backend/internal/apperr"
	"github.com/ahrie-ai/backend/internal/logger"
	"github.com/ahrie-ai/backend/internal/metrics"
)

// Chain tries each client in order and returns the first completion.
type Chain struct {
	clients []ChatClient
	metrics *metrics.Metrics
}

var _ ChatClient = (*Chain)(nil)

// NewChain builds a chain over clients. An empty chain is an error.
func NewChain(m *metrics.Metrics, clients ...ChatClient) (*Chain, error) {
	if len(clients) == 0 {
		return nil, apperr.ErrNoModelConfigured
	}
	return &Chain{clients: clients, metrics: m}, nil
}

// NewFromConfig builds the provider chain: the monitored gateway first, then
// OpenRouter, then OpenAI. Providers without credentials are left out.
func NewFromConfig(cfg *config.Config, m *metrics.Metrics) (*Chain, error) {
	var clients []ChatClient

	if cfg.MonitoringEnabled() {
		c, err := NewOpenAIClient(ClientConfig{
			Provider: ProviderMonitored,
			APIKey:   cfg.LangDBAPIKey,
			BaseURL:  cfg.LangDBBaseURL,
			Model:    cfg.LangDBModel,
			Timeout:  cfg.LLMTimeout,
			Headers:  map[string]string{"x-project-id": cfg.LangDBProjectID},
		})
		if err != nil {
			return nil, err
		}
		clients = append(clients, c)
	}

	if cfg.OpenRouterAPIKey != "" {
		c, err := NewOpenAIClient(ClientConfig{
			Provider: ProviderOpenRouter,
			APIKey:   cfg.OpenRouterAPIKey,
			BaseURL:  cfg.OpenRouterBaseURL,
			Model:    cfg.OpenRouterModel,
			Timeout:  cfg.LLMTimeout,
			Headers: map[string]string{
				"HTTP-Referer": "https://ahrie.ai",
				"X-Title":      cfg.AppName,
			},
		})
		if err != nil {
			return nil, err
		}
		clients = append(clients, c)
	}

	if cfg.OpenAIAPIKey != "" {
		c, err := NewOpenAIClient(ClientConfig{
			Provider: ProviderOpenAI,
			APIKey:   cfg.OpenAIAPIKey,
			BaseURL:  cfg.OpenAIBaseURL,
			Model:    cfg.OpenAIModel,
			Timeout:  cfg.LLMTimeout,
		})
		if err != nil {
			return nil, err
		}
		clients = append(clients, c)
	}

	return NewChain(m, clients...)
}

// Name identifies the chain by its primary provider.
func (c *Chain) Name() string { return c.Primary() }

// Primary returns the name of the first provider tried.
func (c *Chain) Primary() string { return c.clients[0].Name() }

// Providers lists the provider names in the order they are tried.
func (c *Chain) Providers() []string {
	names := make([]string, len(c.clients))
	for i, cl := range c.clients {
		names[i] = cl.Name()
	}
	return names
}

// MonitoringEnabled reports whether calls go through the monitored gateway first.
func (c *Chain) MonitoringEnabled() bool { return c.Primary() == ProviderMonitored }

// Complete returns the first successful completion. When every provider
// fails the causes are joined under UPSTREAM_UNAVAILABLE, or TIMEOUT when
// the caller's deadline expired.
func (c *Chain) Complete(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	log := logger.FromContext(ctx)
	var errs []error

	for _, cl := range c.clients {
		start := time.Now()
		resp, err := cl.Complete(ctx, req)
		if err == nil {
			c.metrics.ObserveModelCall(cl.Name(), "success", time.Since(start))
			if resp.Provider == "" {
				resp.Provider = cl.Name()
			}
			return resp, nil
		}

		c.metrics.ObserveModelCall(cl.Name(), "error", time.Since(start))
		log.Warn("model provider failed", "provider", cl.Name(), "error", err)
		errs = append(errs, err)

		if ctx.Err() != nil {
			break
		}
	}

	joined := errors.Join(errs...)
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return nil, apperr.Wrap(joined, apperr.CodeTimeout, "model request timed out")
	}
	return nil, apperr.Wrap(joined, apperr.CodeUpstreamUnavailable, "all model providers failed")
}
