// Package llm wraps hosted chat-completion models behind a fallback chain.
package llm

import "context"

// Provider names, in chain order.
const (
	ProviderMonitored  = "monitored"
	ProviderOpenRouter = "openrouter"
	ProviderOpenAI     = "openai"
)

// Message roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one chat turn sent to the model.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest is a provider-neutral completion request.
type ChatRequest struct {
	Messages    []Message
	Temperature float32
	MaxTokens   int
}

// ChatResponse is a provider-neutral completion.
type ChatResponse struct {
	Content    string `json:"content"`
	Model      string `json:"model"`
	Provider   string `json:"provider"`
	TokensUsed int    `json:"tokens_used"`
}

// ChatClient completes a conversation.
type ChatClient interface {
	Complete(ctx context.Context, req ChatRequest) (*ChatResponse, error)
	Name() string
}
