package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/ahrie-ai/backend/internal/i18n"
)

// ModelTranslator translates text by prompting a chat model.
type ModelTranslator struct {
	client ChatClient
}

// NewModelTranslator wraps client as a translator.
func NewModelTranslator(client ChatClient) *ModelTranslator {
	return &ModelTranslator{client: client}
}

// Name is recorded as the translation_service of cached rows.
func (t *ModelTranslator) Name() string { return "llm:" + t.client.Name() }

func (t *ModelTranslator) Translate(ctx context.Context, text, source, target string) (string, error) {
	prompt := fmt.Sprintf(
		"Translate the following text from %s to %s. Keep formatting, numbers and names intact. Reply with the translation only.",
		i18n.LanguageName(source), i18n.LanguageName(target),
	)
	resp, err := t.client.Complete(ctx, ChatRequest{
		Messages: []Message{
			{Role: RoleSystem, Content: prompt},
			{Role: RoleUser, Content: text},
		},
		Temperature: 0.2,
	})
	if err != nil {
		return "", fmt.Errorf("translate %s->%s: %w", source, target, err)
	}
	return strings.TrimSpace(resp.Content), nil
}
