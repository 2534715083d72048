// Package agent routes user messages to prompt-configured personas and
// keeps per-chat session state.
package agent

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ahrie-ai/backend/internal/apperr"
	"github.com/ahrie-ai/backend/internal/i18n"
	"github.com/ahrie-ai/backend/internal/llm"
	"github.com/ahrie-ai/backend/internal/logger"
	"github.com/ahrie-ai/backend/internal/service"
	"github.com/ahrie-ai/backend/internal/telegram"
)

// TeamName is reported as the answering agent.
const TeamName = "Ahrie AI Team"

const recentContextEntries = 5

var apologies = map[string]string{
	"ar": "أعتذر، لقد واجهت خطأ. يرجى المحاولة مرة أخرى.",
	"ko": "죄송합니다. 오류가 발생했습니다. 다시 시도해 주세요.",
	"en": "I apologize, but I encountered an error. Please try again.",
}

// Apology returns the localized error reply.
func Apology(lang string) string {
	if msg, ok := apologies[lang]; ok {
		return msg
	}
	return apologies["en"]
}

// TextTranslator translates model output for non-English users.
type TextTranslator interface {
	Translate(ctx context.Context, text, src, tgt string) (string, error)
}

// ProcessRequest is one user message to answer.
type ProcessRequest struct {
	Message   string
	UserID    string
	SessionID string
	Language  string
	// History is the stored conversation, oldest first, excluding Message.
	History []llm.Message
}

// Result is the team's answer plus routing metadata.
type Result struct {
	Content    string         `json:"content"`
	Metadata   map[string]any `json:"metadata"`
	TokensUsed int            `json:"tokens_used"`
}

// ResponseType returns the metadata response_type, or general.
func (r *Result) ResponseType() string {
	if rt, ok := r.Metadata["response_type"].(string); ok {
		return rt
	}
	return ResponseGeneral
}

// Failed reports whether the result is an apology for a model failure.
func (r *Result) Failed() bool {
	_, ok := r.Metadata["error"]
	return ok
}

// Orchestrator answers messages with the persona team.
type Orchestrator struct {
	chat       llm.ChatClient
	team       *Team
	sessions   SessionStore
	tools      *Tools
	catalog    service.ICatalogService
	translator TextTranslator
	now        func() time.Time
	locks      sessionLocks
}

// NewOrchestrator wires the team. translator may be nil, in which case
// answers are returned untranslated.
func NewOrchestrator(chat llm.ChatClient, team *Team, sessions SessionStore, catalog service.ICatalogService, translator TextTranslator) *Orchestrator {
	return &Orchestrator{
		chat:       chat,
		team:       team,
		sessions:   sessions,
		tools:      NewTools(catalog),
		catalog:    catalog,
		translator: translator,
		now:        time.Now,
	}
}

// Team returns the persona definitions.
func (o *Orchestrator) Team() *Team { return o.team }

// MonitoringEnabled reports whether the monitored gateway leads the model chain.
func (o *Orchestrator) MonitoringEnabled() bool {
	if m, ok := o.chat.(interface{ MonitoringEnabled() bool }); ok {
		return m.MonitoringEnabled()
	}
	return false
}

func (o *Orchestrator) modelUsed() string {
	if p, ok := o.chat.(interface{ Primary() string }); ok {
		return p.Primary()
	}
	return o.chat.Name()
}

// Process answers one message. Model failures produce a localized apology
// with error metadata rather than an error.
func (o *Orchestrator) Process(ctx context.Context, req ProcessRequest) (*Result, error) {
	log := logger.FromContext(ctx).With("session_id", req.SessionID, "user_id", req.UserID)
	lang := req.Language
	if !i18n.IsSupported(lang) {
		lang = "en"
	}
	now := o.now()

	unlock := o.locks.lock(req.SessionID)
	sess, err := o.sessions.Load(ctx, req.SessionID)
	if err != nil {
		log.Warn("session load failed, starting fresh", "error", err)
		sess = NewSession(req.SessionID)
	}

	sess.UserProfile.Language = lang
	sess.AddContext(req.Message, now)

	intent := AnalyzeIntent(req.Message)
	toolContext := o.tools.Run(ctx, sess, intent, req.Message, lang)

	resp, err := o.chat.Complete(ctx, llm.ChatRequest{
		Messages:    o.buildMessages(sess, intent, toolContext, req, lang),
		Temperature: 0.7,
		MaxTokens:   1200,
	})
	sess.UpdatedAt = now
	if saveErr := o.sessions.Save(ctx, sess); saveErr != nil {
		log.Warn("session save failed", "error", saveErr)
	}
	unlock()
	if err != nil {
		log.Error("team response failed", "error", err, "code", apperr.CodeOf(err))
		return &Result{
			Content: Apology(lang),
			Metadata: map[string]any{
				"agent":     TeamName,
				"error":     err.Error(),
				"language":  lang,
				"timestamp": now.Format(time.RFC3339),
			},
		}, nil
	}

	content := resp.Content
	if lang != "en" && o.translator != nil {
		translated, terr := o.translator.Translate(ctx, content, "en", lang)
		if terr != nil {
			log.Warn("response translation failed", "error", terr, "language", lang)
		} else {
			content = translated
		}
	}

	return &Result{
		Content:    content,
		TokensUsed: resp.TokensUsed,
		Metadata: map[string]any{
			"agent":                TeamName,
			"agents":               intent.Agents,
			"intents":              intent.Intents,
			"complexity":           intent.Complexity,
			"collaboration_needed": intent.CollaborationNeeded,
			"response_type":        intent.ResponseType,
			"timestamp":            now.Format(time.RFC3339),
			"language":             lang,
			"langdb_enabled":       o.MonitoringEnabled(),
			"session_state": map[string]any{
				"medical_interests":     sess.MedicalInterests,
				"cultural_requirements": sess.CulturalRequirements,
				"context_length":        len(sess.ConversationContext),
			},
			"performance": map[string]any{
				"model_used": o.modelUsed(),
				"provider":   resp.Provider,
				"model":      resp.Model,
			},
			"tokens_used": resp.TokensUsed,
		},
	}, nil
}

func (o *Orchestrator) buildMessages(sess *Session, in Intent, toolContext []string, req ProcessRequest, lang string) []llm.Message {
	var sys strings.Builder
	sys.WriteString(o.team.SystemPrompt(in.Agents, lang))
	fmt.Fprintf(&sys, "\nDetected intents: %s (complexity %s).\n", strings.Join(in.Intents, ", "), in.Complexity)
	fmt.Fprintf(&sys, "Session: %s\n", sess.Summary())

	if n := len(sess.ConversationContext); n > 1 {
		from := n - 1 - recentContextEntries
		if from < 0 {
			from = 0
		}
		fmt.Fprintf(&sys, "Recent topics: %s\n", strings.Join(sess.ConversationContext[from:n-1], "; "))
	}
	if len(toolContext) > 0 {
		sys.WriteString("\nReference data:\n")
		sys.WriteString(strings.Join(toolContext, "\n"))
		sys.WriteByte('\n')
	}
	if lang != "en" && o.translator != nil {
		sys.WriteString("\nAnswer in English. The answer is translated for the user afterwards.\n")
	} else {
		fmt.Fprintf(&sys, "\nAnswer in %s.\n", i18n.LanguageName(lang))
	}

	msgs := []llm.Message{{Role: llm.RoleSystem, Content: sys.String()}}
	msgs = append(msgs, req.History...)
	msgs = append(msgs, llm.Message{Role: llm.RoleUser, Content: req.Message})
	return msgs
}

// SessionInsights summarises what the team knows about a session.
func (o *Orchestrator) SessionInsights(ctx context.Context, sessionID string) (map[string]any, error) {
	sess, err := o.sessions.Load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"user_journey": map[string]any{
			"profile":           sess.UserProfile,
			"interests":         sess.MedicalInterests,
			"cultural_needs":    sess.CulturalRequirements,
			"interaction_count": len(sess.ConversationContext),
		},
		"recommendations": map[string]any{
			"clinics":          sess.RecommendedClinics,
			"reviews_analyzed": len(sess.AnalyzedReviews),
			"insights":         sess.AnalyzedReviews,
		},
		"session_summary": sess.Summary(),
		"monitoring": map[string]any{
			"langdb_enabled": o.MonitoringEnabled(),
		},
	}, nil
}

// ProcedureInfo formats a catalog procedure for chat in lang as HTML.
func (o *Orchestrator) ProcedureInfo(ctx context.Context, name, lang string) (string, error) {
	p, err := o.catalog.GetProcedure(ctx, name)
	if err != nil {
		return "", err
	}
	if p == nil {
		return "", apperr.ErrNotFound
	}

	na := i18n.T("not_available", lang, nil)
	duration, recovery, price := na, na, na
	if p.DurationMax > 0 {
		duration = fmt.Sprintf("%s-%s min", i18n.FormatNumber(float64(p.DurationMin), lang), i18n.FormatNumber(float64(p.DurationMax), lang))
	}
	if p.RecoveryDaysMax > 0 {
		recovery = fmt.Sprintf("%s-%s days", i18n.FormatNumber(float64(p.RecoveryDaysMin), lang), i18n.FormatNumber(float64(p.RecoveryDaysMax), lang))
	}
	if p.PriceRangeMax > 0 {
		price = i18n.FormatCurrency(p.PriceRangeMin, "USD", lang) + " - " + i18n.FormatCurrency(p.PriceRangeMax, "USD", lang)
	}

	return i18n.T("procedure_details", lang, map[string]any{
		"name":        telegram.EscapeHTML(p.LocalizedName(lang)),
		"description": telegram.EscapeHTML(p.LocalizedDescription(lang)),
		"duration":    duration,
		"recovery":    recovery,
		"price":       price,
	}), nil
}
