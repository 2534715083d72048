// Package bot turns Telegram updates into replies.
package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/ahrie-ai/backend/internal/agent"
	"github.com/ahrie-ai/backend/internal/apperr"
	"github.com/ahrie-ai/backend/internal/i18n"
	"github.com/ahrie-ai/backend/internal/llm"
	"github.com/ahrie-ai/backend/internal/logger"
	"github.com/ahrie-ai/backend/internal/models"
	"github.com/ahrie-ai/backend/internal/service"
	"github.com/ahrie-ai/backend/internal/telegram"
)

const (
	historyLimit    = 10
	topClinicsLimit = 5
)

// Sender is the subset of the Bot API client the handler calls.
type Sender interface {
	SendMessage(ctx context.Context, p telegram.SendMessageParams) (*telegram.Message, error)
	EditMessageText(ctx context.Context, p telegram.EditMessageTextParams) error
	AnswerCallbackQuery(ctx context.Context, id, text string) error
	SendChatAction(ctx context.Context, chatID int64, action string) error
	SendPhoto(ctx context.Context, p telegram.SendPhotoParams) (*telegram.Message, error)
}

// Assistant answers free text and formats procedures.
type Assistant interface {
	Process(ctx context.Context, req agent.ProcessRequest) (*agent.Result, error)
	ProcedureInfo(ctx context.Context, name, lang string) (string, error)
}

// ClinicImager resolves a clinic's display image.
type ClinicImager interface {
	ClinicImage(ctx context.Context, clinic *models.Clinic) (string, bool)
}

// Handler routes a single update.
type Handler struct {
	sender        Sender
	users         service.IUserService
	conversations service.IConversationService
	catalog       service.ICatalogService
	assistant     Assistant
	media         ClinicImager
}

// NewHandler creates a Handler. media may be nil.
func NewHandler(sender Sender, users service.IUserService, conversations service.IConversationService,
	catalog service.ICatalogService, assistant Assistant, media ClinicImager) *Handler {
	return &Handler{
		sender:        sender,
		users:         users,
		conversations: conversations,
		catalog:       catalog,
		assistant:     assistant,
		media:         media,
	}
}

// Handle processes one flattened update.
func (h *Handler) Handle(ctx context.Context, data *telegram.MessageData) error {
	ctx = logger.WithContext(ctx, logger.FromContext(ctx).With(
		"update_id", data.UpdateID,
		"chat_id", data.ChatID,
		"user_id", data.UserID,
	))

	switch {
	case data.IsCallback():
		return h.handleCallback(ctx, data)
	case data.MessageType != telegram.TypeText || strings.TrimSpace(data.Text) == "":
		logger.FromContext(ctx).Debug("ignoring non-text message", "type", data.MessageType)
		return nil
	case strings.HasPrefix(data.Text, "/"):
		return h.handleCommand(ctx, data)
	default:
		return h.handleText(ctx, data)
	}
}

func (h *Handler) profile(data *telegram.MessageData) service.TelegramProfile {
	return service.TelegramProfile{
		TelegramID:   data.UserID,
		Username:     data.Username,
		FirstName:    data.FirstName,
		LastName:     data.LastName,
		LanguageCode: data.LanguageCode,
	}
}

// userAndLanguage upserts the sender and returns their stored language.
// The Telegram client language is only used when the upsert fails.
func (h *Handler) userAndLanguage(ctx context.Context, data *telegram.MessageData) (*models.User, string) {
	user, err := h.users.GetOrCreate(ctx, h.profile(data))
	if err != nil {
		logger.FromContext(ctx).Warn("user upsert failed", "error", err)
		return nil, i18n.DetectLanguage(data.LanguageCode)
	}
	return user, user.LanguageCode
}

func (h *Handler) send(ctx context.Context, chatID int64, text string, kb *telegram.InlineKeyboardMarkup) error {
	_, err := h.sender.SendMessage(ctx, telegram.SendMessageParams{
		ChatID:      chatID,
		Text:        text,
		ParseMode:   telegram.ParseModeHTML,
		ReplyMarkup: kb,
	})
	if err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	return nil
}

func (h *Handler) handleCommand(ctx context.Context, data *telegram.MessageData) error {
	fields := strings.Fields(data.Text)
	// "/start@AhrieBot payload" addresses the command to this bot in groups.
	command, _, _ := strings.Cut(strings.ToLower(fields[0]), "@")

	user, lang := h.userAndLanguage(ctx, data)
	logger.FromContext(ctx).Info("command received", "command", command)

	switch command {
	case "/start":
		name := data.FirstName
		if user != nil {
			name = user.DisplayName()
		}
		welcome := i18n.T("welcome_message", lang, map[string]any{"name": telegram.EscapeHTML(name)})
		if err := h.send(ctx, data.ChatID, welcome, MainMenu(lang)); err != nil {
			return err
		}
		return h.send(ctx, data.ChatID, i18n.T("start_follow_up", lang, nil), QuickActions(lang))
	case "/help":
		return h.send(ctx, data.ChatID, i18n.T("help_message", lang, nil), HelpMenu(lang))
	case "/language":
		return h.send(ctx, data.ChatID, i18n.T("choose_language", lang, nil), LanguageSelection())
	case "/procedures":
		return h.send(ctx, data.ChatID, i18n.T("procedures_menu", lang, nil), ProceduresMenu(lang))
	case "/clinics":
		text, kb := h.clinicsScreen(ctx, lang)
		return h.send(ctx, data.ChatID, text, kb)
	case "/about":
		return h.send(ctx, data.ChatID, i18n.T("about_message", lang, nil), MainMenu(lang))
	default:
		return h.send(ctx, data.ChatID, i18n.T("unknown_command", lang, nil), nil)
	}
}

func (h *Handler) handleText(ctx context.Context, data *telegram.MessageData) error {
	log := logger.FromContext(ctx)

	if err := h.sender.SendChatAction(ctx, data.ChatID, telegram.ActionTyping); err != nil {
		log.Debug("typing action failed", "error", err)
	}

	user, err := h.users.GetOrCreate(ctx, h.profile(data))
	if err != nil {
		return h.fail(ctx, data, i18n.DetectLanguage(data.LanguageCode), fmt.Errorf("upsert user: %w", err))
	}
	lang := user.LanguageCode

	conv, err := h.conversations.GetOrCreateActive(ctx, user.ID, data.ChatID)
	if err != nil {
		return h.fail(ctx, data, lang, fmt.Errorf("open conversation: %w", err))
	}

	recent, err := h.conversations.RecentMessages(ctx, conv.ID, historyLimit)
	if err != nil {
		log.Warn("failed to load history", "conversation_id", conv.ID, "error", err)
	}
	history := make([]llm.Message, 0, len(recent))
	for _, m := range recent {
		history = append(history, llm.Message{Role: m.Role, Content: m.Content})
	}

	if _, err := h.conversations.AppendMessage(ctx, conv.ID, models.RoleUser, data.Text, nil, 0); err != nil {
		return h.fail(ctx, data, lang, fmt.Errorf("store user message: %w", err))
	}

	result, err := h.assistant.Process(ctx, agent.ProcessRequest{
		Message:   data.Text,
		UserID:    strconv.FormatInt(data.UserID, 10),
		SessionID: agent.SessionID(data.UserID, data.ChatID),
		Language:  lang,
		History:   history,
	})
	if err != nil {
		return h.fail(ctx, data, lang, fmt.Errorf("process message: %w", err))
	}

	var kb *telegram.InlineKeyboardMarkup
	if !result.Failed() {
		kb = ContextKeyboard(result.ResponseType(), lang)
	}
	if _, err := h.sender.SendMessage(ctx, telegram.SendMessageParams{
		ChatID:      data.ChatID,
		Text:        result.Content,
		ReplyMarkup: kb,
	}); err != nil {
		return fmt.Errorf("send reply: %w", err)
	}

	if _, err := h.conversations.AppendMessage(ctx, conv.ID, models.RoleAssistant, result.Content, result.Metadata, result.TokensUsed); err != nil {
		log.Error("failed to store assistant message", "conversation_id", conv.ID, "error", err)
	}
	log.Info("message answered",
		"conversation_id", conv.ID,
		"response_type", result.ResponseType(),
		"tokens_used", result.TokensUsed,
		"failed", result.Failed(),
	)
	return nil
}

// fail tells the user something went wrong and returns cause.
func (h *Handler) fail(ctx context.Context, data *telegram.MessageData, lang string, cause error) error {
	if err := h.send(ctx, data.ChatID, i18n.T("error_message", lang, nil), nil); err != nil {
		logger.FromContext(ctx).Warn("failed to send error message", "error", err)
	}
	return cause
}

func (h *Handler) handleCallback(ctx context.Context, data *telegram.MessageData) error {
	log := logger.FromContext(ctx)
	if err := h.sender.AnswerCallbackQuery(ctx, data.CallbackQueryID, ""); err != nil {
		log.Warn("answer callback failed", "error", err)
	}

	_, lang := h.userAndLanguage(ctx, data)
	cb := data.CallbackData
	log.Info("callback received", "data", cb)

	switch {
	case strings.HasPrefix(cb, prefixLanguage):
		return h.changeLanguage(ctx, data, strings.TrimPrefix(cb, prefixLanguage), lang)
	case strings.HasPrefix(cb, prefixProcedure):
		return h.showProcedure(ctx, data, strings.TrimPrefix(cb, prefixProcedure), lang)
	case strings.HasPrefix(cb, prefixClinic):
		return h.showClinic(ctx, data, strings.TrimPrefix(cb, prefixClinic), lang)
	case strings.HasPrefix(cb, prefixRate):
		rating := strings.TrimPrefix(cb, prefixRate)
		n, err := strconv.Atoi(rating)
		if err != nil || n < 1 || n > 5 {
			return h.edit(ctx, data, i18n.T("main_menu", lang, nil), MainMenu(lang))
		}
		log.Info("answer rated", "user_id", data.UserID, "rating", n)
		return h.send(ctx, data.ChatID, i18n.T("rating_thanks", lang, map[string]any{"rating": i18n.FormatNumber(float64(n), lang)}), nil)
	}

	switch cb {
	case CallbackMenuProcedures, prefixBack + "procedures":
		return h.edit(ctx, data, i18n.T("procedures_menu", lang, nil), ProceduresMenu(lang))
	case CallbackMenuClinics, prefixBack + "clinics", "quick_top_clinics":
		text, kb := h.clinicsScreen(ctx, lang)
		return h.edit(ctx, data, text, kb)
	case CallbackMenuHalal, "halal_restaurants", "quick_halal_food", "find_mosques":
		return h.edit(ctx, data, h.halalScreen(ctx, cb, lang), BackButton("main", lang))
	case CallbackMenuReviews:
		return h.edit(ctx, data, i18n.T("reviews_prompt", lang, nil), BackButton("main", lang))
	case CallbackStartConsultation:
		return h.edit(ctx, data, i18n.T("consultation_prompt", lang, nil), BackButton("main", lang))
	case CallbackMenuLanguage:
		return h.edit(ctx, data, i18n.T("choose_language", lang, nil), LanguageSelection())
	case CallbackMenuHelp:
		return h.edit(ctx, data, i18n.T("help_message", lang, nil), HelpMenu(lang))
	default:
		return h.edit(ctx, data, i18n.T("main_menu", lang, nil), MainMenu(lang))
	}
}

func (h *Handler) edit(ctx context.Context, data *telegram.MessageData, text string, kb *telegram.InlineKeyboardMarkup) error {
	err := h.sender.EditMessageText(ctx, telegram.EditMessageTextParams{
		ChatID:      data.ChatID,
		MessageID:   data.MessageID,
		Text:        text,
		ParseMode:   telegram.ParseModeHTML,
		ReplyMarkup: kb,
	})
	if err != nil {
		return fmt.Errorf("edit message: %w", err)
	}
	return nil
}

func (h *Handler) changeLanguage(ctx context.Context, data *telegram.MessageData, newLang, lang string) error {
	if _, err := h.users.UpdateLanguage(ctx, data.UserID, newLang); err != nil {
		logger.FromContext(ctx).Warn("language update failed", "language", newLang, "error", err)
		return h.edit(ctx, data, i18n.T("error_message", lang, nil), LanguageSelection())
	}
	return h.edit(ctx, data, i18n.T("language_updated", newLang, nil), MainMenu(newLang))
}

func (h *Handler) showProcedure(ctx context.Context, data *telegram.MessageData, slug, lang string) error {
	name := strings.ReplaceAll(slug, "_", " ")
	text, err := h.assistant.ProcedureInfo(ctx, name, lang)
	if apperr.Is(err, apperr.CodeNotFound) {
		// Button slugs are short names; fall back to a catalog search.
		if procs, serr := h.catalog.SearchProcedures(ctx, name); serr == nil && len(procs) > 0 {
			text, err = h.assistant.ProcedureInfo(ctx, procs[0].Name, lang)
		}
	}
	if err != nil {
		if !apperr.Is(err, apperr.CodeNotFound) {
			logger.FromContext(ctx).Warn("procedure lookup failed", "procedure", name, "error", err)
		}
		text = i18n.T("procedure_not_found", lang, nil)
	}
	return h.edit(ctx, data, text, BackButton("procedures", lang))
}

func (h *Handler) showClinic(ctx context.Context, data *telegram.MessageData, rawID, lang string) error {
	id, err := strconv.ParseUint(rawID, 10, 64)
	if err != nil {
		return h.edit(ctx, data, i18n.T("clinic_not_found", lang, nil), BackButton("clinics", lang))
	}
	clinic, err := h.catalog.GetClinic(ctx, uint(id))
	if err != nil {
		if !errors.Is(err, apperr.ErrNotFound) {
			logger.FromContext(ctx).Warn("clinic lookup failed", "clinic_id", id, "error", err)
		}
		return h.edit(ctx, data, i18n.T("clinic_not_found", lang, nil), BackButton("clinics", lang))
	}

	text := FormatClinic(clinic, lang)
	if err := h.edit(ctx, data, text, BackButton("clinics", lang)); err != nil {
		return err
	}

	if h.media == nil {
		return nil
	}
	url, ok := h.media.ClinicImage(ctx, clinic)
	if !ok {
		return nil
	}
	if err := h.sender.SendChatAction(ctx, data.ChatID, telegram.ActionUploadPhoto); err != nil {
		logger.FromContext(ctx).Debug("upload action failed", "error", err)
	}
	if _, err := h.sender.SendPhoto(ctx, telegram.SendPhotoParams{
		ChatID:  data.ChatID,
		Photo:   url,
		Caption: clinic.LocalizedName(lang),
	}); err != nil {
		logger.FromContext(ctx).Warn("failed to send clinic photo", "clinic_id", clinic.ID, "error", err)
	}
	return nil
}

func (h *Handler) clinicsScreen(ctx context.Context, lang string) (string, *telegram.InlineKeyboardMarkup) {
	clinics, err := h.catalog.FindClinics(ctx, service.ClinicFilter{Limit: topClinicsLimit})
	if err != nil {
		logger.FromContext(ctx).Warn("failed to list clinics", "error", err)
	}
	if len(clinics) == 0 {
		return i18n.T("no_clinics", lang, nil), BackButton("main", lang)
	}

	var b strings.Builder
	b.WriteString(i18n.T("clinics_list", lang, nil))
	rows := make([][]telegram.InlineKeyboardButton, 0, len(clinics)+1)
	for i := range clinics {
		c := &clinics[i]
		fmt.Fprintf(&b, "\n\n%s", FormatClinic(c, lang))
		rows = append(rows, []telegram.InlineKeyboardButton{{
			Text:         "🏥 " + c.LocalizedName(lang),
			CallbackData: fmt.Sprintf("%s%d", prefixClinic, c.ID),
		}})
	}
	rows = append(rows, BackButton("main", lang).InlineKeyboard...)
	return b.String(), &telegram.InlineKeyboardMarkup{InlineKeyboard: rows}
}

func (h *Handler) halalScreen(ctx context.Context, cb, lang string) string {
	filter := service.HalalFilter{}
	switch cb {
	case "halal_restaurants", "quick_halal_food":
		filter.Type = models.PlaceRestaurant
	case "find_mosques":
		filter.Type = models.PlaceMosque
	}
	places, err := h.catalog.HalalPlaces(ctx, filter)
	if err != nil {
		logger.FromContext(ctx).Warn("failed to list halal places", "error", err)
	}
	if len(places) == 0 {
		return i18n.T("no_halal_places", lang, nil)
	}

	var b strings.Builder
	b.WriteString(i18n.T("halal_list", lang, nil))
	for i := range places {
		p := &places[i]
		fmt.Fprintf(&b, "\n• <b>%s</b>", telegram.EscapeHTML(p.LocalizedName(lang)))
		if p.District != "" {
			fmt.Fprintf(&b, " 📍 %s", telegram.EscapeHTML(p.District))
		}
		if p.Rating > 0 {
			fmt.Fprintf(&b, " ⭐ %s", i18n.FormatNumber(p.Rating, lang))
		}
	}
	return b.String()
}

// FormatClinic renders a clinic card with its feature lines.
func FormatClinic(c *models.Clinic, lang string) string {
	na := i18n.T("not_available", lang, nil)
	var features []string
	if c.HalalFriendly {
		features = append(features, i18n.T("feature_halal", lang, nil))
	}
	if c.ArabicSupport {
		features = append(features, i18n.T("feature_arabic", lang, nil))
	}
	if c.FemaleStaffAvailable {
		features = append(features, i18n.T("feature_female_staff", lang, nil))
	}

	orNA := func(items []string) string {
		if len(items) == 0 {
			return na
		}
		return telegram.EscapeHTML(strings.Join(items, ", "))
	}
	languages := make([]string, 0, len(c.LanguagesSupported))
	for _, code := range c.LanguagesSupported {
		languages = append(languages, i18n.LanguageName(code))
	}
	district := c.District
	if district == "" {
		district = na
	}

	return strings.TrimRight(i18n.T("clinic_details", lang, map[string]any{
		"name":        telegram.EscapeHTML(c.LocalizedName(lang)),
		"district":    telegram.EscapeHTML(district),
		"rating":      i18n.FormatNumber(c.Rating, lang),
		"reviews":     i18n.FormatNumber(float64(c.ReviewCount), lang),
		"specialties": orNA(c.Specialties),
		"languages":   orNA(languages),
		"features":    strings.Join(features, "\n"),
	}), "\n")
}
