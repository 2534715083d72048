package bot

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/ahrie-ai/backend/internal/agent"
	"github.com/ahrie-ai/backend/internal/apperr"
	"github.com/ahrie-ai/backend/internal/i18n"
	"github.com/ahrie-ai/backend/internal/models"
	"github.com/ahrie-ai/backend/internal/service"
	"github.com/ahrie-ai/backend/internal/telegram"
	"github.com/ahrie-ai/backend/internal/testhelpers"
)

type fakeSender struct {
	mu        sync.Mutex
	sent      []telegram.SendMessageParams
	edits     []telegram.EditMessageTextParams
	photos    []telegram.SendPhotoParams
	actions   []string
	answered  []string
	sendError error
}

func (f *fakeSender) SendMessage(_ context.Context, p telegram.SendMessageParams) (*telegram.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendError != nil {
		return nil, f.sendError
	}
	f.sent = append(f.sent, p)
	return &telegram.Message{MessageID: int64(len(f.sent)), Chat: telegram.Chat{ID: p.ChatID}}, nil
}

func (f *fakeSender) EditMessageText(_ context.Context, p telegram.EditMessageTextParams) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.edits = append(f.edits, p)
	return nil
}

func (f *fakeSender) AnswerCallbackQuery(_ context.Context, id, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.answered = append(f.answered, id)
	return nil
}

func (f *fakeSender) SendChatAction(_ context.Context, _ int64, action string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.actions = append(f.actions, action)
	return nil
}

func (f *fakeSender) SendPhoto(_ context.Context, p telegram.SendPhotoParams) (*telegram.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.photos = append(f.photos, p)
	return &telegram.Message{}, nil
}

func (f *fakeSender) lastEdit(t *testing.T) telegram.EditMessageTextParams {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(t, f.edits)
	return f.edits[len(f.edits)-1]
}

// MockAssistant implements Assistant for testing
type MockAssistant struct {
	mock.Mock
}

func (m *MockAssistant) Process(ctx context.Context, req agent.ProcessRequest) (*agent.Result, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*agent.Result), args.Error(1)
}

func (m *MockAssistant) ProcedureInfo(ctx context.Context, name, lang string) (string, error) {
	args := m.Called(ctx, name, lang)
	return args.String(0), args.Error(1)
}

type fakeImager struct{ url string }

func (f fakeImager) ClinicImage(_ context.Context, _ *models.Clinic) (string, bool) {
	return f.url, f.url != ""
}

type handlerFixture struct {
	handler       *Handler
	sender        *fakeSender
	assistant     *MockAssistant
	users         *service.UserService
	conversations *service.ConversationService
	seed          *testhelpers.Catalog
}

func setupHandler(t *testing.T, media ClinicImager) *handlerFixture {
	t.Helper()
	db := testhelpers.NewSQLiteDB(t)
	f := &handlerFixture{
		sender:        &fakeSender{},
		assistant:     &MockAssistant{},
		users:         service.NewUserService(db.Gorm),
		conversations: service.NewConversationService(db.Gorm),
		seed:          testhelpers.SeedCatalog(t, db.Gorm),
	}
	f.handler = NewHandler(f.sender, f.users, f.conversations, service.NewCatalogService(db.Gorm), f.assistant, media)
	return f
}

func textMessage(text string) *telegram.MessageData {
	return &telegram.MessageData{
		UpdateID:     1,
		MessageID:    10,
		ChatID:       555,
		UserID:       100,
		FirstName:    "Layla",
		Text:         text,
		LanguageCode: "en",
		MessageType:  telegram.TypeText,
	}
}

func callback(data string) *telegram.MessageData {
	return &telegram.MessageData{
		UpdateID:        2,
		MessageID:       11,
		ChatID:          555,
		UserID:          100,
		FirstName:       "Layla",
		LanguageCode:    "en",
		MessageType:     telegram.TypeCallback,
		CallbackQueryID: "cb-1",
		CallbackData:    data,
	}
}

func TestHandler_StartCommand(t *testing.T) {
	f := setupHandler(t, nil)
	ctx := context.Background()

	require.NoError(t, f.handler.Handle(ctx, textMessage("/start")))

	require.Len(t, f.sender.sent, 2)
	assert.Equal(t, i18n.T("welcome_message", "en", map[string]any{"name": "Layla"}), f.sender.sent[0].Text)
	assert.Equal(t, MainMenu("en"), f.sender.sent[0].ReplyMarkup)
	assert.Equal(t, telegram.ParseModeHTML, f.sender.sent[0].ParseMode)
	assert.Equal(t, i18n.T("start_follow_up", "en", nil), f.sender.sent[1].Text)
	assert.Equal(t, QuickActions("en"), f.sender.sent[1].ReplyMarkup)

	user, err := f.users.Get(ctx, 100)
	require.NoError(t, err)
	assert.Equal(t, "Layla", user.FirstName)
}

func TestHandler_StartEscapesName(t *testing.T) {
	f := setupHandler(t, nil)
	msg := textMessage("/start")
	msg.FirstName = "<Ali & Sons>"

	require.NoError(t, f.handler.Handle(context.Background(), msg))

	require.NotEmpty(t, f.sender.sent)
	text := f.sender.sent[0].Text
	assert.Equal(t, telegram.ParseModeHTML, f.sender.sent[0].ParseMode)
	assert.Contains(t, text, "&lt;Ali &amp; Sons&gt;")
	assert.NotContains(t, text, "<Ali")
}

func TestHandler_StoredLanguageWins(t *testing.T) {
	f := setupHandler(t, nil)
	ctx := context.Background()

	_, err := f.users.GetOrCreate(ctx, service.TelegramProfile{TelegramID: 100, FirstName: "Layla", LanguageCode: "ar"})
	require.NoError(t, err)

	require.NoError(t, f.handler.Handle(ctx, textMessage("/help")))
	require.Len(t, f.sender.sent, 1)
	assert.Equal(t, i18n.T("help_message", "ar", nil), f.sender.sent[0].Text)
	assert.Equal(t, HelpMenu("ar"), f.sender.sent[0].ReplyMarkup)
}

func TestHandler_Commands(t *testing.T) {
	tests := []struct {
		command string
		text    string
		markup  *telegram.InlineKeyboardMarkup
	}{
		{"/language", i18n.T("choose_language", "en", nil), LanguageSelection()},
		{"/procedures", i18n.T("procedures_menu", "en", nil), ProceduresMenu("en")},
		{"/about", i18n.T("about_message", "en", nil), MainMenu("en")},
		{"/help@AhrieBot", i18n.T("help_message", "en", nil), HelpMenu("en")},
		{"/unknown", i18n.T("unknown_command", "en", nil), nil},
	}
	for _, tt := range tests {
		t.Run(tt.command, func(t *testing.T) {
			f := setupHandler(t, nil)
			require.NoError(t, f.handler.Handle(context.Background(), textMessage(tt.command)))
			require.Len(t, f.sender.sent, 1)
			assert.Equal(t, tt.text, f.sender.sent[0].Text)
			assert.Equal(t, tt.markup, f.sender.sent[0].ReplyMarkup)
		})
	}
}

func TestHandler_ClinicsCommand(t *testing.T) {
	f := setupHandler(t, nil)
	require.NoError(t, f.handler.Handle(context.Background(), textMessage("/clinics")))

	require.Len(t, f.sender.sent, 1)
	msg := f.sender.sent[0]
	assert.Contains(t, msg.Text, i18n.T("clinics_list", "en", nil))
	assert.Contains(t, msg.Text, "Gangnam Beauty Clinic")
	assert.Contains(t, msg.Text, i18n.T("feature_female_staff", "en", nil))

	rows := msg.ReplyMarkup.InlineKeyboard
	require.Len(t, rows, 3)
	assert.Equal(t, fmt.Sprintf("clinic_%d", f.seed.Gangnam.ID), rows[0][0].CallbackData)
	assert.Equal(t, fmt.Sprintf("clinic_%d", f.seed.Myeongdong.ID), rows[1][0].CallbackData)
	assert.Equal(t, "back_main", rows[2][0].CallbackData)
}

func TestHandler_TextConversation(t *testing.T) {
	f := setupHandler(t, nil)
	ctx := context.Background()

	f.assistant.On("Process", mock.Anything, mock.MatchedBy(func(req agent.ProcessRequest) bool {
		return req.Message == "How much is rhinoplasty?" && len(req.History) == 0
	})).Return(&agent.Result{
		Content:    "Rhinoplasty costs $3,000-$8,000.",
		Metadata:   map[string]any{"response_type": agent.ResponseMedical, "agent": "Dr. Sarah Kim"},
		TokensUsed: 42,
	}, nil).Once()

	require.NoError(t, f.handler.Handle(ctx, textMessage("How much is rhinoplasty?")))

	assert.Equal(t, []string{telegram.ActionTyping}, f.sender.actions)
	require.Len(t, f.sender.sent, 1)
	assert.Equal(t, "Rhinoplasty costs $3,000-$8,000.", f.sender.sent[0].Text)
	assert.Equal(t, ContextKeyboard(agent.ResponseMedical, "en"), f.sender.sent[0].ReplyMarkup)
	assert.Contains(t, callbackData(f.sender.sent[0].ReplyMarkup), []string{"rate_1", "rate_2", "rate_3", "rate_4", "rate_5"})

	user, err := f.users.Get(ctx, 100)
	require.NoError(t, err)
	conv, err := f.conversations.GetOrCreateActive(ctx, user.ID, 555)
	require.NoError(t, err)
	msgs, err := f.conversations.RecentMessages(ctx, conv.ID, 10)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, models.RoleUser, msgs[0].Role)
	assert.Equal(t, models.RoleAssistant, msgs[1].Role)
	assert.Equal(t, 42, msgs[1].TokensUsed)
	assert.Equal(t, "Dr. Sarah Kim", msgs[1].Metadata["agent"])

	// The follow-up carries the stored exchange as history.
	f.assistant.On("Process", mock.Anything, mock.MatchedBy(func(req agent.ProcessRequest) bool {
		return req.Message == "And recovery?" && len(req.History) == 2 &&
			req.SessionID == agent.SessionID(100, 555) && req.Language == "en"
	})).Return(&agent.Result{Content: "About two weeks.", Metadata: map[string]any{}}, nil).Once()

	require.NoError(t, f.handler.Handle(ctx, textMessage("And recovery?")))
	require.Len(t, f.sender.sent, 2)
	assert.Nil(t, f.sender.sent[1].ReplyMarkup)
	f.assistant.AssertExpectations(t)
}

func TestHandler_TextProcessingError(t *testing.T) {
	f := setupHandler(t, nil)
	f.assistant.On("Process", mock.Anything, mock.Anything).Return(nil, errors.New("boom"))

	err := f.handler.Handle(context.Background(), textMessage("hello"))
	require.Error(t, err)

	require.Len(t, f.sender.sent, 1)
	assert.Equal(t, i18n.T("error_message", "en", nil), f.sender.sent[0].Text)
}

func TestHandler_IgnoresNonText(t *testing.T) {
	f := setupHandler(t, nil)
	data := textMessage("")
	data.MessageType = telegram.TypeOther

	require.NoError(t, f.handler.Handle(context.Background(), data))
	assert.Empty(t, f.sender.sent)
	f.assistant.AssertNotCalled(t, "Process", mock.Anything, mock.Anything)
}

func TestHandler_LanguageCallback(t *testing.T) {
	f := setupHandler(t, nil)
	ctx := context.Background()

	require.NoError(t, f.handler.Handle(ctx, callback("lang_ar")))

	assert.Equal(t, []string{"cb-1"}, f.sender.answered)
	edit := f.sender.lastEdit(t)
	assert.Equal(t, i18n.T("language_updated", "ar", nil), edit.Text)
	assert.Equal(t, MainMenu("ar"), edit.ReplyMarkup)
	assert.Equal(t, int64(11), edit.MessageID)

	user, err := f.users.Get(ctx, 100)
	require.NoError(t, err)
	assert.Equal(t, "ar", user.LanguageCode)
}

func TestHandler_UnsupportedLanguageCallback(t *testing.T) {
	f := setupHandler(t, nil)
	require.NoError(t, f.handler.Handle(context.Background(), callback("lang_fr")))

	edit := f.sender.lastEdit(t)
	assert.Equal(t, i18n.T("error_message", "en", nil), edit.Text)
	assert.Equal(t, LanguageSelection(), edit.ReplyMarkup)
}

func TestHandler_ProcedureCallback(t *testing.T) {
	f := setupHandler(t, nil)
	ctx := context.Background()

	f.assistant.On("ProcedureInfo", mock.Anything, "rhinoplasty", "en").Return("<b>Rhinoplasty</b>", nil)
	require.NoError(t, f.handler.Handle(ctx, callback("procedure_rhinoplasty")))
	edit := f.sender.lastEdit(t)
	assert.Equal(t, "<b>Rhinoplasty</b>", edit.Text)
	assert.Equal(t, BackButton("procedures", "en"), edit.ReplyMarkup)

	// Slugs that are not full names fall back to a catalog search.
	f.assistant.On("ProcedureInfo", mock.Anything, "double eyelid", "en").Return("", apperr.New(apperr.CodeNotFound, "procedure not found"))
	f.assistant.On("ProcedureInfo", mock.Anything, "Double Eyelid Surgery", "en").Return("<b>Double Eyelid Surgery</b>", nil)
	require.NoError(t, f.handler.Handle(ctx, callback("procedure_double_eyelid")))
	assert.Equal(t, "<b>Double Eyelid Surgery</b>", f.sender.lastEdit(t).Text)

	f.assistant.On("ProcedureInfo", mock.Anything, "facelift", "en").Return("", apperr.New(apperr.CodeNotFound, "procedure not found"))
	require.NoError(t, f.handler.Handle(ctx, callback("procedure_facelift")))
	assert.Equal(t, i18n.T("procedure_not_found", "en", nil), f.sender.lastEdit(t).Text)
}

func TestHandler_ClinicCallback(t *testing.T) {
	f := setupHandler(t, fakeImager{url: "https://cdn.example.com/gangnam.jpg"})
	ctx := context.Background()

	require.NoError(t, f.handler.Handle(ctx, callback(fmt.Sprintf("clinic_%d", f.seed.Gangnam.ID))))

	edit := f.sender.lastEdit(t)
	assert.Contains(t, edit.Text, "Gangnam Beauty Clinic")
	assert.Contains(t, edit.Text, i18n.T("feature_halal", "en", nil))
	assert.Equal(t, BackButton("clinics", "en"), edit.ReplyMarkup)

	require.Len(t, f.sender.photos, 1)
	assert.Equal(t, "https://cdn.example.com/gangnam.jpg", f.sender.photos[0].Photo)
	assert.Contains(t, f.sender.actions, telegram.ActionUploadPhoto)
}

func TestHandler_ClinicCallbackNotFound(t *testing.T) {
	f := setupHandler(t, nil)
	ctx := context.Background()

	for _, data := range []string{"clinic_9999", "clinic_abc"} {
		require.NoError(t, f.handler.Handle(ctx, callback(data)))
		assert.Equal(t, i18n.T("clinic_not_found", "en", nil), f.sender.lastEdit(t).Text)
	}
	assert.Empty(t, f.sender.photos)
}

func TestHandler_MenuCallbacks(t *testing.T) {
	tests := []struct {
		data     string
		contains string
		markup   *telegram.InlineKeyboardMarkup
	}{
		{"main_menu", i18n.T("main_menu", "en", nil), MainMenu("en")},
		{"back_main", i18n.T("main_menu", "en", nil), MainMenu("en")},
		{"menu_procedures", i18n.T("procedures_menu", "en", nil), ProceduresMenu("en")},
		{"menu_language", i18n.T("choose_language", "en", nil), LanguageSelection()},
		{"menu_help", i18n.T("help_message", "en", nil), HelpMenu("en")},
		{"menu_reviews", i18n.T("reviews_prompt", "en", nil), BackButton("main", "en")},
		{"start_consultation", i18n.T("consultation_prompt", "en", nil), BackButton("main", "en")},
		{"menu_halal", "Seoul Central Mosque", BackButton("main", "en")},
		{"something_else", i18n.T("main_menu", "en", nil), MainMenu("en")},
	}
	for _, tt := range tests {
		t.Run(tt.data, func(t *testing.T) {
			f := setupHandler(t, nil)
			require.NoError(t, f.handler.Handle(context.Background(), callback(tt.data)))
			edit := f.sender.lastEdit(t)
			assert.Contains(t, edit.Text, tt.contains)
			assert.Equal(t, tt.markup, edit.ReplyMarkup)
		})
	}
}

func TestHandler_RatingCallback(t *testing.T) {
	f := setupHandler(t, nil)
	ctx := context.Background()

	require.NoError(t, f.handler.Handle(ctx, callback("rate_4")))
	assert.Empty(t, f.sender.edits, "the rated answer stays in place")
	require.Len(t, f.sender.sent, 1)
	assert.Equal(t, i18n.T("rating_thanks", "en", map[string]any{"rating": "4"}), f.sender.sent[0].Text)
	assert.Equal(t, int64(555), f.sender.sent[0].ChatID)

	require.NoError(t, f.handler.Handle(ctx, callback("rate_9")))
	assert.Contains(t, f.sender.lastEdit(t).Text, i18n.T("main_menu", "en", nil))
	assert.Len(t, f.sender.sent, 1)
}

func TestHandler_FailedAnswerHasNoKeyboard(t *testing.T) {
	f := setupHandler(t, nil)
	f.assistant.On("Process", mock.Anything, mock.Anything).Return(&agent.Result{
		Content:  "I apologize, but I encountered an error. Please try again.",
		Metadata: map[string]any{"response_type": agent.ResponseMedical, "error": "model unavailable"},
	}, nil).Once()

	require.NoError(t, f.handler.Handle(context.Background(), textMessage("Is rhinoplasty safe?")))
	require.Len(t, f.sender.sent, 1)
	assert.Nil(t, f.sender.sent[0].ReplyMarkup)
}

func TestHandler_HalalFilters(t *testing.T) {
	f := setupHandler(t, nil)
	ctx := context.Background()

	require.NoError(t, f.handler.Handle(ctx, callback("halal_restaurants")))
	text := f.sender.lastEdit(t).Text
	assert.Contains(t, text, "Eid Halal Restaurant")
	assert.NotContains(t, text, "Seoul Central Mosque")

	require.NoError(t, f.handler.Handle(ctx, callback("find_mosques")))
	text = f.sender.lastEdit(t).Text
	assert.Contains(t, text, "Seoul Central Mosque")
	assert.NotContains(t, text, "Eid Halal Restaurant")
}

func TestFormatClinic(t *testing.T) {
	c := &models.Clinic{
		Name:               "Seoul <Best> Clinic",
		NameAr:             "عيادة سيول",
		District:           "Gangnam",
		Rating:             4.5,
		ReviewCount:        3000,
		LanguagesSupported: models.StringList{"en", "ko"},
	}

	en := FormatClinic(c, "en")
	assert.Contains(t, en, "Seoul &lt;Best&gt; Clinic")
	assert.Contains(t, en, "3,000")
	assert.Contains(t, en, "English, 한국어")
	assert.Contains(t, en, i18n.T("not_available", "en", nil))
	assert.NotContains(t, en, i18n.T("feature_halal", "en", nil))

	ar := FormatClinic(c, "ar")
	assert.Contains(t, ar, "عيادة سيول")
	assert.Contains(t, ar, "٣٠٠٠")
}
