package bot

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrie-ai/backend/internal/agent"
	"github.com/ahrie-ai/backend/internal/telegram"
)

func callbackData(kb *telegram.InlineKeyboardMarkup) [][]string {
	out := make([][]string, 0, len(kb.InlineKeyboard))
	for _, row := range kb.InlineKeyboard {
		r := make([]string, 0, len(row))
		for _, b := range row {
			r = append(r, b.CallbackData)
		}
		out = append(out, r)
	}
	return out
}

func TestMainMenu(t *testing.T) {
	assert.Equal(t, [][]string{
		{"menu_procedures", "menu_clinics"},
		{"menu_reviews", "menu_halal"},
		{"start_consultation"},
		{"menu_language", "menu_help"},
	}, callbackData(MainMenu("en")))

	assert.Equal(t, "🏥 Procedures", MainMenu("en").InlineKeyboard[0][0].Text)
	assert.Equal(t, "🏥 العمليات", MainMenu("ar").InlineKeyboard[0][0].Text)
	assert.Equal(t, "🏥 시술", MainMenu("ko").InlineKeyboard[0][0].Text)
	assert.Equal(t, "🏥 Procedures", MainMenu("fr").InlineKeyboard[0][0].Text)
}

func TestProceduresMenu(t *testing.T) {
	kb := ProceduresMenu("ko")
	require.Len(t, kb.InlineKeyboard, 4)
	for _, row := range kb.InlineKeyboard[:3] {
		assert.Len(t, row, 2)
	}
	back := kb.InlineKeyboard[3]
	require.Len(t, back, 1)
	assert.Equal(t, "⬅️ 뒤로", back[0].Text)
	assert.Equal(t, CallbackMainMenu, back[0].CallbackData)
	assert.Equal(t, "procedure_rhinoplasty", kb.InlineKeyboard[0][0].CallbackData)
}

func TestLanguageSelection(t *testing.T) {
	assert.Equal(t, [][]string{{"lang_ar", "lang_en", "lang_ko"}}, callbackData(LanguageSelection()))
}

func TestHelpMenu(t *testing.T) {
	kb := HelpMenu("ar")
	require.Len(t, kb.InlineKeyboard, 6)
	assert.Equal(t, "help_how_to_use", kb.InlineKeyboard[0][0].CallbackData)
	assert.Equal(t, "⬅️ رجوع", kb.InlineKeyboard[5][0].Text)
}

func TestBackButton(t *testing.T) {
	assert.Equal(t, [][]string{{"back_clinics"}}, callbackData(BackButton("clinics", "en")))
	assert.Equal(t, "⬅️ 뒤로", BackButton("main", "ko").InlineKeyboard[0][0].Text)
}

func TestRating(t *testing.T) {
	row := Rating().InlineKeyboard[0]
	require.Len(t, row, 5)
	assert.Equal(t, "⭐", row[0].Text)
	assert.Equal(t, "⭐⭐⭐⭐⭐", row[4].Text)
	assert.Equal(t, "rate_5", row[4].CallbackData)
}

func TestContextKeyboard(t *testing.T) {
	medical := ContextKeyboard(agent.ResponseMedical, "en")
	actions := MedicalActions("en").InlineKeyboard
	require.Len(t, medical.InlineKeyboard, len(actions)+1)
	assert.Equal(t, actions, medical.InlineKeyboard[:len(actions)])
	assert.Equal(t, Rating().InlineKeyboard[0], medical.InlineKeyboard[len(actions)])
	assert.Equal(t, ReviewActions("ar"), ContextKeyboard(agent.ResponseReview, "ar"))
	assert.Equal(t, CulturalActions("ko"), ContextKeyboard(agent.ResponseCultural, "ko"))
	assert.Nil(t, ContextKeyboard(agent.ResponseGeneral, "en"))

	assert.Equal(t, [][]string{
		{"find_mosques", "halal_restaurants"},
		{"womens_guide", "prayer_times"},
	}, callbackData(CulturalActions("en")))
}
