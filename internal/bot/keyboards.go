package bot

import (
	"fmt"

	"github.com/ahrie-ai/backend/internal/agent"
	"github.com/ahrie-ai/backend/internal/telegram"
)

// Callback data sent by the keyboards.
const (
	CallbackMainMenu          = "main_menu"
	CallbackBackMain          = "back_main"
	CallbackMenuProcedures    = "menu_procedures"
	CallbackMenuClinics       = "menu_clinics"
	CallbackMenuReviews       = "menu_reviews"
	CallbackMenuHalal         = "menu_halal"
	CallbackMenuLanguage      = "menu_language"
	CallbackMenuHelp          = "menu_help"
	CallbackStartConsultation = "start_consultation"

	prefixLanguage  = "lang_"
	prefixProcedure = "procedure_"
	prefixClinic    = "clinic_"
	prefixRate      = "rate_"
	prefixBack      = "back_"
)

// label is a button caption in each supported language.
type label map[string]string

func (l label) in(lang string) string {
	if s, ok := l[lang]; ok {
		return s
	}
	return l["en"]
}

type button struct {
	text label
	data string
}

func markup(rows [][]button, lang string) *telegram.InlineKeyboardMarkup {
	kb := make([][]telegram.InlineKeyboardButton, 0, len(rows))
	for _, row := range rows {
		r := make([]telegram.InlineKeyboardButton, 0, len(row))
		for _, b := range row {
			r = append(r, telegram.InlineKeyboardButton{Text: b.text.in(lang), CallbackData: b.data})
		}
		kb = append(kb, r)
	}
	return &telegram.InlineKeyboardMarkup{InlineKeyboard: kb}
}

var backLabel = label{"en": "⬅️ Back", "ar": "⬅️ رجوع", "ko": "⬅️ 뒤로"}

var mainMenuRows = [][]button{
	{
		{label{"en": "🏥 Procedures", "ar": "🏥 العمليات", "ko": "🏥 시술"}, CallbackMenuProcedures},
		{label{"en": "🏨 Clinics", "ar": "🏨 العيادات", "ko": "🏨 클리닉"}, CallbackMenuClinics},
	},
	{
		{label{"en": "📹 Reviews", "ar": "📹 التقييمات", "ko": "📹 리뷰"}, CallbackMenuReviews},
		{label{"en": "🕌 Halal Guide", "ar": "🕌 دليل حلال", "ko": "🕌 할랄 가이드"}, CallbackMenuHalal},
	},
	{
		{label{"en": "💬 Start Consultation", "ar": "💬 ابدأ الاستشارة", "ko": "💬 상담 시작"}, CallbackStartConsultation},
	},
	{
		{label{"en": "🌐 Language", "ar": "🌐 اللغة", "ko": "🌐 언어"}, CallbackMenuLanguage},
		{label{"en": "ℹ️ Help", "ar": "ℹ️ مساعدة", "ko": "ℹ️ 도움말"}, CallbackMenuHelp},
	},
}

var procedureButtons = []button{
	{label{"en": "👃 Rhinoplasty", "ar": "👃 تجميل الأنف", "ko": "👃 코 성형"}, "procedure_rhinoplasty"},
	{label{"en": "👁️ Double Eyelid", "ar": "👁️ الجفن المزدوج", "ko": "👁️ 쌍꺼풀 수술"}, "procedure_double_eyelid"},
	{label{"en": "🦴 Facial Contouring", "ar": "🦴 نحت الوجه", "ko": "🦴 안면 윤곽술"}, "procedure_facial_contouring"},
	{label{"en": "💉 Fillers & Botox", "ar": "💉 الفيلر والبوتوكس", "ko": "💉 필러 & 보톡스"}, "procedure_fillers"},
	{label{"en": "🔄 Liposuction", "ar": "🔄 شفط الدهون", "ko": "🔄 지방흡입"}, "procedure_liposuction"},
	{label{"en": "😊 Face Lift", "ar": "😊 شد الوجه", "ko": "😊 안면 거상술"}, "procedure_facelift"},
}

var quickActionRows = [][]button{
	{
		{label{"en": "💰 Price Estimates", "ar": "💰 تقديرات الأسعار", "ko": "💰 가격 견적"}, "quick_prices"},
		{label{"en": "📅 Recovery Times", "ar": "📅 أوقات التعافي", "ko": "📅 회복 시간"}, "quick_recovery"},
	},
	{
		{label{"en": "🏆 Top Clinics", "ar": "🏆 أفضل العيادات", "ko": "🏆 최고 클리닉"}, "quick_top_clinics"},
		{label{"en": "📍 Locations", "ar": "📍 المواقع", "ko": "📍 위치"}, "quick_locations"},
	},
	{
		{label{"en": "🕌 Prayer Times", "ar": "🕌 أوقات الصلاة", "ko": "🕌 기도 시간"}, "quick_prayer"},
		{label{"en": "🍽️ Halal Food", "ar": "🍽️ طعام حلال", "ko": "🍽️ 할랄 음식"}, "quick_halal_food"},
	},
}

var helpButtons = []button{
	{label{"en": "📖 How to Use", "ar": "📖 كيفية الاستخدام", "ko": "📖 사용 방법"}, "help_how_to_use"},
	{label{"en": "❓ FAQs", "ar": "❓ الأسئلة الشائعة", "ko": "❓ 자주 묻는 질문"}, "help_faqs"},
	{label{"en": "📞 Contact Support", "ar": "📞 الدعم", "ko": "📞 지원 문의"}, "help_contact"},
	{label{"en": "🔒 Privacy Policy", "ar": "🔒 سياسة الخصوصية", "ko": "🔒 개인정보 정책"}, "help_privacy"},
	{label{"en": "📜 Terms of Service", "ar": "📜 شروط الخدمة", "ko": "📜 서비스 약관"}, "help_terms"},
}

var medicalActionRows = [][]button{
	{
		{label{"en": "📋 Book Consultation", "ar": "📋 حجز استشارة", "ko": "📋 상담 예약"}, "book_consultation"},
		{label{"en": "📸 Send Photos", "ar": "📸 إرسال صور", "ko": "📸 사진 보내기"}, "send_photos"},
	},
	{
		{label{"en": "💬 Ask Question", "ar": "💬 اسأل سؤال", "ko": "💬 질문하기"}, "ask_question"},
		{label{"en": "📄 Get Quote", "ar": "📄 احصل على عرض سعر", "ko": "📄 견적 받기"}, "get_quote"},
	},
}

var reviewActionRows = [][]button{
	{
		{label{"en": "🎥 Watch Videos", "ar": "🎥 مشاهدة الفيديوهات", "ko": "🎥 비디오 보기"}, "watch_videos"},
		{label{"en": "📊 See Statistics", "ar": "📊 عرض الإحصائيات", "ko": "📊 통계 보기"}, "see_statistics"},
	},
	{
		{label{"en": "🔍 Search More", "ar": "🔍 البحث عن المزيد", "ko": "🔍 더 검색하기"}, "search_more_reviews"},
	},
}

var culturalActionRows = [][]button{
	{
		{label{"en": "🕌 Find Mosques", "ar": "🕌 البحث عن مساجد", "ko": "🕌 모스크 찾기"}, "find_mosques"},
		{label{"en": "🍽️ Halal Restaurants", "ar": "🍽️ مطاعم حلال", "ko": "🍽️ 할랄 레스토랑"}, "halal_restaurants"},
	},
	{
		{label{"en": "🧕 Women's Guide", "ar": "🧕 دليل النساء", "ko": "🧕 여성 가이드"}, "womens_guide"},
		{label{"en": "📿 Prayer Times", "ar": "📿 أوقات الصلاة", "ko": "📿 기도 시간"}, "prayer_times"},
	},
}

// MainMenu is the top-level navigation keyboard.
func MainMenu(lang string) *telegram.InlineKeyboardMarkup {
	return markup(mainMenuRows, lang)
}

// ProceduresMenu lists popular procedures two per row, then a back button.
func ProceduresMenu(lang string) *telegram.InlineKeyboardMarkup {
	var rows [][]button
	for i := 0; i < len(procedureButtons); i += 2 {
		end := i + 2
		if end > len(procedureButtons) {
			end = len(procedureButtons)
		}
		rows = append(rows, procedureButtons[i:end])
	}
	rows = append(rows, []button{{backLabel, CallbackMainMenu}})
	return markup(rows, lang)
}

// QuickActions are shortcuts offered after /start.
func QuickActions(lang string) *telegram.InlineKeyboardMarkup {
	return markup(quickActionRows, lang)
}

// LanguageSelection offers the supported languages, each in its own script.
func LanguageSelection() *telegram.InlineKeyboardMarkup {
	return &telegram.InlineKeyboardMarkup{InlineKeyboard: [][]telegram.InlineKeyboardButton{{
		{Text: "🇸🇦 العربية", CallbackData: prefixLanguage + "ar"},
		{Text: "🇬🇧 English", CallbackData: prefixLanguage + "en"},
		{Text: "🇰🇷 한국어", CallbackData: prefixLanguage + "ko"},
	}}}
}

// HelpMenu lists help topics one per row, then a back button.
func HelpMenu(lang string) *telegram.InlineKeyboardMarkup {
	rows := make([][]button, 0, len(helpButtons)+1)
	for _, b := range helpButtons {
		rows = append(rows, []button{b})
	}
	rows = append(rows, []button{{backLabel, CallbackMainMenu}})
	return markup(rows, lang)
}

func MedicalActions(lang string) *telegram.InlineKeyboardMarkup {
	return markup(medicalActionRows, lang)
}

func ReviewActions(lang string) *telegram.InlineKeyboardMarkup {
	return markup(reviewActionRows, lang)
}

func CulturalActions(lang string) *telegram.InlineKeyboardMarkup {
	return markup(culturalActionRows, lang)
}

// BackButton returns to destination ("main", "procedures", "clinics").
func BackButton(destination, lang string) *telegram.InlineKeyboardMarkup {
	return markup([][]button{{{backLabel, prefixBack + destination}}}, lang)
}

// Rating is a one to five star keyboard.
func Rating() *telegram.InlineKeyboardMarkup {
	row := make([]telegram.InlineKeyboardButton, 0, 5)
	stars := ""
	for i := 1; i <= 5; i++ {
		stars += "⭐"
		row = append(row, telegram.InlineKeyboardButton{Text: stars, CallbackData: fmt.Sprintf("%s%d", prefixRate, i)})
	}
	return &telegram.InlineKeyboardMarkup{InlineKeyboard: [][]telegram.InlineKeyboardButton{row}}
}

// ContextKeyboard picks follow-up actions for an answer's response type.
// Medical answers also carry the rating row.
func ContextKeyboard(responseType, lang string) *telegram.InlineKeyboardMarkup {
	switch responseType {
	case agent.ResponseMedical:
		kb := MedicalActions(lang)
		kb.InlineKeyboard = append(kb.InlineKeyboard, Rating().InlineKeyboard...)
		return kb
	case agent.ResponseReview:
		return ReviewActions(lang)
	case agent.ResponseCultural:
		return CulturalActions(lang)
	}
	return nil
}
