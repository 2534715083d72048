package i18n

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalesAreComplete(t *testing.T) {
	c, err := Load()
	require.NoError(t, err)
	assert.Empty(t, c.MissingTranslations())
	assert.Contains(t, c.AvailableKeys("ar"), "welcome_message")
}

func TestTranslate(t *testing.T) {
	c, err := Load()
	require.NoError(t, err)

	assert.Contains(t, c.Translate("welcome_message", "en", map[string]any{"name": "Amina"}), "Amina")
	assert.Contains(t, c.Translate("welcome_message", "ar", map[string]any{"name": "أمينة"}), "أمينة")
	assert.Equal(t, "✅ 언어가 한국어로 설정되었습니다.", c.Translate("language_updated", "ko", nil))

	assert.Equal(t, c.Translate("main_menu", "en", nil), c.Translate("main_menu", "fr", nil), "unsupported language falls back to en")
	assert.Equal(t, "no_such_key", c.Translate("no_such_key", "ar", nil))
}

func TestTranslateFallsBackToEnglishKey(t *testing.T) {
	c, err := Load()
	require.NoError(t, err)

	c.AddTranslation("only_english", map[string]string{"en": "Only {what}", "fr": "ignored"})
	assert.Equal(t, "Only English", c.Translate("only_english", "ko", map[string]any{"what": "English"}))

	missing := c.MissingTranslations()
	assert.Equal(t, []string{"only_english"}, missing["ar"])
	assert.Equal(t, []string{"only_english"}, missing["ko"])
	assert.NotContains(t, missing, "en")
	assert.NotContains(t, missing, "fr")
}

func TestDirectionAndNames(t *testing.T) {
	assert.True(t, IsRTL("ar"))
	assert.True(t, IsRTL("fa"))
	assert.False(t, IsRTL("ko"))
	assert.Equal(t, "rtl", Direction("ur"))
	assert.Equal(t, "ltr", Direction("en"))
	assert.Equal(t, "العربية", LanguageName("ar"))
	assert.Equal(t, "de", LanguageName("de"))
}

func TestFormatNumber(t *testing.T) {
	assert.Equal(t, "١٢٣٤٥", FormatNumber(12345, "ar"))
	assert.Equal(t, "1,234,567", FormatNumber(1234567, "en"))
	assert.Equal(t, "1,500", FormatNumber(1500, "ko"))
}

func TestFormatCurrency(t *testing.T) {
	assert.Equal(t, "$3,000", FormatCurrency(3000, "USD", "en"))
	assert.Equal(t, "₩1,500,000", FormatCurrency(1500000, "KRW", "ko"))
	assert.Equal(t, "٥٠٠ ر.س", FormatCurrency(500, "SAR", "ar"))
	assert.Equal(t, "EUR10", FormatCurrency(10, "EUR", "en"))
}

func TestDetectLanguage(t *testing.T) {
	assert.Equal(t, "ar", DetectLanguage("ar-SA"))
	assert.Equal(t, "ko", DetectLanguage("ko"))
	assert.Equal(t, "en", DetectLanguage("en-GB"))
	assert.Equal(t, "en", DetectLanguage(""))
}

func TestDetectScript(t *testing.T) {
	assert.Equal(t, "ar", DetectScript("أريد عملية تجميل الأنف"))
	assert.Equal(t, "ko", DetectScript("코 성형 가격"))
	assert.Equal(t, "en", DetectScript("rhinoplasty price"))
}
