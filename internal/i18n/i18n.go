// Package i18n serves the bot's interface strings in English, Arabic and Korean.
package i18n

import (
	"embed"
	"encoding/json"
	"fmt"
	"path"
	"sort"
	"strconv"
	"strings"
	"sync"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// DefaultLanguage is used for unsupported languages and missing keys.
const DefaultLanguage = "en"

// Supported lists the bundled locales.
var Supported = []string{"en", "ar", "ko"}

//go:embed locales/*.json
var locales embed.FS

var (
	rtlLanguages = map[string]bool{"ar": true, "he": true, "fa": true, "ur": true}

	languageNames = map[string]string{
		"en": "English",
		"ar": "العربية",
		"ko": "한국어",
	}

	currencySymbols = map[string]string{
		"USD": "$",
		"KRW": "₩",
		"SAR": "ر.س",
		"AED": "د.إ",
	}

	easternArabic = strings.NewReplacer(
		"0", "٠", "1", "١", "2", "٢", "3", "٣", "4", "٤",
		"5", "٥", "6", "٦", "7", "٧", "8", "٨", "9", "٩",
	)

	latinPrinter = message.NewPrinter(language.English)
)

// Catalog holds the messages for every supported language.
type Catalog struct {
	mu       sync.RWMutex
	messages map[string]map[string]string
}

// Load reads the embedded locale files.
func Load() (*Catalog, error) {
	c := &Catalog{messages: make(map[string]map[string]string, len(Supported))}
	for _, lang := range Supported {
		data, err := locales.ReadFile(path.Join("locales", lang+".json"))
		if err != nil {
			return nil, fmt.Errorf("read %s locale: %w", lang, err)
		}
		msgs := map[string]string{}
		if err := json.Unmarshal(data, &msgs); err != nil {
			return nil, fmt.Errorf("parse %s locale: %w", lang, err)
		}
		c.messages[lang] = msgs
	}
	return c, nil
}

var (
	defaultOnce    sync.Once
	defaultCatalog *Catalog
)

// Default returns the process-wide catalog built from the embedded locales.
func Default() *Catalog {
	defaultOnce.Do(func() {
		c, err := Load()
		if err != nil {
			panic(err)
		}
		defaultCatalog = c
	})
	return defaultCatalog
}

// T translates key with the default catalog.
func T(key, lang string, args map[string]any) string {
	return Default().Translate(key, lang, args)
}

// Translate returns the message for key in lang, falling back to English and
// then to the key itself. {placeholders} are replaced from args.
func (c *Catalog) Translate(key, lang string, args map[string]any) string {
	if !IsSupported(lang) {
		lang = DefaultLanguage
	}

	c.mu.RLock()
	text := c.messages[lang][key]
	if text == "" && lang != DefaultLanguage {
		text = c.messages[DefaultLanguage][key]
	}
	c.mu.RUnlock()

	if text == "" {
		return key
	}
	if len(args) == 0 {
		return text
	}

	pairs := make([]string, 0, len(args)*2)
	for k, v := range args {
		pairs = append(pairs, "{"+k+"}", fmt.Sprint(v))
	}
	return strings.NewReplacer(pairs...).Replace(text)
}

// AvailableKeys lists the keys defined for lang, sorted.
func (c *Catalog) AvailableKeys(lang string) []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	keys := make([]string, 0, len(c.messages[lang]))
	for k := range c.messages[lang] {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// AddTranslation registers key for the supported languages in texts. Other languages are ignored.
func (c *Catalog) AddTranslation(key string, texts map[string]string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for lang, text := range texts {
		if !IsSupported(lang) {
			continue
		}
		if c.messages[lang] == nil {
			c.messages[lang] = map[string]string{}
		}
		c.messages[lang][key] = text
	}
}

// MissingTranslations maps each language to the keys other languages define but it does not.
func (c *Catalog) MissingTranslations() map[string][]string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	all := map[string]struct{}{}
	for _, msgs := range c.messages {
		for k := range msgs {
			all[k] = struct{}{}
		}
	}

	missing := map[string][]string{}
	for _, lang := range Supported {
		for k := range all {
			if _, ok := c.messages[lang][k]; !ok {
				missing[lang] = append(missing[lang], k)
			}
		}
		sort.Strings(missing[lang])
	}
	for lang, keys := range missing {
		if len(keys) == 0 {
			delete(missing, lang)
		}
	}
	return missing
}

// IsSupported reports whether lang has a bundled locale.
func IsSupported(lang string) bool {
	for _, l := range Supported {
		if l == lang {
			return true
		}
	}
	return false
}

// LanguageName returns the language's own name for code, or code itself.
func LanguageName(code string) string {
	if name, ok := languageNames[code]; ok {
		return name
	}
	return code
}

// IsRTL reports whether code is written right to left.
func IsRTL(code string) bool {
	return rtlLanguages[code]
}

// Direction returns "rtl" or "ltr" for use in markup.
func Direction(code string) string {
	if IsRTL(code) {
		return "rtl"
	}
	return "ltr"
}

// FormatNumber uses Eastern Arabic digits for ar and thousands separators otherwise.
func FormatNumber(n float64, lang string) string {
	if lang == "ar" {
		return easternArabic.Replace(strconv.FormatFloat(n, 'f', -1, 64))
	}
	return latinPrinter.Sprint(number.Decimal(n))
}

// FormatCurrency places the symbol after the amount for ar and before it otherwise.
func FormatCurrency(amount float64, currency, lang string) string {
	symbol, ok := currencySymbols[currency]
	if !ok {
		symbol = currency
	}
	if lang == "ar" {
		return FormatNumber(amount, lang) + " " + symbol
	}
	return symbol + FormatNumber(amount, lang)
}

// DetectLanguage maps a Telegram language_code onto a supported language.
func DetectLanguage(telegramCode string) string {
	code := strings.ToLower(telegramCode)
	switch {
	case strings.HasPrefix(code, "ar"):
		return "ar"
	case strings.HasPrefix(code, "ko"):
		return "ko"
	default:
		return DefaultLanguage
	}
}

// DetectScript guesses the language of text from its script.
func DetectScript(text string) string {
	hasHangul := false
	for _, r := range text {
		switch {
		case r >= 0x0600 && r <= 0x06FF:
			return "ar"
		case r >= 0xAC00 && r <= 0xD7AF:
			hasHangul = true
		}
	}
	if hasHangul {
		return "ko"
	}
	return DefaultLanguage
}
