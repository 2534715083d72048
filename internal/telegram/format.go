package telegram

import "strings"

var htmlEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")

// EscapeHTML escapes s for a message sent with ParseModeHTML.
func EscapeHTML(s string) string {
	return htmlEscaper.Replace(s)
}
