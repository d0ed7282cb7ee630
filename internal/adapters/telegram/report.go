package telegram

import (
	"fmt"
	"html"
	"strings"

	"superloja-social/internal/domain"
)

var platformEmoji = map[domain.Platform]string{
	domain.PlatformFacebook:  "📘",
	domain.PlatformInstagram: "📸",
}

// FormatRunReport формирует HTML-отчёт о неудачных постах запуска.
// Пустая строка означает, что сообщать не о чем.
func FormatRunReport(action domain.RunAction, summary domain.RunSummary) string {
	failed := summary.Failed()
	if len(failed) == 0 {
		return ""
	}
	var b strings.Builder
	fmt.Fprintf(&b, "⚠️ <b>SuperLoja: ошибки публикации</b>\nДействие: <code>%s</code>\n", html.EscapeString(string(action)))
	fmt.Fprintf(&b, "Обработано: %d, с ошибкой: %d\n", summary.Processed, len(failed))
	for _, r := range failed {
		emoji := platformEmoji[r.Platform]
		if emoji == "" {
			emoji = "•"
		}
		fmt.Fprintf(&b, "\n%s <code>%s</code> (%s)\n", emoji, r.PostID, html.EscapeString(string(r.Platform)))
		if msg := strings.TrimSpace(r.Error); msg != "" {
			b.WriteString(html.EscapeString(msg) + "\n")
		}
	}
	return strings.TrimSpace(b.String())
}
