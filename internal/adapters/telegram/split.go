package telegram

import "strings"

// MessageLimit — максимальная длина сообщения Telegram в рунах.
const MessageLimit = 4096

// SplitMessage режет текст на части не длиннее limit рун.
// Разрез ищется по последнему переводу строки, чтобы HTML-блоки не рвались.
func SplitMessage(text string, limit int) []string {
	if limit <= 0 {
		limit = MessageLimit
	}
	rest := []rune(strings.TrimSpace(text))
	var parts []string
	for len(rest) > 0 {
		if len(rest) <= limit {
			parts = appendChunk(parts, rest)
			break
		}
		cut := limit
		for i := limit; i > 0; i-- {
			if rest[i-1] == '\n' {
				cut = i
				break
			}
		}
		parts = appendChunk(parts, rest[:cut])
		rest = []rune(strings.TrimLeft(string(rest[cut:]), "\n"))
	}
	return parts
}

func appendChunk(parts []string, chunk []rune) []string {
	if s := strings.Trim(string(chunk), "\n"); s != "" {
		return append(parts, s)
	}
	return parts
}
