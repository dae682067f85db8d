// Package format escapes dynamic text for Telegram parse modes.
package format

import "strings"

var (
	mdV2Replacer = strings.NewReplacer(pairs("_*[]()~`>#+-=|{}.!\\")...)
	mdV2Code     = strings.NewReplacer("\\", "\\\\", "`", "\\`")
)

func pairs(chars string) []string {
	out := make([]string, 0, len(chars)*2)
	for _, r := range chars {
		out = append(out, string(r), "\\"+string(r))
	}
	return out
}

// EscapeMarkdownV2 escapes text outside of code entities.
func EscapeMarkdownV2(text string) string {
	return mdV2Replacer.Replace(text)
}

// CodeBlockV2 wraps text in a MarkdownV2 pre block.
func CodeBlockV2(text string) string {
	return "```\n" + mdV2Code.Replace(text) + "\n```"
}
