// Package ui holds small builders for Telegram result objects.
package ui

import tele "gopkg.in/telebot.v4"

// NewArticleResult creates an inline ArticleResult whose message uses parseMode.
func NewArticleResult(id, title, description, text string, parseMode tele.ParseMode) *tele.ArticleResult {
	result := &tele.ArticleResult{
		Title:       title,
		Description: description,
		Text:        text,
	}
	result.SetResultID(id)
	result.SetContent(&tele.InputTextMessageContent{Text: text, ParseMode: parseMode})
	return result
}
