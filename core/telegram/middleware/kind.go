package middleware

import (
	tele "gopkg.in/telebot.v4"

	coreconfig "github.com/m3rciful/quotebot/core/config"
)

// UpdateKind classifies an update for rate limiting and metrics.
func UpdateKind(upd tele.Update) string {
	switch {
	case upd.Callback != nil:
		return coreconfig.UpdateCallback
	case upd.Query != nil:
		return coreconfig.UpdateInlineQuery
	case upd.Message != nil:
		return coreconfig.UpdateMessage
	default:
		return "other"
	}
}
