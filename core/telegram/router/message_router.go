package router

import (
	tele "gopkg.in/telebot.v4"

	tg "github.com/m3rciful/quotebot/core/telegram"
	"github.com/m3rciful/quotebot/core/telegram/middleware"
)

// FSM is the subset of a dialog manager the text router needs.
type FSM interface {
	InProgress(userID int64) bool
	ManagerHandler(c tele.Context) error
}

// TextOptions controls fallback behaviour for text updates.
type TextOptions struct {
	UnknownText tele.HandlerFunc
	// AdminID and OnAdminReject guard admin-only commands reached via lookup.
	AdminID       int64
	OnAdminReject tele.HandlerFunc
}

// TextRoutes routes free text. Active dialogs win, then command lookups that
// telebot's exact matcher missed (aliases, mixed case), then fallbacks.
func TextRoutes(fsm FSM, reg *tg.Registry, opts TextOptions) []tg.Route {
	admin := middleware.AdminOnlyMiddleware(middleware.AdminOptions{
		AdminID:  opts.AdminID,
		OnReject: opts.OnAdminReject,
	})
	handler := func(c tele.Context) error {
		text := c.Text()
		if reg != nil && len(text) > 0 && text[0] == '/' {
			if key, cmd, ok := reg.LookupCommand(text); ok {
				h := cmd.Handler
				if cmd.AdminOnly {
					h = admin(h)
				}
				return handleWithSummary(c, normalizeHandlerName(key), func() error {
					return h(c)
				})
			}
		}

		if sender := c.Sender(); fsm != nil && sender != nil && fsm.InProgress(sender.ID) {
			return handleWithSummary(c, "fsm", func() error {
				return fsm.ManagerHandler(c)
			})
		}

		fb := opts.UnknownText
		if reg != nil && reg.TextFallback() != nil {
			fb = reg.TextFallback()
		}
		if fb == nil {
			return nil
		}
		return handleWithSummary(c, "unknown_text", func() error { return fb(c) })
	}
	return []tg.Route{{Endpoint: tele.OnText, Handler: handler}}
}

// InlineRoute binds the inline query handler.
func InlineRoute(h tele.HandlerFunc) tg.Route {
	return tg.Route{
		Endpoint: tele.OnQuery,
		Handler: func(c tele.Context) error {
			return handleWithSummary(c, "inline_query", func() error { return h(c) })
		},
	}
}
