package handlers

import (
	"fmt"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/quotebot/bot/render"
	tghelpers "github.com/m3rciful/quotebot/core/telegram/helpers"
)

// Watch handles /watch SYMBOL.
func (h *Handlers) Watch(c tele.Context) error {
	a := args(c)
	if len(a) != 1 {
		return h.usage(c, "/watch")
	}
	ctx, cancel := h.context(c)
	defer cancel()
	u, err := h.user(ctx, c)
	if err != nil {
		return err
	}
	sym, err := h.Watchlist.Add(ctx, u.ID, a[0])
	if err != nil {
		return h.fail(c, err)
	}
	return tghelpers.SendText(c, fmt.Sprintf("%s added to your watchlist.", sym))
}

// Unwatch handles /unwatch SYMBOL.
func (h *Handlers) Unwatch(c tele.Context) error {
	a := args(c)
	if len(a) != 1 {
		return h.usage(c, "/unwatch")
	}
	ctx, cancel := h.context(c)
	defer cancel()
	u, err := h.user(ctx, c)
	if err != nil {
		return err
	}
	sym, err := h.Watchlist.Remove(ctx, u.ID, a[0])
	if err != nil {
		return h.fail(c, err)
	}
	return tghelpers.SendText(c, fmt.Sprintf("%s removed from your watchlist.", sym))
}

// WatchlistCmd handles /watchlist.
func (h *Handlers) WatchlistCmd(c tele.Context) error {
	ctx, cancel := h.context(c)
	defer cancel()
	u, err := h.user(ctx, c)
	if err != nil {
		return err
	}
	rows, err := h.Watchlist.Prices(ctx, u.ID)
	if err != nil {
		return h.fail(c, err)
	}
	return tghelpers.SendMDV2(c, render.Watchlist(rows))
}
