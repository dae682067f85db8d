package handlers

import (
	"errors"
	"fmt"
	"strings"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/quotebot/bot/market"
	"github.com/m3rciful/quotebot/bot/render"
	"github.com/m3rciful/quotebot/core/buildinfo"
	"github.com/m3rciful/quotebot/core/telegram/callbacks"
	tghelpers "github.com/m3rciful/quotebot/core/telegram/helpers"
	"github.com/m3rciful/quotebot/core/telegram/keyboard"
)

// Start handles /start.
func (h *Handlers) Start(c tele.Context) error {
	ctx, cancel := h.context(c)
	defer cancel()
	u, err := h.user(ctx, c)
	if err != nil {
		return err
	}
	name := u.Username
	if name == "" {
		name = "there"
	}
	return tghelpers.SendText(c, fmt.Sprintf("Hi %s! I track crypto and stock prices.\n\n%s", name, h.helpText()))
}

// Help handles /help.
func (h *Handlers) Help(c tele.Context) error {
	return tghelpers.SendText(c, h.helpText())
}

func (h *Handlers) helpText() string {
	if h.reg == nil {
		return ""
	}
	all := h.reg.Commands()
	var b strings.Builder
	b.WriteString("Commands:")
	for _, cmd := range h.reg.ListCommands(true) {
		fmt.Fprintf(&b, "\n%s - %s", all["/"+cmd.Text].Synopsis(cmd.Text), cmd.Description)
	}
	b.WriteString("\n\nInline: type @bot SYMBOL in any chat.")
	return b.String()
}

func intervalKeyboard(current string) *tele.ReplyMarkup {
	btns := make([]keyboard.InlineBtn, 0, len(market.Intervals))
	for _, iv := range market.Intervals {
		text := iv
		if iv == current {
			text = "• " + iv
		}
		btns = append(btns, keyboard.InlineBtn{Text: text, Unique: CbInterval, Data: iv})
	}
	return keyboard.InlineButtonsNPerRow(btns, 4)
}

// Interval handles /interval [INTERVAL].
func (h *Handlers) Interval(c tele.Context) error {
	a := args(c)
	if len(a) > 1 {
		return h.usage(c, "/interval")
	}
	ctx, cancel := h.context(c)
	defer cancel()
	u, err := h.user(ctx, c)
	if err != nil {
		return err
	}
	if len(a) == 0 {
		cur := h.Users.Interval(u)
		return tghelpers.SendText(c, fmt.Sprintf("Default interval: %s", cur), intervalKeyboard(cur))
	}
	iv, err := h.Users.SetDefaultInterval(ctx, u, a[0])
	if err != nil {
		return h.fail(c, err)
	}
	return tghelpers.SendText(c, fmt.Sprintf("Default interval set to %s.", iv))
}

// IntervalCallback applies an interval button.
func (h *Handlers) IntervalCallback(c tele.Context) error {
	ctx, cancel := h.context(c)
	defer cancel()
	u, err := h.user(ctx, c)
	if err != nil {
		return err
	}
	iv, err := h.Users.SetDefaultInterval(ctx, u, callbacks.Payload(c))
	if err != nil {
		return h.fail(c, err)
	}
	if err := c.Edit(fmt.Sprintf("Default interval: %s", iv), intervalKeyboard(iv)); err != nil &&
		!errors.Is(err, tele.ErrSameMessageContent) {
		return err
	}
	return c.Respond(&tele.CallbackResponse{Text: "Saved"})
}

// Stats handles /stats for the admin.
func (h *Handlers) Stats(c tele.Context) error {
	ctx, cancel := h.context(c)
	defer cancel()
	users, err := h.Users.Count(ctx)
	if err != nil {
		return h.fail(c, err)
	}
	st, err := h.Alerts.Stats(ctx)
	if err != nil {
		return h.fail(c, err)
	}
	return tghelpers.SendMDV2(c, render.StatsText(render.Stats{
		Users:          users,
		Alerts:         st,
		DispatchErrors: h.DispatchErrors(),
		Version:        buildinfo.String(),
	}))
}
