// Package handlers implements the quotebot Telegram surface.
package handlers

import (
	"context"
	"errors"
	"strings"
	"time"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/quotebot/bot/service"
	"github.com/m3rciful/quotebot/bot/storage"
	tg "github.com/m3rciful/quotebot/core/telegram"
	"github.com/m3rciful/quotebot/core/telegram/commands"
	tghelpers "github.com/m3rciful/quotebot/core/telegram/helpers"
	"github.com/m3rciful/quotebot/core/telegram/state"
	"github.com/m3rciful/quotebot/core/telegram/ui"
)

// Callback keys.
const (
	CbPrice     = "price"
	CbTA        = "ta"
	CbAlertDel  = "alert_del"
	CbAlertCond = "alert_cond"
	CbInterval  = "interval"
)

// Dialog states of /alert.
const (
	StateAlertSymbol    state.State = "alert_symbol"
	StateAlertCondition state.State = "alert_condition"
	StateAlertTarget    state.State = "alert_target"
)

const requestTimeout = 20 * time.Second

var errNoSender = errors.New("update has no sender")

// Deps are the services the handlers call.
type Deps struct {
	Users     *service.Users
	Quotes    *service.Quotes
	Watchlist *service.Watchlist
	Alerts    *service.Alerts
	FSM       state.Manager
	// DispatchErrors reports failed outbound sends for /stats.
	DispatchErrors func() uint64
}

// Handlers holds bot handlers and the registry they are bound to.
type Handlers struct {
	Deps
	reg *tg.Registry
}

// New returns handlers over d. A nil FSM gets an in-memory manager.
func New(d Deps) *Handlers {
	if d.FSM == nil {
		d.FSM = state.NewMemoryManager(state.WithTTL(15 * time.Minute))
	}
	if d.DispatchErrors == nil {
		d.DispatchErrors = func() uint64 { return 0 }
	}
	return &Handlers{Deps: d}
}

// Register adds commands, callbacks, dialog states and fallbacks to reg.
func (h *Handlers) Register(reg *tg.Registry) error {
	h.reg = reg
	cmds := map[string]commands.Command{
		"/start":     {Handler: h.Start, Description: "Start the bot"},
		"/help":      {Handler: h.Help, Description: "List commands"},
		"/price":     {Handler: h.Price, Description: "Latest price", Usage: "SYMBOL", Aliases: []string{"p"}},
		"/ta":        {Handler: h.TA, Description: "Technical analysis", Usage: "SYMBOL [INTERVAL]"},
		"/candles":   {Handler: h.Candles, Description: "Recent candles", Usage: "SYMBOL [INTERVAL] [N]"},
		"/watch":     {Handler: h.Watch, Description: "Add to watchlist", Usage: "SYMBOL"},
		"/unwatch":   {Handler: h.Unwatch, Description: "Remove from watchlist", Usage: "SYMBOL"},
		"/watchlist": {Handler: h.WatchlistCmd, Description: "Watchlist prices", Aliases: []string{"wl"}},
		"/alert":     {Handler: h.Alert, Description: "Create a price alert", Usage: "SYMBOL above|below PRICE"},
		"/alerts":    {Handler: h.AlertsCmd, Description: "Your alerts"},
		"/delalert":  {Handler: h.DelAlert, Description: "Delete an alert", Usage: "ID"},
		"/cancel":    {Handler: h.Cancel, Description: "Cancel the current dialog"},
		"/interval":  {Handler: h.Interval, Description: "Default interval", Usage: "[INTERVAL]"},
		"/stats":     {Handler: h.Stats, Description: "Bot statistics", AdminOnly: true},
	}
	for name, cmd := range cmds {
		if err := reg.RegisterCommand(name, cmd); err != nil {
			return err
		}
	}

	cbs := map[string]tele.HandlerFunc{
		CbPrice:     h.PriceCallback,
		CbTA:        h.TACallback,
		CbAlertDel:  h.AlertDeleteCallback,
		CbAlertCond: h.AlertConditionCallback,
		CbInterval:  h.IntervalCallback,
	}
	for key, cb := range cbs {
		if err := reg.RegisterCallback(key, cb); err != nil {
			return err
		}
	}

	h.FSM.Handle(StateAlertSymbol, h.alertSymbolStep)
	h.FSM.Handle(StateAlertCondition, h.alertConditionStep)
	h.FSM.Handle(StateAlertTarget, h.alertTargetStep)

	ui.InstallFallbacks(reg, h)
	return nil
}

// UnknownText answers text that matched no command or dialog.
func (h *Handlers) UnknownText() tele.HandlerFunc {
	return func(c tele.Context) error {
		return tghelpers.SendText(c, "I don't know that one. Send /help for the command list.")
	}
}

// UnknownCallback answers stale or foreign buttons.
func (h *Handlers) UnknownCallback() tele.HandlerFunc {
	return func(c tele.Context) error {
		return c.Respond(&tele.CallbackResponse{Text: "Unsupported action"})
	}
}

// RateLimited is shown when the per-user limiter drops an update.
func (h *Handlers) RateLimited(c tele.Context) error {
	if c.Callback() != nil {
		return c.Respond(&tele.CallbackResponse{Text: "Slow down a little"})
	}
	return tghelpers.SendText(c, "Too many requests, please wait a moment.")
}

// AdminOnly is shown to non-admins calling admin commands.
func (h *Handlers) AdminOnly(c tele.Context) error {
	return tghelpers.SendText(c, "This command is for the bot admin only.")
}

func (h *Handlers) context(c tele.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(tghelpers.BuildContext(c), requestTimeout)
}

// user registers or refreshes the sender.
func (h *Handlers) user(ctx context.Context, c tele.Context) (storage.User, error) {
	s := c.Sender()
	if s == nil {
		return storage.User{}, errNoSender
	}
	return h.Users.Ensure(ctx, service.Profile{
		TelegramID:   s.ID,
		Username:     s.Username,
		LanguageCode: s.LanguageCode,
	})
}

// fail shows the user facing text of err and returns err for the summary log.
func (h *Handlers) fail(c tele.Context, err error) error {
	if c.Callback() != nil {
		_ = c.Respond(&tele.CallbackResponse{Text: service.UserMessage(err)})
		return err
	}
	if sendErr := tghelpers.SendText(c, service.UserMessage(err)); sendErr != nil {
		return errors.Join(err, sendErr)
	}
	return err
}

func (h *Handlers) usage(c tele.Context, cmd string) error {
	var def commands.Command
	if h.reg != nil {
		_, def, _ = h.reg.LookupCommand(cmd)
	}
	return tghelpers.SendText(c, "Usage: "+def.Synopsis(cmd))
}

// args returns the words after the command in c's text.
func args(c tele.Context) []string {
	f := strings.Fields(c.Text())
	if len(f) > 0 && strings.HasPrefix(f[0], "/") {
		f = f[1:]
	}
	return f
}
