package handlers

import (
	"fmt"
	"strconv"
	"strings"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/quotebot/bot/render"
	"github.com/m3rciful/quotebot/bot/service"
	"github.com/m3rciful/quotebot/bot/storage"
	"github.com/m3rciful/quotebot/core/telegram/callbacks"
	tghelpers "github.com/m3rciful/quotebot/core/telegram/helpers"
	"github.com/m3rciful/quotebot/core/telegram/keyboard"
	"github.com/m3rciful/quotebot/core/telegram/state"
)

const tempSymbol, tempCondition = "symbol", "condition"

func parseTarget(s string) (float64, bool) {
	v, err := strconv.ParseFloat(strings.ReplaceAll(strings.TrimSpace(s), ",", "."), 64)
	return v, err == nil && v > 0
}

func conditionKeyboard() *tele.ReplyMarkup {
	return keyboard.InlineButtonsRows([]keyboard.InlineBtn{
		{Text: "⬆ Above", Unique: CbAlertCond, Data: string(storage.Above)},
		{Text: "⬇ Below", Unique: CbAlertCond, Data: string(storage.Below)},
	})
}

// Alert handles /alert SYMBOL above|below PRICE, or starts the dialog
// when called without arguments.
func (h *Handlers) Alert(c tele.Context) error {
	a := args(c)
	switch len(a) {
	case 0:
		if c.Sender() == nil {
			return errNoSender
		}
		h.FSM.Clear(c.Sender().ID)
		h.FSM.SetState(c.Sender().ID, StateAlertSymbol)
		return tghelpers.SendText(c, "Which symbol? Send a ticker like BTCUSDT or AAPL. /cancel to stop.")
	case 3:
	default:
		return h.usage(c, "/alert")
	}
	cond, ok := storage.ParseCondition(strings.ToLower(a[1]))
	if !ok {
		return h.usage(c, "/alert")
	}
	target, ok := parseTarget(a[2])
	if !ok {
		return h.fail(c, &service.Error{Code: service.CodeInvalidArgument, Msg: "Target price must be a positive number."})
	}
	return h.createAlert(c, a[0], cond, target)
}

func (h *Handlers) createAlert(c tele.Context, symbol string, cond storage.Condition, target float64) error {
	ctx, cancel := h.context(c)
	defer cancel()
	u, err := h.user(ctx, c)
	if err != nil {
		return err
	}
	al, err := h.Alerts.Create(ctx, u.ID, symbol, cond, target)
	if err != nil {
		return h.fail(c, err)
	}
	return tghelpers.SendMDV2(c, render.AlertCreated(al))
}

func (h *Handlers) alertSymbolStep(c tele.Context) error {
	ctx, cancel := h.context(c)
	defer cancel()
	q, err := h.Quotes.Price(ctx, c.Text())
	if err != nil {
		return h.fail(c, err)
	}
	uid := c.Sender().ID
	h.FSM.SetTemp(uid, tempSymbol, q.Symbol)
	h.FSM.SetState(uid, StateAlertCondition)
	return tghelpers.SendText(c,
		fmt.Sprintf("%s is at %s. Alert when the price goes above or below?", q.Symbol, render.Price(q.Price)),
		conditionKeyboard())
}

func (h *Handlers) alertConditionStep(c tele.Context) error {
	cond, ok := storage.ParseCondition(strings.ToLower(strings.TrimSpace(c.Text())))
	if !ok {
		return tghelpers.SendText(c, "Please answer above or below.", conditionKeyboard())
	}
	return h.setCondition(c, cond)
}

func (h *Handlers) setCondition(c tele.Context, cond storage.Condition) error {
	uid := c.Sender().ID
	h.FSM.SetTemp(uid, tempCondition, cond)
	h.FSM.SetState(uid, StateAlertTarget)
	return tghelpers.SendText(c, fmt.Sprintf("Target price for %s?", cond))
}

// AlertConditionCallback answers the above/below buttons of the dialog.
func (h *Handlers) AlertConditionCallback(c tele.Context) error {
	s := c.Sender()
	if s == nil || h.FSM.GetState(s.ID) != StateAlertCondition {
		return c.Respond(&tele.CallbackResponse{Text: "This dialog has expired"})
	}
	cond, ok := storage.ParseCondition(callbacks.Payload(c))
	if !ok {
		return h.UnknownCallback()(c)
	}
	if err := h.setCondition(c, cond); err != nil {
		return err
	}
	return c.Respond()
}

func (h *Handlers) alertTargetStep(c tele.Context) error {
	uid := c.Sender().ID
	target, ok := parseTarget(c.Text())
	if !ok {
		return tghelpers.SendText(c, "Send a positive number, e.g. 65000 or 0.25.")
	}
	symbol, ok1 := state.Temp[string](h.FSM, uid, tempSymbol)
	cond, ok2 := state.Temp[storage.Condition](h.FSM, uid, tempCondition)
	h.FSM.Clear(uid)
	if !ok1 || !ok2 {
		return tghelpers.SendText(c, "This dialog has expired. Start again with /alert.")
	}
	return h.createAlert(c, symbol, cond, target)
}

// Cancel aborts the current dialog.
func (h *Handlers) Cancel(c tele.Context) error {
	s := c.Sender()
	if s == nil || !h.FSM.InProgress(s.ID) {
		return tghelpers.SendText(c, "Nothing to cancel.")
	}
	h.FSM.Clear(s.ID)
	return tghelpers.SendText(c, "Cancelled.")
}

func alertsKeyboard(list []storage.Alert) *tele.ReplyMarkup {
	var btns []keyboard.InlineBtn
	for _, a := range list {
		if !a.Active {
			continue
		}
		id := strconv.FormatInt(a.ID, 10)
		btns = append(btns, keyboard.InlineBtn{Text: "✖ #" + id, Unique: CbAlertDel, Data: id})
	}
	if len(btns) == 0 {
		return nil
	}
	return keyboard.InlineButtonsNPerRow(btns, 4)
}

func (h *Handlers) alertsView(c tele.Context, edit bool) error {
	ctx, cancel := h.context(c)
	defer cancel()
	u, err := h.user(ctx, c)
	if err != nil {
		return err
	}
	list, err := h.Alerts.List(ctx, u.ID)
	if err != nil {
		return h.fail(c, err)
	}
	var markup []*tele.ReplyMarkup
	if kb := alertsKeyboard(list); kb != nil {
		markup = append(markup, kb)
	}
	if edit {
		return tghelpers.EditOrSendMDV2(c, render.Alerts(list), markup...)
	}
	return tghelpers.SendMDV2(c, render.Alerts(list), markup...)
}

// AlertsCmd handles /alerts.
func (h *Handlers) AlertsCmd(c tele.Context) error {
	return h.alertsView(c, false)
}

// DelAlert handles /delalert ID.
func (h *Handlers) DelAlert(c tele.Context) error {
	a := args(c)
	if len(a) != 1 {
		return h.usage(c, "/delalert")
	}
	id, err := strconv.ParseInt(strings.TrimPrefix(a[0], "#"), 10, 64)
	if err != nil {
		return h.usage(c, "/delalert")
	}
	ctx, cancel := h.context(c)
	defer cancel()
	u, err := h.user(ctx, c)
	if err != nil {
		return err
	}
	if err := h.Alerts.Delete(ctx, u.ID, id); err != nil {
		return h.fail(c, err)
	}
	return tghelpers.SendText(c, fmt.Sprintf("Alert #%d deleted.", id))
}

// AlertDeleteCallback deletes an alert from the /alerts keyboard.
func (h *Handlers) AlertDeleteCallback(c tele.Context) error {
	id, err := callbacks.PayloadInt64(c)
	if err != nil {
		return h.UnknownCallback()(c)
	}
	ctx, cancel := h.context(c)
	defer cancel()
	u, err := h.user(ctx, c)
	if err != nil {
		return err
	}
	if err := h.Alerts.Delete(ctx, u.ID, id); err != nil {
		return h.fail(c, err)
	}
	if err := h.alertsView(c, true); err != nil {
		return err
	}
	return c.Respond(&tele.CallbackResponse{Text: fmt.Sprintf("Alert #%d deleted", id)})
}
