package handlers

import (
	"strconv"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/quotebot/bot/market"
	"github.com/m3rciful/quotebot/bot/render"
	"github.com/m3rciful/quotebot/bot/service"
	"github.com/m3rciful/quotebot/core/telegram/callbacks"
	tghelpers "github.com/m3rciful/quotebot/core/telegram/helpers"
	"github.com/m3rciful/quotebot/core/telegram/keyboard"
	"github.com/m3rciful/quotebot/core/telegram/ui"
)

// taIntervals are offered as buttons under a report.
var taIntervals = []string{"15m", "1h", "4h", "1d", "1w"}

func priceKeyboard(symbol string) *tele.ReplyMarkup {
	return keyboard.InlineButtonsRows([]keyboard.InlineBtn{
		{Text: "🔄 Refresh", Unique: CbPrice, Data: symbol},
		{Text: "📊 Analysis", Unique: CbTA, Data: callbacks.Join(symbol, "")},
	})
}

func taKeyboard(symbol, current string) *tele.ReplyMarkup {
	row := make([]keyboard.InlineBtn, 0, len(taIntervals))
	for _, iv := range taIntervals {
		text := iv
		if iv == current {
			text = "• " + iv
		}
		row = append(row, keyboard.InlineBtn{Text: text, Unique: CbTA, Data: callbacks.Join(symbol, iv)})
	}
	return keyboard.InlineButtonsRows(row, []keyboard.InlineBtn{
		{Text: "🔄 Refresh", Unique: CbTA, Data: callbacks.Join(symbol, current)},
		{Text: "💲 Price", Unique: CbPrice, Data: symbol},
	})
}

// Price handles /price SYMBOL.
func (h *Handlers) Price(c tele.Context) error {
	a := args(c)
	if len(a) != 1 {
		return h.usage(c, "/price")
	}
	ctx, cancel := h.context(c)
	defer cancel()
	q, err := h.Quotes.Price(ctx, a[0])
	if err != nil {
		return h.fail(c, err)
	}
	return tghelpers.SendMDV2(c, render.Quote(q), priceKeyboard(q.Symbol))
}

// PriceCallback refreshes a price card.
func (h *Handlers) PriceCallback(c tele.Context) error {
	ctx, cancel := h.context(c)
	defer cancel()
	q, err := h.Quotes.Price(ctx, callbacks.Payload(c))
	if err != nil {
		return h.fail(c, err)
	}
	if err := tghelpers.EditOrSendMDV2(c, render.Quote(q), priceKeyboard(q.Symbol)); err != nil {
		return err
	}
	return c.Respond()
}

// TA handles /ta SYMBOL [INTERVAL].
func (h *Handlers) TA(c tele.Context) error {
	a := args(c)
	if len(a) < 1 || len(a) > 2 {
		return h.usage(c, "/ta")
	}
	ctx, cancel := h.context(c)
	defer cancel()
	u, err := h.user(ctx, c)
	if err != nil {
		return err
	}
	iv := h.Users.Interval(u)
	if len(a) == 2 {
		iv = a[1]
	}
	_ = c.Notify(tele.Typing)
	rep, err := h.Quotes.Analyze(ctx, a[0], iv)
	if err != nil {
		return h.fail(c, err)
	}
	return tghelpers.SendMDV2(c, render.Report(rep), taKeyboard(rep.Symbol, rep.Interval))
}

// TACallback switches interval or refreshes a report. An empty interval
// means the user's default.
func (h *Handlers) TACallback(c tele.Context) error {
	parts, err := callbacks.PayloadParts(c, 2)
	if err != nil {
		return h.UnknownCallback()(c)
	}
	ctx, cancel := h.context(c)
	defer cancel()
	iv := parts[1]
	if iv == "" {
		u, err := h.user(ctx, c)
		if err != nil {
			return err
		}
		iv = h.Users.Interval(u)
	}
	rep, err := h.Quotes.Analyze(ctx, parts[0], iv)
	if err != nil {
		return h.fail(c, err)
	}
	if err := tghelpers.EditOrSendMDV2(c, render.Report(rep), taKeyboard(rep.Symbol, rep.Interval)); err != nil {
		return err
	}
	return c.Respond()
}

// Candles handles /candles SYMBOL [INTERVAL] [N].
func (h *Handlers) Candles(c tele.Context) error {
	a := args(c)
	if len(a) < 1 || len(a) > 3 {
		return h.usage(c, "/candles")
	}
	ctx, cancel := h.context(c)
	defer cancel()
	u, err := h.user(ctx, c)
	if err != nil {
		return err
	}
	iv, n := h.Users.Interval(u), service.DefaultCandles
	for _, v := range a[1:] {
		if k, err := strconv.Atoi(v); err == nil {
			n = k
			continue
		}
		iv = v
	}
	candles, err := h.Quotes.Candles(ctx, a[0], iv, n)
	if err != nil {
		return h.fail(c, err)
	}
	sym, _ := market.NormalizeSymbol(a[0])
	iv, _ = market.NormalizeInterval(iv)
	return tghelpers.SendMDV2(c, render.Candles(sym, iv, candles))
}

// Inline answers "@bot SYMBOL" with a quote article.
func (h *Handlers) Inline(c tele.Context) error {
	q := c.Query()
	if q == nil || q.Text == "" {
		return c.Answer(&tele.QueryResponse{Results: tele.Results{}, CacheTime: 5})
	}
	ctx, cancel := h.context(c)
	defer cancel()
	quote, err := h.Quotes.Price(ctx, q.Text)
	if err != nil {
		if ansErr := c.Answer(&tele.QueryResponse{Results: tele.Results{}, CacheTime: 5}); ansErr != nil {
			return ansErr
		}
		return err
	}
	res := ui.NewArticleResult(quote.Symbol, quote.Symbol, render.QuotePlain(quote), render.Quote(quote), tele.ModeMarkdownV2)
	return c.Answer(&tele.QueryResponse{Results: tele.Results{res}, CacheTime: 15})
}
