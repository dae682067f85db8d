// Package render formats market data and bot state as Telegram MarkdownV2.
package render

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"

	"github.com/m3rciful/quotebot/bot/indicator"
	"github.com/m3rciful/quotebot/bot/market"
	"github.com/m3rciful/quotebot/bot/service"
	"github.com/m3rciful/quotebot/bot/storage"
	"github.com/m3rciful/quotebot/core/telegram/format"
)

var esc = format.EscapeMarkdownV2

// Price formats p with precision suited to its magnitude.
func Price(p float64) string {
	switch {
	case p >= 1:
		return strconv.FormatFloat(p, 'f', 2, 64)
	case p >= 0.01:
		return strconv.FormatFloat(p, 'f', 4, 64)
	default:
		return strconv.FormatFloat(p, 'f', 8, 64)
	}
}

// Change formats a signed percentage.
func Change(pct float64) string {
	return fmt.Sprintf("%+.2f%%", pct)
}

func arrow(pct float64) string {
	switch {
	case pct > 0:
		return "▲"
	case pct < 0:
		return "▼"
	}
	return "•"
}

// Quote renders a price card.
func Quote(q market.Quote) string {
	var b strings.Builder
	price := Price(q.Price)
	if q.Currency != "" {
		price += " " + q.Currency
	}
	fmt.Fprintf(&b, "*%s*  %s\n", esc(q.Symbol), esc(price))
	fmt.Fprintf(&b, "%s %s\n", arrow(q.ChangePct), esc(Change(q.ChangePct)))
	if q.High > 0 || q.Low > 0 {
		fmt.Fprintf(&b, "High %s · Low %s\n", esc(Price(q.High)), esc(Price(q.Low)))
	}
	if q.Volume > 0 {
		fmt.Fprintf(&b, "Volume %s\n", esc(strconv.FormatFloat(q.Volume, 'f', 0, 64)))
	}
	fmt.Fprintf(&b, "_%s, %s_", esc(q.Source), esc(stamp(q.Time)))
	return b.String()
}

// QuotePlain renders a quote without markup for inline results.
func QuotePlain(q market.Quote) string {
	return fmt.Sprintf("%s %s (%s)", q.Symbol, Price(q.Price), Change(q.ChangePct))
}

var signalNames = map[indicator.Signal]string{
	indicator.StrongBuy:  "STRONG BUY",
	indicator.Buy:        "BUY",
	indicator.Neutral:    "NEUTRAL",
	indicator.Sell:       "SELL",
	indicator.StrongSell: "STRONG SELL",
}

// Report renders a technical analysis summary.
func Report(r indicator.Report) string {
	var b strings.Builder
	fmt.Fprintf(&b, "*%s* · %s\n", esc(r.Symbol), esc(r.Interval))
	fmt.Fprintf(&b, "Signal: *%s* \\(score %s\\)\n\n", esc(signalNames[r.Signal]), esc(strconv.Itoa(r.Score)))

	rows := [][]string{
		{"Close", Price(r.Last.Close)},
		{"SMA20 / SMA50", Price(r.SMA20) + " / " + Price(r.SMA50)},
		{"EMA12 / EMA26", Price(r.EMA12) + " / " + Price(r.EMA26)},
		{"RSI14", strconv.FormatFloat(r.RSI14, 'f', 1, 64)},
		{"MACD / Signal", fmt.Sprintf("%.4f / %.4f", r.MACD, r.MACDSignal)},
		{"BB upper", Price(r.BBUpper)},
		{"BB lower", Price(r.BBLower)},
		{"ATR14", Price(r.ATR14)},
		{"Stoch K / D", fmt.Sprintf("%.1f / %.1f", r.StochK, r.StochD)},
		{"SuperTrend", Price(r.SuperTrend)},
		{"Volatility", fmt.Sprintf("%.2f%%", r.Volatility)},
	}
	b.WriteString(format.CodeBlockV2(table(nil, rows, tablewriter.ALIGN_LEFT, tablewriter.ALIGN_RIGHT)))
	if len(r.Notes) > 0 {
		b.WriteString("\n")
		for _, n := range r.Notes {
			fmt.Fprintf(&b, "\n• %s", esc(n))
		}
	}
	return b.String()
}

// Candles renders candles as a monospace table, newest last.
func Candles(symbol, interval string, candles []market.Candle) string {
	rows := make([][]string, 0, len(candles))
	layout := "01-02 15:04"
	if d, err := market.IntervalDuration(interval); err == nil && d >= 24*time.Hour {
		layout = "2006-01-02"
	}
	for _, c := range candles {
		rows = append(rows, []string{
			c.Time.UTC().Format(layout),
			Price(c.Open),
			Price(c.High),
			Price(c.Low),
			Price(c.Close),
		})
	}
	head := fmt.Sprintf("*%s* · %s · last %d\n", esc(symbol), esc(interval), len(candles))
	return head + format.CodeBlockV2(table([]string{"Time", "Open", "High", "Low", "Close"}, rows,
		tablewriter.ALIGN_LEFT, tablewriter.ALIGN_RIGHT, tablewriter.ALIGN_RIGHT, tablewriter.ALIGN_RIGHT, tablewriter.ALIGN_RIGHT))
}

// Watchlist renders watched symbols with their latest prices.
func Watchlist(rows []service.WatchPrice) string {
	if len(rows) == 0 {
		return esc("Your watchlist is empty. Add a symbol with /watch SYMBOL.")
	}
	data := make([][]string, 0, len(rows))
	for _, r := range rows {
		if r.Err != nil {
			data = append(data, []string{r.Symbol, "n/a", ""})
			continue
		}
		data = append(data, []string{r.Symbol, Price(r.Quote.Price), Change(r.Quote.ChangePct)})
	}
	return "*Watchlist*\n" + format.CodeBlockV2(table([]string{"Symbol", "Price", "Change"}, data,
		tablewriter.ALIGN_LEFT, tablewriter.ALIGN_RIGHT, tablewriter.ALIGN_RIGHT))
}

// AlertLine renders one alert as plain text.
func AlertLine(a storage.Alert) string {
	line := fmt.Sprintf("#%d %s %s %s", a.ID, a.Symbol, a.Condition, Price(a.Target))
	if !a.Active && a.TriggeredPrice != nil {
		line += " (fired at " + Price(*a.TriggeredPrice) + ")"
	}
	return line
}

// FiredShown caps how many fired alerts Alerts lists; active ones are
// bounded by the per-user limit.
const FiredShown = 10

// Alerts renders the user's alerts.
func Alerts(list []storage.Alert) string {
	if len(list) == 0 {
		return esc("No alerts. Create one with /alert SYMBOL above|below PRICE.")
	}
	var active, fired []storage.Alert
	for _, a := range list {
		if a.Active {
			active = append(active, a)
		} else {
			fired = append(fired, a)
		}
	}
	older := 0
	if len(fired) > FiredShown {
		sort.SliceStable(fired, func(i, j int) bool { return fired[i].ID < fired[j].ID })
		older = len(fired) - FiredShown
		fired = fired[older:]
	}

	var b strings.Builder
	b.WriteString("*Alerts*\n")
	for _, a := range active {
		fmt.Fprintf(&b, "\n🔔 %s", esc(AlertLine(a)))
	}
	for _, a := range fired {
		fmt.Fprintf(&b, "\n✅ %s", esc(AlertLine(a)))
	}
	if older > 0 {
		fmt.Fprintf(&b, "\n%s", esc(fmt.Sprintf("+%d older fired alerts", older)))
	}
	return b.String()
}

// AlertCreated confirms a new alert.
func AlertCreated(a storage.Alert) string {
	return esc(fmt.Sprintf("Alert #%d set: %s %s %s.", a.ID, a.Symbol, a.Condition, Price(a.Target)))
}

// AlertFired is the notification sent when an alert triggers.
func AlertFired(a storage.Alert, price float64) string {
	return fmt.Sprintf("🔔 *%s* is %s %s\nNow: %s",
		esc(a.Symbol), esc(string(a.Condition)), esc(Price(a.Target)), esc(Price(price)))
}

// Stats is the admin summary.
type Stats struct {
	Users          int
	Alerts         storage.AlertStats
	DispatchErrors uint64
	Version        string
}

// StatsText renders Stats.
func StatsText(s Stats) string {
	rows := [][]string{
		{"Users", strconv.Itoa(s.Users)},
		{"Active alerts", strconv.Itoa(s.Alerts.Active)},
		{"Fired alerts", strconv.Itoa(s.Alerts.Fired)},
		{"Send errors", strconv.FormatUint(s.DispatchErrors, 10)},
		{"Version", s.Version},
	}
	return "*Stats*\n" + format.CodeBlockV2(table(nil, rows, tablewriter.ALIGN_LEFT, tablewriter.ALIGN_RIGHT))
}

func stamp(t time.Time) string {
	if t.IsZero() {
		return "now"
	}
	return t.UTC().Format("2006-01-02 15:04 UTC")
}

func table(header []string, rows [][]string, align ...int) string {
	var sb strings.Builder
	t := tablewriter.NewWriter(&sb)
	if len(header) > 0 {
		t.SetHeader(header)
		t.SetAutoFormatHeaders(false)
	}
	t.SetBorder(false)
	t.SetColumnSeparator(" ")
	t.SetCenterSeparator(" ")
	t.SetRowSeparator("-")
	t.SetHeaderLine(len(header) > 0)
	t.SetAutoWrapText(false)
	t.SetColumnAlignment(align)
	t.AppendBulk(rows)
	t.Render()
	return strings.TrimRight(sb.String(), "\n")
}
