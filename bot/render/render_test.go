package render

import (
	"errors"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"

	"github.com/m3rciful/quotebot/bot/indicator"
	"github.com/m3rciful/quotebot/bot/market"
	"github.com/m3rciful/quotebot/bot/service"
	"github.com/m3rciful/quotebot/bot/storage"
)

func TestPrice(t *testing.T) {
	assert.Equal(t, "64123.46", Price(64123.456))
	assert.Equal(t, "0.1235", Price(0.12345))
	assert.Equal(t, "0.00001234", Price(0.00001234))
	assert.Equal(t, "+1.50%", Change(1.5))
	assert.Equal(t, "-0.25%", Change(-0.25))
}

func TestQuoteEscapes(t *testing.T) {
	out := Quote(market.Quote{
		Symbol: "BRK.B", Price: 410.5, ChangePct: -1.2, High: 415, Low: 405,
		Source: "yahoo", Currency: "USD", Time: time.Date(2024, 3, 1, 15, 30, 0, 0, time.UTC),
	})
	assert.Contains(t, out, `*BRK\.B*`)
	assert.Contains(t, out, `410\.50 USD`)
	assert.Contains(t, out, `▼ \-1\.20%`)
	assert.Contains(t, out, "2024\\-03\\-01 15:30 UTC")
}

func TestCandlesTable(t *testing.T) {
	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	out := Candles("ETHUSDT", "1d", []market.Candle{
		{Time: start, Open: 3000, High: 3100, Low: 2950, Close: 3050},
		{Time: start.Add(24 * time.Hour), Open: 3050, High: 3200, Low: 3000, Close: 3180},
	})
	assert.True(t, strings.HasPrefix(out, "*ETHUSDT* · 1d · last 2\n```\n"))
	assert.Contains(t, out, "2024-03-02")
	assert.Contains(t, out, "3180.00")
	assert.True(t, strings.HasSuffix(out, "```"))
}

func TestWatchlistRendersErrors(t *testing.T) {
	out := Watchlist([]service.WatchPrice{
		{Symbol: "AAPL", Quote: market.Quote{Price: 190, ChangePct: 0.5}},
		{Symbol: "XYZ", Err: errors.New("boom")},
	})
	assert.Contains(t, out, "190.00")
	assert.Contains(t, out, "+0.50%")
	assert.Contains(t, out, "n/a")

	assert.Contains(t, Watchlist(nil), "empty")
}

func TestAlerts(t *testing.T) {
	fired := 201.5
	out := Alerts([]storage.Alert{
		{ID: 1, Symbol: "AAPL", Condition: storage.Above, Target: 200, Active: false, TriggeredPrice: &fired},
		{ID: 2, Symbol: "BTCUSDT", Condition: storage.Below, Target: 50000, Active: true},
	})
	assert.Contains(t, out, `\#1 AAPL above 200\.00 \(fired at 201\.50\)`)
	assert.Contains(t, out, `\#2 BTCUSDT below 50000\.00`)

	msg := AlertFired(storage.Alert{Symbol: "AAPL", Condition: storage.Above, Target: 200}, 201.5)
	assert.Equal(t, "🔔 *AAPL* is above 200\\.00\nNow: 201\\.50", msg)
}

func TestAlertsCapsFiredHistory(t *testing.T) {
	price := 65000.12
	var list []storage.Alert
	for i := 1; i <= 10; i++ {
		list = append(list, storage.Alert{ID: int64(1000 + i), Symbol: "ETHUSDT", Condition: storage.Below, Target: 1500, Active: true})
	}
	for i := 1; i <= 200; i++ {
		list = append(list, storage.Alert{ID: int64(i), Symbol: "BTCUSDT", Condition: storage.Above, Target: 64000, TriggeredPrice: &price})
	}

	out := Alerts(list)
	assert.Less(t, utf8.RuneCountInString(out), 4096)
	assert.Equal(t, 10, strings.Count(out, "🔔"))
	assert.Equal(t, FiredShown, strings.Count(out, "✅"))
	assert.Contains(t, out, `\#200 BTCUSDT`)
	assert.NotContains(t, out, `\#190 BTCUSDT`)
	assert.Contains(t, out, `\+190 older fired alerts`)
}

func TestReport(t *testing.T) {
	out := Report(indicator.Report{
		Symbol: "BTCUSDT", Interval: "4h", Score: 3, Signal: indicator.StrongBuy,
		RSI14: 72.3, Notes: []string{"price above SMA50"},
	})
	assert.Contains(t, out, "Signal: *STRONG BUY* \\(score 3\\)")
	assert.Contains(t, out, "72.3")
	assert.Contains(t, out, "• price above SMA50")
}
