package market

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const chartAAPL = `{"chart":{"result":[{
  "meta":{"currency":"USD","symbol":"AAPL","regularMarketPrice":190.0,"chartPreviousClose":200.0,
          "regularMarketDayHigh":192.5,"regularMarketDayLow":188.0,"regularMarketVolume":5000000,
          "regularMarketTime":1700000000},
  "timestamp":[1700000000,1700003600,1700007200,1700010800,1700014400],
  "indicators":{"quote":[{
    "open":[1,2,null,4,5],
    "high":[1.5,2.5,3.5,4.5,5.5],
    "low":[0.5,1.5,2.5,3.5,4.5],
    "close":[1.2,2.2,3.2,4.2,5.2],
    "volume":[100,200,300,null,500]}]}}],"error":null}}`

func newYahooServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v8/finance/chart/AAPL":
			_, _ = w.Write([]byte(chartAAPL))
		default:
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"chart":{"result":null,"error":{"code":"Not Found","description":"No data found, symbol may be delisted"}}}`))
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestYahooQuote(t *testing.T) {
	f := NewYahooFeeder(YahooOptions{BaseURL: newYahooServer(t).URL})

	q, err := f.Quote(context.Background(), "AAPL")
	require.NoError(t, err)
	assert.Equal(t, 190.0, q.Price)
	assert.InDelta(t, -5.0, q.ChangePct, 1e-9)
	assert.Equal(t, "USD", q.Currency)
	assert.Equal(t, "yahoo", q.Source)

	_, err = f.Quote(context.Background(), "ZZZZ")
	assert.ErrorIs(t, err, ErrUnknownSymbol)
}

func TestYahooCandles(t *testing.T) {
	// 1700014400 + 1h is after now, so the last bar is still forming.
	now := time.Unix(1700016000, 0)
	f := NewYahooFeeder(YahooOptions{BaseURL: newYahooServer(t).URL, Now: func() time.Time { return now }})

	candles, err := f.Candles(context.Background(), "AAPL", "1h", 10)
	require.NoError(t, err)
	// row 2 has a null open, row 4 is incomplete
	require.Len(t, candles, 3)
	assert.Equal(t, 1.2, candles[0].Close)
	assert.Equal(t, 4.2, candles[2].Close)
	assert.Zero(t, candles[2].Volume)
	assert.True(t, candles[2].Complete)

	candles, err = f.Candles(context.Background(), "AAPL", "1h", 2)
	require.NoError(t, err)
	require.Len(t, candles, 2)
	assert.Equal(t, 2.2, candles[0].Close)
}

func TestGroupBarsStaysInsideSessionDay(t *testing.T) {
	// two days of seven hourly bars each
	var bars []Candle
	for _, day := range []int{16, 17} {
		for h := 0; h < 7; h++ {
			f := float64(h)
			bars = append(bars, Candle{
				Time: time.Date(2023, 11, day, 14, 30, 0, 0, time.UTC).Add(time.Duration(h) * time.Hour),
				Open: f, High: f + 1, Low: f - 1, Close: f + 0.5, Volume: 1,
			})
		}
	}
	stillOpen := func(day string) bool { return day == "2023-11-17" }

	out := groupBars(bars, 4, -5*3600, stillOpen)
	require.Len(t, out, 3)
	assert.Equal(t, 0.0, out[0].Open)
	assert.Equal(t, 4.0, out[0].High)
	assert.Equal(t, -1.0, out[0].Low)
	assert.Equal(t, 3.5, out[0].Close)
	assert.Equal(t, 4.0, out[0].Volume)
	// the short closing run of the finished day is its own bar
	assert.Equal(t, time.Date(2023, 11, 16, 18, 30, 0, 0, time.UTC), out[1].Time)
	assert.Equal(t, 3.0, out[1].Volume)
	assert.Equal(t, 6.5, out[1].Close)
	// the next day starts a new run
	assert.Equal(t, time.Date(2023, 11, 17, 14, 30, 0, 0, time.UTC), out[2].Time)

	out = groupBars(bars, 4, -5*3600, func(string) bool { return false })
	assert.Len(t, out, 4)
}

// sessionChart renders a chart payload for bars opening at ts with one
// regular session from openAt to closeAt.
func sessionChart(t *testing.T, ts []time.Time, openAt, closeAt time.Time) []byte {
	t.Helper()
	col := make([]float64, len(ts))
	stamps := make([]int64, len(ts))
	for i, at := range ts {
		stamps[i] = at.Unix()
		col[i] = float64(i + 1)
	}
	period := map[string]int64{"start": openAt.Unix(), "end": closeAt.Unix(), "gmtoffset": -5 * 3600}
	body, err := json.Marshal(map[string]any{"chart": map[string]any{
		"result": []any{map[string]any{
			"meta": map[string]any{
				"symbol":               "MSFT",
				"gmtoffset":            -5 * 3600,
				"currentTradingPeriod": map[string]any{"regular": period},
			},
			"timestamp":  stamps,
			"indicators": map[string]any{"quote": []any{map[string]any{"open": col, "high": col, "low": col, "close": col, "volume": col}}},
		}},
	}})
	require.NoError(t, err)
	return body
}

func TestYahooSessionBars(t *testing.T) {
	// Friday 2023-11-17, regular session 14:30-21:00 UTC
	openAt := time.Date(2023, 11, 17, 14, 30, 0, 0, time.UTC)
	closeAt := time.Date(2023, 11, 17, 21, 0, 0, 0, time.UTC)
	daily := []time.Time{openAt.AddDate(0, 0, -2), openAt.AddDate(0, 0, -1), openAt}
	weekly := []time.Time{openAt.AddDate(0, 0, -11), openAt.AddDate(0, 0, -4)}
	var hourly []time.Time
	for _, day := range []time.Time{openAt.AddDate(0, 0, -1), openAt} {
		for h := 0; h < 7; h++ {
			hourly = append(hourly, day.Add(time.Duration(h)*time.Hour))
		}
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("interval") {
		case "1d":
			_, _ = w.Write(sessionChart(t, daily, openAt, closeAt))
		case "1wk":
			_, _ = w.Write(sessionChart(t, weekly, openAt, closeAt))
		default:
			_, _ = w.Write(sessionChart(t, hourly, openAt, closeAt))
		}
	}))
	t.Cleanup(srv.Close)

	feeder := func(now time.Time) *YahooFeeder {
		return NewYahooFeeder(YahooOptions{BaseURL: srv.URL, Now: func() time.Time { return now }})
	}
	ctx := context.Background()
	during, after := closeAt.Add(-2*time.Hour), closeAt.Add(time.Hour)

	cs, err := feeder(during).Candles(ctx, "MSFT", "1d", 10)
	require.NoError(t, err)
	assert.Len(t, cs, 2, "today's bar is still forming")

	cs, err = feeder(after).Candles(ctx, "MSFT", "1d", 10)
	require.NoError(t, err)
	require.Len(t, cs, 3, "today's bar is final after the close")
	assert.Equal(t, openAt, cs[2].Time)

	cs, err = feeder(during).Candles(ctx, "MSFT", "1w", 10)
	require.NoError(t, err)
	assert.Len(t, cs, 1)
	cs, err = feeder(after).Candles(ctx, "MSFT", "1w", 10)
	require.NoError(t, err)
	assert.Len(t, cs, 2, "the week closes with Friday's session")

	cs, err = feeder(after).Candles(ctx, "MSFT", "4h", 10)
	require.NoError(t, err)
	require.Len(t, cs, 4)
	for _, c := range cs {
		assert.Equal(t, sessionDay(c.Time, -5*3600), sessionDay(c.Time.Add(3*time.Hour), -5*3600), "bar %s crosses a session day", c.Time)
	}

	// 19:00 UTC: four Friday hours are final, the fifth is forming
	cs, err = feeder(time.Date(2023, 11, 17, 19, 0, 0, 0, time.UTC)).Candles(ctx, "MSFT", "4h", 10)
	require.NoError(t, err)
	require.Len(t, cs, 3)
	assert.Equal(t, openAt, cs[2].Time)
}
