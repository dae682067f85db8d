package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m3rciful/quotebot/bot/market"
	"github.com/m3rciful/quotebot/bot/storage"
)

type fakeFeeder struct {
	mu     sync.Mutex
	prices map[string]float64
	fail   map[string]error
	calls  int
}

func newFakeFeeder(prices map[string]float64) *fakeFeeder {
	return &fakeFeeder{prices: prices, fail: map[string]error{}}
}

func (f *fakeFeeder) Name() string { return "fake" }

func (f *fakeFeeder) Quote(_ context.Context, symbol string) (market.Quote, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if err := f.fail[symbol]; err != nil {
		return market.Quote{}, err
	}
	p, ok := f.prices[symbol]
	if !ok {
		return market.Quote{}, market.ErrUnknownSymbol
	}
	return market.Quote{Symbol: symbol, Price: p, Source: "fake"}, nil
}

func (f *fakeFeeder) Candles(_ context.Context, symbol, _ string, limit int) ([]market.Candle, error) {
	if _, ok := f.prices[symbol]; !ok {
		return nil, market.ErrUnknownSymbol
	}
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	out := make([]market.Candle, limit)
	for i := range out {
		x := float64(i)
		c := 100 + x + 0.01*x*x
		out[i] = market.Candle{Symbol: symbol, Time: start.Add(time.Duration(i) * time.Hour),
			Open: c - 0.5, High: c + 1, Low: c - 1, Close: c, Volume: 10, Complete: true}
	}
	return out, nil
}

func TestQuotesPrice(t *testing.T) {
	q := NewQuotes(newFakeFeeder(map[string]float64{"AAPL": 190}))

	got, err := q.Price(context.Background(), " aapl ")
	require.NoError(t, err)
	assert.Equal(t, "AAPL", got.Symbol)

	_, err = q.Price(context.Background(), "MSFT")
	assert.Equal(t, CodeUnknownSymbol, CodeOf(err))
	assert.True(t, errors.Is(err, market.ErrUnknownSymbol))

	_, err = q.Price(context.Background(), "not a symbol!")
	assert.Equal(t, CodeInvalidSymbol, CodeOf(err))
}

func TestQuotesCandlesBounds(t *testing.T) {
	q := NewQuotes(newFakeFeeder(map[string]float64{"ETHUSDT": 3000}))
	ctx := context.Background()

	for _, n := range []int{0, 51} {
		_, err := q.Candles(ctx, "ETHUSDT", "1h", n)
		assert.Equal(t, CodeInvalidArgument, CodeOf(err), "n=%d", n)
	}
	_, err := q.Candles(ctx, "ETHUSDT", "2h", 5)
	assert.Equal(t, CodeBadInterval, CodeOf(err))
	var se *Error
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "Unsupported interval. Use one of: 1m, 5m, 15m, 30m, 1h, 4h, 1d, 1w.", se.Msg)

	got, err := q.Candles(ctx, "ethusdt", "1H", 5)
	require.NoError(t, err)
	assert.Len(t, got, 5)
}

func TestQuotesAnalyze(t *testing.T) {
	q := NewQuotes(newFakeFeeder(map[string]float64{"BTCUSDT": 60000}))
	rep, err := q.Analyze(context.Background(), "btcusdt", "4h")
	require.NoError(t, err)
	assert.Equal(t, "BTCUSDT", rep.Symbol)
	assert.Equal(t, "4h", rep.Interval)
	assert.Equal(t, AnalyzeCandles, rep.Candles)
}

func TestWatchlistAddLimitAndPrices(t *testing.T) {
	ctx := context.Background()
	feed := newFakeFeeder(map[string]float64{"AAPL": 190, "ETHUSDT": 3000, "TSLA": 250})
	quotes := NewQuotes(feed)
	svc := NewWatchlist(storage.NewMemory().Watchlist(), quotes, 2)

	sym, err := svc.Add(ctx, 1, "aapl")
	require.NoError(t, err)
	assert.Equal(t, "AAPL", sym)

	_, err = svc.Add(ctx, 1, "AAPL")
	assert.Equal(t, CodeDuplicate, CodeOf(err))

	_, err = svc.Add(ctx, 1, "NOPE")
	assert.Equal(t, CodeUnknownSymbol, CodeOf(err))

	_, err = svc.Add(ctx, 1, "ETHUSDT")
	require.NoError(t, err)
	_, err = svc.Add(ctx, 1, "TSLA")
	assert.Equal(t, CodeLimitReached, CodeOf(err))
	_, err = svc.Add(ctx, 1, "aapl")
	assert.Equal(t, CodeDuplicate, CodeOf(err), "full list re-adding a listed symbol")

	feed.fail["ETHUSDT"] = market.ErrNoData
	rows, err := svc.Prices(ctx, 1)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "AAPL", rows[0].Symbol)
	assert.NoError(t, rows[0].Err)
	assert.Equal(t, 190.0, rows[0].Quote.Price)
	assert.Equal(t, "ETHUSDT", rows[1].Symbol)
	assert.Equal(t, CodeNoData, CodeOf(rows[1].Err))

	_, err = svc.Remove(ctx, 1, "tsla")
	assert.Equal(t, CodeNotFound, CodeOf(err))
	sym, err = svc.Remove(ctx, 1, "ethusdt")
	require.NoError(t, err)
	assert.Equal(t, "ETHUSDT", sym)
}

func TestAlertsCreateValidation(t *testing.T) {
	ctx := context.Background()
	svc := NewAlerts(storage.NewMemory().Alerts(), NewQuotes(newFakeFeeder(map[string]float64{"AAPL": 190})), 1)

	_, err := svc.Create(ctx, 1, "AAPL", storage.Above, 0)
	assert.Equal(t, CodeInvalidArgument, CodeOf(err))
	_, err = svc.Create(ctx, 1, "AAPL", "sideways", 10)
	assert.Equal(t, CodeInvalidArgument, CodeOf(err))
	_, err = svc.Create(ctx, 1, "ZZZZ", storage.Above, 10)
	assert.Equal(t, CodeUnknownSymbol, CodeOf(err))

	a, err := svc.Create(ctx, 1, "aapl", storage.Above, 200)
	require.NoError(t, err)
	assert.Equal(t, "AAPL", a.Symbol)

	_, err = svc.Create(ctx, 1, "AAPL", storage.Below, 150)
	assert.Equal(t, CodeLimitReached, CodeOf(err))

	assert.Equal(t, CodeNotFound, CodeOf(svc.Delete(ctx, 2, a.ID)))
	require.NoError(t, svc.Delete(ctx, 1, a.ID))

	list, err := svc.List(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestUsersEnsureAndInterval(t *testing.T) {
	ctx := context.Background()
	svc := NewUsers(storage.NewMemory().Users(), "1h")

	u, err := svc.Ensure(ctx, Profile{TelegramID: 5, Username: "carol"})
	require.NoError(t, err)
	assert.Equal(t, "1h", svc.Interval(u))

	iv, err := svc.SetDefaultInterval(ctx, u, "1D")
	require.NoError(t, err)
	assert.Equal(t, "1d", iv)

	u, err = svc.Ensure(ctx, Profile{TelegramID: 5, Username: "carol"})
	require.NoError(t, err)
	assert.Equal(t, "1d", svc.Interval(u))

	_, err = svc.SetDefaultInterval(ctx, u, "7m")
	assert.Equal(t, CodeBadInterval, CodeOf(err))

	n, err := svc.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestUserMessage(t *testing.T) {
	assert.Equal(t, "Nothing found.", UserMessage(classify("X", storage.ErrNotFound)))
	assert.Contains(t, UserMessage(errors.New("boom")), "Something went wrong")
	assert.Equal(t, CodeUpstream, CodeOf(classify("X", errors.New("timeout"))))
}
