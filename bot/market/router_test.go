package market

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubFeeder struct {
	name    string
	mu      sync.Mutex
	quotes  int
	candles int
	err     error
}

func (s *stubFeeder) Name() string { return s.name }

func (s *stubFeeder) Quote(_ context.Context, symbol string) (Quote, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.quotes++
	if s.err != nil {
		return Quote{}, s.err
	}
	return Quote{Symbol: symbol, Price: float64(s.quotes), Source: s.name}, nil
}

func (s *stubFeeder) Candles(_ context.Context, symbol, _ string, limit int) ([]Candle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.candles++
	if s.err != nil {
		return nil, s.err
	}
	return make([]Candle, limit), nil
}

func TestRouterFeeder(t *testing.T) {
	crypto, stocks := &stubFeeder{name: "binance"}, &stubFeeder{name: "yahoo"}

	r, err := NewRouterFeeder(ModeAuto, crypto, stocks)
	require.NoError(t, err)
	assert.Equal(t, "binance", r.For("BTCUSDT").Name())
	assert.Equal(t, "yahoo", r.For("AAPL").Name())

	r, err = NewRouterFeeder(ModeYahoo, crypto, stocks)
	require.NoError(t, err)
	assert.Equal(t, "yahoo", r.For("BTCUSDT").Name())

	_, err = NewRouterFeeder("kraken", crypto, stocks)
	assert.Error(t, err)
}

func TestRouterFeederFallsBackToStocks(t *testing.T) {
	crypto := &stubFeeder{name: "binance", err: ErrUnknownSymbol}
	stocks := &stubFeeder{name: "yahoo"}
	r, err := NewRouterFeeder(ModeAuto, crypto, stocks)
	require.NoError(t, err)
	ctx := context.Background()

	require.Equal(t, "binance", r.For("ABNB").Name())
	q, err := r.Quote(ctx, "ABNB")
	require.NoError(t, err)
	assert.Equal(t, "yahoo", q.Source)

	cs, err := r.Candles(ctx, "ABNB", "1d", 3)
	require.NoError(t, err)
	assert.Len(t, cs, 3)
	assert.Equal(t, 1, crypto.candles)
	assert.Equal(t, 1, stocks.candles)

	// other crypto failures are not retried elsewhere
	crypto.err = ErrNoData
	_, err = r.Quote(ctx, "BTCUSDT")
	assert.ErrorIs(t, err, ErrNoData)
	assert.Equal(t, 1, stocks.quotes)

	// a forced source never falls back
	forced, err := NewRouterFeeder(ModeBinance, &stubFeeder{name: "binance", err: ErrUnknownSymbol}, stocks)
	require.NoError(t, err)
	_, err = forced.Quote(ctx, "ABNB")
	assert.ErrorIs(t, err, ErrUnknownSymbol)
}

func TestCachedFeeder(t *testing.T) {
	next := &stubFeeder{name: "stub"}
	c, err := NewCachedFeeder(next, CacheOptions{QuoteTTL: time.Minute, CandleTTL: time.Hour})
	require.NoError(t, err)
	defer c.Close()

	ctx := context.Background()
	q1, err := c.Quote(ctx, "AAPL")
	require.NoError(t, err)
	q2, err := c.Quote(ctx, "AAPL")
	require.NoError(t, err)
	assert.Equal(t, q1, q2)
	assert.Equal(t, 1, next.quotes)

	_, err = c.Candles(ctx, "AAPL", "1d", 5)
	require.NoError(t, err)
	cs, err := c.Candles(ctx, "AAPL", "1d", 5)
	require.NoError(t, err)
	assert.Len(t, cs, 5)
	assert.Equal(t, 1, next.candles)

	// a different limit is a different key
	_, err = c.Candles(ctx, "AAPL", "1d", 6)
	require.NoError(t, err)
	assert.Equal(t, 2, next.candles)
}

func TestCachedFeederSkipsErrorsAndDisabledTTL(t *testing.T) {
	next := &stubFeeder{name: "stub", err: ErrUnknownSymbol}
	c, err := NewCachedFeeder(next, CacheOptions{})
	require.NoError(t, err)
	defer c.Close()

	_, err = c.Quote(context.Background(), "NOPE")
	assert.ErrorIs(t, err, ErrUnknownSymbol)

	next.err = nil
	_, _ = c.Quote(context.Background(), "AAPL")
	_, _ = c.Quote(context.Background(), "AAPL")
	assert.Equal(t, 3, next.quotes)
}
