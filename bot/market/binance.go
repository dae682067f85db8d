package market

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/adshao/go-binance/v2"
	"github.com/adshao/go-binance/v2/common"
	"github.com/jpillora/backoff"

	"github.com/m3rciful/quotebot/core/telegram/netutil"
)

// binanceInvalidSymbol is the API error code for unknown pairs.
const binanceInvalidSymbol = -1121

// BinanceOptions configures BinanceFeeder.
type BinanceOptions struct {
	// BaseURL overrides the REST endpoint; empty keeps the library default.
	BaseURL     string
	Timeout     time.Duration
	MaxAttempts int
	// RetryMin is the first retry delay.
	RetryMin time.Duration
}

// BinanceFeeder reads public spot market data. No API key is needed.
type BinanceFeeder struct {
	client   *binance.Client
	attempts int
	retryMin time.Duration
}

// NewBinanceFeeder builds a feeder over the public spot API.
func NewBinanceFeeder(opts BinanceOptions) *BinanceFeeder {
	client := binance.NewClient("", "")
	if opts.BaseURL != "" {
		client.BaseURL = opts.BaseURL
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	client.HTTPClient = &http.Client{Timeout: timeout}

	f := &BinanceFeeder{client: client, attempts: opts.MaxAttempts, retryMin: opts.RetryMin}
	if f.attempts <= 0 {
		f.attempts = 3
	}
	if f.retryMin <= 0 {
		f.retryMin = 200 * time.Millisecond
	}
	return f
}

// Name implements Feeder.
func (b *BinanceFeeder) Name() string { return "binance" }

// Quote returns the last price with rolling 24h statistics.
func (b *BinanceFeeder) Quote(ctx context.Context, symbol string) (q Quote, err error) {
	defer func(start time.Time) { observe(b.Name(), "quote", symbol, start, err) }(time.Now())

	var stats []*binance.PriceChangeStats
	err = b.retry(ctx, func() error {
		var callErr error
		stats, callErr = b.client.NewListPriceChangeStatsService().Symbol(symbol).Do(ctx)
		return callErr
	})
	if err != nil {
		return Quote{}, b.wrap(symbol, err)
	}
	if len(stats) == 0 || stats[0] == nil {
		return Quote{}, fmt.Errorf("binance %s: %w", symbol, ErrNoData)
	}

	s := stats[0]
	q = Quote{
		Symbol:    symbol,
		Price:     parseFloat(s.LastPrice),
		ChangePct: parseFloat(s.PriceChangePercent),
		High:      parseFloat(s.HighPrice),
		Low:       parseFloat(s.LowPrice),
		Volume:    parseFloat(s.Volume),
		Source:    b.Name(),
		Time:      time.UnixMilli(s.CloseTime),
	}
	if q.Price <= 0 {
		return Quote{}, fmt.Errorf("binance %s: %w", symbol, ErrNoData)
	}
	return q, nil
}

// Candles returns up to limit closed klines. One extra kline is requested
// because Binance always includes the bar that is still forming.
func (b *BinanceFeeder) Candles(ctx context.Context, symbol, interval string, limit int) (out []Candle, err error) {
	defer func(start time.Time) { observe(b.Name(), "candles", symbol, start, err) }(time.Now())

	iv, err := NormalizeInterval(interval)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		return nil, nil
	}

	var klines []*binance.Kline
	err = b.retry(ctx, func() error {
		var callErr error
		klines, callErr = b.client.NewKlinesService().
			Symbol(symbol).
			Interval(iv).
			Limit(min(limit+1, 1000)).
			Do(ctx)
		return callErr
	})
	if err != nil {
		return nil, b.wrap(symbol, err)
	}
	if len(klines) <= 1 {
		return nil, fmt.Errorf("binance %s %s: %w", symbol, iv, ErrNoData)
	}

	klines = klines[:len(klines)-1]
	if len(klines) > limit {
		klines = klines[len(klines)-limit:]
	}
	out = make([]Candle, 0, len(klines))
	for _, k := range klines {
		out = append(out, convertKline(symbol, k))
	}
	return out, nil
}

func convertKline(symbol string, k *binance.Kline) Candle {
	return Candle{
		Symbol:   symbol,
		Time:     time.UnixMilli(k.OpenTime).UTC(),
		Open:     parseFloat(k.Open),
		High:     parseFloat(k.High),
		Low:      parseFloat(k.Low),
		Close:    parseFloat(k.Close),
		Volume:   parseFloat(k.Volume),
		Complete: true,
	}
}

// retry runs fn until it succeeds, the error is final, or attempts run out.
func (b *BinanceFeeder) retry(ctx context.Context, fn func() error) error {
	bo := &backoff.Backoff{Min: b.retryMin, Max: 2 * time.Second, Factor: 2, Jitter: true}
	var err error
	for attempt := 1; attempt <= b.attempts; attempt++ {
		if err = fn(); err == nil || !binanceRetryable(err) || attempt == b.attempts {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(bo.Duration()):
		}
	}
	return err
}

func binanceRetryable(err error) bool {
	var apiErr *common.APIError
	if errors.As(err, &apiErr) {
		// Code 0 means a gateway answered without an API body. -1003 is the
		// request weight limit, -1001 an internal disconnect.
		return apiErr.Code == 0 || apiErr.Code == -1003 || apiErr.Code == -1001
	}
	return netutil.ShouldRetry(err)
}

func (b *BinanceFeeder) wrap(symbol string, err error) error {
	var apiErr *common.APIError
	if errors.As(err, &apiErr) && apiErr.Code == binanceInvalidSymbol {
		return fmt.Errorf("binance %s: %w", symbol, ErrUnknownSymbol)
	}
	return fmt.Errorf("binance %s: %w", symbol, err)
}

func parseFloat(s string) float64 {
	v, _ := strconv.ParseFloat(s, 64)
	return v
}
