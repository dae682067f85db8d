package market

import (
	"context"
	"errors"
	"fmt"
)

// Routing modes.
const (
	ModeAuto    = "auto"
	ModeBinance = "binance"
	ModeYahoo   = "yahoo"
)

// RouterFeeder sends crypto pairs to one feeder and everything else to another.
type RouterFeeder struct {
	mode   string
	crypto Feeder
	stocks Feeder
}

// NewRouterFeeder returns a router. In ModeBinance or ModeYahoo every symbol
// goes to that feeder.
func NewRouterFeeder(mode string, crypto, stocks Feeder) (*RouterFeeder, error) {
	switch mode {
	case "", ModeAuto:
		mode = ModeAuto
	case ModeBinance, ModeYahoo:
	default:
		return nil, fmt.Errorf("market: unknown mode %q", mode)
	}
	if crypto == nil || stocks == nil {
		return nil, fmt.Errorf("market: router needs both feeders")
	}
	return &RouterFeeder{mode: mode, crypto: crypto, stocks: stocks}, nil
}

// Name implements Feeder.
func (r *RouterFeeder) Name() string { return "router" }

// For returns the feeder responsible for symbol.
func (r *RouterFeeder) For(symbol string) Feeder {
	switch r.mode {
	case ModeBinance:
		return r.crypto
	case ModeYahoo:
		return r.stocks
	}
	if IsCrypto(symbol) {
		return r.crypto
	}
	return r.stocks
}

// fallback reports whether a crypto miss should be retried on the stocks
// feeder. Tickers such as ABNB look like pairs but are listed stocks.
func (r *RouterFeeder) fallback(f Feeder, err error) bool {
	return r.mode == ModeAuto && f == r.crypto && errors.Is(err, ErrUnknownSymbol)
}

// Quote implements Feeder.
func (r *RouterFeeder) Quote(ctx context.Context, symbol string) (Quote, error) {
	f := r.For(symbol)
	q, err := f.Quote(ctx, symbol)
	if r.fallback(f, err) {
		return r.stocks.Quote(ctx, symbol)
	}
	return q, err
}

// Candles implements Feeder.
func (r *RouterFeeder) Candles(ctx context.Context, symbol, interval string, limit int) ([]Candle, error) {
	f := r.For(symbol)
	cs, err := f.Candles(ctx, symbol, interval, limit)
	if r.fallback(f, err) {
		return r.stocks.Candles(ctx, symbol, interval, limit)
	}
	return cs, err
}
