package service

import (
	"context"

	"github.com/m3rciful/quotebot/bot/indicator"
	"github.com/m3rciful/quotebot/bot/market"
)

const (
	// AnalyzeCandles is the history requested for a report.
	AnalyzeCandles = 200
	// MaxCandles caps Quotes.Candles.
	MaxCandles = 50
	// DefaultCandles is used when no count is given.
	DefaultCandles = 10
)

// Quotes answers price, candle and analysis requests.
type Quotes struct {
	feeder market.Feeder
}

// NewQuotes returns a Quotes service backed by feeder.
func NewQuotes(feeder market.Feeder) *Quotes {
	return &Quotes{feeder: feeder}
}

// Price returns the latest quote for symbol.
func (s *Quotes) Price(ctx context.Context, symbol string) (market.Quote, error) {
	sym, err := market.NormalizeSymbol(symbol)
	if err != nil {
		return market.Quote{}, classify(symbol, err)
	}
	q, err := s.feeder.Quote(ctx, sym)
	if err != nil {
		return market.Quote{}, classify(sym, err)
	}
	return q, nil
}

// Analyze builds a technical report on the last AnalyzeCandles candles.
func (s *Quotes) Analyze(ctx context.Context, symbol, interval string) (indicator.Report, error) {
	sym, iv, err := normalizePair(symbol, interval)
	if err != nil {
		return indicator.Report{}, err
	}
	candles, err := s.feeder.Candles(ctx, sym, iv, AnalyzeCandles)
	if err != nil {
		return indicator.Report{}, classify(sym, err)
	}
	rep, err := indicator.Analyze(sym, iv, candles)
	if err != nil {
		return indicator.Report{}, classify(sym, err)
	}
	return rep, nil
}

// Candles returns the last n completed candles, 1 <= n <= MaxCandles.
func (s *Quotes) Candles(ctx context.Context, symbol, interval string, n int) ([]market.Candle, error) {
	if n < 1 || n > MaxCandles {
		return nil, newError(CodeInvalidArgument, "Count must be between 1 and 50.", nil)
	}
	sym, iv, err := normalizePair(symbol, interval)
	if err != nil {
		return nil, err
	}
	candles, err := s.feeder.Candles(ctx, sym, iv, n)
	if err != nil {
		return nil, classify(sym, err)
	}
	if len(candles) == 0 {
		return nil, classify(sym, market.ErrNoData)
	}
	if len(candles) > n {
		candles = candles[len(candles)-n:]
	}
	return candles, nil
}

func normalizePair(symbol, interval string) (string, string, error) {
	sym, err := market.NormalizeSymbol(symbol)
	if err != nil {
		return "", "", classify(symbol, err)
	}
	iv, err := market.NormalizeInterval(interval)
	if err != nil {
		return "", "", classify(sym, err)
	}
	return sym, iv, nil
}
