package market

import "context"

// Feeder provides quotes and completed candles for a symbol.
type Feeder interface {
	Name() string
	Quote(ctx context.Context, symbol string) (Quote, error)
	// Candles returns up to limit completed candles, oldest first.
	Candles(ctx context.Context, symbol, interval string, limit int) ([]Candle, error)
}
