package indicator

import (
	"time"

	"github.com/m3rciful/quotebot/bot/market"
)

// Dataframe holds candle columns.
type Dataframe struct {
	Symbol string
	Time   []time.Time
	Open   Series[float64]
	High   Series[float64]
	Low    Series[float64]
	Close  Series[float64]
	Volume Series[float64]
}

// NewDataframe splits candles into columns.
func NewDataframe(symbol string, candles []market.Candle) *Dataframe {
	n := len(candles)
	df := &Dataframe{
		Symbol: symbol,
		Time:   make([]time.Time, n),
		Open:   make(Series[float64], n),
		High:   make(Series[float64], n),
		Low:    make(Series[float64], n),
		Close:  make(Series[float64], n),
		Volume: make(Series[float64], n),
	}
	for i, c := range candles {
		df.Time[i] = c.Time
		df.Open[i] = c.Open
		df.High[i] = c.High
		df.Low[i] = c.Low
		df.Close[i] = c.Close
		df.Volume[i] = c.Volume
	}
	return df
}

// Len returns the number of rows.
func (df *Dataframe) Len() int { return len(df.Close) }
