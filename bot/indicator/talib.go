// Package indicator computes technical indicators and a summary signal from candles.
package indicator

import "github.com/markcheno/go-talib"

// SMA is the simple moving average.
func SMA(in []float64, period int) []float64 { return talib.Sma(in, period) }

// EMA is the exponential moving average.
func EMA(in []float64, period int) []float64 { return talib.Ema(in, period) }

// RSI is Wilder's relative strength index.
func RSI(in []float64, period int) []float64 { return talib.Rsi(in, period) }

// MACD returns the MACD line, its signal line and the histogram.
func MACD(in []float64, fast, slow, signal int) ([]float64, []float64, []float64) {
	return talib.Macd(in, fast, slow, signal)
}

// BB returns upper, middle and lower Bollinger bands over an SMA basis.
func BB(in []float64, period int, deviation float64) ([]float64, []float64, []float64) {
	return talib.BBands(in, period, deviation, deviation, talib.SMA)
}

// ATR is the average true range.
func ATR(high, low, close []float64, period int) []float64 {
	return talib.Atr(high, low, close, period)
}

// Stoch returns the slow stochastic %K and %D.
func Stoch(high, low, close []float64, fastK, slowK, slowD int) ([]float64, []float64) {
	return talib.Stoch(high, low, close, fastK, slowK, talib.SMA, slowD, talib.SMA)
}
