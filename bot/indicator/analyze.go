package indicator

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/m3rciful/quotebot/bot/market"
)

// MinCandles is the shortest history Analyze accepts; SMA50 plus warm-up.
const MinCandles = 60

// volatilityWindow is the number of log returns used for Volatility.
const volatilityWindow = 30

// ErrNotEnoughData is returned when fewer than MinCandles candles are given.
var ErrNotEnoughData = errors.New("not enough candles")

// Signal summarises the indicator votes.
type Signal string

// Signals from most bullish to most bearish.
const (
	StrongBuy  Signal = "strong_buy"
	Buy        Signal = "buy"
	Neutral    Signal = "neutral"
	Sell       Signal = "sell"
	StrongSell Signal = "strong_sell"
)

// Report holds the latest indicator values for one symbol and interval.
type Report struct {
	Symbol   string
	Interval string
	Candles  int
	Last     market.Candle

	SMA20, SMA50               float64
	EMA12, EMA26               float64
	RSI14                      float64
	MACD, MACDSignal, MACDHist float64
	BBUpper, BBMiddle, BBLower float64
	ATR14                      float64
	StochK, StochD             float64
	SuperTrend                 float64
	// Volatility is the standard deviation of recent log returns, in percent.
	Volatility float64

	Score  int
	Signal Signal
	Notes  []string
}

// SignalFromScore maps a vote total to a Signal.
func SignalFromScore(score int) Signal {
	switch {
	case score >= 3:
		return StrongBuy
	case score >= 1:
		return Buy
	case score <= -3:
		return StrongSell
	case score <= -1:
		return Sell
	default:
		return Neutral
	}
}

// Analyze computes a Report from candles ordered oldest first.
func Analyze(symbol, interval string, candles []market.Candle) (Report, error) {
	if len(candles) < MinCandles {
		return Report{}, fmt.Errorf("%w: have %d, need %d", ErrNotEnoughData, len(candles), MinCandles)
	}
	df := NewDataframe(symbol, candles)

	sma20 := Series[float64](SMA(df.Close, 20))
	sma50 := Series[float64](SMA(df.Close, 50))
	ema12 := EMA(df.Close, 12)
	ema26 := EMA(df.Close, 26)
	rsi := RSI(df.Close, 14)
	macd, macdSig, macdHist := MACD(df.Close, 12, 26, 9)
	bbUp, bbMid, bbLow := BB(df.Close, 20, 2)
	atr := ATR(df.High, df.Low, df.Close, 14)
	k, d := Stoch(df.High, df.Low, df.Close, 14, 3, 3)
	st := SuperTrend(df.High, df.Low, df.Close, 10, 3)

	r := Report{
		Symbol:     symbol,
		Interval:   interval,
		Candles:    df.Len(),
		Last:       candles[len(candles)-1],
		SMA20:      sma20.Last(0),
		SMA50:      sma50.Last(0),
		EMA12:      Series[float64](ema12).Last(0),
		EMA26:      Series[float64](ema26).Last(0),
		RSI14:      Series[float64](rsi).Last(0),
		MACD:       Series[float64](macd).Last(0),
		MACDSignal: Series[float64](macdSig).Last(0),
		MACDHist:   Series[float64](macdHist).Last(0),
		BBUpper:    Series[float64](bbUp).Last(0),
		BBMiddle:   Series[float64](bbMid).Last(0),
		BBLower:    Series[float64](bbLow).Last(0),
		ATR14:      Series[float64](atr).Last(0),
		StochK:     Series[float64](k).Last(0),
		StochD:     Series[float64](d).Last(0),
		SuperTrend: Series[float64](st).Last(0),
		Volatility: Volatility(df.Close, volatilityWindow),
	}
	price := df.Close.Last(0)

	vote := func(cond bool, up, down string, bearish bool) {
		switch {
		case cond:
			r.Score++
			r.Notes = append(r.Notes, up)
		case bearish:
			r.Score--
			r.Notes = append(r.Notes, down)
		}
	}
	vote(price > r.SMA50, "price above SMA50", "price below SMA50", price < r.SMA50)
	vote(r.SMA20 > r.SMA50, "SMA20 above SMA50", "SMA20 below SMA50", r.SMA20 < r.SMA50)
	vote(r.MACDHist > 0, "MACD histogram positive", "MACD histogram negative", r.MACDHist < 0)
	vote(r.RSI14 < 30, "RSI oversold", "RSI overbought", r.RSI14 > 70)
	if r.SuperTrend > 0 {
		vote(price > r.SuperTrend, "price above SuperTrend", "price below SuperTrend", price < r.SuperTrend)
	}
	macdS, sigS := Series[float64](macd), Series[float64](macdSig)
	vote(macdS.Crossover(sigS), "MACD crossed above signal", "MACD crossed below signal", macdS.Crossunder(sigS))

	r.Signal = SignalFromScore(r.Score)
	return r, nil
}

// Volatility is the sample standard deviation of the last window log
// returns of closes, in percent.
func Volatility(closes []float64, window int) float64 {
	if len(closes) < 2 {
		return 0
	}
	start := max(1, len(closes)-window)
	returns := make([]float64, 0, len(closes)-start)
	for i := start; i < len(closes); i++ {
		if closes[i-1] <= 0 || closes[i] <= 0 {
			continue
		}
		returns = append(returns, math.Log(closes[i]/closes[i-1]))
	}
	if len(returns) < 2 {
		return 0
	}
	_, std := stat.MeanStdDev(returns, nil)
	return std * 100
}
