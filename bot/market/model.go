// Package market fetches quotes and candles from Binance and Yahoo Finance.
package market

import (
	"errors"
	"fmt"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/xhit/go-str2duration/v2"
)

var (
	// ErrUnknownSymbol means the provider does not list the symbol.
	ErrUnknownSymbol = errors.New("unknown symbol")
	// ErrUnsupportedInterval means the interval is not one of Intervals.
	ErrUnsupportedInterval = errors.New("unsupported interval")
	// ErrNoData means the provider answered without usable prices.
	ErrNoData = errors.New("no market data")
	// ErrInvalidSymbol means the input cannot be a ticker.
	ErrInvalidSymbol = errors.New("invalid symbol")
)

// Candle is one OHLCV bar opening at Time.
type Candle struct {
	Symbol   string    `json:"symbol"`
	Time     time.Time `json:"time"`
	Open     float64   `json:"open"`
	High     float64   `json:"high"`
	Low      float64   `json:"low"`
	Close    float64   `json:"close"`
	Volume   float64   `json:"volume"`
	Complete bool      `json:"complete"`
}

// Quote is a last price with 24h (crypto) or session (stocks) statistics.
type Quote struct {
	Symbol    string    `json:"symbol"`
	Price     float64   `json:"price"`
	ChangePct float64   `json:"change_pct"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Volume    float64   `json:"volume"`
	Currency  string    `json:"currency,omitempty"`
	Source    string    `json:"source"`
	Time      time.Time `json:"time"`
}

// Intervals lists the supported candle intervals in ascending order.
var Intervals = []string{"1m", "5m", "15m", "30m", "1h", "4h", "1d", "1w"}

var symbolRe = regexp.MustCompile(`^[A-Z0-9.\-=^]{1,20}$`)

// NormalizeSymbol trims and upper-cases s and validates the result.
func NormalizeSymbol(s string) (string, error) {
	sym := strings.ToUpper(strings.TrimSpace(s))
	if !symbolRe.MatchString(sym) {
		return "", fmt.Errorf("%w: %q", ErrInvalidSymbol, s)
	}
	return sym, nil
}

// NormalizeInterval lower-cases iv and checks it against Intervals.
func NormalizeInterval(iv string) (string, error) {
	v := strings.ToLower(strings.TrimSpace(iv))
	if v == "60m" {
		v = "1h"
	}
	if !slices.Contains(Intervals, v) {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedInterval, iv)
	}
	return v, nil
}

// IntervalDuration returns the bar length of iv.
func IntervalDuration(iv string) (time.Duration, error) {
	v, err := NormalizeInterval(iv)
	if err != nil {
		return 0, err
	}
	return str2duration.ParseDuration(v)
}

var cryptoQuotes = []string{"FDUSD", "USDT", "BUSD", "USDC", "BTC", "ETH", "BNB"}

// IsCrypto reports whether sym looks like a Binance spot pair such as BTCUSDT.
func IsCrypto(sym string) bool {
	if strings.ContainsAny(sym, ".-=^") {
		return false
	}
	for _, q := range cryptoQuotes {
		if base, ok := strings.CutSuffix(sym, q); ok && base != "" {
			return true
		}
	}
	return false
}
