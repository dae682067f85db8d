package market

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeSymbol(t *testing.T) {
	for in, want := range map[string]string{
		" btcusdt ": "BTCUSDT",
		"aapl":      "AAPL",
		"brk-b":     "BRK-B",
		"^gspc":     "^GSPC",
		"eurusd=x":  "EURUSD=X",
		"sap.de":    "SAP.DE",
	} {
		got, err := NormalizeSymbol(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}
	for _, bad := range []string{"", "BTC USDT", "a/b", "ABCDEFGHIJKLMNOPQRSTU"} {
		_, err := NormalizeSymbol(bad)
		assert.ErrorIs(t, err, ErrInvalidSymbol, bad)
	}
}

func TestIntervals(t *testing.T) {
	iv, err := NormalizeInterval("1H")
	require.NoError(t, err)
	assert.Equal(t, "1h", iv)

	_, err = NormalizeInterval("2h")
	assert.ErrorIs(t, err, ErrUnsupportedInterval)

	cases := map[string]time.Duration{
		"1m": time.Minute,
		"4h": 4 * time.Hour,
		"1d": 24 * time.Hour,
		"1w": 7 * 24 * time.Hour,
	}
	for iv, want := range cases {
		d, err := IntervalDuration(iv)
		require.NoError(t, err)
		assert.Equal(t, want, d, iv)
	}
}

func TestIsCrypto(t *testing.T) {
	assert.True(t, IsCrypto("BTCUSDT"))
	assert.True(t, IsCrypto("ETHBTC"))
	assert.True(t, IsCrypto("SOLFDUSD"))
	assert.False(t, IsCrypto("USDT"))
	assert.False(t, IsCrypto("AAPL"))
	assert.False(t, IsCrypto("BTC-USD"))
}
