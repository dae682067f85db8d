package indicator

// SuperTrend trails price with an ATR band: the lower band while the trend is
// up, the upper band while it is down. Entries before the first ATR value are zero.
func SuperTrend(high, low, close []float64, period int, factor float64) []float64 {
	n := len(close)
	out := make([]float64, n)
	if n == 0 {
		return out
	}
	atr := ATR(high, low, close, period)

	upper := make([]float64, n)
	lower := make([]float64, n)
	for i := 1; i < n; i++ {
		if atr[i] == 0 {
			continue
		}
		mid := (high[i] + low[i]) / 2
		bu, bl := mid+atr[i]*factor, mid-atr[i]*factor

		upper[i] = bu
		if upper[i-1] != 0 && bu > upper[i-1] && close[i-1] <= upper[i-1] {
			upper[i] = upper[i-1]
		}
		lower[i] = bl
		if lower[i-1] != 0 && bl < lower[i-1] && close[i-1] >= lower[i-1] {
			lower[i] = lower[i-1]
		}

		switch {
		case out[i-1] == 0:
			// first defined bar: side by close against the mid price
			if close[i] >= mid {
				out[i] = lower[i]
			} else {
				out[i] = upper[i]
			}
		case out[i-1] == upper[i-1]:
			if close[i] > upper[i] {
				out[i] = lower[i]
			} else {
				out[i] = upper[i]
			}
		default:
			if close[i] < lower[i] {
				out[i] = upper[i]
			} else {
				out[i] = lower[i]
			}
		}
	}
	return out
}
