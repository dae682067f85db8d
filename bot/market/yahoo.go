package market

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/samber/lo"
)

// DefaultYahooURL is the public Yahoo Finance chart host.
const DefaultYahooURL = "https://query1.finance.yahoo.com"

// YahooOptions configures YahooFeeder.
type YahooOptions struct {
	BaseURL string
	Timeout time.Duration
	// Now is overridable in tests.
	Now func() time.Time
}

// YahooFeeder reads stocks, indices, ETFs and FX from the Yahoo chart API.
type YahooFeeder struct {
	http *resty.Client
	now  func() time.Time
}

// yahooInterval maps a bot interval to the chart API interval, the lookback
// range to request and how many source bars make one output bar.
type yahooInterval struct {
	interval string
	rng      string
	group    int
}

var yahooIntervals = map[string]yahooInterval{
	"1m":  {"1m", "5d", 1},
	"5m":  {"5m", "1mo", 1},
	"15m": {"15m", "1mo", 1},
	"30m": {"30m", "1mo", 1},
	"1h":  {"60m", "3mo", 1},
	"4h":  {"60m", "1y", 4},
	"1d":  {"1d", "2y", 1},
	"1w":  {"1wk", "10y", 1},
}

// NewYahooFeeder builds a feeder using resty with sane timeouts.
func NewYahooFeeder(opts YahooOptions) *YahooFeeder {
	base := opts.BaseURL
	if base == "" {
		base = DefaultYahooURL
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	client := resty.New().
		SetBaseURL(base).
		SetTimeout(timeout).
		SetRetryCount(2).
		SetRetryWaitTime(300*time.Millisecond).
		SetHeader("User-Agent", "Mozilla/5.0 (compatible; quotebot/1.0)").
		SetHeader("Accept", "application/json")
	client.AddRetryCondition(func(r *resty.Response, err error) bool {
		return err != nil || r.StatusCode() == http.StatusTooManyRequests || r.StatusCode() >= 500
	})
	return &YahooFeeder{http: client, now: now}
}

// Name implements Feeder.
func (y *YahooFeeder) Name() string { return "yahoo" }

type chartResponse struct {
	Chart struct {
		Result []chartResult `json:"result"`
		Error  *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

type chartResult struct {
	Meta struct {
		Currency           string  `json:"currency"`
		Symbol             string  `json:"symbol"`
		RegularMarketPrice float64 `json:"regularMarketPrice"`
		ChartPreviousClose float64 `json:"chartPreviousClose"`
		PreviousClose      float64 `json:"previousClose"`
		DayHigh            float64 `json:"regularMarketDayHigh"`
		DayLow             float64 `json:"regularMarketDayLow"`
		Volume             float64 `json:"regularMarketVolume"`
		RegularMarketTime  int64   `json:"regularMarketTime"`
		GMTOffset          int64   `json:"gmtoffset"`

		CurrentTradingPeriod struct {
			Regular tradingPeriod `json:"regular"`
		} `json:"currentTradingPeriod"`
	} `json:"meta"`
	Timestamp  []int64 `json:"timestamp"`
	Indicators struct {
		Quote []struct {
			Open   []*float64 `json:"open"`
			High   []*float64 `json:"high"`
			Low    []*float64 `json:"low"`
			Close  []*float64 `json:"close"`
			Volume []*float64 `json:"volume"`
		} `json:"quote"`
	} `json:"indicators"`
}

// tradingPeriod is the current or most recent regular session, in unix seconds.
type tradingPeriod struct {
	Start     int64 `json:"start"`
	End       int64 `json:"end"`
	GMTOffset int64 `json:"gmtoffset"`
}

func (p tradingPeriod) ended(now time.Time) bool {
	return p.End != 0 && !now.Before(time.Unix(p.End, 0))
}

// closed reports whether the bar opening at start and lasting step is final.
// Yahoo stamps daily and weekly bars at the session open, so a bar that
// contains the session close is final once the close has passed. A weekly bar
// additionally needs that close to be a Friday.
func (p tradingPeriod) closed(start time.Time, step time.Duration, now time.Time, weekly bool) bool {
	if !start.Add(step).After(now) {
		return true
	}
	if !p.ended(now) {
		return false
	}
	end := time.Unix(p.End, 0)
	if !start.Before(end) || start.Add(step).Before(end) {
		return false
	}
	if weekly {
		return end.Add(time.Duration(p.GMTOffset)*time.Second).UTC().Weekday() == time.Friday
	}
	return true
}

// sessionDay is the exchange-local calendar day of t.
func sessionDay(t time.Time, gmtoffset int64) string {
	return t.Add(time.Duration(gmtoffset) * time.Second).UTC().Format(time.DateOnly)
}

func (y *YahooFeeder) chart(ctx context.Context, symbol, interval, rng string) (*chartResult, error) {
	var out chartResponse
	resp, err := y.http.R().
		SetContext(ctx).
		SetPathParam("symbol", symbol).
		SetQueryParams(map[string]string{
			"interval":       interval,
			"range":          rng,
			"includePrePost": "false",
		}).
		SetResult(&out).
		SetError(&out).
		Get("/v8/finance/chart/{symbol}")
	if err != nil {
		return nil, fmt.Errorf("yahoo %s: %w", symbol, err)
	}
	if resp.StatusCode() == http.StatusNotFound {
		return nil, fmt.Errorf("yahoo %s: %w", symbol, ErrUnknownSymbol)
	}
	if e := out.Chart.Error; e != nil {
		if e.Code == "Not Found" {
			return nil, fmt.Errorf("yahoo %s: %w", symbol, ErrUnknownSymbol)
		}
		return nil, fmt.Errorf("yahoo %s: %s: %s", symbol, e.Code, e.Description)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("yahoo %s: status %d", symbol, resp.StatusCode())
	}
	if len(out.Chart.Result) == 0 {
		return nil, fmt.Errorf("yahoo %s: %w", symbol, ErrNoData)
	}
	return &out.Chart.Result[0], nil
}

// Quote returns the regular market price and change since the previous close.
func (y *YahooFeeder) Quote(ctx context.Context, symbol string) (q Quote, err error) {
	defer func(start time.Time) { observe(y.Name(), "quote", symbol, start, err) }(time.Now())

	res, err := y.chart(ctx, symbol, "1d", "1d")
	if err != nil {
		return Quote{}, err
	}
	m := res.Meta
	if m.RegularMarketPrice <= 0 {
		return Quote{}, fmt.Errorf("yahoo %s: %w", symbol, ErrNoData)
	}
	prev := m.ChartPreviousClose
	if prev <= 0 {
		prev = m.PreviousClose
	}
	q = Quote{
		Symbol:   symbol,
		Price:    m.RegularMarketPrice,
		High:     m.DayHigh,
		Low:      m.DayLow,
		Volume:   m.Volume,
		Currency: m.Currency,
		Source:   y.Name(),
		Time:     time.Unix(m.RegularMarketTime, 0).UTC(),
	}
	if prev > 0 {
		q.ChangePct = (q.Price - prev) / prev * 100
	}
	return q, nil
}

// Candles returns up to limit completed bars. Yahoo has no 4h bars, so they
// are assembled from hourly ones.
func (y *YahooFeeder) Candles(ctx context.Context, symbol, interval string, limit int) (out []Candle, err error) {
	defer func(start time.Time) { observe(y.Name(), "candles", symbol, start, err) }(time.Now())

	iv, err := NormalizeInterval(interval)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		return nil, nil
	}
	spec := yahooIntervals[iv]
	step, _ := IntervalDuration(iv)

	res, err := y.chart(ctx, symbol, spec.interval, spec.rng)
	if err != nil {
		return nil, err
	}
	now := y.now()
	session := res.Meta.CurrentTradingPeriod.Regular
	srcStep := step / time.Duration(spec.group)
	bars := lo.Filter(parseBars(symbol, res), func(c Candle, _ int) bool {
		return session.closed(c.Time, srcStep, now, iv == "1w")
	})
	if spec.group > 1 && len(bars) > 0 {
		offset := res.Meta.GMTOffset
		lastDay := sessionDay(bars[len(bars)-1].Time, offset)
		open := func(day string) bool {
			if day != lastDay {
				return false
			}
			if session.End == 0 {
				return true
			}
			return day == sessionDay(time.Unix(session.End, 0), offset) && !session.ended(now)
		}
		bars = groupBars(bars, spec.group, offset, open)
	}
	if len(bars) == 0 {
		return nil, fmt.Errorf("yahoo %s %s: %w", symbol, iv, ErrNoData)
	}
	for i := range bars {
		bars[i].Complete = true
	}
	if len(bars) > limit {
		bars = bars[len(bars)-limit:]
	}
	return bars, nil
}

// parseBars zips the column arrays, skipping rows with missing prices.
func parseBars(symbol string, res *chartResult) []Candle {
	if len(res.Indicators.Quote) == 0 {
		return nil
	}
	q := res.Indicators.Quote[0]
	at := func(col []*float64, i int) (float64, bool) {
		if i >= len(col) || col[i] == nil {
			return 0, false
		}
		return *col[i], true
	}

	out := make([]Candle, 0, len(res.Timestamp))
	for i, ts := range res.Timestamp {
		o, ok1 := at(q.Open, i)
		h, ok2 := at(q.High, i)
		l, ok3 := at(q.Low, i)
		c, ok4 := at(q.Close, i)
		if !ok1 || !ok2 || !ok3 || !ok4 {
			continue
		}
		v, _ := at(q.Volume, i)
		out = append(out, Candle{
			Symbol: symbol,
			Time:   time.Unix(ts, 0).UTC(),
			Open:   o,
			High:   h,
			Low:    l,
			Close:  c,
			Volume: v,
		})
	}
	return out
}

// groupBars merges runs of n bars into one without crossing a session day;
// every day is chunked from its first bar. A day's short trailing run is kept
// only when open reports that day as finished.
func groupBars(bars []Candle, n int, gmtoffset int64, open func(day string) bool) []Candle {
	var chunks [][]Candle
	for start := 0; start < len(bars); {
		day := sessionDay(bars[start].Time, gmtoffset)
		end := start
		for end < len(bars) && sessionDay(bars[end].Time, gmtoffset) == day {
			end++
		}
		for _, chunk := range lo.Chunk(bars[start:end], n) {
			if len(chunk) == n || !open(day) {
				chunks = append(chunks, chunk)
			}
		}
		start = end
	}
	return lo.Map(chunks, func(chunk []Candle, _ int) Candle {
		out := chunk[0]
		for _, c := range chunk[1:] {
			out.High = max(out.High, c.High)
			out.Low = min(out.Low, c.Low)
			out.Close = c.Close
			out.Volume += c.Volume
		}
		return out
	})
}
